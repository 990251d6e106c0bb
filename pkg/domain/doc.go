/*
Package domain contains the core domain models for the Graft document mapper.

It defines the vocabulary of the lifecycle engine (operations, phases, hook
kinds) together with the error taxonomy and the observability events emitted
while hook chains execute. This package is kept pure and free of external
dependencies like I/O or persistence, following Hexagonal Architecture
principles.

# Key Entities

  - Operation: A named lifecycle point on a document (init, validate, save, remove, or custom).
  - Phase: Whether a hook runs before (pre) or after (post) an operation's core action.
  - HookKind: The callback shape of a registered hook (sync, continuation, deferred).
  - HookError / PanicError: How hook failures surface to callers.
  - HookEvent / Events: Synchronous observability callbacks for hook execution.
*/
package domain
