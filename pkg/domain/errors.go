package domain

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a document ID cannot be found in the store.
var ErrNotFound = errors.New("document not found")

// ErrCacheMiss is returned by a Cache when the key is absent or expired.
var ErrCacheMiss = errors.New("cache miss")

// ErrMissingID is returned when an operation requires a document ID and the
// document does not carry one.
var ErrMissingID = errors.New("document has no id")

// HookError reports the failure of a single lifecycle hook. Phase
// distinguishes a pre-hook veto from a post-hook failure; core action
// failures are returned verbatim and are therefore never a HookError.
type HookError struct {
	Phase Phase
	Op    Operation
	Index int // position in the registration order for (Phase, Op)
	Err   error
}

func (e *HookError) Error() string {
	return fmt.Sprintf("%s %s hook #%d: %v", e.Phase, e.Op, e.Index, e.Err)
}

// Unwrap exposes the hook's own failure to errors.Is / errors.As.
func (e *HookError) Unwrap() error {
	return e.Err
}

// PanicError wraps a panic recovered inside a hook so it surfaces as an
// ordinary error value instead of crashing the caller.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("hook panicked: %v", e.Value)
}
