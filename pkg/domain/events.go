package domain

import (
	"context"
	"time"
)

// HookEvent describes the completion of a single hook invocation.
type HookEvent struct {
	Model    string        // model/collection label, empty for unlabeled runners
	Op       Operation     // operation being executed
	Phase    Phase         // pre or post
	Kind     HookKind      // callback shape
	Index    int           // position in registration order
	Duration time.Duration // wall time from hook start to completion signal
	Err      error         // non-nil if the hook failed

	// Swallowed marks a failure that arrived after the hook had already
	// signaled success. The engine discards such failures from control flow;
	// this event is the only place they remain visible.
	Swallowed bool
}

// Events defines synchronous observability callbacks for the lifecycle
// engine. Callbacks run inline on the operation's goroutine and must return
// quickly; they must not retain the event beyond the call.
type Events struct {
	// OnHook is invoked after every hook completes, including swallowed
	// late failures.
	OnHook func(context.Context, HookEvent)
}
