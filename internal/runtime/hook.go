package runtime

import (
	"context"
	"runtime/debug"
	"sync"

	"github.com/aretw0/graft/pkg/domain"
)

// Hook is a single lifecycle callback bound to one phase of one operation.
// The shape of the user function (plain, continuation or channel based) is
// resolved when the hook is built; the runner only ever sees invoke.
type Hook struct {
	kind   domain.HookKind
	invoke func(ctx context.Context, doc any, swallow func(error)) error
}

// Kind reports how the underlying callback signals completion.
func (h Hook) Kind() domain.HookKind { return h.kind }

// SyncHook wraps a plain callback. A nil return advances the chain, a
// non-nil return halts it. Panics are recovered and surface as a
// *domain.PanicError.
func SyncHook(fn func(ctx context.Context, doc any) error) Hook {
	return Hook{
		kind: domain.KindSync,
		invoke: func(ctx context.Context, doc any, _ func(error)) (err error) {
			defer func() {
				if rec := recover(); rec != nil {
					err = &domain.PanicError{Value: rec, Stack: debug.Stack()}
				}
			}()
			return fn(ctx, doc)
		},
	}
}

// NextHook wraps a continuation-style callback. The callback runs on its own
// goroutine and the chain does not advance until it calls next. Calling next
// more than once is tolerated: the first call decides the outcome and any
// later non-nil error is handed to swallow instead of the chain. A panic
// raised after next has fired is swallowed the same way.
func NextHook(fn func(ctx context.Context, doc any, next func(error))) Hook {
	return Hook{
		kind: domain.KindNext,
		invoke: func(ctx context.Context, doc any, swallow func(error)) error {
			done := make(chan error, 1)
			var once sync.Once

			advance := func(err error) bool {
				delivered := false
				once.Do(func() {
					done <- err
					delivered = true
				})
				return delivered
			}
			next := func(err error) {
				if !advance(err) && err != nil && swallow != nil {
					swallow(err)
				}
			}

			go func() {
				defer func() {
					if rec := recover(); rec != nil {
						perr := &domain.PanicError{Value: rec, Stack: debug.Stack()}
						if !advance(perr) && swallow != nil {
							swallow(perr)
						}
					}
				}()
				fn(ctx, doc, next)
			}()

			return <-done
		},
	}
}

// AsyncHook wraps a callback that reports completion through a channel. The
// chain blocks until the channel yields a value or is closed; a closed or nil
// channel counts as success. Panics raised while the callback itself runs are
// recovered into a *domain.PanicError.
func AsyncHook(fn func(ctx context.Context, doc any) <-chan error) Hook {
	return Hook{
		kind: domain.KindAsync,
		invoke: func(ctx context.Context, doc any, _ func(error)) (err error) {
			defer func() {
				if rec := recover(); rec != nil {
					err = &domain.PanicError{Value: rec, Stack: debug.Stack()}
				}
			}()
			ch := fn(ctx, doc)
			if ch == nil {
				return nil
			}
			return <-ch
		},
	}
}
