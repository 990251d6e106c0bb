package runtime

import (
	"context"
	"log/slog"
	"time"

	"github.com/aretw0/graft/internal/logging"
	"github.com/aretw0/graft/pkg/domain"
)

// Action is the core operation a chain wraps, such as a store write. A nil
// action is valid and makes the run purely hook-driven.
type Action func(ctx context.Context) error

// Runner executes lifecycle chains. It is stateless apart from its
// observability wiring, so a single runner is safe for concurrent runs and
// can serve any number of chains.
type Runner struct {
	name   string
	logger *slog.Logger
	events domain.Events
}

// Option configures a Runner.
type Option func(*Runner)

// WithName labels hook events and log lines with the owning model's name.
func WithName(name string) Option {
	return func(r *Runner) { r.name = name }
}

// WithLogger sets the logger used for hook tracing.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithEvents installs observer callbacks invoked after every hook.
func WithEvents(events domain.Events) Option {
	return func(r *Runner) { r.events = events }
}

// NewRunner builds a Runner. Without options it is silent: logs are
// discarded and no events are emitted.
func NewRunner(opts ...Option) *Runner {
	r := &Runner{logger: logging.NewNop()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes one lifecycle operation: every pre hook in registration
// order, then the core action, then every post hook.
//
// The first pre hook failure halts the run; the core action and post hooks
// do not execute. A core action failure is returned verbatim and skips the
// post hooks. A post hook failure halts the remaining post hooks. Hook
// failures are wrapped in *domain.HookError; panics inside hooks surface as
// *domain.PanicError behind that wrapper. Hooks run strictly one at a time,
// each completing before the next starts.
func (r *Runner) Run(ctx context.Context, chain *Chain, op domain.Operation, doc any, core Action) error {
	if err := r.runPhase(ctx, chain, domain.PhasePre, op, doc); err != nil {
		return err
	}
	if core != nil {
		if err := core(ctx); err != nil {
			r.logger.DebugContext(ctx, "core action failed",
				"model", r.name, "op", string(op), "error", err)
			return err
		}
	}
	return r.runPhase(ctx, chain, domain.PhasePost, op, doc)
}

func (r *Runner) runPhase(ctx context.Context, chain *Chain, phase domain.Phase, op domain.Operation, doc any) error {
	for i, h := range chain.Hooks(phase, op) {
		start := time.Now()
		swallow := func(err error) {
			r.logger.DebugContext(ctx, "late hook failure swallowed",
				"model", r.name, "op", string(op), "phase", string(phase), "index", i, "error", err)
			r.emit(ctx, domain.HookEvent{
				Model:     r.name,
				Op:        op,
				Phase:     phase,
				Kind:      h.kind,
				Index:     i,
				Duration:  time.Since(start),
				Err:       err,
				Swallowed: true,
			})
		}

		err := h.invoke(ctx, doc, swallow)
		r.emit(ctx, domain.HookEvent{
			Model:    r.name,
			Op:       op,
			Phase:    phase,
			Kind:     h.kind,
			Index:    i,
			Duration: time.Since(start),
			Err:      err,
		})
		if err != nil {
			r.logger.DebugContext(ctx, "hook failed",
				"model", r.name, "op", string(op), "phase", string(phase), "index", i, "error", err)
			return &domain.HookError{Phase: phase, Op: op, Index: i, Err: err}
		}
	}
	return nil
}

func (r *Runner) emit(ctx context.Context, ev domain.HookEvent) {
	if r.events.OnHook != nil {
		r.events.OnHook(ctx, ev)
	}
}
