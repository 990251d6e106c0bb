package runtime_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aretw0/graft/internal/runtime"
	"github.com/aretw0/graft/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// trace is the document used by most tests: hooks append step names to it.
// The runner guarantees hooks run one at a time, so no locking is needed.
type trace struct {
	steps []string
}

func step(name string) runtime.Hook {
	return runtime.SyncHook(func(_ context.Context, doc any) error {
		d := doc.(*trace)
		d.steps = append(d.steps, name)
		return nil
	})
}

func TestRunner_OrderAndPhases(t *testing.T) {
	chain := runtime.NewChain()
	chain.Register(domain.PhasePre, domain.OpSave, step("pre-0"))
	chain.Register(domain.PhasePre, domain.OpSave, step("pre-1"))
	chain.Register(domain.PhasePost, domain.OpSave, step("post-0"))
	chain.Register(domain.PhasePost, domain.OpSave, step("post-1"))

	doc := &trace{}
	core := func(ctx context.Context) error {
		doc.steps = append(doc.steps, "core")
		return nil
	}

	err := runtime.NewRunner().Run(context.Background(), chain, domain.OpSave, doc, core)
	require.NoError(t, err)
	assert.Equal(t, []string{"pre-0", "pre-1", "core", "post-0", "post-1"}, doc.steps)
}

func TestRunner_PreFailureHaltsRun(t *testing.T) {
	errBoom := errors.New("boom")

	chain := runtime.NewChain()
	chain.Register(domain.PhasePre, domain.OpSave, step("pre-0"))
	chain.Register(domain.PhasePre, domain.OpSave, runtime.SyncHook(func(context.Context, any) error {
		return errBoom
	}))
	chain.Register(domain.PhasePre, domain.OpSave, step("pre-2"))
	chain.Register(domain.PhasePost, domain.OpSave, step("post-0"))

	doc := &trace{}
	coreRan := false
	err := runtime.NewRunner().Run(context.Background(), chain, domain.OpSave, doc, func(context.Context) error {
		coreRan = true
		return nil
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, errBoom)

	var hookErr *domain.HookError
	require.ErrorAs(t, err, &hookErr)
	assert.Equal(t, domain.PhasePre, hookErr.Phase)
	assert.Equal(t, domain.OpSave, hookErr.Op)
	assert.Equal(t, 1, hookErr.Index)

	assert.False(t, coreRan, "core must not run after a pre hook failure")
	assert.Equal(t, []string{"pre-0"}, doc.steps)
}

func TestRunner_CoreFailureSkipsPosts(t *testing.T) {
	errStore := errors.New("store unavailable")

	chain := runtime.NewChain()
	chain.Register(domain.PhasePre, domain.OpSave, step("pre-0"))
	chain.Register(domain.PhasePost, domain.OpSave, step("post-0"))

	doc := &trace{}
	err := runtime.NewRunner().Run(context.Background(), chain, domain.OpSave, doc, func(context.Context) error {
		return errStore
	})

	// The core failure comes back untouched, not wrapped as a hook error.
	require.Error(t, err)
	assert.Equal(t, errStore, err)
	var hookErr *domain.HookError
	assert.False(t, errors.As(err, &hookErr))

	assert.Equal(t, []string{"pre-0"}, doc.steps, "post hooks must not run after a core failure")
}

func TestRunner_PostFailureHaltsRemaining(t *testing.T) {
	errAudit := errors.New("audit sink down")

	chain := runtime.NewChain()
	chain.Register(domain.PhasePost, domain.OpRemove, step("post-0"))
	chain.Register(domain.PhasePost, domain.OpRemove, runtime.SyncHook(func(context.Context, any) error {
		return errAudit
	}))
	chain.Register(domain.PhasePost, domain.OpRemove, step("post-2"))

	doc := &trace{}
	coreRan := false
	err := runtime.NewRunner().Run(context.Background(), chain, domain.OpRemove, doc, func(context.Context) error {
		coreRan = true
		return nil
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, errAudit)

	var hookErr *domain.HookError
	require.ErrorAs(t, err, &hookErr)
	assert.Equal(t, domain.PhasePost, hookErr.Phase)
	assert.Equal(t, 1, hookErr.Index)

	assert.True(t, coreRan, "core ran before the failing post hook")
	assert.Equal(t, []string{"post-0"}, doc.steps)
}

func TestRunner_DuplicateRegistrationRunsTwice(t *testing.T) {
	hook := step("again")

	chain := runtime.NewChain()
	chain.Register(domain.PhasePre, domain.OpValidate, hook)
	chain.Register(domain.PhasePre, domain.OpValidate, hook)

	doc := &trace{}
	err := runtime.NewRunner().Run(context.Background(), chain, domain.OpValidate, doc, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"again", "again"}, doc.steps)
}

func TestRunner_OperationsAreIsolated(t *testing.T) {
	chain := runtime.NewChain()
	chain.Register(domain.PhasePre, domain.OpSave, step("save-pre"))
	chain.Register(domain.PhasePre, domain.OpRemove, step("remove-pre"))

	doc := &trace{}
	err := runtime.NewRunner().Run(context.Background(), chain, domain.OpRemove, doc, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"remove-pre"}, doc.steps)
}

func TestRunner_ContinuationHooks(t *testing.T) {
	t.Run("Waits For Next", func(t *testing.T) {
		chain := runtime.NewChain()
		chain.Register(domain.PhasePre, domain.OpSave, runtime.NextHook(func(_ context.Context, doc any, next func(error)) {
			time.Sleep(20 * time.Millisecond)
			d := doc.(*trace)
			d.steps = append(d.steps, "slow-pre")
			next(nil)
		}))
		chain.Register(domain.PhasePre, domain.OpSave, step("pre-1"))

		doc := &trace{}
		err := runtime.NewRunner().Run(context.Background(), chain, domain.OpSave, doc, nil)
		require.NoError(t, err)
		assert.Equal(t, []string{"slow-pre", "pre-1"}, doc.steps,
			"the next hook must not start before the continuation fires")
	})

	t.Run("Error Through Next", func(t *testing.T) {
		errNope := errors.New("nope")

		chain := runtime.NewChain()
		chain.Register(domain.PhasePre, domain.OpSave, runtime.NextHook(func(_ context.Context, _ any, next func(error)) {
			next(errNope)
		}))
		chain.Register(domain.PhasePre, domain.OpSave, step("pre-1"))

		doc := &trace{}
		coreRan := false
		err := runtime.NewRunner().Run(context.Background(), chain, domain.OpSave, doc, func(context.Context) error {
			coreRan = true
			return nil
		})

		require.Error(t, err)
		assert.ErrorIs(t, err, errNope)
		assert.False(t, coreRan)
		assert.Empty(t, doc.steps)
	})

	t.Run("Second Next Is Swallowed", func(t *testing.T) {
		errLate := errors.New("too late")
		events := make(chan domain.HookEvent, 8)

		chain := runtime.NewChain()
		chain.Register(domain.PhasePre, domain.OpSave, runtime.NextHook(func(_ context.Context, _ any, next func(error)) {
			next(nil)
			next(errLate)
		}))

		runner := runtime.NewRunner(runtime.WithEvents(domain.Events{
			OnHook: func(_ context.Context, ev domain.HookEvent) { events <- ev },
		}))
		err := runner.Run(context.Background(), chain, domain.OpSave, &trace{}, nil)
		require.NoError(t, err, "a late error must not affect the run outcome")

		ev := waitForSwallowed(t, events)
		assert.ErrorIs(t, ev.Err, errLate)
		assert.Equal(t, domain.PhasePre, ev.Phase)
		assert.Equal(t, domain.KindNext, ev.Kind)
	})

	t.Run("Panic After Next Is Swallowed", func(t *testing.T) {
		events := make(chan domain.HookEvent, 8)

		chain := runtime.NewChain()
		chain.Register(domain.PhasePre, domain.OpSave, runtime.NextHook(func(_ context.Context, _ any, next func(error)) {
			next(nil)
			panic("late panic")
		}))

		runner := runtime.NewRunner(runtime.WithEvents(domain.Events{
			OnHook: func(_ context.Context, ev domain.HookEvent) { events <- ev },
		}))
		err := runner.Run(context.Background(), chain, domain.OpSave, &trace{}, nil)
		require.NoError(t, err)

		ev := waitForSwallowed(t, events)
		var panicErr *domain.PanicError
		require.ErrorAs(t, ev.Err, &panicErr)
		assert.Equal(t, "late panic", panicErr.Value)
	})
}

func TestRunner_AsyncHooks(t *testing.T) {
	t.Run("Failure From Channel", func(t *testing.T) {
		errAsync := errors.New("async boom")

		chain := runtime.NewChain()
		chain.Register(domain.PhasePre, domain.OpSave, runtime.AsyncHook(func(context.Context, any) <-chan error {
			ch := make(chan error, 1)
			go func() {
				time.Sleep(10 * time.Millisecond)
				ch <- errAsync
			}()
			return ch
		}))

		err := runtime.NewRunner().Run(context.Background(), chain, domain.OpSave, &trace{}, nil)
		require.Error(t, err)
		assert.ErrorIs(t, err, errAsync)

		var hookErr *domain.HookError
		require.ErrorAs(t, err, &hookErr)
		assert.Equal(t, 0, hookErr.Index)
	})

	t.Run("Mutation Lands Before Resolution", func(t *testing.T) {
		chain := runtime.NewChain()
		chain.Register(domain.PhasePre, domain.OpSave, runtime.AsyncHook(func(_ context.Context, doc any) <-chan error {
			ch := make(chan error, 1)
			go func() {
				time.Sleep(10 * time.Millisecond)
				d := doc.(*trace)
				d.steps = append(d.steps, "async-pre")
				ch <- nil
			}()
			return ch
		}))
		chain.Register(domain.PhasePre, domain.OpSave, step("pre-1"))

		doc := &trace{}
		err := runtime.NewRunner().Run(context.Background(), chain, domain.OpSave, doc, nil)
		require.NoError(t, err)
		assert.Equal(t, []string{"async-pre", "pre-1"}, doc.steps)
	})

	t.Run("Nil Channel Counts As Success", func(t *testing.T) {
		chain := runtime.NewChain()
		chain.Register(domain.PhasePre, domain.OpSave, runtime.AsyncHook(func(context.Context, any) <-chan error {
			return nil
		}))
		chain.Register(domain.PhasePre, domain.OpSave, step("pre-1"))

		doc := &trace{}
		err := runtime.NewRunner().Run(context.Background(), chain, domain.OpSave, doc, nil)
		require.NoError(t, err)
		assert.Equal(t, []string{"pre-1"}, doc.steps)
	})

	t.Run("Closed Channel Counts As Success", func(t *testing.T) {
		chain := runtime.NewChain()
		chain.Register(domain.PhasePre, domain.OpSave, runtime.AsyncHook(func(context.Context, any) <-chan error {
			ch := make(chan error)
			close(ch)
			return ch
		}))

		err := runtime.NewRunner().Run(context.Background(), chain, domain.OpSave, &trace{}, nil)
		assert.NoError(t, err)
	})
}

func TestRunner_PanicBecomesError(t *testing.T) {
	chain := runtime.NewChain()
	chain.Register(domain.PhasePost, domain.OpInit, runtime.SyncHook(func(context.Context, any) error {
		panic("unexpected state")
	}))

	err := runtime.NewRunner().Run(context.Background(), chain, domain.OpInit, &trace{}, nil)
	require.Error(t, err)

	var hookErr *domain.HookError
	require.ErrorAs(t, err, &hookErr)
	assert.Equal(t, domain.PhasePost, hookErr.Phase)

	var panicErr *domain.PanicError
	require.ErrorAs(t, err, &panicErr)
	assert.Equal(t, "unexpected state", panicErr.Value)
	assert.NotEmpty(t, panicErr.Stack)
}

func TestRunner_HooksNeverOverlap(t *testing.T) {
	var active, peak int64
	enter := func() {
		n := atomic.AddInt64(&active, 1)
		for {
			old := atomic.LoadInt64(&peak)
			if n <= old || atomic.CompareAndSwapInt64(&peak, old, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		atomic.AddInt64(&active, -1)
	}

	chain := runtime.NewChain()
	chain.Register(domain.PhasePre, domain.OpSave, runtime.SyncHook(func(context.Context, any) error {
		enter()
		return nil
	}))
	chain.Register(domain.PhasePre, domain.OpSave, runtime.NextHook(func(_ context.Context, _ any, next func(error)) {
		enter()
		next(nil)
	}))
	chain.Register(domain.PhasePre, domain.OpSave, runtime.AsyncHook(func(context.Context, any) <-chan error {
		ch := make(chan error, 1)
		go func() {
			enter()
			ch <- nil
		}()
		return ch
	}))
	chain.Register(domain.PhasePost, domain.OpSave, runtime.SyncHook(func(context.Context, any) error {
		enter()
		return nil
	}))

	err := runtime.NewRunner().Run(context.Background(), chain, domain.OpSave, &trace{}, nil)
	require.NoError(t, err)
	assert.EqualValues(t, 1, atomic.LoadInt64(&peak), "hooks must run strictly one at a time")
}

func TestRunner_EventsCarryOutcome(t *testing.T) {
	errPost := errors.New("post boom")
	var mu sync.Mutex
	var got []domain.HookEvent

	runner := runtime.NewRunner(
		runtime.WithName("Order"),
		runtime.WithEvents(domain.Events{
			OnHook: func(_ context.Context, ev domain.HookEvent) {
				mu.Lock()
				got = append(got, ev)
				mu.Unlock()
			},
		}),
	)

	chain := runtime.NewChain()
	chain.Register(domain.PhasePre, domain.OpSave, runtime.SyncHook(func(context.Context, any) error {
		time.Sleep(5 * time.Millisecond)
		return nil
	}))
	chain.Register(domain.PhasePost, domain.OpSave, runtime.SyncHook(func(context.Context, any) error {
		return errPost
	}))

	err := runner.Run(context.Background(), chain, domain.OpSave, &trace{}, nil)
	require.Error(t, err)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, got, 2)

	assert.Equal(t, "Order", got[0].Model)
	assert.Equal(t, domain.OpSave, got[0].Op)
	assert.Equal(t, domain.PhasePre, got[0].Phase)
	assert.Equal(t, domain.KindSync, got[0].Kind)
	assert.Equal(t, 0, got[0].Index)
	assert.NoError(t, got[0].Err)
	assert.False(t, got[0].Swallowed)
	assert.Greater(t, got[0].Duration, time.Duration(0))

	assert.Equal(t, domain.PhasePost, got[1].Phase)
	assert.ErrorIs(t, got[1].Err, errPost)
}

func TestRunner_ConcurrentRuns(t *testing.T) {
	chain := runtime.NewChain()
	chain.Register(domain.PhasePre, domain.OpSave, step("pre"))
	chain.Register(domain.PhasePost, domain.OpSave, step("post"))
	runner := runtime.NewRunner()

	var wg sync.WaitGroup
	docs := make([]*trace, 16)
	for i := range docs {
		docs[i] = &trace{}
		wg.Add(1)
		go func(doc *trace) {
			defer wg.Done()
			if err := runner.Run(context.Background(), chain, domain.OpSave, doc, nil); err != nil {
				t.Errorf("Run failed: %v", err)
			}
		}(docs[i])
	}
	wg.Wait()

	for _, doc := range docs {
		assert.Equal(t, []string{"pre", "post"}, doc.steps)
	}
}

func TestChain_RegistrationOrder(t *testing.T) {
	chain := runtime.NewChain()
	assert.Zero(t, chain.Len(domain.PhasePre, domain.OpSave))

	chain.Register(domain.PhasePre, domain.OpSave, step("a"))
	chain.Register(domain.PhasePre, domain.OpSave, step("b"))
	chain.Register(domain.PhasePost, domain.OpSave, step("c"))

	assert.Equal(t, 2, chain.Len(domain.PhasePre, domain.OpSave))
	assert.Equal(t, 1, chain.Len(domain.PhasePost, domain.OpSave))
	assert.Len(t, chain.Hooks(domain.PhasePre, domain.OpSave), 2)
	assert.Equal(t, domain.KindSync, chain.Hooks(domain.PhasePre, domain.OpSave)[0].Kind())
}

// waitForSwallowed drains the event stream until a swallowed failure shows
// up. Late failures surface from the hook's own goroutine, so this may
// arrive after Run has returned.
func waitForSwallowed(t *testing.T, events <-chan domain.HookEvent) domain.HookEvent {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev := <-events:
			if ev.Swallowed {
				return ev
			}
		case <-deadline:
			t.Fatal("no swallowed hook event arrived")
		}
	}
}
