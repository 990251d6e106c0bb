package testutils

import "sync"

// Recorder captures the order in which lifecycle hooks fire during a test.
// It is safe for use from hooks that complete on their own goroutines.
type Recorder struct {
	mu    sync.Mutex
	steps []string
}

// Mark appends a step name.
func (r *Recorder) Mark(step string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.steps = append(r.steps, step)
}

// Steps returns a copy of everything recorded so far.
func (r *Recorder) Steps() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.steps))
	copy(out, r.steps)
	return out
}

// Count reports how many times step was recorded.
func (r *Recorder) Count(step string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, s := range r.steps {
		if s == step {
			n++
		}
	}
	return n
}
