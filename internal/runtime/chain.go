package runtime

import "github.com/aretw0/graft/pkg/domain"

type phaseKey struct {
	phase domain.Phase
	op    domain.Operation
}

// Chain holds the ordered hooks of one schema, keyed by phase and operation.
// Registration order is preserved and duplicates are kept: registering the
// same callback twice makes it run twice.
type Chain struct {
	hooks map[phaseKey][]Hook
}

// NewChain returns an empty chain.
func NewChain() *Chain {
	return &Chain{hooks: make(map[phaseKey][]Hook)}
}

// Register appends h to the hooks of the given phase and operation.
func (c *Chain) Register(phase domain.Phase, op domain.Operation, h Hook) {
	key := phaseKey{phase: phase, op: op}
	c.hooks[key] = append(c.hooks[key], h)
}

// Hooks returns the registered hooks for one phase of one operation, in
// registration order. The returned slice is the chain's own backing array
// and must not be mutated.
func (c *Chain) Hooks(phase domain.Phase, op domain.Operation) []Hook {
	return c.hooks[phaseKey{phase: phase, op: op}]
}

// Len reports how many hooks are registered for one phase of one operation.
func (c *Chain) Len(phase domain.Phase, op domain.Operation) int {
	return len(c.hooks[phaseKey{phase: phase, op: op}])
}
