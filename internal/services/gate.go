package services

import "sync"

// Gate serialises currency reconciliation against ledger mutations.
// Transaction, budget and category writes share the gate; a reconciliation
// holds it exclusively so no mutation interleaves with a rescale.
type Gate struct {
	mu sync.RWMutex
}

func NewGate() *Gate {
	return &Gate{}
}

// Shared runs fn while no reconciliation is in progress.
func (g *Gate) Shared(fn func() error) error {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return fn()
}

// Exclusive runs fn with every other gated operation blocked.
func (g *Gate) Exclusive(fn func() error) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return fn()
}
