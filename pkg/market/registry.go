package market

import (
	"fmt"
	"sync"
)

// Registry manages all tradeable markets in a thread-safe manner.
// Supports registration, lookup, and status updates.
type Registry struct {
	mu      sync.RWMutex
	markets map[Instrument]*Market
}

// NewRegistry creates an empty market registry
func NewRegistry() *Registry {
	return &Registry{
		markets: make(map[Instrument]*Market),
	}
}

// Register adds a new market to the registry.
// Returns error if a market for the same instrument already exists.
func (r *Registry) Register(m *Market) error {
	if m == nil {
		return fmt.Errorf("cannot register nil market")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.markets[m.Instrument]; exists {
		return fmt.Errorf("market %s already registered", m.Instrument)
	}

	r.markets[m.Instrument] = m
	return nil
}

// Get retrieves a market by instrument.
func (r *Registry) Get(in Instrument) (*Market, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, exists := r.markets[in]
	if !exists {
		return nil, fmt.Errorf("market %s not found", in)
	}
	return m, nil
}

// List returns all registered markets.
func (r *Registry) List() []*Market {
	r.mu.RLock()
	defer r.mu.RUnlock()

	markets := make([]*Market, 0, len(r.markets))
	for _, m := range r.markets {
		markets = append(markets, m)
	}
	return markets
}

// ListActive returns only markets currently open for trading.
func (r *Registry) ListActive() []*Market {
	r.mu.RLock()
	defer r.mu.RUnlock()

	markets := make([]*Market, 0)
	for _, m := range r.markets {
		if m.Status == Active {
			markets = append(markets, m)
		}
	}
	return markets
}

// UpdateStatus changes the trading status of a market.
// Used for emergency pausing and event settlement.
func (r *Registry) UpdateStatus(in Instrument, status Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, exists := r.markets[in]
	if !exists {
		return fmt.Errorf("market %s not found", in)
	}

	// Settled is terminal
	if m.Status == Settled {
		return fmt.Errorf("cannot change status of settled market %s", in)
	}

	m.Status = status
	return nil
}

// Exists checks if a market is registered
func (r *Registry) Exists(in Instrument) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.markets[in]
	return exists
}

// Count returns the total number of registered markets
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.markets)
}
