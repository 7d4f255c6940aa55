package exec

import "sync"

// PriceBook is the executor's view of the latest reference price per
// instrument, fed from market updates.
type PriceBook struct {
	mu sync.RWMutex
	m  map[string]float64
}

// NewPriceBook creates an empty book.
func NewPriceBook() *PriceBook {
	return &PriceBook{m: make(map[string]float64)}
}

// Set records the latest price.
func (p *PriceBook) Set(symbol string, price float64) {
	if price <= 0 {
		return
	}
	p.mu.Lock()
	p.m[symbol] = price
	p.mu.Unlock()
}

// Lookup returns the latest price for the instrument.
func (p *PriceBook) Lookup(symbol string) (float64, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	price, ok := p.m[symbol]
	return price, ok
}
