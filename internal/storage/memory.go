package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"main/internal/model"
)

// Memory is the in-process Repository used in simulated mode and tests.
type Memory struct {
	mu      sync.Mutex
	orders  map[string]model.Order
	trades  []model.Trade
	metrics []model.RiskState
	limits  *model.RiskLimits
	configs map[string]model.SourceConfig
}

// NewMemory creates an empty repository.
func NewMemory() *Memory {
	return &Memory{
		orders:  make(map[string]model.Order),
		configs: make(map[string]model.SourceConfig),
	}
}

// SaveOrder implements Repository.
func (m *Memory) SaveOrder(_ context.Context, order model.Order) error {
	m.mu.Lock()
	m.orders[order.ID] = order
	m.mu.Unlock()
	return nil
}

// SaveTrade implements Repository.
func (m *Memory) SaveTrade(_ context.Context, trade model.Trade) error {
	m.mu.Lock()
	m.trades = append(m.trades, trade)
	m.mu.Unlock()
	return nil
}

// DailyRealizedPnL implements Repository.
func (m *Memory) DailyRealizedPnL(_ context.Context, day time.Time) (float64, error) {
	start := day.UTC().Truncate(24 * time.Hour)
	end := start.Add(24 * time.Hour)

	m.mu.Lock()
	defer m.mu.Unlock()

	var total float64
	for _, t := range m.trades {
		if !t.Timestamp.Before(start) && t.Timestamp.Before(end) {
			total += t.RealizedPnL
		}
	}
	return total, nil
}

// SaveRiskMetric implements Repository.
func (m *Memory) SaveRiskMetric(_ context.Context, state model.RiskState) error {
	m.mu.Lock()
	m.metrics = append(m.metrics, state)
	m.mu.Unlock()
	return nil
}

// SaveRiskLimits implements Repository.
func (m *Memory) SaveRiskLimits(_ context.Context, limits model.RiskLimits) error {
	m.mu.Lock()
	m.limits = &limits
	m.mu.Unlock()
	return nil
}

// ListSourceConfigs implements Repository.
func (m *Memory) ListSourceConfigs(context.Context) ([]model.SourceConfig, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]model.SourceConfig, 0, len(m.configs))
	for _, cfg := range m.configs {
		out = append(out, cfg)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// SaveSourceConfig implements Repository.
func (m *Memory) SaveSourceConfig(_ context.Context, cfg model.SourceConfig) error {
	m.mu.Lock()
	m.configs[cfg.ID] = cfg
	m.mu.Unlock()
	return nil
}

// Orders returns a copy of every persisted order.
func (m *Memory) Orders() []model.Order {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]model.Order, 0, len(m.orders))
	for _, o := range m.orders {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Trades returns a copy of the fill history.
func (m *Memory) Trades() []model.Trade {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.Trade(nil), m.trades...)
}

// Limits returns the persisted limits, if any.
func (m *Memory) Limits() (model.RiskLimits, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.limits == nil {
		return model.RiskLimits{}, false
	}
	return *m.limits, true
}
