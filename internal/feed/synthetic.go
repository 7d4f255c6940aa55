package feed

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"time"

	"main/internal/model"
	"main/pkg/exception"
)

// SyntheticConfig controls the random-walk generator.
type SyntheticConfig struct {
	Symbols    []string
	BasePrice  float64
	BaseVolume float64
	StepPct    float64 // max per-tick move, % of price
	Interval   time.Duration
	Seed       int64
}

func (c SyntheticConfig) withDefaults() SyntheticConfig {
	if c.BasePrice <= 0 {
		c.BasePrice = 100
	}
	if c.BaseVolume <= 0 {
		c.BaseVolume = 1_000_000
	}
	if c.StepPct <= 0 {
		c.StepPct = 0.2
	}
	if c.Interval <= 0 {
		c.Interval = time.Second
	}
	return c
}

// Synthetic produces random-walk observations for simulated mode.
// Deterministic for a fixed seed.
type Synthetic struct {
	cfg    SyntheticConfig
	rng    *rand.Rand
	prices map[string]float64
	opens  map[string]float64

	mu       sync.Mutex
	handlers []func(model.Observation)
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewSynthetic creates a generator for the configured symbols.
func NewSynthetic(cfg SyntheticConfig) (*Synthetic, error) {
	cfg = cfg.withDefaults()
	if len(cfg.Symbols) == 0 {
		return nil, exception.ErrInvalidArgument
	}

	prices := make(map[string]float64, len(cfg.Symbols))
	opens := make(map[string]float64, len(cfg.Symbols))
	for i, s := range cfg.Symbols {
		p := cfg.BasePrice * (1 + 0.5*float64(i))
		prices[s] = p
		opens[s] = p
	}
	return &Synthetic{
		cfg:    cfg,
		rng:    rand.New(rand.NewSource(cfg.Seed)),
		prices: prices,
		opens:  opens,
	}, nil
}

// Start launches the tick loop.
func (s *Synthetic) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})

	go func() {
		defer close(s.done)
		ticker := time.NewTicker(s.cfg.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				for _, sym := range s.cfg.Symbols {
					s.emit(s.Next(sym, now))
				}
			}
		}
	}()
	return nil
}

// Observe registers a handler for generated observations.
func (s *Synthetic) Observe(_ context.Context, handler func(model.Observation)) (unsubscribe func()) {
	s.mu.Lock()
	s.handlers = append(s.handlers, handler)
	idx := len(s.handlers) - 1
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if idx < len(s.handlers) {
			s.handlers[idx] = nil
		}
	}
}

// Close stops the tick loop.
func (s *Synthetic) Close() {
	if s.cancel != nil {
		s.cancel()
		<-s.done
	}
}

// Next advances one symbol's walk and returns the observation.
func (s *Synthetic) Next(symbol string, now time.Time) model.Observation {
	price, ok := s.prices[symbol]
	if !ok {
		price = s.cfg.BasePrice
	}

	step := (s.rng.Float64()*2 - 1) * s.cfg.StepPct / 100
	price = math.Max(price*(1+step), 0.0001)
	s.prices[symbol] = price

	open := s.opens[symbol]
	return model.Observation{
		Symbol:       symbol,
		Price:        price,
		Volume24h:    s.cfg.BaseVolume * (0.5 + s.rng.Float64()),
		Change24hPct: (price - open) / open * 100,
		FundingRate:  (s.rng.Float64()*2 - 1) * 0.0005,
		Timestamp:    now,
	}
}

func (s *Synthetic) emit(o model.Observation) {
	s.mu.Lock()
	handlers := make([]func(model.Observation), 0, len(s.handlers))
	handlers = append(handlers, s.handlers...)
	s.mu.Unlock()

	for _, h := range handlers {
		if h != nil {
			h(o)
		}
	}
}
