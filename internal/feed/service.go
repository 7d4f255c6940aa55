package feed

import (
	"context"
	"sync/atomic"

	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"

	"main/internal/bus"
	"main/internal/model"
	"main/internal/service"
)

// Source delivers observations by subscription. Implemented by BinancePub
// (live) and Synthetic (simulated).
type Source interface {
	Start(ctx context.Context) error
	Observe(ctx context.Context, handler func(model.Observation)) (unsubscribe func())
	Close()
}

// Service adapts a market data source onto the bus.
type Service struct {
	source Source
	bus    *bus.Bus

	running     atomic.Bool
	unsubscribe func()
}

// NewService wires a source to the bus.
func NewService(source Source, b *bus.Bus) *Service {
	return &Service{source: source, bus: b}
}

// Start opens the source and begins publishing market updates.
func (s *Service) Start(ctx context.Context) error {
	if s.running.Swap(true) {
		return nil
	}
	if err := s.source.Start(ctx); err != nil {
		s.running.Store(false)
		return errors.Wrap(err, "start source")
	}

	s.unsubscribe = s.source.Observe(ctx, func(o model.Observation) {
		if err := s.bus.Publish(bus.Envelope{Topic: bus.TopicMarketUpdate, Payload: o}); err != nil {
			logs.Warnf("market update dropped, symbol: %s, err: %+v", o.Symbol, err)
		}
	})

	logs.Info("market feed started")
	return nil
}

// Stop unsubscribes and closes the source.
func (s *Service) Stop(context.Context) error {
	if !s.running.Swap(false) {
		return nil
	}
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
	s.source.Close()
	logs.Info("market feed stopped")
	return nil
}

// Health reports the feed status.
func (s *Service) Health() service.Health {
	return service.Health{Name: "feed", Running: s.running.Load()}
}
