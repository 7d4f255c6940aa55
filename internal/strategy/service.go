package strategy

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"

	"main/internal/bus"
	"main/internal/feed"
	"main/internal/model"
	"main/internal/sched"
	"main/internal/service"
)

// ServiceConfig tunes the aggregation cycle.
type ServiceConfig struct {
	Interval time.Duration // aggregation cadence
}

func (c ServiceConfig) withDefaults() ServiceConfig {
	if c.Interval <= 0 {
		c.Interval = 30 * time.Second
	}
	return c
}

// Service runs signal generation and aggregation. It owns the observation
// windows and the per-instrument decisions; both are touched only from its
// market-update handler and its cycle task.
type Service struct {
	cfg     ServiceConfig
	sources []Source
	configs *ConfigStore
	windows *feed.Windows
	bus     *bus.Bus

	task      *sched.Task
	marketSub *bus.Subscription
	cmdSub    *bus.Subscription
	cancel    context.CancelFunc

	running atomic.Bool
	paused  atomic.Bool

	mu        sync.Mutex
	decisions map[string]model.AggregatedDecision
}

// NewService builds the aggregation component.
func NewService(cfg ServiceConfig, sources []Source, configs *ConfigStore, b *bus.Bus) *Service {
	return &Service{
		cfg:       cfg.withDefaults(),
		sources:   sources,
		configs:   configs,
		windows:   feed.NewWindows(feed.DefaultWindowCap),
		bus:       b,
		decisions: make(map[string]model.AggregatedDecision),
	}
}

// Start subscribes to market updates and launches the cycle task.
func (s *Service) Start(ctx context.Context) error {
	if s.running.Swap(true) {
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.marketSub = s.bus.Subscribe(bus.TopicMarketUpdate)
	go s.marketSub.Run(ctx, func(e bus.Envelope) {
		if obs, ok := e.Payload.(model.Observation); ok {
			s.windows.Push(obs)
		}
	})

	s.cmdSub = s.bus.Subscribe(bus.TopicCommand)
	go s.cmdSub.Run(ctx, s.handleCommand)

	s.task = sched.NewTask("aggregation", s.cfg.Interval, s.cycle)
	if err := s.task.Start(ctx); err != nil {
		s.running.Store(false)
		cancel()
		return errors.Wrap(err, "start aggregation task")
	}
	return nil
}

// Stop halts the cycle task and the subscriptions.
func (s *Service) Stop(context.Context) error {
	if !s.running.Swap(false) {
		return nil
	}
	s.task.Stop()
	s.marketSub.Cancel()
	s.cmdSub.Cancel()
	s.cancel()
	return nil
}

// Health reports the component status.
func (s *Service) Health() service.Health {
	detail := ""
	if s.paused.Load() {
		detail = "paused"
	}
	return service.Health{Name: "strategy", Running: s.running.Load(), Detail: detail}
}

// Decision returns the latest decision for an instrument, resolved or not.
func (s *Service) Decision(symbol string) (model.AggregatedDecision, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.decisions[symbol]
	return d, ok
}

func (s *Service) handleCommand(e bus.Envelope) {
	cmd, ok := e.Payload.(bus.Command)
	if !ok {
		return
	}
	switch cmd {
	case bus.CommandPauseTrading:
		s.paused.Store(true)
	case bus.CommandStartTrading:
		s.paused.Store(false)
	case bus.CommandStopTrading, bus.CommandEmergencyStop:
		s.paused.Store(true)
	case bus.CommandConfigUpdate:
		// configs are read through ConfigStore every cycle; nothing cached here
	}
}

// cycle evaluates every source per instrument and publishes resolved
// decisions above the broadcast threshold.
func (s *Service) cycle(context.Context) {
	if s.paused.Load() {
		return
	}

	configs := s.configs.All()
	now := time.Now().UTC()

	for _, symbol := range s.windows.Symbols() {
		window := s.windows.Snapshot(symbol)
		signals := s.collect(symbol, window, configs)

		decision := Aggregate(symbol, signals, configs, now)
		s.mu.Lock()
		s.decisions[symbol] = decision
		s.mu.Unlock()

		if decision.Resolved != nil && decision.Confidence > BroadcastThreshold {
			if err := s.bus.Publish(bus.Envelope{Topic: bus.TopicTradingSignal, Payload: *decision.Resolved}); err != nil {
				logs.Warnf("trading signal dropped, symbol: %s, err: %+v", symbol, err)
			}
		}
	}
}

// collect runs enabled instrument-matching sources, isolating each
// source's failure to itself.
func (s *Service) collect(symbol string, window []model.Observation, configs []model.SourceConfig) []model.Signal {
	byID := make(map[string]model.SourceConfig, len(configs))
	for _, cfg := range configs {
		byID[cfg.ID] = cfg
	}

	var out []model.Signal
	for _, src := range s.sources {
		cfg, ok := byID[src.ID()]
		if !ok || !cfg.Enabled || !cfg.Matches(symbol) {
			continue
		}

		signals, err := evaluate(src, cfg, window)
		if err != nil {
			logs.Errorf("source %s failed, symbol: %s, err: %+v", src.ID(), symbol, err)
			continue
		}
		for _, sig := range signals {
			if !sig.WellFormed() {
				logs.Warnf("source %s produced malformed signal, symbol: %s", src.ID(), symbol)
				continue
			}
			out = append(out, sig)
		}
	}
	return out
}

// evaluate shields the cycle from a panicking source.
func evaluate(src Source, cfg model.SourceConfig, window []model.Observation) (signals []model.Signal, err error) {
	defer func() {
		if r := recover(); r != nil {
			signals = nil
			err = errors.Errorf("source panic: %+v", r)
		}
	}()
	return src.Evaluate(cfg, window)
}
