package risk

import (
	"context"
	"strings"
	"sync/atomic"
	"time"

	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"

	"main/internal/bus"
	"main/internal/model/enum"
	"main/internal/notify"
	"main/internal/sched"
	"main/internal/service"
)

// ServiceConfig tunes the snapshot cadence.
type ServiceConfig struct {
	SnapshotInterval time.Duration
}

func (c ServiceConfig) withDefaults() ServiceConfig {
	if c.SnapshotInterval <= 0 {
		c.SnapshotInterval = 30 * time.Second
	}
	return c
}

// Service runs the periodic snapshot and answers sizing requests from the
// execution flow over the bus.
type Service struct {
	cfg      ServiceConfig
	engine   *Engine
	bus      *bus.Bus
	notifier notify.Notifier

	task    *sched.Task
	sizeSub *bus.Subscription
	cmdSub  *bus.Subscription
	cancel  context.CancelFunc
	running atomic.Bool
}

// NewService builds the risk component.
func NewService(cfg ServiceConfig, engine *Engine, b *bus.Bus, notifier notify.Notifier) *Service {
	if notifier == nil {
		notifier = notify.Log{}
	}
	return &Service{
		cfg:      cfg.withDefaults(),
		engine:   engine,
		bus:      b,
		notifier: notifier,
	}
}

// Start launches the snapshot task and the sizing responder.
func (s *Service) Start(ctx context.Context) error {
	if s.running.Swap(true) {
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.sizeSub = s.bus.Subscribe(bus.TopicSizeRequest)
	go s.sizeSub.Run(ctx, s.handleSizeRequest)

	s.cmdSub = s.bus.Subscribe(bus.TopicCommand)
	go s.cmdSub.Run(ctx, func(bus.Envelope) {
		// commands do not alter risk accounting; the snapshot keeps running
		// even while trading is paused so the state stays fresh
	})

	s.task = sched.NewTask("risk-snapshot", s.cfg.SnapshotInterval, s.snapshot)
	if err := s.task.Start(ctx); err != nil {
		s.running.Store(false)
		cancel()
		return errors.Wrap(err, "start snapshot task")
	}

	// first snapshot up front so sizing does not fail closed for a full
	// interval after boot
	s.snapshot(ctx)
	return nil
}

// Stop halts the snapshot task and the responder.
func (s *Service) Stop(context.Context) error {
	if !s.running.Swap(false) {
		return nil
	}
	s.task.Stop()
	s.sizeSub.Cancel()
	s.cmdSub.Cancel()
	s.cancel()
	return nil
}

// Health reports the component status.
func (s *Service) Health() service.Health {
	detail := "no snapshot"
	if _, ok := s.engine.State(); ok {
		detail = ""
	}
	return service.Health{Name: "risk", Running: s.running.Load(), Detail: detail}
}

func (s *Service) snapshot(ctx context.Context) {
	state, alerts, err := s.engine.Snapshot(ctx)
	if err != nil {
		logs.Errorf("risk snapshot failed, err: %+v", err)
		return
	}

	if err := s.bus.Publish(bus.Envelope{
		Topic:   bus.TopicRiskUpdate,
		Payload: bus.RiskUpdate{State: state, Alerts: alerts},
	}); err != nil {
		logs.Warnf("risk update dropped, err: %+v", err)
	}

	for _, alert := range alerts {
		if err := s.notifier.Notify(ctx, "risk alert", alert); err != nil {
			logs.Warnf("risk alert delivery failed, err: %+v", err)
		}
	}
}

// handleSizeRequest answers one sizing request: size the signal, then run
// admission control on the proposal. A failure aborts only this trade.
func (s *Service) handleSizeRequest(e bus.Envelope) {
	req, ok := e.Payload.(bus.SizeRequest)
	if !ok {
		return
	}

	var reply bus.SizeReply
	proposal, err := s.engine.SizePosition(req.Signal, req.CurrentPrice)
	if err != nil {
		reply.Err = err.Error()
	} else {
		reply.Proposal = proposal
		reply.Assessment = s.engine.Validate(ValidationInput{
			Symbol:   req.Signal.Symbol,
			Side:     sideOf(req.Signal.Action),
			Quantity: proposal.Quantity,
			Leverage: proposal.Leverage,
			Price:    req.CurrentPrice,
		})
		if !reply.Assessment.IsAllowed {
			reply.Err = strings.Join(reply.Assessment.Reasons, "; ")
		}
	}

	if err := s.bus.Respond(e.CorrelationID, reply); err != nil {
		logs.Warnf("sizing reply dropped, corr: %d, err: %+v", e.CorrelationID, err)
	}
}

func sideOf(action enum.Action) enum.OrderSide {
	if action == enum.ActionSell {
		return enum.OrderSideSell
	}
	return enum.OrderSideBuy
}
