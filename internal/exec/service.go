package exec

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"

	"main/internal/bus"
	"main/internal/model"
	"main/internal/model/enum"
	"main/internal/notify"
	"main/internal/sched"
	"main/internal/service"
	"main/pkg/exception"
)

// OrderStore is the durable side of execution: orders on creation and on
// every status change, trades on fill.
type OrderStore interface {
	SaveOrder(ctx context.Context, order model.Order) error
	SaveTrade(ctx context.Context, trade model.Trade) error
}

// ServiceConfig tunes the execution component.
type ServiceConfig struct {
	Simulated       bool
	MonitorInterval time.Duration // pending-order poll cadence
	SizingTimeout   time.Duration // bound on the sizing request/reply
	OrderTimeout    time.Duration // age after which a live order counts as stuck
	MaxRetries      int
}

func (c ServiceConfig) withDefaults() ServiceConfig {
	if c.MonitorInterval <= 0 {
		c.MonitorInterval = 5 * time.Second
	}
	if c.SizingTimeout <= 0 {
		c.SizingTimeout = 10 * time.Second
	}
	if c.OrderTimeout <= 0 {
		c.OrderTimeout = 30 * time.Second
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	return c
}

// Service turns resolved signals into sized orders and monitors them to a
// terminal status. It owns the pending-orders map and the price book;
// both are touched only from its handlers and its monitor task.
type Service struct {
	cfg      ServiceConfig
	exchange Exchange
	tracker  *Tracker
	prices   *PriceBook
	store    OrderStore
	bus      *bus.Bus
	notifier notify.Notifier

	task      *sched.Task
	signalSub *bus.Subscription
	closeSub  *bus.Subscription
	cmdSub    *bus.Subscription
	marketSub *bus.Subscription
	cancel    context.CancelFunc

	running atomic.Bool
	halted  atomic.Bool
	seq     atomic.Uint64
}

// NewService builds the execution component. The price book may be shared
// with the simulator so both see the same reference prices.
func NewService(cfg ServiceConfig, exchange Exchange, store OrderStore, b *bus.Bus, notifier notify.Notifier, prices *PriceBook) *Service {
	if notifier == nil {
		notifier = notify.Log{}
	}
	if prices == nil {
		prices = NewPriceBook()
	}
	return &Service{
		cfg:      cfg.withDefaults(),
		exchange: exchange,
		tracker:  NewTracker(),
		prices:   prices,
		store:    store,
		bus:      b,
		notifier: notifier,
	}
}

// Start subscribes to signals, commands and market updates, and launches
// the monitor task.
func (s *Service) Start(ctx context.Context) error {
	if s.running.Swap(true) {
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.marketSub = s.bus.Subscribe(bus.TopicMarketUpdate)
	go s.marketSub.Run(ctx, func(e bus.Envelope) {
		if obs, ok := e.Payload.(model.Observation); ok {
			s.prices.Set(obs.Symbol, obs.Price)
		}
	})

	s.signalSub = s.bus.Subscribe(bus.TopicTradingSignal)
	go s.signalSub.Run(ctx, func(e bus.Envelope) {
		if signal, ok := e.Payload.(model.Signal); ok {
			s.handleSignal(ctx, signal)
		}
	})

	s.closeSub = s.bus.Subscribe(bus.TopicCloseAll)
	go s.closeSub.Run(ctx, func(bus.Envelope) {
		if err := s.CloseAll(ctx); err != nil {
			logs.Errorf("close all positions, err: %+v", err)
		}
	})

	s.cmdSub = s.bus.Subscribe(bus.TopicCommand)
	go s.cmdSub.Run(ctx, func(e bus.Envelope) { s.handleCommand(ctx, e) })

	s.task = sched.NewTask("order-monitor", s.cfg.MonitorInterval, s.monitor)
	if err := s.task.Start(ctx); err != nil {
		s.running.Store(false)
		cancel()
		return errors.Wrap(err, "start monitor task")
	}
	return nil
}

// Stop cancels in-flight tracked orders and halts the monitor.
func (s *Service) Stop(ctx context.Context) error {
	if !s.running.Swap(false) {
		return nil
	}
	s.halted.Store(true)

	s.drainTracked(ctx)
	s.task.Stop()
	s.signalSub.Cancel()
	s.closeSub.Cancel()
	s.cmdSub.Cancel()
	s.marketSub.Cancel()
	s.cancel()
	return nil
}

// Health reports the component status.
func (s *Service) Health() service.Health {
	detail := fmt.Sprintf("tracking %d", s.tracker.Len())
	if s.halted.Load() {
		detail = "halted"
	}
	return service.Health{Name: "exec", Running: s.running.Load(), Detail: detail}
}

// Pending reports how many orders the monitor is tracking.
func (s *Service) Pending() int {
	return s.tracker.Len()
}

func (s *Service) handleCommand(ctx context.Context, e bus.Envelope) {
	cmd, ok := e.Payload.(bus.Command)
	if !ok {
		return
	}
	switch cmd {
	case bus.CommandStartTrading:
		s.halted.Store(false)
	case bus.CommandStopTrading, bus.CommandPauseTrading:
		s.halted.Store(true)
	case bus.CommandEmergencyStop:
		s.EmergencyStop(ctx)
	}
}

// handleSignal runs the execution flow for one resolved signal: size it
// through the risk component, then place a market order if admitted.
// Every failure aborts only this trade.
func (s *Service) handleSignal(ctx context.Context, signal model.Signal) {
	if s.halted.Load() {
		return
	}

	// close intents flatten the existing position; there is nothing to size
	if signal.Action == enum.ActionClose {
		if err := s.closeSymbol(ctx, signal.Symbol); err != nil {
			logs.Errorf("close position, symbol: %s, err: %+v", signal.Symbol, err)
		}
		return
	}

	price, ok := s.prices.Lookup(signal.Symbol)
	if !ok {
		logs.Warnf("no reference price, symbol: %s", signal.Symbol)
		return
	}

	reqCtx, cancel := context.WithTimeout(ctx, s.cfg.SizingTimeout)
	reply, err := s.bus.Request(reqCtx, bus.TopicSizeRequest, bus.SizeRequest{Signal: signal, CurrentPrice: price})
	cancel()
	if err != nil {
		// no sizing available this cycle, not an outage
		logs.Warnf("sizing unavailable, symbol: %s, err: %+v", signal.Symbol, err)
		return
	}

	sized, ok := reply.(bus.SizeReply)
	if !ok {
		return
	}
	if sized.Err != "" {
		logs.Infof("trade rejected, symbol: %s, reason: %s", signal.Symbol, sized.Err)
		return
	}

	if err := s.exchange.SetLeverage(ctx, signal.Symbol, sized.Proposal.Leverage); err != nil {
		logs.Errorf("set leverage, symbol: %s, err: %+v", signal.Symbol, err)
		return
	}

	prePositions, err := s.exchange.Positions(ctx)
	if err != nil {
		logs.Warnf("positions unavailable before fill, symbol: %s, err: %+v", signal.Symbol, err)
	}

	order := model.Order{
		ID:        s.nextOrderID(),
		Symbol:    signal.Symbol,
		Side:      sideOf(signal.Action),
		Type:      enum.OrderTypeMarket,
		Quantity:  sized.Proposal.Quantity,
		Status:    enum.OrderStatusNew,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}

	placed, err := s.exchange.CreateOrder(ctx, order)
	if err != nil {
		logs.Errorf("create order, symbol: %s, err: %+v", signal.Symbol, errors.Wrap(exception.ErrOrderCreateFailed, err.Error()))
		return
	}
	s.persistAndPublish(ctx, placed)

	if placed.Status.Terminal() {
		if placed.Status == enum.OrderStatusFilled {
			s.recordTrade(ctx, placed, prePositions)
		}
		return
	}

	entry := Tracked{
		Order:     placed,
		Status:    enum.TrackStatusExecuting,
		Simulated: s.cfg.Simulated,
	}
	if err := s.tracker.Add(entry); err != nil {
		logs.Warnf("track order, id: %s, err: %+v", placed.ID, err)
	}
}

// monitor polls every tracked order. Failures on one order never touch
// the others.
func (s *Service) monitor(ctx context.Context) {
	now := time.Now().UTC()

	for _, entry := range s.tracker.Snapshot() {
		// simulated fills are synchronous; nothing left to watch
		if entry.Simulated {
			s.tracker.Finish(entry.Order.ID, trackOutcome(entry.Order.Status))
			continue
		}

		current, found, err := s.exchange.GetOrder(ctx, entry.Order.ID)
		if err != nil {
			logs.Warnf("poll order, id: %s, err: %+v", entry.Order.ID, err)
			continue
		}

		if found && current.Status != entry.Order.Status {
			s.tracker.Update(entry.Order.ID, func(t *Tracked) { t.Order = current })
			s.persistAndPublish(ctx, current)
			entry.Order = current
		}

		if entry.Order.Status.Terminal() {
			if entry.Order.Status == enum.OrderStatusFilled {
				s.recordTrade(ctx, entry.Order, nil)
			}
			s.tracker.Finish(entry.Order.ID, trackOutcome(entry.Order.Status))
			continue
		}

		if now.Sub(entry.LastAttempt) < s.cfg.OrderTimeout {
			continue
		}

		if entry.Attempts < s.cfg.MaxRetries {
			s.tracker.Update(entry.Order.ID, func(t *Tracked) {
				t.Attempts++
				t.LastAttempt = now
			})
			logs.Warnf("order stuck, id: %s, attempt: %d", entry.Order.ID, entry.Attempts+1)
			continue
		}

		// retry cap exceeded: cancel, report failed, stop tracking
		if err := s.exchange.CancelOrder(ctx, entry.Order.ID); err != nil {
			logs.Errorf("cancel stuck order, id: %s, err: %+v", entry.Order.ID, errors.Wrap(exception.ErrOrderRetriesExceeded, err.Error()))
		}
		entry.Order.Status = enum.OrderStatusCanceled
		entry.Order.UpdatedAt = now
		s.persistAndPublish(ctx, entry.Order)
		s.tracker.Finish(entry.Order.ID, enum.TrackStatusFailed)

		if err := s.notifier.Notify(ctx, "order failed", fmt.Sprintf("order %s exceeded %d retries and was cancelled", entry.Order.ID, s.cfg.MaxRetries)); err != nil {
			logs.Warnf("order failure notice, err: %+v", err)
		}
	}
}

// CloseAll synthesizes an opposing market order for every open position.
// Overall success requires every individual closure to succeed.
func (s *Service) CloseAll(ctx context.Context) error {
	positions, err := s.exchange.Positions(ctx)
	if err != nil {
		return errors.Wrap(exception.ErrAPIUnavailable, err.Error())
	}

	var failed []string
	for _, pos := range positions {
		if err := s.closePosition(ctx, pos, positions); err != nil {
			failed = append(failed, pos.Symbol)
			logs.Errorf("close position, symbol: %s, err: %+v", pos.Symbol, err)
		}
	}

	if len(failed) > 0 {
		return errors.Errorf("close all: %d of %d closures failed: %v", len(failed), len(positions), failed)
	}
	return nil
}

// closeSymbol flattens the open position for one instrument. A close
// intent with nothing open is a no-op.
func (s *Service) closeSymbol(ctx context.Context, symbol string) error {
	positions, err := s.exchange.Positions(ctx)
	if err != nil {
		return errors.Wrap(exception.ErrAPIUnavailable, err.Error())
	}
	for _, pos := range positions {
		if pos.Symbol == symbol {
			return s.closePosition(ctx, pos, positions)
		}
	}
	logs.Infof("close signal with no open position, symbol: %s", symbol)
	return nil
}

// closePosition submits the opposing market order for one open position,
// sized to its full size.
func (s *Service) closePosition(ctx context.Context, pos model.Position, prePositions []model.Position) error {
	side := enum.OrderSideSell
	if pos.Side == enum.PositionSideShort {
		side = enum.OrderSideBuy
	}

	order := model.Order{
		ID:        s.nextOrderID(),
		Symbol:    pos.Symbol,
		Side:      side,
		Type:      enum.OrderTypeMarket,
		Quantity:  pos.Size,
		Status:    enum.OrderStatusNew,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}

	placed, err := s.exchange.CreateOrder(ctx, order)
	if err != nil {
		return err
	}
	s.persistAndPublish(ctx, placed)
	if placed.Status == enum.OrderStatusFilled {
		s.recordTrade(ctx, placed, prePositions)
	}
	return nil
}

// EmergencyStop cancels every tracked order, attempts close-all and halts
// the monitor. All three steps run even when an earlier one fails.
func (s *Service) EmergencyStop(ctx context.Context) {
	s.halted.Store(true)

	s.drainTracked(ctx)

	if err := s.CloseAll(ctx); err != nil {
		logs.Errorf("emergency close all, err: %+v", err)
	}

	if s.task != nil {
		s.task.Stop()
	}

	if err := s.notifier.Notify(ctx, "emergency stop", "all orders cancelled, positions closed, monitoring halted"); err != nil {
		logs.Warnf("emergency stop notice, err: %+v", err)
	}
}

// drainTracked cancels everything in the pending-orders map, leaving it
// empty. Per-order failures are reported and skipped.
func (s *Service) drainTracked(ctx context.Context) {
	for _, entry := range s.tracker.Snapshot() {
		if !entry.Simulated && !entry.Order.Status.Terminal() {
			if err := s.exchange.CancelOrder(ctx, entry.Order.ID); err != nil {
				logs.Errorf("drain cancel, id: %s, err: %+v", entry.Order.ID, err)
			} else {
				entry.Order.Status = enum.OrderStatusCanceled
				entry.Order.UpdatedAt = time.Now().UTC()
				s.persistAndPublish(ctx, entry.Order)
			}
		}
		s.tracker.Finish(entry.Order.ID, enum.TrackStatusCancelled)
	}
}

// persistAndPublish saves the order and emits an update event. Neither
// failure aborts the execution flow.
func (s *Service) persistAndPublish(ctx context.Context, order model.Order) {
	if err := s.store.SaveOrder(ctx, order); err != nil {
		logs.Errorf("persist order, id: %s, err: %+v", order.ID, err)
	}
	if err := s.bus.Publish(bus.Envelope{Topic: bus.TopicOrderUpdate, Payload: bus.OrderUpdate{Order: order}}); err != nil {
		logs.Warnf("order update dropped, id: %s, err: %+v", order.ID, err)
	}
}

// recordTrade persists the fill with the fee the venue reported on it.
// Realized PnL is the closed portion of the pre-trade position, if the
// fill reduced one.
func (s *Service) recordTrade(ctx context.Context, order model.Order, prePositions []model.Position) {
	trade := model.Trade{
		ID:          order.ID + "-fill",
		OrderID:     order.ID,
		Symbol:      order.Symbol,
		Side:        order.Side,
		Quantity:    order.ExecutedQty,
		Price:       order.AvgFillPrice,
		Fee:         order.Fee,
		RealizedPnL: realizedPnL(order, prePositions),
		Timestamp:   order.UpdatedAt,
	}
	if err := s.store.SaveTrade(ctx, trade); err != nil {
		logs.Errorf("persist trade, order: %s, err: %+v", order.ID, err)
	}
}

func (s *Service) nextOrderID() string {
	return fmt.Sprintf("ord-%d-%d", time.Now().UTC().UnixMilli(), s.seq.Add(1))
}

// realizedPnL computes the PnL of whatever part of a pre-existing
// opposite-side position this fill closed. Opening fills realize nothing.
func realizedPnL(order model.Order, prePositions []model.Position) float64 {
	for _, pos := range prePositions {
		if pos.Symbol != order.Symbol {
			continue
		}
		closing := (pos.Side == enum.PositionSideLong && order.Side == enum.OrderSideSell) ||
			(pos.Side == enum.PositionSideShort && order.Side == enum.OrderSideBuy)
		if !closing {
			return 0
		}

		closed := order.ExecutedQty
		if pos.Size < closed {
			closed = pos.Size
		}
		if pos.Side == enum.PositionSideLong {
			return (order.AvgFillPrice - pos.EntryPrice) * closed
		}
		return (pos.EntryPrice - order.AvgFillPrice) * closed
	}
	return 0
}

func sideOf(action enum.Action) enum.OrderSide {
	if action == enum.ActionSell {
		return enum.OrderSideSell
	}
	return enum.OrderSideBuy
}
