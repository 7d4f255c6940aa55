package exec

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"main/internal/model"
	"main/internal/model/enum"
	"main/pkg/exception"
)

// Taker fee charged by the simulated book: 0.04% of notional.
const simTakerFeeRate = 0.0004

// Base slippage in % before the size-dependent term.
const simBaseSlippagePct = 0.05

// Simulator is an in-memory exchange. Market orders fill synchronously
// with size-dependent slippage; there are no partial fills. Positions are
// reconstructed by replaying filled orders chronologically.
type Simulator struct {
	mu       sync.Mutex
	price    func(symbol string) (float64, bool)
	cash     float64
	filled   []model.Order
	byID     map[string]model.Order
	leverage map[string]float64
	seq      uint64
}

// NewSimulator creates a book with the given starting cash balance.
func NewSimulator(initialBalance float64, price func(symbol string) (float64, bool)) *Simulator {
	return &Simulator{
		price:    price,
		cash:     initialBalance,
		byID:     make(map[string]model.Order),
		leverage: make(map[string]float64),
	}
}

// slippagePct models larger orders moving the price more. Below $10,000
// notional the log term goes negative and is discarded, so the base is
// the floor.
func slippagePct(notional float64) float64 {
	if notional <= 0 {
		return 0
	}
	return simBaseSlippagePct + math.Max(0, math.Log(notional/10_000)*0.01)
}

// Balance implements Exchange. Equity is the cash ledger plus the
// mark-to-market value of the signed net position per instrument.
func (s *Simulator) Balance(context.Context) (total, available float64, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	total = s.cash
	for symbol, size := range s.netSizes() {
		if mark, ok := s.price(symbol); ok {
			total += size * mark
		}
	}
	return total, s.cash, nil
}

// Positions implements Exchange by replaying filled orders.
func (s *Simulator) Positions(context.Context) ([]model.Position, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.replayPositions(), nil
}

// SetLeverage implements Exchange.
func (s *Simulator) SetLeverage(_ context.Context, symbol string, leverage float64) error {
	if leverage < 1 {
		return exception.ErrInvalidArgument
	}
	s.mu.Lock()
	s.leverage[symbol] = leverage
	s.mu.Unlock()
	return nil
}

// CreateOrder implements Exchange. Market orders pay slippage in the
// adverse direction; limit orders fill at their limit price. Both pay the
// taker fee and fill completely.
func (s *Simulator) CreateOrder(_ context.Context, order model.Order) (model.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if order.Symbol == "" || order.Quantity <= 0 {
		return model.Order{}, exception.ErrValidation
	}

	reference, ok := s.price(order.Symbol)
	if !ok {
		return model.Order{}, exception.ErrOrderNoReferencePx
	}

	executed := reference
	switch order.Type {
	case enum.OrderTypeMarket:
		slip := slippagePct(order.Quantity*reference) / 100
		if order.Side == enum.OrderSideBuy {
			executed = reference * (1 + slip) // taker pays up
		} else {
			executed = reference * (1 - slip) // taker receives less
		}
	case enum.OrderTypeLimit:
		if order.Price != nil {
			executed = *order.Price
		}
	}

	notional := order.Quantity * executed
	fee := simTakerFeeRate * notional
	if order.Side == enum.OrderSideBuy {
		s.cash -= notional + fee
	} else {
		s.cash += notional - fee
	}

	now := time.Now().UTC()
	s.seq++
	order.ExternalID = fmt.Sprintf("sim-%d", s.seq)
	order.Status = enum.OrderStatusFilled
	order.ExecutedQty = order.Quantity
	order.AvgFillPrice = executed
	order.Fee = fee
	order.UpdatedAt = now
	if order.CreatedAt.IsZero() {
		order.CreatedAt = now
	}

	s.filled = append(s.filled, order)
	s.byID[order.ID] = order
	return order, nil
}

// CancelOrder implements Exchange. Simulated orders are always already
// filled, so there is never anything to cancel.
func (s *Simulator) CancelOrder(_ context.Context, orderID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[orderID]; !ok {
		return exception.ErrOrderUnknown
	}
	return exception.ErrOrderCancelFailed
}

// GetOrder implements Exchange.
func (s *Simulator) GetOrder(_ context.Context, orderID string) (model.Order, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	order, ok := s.byID[orderID]
	return order, ok, nil
}

// FundingRate implements Exchange. The simulated book charges no funding;
// rates exist only in the market feed.
func (s *Simulator) FundingRate(context.Context, string) (float64, error) {
	return 0, nil
}

// Cash returns the raw ledger balance.
func (s *Simulator) Cash() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cash
}

func (s *Simulator) netSizes() map[string]float64 {
	sizes := make(map[string]float64)
	for _, o := range s.filled {
		if o.Side == enum.OrderSideBuy {
			sizes[o.Symbol] += o.ExecutedQty
		} else {
			sizes[o.Symbol] -= o.ExecutedQty
		}
	}
	return sizes
}

// replayPositions rebuilds open positions from the chronological fill
// history. A buy increases signed size, a sell decreases it; while the
// size keeps its sign, entry is the running notional-weighted average.
// Positions at zero size are dropped.
func (s *Simulator) replayPositions() []model.Position {
	type book struct {
		size  float64
		entry float64
	}
	books := make(map[string]*book)
	var order []string

	for _, o := range s.filled {
		b, ok := books[o.Symbol]
		if !ok {
			b = &book{}
			books[o.Symbol] = b
			order = append(order, o.Symbol)
		}

		qty := o.ExecutedQty
		if o.Side == enum.OrderSideSell {
			qty = -qty
		}
		next := b.size + qty

		switch {
		case next == 0:
			b.entry = 0
		case b.size == 0 || (b.size > 0) != (next > 0):
			// opened or flipped through zero: the residual restarts at the
			// fill price
			b.entry = o.AvgFillPrice
		case math.Abs(next) > math.Abs(b.size):
			// scaled in: running notional-weighted average
			b.entry = (b.entry*math.Abs(b.size) + o.AvgFillPrice*math.Abs(qty)) / math.Abs(next)
		}
		b.size = next
	}

	var out []model.Position
	for _, symbol := range order {
		b := books[symbol]
		if b.size == 0 {
			continue
		}

		mark := b.entry
		if px, ok := s.price(symbol); ok {
			mark = px
		}

		lev := s.leverage[symbol]
		if lev < 1 {
			lev = 1
		}

		side := enum.PositionSideLong
		if b.size < 0 {
			side = enum.PositionSideShort
		}

		pos := model.Position{
			Symbol:        symbol,
			Side:          side,
			Size:          math.Abs(b.size),
			EntryPrice:    b.entry,
			MarkPrice:     mark,
			UnrealizedPnL: (mark - b.entry) * b.size,
			Leverage:      lev,
			MarginUsed:    math.Abs(b.size) * b.entry / lev,
		}
		if lev > 1 {
			liq := b.entry * (1 - 1/lev)
			if side == enum.PositionSideShort {
				liq = b.entry * (1 + 1/lev)
			}
			pos.LiquidationPrice = &liq
		}
		out = append(out, pos)
	}
	return out
}
