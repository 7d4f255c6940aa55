package risk

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"

	"main/internal/model"
	"main/internal/model/enum"
	"main/pkg/exception"
)

// Fraction of total balance risked per trade, both for sizing and for the
// suggested stop distance.
const riskPerTrade = 0.02

const balanceHistoryCap = 100

// AccountView is the execution/account collaborator the snapshot pulls
// from. In simulated mode it is the simulator; in live mode the exchange.
type AccountView interface {
	Balance(ctx context.Context) (total, available float64, err error)
	Positions(ctx context.Context) ([]model.Position, error)
}

// HistoryRepository is the durable side of risk accounting.
type HistoryRepository interface {
	DailyRealizedPnL(ctx context.Context, day time.Time) (float64, error)
	SaveRiskMetric(ctx context.Context, state model.RiskState) error
	SaveRiskLimits(ctx context.Context, limits model.RiskLimits) error
}

// Config seeds the engine.
type Config struct {
	Limits          model.RiskLimits
	DefaultLeverage float64
}

// ValidationInput is one proposed trade for admission control.
type ValidationInput struct {
	Symbol   string
	Side     enum.OrderSide
	Quantity float64
	Leverage float64
	Price    float64
}

// Engine owns the authoritative risk state. The mutex is scoped to this
// engine only; it serializes the snapshot task against request handlers,
// never crossing component boundaries.
type Engine struct {
	mu       sync.Mutex
	limits   model.RiskLimits
	defLev   float64
	account  AccountView
	repo     HistoryRepository
	state    *model.RiskState
	balances []float64
}

// NewEngine creates an engine with no snapshot yet; sizing fails closed
// until the first snapshot completes.
func NewEngine(cfg Config, account AccountView, repo HistoryRepository) *Engine {
	defLev := cfg.DefaultLeverage
	if defLev < 1 {
		defLev = 1
	}
	return &Engine{
		limits:  cfg.Limits,
		defLev:  defLev,
		account: account,
		repo:    repo,
	}
}

// State returns a copy of the latest snapshot.
func (e *Engine) State() (model.RiskState, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == nil {
		return model.RiskState{}, false
	}
	return *e.state, true
}

// Limits returns the active limits.
func (e *Engine) Limits() model.RiskLimits {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.limits
}

// UpdateLimits persists and applies new limits.
func (e *Engine) UpdateLimits(ctx context.Context, limits model.RiskLimits) error {
	if limits.MaxLeverage < 1 || limits.MaxPositionSizePct <= 0 || limits.MaxDailyLossPct <= 0 {
		return exception.ErrValidation
	}
	if err := e.repo.SaveRiskLimits(ctx, limits); err != nil {
		return errors.Wrap(err, "persist risk limits")
	}

	e.mu.Lock()
	e.limits = limits
	e.mu.Unlock()
	return nil
}

// Validate is the admission check for one proposed trade. The assessment
// may carry several independent rejection reasons; any reason blocks it.
func (e *Engine) Validate(in ValidationInput) model.Assessment {
	e.mu.Lock()
	defer e.mu.Unlock()

	assessment := model.Assessment{IsAllowed: true, Level: enum.RiskLevelLow}

	if in.Symbol == "" || in.Quantity <= 0 || in.Price <= 0 {
		assessment.Reject("malformed trade input")
		return assessment
	}

	if e.state == nil {
		assessment.Level = enum.RiskLevelCritical
		assessment.Reject("risk state unavailable")
		return assessment
	}
	assessment.Level = e.state.Level

	if !e.state.TradeAllowed {
		assessment.Level = enum.RiskLevelCritical
		assessment.Reject("trading halted by risk level")
		return assessment
	}

	if in.Leverage > e.limits.MaxLeverage {
		assessment.Reject("leverage exceeds maximum")
		assessment.MaxLeverage = e.limits.MaxLeverage
	}

	total := e.state.TotalBalance
	if total > 0 {
		positionPct := in.Quantity * in.Price / total * 100
		if positionPct > e.limits.MaxPositionSizePct {
			assessment.Reject("position size exceeds maximum")
			assessment.MaxQuantity = total * e.limits.MaxPositionSizePct / 100 / in.Price
		}
	}

	// Suggested stop risks riskPerTrade of the balance regardless of the
	// verdict, so a rejected caller still sees a sane stop.
	stopDistance := riskPerTrade * total / in.Quantity
	if in.Side == enum.OrderSideBuy {
		assessment.SuggestedStopLoss = in.Price - stopDistance
	} else {
		assessment.SuggestedStopLoss = in.Price + stopDistance
	}

	return assessment
}

// SizePosition turns a resolved signal into a bounded order proposal.
// Fails closed with ErrRiskStateUnavailable before the first snapshot.
func (e *Engine) SizePosition(signal model.Signal, currentPrice float64) (model.PositionSizeProposal, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state == nil {
		return model.PositionSizeProposal{}, exception.ErrRiskStateUnavailable
	}
	if currentPrice <= 0 {
		return model.PositionSizeProposal{}, exception.ErrValidationPrice
	}
	// CLOSE intents are sized from the open position by the executor, not
	// here; only directional intents open new exposure.
	if signal.Action != enum.ActionBuy && signal.Action != enum.ActionSell {
		return model.PositionSizeProposal{}, exception.ErrValidationAction
	}

	total := e.state.TotalBalance
	confidenceMultiplier := signal.Confidence / 100

	size := total * riskPerTrade * confidenceMultiplier / currentPrice
	maxPositionValue := total * e.limits.MaxPositionSizePct / 100
	if maxSize := maxPositionValue / currentPrice; size > maxSize {
		size = maxSize
	}

	// Leverage scales linearly with confidence around the 50 midpoint.
	leverage := math.Ceil(e.defLev * (1 + (signal.Confidence-50)/100))
	leverage = math.Min(leverage, e.limits.MaxLeverage)
	leverage = math.Max(leverage, 1)

	stopDistance := currentPrice * riskPerTrade
	if signal.StopLoss != nil {
		stopDistance = math.Abs(currentPrice - *signal.StopLoss)
	}
	stopLoss := currentPrice + stopDistance
	if signal.Action == enum.ActionBuy {
		stopLoss = currentPrice - stopDistance
	}

	return model.PositionSizeProposal{
		Quantity:       size,
		Leverage:       leverage,
		StopLoss:       stopLoss,
		RequiredMargin: size * currentPrice / leverage,
	}, nil
}

// Snapshot recomputes the authoritative risk state from the account
// collaborator and durable history. Alert strings are informational and
// never change the blocking semantics.
func (e *Engine) Snapshot(ctx context.Context) (model.RiskState, []string, error) {
	total, available, err := e.account.Balance(ctx)
	if err != nil {
		return model.RiskState{}, nil, errors.Wrap(exception.ErrAPIUnavailable, err.Error())
	}
	positions, err := e.account.Positions(ctx)
	if err != nil {
		return model.RiskState{}, nil, errors.Wrap(exception.ErrAPIUnavailable, err.Error())
	}

	dailyRealized, err := e.repo.DailyRealizedPnL(ctx, time.Now().UTC())
	if err != nil {
		return model.RiskState{}, nil, errors.Wrap(err, "daily realized pnl")
	}

	var unrealized, marginUsed float64
	for _, p := range positions {
		unrealized += p.UnrealizedPnL
		marginUsed += p.MarginUsed
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.balances = append(e.balances, total)
	if len(e.balances) > balanceHistoryCap {
		e.balances = e.balances[len(e.balances)-balanceHistoryCap:]
	}

	state := model.RiskState{
		TotalBalance:       total,
		AvailableBalance:   available,
		UnrealizedPnL:      unrealized,
		DailyRealizedPnL:   dailyRealized,
		MaxDrawdownPct:     maxDrawdown(e.balances),
		LiquidationRiskPct: liquidationRisk(positions),
		Timestamp:          time.Now().UTC(),
	}
	if total > 0 {
		state.MarginUsagePct = marginUsed / total * 100
	}

	var dailyLossPct float64
	if dailyRealized < 0 && total > 0 {
		dailyLossPct = -dailyRealized / total * 100
	}
	state.Level = classify(dailyLossPct, state.MarginUsagePct, e.limits)
	state.TradeAllowed = state.Level != enum.RiskLevelCritical

	var alerts []string
	if dailyLossPct > e.limits.MaxDailyLossPct {
		alerts = append(alerts, fmt.Sprintf("daily loss %.2f%% breached limit %.2f%%", dailyLossPct, e.limits.MaxDailyLossPct))
	}
	if state.MaxDrawdownPct > e.limits.MaxDrawdownPct {
		alerts = append(alerts, fmt.Sprintf("drawdown %.2f%% breached limit %.2f%%", state.MaxDrawdownPct, e.limits.MaxDrawdownPct))
	}
	if state.MarginUsagePct > 80 {
		alerts = append(alerts, fmt.Sprintf("margin usage %.2f%% above 80%%", state.MarginUsagePct))
	}

	e.state = &state
	if err := e.repo.SaveRiskMetric(ctx, state); err != nil {
		logs.Errorf("persist risk metric, err: %+v", err)
	}
	return state, alerts, nil
}

// classify maps loss and margin pressure to a level; thresholds are
// fractions of the daily loss limit and fixed margin usage bands.
func classify(dailyLossPct, marginUsagePct float64, limits model.RiskLimits) enum.RiskLevel {
	limit := limits.MaxDailyLossPct
	switch {
	case dailyLossPct > 0.8*limit || marginUsagePct > 80:
		return enum.RiskLevelCritical
	case dailyLossPct > 0.6*limit || marginUsagePct > 60:
		return enum.RiskLevelHigh
	case dailyLossPct > 0.3*limit || marginUsagePct > 40:
		return enum.RiskLevelMedium
	default:
		return enum.RiskLevelLow
	}
}

// maxDrawdown is the worst peak-to-trough decline over the balance
// history, as % of the peak.
func maxDrawdown(history []float64) float64 {
	var peak, worst float64
	for _, v := range history {
		if v > peak {
			peak = v
		}
		if peak > 0 {
			if dd := (peak - v) / peak * 100; dd > worst {
				worst = dd
			}
		}
	}
	return worst
}

// liquidationRisk is the size-weighted proximity of mark prices to their
// liquidation prices, in %. Positions without a liquidation price are
// ignored.
func liquidationRisk(positions []model.Position) float64 {
	var weighted, size float64
	for _, p := range positions {
		if p.LiquidationPrice == nil || p.MarkPrice <= 0 || p.Size <= 0 {
			continue
		}
		proximity := 1 - math.Abs(p.MarkPrice-*p.LiquidationPrice)/p.MarkPrice
		weighted += proximity * p.Size
		size += p.Size
	}
	if size == 0 {
		return 0
	}
	return weighted / size * 100
}
