package strategy

import (
	"fmt"
	"math"

	"main/internal/model"
	"main/internal/model/enum"
)

// Momentum follows the 24h move when the short-window slope confirms it.
type Momentum struct{}

// NewMomentum creates the source.
func NewMomentum() *Momentum {
	return &Momentum{}
}

// ID implements Source.
func (m *Momentum) ID() string {
	return "momentum"
}

// Evaluate emits BUY above the change threshold with a rising slope and
// SELL below the negated threshold with a falling slope.
//
// Params: changeThresholdPct (default 2), slopeWindow (default 10),
// confidenceGain (default 8).
func (m *Momentum) Evaluate(cfg model.SourceConfig, window []model.Observation) ([]model.Signal, error) {
	if len(window) < 2 {
		return nil, nil
	}

	threshold := cfg.Param("changeThresholdPct", 2)
	slopeWindow := int(cfg.Param("slopeWindow", 10))
	gain := cfg.Param("confidenceGain", 8)

	last := window[len(window)-1]
	slope := recentSlope(window, slopeWindow)

	var action enum.Action
	switch {
	case last.Change24hPct >= threshold && slope > 0:
		action = enum.ActionBuy
	case last.Change24hPct <= -threshold && slope < 0:
		action = enum.ActionSell
	default:
		return nil, nil
	}

	confidence := math.Min(100, 50+math.Abs(last.Change24hPct)*gain)

	var target, stop float64
	if action == enum.ActionBuy {
		target = last.Price * 1.02
		stop = last.Price * 0.99
	} else {
		target = last.Price * 0.98
		stop = last.Price * 1.01
	}

	return []model.Signal{{
		Symbol:      last.Symbol,
		Action:      action,
		Confidence:  confidence,
		TargetPrice: &target,
		StopLoss:    &stop,
		Source:      m.ID(),
		Reason:      fmt.Sprintf("24h change %.2f%%, slope %.6f", last.Change24hPct, slope),
		Timestamp:   last.Timestamp,
	}}, nil
}

// recentSlope is the average per-step price delta over the last n points.
func recentSlope(window []model.Observation, n int) float64 {
	if n < 2 {
		n = 2
	}
	if n > len(window) {
		n = len(window)
	}
	tail := window[len(window)-n:]
	return (tail[len(tail)-1].Price - tail[0].Price) / float64(len(tail)-1)
}
