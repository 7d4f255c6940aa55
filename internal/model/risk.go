package model

import (
	"time"

	"main/internal/model/enum"
)

// RiskLimits are the operator-controlled bounds. Every mutation is
// persisted before it takes effect.
type RiskLimits struct {
	MaxDailyLossPct       float64
	MaxLeverage           float64
	MaxPositionSizePct    float64 // % of total balance per position
	MaxDrawdownPct        float64
	MaxOpenPositions      int
	ConcentrationLimitPct float64
	LiquidationBufferPct  float64
}

// RiskState is the periodic account snapshot. The risk engine holds the
// single authoritative copy; other components receive value copies.
type RiskState struct {
	TotalBalance       float64
	AvailableBalance   float64
	UnrealizedPnL      float64
	DailyRealizedPnL   float64
	MaxDrawdownPct     float64
	Level              enum.RiskLevel
	TradeAllowed       bool
	MarginUsagePct     float64
	LiquidationRiskPct float64
	Timestamp          time.Time
}

// Assessment is the admission-control verdict for a proposed trade.
// Reasons may carry several independent rejections at once; any reason
// forces IsAllowed to false.
type Assessment struct {
	IsAllowed         bool
	Level             enum.RiskLevel
	Reasons           []string
	MaxLeverage       float64 // recommended cap when leverage was rejected
	MaxQuantity       float64 // recommended cap when size was rejected
	SuggestedStopLoss float64 // always computed
}

// Reject records one rejection reason.
func (a *Assessment) Reject(reason string) {
	a.IsAllowed = false
	a.Reasons = append(a.Reasons, reason)
}

// PositionSizeProposal is a derived sizing result. It is never persisted
// on its own; only the resulting order is.
type PositionSizeProposal struct {
	Quantity       float64
	Leverage       float64
	StopLoss       float64
	RequiredMargin float64
}
