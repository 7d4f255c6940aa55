package model

import (
	"time"

	"main/internal/model/enum"
)

// Signal is a directional suggestion produced by one source.
// Consumers never mutate it.
type Signal struct {
	Symbol      string
	Action      enum.Action
	Confidence  float64 // [0,100]
	TargetPrice *float64
	StopLoss    *float64
	Source      string
	Reason      string
	Timestamp   time.Time
}

// WellFormed rejects signals the aggregator must not count.
func (s Signal) WellFormed() bool {
	return s.Symbol != "" &&
		s.Action.Valid() &&
		s.Confidence >= 0 && s.Confidence <= 100
}

// AggregatedDecision is the per-cycle consensus for one instrument.
// Resolved is nil when no actionable consensus exists; the decision still
// carries the computed confidence. Each cycle supersedes the previous one.
type AggregatedDecision struct {
	Symbol     string
	Signals    []Signal
	Resolved   *Signal
	Confidence float64 // [0,100]
	Timestamp  time.Time
}
