package strategy

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"main/internal/model"
	"main/internal/model/enum"
)

// Weight applied for signals whose source has no config entry.
const fallbackWeight = 0.33

// ResolveThreshold is the minimum confidence for an actionable consensus.
const ResolveThreshold = 50

// BroadcastThreshold is the minimum confidence for external publication.
// Decisions between the two thresholds are kept internally only; the dead
// zone is intentional hysteresis against noise.
const BroadcastThreshold = 60

// Aggregate merges one cycle's signals for an instrument into a single
// weighted decision.
//
// Confidence is score(bestAction) relative to the maximum score every
// enabled instrument-matching source could have produced, fired or not.
// Source weights are taken as configured without normalization, so the
// result is not a probability when weights are skewed.
func Aggregate(symbol string, signals []model.Signal, configs []model.SourceConfig, now time.Time) model.AggregatedDecision {
	decision := model.AggregatedDecision{
		Symbol:    symbol,
		Signals:   signals,
		Timestamp: now,
	}
	if len(signals) == 0 {
		return decision
	}

	weights := make(map[string]float64, len(configs))
	for _, cfg := range configs {
		weights[cfg.ID] = cfg.Weight
	}
	weightOf := func(source string) float64 {
		if w, ok := weights[source]; ok {
			return w
		}
		return fallbackWeight
	}

	scores := make(map[enum.Action]float64)
	groups := make(map[enum.Action][]model.Signal)
	for _, sig := range signals {
		scores[sig.Action] += sig.Confidence * weightOf(sig.Source)
		groups[sig.Action] = append(groups[sig.Action], sig)
	}

	// Equal scores resolve to the lexicographically smaller action so the
	// outcome does not depend on map iteration order.
	best := bestAction(scores)

	var maxPossible float64
	for _, cfg := range configs {
		if cfg.Enabled && cfg.Matches(symbol) {
			maxPossible += cfg.Weight * 100
		}
	}
	if maxPossible <= 0 {
		return decision
	}

	decision.Confidence = math.Min(100, scores[best]/maxPossible*100)
	if decision.Confidence <= ResolveThreshold || best == enum.ActionHold {
		return decision
	}

	resolved := model.Signal{
		Symbol:     symbol,
		Action:     best,
		Confidence: decision.Confidence,
		Source:     "aggregator",
		Reason:     contributorSummary(groups[best]),
		Timestamp:  now,
	}
	resolved.TargetPrice = meanOf(groups[best], func(s model.Signal) *float64 { return s.TargetPrice })
	resolved.StopLoss = meanOf(groups[best], func(s model.Signal) *float64 { return s.StopLoss })
	decision.Resolved = &resolved
	return decision
}

func bestAction(scores map[enum.Action]float64) enum.Action {
	actions := make([]enum.Action, 0, len(scores))
	for a := range scores {
		actions = append(actions, a)
	}
	sort.Slice(actions, func(i, j int) bool { return actions[i] < actions[j] })

	var best enum.Action
	bestScore := math.Inf(-1)
	for _, a := range actions {
		if scores[a] > bestScore {
			best, bestScore = a, scores[a]
		}
	}
	return best
}

// meanOf averages the field over the signals that supplied it; nil when
// nothing did.
func meanOf(signals []model.Signal, field func(model.Signal) *float64) *float64 {
	var sum float64
	var n int
	for _, s := range signals {
		if v := field(s); v != nil {
			sum += *v
			n++
		}
	}
	if n == 0 {
		return nil
	}
	mean := sum / float64(n)
	return &mean
}

func contributorSummary(signals []model.Signal) string {
	parts := make([]string, 0, len(signals))
	for _, s := range signals {
		parts = append(parts, fmt.Sprintf("%s@%.0f", s.Source, s.Confidence))
	}
	return strings.Join(parts, ", ")
}
