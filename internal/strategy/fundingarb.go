package strategy

import (
	"fmt"
	"math"

	"main/internal/model"
	"main/internal/model/enum"
)

// FundingArb takes the side that collects funding when the rate is
// stretched: crowded longs pay shorts and vice versa.
type FundingArb struct{}

// NewFundingArb creates the source.
func NewFundingArb() *FundingArb {
	return &FundingArb{}
}

// ID implements Source.
func (f *FundingArb) ID() string {
	return "fundingarb"
}

// Evaluate emits SELL on a high positive funding rate and BUY on a deeply
// negative one.
//
// Params: rateThreshold (default 0.0003), confidencePerBp (default 10),
// hedgeRatio (default 1). hedgeRatio is read for configuration parity but
// not applied to the emitted signal; the hedging leg was never part of the
// observed signal logic.
func (f *FundingArb) Evaluate(cfg model.SourceConfig, window []model.Observation) ([]model.Signal, error) {
	if len(window) == 0 {
		return nil, nil
	}

	threshold := cfg.Param("rateThreshold", 0.0003)
	perBp := cfg.Param("confidencePerBp", 10)
	_ = cfg.Param("hedgeRatio", 1)

	last := window[len(window)-1]
	if math.Abs(last.FundingRate) < threshold {
		return nil, nil
	}

	action := enum.ActionSell
	if last.FundingRate < 0 {
		action = enum.ActionBuy
	}

	bps := math.Abs(last.FundingRate) * 10_000
	confidence := math.Min(100, 40+bps*perBp)

	return []model.Signal{{
		Symbol:     last.Symbol,
		Action:     action,
		Confidence: confidence,
		Source:     f.ID(),
		Reason:     fmt.Sprintf("funding %.4f%% (%.1f bps)", last.FundingRate*100, bps),
		Timestamp:  last.Timestamp,
	}}, nil
}
