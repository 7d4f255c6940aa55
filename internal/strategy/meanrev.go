package strategy

import (
	"fmt"
	"math"

	"main/internal/model"
	"main/internal/model/enum"
)

// MeanReversion fades price extremes measured as a z-score against the
// window mean.
type MeanReversion struct{}

// NewMeanReversion creates the source.
func NewMeanReversion() *MeanReversion {
	return &MeanReversion{}
}

// ID implements Source.
func (m *MeanReversion) ID() string {
	return "meanrev"
}

// Evaluate emits a counter-trend signal when |z| crosses zEnter.
//
// Params: zEnter (default 2), minPoints (default 20), confidencePerZ
// (default 20).
func (m *MeanReversion) Evaluate(cfg model.SourceConfig, window []model.Observation) ([]model.Signal, error) {
	minPoints := int(cfg.Param("minPoints", 20))
	if minPoints < 3 {
		minPoints = 3
	}
	if len(window) < minPoints {
		return nil, nil
	}

	zEnter := cfg.Param("zEnter", 2)
	perZ := cfg.Param("confidencePerZ", 20)

	mean, std := meanStd(window)
	if std == 0 {
		return nil, nil
	}

	last := window[len(window)-1]
	z := (last.Price - mean) / std
	if math.Abs(z) < zEnter {
		return nil, nil
	}

	action := enum.ActionSell // stretched above the mean, fade it
	if z < 0 {
		action = enum.ActionBuy
	}

	confidence := math.Min(100, math.Abs(z)*perZ)
	target := mean

	return []model.Signal{{
		Symbol:      last.Symbol,
		Action:      action,
		Confidence:  confidence,
		TargetPrice: &target,
		Source:      m.ID(),
		Reason:      fmt.Sprintf("z=%.2f vs mean %.4f", z, mean),
		Timestamp:   last.Timestamp,
	}}, nil
}

func meanStd(window []model.Observation) (mean, std float64) {
	for _, o := range window {
		mean += o.Price
	}
	mean /= float64(len(window))

	var variance float64
	for _, o := range window {
		d := o.Price - mean
		variance += d * d
	}
	variance /= float64(len(window))
	return mean, math.Sqrt(variance)
}
