package strategy

import (
	"math"
	"testing"
	"time"

	"main/internal/model"
	"main/internal/model/enum"
)

func threeSourceConfigs(symbol string) []model.SourceConfig {
	return []model.SourceConfig{
		{ID: "momentum", Enabled: true, Weight: 0.4, Symbols: []string{symbol}},
		{ID: "meanrev", Enabled: true, Weight: 0.3, Symbols: []string{symbol}},
		{ID: "fundingarb", Enabled: true, Weight: 0.3, Symbols: []string{symbol}},
	}
}

func sig(symbol string, action enum.Action, confidence float64, source string) model.Signal {
	return model.Signal{
		Symbol:     symbol,
		Action:     action,
		Confidence: confidence,
		Source:     source,
		Timestamp:  time.Now(),
	}
}

func TestAggregateBelowResolveThreshold(t *testing.T) {
	configs := threeSourceConfigs("BTCUSDT")
	signals := []model.Signal{
		sig("BTCUSDT", enum.ActionBuy, 70, "momentum"),
		sig("BTCUSDT", enum.ActionBuy, 65, "meanrev"),
		sig("BTCUSDT", enum.ActionSell, 70, "fundingarb"),
	}

	d := Aggregate("BTCUSDT", signals, configs, time.Now())

	// score(BUY)=70*0.4+65*0.3=47.5, score(SELL)=70*0.3=21, maxPossible=100
	if math.Abs(d.Confidence-47.5) > 1e-9 {
		t.Fatalf("confidence mismatch! should be 47.5 but got %v", d.Confidence)
	}
	if d.Resolved != nil {
		t.Fatalf("should not resolve below threshold, got %+v", d.Resolved)
	}
}

func TestAggregateResolvesAboveBroadcast(t *testing.T) {
	configs := threeSourceConfigs("BTCUSDT")
	signals := []model.Signal{
		sig("BTCUSDT", enum.ActionBuy, 90, "momentum"),
		sig("BTCUSDT", enum.ActionBuy, 85, "meanrev"),
		sig("BTCUSDT", enum.ActionBuy, 10, "fundingarb"),
	}

	d := Aggregate("BTCUSDT", signals, configs, time.Now())

	// 90*0.4 + 85*0.3 + 10*0.3 = 64.5
	if math.Abs(d.Confidence-64.5) > 1e-9 {
		t.Fatalf("confidence mismatch! should be 64.5 but got %v", d.Confidence)
	}
	if d.Resolved == nil {
		t.Fatal("should resolve")
	}
	if d.Resolved.Action != enum.ActionBuy {
		t.Fatalf("action mismatch! should be BUY but got %s", d.Resolved.Action)
	}
	if d.Confidence <= BroadcastThreshold {
		t.Fatalf("should clear broadcast threshold, got %v", d.Confidence)
	}
}

func TestAggregateEmptySignals(t *testing.T) {
	d := Aggregate("BTCUSDT", nil, threeSourceConfigs("BTCUSDT"), time.Now())
	if d.Confidence != 0 || d.Resolved != nil {
		t.Fatalf("empty set should yield zero decision, got %+v", d)
	}
}

func TestAggregateConfidenceBounds(t *testing.T) {
	testCases := []struct {
		desc    string
		signals []model.Signal
	}{
		{
			"all max",
			[]model.Signal{
				sig("BTCUSDT", enum.ActionBuy, 100, "momentum"),
				sig("BTCUSDT", enum.ActionBuy, 100, "meanrev"),
				sig("BTCUSDT", enum.ActionBuy, 100, "fundingarb"),
			},
		},
		{
			"all zero",
			[]model.Signal{
				sig("BTCUSDT", enum.ActionSell, 0, "momentum"),
			},
		},
		{
			"unknown source falls back to 0.33",
			[]model.Signal{
				sig("BTCUSDT", enum.ActionBuy, 80, "mystery"),
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			d := Aggregate("BTCUSDT", tc.signals, threeSourceConfigs("BTCUSDT"), time.Now())
			if d.Confidence < 0 || d.Confidence > 100 {
				t.Fatalf("confidence out of range: %v", d.Confidence)
			}
		})
	}
}

func TestAggregateUnanimousActionWins(t *testing.T) {
	signals := []model.Signal{
		sig("BTCUSDT", enum.ActionSell, 95, "momentum"),
		sig("BTCUSDT", enum.ActionSell, 90, "meanrev"),
		sig("BTCUSDT", enum.ActionSell, 85, "fundingarb"),
	}
	d := Aggregate("BTCUSDT", signals, threeSourceConfigs("BTCUSDT"), time.Now())
	if d.Resolved == nil || d.Resolved.Action != enum.ActionSell {
		t.Fatalf("unanimous SELL should resolve SELL, got %+v", d.Resolved)
	}
}

func TestAggregateTieBreaksLexicographically(t *testing.T) {
	// only "a" counts toward maxPossible (50); the two unconfigured
	// sources score 80 x 0.33 = 26.4 each, so both actions tie at
	// confidence 52.8, above the resolve threshold
	configs := []model.SourceConfig{
		{ID: "a", Enabled: true, Weight: 0.5},
	}
	signals := []model.Signal{
		sig("BTCUSDT", enum.ActionSell, 80, "y"),
		sig("BTCUSDT", enum.ActionBuy, 80, "z"),
	}

	// BUY < SELL
	for range 20 {
		d := Aggregate("BTCUSDT", signals, configs, time.Now())
		if d.Resolved == nil {
			t.Fatalf("tie at confidence 52.8 should still resolve, got %+v", d)
		}
		if d.Resolved.Action != enum.ActionBuy {
			t.Fatalf("tie should break to BUY, got %s", d.Resolved.Action)
		}
	}
}

func TestAggregateTargetAndStopAreMeans(t *testing.T) {
	target1, target2 := 105.0, 115.0
	stop := 95.0
	signals := []model.Signal{
		{Symbol: "BTCUSDT", Action: enum.ActionBuy, Confidence: 90, Source: "momentum", TargetPrice: &target1, StopLoss: &stop},
		{Symbol: "BTCUSDT", Action: enum.ActionBuy, Confidence: 90, Source: "meanrev", TargetPrice: &target2},
	}
	configs := []model.SourceConfig{
		{ID: "momentum", Enabled: true, Weight: 0.5},
		{ID: "meanrev", Enabled: true, Weight: 0.5},
	}

	d := Aggregate("BTCUSDT", signals, configs, time.Now())
	if d.Resolved == nil {
		t.Fatal("should resolve")
	}
	if d.Resolved.TargetPrice == nil || math.Abs(*d.Resolved.TargetPrice-110) > 1e-9 {
		t.Fatalf("target should average contributors, got %v", d.Resolved.TargetPrice)
	}
	if d.Resolved.StopLoss == nil || *d.Resolved.StopLoss != stop {
		t.Fatalf("stop should come from the only supplier, got %v", d.Resolved.StopLoss)
	}
}

func TestAggregateDisabledSourcesShrinkMaxPossible(t *testing.T) {
	configs := []model.SourceConfig{
		{ID: "momentum", Enabled: true, Weight: 0.4},
		{ID: "meanrev", Enabled: false, Weight: 0.3},
	}
	signals := []model.Signal{sig("BTCUSDT", enum.ActionBuy, 80, "momentum")}

	d := Aggregate("BTCUSDT", signals, configs, time.Now())

	// maxPossible counts only the enabled source: 0.4*100=40; 80*0.4/40*100=80
	if math.Abs(d.Confidence-80) > 1e-9 {
		t.Fatalf("confidence mismatch! should be 80 but got %v", d.Confidence)
	}
}

func TestAggregateNeverResolvesHold(t *testing.T) {
	configs := []model.SourceConfig{{ID: "momentum", Enabled: true, Weight: 1}}
	signals := []model.Signal{sig("BTCUSDT", enum.ActionHold, 100, "momentum")}

	d := Aggregate("BTCUSDT", signals, configs, time.Now())
	if d.Resolved != nil {
		t.Fatalf("HOLD must never resolve, got %+v", d.Resolved)
	}
}
