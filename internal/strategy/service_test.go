package strategy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"main/internal/bus"
	"main/internal/cache"
	"main/internal/model"
	"main/internal/model/enum"
	"main/internal/storage"
)

// bullish always wants in; panicky never returns at all.
type bullish struct{}

func (bullish) ID() string { return "bullish" }
func (bullish) Evaluate(_ model.SourceConfig, window []model.Observation) ([]model.Signal, error) {
	last := window[len(window)-1]
	return []model.Signal{{
		Symbol:     last.Symbol,
		Action:     enum.ActionBuy,
		Confidence: 90,
		Source:     "bullish",
		Timestamp:  last.Timestamp,
	}}, nil
}

type panicky struct{}

func (panicky) ID() string { return "panicky" }
func (panicky) Evaluate(model.SourceConfig, []model.Observation) ([]model.Signal, error) {
	panic("boom")
}

func newTestService(t *testing.T, b *bus.Bus, sources []Source, configs []model.SourceConfig) *Service {
	t.Helper()
	store := NewConfigStore(storage.NewMemory(), cache.NewMemory())
	require.NoError(t, store.Load(t.Context(), configs))
	return NewService(ServiceConfig{Interval: time.Hour}, sources, store, b)
}

func TestCyclePublishesResolvedDecision(t *testing.T) {
	b := bus.New(16)
	out := b.Subscribe(bus.TopicTradingSignal)

	svc := newTestService(t, b, []Source{bullish{}}, []model.SourceConfig{
		{ID: "bullish", Enabled: true, Weight: 1},
	})
	svc.windows.Push(model.Observation{Symbol: "TESTUSDT", Price: 100, Timestamp: time.Now()})

	svc.cycle(t.Context())

	decision, ok := svc.Decision("TESTUSDT")
	require.True(t, ok)
	require.NotNil(t, decision.Resolved)
	assert.Equal(t, enum.ActionBuy, decision.Resolved.Action)
	assert.InDelta(t, 90, decision.Confidence, 1e-9)

	select {
	case e := <-out.C:
		signal, isSignal := e.Payload.(model.Signal)
		require.True(t, isSignal)
		assert.Equal(t, "TESTUSDT", signal.Symbol)
	default:
		t.Fatal("resolved decision above broadcast threshold should be published")
	}
}

func TestCycleIsolatesPanickingSource(t *testing.T) {
	b := bus.New(16)
	svc := newTestService(t, b, []Source{panicky{}, bullish{}}, []model.SourceConfig{
		{ID: "panicky", Enabled: true, Weight: 0.5},
		{ID: "bullish", Enabled: true, Weight: 0.5},
	})
	svc.windows.Push(model.Observation{Symbol: "TESTUSDT", Price: 100, Timestamp: time.Now()})

	svc.cycle(t.Context())

	// the panicking source contributes nothing, aggregation still runs:
	// 90*0.5 over maxPossible 100 = 45, below the resolve threshold
	decision, ok := svc.Decision("TESTUSDT")
	require.True(t, ok)
	assert.Nil(t, decision.Resolved)
	assert.InDelta(t, 45, decision.Confidence, 1e-9)
	require.Len(t, decision.Signals, 1)
	assert.Equal(t, "bullish", decision.Signals[0].Source)
}

func TestCycleSkipsWhilePaused(t *testing.T) {
	b := bus.New(16)
	svc := newTestService(t, b, []Source{bullish{}}, []model.SourceConfig{
		{ID: "bullish", Enabled: true, Weight: 1},
	})
	svc.windows.Push(model.Observation{Symbol: "TESTUSDT", Price: 100, Timestamp: time.Now()})

	svc.paused.Store(true)
	svc.cycle(t.Context())

	if _, ok := svc.Decision("TESTUSDT"); ok {
		t.Fatal("paused cycle must not produce decisions")
	}
}

func TestCycleRespectsInstrumentAllowList(t *testing.T) {
	b := bus.New(16)
	svc := newTestService(t, b, []Source{bullish{}}, []model.SourceConfig{
		{ID: "bullish", Enabled: true, Weight: 1, Symbols: []string{"OTHERUSDT"}},
	})
	svc.windows.Push(model.Observation{Symbol: "TESTUSDT", Price: 100, Timestamp: time.Now()})

	svc.cycle(t.Context())

	decision, ok := svc.Decision("TESTUSDT")
	require.True(t, ok)
	assert.Empty(t, decision.Signals)
	assert.Nil(t, decision.Resolved)
}
