package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"main/internal/model"
	"main/internal/model/enum"
)

func TestMemoryDailyRealizedPnLDayBounds(t *testing.T) {
	repo := NewMemory()
	day := time.Date(2026, 8, 28, 13, 0, 0, 0, time.UTC)

	trades := []model.Trade{
		{ID: "t1", Symbol: "TESTUSDT", RealizedPnL: 50, Timestamp: day.Add(-time.Hour)},
		{ID: "t2", Symbol: "TESTUSDT", RealizedPnL: -30, Timestamp: day.Add(time.Hour)},
		{ID: "t3", Symbol: "TESTUSDT", RealizedPnL: 999, Timestamp: day.Add(-48 * time.Hour)}, // prior day
		{ID: "t4", Symbol: "TESTUSDT", RealizedPnL: 111, Timestamp: day.Add(24 * time.Hour)},  // next day
	}
	for _, trade := range trades {
		require.NoError(t, repo.SaveTrade(t.Context(), trade))
	}

	total, err := repo.DailyRealizedPnL(t.Context(), day)
	require.NoError(t, err)
	assert.InDelta(t, 20, total, 1e-9)
}

func TestMemoryOrderLastWriteWins(t *testing.T) {
	repo := NewMemory()

	order := model.Order{ID: "o1", Symbol: "TESTUSDT", Status: enum.OrderStatusNew}
	require.NoError(t, repo.SaveOrder(t.Context(), order))

	order.Status = enum.OrderStatusFilled
	require.NoError(t, repo.SaveOrder(t.Context(), order))

	orders := repo.Orders()
	require.Len(t, orders, 1)
	assert.Equal(t, enum.OrderStatusFilled, orders[0].Status)
}

func TestMemoryLimitsRoundtrip(t *testing.T) {
	repo := NewMemory()

	if _, ok := repo.Limits(); ok {
		t.Fatal("fresh repo should have no limits")
	}

	limits := model.RiskLimits{MaxDailyLossPct: 5, MaxLeverage: 10, MaxPositionSizePct: 30}
	require.NoError(t, repo.SaveRiskLimits(t.Context(), limits))

	got, ok := repo.Limits()
	require.True(t, ok)
	assert.Equal(t, limits, got)
}

func TestSourceConfigRecordRoundtrip(t *testing.T) {
	cfg := model.SourceConfig{
		ID:         "momentum",
		Enabled:    true,
		Weight:     0.4,
		Symbols:    []string{"BTCUSDT", "ETHUSDT"},
		Timeframes: []string{"1m", "5m"},
		Params:     map[string]float64{"changeThresholdPct": 2.5},
	}

	record, err := toSourceConfigRecord(cfg)
	require.NoError(t, err)

	back, err := record.toModel()
	require.NoError(t, err)
	assert.Equal(t, cfg, back)
}
