package exec

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"main/internal/model"
	"main/internal/model/enum"
	"main/pkg/exception"
)

func fixedPrice(prices map[string]float64) func(string) (float64, bool) {
	return func(symbol string) (float64, bool) {
		p, ok := prices[symbol]
		return p, ok
	}
}

func marketOrder(id, symbol string, side enum.OrderSide, qty float64) model.Order {
	return model.Order{
		ID:       id,
		Symbol:   symbol,
		Side:     side,
		Type:     enum.OrderTypeMarket,
		Quantity: qty,
		Status:   enum.OrderStatusNew,
	}
}

func TestSimulatorMarketBuyScenario(t *testing.T) {
	sim := NewSimulator(10_000, fixedPrice(map[string]float64{"TESTUSDT": 100}))

	filled, err := sim.CreateOrder(t.Context(), marketOrder("o1", "TESTUSDT", enum.OrderSideBuy, 1))
	require.NoError(t, err)

	// notional 100 is below $10,000 so slippage floors at the 0.05% base
	assert.Equal(t, enum.OrderStatusFilled, filled.Status)
	assert.InDelta(t, 100.05, filled.AvgFillPrice, 1e-9)
	assert.InDelta(t, 0.04, filled.Fee, 0.0001)
	assert.InDelta(t, 10_000-100.09, sim.Cash(), 0.0001)
}

func TestSimulatorSellReceivesLess(t *testing.T) {
	sim := NewSimulator(10_000, fixedPrice(map[string]float64{"TESTUSDT": 100}))

	filled, err := sim.CreateOrder(t.Context(), marketOrder("o1", "TESTUSDT", enum.OrderSideSell, 1))
	require.NoError(t, err)

	assert.Less(t, filled.AvgFillPrice, 100.0)
	notional := filled.ExecutedQty * filled.AvgFillPrice
	assert.InDelta(t, 10_000+notional-simTakerFeeRate*notional, sim.Cash(), 1e-9)
}

func TestSlippageNeverNegative(t *testing.T) {
	for _, notional := range []float64{0, 1, 100, 9_999, 10_000, 100_000, 1e9} {
		if s := slippagePct(notional); s < 0 {
			t.Fatalf("negative slippage %v at notional %v", s, notional)
		}
	}
	// below the knee every notional sits exactly on the base
	for _, notional := range []float64{1, 100, 9_999} {
		if s := slippagePct(notional); math.Abs(s-simBaseSlippagePct) > 1e-12 {
			t.Fatalf("slippage below $10k should floor at %v, got %v at notional %v", simBaseSlippagePct, s, notional)
		}
	}
	// above the knee it grows with size
	if slippagePct(1_000_000) <= slippagePct(20_000) {
		t.Fatal("slippage should grow with notional")
	}
}

func TestSimulatorRejectsUnknownSymbol(t *testing.T) {
	sim := NewSimulator(10_000, fixedPrice(nil))
	_, err := sim.CreateOrder(t.Context(), marketOrder("o1", "NOPE", enum.OrderSideBuy, 1))
	require.ErrorIs(t, err, exception.ErrOrderNoReferencePx)
}

func TestSimulatorPositionReplay(t *testing.T) {
	prices := map[string]float64{"TESTUSDT": 100}
	sim := NewSimulator(100_000, fixedPrice(prices))
	require.NoError(t, sim.SetLeverage(t.Context(), "TESTUSDT", 4))

	// scale in at two prices, then partially close
	_, err := sim.CreateOrder(t.Context(), marketOrder("o1", "TESTUSDT", enum.OrderSideBuy, 1))
	require.NoError(t, err)

	prices["TESTUSDT"] = 110
	_, err = sim.CreateOrder(t.Context(), marketOrder("o2", "TESTUSDT", enum.OrderSideBuy, 1))
	require.NoError(t, err)

	prices["TESTUSDT"] = 120
	_, err = sim.CreateOrder(t.Context(), marketOrder("o3", "TESTUSDT", enum.OrderSideSell, 0.5))
	require.NoError(t, err)

	positions, err := sim.Positions(t.Context())
	require.NoError(t, err)
	require.Len(t, positions, 1)

	pos := positions[0]
	assert.Equal(t, enum.PositionSideLong, pos.Side)
	assert.InDelta(t, 1.5, pos.Size, 1e-9)

	// entry is the notional-weighted average of the two buys, fixed by the
	// partial close
	expectedEntry := (100.05 + 110*1.0005) / 2
	assert.InDelta(t, expectedEntry, pos.EntryPrice, 1e-9)
	assert.Equal(t, 4.0, pos.Leverage)
	assert.InDelta(t, 1.5*expectedEntry/4, pos.MarginUsed, 1e-9)
	require.NotNil(t, pos.LiquidationPrice)
	assert.InDelta(t, expectedEntry*0.75, *pos.LiquidationPrice, 1e-9)
}

func TestSimulatorPositionDroppedAtZero(t *testing.T) {
	sim := NewSimulator(100_000, fixedPrice(map[string]float64{"TESTUSDT": 100}))

	_, err := sim.CreateOrder(t.Context(), marketOrder("o1", "TESTUSDT", enum.OrderSideBuy, 2))
	require.NoError(t, err)
	_, err = sim.CreateOrder(t.Context(), marketOrder("o2", "TESTUSDT", enum.OrderSideSell, 2))
	require.NoError(t, err)

	positions, err := sim.Positions(t.Context())
	require.NoError(t, err)
	assert.Empty(t, positions)
}

func TestSimulatorFlipThroughZero(t *testing.T) {
	sim := NewSimulator(100_000, fixedPrice(map[string]float64{"TESTUSDT": 100}))

	_, err := sim.CreateOrder(t.Context(), marketOrder("o1", "TESTUSDT", enum.OrderSideBuy, 1))
	require.NoError(t, err)
	flip, err := sim.CreateOrder(t.Context(), marketOrder("o2", "TESTUSDT", enum.OrderSideSell, 3))
	require.NoError(t, err)

	positions, err := sim.Positions(t.Context())
	require.NoError(t, err)
	require.Len(t, positions, 1)

	pos := positions[0]
	assert.Equal(t, enum.PositionSideShort, pos.Side)
	assert.InDelta(t, 2, pos.Size, 1e-9)
	// the residual short restarts at the flipping fill's price
	assert.InDelta(t, flip.AvgFillPrice, pos.EntryPrice, 1e-9)
}

func TestSimulatorBalanceMarksToMarket(t *testing.T) {
	prices := map[string]float64{"TESTUSDT": 100}
	sim := NewSimulator(10_000, fixedPrice(prices))

	_, err := sim.CreateOrder(t.Context(), marketOrder("o1", "TESTUSDT", enum.OrderSideBuy, 10))
	require.NoError(t, err)

	prices["TESTUSDT"] = 110
	total, available, err := sim.Balance(t.Context())
	require.NoError(t, err)

	assert.InDelta(t, sim.Cash(), available, 1e-9)
	assert.InDelta(t, sim.Cash()+10*110, total, 1e-9)
	assert.Greater(t, total, available)
}

func TestSimulatorCancelAlwaysFails(t *testing.T) {
	sim := NewSimulator(10_000, fixedPrice(map[string]float64{"TESTUSDT": 100}))

	require.ErrorIs(t, sim.CancelOrder(t.Context(), "missing"), exception.ErrOrderUnknown)

	filled, err := sim.CreateOrder(t.Context(), marketOrder("o1", "TESTUSDT", enum.OrderSideBuy, 1))
	require.NoError(t, err)
	require.ErrorIs(t, sim.CancelOrder(t.Context(), filled.ID), exception.ErrOrderCancelFailed)
}

func TestMapNativeStatus(t *testing.T) {
	testCases := []struct {
		native   string
		expected enum.OrderStatus
	}{
		{"filled", enum.OrderStatusFilled},
		{"CANCELLED", enum.OrderStatusCanceled},
		{"PARTIAL", enum.OrderStatusPartiallyFilled},
		{"DENIED", enum.OrderStatusRejected},
		{"EXPIRED_IN_MATCH", enum.OrderStatusExpired},
		{"whatever", enum.OrderStatusNew},
	}
	for _, tc := range testCases {
		if got := MapNativeStatus(tc.native); got != tc.expected {
			t.Fatalf("status mismatch for %q! should be %s but got %s", tc.native, tc.expected, got)
		}
	}
}

func TestSimulatorFeeExact(t *testing.T) {
	sim := NewSimulator(1_000_000, fixedPrice(map[string]float64{"TESTUSDT": 250}))

	filled, err := sim.CreateOrder(t.Context(), marketOrder("o1", "TESTUSDT", enum.OrderSideBuy, 3))
	require.NoError(t, err)

	fee := 0.0004 * filled.ExecutedQty * filled.AvgFillPrice
	spent := 1_000_000 - sim.Cash()
	if math.Abs(spent-(filled.ExecutedQty*filled.AvgFillPrice+fee)) > 1e-9 {
		t.Fatalf("ledger mismatch: spent %v, notional+fee %v", spent, filled.ExecutedQty*filled.AvgFillPrice+fee)
	}
}
