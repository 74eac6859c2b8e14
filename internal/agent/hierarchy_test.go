package agent

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tierbot/internal/analysis/indicator"
	"tierbot/internal/risk"
	"tierbot/internal/signal"
)

type testTiers struct {
	risk      *risk.Manager
	hierarchy *Hierarchy
	clock     *stepClock
}

func newTestHierarchy(t *testing.T, mode indicator.Mode, strategicTTL time.Duration, window int) testTiers {
	t.Helper()
	clock := &stepClock{t: t0, step: time.Second}
	rm := risk.NewManager(risk.DefaultLimits(), risk.WithClock(func() time.Time { return t0 }))
	params := indicator.DefaultParams()
	params.Mode = mode

	macro := NewMacroFilter(rm, stubCount(0), time.Minute)
	strategy := NewStrategy(StrategyConfig{Params: params, TTL: strategicTTL})
	execution := NewExecution(ExecutionConfig{WOBIWindow: window}, rm)
	h := NewHierarchy(HierarchyConfig{SignalThreshold: 0.6}, macro, strategy, execution)
	h.SetClock(clock.Now)
	return testTiers{risk: rm, hierarchy: h, clock: clock}
}

func TestFlatMarketNeverFires(t *testing.T) {
	tiers := newTestHierarchy(t, indicator.ModeSimplified, 30*time.Second, 100)
	h := tiers.hierarchy
	for i := 0; i < 10; i++ {
		_, ok := h.Evaluate("BTC", flatBook("BTC"), 100, 1)
		assert.False(t, ok)
	}
	_, strategic, _, ok := h.LastSignals("BTC")
	require.True(t, ok)
	assert.Equal(t, "Insufficient data for indicators", strategic.Reason)
	assert.Equal(t, 10, h.Strategy().Buffer("BTC").Len())

	_, ok = h.Features("BTC")
	assert.False(t, ok)
}

func TestMacroCacheReused(t *testing.T) {
	tiers := newTestHierarchy(t, indicator.ModeSimplified, 30*time.Second, 100)
	h := tiers.hierarchy
	for i := 0; i < 10; i++ {
		h.Evaluate("BTC", flatBook("BTC"), 100, 1)
	}
	hits, misses := h.Cache().Stats()
	// macro: one miss then nine hits; strategic no-signals are never cached
	assert.Equal(t, uint64(9), hits)
	assert.Equal(t, uint64(11), misses)
}

func TestStrategicCacheStillFeedsBuffer(t *testing.T) {
	tiers := newTestHierarchy(t, indicator.ModeSimplified, time.Hour, 100)
	h := tiers.hierarchy
	prices := ramp(60, 100, 1)
	for _, p := range prices {
		h.Evaluate("BTC", flatBook("BTC"), p, 1)
	}
	_, first, _, _ := h.LastSignals("BTC")
	assert.Equal(t, signal.Short, first.Direction)
	assert.Equal(t, t0.Add(49*time.Second), first.IssuedAt, "computed once at the 50th tick")
	assert.Equal(t, 60, h.Strategy().Buffer("BTC").Len())
}

func TestMacroVetoBlocks(t *testing.T) {
	tiers := newTestHierarchy(t, indicator.ModeSimplified, time.Second, 100)
	tiers.risk.Activate("test")
	_, ok := tiers.hierarchy.Evaluate("BTC", flatBook("BTC"), 100, 1)
	assert.False(t, ok)
	macro, _, ok, _ := tiers.hierarchy.LastSignals("BTC")
	require.True(t, ok)
	assert.True(t, Blocks(macro))
}

// decaying approaches 100 from above along a convex curve: RSI pins at 0,
// the textbook MACD histogram stays positive and price sits under the
// Bollinger mid line, so the strategic tier reads LONG from tick 50 on.
func decaying(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 100 + 50*math.Exp(-float64(i)/60)
	}
	return out
}

func TestBullishImbalanceFiresLong(t *testing.T) {
	// strategic TTL below the tick step: recomputed on every tick
	tiers := newTestHierarchy(t, indicator.ModeTextbook, 500*time.Millisecond, 20)
	h := tiers.hierarchy
	prices := decaying(80)

	for i, p := range prices[:len(prices)-1] {
		_, ok := h.Evaluate("BTC", flatBook("BTC"), p, 1)
		require.False(t, ok, "tick %d", i)
	}
	_, strategic, _, _ := h.LastSignals("BTC")
	require.Equal(t, signal.Long, strategic.Direction)
	assert.Greater(t, strategic.Score, 0.65)
	assert.Equal(t, 0.0, strategic.Meta("rsi"))

	exec, ok := h.Evaluate("BTC", deepBook("BTC", true, 10), prices[len(prices)-1], 1)
	require.True(t, ok)
	assert.Equal(t, signal.Long, exec.Direction)
	assert.Equal(t, signal.Tactical, exec.Level)
	assert.Greater(t, exec.Score, 0.65)
	assert.Greater(t, exec.Meta("zscore"), 2.0)

	limits := risk.DefaultLimits()
	assert.GreaterOrEqual(t, exec.PositionSize, limits.BaseSize*limits.MinSizeFactor)
	assert.LessOrEqual(t, exec.PositionSize, limits.BaseSize*limits.MaxSizeFactor)

	_, strategic, _, _ = h.LastSignals("BTC")
	f, ok := h.Features("BTC")
	require.True(t, ok)
	require.Len(t, f, FeatureCount)
	assert.Equal(t, 0.0, f[0])
	assert.Greater(t, f[4], 0.5, "last WOBI")
	assert.Equal(t, 0.8, f[6])
	assert.Equal(t, strategic.Score, f[7])
	assert.Equal(t, 0.0, f[8])
	assert.Equal(t, 0.0, f[10])
}

func TestThresholdFiltersWeakStrategic(t *testing.T) {
	tiers := newTestHierarchy(t, indicator.ModeTextbook, 500*time.Millisecond, 20)
	h := NewHierarchy(HierarchyConfig{SignalThreshold: 0.95}, tiers.hierarchy.macro, tiers.hierarchy.strategy, tiers.hierarchy.execution)
	h.SetClock(tiers.clock.Now)
	prices := decaying(80)
	for _, p := range prices[:len(prices)-1] {
		h.Evaluate("BTC", flatBook("BTC"), p, 1)
	}
	_, ok := h.Evaluate("BTC", deepBook("BTC", true, 10), prices[len(prices)-1], 1)
	assert.False(t, ok)
	assert.Empty(t, h.Execution().WOBIs("BTC"), "tactical tier never consulted")
}

func TestIndicatorsFromBuffer(t *testing.T) {
	tiers := newTestHierarchy(t, indicator.ModeSimplified, 30*time.Second, 100)
	h := tiers.hierarchy
	assert.False(t, h.Indicators("ETH").HasRSI)
	for i := 0; i < 40; i++ {
		h.Strategy().Update("ETH", 100+float64(i%5), 1)
	}
	snap := h.Indicators("ETH")
	assert.True(t, snap.HasRSI)
	assert.True(t, snap.HasBB)
}
