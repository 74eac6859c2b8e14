package risk

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPositionSizeFactors(t *testing.T) {
	cases := []struct {
		name       string
		losses     int
		volatility float64
		confidence float64
		want       float64
	}{
		{"calm market full confidence", 0, 0.01, 1.0, 500000},
		{"volatility halves size", 0, 0.04, 0.8, 200000},
		{"two losses", 2, 0.02, 1.0, 375000},
		{"three losses", 3, 0.02, 1.0, 250000},
		{"floor", 4, 0.5, 0.1, 100000},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m, _ := newTestManager(t)
			for i := 0; i < tc.losses; i++ {
				m.RecordTrade(-1)
			}
			assert.InDelta(t, tc.want, m.PositionSize(tc.volatility, tc.confidence), 1e-6)
		})
	}
}

func TestPositionSizeSharpeBand(t *testing.T) {
	m, _ := newTestManager(t)
	for i := 0; i < 10; i++ {
		m.RecordTrade(float64(100 + i))
	}
	// all winners with small dispersion: sharpe far above 2
	assert.InDelta(t, 600000, m.PositionSize(0.02, 1.0), 1e-6)

	poor, _ := newTestManager(t)
	for i := 0; i < 10; i++ {
		if i%2 == 0 {
			poor.RecordTrade(100)
		} else {
			poor.RecordTrade(-300)
		}
	}
	// sharpe < 0 gives 0.7, last trade is a loss so consecutive=1
	assert.InDelta(t, 350000, poor.PositionSize(0.02, 1.0), 1e-6)
}

func TestPositionSizeAlwaysWithinBounds(t *testing.T) {
	m, _ := newTestManager(t)
	lo, hi := 0.2*500000.0, math.Min(1.5*500000, 1000000)
	vols := []float64{0, 1e-6, 0.005, 0.02, 0.3, 10, math.NaN(), -1, math.Inf(1)}
	confs := []float64{0, 0.3, 0.6, 1, 5, math.NaN()}
	for _, v := range vols {
		for _, c := range confs {
			size := m.PositionSize(v, c)
			assert.GreaterOrEqual(t, size, lo, "vol=%v conf=%v", v, c)
			assert.LessOrEqual(t, size, hi, "vol=%v conf=%v", v, c)
		}
	}
}

func TestSizeBoundsRespectCeiling(t *testing.T) {
	l := DefaultLimits()
	l.MaxPositionSize = 600000
	lo, hi := sizeBounds(l)
	assert.Equal(t, 100000.0, lo)
	assert.Equal(t, 600000.0, hi)
}
