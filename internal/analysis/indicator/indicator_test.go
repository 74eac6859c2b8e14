package indicator

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ramp(n int, start, step float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = start + float64(i)*step
	}
	return out
}

func flat(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func TestEMA(t *testing.T) {
	v, ok := EMA([]float64{1, 2, 3}, 3)
	require.True(t, ok)
	assert.InDelta(t, 2.25, v, 1e-12)

	_, ok = EMA([]float64{1, 2}, 3)
	assert.False(t, ok)
	_, ok = EMA(nil, 0)
	assert.False(t, ok)
}

func TestRSI(t *testing.T) {
	t.Run("rising series saturates at 100", func(t *testing.T) {
		v, ok := RSI(ramp(30, 100, 1), 14)
		require.True(t, ok)
		assert.Equal(t, 100.0, v)
	})
	t.Run("falling series is 0", func(t *testing.T) {
		v, ok := RSI(ramp(30, 100, -1), 14)
		require.True(t, ok)
		assert.InDelta(t, 0, v, 1e-9)
	})
	t.Run("needs period+1 prices", func(t *testing.T) {
		_, ok := RSI(ramp(14, 100, 1), 14)
		assert.False(t, ok)
		_, ok = RSI(ramp(15, 100, 1), 14)
		assert.True(t, ok)
	})
	t.Run("always within bounds", func(t *testing.T) {
		series := make([]float64, 80)
		for i := range series {
			series[i] = 100 + 5*math.Sin(float64(i)/3)
		}
		v, ok := RSI(series, 14)
		require.True(t, ok)
		assert.GreaterOrEqual(t, v, 0.0)
		assert.LessOrEqual(t, v, 100.0)
	})
}

func TestMACD(t *testing.T) {
	_, ok := MACD(ramp(34, 1, 1), 12, 26, 9)
	assert.False(t, ok)

	res, ok := MACD(flat(40, 50), 12, 26, 9)
	require.True(t, ok)
	assert.InDelta(t, 0, res.Line, 1e-9)
	assert.InDelta(t, 0, res.Histogram, 1e-9)

	up, ok := MACD(ramp(60, 100, 1), 12, 26, 9)
	require.True(t, ok)
	assert.Greater(t, up.Line, 0.0)
	assert.InDelta(t, up.Line-up.Signal, up.Histogram, 1e-12)
}

func TestBollinger(t *testing.T) {
	res, ok := Bollinger(flat(25, 10), 20, 2)
	require.True(t, ok)
	assert.Equal(t, 0.0, res.Position)
	assert.Equal(t, 10.0, res.Middle)

	res, ok = Bollinger(ramp(20, 1, 1), 20, 2)
	require.True(t, ok)
	assert.InDelta(t, 10.5, res.Middle, 1e-12)
	assert.InDelta(t, 9.5/(2*math.Sqrt(35)), res.Position, 1e-9)

	_, ok = Bollinger(ramp(19, 1, 1), 20, 2)
	assert.False(t, ok)
}

func TestBollingerPositionClipped(t *testing.T) {
	series := append(flat(19, 100), 1000)
	res, ok := Bollinger(series, 20, 0.5)
	require.True(t, ok)
	assert.Equal(t, 1.0, res.Position)
}

func TestStochastic(t *testing.T) {
	res, ok := Stochastic(flat(20, 3), 14, 3)
	require.True(t, ok)
	assert.Equal(t, 50.0, res.K)
	assert.Equal(t, res.K, res.D)

	res, ok = Stochastic(ramp(20, 1, 1), 14, 3)
	require.True(t, ok)
	assert.Equal(t, 100.0, res.K)

	_, ok = Stochastic(ramp(13, 1, 1), 14, 3)
	assert.False(t, ok)
}

func TestVolumeRatio(t *testing.T) {
	v, ok := VolumeRatio([]float64{1, 1, 1, 3}, 4)
	require.True(t, ok)
	assert.InDelta(t, 2.0, v, 1e-12)

	_, ok = VolumeRatio(flat(5, 0), 4)
	assert.False(t, ok)
	_, ok = VolumeRatio([]float64{1, 2}, 4)
	assert.False(t, ok)
}

func TestTextbookMode(t *testing.T) {
	res, ok := MACDTextbook(flat(60, 20), 12, 26, 9)
	require.True(t, ok)
	assert.InDelta(t, 0, res.Line, 1e-9)
	assert.InDelta(t, 0, res.Signal, 1e-9)

	st, ok := StochasticTextbook(ramp(30, 1, 1), 14, 3)
	require.True(t, ok)
	assert.InDelta(t, 100, st.K, 1e-9)
	assert.InDelta(t, 100, st.D, 1e-9)

	_, ok = StochasticTextbook(ramp(15, 1, 1), 14, 3)
	assert.False(t, ok)
}

func TestCalculatorCompute(t *testing.T) {
	calc := NewCalculator(Params{})
	assert.Equal(t, DefaultParams(), calc.Params())

	prices := ramp(60, 100, 0.5)
	snap := calc.Compute(prices, flat(60, 2))
	assert.True(t, snap.Complete())
	assert.True(t, snap.HasStoch)
	assert.True(t, snap.HasVolume)
	assert.Equal(t, 100.0, snap.RSI)
	assert.InDelta(t, 1.0, snap.VolumeRatio, 1e-12)

	short := calc.Compute(prices[:10], nil)
	assert.False(t, short.Complete())
	assert.False(t, short.HasVolume)
}

func TestParseMode(t *testing.T) {
	assert.Equal(t, ModeTextbook, ParseMode(" Textbook "))
	assert.Equal(t, ModeSimplified, ParseMode("anything"))
}
