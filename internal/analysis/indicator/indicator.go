// Package indicator computes the technical indicators consumed by the
// strategic tier. Every function is pure and reports "unavailable" through a
// false second return value instead of failing on short input.
package indicator

import "math"

// MACDResult 为 MACD 最新一期的三条线。
type MACDResult struct {
	Line      float64 `json:"line"`
	Signal    float64 `json:"signal"`
	Histogram float64 `json:"histogram"`
}

// BollingerResult 为布林带最新一期，Position 已被裁剪到 [-1, 1]。
type BollingerResult struct {
	Upper    float64 `json:"upper"`
	Middle   float64 `json:"middle"`
	Lower    float64 `json:"lower"`
	Position float64 `json:"position"`
}

type StochasticResult struct {
	K float64 `json:"k"`
	D float64 `json:"d"`
}

// EMA is seeded with series[0] and walks the whole series with k = 2/(period+1).
func EMA(series []float64, period int) (float64, bool) {
	if period <= 0 || len(series) < period {
		return 0, false
	}
	k := 2.0 / float64(period+1)
	ema := series[0]
	for _, p := range series[1:] {
		ema = p*k + ema*(1-k)
	}
	return ema, true
}

// RSI uses a simple mean over the first period deltas, then Wilder smoothing.
func RSI(series []float64, period int) (float64, bool) {
	if period <= 0 || len(series) < period+1 {
		return 0, false
	}
	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		g, l := splitDelta(series[i] - series[i-1])
		avgGain += g
		avgLoss += l
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)
	for i := period + 1; i < len(series); i++ {
		g, l := splitDelta(series[i] - series[i-1])
		avgGain = (avgGain*float64(period-1) + g) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + l) / float64(period)
	}
	if avgLoss == 0 {
		return 100, true
	}
	rsi := 100 - 100/(1+avgGain/avgLoss)
	return clamp(rsi, 0, 100), true
}

func splitDelta(d float64) (gain, loss float64) {
	if d > 0 {
		return d, 0
	}
	return 0, -d
}

// MACD 的信号线取最近 signal 个价格的 EMA，而非 MACD 序列的 EMA。
// 这是沿用既有回测结果的简化口径，标准口径见 MACDTextbook。
func MACD(series []float64, fast, slow, signal int) (MACDResult, bool) {
	if fast <= 0 || slow <= 0 || signal <= 0 || len(series) < slow+signal {
		return MACDResult{}, false
	}
	fastEMA, ok := EMA(tail(series, fast), fast)
	if !ok {
		return MACDResult{}, false
	}
	slowEMA, ok := EMA(tail(series, slow), slow)
	if !ok {
		return MACDResult{}, false
	}
	sig, ok := EMA(tail(series, signal), signal)
	if !ok {
		return MACDResult{}, false
	}
	line := fastEMA - slowEMA
	return MACDResult{Line: line, Signal: sig, Histogram: line - sig}, true
}

// Bollinger uses the sample standard deviation (n-1) of the last period prices.
func Bollinger(series []float64, period int, k float64) (BollingerResult, bool) {
	if period < 2 || len(series) < period {
		return BollingerResult{}, false
	}
	window := tail(series, period)
	mid := mean(window)
	var ss float64
	for _, v := range window {
		ss += (v - mid) * (v - mid)
	}
	std := math.Sqrt(ss / float64(period-1))
	res := BollingerResult{
		Upper:  mid + k*std,
		Middle: mid,
		Lower:  mid - k*std,
	}
	if res.Upper == res.Lower {
		return res, true
	}
	last := series[len(series)-1]
	res.Position = clamp((last-mid)/(res.Upper-mid), -1, 1)
	return res, true
}

// Stochastic 的 %D 直接等于 %K（简化口径）；区间无波动时 %K 为 50。
func Stochastic(series []float64, kPeriod, dPeriod int) (StochasticResult, bool) {
	if kPeriod <= 0 || dPeriod <= 0 || len(series) < kPeriod {
		return StochasticResult{}, false
	}
	k := percentK(tail(series, kPeriod))
	return StochasticResult{K: k, D: k}, true
}

func percentK(window []float64) float64 {
	lo, hi := window[0], window[0]
	for _, v := range window[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if hi == lo {
		return 50
	}
	return (window[len(window)-1] - lo) / (hi - lo) * 100
}

// VolumeRatio is the last volume over the mean of the trailing window, which
// includes the last volume itself.
func VolumeRatio(volumes []float64, period int) (float64, bool) {
	if period <= 0 || len(volumes) < period {
		return 0, false
	}
	avg := mean(tail(volumes, period))
	if avg == 0 {
		return 0, false
	}
	return volumes[len(volumes)-1] / avg, true
}

func tail(series []float64, n int) []float64 {
	if n >= len(series) {
		return series
	}
	return series[len(series)-n:]
}

func mean(series []float64) float64 {
	if len(series) == 0 {
		return 0
	}
	var sum float64
	for _, v := range series {
		sum += v
	}
	return sum / float64(len(series))
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
