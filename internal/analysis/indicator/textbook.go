package indicator

import (
	"math"

	"github.com/markcheno/go-talib"
)

// MACDTextbook computes the signal line as the EMA of the MACD series itself
// (TA-Lib semantics, SMA-seeded EMAs).
func MACDTextbook(series []float64, fast, slow, signal int) (MACDResult, bool) {
	if fast <= 0 || slow <= 0 || signal <= 0 || len(series) < slow+signal {
		return MACDResult{}, false
	}
	line, sig, hist := talib.Macd(series, fast, slow, signal)
	n := len(series) - 1
	if n >= len(line) || !finite(line[n], sig[n], hist[n]) {
		return MACDResult{}, false
	}
	return MACDResult{Line: line[n], Signal: sig[n], Histogram: hist[n]}, true
}

// StochasticTextbook 的 %D 为最近 dPeriod 个 %K 的简单均值。
// 只有收盘价序列，因此高低点取窗口内价格的极值。
func StochasticTextbook(series []float64, kPeriod, dPeriod int) (StochasticResult, bool) {
	if kPeriod <= 0 || dPeriod <= 0 || len(series) < kPeriod+dPeriod-1 {
		return StochasticResult{}, false
	}
	if kPeriod < 2 {
		return Stochastic(series, kPeriod, dPeriod)
	}
	highs := talib.Max(series, kPeriod)
	lows := talib.Min(series, kPeriod)
	ks := make([]float64, 0, len(series)-kPeriod+1)
	for i := kPeriod - 1; i < len(series); i++ {
		hi, lo := highs[i], lows[i]
		if hi == lo {
			ks = append(ks, 50)
			continue
		}
		ks = append(ks, (series[i]-lo)/(hi-lo)*100)
	}
	k := ks[len(ks)-1]
	d := mean(tail(ks, dPeriod))
	if dPeriod > 1 {
		sma := talib.Sma(ks, dPeriod)
		if v := sma[len(sma)-1]; finite(v) {
			d = v
		}
	}
	return StochasticResult{K: k, D: d}, true
}

func finite(vals ...float64) bool {
	for _, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
