package agent

import "math"

const (
	// FeatureCount is the length of the vector handed to the entry filter.
	FeatureCount = 11

	featureMinWOBIs  = 10
	pnlNormalisation = 100000
	featureEps       = 1e-6
)

// Features builds the entry-filter input for symbol:
//
//	rsi/100, macd momentum, histogram sign, bb position, last WOBI,
//	volatility*100, macro score, strategic score, position load,
//	loss-streak load, normalised daily pnl.
//
// It returns false while indicators or WOBI history are insufficient.
func (h *Hierarchy) Features(symbol string) ([]float64, bool) {
	prices := h.strategy.Buffer(symbol).Prices()
	if len(prices) < h.strategy.MinPrices() {
		return nil, false
	}
	snap := h.strategy.Calculator().Compute(prices, nil)
	if !snap.Complete() {
		return nil, false
	}
	wobis := h.execution.WOBIs(symbol)
	if len(wobis) < featureMinWOBIs {
		return nil, false
	}

	macroScore, strategicScore := 0.5, 0.5
	macro, strategic, haveMacro, haveStrategic := h.LastSignals(symbol)
	if haveMacro {
		macroScore = macro.Score
	}
	if haveStrategic {
		strategicScore = strategic.Score
	}

	rs := h.macro.risk.Snapshot()
	active := 0
	if h.macro.positions != nil {
		active = h.macro.positions.Count()
	}

	return []float64{
		snap.RSI / 100,
		(snap.MACD - snap.MACDSignal) / (math.Abs(snap.MACD) + featureEps),
		snap.MACDHist / (math.Abs(snap.MACDHist) + featureEps),
		snap.BBPosition,
		wobis[len(wobis)-1],
		Volatility(prices) * 100,
		macroScore,
		strategicScore,
		float64(active) / float64(max(rs.Limits.MaxPositions, 1)),
		float64(rs.ConsecutiveLosses) / float64(max(rs.Limits.MaxConsecutiveLosses, 1)),
		math.Max(-1, math.Min(1, rs.DailyPnL/pnlNormalisation)),
	}, true
}
