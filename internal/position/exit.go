package position

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// ExitRules 为统一的平仓条件；费率为比例（0.0015 = 0.15%）。
type ExitRules struct {
	TakeProfit      float64
	StopLoss        float64
	TimeCut         time.Duration
	TrailingEnabled bool
	TrailingPct     float64
}

func DefaultExitRules() ExitRules {
	return ExitRules{
		TakeProfit:  0.0015,
		StopLoss:    0.001,
		TimeCut:     60 * time.Second,
		TrailingPct: 0.0005,
	}
}

// Evaluate checks take-profit, stop-loss, trailing stop and time-cut in that
// order; the first hit wins.
func (r ExitRules) Evaluate(p Position, price float64, now time.Time) (ExitReason, bool) {
	return r.EvaluateAt(p, price, price, now)
}

// EvaluateAt separates the price the PnL is realised at (exitPrice, e.g. the
// bid after slippage) from the price the trailing stop tracks (markPrice).
func (r ExitRules) EvaluateAt(p Position, exitPrice, markPrice float64, now time.Time) (ExitReason, bool) {
	rate := pnlRate(p, exitPrice)
	if r.TakeProfit > 0 && rate.GreaterThanOrEqual(decFromFloat(r.TakeProfit)) {
		return ExitTakeProfit, true
	}
	if r.StopLoss > 0 && rate.LessThanOrEqual(decFromFloat(-r.StopLoss)) {
		return ExitStopLoss, true
	}
	if trailingHit(p, markPrice, r) {
		return ExitTrailingStop, true
	}
	if r.TimeCut > 0 && now.Sub(p.EntryTime) > r.TimeCut {
		return ExitTimeCut, true
	}
	return ExitNone, false
}

func trailingHit(p Position, price float64, r ExitRules) bool {
	if !r.TrailingEnabled || r.TrailingPct <= 0 || price <= 0 {
		return false
	}
	pct := decFromFloat(r.TrailingPct)
	switch p.Side {
	case Short:
		if p.LowWater <= 0 {
			return false
		}
		low := decFromFloat(p.LowWater)
		return decFromFloat(price).Sub(low).Div(low).GreaterThanOrEqual(pct)
	default:
		if p.HighWater <= 0 {
			return false
		}
		high := decFromFloat(p.HighWater)
		return high.Sub(decFromFloat(price)).Div(high).GreaterThanOrEqual(pct)
	}
}

func pnlRate(p Position, price float64) decimal.Decimal {
	if p.EntryPrice <= 0 {
		return decimal.Zero
	}
	entry := decFromFloat(p.EntryPrice)
	diff := decFromFloat(price).Sub(entry)
	if p.Side == Short {
		diff = diff.Neg()
	}
	return diff.Div(entry)
}

func decFromFloat(v float64) decimal.Decimal {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return decimal.Zero
	}
	return decimal.NewFromFloat(v)
}
