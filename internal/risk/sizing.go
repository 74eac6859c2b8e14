package risk

import "math"

// PositionSize returns the quote-currency notional for a new entry:
// base × volatility × confidence × sharpe × consecutive-loss factors,
// clamped to [MinSizeFactor·base, min(MaxSizeFactor·base, MaxPositionSize)].
func (m *Manager) PositionSize(volatility, confidence float64) float64 {
	m.mu.Lock()
	m.rollover()
	l := m.limits
	sh := sharpe(m.history)
	n := len(m.history)
	consec := m.consecutive
	m.mu.Unlock()

	lo, hi := sizeBounds(l)
	if invalid(volatility) || invalid(confidence) {
		return lo
	}
	size := l.BaseSize *
		volatilityFactor(volatility, l.TargetVolatility) *
		confidence *
		sharpeFactor(sh, n) *
		consecutiveFactor(consec)
	return math.Max(lo, math.Min(hi, size))
}

func sizeBounds(l Limits) (lo, hi float64) {
	minF, maxF := l.MinSizeFactor, l.MaxSizeFactor
	if minF <= 0 {
		minF = 0.2
	}
	if maxF <= 0 {
		maxF = 1.5
	}
	lo = minF * l.BaseSize
	hi = maxF * l.BaseSize
	if l.MaxPositionSize > 0 && l.MaxPositionSize < hi {
		hi = l.MaxPositionSize
	}
	if hi < lo {
		lo = hi
	}
	return lo, hi
}

func volatilityFactor(vol, target float64) float64 {
	if vol <= 0 || target <= 0 {
		return 1
	}
	return math.Min(1, target/vol)
}

func sharpeFactor(sharpe float64, trades int) float64 {
	if trades < SharpeMinTrades {
		return 1.0
	}
	switch {
	case sharpe > 2:
		return 1.2
	case sharpe > 1:
		return 1.1
	case sharpe > 0:
		return 1.0
	default:
		return 0.7
	}
}

func consecutiveFactor(losses int) float64 {
	switch {
	case losses >= 3:
		return 0.5
	case losses >= 2:
		return 0.75
	default:
		return 1.0
	}
}

func invalid(v float64) bool {
	return math.IsNaN(v) || math.IsInf(v, 0) || v < 0
}
