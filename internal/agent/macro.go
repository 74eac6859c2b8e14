// Package agent hosts the three decision tiers (macro, strategic, tactical)
// and the orchestrator that chains them with per-tier signal caching.
package agent

import (
	"fmt"
	"math"
	"time"

	"tierbot/internal/risk"
	"tierbot/internal/signal"
)

const (
	macroSource       = "MacroFilter"
	poorSharpe        = -0.5
	macroBaseScore    = 0.8
	DefaultMacroTTL   = 60 * time.Second
	macroPassedReason = "Market conditions acceptable"
)

// RiskView is the read-only slice of the risk manager the macro tier needs.
type RiskView interface {
	Snapshot() risk.Snapshot
}

type PositionCounter interface {
	Count() int
}

// MacroFilter 只做放行/否决：放行时方向恒为 NEUTRAL，分数表示账户健康度。
type MacroFilter struct {
	risk      RiskView
	positions PositionCounter
	ttl       time.Duration
}

func NewMacroFilter(rv RiskView, pc PositionCounter, ttl time.Duration) *MacroFilter {
	if ttl <= 0 {
		ttl = DefaultMacroTTL
	}
	return &MacroFilter{risk: rv, positions: pc, ttl: ttl}
}

func (f *MacroFilter) TTL() time.Duration { return f.ttl }

// Analyze checks the account-level vetoes in priority order; the first hit
// yields a no-signal carrying the reason.
func (f *MacroFilter) Analyze(now time.Time) signal.Signal {
	s := f.risk.Snapshot()
	active := 0
	if f.positions != nil {
		active = f.positions.Count()
	}
	l := s.Limits

	switch {
	case s.EmergencyStop:
		return signal.NoSignal(signal.Macro, macroSource, "Emergency stop activated: "+s.StopReason, now)
	case s.DailyPnL <= l.MaxDailyLoss:
		return signal.NoSignal(signal.Macro, macroSource, "Daily loss limit reached", now)
	case s.ConsecutiveLosses >= l.MaxConsecutiveLosses:
		return signal.NoSignal(signal.Macro, macroSource, "Too many consecutive losses", now)
	case active >= l.MaxPositions:
		return signal.NoSignal(signal.Macro, macroSource, fmt.Sprintf("Max positions reached: %d/%d", active, l.MaxPositions), now)
	case s.Trades >= risk.SharpeMinTrades && s.Sharpe < poorSharpe:
		return signal.NoSignal(signal.Macro, macroSource, "Poor Sharpe Ratio", now)
	}

	score := macroBaseScore
	if s.Sharpe > 1 {
		score = math.Min(1, macroBaseScore+(s.Sharpe-1)*0.1)
	}
	meta := map[string]float64{
		"daily_pnl":          s.DailyPnL,
		"consecutive_losses": float64(s.ConsecutiveLosses),
		"sharpe_ratio":       s.Sharpe,
		"active_positions":   float64(active),
	}
	return signal.New(signal.Neutral, score, signal.Macro, now, f.ttl, macroSource, macroPassedReason, meta)
}

// Blocks reports whether a macro signal vetoes trading.
func Blocks(sig signal.Signal) bool {
	return sig.Direction == signal.Neutral && sig.Score == 0
}
