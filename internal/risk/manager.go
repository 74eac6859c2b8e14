// Package risk gates entries, sizes positions and owns the emergency stop.
package risk

import (
	"fmt"
	"math"
	"sync"
	"time"

	"tierbot/internal/logger"
	"tierbot/internal/scheduler"
)

// SharpeMinTrades is the sample size below which the trailing Sharpe ratio
// is ignored, both by the macro veto and by the size multiplier.
const SharpeMinTrades = 10

// Limits 为账户级风控参数，可在运行时热更新。
type Limits struct {
	MaxDailyLoss         float64 // 负数，例如 -100000
	MaxConsecutiveLosses int
	MaxPositions         int
	MaxPositionSize      float64
	BaseSize             float64
	TargetVolatility     float64
	MinSizeFactor        float64
	MaxSizeFactor        float64
}

func DefaultLimits() Limits {
	return Limits{
		MaxDailyLoss:         -100000,
		MaxConsecutiveLosses: 5,
		MaxPositions:         3,
		MaxPositionSize:      1000000,
		BaseSize:             500000,
		TargetVolatility:     0.02,
		MinSizeFactor:        0.2,
		MaxSizeFactor:        1.5,
	}
}

// Snapshot is a consistent copy of the daily risk state.
type Snapshot struct {
	Day               string
	DailyPnL          float64
	PeakPnL           float64
	Trades            int
	Wins              int
	Losses            int
	ConsecutiveLosses int
	Sharpe            float64
	EmergencyStop     bool
	StopReason        string
	Limits            Limits
}

// DailyStats 用于日报与 /status。
type DailyStats struct {
	Date              string  `json:"date"`
	PnL               float64 `json:"pnl"`
	PeakPnL           float64 `json:"peak_pnl"`
	Drawdown          float64 `json:"drawdown"`
	Trades            int     `json:"trades"`
	Wins              int     `json:"wins"`
	Losses            int     `json:"losses"`
	WinRate           float64 `json:"win_rate"`
	ConsecutiveLosses int     `json:"consecutive_losses"`
	EmergencyStop     bool    `json:"emergency_stop"`
	StopReason        string  `json:"stop_reason,omitempty"`
}

type Option func(*Manager)

func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

func WithLocation(loc *time.Location) Option {
	return func(m *Manager) {
		if loc != nil {
			m.loc = loc
		}
	}
}

type Manager struct {
	mu     sync.Mutex
	limits Limits
	loc    *time.Location
	now    func() time.Time

	day         time.Time
	dailyPnL    float64
	peakPnL     float64
	trades      int
	wins        int
	losses      int
	consecutive int
	history     []float64

	stopped    bool
	stopReason string

	previous *DailyStats
}

func NewManager(limits Limits, opts ...Option) *Manager {
	m := &Manager{limits: limits, loc: time.UTC, now: time.Now}
	for _, opt := range opts {
		opt(m)
	}
	m.resetDay(m.now())
	return m
}

func (m *Manager) resetDay(now time.Time) {
	m.day = scheduler.DayStart(m.loc, now)
	m.dailyPnL = 0
	m.peakPnL = 0
	m.trades = 0
	m.wins = 0
	m.losses = 0
	m.consecutive = 0
	m.history = nil
}

// rollover resets the daily counters once per calendar day. The emergency
// stop survives the rollover. Caller holds m.mu.
func (m *Manager) rollover() {
	now := m.now()
	if !scheduler.DayStart(m.loc, now).After(m.day) {
		return
	}
	logger.Infof("risk: new trading day %s, previous pnl=%.0f trades=%d", scheduler.DayKey(m.loc, now), m.dailyPnL, m.trades)
	prev := m.statsLocked()
	m.previous = &prev
	m.resetDay(now)
}

// CanEnter checks, in order: emergency stop, daily loss, consecutive
// losses, open positions and the position size ceiling.
func (m *Manager) CanEnter(positionCount int, estimatedCost float64) (bool, string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rollover()

	switch {
	case m.stopped:
		return false, "EMERGENCY STOP: " + m.stopReason
	case m.dailyPnL < m.limits.MaxDailyLoss:
		return false, fmt.Sprintf("Daily loss limit: %.0f", m.dailyPnL)
	case m.consecutive >= m.limits.MaxConsecutiveLosses:
		return false, fmt.Sprintf("Max consecutive losses: %d", m.consecutive)
	case positionCount >= m.limits.MaxPositions:
		return false, fmt.Sprintf("Max positions: %d/%d", positionCount, m.limits.MaxPositions)
	case estimatedCost > m.limits.MaxPositionSize:
		return false, fmt.Sprintf("Position too large: %.0f", estimatedCost)
	}
	return true, "OK"
}

// RecordTrade 记录一笔已平仓交易的净盈亏；pnl<=0 计为亏损。
// 若当日累计亏损越过阈值，自动触发紧急停止。
func (m *Manager) RecordTrade(pnl float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rollover()

	m.dailyPnL += pnl
	m.trades++
	m.history = append(m.history, pnl)
	if pnl > 0 {
		m.wins++
		m.consecutive = 0
		m.peakPnL = math.Max(m.peakPnL, m.dailyPnL)
	} else {
		m.losses++
		m.consecutive++
	}
	if m.dailyPnL < m.limits.MaxDailyLoss && !m.stopped {
		m.stopped = true
		m.stopReason = fmt.Sprintf("daily loss limit breached: %.0f", m.dailyPnL)
		logger.Errorf("risk: emergency stop activated (%s)", m.stopReason)
	}
}

// SharpeRatio is mean/std of trade pnl annualised by sqrt(252), using the
// population standard deviation.
func (m *Manager) SharpeRatio() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rollover()
	return sharpe(m.history)
}

func sharpe(pnls []float64) float64 {
	if len(pnls) < 2 {
		return 0
	}
	var sum float64
	for _, p := range pnls {
		sum += p
	}
	mean := sum / float64(len(pnls))
	var ss float64
	for _, p := range pnls {
		ss += (p - mean) * (p - mean)
	}
	std := math.Sqrt(ss / float64(len(pnls)))
	if std == 0 {
		return 0
	}
	return mean / std * math.Sqrt(252)
}

func (m *Manager) Activate(reason string) {
	m.mu.Lock()
	m.stopped = true
	m.stopReason = reason
	m.mu.Unlock()
	logger.Errorf("risk: EMERGENCY STOP ACTIVATED: %s", reason)
}

func (m *Manager) Deactivate() {
	m.mu.Lock()
	m.stopped = false
	m.stopReason = ""
	m.mu.Unlock()
	logger.Infof("risk: emergency stop deactivated")
}

func (m *Manager) Stopped() (bool, string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stopped, m.stopReason
}

func (m *Manager) Limits() Limits {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.limits
}

// UpdateLimits swaps the limits in place; counters are kept.
func (m *Manager) UpdateLimits(l Limits) {
	m.mu.Lock()
	m.limits = l
	m.mu.Unlock()
	logger.Infof("risk: limits updated max_daily_loss=%.0f max_consec=%d max_positions=%d",
		l.MaxDailyLoss, l.MaxConsecutiveLosses, l.MaxPositions)
}

func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rollover()
	return m.snapshotLocked()
}

func (m *Manager) snapshotLocked() Snapshot {
	return Snapshot{
		Day:               m.day.Format("2006-01-02"),
		DailyPnL:          m.dailyPnL,
		PeakPnL:           m.peakPnL,
		Trades:            m.trades,
		Wins:              m.wins,
		Losses:            m.losses,
		ConsecutiveLosses: m.consecutive,
		Sharpe:            sharpe(m.history),
		EmergencyStop:     m.stopped,
		StopReason:        m.stopReason,
		Limits:            m.limits,
	}
}

func (m *Manager) DailyStats() DailyStats {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rollover()
	return m.statsLocked()
}

// PreviousDay returns the final stats of the last completed trading day,
// captured when the counters rolled over.
func (m *Manager) PreviousDay() (DailyStats, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rollover()
	if m.previous == nil {
		return DailyStats{}, false
	}
	return *m.previous, true
}

func (m *Manager) statsLocked() DailyStats {
	s := m.snapshotLocked()
	trades := s.Trades
	if trades < 1 {
		trades = 1
	}
	return DailyStats{
		Date:              s.Day,
		PnL:               s.DailyPnL,
		PeakPnL:           s.PeakPnL,
		Drawdown:          s.DailyPnL - s.PeakPnL,
		Trades:            s.Trades,
		Wins:              s.Wins,
		Losses:            s.Losses,
		WinRate:           float64(s.Wins) / float64(trades),
		ConsecutiveLosses: s.ConsecutiveLosses,
		EmergencyStop:     s.EmergencyStop,
		StopReason:        s.StopReason,
	}
}
