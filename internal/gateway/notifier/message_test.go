package notifier

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"

	"tierbot/internal/analysis/indicator"
	"tierbot/internal/position"
	"tierbot/internal/risk"
)

func TestMarkdownTruncates(t *testing.T) {
	msg := Message{Title: "x", Footer: strings.Repeat("a", 5000)}
	out := msg.Markdown()
	assert.True(t, strings.HasSuffix(out, "..."))
	assert.LessOrEqual(t, len(out), maxMessageRunes+3)
}

func TestMarkdownCutsOnRuneBoundary(t *testing.T) {
	msg := Message{Footer: strings.Repeat("止损", 3000)}
	out := msg.Markdown()
	assert.True(t, utf8.ValidString(out))
	assert.Equal(t, maxMessageRunes+3, utf8.RuneCountInString(out))
}

func TestMarkdownSections(t *testing.T) {
	msg := Message{
		Title: "T",
		Sections: []Section{
			{Title: "A", Lines: []string{"one", " "}},
			{Title: "empty", Lines: []string{""}},
			{Lines: []string{"has ``` fence"}},
		},
	}
	assert.Equal(t, "T\n\n```\n[A]\n- one\n\n- has ''' fence\n```", msg.Markdown())
}

func TestEntryMessage(t *testing.T) {
	at := time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)
	p := position.Position{
		Symbol: "BTCUSDT", Side: position.Long, EntryTime: at,
		EntryPrice: 100, Amount: 2, SignalScore: 0.75,
		Indicators: indicator.Snapshot{RSI: 28.5, HasRSI: true},
	}
	out := EntryMessage(p, 2.4).Markdown()
	assert.Contains(t, out, "ENTRY LONG BTCUSDT")
	assert.Contains(t, out, "cost: 200.00")
	assert.Contains(t, out, "wobi z: 2.40")
	assert.Contains(t, out, "rsi: 28.5")
	assert.Contains(t, out, "macd: n/a")
	assert.Contains(t, out, "2024-05-01 09:30:00")
}

func TestExitMessage(t *testing.T) {
	tr := position.Trade{
		Symbol: "ETHUSDT", Side: position.Long, EntryPrice: 100, ExitPrice: 101,
		Amount: 1, PnL: 0.8, Reason: position.ExitTakeProfit, Holding: 42 * time.Second,
	}
	out := ExitMessage(tr).Markdown()
	assert.Contains(t, out, "✅ EXIT LONG ETHUSDT [TP]")
	assert.Contains(t, out, "return: +0.800%")
	assert.Contains(t, out, "hold: 42s")

	tr.PnL = 0
	assert.Contains(t, ExitMessage(tr).Markdown(), "🔴")
}

func TestDailyReportMessage(t *testing.T) {
	s := risk.DailyStats{Date: "2024-05-01", PnL: -120, Trades: 4, Wins: 1, Losses: 3, WinRate: 0.25,
		ConsecutiveLosses: 2, EmergencyStop: true, StopReason: "daily loss"}
	out := DailyReportMessage(s, time.Time{}).Markdown()
	assert.Contains(t, out, "Daily Report 2024-05-01")
	assert.Contains(t, out, "win rate: 25.0% (1W/3L)")
	assert.Contains(t, out, "emergency stop active: daily loss")
	assert.NotContains(t, out, "时间")
}

func TestEmergencyMessage(t *testing.T) {
	out := EmergencyMessage("User command", time.Time{}).Markdown()
	assert.Equal(t, "🚨 EMERGENCY STOP\n\nUser command", out)
}
