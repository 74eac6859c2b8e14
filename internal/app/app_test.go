package app

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"tierbot/internal/analysis/indicator"
	"tierbot/internal/config"
	"tierbot/internal/gateway/notifier"
	"tierbot/internal/position"
	"tierbot/internal/risk"
	"tierbot/internal/store"
	"tierbot/internal/store/sqlite"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadConfig(t *testing.T, body string) *config.Config {
	t.Helper()
	dir := t.TempDir()
	body += "\nstore:\n  journal_path: " + filepath.Join(dir, "db", "journal.db") +
		"\n  backtest_dir: " + filepath.Join(dir, "backtest") + "\n"
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	cfg, err := config.Load(path)
	require.NoError(t, err)
	return cfg
}

func TestConfigMapping(t *testing.T) {
	cfg := loadConfig(t, `
trading:
  trade_amount: 2000
exit:
  take_profit: 0.002
  time_cut: 45s
  trailing_enabled: true
  trailing_pct: 0.0007
indicator:
  mode: textbook
  rsi_period: 10
risk:
  max_positions: 4
`)
	limits := RiskLimits(cfg)
	assert.Equal(t, 4, limits.MaxPositions)
	assert.Equal(t, 2000.0, limits.BaseSize)

	rules := ExitRules(cfg)
	assert.Equal(t, 0.002, rules.TakeProfit)
	assert.Equal(t, 45*time.Second, rules.TimeCut)
	assert.True(t, rules.TrailingEnabled)
	assert.Equal(t, 0.0007, rules.TrailingPct)

	params := IndicatorParams(cfg)
	assert.Equal(t, indicator.ModeTextbook, params.Mode)
	assert.Equal(t, 10, params.RSIPeriod)

	bt := BacktestConfig(cfg, "ETHUSDT")
	assert.Equal(t, "ETHUSDT", bt.Symbol)
	assert.Equal(t, 2000.0, bt.TradeAmount)
	assert.Equal(t, rules, bt.Exit)
}

func TestProvideGateAndTelegram(t *testing.T) {
	cfg := loadConfig(t, "")
	assert.Nil(t, provideGate(cfg))
	assert.Nil(t, provideTelegram(cfg))

	cfg = loadConfig(t, `
filter:
  enabled: true
  url: http://127.0.0.1:9/predict
  threshold: 0.65
notifier:
  enabled: true
  telegram_token: tok
  chat_id: "42"
  api_base: http://127.0.0.1:9
`)
	gate := provideGate(cfg)
	require.NotNil(t, gate)
	assert.Equal(t, 0.65, gate.Threshold)
	tg := provideTelegram(cfg)
	require.NotNil(t, tg)
	assert.Equal(t, "http://127.0.0.1:9", tg.APIBase)
	assert.Equal(t, "42", tg.ChatID)

	outbox, flush := provideOutbox(tg)
	require.NotNil(t, outbox)
	flush()
	assert.ErrorIs(t, outbox.SendText(context.Background(), "late"), notifier.ErrClosed)

	none, flush := provideOutbox(nil)
	assert.Nil(t, none)
	flush()
}

func TestProvideExchangeRejectsUnknown(t *testing.T) {
	cfg := loadConfig(t, "exchange:\n  name: kraken\n")
	_, err := provideExchange(cfg)
	require.Error(t, err)
}

func TestReplayToday(t *testing.T) {
	s, err := sqlite.NewSqliteStore(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	j := store.NewJournal(s)
	defer j.Close()

	ctx := context.Background()
	now := time.Date(2024, 3, 2, 15, 0, 0, 0, time.UTC)
	record := func(id string, exit time.Time, pnl float64) {
		require.NoError(t, j.RecordTrade(ctx, position.Trade{
			ID: id, Symbol: "BTCUSDT", Side: position.Long,
			EntryTime: exit.Add(-time.Minute), ExitTime: exit,
			EntryPrice: 100, ExitPrice: 101, Amount: 1, PnL: pnl,
			Reason: position.ExitTakeProfit,
		}))
	}
	record("yesterday", now.Add(-20*time.Hour), 50)
	record("a", now.Add(-2*time.Hour), 10)
	record("b", now.Add(-time.Hour), -4)

	rm := risk.NewManager(risk.DefaultLimits(), risk.WithClock(func() time.Time { return now }), risk.WithLocation(time.UTC))
	n, err := replayToday(ctx, j, rm, time.UTC, now)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	stats := rm.DailyStats()
	assert.Equal(t, 2, stats.Trades)
	assert.InDelta(t, 6, stats.PnL, 1e-9)
	assert.Equal(t, 1, stats.Wins)
	assert.Equal(t, 1, stats.ConsecutiveLosses)
}

func TestProvideJournalCleanupCloses(t *testing.T) {
	cfg := loadConfig(t, "")
	j, cleanup, err := provideJournal(cfg)
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, j.SaveDailyReport(ctx, risk.DailyStats{Date: "2024-03-01"}))

	cleanup()
	assert.Error(t, j.SaveDailyReport(ctx, risk.DailyStats{Date: "2024-03-02"}))
}

func TestBuildFailsOnBadBacktestDir(t *testing.T) {
	cfg := loadConfig(t, "")
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))
	cfg.Store.BacktestDir = filepath.Join(blocker, "runs")

	a, cleanup, err := buildAppWithWire(cfg, "")
	require.Error(t, err)
	assert.Nil(t, a)
	assert.Nil(t, cleanup)

	// the journal opened before the failure was released, so it opens again cleanly
	j, closeJournal, err := provideJournal(cfg)
	require.NoError(t, err)
	defer closeJournal()
	require.NoError(t, j.SaveDailyReport(context.Background(), risk.DailyStats{Date: "2024-03-01"}))
}

func TestNewBuildsApp(t *testing.T) {
	cfg := loadConfig(t, "trading:\n  symbols: [BTCUSDT, ETHUSDT]\n")
	a, err := New(context.Background(), cfg, "")
	require.NoError(t, err)
	defer a.Close()

	require.NotNil(t, a.Bot())
	assert.Equal(t, []string{"BTCUSDT", "ETHUSDT"}, a.Bot().Config().Symbols)
	assert.NotNil(t, a.liveHTTP)

	a.applyConfig(loadConfig(t, "risk:\n  max_positions: 7\nexit:\n  take_profit: 0.004\n"))
	assert.Equal(t, 7, a.risk.Limits().MaxPositions)
	assert.Equal(t, 0.004, a.positions.Rules().TakeProfit)
}

func TestStartupSummary(t *testing.T) {
	cfg := loadConfig(t, "trading:\n  preset: aggressive\n")
	var buf bytes.Buffer
	NewStartupSummary(cfg).Fprint(&buf)
	out := buf.String()
	assert.Contains(t, out, "BTCUSDT")
	assert.Contains(t, out, "预设: aggressive")
	assert.Contains(t, out, "trailing=")
	assert.Contains(t, out, "http ")
}
