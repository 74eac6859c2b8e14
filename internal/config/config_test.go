package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeFile(t, t.TempDir(), "config.yaml", `
trading:
  symbols: [" btcusdt ", ethusdt]
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"BTCUSDT", "ETHUSDT"}, cfg.Trading.Symbols)
	assert.Equal(t, 10, cfg.Trading.Depth)
	assert.Equal(t, 0.6, cfg.Trading.SignalThreshold)
	assert.Equal(t, 60*time.Second, cfg.Trading.MacroTTL)
	assert.Equal(t, 30*time.Second, cfg.Trading.StrategyTTL)
	assert.Equal(t, 10*time.Second, cfg.Trading.ExecutionTTL)
	assert.Equal(t, 100*time.Millisecond, cfg.Trading.ExitInterval)
	assert.Equal(t, "simplified", cfg.Indicator.Mode)
	assert.Equal(t, 100, cfg.Execution.WOBIWindow)
	assert.Equal(t, 0.0015, cfg.Exit.TakeProfit)
	assert.False(t, cfg.Exit.TrailingEnabled)
	assert.Equal(t, -100000.0, cfg.Risk.MaxDailyLoss)
	assert.Equal(t, cfg.Trading.TradeAmount, cfg.Risk.BaseSize)
	assert.Equal(t, 5, cfg.Retry.ExitAttempts)
	assert.Equal(t, "info", cfg.App.LogLevel)
	assert.Equal(t, time.UTC, cfg.App.Location())
}

func TestLoadParsesDurationsAndOverrides(t *testing.T) {
	path := writeFile(t, t.TempDir(), "config.yaml", `
trading:
  macro_ttl: 45s
  trade_amount: "250000"
exit:
  time_cut: 1m30s
  trailing_enabled: true
indicator:
  mode: textbook
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 45*time.Second, cfg.Trading.MacroTTL)
	assert.Equal(t, 250000.0, cfg.Trading.TradeAmount)
	assert.Equal(t, 250000.0, cfg.Risk.BaseSize)
	assert.Equal(t, 90*time.Second, cfg.Exit.TimeCut)
	assert.True(t, cfg.Exit.TrailingEnabled)
	assert.Equal(t, "textbook", cfg.Indicator.Mode)
}

func TestLoadIncludes(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "risk.yaml", `
risk:
  max_positions: 5
exit:
  take_profit: 0.003
`)
	path := writeFile(t, dir, "config.yaml", `
include: [risk.yaml]
exit:
  take_profit: 0.002
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Risk.MaxPositions)
	assert.Equal(t, 0.002, cfg.Exit.TakeProfit, "including file wins")
}

func TestLoadIncludeCycle(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.yaml", "include: [b.yaml]\n")
	writeFile(t, dir, "b.yaml", "include: [a.yaml]\n")
	_, err := Load(filepath.Join(dir, "a.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "include cycle")
}

func TestPresets(t *testing.T) {
	t.Run("aggressive", func(t *testing.T) {
		path := writeFile(t, t.TempDir(), "config.yaml", `
trading:
  preset: Aggressive
  signal_threshold: 0.5
`)
		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, "aggressive", cfg.Trading.Preset)
		assert.Equal(t, 0.5, cfg.Trading.SignalThreshold, "explicit key beats preset")
		assert.Equal(t, 30*time.Second, cfg.Trading.MacroTTL)
		assert.Equal(t, 3*time.Second, cfg.Trading.ExecutionTTL)
		assert.Equal(t, 1.3, cfg.Execution.ZThreshold)
		assert.Equal(t, 0.3, cfg.Risk.MinSizeFactor)
		assert.Equal(t, 3500000.0, cfg.Risk.BaseSize)
		assert.True(t, cfg.Exit.TrailingEnabled)
	})
	t.Run("conservative", func(t *testing.T) {
		path := writeFile(t, t.TempDir(), "config.yaml", "trading:\n  preset: conservative\n")
		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, 25*time.Second, cfg.Trading.StrategyTTL)
		assert.Equal(t, 1.4, cfg.Risk.MaxSizeFactor)
		assert.Equal(t, -400000.0, cfg.Risk.MaxDailyLoss)
	})
	t.Run("unknown", func(t *testing.T) {
		path := writeFile(t, t.TempDir(), "config.yaml", "trading:\n  preset: yolo\n")
		_, err := Load(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "trading.preset")
	})
}

func TestValidation(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{"filter without url", "filter:\n  enabled: true\n", "filter.url"},
		{"positive daily loss", "risk:\n  max_daily_loss: 1000\n", "risk.max_daily_loss"},
		{"bad mode", "indicator:\n  mode: fancy\n", "indicator.mode"},
		{"duplicate symbols", "trading:\n  symbols: [BTCUSDT, btc/usdt]\n", "duplicate"},
		{"unknown quote", "trading:\n  symbols: [BTCXYZ]\n", "unrecognised pair"},
		{"notifier without token", "notifier:\n  enabled: true\n", "telegram_token"},
		{"train ratio", "backtest:\n  train_ratio: 1\n", "train_ratio"},
		{"trailing without pct", "exit:\n  trailing_enabled: true\n  trailing_pct: 0\n", "trailing_pct"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := writeFile(t, t.TempDir(), "config.yaml", tc.body)
			_, err := Load(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestSecretsFromEnvironment(t *testing.T) {
	t.Setenv("TIERBOT_EXCHANGE_API_KEY", "key-from-env")
	t.Setenv("TIERBOT_TRADING_DEPTH", "20")
	path := writeFile(t, t.TempDir(), "config.yaml", "trading:\n  depth: 10\n")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "key-from-env", cfg.Exchange.APIKey)
	assert.Equal(t, 20, cfg.Trading.Depth)
}

func TestLoadDotEnv(t *testing.T) {
	const key = "TIERBOT_DOTENV_PROBE"
	t.Cleanup(func() { _ = os.Unsetenv(key) })
	dir := t.TempDir()
	envFile := writeFile(t, dir, ".env", key+"=hello\n")

	require.NoError(t, LoadDotEnv(envFile, filepath.Join(dir, "missing.env")))
	assert.Equal(t, "hello", os.Getenv(key))
}

func TestEmptyPath(t *testing.T) {
	_, err := Load("")
	require.Error(t, err)
}

func TestShippedConfigLoads(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "configs", "config.yaml"))
	require.NoError(t, err)
	assert.Equal(t, []string{"BTCUSDT", "ETHUSDT"}, cfg.Trading.Symbols)
	assert.Equal(t, 1000.0, cfg.Risk.BaseSize)
	assert.Equal(t, 0.0025, cfg.Fees.Taker)
	assert.Equal(t, 500*time.Millisecond, cfg.Retry.ExitDelay)
}
