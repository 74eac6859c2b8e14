package config

import (
	"strings"
	"time"

	"tierbot/internal/pkg/symbol"
)

// 默认值常量
const (
	defaultAppEnv      = "dev"
	defaultAppLogLevel = "info"
	defaultAppHTTPAddr = ":9991"
	defaultAppLogPath  = "data/logs/tierbot.log"

	defaultTradeAmount     = 500000
	defaultDepth           = 10
	defaultSlippageBps     = 1.5
	defaultSignalThreshold = 0.6
	defaultMacroTTL        = 60 * time.Second
	defaultStrategyTTL     = 30 * time.Second
	defaultExecutionTTL    = 10 * time.Second
	defaultBufferSize      = 200
	defaultLoopInterval    = 100 * time.Millisecond
	defaultErrorBackoff    = time.Second
	defaultExitInterval    = 100 * time.Millisecond
	defaultMaxSpreadBps    = 10
	defaultLiquidityLevels = 5
	defaultLiquidityFactor = 1.5

	defaultIndicatorMode = "simplified"
	defaultMinPrices     = 50

	defaultWOBIWindow    = 100
	defaultZThreshold    = 2.0
	defaultMaxSpread     = 0.001
	defaultDepthLevels   = 5
	defaultLongMaxDepth  = 1.5
	defaultShortMinDepth = 0.67

	defaultTakeProfit  = 0.0015
	defaultStopLoss    = 0.001
	defaultTimeCut     = 60 * time.Second
	defaultTrailingPct = 0.0005

	defaultFee = 0.0025

	defaultMaxDailyLoss      = -100000
	defaultMaxConsecutive    = 5
	defaultMaxPositions      = 3
	defaultMaxPositionSize   = 1000000
	defaultTargetVolatility  = 0.02
	defaultMinSizeFactor     = 0.2
	defaultMaxSizeFactor     = 1.5
	defaultFilterThreshold   = 0.6
	defaultFilterTimeout     = 500 * time.Millisecond
	defaultEntryAttempts     = 3
	defaultEntryDelay        = time.Second
	defaultExitAttempts      = 5
	defaultExitDelay         = 500 * time.Millisecond
	defaultExchangeName      = "binance"
	defaultRateLimit         = 10
	defaultBurst             = 20
	defaultBreakerFailures   = 5
	defaultBreakerCooldown   = 30 * time.Second
	defaultPollInterval      = 2 * time.Second
	defaultTelegramAPIBase   = "https://api.telegram.org"
	defaultJournalPath       = "data/db/journal.db"
	defaultBacktestStoreDir  = "data/backtest"
	defaultBacktestDataPath  = "data/collected"
	defaultBacktestTrainRate = 0.7
	defaultBacktestReportDir = "data/reports"
)

// applyDefaults 为所有子配置应用默认值；preset 先于默认值生效。
func (c *Config) applyDefaults(keys keySet) {
	c.applyPreset(keys)
	c.App.applyDefaults(keys)
	c.Trading.applyDefaults(keys)
	c.Indicator.applyDefaults(keys)
	c.Execution.applyDefaults(keys)
	c.Exit.applyDefaults(keys)
	c.Fees.applyDefaults(keys)
	c.Risk.applyDefaults(keys, c.Trading.TradeAmount)
	c.Filter.applyDefaults(keys)
	c.Retry.applyDefaults(keys)
	c.Exchange.applyDefaults(keys)
	c.Notifier.applyDefaults(keys)
	c.Store.applyDefaults(keys)
	c.Backtest.applyDefaults(keys)
}

func (a *AppConfig) applyDefaults(keys keySet) {
	applyFieldDefaults(keys,
		stringFieldDefault("app.env", &a.Env, defaultAppEnv),
		stringFieldDefault("app.log_level", &a.LogLevel, defaultAppLogLevel),
		stringFieldDefault("app.http_addr", &a.HTTPAddr, defaultAppHTTPAddr),
		stringFieldDefault("app.log_path", &a.LogPath, defaultAppLogPath),
	)
}

func (t *TradingConfig) applyDefaults(keys keySet) {
	if len(t.Symbols) == 0 {
		t.Symbols = []string{"BTCUSDT"}
	}
	for i, s := range t.Symbols {
		t.Symbols[i] = symbol.Exchange(s)
	}
	applyFieldDefaults(keys,
		floatFieldDefault("trading.trade_amount", &t.TradeAmount, defaultTradeAmount),
		intFieldDefault("trading.depth", &t.Depth, defaultDepth),
		floatFieldDefault("trading.slippage_bps", &t.SlippageBps, defaultSlippageBps),
		floatFieldDefault("trading.signal_threshold", &t.SignalThreshold, defaultSignalThreshold),
		durationFieldDefault("trading.macro_ttl", &t.MacroTTL, defaultMacroTTL),
		durationFieldDefault("trading.strategy_ttl", &t.StrategyTTL, defaultStrategyTTL),
		durationFieldDefault("trading.execution_ttl", &t.ExecutionTTL, defaultExecutionTTL),
		intFieldDefault("trading.buffer_size", &t.BufferSize, defaultBufferSize),
		durationFieldDefault("trading.loop_interval", &t.LoopInterval, defaultLoopInterval),
		durationFieldDefault("trading.error_backoff", &t.ErrorBackoff, defaultErrorBackoff),
		durationFieldDefault("trading.exit_interval", &t.ExitInterval, defaultExitInterval),
		floatFieldDefault("trading.max_spread_bps", &t.MaxSpreadBps, defaultMaxSpreadBps),
		intFieldDefault("trading.liquidity_levels", &t.LiquidityLevels, defaultLiquidityLevels),
		floatFieldDefault("trading.liquidity_factor", &t.LiquidityFactor, defaultLiquidityFactor),
	)
}

func (i *IndicatorConfig) applyDefaults(keys keySet) {
	applyFieldDefaults(keys,
		stringFieldDefault("indicator.mode", &i.Mode, defaultIndicatorMode),
		intFieldDefault("indicator.min_prices", &i.MinPrices, defaultMinPrices),
		intFieldDefault("indicator.rsi_period", &i.RSIPeriod, 14),
		floatFieldDefault("indicator.rsi_oversold", &i.RSIOversold, 30),
		floatFieldDefault("indicator.rsi_overbought", &i.RSIOverbought, 70),
		intFieldDefault("indicator.macd_fast", &i.MACDFast, 12),
		intFieldDefault("indicator.macd_slow", &i.MACDSlow, 26),
		intFieldDefault("indicator.macd_signal", &i.MACDSignal, 9),
		intFieldDefault("indicator.bb_period", &i.BBPeriod, 20),
		floatFieldDefault("indicator.bb_std", &i.BBStd, 2),
		intFieldDefault("indicator.stoch_k", &i.StochK, 14),
		intFieldDefault("indicator.stoch_d", &i.StochD, 3),
		intFieldDefault("indicator.volume_period", &i.VolumePeriod, 20),
	)
}

func (e *ExecutionConfig) applyDefaults(keys keySet) {
	applyFieldDefaults(keys,
		intFieldDefault("execution.book_depth", &e.BookDepth, defaultDepth),
		intFieldDefault("execution.wobi_window", &e.WOBIWindow, defaultWOBIWindow),
		floatFieldDefault("execution.z_threshold", &e.ZThreshold, defaultZThreshold),
		floatFieldDefault("execution.max_spread", &e.MaxSpread, defaultMaxSpread),
		intFieldDefault("execution.depth_levels", &e.DepthLevels, defaultDepthLevels),
		floatFieldDefault("execution.long_max_depth", &e.LongMaxDepth, defaultLongMaxDepth),
		floatFieldDefault("execution.short_min_depth", &e.ShortMinDepth, defaultShortMinDepth),
	)
}

func (e *ExitConfig) applyDefaults(keys keySet) {
	applyFieldDefaults(keys,
		floatFieldDefault("exit.take_profit", &e.TakeProfit, defaultTakeProfit),
		floatFieldDefault("exit.stop_loss", &e.StopLoss, defaultStopLoss),
		durationFieldDefault("exit.time_cut", &e.TimeCut, defaultTimeCut),
		floatFieldDefault("exit.trailing_pct", &e.TrailingPct, defaultTrailingPct),
	)
}

func (f *FeesConfig) applyDefaults(keys keySet) {
	applyFieldDefaults(keys,
		floatFieldDefault("fees.maker", &f.Maker, defaultFee),
		floatFieldDefault("fees.taker", &f.Taker, defaultFee),
	)
}

// base_size 缺省取 trading.trade_amount。
func (r *RiskConfig) applyDefaults(keys keySet, tradeAmount float64) {
	applyFieldDefaults(keys,
		fieldDefault{
			key:   "risk.max_daily_loss",
			need:  func() bool { return r.MaxDailyLoss == 0 },
			apply: func() { r.MaxDailyLoss = defaultMaxDailyLoss },
		},
		intFieldDefault("risk.max_consecutive_losses", &r.MaxConsecutiveLosses, defaultMaxConsecutive),
		intFieldDefault("risk.max_positions", &r.MaxPositions, defaultMaxPositions),
		floatFieldDefault("risk.max_position_size", &r.MaxPositionSize, defaultMaxPositionSize),
		floatFieldDefault("risk.base_size", &r.BaseSize, tradeAmount),
		floatFieldDefault("risk.target_volatility", &r.TargetVolatility, defaultTargetVolatility),
		floatFieldDefault("risk.min_size_factor", &r.MinSizeFactor, defaultMinSizeFactor),
		floatFieldDefault("risk.max_size_factor", &r.MaxSizeFactor, defaultMaxSizeFactor),
	)
}

func (f *FilterConfig) applyDefaults(keys keySet) {
	applyFieldDefaults(keys,
		floatFieldDefault("filter.threshold", &f.Threshold, defaultFilterThreshold),
		durationFieldDefault("filter.timeout", &f.Timeout, defaultFilterTimeout),
	)
}

func (r *RetryConfig) applyDefaults(keys keySet) {
	applyFieldDefaults(keys,
		intFieldDefault("retry.entry_attempts", &r.EntryAttempts, defaultEntryAttempts),
		durationFieldDefault("retry.entry_delay", &r.EntryDelay, defaultEntryDelay),
		intFieldDefault("retry.exit_attempts", &r.ExitAttempts, defaultExitAttempts),
		durationFieldDefault("retry.exit_delay", &r.ExitDelay, defaultExitDelay),
	)
}

func (e *ExchangeConfig) applyDefaults(keys keySet) {
	applyFieldDefaults(keys,
		stringFieldDefault("exchange.name", &e.Name, defaultExchangeName),
		floatFieldDefault("exchange.rate_limit", &e.RateLimit, defaultRateLimit),
		intFieldDefault("exchange.burst", &e.Burst, defaultBurst),
		intFieldDefault("exchange.breaker_failures", &e.BreakerFailures, defaultBreakerFailures),
		durationFieldDefault("exchange.breaker_cooldown", &e.BreakerCooldown, defaultBreakerCooldown),
	)
}

func (n *NotifierConfig) applyDefaults(keys keySet) {
	applyFieldDefaults(keys,
		durationFieldDefault("notifier.poll_interval", &n.PollInterval, defaultPollInterval),
		stringFieldDefault("notifier.api_base", &n.APIBase, defaultTelegramAPIBase),
	)
}

func (s *StoreConfig) applyDefaults(keys keySet) {
	applyFieldDefaults(keys,
		stringFieldDefault("store.journal_path", &s.JournalPath, defaultJournalPath),
		stringFieldDefault("store.backtest_dir", &s.BacktestDir, defaultBacktestStoreDir),
	)
}

func (b *BacktestConfig) applyDefaults(keys keySet) {
	applyFieldDefaults(keys,
		stringFieldDefault("backtest.data_path", &b.DataPath, defaultBacktestDataPath),
		floatFieldDefault("backtest.train_ratio", &b.TrainRatio, defaultBacktestTrainRate),
		stringFieldDefault("backtest.report_dir", &b.ReportDir, defaultBacktestReportDir),
	)
}

// Helper functions

type fieldDefault struct {
	key   string
	need  func() bool
	apply func()
}

func applyFieldDefaults(keys keySet, defs ...fieldDefault) {
	for _, def := range defs {
		if def.apply == nil {
			continue
		}
		if def.key != "" && keys.isSet(def.key) {
			continue
		}
		if def.need != nil && !def.need() {
			continue
		}
		def.apply()
	}
}

func stringFieldDefault(key string, target *string, def string) fieldDefault {
	return fieldDefault{
		key:   key,
		need:  func() bool { return strings.TrimSpace(*target) == "" },
		apply: func() { *target = def },
	}
}

func intFieldDefault(key string, target *int, def int) fieldDefault {
	return fieldDefault{
		key:   key,
		need:  func() bool { return *target <= 0 },
		apply: func() { *target = def },
	}
}

func floatFieldDefault(key string, target *float64, def float64) fieldDefault {
	return fieldDefault{
		key:   key,
		need:  func() bool { return *target <= 0 },
		apply: func() { *target = def },
	}
}

func durationFieldDefault(key string, target *time.Duration, def time.Duration) fieldDefault {
	return fieldDefault{
		key:   key,
		need:  func() bool { return *target <= 0 },
		apply: func() { *target = def },
	}
}
