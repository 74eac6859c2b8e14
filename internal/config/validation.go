package config

import (
	"fmt"
	"strings"

	"tierbot/internal/pkg/symbol"
)

// validate 对配置进行基础校验。
func validate(c *Config) error {
	if err := validatePreset(c.Trading.Preset); err != nil {
		return err
	}
	if err := c.Trading.validate(); err != nil {
		return err
	}
	if err := c.Indicator.validate(); err != nil {
		return err
	}
	if err := c.Execution.validate(); err != nil {
		return err
	}
	if err := c.Exit.validate(); err != nil {
		return err
	}
	if err := c.Risk.validate(); err != nil {
		return err
	}
	if err := c.Filter.validate(); err != nil {
		return err
	}
	if err := c.Notifier.validate(); err != nil {
		return err
	}
	if err := c.Backtest.validate(); err != nil {
		return err
	}
	return nil
}

func (t *TradingConfig) validate() error {
	seen := make(map[string]bool, len(t.Symbols))
	for _, s := range t.Symbols {
		if s == "" {
			return fmt.Errorf("trading.symbols contains an empty entry")
		}
		if _, ok := symbol.Parse(s); !ok {
			return fmt.Errorf("trading.symbols: unrecognised pair %s", s)
		}
		if seen[s] {
			return fmt.Errorf("trading.symbols contains duplicate %s", s)
		}
		seen[s] = true
	}
	if t.TradeAmount <= 0 {
		return fmt.Errorf("trading.trade_amount must be > 0")
	}
	if t.Depth <= 0 {
		return fmt.Errorf("trading.depth must be > 0")
	}
	if t.SlippageBps < 0 {
		return fmt.Errorf("trading.slippage_bps must be >= 0")
	}
	if t.SignalThreshold < 0 || t.SignalThreshold > 1 {
		return fmt.Errorf("trading.signal_threshold must be within [0,1]")
	}
	if t.MacroTTL <= 0 || t.StrategyTTL <= 0 || t.ExecutionTTL <= 0 {
		return fmt.Errorf("trading ttl values must be > 0")
	}
	if t.LoopInterval <= 0 || t.ExitInterval <= 0 {
		return fmt.Errorf("trading.loop_interval and trading.exit_interval must be > 0")
	}
	return nil
}

func (i *IndicatorConfig) validate() error {
	switch strings.ToLower(strings.TrimSpace(i.Mode)) {
	case "simplified", "textbook":
	default:
		return fmt.Errorf("indicator.mode must be simplified or textbook, got %q", i.Mode)
	}
	if i.RSIOversold >= i.RSIOverbought {
		return fmt.Errorf("indicator.rsi_oversold must be below rsi_overbought")
	}
	if i.RSIOverbought >= 100 {
		return fmt.Errorf("indicator.rsi_overbought must be < 100")
	}
	if i.MACDFast >= i.MACDSlow {
		return fmt.Errorf("indicator.macd_fast must be below macd_slow")
	}
	return nil
}

func (e *ExecutionConfig) validate() error {
	if e.WOBIWindow < 2 {
		return fmt.Errorf("execution.wobi_window must be >= 2")
	}
	if e.ZThreshold <= 0 {
		return fmt.Errorf("execution.z_threshold must be > 0")
	}
	if e.ShortMinDepth >= e.LongMaxDepth {
		return fmt.Errorf("execution.short_min_depth must be below long_max_depth")
	}
	return nil
}

func (e *ExitConfig) validate() error {
	if e.TakeProfit < 0 || e.StopLoss < 0 {
		return fmt.Errorf("exit.take_profit and exit.stop_loss must be >= 0")
	}
	if e.TrailingEnabled && e.TrailingPct <= 0 {
		return fmt.Errorf("exit.trailing_pct must be > 0 when trailing is enabled")
	}
	return nil
}

func (r *RiskConfig) validate() error {
	if r.MaxDailyLoss >= 0 {
		return fmt.Errorf("risk.max_daily_loss must be negative")
	}
	if r.MaxPositions <= 0 {
		return fmt.Errorf("risk.max_positions must be > 0")
	}
	if r.MinSizeFactor > r.MaxSizeFactor {
		return fmt.Errorf("risk.min_size_factor must not exceed max_size_factor")
	}
	if r.BaseSize > r.MaxPositionSize {
		return fmt.Errorf("risk.base_size must not exceed max_position_size")
	}
	return nil
}

func (f *FilterConfig) validate() error {
	if !f.Enabled {
		return nil
	}
	if strings.TrimSpace(f.URL) == "" {
		return fmt.Errorf("filter.url is required when the filter is enabled")
	}
	if f.Threshold < 0 || f.Threshold > 1 {
		return fmt.Errorf("filter.threshold must be within [0,1]")
	}
	return nil
}

func (n *NotifierConfig) validate() error {
	if !n.Enabled {
		return nil
	}
	if strings.TrimSpace(n.TelegramToken) == "" || strings.TrimSpace(n.ChatID) == "" {
		return fmt.Errorf("notifier.telegram_token and notifier.chat_id are required when enabled")
	}
	return nil
}

func (b *BacktestConfig) validate() error {
	if b.TrainRatio < 0 || b.TrainRatio >= 1 {
		return fmt.Errorf("backtest.train_ratio must be within [0,1)")
	}
	return nil
}
