package config

import (
	"fmt"
	"strings"
	"time"
)

const (
	PresetAggressive   = "aggressive"
	PresetConservative = "conservative"
)

// preset 为一组整体调参；显式写在配置文件里的键优先。
type preset struct {
	tradeAmount     float64
	maxPositions    int
	maxPositionSize float64
	slippageBps     float64
	signalThreshold float64
	wobiWindow      int
	zThreshold      float64
	rsiOverbought   float64
	rsiOversold     float64
	takeProfit      float64
	stopLoss        float64
	timeCut         time.Duration
	trailingPct     float64
	maxDailyLoss    float64
	maxConsecutive  int
	macroTTL        time.Duration
	strategyTTL     time.Duration
	executionTTL    time.Duration
	minSizeFactor   float64
	maxSizeFactor   float64
	filterThreshold float64
}

var presets = map[string]preset{
	PresetAggressive: {
		tradeAmount:     3500000,
		maxPositions:    6,
		maxPositionSize: 6000000,
		slippageBps:     2.5,
		signalThreshold: 0.45,
		wobiWindow:      80,
		zThreshold:      1.3,
		rsiOverbought:   75,
		rsiOversold:     25,
		takeProfit:      0.001,
		stopLoss:        0.0007,
		timeCut:         40 * time.Second,
		trailingPct:     0.0003,
		maxDailyLoss:    -500000,
		maxConsecutive:  3,
		macroTTL:        30 * time.Second,
		strategyTTL:     15 * time.Second,
		executionTTL:    3 * time.Second,
		minSizeFactor:   0.3,
		maxSizeFactor:   1.5,
		filterThreshold: 0.55,
	},
	PresetConservative: {
		tradeAmount:     2500000,
		maxPositions:    4,
		maxPositionSize: 4000000,
		slippageBps:     1.8,
		signalThreshold: 0.55,
		wobiWindow:      100,
		zThreshold:      1.8,
		rsiOverbought:   72,
		rsiOversold:     28,
		takeProfit:      0.0015,
		stopLoss:        0.001,
		timeCut:         50 * time.Second,
		trailingPct:     0.0005,
		maxDailyLoss:    -400000,
		maxConsecutive:  4,
		macroTTL:        50 * time.Second,
		strategyTTL:     25 * time.Second,
		executionTTL:    8 * time.Second,
		minSizeFactor:   0.25,
		maxSizeFactor:   1.4,
		filterThreshold: 0.58,
	},
}

// PresetNames lists the accepted trading.preset values.
func PresetNames() []string {
	return []string{PresetAggressive, PresetConservative}
}

func (c *Config) applyPreset(keys keySet) {
	name := strings.ToLower(strings.TrimSpace(c.Trading.Preset))
	c.Trading.Preset = name
	p, ok := presets[name]
	if !ok {
		return
	}
	set := func(key string, fn func()) fieldDefault {
		return fieldDefault{key: key, apply: fn}
	}
	applyFieldDefaults(keys,
		set("trading.trade_amount", func() { c.Trading.TradeAmount = p.tradeAmount }),
		set("trading.slippage_bps", func() { c.Trading.SlippageBps = p.slippageBps }),
		set("trading.signal_threshold", func() { c.Trading.SignalThreshold = p.signalThreshold }),
		set("trading.macro_ttl", func() { c.Trading.MacroTTL = p.macroTTL }),
		set("trading.strategy_ttl", func() { c.Trading.StrategyTTL = p.strategyTTL }),
		set("trading.execution_ttl", func() { c.Trading.ExecutionTTL = p.executionTTL }),
		set("execution.wobi_window", func() { c.Execution.WOBIWindow = p.wobiWindow }),
		set("execution.z_threshold", func() { c.Execution.ZThreshold = p.zThreshold }),
		set("indicator.rsi_overbought", func() { c.Indicator.RSIOverbought = p.rsiOverbought }),
		set("indicator.rsi_oversold", func() { c.Indicator.RSIOversold = p.rsiOversold }),
		set("exit.take_profit", func() { c.Exit.TakeProfit = p.takeProfit }),
		set("exit.stop_loss", func() { c.Exit.StopLoss = p.stopLoss }),
		set("exit.time_cut", func() { c.Exit.TimeCut = p.timeCut }),
		set("exit.trailing_enabled", func() { c.Exit.TrailingEnabled = true }),
		set("exit.trailing_pct", func() { c.Exit.TrailingPct = p.trailingPct }),
		set("risk.max_daily_loss", func() { c.Risk.MaxDailyLoss = p.maxDailyLoss }),
		set("risk.max_consecutive_losses", func() { c.Risk.MaxConsecutiveLosses = p.maxConsecutive }),
		set("risk.max_positions", func() { c.Risk.MaxPositions = p.maxPositions }),
		set("risk.max_position_size", func() { c.Risk.MaxPositionSize = p.maxPositionSize }),
		set("risk.min_size_factor", func() { c.Risk.MinSizeFactor = p.minSizeFactor }),
		set("risk.max_size_factor", func() { c.Risk.MaxSizeFactor = p.maxSizeFactor }),
		set("filter.threshold", func() { c.Filter.Threshold = p.filterThreshold }),
	)
}

func validatePreset(name string) error {
	if name == "" {
		return nil
	}
	if _, ok := presets[name]; !ok {
		return fmt.Errorf("trading.preset must be one of %v, got %q", PresetNames(), name)
	}
	return nil
}
