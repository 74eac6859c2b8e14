package app

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"tierbot/internal/config"
)

type StartupSummary struct {
	Symbols  []string
	Preset   string
	Tiers    TierSummary
	Exit     ExitSummary
	Risk     RiskSummary
	Services []string
}

// TierSummary 为三层信号的 TTL 与阈值。
type TierSummary struct {
	MacroTTL      time.Duration
	StrategyTTL   time.Duration
	ExecutionTTL  time.Duration
	Threshold     float64
	ZThreshold    float64
	IndicatorMode string
}

type ExitSummary struct {
	TakeProfit  float64
	StopLoss    float64
	TimeCut     time.Duration
	Trailing    bool
	TrailingPct float64
}

type RiskSummary struct {
	TradeAmount    float64
	MaxDailyLoss   float64
	MaxConsecutive int
	MaxPositions   int
}

func NewStartupSummary(cfg *config.Config) *StartupSummary {
	if cfg == nil {
		return nil
	}
	s := &StartupSummary{
		Symbols: cfg.Trading.Symbols,
		Preset:  cfg.Trading.Preset,
		Tiers: TierSummary{
			MacroTTL:      cfg.Trading.MacroTTL,
			StrategyTTL:   cfg.Trading.StrategyTTL,
			ExecutionTTL:  cfg.Trading.ExecutionTTL,
			Threshold:     cfg.Trading.SignalThreshold,
			ZThreshold:    cfg.Execution.ZThreshold,
			IndicatorMode: cfg.Indicator.Mode,
		},
		Exit: ExitSummary{
			TakeProfit:  cfg.Exit.TakeProfit,
			StopLoss:    cfg.Exit.StopLoss,
			TimeCut:     cfg.Exit.TimeCut,
			Trailing:    cfg.Exit.TrailingEnabled,
			TrailingPct: cfg.Exit.TrailingPct,
		},
		Risk: RiskSummary{
			TradeAmount:    cfg.Trading.TradeAmount,
			MaxDailyLoss:   cfg.Risk.MaxDailyLoss,
			MaxConsecutive: cfg.Risk.MaxConsecutiveLosses,
			MaxPositions:   cfg.Risk.MaxPositions,
		},
	}
	if cfg.App.HTTPAddr != "" {
		s.Services = append(s.Services, "http "+cfg.App.HTTPAddr)
	}
	if cfg.Notifier.Enabled {
		s.Services = append(s.Services, "telegram")
	}
	if cfg.Filter.Enabled {
		s.Services = append(s.Services, "filter "+cfg.Filter.URL)
	}
	return s
}

func (s *StartupSummary) Print() { s.Fprint(os.Stdout) }

func (s *StartupSummary) Fprint(w io.Writer) {
	title := "启动配置摘要 (STARTUP SUMMARY)"
	fmt.Fprintln(w, strings.Repeat("=", 80))
	fmt.Fprintf(w, "%*s\n", 40+len(title)/2, title)
	fmt.Fprintln(w, strings.Repeat("=", 80))

	fmt.Fprintln(w, "[交易对 (SYMBOLS)]")
	fmt.Fprintf(w, "  监控币种: %s\n", formatList(s.Symbols))
	preset := s.Preset
	if preset == "" {
		preset = "default"
	}
	fmt.Fprintf(w, "  预设: %s\n", preset)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "[信号层级 (TIERS)]")
	fmt.Fprintf(w, "  TTL: macro=%s strategy=%s execution=%s\n", s.Tiers.MacroTTL, s.Tiers.StrategyTTL, s.Tiers.ExecutionTTL)
	fmt.Fprintf(w, "  阈值: score>=%.2f |z|>=%.2f 指标模式=%s\n", s.Tiers.Threshold, s.Tiers.ZThreshold, s.Tiers.IndicatorMode)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "[出场 (EXIT)]")
	fmt.Fprintf(w, "  TP=%.3f%% SL=%.3f%% time-cut=%s\n", s.Exit.TakeProfit*100, s.Exit.StopLoss*100, s.Exit.TimeCut)
	if s.Exit.Trailing {
		fmt.Fprintf(w, "  trailing=%.3f%%\n", s.Exit.TrailingPct*100)
	} else {
		fmt.Fprintln(w, "  trailing=off")
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "[风控 (RISK)]")
	fmt.Fprintf(w, "  单笔金额: %.2f\n", s.Risk.TradeAmount)
	fmt.Fprintf(w, "  日亏损上限: %.2f 连亏上限: %d 最大持仓: %d\n", s.Risk.MaxDailyLoss, s.Risk.MaxConsecutive, s.Risk.MaxPositions)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "[服务 (SERVICES)]")
	fmt.Fprintf(w, "  %s\n", formatList(s.Services))
	fmt.Fprintln(w, strings.Repeat("=", 80))
}

func formatList(items []string) string {
	if len(items) == 0 {
		return "-"
	}
	return strings.Join(items, ", ")
}
