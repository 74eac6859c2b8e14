package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"tierbot/internal/agent"
	"tierbot/internal/analysis/indicator"
	"tierbot/internal/backtest"
	"tierbot/internal/config"
	"tierbot/internal/gateway/binance"
	"tierbot/internal/gateway/exchange"
	"tierbot/internal/gateway/filter"
	"tierbot/internal/gateway/notifier"
	"tierbot/internal/logger"
	"tierbot/internal/metrics"
	"tierbot/internal/pkg/circuit"
	"tierbot/internal/position"
	"tierbot/internal/risk"
	"tierbot/internal/scheduler"
	"tierbot/internal/store"
	"tierbot/internal/store/sqlite"
	"tierbot/internal/trader"
	livehttp "tierbot/internal/transport/http/live"

	"golang.org/x/time/rate"
)

// ConfigPath 为被热加载监听的配置文件路径，空串表示不监听。
type ConfigPath string

// RiskLimits maps the risk section onto risk.Limits.
func RiskLimits(cfg *config.Config) risk.Limits {
	r := cfg.Risk
	return risk.Limits{
		MaxDailyLoss:         r.MaxDailyLoss,
		MaxConsecutiveLosses: r.MaxConsecutiveLosses,
		MaxPositions:         r.MaxPositions,
		MaxPositionSize:      r.MaxPositionSize,
		BaseSize:             r.BaseSize,
		TargetVolatility:     r.TargetVolatility,
		MinSizeFactor:        r.MinSizeFactor,
		MaxSizeFactor:        r.MaxSizeFactor,
	}
}

func ExitRules(cfg *config.Config) position.ExitRules {
	e := cfg.Exit
	return position.ExitRules{
		TakeProfit:      e.TakeProfit,
		StopLoss:        e.StopLoss,
		TimeCut:         e.TimeCut,
		TrailingEnabled: e.TrailingEnabled,
		TrailingPct:     e.TrailingPct,
	}
}

func IndicatorParams(cfg *config.Config) indicator.Params {
	i := cfg.Indicator
	return indicator.Params{
		Mode:          indicator.ParseMode(i.Mode),
		RSIPeriod:     i.RSIPeriod,
		RSIOversold:   i.RSIOversold,
		RSIOverbought: i.RSIOverbought,
		MACDFast:      i.MACDFast,
		MACDSlow:      i.MACDSlow,
		MACDSignal:    i.MACDSignal,
		BBPeriod:      i.BBPeriod,
		BBStd:         i.BBStd,
		StochK:        i.StochK,
		StochD:        i.StochD,
		VolumePeriod:  i.VolumePeriod,
	}
}

func StrategyConfig(cfg *config.Config) agent.StrategyConfig {
	return agent.StrategyConfig{
		Params:     IndicatorParams(cfg),
		MinPrices:  cfg.Indicator.MinPrices,
		BufferSize: cfg.Trading.BufferSize,
		TTL:        cfg.Trading.StrategyTTL,
	}
}

// BacktestConfig 将实盘配置映射为单标的回测参数。
func BacktestConfig(cfg *config.Config, symbol string) backtest.Config {
	return backtest.Config{
		Symbol:          symbol,
		TradeAmount:     cfg.Trading.TradeAmount,
		SlippageBps:     cfg.Trading.SlippageBps,
		TakerFee:        cfg.Fees.Taker,
		SignalThreshold: cfg.Trading.SignalThreshold,
		BufferSize:      cfg.Trading.BufferSize,
		Exit:            ExitRules(cfg),
	}
}

func provideLocation(cfg *config.Config) *time.Location {
	return cfg.App.Location()
}

func provideMetrics() *metrics.Metrics {
	return metrics.New()
}

func provideRiskManager(cfg *config.Config, loc *time.Location) *risk.Manager {
	return risk.NewManager(RiskLimits(cfg), risk.WithLocation(loc))
}

func providePositionManager(cfg *config.Config) *position.Manager {
	return position.NewManager(ExitRules(cfg))
}

func provideHierarchy(cfg *config.Config, rm *risk.Manager, pm *position.Manager) *agent.Hierarchy {
	macro := agent.NewMacroFilter(rm, pm, cfg.Trading.MacroTTL)
	strategy := agent.NewStrategy(StrategyConfig(cfg))
	e := cfg.Execution
	execution := agent.NewExecution(agent.ExecutionConfig{
		BookDepth:     e.BookDepth,
		WOBIWindow:    e.WOBIWindow,
		ZThreshold:    e.ZThreshold,
		MaxSpread:     e.MaxSpread,
		DepthLevels:   e.DepthLevels,
		LongMaxDepth:  e.LongMaxDepth,
		ShortMinDepth: e.ShortMinDepth,
		TTL:           cfg.Trading.ExecutionTTL,
	}, rm)
	return agent.NewHierarchy(agent.HierarchyConfig{SignalThreshold: cfg.Trading.SignalThreshold}, macro, strategy, execution)
}

// provideExchange 构建带限流与熔断的交易所客户端。
func provideExchange(cfg *config.Config) (*exchange.Guarded, error) {
	ex := cfg.Exchange
	if ex.Name != "binance" {
		return nil, fmt.Errorf("unsupported exchange %q", ex.Name)
	}
	client := binance.New(binance.Config{
		APIKey:    ex.APIKey,
		APISecret: ex.APISecret,
		Testnet:   ex.Testnet,
	})
	limiter := rate.NewLimiter(rate.Limit(ex.RateLimit), ex.Burst)
	breaker := circuit.NewCircuitBreaker(ex.Name, ex.BreakerFailures, ex.BreakerCooldown)
	return exchange.NewGuarded(client, limiter, breaker), nil
}

func provideGate(cfg *config.Config) *filter.Gate {
	if !cfg.Filter.Enabled {
		return nil
	}
	return &filter.Gate{
		Filter:    filter.NewHTTPFilter(cfg.Filter.URL, cfg.Filter.Timeout),
		Threshold: cfg.Filter.Threshold,
	}
}

func provideTelegram(cfg *config.Config) *notifier.Telegram {
	n := cfg.Notifier
	if !n.Enabled {
		return nil
	}
	tg := notifier.NewTelegram(n.TelegramToken, n.ChatID)
	if n.APIBase != "" {
		tg.APIBase = n.APIBase
	}
	return tg
}

// provideOutbox 让交易循环只做入队，Telegram 故障不会拖慢退出检查。
func provideOutbox(tg *notifier.Telegram) (*notifier.Async, func()) {
	if tg == nil {
		return nil, func() {}
	}
	outbox := notifier.NewAsync(tg, 256, 30*time.Second)
	return outbox, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := outbox.Close(ctx); err != nil {
			logger.Warnf("flush notifications: %v", err)
		}
	}
}

func provideJournal(cfg *config.Config) (*store.Journal, func(), error) {
	path := cfg.Store.JournalPath
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, fmt.Errorf("create journal dir: %w", err)
	}
	s, err := sqlite.NewSqliteStore(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open journal %s: %w", path, err)
	}
	j := store.NewJournal(s)
	return j, func() {
		if err := j.Close(); err != nil {
			logger.Warnf("close journal: %v", err)
		}
	}, nil
}

func provideBacktestStore(cfg *config.Config) (*backtest.Store, func(), error) {
	runs, err := backtest.OpenStore(cfg.Store.BacktestDir)
	if err != nil {
		return nil, nil, fmt.Errorf("open backtest store: %w", err)
	}
	return runs, func() {
		if err := runs.Close(); err != nil {
			logger.Warnf("close backtest store: %v", err)
		}
	}, nil
}

func provideBot(cfg *config.Config, loc *time.Location, ex *exchange.Guarded, h *agent.Hierarchy, rm *risk.Manager, pm *position.Manager, gate *filter.Gate, tg *notifier.Telegram, outbox *notifier.Async, journal *store.Journal, m *metrics.Metrics) (*trader.Bot, error) {
	deps := trader.Deps{
		Market:    ex,
		Executor:  ex,
		Decider:   h,
		Risk:      rm,
		Positions: pm,
		Gate:      gate,
		Journal:   journal,
		Metrics:   m,
	}
	if tg != nil {
		deps.Notifier = outbox
		deps.Commands = tg
	}
	t, r := cfg.Trading, cfg.Retry
	return trader.New(trader.Config{
		Symbols:         t.Symbols,
		TradeAmount:     t.TradeAmount,
		Depth:           t.Depth,
		MaxSpreadBps:    t.MaxSpreadBps,
		LiquidityLevels: t.LiquidityLevels,
		LiquidityFactor: t.LiquidityFactor,
		LoopInterval:    t.LoopInterval,
		ErrorBackoff:    t.ErrorBackoff,
		ExitInterval:    t.ExitInterval,
		EntryAttempts:   r.EntryAttempts,
		EntryDelay:      r.EntryDelay,
		ExitAttempts:    r.ExitAttempts,
		ExitDelay:       r.ExitDelay,
		Location:        loc,
		PollInterval:    cfg.Notifier.PollInterval,
	}, deps)
}

func provideHTTPServer(cfg *config.Config, bot *trader.Bot, m *metrics.Metrics, runs *backtest.Store) (*livehttp.Server, error) {
	if cfg.App.HTTPAddr == "" {
		return nil, nil
	}
	return livehttp.NewServer(livehttp.ServerConfig{
		Addr:      cfg.App.HTTPAddr,
		Bot:       bot,
		Metrics:   m.Handler(),
		Backtests: runs,
	})
}

// replayToday 将日志中今日已平仓的成交回放进风控，重启后日内计数不丢失。
func replayToday(ctx context.Context, journal *store.Journal, rm *risk.Manager, loc *time.Location, now time.Time) (int, error) {
	if journal == nil || rm == nil {
		return 0, nil
	}
	trades, err := journal.TradesBetween(ctx, scheduler.DayStart(loc, now), now)
	if err != nil {
		return 0, err
	}
	for _, t := range trades {
		rm.RecordTrade(t.PnL)
	}
	return len(trades), nil
}

func logStartup(cfg *config.Config) {
	logger.Infof("✓ 已加载 %d 个交易对: %v", len(cfg.Trading.Symbols), cfg.Trading.Symbols)
	if cfg.Trading.Preset != "" {
		logger.Infof("✓ 预设: %s", cfg.Trading.Preset)
	}
	if cfg.Notifier.Enabled {
		logger.Infof("✓ Telegram 通知已启用")
	}
	if cfg.Filter.Enabled {
		logger.Infof("✓ 外部过滤器: %s (threshold=%.2f)", cfg.Filter.URL, cfg.Filter.Threshold)
	}
}
