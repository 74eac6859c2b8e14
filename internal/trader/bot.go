// Package trader runs the live loops: per-symbol evaluation, exit
// monitoring, the daily report and operator commands.
package trader

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"tierbot/internal/analysis/indicator"
	"tierbot/internal/gateway/exchange"
	"tierbot/internal/gateway/filter"
	"tierbot/internal/gateway/notifier"
	"tierbot/internal/logger"
	"tierbot/internal/market"
	"tierbot/internal/metrics"
	"tierbot/internal/position"
	"tierbot/internal/risk"
	"tierbot/internal/signal"
	"tierbot/internal/store/model"
)

// Decider is the slice of agent.Hierarchy the bot drives.
type Decider interface {
	Evaluate(symbol string, book market.OrderBook, price, volume float64) (signal.ExecutionSignal, bool)
	Features(symbol string) ([]float64, bool)
	Indicators(symbol string) indicator.Snapshot
	LastSignals(symbol string) (macro, strategic signal.Signal, haveMacro, haveStrategic bool)
	Cache() *signal.Cache
}

// Journal persists closed trades, daily reports and bot events.
type Journal interface {
	RecordTrade(ctx context.Context, t position.Trade) error
	SaveDailyReport(ctx context.Context, s risk.DailyStats) error
	RecordEvent(ctx context.Context, kind model.EventKind, symbol, message string, details any) error
	RecentTrades(ctx context.Context, limit int) ([]position.Trade, error)
}

// CommandSource delivers operator commands (Telegram).
type CommandSource interface {
	Poll(ctx context.Context, interval time.Duration, handle notifier.CommandHandler) error
}

type Config struct {
	Symbols         []string
	TradeAmount     float64
	Depth           int
	MaxSpreadBps    float64
	LiquidityLevels int
	LiquidityFactor float64

	LoopInterval time.Duration
	ErrorBackoff time.Duration
	ExitInterval time.Duration

	EntryAttempts int
	EntryDelay    time.Duration
	ExitAttempts  int
	ExitDelay     time.Duration

	Location     *time.Location
	PollInterval time.Duration
}

func (c Config) withDefaults() Config {
	if c.Depth <= 0 {
		c.Depth = 10
	}
	if c.MaxSpreadBps <= 0 {
		c.MaxSpreadBps = 10
	}
	if c.LiquidityLevels <= 0 {
		c.LiquidityLevels = 5
	}
	if c.LiquidityFactor <= 0 {
		c.LiquidityFactor = 1.5
	}
	if c.LoopInterval <= 0 {
		c.LoopInterval = 100 * time.Millisecond
	}
	if c.ErrorBackoff <= 0 {
		c.ErrorBackoff = time.Second
	}
	if c.ExitInterval <= 0 {
		c.ExitInterval = 100 * time.Millisecond
	}
	if c.EntryAttempts <= 0 {
		c.EntryAttempts = 3
	}
	if c.EntryDelay <= 0 {
		c.EntryDelay = time.Second
	}
	if c.ExitAttempts <= 0 {
		c.ExitAttempts = 5
	}
	if c.ExitDelay <= 0 {
		c.ExitDelay = 500 * time.Millisecond
	}
	if c.Location == nil {
		c.Location = time.UTC
	}
	if c.PollInterval <= 0 {
		c.PollInterval = 2 * time.Second
	}
	return c
}

// Deps 为 Bot 的全部协作者；Gate、Notifier、Journal、Commands 可为空。
type Deps struct {
	Market    exchange.MarketData
	Executor  exchange.Executor
	Decider   Decider
	Risk      *risk.Manager
	Positions *position.Manager
	Gate      *filter.Gate
	Notifier  notifier.TextNotifier
	Journal   Journal
	Commands  CommandSource
	Metrics   *metrics.Metrics
}

type Bot struct {
	cfg Config
	Deps

	active    atomic.Bool
	liquidate atomic.Bool // 紧急停止后，剩余持仓在每轮退出检查中强制平仓
	now       func() time.Time
}

func New(cfg Config, deps Deps) (*Bot, error) {
	if deps.Market == nil || deps.Executor == nil || deps.Decider == nil {
		return nil, errors.New("trader: market, executor and decider are required")
	}
	if deps.Risk == nil || deps.Positions == nil {
		return nil, errors.New("trader: risk and position managers are required")
	}
	if deps.Notifier == nil {
		deps.Notifier = notifier.Nop{}
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.New()
	}
	return &Bot{cfg: cfg.withDefaults(), Deps: deps, now: time.Now}, nil
}

func (b *Bot) Config() Config { return b.cfg }

// Run blocks until ctx is cancelled or a loop returns an error.
func (b *Bot) Run(ctx context.Context) error {
	b.active.Store(true)
	defer b.active.Store(false)
	logger.Infof("trader: started symbols=%v trade_amount=%.0f", b.cfg.Symbols, b.cfg.TradeAmount)

	g, gctx := errgroup.WithContext(ctx)
	for _, sym := range b.cfg.Symbols {
		sym := sym
		g.Go(func() error { return b.symbolLoop(gctx, sym) })
	}
	g.Go(func() error { return b.exitLoop(gctx) })
	g.Go(func() error { return b.dailyReportLoop(gctx) })
	if b.Commands != nil {
		g.Go(func() error { return b.Commands.Poll(gctx, b.cfg.PollInterval, b.HandleCommand) })
	}
	err := g.Wait()
	logger.Infof("trader: stopped")
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Running reports whether Run is in progress. Entries are additionally
// gated by the emergency stop.
func (b *Bot) Running() bool { return b.active.Load() }

func (b *Bot) notify(ctx context.Context, msg notifier.Message) {
	if err := b.Notifier.SendText(ctx, msg.Markdown()); err != nil {
		logger.Warnf("trader: notify %q failed: %v", msg.Title, err)
	}
}

func (b *Bot) recordEvent(ctx context.Context, kind model.EventKind, symbol, message string, details any) {
	if b.Journal == nil {
		return
	}
	if err := b.Journal.RecordEvent(ctx, kind, symbol, message, details); err != nil {
		logger.Warnf("trader: journal event %s failed: %v", kind, err)
	}
}

func (b *Bot) syncGauges() {
	s := b.Risk.Snapshot()
	b.Metrics.DailyPnL.Set(s.DailyPnL)
	b.Metrics.SetEmergency(s.EmergencyStop)
	b.Metrics.OpenPositions.Set(float64(b.Positions.Count()))
}
