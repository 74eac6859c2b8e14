package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tierbot/internal/backtest"
	"tierbot/internal/config"
	"tierbot/internal/logger"
	"tierbot/internal/position"
	"tierbot/internal/risk"
	"tierbot/internal/store"
	"tierbot/internal/trader"
	livehttp "tierbot/internal/transport/http/live"

	"golang.org/x/sync/errgroup"
)

// App 负责应用级编排：加载配置→初始化依赖→启动交易循环与 HTTP 服务。
type App struct {
	cfg        *config.Config
	configPath ConfigPath
	loc        *time.Location

	bot       *trader.Bot
	risk      *risk.Manager
	positions *position.Manager
	journal   *store.Journal
	backtests *backtest.Store
	liveHTTP  *livehttp.Server
	cleanup   func()

	Summary *StartupSummary
}

func newApp(cfg *config.Config, path ConfigPath, loc *time.Location, bot *trader.Bot, rm *risk.Manager, pm *position.Manager, journal *store.Journal, runs *backtest.Store, srv *livehttp.Server) *App {
	return &App{
		cfg:        cfg,
		configPath: path,
		loc:        loc,
		bot:        bot,
		risk:       rm,
		positions:  pm,
		journal:    journal,
		backtests:  runs,
		liveHTTP:   srv,
		Summary:    NewStartupSummary(cfg),
	}
}

// New 根据配置构建应用对象（不启动）。path 非空时 Run 会监听配置变更。
func New(ctx context.Context, cfg *config.Config, path string) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	logger.SetLevel(cfg.App.LogLevel)
	logStartup(cfg)
	a, cleanup, err := buildAppWithWire(cfg, ConfigPath(path))
	if err != nil {
		return nil, err
	}
	a.cleanup = cleanup
	n, err := replayToday(ctx, a.journal, a.risk, a.loc, time.Now())
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("replay journal: %w", err)
	}
	if n > 0 {
		logger.Infof("✓ 已从日志回放今日 %d 笔成交", n)
	}
	return a, nil
}

// Run 启动交易循环、HTTP 服务与配置热加载，直到 ctx 取消。
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.bot == nil {
		return fmt.Errorf("app not initialized")
	}
	if a.Summary != nil {
		a.Summary.Print()
	}
	if a.configPath != "" {
		if err := config.Watch(string(a.configPath), a.applyConfig); err != nil {
			logger.Warnf("config watch disabled: %v", err)
		}
	}

	group, ctx := errgroup.WithContext(ctx)
	if a.liveHTTP != nil {
		group.Go(func() error {
			logger.Infof("HTTP 服务监听 %s", a.liveHTTP.Addr())
			if err := a.liveHTTP.Start(ctx); err != nil {
				return fmt.Errorf("live http server error: %w", err)
			}
			return nil
		})
	}
	group.Go(func() error {
		return a.bot.Run(ctx)
	})
	err := group.Wait()
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	return errors.Join(err, a.Close())
}

// applyConfig pushes hot-reloadable settings into the running components.
// Symbols, TTLs and exchange credentials need a restart.
func (a *App) applyConfig(cfg *config.Config) {
	a.risk.UpdateLimits(RiskLimits(cfg))
	a.positions.SetRules(ExitRules(cfg))
	logger.Infof("config applied: risk limits and exit rules updated")
}

func (a *App) Bot() *trader.Bot { return a.bot }

// Close releases the backtest store and the journal, then flushes pending
// notifications. Safe to call more than once.
func (a *App) Close() error {
	if a.cleanup != nil {
		a.cleanup()
		a.cleanup = nil
	}
	a.journal, a.backtests = nil, nil
	return nil
}
