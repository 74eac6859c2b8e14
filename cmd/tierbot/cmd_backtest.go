package main

import (
	"errors"
	"fmt"
	"os"

	"tierbot/internal/agent"
	"tierbot/internal/app"
	"tierbot/internal/backtest"
	"tierbot/internal/logger"

	"github.com/spf13/cobra"
)

var (
	btSymbol  string
	btData    string
	btUseTest bool
	btNoStore bool
)

var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Replay recorded order book sessions through the strategy",
	Long: `backtest loads <data>/<symbol>_*.jsonl sessions (with --test only the tail
after backtest.train_ratio), replays them through the strategic scorer with the configured exit
rules and writes a JSON summary plus an HTML chart.

Example:
  tierbot backtest --symbol BTCUSDT
  tierbot backtest --symbol ETHUSDT --test --data data/collected`,
	RunE: runBacktest,
}

func init() {
	backtestCmd.Flags().StringVar(&btSymbol, "symbol", "", "symbol to replay (default: first trading symbol)")
	backtestCmd.Flags().StringVar(&btData, "data", "", "session directory (default: backtest.data_path)")
	backtestCmd.Flags().BoolVar(&btUseTest, "test", false, "replay only the held-out tail after train_ratio")
	backtestCmd.Flags().BoolVar(&btNoStore, "no-store", false, "do not persist the run")
}

func runBacktest(cmd *cobra.Command, args []string) error {
	cfg, cleanup, err := loadConfig()
	if err != nil {
		return err
	}
	defer cleanup()
	ctx := cmd.Context()

	symbol := btSymbol
	if symbol == "" {
		symbol = cfg.Trading.Symbols[0]
	}
	dir := btData
	if dir == "" {
		dir = cfg.Backtest.DataPath
	}
	useTest := btUseTest || cfg.Backtest.UseTest

	loader, err := backtest.NewLoader(cfg.Trading.Depth, cfg.Backtest.Strict)
	if err != nil {
		return err
	}
	ticks, err := loader.LoadSymbol(dir, symbol)
	if err != nil {
		return fmt.Errorf("load %s sessions: %w", symbol, err)
	}
	ticks = backtest.Split(ticks, cfg.Backtest.TrainRatio, useTest)
	logger.Infof("backtest %s: %d ticks (test=%v)", symbol, len(ticks), useTest)

	btCfg := app.BacktestConfig(cfg, symbol)
	engine := backtest.NewEngine(btCfg, agent.NewStrategy(app.StrategyConfig(cfg)))
	res, err := engine.Run(ctx, ticks)
	if err != nil && !errors.Is(err, backtest.ErrNoTrades) {
		return err
	}
	if errors.Is(err, backtest.ErrNoTrades) {
		logger.Warnf("backtest %s: no trades executed", symbol)
	}

	if !btNoStore {
		runs, err := backtest.OpenStore(cfg.Store.BacktestDir)
		if err != nil {
			return err
		}
		defer runs.Close()
		if err := runs.SaveRun(ctx, res, btCfg); err != nil {
			return fmt.Errorf("save run: %w", err)
		}
	}
	summaryPath, err := backtest.SaveSummary(cfg.Backtest.ReportDir, res)
	if err != nil {
		return err
	}
	reportPath, err := backtest.WriteReport(ctx, cfg.Backtest.ReportDir, res, cfg.Backtest.PNG)
	if err != nil {
		return err
	}
	logger.Infof("backtest %s: summary=%s report=%s", symbol, summaryPath, reportPath)
	return backtest.WriteSummary(os.Stdout, res)
}
