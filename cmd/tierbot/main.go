package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"tierbot/internal/config"
	"tierbot/internal/logger"

	"github.com/spf13/cobra"
)

var (
	configPath string
	envFiles   []string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "tierbot",
	Short: "Hierarchical signal trading bot",
	Long: `tierbot trades spot pairs off a three-tier signal hierarchy: an
account-level macro filter, an indicator-based strategic tier and an
order-book imbalance execution tier, guarded by daily risk limits.`,
	SilenceUsage: true,
}

func init() {
	def := os.Getenv("TIERBOT_CONFIG")
	if def == "" {
		def = "configs/config.yaml"
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", def, "config file (env TIERBOT_CONFIG)")
	rootCmd.PersistentFlags().StringSliceVar(&envFiles, "env-file", []string{".env"}, ".env files loaded before the config")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override app.log_level")
	rootCmd.AddCommand(runCmd, backtestCmd)
}

// loadConfig 读取 .env 与配置文件，并按配置初始化日志输出。
// 返回的 cleanup 关闭日志文件。
func loadConfig() (*config.Config, func(), error) {
	if err := config.LoadDotEnv(envFiles...); err != nil {
		return nil, nil, err
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("读取配置失败: %w", err)
	}
	if logLevel != "" {
		cfg.App.LogLevel = logLevel
	}
	logger.SetLevel(cfg.App.LogLevel)
	f, err := logger.TeeFile(cfg.App.LogPath)
	if err != nil {
		return nil, nil, fmt.Errorf("初始化日志文件失败: %w", err)
	}
	cleanup := func() {
		if f != nil {
			_ = f.Close()
		}
	}
	logger.Infof("✓ 配置加载成功（环境=%s，文件=%s）", cfg.App.Env, configPath)
	return cfg, cleanup, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
