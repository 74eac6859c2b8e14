package config

import (
	"strings"
	"time"
)

// Config 是 tierbot 的主配置载体。
type Config struct {
	App       AppConfig       `toml:"app"`
	Trading   TradingConfig   `toml:"trading"`
	Indicator IndicatorConfig `toml:"indicator"`
	Execution ExecutionConfig `toml:"execution"`
	Exit      ExitConfig      `toml:"exit"`
	Fees      FeesConfig      `toml:"fees"`
	Risk      RiskConfig      `toml:"risk"`
	Filter    FilterConfig    `toml:"filter"`
	Retry     RetryConfig     `toml:"retry"`
	Exchange  ExchangeConfig  `toml:"exchange"`
	Notifier  NotifierConfig  `toml:"notifier"`
	Store     StoreConfig     `toml:"store"`
	Backtest  BacktestConfig  `toml:"backtest"`
}

type AppConfig struct {
	Env      string `toml:"env"`
	LogLevel string `toml:"log_level"`
	LogPath  string `toml:"log_path"`
	HTTPAddr string `toml:"http_addr"`
	Timezone string `toml:"timezone"`
}

// Location resolves Timezone, falling back to UTC.
func (a AppConfig) Location() *time.Location {
	if strings.TrimSpace(a.Timezone) == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(a.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// TradingConfig 控制交易标的、下单金额与各层信号 TTL。
type TradingConfig struct {
	Preset          string        `toml:"preset"` // "" | aggressive | conservative
	Symbols         []string      `toml:"symbols"`
	TradeAmount     float64       `toml:"trade_amount"` // 报价币金额
	Depth           int           `toml:"depth"`
	SlippageBps     float64       `toml:"slippage_bps"`
	SignalThreshold float64       `toml:"signal_threshold"`
	MacroTTL        time.Duration `toml:"macro_ttl"`
	StrategyTTL     time.Duration `toml:"strategy_ttl"`
	ExecutionTTL    time.Duration `toml:"execution_ttl"`
	BufferSize      int           `toml:"buffer_size"`
	LoopInterval    time.Duration `toml:"loop_interval"`
	ErrorBackoff    time.Duration `toml:"error_backoff"`
	ExitInterval    time.Duration `toml:"exit_interval"`
	MaxSpreadBps    float64       `toml:"max_spread_bps"`
	LiquidityLevels int           `toml:"liquidity_levels"`
	LiquidityFactor float64       `toml:"liquidity_factor"`
}

type IndicatorConfig struct {
	Mode          string  `toml:"mode"` // simplified | textbook
	MinPrices     int     `toml:"min_prices"`
	RSIPeriod     int     `toml:"rsi_period"`
	RSIOversold   float64 `toml:"rsi_oversold"`
	RSIOverbought float64 `toml:"rsi_overbought"`
	MACDFast      int     `toml:"macd_fast"`
	MACDSlow      int     `toml:"macd_slow"`
	MACDSignal    int     `toml:"macd_signal"`
	BBPeriod      int     `toml:"bb_period"`
	BBStd         float64 `toml:"bb_std"`
	StochK        int     `toml:"stoch_k"`
	StochD        int     `toml:"stoch_d"`
	VolumePeriod  int     `toml:"volume_period"`
}

// ExecutionConfig 为盘口执行层的 WOBI 与价差/深度门槛。
type ExecutionConfig struct {
	BookDepth     int     `toml:"book_depth"`
	WOBIWindow    int     `toml:"wobi_window"`
	ZThreshold    float64 `toml:"z_threshold"`
	MaxSpread     float64 `toml:"max_spread"`
	DepthLevels   int     `toml:"depth_levels"`
	LongMaxDepth  float64 `toml:"long_max_depth"`
	ShortMinDepth float64 `toml:"short_min_depth"`
}

type ExitConfig struct {
	TakeProfit      float64       `toml:"take_profit"`
	StopLoss        float64       `toml:"stop_loss"`
	TimeCut         time.Duration `toml:"time_cut"`
	TrailingEnabled bool          `toml:"trailing_enabled"`
	TrailingPct     float64       `toml:"trailing_pct"`
}

type FeesConfig struct {
	Maker float64 `toml:"maker"`
	Taker float64 `toml:"taker"`
}

// RiskConfig: max_daily_loss 为负数（亏损上限）。
type RiskConfig struct {
	MaxDailyLoss         float64 `toml:"max_daily_loss"`
	MaxConsecutiveLosses int     `toml:"max_consecutive_losses"`
	MaxPositions         int     `toml:"max_positions"`
	MaxPositionSize      float64 `toml:"max_position_size"`
	BaseSize             float64 `toml:"base_size"`
	TargetVolatility     float64 `toml:"target_volatility"`
	MinSizeFactor        float64 `toml:"min_size_factor"`
	MaxSizeFactor        float64 `toml:"max_size_factor"`
}

// FilterConfig 描述可选的外部分类器。
type FilterConfig struct {
	Enabled   bool          `toml:"enabled"`
	URL       string        `toml:"url"`
	Threshold float64       `toml:"threshold"`
	Timeout   time.Duration `toml:"timeout"`
}

type RetryConfig struct {
	EntryAttempts int           `toml:"entry_attempts"`
	EntryDelay    time.Duration `toml:"entry_delay"`
	ExitAttempts  int           `toml:"exit_attempts"`
	ExitDelay     time.Duration `toml:"exit_delay"`
}

type ExchangeConfig struct {
	Name      string  `toml:"name"`
	APIKey    string  `toml:"api_key"`
	APISecret string  `toml:"api_secret"`
	Testnet   bool    `toml:"testnet"`
	RateLimit float64 `toml:"rate_limit"` // 每秒请求数
	Burst     int     `toml:"burst"`
	// 熔断：连续失败 BreakerFailures 次后打开 BreakerCooldown。
	BreakerFailures int           `toml:"breaker_failures"`
	BreakerCooldown time.Duration `toml:"breaker_cooldown"`
}

type NotifierConfig struct {
	Enabled       bool          `toml:"enabled"`
	TelegramToken string        `toml:"telegram_token"`
	ChatID        string        `toml:"chat_id"`
	PollInterval  time.Duration `toml:"poll_interval"`
	APIBase       string        `toml:"api_base"`
}

type StoreConfig struct {
	JournalPath string `toml:"journal_path"`
	BacktestDir string `toml:"backtest_dir"`
}

type BacktestConfig struct {
	DataPath   string  `toml:"data_path"`
	TrainRatio float64 `toml:"train_ratio"`
	UseTest    bool    `toml:"use_test"`
	ReportDir  string  `toml:"report_dir"`
	PNG        bool    `toml:"png"`
	Strict     bool    `toml:"strict"`
}

type keySet map[string]struct{}

func (k keySet) mark(path string) {
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return
	}
	k[path] = struct{}{}
}

func (k keySet) isSet(path string) bool {
	if len(k) == 0 {
		return false
	}
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return false
	}
	_, ok := k[path]
	return ok
}
