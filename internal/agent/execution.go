package agent

import (
	"fmt"
	"math"
	"time"

	"tierbot/internal/market"
	"tierbot/internal/signal"
)

const (
	executionSource     = "ExecutionAgent"
	DefaultExecutionTTL = 10 * time.Second
)

// Sizer turns volatility and confidence into a quote-currency notional.
type Sizer interface {
	PositionSize(volatility, confidence float64) float64
}

type ExecutionConfig struct {
	BookDepth     int     // WOBI 计算档位数
	WOBIWindow    int     // z-score 窗口
	ZThreshold    float64 // |z| 触发阈值
	MaxSpread     float64 // (ask0-bid0)/bid0 上限
	DepthLevels   int
	LongMaxDepth  float64
	ShortMinDepth float64
	TTL           time.Duration
}

func DefaultExecutionConfig() ExecutionConfig {
	return ExecutionConfig{
		BookDepth:     10,
		WOBIWindow:    100,
		ZThreshold:    2.0,
		MaxSpread:     0.001,
		DepthLevels:   5,
		LongMaxDepth:  1.5,
		ShortMinDepth: 0.67,
		TTL:           DefaultExecutionTTL,
	}
}

func (c ExecutionConfig) withDefaults() ExecutionConfig {
	def := DefaultExecutionConfig()
	if c.BookDepth <= 0 {
		c.BookDepth = def.BookDepth
	}
	if c.WOBIWindow <= 0 {
		c.WOBIWindow = def.WOBIWindow
	}
	if c.ZThreshold <= 0 {
		c.ZThreshold = def.ZThreshold
	}
	if c.MaxSpread <= 0 {
		c.MaxSpread = def.MaxSpread
	}
	if c.DepthLevels <= 0 {
		c.DepthLevels = def.DepthLevels
	}
	if c.LongMaxDepth <= 0 {
		c.LongMaxDepth = def.LongMaxDepth
	}
	if c.ShortMinDepth <= 0 {
		c.ShortMinDepth = def.ShortMinDepth
	}
	if c.TTL <= 0 {
		c.TTL = def.TTL
	}
	return c
}

// Execution is the tactical tier. It times entries off order book
// imbalance, spread and depth once the strategic tier has a direction.
type Execution struct {
	cfg   ExecutionConfig
	sizer Sizer
	wobis *market.BufferSet
}

func NewExecution(cfg ExecutionConfig, sizer Sizer) *Execution {
	cfg = cfg.withDefaults()
	return &Execution{cfg: cfg, sizer: sizer, wobis: market.NewBufferSet(cfg.WOBIWindow)}
}

func (e *Execution) Config() ExecutionConfig { return e.cfg }

// WOBIs returns the current imbalance window of symbol, oldest first.
func (e *Execution) WOBIs(symbol string) []float64 {
	return e.wobis.Get(symbol).WOBIs()
}

func (e *Execution) noSignal(now time.Time, reason string) signal.ExecutionSignal {
	return signal.ExecutionSignal{Signal: signal.NoSignal(signal.Tactical, executionSource, reason, now)}
}

// Analyze 在战略方向确定后评估即时入场条件；只有方向非中性时才记录 WOBI。
func (e *Execution) Analyze(book market.OrderBook, strategic signal.Signal, volatility float64, now time.Time) signal.ExecutionSignal {
	if strategic.Direction == signal.Neutral {
		return e.noSignal(now, "No strategic direction")
	}

	wobi := book.WOBI(e.cfg.BookDepth)
	buf := e.wobis.Get(book.Symbol)
	buf.PushWOBI(wobi)
	window := buf.WOBIs()
	if len(window) < e.cfg.WOBIWindow {
		return e.noSignal(now, "Insufficient WOBI history")
	}
	z := zScore(wobi, window)

	spread := book.SpreadRate()
	depth := book.DepthRatio(e.cfg.DepthLevels)
	spreadOK := spread < e.cfg.MaxSpread

	var wobiOK, depthOK bool
	if strategic.Direction == signal.Long {
		wobiOK = z > e.cfg.ZThreshold
		depthOK = depth < e.cfg.LongMaxDepth
	} else {
		wobiOK = z < -e.cfg.ZThreshold
		depthOK = depth > e.cfg.ShortMinDepth
	}
	if !(wobiOK && spreadOK && depthOK) {
		return e.noSignal(now, fmt.Sprintf("Unfavorable execution: z=%.2f, spread=%.4f, depth=%.2f", z, spread, depth))
	}

	var size float64
	if e.sizer != nil {
		size = e.sizer.PositionSize(volatility, strategic.Score)
	}
	strength := math.Min(1, math.Abs(z)/5)
	score := strength*0.6 + strategic.Score*0.4
	meta := map[string]float64{
		"wobi":        wobi,
		"zscore":      z,
		"spread":      spread,
		"depth_ratio": depth,
		"volatility":  volatility,
	}
	reason := fmt.Sprintf("Favorable execution: WOBI_z=%.2f, spread=%.4f", z, spread)
	return signal.NewExecution(strategic.Direction, score, now, e.cfg.TTL, executionSource, reason, size, spread/2, meta)
}

// zScore uses the population standard deviation; a flat window yields 0.
func zScore(v float64, window []float64) float64 {
	mean, std := meanStd(window)
	if std == 0 {
		return 0
	}
	return (v - mean) / std
}

func meanStd(xs []float64) (float64, float64) {
	if len(xs) == 0 {
		return 0, 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	mean := sum / float64(len(xs))
	var ss float64
	for _, x := range xs {
		ss += (x - mean) * (x - mean)
	}
	return mean, math.Sqrt(ss / float64(len(xs)))
}
