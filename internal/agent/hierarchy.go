package agent

import (
	"sync"
	"time"

	"tierbot/internal/analysis/indicator"
	"tierbot/internal/logger"
	"tierbot/internal/market"
	"tierbot/internal/signal"
)

const (
	// DefaultVolatility is used until the strategy buffer holds volMinPrices.
	DefaultVolatility      = 0.02
	volMinPrices           = 20
	DefaultSignalThreshold = 0.6
)

type HierarchyConfig struct {
	SignalThreshold float64
}

// Hierarchy chains macro → strategic → tactical. Macro and strategic
// signals are cached until their TTL lapses; the tactical tier is always
// recomputed from the live book.
type Hierarchy struct {
	macro     *MacroFilter
	strategy  *Strategy
	execution *Execution
	cache     *signal.Cache
	threshold float64
	now       func() time.Time

	mu            sync.Mutex
	lastMacro     *signal.Signal
	lastStrategic map[string]signal.Signal
}

func NewHierarchy(cfg HierarchyConfig, macro *MacroFilter, strategy *Strategy, execution *Execution) *Hierarchy {
	if cfg.SignalThreshold <= 0 {
		cfg.SignalThreshold = DefaultSignalThreshold
	}
	return &Hierarchy{
		macro:     macro,
		strategy:  strategy,
		execution: execution,
		cache:     signal.NewCache(),
		threshold: cfg.SignalThreshold,
		now:       time.Now,

		lastStrategic: make(map[string]signal.Signal),
	}
}

// SetClock is used by replay and tests.
func (h *Hierarchy) SetClock(now func() time.Time) {
	if now != nil {
		h.now = now
	}
}

func (h *Hierarchy) Cache() *signal.Cache  { return h.cache }
func (h *Hierarchy) Strategy() *Strategy   { return h.strategy }
func (h *Hierarchy) Execution() *Execution { return h.execution }
func (h *Hierarchy) Threshold() float64    { return h.threshold }

// Evaluate 处理一个 tick。价格总是写入战略缓冲区，即使战略信号命中缓存。
func (h *Hierarchy) Evaluate(symbol string, book market.OrderBook, price, volume float64) (signal.ExecutionSignal, bool) {
	now := h.now()

	macro, _ := h.cache.GetOrCompute(signal.Key(signal.Macro, ""), now, func() signal.Signal {
		return h.macro.Analyze(now)
	})
	h.remember(symbol, &macro, nil)
	if Blocks(macro) {
		logger.Debugf("hierarchy: %s blocked by macro: %s", symbol, macro.Reason)
		return signal.ExecutionSignal{}, false
	}

	h.strategy.Update(symbol, price, volume)
	strategic, _ := h.cache.GetOrCompute(signal.Key(signal.Strategic, symbol), now, func() signal.Signal {
		return h.strategy.Analyze(symbol, now)
	})
	h.remember(symbol, nil, &strategic)
	if strategic.Direction == signal.Neutral || strategic.Score < h.threshold {
		return signal.ExecutionSignal{}, false
	}

	vol := Volatility(h.strategy.Buffer(symbol).Prices())
	exec := h.execution.Analyze(book, strategic, vol, now)
	if exec.Direction == signal.Neutral {
		logger.Debugf("hierarchy: %s %s: %s", symbol, strategic.Direction, exec.Reason)
		return signal.ExecutionSignal{}, false
	}
	logger.Infof("hierarchy: %s fire %s score=%.3f size=%.0f (%s)", symbol, exec.Direction, exec.Score, exec.PositionSize, exec.Reason)
	return exec, true
}

func (h *Hierarchy) remember(symbol string, macro, strategic *signal.Signal) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if macro != nil {
		m := *macro
		h.lastMacro = &m
	}
	if strategic != nil {
		h.lastStrategic[symbol] = *strategic
	}
}

// LastSignals returns the most recent macro and strategic signals seen for
// symbol, valid or not.
func (h *Hierarchy) LastSignals(symbol string) (macro, strategic signal.Signal, haveMacro, haveStrategic bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.lastMacro != nil {
		macro, haveMacro = *h.lastMacro, true
	}
	strategic, haveStrategic = h.lastStrategic[symbol]
	return
}

// Indicators computes the current snapshot from the strategy buffer; used to
// stamp positions at entry.
func (h *Hierarchy) Indicators(symbol string) indicator.Snapshot {
	buf := h.strategy.Buffer(symbol)
	return h.strategy.Calculator().Compute(buf.Prices(), buf.Volumes())
}

// Volatility is the population std of simple returns; DefaultVolatility
// below volMinPrices.
func Volatility(prices []float64) float64 {
	if len(prices) < volMinPrices {
		return DefaultVolatility
	}
	rets := make([]float64, 0, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		if prices[i-1] == 0 {
			continue
		}
		rets = append(rets, (prices[i]-prices[i-1])/prices[i-1])
	}
	_, std := meanStd(rets)
	return std
}
