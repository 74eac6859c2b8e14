// Package backtest replays recorded order book ticks through the strategic
// scorer and the shared exit rules to produce a trade ledger and statistics.
package backtest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"tierbot/internal/agent"
	"tierbot/internal/logger"
	"tierbot/internal/market"
	"tierbot/internal/position"
	"tierbot/internal/signal"
)

var ErrNoTrades = errors.New("backtest: no trades executed")

// DefaultTickInterval stands in for missing tick timestamps.
const DefaultTickInterval = 100 * time.Millisecond

// Scorer is the strategic scoring core; *agent.Strategy satisfies it.
type Scorer interface {
	Score(prices []float64) (agent.Scores, bool)
}

type Config struct {
	Symbol          string
	TradeAmount     float64
	SlippageBps     float64
	TakerFee        float64
	// SignalThreshold 与实盘编排器的入场门槛一致；为 0 时仅按方向入场。
	SignalThreshold float64
	BufferSize      int
	Exit            position.ExitRules
	TickInterval    time.Duration
}

// Marker 记录一次开仓或平仓，用于报告绘图。
type Marker struct {
	Time   time.Time `json:"time" yaml:"time"`
	Price  float64   `json:"price" yaml:"price"`
	Entry  bool      `json:"entry" yaml:"entry"`
	Reason string    `json:"reason,omitempty" yaml:"reason,omitempty"`
}

type PricePoint struct {
	Time  time.Time
	Price float64
}

type Result struct {
	RunID   string
	Symbol  string
	Ticks   int
	From    time.Time
	To      time.Time
	Trades  []position.Trade
	Stats   Stats
	Prices  []PricePoint
	Markers []Marker
	// OpenAtEnd is set when a position was still open on the last tick; it
	// is not part of the ledger.
	OpenAtEnd bool
}

type Engine struct {
	cfg    Config
	scorer Scorer
}

func NewEngine(cfg Config, scorer Scorer) *Engine {
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = DefaultTickInterval
	}
	return &Engine{cfg: cfg, scorer: scorer}
}

func (e *Engine) Config() Config { return e.cfg }

// Run replays ticks in order. At most one position is held; a LONG scored
// at or above the signal threshold opens it at the slipped best ask, and
// the exit rules close it at the slipped best bid. The tick that opens a
// position is not checked for exit.
func (e *Engine) Run(ctx context.Context, ticks []market.Tick) (*Result, error) {
	if len(ticks) == 0 {
		return nil, ErrNoData
	}
	cfg := e.cfg
	res := &Result{
		RunID:  uuid.NewString(),
		Symbol: cfg.Symbol,
		Ticks:  len(ticks),
		Prices: make([]PricePoint, 0, len(ticks)),
	}

	var now time.Time
	positions := position.NewManager(cfg.Exit)
	positions.SetClock(func() time.Time { return now })
	buf := market.NewBuffer(cfg.BufferSize)
	slip := cfg.SlippageBps / 1e4
	openID := ""

	for i, tk := range ticks {
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		now = e.tickTime(tk, i)
		res.Prices = append(res.Prices, PricePoint{Time: now, Price: tk.Price})
		buf.Push(tk.Price, tk.Volume)
		sc, scored := e.scorer.Score(buf.Prices())

		if openID == "" {
			if !scored || sc.Direction != signal.Long || sc.Score < cfg.SignalThreshold {
				continue
			}
			ask := tk.Book.BestAsk()
			if ask <= 0 {
				continue
			}
			entry := ask * (1 + slip)
			p := position.Position{
				ID:          fmt.Sprintf("%s-%d", res.RunID[:8], i),
				Symbol:      cfg.Symbol,
				Side:        position.Long,
				EntryTime:   now,
				EntryPrice:  entry,
				Amount:      cfg.TradeAmount / entry,
				EntryFee:    cfg.TradeAmount * cfg.TakerFee,
				SignalScore: sc.Score,
				Indicators:  sc.Snapshot,
				HighWater:   entry,
			}
			if err := positions.Open(p); err != nil {
				return nil, err
			}
			openID = p.ID
			res.Markers = append(res.Markers, Marker{Time: now, Price: entry, Entry: true})
			continue
		}

		bid := tk.Book.BestBid()
		if bid <= 0 {
			continue
		}
		exitPrice := bid * (1 - slip)
		if cfg.Exit.TrailingEnabled {
			positions.UpdateTrailingHigh(openID, tk.Price)
		}
		p, _ := positions.Get(openID)
		reason, hit := cfg.Exit.EvaluateAt(p, exitPrice, tk.Price, now)
		if !hit {
			continue
		}
		trade, err := positions.Close(openID, exitPrice, exitPrice*p.Amount*cfg.TakerFee, reason)
		if err != nil {
			return nil, err
		}
		res.Trades = append(res.Trades, trade)
		res.Markers = append(res.Markers, Marker{Time: now, Price: exitPrice, Reason: reason.String()})
		openID = ""
	}

	res.From = res.Prices[0].Time
	res.To = res.Prices[len(res.Prices)-1].Time
	res.OpenAtEnd = openID != ""
	if res.OpenAtEnd {
		logger.Infof("backtest: %s position still open at data end, excluded", cfg.Symbol)
	}
	res.Stats = ComputeStats(res.Trades)
	if len(res.Trades) == 0 {
		logger.Warnf("backtest: %s produced no trades over %d ticks", cfg.Symbol, len(ticks))
		return res, ErrNoTrades
	}
	logger.Infof("backtest: %s trades=%d win_rate=%.1f%% pnl=%.0f sharpe=%.2f mdd=%.0f",
		cfg.Symbol, res.Stats.TotalTrades, res.Stats.WinRate*100, res.Stats.TotalPnL, res.Stats.Sharpe, res.Stats.MaxDrawdown)
	return res, nil
}

// tickTime falls back to a synthetic clock of TickInterval per tick when
// the recording has no timestamps.
func (e *Engine) tickTime(tk market.Tick, i int) time.Time {
	if !tk.Time.IsZero() {
		return tk.Time
	}
	return time.Unix(0, 0).UTC().Add(time.Duration(i) * e.cfg.TickInterval)
}
