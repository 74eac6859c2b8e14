package agent

import (
	"fmt"
	"math"
	"time"

	"tierbot/internal/analysis/indicator"
	"tierbot/internal/logger"
	"tierbot/internal/market"
	"tierbot/internal/signal"
)

const (
	strategySource     = "StrategyAgent"
	DefaultStrategyTTL = 30 * time.Second
	// DefaultMinPrices is the history needed before the strategic tier scores.
	DefaultMinPrices = 50
	directionCutoff  = 0.3

	rsiWeight  = 0.4
	macdWeight = 0.4
	bbWeight   = 0.2
)

type StrategyConfig struct {
	Params     indicator.Params
	MinPrices  int
	BufferSize int
	TTL        time.Duration
}

// Scores 为一次打分的完整拆解，回测与实盘共用。
type Scores struct {
	RSI       float64
	RSIScore  float64
	MACDHist  float64
	MACDScore float64
	BBPos     float64
	BBScore   float64
	Total     float64
	Score     float64
	Direction signal.Direction
	Snapshot  indicator.Snapshot
}

func (s Scores) Metadata() map[string]float64 {
	return map[string]float64{
		"rsi":            s.RSI,
		"rsi_score":      s.RSIScore,
		"macd_histogram": s.MACDHist,
		"macd_score":     s.MACDScore,
		"bb_position":    s.BBPos,
		"bb_score":       s.BBScore,
		"total_score":    s.Total,
	}
}

// Strategy is the strategic tier: RSI, MACD and Bollinger position blended
// into one directional opinion per symbol.
type Strategy struct {
	calc      *indicator.Calculator
	buffers   *market.BufferSet
	minPrices int
	ttl       time.Duration
}

func NewStrategy(cfg StrategyConfig) *Strategy {
	if cfg.MinPrices <= 0 {
		cfg.MinPrices = DefaultMinPrices
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultStrategyTTL
	}
	return &Strategy{
		calc:      indicator.NewCalculator(cfg.Params),
		buffers:   market.NewBufferSet(cfg.BufferSize),
		minPrices: cfg.MinPrices,
		ttl:       cfg.TTL,
	}
}

func (s *Strategy) TTL() time.Duration                { return s.ttl }
func (s *Strategy) Calculator() *indicator.Calculator { return s.calc }
func (s *Strategy) MinPrices() int                    { return s.minPrices }

func (s *Strategy) Buffer(symbol string) *market.Buffer {
	return s.buffers.Get(symbol)
}

func (s *Strategy) Update(symbol string, price, volume float64) {
	s.buffers.Get(symbol).Push(price, volume)
}

// Analyze scores the current buffer of symbol. It does not push data.
func (s *Strategy) Analyze(symbol string, now time.Time) signal.Signal {
	buf := s.buffers.Get(symbol)
	if !buf.Ready(s.minPrices) {
		logger.Debugf("strategy: %s has %d/%d prices", symbol, buf.Len(), s.minPrices)
		return signal.NoSignal(signal.Strategic, strategySource, "Insufficient data for indicators", now)
	}
	sc, ok := s.Score(buf.Prices())
	if !ok {
		return signal.NoSignal(signal.Strategic, strategySource, "Insufficient data for indicators", now)
	}
	reason := fmt.Sprintf("RSI=%.1f, MACD_hist=%.2f, BB_pos=%.2f", sc.RSI, sc.MACDHist, sc.BBPos)
	return signal.New(sc.Direction, sc.Score, signal.Strategic, now, s.ttl, strategySource, reason, sc.Metadata())
}

// Score 对价格序列打分；序列短于 MinPrices 时返回 false。
func (s *Strategy) Score(prices []float64) (Scores, bool) {
	if len(prices) < s.minPrices {
		return Scores{}, false
	}
	p := s.calc.Params()
	snap := s.calc.Compute(prices, nil)
	var sc Scores
	sc.Snapshot = snap

	if snap.HasRSI {
		sc.RSI = snap.RSI
		sc.RSIScore = rsiScore(snap.RSI, p.RSIOversold, p.RSIOverbought)
	}
	if snap.HasMACD {
		sc.MACDHist = snap.MACDHist
		sc.MACDScore = macdScore(snap.MACD, snap.MACDHist)
	}
	if snap.HasBB {
		sc.BBPos = snap.BBPosition
		sc.BBScore = -snap.BBPosition
	}

	sc.Total = sc.RSIScore*rsiWeight + sc.MACDScore*macdWeight + sc.BBScore*bbWeight
	sc.Score = (sc.Total + 1) / 2
	switch {
	case sc.Total > directionCutoff:
		sc.Direction = signal.Long
	case sc.Total < -directionCutoff:
		sc.Direction = signal.Short
	default:
		sc.Direction = signal.Neutral
	}
	return sc, true
}

func rsiScore(rsi, oversold, overbought float64) float64 {
	switch {
	case rsi < oversold:
		return (oversold - rsi) / oversold
	case rsi > overbought:
		return -(rsi - overbought) / (100 - overbought)
	}
	return 0
}

// macdScore normalises the histogram by the MACD line; a zero line falls
// back to ±0.5 by the histogram sign.
func macdScore(line, hist float64) float64 {
	if line == 0 {
		if hist > 0 {
			return 0.5
		}
		return -0.5
	}
	return math.Max(-1, math.Min(1, hist/math.Abs(line)))
}
