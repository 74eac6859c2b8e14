// Package signal defines the time-limited opinions exchanged between the
// macro, strategic and tactical tiers.
package signal

import (
	"fmt"
	"math"
	"time"
)

type Direction uint8

const (
	Neutral Direction = iota
	Long
	Short
)

func (d Direction) String() string {
	switch d {
	case Long:
		return "LONG"
	case Short:
		return "SHORT"
	case Neutral:
		return "NEUTRAL"
	default:
		return fmt.Sprintf("Direction(%d)", uint8(d))
	}
}

type Level uint8

const (
	Macro Level = iota
	Strategic
	Tactical
)

func (l Level) String() string {
	switch l {
	case Macro:
		return "MACRO"
	case Strategic:
		return "STRATEGIC"
	case Tactical:
		return "TACTICAL"
	default:
		return fmt.Sprintf("Level(%d)", uint8(l))
	}
}

// Signal is immutable once built; callers receive it by value.
type Signal struct {
	Direction Direction
	Score     float64
	Level     Level
	IssuedAt  time.Time
	TTL       time.Duration
	Source    string
	Reason    string
	Metadata  map[string]float64
}

// New clamps score into [0,1]; NaN becomes 0.
func New(dir Direction, score float64, level Level, issuedAt time.Time, ttl time.Duration, source, reason string, meta map[string]float64) Signal {
	if ttl < 0 {
		ttl = 0
	}
	return Signal{
		Direction: dir,
		Score:     clampScore(score),
		Level:     level,
		IssuedAt:  issuedAt,
		TTL:       ttl,
		Source:    source,
		Reason:    reason,
		Metadata:  meta,
	}
}

// NoSignal 是 TTL 为 0 的哨兵信号，永远无效。
func NoSignal(level Level, source, reason string, now time.Time) Signal {
	return Signal{
		Direction: Neutral,
		Level:     level,
		IssuedAt:  now,
		Source:    source,
		Reason:    reason,
	}
}

func (s Signal) IsValid(now time.Time) bool {
	if s.TTL <= 0 {
		return false
	}
	return now.Sub(s.IssuedAt) < s.TTL
}

// IsNoSignal reports the sentinel shape: neutral, zero score, zero TTL.
func (s Signal) IsNoSignal() bool {
	return s.TTL == 0 && s.Direction == Neutral && s.Score == 0
}

func (s Signal) ExpiresAt() time.Time {
	return s.IssuedAt.Add(s.TTL)
}

// Remaining never goes below zero.
func (s Signal) Remaining(now time.Time) time.Duration {
	left := s.ExpiresAt().Sub(now)
	if left < 0 {
		return 0
	}
	return left
}

func (s Signal) Meta(key string) float64 {
	if s.Metadata == nil {
		return 0
	}
	return s.Metadata[key]
}

func (s Signal) String() string {
	return fmt.Sprintf("%s/%s score=%.3f ttl=%s src=%s reason=%q", s.Level, s.Direction, s.Score, s.TTL, s.Source, s.Reason)
}

const DefaultExecutionTTL = 30 * time.Second

// ExecutionSignal 在战术层信号上附加下单金额与预期滑点。
type ExecutionSignal struct {
	Signal
	PositionSize     float64
	ExpectedSlippage float64
}

func NewExecution(dir Direction, score float64, issuedAt time.Time, ttl time.Duration, source, reason string, size, slippage float64, meta map[string]float64) ExecutionSignal {
	if ttl <= 0 {
		ttl = DefaultExecutionTTL
	}
	return ExecutionSignal{
		Signal:           New(dir, score, Tactical, issuedAt, ttl, source, reason, meta),
		PositionSize:     size,
		ExpectedSlippage: slippage,
	}
}

func clampScore(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(1, v))
}
