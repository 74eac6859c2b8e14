package position

import (
	"fmt"
	"time"

	"tierbot/internal/analysis/indicator"
)

type Side uint8

const (
	Long Side = iota
	Short
)

func (s Side) String() string {
	switch s {
	case Long:
		return "LONG"
	case Short:
		return "SHORT"
	default:
		return fmt.Sprintf("Side(%d)", uint8(s))
	}
}

type ExitReason uint8

const (
	ExitNone ExitReason = iota
	ExitTakeProfit
	ExitStopLoss
	ExitTrailingStop
	ExitTimeCut
	ExitDailyLimit
	ExitManual
	ExitEmergency
)

func (r ExitReason) String() string {
	switch r {
	case ExitTakeProfit:
		return "TP"
	case ExitStopLoss:
		return "SL"
	case ExitTrailingStop:
		return "TS"
	case ExitTimeCut:
		return "TC"
	case ExitDailyLimit:
		return "DL"
	case ExitManual:
		return "MANUAL"
	case ExitEmergency:
		return "EMERGENCY"
	case ExitNone:
		return "NONE"
	default:
		return fmt.Sprintf("ExitReason(%d)", uint8(r))
	}
}

// ParseExitReason is the inverse of String; unknown input yields ExitNone.
func ParseExitReason(s string) ExitReason {
	for r := ExitTakeProfit; r <= ExitEmergency; r++ {
		if r.String() == s {
			return r
		}
	}
	return ExitNone
}

// Position 为一笔已成交、尚未平仓的持仓。HighWater 只增不减（空头为 LowWater 只减不增）。
type Position struct {
	ID          string
	Symbol      string
	Side        Side
	EntryTime   time.Time
	EntryPrice  float64
	Amount      float64
	EntryFee    float64
	SignalScore float64
	Indicators  indicator.Snapshot
	HighWater   float64
	LowWater    float64
}

// Cost is the quote-currency notional paid at entry, fee excluded.
func (p Position) Cost() float64 {
	return p.EntryPrice * p.Amount
}

// PnLRate is the unrealised return at price, before fees.
func (p Position) PnLRate(price float64) float64 {
	if p.EntryPrice <= 0 {
		return 0
	}
	if p.Side == Short {
		return (p.EntryPrice - price) / p.EntryPrice
	}
	return (price - p.EntryPrice) / p.EntryPrice
}

// Trade is the immutable round-trip record produced by Manager.Close.
type Trade struct {
	ID          string
	Symbol      string
	Side        Side
	EntryTime   time.Time
	ExitTime    time.Time
	EntryPrice  float64
	ExitPrice   float64
	Amount      float64
	EntryFee    float64
	ExitFee     float64
	PnL         float64
	Reason      ExitReason
	Holding     time.Duration
	SignalScore float64
	Indicators  indicator.Snapshot
}

// NetPnL: (exit-entry)*amount - fees for LONG, sign inverted for SHORT.
func NetPnL(side Side, entry, exit, amount, entryFee, exitFee float64) float64 {
	gross := (exit - entry) * amount
	if side == Short {
		gross = -gross
	}
	return gross - entryFee - exitFee
}

func (t Trade) PnLRate() float64 {
	cost := t.EntryPrice * t.Amount
	if cost <= 0 {
		return 0
	}
	return t.PnL / cost
}

func (t Trade) Win() bool { return t.PnL > 0 }
