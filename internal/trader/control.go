package trader

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"tierbot/internal/gateway/notifier"
	"tierbot/internal/logger"
	"tierbot/internal/position"
	"tierbot/internal/risk"
	"tierbot/internal/store/model"
)

const (
	StateRunning   = "RUNNING"
	StateStopped   = "STOPPED"
	StateEmergency = "EMERGENCY"
)

// EmergencyStop halts entries, drops cached macro/strategic signals and
// force-closes every position. Positions that fail to close stay flagged
// and are retried by the exit loop.
func (b *Bot) EmergencyStop(ctx context.Context, reason string) error {
	if strings.TrimSpace(reason) == "" {
		reason = "manual"
	}
	logger.Errorf("trader: emergency stop: %s", reason)
	b.Risk.Activate(reason)
	b.liquidate.Store(true)
	b.Decider.Cache().Reset()
	b.Metrics.SetEmergency(true)
	b.notify(ctx, notifier.EmergencyMessage(reason, b.now()))
	b.recordEvent(ctx, model.EventEmergencyStop, "", reason, map[string]any{"positions": b.Positions.Count()})

	var errs []error
	for _, p := range b.Positions.All() {
		_, err := b.ExecuteExit(ctx, p, position.ExitEmergency)
		if err != nil && !alreadyClosing(err) {
			errs = append(errs, fmt.Errorf("%s: %w", p.Symbol, err))
		}
	}
	b.syncGauges()
	return errors.Join(errs...)
}

// alreadyClosing reports whether another path owns or finished the close.
func alreadyClosing(err error) bool {
	return errors.Is(err, position.ErrPositionClosing) || errors.Is(err, position.ErrPositionNotFound)
}

// Resume clears the stop; the cache is reset so no pre-stop macro verdict
// is reused.
func (b *Bot) Resume(ctx context.Context) {
	b.Risk.Deactivate()
	b.liquidate.Store(false)
	b.Decider.Cache().Reset()
	b.Metrics.SetEmergency(false)
	b.recordEvent(ctx, model.EventResume, "", "resumed", nil)
	logger.Infof("trader: resumed")
}

type PositionView struct {
	ID          string    `json:"id"`
	Symbol      string    `json:"symbol"`
	Side        string    `json:"side"`
	EntryTime   time.Time `json:"entry_time"`
	EntryPrice  float64   `json:"entry_price"`
	Amount      float64   `json:"amount"`
	EntryFee    float64   `json:"entry_fee"`
	SignalScore float64   `json:"signal_score"`
	HighWater   float64   `json:"high_water"`
	HoldingSec  float64   `json:"holding_sec"`
}

type TradeView struct {
	ID         string    `json:"id"`
	Symbol     string    `json:"symbol"`
	Side       string    `json:"side"`
	EntryTime  time.Time `json:"entry_time"`
	ExitTime   time.Time `json:"exit_time"`
	EntryPrice float64   `json:"entry_price"`
	ExitPrice  float64   `json:"exit_price"`
	Amount     float64   `json:"amount"`
	PnL        float64   `json:"pnl"`
	PnLRate    float64   `json:"pnl_rate"`
	Reason     string    `json:"reason"`
	HoldingSec float64   `json:"holding_sec"`
}

func NewTradeView(t position.Trade) TradeView {
	return TradeView{
		ID:         t.ID,
		Symbol:     t.Symbol,
		Side:       t.Side.String(),
		EntryTime:  t.EntryTime,
		ExitTime:   t.ExitTime,
		EntryPrice: t.EntryPrice,
		ExitPrice:  t.ExitPrice,
		Amount:     t.Amount,
		PnL:        t.PnL,
		PnLRate:    t.PnLRate(),
		Reason:     t.Reason.String(),
		HoldingSec: t.Holding.Seconds(),
	}
}

type Status struct {
	State      string          `json:"status"`
	StopReason string          `json:"stop_reason,omitempty"`
	Symbols    []string        `json:"symbols"`
	Daily      risk.DailyStats `json:"daily"`
	Sharpe     float64         `json:"sharpe"`
	Positions  []PositionView  `json:"positions"`
	Limits     risk.Limits     `json:"limits"`
	Time       time.Time       `json:"time"`
}

func (b *Bot) OpenPositions() []PositionView {
	now := b.now()
	all := b.Positions.All()
	out := make([]PositionView, 0, len(all))
	for _, p := range all {
		out = append(out, PositionView{
			ID:          p.ID,
			Symbol:      p.Symbol,
			Side:        p.Side.String(),
			EntryTime:   p.EntryTime,
			EntryPrice:  p.EntryPrice,
			Amount:      p.Amount,
			EntryFee:    p.EntryFee,
			SignalScore: p.SignalScore,
			HighWater:   p.HighWater,
			HoldingSec:  now.Sub(p.EntryTime).Seconds(),
		})
	}
	return out
}

func (b *Bot) Status() Status {
	snap := b.Risk.Snapshot()
	state := StateStopped
	switch {
	case snap.EmergencyStop:
		state = StateEmergency
	case b.Running():
		state = StateRunning
	}
	return Status{
		State:      state,
		StopReason: snap.StopReason,
		Symbols:    append([]string(nil), b.cfg.Symbols...),
		Daily:      b.Risk.DailyStats(),
		Sharpe:     snap.Sharpe,
		Positions:  b.OpenPositions(),
		Limits:     snap.Limits,
		Time:       b.now(),
	}
}

// RecentTrades reads the journal; without one it returns nothing.
func (b *Bot) RecentTrades(ctx context.Context, limit int) ([]TradeView, error) {
	if b.Journal == nil {
		return []TradeView{}, nil
	}
	trades, err := b.Journal.RecentTrades(ctx, limit)
	if err != nil {
		return nil, err
	}
	out := make([]TradeView, 0, len(trades))
	for _, t := range trades {
		out = append(out, NewTradeView(t))
	}
	return out, nil
}
