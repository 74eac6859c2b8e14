package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"

	"tierbot/internal/analysis/indicator"
	"tierbot/internal/position"
	"tierbot/internal/risk"
	"tierbot/internal/store/model"
)

// Journal 在 Store 之上提供交易日志的领域接口：每笔平仓、每份日报、每次紧急事件各一次事务。
type Journal struct {
	store Store
	now   func() time.Time
}

func NewJournal(s Store) *Journal {
	return &Journal{store: s, now: time.Now}
}

func (j *Journal) Close() error { return j.store.Close() }

func (j *Journal) withTx(ctx context.Context, fn func(UnitOfWork) error) error {
	uow, err := j.store.Begin(ctx)
	if err != nil {
		return err
	}
	if err := fn(uow); err != nil {
		_ = uow.Rollback()
		return err
	}
	return uow.Commit()
}

func (j *Journal) RecordTrade(ctx context.Context, t position.Trade) error {
	m, err := tradeToModel(t)
	if err != nil {
		return err
	}
	return j.withTx(ctx, func(u UnitOfWork) error {
		return u.Trades().Save(ctx, &m)
	})
}

func (j *Journal) SaveDailyReport(ctx context.Context, s risk.DailyStats) error {
	m := model.DailyReportModel{
		Date:              s.Date,
		PnL:               s.PnL,
		PeakPnL:           s.PeakPnL,
		Drawdown:          s.Drawdown,
		Trades:            s.Trades,
		Wins:              s.Wins,
		Losses:            s.Losses,
		WinRate:           s.WinRate,
		ConsecutiveLosses: s.ConsecutiveLosses,
		EmergencyStop:     s.EmergencyStop,
		StopReason:        s.StopReason,
	}
	return j.withTx(ctx, func(u UnitOfWork) error {
		return u.Reports().Save(ctx, &m)
	})
}

func (j *Journal) DailyReport(ctx context.Context, date string) (*risk.DailyStats, error) {
	var out *risk.DailyStats
	err := j.withTx(ctx, func(u UnitOfWork) error {
		m, err := u.Reports().Find(ctx, date)
		if err != nil || m == nil {
			return err
		}
		out = &risk.DailyStats{
			Date:              m.Date,
			PnL:               m.PnL,
			PeakPnL:           m.PeakPnL,
			Drawdown:          m.Drawdown,
			Trades:            m.Trades,
			Wins:              m.Wins,
			Losses:            m.Losses,
			WinRate:           m.WinRate,
			ConsecutiveLosses: m.ConsecutiveLosses,
			EmergencyStop:     m.EmergencyStop,
			StopReason:        m.StopReason,
		}
		return nil
	})
	return out, err
}

// RecordEvent details 可为 nil，非 nil 时序列化为 JSON。
func (j *Journal) RecordEvent(ctx context.Context, kind model.EventKind, symbol, message string, details any) error {
	ev := model.EventModel{
		Kind:      kind,
		Symbol:    symbol,
		Message:   message,
		Timestamp: j.now().UnixMilli(),
	}
	if details != nil {
		raw, err := json.Marshal(details)
		if err != nil {
			return fmt.Errorf("marshal event details: %w", err)
		}
		ev.Details = datatypes.JSON(raw)
	}
	return j.withTx(ctx, func(u UnitOfWork) error {
		return u.Events().Insert(ctx, &ev)
	})
}

func (j *Journal) RecentEvents(ctx context.Context, limit int) ([]model.EventModel, error) {
	var out []model.EventModel
	err := j.withTx(ctx, func(u UnitOfWork) error {
		var err error
		out, err = u.Events().ListRecent(ctx, limit)
		return err
	})
	return out, err
}

// RecentTrades returns the latest closed trades, newest first.
func (j *Journal) RecentTrades(ctx context.Context, limit int) ([]position.Trade, error) {
	var rows []model.TradeModel
	err := j.withTx(ctx, func(u UnitOfWork) error {
		var err error
		rows, err = u.Trades().ListRecent(ctx, limit)
		return err
	})
	if err != nil {
		return nil, err
	}
	return modelsToTrades(rows)
}

// TradesBetween returns trades closed in [from, to), oldest first. Used at
// startup to replay today's results into the risk manager.
func (j *Journal) TradesBetween(ctx context.Context, from, to time.Time) ([]position.Trade, error) {
	var rows []model.TradeModel
	err := j.withTx(ctx, func(u UnitOfWork) error {
		var err error
		rows, err = u.Trades().ListBetween(ctx, from, to)
		return err
	})
	if err != nil {
		return nil, err
	}
	return modelsToTrades(rows)
}

func tradeToModel(t position.Trade) (model.TradeModel, error) {
	snap, err := json.Marshal(t.Indicators)
	if err != nil {
		return model.TradeModel{}, fmt.Errorf("marshal indicators: %w", err)
	}
	return model.TradeModel{
		TradeID:     t.ID,
		Symbol:      t.Symbol,
		Side:        t.Side.String(),
		EntryTime:   t.EntryTime.UnixMilli(),
		ExitTime:    t.ExitTime.UnixMilli(),
		EntryPrice:  t.EntryPrice,
		ExitPrice:   t.ExitPrice,
		Amount:      t.Amount,
		EntryFee:    t.EntryFee,
		ExitFee:     t.ExitFee,
		PnL:         t.PnL,
		PnLRate:     t.PnLRate(),
		Reason:      t.Reason.String(),
		HoldingMs:   t.Holding.Milliseconds(),
		SignalScore: t.SignalScore,
		Indicators:  datatypes.JSON(snap),
	}, nil
}

func modelsToTrades(rows []model.TradeModel) ([]position.Trade, error) {
	out := make([]position.Trade, 0, len(rows))
	for _, m := range rows {
		t := position.Trade{
			ID:          m.TradeID,
			Symbol:      m.Symbol,
			Side:        position.Long,
			EntryTime:   time.UnixMilli(m.EntryTime),
			ExitTime:    time.UnixMilli(m.ExitTime),
			EntryPrice:  m.EntryPrice,
			ExitPrice:   m.ExitPrice,
			Amount:      m.Amount,
			EntryFee:    m.EntryFee,
			ExitFee:     m.ExitFee,
			PnL:         m.PnL,
			Reason:      position.ParseExitReason(m.Reason),
			Holding:     time.Duration(m.HoldingMs) * time.Millisecond,
			SignalScore: m.SignalScore,
		}
		if m.Side == position.Short.String() {
			t.Side = position.Short
		}
		if len(m.Indicators) > 0 {
			var snap indicator.Snapshot
			if err := json.Unmarshal(m.Indicators, &snap); err != nil {
				return nil, fmt.Errorf("trade %s indicators: %w", m.TradeID, err)
			}
			t.Indicators = snap
		}
		out = append(out, t)
	}
	return out, nil
}
