package store

import (
	"context"
	"time"

	"tierbot/internal/store/model"
)

// UnitOfWork defines a transaction scope.
type UnitOfWork interface {
	// Commit commits the transaction.
	Commit() error
	// Rollback rolls back the transaction.
	Rollback() error

	// Trades returns the closed-trade repository within this transaction.
	Trades() TradeRepository
	// Reports returns the daily report repository within this transaction.
	Reports() ReportRepository
	// Events returns the event log repository within this transaction.
	Events() EventRepository
}

// Store is the entry point for database access.
type Store interface {
	// Begin starts a new UnitOfWork (transaction).
	Begin(ctx context.Context) (UnitOfWork, error)
	// Close closes the store connection.
	Close() error
}

// TradeRepository handles closed round-trip persistence.
type TradeRepository interface {
	Save(ctx context.Context, trade *model.TradeModel) error
	ListRecent(ctx context.Context, limit int) ([]model.TradeModel, error)
	ListBetween(ctx context.Context, from, to time.Time) ([]model.TradeModel, error)
}

// ReportRepository keeps one row per trading day; Save upserts by date.
type ReportRepository interface {
	Save(ctx context.Context, report *model.DailyReportModel) error
	Find(ctx context.Context, date string) (*model.DailyReportModel, error)
	ListRecent(ctx context.Context, limit int) ([]model.DailyReportModel, error)
}

// EventRepository handles emergency stops, resumes and other bot events.
type EventRepository interface {
	Insert(ctx context.Context, event *model.EventModel) error
	ListRecent(ctx context.Context, limit int) ([]model.EventModel, error)
}
