package sqlite

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"tierbot/internal/store"
	"tierbot/internal/store/model"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SqliteStore 是 journal 的 gorm/SQLite 实现，单文件、WAL 模式。
type SqliteStore struct {
	db *gorm.DB
}

var journalModels = []any{
	&model.TradeModel{},
	&model.DailyReportModel{},
	&model.EventModel{},
}

func NewSqliteStore(path string) (*SqliteStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("journal path cannot be empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL&_txlock=immediate", path)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                 logger.Default.LogMode(logger.Silent),
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	if err := db.AutoMigrate(journalModels...); err != nil {
		return nil, fmt.Errorf("migrate journal: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// 交易循环写、HTTP 读；WAL 下两个连接足够
	sqlDB.SetMaxOpenConns(2)
	sqlDB.SetMaxIdleConns(2)
	return &SqliteStore{db: db}, nil
}

func (s *SqliteStore) Begin(ctx context.Context) (store.UnitOfWork, error) {
	tx := s.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, tx.Error
	}
	return &gormUnitOfWork{tx: tx}, nil
}

func (s *SqliteStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// gormUnitOfWork 在一个事务内暴露三个仓储。
type gormUnitOfWork struct {
	tx *gorm.DB
}

func (u *gormUnitOfWork) Trades() store.TradeRepository   { return NewTradeRepo(u.tx) }
func (u *gormUnitOfWork) Reports() store.ReportRepository { return NewReportRepo(u.tx) }
func (u *gormUnitOfWork) Events() store.EventRepository   { return NewEventRepo(u.tx) }
func (u *gormUnitOfWork) Commit() error                   { return u.tx.Commit().Error }
func (u *gormUnitOfWork) Rollback() error                 { return u.tx.Rollback().Error }
