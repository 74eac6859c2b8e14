package sqlite

import (
	"context"
	"errors"
	"time"

	"tierbot/internal/store/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type tradeRepository struct {
	db *gorm.DB
}

func NewTradeRepo(db *gorm.DB) *tradeRepository {
	return &tradeRepository{db: db}
}

// Save inserts a trade; replaying the same trade_id overwrites it.
func (r *tradeRepository) Save(ctx context.Context, trade *model.TradeModel) error {
	if trade == nil {
		return errors.New("trade cannot be nil")
	}
	if trade.TradeID == "" {
		return errors.New("trade id cannot be empty")
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "trade_id"}},
		UpdateAll: true,
	}).Create(trade).Error
}

func (r *tradeRepository) ListRecent(ctx context.Context, limit int) ([]model.TradeModel, error) {
	var trades []model.TradeModel
	if limit <= 0 {
		limit = 100
	}
	if err := r.db.WithContext(ctx).
		Order("exit_time DESC, id DESC").
		Limit(limit).
		Find(&trades).Error; err != nil {
		return nil, err
	}
	return trades, nil
}

// ListBetween returns trades closed in [from, to), oldest first.
func (r *tradeRepository) ListBetween(ctx context.Context, from, to time.Time) ([]model.TradeModel, error) {
	var trades []model.TradeModel
	if err := r.db.WithContext(ctx).
		Where("exit_time >= ? AND exit_time < ?", from.UnixMilli(), to.UnixMilli()).
		Order("exit_time ASC, id ASC").
		Find(&trades).Error; err != nil {
		return nil, err
	}
	return trades, nil
}
