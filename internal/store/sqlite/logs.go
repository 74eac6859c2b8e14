package sqlite

import (
	"context"

	"tierbot/internal/store/model"

	"gorm.io/gorm"
)

type eventRepo struct {
	db *gorm.DB
}

func NewEventRepo(db *gorm.DB) *eventRepo {
	return &eventRepo{db: db}
}

func (r *eventRepo) Insert(ctx context.Context, event *model.EventModel) error {
	return r.db.WithContext(ctx).Create(event).Error
}

func (r *eventRepo) ListRecent(ctx context.Context, limit int) ([]model.EventModel, error) {
	var events []model.EventModel
	q := r.db.WithContext(ctx).Order("timestamp DESC, id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}
