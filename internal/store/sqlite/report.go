package sqlite

import (
	"context"
	"errors"

	"tierbot/internal/store/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type reportRepo struct {
	db *gorm.DB
}

func NewReportRepo(db *gorm.DB) *reportRepo {
	return &reportRepo{db: db}
}

func (r *reportRepo) Save(ctx context.Context, report *model.DailyReportModel) error {
	if report == nil || report.Date == "" {
		return errors.New("report date cannot be empty")
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "date"}},
		UpdateAll: true,
	}).Create(report).Error
}

// Find returns nil, nil when no report exists for date.
func (r *reportRepo) Find(ctx context.Context, date string) (*model.DailyReportModel, error) {
	var report model.DailyReportModel
	err := r.db.WithContext(ctx).Where("date = ?", date).First(&report).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &report, nil
}

func (r *reportRepo) ListRecent(ctx context.Context, limit int) ([]model.DailyReportModel, error) {
	var reports []model.DailyReportModel
	q := r.db.WithContext(ctx).Order("date DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&reports).Error; err != nil {
		return nil, err
	}
	return reports, nil
}
