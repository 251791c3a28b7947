package repository

import (
	"context"
	"time"

	"github.com/fadilmartias/ielts-assessor/internal/model"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AssessmentRecordRepository struct {
	db *gorm.DB
}

func NewAssessmentRecordRepository(db *gorm.DB) *AssessmentRecordRepository {
	return &AssessmentRecordRepository{db}
}

func (r *AssessmentRecordRepository) CreateRecord(ctx context.Context, record *model.AssessmentRecord) error {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}
	return r.db.WithContext(ctx).Create(record).Error
}

// ListRecords returns one page of records, newest first, and the total count.
func (r *AssessmentRecordRepository) ListRecords(ctx context.Context, page, pageSize int) ([]model.AssessmentRecord, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&model.AssessmentRecord{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var records []model.AssessmentRecord
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(pageSize).
		Offset((page - 1) * pageSize).
		Find(&records).Error
	return records, total, err
}

type OutcomeCount struct {
	Outcome string  `json:"outcome"`
	Count   int64   `json:"count"`
	AvgBand float64 `json:"avg_band"`
}

// CountByOutcome aggregates all records per outcome.
func (r *AssessmentRecordRepository) CountByOutcome(ctx context.Context) ([]OutcomeCount, error) {
	var rows []OutcomeCount
	err := r.db.WithContext(ctx).
		Model(&model.AssessmentRecord{}).
		Select("outcome, COUNT(*) AS count, AVG(overall_band_score) AS avg_band").
		Group("outcome").
		Order("outcome").
		Scan(&rows).Error
	return rows, err
}
