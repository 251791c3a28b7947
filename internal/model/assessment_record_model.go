package model

import (
	"time"

	"github.com/google/uuid"
)

// AssessmentRecord is an anonymous usage statistic. It never holds essay
// text, questions, reports or candidate identity.
type AssessmentRecord struct {
	ID               uuid.UUID `gorm:"type:uuid;primaryKey"`
	TaskType         string    `gorm:"type:varchar(50);index"`
	Backend          string    `gorm:"type:varchar(20)"`
	Outcome          string    `gorm:"type:varchar(20);index"` // "completed" or an error kind
	InputMode        string    `gorm:"type:varchar(20)"`       // "text", "image" or "mixed"
	OverallBandScore float64   `gorm:"type:float"`
	WordCount        int
	DurationMs       int64
	CreatedAt        time.Time `gorm:"index"`
}

func (r *AssessmentRecord) TableName() string {
	return "assessment_records"
}
