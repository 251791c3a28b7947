package dto

import (
	"time"

	"github.com/fadilmartias/ielts-assessor/internal/model"
	"github.com/google/uuid"
)

type AssessmentRecordDTO struct {
	ID               uuid.UUID `json:"id"`
	TaskType         string    `json:"task_type"`
	Backend          string    `json:"backend"`
	Outcome          string    `json:"outcome"` // "completed", "validation", "transcription", "evaluation" or "unexpected"
	InputMode        string    `json:"input_mode"`
	OverallBandScore float64   `json:"overall_band_score,omitempty"`
	WordCount        int       `json:"word_count,omitempty"`
	DurationMs       int64     `json:"duration_ms"`
	CreatedAt        time.Time `json:"created_at"`
}

func NewAssessmentRecordDTOs(records []model.AssessmentRecord) []AssessmentRecordDTO {
	out := make([]AssessmentRecordDTO, 0, len(records))
	for _, r := range records {
		out = append(out, AssessmentRecordDTO{
			ID:               r.ID,
			TaskType:         r.TaskType,
			Backend:          r.Backend,
			Outcome:          r.Outcome,
			InputMode:        r.InputMode,
			OverallBandScore: r.OverallBandScore,
			WordCount:        r.WordCount,
			DurationMs:       r.DurationMs,
			CreatedAt:        r.CreatedAt,
		})
	}
	return out
}
