package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/fadilmartias/ielts-assessor/internal/model"
	"github.com/tidwall/gjson"
)

// Transcriber turns one or more images into a single text. All images of
// a field are sent in one call so multi-page writing is merged in order.
type Transcriber interface {
	Transcribe(ctx context.Context, images []string) (string, error)
}

// Evaluator scores a resolved submission.
type Evaluator interface {
	Evaluate(ctx context.Context, in model.EvaluationInput) (*model.AssessmentReport, error)
}

// TextAnalyzer lists strengths and weaknesses of a free text.
type TextAnalyzer interface {
	AnalyzeText(ctx context.Context, text string) (*model.TextAnalysis, error)
}

// RemoteAssessor performs transcription and evaluation in one remote call.
type RemoteAssessor interface {
	Assess(ctx context.Context, req model.SubmissionRequest) (*model.AssessmentReport, error)
}

var ErrMalformedResponse = errors.New("malformed response from assessment service")

// RejectedError is returned when a collaborator answers with an explicit
// error payload instead of a result.
type RejectedError struct {
	Message string
}

func (e *RejectedError) Error() string {
	return e.Message
}

var requiredReportFields = []string{
	"overallBandScore",
	"cefrLevel",
	"overallStrengths",
	"overallWeaknesses",
	"keyRecommendations",
}

var criterionKeys = []string{
	"taskAchievementResponse",
	"coherenceAndCohesion",
	"lexicalResource",
	"grammaticalRangeAndAccuracy",
}

var requiredCriterionFields = []string{"bandScore", "justification", "strengths", "weaknesses", "improvements"}

// DecodeReport turns a collaborator payload into a report. Error payloads
// become *RejectedError and missing fields ErrMalformedResponse, so callers
// never inspect the raw shape again.
func DecodeReport(raw string) (*model.AssessmentReport, error) {
	raw = stripCodeFence(raw)
	if !gjson.Valid(raw) {
		return nil, fmt.Errorf("%w: not valid JSON", ErrMalformedResponse)
	}
	if msg, ok := errorPayload(raw); ok {
		return nil, &RejectedError{Message: msg}
	}

	var missing []string
	for _, f := range requiredReportFields {
		if !gjson.Get(raw, f).Exists() {
			missing = append(missing, f)
		}
	}
	for _, c := range criterionKeys {
		for _, f := range requiredCriterionFields {
			if !gjson.Get(raw, c+"."+f).Exists() {
				missing = append(missing, c+"."+f)
			}
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing %s", ErrMalformedResponse, strings.Join(missing, ", "))
	}

	var report model.AssessmentReport
	if err := json.Unmarshal([]byte(raw), &report); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return &report, nil
}

func errorPayload(raw string) (string, bool) {
	e := gjson.Get(raw, "error")
	if !e.Exists() || e.Type == gjson.Null {
		return "", false
	}
	if e.IsObject() {
		if m := e.Get("message"); m.Exists() {
			return m.String(), true
		}
		return e.Raw, true
	}
	return e.String(), true
}

// stripCodeFence removes a ```json fence that chat models like to add.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
