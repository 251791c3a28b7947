package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/fadilmartias/ielts-assessor/internal/service"
)

type ErrorKind string

const (
	KindValidation    ErrorKind = "validation"
	KindTranscription ErrorKind = "transcription"
	KindEvaluation    ErrorKind = "evaluation"
	KindUnexpected    ErrorKind = "unexpected"
)

// AssessmentError is the only error type Submit returns. Message is safe to
// show to the user; Err keeps the underlying cause for logs.
type AssessmentError struct {
	Kind    ErrorKind
	Message string
	Fields  map[string]string
	Err     error
}

func (e *AssessmentError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *AssessmentError) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of an assessment error, or KindUnexpected.
func KindOf(err error) ErrorKind {
	var ae *AssessmentError
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindUnexpected
}

// UserMessage returns the message to show for any error returned by the
// usecase.
func UserMessage(err error) string {
	var ae *AssessmentError
	if errors.As(err, &ae) {
		return ae.Message
	}
	return "An unexpected error occurred. Please check your connection and try again."
}

func transcriptionError(field string, err error) *AssessmentError {
	msg := fmt.Sprintf("Failed to transcribe the %s image(s). Please upload a clearer photo or type the text.", field)
	if errors.Is(err, context.DeadlineExceeded) {
		msg = fmt.Sprintf("Transcribing the %s image(s) took too long. Please try again.", field)
	}
	return &AssessmentError{Kind: KindTranscription, Message: msg, Err: err}
}

func evaluationError(err error) *AssessmentError {
	var rejected *service.RejectedError
	switch {
	case errors.As(err, &rejected):
		return &AssessmentError{Kind: KindEvaluation, Message: rejected.Message, Err: err}
	case errors.Is(err, service.ErrMalformedResponse):
		return &AssessmentError{Kind: KindEvaluation, Message: "The assessment service returned an incomplete report. Please try again.", Err: err}
	case errors.Is(err, context.DeadlineExceeded):
		return &AssessmentError{Kind: KindEvaluation, Message: "The assessment took too long to complete. Please try again.", Err: err}
	}
	return &AssessmentError{Kind: KindEvaluation, Message: "Failed to evaluate your writing: " + err.Error(), Err: err}
}
