package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fadilmartias/ielts-assessor/internal/logger"
	"github.com/fadilmartias/ielts-assessor/internal/model"
	"github.com/fadilmartias/ielts-assessor/internal/service"
	"github.com/fadilmartias/ielts-assessor/internal/util"
	"github.com/fadilmartias/ielts-assessor/internal/validator"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const (
	imageQuestionPlaceholder = "Image question"
	imageAnswerPlaceholder   = "Image answer"
	unexpectedMessage        = "An unexpected error occurred. Please try again."
)

// UsageRecorder stores anonymous statistics about finished submissions.
type UsageRecorder interface {
	CreateRecord(ctx context.Context, record *model.AssessmentRecord) error
}

// Collaborators selects the backends the orchestrator talks to. When Remote
// is set, Transcriber and Evaluator are not used for submissions.
type Collaborators struct {
	Backend     string
	Transcriber service.Transcriber
	Evaluator   service.Evaluator
	Analyzer    service.TextAnalyzer
	Remote      service.RemoteAssessor
	Timeout     time.Duration
}

type AssessmentUsecase struct {
	collab Collaborators
	usage  UsageRecorder
	log    logger.ILogger
}

func NewAssessmentUsecase(collab Collaborators, usage UsageRecorder, log logger.ILogger) *AssessmentUsecase {
	return &AssessmentUsecase{collab: collab, usage: usage, log: log}
}

// Submit validates a submission, resolves images to text, evaluates it and
// returns the normalized report. Every failure is an *AssessmentError.
func (uc *AssessmentUsecase) Submit(ctx context.Context, in model.SubmissionInput) (report *model.AssessmentReport, err error) {
	started := time.Now()
	defer func() {
		if r := recover(); r != nil {
			report = nil
			err = &AssessmentError{
				Kind:    KindUnexpected,
				Message: unexpectedMessage,
				Err:     fmt.Errorf("panic: %v", r),
			}
		}
		uc.recordUsage(in, report, err, time.Since(started))
	}()

	req, formErr := validator.ValidateSubmission(in)
	if formErr != nil {
		return nil, &AssessmentError{Kind: KindValidation, Message: formErr.Message, Fields: formErr.Errors, Err: formErr}
	}

	if uc.collab.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, uc.collab.Timeout)
		defer cancel()
	}

	if err := expandDocuments(req); err != nil {
		return nil, err
	}

	if uc.collab.Remote != nil {
		return uc.assessRemote(ctx, req)
	}
	return uc.assessLocal(ctx, req)
}

func (uc *AssessmentUsecase) assessLocal(ctx context.Context, req *model.SubmissionRequest) (*model.AssessmentReport, error) {
	if uc.collab.Evaluator == nil {
		return nil, &AssessmentError{Kind: KindUnexpected, Message: "The assessment service is not configured."}
	}

	question, answer, err := uc.resolveTexts(ctx, req)
	if err != nil {
		return nil, err
	}
	if !validator.MeetsMinimum(question, validator.MinQuestionLength) {
		return nil, &AssessmentError{Kind: KindTranscription, Message: "Failed to get a valid question from text or image."}
	}
	if !validator.MeetsMinimum(answer, validator.MinAnswerLength) {
		return nil, &AssessmentError{Kind: KindTranscription, Message: "Failed to get a valid answer from text or image."}
	}

	report, err := uc.collab.Evaluator.Evaluate(ctx, model.EvaluationInput{
		TaskType:       req.TaskType,
		Question:       question,
		Answer:         answer,
		CandidateName:  req.CandidateName,
		CandidateEmail: req.CandidateEmail,
	})
	if err != nil {
		uc.log.Warn("assessment", "evaluation failed", map[string]interface{}{"error": err.Error(), "backend": uc.collab.Backend})
		return nil, evaluationError(err)
	}

	// The texts that were actually evaluated are known here, so they win
	// over whatever the model echoed back.
	report.Task.Type = req.TaskType
	report.Task.Question = question
	report.TranscribedAnswer = answer
	report.Task.WordCount = WordCount(answer)
	attachCandidate(report, req)
	return report, nil
}

func (uc *AssessmentUsecase) assessRemote(ctx context.Context, req *model.SubmissionRequest) (*model.AssessmentReport, error) {
	report, err := uc.collab.Remote.Assess(ctx, *req)
	if err != nil {
		uc.log.Warn("assessment", "remote assessment failed", map[string]interface{}{"error": err.Error()})
		return nil, evaluationError(err)
	}

	if report.Task.Type == "" {
		report.Task.Type = req.TaskType
	}
	if report.Task.Question == "" {
		report.Task.Question = req.Question
		if report.Task.Question == "" {
			report.Task.Question = imageQuestionPlaceholder
		}
	}
	if report.TranscribedAnswer == "" {
		report.TranscribedAnswer = req.Answer
		if report.TranscribedAnswer == "" {
			report.TranscribedAnswer = imageAnswerPlaceholder
		}
	}
	switch {
	case req.Answer != "":
		report.Task.WordCount = WordCount(req.Answer)
	case report.TranscribedAnswer != imageAnswerPlaceholder:
		report.Task.WordCount = WordCount(report.TranscribedAnswer)
	}
	attachCandidate(report, req)
	return report, nil
}

// resolveTexts transcribes question and answer images concurrently. Each
// field is sent to the transcriber in a single call.
func (uc *AssessmentUsecase) resolveTexts(ctx context.Context, req *model.SubmissionRequest) (string, string, error) {
	question, answer := req.Question, req.Answer
	if len(req.QuestionImages) == 0 && len(req.AnswerImages) == 0 {
		return question, answer, nil
	}
	if uc.collab.Transcriber == nil {
		return "", "", &AssessmentError{Kind: KindTranscription, Message: "Image uploads are not supported by the configured assessment service."}
	}

	g, gctx := errgroup.WithContext(ctx)
	if len(req.QuestionImages) > 0 {
		g.Go(recoverPanic("question", func() error {
			text, err := uc.collab.Transcriber.Transcribe(gctx, req.QuestionImages)
			if err != nil {
				return transcriptionError("question", err)
			}
			question = text
			return nil
		}))
	}
	if len(req.AnswerImages) > 0 {
		g.Go(recoverPanic("answer", func() error {
			text, err := uc.collab.Transcriber.Transcribe(gctx, req.AnswerImages)
			if err != nil {
				return transcriptionError("answer", err)
			}
			answer = text
			return nil
		}))
	}
	if err := g.Wait(); err != nil {
		uc.log.Warn("assessment", "transcription failed", map[string]interface{}{"error": err.Error()})
		return "", "", err
	}
	uc.log.Debug("assessment", "images transcribed", map[string]interface{}{
		"question_images": len(req.QuestionImages),
		"answer_images":   len(req.AnswerImages),
		"answer_chars":    len(answer),
	})
	return question, answer, nil
}

// recoverPanic turns a panic in a transcription goroutine into an error;
// the recover in Submit does not reach other goroutines.
func recoverPanic(field string, fn func() error) func() error {
	return func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = &AssessmentError{
					Kind:    KindUnexpected,
					Message: unexpectedMessage,
					Err:     fmt.Errorf("panic transcribing %s: %v", field, r),
				}
			}
		}()
		return fn()
	}
}

// AnalyzeText runs the standalone strengths and weaknesses analysis.
func (uc *AssessmentUsecase) AnalyzeText(ctx context.Context, text string) (*model.TextAnalysis, error) {
	if !validator.MeetsMinimum(text, validator.MinAnswerLength) {
		return nil, &AssessmentError{
			Kind:    KindValidation,
			Message: fmt.Sprintf("Text must be at least %d characters.", validator.MinAnswerLength),
			Fields:  map[string]string{"text": fmt.Sprintf("Text must be at least %d characters.", validator.MinAnswerLength)},
		}
	}
	if uc.collab.Analyzer == nil {
		return nil, &AssessmentError{Kind: KindUnexpected, Message: "Text analysis is not available with the configured assessment service."}
	}
	if uc.collab.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, uc.collab.Timeout)
		defer cancel()
	}
	analysis, err := uc.collab.Analyzer.AnalyzeText(ctx, strings.TrimSpace(text))
	if err != nil {
		return nil, evaluationError(err)
	}
	return analysis, nil
}

// WordCount counts whitespace separated tokens.
func WordCount(text string) int {
	return len(strings.Fields(text))
}

func expandDocuments(req *model.SubmissionRequest) error {
	var err error
	if req.QuestionImages, err = util.ExpandDocuments(req.QuestionImages); err != nil {
		return &AssessmentError{Kind: KindTranscription, Message: "Failed to read the uploaded question document.", Err: err}
	}
	if req.AnswerImages, err = util.ExpandDocuments(req.AnswerImages); err != nil {
		return &AssessmentError{Kind: KindTranscription, Message: "Failed to read the uploaded answer document.", Err: err}
	}
	return nil
}

func attachCandidate(report *model.AssessmentReport, req *model.SubmissionRequest) {
	if req.CandidateName == "" && req.CandidateEmail == "" {
		return
	}
	report.Candidate = &model.Candidate{Name: req.CandidateName, Email: req.CandidateEmail}
}

func (uc *AssessmentUsecase) recordUsage(in model.SubmissionInput, report *model.AssessmentReport, err error, elapsed time.Duration) {
	if uc.usage == nil {
		return
	}
	record := &model.AssessmentRecord{
		ID:         uuid.New(),
		TaskType:   in.TaskType,
		Backend:    uc.collab.Backend,
		Outcome:    "completed",
		InputMode:  inputMode(in),
		DurationMs: elapsed.Milliseconds(),
		CreatedAt:  time.Now(),
	}
	if err != nil {
		record.Outcome = string(KindOf(err))
	}
	if report != nil {
		record.OverallBandScore = report.OverallBandScore
		record.WordCount = report.Task.WordCount
	}
	// Detached context: the request context may already be done here.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := uc.usage.CreateRecord(ctx, record); err != nil {
		uc.log.Error("assessment", "failed to record usage", map[string]interface{}{"error": err})
	}
}

func inputMode(in model.SubmissionInput) string {
	q, a := len(in.QuestionImages) > 0, len(in.AnswerImages) > 0
	switch {
	case q && a:
		return "image"
	case q || a:
		return "mixed"
	}
	return "text"
}
