package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fadilmartias/ielts-assessor/internal/model"
	"github.com/fadilmartias/ielts-assessor/internal/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

type fakeGemini struct {
	reply    string
	err      error
	model    string
	contents []*genai.Content
	cfg      *genai.GenerateContentConfig
	calls    int
}

func (f *fakeGemini) GenerateContent(_ context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.calls++
	f.model, f.contents, f.cfg = model, contents, cfg
	if f.err != nil {
		return nil, f.err
	}
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{{Text: f.reply}}, Role: genai.RoleModel},
		}},
	}, nil
}

func TestGeminiFlow_Transcribe(t *testing.T) {
	fake := &fakeGemini{reply: `{"transcription": "  Page one text. Page two text.  "}`}
	flow := NewGeminiAssessmentFlow(fake, "gemini-test")

	text, err := flow.Transcribe(context.Background(), []string{
		util.EncodeDataURI("image/jpeg", []byte("p1")),
		util.EncodeDataURI("image/png", []byte("p2")),
	})
	require.NoError(t, err)
	assert.Equal(t, "Page one text. Page two text.", text)

	assert.Equal(t, 1, fake.calls)
	assert.Equal(t, "gemini-test", fake.model)
	require.Len(t, fake.contents, 1)
	parts := fake.contents[0].Parts
	require.Len(t, parts, 3)
	assert.NotEmpty(t, parts[0].Text)
	require.NotNil(t, parts[1].InlineData)
	assert.Equal(t, "image/jpeg", parts[1].InlineData.MIMEType)
	assert.Equal(t, []byte("p1"), parts[1].InlineData.Data)
	assert.Equal(t, "image/png", parts[2].InlineData.MIMEType)

	assert.Equal(t, "application/json", fake.cfg.ResponseMIMEType)
	assert.Same(t, transcriptionSchema, fake.cfg.ResponseSchema)
}

func TestGeminiFlow_TranscribeErrors(t *testing.T) {
	flow := NewGeminiAssessmentFlow(&fakeGemini{}, "gemini-test")
	_, err := flow.Transcribe(context.Background(), nil)
	assert.Error(t, err)

	_, err = flow.Transcribe(context.Background(), []string{"not a data uri"})
	assert.ErrorIs(t, err, util.ErrInvalidDataURI)

	flow = NewGeminiAssessmentFlow(&fakeGemini{reply: `{"text": "x"}`}, "gemini-test")
	_, err = flow.Transcribe(context.Background(), []string{util.EncodeDataURI("image/png", []byte("p"))})
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestGeminiFlow_Evaluate(t *testing.T) {
	fake := &fakeGemini{reply: reportJSON}
	flow := NewGeminiAssessmentFlow(fake, "gemini-test")

	report, err := flow.Evaluate(context.Background(), model.EvaluationInput{
		TaskType: model.TaskTwo,
		Question: "Discuss both views.",
		Answer:   "My essay.",
	})
	require.NoError(t, err)
	assert.Equal(t, 6.5, report.OverallBandScore)

	require.NotNil(t, fake.cfg.SystemInstruction)
	assert.Same(t, evaluationSchema, fake.cfg.ResponseSchema)
	require.Len(t, fake.contents, 1)
	prompt := fake.contents[0].Parts[0].Text
	assert.Contains(t, prompt, "Task 2")
	assert.Contains(t, prompt, "Discuss both views.")
	assert.Contains(t, prompt, "My essay.")
}

func TestGeminiFlow_EvaluateRejected(t *testing.T) {
	flow := NewGeminiAssessmentFlow(&fakeGemini{reply: `{"error": "Answer is not in English."}`}, "gemini-test")
	_, err := flow.Evaluate(context.Background(), model.EvaluationInput{TaskType: model.TaskTwo})

	var rejected *RejectedError
	require.ErrorAs(t, err, &rejected)
	assert.Equal(t, "Answer is not in English.", rejected.Message)
}

func TestGeminiFlow_PropagatesTransportErrors(t *testing.T) {
	boom := errors.New("boom")
	flow := NewGeminiAssessmentFlow(&fakeGemini{err: boom}, "gemini-test")

	_, err := flow.Evaluate(context.Background(), model.EvaluationInput{})
	assert.ErrorIs(t, err, boom)
}

func TestGeminiFlow_EmptyReply(t *testing.T) {
	flow := NewGeminiAssessmentFlow(&fakeGemini{reply: "   "}, "gemini-test")
	_, err := flow.AnalyzeText(context.Background(), "text")
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestGeminiFlow_AnalyzeText(t *testing.T) {
	fake := &fakeGemini{reply: `{"strengths": ["varied vocabulary"], "weaknesses": ["run-on sentences"]}`}
	flow := NewGeminiAssessmentFlow(fake, "gemini-test")

	analysis, err := flow.AnalyzeText(context.Background(), "Some essay text to analyze.")
	require.NoError(t, err)
	assert.Equal(t, []string{"varied vocabulary"}, analysis.Strengths)
	assert.Equal(t, []string{"run-on sentences"}, analysis.Weaknesses)
	assert.Same(t, analysisSchema, fake.cfg.ResponseSchema)
}

func TestIsRetryableError(t *testing.T) {
	assert.False(t, isRetryableError(nil))
	assert.False(t, isRetryableError(context.Canceled))
	assert.False(t, isRetryableError(context.DeadlineExceeded))
	assert.True(t, isRetryableError(errors.New("dial tcp: connection refused")))
	assert.True(t, isRetryableError(errors.New("unexpected EOF")))
	assert.False(t, isRetryableError(errors.New("invalid argument")))
}

func TestValidateGenerateResponse(t *testing.T) {
	assert.Error(t, validateGenerateResponse(nil))
	assert.Error(t, validateGenerateResponse(&genai.GenerateContentResponse{}))
	assert.Error(t, validateGenerateResponse(&genai.GenerateContentResponse{Candidates: []*genai.Candidate{{}}}))
	assert.NoError(t, validateGenerateResponse(&genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{Content: &genai.Content{Parts: []*genai.Part{{Text: "x"}}}}},
	}))
}

func TestGeminiService_Backoff(t *testing.T) {
	s := &GeminiService{BaseDelay: time.Second, MaxDelay: 5 * time.Second}
	assert.Equal(t, time.Second, s.calculateBackoff(1))
	assert.Equal(t, 2*time.Second, s.calculateBackoff(2))
	assert.Equal(t, 4*time.Second, s.calculateBackoff(3))
	assert.Equal(t, 5*time.Second, s.calculateBackoff(4))
}
