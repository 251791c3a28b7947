package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/fadilmartias/ielts-assessor/internal/config"
	"github.com/fadilmartias/ielts-assessor/internal/logger"
	"github.com/fadilmartias/ielts-assessor/internal/model"
	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"
)

// OpenRouterService talks to the OpenAI compatible chat completions API of
// OpenRouter. It can both read images and evaluate essays.
type OpenRouterService struct {
	APIKey string
	Model  string
	client *resty.Client
	log    logger.ILogger
}

func NewOpenRouterService(cfg *config.OpenRouterConfig, timeout time.Duration, log logger.ILogger) *OpenRouterService {
	client := resty.New().
		SetBaseURL(strings.TrimSuffix(cfg.BaseURL, "/")).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json")
	if cfg.APIKey != "" {
		client.SetAuthToken(cfg.APIKey)
	}
	return &OpenRouterService{
		APIKey: cfg.APIKey,
		Model:  cfg.Model,
		client: client,
		log:    log,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

func (s *OpenRouterService) Evaluate(ctx context.Context, in model.EvaluationInput) (*model.AssessmentReport, error) {
	prompt := evaluationPrompt(in) + "\nReturn your answer STRICTLY in JSON format with this schema:\n" + evaluationJSONShape
	text, err := s.complete(ctx, []chatMessage{
		{Role: "system", Content: evaluationSystemPrompt},
		{Role: "user", Content: prompt},
	})
	if err != nil {
		return nil, err
	}
	return DecodeReport(text)
}

func (s *OpenRouterService) Transcribe(ctx context.Context, images []string) (string, error) {
	if len(images) == 0 {
		return "", fmt.Errorf("no images to transcribe")
	}
	parts := []contentPart{{
		Type: "text",
		Text: transcriptionPrompt(len(images)) + ` Return your answer STRICTLY in JSON format: {"transcription": "<text>"}`,
	}}
	for _, uri := range images {
		parts = append(parts, contentPart{Type: "image_url", ImageURL: &imageURL{URL: uri}})
	}

	text, err := s.complete(ctx, []chatMessage{{Role: "user", Content: parts}})
	if err != nil {
		return "", err
	}
	text = stripCodeFence(text)
	if gjson.Valid(text) {
		if t := gjson.Get(text, "transcription"); t.Exists() {
			return strings.TrimSpace(t.String()), nil
		}
		return "", fmt.Errorf("%w: missing transcription", ErrMalformedResponse)
	}
	// Some vision models ignore the JSON instruction; plain text is still a transcription.
	return strings.TrimSpace(text), nil
}

func (s *OpenRouterService) AnalyzeText(ctx context.Context, text string) (*model.TextAnalysis, error) {
	out, err := s.complete(ctx, []chatMessage{{
		Role:    "user",
		Content: analysisPrompt(text) + "\n\nReturn your answer STRICTLY in JSON format: {\"strengths\": [\"...\"], \"weaknesses\": [\"...\"]}",
	}})
	if err != nil {
		return nil, err
	}
	var analysis model.TextAnalysis
	if err := json.Unmarshal([]byte(stripCodeFence(out)), &analysis); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return &analysis, nil
}

func (s *OpenRouterService) complete(ctx context.Context, messages []chatMessage) (string, error) {
	resp, err := s.client.R().
		SetContext(ctx).
		SetBody(map[string]any{
			"model":       s.Model,
			"messages":    messages,
			"temperature": 0.1,
		}).
		Post("/chat/completions")
	if err != nil {
		return "", fmt.Errorf("openrouter request failed: %w", err)
	}

	body := resp.String()
	if resp.IsError() {
		msg := gjson.Get(body, "error.message").String()
		if msg == "" {
			msg = fmt.Sprintf("request failed with status %d", resp.StatusCode())
		}
		s.log.Warn("openrouter", "chat completion failed", map[string]interface{}{"status": resp.StatusCode()})
		return "", fmt.Errorf("openrouter: %s", msg)
	}

	text := gjson.Get(body, "choices.0.message.content").String()
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%w: no response from LLM", ErrMalformedResponse)
	}
	s.log.Debug("openrouter", "chat completion received", map[string]interface{}{
		"model": s.Model, "chars": len(text),
	})
	return text, nil
}
