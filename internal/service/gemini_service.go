package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/fadilmartias/ielts-assessor/internal/config"
	"github.com/fadilmartias/ielts-assessor/internal/logger"
	"google.golang.org/genai"
)

type GeminiServiceInterface interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

type GeminiService struct {
	Client         *genai.Client
	MaxRetries     int
	BaseDelay      time.Duration
	MaxDelay       time.Duration
	RequestTimeout time.Duration
	log            logger.ILogger

	mu                sync.Mutex
	consecutiveErrors int
	circuitBreakerMax int
	cooldown          time.Duration
	openUntil         time.Time
	trialInFlight     bool
	now               func() time.Time
}

func NewGeminiService(ctx context.Context, log logger.ILogger) (*GeminiService, error) {
	apiKey := config.LoadGeminiConfig().APIKey
	if apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY not set")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return newGeminiServiceWithClient(client, log), nil
}

func newGeminiServiceWithClient(client *genai.Client, log logger.ILogger) *GeminiService {
	return &GeminiService{
		Client:            client,
		MaxRetries:        3,
		BaseDelay:         time.Second,
		MaxDelay:          90 * time.Second,
		RequestTimeout:    90 * time.Second,
		log:               log,
		circuitBreakerMax: 5,
		cooldown:          30 * time.Second,
		now:               time.Now,
	}
}

func (s *GeminiService) GenerateContent(ctx context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	if model == "" {
		return nil, fmt.Errorf("model name cannot be empty")
	}
	if len(contents) == 0 {
		return nil, fmt.Errorf("contents cannot be empty")
	}

	if !s.allow() {
		errs, _ := s.GetCircuitBreakerStatus()
		return nil, fmt.Errorf("circuit breaker open: too many consecutive errors (%d)", errs)
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, s.RequestTimeout)
	defer cancel()

	var lastErr error
	for attempt := 0; attempt <= s.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := s.calculateBackoff(attempt)
			s.log.Warn("gemini", "retrying GenerateContent", map[string]interface{}{
				"attempt": attempt, "max_retries": s.MaxRetries, "delay": delay.String(),
			})

			select {
			case <-time.After(delay):
			case <-timeoutCtx.Done():
				s.settleAbort(ctx)
				return nil, fmt.Errorf("context timeout during retry: %w", timeoutCtx.Err())
			}
		}

		result, err := s.Client.Models.GenerateContent(timeoutCtx, model, contents, cfg)
		if err == nil {
			s.recordSuccess()
			if err := validateGenerateResponse(result); err != nil {
				return nil, fmt.Errorf("invalid response: %w", err)
			}
			return result, nil
		}

		lastErr = err
		if !isRetryableError(err) {
			if errors.Is(err, context.DeadlineExceeded) {
				s.settleAbort(ctx)
			} else {
				// Client errors say nothing about backend health.
				s.releaseTrial()
			}
			return nil, fmt.Errorf("generate content failed: %w", err)
		}
		s.log.Warn("gemini", "retryable error", map[string]interface{}{"attempt": attempt + 1, "error": err.Error()})
	}

	s.recordFailure()
	return nil, fmt.Errorf("max retries (%d) exceeded for GenerateContent: %w", s.MaxRetries, lastErr)
}

func (s *GeminiService) calculateBackoff(attempt int) time.Duration {
	delay := s.BaseDelay * time.Duration(math.Pow(2, float64(attempt-1)))
	if delay > s.MaxDelay {
		delay = s.MaxDelay
	}
	return delay
}

// allow reports whether a call may go out. After the cooldown an open
// breaker lets a single trial call through.
func (s *GeminiService) allow() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.consecutiveErrors < s.circuitBreakerMax {
		return true
	}
	if s.clock().Before(s.openUntil) || s.trialInFlight {
		return false
	}
	s.trialInFlight = true
	return true
}

func (s *GeminiService) recordSuccess() {
	s.mu.Lock()
	s.consecutiveErrors = 0
	s.openUntil = time.Time{}
	s.trialInFlight = false
	s.mu.Unlock()
}

// recordFailure counts a transport or server side failure.
func (s *GeminiService) recordFailure() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.consecutiveErrors++
	s.trialInFlight = false
	if s.consecutiveErrors >= s.circuitBreakerMax {
		s.openUntil = s.clock().Add(s.cooldown)
	}
}

// settleAbort counts a timed out call against the backend unless the
// caller gave up first.
func (s *GeminiService) settleAbort(ctx context.Context) {
	if ctx.Err() != nil {
		s.releaseTrial()
		return
	}
	s.recordFailure()
}

func (s *GeminiService) releaseTrial() {
	s.mu.Lock()
	s.trialInFlight = false
	s.mu.Unlock()
}

func (s *GeminiService) clock() time.Time {
	if s.now != nil {
		return s.now()
	}
	return time.Now()
}

func (s *GeminiService) ResetCircuitBreaker() {
	s.recordSuccess()
	s.log.Info("gemini", "circuit breaker reset", nil)
}

// GetCircuitBreakerStatus reports the failure streak and whether calls are
// currently refused.
func (s *GeminiService) GetCircuitBreakerStatus() (consecutiveErrors int, isOpen bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.consecutiveErrors, s.consecutiveErrors >= s.circuitBreakerMax && s.clock().Before(s.openUntil)
}

func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var apiErr *genai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case 429, 500, 502, 503, 504:
			return true
		default:
			return false
		}
	}

	errMsg := err.Error()
	for _, status := range []string{"RESOURCE_EXHAUSTED", "UNAVAILABLE", "INTERNAL", "Error 429", "Error 50"} {
		if strings.Contains(errMsg, status) {
			return true
		}
	}
	return strings.Contains(errMsg, "connection refused") ||
		strings.Contains(errMsg, "connection reset") ||
		strings.Contains(errMsg, "timeout") ||
		strings.Contains(errMsg, "temporary failure") ||
		strings.Contains(errMsg, "EOF")
}

func validateGenerateResponse(resp *genai.GenerateContentResponse) error {
	if resp == nil {
		return fmt.Errorf("response is nil")
	}
	if len(resp.Candidates) == 0 {
		return fmt.Errorf("no candidates in response")
	}
	if resp.Candidates[0].Content == nil {
		return fmt.Errorf("candidate content is nil")
	}
	if len(resp.Candidates[0].Content.Parts) == 0 {
		return fmt.Errorf("no parts in content")
	}
	return nil
}
