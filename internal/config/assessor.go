package config

import (
	"log"
	"os"
	"strconv"
	"sync"
	"time"
)

const (
	BackendGemini     = "gemini"
	BackendOpenRouter = "openrouter"
	BackendHTTP       = "http"
)

type AssessorConfig struct {
	Backend      string
	APIURL       string
	Timeout      time.Duration
	SessionTTL   time.Duration
	RateLimitMax int
}

var (
	assessorConfig *AssessorConfig
	assessorOnce   sync.Once
)

func LoadAssessorConfig() *AssessorConfig {
	assessorOnce.Do(func() {
		assessorConfig = &AssessorConfig{
			Backend:      envOr("ASSESSOR_BACKEND", BackendGemini),
			APIURL:       envOr("ASSESSOR_API_URL", "https://ielts-writing-ai-assessor.vercel.app/assess/"),
			Timeout:      durationOr("ASSESS_TIMEOUT", 3*time.Minute),
			SessionTTL:   durationOr("SESSION_TTL", time.Hour),
			RateLimitMax: intOr("RATE_LIMIT_MAX", 5),
		}
	})
	return assessorConfig
}

func durationOr(key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		log.Printf("Warning: invalid %s %q, using %s", key, raw, fallback)
		return fallback
	}
	return d
}

func intOr(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		log.Printf("Warning: invalid %s %q, using %d", key, raw, fallback)
		return fallback
	}
	return n
}
