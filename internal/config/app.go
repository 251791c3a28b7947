package config

import (
	"log"
	"os"
	"sync"
)

type AppConfig struct {
	Name    string
	Env     string
	Port    string
	BaseURL string
	LogFile string
}

var (
	appConfig *AppConfig
	appOnce   sync.Once
)

func LoadAppConfig() *AppConfig {
	appOnce.Do(func() {
		env := os.Getenv("APP_ENV")
		if env == "" {
			env = "development"
			log.Printf("Warning: APP_ENV not set, defaulting to %s", env)
		}
		port := os.Getenv("APP_PORT")
		if port == "" {
			port = ":8080"
		}
		logFile := os.Getenv("LOG_FILE")
		if logFile == "" {
			logFile = "logs/app.log"
		}
		appConfig = &AppConfig{
			Name:    envOr("APP_NAME", "IELTS Writing Assessor"),
			Env:     env,
			Port:    port,
			BaseURL: os.Getenv("APP_URL"),
			LogFile: logFile,
		}
	})
	return appConfig
}

func (c *AppConfig) IsProduction() bool {
	return c.Env == "production"
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
