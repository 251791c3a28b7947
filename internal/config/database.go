package config

import (
	"os"
	"sync"
)

// DBConfig describes the optional usage statistics database. An empty
// Driver disables statistics entirely.
type DBConfig struct {
	Driver   string
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
	Path     string
}

var (
	dbConfig *DBConfig
	dbOnce   sync.Once
)

func LoadDBConfig() *DBConfig {
	dbOnce.Do(func() {
		dbConfig = &DBConfig{
			Driver:   os.Getenv("DB_DRIVER"),
			Host:     os.Getenv("DB_HOST"),
			Port:     os.Getenv("DB_PORT"),
			User:     os.Getenv("DB_USER"),
			Password: os.Getenv("DB_PASSWORD"),
			Name:     os.Getenv("DB_NAME"),
			SSLMode:  envOr("DB_SSLMODE", "disable"),
			Path:     envOr("DB_PATH", "data/stats.db"),
		}
	})
	return dbConfig
}

func (c *DBConfig) Enabled() bool {
	return c.Driver != ""
}
