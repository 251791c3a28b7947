package bootstrap

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/fadilmartias/ielts-assessor/internal/config"
	"github.com/fadilmartias/ielts-assessor/internal/logger"
	"github.com/fadilmartias/ielts-assessor/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCollaborators_HTTP(t *testing.T) {
	collab, err := NewCollaborators(context.Background(), &config.AssessorConfig{
		Backend: config.BackendHTTP,
		APIURL:  "http://localhost:9999/assess/",
		Timeout: time.Minute,
	}, logger.NewNopLogger())
	require.NoError(t, err)

	assert.NotNil(t, collab.Remote)
	assert.Nil(t, collab.Transcriber)
	assert.Nil(t, collab.Evaluator)
	assert.Equal(t, time.Minute, collab.Timeout)
}

func TestNewCollaborators_Errors(t *testing.T) {
	_, err := NewCollaborators(context.Background(), &config.AssessorConfig{Backend: "carrier-pigeon"}, logger.NewNopLogger())
	assert.ErrorContains(t, err, "unknown ASSESSOR_BACKEND")

	_, err = NewCollaborators(context.Background(), &config.AssessorConfig{Backend: config.BackendHTTP}, logger.NewNopLogger())
	assert.ErrorContains(t, err, "ASSESSOR_API_URL")
}

func TestConnectDB_SQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "stats.db")
	db, err := ConnectDB(&config.DBConfig{Driver: "sqlite", Path: path}, &config.AppConfig{Env: "development"})
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	assert.True(t, db.Migrator().HasTable(&model.AssessmentRecord{}))
}

func TestConnectDB_UnsupportedDriver(t *testing.T) {
	_, err := ConnectDB(&config.DBConfig{Driver: "oracle"}, &config.AppConfig{})
	assert.ErrorContains(t, err, "unsupported DB_DRIVER")
}
