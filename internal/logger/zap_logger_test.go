package logger

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func TestZapLogger_WritesJSONFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	log := NewZapLogger(path, true)

	log.Debug("assessment", "not written to file", nil)
	log.Info("assessment", "assessment completed", map[string]interface{}{"backend": "gemini"})
	log.Error("assessment", "evaluation failed", map[string]interface{}{"error": errors.New("boom")})
	_ = log.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)

	assert.Equal(t, "INFO", gjson.Get(lines[0], "level").String())
	assert.Equal(t, "assessment completed", gjson.Get(lines[0], "message").String())
	assert.Equal(t, "assessment", gjson.Get(lines[0], "module").String())
	assert.Equal(t, "gemini", gjson.Get(lines[0], "details.backend").String())

	assert.Equal(t, "ERROR", gjson.Get(lines[1], "level").String())
	assert.Equal(t, "boom", gjson.Get(lines[1], "error").String())
}

func TestNopLogger(t *testing.T) {
	var log ILogger = NewNopLogger()
	log.Info("x", "y", nil)
	assert.NoError(t, log.Sync())
}
