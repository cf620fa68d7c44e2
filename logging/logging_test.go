package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rishabhrocktheparty-ai/Blackgpt/config"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("WARNING"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel(""))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}

func TestSetupWithWritersFansOut(t *testing.T) {
	var text, js bytes.Buffer
	logger := SetupWithWriters(&text, &js, slog.LevelInfo)

	logger.Info("Signal created", "signal_id", "abc")
	logger.Debug("dropped")

	assert.Contains(t, text.String(), "Signal created")
	assert.NotContains(t, text.String(), "dropped")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(js.Bytes(), &rec))
	assert.Equal(t, "Signal created", rec["msg"])
	assert.Equal(t, "abc", rec["signal_id"])
}

func TestSetupWritesJSONFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blackgpt.log")
	logger, cleanup := Setup(config.LogConfig{Level: "info", File: path})

	logger.Warn("Correlation failed", "job_id", "j1")
	require.NoError(t, cleanup())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"job_id":"j1"`)
}
