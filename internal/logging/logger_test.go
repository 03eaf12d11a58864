package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	testCases := []struct {
		input string
		want  LogLevel
	}{
		{"debug", LevelDebug},
		{"info", LevelInfo},
		{"warn", LevelWarn},
		{"warning", LevelWarn},
		{"error", LevelError},
		{"fatal", LevelFatal},
		{"  DEBUG ", LevelDebug},
		{"bogus", LevelInfo},
		{"", LevelInfo},
	}

	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			assert.Equal(t, tc.want, ParseLevel(tc.input))
		})
	}
}

func TestLoggerWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&LoggerConfig{
		Level:  LevelDebug,
		Format: "json",
		Output: &buf,
	})

	logger.Info(context.Background(), "panel compiled", "panel_id", "p1", "duration_ms", 12)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "panel compiled", entry["msg"])
	assert.Equal(t, "p1", entry["panel_id"])
	assert.Equal(t, float64(12), entry["duration_ms"])
}

func TestLoggerLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&LoggerConfig{
		Level:  LevelWarn,
		Format: "text",
		Output: &buf,
	})

	logger.Debug(context.Background(), "hidden")
	logger.Info(context.Background(), "also hidden")
	assert.Empty(t, buf.String())

	logger.Warn(context.Background(), nil, "visible")
	assert.Contains(t, buf.String(), "visible")
}

func TestLoggerErrorField(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&LoggerConfig{
		Level:  LevelDebug,
		Format: "json",
		Output: &buf,
	})

	logger.Error(context.Background(), errors.New("sandbox fault"), "execution failed")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "sandbox fault", entry["error"])
}

func TestLoggerWithComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&LoggerConfig{
		Level:  LevelDebug,
		Format: "json",
		Output: &buf,
	})

	logger.WithComponent("lexer").Info(context.Background(), "tokenized")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "lexer", entry["component"])
}

func TestLoggerWithFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&LoggerConfig{
		Level:  LevelDebug,
		Format: "json",
		Output: &buf,
	})

	child := logger.With("workspace_id", "ws1")
	child.Info(context.Background(), "activated")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "ws1", entry["workspace_id"])

	// Parent logger is unaffected
	buf.Reset()
	logger.Info(context.Background(), "plain")
	var parentEntry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &parentEntry))
	_, ok := parentEntry["workspace_id"]
	assert.False(t, ok)
}

func TestSanitizeForLog(t *testing.T) {
	assert.Equal(t, "[REDACTED]", SanitizeForLog("my password is hunter2"))
	assert.Equal(t, "[REDACTED]", SanitizeForLog("Bearer token abc"))
	assert.Equal(t, "plain text", SanitizeForLog("plain text"))

	long := make([]byte, 2000)
	for i := range long {
		long[i] = 'a'
	}
	out := SanitizeForLog(string(long))
	assert.Len(t, out, 1000+len("...[TRUNCATED]"))
}

func TestLogSecurityEvent(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&LoggerConfig{
		Level:  LevelDebug,
		Format: "json",
		Output: &buf,
	})

	LogSecurityEvent(logger, context.Background(), "capability_denied", map[string]interface{}{
		"capability": "fs:write",
		"panel_id":   "p1",
	})

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "security", entry["event_type"])
	assert.Equal(t, "capability_denied", entry["event"])
	assert.Equal(t, "fs:write", entry["capability"])
}

func TestPerfLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&LoggerConfig{
		Level:  LevelDebug,
		Format: "json",
		Output: &buf,
	})

	logger.StartOperation("compile").End(context.Background())

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "Operation completed", entry["msg"])
	assert.Equal(t, "compile", entry["operation"])
	_, ok := entry["duration_ms"]
	assert.True(t, ok)

	buf.Reset()
	logger.StartOperation("execute").EndWithError(context.Background(), errors.New("handler fault"))

	var failed map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &failed))
	assert.Equal(t, "Operation failed", failed["msg"])
	assert.Equal(t, "handler fault", failed["error"])
}
