package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	nxmlerrors "github.com/conneroisu/nxml/internal/errors"
)

// loadFrom points viper at a config file written from content and loads it.
func loadFrom(t *testing.T, content string) (*Config, error) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)

	path := filepath.Join(t.TempDir(), ".nxml.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	viper.SetConfigFile(path)
	require.NoError(t, viper.ReadInConfig())
	return Load()
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, DefaultCacheMaxEntries, cfg.Cache.MaxEntries)
	assert.Equal(t, DefaultTimeoutMS, cfg.Sandbox.TimeoutMS)
	assert.Equal(t, int64(DefaultMemoryLimitBytes), cfg.Sandbox.MemoryLimitBytes)
	assert.Equal(t, DefaultMaxHostCalls, cfg.Sandbox.MaxHostCalls)
	assert.Equal(t, DefaultPoolSize, cfg.Pool.Size)
	assert.False(t, cfg.Pool.Prewarm)
	assert.Equal(t, DefaultDebounceMS, cfg.Watch.DebounceMS)
	assert.Equal(t, []string{"."}, cfg.Watch.Paths)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
}

func TestLoadFromFile(t *testing.T) {
	cfg, err := loadFrom(t, `
cache:
  max_entries: 64
sandbox:
  timeout_ms: 250
  memory_limit_bytes: 1048576
  max_host_calls: 20
pool:
  size: 2
  prewarm: true
capabilities:
  patterns_file: patterns.yml
watch:
  debounce_ms: 100
  paths:
    - panels
    - shared
log:
  level: debug
  format: json
`)
	require.NoError(t, err)

	assert.Equal(t, 64, cfg.Cache.MaxEntries)
	assert.Equal(t, 250, cfg.Sandbox.TimeoutMS)
	assert.Equal(t, int64(1048576), cfg.Sandbox.MemoryLimitBytes)
	assert.Equal(t, 20, cfg.Sandbox.MaxHostCalls)
	assert.Equal(t, 2, cfg.Pool.Size)
	assert.True(t, cfg.Pool.Prewarm)
	assert.Equal(t, "patterns.yml", cfg.Capabilities.PatternsFile)
	assert.Equal(t, 100, cfg.Watch.DebounceMS)
	assert.Equal(t, []string{"panels", "shared"}, cfg.Watch.Paths)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadAppliesDefaultsForMissingKeys(t *testing.T) {
	cfg, err := loadFrom(t, `
pool:
  size: 3
`)
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Pool.Size)
	assert.Equal(t, DefaultCacheMaxEntries, cfg.Cache.MaxEntries)
	assert.Equal(t, DefaultTimeoutMS, cfg.Sandbox.TimeoutMS)
	assert.Equal(t, []string{"."}, cfg.Watch.Paths)
}

func TestLoadEnvironmentOverride(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	t.Setenv("NXML_POOL_SIZE", "7")
	t.Setenv("NXML_LOG_LEVEL", "warn")
	t.Setenv("NXML_SANDBOX_TIMEOUT_MS", "123")

	viper.SetEnvPrefix("NXML")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Pool.Size)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, 123, cfg.Sandbox.TimeoutMS)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantMsg string
	}{
		{"zero cache", "cache:\n  max_entries: 0", "cache.max_entries"},
		{"negative timeout", "sandbox:\n  timeout_ms: -5", "sandbox.timeout_ms"},
		{"zero memory", "sandbox:\n  memory_limit_bytes: 0", "sandbox.memory_limit_bytes"},
		{"zero host calls", "sandbox:\n  max_host_calls: 0", "sandbox.max_host_calls"},
		{"zero pool", "pool:\n  size: 0", "pool.size"},
		{"zero debounce", "watch:\n  debounce_ms: 0", "watch.debounce_ms"},
		{"bad log level", "log:\n  level: verbose", "log.level"},
		{"bad log format", "log:\n  format: xml", "log.format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := loadFrom(t, tt.content)
			require.Error(t, err)

			var ne *nxmlerrors.NXMLError
			require.ErrorAs(t, err, &ne)
			assert.Equal(t, nxmlerrors.ErrCodeConfigInvalid, ne.Code)
			assert.Contains(t, ne.Message, tt.wantMsg)
		})
	}
}

func TestValidateRejectsUnsafePaths(t *testing.T) {
	cfg := Default()
	cfg.Watch.Paths = []string{"../outside"}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "traversal")

	cfg = Default()
	cfg.Capabilities.PatternsFile = "dir; rm -rf tmp"
	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dangerous character")
}

func TestValidateRejectsEmptyWatchPath(t *testing.T) {
	cfg := Default()
	cfg.Watch.Paths = []string{""}
	require.Error(t, cfg.Validate())
}
