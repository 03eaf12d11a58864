package config

import (
	"fmt"
	"path/filepath"
	"strings"

	nxmlerrors "github.com/conneroisu/nxml/internal/errors"
)

var logLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

var logFormats = map[string]bool{
	"text": true,
	"json": true,
}

// Validate checks every section for values that cannot work at runtime.
// Sizes and limits must be positive; a zero cache or pool would deadlock
// the first compile or acquire.
func (c *Config) Validate() error {
	if c.Cache.MaxEntries <= 0 {
		return invalid("cache.max_entries must be positive, got %d", c.Cache.MaxEntries)
	}
	if c.Sandbox.TimeoutMS <= 0 {
		return invalid("sandbox.timeout_ms must be positive, got %d", c.Sandbox.TimeoutMS)
	}
	if c.Sandbox.MemoryLimitBytes <= 0 {
		return invalid("sandbox.memory_limit_bytes must be positive, got %d", c.Sandbox.MemoryLimitBytes)
	}
	if c.Sandbox.MaxHostCalls <= 0 {
		return invalid("sandbox.max_host_calls must be positive, got %d", c.Sandbox.MaxHostCalls)
	}
	if c.Pool.Size <= 0 {
		return invalid("pool.size must be positive, got %d", c.Pool.Size)
	}
	if c.Watch.DebounceMS <= 0 {
		return invalid("watch.debounce_ms must be positive, got %d", c.Watch.DebounceMS)
	}
	for _, path := range c.Watch.Paths {
		if err := validatePath(path); err != nil {
			return invalid("watch.paths entry %q: %v", path, err)
		}
	}
	if c.Capabilities.PatternsFile != "" {
		if err := validatePath(c.Capabilities.PatternsFile); err != nil {
			return invalid("capabilities.patterns_file %q: %v", c.Capabilities.PatternsFile, err)
		}
	}
	if !logLevels[c.Log.Level] {
		return invalid("log.level must be debug, info, warn or error, got %q", c.Log.Level)
	}
	if !logFormats[c.Log.Format] {
		return invalid("log.format must be text or json, got %q", c.Log.Format)
	}
	return nil
}

func invalid(format string, args ...any) error {
	return nxmlerrors.NewConfigError(nxmlerrors.ErrCodeConfigInvalid, fmt.Sprintf(format, args...))
}

// validatePath validates a configured file path for security.
func validatePath(path string) error {
	if path == "" {
		return fmt.Errorf("empty path")
	}

	cleanPath := filepath.Clean(path)

	// Reject path traversal attempts
	if strings.Contains(cleanPath, "..") {
		return fmt.Errorf("path contains traversal: %s", path)
	}

	// Reject dangerous characters
	dangerousChars := []string{";", "&", "|", "$", "`", "(", ")", "<", ">", "\"", "'"}
	for _, char := range dangerousChars {
		if strings.Contains(cleanPath, char) {
			return fmt.Errorf("path contains dangerous character: %s", char)
		}
	}

	return nil
}
