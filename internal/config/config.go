// Package config provides configuration management for nxml using Viper
// for flexible loading from files, environment variables, and command-line
// flags.
//
// Settings come from a .nxml.yml file in the working directory, overridden
// by environment variables with the NXML_ prefix, overridden by flags the
// commands bind. The sections cover the AST cache, sandbox execution
// limits, the executor pool, capability patterns, watch mode, and logging.
package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// Defaults applied when a key is absent from every source.
const (
	DefaultCacheMaxEntries  = 1024
	DefaultTimeoutMS        = 5000
	DefaultMemoryLimitBytes = 134217728
	DefaultMaxHostCalls     = 1000
	DefaultPoolSize         = 10
	DefaultDebounceMS       = 300
)

type Config struct {
	Cache        CacheConfig        `yaml:"cache"`
	Sandbox      SandboxConfig      `yaml:"sandbox"`
	Pool         PoolConfig         `yaml:"pool"`
	Capabilities CapabilitiesConfig `yaml:"capabilities"`
	Watch        WatchConfig        `yaml:"watch"`
	Log          LogConfig          `yaml:"log"`
}

type CacheConfig struct {
	MaxEntries int `yaml:"max_entries"`
}

type SandboxConfig struct {
	TimeoutMS        int   `yaml:"timeout_ms"`
	MemoryLimitBytes int64 `yaml:"memory_limit_bytes"`
	MaxHostCalls     int   `yaml:"max_host_calls"`
}

type PoolConfig struct {
	Size    int  `yaml:"size"`
	Prewarm bool `yaml:"prewarm"`
}

type CapabilitiesConfig struct {
	PatternsFile string `yaml:"patterns_file"`
}

type WatchConfig struct {
	DebounceMS int      `yaml:"debounce_ms"`
	Paths      []string `yaml:"paths"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns a configuration with every key at its default.
func Default() *Config {
	return &Config{
		Cache: CacheConfig{
			MaxEntries: DefaultCacheMaxEntries,
		},
		Sandbox: SandboxConfig{
			TimeoutMS:        DefaultTimeoutMS,
			MemoryLimitBytes: DefaultMemoryLimitBytes,
			MaxHostCalls:     DefaultMaxHostCalls,
		},
		Pool: PoolConfig{
			Size: DefaultPoolSize,
		},
		Watch: WatchConfig{
			DebounceMS: DefaultDebounceMS,
			Paths:      []string{"."},
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load builds the configuration from viper's current state on top of the
// defaults and validates it.
func Load() (*Config, error) {
	config := Default()
	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	// Underscored keys do not match Go field names during unmarshal, so
	// they are read explicitly.
	if viper.IsSet("cache.max_entries") {
		config.Cache.MaxEntries = viper.GetInt("cache.max_entries")
	}
	if viper.IsSet("sandbox.timeout_ms") {
		config.Sandbox.TimeoutMS = viper.GetInt("sandbox.timeout_ms")
	}
	if viper.IsSet("sandbox.memory_limit_bytes") {
		config.Sandbox.MemoryLimitBytes = viper.GetInt64("sandbox.memory_limit_bytes")
	}
	if viper.IsSet("sandbox.max_host_calls") {
		config.Sandbox.MaxHostCalls = viper.GetInt("sandbox.max_host_calls")
	}
	if viper.IsSet("capabilities.patterns_file") {
		config.Capabilities.PatternsFile = viper.GetString("capabilities.patterns_file")
	}
	if viper.IsSet("watch.debounce_ms") {
		config.Watch.DebounceMS = viper.GetInt("watch.debounce_ms")
	}

	// Environment-only keys never reach Unmarshal, so the remaining keys
	// are read explicitly too (workaround for viper env handling).
	if viper.IsSet("pool.size") {
		config.Pool.Size = viper.GetInt("pool.size")
	}
	if viper.IsSet("pool.prewarm") {
		config.Pool.Prewarm = viper.GetBool("pool.prewarm")
	}
	if viper.IsSet("log.level") {
		config.Log.Level = viper.GetString("log.level")
	}
	if viper.IsSet("log.format") {
		config.Log.Format = viper.GetString("log.format")
	}

	// Handle watch paths set via viper (workaround for viper slice handling)
	if viper.IsSet("watch.paths") {
		if paths := viper.GetStringSlice("watch.paths"); len(paths) > 0 {
			config.Watch.Paths = paths
		}
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}
