// Package cmd provides the command-line interface for NXML with
// configuration management supporting multiple configuration sources.
//
// Configuration System:
//
//	The CLI supports flexible configuration through multiple sources with clear precedence:
//	1. Command-line flags (--config, --log-level, etc.) - highest priority
//	2. NXML_CONFIG_FILE environment variable - custom config file path
//	3. Individual environment variables (NXML_SANDBOX_TIMEOUT_MS, etc.)
//	4. Configuration files (.nxml.yml) - lowest priority
//
// Environment Variables:
//
//	NXML_CONFIG_FILE: Path to custom configuration file
//	NXML_SANDBOX_TIMEOUT_MS: Override handler timeout
//	NXML_POOL_SIZE: Override sandbox pool size
//	NXML_CACHE_MAX_ENTRIES: Override AST cache capacity
//	And many more following the NXML_<SECTION>_<OPTION> pattern
package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/conneroisu/nxml/internal/config"
	"github.com/conneroisu/nxml/internal/logging"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "nxml",
	Short: "Compiler and sandboxed runtime for NXML panel definitions",
	Long: `NXML compiles declarative panel definitions into validated ASTs and runs
their embedded handlers inside a capability-checked, resource-limited sandbox.

Key Features:
  • Context-sensitive lexer and recursive-descent parser
  • Semantic validation with errors and advisory warnings
  • Content-addressed AST cache with LRU eviction
  • Sandboxed handler execution with fuel, memory and timeout limits
  • Capability grants scoping what handlers may touch
  • File watching with debounced recompilation

Quick Start:
  nxml init counter               Scaffold a starter panel
  nxml compile counter.nxml       Compile and report diagnostics
  nxml run counter.nxml --tool increment --arg amount=2
  nxml watch                      Recompile panels as they change

Command Aliases (for faster typing):
  compile (c), validate (v), run (r), watch (w)

Documentation: https://github.com/conneroisu/nxml`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .nxml.yml, can also use NXML_CONFIG_FILE env var)")
	rootCmd.PersistentFlags().StringP("log-level", "l", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "text", "log format (text, json)")
	viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("log.format", rootCmd.PersistentFlags().Lookup("log-format"))
}

// initConfig initializes the configuration system with support for multiple config sources.
//
// Configuration Loading Priority (highest to lowest):
//  1. --config flag: Explicitly specified config file path
//  2. NXML_CONFIG_FILE environment variable: Custom config file path
//  3. Default: .nxml.yml in current directory
func initConfig() {
	// Priority 1: Use config file specified via --config flag (highest priority)
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else if envConfigFile := os.Getenv("NXML_CONFIG_FILE"); envConfigFile != "" {
		// Priority 2: Use config file specified via NXML_CONFIG_FILE environment variable
		// Supports both relative paths (./custom-config.yml) and absolute paths
		viper.SetConfigFile(envConfigFile)
	} else {
		// Priority 3: Search for default .nxml.yml in current directory (lowest priority)
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".nxml")
	}

	// Enable automatic environment variable binding with NXML_ prefix
	// Examples: NXML_POOL_SIZE, NXML_SANDBOX_TIMEOUT_MS, NXML_LOG_LEVEL
	viper.SetEnvPrefix("NXML")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Attempt to read the configuration file
	// If file doesn't exist or has errors, Viper will use defaults without failing
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// newLogger builds the process logger from the loaded configuration.
func newLogger(cfg *config.Config) logging.Logger {
	return logging.NewLogger(&logging.LoggerConfig{
		Level:  logging.ParseLevel(cfg.Log.Level),
		Format: cfg.Log.Format,
	})
}
