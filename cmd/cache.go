package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/conneroisu/nxml/internal/astcache"
	"github.com/conneroisu/nxml/internal/compiler"
	"github.com/conneroisu/nxml/internal/config"
)

var (
	cacheClear  bool
	cacheFormat string
)

// cacheCmd represents the cache command
var cacheCmd = &cobra.Command{
	Use:   "cache [files...]",
	Short: "Inspect or reset the AST cache",
	Long: `Show statistics for the content-addressed AST cache, or reset it.
Files given as arguments are compiled through the cache first, so their
entries show up in the statistics. Compiling the same content twice
counts as a hit; parsing is skipped and only validation re-runs.

Examples:
  nxml cache --stats counter.nxml      # Warm the cache and show stats
  nxml cache --stats --format json     # Stats as JSON
  nxml cache --clear                   # Reset entries and counters`,
	RunE: runCache,
}

func init() {
	rootCmd.AddCommand(cacheCmd)

	cacheCmd.Flags().Bool("stats", false, "Show cache statistics (default action)")
	cacheCmd.Flags().BoolVar(&cacheClear, "clear", false, "Reset the cache")
	cacheCmd.Flags().StringVarP(&cacheFormat, "format", "f", "text", "Output format (text, json)")
	addFlagValidation(cacheCmd, "format", validateOutputFormat)
}

func runCache(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	cache := astcache.Default()

	if cacheClear {
		cache.Clear()
		fmt.Println("✅ AST cache cleared")
		if stats, _ := cmd.Flags().GetBool("stats"); !stats {
			return nil
		}
	}

	if len(args) > 0 {
		ctx := context.Background()
		comp := compiler.New(compiler.Options{Cache: cache, Logger: newLogger(cfg)})
		for _, file := range args {
			if _, err := comp.CompileFile(ctx, file); err != nil {
				fmt.Printf("❌ %s: %v\n", file, err)
			}
		}
	}

	snapshot := cache.Snapshot()
	if cacheFormat == "json" {
		return printJSON(snapshot)
	}

	fmt.Printf("AST cache: %d entries (max %d)\n", snapshot.Entries, snapshot.MaxEntries)
	fmt.Printf("   hits: %d, misses: %d, evictions: %d\n", snapshot.Hits, snapshot.Misses, snapshot.Evictions)
	fmt.Printf("   hit rate: %.1f%%\n", snapshot.HitRate*100)
	return nil
}
