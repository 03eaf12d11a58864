package cmd

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/conneroisu/nxml/internal/astcache"
	"github.com/conneroisu/nxml/internal/compiler"
	"github.com/conneroisu/nxml/internal/config"
	"github.com/conneroisu/nxml/internal/registry"
	"github.com/conneroisu/nxml/internal/watcher"
)

var watchVerbose bool

// watchCmd represents the watch command
var watchCmd = &cobra.Command{
	Use:     "watch [paths...]",
	Aliases: []string{"w"},
	Short:   "Watch panel files and recompile on change",
	Long: `Watch one or more directory trees for panel changes and recompile
automatically. Changed panels are validated and activated in the panel
registry; a panel that stops compiling keeps its last good version
active until a valid replacement appears. Deleting a file deactivates
its panel.

Paths default to the configured watch paths when none are given.

Examples:
  nxml watch                      # Watch the configured paths
  nxml watch panels/ shared/      # Watch specific trees
  nxml watch --verbose            # Print every change event`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().BoolVarP(&watchVerbose, "verbose", "v", false, "Verbose output")
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	logger := newLogger(cfg)

	paths := args
	if len(paths) == 0 {
		paths = cfg.Watch.Paths
	}

	comp := compiler.New(compiler.Options{
		Cache:  astcache.New(cfg.Cache.MaxEntries),
		Logger: logger,
	})
	panelRegistry := registry.NewPanelRegistry()
	session := &watchSession{
		compiler: comp,
		registry: panelRegistry,
		panels:   make(map[string]string),
	}

	fileWatcher, err := watcher.NewFileWatcher(time.Duration(cfg.Watch.DebounceMS)*time.Millisecond, logger)
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer fileWatcher.Stop()

	fileWatcher.AddFilter(watcher.PanelFilter)
	fileWatcher.AddFilter(watcher.NoHiddenFilter)
	fileWatcher.AddFilter(watcher.NoGitFilter)

	fileWatcher.AddHandler(func(events []watcher.ChangeEvent) error {
		if watchVerbose {
			fmt.Printf("📁 File changes detected:\n")
			for _, event := range events {
				fmt.Printf("   %s: %s\n", event.Type, event.Path)
			}
		} else {
			fmt.Printf("📁 %d file(s) changed\n", len(events))
		}
		session.apply(context.Background(), events)
		return nil
	})

	fmt.Println("🔍 Setting up file watching...")
	for _, path := range paths {
		if err := fileWatcher.AddRecursive(path); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to watch path %s: %v\n", path, err)
		} else {
			fmt.Printf("   - Watching: %s\n", path)
		}
	}

	fmt.Println("📁 Performing initial scan...")
	session.initialScan(context.Background(), paths)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Registry lifecycle events print as they happen.
	events := panelRegistry.Watch()
	go func() {
		for event := range events {
			fmt.Printf("   • panel %q %s\n", event.PanelID, event.Type)
		}
	}()

	if err := fileWatcher.Start(ctx); err != nil {
		return fmt.Errorf("failed to start file watcher: %w", err)
	}

	fmt.Println("👀 Watching for changes... (Press Ctrl+C to stop)")

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	<-sigChan
	fmt.Println("\n🛑 Stopping file watcher...")
	cancel()
	panelRegistry.Unwatch(events)

	return nil
}

// watchSession tracks which panel each watched file produced, so deletes
// and renames deactivate the right registry entry.
type watchSession struct {
	compiler *compiler.Compiler
	registry *registry.PanelRegistry
	panels   map[string]string
}

func (s *watchSession) initialScan(ctx context.Context, paths []string) {
	count := 0
	for _, root := range paths {
		filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil || d == nil || d.IsDir() {
				return nil
			}
			if filepath.Ext(path) != ".nxml" {
				return nil
			}
			if s.compileOne(ctx, path) {
				count++
			}
			return nil
		})
	}
	fmt.Printf("Found %d panel(s)\n", count)
}

func (s *watchSession) apply(ctx context.Context, events []watcher.ChangeEvent) {
	for _, event := range events {
		switch event.Type {
		case watcher.EventTypeDeleted, watcher.EventTypeRenamed:
			s.forget(event.Path)
		default:
			s.compileOne(ctx, event.Path)
		}
	}
}

func (s *watchSession) compileOne(ctx context.Context, path string) bool {
	result, err := s.compiler.CompileFile(ctx, path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ %s: %v\n", path, err)
		return false
	}
	if !result.Valid {
		// The previously activated version stays live until a valid
		// replacement compiles.
		fmt.Printf("❌ %s: %d error(s)\n", path, len(result.Errors))
		for _, d := range result.Errors {
			fmt.Printf("   %s\n", formatDiagnostic(d))
		}
		return false
	}
	for _, d := range result.Warnings {
		fmt.Printf("   %s\n", formatDiagnostic(d))
	}
	s.registry.Activate(result.Panel, result.SourceHash)
	s.panels[path] = result.Panel.Meta.ID
	fmt.Printf("✅ %s compiled\n", path)
	return true
}

func (s *watchSession) forget(path string) {
	id, ok := s.panels[path]
	if !ok {
		return
	}
	delete(s.panels, path)
	if s.registry.Deactivate(id) {
		fmt.Printf("🗑  %s removed, panel %q deactivated\n", path, id)
	}
}
