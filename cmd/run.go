package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/conneroisu/nxml/internal/astcache"
	"github.com/conneroisu/nxml/internal/capability"
	"github.com/conneroisu/nxml/internal/compiler"
	"github.com/conneroisu/nxml/internal/config"
	"github.com/conneroisu/nxml/internal/logging"
	"github.com/conneroisu/nxml/internal/runtime"
	"github.com/conneroisu/nxml/internal/sandbox"
	"github.com/conneroisu/nxml/internal/types"
)

var (
	runTool      string
	runLifecycle string
	runArgs      []string
	runStates    []string
	runWorkspace string
	runFormat    string
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:     "run <file>",
	Aliases: []string{"r"},
	Short:   "Execute a panel handler in the sandbox",
	Long: `Compile a panel file and execute one of its tool or lifecycle handlers
inside the sandbox pool. Arguments and state overrides are supplied as
repeated key=value flags and shaped against the panel's declarations.

The handler runs under the configured limits (timeout, memory, host
calls) and its result is printed, including state changes and emitted
events. A failed handler makes the exit code non-zero.

Examples:
  nxml run counter.nxml --tool increment --arg amount=2
  nxml run counter.nxml --tool increment --arg amount=2 --state count=10
  nxml run counter.nxml --lifecycle mount
  nxml run counter.nxml --tool increment --arg amount=1 --format json`,
	Args: cobra.ExactArgs(1),
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runTool, "tool", "t", "", "Tool handler to execute")
	runCmd.Flags().StringVar(&runLifecycle, "lifecycle", "", "Lifecycle handler to execute (mount, unmount, update)")
	runCmd.Flags().StringArrayVar(&runArgs, "arg", nil, "Tool argument as key=value (repeatable)")
	runCmd.Flags().StringArrayVar(&runStates, "state", nil, "State override as key=value (repeatable)")
	runCmd.Flags().StringVar(&runWorkspace, "workspace", "", "Workspace scope for the execution")
	runCmd.Flags().StringVarP(&runFormat, "format", "f", "text", "Output format (text, json)")
	addFlagValidation(runCmd, "format", validateOutputFormat)
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	logger := newLogger(cfg)

	ctx := context.Background()
	comp := compiler.New(compiler.Options{
		Cache:  astcache.New(cfg.Cache.MaxEntries),
		Logger: logger,
	})

	result, err := comp.CompileFile(ctx, args[0])
	if err != nil {
		return fmt.Errorf("failed to compile %s: %w", args[0], err)
	}
	if !result.Valid {
		for _, d := range result.Errors {
			fmt.Printf("   %s\n", formatDiagnostic(d))
		}
		return fmt.Errorf("panel %q has %d validation error(s)", result.Panel.Meta.ID, len(result.Errors))
	}

	toolArgs, err := parseKeyValues("arg", runArgs)
	if err != nil {
		return err
	}
	rawState, err := parseKeyValues("state", runStates)
	if err != nil {
		return err
	}
	state, err := runtime.CoerceState(result.Panel, rawState)
	if err != nil {
		return fmt.Errorf("invalid state override: %w", err)
	}

	pool, err := newPool(cfg, logger)
	if err != nil {
		return err
	}
	runner := runtime.NewRunner(runtime.Options{Pool: pool, Logger: logger})
	defer runner.Shutdown()

	execution, err := runner.Execute(ctx, &runtime.Request{
		Panel:       result.Panel,
		WorkspaceID: runWorkspace,
		Tool:        runTool,
		Lifecycle:   runLifecycle,
		Args:        toolArgs,
		State:       state,
	})
	if err != nil {
		return fmt.Errorf("execution failed: %w", err)
	}

	if runFormat == "json" {
		if err := printJSON(execution); err != nil {
			return err
		}
	} else {
		printExecution(handlerLabel(), execution)
	}

	if !execution.Success {
		return fmt.Errorf("handler failed: %s", execution.Error.Error())
	}
	return nil
}

// newPool builds a sandbox pool sized and limited per the configuration.
func newPool(cfg *config.Config, logger logging.Logger) (*sandbox.Pool, error) {
	var checker *capability.Checker
	if cfg.Capabilities.PatternsFile != "" {
		var err error
		checker, err = capability.LoadChecker(cfg.Capabilities.PatternsFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load capability patterns: %w", err)
		}
	}

	limits := sandbox.Limits{
		TimeoutMS:        cfg.Sandbox.TimeoutMS,
		MemoryLimitBytes: cfg.Sandbox.MemoryLimitBytes,
		MaxHostCalls:     cfg.Sandbox.MaxHostCalls,
	}
	pool := sandbox.NewPool(cfg.Pool.Size, func() *sandbox.Executor {
		return sandbox.NewExecutor(sandbox.Options{Checker: checker, Logger: logger, Limits: limits})
	}, logger)
	if cfg.Pool.Prewarm {
		pool.Prewarm()
	}
	return pool, nil
}

// parseKeyValues turns repeated key=value flags into a map. Values stay
// strings here; shaping against declared types happens later.
func parseKeyValues(flagName string, pairs []string) (map[string]any, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	values := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		key, value, found := strings.Cut(pair, "=")
		if !found || key == "" {
			return nil, fmt.Errorf("invalid --%s %q (expected key=value)", flagName, pair)
		}
		values[key] = value
	}
	return values, nil
}

func handlerLabel() string {
	if runTool != "" {
		return runTool
	}
	return runLifecycle
}

func printExecution(name string, execution *types.ExecutionResult) {
	if !execution.Success {
		fmt.Printf("❌ %s failed (%s): %s\n", name, execution.Error.Kind, execution.Error.Message)
		return
	}

	fmt.Printf("✅ %s completed in %dms\n", name, execution.ExecutionTimeMS)
	if execution.ReturnValue != nil {
		fmt.Printf("   return value: %s\n", formatValue(execution.ReturnValue))
	}
	if len(execution.StateChanges) > 0 {
		fmt.Println("   state changes:")
		for _, key := range sortedKeys(execution.StateChanges) {
			fmt.Printf("     %s = %s\n", key, formatValue(execution.StateChanges[key]))
		}
	}
	for _, event := range execution.EmittedEvents {
		if event.Payload != nil {
			fmt.Printf("   event %s: %s\n", event.Event, formatValue(event.Payload))
		} else {
			fmt.Printf("   event %s\n", event.Event)
		}
	}
	fmt.Printf("   host calls: %d, memory: %d bytes\n", execution.HostCallCount, execution.MemoryUsedBytes)
}

// formatValue renders a handler value compactly, favoring JSON for
// containers so nested structures stay readable.
func formatValue(v any) string {
	switch v.(type) {
	case string:
		return fmt.Sprintf("%q", v)
	case map[string]any, []any:
		data, err := json.Marshal(v)
		if err == nil {
			return string(data)
		}
	}
	return fmt.Sprintf("%v", v)
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
