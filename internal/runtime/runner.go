// Package runtime orchestrates handler executions. A Runner resolves the
// requested handler on a compiled panel, shapes arguments and state, runs
// the handler through the sandbox pool and applies the outcome: state diffs
// merge into the panel registry, counters update, scopes release.
package runtime

import (
	"context"
	"fmt"

	nxmlerrors "github.com/conneroisu/nxml/internal/errors"
	"github.com/conneroisu/nxml/internal/logging"
	"github.com/conneroisu/nxml/internal/registry"
	"github.com/conneroisu/nxml/internal/sandbox"
	"github.com/conneroisu/nxml/internal/types"
)

// Runner executes panel handlers through a sandbox pool.
type Runner struct {
	pool     *sandbox.Pool
	registry *registry.PanelRegistry
	scopes   *ScopeRegistry
	metrics  *Metrics
	logger   logging.Logger
}

// Options configures a Runner. Zero values select defaults.
type Options struct {
	// Pool provides sandbox instances; nil gets a default-sized pool of
	// default executors
	Pool *sandbox.Pool

	// Registry, when set, supplies live panel state and receives the
	// state diffs of successful runs
	Registry *registry.PanelRegistry

	Logger logging.Logger
}

// NewRunner returns a Runner wired per opts.
func NewRunner(opts Options) *Runner {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewDiscardLogger()
	}
	pool := opts.Pool
	if pool == nil {
		pool = sandbox.NewPool(sandbox.DefaultPoolSize, func() *sandbox.Executor {
			return sandbox.NewExecutor(sandbox.Options{Logger: logger})
		}, logger)
	}
	return &Runner{
		pool:     pool,
		registry: opts.Registry,
		scopes:   NewScopeRegistry(),
		metrics:  NewMetrics(),
		logger:   logger.WithComponent("runtime"),
	}
}

// Metrics exposes the execution counters.
func (r *Runner) Metrics() *Metrics {
	return r.metrics
}

// Scopes exposes the scope registry for batch cancellation.
func (r *Runner) Scopes() *ScopeRegistry {
	return r.scopes
}

// Shutdown closes the sandbox pool.
func (r *Runner) Shutdown() {
	r.pool.Shutdown()
}

// Request names one handler invocation.
type Request struct {
	// Panel is the compiled definition to execute against
	Panel *types.Panel

	// WorkspaceID additionally scopes the execution for batch
	// cancellation; may be empty
	WorkspaceID string

	// Tool names the tool handler to run; exclusive with Lifecycle
	Tool string

	// Lifecycle names the lifecycle event handler to run
	Lifecycle string

	// Args are the caller-supplied arguments
	Args map[string]any

	// State overlays the snapshot the handler sees. When nil the
	// registry's live state, or the declared defaults, applies.
	State map[string]any
}

// Execute runs the requested handler and returns its result. Infrastructure
// problems (unknown handler, bad arguments, pool exhaustion) are returned as
// errors; handler failures come back inside the result.
func (r *Runner) Execute(ctx context.Context, req *Request) (*types.ExecutionResult, error) {
	handler, handlerName, args, err := r.resolve(req)
	if err != nil {
		return nil, err
	}

	execCtx := &types.ExecutionContext{
		PanelID:      req.Panel.Meta.ID,
		WorkspaceID:  req.WorkspaceID,
		HandlerName:  handlerName,
		State:        r.snapshotState(req),
		Args:         args,
		Capabilities: handler.Capabilities,
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	release := r.track(req.Panel.Meta.ID, req.WorkspaceID, cancel)
	defer release()

	instance, err := r.pool.Acquire(runCtx)
	if err != nil {
		return nil, err
	}
	result := instance.Executor.Execute(runCtx, handler, execCtx)
	r.pool.Release(instance, suspectResult(result))

	r.metrics.Record(result)
	r.finish(ctx, execCtx, result)
	return result, nil
}

// resolve finds the handler the request names and shapes its arguments.
func (r *Runner) resolve(req *Request) (*types.Handler, string, map[string]any, error) {
	switch {
	case req.Tool != "" && req.Lifecycle != "":
		return nil, "", nil, nxmlerrors.NewRuntimeError(nxmlerrors.ErrCodeBadArgument,
			"a request names either a tool or a lifecycle event, not both", nil)

	case req.Tool != "":
		tool := req.Panel.FindTool(req.Tool)
		if tool == nil {
			return nil, "", nil, nxmlerrors.NewRuntimeError(nxmlerrors.ErrCodeUnknownTool,
				fmt.Sprintf("panel %q has no tool %q", req.Panel.Meta.ID, req.Tool), nil)
		}
		args, err := coerceArgs(tool, req.Args)
		if err != nil {
			return nil, "", nil, err
		}
		return tool.Handler, tool.Name, args, nil

	case req.Lifecycle != "":
		hook := req.Panel.FindLifecycle(req.Lifecycle)
		if hook == nil {
			return nil, "", nil, nxmlerrors.NewRuntimeError(nxmlerrors.ErrCodeUnknownLifecycle,
				fmt.Sprintf("panel %q handles no lifecycle event %q", req.Panel.Meta.ID, req.Lifecycle), nil)
		}
		// Lifecycle hooks declare no arguments; whatever the caller
		// supplied passes through unshaped.
		args := req.Args
		if args == nil {
			args = map[string]any{}
		}
		return hook.Handler, hook.Event, args, nil

	default:
		return nil, "", nil, nxmlerrors.NewRuntimeError(nxmlerrors.ErrCodeBadArgument,
			"a request must name a tool or a lifecycle event", nil)
	}
}

// snapshotState builds the state the handler sees: declared defaults,
// overlaid by the registry's live state when the panel is active, overlaid
// by the request's explicit entries.
func (r *Runner) snapshotState(req *Request) map[string]any {
	state := make(map[string]any, len(req.Panel.Data.States))
	for _, decl := range req.Panel.Data.States {
		state[decl.Name] = decl.Default
	}
	if r.registry != nil {
		if live, ok := r.registry.State(req.Panel.Meta.ID); ok {
			for key, value := range live {
				state[key] = value
			}
		}
	}
	for key, value := range req.State {
		state[key] = value
	}
	return state
}

// track registers the run under its panel scope and, when distinct, its
// workspace scope.
func (r *Runner) track(panelID, workspaceID string, cancel context.CancelFunc) func() {
	releasePanel := r.scopes.Track(panelID, cancel)
	if workspaceID == "" || workspaceID == panelID {
		return releasePanel
	}
	releaseWorkspace := r.scopes.Track(workspaceID, cancel)
	return func() {
		releasePanel()
		releaseWorkspace()
	}
}

// suspectResult reports whether the instance should be reset on release.
// Aborted runs stopped mid-flight instead of returning.
func suspectResult(result *types.ExecutionResult) bool {
	if result.Error == nil {
		return false
	}
	switch result.Error.Kind {
	case types.ErrKindTimeout, types.ErrKindMemory, types.ErrKindAborted:
		return true
	}
	return false
}

// finish applies a successful result and logs the outcome.
func (r *Runner) finish(ctx context.Context, execCtx *types.ExecutionContext, result *types.ExecutionResult) {
	if result.Error != nil {
		r.logger.Warn(ctx, result.Error, "handler failed",
			"panel_id", execCtx.PanelID,
			"handler", execCtx.HandlerName,
			"kind", result.Error.Kind,
			"duration_ms", result.ExecutionTimeMS,
		)
		return
	}

	if r.registry != nil && len(result.StateChanges) > 0 {
		if err := r.registry.ApplyChanges(execCtx.PanelID, result.StateChanges); err != nil {
			r.logger.Warn(ctx, err, "state changes not applied",
				"panel_id", execCtx.PanelID,
				"handler", execCtx.HandlerName,
			)
		}
	}
	for _, event := range result.EmittedEvents {
		r.logger.Debug(ctx, "handler event",
			"panel_id", execCtx.PanelID,
			"handler", execCtx.HandlerName,
			"event", event.Event,
		)
	}
	r.logger.Info(ctx, "handler executed",
		"panel_id", execCtx.PanelID,
		"handler", execCtx.HandlerName,
		"duration_ms", result.ExecutionTimeMS,
		"host_calls", result.HostCallCount,
		"memory_bytes", result.MemoryUsedBytes,
	)
}
