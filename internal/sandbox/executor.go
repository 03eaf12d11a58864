package sandbox

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/conneroisu/nxml/internal/capability"
	nxmlerrors "github.com/conneroisu/nxml/internal/errors"
	"github.com/conneroisu/nxml/internal/logging"
	"github.com/conneroisu/nxml/internal/script"
	"github.com/conneroisu/nxml/internal/types"
)

// Default execution limits, applied where the handler or configuration
// does not override them.
const (
	DefaultTimeoutMS        = 5000
	DefaultMemoryLimitBytes = 134217728
	DefaultMaxHostCalls     = 1000
)

// Limits bounds one handler execution.
type Limits struct {
	// TimeoutMS is the wall-clock budget; a handler's own timeout_ms
	// takes precedence when set.
	TimeoutMS int

	// MemoryLimitBytes caps the interpreter's tracked allocations.
	MemoryLimitBytes int64

	// MaxHostCalls caps host function invocations per run.
	MaxHostCalls int
}

func (l Limits) withDefaults() Limits {
	if l.TimeoutMS <= 0 {
		l.TimeoutMS = DefaultTimeoutMS
	}
	if l.MemoryLimitBytes <= 0 {
		l.MemoryLimitBytes = DefaultMemoryLimitBytes
	}
	if l.MaxHostCalls <= 0 {
		l.MaxHostCalls = DefaultMaxHostCalls
	}
	return l
}

// Options configures an Executor.
type Options struct {
	// Checker performs the pre-run static capability check. Nil selects
	// the built-in pattern table.
	Checker *capability.Checker

	// Extensions resolves $ext calls. Nil means no extensions are
	// registered.
	Extensions ExtensionHost

	// Logger receives execution and handler logs. Nil discards.
	Logger logging.Logger

	// Limits are the default execution limits.
	Limits Limits
}

// Executor runs handlers one at a time. Compiled programs are cached
// per executor keyed by code hash, so a pooled instance pays the parse
// cost once per distinct handler.
type Executor struct {
	checker    *capability.Checker
	extensions ExtensionHost
	logger     logging.Logger
	limits     Limits

	mu       sync.Mutex
	programs map[string]*script.Program
}

// NewExecutor returns an executor with the given options.
func NewExecutor(opts Options) *Executor {
	if opts.Checker == nil {
		opts.Checker = capability.NewChecker()
	}
	if opts.Logger == nil {
		opts.Logger = logging.NewDiscardLogger()
	}
	return &Executor{
		checker:    opts.Checker,
		extensions: opts.Extensions,
		logger:     opts.Logger.WithComponent("sandbox"),
		limits:     opts.Limits.withDefaults(),
		programs:   make(map[string]*script.Program),
	}
}

// Reset drops the compiled-program cache. The pool resets executors it
// suspects after a failed or timed-out run.
func (ex *Executor) Reset() {
	ex.mu.Lock()
	defer ex.mu.Unlock()
	ex.programs = make(map[string]*script.Program)
}

// CachedPrograms reports the number of compiled handlers held.
func (ex *Executor) CachedPrograms() int {
	ex.mu.Lock()
	defer ex.mu.Unlock()
	return len(ex.programs)
}

// Execute runs one handler to completion or failure. It never panics
// and never returns a nil result; failures are reported inside the
// result with an empty state diff.
func (ex *Executor) Execute(ctx context.Context, handler *types.Handler, execCtx *types.ExecutionContext) (result *types.ExecutionResult) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			result = failure(types.ErrKindRuntime, fmt.Sprintf("internal execution panic: %v", r), start)
		}
	}()

	// Static pre-check. Violating handlers are rejected before a single
	// statement runs.
	if violations := ex.checker.Check(handler.Code, execCtx.Capabilities); len(violations) > 0 {
		ex.logger.Warn(ctx, nil, "handler rejected by static capability check",
			"panel_id", execCtx.PanelID,
			"handler", execCtx.HandlerName,
			"violations", violations,
		)
		return failure(types.ErrKindCapability,
			"Capability violations: "+strings.Join(violations, ", "), start)
	}

	prog, cached, err := ex.compile(handler.Code)
	if err != nil {
		return failure(types.ErrKindRuntime, "handler failed to compile: "+err.Error(), start)
	}

	timeoutMS := handler.TimeoutMS
	if timeoutMS <= 0 {
		timeoutMS = ex.limits.TimeoutMS
	}
	runCtx, cancel := context.WithTimeout(ctx, time.Duration(timeoutMS)*time.Millisecond)
	defer cancel()

	host := newBoundary(runCtx, execCtx, ex.extensions, ex.logger, ex.limits.MaxHostCalls)
	interp := script.New(host, script.Options{
		MaxAllocBytes: ex.limits.MemoryLimitBytes,
		PanelID:       execCtx.PanelID,
		WorkspaceID:   execCtx.WorkspaceID,
		HandlerName:   execCtx.HandlerName,
	})

	value, err := interp.Run(runCtx, prog)
	elapsed := time.Since(start)

	result = &types.ExecutionResult{
		StateChanges:    map[string]any{},
		ExecutionTimeMS: elapsed.Milliseconds(),
		MemoryUsedBytes: interp.AllocBytes(),
		HostCallCount:   host.hostCalls,
	}
	if err != nil {
		kind, message := classify(err)
		result.Error = &types.ExecutionError{Kind: kind, Message: message}
		ex.logger.Warn(ctx, err, "handler execution failed",
			"panel_id", execCtx.PanelID,
			"handler", execCtx.HandlerName,
			"kind", kind,
			"duration_ms", elapsed.Milliseconds(),
		)
		return result
	}

	result.Success = true
	result.ReturnValue = value.Interface()
	result.StateChanges = host.changes
	result.EmittedEvents = host.events
	ex.logger.Debug(ctx, "handler executed",
		"panel_id", execCtx.PanelID,
		"handler", execCtx.HandlerName,
		"duration_ms", elapsed.Milliseconds(),
		"host_calls", host.hostCalls,
		"program_cached", cached,
	)
	return result
}

// compile returns the cached program for code, compiling on first use.
func (ex *Executor) compile(code string) (*script.Program, bool, error) {
	sum := sha256.Sum256([]byte(code))
	key := hex.EncodeToString(sum[:])

	ex.mu.Lock()
	prog, ok := ex.programs[key]
	ex.mu.Unlock()
	if ok {
		return prog, true, nil
	}

	prog, err := script.Compile(code)
	if err != nil {
		return nil, false, err
	}
	ex.mu.Lock()
	ex.programs[key] = prog
	ex.mu.Unlock()
	return prog, false, nil
}

// classify maps an execution error onto the result failure classes.
func classify(err error) (kind, message string) {
	var abort *script.AbortError
	if errors.As(err, &abort) {
		switch abort.Kind {
		case script.AbortTimeout:
			return types.ErrKindTimeout, abort.Msg
		case script.AbortMemory:
			return types.ErrKindMemory, abort.Msg
		default:
			return types.ErrKindAborted, abort.Msg
		}
	}
	if nxmlerrors.IsCapabilityViolation(err) {
		return types.ErrKindCapability, err.Error()
	}
	if nxmlerrors.IsTimeout(err) {
		return types.ErrKindTimeout, err.Error()
	}
	if nxmlerrors.IsMemoryLimit(err) {
		return types.ErrKindMemory, err.Error()
	}
	var fault *script.FaultError
	if errors.As(err, &fault) {
		return types.ErrKindRuntime, fault.Msg
	}
	return types.ErrKindRuntime, err.Error()
}

// failure builds a failed result with an empty state diff.
func failure(kind, message string, start time.Time) *types.ExecutionResult {
	return &types.ExecutionResult{
		Success:         false,
		StateChanges:    map[string]any{},
		Error:           &types.ExecutionError{Kind: kind, Message: message},
		ExecutionTimeMS: time.Since(start).Milliseconds(),
	}
}
