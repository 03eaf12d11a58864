// Package sandbox executes handler code under capability, time and
// memory limits.
//
// The static capability check in the compiler is advisory; the boundary
// in this package is the normative gate. Every host function a handler
// can reach re-checks the invocation's grants, so code that slipped
// past the patterns still cannot touch state, events or extensions it
// was not granted.
package sandbox

import (
	"context"
	"errors"
	"fmt"

	"github.com/conneroisu/nxml/internal/capability"
	nxmlerrors "github.com/conneroisu/nxml/internal/errors"
	"github.com/conneroisu/nxml/internal/logging"
	"github.com/conneroisu/nxml/internal/script"
	"github.com/conneroisu/nxml/internal/types"
)

// ExtensionHost resolves the $ext calls handlers make. Implementations
// own extension registration; the sandbox only gates and forwards.
type ExtensionHost interface {
	// Has reports whether the named extension is registered.
	Has(name string) bool

	// Call invokes method on the named extension. The context carries
	// the execution deadline.
	Call(ctx context.Context, name, method string, args []any) (any, error)
}

// logEntry is one handler log line captured at the boundary.
type logEntry struct {
	level   string
	message string
}

// boundary implements script.Host for one execution. It gates every
// call on the invocation's grants, counts host calls against the
// budget, and accumulates the state diff and emitted events.
type boundary struct {
	ctx        context.Context
	grants     *capability.Grants
	state      map[string]any
	args       map[string]any
	extensions ExtensionHost
	logger     logging.Logger

	changes map[string]any
	events  []types.EmittedEvent
	logs    []logEntry

	hostCalls    int
	maxHostCalls int
}

func newBoundary(ctx context.Context, execCtx *types.ExecutionContext, extensions ExtensionHost, logger logging.Logger, maxHostCalls int) *boundary {
	return &boundary{
		ctx:          ctx,
		grants:       capability.NewGrants(execCtx.Capabilities),
		state:        execCtx.State,
		args:         execCtx.Args,
		extensions:   extensions,
		logger:       logger.With("panel_id", execCtx.PanelID, "handler", execCtx.HandlerName),
		changes:      make(map[string]any),
		maxHostCalls: maxHostCalls,
	}
}

// count charges one host call against the budget.
func (b *boundary) count() error {
	b.hostCalls++
	if b.maxHostCalls > 0 && b.hostCalls > b.maxHostCalls {
		return nxmlerrors.NewRuntimeError(nxmlerrors.ErrCodeExecHostCallLimit,
			fmt.Sprintf("host call budget exhausted (%d calls)", b.maxHostCalls), nil)
	}
	return nil
}

func (b *boundary) deny(required string) error {
	logging.LogSecurityEvent(b.logger, b.ctx, "capability_denied", map[string]any{
		"required": required,
	})
	return nxmlerrors.NewCapabilityError(nxmlerrors.ErrCodeCapabilityDenied,
		fmt.Sprintf("handler lacks capability %q", required))
}

// GetState reads one key, preferring writes already made in this run so
// handlers observe their own mutations.
func (b *boundary) GetState(key string) (script.Value, error) {
	if err := b.count(); err != nil {
		return script.Null, err
	}
	if !b.grants.Allows(capability.KindStateRead, key) {
		return script.Null, b.deny(capability.KindStateRead + ":" + key)
	}
	if v, ok := b.changes[key]; ok {
		return script.FromGo(v), nil
	}
	return script.FromGo(b.state[key]), nil
}

// SetState records a mutation in the diff. The snapshot itself is never
// touched; the runtime applies the diff after a successful run.
func (b *boundary) SetState(key string, value script.Value) error {
	if err := b.count(); err != nil {
		return err
	}
	if !b.grants.Allows(capability.KindStateWrite, key) {
		return b.deny(capability.KindStateWrite + ":" + key)
	}
	b.changes[key] = value.Interface()
	return nil
}

// GetArg reads a caller argument. Arguments were vetted by the runtime,
// so reads are neither gated nor counted.
func (b *boundary) GetArg(key string) (script.Value, bool) {
	v, ok := b.args[key]
	if !ok {
		return script.Null, false
	}
	return script.FromGo(v), true
}

func (b *boundary) Emit(event string, payload script.Value) error {
	if err := b.count(); err != nil {
		return err
	}
	if !b.grants.Allows(capability.KindEventsEmit, event) {
		return b.deny(capability.KindEventsEmit + ":" + event)
	}
	b.events = append(b.events, types.EmittedEvent{Event: event, Payload: payload.Interface()})
	return nil
}

// Log forwards a handler log line. Logging needs no capability; it
// counts toward the host call total but can never fail the run.
func (b *boundary) Log(level, message string) {
	b.hostCalls++
	b.logs = append(b.logs, logEntry{level: level, message: message})
	switch level {
	case "debug":
		b.logger.Debug(b.ctx, message, "source", "handler")
	case "warn":
		b.logger.Warn(b.ctx, nil, message, "source", "handler")
	case "error":
		b.logger.Error(b.ctx, nil, message, "source", "handler")
	default:
		b.logger.Info(b.ctx, message, "source", "handler")
	}
}

// CallExtension gates and forwards an extension call. Registration is
// checked before the capability so a missing extension reports as
// missing even to fully granted handlers.
func (b *boundary) CallExtension(name, method string, args []script.Value) (script.Value, error) {
	if err := b.count(); err != nil {
		return script.Null, err
	}
	if b.extensions == nil || !b.extensions.Has(name) {
		return script.Null, nxmlerrors.NewRuntimeError(nxmlerrors.ErrCodeExtensionMissing,
			fmt.Sprintf("extension %q is not registered", name), nil)
	}
	if !b.grants.Allows(capability.KindExtension, name) {
		return script.Null, b.deny(capability.KindExtension + ":" + name)
	}

	goArgs := make([]any, len(args))
	for i, a := range args {
		goArgs[i] = a.Interface()
	}
	out, err := b.extensions.Call(b.ctx, name, method, goArgs)
	if err != nil {
		var ne *nxmlerrors.NXMLError
		if errors.As(err, &ne) {
			return script.Null, err
		}
		return script.Null, nxmlerrors.NewRuntimeError(nxmlerrors.ErrCodeExecRuntime,
			fmt.Sprintf("extension %s.%s failed", name, method), err)
	}
	return script.FromGo(out), nil
}
