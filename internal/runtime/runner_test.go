package runtime

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	nxmlerrors "github.com/conneroisu/nxml/internal/errors"
	"github.com/conneroisu/nxml/internal/parser"
	"github.com/conneroisu/nxml/internal/registry"
	"github.com/conneroisu/nxml/internal/sandbox"
	"github.com/conneroisu/nxml/internal/types"
)

const counterSource = `<NexusPanel id="counter" title="Counter">
    <Data>
        <State name="count" type="number" default="0"/>
        <State name="label" type="string" default="ready"/>
    </Data>
    <Logic>
        <Tool name="increment">
            <Arg name="amount" type="number"/>
            <Handler capabilities="state:read:count,state:write:count">
                let next = $state.count + $args.amount;
                $state.count = next;
                return next;
            </Handler>
        </Tool>
        <Tool name="spin">
            <Handler>while (true) {}</Handler>
        </Tool>
        <Tool name="stall">
            <Handler timeout_ms="50">while (true) {}</Handler>
        </Tool>
        <Lifecycle event="mount">
            <Handler capabilities="state:write:label">$state.label = "mounted";</Handler>
        </Lifecycle>
    </Logic>
    <View>
        <Text content="{$state.count}"/>
    </View>
</NexusPanel>`

func counterPanel(t *testing.T) *types.Panel {
	t.Helper()
	panel, err := parser.Parse(counterSource)
	require.NoError(t, err)
	return panel
}

func newTestPool() *sandbox.Pool {
	return sandbox.NewPool(1, func() *sandbox.Executor {
		return sandbox.NewExecutor(sandbox.Options{})
	}, nil)
}

func testRunner(t *testing.T, reg *registry.PanelRegistry) *Runner {
	t.Helper()
	r := NewRunner(Options{Pool: newTestPool(), Registry: reg})
	t.Cleanup(r.Shutdown)
	return r
}

func TestRunnerExecutesTool(t *testing.T) {
	panel := counterPanel(t)
	reg := registry.NewPanelRegistry()
	reg.Activate(panel, "hash")
	r := testRunner(t, reg)

	result, err := r.Execute(context.Background(), &Request{
		Panel: panel,
		Tool:  "increment",
		Args:  map[string]any{"amount": int64(5)},
	})
	require.NoError(t, err)
	require.Nil(t, result.Error)
	assert.True(t, result.Success)
	assert.Equal(t, int64(5), result.ReturnValue)

	// The diff lands in the registry.
	state, ok := reg.State("counter")
	require.True(t, ok)
	assert.Equal(t, int64(5), state["count"])
}

func TestRunnerCoercesStringArgs(t *testing.T) {
	// CLI callers supply --arg amount=5; the declared number type shapes it.
	panel := counterPanel(t)
	r := testRunner(t, nil)

	result, err := r.Execute(context.Background(), &Request{
		Panel: panel,
		Tool:  "increment",
		Args:  map[string]any{"amount": "5"},
	})
	require.NoError(t, err)
	require.Nil(t, result.Error)
	assert.Equal(t, int64(5), result.ReturnValue)
}

func TestRunnerMissingRequiredArg(t *testing.T) {
	panel := counterPanel(t)
	r := testRunner(t, nil)

	_, err := r.Execute(context.Background(), &Request{Panel: panel, Tool: "increment"})
	require.Error(t, err)

	var ne *nxmlerrors.NXMLError
	require.ErrorAs(t, err, &ne)
	assert.Equal(t, nxmlerrors.ErrCodeMissingArgument, ne.Code)
}

func TestRunnerUnknownTool(t *testing.T) {
	panel := counterPanel(t)
	r := testRunner(t, nil)

	_, err := r.Execute(context.Background(), &Request{Panel: panel, Tool: "decrement"})
	require.Error(t, err)

	var ne *nxmlerrors.NXMLError
	require.ErrorAs(t, err, &ne)
	assert.Equal(t, nxmlerrors.ErrCodeUnknownTool, ne.Code)
	assert.Contains(t, ne.Message, `no tool "decrement"`)
}

func TestRunnerUnknownLifecycle(t *testing.T) {
	panel := counterPanel(t)
	r := testRunner(t, nil)

	_, err := r.Execute(context.Background(), &Request{Panel: panel, Lifecycle: "unmount"})
	require.Error(t, err)

	var ne *nxmlerrors.NXMLError
	require.ErrorAs(t, err, &ne)
	assert.Equal(t, nxmlerrors.ErrCodeUnknownLifecycle, ne.Code)
}

func TestRunnerToolAndLifecycleAreExclusive(t *testing.T) {
	panel := counterPanel(t)
	r := testRunner(t, nil)

	_, err := r.Execute(context.Background(), &Request{
		Panel:     panel,
		Tool:      "increment",
		Lifecycle: "mount",
	})
	require.Error(t, err)

	var ne *nxmlerrors.NXMLError
	require.ErrorAs(t, err, &ne)
	assert.Equal(t, nxmlerrors.ErrCodeBadArgument, ne.Code)
	assert.Contains(t, ne.Message, "not both")
}

func TestRunnerRequiresToolOrLifecycle(t *testing.T) {
	panel := counterPanel(t)
	r := testRunner(t, nil)

	_, err := r.Execute(context.Background(), &Request{Panel: panel})
	require.Error(t, err)

	var ne *nxmlerrors.NXMLError
	require.ErrorAs(t, err, &ne)
	assert.Equal(t, nxmlerrors.ErrCodeBadArgument, ne.Code)
}

func TestRunnerRunsLifecycleHandler(t *testing.T) {
	panel := counterPanel(t)
	reg := registry.NewPanelRegistry()
	reg.Activate(panel, "hash")
	r := testRunner(t, reg)

	result, err := r.Execute(context.Background(), &Request{Panel: panel, Lifecycle: "mount"})
	require.NoError(t, err)
	require.Nil(t, result.Error)
	assert.Equal(t, map[string]any{"label": "mounted"}, result.StateChanges)

	state, ok := reg.State("counter")
	require.True(t, ok)
	assert.Equal(t, "mounted", state["label"])
}

func TestRunnerStatePrecedence(t *testing.T) {
	// Declared defaults sit under the registry's live state, which sits
	// under the request's explicit entries.
	panel := counterPanel(t)
	reg := registry.NewPanelRegistry()
	reg.Activate(panel, "hash")
	require.NoError(t, reg.ApplyChanges("counter", map[string]any{"count": int64(10)}))
	r := testRunner(t, reg)

	fromRegistry, err := r.Execute(context.Background(), &Request{
		Panel: panel,
		Tool:  "increment",
		Args:  map[string]any{"amount": int64(1)},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(11), fromRegistry.ReturnValue)

	fromRequest, err := r.Execute(context.Background(), &Request{
		Panel: panel,
		Tool:  "increment",
		Args:  map[string]any{"amount": int64(1)},
		State: map[string]any{"count": int64(100)},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(101), fromRequest.ReturnValue)
}

func TestRunnerWithoutRegistryUsesDefaults(t *testing.T) {
	panel := counterPanel(t)
	r := testRunner(t, nil)

	result, err := r.Execute(context.Background(), &Request{
		Panel: panel,
		Tool:  "increment",
		Args:  map[string]any{"amount": int64(5)},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(5), result.ReturnValue)
}

func TestRunnerInactivePanelStillRuns(t *testing.T) {
	// A panel that is not activated in the registry executes fine; the
	// diff just has nowhere to land.
	panel := counterPanel(t)
	reg := registry.NewPanelRegistry()
	r := testRunner(t, reg)

	result, err := r.Execute(context.Background(), &Request{
		Panel: panel,
		Tool:  "increment",
		Args:  map[string]any{"amount": int64(2)},
	})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Zero(t, reg.Count())
}

func TestRunnerRecordsMetrics(t *testing.T) {
	panel := counterPanel(t)
	r := testRunner(t, nil)
	ctx := context.Background()

	_, err := r.Execute(ctx, &Request{Panel: panel, Tool: "increment", Args: map[string]any{"amount": int64(1)}})
	require.NoError(t, err)

	result, err := r.Execute(ctx, &Request{Panel: panel, Tool: "stall"})
	require.NoError(t, err)
	require.NotNil(t, result.Error)
	assert.Equal(t, types.ErrKindTimeout, result.Error.Kind)

	snap := r.Metrics().GetSnapshot()
	assert.Equal(t, int64(2), snap.TotalExecutions)
	assert.Equal(t, int64(1), snap.FailedExecutions)
	assert.Equal(t, int64(1), snap.FailuresByKind[types.ErrKindTimeout])
	assert.InDelta(t, 50.0, r.Metrics().SuccessRate(), 0.001)
}

func TestRunnerResetsInstanceAfterTimeout(t *testing.T) {
	panel := counterPanel(t)
	pool := newTestPool()
	r := NewRunner(Options{Pool: pool})
	t.Cleanup(r.Shutdown)
	ctx := context.Background()

	_, err := r.Execute(ctx, &Request{Panel: panel, Tool: "increment", Args: map[string]any{"amount": int64(1)}})
	require.NoError(t, err)

	inst, err := pool.Acquire(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, inst.Executor.CachedPrograms())
	pool.Release(inst, false)

	result, err := r.Execute(ctx, &Request{Panel: panel, Tool: "stall"})
	require.NoError(t, err)
	require.NotNil(t, result.Error)

	// The timed-out instance came back suspect and was reset.
	inst, err = pool.Acquire(ctx)
	require.NoError(t, err)
	assert.Zero(t, inst.Executor.CachedPrograms())
	pool.Release(inst, false)
}

func TestRunnerCancelScopeAbortsRun(t *testing.T) {
	panel := counterPanel(t)
	pool := newTestPool()
	r := NewRunner(Options{Pool: pool})
	t.Cleanup(r.Shutdown)

	type outcome struct {
		result *types.ExecutionResult
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		result, err := r.Execute(context.Background(), &Request{
			Panel:       panel,
			WorkspaceID: "ws-1",
			Tool:        "spin",
		})
		done <- outcome{result, err}
	}()

	// Wait until the run holds an instance, so the cancel lands on a
	// handler that is actually executing.
	require.Eventually(t, func() bool {
		return r.Scopes().Active("ws-1") == 1 && pool.Stats().InUse == 1
	}, 2*time.Second, 5*time.Millisecond)

	stopped, err := r.Scopes().CancelScope(context.Background(), "ws-1")
	require.NoError(t, err)
	assert.Equal(t, 1, stopped)

	select {
	case out := <-done:
		require.NoError(t, out.err)
		require.NotNil(t, out.result.Error)
		assert.Equal(t, types.ErrKindAborted, out.result.Error.Kind)
	case <-time.After(2 * time.Second):
		t.Fatal("execution never returned after the scope was cancelled")
	}

	// Both scope registrations drained.
	assert.Zero(t, r.Scopes().Active("ws-1"))
	assert.Zero(t, r.Scopes().Active("counter"))
}

func TestRunnerShutdownStopsExecutions(t *testing.T) {
	panel := counterPanel(t)
	r := NewRunner(Options{Pool: newTestPool()})
	r.Shutdown()

	_, err := r.Execute(context.Background(), &Request{
		Panel: panel,
		Tool:  "increment",
		Args:  map[string]any{"amount": int64(1)},
	})
	require.Error(t, err)

	var ne *nxmlerrors.NXMLError
	require.ErrorAs(t, err, &ne)
	assert.Equal(t, nxmlerrors.ErrCodePoolShutdown, ne.Code)
}
