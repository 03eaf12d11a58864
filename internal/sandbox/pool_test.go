package sandbox

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	nxmlerrors "github.com/conneroisu/nxml/internal/errors"
)

func testPool(size int) *Pool {
	return NewPool(size, func() *Executor { return NewExecutor(Options{}) }, nil)
}

func TestPoolInitializesOnFirstAcquire(t *testing.T) {
	p := testPool(4)
	defer p.Shutdown()

	// No instances exist until someone asks for one.
	assert.Equal(t, Stats{}, p.Stats())

	inst, err := p.Acquire(context.Background())
	require.NoError(t, err)
	require.NotNil(t, inst)
	require.NotNil(t, inst.Executor)

	stats := p.Stats()
	assert.Equal(t, 4, stats.Size)
	assert.Equal(t, 3, stats.Available)
	assert.Equal(t, 1, stats.InUse)
	assert.Equal(t, int64(1), stats.TotalUses)

	p.Release(inst, false)
	stats = p.Stats()
	assert.Equal(t, 4, stats.Available)
	assert.Zero(t, stats.InUse)
}

func TestPoolDefaultSize(t *testing.T) {
	p := testPool(0)
	defer p.Shutdown()

	inst, err := p.Acquire(context.Background())
	require.NoError(t, err)
	p.Release(inst, false)

	assert.Equal(t, DefaultPoolSize, p.Stats().Size)
}

func TestPoolPrewarmBuildsInstances(t *testing.T) {
	p := testPool(3)
	defer p.Shutdown()

	p.Prewarm()

	stats := p.Stats()
	assert.Equal(t, 3, stats.Size)
	assert.Equal(t, 3, stats.Available)
	assert.Zero(t, stats.InUse)
}

func TestPoolPrewarmAfterShutdownIsNoop(t *testing.T) {
	p := testPool(2)
	p.Shutdown()

	p.Prewarm()
	assert.Equal(t, Stats{}, p.Stats())
}

func TestPoolTracksUsage(t *testing.T) {
	p := testPool(2)
	defer p.Shutdown()

	ctx := context.Background()
	a, err := p.Acquire(ctx)
	require.NoError(t, err)
	b, err := p.Acquire(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)

	stats := p.Stats()
	assert.Zero(t, stats.Available)
	assert.Equal(t, 2, stats.InUse)
	assert.Equal(t, int64(2), stats.TotalUses)

	p.Release(a, false)
	p.Release(b, false)

	c, err := p.Acquire(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), p.Stats().TotalUses)
	assert.Equal(t, int64(2), c.UseCount)
	p.Release(c, false)
}

func TestPoolExhaustionTimesOut(t *testing.T) {
	p := testPool(1)
	defer p.Shutdown()

	held, err := p.Acquire(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	_, err = p.Acquire(ctx)
	require.Error(t, err)
	var ne *nxmlerrors.NXMLError
	require.ErrorAs(t, err, &ne)
	assert.Equal(t, nxmlerrors.ErrCodePoolAcquire, ne.Code)
	assert.Contains(t, ne.Message, "no sandbox instance available")

	p.Release(held, false)
	again, err := p.Acquire(context.Background())
	require.NoError(t, err)
	assert.Equal(t, held.ID, again.ID)
	p.Release(again, false)
}

func TestPoolSuspectReleaseResetsExecutor(t *testing.T) {
	p := testPool(1)
	defer p.Shutdown()

	inst, err := p.Acquire(context.Background())
	require.NoError(t, err)

	handler := testHandler("return 1;")
	result := inst.Executor.Execute(context.Background(), handler, testExecCtx(handler, nil))
	require.True(t, result.Success)
	require.Equal(t, 1, inst.Executor.CachedPrograms())

	p.Release(inst, true)

	inst, err = p.Acquire(context.Background())
	require.NoError(t, err)
	assert.Zero(t, inst.Executor.CachedPrograms())
	p.Release(inst, false)
}

func TestPoolCleanReleaseKeepsPrograms(t *testing.T) {
	p := testPool(1)
	defer p.Shutdown()

	inst, err := p.Acquire(context.Background())
	require.NoError(t, err)

	handler := testHandler("return 1;")
	result := inst.Executor.Execute(context.Background(), handler, testExecCtx(handler, nil))
	require.True(t, result.Success)

	p.Release(inst, false)

	inst, err = p.Acquire(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, inst.Executor.CachedPrograms())
	p.Release(inst, false)
}

func TestPoolShutdownWakesBlockedAcquire(t *testing.T) {
	p := testPool(1)

	held, err := p.Acquire(context.Background())
	require.NoError(t, err)

	errs := make(chan error, 1)
	go func() {
		_, err := p.Acquire(context.Background())
		errs <- err
	}()

	// Let the goroutine park on the empty channel before closing it.
	time.Sleep(20 * time.Millisecond)
	p.Shutdown()

	select {
	case err := <-errs:
		var ne *nxmlerrors.NXMLError
		require.ErrorAs(t, err, &ne)
		assert.Equal(t, nxmlerrors.ErrCodePoolShutdown, ne.Code)
	case <-time.After(2 * time.Second):
		t.Fatal("blocked Acquire was not woken by Shutdown")
	}

	// Releasing a held instance into a closed pool is a no-op.
	p.Release(held, false)
	assert.Equal(t, Stats{}, p.Stats())
}

func TestPoolAcquireAfterShutdown(t *testing.T) {
	p := testPool(2)
	p.Shutdown()

	_, err := p.Acquire(context.Background())
	require.Error(t, err)
	var ne *nxmlerrors.NXMLError
	require.ErrorAs(t, err, &ne)
	assert.Equal(t, nxmlerrors.ErrCodePoolShutdown, ne.Code)
}

func TestPoolShutdownIsIdempotent(t *testing.T) {
	p := testPool(1)
	inst, err := p.Acquire(context.Background())
	require.NoError(t, err)
	p.Release(inst, false)

	p.Shutdown()
	p.Shutdown()
	assert.Equal(t, Stats{}, p.Stats())
}
