package sandbox

import (
	"context"
	"sync"
	"time"

	nxmlerrors "github.com/conneroisu/nxml/internal/errors"
	"github.com/conneroisu/nxml/internal/logging"
)

// DefaultPoolSize is the number of sandbox instances kept ready.
const DefaultPoolSize = 10

// PooledInstance pairs an executor with its usage bookkeeping.
type PooledInstance struct {
	// ID identifies the instance within its pool.
	ID int

	// Executor runs handlers for whoever holds the instance.
	Executor *Executor

	// CreatedAt is when the instance was built.
	CreatedAt time.Time

	// LastUsed is when the instance was last acquired.
	LastUsed time.Time

	// UseCount is the number of acquisitions.
	UseCount int64
}

// Stats is a point-in-time snapshot of pool usage.
type Stats struct {
	Size      int   `json:"size"`
	Available int   `json:"available"`
	InUse     int   `json:"in_use"`
	TotalUses int64 `json:"total_uses"`
}

// Pool hands out sandbox executors. Instances are built lazily on the
// first acquire; callers block until an instance frees up or their
// context ends, so a busy pool degrades to queueing rather than
// unbounded instance growth.
type Pool struct {
	size    int
	factory func() *Executor
	logger  logging.Logger

	mu          sync.Mutex
	initialized bool
	shutdown    bool
	available   chan *PooledInstance
	totalUses   int64
}

// NewPool returns a pool of the given size. A non-positive size selects
// DefaultPoolSize. The factory builds one executor per instance.
func NewPool(size int, factory func() *Executor, logger logging.Logger) *Pool {
	if size <= 0 {
		size = DefaultPoolSize
	}
	if logger == nil {
		logger = logging.NewDiscardLogger()
	}
	return &Pool{
		size:    size,
		factory: factory,
		logger:  logger.WithComponent("sandbox-pool"),
	}
}

func (p *Pool) ensureInitLocked() {
	if p.initialized {
		return
	}
	p.available = make(chan *PooledInstance, p.size)
	for i := 1; i <= p.size; i++ {
		p.available <- &PooledInstance{
			ID:        i,
			Executor:  p.factory(),
			CreatedAt: time.Now(),
		}
	}
	p.initialized = true
	p.logger.Debug(context.Background(), "sandbox pool initialized", "size", p.size)
}

// Prewarm builds every instance up front instead of on the first
// acquire. A shut-down pool ignores the call.
func (p *Pool) Prewarm() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.shutdown {
		return
	}
	p.ensureInitLocked()
}

// Acquire blocks until an instance is free or ctx ends.
func (p *Pool) Acquire(ctx context.Context) (*PooledInstance, error) {
	p.mu.Lock()
	if p.shutdown {
		p.mu.Unlock()
		return nil, errPoolShutdown()
	}
	p.ensureInitLocked()
	available := p.available
	p.mu.Unlock()

	select {
	case inst, ok := <-available:
		if !ok {
			return nil, errPoolShutdown()
		}
		p.mu.Lock()
		if p.shutdown {
			p.mu.Unlock()
			return nil, errPoolShutdown()
		}
		inst.LastUsed = time.Now()
		inst.UseCount++
		p.totalUses++
		p.mu.Unlock()
		return inst, nil
	case <-ctx.Done():
		return nil, nxmlerrors.NewPoolError(nxmlerrors.ErrCodePoolAcquire,
			"no sandbox instance available: "+ctx.Err().Error())
	}
}

// Release returns an instance to the pool. Suspect instances (a
// timed-out or aborted run) are reset first so the next holder starts
// from a clean program cache.
func (p *Pool) Release(inst *PooledInstance, suspect bool) {
	if inst == nil {
		return
	}
	if suspect {
		inst.Executor.Reset()
		p.logger.Debug(context.Background(), "sandbox instance reset", "instance_id", inst.ID)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.shutdown || !p.initialized {
		return
	}
	select {
	case p.available <- inst:
	default:
		// Double release; the instance is already queued.
	}
}

// Stats reports current pool usage. An uninitialized or shut-down pool
// reports zeros.
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.initialized || p.shutdown {
		return Stats{}
	}
	available := len(p.available)
	return Stats{
		Size:      p.size,
		Available: available,
		InUse:     p.size - available,
		TotalUses: p.totalUses,
	}
}

// Shutdown marks the pool closed and wakes blocked acquirers. Instances
// still held by callers are dropped on release. Shutdown is idempotent.
func (p *Pool) Shutdown() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.shutdown {
		return
	}
	p.shutdown = true
	if !p.initialized {
		return
	}
	close(p.available)
	for range p.available {
	}
	p.logger.Debug(context.Background(), "sandbox pool shut down")
}

func errPoolShutdown() error {
	return nxmlerrors.NewPoolError(nxmlerrors.ErrCodePoolShutdown, "instance pool is shut down")
}
