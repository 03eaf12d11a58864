package runtime

import (
	"sync"

	"github.com/conneroisu/nxml/internal/types"
)

// Metrics tracks handler execution outcomes across a Runner's lifetime.
type Metrics struct {
	mutex            sync.RWMutex
	totalExecutions  int64
	failedExecutions int64
	failuresByKind   map[string]int64
	totalTimeMS      int64
	totalHostCalls   int64
	peakMemoryBytes  int64
}

// Snapshot is a point-in-time copy of the execution counters.
type Snapshot struct {
	TotalExecutions  int64            `json:"total_executions"`
	FailedExecutions int64            `json:"failed_executions"`
	FailuresByKind   map[string]int64 `json:"failures_by_kind,omitempty"`
	TotalTimeMS      int64            `json:"total_time_ms"`
	TotalHostCalls   int64            `json:"total_host_calls"`
	PeakMemoryBytes  int64            `json:"peak_memory_bytes"`
}

// NewMetrics creates a zeroed metrics tracker.
func NewMetrics() *Metrics {
	return &Metrics{failuresByKind: make(map[string]int64)}
}

// Record folds one execution result into the counters.
func (m *Metrics) Record(result *types.ExecutionResult) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.totalExecutions++
	m.totalTimeMS += result.ExecutionTimeMS
	m.totalHostCalls += int64(result.HostCallCount)
	if result.MemoryUsedBytes > m.peakMemoryBytes {
		m.peakMemoryBytes = result.MemoryUsedBytes
	}
	if result.Error != nil {
		m.failedExecutions++
		m.failuresByKind[result.Error.Kind]++
	}
}

// GetSnapshot returns a copy of the current counters.
func (m *Metrics) GetSnapshot() Snapshot {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	snapshot := Snapshot{
		TotalExecutions:  m.totalExecutions,
		FailedExecutions: m.failedExecutions,
		TotalTimeMS:      m.totalTimeMS,
		TotalHostCalls:   m.totalHostCalls,
		PeakMemoryBytes:  m.peakMemoryBytes,
	}
	if len(m.failuresByKind) > 0 {
		snapshot.FailuresByKind = make(map[string]int64, len(m.failuresByKind))
		for kind, n := range m.failuresByKind {
			snapshot.FailuresByKind[kind] = n
		}
	}
	return snapshot
}

// SuccessRate returns the share of successful executions as a percentage.
func (m *Metrics) SuccessRate() float64 {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	if m.totalExecutions == 0 {
		return 0.0
	}
	return float64(m.totalExecutions-m.failedExecutions) / float64(m.totalExecutions) * 100.0
}

// Reset zeroes all counters.
func (m *Metrics) Reset() {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.totalExecutions = 0
	m.failedExecutions = 0
	m.failuresByKind = make(map[string]int64)
	m.totalTimeMS = 0
	m.totalHostCalls = 0
	m.peakMemoryBytes = 0
}
