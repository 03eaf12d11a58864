package runtime

import (
	"context"
	"fmt"
	"sync"

	nxmlerrors "github.com/conneroisu/nxml/internal/errors"
)

// ScopeRegistry tracks in-flight executions by scope so a whole panel or
// workspace can be torn down at once. Every tracked task owns a cancel
// function; cancellation is cooperative and the registry waits for tasks to
// acknowledge before it considers a scope cleared.
type ScopeRegistry struct {
	mutex  sync.Mutex
	scopes map[string]map[uint64]*scopedTask
	nextID uint64
}

type scopedTask struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// NewScopeRegistry creates an empty scope registry.
func NewScopeRegistry() *ScopeRegistry {
	return &ScopeRegistry{scopes: make(map[string]map[uint64]*scopedTask)}
}

// Track registers an in-flight execution under scope. The returned release
// function must be called exactly once when the execution finishes, however
// it finishes.
func (s *ScopeRegistry) Track(scope string, cancel context.CancelFunc) (release func()) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.nextID++
	id := s.nextID
	task := &scopedTask{cancel: cancel, done: make(chan struct{})}

	tasks, ok := s.scopes[scope]
	if !ok {
		tasks = make(map[uint64]*scopedTask)
		s.scopes[scope] = tasks
	}
	tasks[id] = task

	var once sync.Once
	return func() {
		once.Do(func() {
			close(task.done)
			s.mutex.Lock()
			defer s.mutex.Unlock()
			delete(s.scopes[scope], id)
			if len(s.scopes[scope]) == 0 {
				delete(s.scopes, scope)
			}
		})
	}
}

// Active returns the number of executions currently tracked under scope.
func (s *ScopeRegistry) Active(scope string) int {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return len(s.scopes[scope])
}

// CancelScope cancels every execution tracked under scope and waits for each
// to finish. It returns the number of executions cancelled. When ctx ends
// before all tasks acknowledge, the remaining count is reported in the
// error; unfinished tasks stay tracked until their release runs.
func (s *ScopeRegistry) CancelScope(ctx context.Context, scope string) (int, error) {
	s.mutex.Lock()
	tasks := make([]*scopedTask, 0, len(s.scopes[scope]))
	for _, task := range s.scopes[scope] {
		tasks = append(tasks, task)
	}
	s.mutex.Unlock()

	for _, task := range tasks {
		task.cancel()
	}

	remaining := len(tasks)
	for _, task := range tasks {
		select {
		case <-task.done:
			remaining--
		case <-ctx.Done():
			return len(tasks), nxmlerrors.NewRuntimeError(nxmlerrors.ErrCodeScopeCancel,
				fmt.Sprintf("scope %q: %d of %d executions did not stop in time", scope, remaining, len(tasks)),
				ctx.Err())
		}
	}
	return len(tasks), nil
}
