package types

// ExecutionContext carries everything a sandbox needs to run one handler.
// The runtime builds one per invocation; sandboxes never share contexts.
type ExecutionContext struct {
	// PanelID identifies the owning panel
	PanelID string `json:"panel_id"`

	// WorkspaceID identifies the owning workspace
	WorkspaceID string `json:"workspace_id"`

	// HandlerName is the tool name or lifecycle event being invoked
	HandlerName string `json:"handler_name"`

	// State is a snapshot of the panel state at invocation time
	State map[string]any `json:"state"`

	// Args are the caller-supplied arguments
	Args map[string]any `json:"args"`

	// Capabilities are the tokens granted to this invocation
	Capabilities []string `json:"capabilities"`
}

// ExecutionResult is the outcome of one sandboxed handler run.
//
// When Success is false, Error is always set and StateChanges is empty;
// partial effects of a failed run are never surfaced.
type ExecutionResult struct {
	// Success reports whether the handler ran to completion
	Success bool `json:"success"`

	// ReturnValue is the handler's return value, if any
	ReturnValue any `json:"return_value,omitempty"`

	// StateChanges holds only the keys the handler mutated
	StateChanges map[string]any `json:"state_changes"`

	// Error describes the failure when Success is false
	Error *ExecutionError `json:"error,omitempty"`

	// EmittedEvents lists the events the handler emitted, in order
	EmittedEvents []EmittedEvent `json:"emitted_events,omitempty"`

	// ExecutionTimeMS is the wall-clock duration in milliseconds
	ExecutionTimeMS int64 `json:"execution_time_ms"`

	// MemoryUsedBytes is the peak tracked allocation in bytes
	MemoryUsedBytes int64 `json:"memory_used_bytes"`

	// HostCallCount is the number of host function invocations
	HostCallCount int `json:"host_call_count"`
}

// EmittedEvent is one event a handler emitted through the host boundary.
type EmittedEvent struct {
	// Event is the event type name
	Event string `json:"event"`

	// Payload is the optional event payload
	Payload any `json:"payload,omitempty"`
}

// Failure classes carried by ExecutionError.Kind.
const (
	ErrKindTimeout    = "timeout"
	ErrKindMemory     = "memory"
	ErrKindCapability = "capability"
	ErrKindRuntime    = "runtime"
	ErrKindAborted    = "aborted"
)

// ExecutionError is the serializable failure shape inside an
// ExecutionResult.
type ExecutionError struct {
	// Kind is the machine-readable failure class (timeout, memory,
	// capability, runtime, aborted)
	Kind string `json:"kind"`

	// Message is the human-readable description
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *ExecutionError) Error() string {
	return e.Kind + ": " + e.Message
}
