// Package registry holds the panels activated in this process and
// broadcasts change events to watchers.
//
// Readers get snapshot copies of records so nobody can race a state merge.
// Watcher channels receive events with a non-blocking send: a slow consumer
// drops events rather than stalling an activation.
package registry

import (
	"fmt"
	"sort"
	"sync"
	"time"

	nxmlerrors "github.com/conneroisu/nxml/internal/errors"
	"github.com/conneroisu/nxml/internal/types"
)

// PanelRegistry tracks activated panels keyed by panel id.
type PanelRegistry struct {
	panels   map[string]*PanelRecord
	mutex    sync.RWMutex
	watchers []chan PanelEvent
}

// PanelRecord is one activated panel with its live state.
type PanelRecord struct {
	Panel       *types.Panel   `json:"panel"`
	SourceHash  string         `json:"source_hash"`
	State       map[string]any `json:"state"`
	ActivatedAt time.Time      `json:"activated_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// PanelEvent represents a change in the panel registry.
type PanelEvent struct {
	Type      EventType `json:"type"`
	PanelID   string    `json:"panel_id"`
	Timestamp time.Time `json:"timestamp"`
}

// EventType represents the type of panel event.
type EventType int

const (
	EventActivated EventType = iota
	EventUpdated
	EventDeactivated
)

func (t EventType) String() string {
	switch t {
	case EventActivated:
		return "activated"
	case EventUpdated:
		return "updated"
	case EventDeactivated:
		return "deactivated"
	default:
		return fmt.Sprintf("EventType(%d)", int(t))
	}
}

// NewPanelRegistry creates an empty panel registry.
func NewPanelRegistry() *PanelRegistry {
	return &PanelRegistry{
		panels:   make(map[string]*PanelRecord),
		watchers: make([]chan PanelEvent, 0),
	}
}

// Activate registers panel or, if its id is already active, swaps in the new
// definition. On an update, state values survive for declarations that still
// exist; new declarations get their default and values for removed
// declarations are dropped. The returned record is a snapshot.
func (r *PanelRegistry) Activate(panel *types.Panel, sourceHash string) *PanelRecord {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	now := time.Now()
	record, exists := r.panels[panel.Meta.ID]
	if exists {
		record.State = migrateState(record.State, panel)
		record.Panel = panel
		record.SourceHash = sourceHash
		record.UpdatedAt = now
		r.notify(EventUpdated, panel.Meta.ID, now)
	} else {
		record = &PanelRecord{
			Panel:       panel,
			SourceHash:  sourceHash,
			State:       seedState(panel),
			ActivatedAt: now,
			UpdatedAt:   now,
		}
		r.panels[panel.Meta.ID] = record
		r.notify(EventActivated, panel.Meta.ID, now)
	}
	return record.snapshot()
}

// Get retrieves a snapshot of the record for id.
func (r *PanelRegistry) Get(id string) (*PanelRecord, bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	record, exists := r.panels[id]
	if !exists {
		return nil, false
	}
	return record.snapshot(), true
}

// State returns a copy of the current state for id.
func (r *PanelRegistry) State(id string) (map[string]any, bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	record, exists := r.panels[id]
	if !exists {
		return nil, false
	}
	return copyState(record.State), true
}

// List returns snapshots of all active panels, ordered by panel id.
func (r *PanelRegistry) List() []*PanelRecord {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	records := make([]*PanelRecord, 0, len(r.panels))
	for _, record := range r.panels {
		records = append(records, record.snapshot())
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].Panel.Meta.ID < records[j].Panel.Meta.ID
	})
	return records
}

// ApplyChanges merges a handler's state diff into the panel's live state.
// Merges are serialized by the registry lock. Applying an empty diff is a
// no-op and broadcasts nothing.
func (r *PanelRegistry) ApplyChanges(id string, changes map[string]any) error {
	if len(changes) == 0 {
		return nil
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()

	record, exists := r.panels[id]
	if !exists {
		return nxmlerrors.NewRuntimeError(nxmlerrors.ErrCodePanelNotFound,
			fmt.Sprintf("panel %q is not active", id), nil)
	}
	for key, value := range changes {
		record.State[key] = value
	}
	record.UpdatedAt = time.Now()
	r.notify(EventUpdated, id, record.UpdatedAt)
	return nil
}

// Deactivate removes the panel from the registry. It reports whether the
// panel was active.
func (r *PanelRegistry) Deactivate(id string) bool {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if _, exists := r.panels[id]; !exists {
		return false
	}
	delete(r.panels, id)
	r.notify(EventDeactivated, id, time.Now())
	return true
}

// Watch returns a channel that receives panel events.
func (r *PanelRegistry) Watch() <-chan PanelEvent {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	ch := make(chan PanelEvent, 100)
	r.watchers = append(r.watchers, ch)
	return ch
}

// Unwatch removes a watcher channel and closes it.
func (r *PanelRegistry) Unwatch(ch <-chan PanelEvent) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	for i, watcher := range r.watchers {
		if watcher == ch {
			close(watcher)
			r.watchers = append(r.watchers[:i], r.watchers[i+1:]...)
			break
		}
	}
}

// Count returns the number of active panels.
func (r *PanelRegistry) Count() int {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	return len(r.panels)
}

// notify broadcasts an event to all watchers. Callers hold the write lock.
func (r *PanelRegistry) notify(eventType EventType, panelID string, at time.Time) {
	event := PanelEvent{Type: eventType, PanelID: panelID, Timestamp: at}
	for _, watcher := range r.watchers {
		select {
		case watcher <- event:
		default:
			// Skip if channel is full
		}
	}
}

// snapshot copies the record. The panel pointer is shared; parsed panels
// are immutable by contract.
func (record *PanelRecord) snapshot() *PanelRecord {
	out := *record
	out.State = copyState(record.State)
	return &out
}

func copyState(state map[string]any) map[string]any {
	out := make(map[string]any, len(state))
	for key, value := range state {
		out[key] = value
	}
	return out
}

// seedState builds the initial state map from the panel's declarations.
func seedState(panel *types.Panel) map[string]any {
	state := make(map[string]any, len(panel.Data.States))
	for _, decl := range panel.Data.States {
		state[decl.Name] = decl.Default
	}
	return state
}

// migrateState carries values across a panel update, keyed by the new
// declaration list.
func migrateState(old map[string]any, panel *types.Panel) map[string]any {
	next := make(map[string]any, len(panel.Data.States))
	for _, decl := range panel.Data.States {
		if value, ok := old[decl.Name]; ok {
			next[decl.Name] = value
		} else {
			next[decl.Name] = decl.Default
		}
	}
	return next
}
