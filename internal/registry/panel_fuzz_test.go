package registry

import (
	"strings"
	"testing"

	"github.com/conneroisu/nxml/internal/types"
)

// FuzzPanelLifecycle drives activate, merge and deactivate with arbitrary
// ids and state keys. The registry must never panic and must stay
// consistent: activated panels are findable, merges are visible, counts
// balance.
func FuzzPanelLifecycle(f *testing.F) {
	f.Add("counter\x00count\x00guest")
	f.Add("\x00\x00")
	f.Add("p\x00\x00value")
	f.Add("Unicode🎯\x00state💻\x00v")
	f.Add("dotted.id\x00key.with.dots\x00x")
	f.Add("long" + strings.Repeat("A", 500) + "\x00k\x00v")

	f.Fuzz(func(t *testing.T, data string) {
		if len(data) > 10000 {
			t.Skip("input too large")
		}
		parts := strings.Split(data, "\x00")
		if len(parts) != 3 {
			t.Skip("need id, key, value")
		}
		id, key, value := parts[0], parts[1], parts[2]

		r := NewPanelRegistry()
		panel := &types.Panel{
			Meta:  types.PanelMeta{ID: id},
			Data:  &types.DataSection{States: []types.StateDecl{{Name: key, Default: "seed"}}},
			Logic: &types.LogicSection{},
			View:  &types.ViewNode{Type: "Layout"},
		}

		record := r.Activate(panel, "hash")
		if record == nil {
			t.Fatal("Activate returned nil record")
		}
		if r.Count() != 1 {
			t.Fatalf("Count = %d after activate, want 1", r.Count())
		}

		got, ok := r.Get(id)
		if !ok {
			t.Fatalf("Get(%q) missed right after activate", id)
		}
		if got.Panel.Meta.ID != id {
			t.Fatalf("Get returned panel %q, want %q", got.Panel.Meta.ID, id)
		}

		if err := r.ApplyChanges(id, map[string]any{key: value}); err != nil {
			t.Fatalf("ApplyChanges failed: %v", err)
		}
		state, ok := r.State(id)
		if !ok {
			t.Fatalf("State(%q) missed after merge", id)
		}
		if state[key] != value {
			t.Fatalf("state[%q] = %v, want %q", key, state[key], value)
		}

		if !r.Deactivate(id) {
			t.Fatal("Deactivate reported the panel missing")
		}
		if r.Count() != 0 {
			t.Fatalf("Count = %d after deactivate, want 0", r.Count())
		}
	})
}
