package tree

import (
	"testing"
)

// TestSearchLifecycle tests the snapshot-expand-restore query lifecycle
func TestSearchLifecycle(t *testing.T) {
	s := buildStore(t)
	f := NewFilterState(s)

	// Some prior manual expansion state.
	f.SetExpanded("F1", true)

	f.SetQuery("rep")
	if f.Query() != "rep" {
		t.Errorf("expected active query, got %q", f.Query())
	}

	// All folders are expanded while the query is active.
	for _, id := range []string{"root", "F1", "F2"} {
		if !f.Expanded(id) {
			t.Errorf("expected %s expanded during search", id)
		}
	}

	// Clearing restores the captured pre-search expansion set.
	f.SetQuery("")
	if !f.Expanded("F1") {
		t.Error("expected F1 to stay expanded after restore")
	}
	if f.Expanded("F2") {
		t.Error("expected F2 collapsed after restore")
	}
	if f.Expanded("root") {
		t.Error("expected root collapsed after restore")
	}
}

// TestSearchQueryChange tests that changing a live query keeps the snapshot
func TestSearchQueryChange(t *testing.T) {
	s := buildStore(t)
	f := NewFilterState(s)

	f.SetExpanded("F1", true)
	f.SetQuery("a")
	f.SetQuery("ab")
	f.SetQuery("")

	if !f.Expanded("F1") {
		t.Error("snapshot must survive query edits")
	}
	if f.Expanded("F2") {
		t.Error("expansion from the search phase must not leak")
	}
}

// TestMatches tests case-insensitive substring matching on names
func TestMatches(t *testing.T) {
	s := buildStore(t)
	f := NewFilterState(s)

	tests := []struct {
		name  string
		query string
		id    string
		want  bool
	}{
		{"substring hit", "rep", "D2", true},
		{"case insensitive", "REP", "D2", true},
		{"name only", "F1", "F1", false},
		{"folder name", "proj", "F1", true},
		{"miss", "zzz", "D2", false},
		{"unknown id matches on placeholder name", "missing", "ghost", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f.SetQuery(tt.query)
			if got := f.Matches(tt.id); got != tt.want {
				t.Errorf("Matches(%s) with query %q = %v, want %v", tt.id, tt.query, got, tt.want)
			}
			f.SetQuery("")
		})
	}
}

// TestMatchesNoQuery tests that nothing matches without a query
func TestMatchesNoQuery(t *testing.T) {
	s := buildStore(t)
	f := NewFilterState(s)
	if f.Matches("D2") {
		t.Error("nothing may match with no active query")
	}
}

// TestToggle tests single-node expansion toggling
func TestToggle(t *testing.T) {
	s := buildStore(t)
	f := NewFilterState(s)

	f.Toggle("F1")
	if !f.Expanded("F1") {
		t.Error("expected F1 expanded after toggle")
	}
	f.Toggle("F1")
	if f.Expanded("F1") {
		t.Error("expected F1 collapsed after second toggle")
	}
}

// TestCollapseAll tests clearing the expansion set
func TestCollapseAll(t *testing.T) {
	s := buildStore(t)
	f := NewFilterState(s)

	f.ExpandAll()
	f.CollapseAll()
	for _, id := range []string{"root", "F1", "F2"} {
		if f.Expanded(id) {
			t.Errorf("expected %s collapsed", id)
		}
	}
}
