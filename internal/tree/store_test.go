package tree

import (
	"strings"
	"testing"

	"github.com/arborview/arbor/internal/types"
)

// buildStore creates a store with root R containing folder F1 and file D1,
// F1 containing file D2. Ids are fixed so tests can reference them.
func buildStore(t *testing.T) *Store {
	t.Helper()
	s := NewStore("root")
	changed := s.Rebuild(types.Snapshot{
		RootID: "root",
		Folders: []types.Record{
			{ID: "root", ParentID: "", Name: "root"},
			{ID: "F1", ParentID: "root", Name: "Projects", SortOrder: 0},
			{ID: "F2", ParentID: "F1", Name: "Old", SortOrder: 0},
		},
		Files: []types.Record{
			{ID: "D1", ParentID: "root", Name: "notes.txt", SortOrder: 1},
			{ID: "D2", ParentID: "F1", Name: "report.md", SortOrder: 1},
		},
	})
	if !changed {
		t.Fatal("expected initial rebuild to report a structure change")
	}
	return s
}

// TestGetItemPlaceholder tests that unknown ids yield a placeholder node
func TestGetItemPlaceholder(t *testing.T) {
	s := buildStore(t)

	n := s.GetItem("ghost")
	if n.ID != "ghost" {
		t.Errorf("expected placeholder id ghost, got %s", n.ID)
	}
	if !strings.HasPrefix(n.Name, "Missing: ") {
		t.Errorf("expected placeholder name, got %q", n.Name)
	}
	if len(n.Children) != 0 {
		t.Errorf("expected placeholder to have no children, got %v", n.Children)
	}
	if s.Has("ghost") {
		t.Error("placeholder must not be inserted into the store")
	}
}

// TestGetItemCopies tests that returned nodes do not alias store internals
func TestGetItemCopies(t *testing.T) {
	s := buildStore(t)

	n := s.GetItem("root")
	if len(n.Children) == 0 {
		t.Fatal("expected root children")
	}
	n.Children[0] = "tampered"
	if s.Children("root")[0] == "tampered" {
		t.Error("mutating a returned node must not affect the store")
	}
}

// TestReparent tests the reparent operation across its guard conditions
func TestReparent(t *testing.T) {
	tests := []struct {
		name      string
		id        string
		newParent string
		expectErr error
	}{
		{
			name:      "simple move",
			id:        "D1",
			newParent: "F1",
		},
		{
			name:      "move to nested folder",
			id:        "D1",
			newParent: "F2",
		},
		{
			name:      "move into itself",
			id:        "F1",
			newParent: "F1",
			expectErr: ErrCycle,
		},
		{
			name:      "move under own descendant",
			id:        "F1",
			newParent: "F2",
			expectErr: ErrCycle,
		},
		{
			name:      "move the root",
			id:        "root",
			newParent: "F1",
			expectErr: ErrRootImmutable,
		},
		{
			name:      "move into a file",
			id:        "F2",
			newParent: "D1",
			expectErr: ErrNotFolder,
		},
		{
			name:      "move unknown node",
			id:        "ghost",
			newParent: "F1",
			expectErr: ErrNotFound,
		},
		{
			name:      "move into unknown parent",
			id:        "D1",
			newParent: "ghost",
			expectErr: ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := buildStore(t)
			before := s.Children("root")

			err := s.Reparent(tt.id, tt.newParent, -1)
			if tt.expectErr != nil {
				if err == nil {
					t.Fatalf("expected error %v, got nil", tt.expectErr)
				}
				if err != tt.expectErr {
					t.Fatalf("expected %v, got %v", tt.expectErr, err)
				}
				// Guard failures must not mutate anything.
				after := s.Children("root")
				if len(after) != len(before) {
					t.Errorf("children changed on rejected move: %v -> %v", before, after)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			p, ok := s.ParentOf(tt.id)
			if !ok || p != tt.newParent {
				t.Errorf("expected parent %s, got %s", tt.newParent, p)
			}
			kids := s.Children(tt.newParent)
			if kids[len(kids)-1] != tt.id {
				t.Errorf("expected %s appended to %v", tt.id, kids)
			}
		})
	}
}

// TestReparentScenario tests the documented simple-move scenario: root R
// with [F1, D1]; moving D1 into F1 leaves R with [F1] and F1 ending in D1.
func TestReparentScenario(t *testing.T) {
	s := NewStore("R")
	s.Rebuild(types.Snapshot{
		RootID: "R",
		Folders: []types.Record{
			{ID: "F1", ParentID: "R", Name: "folder", SortOrder: 0},
		},
		Files: []types.Record{
			{ID: "D1", ParentID: "R", Name: "file", SortOrder: 1},
		},
	})

	if err := s.Reparent("D1", "F1", -1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := s.Children("R"); len(got) != 1 || got[0] != "F1" {
		t.Errorf("expected R children [F1], got %v", got)
	}
	if got := s.Children("F1"); len(got) != 1 || got[0] != "D1" {
		t.Errorf("expected F1 children [D1], got %v", got)
	}
}

// TestReparentIndex tests insertion at an explicit index
func TestReparentIndex(t *testing.T) {
	s := buildStore(t)

	if err := s.Reparent("D2", "root", 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := s.Children("root")
	if got[0] != "D2" {
		t.Errorf("expected D2 first, got %v", got)
	}
}

// TestSingleParentInvariant tests that an id never appears under two parents
func TestSingleParentInvariant(t *testing.T) {
	s := buildStore(t)

	moves := [][2]string{
		{"D1", "F1"},
		{"D1", "F2"},
		{"D1", "root"},
		{"F2", "root"},
		{"D2", "F2"},
	}
	for _, m := range moves {
		if err := s.Reparent(m[0], m[1], -1); err != nil {
			t.Fatalf("reparent %v: %v", m, err)
		}
		assertSingleParents(t, s)
	}
}

func assertSingleParents(t *testing.T, s *Store) {
	t.Helper()
	seen := make(map[string]string)
	for _, id := range append([]string{s.RootID()}, s.Descendants(s.RootID())...) {
		for _, c := range s.Children(id) {
			if prev, dup := seen[c]; dup {
				t.Fatalf("id %s appears under both %s and %s", c, prev, id)
			}
			seen[c] = id
		}
	}
}

// TestRemoveSubset tests the non-recursive removal primitive
func TestRemoveSubset(t *testing.T) {
	s := buildStore(t)

	s.RemoveSubset([]string{"F1"})

	if s.Has("F1") {
		t.Error("F1 must be deleted")
	}
	for _, c := range s.Children("root") {
		if c == "F1" {
			t.Error("F1 must be filtered out of root children")
		}
	}
	// Descendants survive as unreachable entries until the next rebuild.
	if !s.Has("D2") || !s.Has("F2") {
		t.Error("descendants must not be removed by the primitive")
	}
	if _, ok := s.ParentOf("D2"); ok {
		t.Error("orphaned descendant must not keep a parent entry")
	}
}

// TestRemoveSubsetRoot tests that the root cannot be removed
func TestRemoveSubsetRoot(t *testing.T) {
	s := buildStore(t)
	s.RemoveSubset([]string{"root"})
	if !s.Has("root") {
		t.Error("root must survive RemoveSubset")
	}
}

// TestSetChildren tests wholesale children replacement
func TestSetChildren(t *testing.T) {
	s := buildStore(t)

	if err := s.SetChildren("root", []string{"D1", "F1"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := s.Children("root")
	if got[0] != "D1" || got[1] != "F1" {
		t.Errorf("expected reversed order, got %v", got)
	}
	if p, _ := s.ParentOf("D1"); p != "root" {
		t.Errorf("parent index not maintained, got %s", p)
	}

	if err := s.SetChildren("ghost", nil); err != ErrNotFound {
		t.Errorf("expected ErrNotFound for unknown parent, got %v", err)
	}
}

// TestRebuildDeterminism tests that the same snapshot produces identical
// orderings on repeated rebuilds
func TestRebuildDeterminism(t *testing.T) {
	snap := types.Snapshot{
		RootID: "root",
		Folders: []types.Record{
			{ID: "b", ParentID: "root", Name: "beta", SortOrder: 1},
			{ID: "a", ParentID: "root", Name: "alpha", SortOrder: 1},
		},
		Files: []types.Record{
			{ID: "z", ParentID: "root", Name: "zeta", SortOrder: 1},
			{ID: "m", ParentID: "root", Name: "mu", SortOrder: 0},
		},
	}

	s := NewStore("root")
	s.Rebuild(snap)
	first := s.Children("root")

	for i := 0; i < 5; i++ {
		if changed := s.Rebuild(snap); changed {
			t.Fatalf("rebuild %d reported a change for identical input", i)
		}
		got := s.Children("root")
		for j := range first {
			if got[j] != first[j] {
				t.Fatalf("ordering drifted: %v vs %v", first, got)
			}
		}
	}

	// Ties on sort key break folders-first, then by id.
	want := []string{"m", "a", "b", "z"}
	for i, id := range want {
		if first[i] != id {
			t.Fatalf("expected order %v, got %v", want, first)
		}
	}
}

// TestRebuildChangeDetection tests the changed return value
func TestRebuildChangeDetection(t *testing.T) {
	s := buildStore(t)

	renamed := types.Snapshot{
		RootID: "root",
		Folders: []types.Record{
			{ID: "root", ParentID: "", Name: "root"},
			{ID: "F1", ParentID: "root", Name: "Renamed", SortOrder: 0},
		},
	}
	if changed := s.Rebuild(renamed); !changed {
		t.Error("expected rename to be reported as a change")
	}
	if changed := s.Rebuild(renamed); changed {
		t.Error("expected identical snapshot to report no change")
	}
}

// TestRebuildUnknownParent tests that records referencing a missing parent
// do not crash the rebuild
func TestRebuildUnknownParent(t *testing.T) {
	s := NewStore("root")
	s.Rebuild(types.Snapshot{
		RootID: "root",
		Files: []types.Record{
			{ID: "stray", ParentID: "nowhere", Name: "stray.txt"},
		},
	})

	if !s.Has("stray") {
		t.Error("stray node must keep its entry")
	}
	if _, ok := s.ParentOf("stray"); ok {
		t.Error("stray node must stay unattached")
	}
}

// TestInsertPlaceholder tests placeholder synthesis
func TestInsertPlaceholder(t *testing.T) {
	s := buildStore(t)

	id := s.InsertPlaceholder("New Folder", false)
	if id == "" {
		t.Fatal("expected a synthesized id")
	}
	n := s.GetItem(id)
	if n.Name != "New Folder" || n.IsFile {
		t.Errorf("unexpected placeholder node: %+v", n)
	}
	if _, ok := s.ParentOf(id); ok {
		t.Error("placeholder must start unattached")
	}

	other := s.InsertPlaceholder("New Folder", false)
	if other == id {
		t.Error("placeholder ids must be unique")
	}
}

// TestIsAncestor tests ancestry walks over the parent index
func TestIsAncestor(t *testing.T) {
	s := buildStore(t)

	tests := []struct {
		name     string
		ancestor string
		id       string
		want     bool
	}{
		{"direct parent", "root", "F1", true},
		{"grandparent", "root", "D2", true},
		{"folder over child file", "F1", "D2", true},
		{"reverse", "D2", "F1", false},
		{"self", "F1", "F1", false},
		{"siblings", "F1", "D1", false},
		{"unknown id", "F1", "ghost", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.IsAncestor(tt.ancestor, tt.id); got != tt.want {
				t.Errorf("IsAncestor(%s, %s) = %v, want %v", tt.ancestor, tt.id, got, tt.want)
			}
		})
	}
}

// TestDescendants tests the pre-order walk
func TestDescendants(t *testing.T) {
	s := buildStore(t)

	got := s.Descendants("F1")
	if len(got) != 2 {
		t.Fatalf("expected 2 descendants of F1, got %v", got)
	}
	if got[0] != "F2" || got[1] != "D2" {
		t.Errorf("expected pre-order [F2 D2], got %v", got)
	}

	if ds := s.Descendants("D1"); len(ds) != 0 {
		t.Errorf("files have no descendants, got %v", ds)
	}
}

// TestSetName tests rename bookkeeping
func TestSetName(t *testing.T) {
	s := buildStore(t)

	old, ok := s.SetName("F1", "Work")
	if !ok || old != "Projects" {
		t.Errorf("expected old name Projects, got %q ok=%v", old, ok)
	}
	if s.GetItem("F1").Name != "Work" {
		t.Error("name not updated")
	}

	if _, ok := s.SetName("ghost", "x"); ok {
		t.Error("renaming an unknown id must fail")
	}
}

// TestStats tests node counting
func TestStats(t *testing.T) {
	s := buildStore(t)
	st := s.Stats()
	if st.Folders != 3 || st.Files != 2 || st.Total != 5 {
		t.Errorf("unexpected stats: %+v", st)
	}
}
