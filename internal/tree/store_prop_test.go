package tree

import (
	"fmt"
	"testing"

	"github.com/arborview/arbor/internal/types"
	"pgregory.net/rapid"
)

// genSnapshot draws a random but well-formed snapshot: every record's
// parent is either the root or an earlier folder, so the persisted side is
// always a tree.
func genSnapshot(t *rapid.T) types.Snapshot {
	snap := types.Snapshot{RootID: "root"}
	folderIDs := []string{"root"}

	nFolders := rapid.IntRange(0, 8).Draw(t, "folders")
	for i := 0; i < nFolders; i++ {
		id := fmt.Sprintf("f%d", i)
		parent := rapid.SampledFrom(folderIDs).Draw(t, fmt.Sprintf("fparent%d", i))
		snap.Folders = append(snap.Folders, types.Record{
			ID:        id,
			ParentID:  parent,
			Name:      fmt.Sprintf("folder-%d", i),
			SortOrder: rapid.IntRange(0, 5).Draw(t, fmt.Sprintf("forder%d", i)),
		})
		folderIDs = append(folderIDs, id)
	}

	nFiles := rapid.IntRange(0, 8).Draw(t, "files")
	for i := 0; i < nFiles; i++ {
		snap.Files = append(snap.Files, types.Record{
			ID:        fmt.Sprintf("d%d", i),
			ParentID:  rapid.SampledFrom(folderIDs).Draw(t, fmt.Sprintf("dparent%d", i)),
			Name:      fmt.Sprintf("file-%d", i),
			SortOrder: rapid.IntRange(0, 5).Draw(t, fmt.Sprintf("dorder%d", i)),
		})
	}
	return snap
}

// allIDs returns every node id currently in the store by walking from the
// root plus whatever is unattached.
func allIDs(s *Store) []string {
	ids := append([]string{s.RootID()}, s.Descendants(s.RootID())...)
	return ids
}

// TestPropAcyclicity drives random reparent sequences and checks that no
// node ever becomes its own ancestor, with rejected moves changing nothing.
func TestPropAcyclicity(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		s := NewStore("root")
		s.Rebuild(genSnapshot(t))

		ids := allIDs(s)
		nMoves := rapid.IntRange(1, 20).Draw(t, "moves")
		for i := 0; i < nMoves; i++ {
			id := rapid.SampledFrom(ids).Draw(t, fmt.Sprintf("id%d", i))
			target := rapid.SampledFrom(ids).Draw(t, fmt.Sprintf("target%d", i))

			err := s.Reparent(id, target, -1)
			if err == nil && (id == target || s.IsAncestor(id, target)) {
				t.Fatalf("accepted cyclic move of %s into %s", id, target)
			}

			for _, n := range allIDs(s) {
				if s.IsAncestor(n, n) {
					t.Fatalf("node %s became its own ancestor", n)
				}
			}
		}
	})
}

// TestPropSingleParent drives random mutation sequences and checks that
// every id appears in at most one parent's children.
func TestPropSingleParent(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		s := NewStore("root")
		s.Rebuild(genSnapshot(t))

		ids := allIDs(s)
		nOps := rapid.IntRange(1, 20).Draw(t, "ops")
		for i := 0; i < nOps; i++ {
			id := rapid.SampledFrom(ids).Draw(t, fmt.Sprintf("id%d", i))
			switch rapid.IntRange(0, 2).Draw(t, fmt.Sprintf("op%d", i)) {
			case 0:
				target := rapid.SampledFrom(ids).Draw(t, fmt.Sprintf("target%d", i))
				_ = s.Reparent(id, target, -1)
			case 1:
				s.RemoveSubset([]string{id})
			case 2:
				pid := s.InsertPlaceholder("p", false)
				_ = s.Reparent(pid, s.RootID(), -1)
			}

			seen := make(map[string]string)
			for _, parent := range allIDs(s) {
				for _, c := range s.Children(parent) {
					if prev, dup := seen[c]; dup {
						t.Fatalf("id %s listed under both %s and %s", c, prev, parent)
					}
					seen[c] = parent
				}
			}
		}
	})
}

// TestPropRebuildIdempotent checks that rebuilding twice from the same
// snapshot reports no change the second time and keeps orderings stable.
func TestPropRebuildIdempotent(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		snap := genSnapshot(t)

		s := NewStore("root")
		s.Rebuild(snap)

		orders := make(map[string][]string)
		for _, id := range allIDs(s) {
			orders[id] = s.Children(id)
		}

		if changed := s.Rebuild(snap); changed {
			t.Fatal("second rebuild from identical snapshot reported a change")
		}
		for id, want := range orders {
			got := s.Children(id)
			if len(got) != len(want) {
				t.Fatalf("children of %s drifted: %v vs %v", id, want, got)
			}
			for i := range want {
				if got[i] != want[i] {
					t.Fatalf("children of %s drifted: %v vs %v", id, want, got)
				}
			}
		}
	})
}
