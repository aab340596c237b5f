package tree

import (
	"errors"
	"sort"

	"github.com/arborview/arbor/internal/types"
	"github.com/google/uuid"
)

// Sentinel errors returned by store mutations
var (
	// ErrNotFound indicates the referenced node does not exist in the store
	ErrNotFound = errors.New("node not found")
	// ErrCycle indicates a move that would make a node its own ancestor
	ErrCycle = errors.New("move would create a cycle")
	// ErrRootImmutable indicates an attempt to move, reorder or delete the root
	ErrRootImmutable = errors.New("root node cannot be modified")
	// ErrNotFolder indicates the target of a move or insert is a file
	ErrNotFolder = errors.New("target node is not a folder")
)

// Store is the sole owner of the canonical in-memory folder/file hierarchy.
// It keeps a node table, an ordered children adjacency per folder, and an
// explicit parent index maintained atomically with every children mutation.
//
// The store performs no I/O and is not safe for concurrent use; the owning
// session serializes all access.
type Store struct {
	rootID   string
	nodes    map[string]*types.Node
	parentOf map[string]string
}

// NewStore creates an empty store owning a root folder with the given id.
func NewStore(rootID string) *Store {
	s := &Store{
		rootID:   rootID,
		nodes:    make(map[string]*types.Node),
		parentOf: make(map[string]string),
	}
	s.nodes[rootID] = &types.Node{ID: rootID, Name: "root"}
	return s
}

// RootID returns the id of the workspace root node.
func (s *Store) RootID() string {
	return s.rootID
}

// Has reports whether the id exists as a key in the store.
func (s *Store) Has(id string) bool {
	_, ok := s.nodes[id]
	return ok
}

// Len returns the number of nodes currently in the store.
func (s *Store) Len() int {
	return len(s.nodes)
}

// GetItem returns a copy of the node for id. It never fails: unknown ids
// yield a synthesized placeholder node so rendering degrades gracefully on
// stale references instead of crashing.
func (s *Store) GetItem(id string) types.Node {
	n, ok := s.nodes[id]
	if !ok {
		return types.Node{ID: id, Name: "Missing: " + id}
	}
	cp := *n
	cp.Children = append([]string(nil), n.Children...)
	return cp
}

// Children returns a copy of the ordered child ids of id, empty if absent.
func (s *Store) Children(id string) []string {
	n, ok := s.nodes[id]
	if !ok {
		return nil
	}
	return append([]string(nil), n.Children...)
}

// ParentOf returns the parent id of id from the parent index.
// The root and unattached nodes have no parent.
func (s *Store) ParentOf(id string) (string, bool) {
	p, ok := s.parentOf[id]
	return p, ok
}

// IsAncestor reports whether ancestorID is a proper ancestor of id.
// It walks the parent index, so the cost is the depth of id.
func (s *Store) IsAncestor(ancestorID, id string) bool {
	cur := id
	for {
		p, ok := s.parentOf[cur]
		if !ok {
			return false
		}
		if p == ancestorID {
			return true
		}
		cur = p
	}
}

// Descendants returns all ids reachable below id in pre-order.
// The id itself is not included.
func (s *Store) Descendants(id string) []string {
	var out []string
	stack := append([]string(nil), s.Children(id)...)
	for len(stack) > 0 {
		cur := stack[0]
		stack = stack[1:]
		out = append(out, cur)
		if n, ok := s.nodes[cur]; ok {
			stack = append(s.childrenCopy(n), stack...)
		}
	}
	return out
}

func (s *Store) childrenCopy(n *types.Node) []string {
	return append([]string(nil), n.Children...)
}

// SetName sets the display name of id and returns the previous name.
// It reports failure for unknown ids.
func (s *Store) SetName(id, name string) (string, bool) {
	n, ok := s.nodes[id]
	if !ok {
		return "", false
	}
	old := n.Name
	n.Name = name
	return old, true
}

// InsertPlaceholder synthesizes a new unattached node for an "add folder" or
// "add file" gesture prior to server confirmation, returning its id.
func (s *Store) InsertPlaceholder(name string, isFile bool) string {
	id := uuid.New().String()
	s.nodes[id] = &types.Node{ID: id, Name: name, IsFile: isFile}
	return id
}

// Reparent removes id from its current parent's children and inserts it into
// newParentID's children at index (append when index is negative or past the
// end). It refuses moves of the root, moves into files, and moves that would
// make id an ancestor of itself.
func (s *Store) Reparent(id, newParentID string, index int) error {
	if id == s.rootID {
		return ErrRootImmutable
	}
	if _, ok := s.nodes[id]; !ok {
		return ErrNotFound
	}
	parent, ok := s.nodes[newParentID]
	if !ok {
		return ErrNotFound
	}
	if parent.IsFile {
		return ErrNotFolder
	}
	if id == newParentID || s.IsAncestor(id, newParentID) {
		return ErrCycle
	}

	s.detach(id)

	if index < 0 || index > len(parent.Children) {
		index = len(parent.Children)
	}
	parent.Children = append(parent.Children, "")
	copy(parent.Children[index+1:], parent.Children[index:])
	parent.Children[index] = id
	s.parentOf[id] = newParentID
	return nil
}

// detach removes id from its current parent's children, if any.
func (s *Store) detach(id string) {
	p, ok := s.parentOf[id]
	if !ok {
		return
	}
	if parent, ok := s.nodes[p]; ok {
		parent.Children = without(parent.Children, id)
	}
	delete(s.parentOf, id)
}

// RemoveSubset filters ids out of every node's children, then deletes the
// node entries for ids. It is the only deletion primitive and deliberately
// does not walk into descendants; cascade policy lives in the delete handler.
func (s *Store) RemoveSubset(ids []string) {
	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		if id == s.rootID {
			continue
		}
		drop[id] = true
	}

	for _, n := range s.nodes {
		filtered := n.Children[:0]
		for _, c := range n.Children {
			if !drop[c] {
				filtered = append(filtered, c)
			}
		}
		n.Children = filtered
	}

	for id := range drop {
		if n, ok := s.nodes[id]; ok {
			// Surviving children of a removed node are no longer listed
			// anywhere; their parent entries must not point at a dead id.
			for _, c := range n.Children {
				delete(s.parentOf, c)
			}
		}
		delete(s.nodes, id)
		delete(s.parentOf, id)
	}
}

// SetChildren replaces parentID's ordered children wholesale, keeping the
// parent index consistent. It is used by reorder application and by the
// batch coordinator's revert path; every id must already exist in the store.
func (s *Store) SetChildren(parentID string, ids []string) error {
	parent, ok := s.nodes[parentID]
	if !ok {
		return ErrNotFound
	}
	for _, c := range parent.Children {
		delete(s.parentOf, c)
	}
	parent.Children = append([]string(nil), ids...)
	for _, c := range ids {
		s.parentOf[c] = parentID
	}
	return nil
}

// Stats returns node counts by kind for the current tree.
func (s *Store) Stats() types.Stats {
	var st types.Stats
	for _, n := range s.nodes {
		if n.IsFile {
			st.Files++
		} else {
			st.Folders++
		}
	}
	st.Total = st.Files + st.Folders
	return st
}

// snapshotRecord pairs a persisted record with its kind for rebuild sorting.
type snapshotRecord struct {
	types.Record
	isFile bool
}

// Rebuild clears all entries and re-inserts the snapshot's root, folders and
// files, grouping children by parent id and ordering each group by
// (sort key, folders first, id) for determinism. It returns whether the
// structure actually changed, so callers can skip redundant display rebuilds.
//
// Records referencing an unknown parent keep their node entry but stay
// unattached; they surface as placeholders if anything still points at them.
func (s *Store) Rebuild(snap types.Snapshot) bool {
	records := make([]snapshotRecord, 0, len(snap.Folders)+len(snap.Files))
	for _, r := range snap.Folders {
		records = append(records, snapshotRecord{Record: r, isFile: false})
	}
	for _, r := range snap.Files {
		records = append(records, snapshotRecord{Record: r, isFile: true})
	}

	nodes := make(map[string]*types.Node, len(records)+1)
	parentOf := make(map[string]string, len(records))

	rootID := snap.RootID
	if rootID == "" {
		rootID = s.rootID
	}
	nodes[rootID] = &types.Node{ID: rootID, Name: "root"}

	for _, r := range records {
		if r.ID == rootID {
			nodes[rootID].Name = r.Name
			continue
		}
		nodes[r.ID] = &types.Node{ID: r.ID, Name: r.Name, IsFile: r.isFile}
	}

	byParent := make(map[string][]snapshotRecord)
	for _, r := range records {
		if r.ID == rootID {
			continue
		}
		byParent[r.ParentID] = append(byParent[r.ParentID], r)
	}

	for parentID, group := range byParent {
		parent, ok := nodes[parentID]
		if !ok {
			continue
		}
		sort.Slice(group, func(i, j int) bool {
			a, b := group[i], group[j]
			if a.SortOrder != b.SortOrder {
				return a.SortOrder < b.SortOrder
			}
			if a.isFile != b.isFile {
				return !a.isFile
			}
			return a.ID < b.ID
		})
		ordered := make([]string, len(group))
		for i, r := range group {
			ordered[i] = r.ID
			parentOf[r.ID] = parentID
		}
		parent.Children = ordered
	}

	changed := !s.equalStructure(rootID, nodes)
	s.rootID = rootID
	s.nodes = nodes
	s.parentOf = parentOf
	return changed
}

// equalStructure compares the current node table against a candidate table.
func (s *Store) equalStructure(rootID string, nodes map[string]*types.Node) bool {
	if s.rootID != rootID || len(s.nodes) != len(nodes) {
		return false
	}
	for id, n := range nodes {
		cur, ok := s.nodes[id]
		if !ok || cur.Name != n.Name || cur.IsFile != n.IsFile {
			return false
		}
		if len(cur.Children) != len(n.Children) {
			return false
		}
		for i := range n.Children {
			if cur.Children[i] != n.Children[i] {
				return false
			}
		}
	}
	return true
}

// without returns ids with the first occurrence of id removed.
func without(ids []string, id string) []string {
	for i, c := range ids {
		if c == id {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}
