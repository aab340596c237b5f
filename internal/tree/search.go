package tree

import (
	"strings"
)

// FilterState keeps expand/collapse bookkeeping for the tree view while a
// filter query is active. Entering a query snapshots the current expansion
// set and expands everything so matches at any depth are visible; clearing
// the query restores the snapshot.
type FilterState struct {
	store    *Store
	query    string
	expanded map[string]bool
	saved    map[string]bool
}

// NewFilterState creates filter bookkeeping bound to a store.
func NewFilterState(store *Store) *FilterState {
	return &FilterState{
		store:    store,
		expanded: make(map[string]bool),
	}
}

// Query returns the active filter query, empty when none.
func (f *FilterState) Query() string {
	return f.query
}

// SetQuery transitions the filter. On the transition from no query to a
// query the expansion set is snapshotted and the tree fully expanded; on the
// transition back to no query the snapshot is restored.
func (f *FilterState) SetQuery(query string) {
	switch {
	case f.query == "" && query != "":
		f.saved = copySet(f.expanded)
		f.ExpandAll()
	case f.query != "" && query == "":
		if f.saved != nil {
			f.expanded = f.saved
		} else {
			f.expanded = make(map[string]bool)
		}
		f.saved = nil
	}
	f.query = query
}

// Matches reports whether the node's name matches the active query.
// Matching is substring, case-insensitive, against the name only; with no
// active query nothing matches.
func (f *FilterState) Matches(id string) bool {
	if f.query == "" {
		return false
	}
	n := f.store.GetItem(id)
	return strings.Contains(strings.ToLower(n.Name), strings.ToLower(f.query))
}

// Expanded reports whether the node is currently expanded.
func (f *FilterState) Expanded(id string) bool {
	return f.expanded[id]
}

// SetExpanded expands or collapses a single node.
func (f *FilterState) SetExpanded(id string, expanded bool) {
	if expanded {
		f.expanded[id] = true
	} else {
		delete(f.expanded, id)
	}
}

// Toggle flips the expansion state of a single node.
func (f *FilterState) Toggle(id string) {
	f.SetExpanded(id, !f.Expanded(id))
}

// ExpandAll marks every folder in the store expanded.
func (f *FilterState) ExpandAll() {
	f.expanded = make(map[string]bool)
	f.expanded[f.store.RootID()] = true
	for _, id := range f.store.Descendants(f.store.RootID()) {
		if n := f.store.GetItem(id); !n.IsFile {
			f.expanded[id] = true
		}
	}
}

// CollapseAll clears the expansion set.
func (f *FilterState) CollapseAll() {
	f.expanded = make(map[string]bool)
}

func copySet(m map[string]bool) map[string]bool {
	out := make(map[string]bool, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
