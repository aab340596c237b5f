// Package workspace wires the tree store, the drag/batch reconciliation
// handlers and the persistence gateway into one session per workspace. The
// session serializes every mutation and refresh, which is Go's rendition of
// the single event loop the protocol assumes.
package workspace

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/arborview/arbor/internal/gateway"
	"github.com/arborview/arbor/internal/reconcile"
	"github.com/arborview/arbor/internal/tree"
	"github.com/arborview/arbor/internal/types"
)

// Resetter is implemented by gateways that can wipe their backing store.
type Resetter interface {
	Reset() error
}

// Session owns the canonical in-memory hierarchy for one workspace and
// drives the reconciliation protocol around it. It is created per workspace
// and torn down on navigation away; nothing here is package-level state.
type Session struct {
	mu sync.Mutex

	cfg    types.WorkspaceConfig
	gw     gateway.Gateway
	store  *tree.Store
	filter *tree.FilterState
	lock   *reconcile.OpLock

	reconciler  *reconcile.Reconciler
	coordinator *reconcile.Coordinator
	actions     *reconcile.Actions

	stale         bool
	treeReady     bool
	readySignaled bool
	selection     map[string]bool

	// Collaborator callbacks; all optional.
	OnTreeReady        func()
	OnTreeChanged      func()
	OnSelectionChanged func([]string)
}

// sessionCache adapts the session to the handlers' cache seam. Its methods
// are only ever invoked from inside a session operation that already holds
// the session mutex.
type sessionCache struct {
	s *Session
}

// MarkStale flags the authoritative cache for a background refresh without
// an eager refetch, avoiding visual flicker after successful operations.
func (c sessionCache) MarkStale() {
	c.s.stale = true
}

// ForceRefetch re-derives ground truth immediately. It deliberately ignores
// the operation lock: it is the reconcile path of the very operation that
// holds it.
func (c sessionCache) ForceRefetch(ctx context.Context) error {
	return c.s.refetch(ctx)
}

// NewSession builds a session from an initial authoritative snapshot.
// notify may be nil.
func NewSession(ctx context.Context, cfg types.WorkspaceConfig, gw gateway.Gateway, notify reconcile.Notifier) (*Session, error) {
	snap, err := gw.FetchTreeSnapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch initial snapshot: %w", err)
	}

	s := &Session{
		cfg:       cfg,
		gw:        gw,
		store:     tree.NewStore(snap.RootID),
		lock:      reconcile.NewOpLock(),
		selection: make(map[string]bool),
	}
	s.store.Rebuild(snap)
	s.filter = tree.NewFilterState(s.store)
	s.treeReady = true

	cache := sessionCache{s: s}
	s.reconciler = reconcile.NewReconciler(s.store, gw, s.lock, cache, notify, cfg.ReorderZone)
	s.coordinator = reconcile.NewCoordinator(s.store, gw, s.lock, cache, notify, s.clearSelectionLocked)
	s.actions = reconcile.NewActions(s.store, gw, s.lock, cache, notify, cfg.CascadeDelete)

	return s, nil
}

// Ready reports whether the tree has been built from at least one snapshot.
func (s *Session) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.treeReady
}

// Stale reports whether a successful operation has flagged the cache for a
// background refresh.
func (s *Session) Stale() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stale
}

// RootID returns the workspace root id.
func (s *Session) RootID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.RootID()
}

// GetItem returns the node for id, synthesizing a placeholder for unknown
// ids so observers never crash on stale references.
func (s *Session) GetItem(id string) types.Node {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.GetItem(id)
}

// Children returns the ordered child ids of id.
func (s *Session) Children(id string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Children(id)
}

// Stats returns node counts for the current tree.
func (s *Session) Stats() types.Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Stats()
}

// Refresh applies an authoritative snapshot unless a structural operation
// is in flight, in which case the snapshot is dropped rather than allowed
// to tear the optimistic state out from under the user.
func (s *Session) Refresh(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.lock.Active() {
		return nil
	}

	snap, err := s.gw.FetchTreeSnapshot(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch snapshot: %w", err)
	}

	// A snapshot can also arrive between the fetch above and now; the
	// session mutex makes that window empty, but re-check the lock in case
	// a caller interleaved through a callback.
	if s.lock.Active() {
		return nil
	}

	changed := s.store.Rebuild(snap)
	s.stale = false
	s.signalLocked(changed)
	return nil
}

// refetch is the forced path used by failure handling. It bypasses the
// operation lock. Callers hold the session mutex.
func (s *Session) refetch(ctx context.Context) error {
	snap, err := s.gw.FetchTreeSnapshot(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch snapshot: %w", err)
	}
	changed := s.store.Rebuild(snap)
	s.stale = false
	s.signalLocked(changed)
	return nil
}

// signalLocked fires the tree-ready signal once and the tree-changed signal
// whenever a rebuild altered structure. Callers hold the session mutex.
func (s *Session) signalLocked(changed bool) {
	if !s.readySignaled && s.OnTreeReady != nil {
		s.OnTreeReady()
		s.readySignaled = true
	}
	if changed && s.OnTreeChanged != nil {
		s.OnTreeChanged()
	}
}

// StartAutoRefresh runs Refresh on the configured interval until the
// context is cancelled.
func (s *Session) StartAutoRefresh(ctx context.Context) {
	interval := time.Duration(s.cfg.RefreshIntervalSec) * time.Second
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				// Dropped snapshots and fetch errors are both fine here;
				// the next tick retries.
				_ = s.Refresh(ctx)
			}
		}
	}()
}

// ClassifyDrop decides between reorder and move-into from the pointer
// offset within the target row.
func (s *Session) ClassifyDrop(offsetY, rowHeight float64, targetID string) reconcile.DropKind {
	s.mu.Lock()
	defer s.mu.Unlock()
	target := s.store.GetItem(targetID)
	return s.reconciler.ClassifyDrop(offsetY, rowHeight, !target.IsFile)
}

// Drop interprets a completed drag gesture. For multi-item move gestures
// the returned batch operation is non-nil and awaits ConfirmBatch or
// CloseBatch.
func (s *Session) Drop(ctx context.Context, draggedIDs []string, targetID string, kind reconcile.DropKind) (*types.BatchOperation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reconciler.Drop(ctx, s.coordinator, draggedIDs, targetID, kind)
}

// Move relocates one item under a new parent, optimistically.
func (s *Session) Move(ctx context.Context, id, newParentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reconciler.MoveSingle(ctx, id, newParentID)
}

// Reorder places id next to targetID among the target's siblings and
// persists the parent's full order.
func (s *Session) Reorder(ctx context.Context, id, targetID string, before bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reconciler.Reorder(ctx, id, targetID, before)
}

// Rename renames one item, optimistically.
func (s *Session) Rename(ctx context.Context, id, newName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.actions.Rename(ctx, id, newName)
}

// Delete removes the items, optimistically.
func (s *Session) Delete(ctx context.Context, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.actions.Delete(ctx, ids)
}

// DeleteSelection removes the currently selected items.
func (s *Session) DeleteSelection(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := s.selectionLocked()
	if len(ids) == 0 {
		return nil
	}
	return s.actions.Delete(ctx, ids)
}

// NewFolder creates a folder under parentID via a placeholder node, the
// same path a foreign drag-in takes.
func (s *Session) NewFolder(ctx context.Context, parentID, name string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reconciler.ForeignDrop(ctx, name, false, parentID)
}

// ForeignDrop handles a drag-in from outside the tree.
func (s *Session) ForeignDrop(ctx context.Context, name string, isFile bool, targetID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reconciler.ForeignDrop(ctx, name, isFile, targetID)
}

// StageBatchMove stages a confirming multi-item move.
func (s *Session) StageBatchMove(ids []string, targetID string) (*types.BatchOperation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.coordinator.StageMove(ids, targetID)
}

// StageBatchDelete stages a confirming multi-item delete.
func (s *Session) StageBatchDelete(ids []string) (*types.BatchOperation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.coordinator.StageDelete(ids)
}

// ConfirmBatch executes the staged batch operation.
func (s *Session) ConfirmBatch(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.coordinator.Execute(ctx)
}

// CloseBatch dismisses the batch confirmation modal, reverting a
// still-confirming move. It reports whether the coordinator returned to
// idle; closing during processing is refused.
func (s *Session) CloseBatch() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.coordinator.Close()
}

// CurrentBatch returns the active batch operation, nil when idle.
func (s *Session) CurrentBatch() *types.BatchOperation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.coordinator.Current()
}

// SetQuery drives the search/filter lifecycle.
func (s *Session) SetQuery(query string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filter.SetQuery(query)
}

// Query returns the active filter query.
func (s *Session) Query() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filter.Query()
}

// Matches reports whether id matches the active query.
func (s *Session) Matches(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filter.Matches(id)
}

// Expanded reports whether id is expanded in the view bookkeeping.
func (s *Session) Expanded(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filter.Expanded(id)
}

// ToggleExpanded flips the expansion state of a single node.
func (s *Session) ToggleExpanded(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filter.Toggle(id)
}

// Select adds ids to the selection set.
func (s *Session) Select(ids ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		s.selection[id] = true
	}
	s.selectionChangedLocked()
}

// Deselect removes ids from the selection set.
func (s *Session) Deselect(ids ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		delete(s.selection, id)
	}
	s.selectionChangedLocked()
}

// ClearSelection empties the selection set.
func (s *Session) ClearSelection() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clearSelectionLocked()
}

// Selection returns the selected ids in stable order.
func (s *Session) Selection() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selectionLocked()
}

func (s *Session) selectionLocked() []string {
	ids := make([]string, 0, len(s.selection))
	for id := range s.selection {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (s *Session) clearSelectionLocked() {
	if len(s.selection) == 0 {
		return
	}
	s.selection = make(map[string]bool)
	s.selectionChangedLocked()
}

func (s *Session) selectionChangedLocked() {
	if s.OnSelectionChanged != nil {
		s.OnSelectionChanged(s.selectionLocked())
	}
}

// Reset wipes the gateway's backing store when supported, then re-derives
// the tree from the fresh ground truth.
func (s *Session) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.gw.(Resetter)
	if !ok {
		return fmt.Errorf("gateway does not support reset")
	}
	if err := r.Reset(); err != nil {
		return fmt.Errorf("failed to reset gateway: %w", err)
	}
	s.clearSelectionLocked()
	return s.refetch(ctx)
}

// OperationActive reports whether a structural operation holds the lock.
func (s *Session) OperationActive() bool {
	return s.lock.Active()
}
