package reconcile

import (
	"context"
	"fmt"

	"github.com/arborview/arbor/internal/gateway"
	"github.com/arborview/arbor/internal/tree"
	"github.com/arborview/arbor/internal/types"
)

// CacheControl is the refresh seam the handlers drive after persistence
// calls: successful operations mark the authoritative cache stale for a
// background refresh, failed ones force an immediate refetch so the client
// reconciles with server truth.
type CacheControl interface {
	MarkStale()
	ForceRefetch(ctx context.Context) error
}

// Notifier receives structured success/failure events per operation kind.
type Notifier interface {
	Notify(types.Event)
}

// nopNotifier is used when no notification collaborator is wired.
type nopNotifier struct{}

func (nopNotifier) Notify(types.Event) {}

// DropKind classifies where inside the target row a drop landed.
type DropKind int

// Drop classifications
const (
	// DropInto moves the dragged items inside the target folder.
	DropInto DropKind = iota
	// DropBefore reorders the dragged item as the sibling before the target.
	DropBefore
	// DropAfter reorders the dragged item as the sibling after the target.
	DropAfter
)

// Reconciler translates a completed drag gesture into either an immediate
// single-item persistence call or a staged batch operation. Only the
// reconciler, the batch coordinator and the rename/delete actions may write
// to the store; rendering and search are read-only observers.
type Reconciler struct {
	store  *tree.Store
	gw     gateway.Gateway
	lock   *OpLock
	cache  CacheControl
	notify Notifier

	// zone is the fraction of the target row height that classifies a drop
	// as a reorder rather than a move-into.
	zone float64
}

// NewReconciler wires a reconciler over the given store and gateway.
// reorderZone must be in (0, 1); notify may be nil.
func NewReconciler(store *tree.Store, gw gateway.Gateway, lock *OpLock, cache CacheControl, notify Notifier, reorderZone float64) *Reconciler {
	if notify == nil {
		notify = nopNotifier{}
	}
	return &Reconciler{
		store:  store,
		gw:     gw,
		lock:   lock,
		cache:  cache,
		notify: notify,
		zone:   reorderZone,
	}
}

// ClassifyDrop decides between reorder and move-into from the pointer offset
// within the target row. Offsets inside the top or bottom reorder zone of
// the row classify as before/after reorders; the middle band is a move into
// folder targets. File targets cannot receive children, so their middle band
// resolves to the nearest reorder.
func (r *Reconciler) ClassifyDrop(offsetY, rowHeight float64, targetIsFolder bool) DropKind {
	if rowHeight <= 0 {
		return DropInto
	}
	frac := offsetY / rowHeight
	half := r.zone / 2
	switch {
	case frac < half:
		return DropBefore
	case frac > 1-half:
		return DropAfter
	case targetIsFolder:
		return DropInto
	case frac < 0.5:
		return DropBefore
	default:
		return DropAfter
	}
}

// validateDrop rejects drops onto a dragged item or any of its descendants.
// Violations cause no mutation and no network call.
func (r *Reconciler) validateDrop(draggedIDs []string, targetID string) error {
	for _, id := range draggedIDs {
		if id == targetID || r.store.IsAncestor(id, targetID) {
			return fmt.Errorf("cannot drop %s onto %s: %w", id, targetID, tree.ErrCycle)
		}
	}
	return nil
}

// Drop interprets a completed drag gesture. Single-item move-into gestures
// take the fast path; reorders recompute and persist the affected parent's
// full sibling order; multi-item move-intos are staged as a batch operation
// (returned non-nil) awaiting user confirmation.
func (r *Reconciler) Drop(ctx context.Context, coord *Coordinator, draggedIDs []string, targetID string, kind DropKind) (*types.BatchOperation, error) {
	if len(draggedIDs) == 0 {
		return nil, fmt.Errorf("empty drag set")
	}
	if err := r.validateDrop(draggedIDs, targetID); err != nil {
		return nil, err
	}

	if kind == DropBefore || kind == DropAfter {
		if len(draggedIDs) != 1 {
			// Multi-selection reorders collapse into a move next to the
			// target, which needs confirmation like any multi move.
			parentID, ok := r.store.ParentOf(targetID)
			if !ok {
				parentID = r.store.RootID()
			}
			return coord.StageMove(draggedIDs, parentID)
		}
		return nil, r.Reorder(ctx, draggedIDs[0], targetID, kind == DropBefore)
	}

	if len(draggedIDs) == 1 {
		return nil, r.MoveSingle(ctx, draggedIDs[0], targetID)
	}
	return coord.StageMove(draggedIDs, targetID)
}

// MoveSingle applies a single-item move optimistically and immediately
// invokes the move action. There is no manual revert path: only one node
// moved, so a failure forces a refetch instead. Success marks the cache
// stale without an eager refetch to avoid flicker.
func (r *Reconciler) MoveSingle(ctx context.Context, id, newParentID string) error {
	if newParentID == "" {
		newParentID = r.store.RootID()
	}
	if err := r.validateDrop([]string{id}, newParentID); err != nil {
		return err
	}

	item := r.store.GetItem(id)

	tok := r.lock.Acquire("move")
	defer r.lock.Release(tok)

	if err := r.store.Reparent(id, newParentID, -1); err != nil {
		return err
	}

	if err := r.gw.MoveItem(ctx, id, newParentID); err != nil {
		r.notify.Notify(types.Event{Kind: types.EventMoveFailed, ItemID: id, ItemName: item.Name, Err: err.Error()})
		if rerr := r.cache.ForceRefetch(ctx); rerr != nil {
			return fmt.Errorf("move failed (%w), refetch also failed: %v", err, rerr)
		}
		return fmt.Errorf("move %s: %w", id, err)
	}

	r.cache.MarkStale()
	r.notify.Notify(types.Event{Kind: types.EventMoved, ItemID: id, ItemName: item.Name})
	return nil
}

// Reorder moves id next to targetID among the target's siblings and
// persists the complete resulting order for that parent. The server is the
// source of truth for persisted order but always receives the full ordered
// id list, not a delta.
func (r *Reconciler) Reorder(ctx context.Context, id, targetID string, before bool) error {
	parentID, ok := r.store.ParentOf(targetID)
	if !ok {
		return fmt.Errorf("reorder target %s: %w", targetID, tree.ErrNotFound)
	}

	order := without(r.store.Children(parentID), id)
	idx := indexOf(order, targetID)
	if idx < 0 {
		return fmt.Errorf("reorder target %s left its parent: %w", targetID, tree.ErrNotFound)
	}
	if !before {
		idx++
	}
	order = append(order[:idx], append([]string{id}, order[idx:]...)...)

	tok := r.lock.Acquire("reorder")
	defer r.lock.Release(tok)

	// Cross-parent reorders are a reparent plus an order rewrite.
	if cur, _ := r.store.ParentOf(id); cur != parentID {
		if err := r.store.Reparent(id, parentID, -1); err != nil {
			return err
		}
		if err := r.gw.MoveItem(ctx, id, parentID); err != nil {
			if rerr := r.cache.ForceRefetch(ctx); rerr != nil {
				return fmt.Errorf("reorder move failed (%w), refetch also failed: %v", err, rerr)
			}
			return fmt.Errorf("reorder move %s: %w", id, err)
		}
	}

	if err := r.store.SetChildren(parentID, order); err != nil {
		return err
	}

	if err := r.gw.UpdateSiblingOrder(ctx, parentID, order); err != nil {
		r.notify.Notify(types.Event{Kind: types.EventReorderFailed, ItemID: id, Err: err.Error()})
		if rerr := r.cache.ForceRefetch(ctx); rerr != nil {
			return fmt.Errorf("reorder failed (%w), refetch also failed: %v", err, rerr)
		}
		return fmt.Errorf("reorder under %s: %w", parentID, err)
	}

	r.cache.MarkStale()
	r.notify.Notify(types.Event{Kind: types.EventReordered, ItemID: id, Count: len(order)})
	return nil
}

// ForeignDrop handles a drag-in from outside the tree: a placeholder node is
// synthesized, spliced into the drop target's children, and the folder
// creation is persisted. On failure the placeholder is cleaned out of any
// parent reference and a refetch re-derives ground truth.
func (r *Reconciler) ForeignDrop(ctx context.Context, name string, isFile bool, targetID string) (string, error) {
	if targetID == "" {
		targetID = r.store.RootID()
	}
	if target := r.store.GetItem(targetID); target.IsFile {
		return "", fmt.Errorf("foreign drop onto %s: %w", targetID, tree.ErrNotFolder)
	}

	tok := r.lock.Acquire("foreign-drop")
	defer r.lock.Release(tok)

	id := r.store.InsertPlaceholder(name, isFile)
	if err := r.store.Reparent(id, targetID, -1); err != nil {
		r.store.RemoveSubset([]string{id})
		return "", err
	}

	if isFile {
		// File payload transfer is handled outside the tree core; the
		// placeholder stands in until the next authoritative refresh.
		r.cache.MarkStale()
		return id, nil
	}

	if _, err := r.gw.CreateFolder(ctx, targetID, name); err != nil {
		r.store.RemoveSubset([]string{id})
		r.notify.Notify(types.Event{Kind: types.EventFolderFailed, ItemName: name, Err: err.Error()})
		if rerr := r.cache.ForceRefetch(ctx); rerr != nil {
			return "", fmt.Errorf("folder create failed (%w), refetch also failed: %v", err, rerr)
		}
		return "", fmt.Errorf("create folder %q: %w", name, err)
	}

	r.cache.MarkStale()
	r.notify.Notify(types.Event{Kind: types.EventFolderCreated, ItemID: id, ItemName: name})
	return id, nil
}

func without(ids []string, id string) []string {
	out := make([]string, 0, len(ids))
	for _, c := range ids {
		if c != id {
			out = append(out, c)
		}
	}
	return out
}

func indexOf(ids []string, id string) int {
	for i, c := range ids {
		if c == id {
			return i
		}
	}
	return -1
}
