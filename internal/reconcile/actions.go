package reconcile

import (
	"context"
	"fmt"

	"github.com/arborview/arbor/internal/gateway"
	"github.com/arborview/arbor/internal/tree"
	"github.com/arborview/arbor/internal/types"
)

// Actions wraps single-item rename and delete with optimistic-update-then-
// confirm-or-revert semantics. Name validation is the caller's concern.
type Actions struct {
	store   *tree.Store
	gw      gateway.Gateway
	lock    *OpLock
	cache   CacheControl
	notify  Notifier
	cascade bool
}

// NewActions wires the rename/delete handlers. cascade controls whether
// delete removes descendants client-side immediately. notify may be nil.
func NewActions(store *tree.Store, gw gateway.Gateway, lock *OpLock, cache CacheControl, notify Notifier, cascade bool) *Actions {
	if notify == nil {
		notify = nopNotifier{}
	}
	return &Actions{
		store:   store,
		gw:      gw,
		lock:    lock,
		cache:   cache,
		notify:  notify,
		cascade: cascade,
	}
}

// Rename sets the node's name immediately and then invokes the rename
// action. Success invalidates the cache for a background refresh; failure
// restores the captured original name and forces a refetch.
func (a *Actions) Rename(ctx context.Context, id, newName string) error {
	n := a.store.GetItem(id)
	if !a.store.Has(id) {
		return fmt.Errorf("rename %s: %w", id, tree.ErrNotFound)
	}

	old, _ := a.store.SetName(id, newName)

	if err := a.gw.RenameItem(ctx, id, newName, n.Kind()); err != nil {
		a.store.SetName(id, old)
		a.notify.Notify(types.Event{Kind: types.EventRenameFailed, ItemID: id, ItemName: old, Err: err.Error()})
		if rerr := a.cache.ForceRefetch(ctx); rerr != nil {
			return fmt.Errorf("rename failed (%w), refetch also failed: %v", err, rerr)
		}
		return fmt.Errorf("rename %s: %w", id, err)
	}

	a.cache.MarkStale()
	a.notify.Notify(types.Event{Kind: types.EventRenamed, ItemID: id, ItemName: newName})
	return nil
}

// Delete removes the items optimistically and then invokes the delete
// action. With cascade enabled the full descendant set is collected first so
// no ghost nodes linger until the next refetch. Failure forces a refetch;
// a revert snapshot is impractical here and the lock guards the short
// optimistic window anyway.
func (a *Actions) Delete(ctx context.Context, ids []string) error {
	for _, id := range ids {
		if id == a.store.RootID() {
			return tree.ErrRootImmutable
		}
	}

	var name string
	if len(ids) == 1 {
		name = a.store.GetItem(ids[0]).Name
	}

	tok := a.lock.Acquire("delete")
	defer a.lock.Release(tok)

	doomed := append([]string(nil), ids...)
	if a.cascade {
		for _, id := range ids {
			doomed = append(doomed, a.store.Descendants(id)...)
		}
	}
	a.store.RemoveSubset(doomed)

	if err := a.gw.DeleteItems(ctx, ids); err != nil {
		a.notify.Notify(types.Event{Kind: types.EventDeleteFailed, ItemName: name, Count: 0, Total: len(ids), Err: err.Error()})
		if rerr := a.cache.ForceRefetch(ctx); rerr != nil {
			return fmt.Errorf("delete failed (%w), refetch also failed: %v", err, rerr)
		}
		return fmt.Errorf("delete %d items: %w", len(ids), err)
	}

	a.cache.MarkStale()
	a.notify.Notify(types.Event{Kind: types.EventDeleted, ItemName: name, Count: len(ids), Total: len(ids)})
	return nil
}
