package reconcile

import (
	"context"
	"fmt"

	"github.com/arborview/arbor/internal/gateway"
	"github.com/arborview/arbor/internal/tree"
	"github.com/arborview/arbor/internal/types"
	"github.com/google/uuid"
)

// ErrOperationActive indicates a batch operation is already staged or
// running; only one batch may exist at a time.
var ErrOperationActive = fmt.Errorf("a batch operation is already active")

// Coordinator drives the batch operation state machine:
//
//	idle -> confirming -> processing -> complete|failed -> idle
//
// Multi-item moves and deletions are staged here for user confirmation,
// executed as one gateway call, and reverted or refetched on cancel/failure.
// Closing the confirmation modal always returns the machine to idle.
type Coordinator struct {
	store          *tree.Store
	gw             gateway.Gateway
	lock           *OpLock
	cache          CacheControl
	notify         Notifier
	clearSelection func()

	op *types.BatchOperation
}

// NewCoordinator wires a batch coordinator. notify and clearSelection may be
// nil.
func NewCoordinator(store *tree.Store, gw gateway.Gateway, lock *OpLock, cache CacheControl, notify Notifier, clearSelection func()) *Coordinator {
	if notify == nil {
		notify = nopNotifier{}
	}
	if clearSelection == nil {
		clearSelection = func() {}
	}
	return &Coordinator{
		store:          store,
		gw:             gw,
		lock:           lock,
		cache:          cache,
		notify:         notify,
		clearSelection: clearSelection,
	}
}

// Current returns the active batch operation, nil when idle.
func (c *Coordinator) Current() *types.BatchOperation {
	return c.op
}

// State returns the state of the machine, BatchIdle when no operation exists.
func (c *Coordinator) State() types.BatchState {
	if c.op == nil {
		return types.BatchIdle
	}
	return c.op.State
}

// StageMove captures a confirming batch move of ids into targetID. The
// dragged items disappear from their parent optimistically; the pending-move
// snapshot of that parent's old and new children is the sole basis for
// revert on cancel.
//
// When the dragged items span several parents no snapshot is captured and a
// cancel falls back to a forced refetch on Close.
func (c *Coordinator) StageMove(ids []string, targetID string) (*types.BatchOperation, error) {
	if c.op != nil {
		return nil, ErrOperationActive
	}
	if targetID == "" {
		targetID = c.store.RootID()
	}
	if target := c.store.GetItem(targetID); target.IsFile {
		return nil, fmt.Errorf("batch move into %s: %w", targetID, tree.ErrNotFolder)
	}
	for _, id := range ids {
		if id == targetID || c.store.IsAncestor(id, targetID) {
			return nil, fmt.Errorf("batch move %s into %s: %w", id, targetID, tree.ErrCycle)
		}
	}

	op := &types.BatchOperation{
		ID:       uuid.New().String(),
		Kind:     types.BatchMove,
		TargetID: targetID,
		State:    types.BatchConfirming,
		Items:    c.describe(ids),
	}

	if parentID, ok := c.commonParent(ids); ok {
		old := c.store.Children(parentID)
		next := old
		for _, id := range ids {
			next = without(next, id)
		}
		op.PendingMove = &types.PendingMove{
			ParentID:    parentID,
			OldChildren: old,
			NewChildren: next,
		}
		if err := c.store.SetChildren(parentID, next); err != nil {
			return nil, err
		}
	}

	c.op = op
	return op, nil
}

// StageDelete captures a confirming batch delete of ids. Deletion has no
// pending-move snapshot; nothing is mutated until Execute.
func (c *Coordinator) StageDelete(ids []string) (*types.BatchOperation, error) {
	if c.op != nil {
		return nil, ErrOperationActive
	}
	for _, id := range ids {
		if id == c.store.RootID() {
			return nil, tree.ErrRootImmutable
		}
	}
	c.op = &types.BatchOperation{
		ID:    uuid.New().String(),
		Kind:  types.BatchDelete,
		State: types.BatchConfirming,
		Items: c.describe(ids),
	}
	return c.op, nil
}

// Execute runs the confirmed operation. The operation lock is held for the
// duration; success marks the cache stale and clears the selection, failure
// forces a refetch so the client re-derives ground truth.
func (c *Coordinator) Execute(ctx context.Context) error {
	if c.op == nil || c.op.State != types.BatchConfirming {
		return fmt.Errorf("no confirmable batch operation")
	}

	tok := c.lock.Acquire("batch-" + c.op.Kind)
	defer c.lock.Release(tok)

	ids := make([]string, len(c.op.Items))
	for i, it := range c.op.Items {
		ids[i] = it.ID
	}

	c.op.State = types.BatchProcessing
	c.op.Progress = types.BatchProgress{Total: len(ids)}

	switch c.op.Kind {
	case types.BatchMove:
		return c.executeMove(ctx, ids)
	case types.BatchDelete:
		return c.executeDelete(ctx, ids)
	default:
		c.op.State = types.BatchFailed
		return fmt.Errorf("unknown batch kind %q", c.op.Kind)
	}
}

func (c *Coordinator) executeMove(ctx context.Context, ids []string) error {
	res, err := c.gw.BatchMoveItems(ctx, ids, c.op.TargetID)
	if err != nil {
		c.op.State = types.BatchFailed
		c.op.Progress.Failed = append(c.op.Progress.Failed, err.Error())
		c.notify.Notify(types.Event{Kind: types.EventBatchFailed, Count: 0, Total: len(ids), Err: err.Error()})
		if rerr := c.cache.ForceRefetch(ctx); rerr != nil {
			return fmt.Errorf("batch move failed (%w), refetch also failed: %v", err, rerr)
		}
		return fmt.Errorf("batch move: %w", err)
	}

	c.op.Progress.Completed = c.op.Progress.Total
	c.op.State = types.BatchComplete
	c.clearSelection()
	c.cache.MarkStale()

	// Fewer moved than selected means some items were descendants of
	// already-moved folders and came along implicitly. That is partial by
	// design, not a failure.
	kind := types.EventBatchMoved
	if res.Moved < res.Total {
		kind = types.EventBatchPartial
	}
	c.notify.Notify(types.Event{Kind: kind, Count: res.Moved, Total: res.Total})
	return nil
}

func (c *Coordinator) executeDelete(ctx context.Context, ids []string) error {
	// Optimistic cascade: descendants are collected before removal so no
	// ghost nodes linger until the next refetch.
	doomed := append([]string(nil), ids...)
	for _, id := range ids {
		doomed = append(doomed, c.store.Descendants(id)...)
	}
	c.store.RemoveSubset(doomed)

	if err := c.gw.DeleteItems(ctx, ids); err != nil {
		c.op.State = types.BatchFailed
		c.op.Progress.Failed = append(c.op.Progress.Failed, err.Error())
		c.notify.Notify(types.Event{Kind: types.EventDeleteFailed, Count: 0, Total: len(ids), Err: err.Error()})
		if rerr := c.cache.ForceRefetch(ctx); rerr != nil {
			return fmt.Errorf("batch delete failed (%w), refetch also failed: %v", err, rerr)
		}
		return fmt.Errorf("batch delete: %w", err)
	}

	c.op.Progress.Completed = c.op.Progress.Total
	c.op.State = types.BatchComplete
	c.clearSelection()
	c.cache.MarkStale()
	c.notify.Notify(types.Event{Kind: types.EventDeleted, Count: len(ids), Total: len(ids)})
	return nil
}

// Close dismisses the confirmation modal. A still-confirming move with a
// pending-move snapshot is reverted to the old children; a completed or
// failed operation is simply discarded; closing during processing is a
// no-op so the revert cannot race the in-flight server call. Close reports
// whether the machine returned to idle.
func (c *Coordinator) Close() bool {
	if c.op == nil {
		return true
	}
	if c.op.State == types.BatchProcessing {
		return false
	}
	if c.op.State == types.BatchConfirming && c.op.PendingMove != nil {
		// Revert the optimistic children mutation; ignore a vanished
		// parent, the next refetch owns that case.
		_ = c.store.SetChildren(c.op.PendingMove.ParentID, c.op.PendingMove.OldChildren)
	}
	c.op = nil
	return true
}

// describe resolves ids into batch items carrying name and kind for
// user-facing confirmation text.
func (c *Coordinator) describe(ids []string) []types.BatchItem {
	items := make([]types.BatchItem, len(ids))
	for i, id := range ids {
		n := c.store.GetItem(id)
		items[i] = types.BatchItem{ID: id, Name: n.Name, Type: n.Kind()}
	}
	return items
}

// commonParent returns the shared parent of ids, if they have exactly one.
func (c *Coordinator) commonParent(ids []string) (string, bool) {
	var parent string
	for i, id := range ids {
		p, ok := c.store.ParentOf(id)
		if !ok {
			return "", false
		}
		if i == 0 {
			parent = p
			continue
		}
		if p != parent {
			return "", false
		}
	}
	return parent, parent != ""
}
