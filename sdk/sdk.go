package sdk

import (
	"context"
	"fmt"

	"github.com/arborview/arbor/internal/config"
	"github.com/arborview/arbor/internal/db"
	"github.com/arborview/arbor/internal/gateway"
	"github.com/arborview/arbor/internal/reconcile"
	"github.com/arborview/arbor/internal/types"
	"github.com/arborview/arbor/internal/workspace"
)

// Workspace is the public SDK surface for the workspace tree. It wraps the
// internal session, its tree store and the persistence gateway behind a
// clean API for rendering and notification collaborators.
type Workspace struct {
	cfg     *types.Config
	db      *db.DB
	session *workspace.Session
}

// New creates a Workspace backed by the DuckDB gateway from the specified
// config file. notify may be nil.
func New(configPath string, notify Notifier) (*Workspace, error) {
	cfg, err := config.LoadFromFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	database, err := db.New(cfg.Workspace.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize gateway database: %w", err)
	}

	session, err := workspace.NewSession(context.Background(), cfg.Workspace, database, notify)
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to initialize session: %w", err)
	}

	return &Workspace{
		cfg:     cfg,
		db:      database,
		session: session,
	}, nil
}

// NewWithDefaults creates a Workspace using the default configuration.
func NewWithDefaults() (*Workspace, error) {
	cfg := config.DefaultConfig()

	database, err := db.New(cfg.Workspace.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize gateway database: %w", err)
	}

	session, err := workspace.NewSession(context.Background(), cfg.Workspace, database, nil)
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to initialize session: %w", err)
	}

	return &Workspace{
		cfg:     &cfg,
		db:      database,
		session: session,
	}, nil
}

// NewWithGateway creates a Workspace over a caller-provided gateway. It is
// the seam for alternative backends and for tests; no DuckDB file is opened.
func NewWithGateway(cfg types.Config, gw gateway.Gateway, notify Notifier) (*Workspace, error) {
	session, err := workspace.NewSession(context.Background(), cfg.Workspace, gw, notify)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize session: %w", err)
	}
	return &Workspace{cfg: &cfg, session: session}, nil
}

// Session returns the underlying workspace session for collaborators that
// need callback wiring.
func (w *Workspace) Session() *workspace.Session {
	return w.session
}

// GetConfig returns the current configuration.
func (w *Workspace) GetConfig() *types.Config {
	return w.cfg
}

// Close releases the gateway resources. Always call it on shutdown.
func (w *Workspace) Close() error {
	if w.db != nil {
		return w.db.Close()
	}
	return nil
}

// Refresh applies an authoritative snapshot unless an operation is in flight.
func (w *Workspace) Refresh(ctx context.Context) error {
	return w.session.Refresh(ctx)
}

// StartAutoRefresh refreshes on the configured interval until ctx ends.
func (w *Workspace) StartAutoRefresh(ctx context.Context) {
	w.session.StartAutoRefresh(ctx)
}

// RootID returns the workspace root id.
func (w *Workspace) RootID() string {
	return w.session.RootID()
}

// GetItem returns the node for id; unknown ids yield a placeholder node.
func (w *Workspace) GetItem(id string) types.Node {
	return w.session.GetItem(id)
}

// Children returns the ordered child ids of id.
func (w *Workspace) Children(id string) []string {
	return w.session.Children(id)
}

// Stats returns node counts for the current tree.
func (w *Workspace) Stats() types.Stats {
	return w.session.Stats()
}

// Ready reports whether the tree has been built from a snapshot.
func (w *Workspace) Ready() bool {
	return w.session.Ready()
}

// Move relocates one item under a new parent, optimistically.
func (w *Workspace) Move(ctx context.Context, id, newParentID string) error {
	return w.session.Move(ctx, id, newParentID)
}

// Reorder places id next to targetID among siblings and persists the order.
func (w *Workspace) Reorder(ctx context.Context, id, targetID string, before bool) error {
	return w.session.Reorder(ctx, id, targetID, before)
}

// Rename renames one item, optimistically.
func (w *Workspace) Rename(ctx context.Context, id, newName string) error {
	return w.session.Rename(ctx, id, newName)
}

// Delete removes items, optimistically.
func (w *Workspace) Delete(ctx context.Context, ids []string) error {
	return w.session.Delete(ctx, ids)
}

// NewFolder creates a folder under parentID via a placeholder node.
func (w *Workspace) NewFolder(ctx context.Context, parentID, name string) (string, error) {
	return w.session.NewFolder(ctx, parentID, name)
}

// Drop interprets a completed drag gesture.
func (w *Workspace) Drop(ctx context.Context, draggedIDs []string, targetID string, kind reconcile.DropKind) (*types.BatchOperation, error) {
	return w.session.Drop(ctx, draggedIDs, targetID, kind)
}

// ClassifyDrop decides between reorder and move-into for a drop position.
func (w *Workspace) ClassifyDrop(offsetY, rowHeight float64, targetID string) reconcile.DropKind {
	return w.session.ClassifyDrop(offsetY, rowHeight, targetID)
}

// StageBatchMove stages a confirming multi-item move.
func (w *Workspace) StageBatchMove(ids []string, targetID string) (*types.BatchOperation, error) {
	return w.session.StageBatchMove(ids, targetID)
}

// StageBatchDelete stages a confirming multi-item delete.
func (w *Workspace) StageBatchDelete(ids []string) (*types.BatchOperation, error) {
	return w.session.StageBatchDelete(ids)
}

// ConfirmBatch executes the staged batch operation.
func (w *Workspace) ConfirmBatch(ctx context.Context) error {
	return w.session.ConfirmBatch(ctx)
}

// CloseBatch dismisses the batch confirmation modal.
func (w *Workspace) CloseBatch() bool {
	return w.session.CloseBatch()
}

// CurrentBatch returns the active batch operation, nil when idle.
func (w *Workspace) CurrentBatch() *types.BatchOperation {
	return w.session.CurrentBatch()
}

// SetQuery drives the search/filter lifecycle.
func (w *Workspace) SetQuery(query string) {
	w.session.SetQuery(query)
}

// Query returns the active filter query.
func (w *Workspace) Query() string {
	return w.session.Query()
}

// Matches reports whether id matches the active query.
func (w *Workspace) Matches(id string) bool {
	return w.session.Matches(id)
}

// Expanded reports whether id is expanded.
func (w *Workspace) Expanded(id string) bool {
	return w.session.Expanded(id)
}

// ToggleExpanded flips the expansion state of a single node.
func (w *Workspace) ToggleExpanded(id string) {
	w.session.ToggleExpanded(id)
}

// Select adds ids to the selection set.
func (w *Workspace) Select(ids ...string) {
	w.session.Select(ids...)
}

// Deselect removes ids from the selection set.
func (w *Workspace) Deselect(ids ...string) {
	w.session.Deselect(ids...)
}

// ClearSelection empties the selection set.
func (w *Workspace) ClearSelection() {
	w.session.ClearSelection()
}

// Selection returns the selected ids in stable order.
func (w *Workspace) Selection() []string {
	return w.session.Selection()
}

// DeleteSelection removes the currently selected items.
func (w *Workspace) DeleteSelection(ctx context.Context) error {
	return w.session.DeleteSelection(ctx)
}

// Reset wipes the gateway store and re-derives the tree.
func (w *Workspace) Reset(ctx context.Context) error {
	return w.session.Reset(ctx)
}

// OperationActive reports whether a structural operation is in flight.
func (w *Workspace) OperationActive() bool {
	return w.session.OperationActive()
}

// Re-export types for convenience
type (
	Config         = types.Config
	Node           = types.Node
	Record         = types.Record
	Snapshot       = types.Snapshot
	BatchOperation = types.BatchOperation
	BatchItem      = types.BatchItem
	Event          = types.Event
	Stats          = types.Stats
	APIResponse    = types.APIResponse
)

// Re-export collaborator interfaces
type (
	Gateway  = gateway.Gateway
	Notifier = reconcile.Notifier
	DropKind = reconcile.DropKind
)

// Re-export constants
const (
	KindFolder = types.KindFolder
	KindFile   = types.KindFile

	DropInto   = reconcile.DropInto
	DropBefore = reconcile.DropBefore
	DropAfter  = reconcile.DropAfter
)
