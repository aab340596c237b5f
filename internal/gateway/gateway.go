// Package gateway defines the persistence action surface the workspace core
// awaits on. The exact transport behind it is out of scope for the core; the
// module ships a DuckDB-backed implementation in internal/db.
package gateway

import (
	"context"

	"github.com/arborview/arbor/internal/types"
)

// BatchMoveResult reports the outcome of a batch move. Moved can be lower
// than Total when some selected items were descendants of already-moved
// folders and were carried implicitly.
type BatchMoveResult struct {
	Moved int `json:"moved_count"`
	Total int `json:"total_count"`
}

// Gateway is the minimal persistence action surface consumed by the core.
// An empty newParentID means "move to top level", i.e. under the root.
// Implementations are expected to expose atomic operations; the core only
// performs client-side optimistic bookkeeping around these calls.
type Gateway interface {
	// MoveItem relocates one item under a new parent.
	MoveItem(ctx context.Context, itemID, newParentID string) error

	// RenameItem renames one item. kind is types.KindFolder or
	// types.KindFile; backends with distinct folder/file calls route on it.
	RenameItem(ctx context.Context, itemID, newName, kind string) error

	// DeleteItems deletes the given items.
	DeleteItems(ctx context.Context, itemIDs []string) error

	// BatchMoveItems relocates several items under a new parent in one call.
	BatchMoveItems(ctx context.Context, itemIDs []string, newParentID string) (BatchMoveResult, error)

	// UpdateSiblingOrder persists the full replacement child order of a parent.
	UpdateSiblingOrder(ctx context.Context, parentID string, orderedChildIDs []string) error

	// CreateFolder creates a folder under parentID and returns its id.
	CreateFolder(ctx context.Context, parentID, name string) (string, error)

	// FetchTreeSnapshot returns the authoritative rehydration payload.
	FetchTreeSnapshot(ctx context.Context) (types.Snapshot, error)
}
