// Package db implements the persistence gateway on DuckDB. It is the
// authoritative side of the reconciliation protocol: moves, renames,
// deletes, batch moves and sibling reorders are atomic here, and
// FetchTreeSnapshot is the rehydration source for the in-memory store.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/arborview/arbor/internal/gateway"
	"github.com/arborview/arbor/internal/types"
	"github.com/google/uuid"
	_ "github.com/marcboeker/go-duckdb"
)

// DB wraps a DuckDB connection and provides the gateway action surface.
type DB struct {
	conn *sql.DB
	mu   sync.Mutex // Protects all database operations from concurrent access
}

// compile-time check that DB satisfies the gateway surface
var _ gateway.Gateway = (*DB)(nil)

// New creates a new database connection and initializes the schema.
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("duckdb", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open DuckDB connection: %w", err)
	}

	db := &DB{conn: conn}

	if err := db.InitializeSchema(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return db, nil
}

// InitializeSchema creates the nodes table, its indexes and the root row.
func (db *DB) InitializeSchema() error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, err := db.conn.Exec(BuildNodesTableSQL()); err != nil {
		return fmt.Errorf("failed to create nodes table: %w", err)
	}
	if _, err := db.conn.Exec(BuildIndexesSQL()); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	return db.ensureRoot()
}

// ensureRoot inserts the root row if it is missing. Callers must hold mu.
func (db *DB) ensureRoot() error {
	var exists bool
	err := db.conn.QueryRow("SELECT EXISTS(SELECT 1 FROM nodes WHERE id = ?)", RootID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check root existence: %w", err)
	}
	if exists {
		return nil
	}

	now := time.Now()
	_, err = db.conn.Exec(
		"INSERT INTO nodes (id, parent_id, name, type, sort_order, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
		RootID, "", "root", types.KindFolder, 0, now, now)
	if err != nil {
		return fmt.Errorf("failed to create root node: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Reset clears all nodes and recreates the root.
func (db *DB) Reset() error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, err := db.conn.Exec("DELETE FROM nodes"); err != nil {
		return fmt.Errorf("failed to clear nodes table: %w", err)
	}
	return db.ensureRoot()
}

// nodeRow is the subset of a row needed for structural checks.
type nodeRow struct {
	ID       string
	ParentID string
	Kind     string
}

// getRow fetches id's structural columns. Callers must hold mu.
func (db *DB) getRow(ctx context.Context, id string) (*nodeRow, error) {
	var row nodeRow
	err := db.conn.QueryRowContext(ctx,
		"SELECT id, parent_id, type FROM nodes WHERE id = ?", id).
		Scan(&row.ID, &row.ParentID, &row.Kind)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("node not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get node %s: %w", id, err)
	}
	return &row, nil
}

// isAncestor walks parent ids upward from id looking for ancestorID.
// Callers must hold mu.
func (db *DB) isAncestor(ctx context.Context, ancestorID, id string) (bool, error) {
	cur := id
	for cur != "" && cur != RootID {
		var parent string
		err := db.conn.QueryRowContext(ctx,
			"SELECT parent_id FROM nodes WHERE id = ?", cur).Scan(&parent)
		if err == sql.ErrNoRows {
			return false, nil
		}
		if err != nil {
			return false, fmt.Errorf("failed to walk ancestry of %s: %w", id, err)
		}
		if parent == ancestorID {
			return true, nil
		}
		cur = parent
	}
	return false, nil
}

// nextSortOrder returns the append position under parentID. Callers must
// hold mu.
func (db *DB) nextSortOrder(ctx context.Context, parentID string) (int, error) {
	var next int
	err := db.conn.QueryRowContext(ctx,
		"SELECT COALESCE(MAX(sort_order), -1) + 1 FROM nodes WHERE parent_id = ?", parentID).Scan(&next)
	if err != nil {
		return 0, fmt.Errorf("failed to compute sort order under %s: %w", parentID, err)
	}
	return next, nil
}

// MoveItem relocates one item under a new parent. An empty newParentID means
// the root. The move is validated server-side as well: the target must be an
// existing folder and must not be the item or one of its descendants.
func (db *DB) MoveItem(ctx context.Context, itemID, newParentID string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if newParentID == "" {
		newParentID = RootID
	}
	if itemID == RootID {
		return fmt.Errorf("cannot move the root node")
	}

	if _, err := db.getRow(ctx, itemID); err != nil {
		return err
	}
	target, err := db.getRow(ctx, newParentID)
	if err != nil {
		return err
	}
	if target.Kind != types.KindFolder {
		return fmt.Errorf("move target %s is not a folder", newParentID)
	}
	if itemID == newParentID {
		return fmt.Errorf("cannot move %s into itself", itemID)
	}
	if under, err := db.isAncestor(ctx, itemID, newParentID); err != nil {
		return err
	} else if under {
		return fmt.Errorf("cannot move %s under its own descendant %s", itemID, newParentID)
	}

	order, err := db.nextSortOrder(ctx, newParentID)
	if err != nil {
		return err
	}

	_, err = db.conn.ExecContext(ctx,
		"UPDATE nodes SET parent_id = ?, sort_order = ?, updated_at = ? WHERE id = ?",
		newParentID, order, time.Now(), itemID)
	if err != nil {
		return fmt.Errorf("failed to move node %s: %w", itemID, err)
	}
	return nil
}

// RenameItem renames one item. kind must match the stored row kind.
func (db *DB) RenameItem(ctx context.Context, itemID, newName, kind string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	row, err := db.getRow(ctx, itemID)
	if err != nil {
		return err
	}
	if kind != "" && row.Kind != kind {
		return fmt.Errorf("node %s is a %s, not a %s", itemID, row.Kind, kind)
	}

	_, err = db.conn.ExecContext(ctx,
		"UPDATE nodes SET name = ?, updated_at = ? WHERE id = ?",
		newName, time.Now(), itemID)
	if err != nil {
		return fmt.Errorf("failed to rename node %s: %w", itemID, err)
	}
	return nil
}

// DeleteItems deletes the given items and all their descendants.
func (db *DB) DeleteItems(ctx context.Context, itemIDs []string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin delete transaction: %w", err)
	}
	defer tx.Rollback()

	for _, id := range itemIDs {
		if id == RootID {
			return fmt.Errorf("cannot delete the root node")
		}
		doomed, err := db.collectSubtree(ctx, tx, id)
		if err != nil {
			return err
		}
		for _, d := range doomed {
			if _, err := tx.ExecContext(ctx, "DELETE FROM nodes WHERE id = ?", d); err != nil {
				return fmt.Errorf("failed to delete node %s: %w", d, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit delete: %w", err)
	}
	return nil
}

// collectSubtree returns id and every descendant id, breadth-first.
func (db *DB) collectSubtree(ctx context.Context, tx *sql.Tx, id string) ([]string, error) {
	out := []string{id}
	queue := []string{id}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		rows, err := tx.QueryContext(ctx, "SELECT id FROM nodes WHERE parent_id = ?", cur)
		if err != nil {
			return nil, fmt.Errorf("failed to query children of %s: %w", cur, err)
		}
		var children []string
		for rows.Next() {
			var child string
			if err := rows.Scan(&child); err != nil {
				rows.Close()
				return nil, fmt.Errorf("failed to scan child of %s: %w", cur, err)
			}
			children = append(children, child)
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to iterate children of %s: %w", cur, err)
		}
		rows.Close()

		out = append(out, children...)
		queue = append(queue, children...)
	}
	return out, nil
}

// BatchMoveItems relocates several items under a new parent in one
// transaction. Items whose ancestor is also in the set are carried
// implicitly by their ancestor's move; they count toward Total but not
// Moved.
func (db *DB) BatchMoveItems(ctx context.Context, itemIDs []string, newParentID string) (gateway.BatchMoveResult, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	res := gateway.BatchMoveResult{Total: len(itemIDs)}

	if newParentID == "" {
		newParentID = RootID
	}
	target, err := db.getRow(ctx, newParentID)
	if err != nil {
		return res, err
	}
	if target.Kind != types.KindFolder {
		return res, fmt.Errorf("move target %s is not a folder", newParentID)
	}

	inSet := make(map[string]bool, len(itemIDs))
	for _, id := range itemIDs {
		if id == RootID {
			return res, fmt.Errorf("cannot move the root node")
		}
		inSet[id] = true
	}
	for _, id := range itemIDs {
		if id == newParentID {
			return res, fmt.Errorf("cannot move %s into itself", id)
		}
		if under, err := db.isAncestor(ctx, id, newParentID); err != nil {
			return res, err
		} else if under {
			return res, fmt.Errorf("cannot move %s under its own descendant %s", id, newParentID)
		}
	}

	order, err := db.nextSortOrder(ctx, newParentID)
	if err != nil {
		return res, err
	}

	// Resolve which items ride along with an ancestor before opening the
	// transaction; ancestry reads and the tx must not interleave.
	carried := make(map[string]bool, len(itemIDs))
	for _, id := range itemIDs {
		c, err := db.hasAncestorInSet(ctx, id, inSet)
		if err != nil {
			return res, err
		}
		carried[id] = c
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return res, fmt.Errorf("failed to begin batch move transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now()
	for _, id := range itemIDs {
		if carried[id] {
			continue
		}
		if _, err := tx.ExecContext(ctx,
			"UPDATE nodes SET parent_id = ?, sort_order = ?, updated_at = ? WHERE id = ?",
			newParentID, order, now, id); err != nil {
			return res, fmt.Errorf("failed to batch move node %s: %w", id, err)
		}
		order++
		res.Moved++
	}

	if err := tx.Commit(); err != nil {
		return res, fmt.Errorf("failed to commit batch move: %w", err)
	}
	return res, nil
}

// hasAncestorInSet reports whether any proper ancestor of id is in set.
func (db *DB) hasAncestorInSet(ctx context.Context, id string, set map[string]bool) (bool, error) {
	cur := id
	for cur != "" && cur != RootID {
		var parent string
		err := db.conn.QueryRowContext(ctx,
			"SELECT parent_id FROM nodes WHERE id = ?", cur).Scan(&parent)
		if err == sql.ErrNoRows {
			return false, nil
		}
		if err != nil {
			return false, fmt.Errorf("failed to walk ancestry of %s: %w", id, err)
		}
		if set[parent] {
			return true, nil
		}
		cur = parent
	}
	return false, nil
}

// UpdateSiblingOrder rewrites the sort keys of parentID's children from the
// complete ordered id list. The list replaces the persisted order wholesale.
func (db *DB) UpdateSiblingOrder(ctx context.Context, parentID string, orderedChildIDs []string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if parentID == "" {
		parentID = RootID
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin reorder transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now()
	for i, id := range orderedChildIDs {
		result, err := tx.ExecContext(ctx,
			"UPDATE nodes SET sort_order = ?, updated_at = ? WHERE id = ? AND parent_id = ?",
			i, now, id, parentID)
		if err != nil {
			return fmt.Errorf("failed to reorder node %s: %w", id, err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to check reorder of %s: %w", id, err)
		}
		if affected == 0 {
			return fmt.Errorf("node %s is not a child of %s", id, parentID)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit reorder: %w", err)
	}
	return nil
}

// CreateFolder creates a folder under parentID and returns its id.
func (db *DB) CreateFolder(ctx context.Context, parentID, name string) (string, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	if parentID == "" {
		parentID = RootID
	}
	parent, err := db.getRow(ctx, parentID)
	if err != nil {
		return "", err
	}
	if parent.Kind != types.KindFolder {
		return "", fmt.Errorf("parent %s is not a folder", parentID)
	}

	order, err := db.nextSortOrder(ctx, parentID)
	if err != nil {
		return "", err
	}

	id := uuid.New().String()
	now := time.Now()
	_, err = db.conn.ExecContext(ctx,
		"INSERT INTO nodes (id, parent_id, name, type, sort_order, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
		id, parentID, name, types.KindFolder, order, now, now)
	if err != nil {
		return "", fmt.Errorf("failed to create folder %q: %w", name, err)
	}
	return id, nil
}

// CreateFile creates a file row under parentID and returns its id.
func (db *DB) CreateFile(ctx context.Context, parentID, name string) (string, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	if parentID == "" {
		parentID = RootID
	}
	parent, err := db.getRow(ctx, parentID)
	if err != nil {
		return "", err
	}
	if parent.Kind != types.KindFolder {
		return "", fmt.Errorf("parent %s is not a folder", parentID)
	}

	order, err := db.nextSortOrder(ctx, parentID)
	if err != nil {
		return "", err
	}

	id := uuid.New().String()
	now := time.Now()
	_, err = db.conn.ExecContext(ctx,
		"INSERT INTO nodes (id, parent_id, name, type, sort_order, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
		id, parentID, name, types.KindFile, order, now, now)
	if err != nil {
		return "", fmt.Errorf("failed to create file %q: %w", name, err)
	}
	return id, nil
}

// FetchTreeSnapshot returns the authoritative rehydration payload: the root
// id plus every folder and file row with its parent reference and persisted
// sort key, ordered by parent and sort key for determinism.
func (db *DB) FetchTreeSnapshot(ctx context.Context) (types.Snapshot, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	snap := types.Snapshot{RootID: RootID}

	rows, err := db.conn.QueryContext(ctx,
		"SELECT id, parent_id, name, type, sort_order FROM nodes ORDER BY parent_id, sort_order, type, id")
	if err != nil {
		return snap, fmt.Errorf("failed to query snapshot: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var rec types.Record
		var kind string
		if err := rows.Scan(&rec.ID, &rec.ParentID, &rec.Name, &kind, &rec.SortOrder); err != nil {
			return snap, fmt.Errorf("failed to scan snapshot row: %w", err)
		}
		if kind == types.KindFile {
			snap.Files = append(snap.Files, rec)
		} else {
			snap.Folders = append(snap.Folders, rec)
		}
	}
	if err := rows.Err(); err != nil {
		return snap, fmt.Errorf("failed to iterate snapshot rows: %w", err)
	}
	return snap, nil
}

// NodeCount returns the total number of rows in the nodes table.
func (db *DB) NodeCount() (int, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	var count int
	if err := db.conn.QueryRow("SELECT COUNT(*) FROM nodes").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count nodes: %w", err)
	}
	return count, nil
}
