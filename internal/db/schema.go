package db

// RootID is the fixed id of the workspace root row.
const RootID = "root"

// BuildNodesTableSQL returns the DDL for the unified nodes table. sort_order
// is the persisted sibling sort key; children of a parent are ordered by
// (sort_order, type with folders first, id).
func BuildNodesTableSQL() string {
	return `
CREATE TABLE IF NOT EXISTS nodes (
    id VARCHAR PRIMARY KEY,
    parent_id VARCHAR NOT NULL,
    name VARCHAR NOT NULL,
    type VARCHAR NOT NULL,
    sort_order INTEGER NOT NULL DEFAULT 0,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL
)`
}

// BuildIndexesSQL returns the DDL for the nodes table indexes.
func BuildIndexesSQL() string {
	return `CREATE INDEX IF NOT EXISTS idx_nodes_parent_id ON nodes (parent_id)`
}
