package types

// Config represents the complete configuration for Arbor
type Config struct {
	Workspace WorkspaceConfig `json:"workspace"`
	API       APIConfig       `json:"api"`
}

// WorkspaceConfig represents the workspace session configuration
type WorkspaceConfig struct {
	DBPath             string  `json:"db_path"`
	RefreshIntervalSec int     `json:"refresh_interval_sec"`
	ReorderZone        float64 `json:"reorder_zone"`
	CascadeDelete      bool    `json:"cascade_delete"`
}

// APIConfig represents the HTTP API configuration
type APIConfig struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

// Record is one persisted folder or file row as reported by the gateway.
// ParentID is empty for the root. SortOrder is the persisted sort key
// within the parent.
type Record struct {
	ID        string `json:"id"`
	ParentID  string `json:"parent_id"`
	Name      string `json:"name"`
	SortOrder int    `json:"sort_order"`
}

// Snapshot is the authoritative payload used to rebuild the tree store
// from source of truth.
type Snapshot struct {
	RootID  string   `json:"root_id"`
	Folders []Record `json:"folders"`
	Files   []Record `json:"files"`
}

// Node represents one folder or file in the in-memory tree.
// Children holds ordered child ids; order is the authoritative sort order.
type Node struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	IsFile   bool     `json:"is_file"`
	Children []string `json:"children,omitempty"`
}

// ItemKind constants
const (
	KindFolder = "folder"
	KindFile   = "file"
)

// Kind returns the item kind string for the node.
func (n *Node) Kind() string {
	if n.IsFile {
		return KindFile
	}
	return KindFolder
}

// BatchItem is one entry of a batch operation request.
type BatchItem struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
}

// BatchProgress tracks completion of a batch operation.
type BatchProgress struct {
	Completed   int      `json:"completed"`
	Total       int      `json:"total"`
	CurrentItem string   `json:"current_item,omitempty"`
	Failed      []string `json:"failed,omitempty"`
}

// PendingMove captures the optimistic children mutation of a batch move so
// a cancel can be reverted. It is the sole basis for revert.
type PendingMove struct {
	ParentID    string   `json:"parent_id"`
	OldChildren []string `json:"old_children"`
	NewChildren []string `json:"new_children"`
}

// BatchKind constants
const (
	BatchMove   = "move"
	BatchDelete = "delete"
)

// BatchState is the lifecycle state of a batch operation.
type BatchState string

// Batch operation states
const (
	BatchIdle       BatchState = "idle"
	BatchConfirming BatchState = "confirming"
	BatchProcessing BatchState = "processing"
	BatchComplete   BatchState = "complete"
	BatchFailed     BatchState = "failed"
)

// BatchOperation is the ephemeral record of a user-confirmed multi-item
// structural change. It is created on gesture and discarded when the
// confirmation modal closes.
type BatchOperation struct {
	ID          string        `json:"id"`
	Kind        string        `json:"kind"`
	Items       []BatchItem   `json:"items"`
	TargetID    string        `json:"target_id"`
	State       BatchState    `json:"state"`
	Progress    BatchProgress `json:"progress"`
	PendingMove *PendingMove  `json:"pending_move,omitempty"`
}

// EventKind identifies a structured notification event.
type EventKind string

// Notification event kinds, one per operation outcome
const (
	EventMoved         EventKind = "item_moved"
	EventMoveFailed    EventKind = "item_move_failed"
	EventRenamed       EventKind = "item_renamed"
	EventRenameFailed  EventKind = "item_rename_failed"
	EventDeleted       EventKind = "items_deleted"
	EventDeleteFailed  EventKind = "items_delete_failed"
	EventReordered     EventKind = "items_reordered"
	EventReorderFailed EventKind = "items_reorder_failed"
	EventBatchMoved    EventKind = "batch_moved"
	EventBatchPartial  EventKind = "batch_moved_partial"
	EventBatchFailed   EventKind = "batch_move_failed"
	EventFolderCreated EventKind = "folder_created"
	EventFolderFailed  EventKind = "folder_create_failed"
)

// Event is a structured success/failure notification emitted toward the
// notification collaborator. It carries data for user-facing messages
// without prescribing message text.
type Event struct {
	Kind     EventKind `json:"kind"`
	ItemID   string    `json:"item_id,omitempty"`
	ItemName string    `json:"item_name,omitempty"`
	Count    int       `json:"count,omitempty"`
	Total    int       `json:"total,omitempty"`
	Err      string    `json:"error,omitempty"`
}

// APIResponse represents a generic API response
type APIResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// Stats reports node counts by kind for the current tree.
type Stats struct {
	Folders int `json:"folders"`
	Files   int `json:"files"`
	Total   int `json:"total"`
}
