package models

// MoveItemRequest represents the request to relocate one item
type MoveItemRequest struct {
	ItemID      string `json:"item_id"`
	NewParentID string `json:"new_parent_id"`
}

// ReorderRequest represents the request to place an item next to a sibling
type ReorderRequest struct {
	ItemID   string `json:"item_id"`
	TargetID string `json:"target_id"`
	Before   bool   `json:"before"`
}

// RenameItemRequest represents the request to rename an item
type RenameItemRequest struct {
	ItemID  string `json:"item_id"`
	NewName string `json:"new_name"`
}

// DeleteItemsRequest represents the request to delete one or more items
type DeleteItemsRequest struct {
	ItemIDs []string `json:"item_ids"`
}

// BatchMoveRequest represents the request to stage a multi-item move
type BatchMoveRequest struct {
	ItemIDs  []string `json:"item_ids"`
	TargetID string   `json:"target_id"`
}

// CreateFolderRequest represents the request to create a new folder
type CreateFolderRequest struct {
	ParentID string `json:"parent_id"`
	Name     string `json:"name"`
}

// SearchRequest represents the request to set the filter query
type SearchRequest struct {
	Query string `json:"query"`
}

// SelectionRequest represents the request to replace the selection set
type SelectionRequest struct {
	ItemIDs []string `json:"item_ids"`
}
