package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/arborview/arbor/internal/api/models"
	"github.com/arborview/arbor/internal/reconcile"
	"github.com/arborview/arbor/internal/tree"
	"github.com/arborview/arbor/sdk"
)

// ItemHandler handles structural mutation endpoints
type ItemHandler struct {
	BaseHandler
	ws *sdk.Workspace
}

// NewItemHandler creates a new item handler
func NewItemHandler(ws *sdk.Workspace) *ItemHandler {
	return &ItemHandler{
		ws: ws,
	}
}

// mutationStatus maps guard failures to 400s and everything else to 500s.
func mutationStatus(err error) int {
	switch {
	case errors.Is(err, tree.ErrCycle),
		errors.Is(err, tree.ErrRootImmutable),
		errors.Is(err, tree.ErrNotFolder),
		errors.Is(err, tree.ErrNotFound),
		errors.Is(err, reconcile.ErrOperationActive):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// MoveItem handles the single-item move endpoint
func (h *ItemHandler) MoveItem(w http.ResponseWriter, req *http.Request) {
	var request models.MoveItemRequest
	if err := json.NewDecoder(req.Body).Decode(&request); err != nil {
		h.sendError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if request.ItemID == "" {
		h.sendError(w, http.StatusBadRequest, "item_id is required")
		return
	}

	if err := h.ws.Move(req.Context(), request.ItemID, request.NewParentID); err != nil {
		h.sendError(w, mutationStatus(err), fmt.Sprintf("Failed to move item: %v", err))
		return
	}

	h.sendSuccess(w, "Item moved successfully", nil)
}

// Reorder handles the sibling reorder endpoint
func (h *ItemHandler) Reorder(w http.ResponseWriter, req *http.Request) {
	var request models.ReorderRequest
	if err := json.NewDecoder(req.Body).Decode(&request); err != nil {
		h.sendError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if request.ItemID == "" || request.TargetID == "" {
		h.sendError(w, http.StatusBadRequest, "item_id and target_id are required")
		return
	}

	if err := h.ws.Reorder(req.Context(), request.ItemID, request.TargetID, request.Before); err != nil {
		h.sendError(w, mutationStatus(err), fmt.Sprintf("Failed to reorder item: %v", err))
		return
	}

	h.sendSuccess(w, "Item reordered successfully", nil)
}

// RenameItem handles the rename endpoint
func (h *ItemHandler) RenameItem(w http.ResponseWriter, req *http.Request) {
	var request models.RenameItemRequest
	if err := json.NewDecoder(req.Body).Decode(&request); err != nil {
		h.sendError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if request.ItemID == "" || request.NewName == "" {
		h.sendError(w, http.StatusBadRequest, "item_id and new_name are required")
		return
	}

	if err := h.ws.Rename(req.Context(), request.ItemID, request.NewName); err != nil {
		h.sendError(w, mutationStatus(err), fmt.Sprintf("Failed to rename item: %v", err))
		return
	}

	h.sendSuccess(w, "Item renamed successfully", nil)
}

// DeleteItems handles the delete endpoint
func (h *ItemHandler) DeleteItems(w http.ResponseWriter, req *http.Request) {
	var request models.DeleteItemsRequest
	if err := json.NewDecoder(req.Body).Decode(&request); err != nil {
		h.sendError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if len(request.ItemIDs) == 0 {
		h.sendError(w, http.StatusBadRequest, "item_ids is required")
		return
	}

	if err := h.ws.Delete(req.Context(), request.ItemIDs); err != nil {
		h.sendError(w, mutationStatus(err), fmt.Sprintf("Failed to delete items: %v", err))
		return
	}

	h.sendSuccess(w, "Items deleted successfully", nil)
}

// CreateFolder handles the create folder endpoint
func (h *ItemHandler) CreateFolder(w http.ResponseWriter, req *http.Request) {
	var request models.CreateFolderRequest
	if err := json.NewDecoder(req.Body).Decode(&request); err != nil {
		h.sendError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if request.Name == "" {
		h.sendError(w, http.StatusBadRequest, "name is required")
		return
	}

	id, err := h.ws.NewFolder(req.Context(), request.ParentID, request.Name)
	if err != nil {
		h.sendError(w, mutationStatus(err), fmt.Sprintf("Failed to create folder: %v", err))
		return
	}

	h.sendJSON(w, http.StatusCreated, sdk.APIResponse{
		Success: true,
		Message: "Folder created successfully",
		Data:    h.ws.GetItem(id),
	})
}

// StageBatchMove handles the batch move staging endpoint
func (h *ItemHandler) StageBatchMove(w http.ResponseWriter, req *http.Request) {
	var request models.BatchMoveRequest
	if err := json.NewDecoder(req.Body).Decode(&request); err != nil {
		h.sendError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if len(request.ItemIDs) == 0 {
		h.sendError(w, http.StatusBadRequest, "item_ids is required")
		return
	}

	op, err := h.ws.StageBatchMove(request.ItemIDs, request.TargetID)
	if err != nil {
		h.sendError(w, mutationStatus(err), fmt.Sprintf("Failed to stage batch move: %v", err))
		return
	}

	h.sendSuccess(w, "Batch move staged, awaiting confirmation", op)
}

// StageBatchDelete handles the batch delete staging endpoint
func (h *ItemHandler) StageBatchDelete(w http.ResponseWriter, req *http.Request) {
	var request models.DeleteItemsRequest
	if err := json.NewDecoder(req.Body).Decode(&request); err != nil {
		h.sendError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if len(request.ItemIDs) == 0 {
		h.sendError(w, http.StatusBadRequest, "item_ids is required")
		return
	}

	op, err := h.ws.StageBatchDelete(request.ItemIDs)
	if err != nil {
		h.sendError(w, mutationStatus(err), fmt.Sprintf("Failed to stage batch delete: %v", err))
		return
	}

	h.sendSuccess(w, "Batch delete staged, awaiting confirmation", op)
}

// ConfirmBatch handles the batch confirmation endpoint
func (h *ItemHandler) ConfirmBatch(w http.ResponseWriter, req *http.Request) {
	if err := h.ws.ConfirmBatch(req.Context()); err != nil {
		h.sendError(w, mutationStatus(err), fmt.Sprintf("Batch operation failed: %v", err))
		return
	}

	h.sendSuccess(w, "Batch operation completed", h.ws.CurrentBatch())
}

// CloseBatch handles the batch modal close endpoint
func (h *ItemHandler) CloseBatch(w http.ResponseWriter, req *http.Request) {
	if !h.ws.CloseBatch() {
		h.sendError(w, http.StatusConflict, "Batch operation is processing and cannot be closed")
		return
	}

	h.sendSuccess(w, "Batch operation closed", nil)
}

// GetBatch handles the batch status endpoint
func (h *ItemHandler) GetBatch(w http.ResponseWriter, req *http.Request) {
	h.sendSuccess(w, "Batch status retrieved successfully", h.ws.CurrentBatch())
}
