package handlers

import (
	"fmt"
	"net/http"

	"github.com/arborview/arbor/sdk"
)

// SystemHandler handles system-related endpoints
type SystemHandler struct {
	BaseHandler
	ws *sdk.Workspace
}

// NewSystemHandler creates a new system handler
func NewSystemHandler(ws *sdk.Workspace) *SystemHandler {
	return &SystemHandler{
		ws: ws,
	}
}

// Reset handles the reset endpoint
func (h *SystemHandler) Reset(w http.ResponseWriter, req *http.Request) {
	if err := h.ws.Reset(req.Context()); err != nil {
		h.sendError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to reset workspace: %v", err))
		return
	}

	h.sendSuccess(w, "Workspace reset successfully", nil)
}

// Refresh handles the forced refresh endpoint
func (h *SystemHandler) Refresh(w http.ResponseWriter, req *http.Request) {
	if err := h.ws.Refresh(req.Context()); err != nil {
		h.sendError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to refresh workspace: %v", err))
		return
	}

	h.sendSuccess(w, "Workspace refreshed successfully", nil)
}

// GetConfig handles the get config endpoint
func (h *SystemHandler) GetConfig(w http.ResponseWriter, req *http.Request) {
	config := h.ws.GetConfig()
	h.sendSuccess(w, "Config retrieved successfully", config)
}
