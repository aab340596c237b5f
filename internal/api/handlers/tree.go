package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/arborview/arbor/internal/api/models"
	"github.com/arborview/arbor/sdk"
	"github.com/go-chi/chi/v5"
)

// TreeHandler handles read-side tree endpoints
type TreeHandler struct {
	BaseHandler
	ws *sdk.Workspace
}

// NewTreeHandler creates a new tree handler
func NewTreeHandler(ws *sdk.Workspace) *TreeHandler {
	return &TreeHandler{
		ws: ws,
	}
}

// GetRoot handles the get root endpoint
func (h *TreeHandler) GetRoot(w http.ResponseWriter, req *http.Request) {
	root := h.ws.GetItem(h.ws.RootID())
	h.sendSuccess(w, "Root retrieved successfully", root)
}

// GetNode handles the get node endpoint. Unknown ids degrade to a
// placeholder node rather than an error, mirroring the store contract.
func (h *TreeHandler) GetNode(w http.ResponseWriter, req *http.Request) {
	id := chi.URLParam(req, "id")
	if id == "" {
		h.sendError(w, http.StatusBadRequest, "node id is required")
		return
	}

	node := h.ws.GetItem(id)
	h.sendSuccess(w, "Node retrieved successfully", node)
}

// GetChildren handles the get children endpoint
func (h *TreeHandler) GetChildren(w http.ResponseWriter, req *http.Request) {
	id := chi.URLParam(req, "id")
	if id == "" {
		h.sendError(w, http.StatusBadRequest, "node id is required")
		return
	}

	children := h.ws.Children(id)
	nodes := make([]sdk.Node, len(children))
	for i, c := range children {
		nodes[i] = h.ws.GetItem(c)
	}

	h.sendSuccess(w, "Children retrieved successfully", nodes)
}

// GetStats handles the get stats endpoint
func (h *TreeHandler) GetStats(w http.ResponseWriter, req *http.Request) {
	h.sendSuccess(w, "Stats retrieved successfully", h.ws.Stats())
}

// Search handles the set-query endpoint and returns the matching node ids
func (h *TreeHandler) Search(w http.ResponseWriter, req *http.Request) {
	var request models.SearchRequest
	if err := json.NewDecoder(req.Body).Decode(&request); err != nil {
		h.sendError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	h.ws.SetQuery(request.Query)

	var matches []string
	if request.Query != "" {
		for _, id := range h.collectIDs() {
			if h.ws.Matches(id) {
				matches = append(matches, id)
			}
		}
	}

	h.sendSuccess(w, "Query applied successfully", map[string]any{
		"query":   request.Query,
		"matches": matches,
	})
}

// collectIDs walks the tree breadth-first from the root.
func (h *TreeHandler) collectIDs() []string {
	var out []string
	queue := []string{h.ws.RootID()}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		out = append(out, cur)
		queue = append(queue, h.ws.Children(cur)...)
	}
	return out
}

// GetSelection handles the get selection endpoint
func (h *TreeHandler) GetSelection(w http.ResponseWriter, req *http.Request) {
	h.sendSuccess(w, "Selection retrieved successfully", h.ws.Selection())
}

// PutSelection handles the replace selection endpoint
func (h *TreeHandler) PutSelection(w http.ResponseWriter, req *http.Request) {
	var request models.SelectionRequest
	if err := json.NewDecoder(req.Body).Decode(&request); err != nil {
		h.sendError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	h.ws.ClearSelection()
	if len(request.ItemIDs) > 0 {
		h.ws.Select(request.ItemIDs...)
	}

	h.sendSuccess(w, "Selection updated successfully", h.ws.Selection())
}
