package api

import (
	"time"

	"github.com/arborview/arbor/internal/api/handlers"
	apimiddleware "github.com/arborview/arbor/internal/api/middleware"
	"github.com/arborview/arbor/sdk"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Router represents the HTTP API router
type Router struct {
	ws *sdk.Workspace
}

// NewRouter creates a new API router
func NewRouter(ws *sdk.Workspace) *Router {
	return &Router{ws: ws}
}

// SetupRoutes configures all API routes using modular handlers
func (r *Router) SetupRoutes() *chi.Mux {
	router := chi.NewRouter()

	// Standard middleware
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Timeout(60 * time.Second))

	// Custom middleware
	router.Use(apimiddleware.CORS)

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler()
	treeHandler := handlers.NewTreeHandler(r.ws)
	itemHandler := handlers.NewItemHandler(r.ws)
	systemHandler := handlers.NewSystemHandler(r.ws)

	// Health check
	router.Get("/health", healthHandler.HealthCheck)

	// API routes
	router.Route("/api/v1", func(api chi.Router) {
		// Read-side tree operations
		api.Route("/tree", func(t chi.Router) {
			t.Get("/root", treeHandler.GetRoot)
			t.Get("/stats", treeHandler.GetStats)
			t.Get("/node/{id}", treeHandler.GetNode)
			t.Get("/node/{id}/children", treeHandler.GetChildren)
			t.Post("/search", treeHandler.Search)
		})

		// Structural mutations
		api.Route("/items", func(items chi.Router) {
			items.Post("/move", itemHandler.MoveItem)
			items.Post("/reorder", itemHandler.Reorder)
			items.Post("/rename", itemHandler.RenameItem)
			items.Post("/delete", itemHandler.DeleteItems)
			items.Post("/folder", itemHandler.CreateFolder)
		})

		// Batch operation lifecycle
		api.Route("/batch", func(b chi.Router) {
			b.Get("/", itemHandler.GetBatch)
			b.Post("/move", itemHandler.StageBatchMove)
			b.Post("/delete", itemHandler.StageBatchDelete)
			b.Post("/confirm", itemHandler.ConfirmBatch)
			b.Post("/close", itemHandler.CloseBatch)
		})

		// Selection
		api.Get("/selection", treeHandler.GetSelection)
		api.Put("/selection", treeHandler.PutSelection)

		// System operations
		api.Post("/reset", systemHandler.Reset)
		api.Post("/refresh", systemHandler.Refresh)
		api.Get("/config", systemHandler.GetConfig)
	})

	return router
}
