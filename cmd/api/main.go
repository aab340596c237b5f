package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/arborview/arbor/internal/api"
	"github.com/arborview/arbor/sdk"
)

func main() {
	fmt.Println("Arbor API Server")
	fmt.Println("================")

	// Load configuration
	configPath := getConfigPath()
	fmt.Printf("Loading configuration from: %s\n", configPath)

	// Initialize the workspace
	fmt.Println("Initializing workspace...")
	ws, err := sdk.New(configPath, nil)
	if err != nil {
		log.Fatalf("Failed to initialize workspace: %v", err)
	}
	fmt.Println("Workspace initialized successfully")

	// Get configuration
	cfg := ws.GetConfig()
	fmt.Printf("API config: Host=%s, Port=%d\n", cfg.API.Host, cfg.API.Port)

	// Create API server
	server := api.NewServer(ws, &cfg.API)

	// Create HTTP server with timeouts
	addr := fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      server.GetRouter(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Background refresh keeps the tree reconciled with the gateway
	refreshCtx, stopRefresh := context.WithCancel(context.Background())
	ws.StartAutoRefresh(refreshCtx)

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nShutting down server...")

		stopRefresh()

		// Create shutdown context with timeout
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		// Shutdown HTTP server
		if err := httpServer.Shutdown(ctx); err != nil {
			log.Printf("Error shutting down HTTP server: %v", err)
		}

		// Close the workspace gateway
		if err := ws.Close(); err != nil {
			log.Printf("Error closing workspace: %v", err)
		}

		fmt.Println("Server shutdown complete")
		os.Exit(0)
	}()

	// Start server
	fmt.Printf("Starting HTTP server on %s\n", addr)
	fmt.Printf("API endpoints available at http://%s/api/v1/\n", addr)
	fmt.Printf("Health check available at http://%s/health\n", addr)

	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("HTTP server error: %v", err)
	}
}

// getConfigPath returns the config file path from argv or the default.
func getConfigPath() string {
	if len(os.Args) > 1 {
		return os.Args[1]
	}
	return "configs/default.json"
}
