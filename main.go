package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"github.com/arborview/arbor/sdk"
)

func main() {
	var (
		config = flag.String("config", "configs/default.json", "Configuration file path")
		help   = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		showHelp()
		return
	}

	fmt.Println("Arbor - SDK Demo")
	fmt.Println("================")
	fmt.Println("This is a demonstration of the Arbor workspace tree SDK.")
	fmt.Println("For the API server, run: go run cmd/api/main.go")
	fmt.Println()

	runDemo(*config)
}

func showHelp() {
	fmt.Println("Arbor - Workspace Tree Store")
	fmt.Println("============================")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  go run main.go [options]")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  -config string")
	fmt.Println("        Configuration file path (default: configs/default.json)")
	fmt.Println("  -help")
	fmt.Println("        Show this help message")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  go run main.go")
	fmt.Println("  go run main.go -config configs/custom.json")
	fmt.Println()
	fmt.Println("API Server:")
	fmt.Println("  go run cmd/api/main.go [config-file]")
	fmt.Println("  go run cmd/api/main.go configs/custom.json")
}

// demoNotifier prints every structured event the session emits.
type demoNotifier struct{}

func (demoNotifier) Notify(e sdk.Event) {
	if e.Err != "" {
		fmt.Printf("  [event] %s: %s (%s)\n", e.Kind, e.ItemName, e.Err)
		return
	}
	fmt.Printf("  [event] %s: %s\n", e.Kind, e.ItemName)
}

func runDemo(configPath string) {
	ctx := context.Background()

	fmt.Printf("Loading configuration from: %s\n", configPath)

	ws, err := sdk.New(configPath, demoNotifier{})
	if err != nil {
		log.Fatalf("Failed to initialize workspace: %v", err)
	}
	defer ws.Close()

	cfg := ws.GetConfig()
	fmt.Printf("Configuration loaded: DBPath=%s, RefreshInterval=%ds\n",
		cfg.Workspace.DBPath, cfg.Workspace.RefreshIntervalSec)

	// Build a small hierarchy.
	fmt.Println("\nCreating folders...")
	for _, name := range []string{"Reports", "Archive"} {
		if _, err := ws.NewFolder(ctx, "", name); err != nil {
			log.Fatalf("Failed to create folder %q: %v", name, err)
		}
	}

	stats := ws.Stats()
	fmt.Printf("Tree now holds %d folders and %d files\n", stats.Folders, stats.Files)

	// Refresh so placeholders are replaced by persisted rows.
	if err := ws.Refresh(ctx); err != nil {
		log.Fatalf("Failed to refresh: %v", err)
	}

	fmt.Println("\nRoot children:")
	for _, id := range ws.Children(ws.RootID()) {
		node := ws.GetItem(id)
		fmt.Printf("  %s (%s)\n", node.Name, node.Kind())
	}

	reportsID := childNamed(ws, "Reports")
	archiveID := childNamed(ws, "Archive")

	if reportsID != "" && archiveID != "" {
		fmt.Println("\nMoving Reports into Archive...")
		if err := ws.Move(ctx, reportsID, archiveID); err != nil {
			log.Fatalf("Failed to move: %v", err)
		}
		fmt.Printf("Archive children: %v\n", ws.Children(archiveID))

		fmt.Println("\nRenaming Archive to Vault...")
		if err := ws.Rename(ctx, archiveID, "Vault"); err != nil {
			log.Fatalf("Failed to rename: %v", err)
		}
	}

	// Search lifecycle.
	fmt.Println("\nSearching for \"rep\"...")
	ws.SetQuery("rep")
	for _, id := range ws.Children(ws.RootID()) {
		if ws.Matches(id) {
			fmt.Printf("  match: %s\n", ws.GetItem(id).Name)
		}
	}
	ws.SetQuery("")

	fmt.Println("\nDemo complete.")
}

// childNamed finds a direct child of the root by display name.
func childNamed(ws *sdk.Workspace, name string) string {
	for _, id := range ws.Children(ws.RootID()) {
		if ws.GetItem(id).Name == name {
			return id
		}
	}
	return ""
}
