package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/arborview/arbor/internal/types"
)

// DefaultConfig returns a default configuration
func DefaultConfig() types.Config {
	return types.Config{
		Workspace: types.WorkspaceConfig{
			DBPath:             "./arbor.db",
			RefreshIntervalSec: 30,
			ReorderZone:        0.4,
			CascadeDelete:      true,
		},
		API: types.APIConfig{
			Host: "localhost",
			Port: 8087,
		},
	}
}

// LoadFromFile loads configuration from a JSON file
func LoadFromFile(configPath string) (*types.Config, error) {
	// Check if file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found: %s", configPath)
	}

	// Read file
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Parse JSON
	var cfg types.Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	// Fill in defaults before validating
	applyDefaults(&cfg)

	// Validate configuration
	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	// Ensure DB path is absolute
	if !filepath.IsAbs(cfg.Workspace.DBPath) {
		absPath, err := filepath.Abs(cfg.Workspace.DBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve DB path: %w", err)
		}
		cfg.Workspace.DBPath = absPath
	}

	return &cfg, nil
}

// applyDefaults fills unset fields with their default values
func applyDefaults(cfg *types.Config) {
	def := DefaultConfig()

	if cfg.Workspace.DBPath == "" {
		cfg.Workspace.DBPath = def.Workspace.DBPath
	}
	if cfg.Workspace.RefreshIntervalSec == 0 {
		cfg.Workspace.RefreshIntervalSec = def.Workspace.RefreshIntervalSec
	}
	if cfg.Workspace.ReorderZone == 0 {
		cfg.Workspace.ReorderZone = def.Workspace.ReorderZone
	}
	if cfg.API.Host == "" {
		cfg.API.Host = def.API.Host
	}
	if cfg.API.Port == 0 {
		cfg.API.Port = def.API.Port
	}
}

// Validate checks that the configuration parameters are valid
func Validate(cfg *types.Config) error {
	if cfg == nil {
		return fmt.Errorf("config cannot be nil")
	}

	// Validate workspace config
	if cfg.Workspace.RefreshIntervalSec < 1 {
		return fmt.Errorf("refresh_interval_sec must be at least 1, got %d", cfg.Workspace.RefreshIntervalSec)
	}

	if cfg.Workspace.ReorderZone <= 0.0 || cfg.Workspace.ReorderZone >= 1.0 {
		return fmt.Errorf("reorder_zone must be between 0.0 and 1.0 exclusive, got %f", cfg.Workspace.ReorderZone)
	}

	// Validate API config
	if cfg.API.Port < 1 || cfg.API.Port > 65535 {
		return fmt.Errorf("API port must be between 1 and 65535, got %d", cfg.API.Port)
	}

	return nil
}

// SaveToFile saves configuration to a JSON file
func SaveToFile(cfg *types.Config, configPath string) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config to JSON: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
