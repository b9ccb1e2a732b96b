package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// ProjectSettings is the on-disk representation of a project's identity,
// stored at .datmo/project_settings.json.
type ProjectSettings struct {
	ModelID          string `json:"model_id"`
	CurrentSessionID string `json:"current_session_id"`
}

// SettingsPath returns the project settings file location for a project
// root.
func SettingsPath(root string) string {
	return filepath.Join(root, ".datmo", "project_settings.json")
}

// ReadProjectSettings loads the settings for the project at root.
func ReadProjectSettings(root string) (*ProjectSettings, error) {
	data, err := os.ReadFile(SettingsPath(root))
	if err != nil {
		return nil, fmt.Errorf("reading project settings: %w", err)
	}
	var s ProjectSettings
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decoding project settings: %w", err)
	}
	return &s, nil
}

// WriteProjectSettings persists the settings for the project at root.
func WriteProjectSettings(root string, s *ProjectSettings) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding project settings: %w", err)
	}
	if err := os.MkdirAll(filepath.Join(root, ".datmo"), 0o755); err != nil {
		return fmt.Errorf("creating .datmo directory: %w", err)
	}
	if err := os.WriteFile(SettingsPath(root), append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("writing project settings: %w", err)
	}
	return nil
}

// FindProjectRoot walks upward from dir looking for a .datmo directory.
// It returns the containing directory, or "" when none is found.
func FindProjectRoot(dir string) string {
	for {
		if info, err := os.Stat(filepath.Join(dir, ".datmo")); err == nil && info.IsDir() {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}
