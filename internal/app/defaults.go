package app

import (
	"fmt"
	"os"
	"path/filepath"
)

// GetConfigPath returns the user config file path, checking the
// DATMO_CONFIG_PATH env var first, then falling back to the default
// ~/.config/datmo.toml.
func GetConfigPath() (string, error) {
	if path := os.Getenv("DATMO_CONFIG_PATH"); path != "" {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "datmo.toml"), nil
}

// TestScratchDir returns the base directory for test scratch space,
// checking the TEST_DATMO_DIR env var first, then falling back to the
// system temp directory.
func TestScratchDir() string {
	if dir := os.Getenv("TEST_DATMO_DIR"); dir != "" {
		return dir
	}
	return os.TempDir()
}
