package app

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestGetConfigPath_EnvOverride(t *testing.T) {
	t.Setenv("DATMO_CONFIG_PATH", "/etc/datmo/custom.toml")

	path, err := GetConfigPath()
	if err != nil {
		t.Fatalf("GetConfigPath failed: %v", err)
	}
	if path != "/etc/datmo/custom.toml" {
		t.Errorf("path = %q", path)
	}
}

func TestGetConfigPath_Default(t *testing.T) {
	t.Setenv("DATMO_CONFIG_PATH", "")

	path, err := GetConfigPath()
	if err != nil {
		t.Fatalf("GetConfigPath failed: %v", err)
	}
	if filepath.Base(path) != "datmo.toml" || !strings.Contains(path, ".config") {
		t.Errorf("path = %q, want ~/.config/datmo.toml", path)
	}
}

func TestTestScratchDir(t *testing.T) {
	t.Setenv("TEST_DATMO_DIR", "/scratch/datmo")
	if got := TestScratchDir(); got != "/scratch/datmo" {
		t.Errorf("TestScratchDir = %q", got)
	}

	t.Setenv("TEST_DATMO_DIR", "")
	if got := TestScratchDir(); got == "" {
		t.Error("TestScratchDir should fall back to the system temp dir")
	}
}
