package testutil

import (
	"os"
	"testing"
)

// ScratchDir creates a temp directory for a test, honoring TEST_DATMO_DIR
// as the base location. The directory is removed when the test completes.
func ScratchDir(t *testing.T) string {
	t.Helper()

	base := os.Getenv("TEST_DATMO_DIR")
	if base == "" {
		base = t.TempDir()
		return base
	}

	dir, err := os.MkdirTemp(base, "datmo-test-")
	if err != nil {
		t.Fatalf("failed to create scratch directory: %v", err)
	}
	t.Cleanup(func() {
		os.RemoveAll(dir)
	})
	return dir
}
