package app_test

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"datmo-go/internal/app"
	"datmo-go/internal/config"
	"datmo-go/internal/engine"
	"datmo-go/internal/model"
)

// initProject initializes a project in a temp directory with an isolated
// user config. Tests are skipped when git is not installed.
func initProject(t *testing.T) (*app.App, string) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	t.Setenv("DATMO_CONFIG_PATH", filepath.Join(t.TempDir(), "datmo.toml"))

	root := t.TempDir()
	a, err := app.Init(root, "test-project", "a test project")
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	t.Cleanup(func() { a.Close() })
	return a, root
}

func TestInit_Layout(t *testing.T) {
	a, root := initProject(t)

	for _, sub := range []string{"database", "log", "snapshots", "tasks"} {
		if _, err := os.Stat(filepath.Join(root, ".datmo", sub)); err != nil {
			t.Errorf(".datmo/%s missing: %v", sub, err)
		}
	}

	settings, err := config.ReadProjectSettings(root)
	if err != nil {
		t.Fatalf("reading settings: %v", err)
	}
	if settings.ModelID == "" || settings.CurrentSessionID == "" {
		t.Errorf("settings incomplete: %+v", settings)
	}
	if a.Context().ModelID != settings.ModelID {
		t.Errorf("context model %q != settings model %q", a.Context().ModelID, settings.ModelID)
	}

	status, err := a.Project.Status(a.Context())
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if status.Model.Name != "test-project" {
		t.Errorf("model name = %q", status.Model.Name)
	}
	if status.CurrentSession.Name != model.DefaultSessionName {
		t.Errorf("current session = %q", status.CurrentSession.Name)
	}
}

func TestInit_Reinitialize(t *testing.T) {
	a, root := initProject(t)
	modelID := a.Context().ModelID
	a.Close()

	again, err := app.Init(root, "renamed", "")
	if err != nil {
		t.Fatalf("second Init failed: %v", err)
	}
	defer again.Close()

	if again.Context().ModelID != modelID {
		t.Errorf("re-init created a new model: %q vs %q", again.Context().ModelID, modelID)
	}
	status, err := again.Project.Status(again.Context())
	if err != nil {
		t.Fatal(err)
	}
	if status.Model.Name != "renamed" {
		t.Errorf("model name = %q, want renamed", status.Model.Name)
	}
}

func TestNew_FindsProjectFromSubdirectory(t *testing.T) {
	a, root := initProject(t)
	a.Close()

	sub := filepath.Join(root, "src", "train")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatal(err)
	}

	b, err := app.New(sub, "Status")
	if err != nil {
		t.Fatalf("New from subdirectory failed: %v", err)
	}
	defer b.Close()
	if b.Context().Root != root {
		t.Errorf("Root = %q, want %q", b.Context().Root, root)
	}
}

func TestNew_Uninitialized(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	t.Setenv("DATMO_CONFIG_PATH", filepath.Join(t.TempDir(), "datmo.toml"))

	_, err := app.New(t.TempDir(), "Status")
	if !engine.IsKind(err, engine.KindProjectNotInitialized) {
		t.Errorf("error = %v, want kind %s", err, engine.KindProjectNotInitialized)
	}
}

func TestSelectSession_Persisted(t *testing.T) {
	a, root := initProject(t)

	if _, err := a.Sessions.Create(a.Context(), "experiment"); err != nil {
		t.Fatal(err)
	}
	if err := a.SelectSession("experiment"); err != nil {
		t.Fatalf("SelectSession failed: %v", err)
	}
	sessionID := a.Context().SessionID
	a.Close()

	b, err := app.New(root, "Status")
	if err != nil {
		t.Fatal(err)
	}
	defer b.Close()
	if b.Context().SessionID != sessionID {
		t.Errorf("session not persisted: %q vs %q", b.Context().SessionID, sessionID)
	}
}

func TestCleanup(t *testing.T) {
	a, root := initProject(t)

	if err := a.Cleanup(context.Background()); err != nil {
		t.Fatalf("Cleanup failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, ".datmo")); !os.IsNotExist(err) {
		t.Error(".datmo directory survived cleanup")
	}
	if _, err := app.New(root, "Status"); !engine.IsKind(err, engine.KindProjectNotInitialized) {
		t.Errorf("New after cleanup = %v", err)
	}
}
