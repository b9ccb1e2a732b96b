package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func TestManager_ReadWrite_RoundTrip(t *testing.T) {
	original := &Config{
		GitExecPath:     "/usr/local/bin/git",
		DockerExecPath:  "/usr/local/bin/docker",
		DockerSocket:    "unix:///var/run/docker.sock",
		ScannerExecPath: "pipreqs",
		DefaultLanguage: "python3",
	}

	var buf bytes.Buffer
	m := &Manager{}
	if err := m.Write(&buf, original); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	got, err := m.Read(&buf)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}

	if *got != *original {
		t.Errorf("round trip mismatch: got %+v, want %+v", got, original)
	}
}

func TestReadFromFile_MissingYieldsDefaults(t *testing.T) {
	cfg, err := ReadFromFile(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("ReadFromFile failed: %v", err)
	}
	if cfg.GitExecPath != "git" || cfg.DefaultLanguage != "python3" {
		t.Errorf("expected defaults, got %+v", cfg)
	}
}

func TestReadFromFile_PartialKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "datmo.toml")
	if err := os.WriteFile(path, []byte("git_exec_path = \"/opt/git\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := ReadFromFile(path)
	if err != nil {
		t.Fatalf("ReadFromFile failed: %v", err)
	}
	if cfg.GitExecPath != "/opt/git" {
		t.Errorf("GitExecPath = %q, want /opt/git", cfg.GitExecPath)
	}
	if cfg.DockerExecPath != "docker" {
		t.Errorf("DockerExecPath = %q, want default docker", cfg.DockerExecPath)
	}
}

func TestInit_RefusesOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "datmo.toml")
	if err := Init(path, NewConfig()); err != nil {
		t.Fatalf("first Init failed: %v", err)
	}
	if err := Init(path, NewConfig()); err == nil {
		t.Error("second Init should have failed")
	}
}

func TestProjectSettings_RoundTrip(t *testing.T) {
	root := t.TempDir()
	want := &ProjectSettings{ModelID: "model-1", CurrentSessionID: "session-1"}
	if err := WriteProjectSettings(root, want); err != nil {
		t.Fatalf("WriteProjectSettings failed: %v", err)
	}

	got, err := ReadProjectSettings(root)
	if err != nil {
		t.Fatalf("ReadProjectSettings failed: %v", err)
	}
	if *got != *want {
		t.Errorf("round trip mismatch: got %+v, want %+v", got, want)
	}
}

func TestFindProjectRoot(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(filepath.Join(root, ".datmo"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}

	if got := FindProjectRoot(nested); got != root {
		t.Errorf("FindProjectRoot(%q) = %q, want %q", nested, got, root)
	}
	if got := FindProjectRoot(t.TempDir()); got != "" {
		t.Errorf("FindProjectRoot outside a project = %q, want empty", got)
	}
}
