package engine_test

import (
	"os"
	"path/filepath"
	"testing"

	"datmo-go/internal/engine"
)

func TestSnapshotCreate_Defaults(t *testing.T) {
	f := newFixture(t)

	snap, err := f.snapshots.Create(f.pctx, engine.SnapshotCreateInput{Message: "first"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if snap.CodeID == "" || snap.EnvironmentID == "" || snap.FileCollectionID == "" {
		t.Errorf("unresolved references: %+v", snap)
	}
	if len(snap.Config) != 0 || len(snap.Stats) != 0 {
		t.Errorf("expected empty config and stats, got %v / %v", snap.Config, snap.Stats)
	}
	if snap.SessionID != f.pctx.SessionID {
		t.Errorf("SessionID = %q, want current session %q", snap.SessionID, f.pctx.SessionID)
	}
	if snap.Message != "first" {
		t.Errorf("Message = %q", snap.Message)
	}
}

func TestSnapshotCreate_Dedup(t *testing.T) {
	f := newFixture(t)

	first, err := f.snapshots.Create(f.pctx, engine.SnapshotCreateInput{Message: "a"})
	if err != nil {
		t.Fatal(err)
	}
	second, err := f.snapshots.Create(f.pctx, engine.SnapshotCreateInput{Message: "a"})
	if err != nil {
		t.Fatal(err)
	}

	if first.ID != second.ID {
		t.Errorf("identical inputs produced different snapshots: %q vs %q", first.ID, second.ID)
	}
	all, err := f.snapshots.List(f.pctx, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 1 {
		t.Errorf("expected exactly one snapshot record, got %d", len(all))
	}
}

func TestSnapshotCreate_DifferentConfigNotDeduped(t *testing.T) {
	f := newFixture(t)

	first, err := f.snapshots.Create(f.pctx, engine.SnapshotCreateInput{
		Config: map[string]any{"lr": 0.01},
	})
	if err != nil {
		t.Fatal(err)
	}
	second, err := f.snapshots.Create(f.pctx, engine.SnapshotCreateInput{
		Config: map[string]any{"lr": 0.1},
	})
	if err != nil {
		t.Fatal(err)
	}
	if first.ID == second.ID {
		t.Error("different configs deduplicated to the same snapshot")
	}
}

func TestSnapshotCreate_MutuallyExclusiveArgs(t *testing.T) {
	f := newFixture(t)

	cases := []struct {
		name string
		in   engine.SnapshotCreateInput
	}{
		{"config pair", engine.SnapshotCreateInput{ConfigFilepath: "a.json", ConfigFilename: "a.json"}},
		{"stats pair", engine.SnapshotCreateInput{StatsFilepath: "s.json", StatsFilename: "s.json"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.snapshots.Create(f.pctx, tc.in)
			if !engine.IsKind(err, engine.KindMutuallyExclusiveArguments) {
				t.Errorf("error = %v, want kind %s", err, engine.KindMutuallyExclusiveArguments)
			}
		})
	}

	all, err := f.snapshots.List(f.pctx, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 0 {
		t.Errorf("rejected creates still persisted %d snapshots", len(all))
	}
}

func TestSnapshotCreate_ConfigFromFilepath(t *testing.T) {
	f := newFixture(t)
	path := filepath.Join(f.root, "params.json")
	if err := os.WriteFile(path, []byte(`{"lr": 0.01, "epochs": 10}`), 0o644); err != nil {
		t.Fatal(err)
	}

	snap, err := f.snapshots.Create(f.pctx, engine.SnapshotCreateInput{ConfigFilepath: path})
	if err != nil {
		t.Fatal(err)
	}
	if snap.Config["lr"] != 0.01 {
		t.Errorf("Config = %v", snap.Config)
	}
}

func TestSnapshotCreate_ConfigFromFilenameInPaths(t *testing.T) {
	f := newFixture(t)
	dir := filepath.Join(f.root, "results")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "settings.json"), []byte(`{"batch": 32}`), 0o644); err != nil {
		t.Fatal(err)
	}

	snap, err := f.snapshots.Create(f.pctx, engine.SnapshotCreateInput{
		Paths:          []string{dir},
		ConfigFilename: "settings.json",
	})
	if err != nil {
		t.Fatal(err)
	}
	if snap.Config["batch"] != float64(32) {
		t.Errorf("Config = %v", snap.Config)
	}
}

func TestSnapshotCreate_NoConfigInputsStaysEmpty(t *testing.T) {
	f := newFixture(t)
	dir := filepath.Join(f.root, "results")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	// Files merely sitting in a path are bundled, never absorbed into
	// config or stats on their own.
	if err := os.WriteFile(filepath.Join(dir, "config.json"), []byte(`{"lr": 0.1}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "stats.json"), []byte(`{"acc": 0.9}`), 0o644); err != nil {
		t.Fatal(err)
	}

	snap, err := f.snapshots.Create(f.pctx, engine.SnapshotCreateInput{Paths: []string{dir}})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if len(snap.Config) != 0 {
		t.Errorf("Config = %v, want empty", snap.Config)
	}
	if len(snap.Stats) != 0 {
		t.Errorf("Stats = %v, want empty", snap.Stats)
	}
}

func TestSnapshotCreate_MissingNamedFile(t *testing.T) {
	f := newFixture(t)
	dir := filepath.Join(f.root, "results")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}

	_, err := f.snapshots.Create(f.pctx, engine.SnapshotCreateInput{
		Paths:          []string{dir},
		ConfigFilename: "settings.json",
	})
	if !engine.IsKind(err, engine.KindPathDoesNotExist) {
		t.Errorf("error = %v, want kind %s", err, engine.KindPathDoesNotExist)
	}
}

func TestSnapshotUpdate_MessageAndLabelOnly(t *testing.T) {
	f := newFixture(t)

	snap, err := f.snapshots.Create(f.pctx, engine.SnapshotCreateInput{Message: "original"})
	if err != nil {
		t.Fatal(err)
	}

	message := "better message"
	label := "best"
	updated, err := f.snapshots.Update(snap.ID, engine.SnapshotUpdateInput{
		Message: &message,
		Label:   &label,
	})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if updated.Message != message || updated.Label != label {
		t.Errorf("Update = %+v", updated)
	}
	if updated.CodeID != snap.CodeID || updated.FileCollectionID != snap.FileCollectionID {
		t.Error("Update changed identity fields")
	}
}

func TestSnapshotCheckout(t *testing.T) {
	f := newFixture(t)
	dataPath := filepath.Join(f.root, "data.txt")
	if err := os.WriteFile(dataPath, []byte("v1"), 0o644); err != nil {
		t.Fatal(err)
	}

	snapA, err := f.snapshots.Create(f.pctx, engine.SnapshotCreateInput{
		Paths:   []string{dataPath},
		Message: "v1",
	})
	if err != nil {
		t.Fatal(err)
	}

	if err := os.WriteFile(dataPath, []byte("v2"), 0o644); err != nil {
		t.Fatal(err)
	}
	f.scm.Dirty = true
	if _, err := f.snapshots.Create(f.pctx, engine.SnapshotCreateInput{
		Paths:   []string{dataPath},
		Message: "v2",
	}); err != nil {
		t.Fatal(err)
	}

	if err := f.snapshots.Checkout(f.pctx, snapA.ID); err != nil {
		t.Fatalf("Checkout failed: %v", err)
	}

	materialized := filepath.Join(f.root, ".datmo", "snapshots", snapA.ID, "data.txt")
	content, err := os.ReadFile(materialized)
	if err != nil {
		t.Fatalf("materialized file missing: %v", err)
	}
	if string(content) != "v1" {
		t.Errorf("materialized content = %q, want v1", content)
	}
	if len(f.scm.CheckedOut) == 0 {
		t.Error("Checkout never reached the SCM driver")
	}
}

func TestSnapshotCheckout_RoundTrip(t *testing.T) {
	f := newFixture(t)
	dataPath := filepath.Join(f.root, "data.txt")
	if err := os.WriteFile(dataPath, []byte("v1"), 0o644); err != nil {
		t.Fatal(err)
	}

	snapA, err := f.snapshots.Create(f.pctx, engine.SnapshotCreateInput{
		Paths:   []string{dataPath},
		Message: "v1",
	})
	if err != nil {
		t.Fatal(err)
	}

	if err := os.WriteFile(dataPath, []byte("v2"), 0o644); err != nil {
		t.Fatal(err)
	}
	f.scm.Dirty = true
	snapB, err := f.snapshots.Create(f.pctx, engine.SnapshotCreateInput{
		Paths:   []string{dataPath},
		Message: "v2",
	})
	if err != nil {
		t.Fatal(err)
	}
	if snapB.ID == snapA.ID {
		t.Fatal("changed file deduplicated to the same snapshot")
	}

	if err := f.snapshots.Checkout(f.pctx, snapA.ID); err != nil {
		t.Fatalf("Checkout failed: %v", err)
	}
	// The stub driver tracks revisions without touching files; stand in
	// for the restored working tree.
	if err := os.WriteFile(dataPath, []byte("v1"), 0o644); err != nil {
		t.Fatal(err)
	}

	again, err := f.snapshots.Create(f.pctx, engine.SnapshotCreateInput{
		Paths:   []string{dataPath},
		Message: "recreated",
	})
	if err != nil {
		t.Fatalf("Create after checkout failed: %v", err)
	}
	if again.ID != snapA.ID {
		t.Errorf("recreated snapshot = %q, want original %q", again.ID, snapA.ID)
	}
}

func TestSnapshotCheckout_DirtyTreeRejected(t *testing.T) {
	f := newFixture(t)

	snap, err := f.snapshots.Create(f.pctx, engine.SnapshotCreateInput{Message: "clean"})
	if err != nil {
		t.Fatal(err)
	}

	f.scm.Dirty = true
	err = f.snapshots.Checkout(f.pctx, snap.ID)
	if !engine.IsKind(err, engine.KindUnstagedChanges) {
		t.Errorf("Checkout on dirty tree error = %v, want kind %s", err, engine.KindUnstagedChanges)
	}
}

func TestSnapshotList_BySession(t *testing.T) {
	f := newFixture(t)

	other, err := f.sessions.Create(f.pctx, "experiment")
	if err != nil {
		t.Fatal(err)
	}

	if _, err := f.snapshots.Create(f.pctx, engine.SnapshotCreateInput{Message: "default session"}); err != nil {
		t.Fatal(err)
	}
	if _, err := f.snapshots.Create(f.pctx, engine.SnapshotCreateInput{
		Message:   "experiment session",
		SessionID: other.ID,
		Config:    map[string]any{"run": 2},
	}); err != nil {
		t.Fatal(err)
	}

	got, err := f.snapshots.List(f.pctx, other.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Message != "experiment session" {
		t.Errorf("List(session) = %+v", got)
	}

	all, err := f.snapshots.List(f.pctx, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 {
		t.Errorf("List(all) returned %d snapshots", len(all))
	}
}

func TestSnapshotDiffAndInspect(t *testing.T) {
	f := newFixture(t)

	a, err := f.snapshots.Create(f.pctx, engine.SnapshotCreateInput{
		Message: "a", Config: map[string]any{"lr": 0.01},
	})
	if err != nil {
		t.Fatal(err)
	}
	b, err := f.snapshots.Create(f.pctx, engine.SnapshotCreateInput{
		Message: "b", Config: map[string]any{"lr": 0.1},
	})
	if err != nil {
		t.Fatal(err)
	}

	diff, err := f.snapshots.Diff(a.ID, b.ID)
	if err != nil {
		t.Fatalf("Diff failed: %v", err)
	}
	if diff == "" {
		t.Error("Diff produced no output")
	}

	detail, err := f.snapshots.Inspect(a.ID)
	if err != nil {
		t.Fatalf("Inspect failed: %v", err)
	}
	if detail == "" {
		t.Error("Inspect produced no output")
	}
}
