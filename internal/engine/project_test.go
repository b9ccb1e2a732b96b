package engine_test

import (
	"context"
	"testing"

	"datmo-go/internal/engine"
	"datmo-go/internal/model"
)

func TestProjectBootstrap(t *testing.T) {
	f := newFixture(t)

	// The fixture already bootstrapped once; doing it again must reuse
	// the model and keep a single current default session.
	m, session, err := f.project.Bootstrap("renamed", "new description")
	if err != nil {
		t.Fatalf("Bootstrap failed: %v", err)
	}

	if m.ID != f.pctx.ModelID {
		t.Errorf("Bootstrap created a second model: %q vs %q", m.ID, f.pctx.ModelID)
	}
	if m.Name != "renamed" || m.Description != "new description" {
		t.Errorf("model not updated: %+v", m)
	}
	if session.Name != model.DefaultSessionName || !session.Current {
		t.Errorf("default session = %+v", session)
	}
}

func TestProjectStatus(t *testing.T) {
	f := newFixture(t)

	if _, err := f.snapshots.Create(f.pctx, engine.SnapshotCreateInput{Message: "one"}); err != nil {
		t.Fatal(err)
	}
	if _, err := f.tasks.Create(f.pctx, engine.TaskCreateInput{Command: []string{"true"}}); err != nil {
		t.Fatal(err)
	}

	status, err := f.project.Status(f.pctx)
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if status.Model == nil || status.Model.Name != "test-project" {
		t.Errorf("Model = %+v", status.Model)
	}
	if status.CurrentSession == nil || status.CurrentSession.Name != model.DefaultSessionName {
		t.Errorf("CurrentSession = %+v", status.CurrentSession)
	}
	if status.SnapshotCount != 1 || status.TaskCount != 1 {
		t.Errorf("counts = %d snapshots, %d tasks", status.SnapshotCount, status.TaskCount)
	}
	if status.LatestSnapshot == nil || status.LatestSnapshot.Message != "one" {
		t.Errorf("LatestSnapshot = %+v", status.LatestSnapshot)
	}
}

func TestProjectCleanup(t *testing.T) {
	f := newFixture(t)

	if _, err := f.snapshots.Create(f.pctx, engine.SnapshotCreateInput{Message: "doomed"}); err != nil {
		t.Fatal(err)
	}

	if err := f.project.Cleanup(context.Background(), f.pctx); err != nil {
		t.Fatalf("Cleanup failed: %v", err)
	}

	refs, err := f.scm.ListRefs()
	if err != nil {
		t.Fatal(err)
	}
	if len(refs) != 0 {
		t.Errorf("refs remain after cleanup: %v", refs)
	}
	hashes, err := f.files.ListCollections()
	if err != nil {
		t.Fatal(err)
	}
	if len(hashes) != 0 {
		t.Errorf("collections remain after cleanup: %v", hashes)
	}
	if len(f.containers.RemovedTerms) == 0 {
		t.Error("cleanup never asked the container driver to remove task containers")
	}
	if len(f.containers.RemovedTags) == 0 {
		t.Error("cleanup never removed environment images")
	}
}
