package engine_test

import (
	"testing"

	"datmo-go/internal/engine"
	"datmo-go/internal/filestore"
	"datmo-go/internal/store"
	"datmo-go/internal/testutil"
)

// fixture wires the full controller graph against an in-memory store,
// stub SCM/container drivers and a real file driver in a scratch root.
type fixture struct {
	root       string
	store      *store.Store
	scm        *testutil.StubSCMDriver
	containers *testutil.StubContainerDriver
	files      *filestore.Local
	pctx       engine.ProjectContext

	code         *engine.CodeController
	collections  *engine.FileCollectionController
	environments *engine.EnvironmentController
	snapshots    *engine.SnapshotController
	tasks        *engine.TaskController
	sessions     *engine.SessionController
	project      *engine.ProjectController
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	root := testutil.ScratchDir(t)
	st := testutil.NewTestStore(t, nil, nil)
	scm := testutil.NewStubSCMDriver()
	containers := testutil.NewStubContainerDriver()
	log := engine.NopLogger{}

	sessions := engine.NewSessionController(st, log)
	bootstrap := engine.NewProjectController(st, scm, filestore.NewLocal(root, ""), containers, sessions, log)
	m, session, err := bootstrap.Bootstrap("test-project", "")
	if err != nil {
		t.Fatalf("Bootstrap failed: %v", err)
	}

	files := filestore.NewLocal(root, m.ID)
	if err := files.Init(); err != nil {
		t.Fatalf("file driver init failed: %v", err)
	}
	t.Cleanup(func() {
		// Collections are sealed read-only; unseal them so the scratch
		// directory can be removed.
		hashes, _ := files.ListCollections()
		for _, h := range hashes {
			files.DeleteCollection(h)
		}
	})

	code := engine.NewCodeController(st, scm, log)
	collections := engine.NewFileCollectionController(st, files, log)
	environments := engine.NewEnvironmentController(st, collections, containers, "python3", log)
	snapshots := engine.NewSnapshotController(st, scm, files, code, environments, collections, log)
	tasks := engine.NewTaskController(st, snapshots, environments, files, containers, log)
	project := engine.NewProjectController(st, scm, files, containers, sessions, log)

	return &fixture{
		root:       root,
		store:      st,
		scm:        scm,
		containers: containers,
		files:      files,
		pctx: engine.ProjectContext{
			Root:      root,
			ModelID:   m.ID,
			SessionID: session.ID,
		},
		code:         code,
		collections:  collections,
		environments: environments,
		snapshots:    snapshots,
		tasks:        tasks,
		sessions:     sessions,
		project:      project,
	}
}
