package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"datmo-go/internal/config"
	"datmo-go/internal/container"
	"datmo-go/internal/engine"
	"datmo-go/internal/filestore"
	"datmo-go/internal/scm"
	"datmo-go/internal/store"
)

const databaseFilename = "datmo.db"

// App is the application layer between the CLI and the engine
// controllers. It constructs all dependencies from config and the
// project's settings file, and manages the store lifecycle on Close.
type App struct {
	cfg     *config.Config
	pctx    engine.ProjectContext
	store   *store.Store
	logFile *os.File

	Project         *engine.ProjectController
	Code            *engine.CodeController
	FileCollections *engine.FileCollectionController
	Environments    *engine.EnvironmentController
	Snapshots       *engine.SnapshotController
	Tasks           *engine.TaskController
	Sessions        *engine.SessionController
}

// New creates a fully wired App for an already-initialized project found
// at or above workDir. operation identifies the CLI command being run
// (e.g. "SnapshotCreate", "TaskRun"). The caller must call Close when
// done.
func New(workDir, operation string) (*App, error) {
	root := config.FindProjectRoot(workDir)
	if root == "" {
		return nil, engine.Errorf(engine.KindProjectNotInitialized,
			"no project found at or above %q; run init first", workDir)
	}

	settings, err := config.ReadProjectSettings(root)
	if err != nil {
		return nil, engine.Wrap(engine.KindProjectNotInitialized, err, "reading project settings")
	}
	if settings.ModelID == "" {
		return nil, engine.Errorf(engine.KindDatmoModelNotInitialized,
			"project at %q has no model; run init first", root)
	}

	return wire(root, operation, settings)
}

// Init initializes (or re-initializes) a project at workDir: the .datmo
// layout, the document store, the model record, the default session, the
// SCM repository and the collection store. It returns a fully wired App
// for the new project.
func Init(workDir, name, description string) (*App, error) {
	root, err := filepath.Abs(workDir)
	if err != nil {
		return nil, fmt.Errorf("resolving project root: %w", err)
	}

	for _, sub := range []string{"database", "log", "snapshots", "tasks"} {
		if err := os.MkdirAll(filepath.Join(root, ".datmo", sub), 0o755); err != nil {
			return nil, engine.Wrap(engine.KindFileIOError, err, "creating project layout")
		}
	}

	st, err := store.Open(filepath.Join(root, ".datmo", "database", databaseFilename), nil, nil)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(); err != nil {
		st.Close()
		return nil, err
	}

	logger, logFile, err := newLogger(filepath.Join(root, ".datmo", "log"), "Init")
	if err != nil {
		st.Close()
		return nil, err
	}
	log := &slogAdapter{l: logger}

	cfg, err := loadConfig()
	if err != nil {
		st.Close()
		logFile.Close()
		return nil, err
	}

	git, err := scm.NewGit(root, cfg.GitExecPath)
	if err != nil {
		st.Close()
		logFile.Close()
		return nil, err
	}
	docker := container.NewDocker(root, cfg.DockerExecPath, cfg.DockerSocket, cfg.ScannerExecPath)

	// The model id is not known until Bootstrap runs, so the file driver
	// is wired afterwards; neither Bootstrap nor the SCM init needs it.
	sessions := engine.NewSessionController(st, log)
	project := engine.NewProjectController(st, git, filestore.NewLocal(root, ""), docker, sessions, log)

	m, session, err := project.Bootstrap(name, description)
	if err != nil {
		st.Close()
		logFile.Close()
		return nil, err
	}
	if err := project.InitDrivers(); err != nil {
		st.Close()
		logFile.Close()
		return nil, err
	}

	settings := &config.ProjectSettings{ModelID: m.ID, CurrentSessionID: session.ID}
	if err := config.WriteProjectSettings(root, settings); err != nil {
		st.Close()
		logFile.Close()
		return nil, err
	}

	st.Close()
	logFile.Close()
	return wire(root, "Init", settings)
}

// wire builds the full controller graph for an initialized project.
func wire(root, operation string, settings *config.ProjectSettings) (*App, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	st, err := store.Open(filepath.Join(root, ".datmo", "database", databaseFilename), nil, nil)
	if err != nil {
		return nil, err
	}
	if err := st.CheckMigrations(); err != nil {
		if err := st.Migrate(); err != nil {
			st.Close()
			return nil, err
		}
	}

	logger, logFile, err := newLogger(filepath.Join(root, ".datmo", "log"), operation)
	if err != nil {
		st.Close()
		return nil, err
	}
	log := &slogAdapter{l: logger}

	git, err := scm.NewGit(root, cfg.GitExecPath)
	if err != nil {
		st.Close()
		logFile.Close()
		return nil, err
	}
	files := filestore.NewLocal(root, settings.ModelID)
	docker := container.NewDocker(root, cfg.DockerExecPath, cfg.DockerSocket, cfg.ScannerExecPath)

	code := engine.NewCodeController(st, git, log)
	collections := engine.NewFileCollectionController(st, files, log)
	environments := engine.NewEnvironmentController(st, collections, docker, cfg.DefaultLanguage, log)
	snapshots := engine.NewSnapshotController(st, git, files, code, environments, collections, log)
	tasks := engine.NewTaskController(st, snapshots, environments, files, docker, log)
	sessions := engine.NewSessionController(st, log)
	project := engine.NewProjectController(st, git, files, docker, sessions, log)

	return &App{
		cfg:     cfg,
		store:   st,
		logFile: logFile,
		pctx: engine.ProjectContext{
			Root:      root,
			ModelID:   settings.ModelID,
			SessionID: settings.CurrentSessionID,
		},
		Project:         project,
		Code:            code,
		FileCollections: collections,
		Environments:    environments,
		Snapshots:       snapshots,
		Tasks:           tasks,
		Sessions:        sessions,
	}, nil
}

func loadConfig() (*config.Config, error) {
	path, err := GetConfigPath()
	if err != nil {
		return nil, err
	}
	return config.ReadFromFile(path)
}

// Context returns the project context controller calls operate on.
func (a *App) Context() engine.ProjectContext { return a.pctx }

// SelectSession makes the named session current and records it in the
// project settings so later commands pick it up.
func (a *App) SelectSession(name string) error {
	session, err := a.Sessions.Select(a.pctx, name)
	if err != nil {
		return err
	}
	a.pctx.SessionID = session.ID
	return config.WriteProjectSettings(a.pctx.Root, &config.ProjectSettings{
		ModelID:          a.pctx.ModelID,
		CurrentSessionID: session.ID,
	})
}

// Cleanup tears down everything the engine created and removes the
// .datmo directory. The App is unusable afterwards.
func (a *App) Cleanup(ctx context.Context) error {
	if err := a.Project.Cleanup(ctx, a.pctx); err != nil {
		return err
	}
	a.store.Close()
	a.store = nil
	if a.logFile != nil {
		a.logFile.Close()
		a.logFile = nil
	}
	if err := os.RemoveAll(filepath.Join(a.pctx.Root, ".datmo")); err != nil {
		return engine.Wrap(engine.KindFileIOError, err, "removing .datmo directory")
	}
	return nil
}

// Close closes the store and the log file.
func (a *App) Close() error {
	var firstErr error
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			firstErr = fmt.Errorf("closing store: %w", err)
		}
	}
	if a.logFile != nil {
		a.logFile.Close()
	}
	return firstErr
}
