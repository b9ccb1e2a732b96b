package engine

import (
	"context"

	"datmo-go/internal/model"
)

// ProjectStatus summarizes the state of an initialized project.
type ProjectStatus struct {
	Model          *model.Model
	CurrentSession *model.Session
	SnapshotCount  int
	TaskCount      int
	LatestSnapshot *model.Snapshot
	LatestTask     *model.Task
}

// ProjectController owns project lifecycle: initialization, status
// reporting and cleanup.
type ProjectController struct {
	store      Store
	scm        SCMDriver
	files      FileDriver
	containers ContainerDriver
	sessions   *SessionController
	logger     Logger
}

func NewProjectController(
	store Store,
	scm SCMDriver,
	files FileDriver,
	containers ContainerDriver,
	sessions *SessionController,
	logger Logger,
) *ProjectController {
	return &ProjectController{
		store:      store,
		scm:        scm,
		files:      files,
		containers: containers,
		sessions:   sessions,
		logger:     logger,
	}
}

// Bootstrap creates or updates the project's model record and ensures
// the default session exists and is current. It touches only the store,
// so it can run before any driver is initialized.
func (c *ProjectController) Bootstrap(name, description string) (*model.Model, *model.Session, error) {
	models, err := c.store.QueryModels(nil)
	if err != nil {
		return nil, nil, err
	}

	var m *model.Model
	if len(models) > 0 {
		m = models[0]
		if name != "" {
			m.Name = name
		}
		if description != "" {
			m.Description = description
		}
		if err := c.store.UpdateModel(m); err != nil {
			return nil, nil, err
		}
	} else {
		m = &model.Model{Name: name, Description: description}
		if err := c.store.CreateModel(m); err != nil {
			return nil, nil, err
		}
	}

	pctx := ProjectContext{ModelID: m.ID}
	session, err := c.sessions.Create(pctx, model.DefaultSessionName)
	if err != nil {
		return nil, nil, err
	}
	if !session.Current {
		session, err = c.sessions.Select(pctx, session.Name)
		if err != nil {
			return nil, nil, err
		}
	}

	c.logger.Info("initialized project", "model_id", m.ID, "name", m.Name)
	return m, session, nil
}

// InitDrivers initializes the SCM repository and the collection store
// for the project.
func (c *ProjectController) InitDrivers() error {
	if err := c.scm.Init(); err != nil {
		return err
	}
	return c.files.Init()
}

// Status reports the project's model, current session, and the latest
// snapshot and task.
func (c *ProjectController) Status(pctx ProjectContext) (*ProjectStatus, error) {
	m, err := c.store.GetModel(pctx.ModelID)
	if err != nil {
		return nil, err
	}
	session, err := c.sessions.Current(pctx)
	if err != nil && !IsKind(err, KindSessionDoesNotExist) {
		return nil, err
	}

	snapshots, err := c.store.QuerySnapshots(map[string]any{"model_id": pctx.ModelID})
	if err != nil {
		return nil, err
	}
	tasks, err := c.store.QueryTasks(map[string]any{"model_id": pctx.ModelID})
	if err != nil {
		return nil, err
	}

	status := &ProjectStatus{
		Model:          m,
		CurrentSession: session,
		SnapshotCount:  len(snapshots),
		TaskCount:      len(tasks),
	}
	if len(snapshots) > 0 {
		status.LatestSnapshot = snapshots[len(snapshots)-1]
	}
	if len(tasks) > 0 {
		status.LatestTask = tasks[len(tasks)-1]
	}
	return status, nil
}

// Cleanup tears down everything the engine created: task containers,
// environment images, recorded refs and stored collections. The caller
// removes the .datmo directory itself after closing the store.
func (c *ProjectController) Cleanup(ctx context.Context, pctx ProjectContext) error {
	if err := c.containers.StopRemoveContainersByTerm(ctx, "datmo-task-", true); err != nil {
		c.logger.Warn("removing task containers", "error", err.Error())
	}

	environments, err := c.store.QueryEnvironments(map[string]any{"model_id": pctx.ModelID})
	if err != nil {
		return err
	}
	for _, env := range environments {
		if err := c.containers.Remove(ctx, env.ID, true); err != nil {
			c.logger.Warn("removing environment image", "id", env.ID, "error", err.Error())
		}
	}

	refs, err := c.scm.ListRefs()
	if err != nil {
		return err
	}
	for _, ref := range refs {
		if err := c.scm.DeleteRef(ref); err != nil {
			return err
		}
	}

	hashes, err := c.files.ListCollections()
	if err != nil {
		return err
	}
	for _, h := range hashes {
		if err := c.files.DeleteCollection(h); err != nil {
			return err
		}
	}

	c.logger.Info("cleaned up project", "model_id", pctx.ModelID)
	return nil
}
