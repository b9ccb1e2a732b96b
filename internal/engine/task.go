package engine

import (
	"context"
	"os"
	"path/filepath"

	"datmo-go/internal/model"
)

const taskLogFilename = "task.log"

// TaskCreateInput carries the user-supplied parameters of a task.
type TaskCreateInput struct {
	Command     []string
	Ports       []string
	GPU         bool
	Interactive bool
	SessionID   string
}

// TaskRunInput pins the artifacts the run's before-snapshot is built
// from. Empty ids resolve from current project state; Rerun passes the
// ids of a past before-snapshot so the new task chains to the old one.
type TaskRunInput struct {
	CodeID           string
	EnvironmentID    string
	FileCollectionID string
	Config           map[string]any
	Stats            map[string]any
	Detach           bool
}

// TaskController orchestrates runs: before-snapshot, container
// execution, log capture and after-snapshot, updating the task record
// at each stage.
type TaskController struct {
	store        Store
	snapshots    *SnapshotController
	environments *EnvironmentController
	files        FileDriver
	containers   ContainerDriver
	logger       Logger
}

func NewTaskController(
	store Store,
	snapshots *SnapshotController,
	environments *EnvironmentController,
	files FileDriver,
	containers ContainerDriver,
	logger Logger,
) *TaskController {
	return &TaskController{
		store:        store,
		snapshots:    snapshots,
		environments: environments,
		files:        files,
		containers:   containers,
		logger:       logger,
	}
}

// Create records a new pending task.
func (c *TaskController) Create(pctx ProjectContext, in TaskCreateInput) (*model.Task, error) {
	if len(in.Command) == 0 {
		return nil, Errorf(KindRequiredArgumentMissing, "command is required")
	}
	sessionID := in.SessionID
	if sessionID == "" {
		sessionID = pctx.SessionID
	}
	t := &model.Task{
		ModelID:     pctx.ModelID,
		SessionID:   sessionID,
		Command:     in.Command,
		Ports:       in.Ports,
		GPU:         in.GPU,
		Interactive: in.Interactive,
		Status:      model.TaskStatusPending,
	}
	if err := c.store.CreateTask(t); err != nil {
		return nil, err
	}
	return t, nil
}

// Get looks up a task by id.
func (c *TaskController) Get(id string) (*model.Task, error) {
	return c.store.GetTask(id)
}

// Run executes a pending task. The before-snapshot is persisted before
// the container starts and the after-snapshot after it exits, so the
// task record is observable in a consistent order. A stopped task keeps
// its partial log and receives no after-snapshot.
func (c *TaskController) Run(ctx context.Context, pctx ProjectContext, taskID string, in TaskRunInput) (*model.Task, error) {
	t, err := c.store.GetTask(taskID)
	if err != nil {
		return nil, err
	}
	if t.Status != model.TaskStatusPending {
		return nil, Errorf(KindTaskRunException, "task %q is %s and cannot be run", taskID, t.Status)
	}
	if in.Detach && t.Interactive {
		return nil, Errorf(KindMutuallyExclusiveArguments, "detach and interactive are mutually exclusive")
	}

	taskDir := filepath.Join(pctx.Root, ".datmo", "tasks", t.ID)
	if err := os.MkdirAll(taskDir, 0o755); err != nil {
		return nil, Wrap(KindTaskRunException, err, "creating task directory")
	}

	before, err := c.snapshots.Create(pctx, SnapshotCreateInput{
		CodeID:           in.CodeID,
		EnvironmentID:    in.EnvironmentID,
		FileCollectionID: in.FileCollectionID,
		Config:           in.Config,
		Stats:            in.Stats,
		Message:          "before task " + t.ID,
		TaskID:           t.ID,
	})
	if err != nil {
		return nil, err
	}

	hardware := CaptureHardwareInfo()
	t.BeforeSnapshotID = before.ID
	t.TaskDirpath = taskDir
	t.LogFilepath = filepath.Join(taskDir, taskLogFilename)
	t.HardwareInfo = &hardware
	t.Status = model.TaskStatusRunning
	if err := c.store.UpdateTask(t); err != nil {
		return nil, err
	}

	fc, err := c.store.GetFileCollection(before.FileCollectionID)
	if err != nil {
		return nil, c.fail(t, err)
	}
	if err := c.files.TransferCollection(fc.Filehash, taskDir); err != nil {
		return nil, c.fail(t, err)
	}

	if err := c.environments.Build(ctx, before.EnvironmentID); err != nil {
		return nil, c.fail(t, err)
	}

	opts := ContainerRunOptions{
		Command: t.Command,
		Ports:   t.Ports,
		Name:    "datmo-task-" + t.ID,
		Volumes: map[string]VolumeBinding{
			taskDir:   {Bind: "/task", Mode: "rw"},
			pctx.Root: {Bind: "/home", Mode: "rw"},
		},
		Detach:    in.Detach,
		StdinOpen: t.Interactive,
		TTY:       t.Interactive,
		GPU:       t.GPU,
	}

	c.logger.Info("running task", "id", t.ID, "container", opts.Name)
	result, runErr := c.containers.Run(ctx, before.EnvironmentID, opts, t.LogFilepath)
	t.ContainerID = result.ContainerID
	t.Logs = result.Logs

	if in.Detach {
		if runErr != nil {
			return nil, c.fail(t, runErr)
		}
		if err := c.store.UpdateTask(t); err != nil {
			return nil, err
		}
		return t, nil
	}

	// A concurrent Stop may have already moved the task to FAILED; in
	// that case the run was cancelled and gets no after-snapshot.
	stopped := false
	if stored, err := c.store.GetTask(t.ID); err == nil && stored.Status == model.TaskStatusFailed {
		stopped = true
	}

	if !stopped {
		after, err := c.snapshots.Create(pctx, SnapshotCreateInput{
			EnvironmentID: before.EnvironmentID,
			Paths:         taskOutputPaths(taskDir),
			Config:        in.Config,
			Stats:         in.Stats,
			Message:       "after task " + t.ID,
			TaskID:        t.ID,
		})
		if err != nil {
			return nil, c.fail(t, err)
		}
		t.AfterSnapshotID = after.ID
	}

	if runErr != nil || result.ReturnCode != 0 || stopped {
		t.Status = model.TaskStatusFailed
	} else {
		t.Status = model.TaskStatusSuccess
	}
	if err := c.store.UpdateTask(t); err != nil {
		return nil, err
	}
	if runErr != nil {
		return t, runErr
	}
	c.logger.Info("task finished", "id", t.ID, "status", string(t.Status), "return_code", result.ReturnCode)
	return t, nil
}

// fail marks the task FAILED, keeping whatever fields the run populated,
// and returns the original error.
func (c *TaskController) fail(t *model.Task, cause error) error {
	t.Status = model.TaskStatusFailed
	if err := c.store.UpdateTask(t); err != nil {
		c.logger.Error("recording task failure", "id", t.ID, "error", err.Error())
	}
	return cause
}

// taskOutputPaths lists the task directory's entries so the run's
// outputs, including the captured log, end up in the after-snapshot.
func taskOutputPaths(taskDir string) []string {
	entries, err := os.ReadDir(taskDir)
	if err != nil {
		return nil
	}
	paths := make([]string, 0, len(entries))
	for _, e := range entries {
		paths = append(paths, filepath.Join(taskDir, e.Name()))
	}
	return paths
}

// Stop cancels a running task and marks it FAILED. Stopping a task that
// already reached a terminal state is a no-op.
func (c *TaskController) Stop(ctx context.Context, taskID string, force bool) error {
	t, err := c.store.GetTask(taskID)
	if err != nil {
		return err
	}
	if t.Status.Terminal() {
		return nil
	}
	if t.ContainerID != "" {
		if err := c.containers.Stop(ctx, t.ContainerID, force); err != nil {
			return err
		}
	} else {
		if err := c.containers.StopRemoveContainersByTerm(ctx, "datmo-task-"+t.ID, force); err != nil {
			return err
		}
	}
	t.Status = model.TaskStatusFailed
	return c.store.UpdateTask(t)
}

// Rerun checks out a past task's before-snapshot and runs the same
// command against the same artifacts. The new task shares the old one's
// before-snapshot id.
func (c *TaskController) Rerun(ctx context.Context, pctx ProjectContext, taskID string) (*model.Task, error) {
	old, err := c.store.GetTask(taskID)
	if err != nil {
		return nil, err
	}
	if old.BeforeSnapshotID == "" {
		return nil, Errorf(KindTaskRunException, "task %q was never run and has no snapshot to rerun from", taskID)
	}
	before, err := c.store.GetSnapshot(old.BeforeSnapshotID)
	if err != nil {
		return nil, err
	}
	if err := c.snapshots.Checkout(pctx, before.ID); err != nil {
		return nil, err
	}

	t, err := c.Create(pctx, TaskCreateInput{
		Command:     old.Command,
		Ports:       old.Ports,
		GPU:         old.GPU,
		Interactive: old.Interactive,
	})
	if err != nil {
		return nil, err
	}
	return c.Run(ctx, pctx, t.ID, TaskRunInput{
		CodeID:           before.CodeID,
		EnvironmentID:    before.EnvironmentID,
		FileCollectionID: before.FileCollectionID,
		Config:           before.Config,
		Stats:            before.Stats,
	})
}

// List returns the project's tasks, restricted to a session when
// sessionID is non-empty.
func (c *TaskController) List(pctx ProjectContext, sessionID string) ([]*model.Task, error) {
	filter := map[string]any{"model_id": pctx.ModelID}
	if sessionID != "" {
		filter["session_id"] = sessionID
	}
	return c.store.QueryTasks(filter)
}
