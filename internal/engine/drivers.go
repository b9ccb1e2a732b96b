package engine

import (
	"context"

	"datmo-go/internal/model"
)

// SCMDriver records and restores working-tree revisions without touching
// the user's own branch history. Revisions the engine records are kept
// reachable through a dedicated refs namespace.
type SCMDriver interface {
	// Init ensures a revision-tracking repository exists at the project
	// root, the hidden .datmo directory is excluded from tracking, and
	// the engine's refs namespace exists. Fails with DatmoFolderInWorkTree
	// if .datmo is already tracked.
	Init() error

	DriverType() string

	// CurrentHash returns the latest recorded revision id. Fails with
	// UnstagedChanges if the working tree differs from it.
	CurrentHash() (string, error)

	// CreateRef records the current working tree (or, when commitID is
	// non-empty, an existing revision) under the engine's refs namespace
	// and returns the revision id.
	CreateRef(commitID string) (string, error)

	ExistsRef(id string) (bool, error)
	ListRefs() ([]string, error)
	DeleteRef(id string) error

	// LatestRef returns the most recently written ref id, by ref file
	// modification time.
	LatestRef() (string, error)

	// CheckoutRef restores the working tree to the named revision. The
	// .datmo directory is left untouched on all exit paths.
	CheckoutRef(id string) error
}

// VolumeBinding maps a host path into the container.
type VolumeBinding struct {
	Bind string
	Mode string // "rw" or "ro"
}

// ContainerRunOptions is the full set of recognized run parameters.
type ContainerRunOptions struct {
	Command   []string
	Ports     []string // "host:container"
	Name      string
	Volumes   map[string]VolumeBinding // host path -> binding
	Detach    bool
	StdinOpen bool
	TTY       bool
	GPU       bool
}

// ContainerRunResult is what a completed (or detached) run reports.
type ContainerRunResult struct {
	ReturnCode  int
	ContainerID string
	Logs        string
}

// ContainerDriver materializes environments into runnable images and
// executes containers from them.
type ContainerDriver interface {
	DriverType() string

	// Build builds an image tagged tag from the definition file.
	// Intermediate layers are removed on success.
	Build(ctx context.Context, tag, definitionPath string) error

	// Run starts a container from image. Logs are streamed to logPath
	// line-by-line as the process runs and also returned in full. Run
	// blocks until the container exits unless opts.Detach is set.
	Run(ctx context.Context, image string, opts ContainerRunOptions, logPath string) (ContainerRunResult, error)

	// Stop stops a running container; force kills it outright.
	Stop(ctx context.Context, containerID string, force bool) error

	// Remove removes the image tagged tag and any containers built from it.
	Remove(ctx context.Context, tag string, force bool) error

	// StopRemoveContainersByTerm stops and removes all containers whose
	// name matches term.
	StopRemoveContainersByTerm(ctx context.Context, term string, force bool) error

	// CreateDefaultDefinition writes a language-default definition file
	// into dir and returns its path. A requirements manifest is
	// synthesized by import scanning when the language needs one and none
	// exists.
	CreateDefaultDefinition(dir, language string) (string, error)

	// CreateDatmoDefinition derives the engine-augmented definition from
	// the user's definition, writing it to outputPath.
	CreateDatmoDefinition(inputPath, outputPath string) error
}

// FileDriver content-addresses file sets into the immutable store under
// the hidden project directory.
type FileDriver interface {
	Init() error
	DriverType() string

	// CreateCollection hashes the given paths (files or directories, each
	// optionally carrying a "src>dstname" rename target) into a read-only
	// collection directory and returns the filehash. Identical inputs
	// deduplicate to the same hash with no copying.
	CreateCollection(paths []string) (string, error)

	CollectionPath(filehash string) string
	ExistsCollection(filehash string) bool
	DeleteCollection(filehash string) error

	// TransferCollection copies the collection into dstDir with write
	// permissions restored.
	TransferCollection(filehash, dstDir string) error

	ListCollections() ([]string, error)
}

// Store is the typed persistence layer. Create generates ids and
// timestamps when absent and mutates the passed record in place; Update
// refuses unknown ids and refreshes updated_at; Query matches equality
// conjunctions against the stored document.
type Store interface {
	CreateModel(m *model.Model) error
	GetModel(id string) (*model.Model, error)
	UpdateModel(m *model.Model) error
	DeleteModel(id string) error
	QueryModels(filter map[string]any) ([]*model.Model, error)

	CreateCodeRef(c *model.CodeRef) error
	GetCodeRef(id string) (*model.CodeRef, error)
	DeleteCodeRef(id string) error
	QueryCodeRefs(filter map[string]any) ([]*model.CodeRef, error)

	CreateFileCollection(f *model.FileCollection) error
	GetFileCollection(id string) (*model.FileCollection, error)
	DeleteFileCollection(id string) error
	QueryFileCollections(filter map[string]any) ([]*model.FileCollection, error)

	CreateEnvironment(e *model.Environment) error
	GetEnvironment(id string) (*model.Environment, error)
	DeleteEnvironment(id string) error
	QueryEnvironments(filter map[string]any) ([]*model.Environment, error)

	CreateSnapshot(s *model.Snapshot) error
	GetSnapshot(id string) (*model.Snapshot, error)
	UpdateSnapshot(s *model.Snapshot) error
	DeleteSnapshot(id string) error
	QuerySnapshots(filter map[string]any) ([]*model.Snapshot, error)

	CreateTask(t *model.Task) error
	GetTask(id string) (*model.Task, error)
	UpdateTask(t *model.Task) error
	DeleteTask(id string) error
	QueryTasks(filter map[string]any) ([]*model.Task, error)

	CreateSession(s *model.Session) error
	GetSession(id string) (*model.Session, error)
	UpdateSession(s *model.Session) error
	DeleteSession(id string) error
	QuerySessions(filter map[string]any) ([]*model.Session, error)

	Close() error
}

// Logger is the minimal logging interface controllers depend on.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// NopLogger discards everything. Useful in tests.
type NopLogger struct{}

func (NopLogger) Debug(string, ...any) {}
func (NopLogger) Info(string, ...any)  {}
func (NopLogger) Warn(string, ...any)  {}
func (NopLogger) Error(string, ...any) {}
