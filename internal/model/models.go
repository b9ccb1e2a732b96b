package model

import "time"

// Model is the project root record. Exactly one exists per initialized
// directory; every other record belongs to it.
type Model struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// CodeRef points at a source-control revision recorded by the engine
// under its private refs namespace. Never mutated after creation.
type CodeRef struct {
	ID         string    `json:"id"`
	ModelID    string    `json:"model_id"`
	CommitID   string    `json:"commit_id"`
	DriverType string    `json:"driver_type"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// FileCollection is a content-addressed bundle of files and directories
// stored read-only under .datmo/collections/<filehash>/.
type FileCollection struct {
	ID         string    `json:"id"`
	ModelID    string    `json:"model_id"`
	Filehash   string    `json:"filehash"`
	Path       string    `json:"path"`
	DriverType string    `json:"driver_type"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// HardwareInfo is a snapshot of the build host taken when an environment
// or task is created. It intentionally describes the host, not the
// container runtime.
type HardwareInfo struct {
	System    string `json:"system"`
	Node      string `json:"node"`
	Release   string `json:"release"`
	Machine   string `json:"machine"`
	Processor string `json:"processor"`
}

// Environment is a buildable container spec. UniqueHash equals the hash
// of the file collection bundling the definition files and hardware info,
// and is unique across environments.
type Environment struct {
	ID                 string       `json:"id"`
	ModelID            string       `json:"model_id"`
	DefinitionFilename string       `json:"definition_filename"`
	HardwareInfo       HardwareInfo `json:"hardware_info"`
	FileCollectionID   string       `json:"file_collection_id"`
	UniqueHash         string       `json:"unique_hash"`
	Language           string       `json:"language"`
	Description        string       `json:"description"`
	DriverType         string       `json:"driver_type"`
	CreatedAt          time.Time    `json:"created_at"`
	UpdatedAt          time.Time    `json:"updated_at"`
}

// Snapshot binds one code revision, one environment, one file bundle,
// plus config and stats into a single immutable unit. Its logical
// identity is the tuple (code, environment, file collection, config,
// stats); only Message and Label may change after creation.
type Snapshot struct {
	ID               string         `json:"id"`
	ModelID          string         `json:"model_id"`
	CodeID           string         `json:"code_id"`
	EnvironmentID    string         `json:"environment_id"`
	FileCollectionID string         `json:"file_collection_id"`
	Config           map[string]any `json:"config"`
	Stats            map[string]any `json:"stats"`
	Message          string         `json:"message"`
	Label            string         `json:"label"`
	SessionID        string         `json:"session_id"`
	TaskID           string         `json:"task_id,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
}

// TaskStatus is the lifecycle state of a Task. Transitions are
// PENDING→RUNNING, RUNNING→SUCCESS, RUNNING→FAILED; terminal states
// never transition again.
type TaskStatus string

const (
	TaskStatusPending TaskStatus = "PENDING"
	TaskStatusRunning TaskStatus = "RUNNING"
	TaskStatusSuccess TaskStatus = "SUCCESS"
	TaskStatusFailed  TaskStatus = "FAILED"
)

// Terminal reports whether the status permits no further transitions.
func (s TaskStatus) Terminal() bool {
	return s == TaskStatusSuccess || s == TaskStatusFailed
}

// Task is one execution of a user command inside a built environment.
// Fields after Interactive are populated during the run.
type Task struct {
	ID          string   `json:"id"`
	ModelID     string   `json:"model_id"`
	SessionID   string   `json:"session_id"`
	Command     []string `json:"command"`
	Ports       []string `json:"ports"`
	GPU         bool     `json:"gpu"`
	Interactive bool     `json:"interactive"`

	BeforeSnapshotID string        `json:"before_snapshot_id,omitempty"`
	TaskDirpath      string        `json:"task_dirpath,omitempty"`
	LogFilepath      string        `json:"log_filepath,omitempty"`
	ContainerID      string        `json:"container_id,omitempty"`
	HardwareInfo     *HardwareInfo `json:"hardware_info,omitempty"`
	Logs             string        `json:"logs,omitempty"`
	AfterSnapshotID  string        `json:"after_snapshot_id,omitempty"`
	Status           TaskStatus    `json:"status"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Session groups tasks and snapshots within a model. Exactly one session
// per model has Current set.
type Session struct {
	ID        string    `json:"id"`
	ModelID   string    `json:"model_id"`
	Name      string    `json:"name"`
	Current   bool      `json:"current"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DefaultSessionName is the session created at project init.
const DefaultSessionName = "default"
