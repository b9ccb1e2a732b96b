package engine

// ProjectContext identifies the project a controller call operates on.
// It is the in-memory counterpart of .datmo/project_settings.json and is
// passed explicitly instead of living in process-wide state.
type ProjectContext struct {
	Root      string // absolute project root
	ModelID   string
	SessionID string // current session
}
