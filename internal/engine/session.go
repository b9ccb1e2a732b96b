package engine

import (
	"datmo-go/internal/model"
)

// SessionController manages the grouping labels for tasks and snapshots.
// Exactly one session per model is current; Select enforces that at
// write time.
type SessionController struct {
	store  Store
	logger Logger
}

func NewSessionController(store Store, logger Logger) *SessionController {
	return &SessionController{store: store, logger: logger}
}

// Create adds a session with the given name. Creating a name that
// already exists returns the existing session.
func (c *SessionController) Create(pctx ProjectContext, name string) (*model.Session, error) {
	if name == "" {
		return nil, Errorf(KindRequiredArgumentMissing, "session name is required")
	}
	existing, err := c.byName(pctx, name)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	s := &model.Session{
		ModelID: pctx.ModelID,
		Name:    name,
		Current: false,
	}
	if err := c.store.CreateSession(s); err != nil {
		return nil, err
	}
	c.logger.Info("created session", "id", s.ID, "name", name)
	return s, nil
}

// Select makes the named session current, clearing the flag on every
// other session first.
func (c *SessionController) Select(pctx ProjectContext, name string) (*model.Session, error) {
	target, err := c.byName(pctx, name)
	if err != nil {
		return nil, err
	}
	if target == nil {
		return nil, Errorf(KindSessionDoesNotExist, "session %q does not exist", name)
	}

	current, err := c.store.QuerySessions(map[string]any{
		"model_id": pctx.ModelID,
		"current":  true,
	})
	if err != nil {
		return nil, err
	}
	for _, s := range current {
		if s.ID == target.ID {
			continue
		}
		s.Current = false
		if err := c.store.UpdateSession(s); err != nil {
			return nil, err
		}
	}

	target.Current = true
	if err := c.store.UpdateSession(target); err != nil {
		return nil, err
	}
	return target, nil
}

// Find returns the session with the given name.
func (c *SessionController) Find(pctx ProjectContext, name string) (*model.Session, error) {
	s, err := c.byName(pctx, name)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, Errorf(KindSessionDoesNotExist, "session %q does not exist", name)
	}
	return s, nil
}

// Current returns the session marked current.
func (c *SessionController) Current(pctx ProjectContext) (*model.Session, error) {
	sessions, err := c.store.QuerySessions(map[string]any{
		"model_id": pctx.ModelID,
		"current":  true,
	})
	if err != nil {
		return nil, err
	}
	if len(sessions) == 0 {
		return nil, Errorf(KindSessionDoesNotExist, "no current session")
	}
	return sessions[0], nil
}

// Delete removes a session. The default session and the current session
// cannot be deleted.
func (c *SessionController) Delete(pctx ProjectContext, name string) error {
	if name == model.DefaultSessionName {
		return Errorf(KindInvalidArgumentType, "the %q session cannot be deleted", model.DefaultSessionName)
	}
	target, err := c.byName(pctx, name)
	if err != nil {
		return err
	}
	if target == nil {
		return Errorf(KindSessionDoesNotExist, "session %q does not exist", name)
	}
	if target.Current {
		return Errorf(KindInvalidArgumentType, "session %q is current and cannot be deleted", name)
	}
	return c.store.DeleteSession(target.ID)
}

// List returns all sessions for the project.
func (c *SessionController) List(pctx ProjectContext) ([]*model.Session, error) {
	return c.store.QuerySessions(map[string]any{"model_id": pctx.ModelID})
}

func (c *SessionController) byName(pctx ProjectContext, name string) (*model.Session, error) {
	sessions, err := c.store.QuerySessions(map[string]any{
		"model_id": pctx.ModelID,
		"name":     name,
	})
	if err != nil {
		return nil, err
	}
	if len(sessions) == 0 {
		return nil, nil
	}
	return sessions[0], nil
}
