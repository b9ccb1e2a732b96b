package engine

import (
	"datmo-go/internal/model"
)

// CodeController creates and looks up code references backed by the SCM
// driver's hidden refs namespace.
type CodeController struct {
	store  Store
	scm    SCMDriver
	logger Logger
}

func NewCodeController(store Store, scm SCMDriver, logger Logger) *CodeController {
	return &CodeController{store: store, scm: scm, logger: logger}
}

// Create records a revision ref and returns the code record pointing at
// it. An empty commitID captures the current working tree. Re-creating a
// ref for a commit that already has a record returns the existing record.
func (c *CodeController) Create(pctx ProjectContext, commitID string) (*model.CodeRef, error) {
	id, err := c.scm.CreateRef(commitID)
	if err != nil {
		return nil, err
	}

	existing, err := c.store.QueryCodeRefs(map[string]any{
		"model_id":  pctx.ModelID,
		"commit_id": id,
	})
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		return existing[0], nil
	}

	ref := &model.CodeRef{
		ModelID:    pctx.ModelID,
		CommitID:   id,
		DriverType: c.scm.DriverType(),
	}
	if err := c.store.CreateCodeRef(ref); err != nil {
		return nil, err
	}
	c.logger.Debug("created code ref", "id", ref.ID, "commit_id", id)
	return ref, nil
}

// Get looks up a code record by id.
func (c *CodeController) Get(id string) (*model.CodeRef, error) {
	return c.store.GetCodeRef(id)
}

// Delete removes the ref and the record.
func (c *CodeController) Delete(id string) error {
	ref, err := c.store.GetCodeRef(id)
	if err != nil {
		return err
	}
	if err := c.scm.DeleteRef(ref.CommitID); err != nil {
		return err
	}
	return c.store.DeleteCodeRef(id)
}

// List returns all code records for the project.
func (c *CodeController) List(pctx ProjectContext) ([]*model.CodeRef, error) {
	return c.store.QueryCodeRefs(map[string]any{"model_id": pctx.ModelID})
}
