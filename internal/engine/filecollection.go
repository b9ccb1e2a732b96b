package engine

import (
	"datmo-go/internal/model"
)

// FileCollectionController materializes user path lists into
// content-addressed collection records.
type FileCollectionController struct {
	store  Store
	files  FileDriver
	logger Logger
}

func NewFileCollectionController(store Store, files FileDriver, logger Logger) *FileCollectionController {
	return &FileCollectionController{store: store, files: files, logger: logger}
}

// Create hashes paths into a collection and returns its record. Inputs
// that hash to an existing collection return the existing record.
func (c *FileCollectionController) Create(pctx ProjectContext, paths []string) (*model.FileCollection, error) {
	filehash, err := c.files.CreateCollection(paths)
	if err != nil {
		return nil, err
	}

	existing, err := c.store.QueryFileCollections(map[string]any{
		"model_id": pctx.ModelID,
		"filehash": filehash,
	})
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		return existing[0], nil
	}

	fc := &model.FileCollection{
		ModelID:    pctx.ModelID,
		Filehash:   filehash,
		Path:       c.files.CollectionPath(filehash),
		DriverType: c.files.DriverType(),
	}
	if err := c.store.CreateFileCollection(fc); err != nil {
		return nil, err
	}
	c.logger.Debug("created file collection", "id", fc.ID, "filehash", filehash)
	return fc, nil
}

// Get looks up a collection record by id.
func (c *FileCollectionController) Get(id string) (*model.FileCollection, error) {
	return c.store.GetFileCollection(id)
}

// Delete removes the on-disk collection and the record. The collection
// directory may already be shared away by deduplication with another
// record; in that case only the record is removed.
func (c *FileCollectionController) Delete(pctx ProjectContext, id string) error {
	fc, err := c.store.GetFileCollection(id)
	if err != nil {
		return err
	}
	others, err := c.store.QueryFileCollections(map[string]any{
		"model_id": pctx.ModelID,
		"filehash": fc.Filehash,
	})
	if err != nil {
		return err
	}
	if len(others) <= 1 && c.files.ExistsCollection(fc.Filehash) {
		if err := c.files.DeleteCollection(fc.Filehash); err != nil {
			return err
		}
	}
	return c.store.DeleteFileCollection(id)
}

// List returns all collection records for the project.
func (c *FileCollectionController) List(pctx ProjectContext) ([]*model.FileCollection, error) {
	return c.store.QueryFileCollections(map[string]any{"model_id": pctx.ModelID})
}
