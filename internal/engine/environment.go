package engine

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"datmo-go/internal/model"
)

const hardwareInfoFilename = "hardware_info.json"

// EnvironmentCreateInput carries the optional inputs to environment
// creation. Zero values fall back to defaults.
type EnvironmentCreateInput struct {
	DefinitionFilepath string
	Language           string
	Description        string
	HardwareInfo       *model.HardwareInfo
}

// EnvironmentController turns definition files into built, tagged,
// executable environment records.
type EnvironmentController struct {
	store           Store
	files           *FileCollectionController
	containers      ContainerDriver
	logger          Logger
	defaultLanguage string
}

func NewEnvironmentController(store Store, files *FileCollectionController, containers ContainerDriver, defaultLanguage string, logger Logger) *EnvironmentController {
	if defaultLanguage == "" {
		defaultLanguage = "python3"
	}
	return &EnvironmentController{
		store:           store,
		files:           files,
		containers:      containers,
		logger:          logger,
		defaultLanguage: defaultLanguage,
	}
}

// Create resolves a definition file, derives the engine-augmented
// definition and hardware snapshot alongside it, bundles everything into
// a file collection and records the environment. The collection hash is
// the environment's unique hash; a create that reproduces an existing
// hash returns the existing record.
func (c *EnvironmentController) Create(pctx ProjectContext, in EnvironmentCreateInput) (*model.Environment, error) {
	language := in.Language
	if language == "" {
		language = c.defaultLanguage
	}

	definitionPath := in.DefinitionFilepath
	if definitionPath != "" {
		if _, err := os.Stat(definitionPath); err != nil {
			return nil, Errorf(KindPathDoesNotExist, "definition file %q does not exist", definitionPath)
		}
	} else {
		var err error
		definitionPath, err = c.containers.CreateDefaultDefinition(pctx.Root, language)
		if err != nil {
			return nil, err
		}
	}

	dir := filepath.Dir(definitionPath)
	definitionFilename := filepath.Base(definitionPath)

	datmoPath := filepath.Join(dir, "datmo"+definitionFilename)
	if err := c.containers.CreateDatmoDefinition(definitionPath, datmoPath); err != nil {
		return nil, err
	}
	defer os.Remove(datmoPath)

	hardware := CaptureHardwareInfo()
	if in.HardwareInfo != nil {
		hardware = *in.HardwareInfo
	}
	hardwarePath := filepath.Join(dir, hardwareInfoFilename)
	blob, err := json.MarshalIndent(hardware, "", "  ")
	if err != nil {
		return nil, Wrap(KindFileIOError, err, "encoding hardware info")
	}
	if err := os.WriteFile(hardwarePath, blob, 0o644); err != nil {
		return nil, Wrap(KindFileIOError, err, "writing hardware info")
	}
	defer os.Remove(hardwarePath)

	bundle := []string{definitionPath, datmoPath}
	requirementsPath := filepath.Join(dir, "requirements.txt")
	if _, err := os.Stat(requirementsPath); err == nil {
		bundle = append(bundle, requirementsPath)
	}
	bundle = append(bundle, hardwarePath)

	fc, err := c.files.Create(pctx, bundle)
	if err != nil {
		return nil, err
	}

	existing, err := c.store.QueryEnvironments(map[string]any{
		"model_id":    pctx.ModelID,
		"unique_hash": fc.Filehash,
	})
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		return existing[0], nil
	}

	env := &model.Environment{
		ModelID:            pctx.ModelID,
		DefinitionFilename: definitionFilename,
		HardwareInfo:       hardware,
		FileCollectionID:   fc.ID,
		UniqueHash:         fc.Filehash,
		Language:           language,
		Description:        in.Description,
		DriverType:         c.containers.DriverType(),
	}
	if err := c.store.CreateEnvironment(env); err != nil {
		return nil, err
	}
	c.logger.Info("created environment", "id", env.ID, "unique_hash", env.UniqueHash)
	return env, nil
}

// Get looks up an environment record by id.
func (c *EnvironmentController) Get(id string) (*model.Environment, error) {
	env, err := c.store.GetEnvironment(id)
	if err != nil {
		if IsKind(err, KindDoesNotExist) {
			return nil, Errorf(KindEnvironmentDoesNotExist, "environment %q does not exist", id)
		}
		return nil, err
	}
	return env, nil
}

// Build builds the environment's image, tagged with the environment id.
// The definition used is the engine-augmented one inside the
// environment's file collection, so the build is reproducible from
// stored state alone. Idempotent per hash.
func (c *EnvironmentController) Build(ctx context.Context, id string) error {
	env, err := c.Get(id)
	if err != nil {
		return err
	}
	fc, err := c.files.Get(env.FileCollectionID)
	if err != nil {
		return err
	}
	definitionPath := filepath.Join(fc.Path, "datmo"+env.DefinitionFilename)
	if _, err := os.Stat(definitionPath); err != nil {
		return Errorf(KindEnvironmentDoesNotExist,
			"environment %q has no stored definition at %q", id, definitionPath)
	}
	c.logger.Info("building environment", "id", id)
	return c.containers.Build(ctx, env.ID, definitionPath)
}

// Delete removes the built image, every container referencing it, the
// backing file collection and the record.
func (c *EnvironmentController) Delete(ctx context.Context, pctx ProjectContext, id string) error {
	env, err := c.Get(id)
	if err != nil {
		return err
	}
	if err := c.containers.Remove(ctx, env.ID, true); err != nil {
		return err
	}
	if err := c.files.Delete(pctx, env.FileCollectionID); err != nil && !IsKind(err, KindDoesNotExist) {
		return err
	}
	return c.store.DeleteEnvironment(id)
}

// List returns all environment records for the project.
func (c *EnvironmentController) List(pctx ProjectContext) ([]*model.Environment, error) {
	return c.store.QueryEnvironments(map[string]any{"model_id": pctx.ModelID})
}
