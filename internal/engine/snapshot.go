package engine

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"datmo-go/internal/model"
)

// SnapshotCreateInput carries the optional inputs to snapshot creation.
// Ids left empty are resolved from the current project state. Config and
// Stats may be supplied inline, by explicit file path, or by a filename
// searched within Paths; path and filename are mutually exclusive.
type SnapshotCreateInput struct {
	CodeID           string
	EnvironmentID    string
	FileCollectionID string
	Paths            []string

	Config         map[string]any
	ConfigFilepath string
	ConfigFilename string

	Stats         map[string]any
	StatsFilepath string
	StatsFilename string

	Message   string
	Label     string
	SessionID string
	TaskID    string
}

// SnapshotUpdateInput names the only mutable snapshot fields.
type SnapshotUpdateInput struct {
	Message *string
	Label   *string
}

// SnapshotController binds code, environment, files, config and stats
// into immutable snapshot records with a deduplicated logical identity.
type SnapshotController struct {
	store        Store
	scm          SCMDriver
	files        FileDriver
	code         *CodeController
	environments *EnvironmentController
	collections  *FileCollectionController
	logger       Logger
}

func NewSnapshotController(
	store Store,
	scm SCMDriver,
	files FileDriver,
	code *CodeController,
	environments *EnvironmentController,
	collections *FileCollectionController,
	logger Logger,
) *SnapshotController {
	return &SnapshotController{
		store:        store,
		scm:          scm,
		files:        files,
		code:         code,
		environments: environments,
		collections:  collections,
		logger:       logger,
	}
}

// Create resolves the missing pieces of the input, computes the logical
// tuple (code, environment, file collection, config, stats) and returns
// the existing snapshot when the tuple is already recorded. Otherwise a
// new record is persisted.
func (c *SnapshotController) Create(pctx ProjectContext, in SnapshotCreateInput) (*model.Snapshot, error) {
	if in.ConfigFilepath != "" && in.ConfigFilename != "" {
		return nil, Errorf(KindMutuallyExclusiveArguments,
			"config_filepath and config_filename are mutually exclusive")
	}
	if in.StatsFilepath != "" && in.StatsFilename != "" {
		return nil, Errorf(KindMutuallyExclusiveArguments,
			"stats_filepath and stats_filename are mutually exclusive")
	}

	codeID := in.CodeID
	if codeID == "" {
		ref, err := c.code.Create(pctx, "")
		if err != nil {
			return nil, err
		}
		codeID = ref.ID
	} else if _, err := c.store.GetCodeRef(codeID); err != nil {
		return nil, err
	}

	environmentID := in.EnvironmentID
	if environmentID == "" {
		env, err := c.environments.Create(pctx, EnvironmentCreateInput{})
		if err != nil {
			return nil, err
		}
		environmentID = env.ID
	} else if _, err := c.environments.Get(environmentID); err != nil {
		return nil, err
	}

	fileCollectionID := in.FileCollectionID
	if fileCollectionID == "" {
		fc, err := c.collections.Create(pctx, in.Paths)
		if err != nil {
			return nil, err
		}
		fileCollectionID = fc.ID
	} else if _, err := c.store.GetFileCollection(fileCollectionID); err != nil {
		return nil, err
	}

	config, err := resolveMapping(in.Config, in.ConfigFilepath, in.ConfigFilename, in.Paths)
	if err != nil {
		return nil, err
	}
	stats, err := resolveMapping(in.Stats, in.StatsFilepath, in.StatsFilename, in.Paths)
	if err != nil {
		return nil, err
	}

	candidates, err := c.store.QuerySnapshots(map[string]any{
		"model_id":           pctx.ModelID,
		"code_id":            codeID,
		"environment_id":     environmentID,
		"file_collection_id": fileCollectionID,
	})
	if err != nil {
		return nil, err
	}
	for _, existing := range candidates {
		sameConfig, err := jsonEqual(existing.Config, config)
		if err != nil {
			return nil, err
		}
		sameStats, err := jsonEqual(existing.Stats, stats)
		if err != nil {
			return nil, err
		}
		if sameConfig && sameStats {
			return existing, nil
		}
	}

	sessionID := in.SessionID
	if sessionID == "" {
		sessionID = pctx.SessionID
	}

	snap := &model.Snapshot{
		ModelID:          pctx.ModelID,
		CodeID:           codeID,
		EnvironmentID:    environmentID,
		FileCollectionID: fileCollectionID,
		Config:           config,
		Stats:            stats,
		Message:          in.Message,
		Label:            in.Label,
		SessionID:        sessionID,
		TaskID:           in.TaskID,
	}
	if err := c.store.CreateSnapshot(snap); err != nil {
		return nil, err
	}
	c.logger.Info("created snapshot", "id", snap.ID, "message", snap.Message)
	return snap, nil
}

// resolveMapping resolves config or stats content: inline value first,
// then an explicit file path, then a filename searched inside each input
// directory. With no input at all the result is empty; a file merely
// sitting in one of the paths is never absorbed on its own.
func resolveMapping(inline map[string]any, filePath, fileName string, paths []string) (map[string]any, error) {
	if inline != nil {
		return inline, nil
	}
	if filePath != "" {
		return readMappingFile(filePath)
	}
	if fileName == "" {
		return map[string]any{}, nil
	}
	for _, raw := range paths {
		src := raw
		if i := strings.IndexByte(raw, '>'); i >= 0 {
			src = raw[:i]
		}
		info, err := os.Stat(src)
		if err != nil || !info.IsDir() {
			continue
		}
		candidate := filepath.Join(src, fileName)
		if _, err := os.Stat(candidate); err == nil {
			return readMappingFile(candidate)
		}
	}
	return nil, Errorf(KindPathDoesNotExist, "no file named %q found in the given paths", fileName)
}

func readMappingFile(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, Errorf(KindPathDoesNotExist, "file %q does not exist", path)
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, Wrap(KindInvalidArgumentType, err, fmt.Sprintf("decoding %q", path))
	}
	return out, nil
}

// jsonEqual compares two values through canonical JSON so that map key
// order and numeric representation differences do not matter.
func jsonEqual(a, b any) (bool, error) {
	ca, err := canonicalJSON(a)
	if err != nil {
		return false, err
	}
	cb, err := canonicalJSON(b)
	if err != nil {
		return false, err
	}
	return ca == cb, nil
}

func canonicalJSON(v any) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("canonicalizing value: %w", err)
	}
	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return "", fmt.Errorf("canonicalizing value: %w", err)
	}
	out, err := json.Marshal(decoded)
	if err != nil {
		return "", fmt.Errorf("canonicalizing value: %w", err)
	}
	return string(out), nil
}

// Get looks up a snapshot by id.
func (c *SnapshotController) Get(id string) (*model.Snapshot, error) {
	return c.store.GetSnapshot(id)
}

// Checkout restores the working tree and auxiliary files to the
// snapshot's state. The current tree must be clean; a ref is recorded
// for it first so no work is lost.
func (c *SnapshotController) Checkout(pctx ProjectContext, id string) error {
	snap, err := c.store.GetSnapshot(id)
	if err != nil {
		return err
	}

	currentHash, err := c.scm.CurrentHash()
	if err != nil {
		return err
	}
	if _, err := c.code.Create(pctx, currentHash); err != nil {
		return err
	}

	ref, err := c.store.GetCodeRef(snap.CodeID)
	if err != nil {
		return err
	}
	if err := c.scm.CheckoutRef(ref.CommitID); err != nil {
		return err
	}

	fc, err := c.store.GetFileCollection(snap.FileCollectionID)
	if err != nil {
		return err
	}
	dst := filepath.Join(pctx.Root, ".datmo", "snapshots", snap.ID)
	if err := c.files.TransferCollection(fc.Filehash, dst); err != nil {
		return err
	}
	c.logger.Info("checked out snapshot", "id", snap.ID)
	return nil
}

// Update changes a snapshot's message or label. All other fields are
// part of its identity and immutable.
func (c *SnapshotController) Update(id string, in SnapshotUpdateInput) (*model.Snapshot, error) {
	snap, err := c.store.GetSnapshot(id)
	if err != nil {
		return nil, err
	}
	if in.Message != nil {
		snap.Message = *in.Message
	}
	if in.Label != nil {
		snap.Label = *in.Label
	}
	if err := c.store.UpdateSnapshot(snap); err != nil {
		return nil, err
	}
	return snap, nil
}

// Delete removes the snapshot record. Referenced artifacts stay; they
// are content-addressed and may be shared.
func (c *SnapshotController) Delete(id string) error {
	return c.store.DeleteSnapshot(id)
}

// List returns the project's snapshots, restricted to a session when
// sessionID is non-empty.
func (c *SnapshotController) List(pctx ProjectContext, sessionID string) ([]*model.Snapshot, error) {
	filter := map[string]any{"model_id": pctx.ModelID}
	if sessionID != "" {
		filter["session_id"] = sessionID
	}
	return c.store.QuerySnapshots(filter)
}

// Diff renders a field-by-field comparison of two snapshots.
func (c *SnapshotController) Diff(id1, id2 string) (string, error) {
	a, err := c.store.GetSnapshot(id1)
	if err != nil {
		return "", err
	}
	b, err := c.store.GetSnapshot(id2)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%-20s %-40s %-40s\n", "attribute", a.ID, b.ID)
	row := func(name, va, vb string) {
		marker := " "
		if va != vb {
			marker = "*"
		}
		fmt.Fprintf(&sb, "%s%-19s %-40s %-40s\n", marker, name, va, vb)
	}
	row("message", a.Message, b.Message)
	row("label", a.Label, b.Label)
	row("code_id", a.CodeID, b.CodeID)
	row("environment_id", a.EnvironmentID, b.EnvironmentID)
	row("file_collection_id", a.FileCollectionID, b.FileCollectionID)
	row("config", mustCanonical(a.Config), mustCanonical(b.Config))
	row("stats", mustCanonical(a.Stats), mustCanonical(b.Stats))
	return sb.String(), nil
}

// Inspect renders the full detail of a snapshot.
func (c *SnapshotController) Inspect(id string) (string, error) {
	snap, err := c.store.GetSnapshot(id)
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "Snapshot %s\n", snap.ID)
	fmt.Fprintf(&sb, "  message:            %s\n", snap.Message)
	fmt.Fprintf(&sb, "  label:              %s\n", snap.Label)
	fmt.Fprintf(&sb, "  session_id:         %s\n", snap.SessionID)
	if snap.TaskID != "" {
		fmt.Fprintf(&sb, "  task_id:            %s\n", snap.TaskID)
	}
	fmt.Fprintf(&sb, "  code_id:            %s\n", snap.CodeID)
	fmt.Fprintf(&sb, "  environment_id:     %s\n", snap.EnvironmentID)
	fmt.Fprintf(&sb, "  file_collection_id: %s\n", snap.FileCollectionID)
	fmt.Fprintf(&sb, "  config:             %s\n", mustCanonical(snap.Config))
	fmt.Fprintf(&sb, "  stats:              %s\n", mustCanonical(snap.Stats))
	fmt.Fprintf(&sb, "  created_at:         %s\n", snap.CreatedAt.Format("2006-01-02 15:04:05"))
	return sb.String(), nil
}

func mustCanonical(v map[string]any) string {
	if len(v) == 0 {
		return "{}"
	}
	keys := make([]string, 0, len(v))
	for k := range v {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		raw, err := json.Marshal(v[k])
		if err != nil {
			raw = []byte(fmt.Sprintf("%v", v[k]))
		}
		parts = append(parts, fmt.Sprintf("%q:%s", k, raw))
	}
	return "{" + strings.Join(parts, ",") + "}"
}
