package filestore

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"datmo-go/internal/engine"
)

const (
	dirModeReadOnly  = 0o555
	fileModeReadOnly = 0o444
)

// Local content-addresses file sets into .datmo/collections/ under the
// project root. Collections are immutable and deduplicated by hash.
type Local struct {
	root    string // project root
	modelID string
}

// NewLocal creates a file driver rooted at the given project directory.
// modelID replaces the absolute project prefix when normalizing input
// paths, so hashes are portable across checkout locations.
func NewLocal(root, modelID string) *Local {
	return &Local{root: root, modelID: modelID}
}

func (l *Local) DriverType() string { return "local" }

func (l *Local) collectionsDir() string {
	return filepath.Join(l.root, ".datmo", "collections")
}

// Init ensures the collections directory exists.
func (l *Local) Init() error {
	if err := os.MkdirAll(l.collectionsDir(), 0o755); err != nil {
		return engine.Wrap(engine.KindFileIOError, err, "creating collections directory")
	}
	return nil
}

// entry is one parsed input path, optionally renamed via "src>dstname".
type entry struct {
	src string
	dst string // name inside the collection
}

func parseEntry(raw string) entry {
	if i := strings.IndexByte(raw, '>'); i >= 0 {
		return entry{src: raw[:i], dst: raw[i+1:]}
	}
	return entry{src: raw, dst: filepath.Base(raw)}
}

// normalize replaces the absolute project prefix with the model id so
// two machines holding the same project at different locations agree on
// the hash.
func (l *Local) normalize(path string) string {
	if l.root != "" && strings.HasPrefix(path, l.root) {
		return l.modelID + strings.TrimPrefix(path, l.root)
	}
	return path
}

// CreateCollection hashes the input paths and materializes them as a
// read-only collection directory named by the hash. If a collection with
// the same hash already exists nothing is copied.
func (l *Local) CreateCollection(paths []string) (string, error) {
	entries := make([]entry, 0, len(paths))
	entryHashes := make([]string, 0, len(paths))
	normalized := make([]string, 0, len(paths))

	for _, raw := range paths {
		e := parseEntry(raw)
		info, err := os.Stat(e.src)
		if err != nil {
			return "", engine.Errorf(engine.KindPathDoesNotExist, "path %q does not exist", e.src)
		}

		var h string
		if info.IsDir() {
			h, err = DirHash(e.src)
		} else {
			h, err = FileHash(e.src)
		}
		if err != nil {
			return "", engine.Wrap(engine.KindFileIOError, err, "hashing input path")
		}

		norm := l.normalize(e.src)
		if e.dst != filepath.Base(e.src) {
			norm += ">" + e.dst
		}

		entries = append(entries, e)
		entryHashes = append(entryHashes, h)
		normalized = append(normalized, norm)
	}

	filehash := collectionHash(entryHashes, normalized)
	if l.ExistsCollection(filehash) {
		return filehash, nil
	}

	if err := l.Init(); err != nil {
		return "", err
	}

	tmpDir, err := os.MkdirTemp(l.collectionsDir(), ".tmp-")
	if err != nil {
		return "", engine.Wrap(engine.KindFileIOError, err, "creating temp collection directory")
	}
	success := false
	defer func() {
		if !success {
			restoreWritable(tmpDir)
			os.RemoveAll(tmpDir)
		}
	}()

	for _, e := range entries {
		info, err := os.Stat(e.src)
		if err != nil {
			return "", engine.Errorf(engine.KindPathDoesNotExist, "path %q does not exist", e.src)
		}
		dstPath := filepath.Join(tmpDir, e.dst)
		if info.IsDir() {
			if err := copyTree(e.src, dstPath); err != nil {
				return "", engine.Wrap(engine.KindFileIOError, err, "copying directory into collection")
			}
		} else {
			dstPath = safeDstPath(dstPath)
			if err := copyFile(e.src, dstPath); err != nil {
				return "", engine.Wrap(engine.KindFileIOError, err, "copying file into collection")
			}
		}
	}

	if err := makeReadOnly(tmpDir); err != nil {
		return "", engine.Wrap(engine.KindFileIOError, err, "sealing collection")
	}

	finalDir := l.CollectionPath(filehash)
	if err := os.Rename(tmpDir, finalDir); err != nil {
		// A concurrent creator may have won the rename; the collection is
		// content-addressed, so the existing copy is equally valid.
		if l.ExistsCollection(filehash) {
			return filehash, nil
		}
		return "", engine.Wrap(engine.KindFileIOError, err, "finalizing collection")
	}

	success = true
	return filehash, nil
}

// CollectionPath returns the canonical location of a collection.
func (l *Local) CollectionPath(filehash string) string {
	return filepath.Join(l.collectionsDir(), filehash)
}

// ExistsCollection reports whether a collection directory exists.
func (l *Local) ExistsCollection(filehash string) bool {
	info, err := os.Stat(l.CollectionPath(filehash))
	return err == nil && info.IsDir()
}

// DeleteCollection removes a collection. Write permissions are restored
// first so the read-only tree can be unlinked.
func (l *Local) DeleteCollection(filehash string) error {
	dir := l.CollectionPath(filehash)
	if !l.ExistsCollection(filehash) {
		return engine.Errorf(engine.KindDoesNotExist, "collection %q does not exist", filehash)
	}
	if err := restoreWritable(dir); err != nil {
		return engine.Wrap(engine.KindFileIOError, err, "unsealing collection")
	}
	if err := os.RemoveAll(dir); err != nil {
		return engine.Wrap(engine.KindFileIOError, err, "removing collection")
	}
	return nil
}

// TransferCollection copies a collection into dstDir with write
// permissions restored so the caller can work with the files.
func (l *Local) TransferCollection(filehash, dstDir string) error {
	if !l.ExistsCollection(filehash) {
		return engine.Errorf(engine.KindDoesNotExist, "collection %q does not exist", filehash)
	}
	if err := os.MkdirAll(dstDir, 0o755); err != nil {
		return engine.Wrap(engine.KindFileIOError, err, "creating destination directory")
	}
	if err := copyTreeContents(l.CollectionPath(filehash), dstDir); err != nil {
		return engine.Wrap(engine.KindFileIOError, err, "copying collection")
	}
	return restoreWritable(dstDir)
}

// ListCollections returns the hashes of all stored collections.
func (l *Local) ListCollections() ([]string, error) {
	entries, err := os.ReadDir(l.collectionsDir())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, engine.Wrap(engine.KindFileIOError, err, "listing collections")
	}
	var hashes []string
	for _, e := range entries {
		if e.IsDir() && !strings.HasPrefix(e.Name(), ".") {
			hashes = append(hashes, e.Name())
		}
	}
	return hashes, nil
}

// safeDstPath avoids clobbering an existing top-level file by appending
// a numeric suffix before the extension.
func safeDstPath(dst string) string {
	if _, err := os.Stat(dst); err != nil {
		return dst
	}
	ext := filepath.Ext(dst)
	base := strings.TrimSuffix(dst, ext)
	for i := 1; ; i++ {
		candidate := fmt.Sprintf("%s_%d%s", base, i, ext)
		if _, err := os.Stat(candidate); err != nil {
			return candidate
		}
	}
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// copyTree copies src into dst, creating dst.
func copyTree(src, dst string) error {
	if err := os.MkdirAll(dst, 0o755); err != nil {
		return err
	}
	return copyTreeContents(src, dst)
}

// copyTreeContents copies everything inside src into the existing dst.
func copyTreeContents(src, dst string) error {
	entries, err := os.ReadDir(src)
	if err != nil {
		return err
	}
	for _, e := range entries {
		srcPath := filepath.Join(src, e.Name())
		dstPath := filepath.Join(dst, e.Name())
		if e.IsDir() {
			if err := copyTree(srcPath, dstPath); err != nil {
				return err
			}
		} else {
			if err := copyFile(srcPath, dstPath); err != nil {
				return err
			}
		}
	}
	return nil
}

// makeReadOnly strips the write bit from every file and directory,
// children before parents.
func makeReadOnly(root string) error {
	return chmodTree(root, dirModeReadOnly, fileModeReadOnly)
}

// restoreWritable re-enables writes so a tree can be modified or removed.
func restoreWritable(root string) error {
	return chmodTree(root, 0o755, 0o644)
}

func chmodTree(root string, dirMode, fileMode os.FileMode) error {
	// Directories must be writable while we descend, so fix files on the
	// way in and directories on the way out.
	var dirs []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if dirMode&0o200 != 0 {
				// Opening a read-only directory's children requires write
				// access first when unsealing.
				if err := os.Chmod(path, dirMode); err != nil {
					return err
				}
			}
			dirs = append(dirs, path)
			return nil
		}
		return os.Chmod(path, fileMode)
	})
	if err != nil {
		return err
	}
	for i := len(dirs) - 1; i >= 0; i-- {
		if err := os.Chmod(dirs[i], dirMode); err != nil {
			return err
		}
	}
	return nil
}
