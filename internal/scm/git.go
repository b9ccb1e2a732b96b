package scm

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"datmo-go/internal/engine"
)

// minimum git version the driver supports
var minGitVersion = [3]int{1, 9, 7}

// Git records working-tree revisions under the refs/datmo namespace so
// the user's own branches and history stay untouched.
type Git struct {
	root     string // project root (the repository work tree)
	execPath string // git executable
}

// NewGit creates a git driver for the repository at root. execPath
// defaults to "git" when empty. The installed git version is checked
// against the minimum the driver supports.
func NewGit(root, execPath string) (*Git, error) {
	if execPath == "" {
		execPath = "git"
	}
	g := &Git{root: root, execPath: execPath}

	out, _, err := g.run("version")
	if err != nil {
		return nil, engine.Wrap(engine.KindGitExecutionError, err, "checking git version")
	}
	version := parseGitVersion(out)
	if !versionAtLeast(version, minGitVersion) {
		return nil, engine.Errorf(engine.KindGitExecutionError,
			"git version %d.%d.%d is older than the required %d.%d.%d",
			version[0], version[1], version[2],
			minGitVersion[0], minGitVersion[1], minGitVersion[2])
	}
	return g, nil
}

func (g *Git) DriverType() string { return "git" }

// run executes git with the given arguments in the project root,
// capturing stdout and stderr separately. Non-zero exits become
// GitExecutionError carrying the command line.
func (g *Git) run(args ...string) (string, string, error) {
	cmd := exec.Command(g.execPath, args...)
	cmd.Dir = g.root
	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return stdout.String(), stderr.String(), engine.Wrap(engine.KindGitExecutionError, err,
			fmt.Sprintf("git %s: %s", strings.Join(args, " "), strings.TrimSpace(stderr.String())))
	}
	return strings.TrimSpace(stdout.String()), stderr.String(), nil
}

func parseGitVersion(out string) [3]int {
	// "git version 2.39.2" (possibly with a platform suffix)
	fields := strings.Fields(out)
	if len(fields) < 3 {
		return [3]int{}
	}
	parts := strings.Split(fields[2], ".")
	var v [3]int
	for i := 0; i < 3 && i < len(parts); i++ {
		n, err := strconv.Atoi(parts[i])
		if err != nil {
			break
		}
		v[i] = n
	}
	return v
}

func versionAtLeast(v, min [3]int) bool {
	for i := 0; i < 3; i++ {
		if v[i] != min[i] {
			return v[i] > min[i]
		}
	}
	return true
}

func (g *Git) gitDir() string  { return filepath.Join(g.root, ".git") }
func (g *Git) refsDir() string { return filepath.Join(g.gitDir(), "refs", "datmo") }

// Init ensures a repository exists at the project root, the .datmo
// directory is excluded from tracking, and the refs/datmo namespace
// exists. Fails with DatmoFolderInWorkTree when .datmo is already
// tracked.
func (g *Git) Init() error {
	if _, err := os.Stat(g.gitDir()); os.IsNotExist(err) {
		if _, _, err := g.run("init"); err != nil {
			return err
		}
	}

	// .datmo must never appear in the user's tracked files.
	out, _, err := g.run("ls-files", ".datmo")
	if err == nil && out != "" {
		return engine.Errorf(engine.KindDatmoFolderInWorkTree,
			".datmo is tracked by the repository; remove it from the index first")
	}

	if err := g.ensureExclude(); err != nil {
		return err
	}
	if err := os.MkdirAll(g.refsDir(), 0o755); err != nil {
		return engine.Wrap(engine.KindFileIOError, err, "creating refs/datmo directory")
	}
	return nil
}

// ensureExclude keeps ".datmo/*" in .git/info/exclude so engine state
// never shows up in user diffs. info/exclude is used instead of
// .gitignore so the user's own files stay untouched.
func (g *Git) ensureExclude() error {
	infoDir := filepath.Join(g.gitDir(), "info")
	if err := os.MkdirAll(infoDir, 0o755); err != nil {
		return engine.Wrap(engine.KindFileIOError, err, "creating .git/info")
	}
	excludePath := filepath.Join(infoDir, "exclude")
	data, err := os.ReadFile(excludePath)
	if err != nil && !os.IsNotExist(err) {
		return engine.Wrap(engine.KindFileIOError, err, "reading info/exclude")
	}
	if strings.Contains(string(data), ".datmo/*") {
		return nil
	}
	f, err := os.OpenFile(excludePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return engine.Wrap(engine.KindFileIOError, err, "opening info/exclude")
	}
	defer f.Close()
	if len(data) > 0 && !strings.HasSuffix(string(data), "\n") {
		fmt.Fprintln(f)
	}
	if _, err := fmt.Fprintln(f, ".datmo/*"); err != nil {
		return engine.Wrap(engine.KindFileIOError, err, "writing info/exclude")
	}
	return nil
}

// CurrentHash returns the latest recorded revision id, failing with
// UnstagedChanges when the working tree differs from it.
func (g *Git) CurrentHash() (string, error) {
	status, _, err := g.run("status", "--porcelain")
	if err != nil {
		return "", err
	}
	if status != "" {
		return "", engine.Errorf(engine.KindUnstagedChanges,
			"working tree has uncommitted changes")
	}
	hash, _, err := g.run("log", "--format=%H", "-n", "1")
	if err != nil {
		return "", engine.Wrap(engine.KindCommitDoesNotExist, err, "no revisions recorded yet")
	}
	return hash, nil
}

// CreateRef records a revision under refs/datmo and returns its id.
// With an empty commitID the entire working tree is staged and committed
// on the current branch, then the branch tip is reset back so the user's
// history is unchanged while the revision stays reachable via the ref.
// An unchanged tree reuses the latest revision instead of committing.
func (g *Git) CreateRef(commitID string) (string, error) {
	if err := os.MkdirAll(g.refsDir(), 0o755); err != nil {
		return "", engine.Wrap(engine.KindFileIOError, err, "creating refs/datmo directory")
	}

	if commitID != "" {
		if _, _, err := g.run("cat-file", "-e", commitID+"^{commit}"); err != nil {
			return "", engine.Errorf(engine.KindCommitDoesNotExist,
				"commit %q does not exist in history", commitID)
		}
		return commitID, g.writeRef(commitID)
	}

	prev, _, prevErr := g.run("rev-parse", "--verify", "HEAD")

	// An unchanged tree has nothing to commit; the latest revision is the
	// revision. A fresh repository with nothing to record gets an initial
	// empty commit so there is always a revision to point at.
	status, _, err := g.run("status", "--porcelain")
	if err != nil {
		return "", err
	}
	if status == "" {
		if prevErr == nil && prev != "" {
			return prev, g.writeRef(prev)
		}
		if _, _, err := g.run("commit", "--allow-empty", "-m", "auto commit by datmo"); err != nil {
			return "", engine.Wrap(engine.KindCommitFailed, err, "recording initial revision")
		}
		head, _, err := g.run("log", "--format=%H", "-n", "1")
		if err != nil {
			return "", err
		}
		return head, g.writeRef(head)
	}

	if _, _, err := g.run("add", "-A"); err != nil {
		return "", err
	}
	if _, _, err := g.run("commit", "-m", "auto commit by datmo"); err != nil {
		return "", engine.Wrap(engine.KindCommitFailed, err, "recording working tree")
	}

	commitID, _, err = g.run("log", "--format=%H", "-n", "1")
	if err != nil {
		return "", err
	}

	// Reset the branch tip back to where the user left it; the new
	// revision stays reachable through refs/datmo. On an empty repository
	// there is no previous tip to restore.
	if prevErr == nil && prev != "" && prev != commitID {
		if _, _, err := g.run("reset", prev); err != nil {
			return "", err
		}
	}

	return commitID, g.writeRef(commitID)
}

func (g *Git) writeRef(commitID string) error {
	refPath := filepath.Join(g.refsDir(), commitID)
	if err := os.WriteFile(refPath, []byte(commitID+"\n"), 0o644); err != nil {
		return engine.Wrap(engine.KindFileIOError, err, "writing code ref")
	}
	return nil
}

// ExistsRef reports whether a ref for the given revision id exists.
func (g *Git) ExistsRef(id string) (bool, error) {
	_, err := os.Stat(filepath.Join(g.refsDir(), id))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, engine.Wrap(engine.KindFileIOError, err, "checking code ref")
	}
	return true, nil
}

// ListRefs returns all recorded revision ids.
func (g *Git) ListRefs() ([]string, error) {
	entries, err := os.ReadDir(g.refsDir())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, engine.Wrap(engine.KindFileIOError, err, "listing code refs")
	}
	var ids []string
	for _, e := range entries {
		if !e.IsDir() {
			ids = append(ids, e.Name())
		}
	}
	return ids, nil
}

// DeleteRef removes the ref for the given revision id.
func (g *Git) DeleteRef(id string) error {
	refPath := filepath.Join(g.refsDir(), id)
	if err := os.Remove(refPath); err != nil {
		if os.IsNotExist(err) {
			return engine.Errorf(engine.KindDoesNotExist, "code ref %q does not exist", id)
		}
		return engine.Wrap(engine.KindFileIOError, err, "deleting code ref")
	}
	return nil
}

// LatestRef returns the most recently written ref id, by ref file
// modification time.
func (g *Git) LatestRef() (string, error) {
	entries, err := os.ReadDir(g.refsDir())
	if err != nil {
		return "", engine.Wrap(engine.KindFileIOError, err, "listing code refs")
	}
	type refInfo struct {
		id    string
		mtime int64
	}
	var refs []refInfo
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return "", engine.Wrap(engine.KindFileIOError, err, "reading code ref info")
		}
		refs = append(refs, refInfo{id: e.Name(), mtime: info.ModTime().UnixNano()})
	}
	if len(refs) == 0 {
		return "", engine.Errorf(engine.KindDoesNotExist, "no code refs recorded")
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i].mtime > refs[j].mtime })
	return refs[0].id, nil
}

// CheckoutRef restores the working tree to the revision named by
// refs/datmo/<id>. The .datmo directory is excluded from tracking and is
// therefore untouched on all exit paths.
func (g *Git) CheckoutRef(id string) error {
	exists, err := g.ExistsRef(id)
	if err != nil {
		return err
	}
	if !exists {
		return engine.Errorf(engine.KindDoesNotExist, "code ref %q does not exist", id)
	}
	_, _, err = g.run("checkout", "refs/datmo/"+id)
	return err
}

// Compile-time check that Git implements the engine's SCM driver.
var _ engine.SCMDriver = (*Git)(nil)
