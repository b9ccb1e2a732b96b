package testutil

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"datmo-go/internal/engine"
)

// StubSCMDriver is an in-memory SCM driver. It hands out sequential
// commit ids and tracks refs, so controller tests run without a real
// source-control executable.
type StubSCMDriver struct {
	mu       sync.Mutex
	counter  int
	head     string
	commits  map[string]bool
	refs     map[string]bool
	refOrder []string

	// Dirty makes CurrentHash fail with UnstagedChanges until the next
	// CreateRef records the tree.
	Dirty bool

	CheckedOut []string
}

func NewStubSCMDriver() *StubSCMDriver {
	return &StubSCMDriver{
		commits: make(map[string]bool),
		refs:    make(map[string]bool),
	}
}

func (s *StubSCMDriver) Init() error        { return nil }
func (s *StubSCMDriver) DriverType() string { return "stub" }

func (s *StubSCMDriver) CurrentHash() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Dirty {
		return "", engine.Errorf(engine.KindUnstagedChanges, "working tree has unstaged changes")
	}
	if s.head == "" {
		return "", engine.Errorf(engine.KindCommitDoesNotExist, "no revisions recorded")
	}
	return s.head, nil
}

func (s *StubSCMDriver) CreateRef(commitID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if commitID != "" {
		if !s.commits[commitID] {
			return "", engine.Errorf(engine.KindCommitDoesNotExist, "commit %q does not exist", commitID)
		}
		if !s.refs[commitID] {
			s.refs[commitID] = true
			s.refOrder = append(s.refOrder, commitID)
		}
		return commitID, nil
	}

	if !s.Dirty && s.head != "" {
		// Nothing changed since the last recorded revision; reuse it.
		if !s.refs[s.head] {
			s.refs[s.head] = true
			s.refOrder = append(s.refOrder, s.head)
		}
		return s.head, nil
	}

	s.counter++
	id := fmt.Sprintf("commit-%d", s.counter)
	s.commits[id] = true
	s.refs[id] = true
	s.refOrder = append(s.refOrder, id)
	s.head = id
	s.Dirty = false
	return id, nil
}

func (s *StubSCMDriver) ExistsRef(id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refs[id], nil
}

func (s *StubSCMDriver) ListRefs() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.refOrder...), nil
}

func (s *StubSCMDriver) DeleteRef(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.refs[id] {
		return engine.Errorf(engine.KindDoesNotExist, "ref %q does not exist", id)
	}
	delete(s.refs, id)
	for i, r := range s.refOrder {
		if r == id {
			s.refOrder = append(s.refOrder[:i], s.refOrder[i+1:]...)
			break
		}
	}
	return nil
}

func (s *StubSCMDriver) LatestRef() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.refOrder) == 0 {
		return "", engine.Errorf(engine.KindDoesNotExist, "no refs recorded")
	}
	return s.refOrder[len(s.refOrder)-1], nil
}

func (s *StubSCMDriver) CheckoutRef(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.refs[id] {
		return engine.Errorf(engine.KindCommitDoesNotExist, "ref %q does not exist", id)
	}
	s.CheckedOut = append(s.CheckedOut, id)
	s.head = id
	return nil
}

var _ engine.SCMDriver = (*StubSCMDriver)(nil)

// ContainerRunCall records one Run invocation on the stub driver.
type ContainerRunCall struct {
	Image   string
	Opts    engine.ContainerRunOptions
	LogPath string
}

// StubContainerDriver is an in-memory container driver. Runs succeed
// with configurable results; every call is recorded for assertions.
type StubContainerDriver struct {
	mu sync.Mutex

	RunResult engine.ContainerRunResult
	RunErr    error
	BuildErr  error

	// RunHook, when set, runs inside Run after the call is recorded.
	// Tests use it to simulate a concurrent stop.
	RunHook func()

	Built        []string
	RunCalls     []ContainerRunCall
	Stopped      []string
	RemovedTags  []string
	RemovedTerms []string
}

func NewStubContainerDriver() *StubContainerDriver {
	return &StubContainerDriver{
		RunResult: engine.ContainerRunResult{ReturnCode: 0, ContainerID: "container-1"},
	}
}

func (d *StubContainerDriver) DriverType() string { return "stub" }

func (d *StubContainerDriver) Build(_ context.Context, tag, _ string) error {
	d.mu.Lock()
	d.Built = append(d.Built, tag)
	d.mu.Unlock()
	return d.BuildErr
}

func (d *StubContainerDriver) Run(_ context.Context, image string, opts engine.ContainerRunOptions, logPath string) (engine.ContainerRunResult, error) {
	d.mu.Lock()
	d.RunCalls = append(d.RunCalls, ContainerRunCall{Image: image, Opts: opts, LogPath: logPath})
	hook := d.RunHook
	d.mu.Unlock()

	if hook != nil {
		hook()
	}
	if d.RunErr != nil {
		return engine.ContainerRunResult{}, d.RunErr
	}
	if logPath != "" && d.RunResult.Logs != "" {
		os.MkdirAll(filepath.Dir(logPath), 0o755)
		os.WriteFile(logPath, []byte(d.RunResult.Logs), 0o644)
	}
	return d.RunResult, nil
}

func (d *StubContainerDriver) Stop(_ context.Context, containerID string, _ bool) error {
	d.mu.Lock()
	d.Stopped = append(d.Stopped, containerID)
	d.mu.Unlock()
	return nil
}

func (d *StubContainerDriver) Remove(_ context.Context, tag string, _ bool) error {
	d.mu.Lock()
	d.RemovedTags = append(d.RemovedTags, tag)
	d.mu.Unlock()
	return nil
}

func (d *StubContainerDriver) StopRemoveContainersByTerm(_ context.Context, term string, _ bool) error {
	d.mu.Lock()
	d.RemovedTerms = append(d.RemovedTerms, term)
	d.mu.Unlock()
	return nil
}

func (d *StubContainerDriver) CreateDefaultDefinition(dir, language string) (string, error) {
	path := filepath.Join(dir, "Dockerfile")
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}
	content := "FROM " + language + ":latest\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", engine.Wrap(engine.KindFileIOError, err, "writing default definition")
	}
	return path, nil
}

func (d *StubContainerDriver) CreateDatmoDefinition(inputPath, outputPath string) error {
	data, err := os.ReadFile(inputPath)
	if err != nil {
		return engine.Wrap(engine.KindFileIOError, err, "reading definition file")
	}
	out := append(data, []byte("WORKDIR /home/\n")...)
	if err := os.WriteFile(outputPath, out, 0o644); err != nil {
		return engine.Wrap(engine.KindFileIOError, err, "writing augmented definition")
	}
	return nil
}

var _ engine.ContainerDriver = (*StubContainerDriver)(nil)
