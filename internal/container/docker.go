package container

import (
	"context"
	"embed"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"datmo-go/internal/engine"
)

//go:embed templates/*
var templates embed.FS

// Docker materializes environments into images and runs containers from
// them by shelling out to the docker CLI against the daemon socket.
type Docker struct {
	root        string // project root, used as the build context
	execPath    string // docker executable
	socket      string // daemon socket, e.g. unix:///var/run/docker.sock
	scannerPath string // requirements scanner executable
}

// NewDocker creates a docker driver for the project at root. Empty
// execPath, socket and scannerPath fall back to the defaults.
func NewDocker(root, execPath, socket, scannerPath string) *Docker {
	if execPath == "" {
		execPath = "docker"
	}
	if socket == "" {
		socket = "unix:///var/run/docker.sock"
	}
	if scannerPath == "" {
		scannerPath = "pipreqs"
	}
	return &Docker{root: root, execPath: execPath, socket: socket, scannerPath: scannerPath}
}

func (d *Docker) DriverType() string { return "docker" }

// prefix returns the leading docker arguments pointing at the daemon.
func (d *Docker) prefix() []string {
	return []string{"-H", d.socket}
}

// run executes docker with the given arguments, capturing stdout and
// stderr separately. Non-zero exits become EnvironmentExecutionError
// carrying the command line.
func (d *Docker) run(ctx context.Context, args ...string) (string, string, error) {
	full := append(d.prefix(), args...)
	cmd := exec.CommandContext(ctx, d.execPath, full...)
	cmd.Dir = d.root
	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return stdout.String(), stderr.String(), engine.Wrap(engine.KindEnvironmentExecutionError, err,
			fmt.Sprintf("docker %s: %s", strings.Join(args, " "), strings.TrimSpace(stderr.String())))
	}
	return strings.TrimSpace(stdout.String()), stderr.String(), nil
}

// Build builds an image tagged tag from the definition file. --rm
// removes intermediate containers on success.
func (d *Docker) Build(ctx context.Context, tag, definitionPath string) error {
	contextDir := filepath.Dir(definitionPath)
	_, _, err := d.run(ctx, "build", "-t", tag, "-f", definitionPath, "--rm", contextDir)
	return err
}

// runArgs translates run options into docker CLI arguments.
func runArgs(opts engine.ContainerRunOptions, image string) []string {
	args := []string{"run"}
	if opts.Name != "" {
		args = append(args, "--name", opts.Name)
	}
	if opts.StdinOpen {
		args = append(args, "-i")
	}
	if opts.TTY {
		args = append(args, "-t")
	}
	if opts.Detach {
		args = append(args, "-d")
	}
	if opts.GPU {
		args = append(args, "--gpus", "all")
	}
	for host, binding := range opts.Volumes {
		args = append(args, "-v", host+":"+binding.Bind+":"+binding.Mode)
	}
	for _, p := range opts.Ports {
		args = append(args, "-p", p)
	}
	args = append(args, image)
	args = append(args, opts.Command...)
	return args
}

// syncWriter serializes writes from the log-follow command so the log
// file and the in-memory copy stay consistent.
type syncWriter struct {
	mu   sync.Mutex
	file *os.File
	buf  strings.Builder
}

func (w *syncWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.buf.Write(p)
	return w.file.Write(p)
}

func (w *syncWriter) String() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.buf.String()
}

// Run starts a container from image. The default path starts the
// container detached, then follows its logs into logPath while waiting
// for the exit code; this keeps the partial log on disk if the container
// is stopped from another caller. Interactive runs attach the caller's
// stdin instead; Detach returns as soon as the container id is known.
func (d *Docker) Run(ctx context.Context, image string, opts engine.ContainerRunOptions, logPath string) (engine.ContainerRunResult, error) {
	if opts.Detach {
		detachOpts := opts
		detachOpts.Detach = true
		id, _, err := d.run(ctx, runArgs(detachOpts, image)...)
		if err != nil {
			return engine.ContainerRunResult{}, err
		}
		return engine.ContainerRunResult{ReturnCode: 0, ContainerID: id}, nil
	}

	if err := os.MkdirAll(filepath.Dir(logPath), 0o755); err != nil {
		return engine.ContainerRunResult{}, engine.Wrap(engine.KindFileIOError, err, "creating log directory")
	}
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return engine.ContainerRunResult{}, engine.Wrap(engine.KindFileIOError, err, "opening log file")
	}
	defer logFile.Close()
	w := &syncWriter{file: logFile}

	if opts.StdinOpen {
		return d.runAttached(ctx, image, opts, w)
	}

	// Start detached so the container id is known before the run
	// completes, then follow logs and wait for the exit code.
	detachOpts := opts
	detachOpts.Detach = true
	containerID, _, err := d.run(ctx, runArgs(detachOpts, image)...)
	if err != nil {
		return engine.ContainerRunResult{}, err
	}

	var returnCode int
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		full := append(d.prefix(), "logs", "--follow", containerID)
		cmd := exec.CommandContext(gctx, d.execPath, full...)
		cmd.Stdout = w
		cmd.Stderr = w
		return cmd.Run()
	})
	g.Go(func() error {
		out, _, err := d.run(gctx, "wait", containerID)
		if err != nil {
			return err
		}
		code, err := strconv.Atoi(strings.TrimSpace(out))
		if err != nil {
			return fmt.Errorf("parsing container exit code %q: %w", out, err)
		}
		returnCode = code
		return nil
	})
	if err := g.Wait(); err != nil {
		// The partial log is already on disk; surface what we captured.
		return engine.ContainerRunResult{ContainerID: containerID, Logs: w.String()},
			engine.Wrap(engine.KindEnvironmentExecutionError, err, "waiting for container")
	}

	return engine.ContainerRunResult{
		ReturnCode:  returnCode,
		ContainerID: containerID,
		Logs:        w.String(),
	}, nil
}

// runAttached wires the caller's stdin into the container for
// interactive sessions.
func (d *Docker) runAttached(ctx context.Context, image string, opts engine.ContainerRunOptions, w *syncWriter) (engine.ContainerRunResult, error) {
	full := append(d.prefix(), runArgs(opts, image)...)
	cmd := exec.CommandContext(ctx, d.execPath, full...)
	cmd.Dir = d.root
	cmd.Stdin = os.Stdin
	cmd.Stdout = w
	cmd.Stderr = w

	returnCode := 0
	if err := cmd.Run(); err != nil {
		exitErr, ok := err.(*exec.ExitError)
		if !ok {
			return engine.ContainerRunResult{Logs: w.String()},
				engine.Wrap(engine.KindEnvironmentExecutionError, err, "running container")
		}
		returnCode = exitErr.ExitCode()
	}

	containerID := ""
	if opts.Name != "" {
		out, _, err := d.run(ctx, "ps", "-a", "-q", "--filter", "name="+opts.Name)
		if err == nil {
			if ids := strings.Fields(out); len(ids) > 0 {
				containerID = ids[0]
			}
		}
	}

	return engine.ContainerRunResult{
		ReturnCode:  returnCode,
		ContainerID: containerID,
		Logs:        w.String(),
	}, nil
}

// Stop stops a running container. force removes it outright, which also
// kills it.
func (d *Docker) Stop(ctx context.Context, containerID string, force bool) error {
	if force {
		_, _, err := d.run(ctx, "rm", "-f", containerID)
		return err
	}
	_, _, err := d.run(ctx, "stop", containerID)
	return err
}

// Remove removes the image tagged tag and any containers built from it.
func (d *Docker) Remove(ctx context.Context, tag string, force bool) error {
	out, _, err := d.run(ctx, "ps", "-a", "-q", "--filter", "ancestor="+tag)
	if err == nil {
		for _, id := range strings.Fields(out) {
			if _, _, err := d.run(ctx, "rm", "-f", id); err != nil {
				return err
			}
		}
	}

	args := []string{"rmi"}
	if force {
		args = append(args, "-f")
	}
	args = append(args, tag)
	if _, stderr, err := d.run(ctx, args...); err != nil {
		if strings.Contains(stderr, "No such image") {
			return nil
		}
		return err
	}
	return nil
}

// StopRemoveContainersByTerm stops and removes all containers whose name
// matches term.
func (d *Docker) StopRemoveContainersByTerm(ctx context.Context, term string, force bool) error {
	out, _, err := d.run(ctx, "ps", "-a", "-q", "--filter", "name="+term)
	if err != nil {
		return err
	}
	for _, id := range strings.Fields(out) {
		if _, _, err := d.run(ctx, "stop", id); err != nil && !force {
			return err
		}
		args := []string{"rm"}
		if force {
			args = append(args, "-f")
		}
		args = append(args, id)
		if _, _, err := d.run(ctx, args...); err != nil {
			return err
		}
	}
	return nil
}

// CreateDefaultDefinition writes a language-default Dockerfile into dir
// and returns its path. For python languages a requirements.txt is
// synthesized by the import scanner when none exists.
func (d *Docker) CreateDefaultDefinition(dir, language string) (string, error) {
	templatePath := "templates/" + language + "Dockerfile"
	data, err := templates.ReadFile(templatePath)
	if err != nil {
		return "", engine.Errorf(engine.KindEnvironmentDoesNotExist,
			"no default definition available for language %q", language)
	}

	if strings.HasPrefix(language, "python") {
		requirementsPath := filepath.Join(dir, "requirements.txt")
		if _, err := os.Stat(requirementsPath); os.IsNotExist(err) {
			if err := d.scanRequirements(dir); err != nil {
				return "", err
			}
		}
	}

	definitionPath := filepath.Join(dir, "Dockerfile")
	if _, err := os.Stat(definitionPath); err == nil {
		return definitionPath, nil
	}
	if err := os.WriteFile(definitionPath, data, 0o644); err != nil {
		return "", engine.Wrap(engine.KindFileIOError, err, "writing default definition")
	}
	return definitionPath, nil
}

// scanRequirements invokes the import scanner to synthesize a
// requirements.txt for the directory.
func (d *Docker) scanRequirements(dir string) error {
	cmd := exec.Command(d.scannerPath, dir, "--force")
	var stderr strings.Builder
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return engine.Wrap(engine.KindEnvironmentRequirementsCreateError, err,
			fmt.Sprintf("scanning imports with %s: %s", d.scannerPath, strings.TrimSpace(stderr.String())))
	}
	return nil
}

// CreateDatmoDefinition derives the engine-augmented definition: the
// user's definition followed by the engine-managed section. The user's
// file leads because the FROM line must come first.
func (d *Docker) CreateDatmoDefinition(inputPath, outputPath string) error {
	userDef, err := os.ReadFile(inputPath)
	if err != nil {
		return engine.Wrap(engine.KindFileIOError, err, "reading definition file")
	}
	preamble, err := templates.ReadFile("templates/baseDockerfile")
	if err != nil {
		return engine.Wrap(engine.KindFileIOError, err, "reading engine definition template")
	}

	var out strings.Builder
	out.Write(userDef)
	if len(userDef) > 0 && userDef[len(userDef)-1] != '\n' {
		out.WriteByte('\n')
	}
	out.Write(preamble)

	if err := os.WriteFile(outputPath, []byte(out.String()), 0o644); err != nil {
		return engine.Wrap(engine.KindFileIOError, err, "writing augmented definition")
	}
	return nil
}

// Compile-time check that Docker implements the engine's container driver.
var _ engine.ContainerDriver = (*Docker)(nil)
