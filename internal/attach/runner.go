package attach

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"syscall"

	"github.com/kballard/go-shellquote"

	"github.com/firefly-engineering/nspctl/internal/errors"
	"github.com/firefly-engineering/nspctl/internal/logging"
	"github.com/firefly-engineering/nspctl/internal/nsenter"
)

// DefaultShell interprets command lines inside the container.
const DefaultShell = "/bin/sh"

// Capture selects which parts of a command's outcome are collected.
type Capture string

const (
	CaptureFull       Capture = "full"
	CaptureStdout     Capture = "stdout"
	CaptureStderr     Capture = "stderr"
	CaptureReturnCode Capture = "returncode"
)

// ParseCapture converts a capture mode name. An empty name means full.
func ParseCapture(s string) (Capture, error) {
	switch c := Capture(s); c {
	case "":
		return CaptureFull, nil
	case CaptureFull, CaptureStdout, CaptureStderr, CaptureReturnCode:
		return c, nil
	default:
		return "", fmt.Errorf("unknown output mode %q (want full, stdout, stderr or returncode)", s)
	}
}

// Request describes one command to run inside a container.
type Request struct {
	// Command is shell text. When empty, Argv is quoted into Command.
	Command string
	Argv    []string

	Env     EnvPolicy
	Capture Capture

	// Stdin feeds the command; nil means no input.
	Stdin io.Reader
}

func (r Request) commandText() string {
	if r.Command != "" {
		return r.Command
	}
	return shellquote.Join(r.Argv...)
}

// Result is the outcome of a command that ran. A non-zero ReturnCode is not
// an error. Captured streams have trailing whitespace removed.
type Result struct {
	ReturnCode int    `json:"returncode"`
	Stdout     string `json:"stdout,omitempty"`
	Stderr     string `json:"stderr,omitempty"`
}

// Options configures how commands are started inside a container.
type Options struct {
	SafePath string
	Shell    string
}

// Runner executes commands inside the joined namespaces of a process.
type Runner struct {
	host  *nsenter.Host
	shell string
	env   environment
}

// NewRunner creates a Runner that attaches through host.
func NewRunner(host *nsenter.Host, opts Options) *Runner {
	shell := opts.Shell
	if shell == "" {
		shell = DefaultShell
	}
	return &Runner{
		host:  host,
		shell: shell,
		env:   hostEnvironment(opts.SafePath),
	}
}

// Run attaches to every usable namespace of pid, runs req and waits for it.
// The namespaces stay joined until the command has exited.
func (r *Runner) Run(ctx context.Context, pid int, req Request) (*Result, error) {
	if req.Command == "" && len(req.Argv) == 0 {
		return nil, errors.ValidationError("empty command")
	}

	set, err := r.host.Build(pid)
	if err != nil {
		return nil, err
	}
	defer set.Close()

	line := r.env.commandLine(req.Env, r.shell, req.commandText())
	logging.Debug("running in container", "pid", pid, "kinds", set.Kinds(), "env", req.Env.String(), "command", req.commandText())

	return r.execute(ctx, set, line, req)
}

func (r *Runner) execute(ctx context.Context, set *nsenter.Set, line string, req Request) (*Result, error) {
	cmd := exec.CommandContext(ctx, r.shell, "-c", line)
	cmd.Env = r.env.variables(req.Env)
	cmd.Stdin = req.Stdin

	var stdout, stderr bytes.Buffer
	switch req.Capture {
	case CaptureStdout:
		cmd.Stdout = &stdout
	case CaptureStderr:
		cmd.Stderr = &stderr
	case CaptureReturnCode:
	default:
		cmd.Stdout = &stdout
		cmd.Stderr = &stderr
	}

	runErr := set.Run(cmd)
	var attachErr *errors.NspctlError
	if errors.As(runErr, &attachErr) {
		return nil, runErr
	}
	if runErr != nil && ctx.Err() != nil {
		return nil, fmt.Errorf("command interrupted: %w", ctx.Err())
	}
	code, err := exitCode(runErr)
	if err != nil {
		return nil, errors.LaunchFailed(fmt.Sprintf("failed to start %s", r.shell), err)
	}

	return &Result{
		ReturnCode: code,
		Stdout:     strings.TrimRight(stdout.String(), " \t\r\n"),
		Stderr:     strings.TrimRight(stderr.String(), " \t\r\n"),
	}, nil
}

// exitCode maps a finished command's error to its exit status. Errors other
// than a non-zero exit are returned as is.
func exitCode(err error) (int, error) {
	if err == nil {
		return 0, nil
	}

	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		return 0, err
	}
	if ws, ok := exitErr.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		return 128 + int(ws.Signal()), nil
	}
	return exitErr.ExitCode(), nil
}
