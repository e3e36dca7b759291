package attach

import (
	"context"
	"io"
	"os"
	"os/exec"

	"golang.org/x/sys/unix"

	"github.com/firefly-engineering/nspctl/internal/errors"
	"github.com/firefly-engineering/nspctl/internal/logging"
	"github.com/firefly-engineering/nspctl/internal/nsenter"
)

// DefaultShellArgs starts a login shell.
var DefaultShellArgs = []string{"-l"}

// ExecFunc replaces the current process image. It only returns on failure.
type ExecFunc = nsenter.ExecFunc

// Stdio connects a spawned shell to a terminal.
type Stdio struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// TerminalStdio is the process's own standard streams.
func TerminalStdio() Stdio {
	return Stdio{Stdin: os.Stdin, Stdout: os.Stdout, Stderr: os.Stderr}
}

// ShellLauncher starts interactive shells inside a container's namespaces.
type ShellLauncher struct {
	host  *nsenter.Host
	shell string
	args  []string
	env   environment
	exec  ExecFunc
}

// ShellOption configures a ShellLauncher
type ShellOption func(*ShellLauncher)

// WithShellArgs replaces the shell's arguments
func WithShellArgs(args ...string) ShellOption {
	return func(l *ShellLauncher) {
		l.args = args
	}
}

// WithExec replaces execve(2)
func WithExec(fn ExecFunc) ShellOption {
	return func(l *ShellLauncher) {
		l.exec = fn
	}
}

// NewShellLauncher creates a ShellLauncher that attaches through host.
func NewShellLauncher(host *nsenter.Host, opts Options, shellOpts ...ShellOption) *ShellLauncher {
	shell := opts.Shell
	if shell == "" {
		shell = DefaultShell
	}
	l := &ShellLauncher{
		host:  host,
		shell: shell,
		args:  DefaultShellArgs,
		env:   hostEnvironment(opts.SafePath),
		exec:  unix.Exec,
	}
	for _, opt := range shellOpts {
		opt(l)
	}
	return l
}

func (l *ShellLauncher) argv() []string {
	return append([]string{l.shell}, l.args...)
}

// environ is the safe environment plus the caller's TERM, so the shell can
// drive the terminal it inherits.
func (l *ShellLauncher) environ() []string {
	env := l.env.variables(NoEnv())
	if term, ok := l.env.lookupEnv("TERM"); ok {
		env = append(env, "TERM="+term)
	}
	return env
}

// ExecReplace joins the namespaces of pid and replaces the current process
// with a login shell. It does not return on success. If attaching fails the
// namespaces are rolled back and the error is returned with the process
// image untouched.
//
// The replaced process keeps its own pid namespace membership; only
// processes the shell starts are inside the container's pid namespace. When
// the container has a private user namespace the shell is instead the child
// of a helper that stays outside, so the shell itself is inside.
func (l *ShellLauncher) ExecReplace(pid int) error {
	set, err := l.host.Build(pid)
	if err != nil {
		return err
	}
	defer set.Close()

	logging.Debug("replacing process with container shell", "pid", pid, "kinds", set.Kinds(), "shell", l.shell)
	err = set.Exec(l.exec, l.shell, l.argv(), l.environ())
	var attachErr *errors.NspctlError
	if err != nil && !errors.As(err, &attachErr) {
		return errors.LaunchFailed("failed to exec "+l.shell, err)
	}
	return err
}

// Spawn joins the namespaces of pid, runs a login shell connected to stdio
// and waits for it to exit. It returns the shell's exit status.
func (l *ShellLauncher) Spawn(ctx context.Context, pid int, stdio Stdio) (int, error) {
	set, err := l.host.Build(pid)
	if err != nil {
		return 0, err
	}
	defer set.Close()

	cmd := exec.CommandContext(ctx, l.shell, l.args...)
	cmd.Env = l.environ()
	cmd.Stdin = stdio.Stdin
	cmd.Stdout = stdio.Stdout
	cmd.Stderr = stdio.Stderr

	runErr := set.Run(cmd)
	var attachErr *errors.NspctlError
	if errors.As(runErr, &attachErr) {
		return 0, runErr
	}
	code, err := exitCode(runErr)
	if err != nil {
		return 0, errors.LaunchFailed("failed to start "+l.shell, err)
	}
	return code, nil
}
