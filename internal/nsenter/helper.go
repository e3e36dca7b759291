package nsenter

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"

	"github.com/firefly-engineering/nspctl/internal/errors"
	"github.com/firefly-engineering/nspctl/internal/logging"
)

// Variables read by the constructor in nsexec.go.
const (
	envNamespaces = "_NSPCTL_NSENTER_FDS"
	envStatus     = "_NSPCTL_NSENTER_STATUS"
	envCheck      = "_NSPCTL_NSENTER_CHECK"
	envFork       = "_NSPCTL_NSENTER_FORK"
)

// helperArg0 names the helper process in ps output.
const helperArg0 = "nspctl-nsenter"

// ExecFunc replaces the current process image. It only returns on failure.
type ExecFunc func(argv0 string, argv []string, envv []string) error

// Run runs cmd inside the set's namespaces and waits for it. Failures to
// join are *errors.NspctlError values; anything else is what cmd.Run
// returned.
func (s *Set) Run(cmd *exec.Cmd) error {
	if !s.viaHelper() {
		return s.Enter(cmd.Run)
	}
	return s.runHelper(cmd, false)
}

// Exec replaces the current process with argv0 running inside the set's
// namespaces. It only returns on failure, and a failure to join leaves the
// process image untouched.
func (s *Set) Exec(execFn ExecFunc, argv0 string, argv, envv []string) error {
	if !s.viaHelper() {
		return s.Enter(func() error {
			return execFn(argv0, argv, envv)
		})
	}

	// Join once from a throwaway helper so attach errors are reported
	// here rather than by the replaced process.
	if err := s.runHelper(exec.Command(argv0), true); err != nil {
		return err
	}

	fds := make([]int, len(s.handles))
	for i, h := range s.handles {
		fd := int(h.target.Fd())
		if _, err := unix.FcntlInt(uintptr(fd), unix.F_SETFD, 0); err != nil {
			return fmt.Errorf("pass %s namespace to helper: %w", h.kind, err)
		}
		fds[i] = fd
	}

	logging.Debug("replacing process with namespace helper", "pid", s.pid, "kinds", s.Kinds(), "program", argv0)
	helperArgv := append([]string{helperArg0, argv0}, argv...)
	return execFn(s.host.reexec, helperArgv, s.helperEnv(envv, fds, -1, false))
}

// viaHelper reports whether the set must be joined by a fresh process. The
// kernel refuses setns(CLONE_NEWUSER) from a multithreaded process, and a Go
// process always is one.
func (s *Set) viaHelper() bool {
	return s.host.reexec != "" && s.has(KindUser)
}

func (s *Set) has(kind Kind) bool {
	for _, h := range s.handles {
		if h.kind == kind {
			return true
		}
	}
	return false
}

// runHelper starts cmd through the helper binary and waits for it. The
// helper inherits the set's descriptors after cmd's own ExtraFiles and
// reports a failed step on a status pipe, which is closed unread when its
// target program starts.
func (s *Set) runHelper(cmd *exec.Cmd, check bool) error {
	if s.closed {
		return fmt.Errorf("namespace set for pid %d is closed", s.pid)
	}

	r, w, err := os.Pipe()
	if err != nil {
		return fmt.Errorf("create helper status pipe: %w", err)
	}
	defer r.Close()

	statusFD := 3 + len(cmd.ExtraFiles)
	cmd.ExtraFiles = append(cmd.ExtraFiles, w)
	fds := make([]int, len(s.handles))
	for i, h := range s.handles {
		cmd.ExtraFiles = append(cmd.ExtraFiles, h.target)
		fds[i] = statusFD + 1 + i
	}

	env := cmd.Env
	if env == nil {
		env = os.Environ()
	}
	program := cmd.Path
	cmd.Env = s.helperEnv(env, fds, statusFD, check)
	cmd.Args = append([]string{helperArg0, program}, cmd.Args...)
	cmd.Path = s.host.reexec

	logging.Debug("joining namespaces in helper", "pid", s.pid, "kinds", s.Kinds(), "program", program, "check", check)
	err = cmd.Start()
	w.Close()
	if err != nil {
		return errors.LaunchFailed("failed to start namespace helper", err)
	}

	if err := s.helperStatus(r, program); err != nil {
		_ = cmd.Wait()
		return err
	}
	return cmd.Wait()
}

// helperEnv returns env plus the helper's instructions. fds holds the
// descriptor number of each handle as the helper sees it. The user namespace
// is joined last, while the helper still has the capabilities needed for
// namespaces owned by the host's user namespace; the helper then switches to
// root of the joined user namespace.
func (s *Set) helperEnv(env []string, fds []int, statusFD int, check bool) []string {
	var specs []string
	var user string
	for i, h := range s.handles {
		spec := strconv.Itoa(fds[i]) + ":" + string(h.kind)
		if h.kind == KindUser {
			user = spec
			continue
		}
		specs = append(specs, spec)
	}
	if user != "" {
		specs = append(specs, user)
	}

	out := make([]string, 0, len(env)+4)
	for _, kv := range env {
		if !strings.HasPrefix(kv, "_NSPCTL_NSENTER_") {
			out = append(out, kv)
		}
	}
	out = append(out, envNamespaces+"="+strings.Join(specs, " "))
	if statusFD >= 0 {
		out = append(out, envStatus+"="+strconv.Itoa(statusFD))
	}
	if check {
		out = append(out, envCheck+"=1")
	} else if s.has(KindPID) {
		out = append(out, envFork+"=1")
	}
	return out
}

// helperStatus reads the status pipe until it closes. An empty status means
// the helper reached its target program.
func (s *Set) helperStatus(r io.Reader, program string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("read namespace helper status: %w", err)
	}
	line := strings.TrimSpace(string(data))
	if line == "" {
		return nil
	}

	var stage, what string
	var errno int
	if _, err := fmt.Sscanf(line, "%s %s %d", &stage, &what, &errno); err != nil {
		return fmt.Errorf("namespace helper reported %q", line)
	}
	cause := unix.Errno(errno)

	switch stage {
	case "join", "setgroups", "setgid", "setuid":
		return errors.AttachFailed(what, s.pid, cause)
	case "exec":
		return errors.LaunchFailed("failed to exec "+program, cause)
	default:
		return errors.LaunchFailed(fmt.Sprintf("namespace helper failed to %s %s", stage, what), cause)
	}
}
