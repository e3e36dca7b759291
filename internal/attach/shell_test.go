package attach

import (
	"bytes"
	"context"
	"reflect"
	"syscall"
	"testing"

	"github.com/firefly-engineering/nspctl/internal/errors"
)

type execCall struct {
	argv0 string
	argv  []string
	envv  []string
}

func recordingExec(calls *[]execCall, err error) ExecFunc {
	return func(argv0 string, argv []string, envv []string) error {
		*calls = append(*calls, execCall{argv0, argv, envv})
		return err
	}
}

func TestShellLauncher_ExecReplace(t *testing.T) {
	t.Setenv("TERM", "xterm-256color")
	t.Setenv("NSPCTL_SENTINEL", "leaked")

	var calls []execCall
	l := NewShellLauncher(fakeHost(t, &stubJoiner{}), Options{}, WithExec(recordingExec(&calls, nil)))

	if err := l.ExecReplace(testPid); err != nil {
		t.Fatalf("ExecReplace() error: %v", err)
	}
	if len(calls) != 1 {
		t.Fatalf("exec called %d times, want 1", len(calls))
	}

	want := execCall{
		argv0: "/bin/sh",
		argv:  []string{"/bin/sh", "-l"},
		envv:  []string{"PATH=" + DefaultSafePath, "TERM=xterm-256color"},
	}
	if !reflect.DeepEqual(calls[0], want) {
		t.Errorf("exec = %+v, want %+v", calls[0], want)
	}
}

func TestShellLauncher_ExecReplaceAttachFailure(t *testing.T) {
	var calls []execCall
	joiner := &stubJoiner{err: syscall.EPERM}
	l := NewShellLauncher(fakeHost(t, joiner), Options{}, WithExec(recordingExec(&calls, nil)))

	err := l.ExecReplace(testPid)
	if !errors.Is(err, errors.ErrAttachFailed) {
		t.Errorf("ExecReplace() error = %v, want AttachFailed", err)
	}
	if len(calls) != 0 {
		t.Error("process image replaced despite failed attach")
	}
}

func TestShellLauncher_ExecReplaceExecFailure(t *testing.T) {
	var calls []execCall
	joiner := &stubJoiner{}
	l := NewShellLauncher(fakeHost(t, joiner), Options{Shell: "/bin/zsh"},
		WithExec(recordingExec(&calls, syscall.ENOENT)),
		WithShellArgs("-i"),
	)

	err := l.ExecReplace(testPid)
	if !errors.Is(err, errors.ErrLaunchFailed) {
		t.Errorf("ExecReplace() error = %v, want LaunchFailed", err)
	}
	if len(calls) == 1 && !reflect.DeepEqual(calls[0].argv, []string{"/bin/zsh", "-i"}) {
		t.Errorf("argv = %v", calls[0].argv)
	}
	// Both kinds were entered and left again.
	if joiner.Calls() != 4 {
		t.Errorf("join calls = %d, want 4", joiner.Calls())
	}
}

func TestShellLauncher_Spawn(t *testing.T) {
	l := NewShellLauncher(fakeHost(t, &stubJoiner{}), Options{SafePath: "/usr/bin:/bin"},
		WithShellArgs("-c", `echo "$PATH"; exit 4`))

	var stdout bytes.Buffer
	code, err := l.Spawn(context.Background(), testPid, Stdio{Stdout: &stdout})
	if err != nil {
		t.Fatalf("Spawn() error: %v", err)
	}
	if code != 4 {
		t.Errorf("exit code = %d, want 4", code)
	}
	if got := stdout.String(); got != "/usr/bin:/bin\n" {
		t.Errorf("stdout = %q", got)
	}
}

func TestShellLauncher_SpawnProcessGone(t *testing.T) {
	l := NewShellLauncher(fakeHost(t, &stubJoiner{}), Options{})
	if _, err := l.Spawn(context.Background(), testPid+1, TerminalStdio()); !errors.Is(err, errors.ErrProcessGone) {
		t.Errorf("Spawn() error = %v, want ProcessGone", err)
	}
}
