package attach

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"

	"github.com/kballard/go-shellquote"

	"github.com/firefly-engineering/nspctl/internal/errors"
	"github.com/firefly-engineering/nspctl/internal/logging"
)

// Transfer describes copying one host file into a container.
type Transfer struct {
	// Source is an absolute path to a regular file on the host.
	Source string
	// Dest is an absolute path inside the container. An existing directory
	// receives the file under the source's base name.
	Dest string

	Overwrite bool
	MakeDirs  bool
}

// Injector copies host files into a container through a Runner. Bytes are
// streamed into a command running inside the container; nothing is staged
// under the container's root on the host. The copy gets the receiving
// shell's default mode and owner, not the source's.
type Injector struct {
	runner *Runner
}

// NewInjector creates an Injector on top of runner.
func NewInjector(runner *Runner) *Injector {
	return &Injector{runner: runner}
}

// Copy transfers t.Source into the container of pid and returns the path the
// file was written to. Every precondition is checked before any byte is sent.
func (i *Injector) Copy(ctx context.Context, pid int, t Transfer) (string, error) {
	src, err := openSource(t.Source)
	if err != nil {
		return "", err
	}
	defer src.Close()

	if !path.IsAbs(t.Dest) {
		return "", errors.ValidationError(fmt.Sprintf("destination path must be absolute: %s", t.Dest))
	}
	dest := path.Clean(t.Dest)

	isDir, err := i.test(ctx, pid, "-d", dest)
	if err != nil {
		return "", err
	}
	if isDir {
		dest = path.Join(dest, filepath.Base(t.Source))
	} else if err := i.ensureParent(ctx, pid, path.Dir(dest), t.MakeDirs); err != nil {
		return "", err
	}

	if !t.Overwrite {
		exists, err := i.test(ctx, pid, "-e", dest)
		if err != nil {
			return "", err
		}
		if exists {
			return "", errors.AlreadyExists(dest)
		}
	}

	logging.Debug("streaming file into container", "pid", pid, "source", t.Source, "dest", dest)
	res, err := i.runner.Run(ctx, pid, Request{
		Command: "cat > " + shellquote.Join(dest),
		Env:     NoEnv(),
		Capture: CaptureStderr,
		Stdin:   src,
	})
	if err != nil {
		return "", err
	}
	if res.ReturnCode != 0 {
		return "", errors.LaunchFailed(commandFailure("failed copying to "+dest, res), nil)
	}

	return dest, nil
}

func (i *Injector) ensureParent(ctx context.Context, pid int, parent string, makeDirs bool) error {
	exists, err := i.test(ctx, pid, "-d", parent)
	if err != nil || exists {
		return err
	}
	if !makeDirs {
		return errors.NotFound("destination directory", parent)
	}

	res, err := i.runner.Run(ctx, pid, Request{
		Argv:    []string{"mkdir", "-p", parent},
		Env:     NoEnv(),
		Capture: CaptureStderr,
	})
	if err != nil {
		return err
	}
	if res.ReturnCode != 0 {
		return errors.LaunchFailed(commandFailure("unable to create destination directory "+parent, res), nil)
	}
	return nil
}

// test runs `test <flag> <path>` in the container.
func (i *Injector) test(ctx context.Context, pid int, flag, p string) (bool, error) {
	res, err := i.runner.Run(ctx, pid, Request{
		Argv:    []string{"test", flag, p},
		Env:     NoEnv(),
		Capture: CaptureReturnCode,
	})
	if err != nil {
		return false, err
	}
	return res.ReturnCode == 0, nil
}

func openSource(source string) (*os.File, error) {
	if !filepath.IsAbs(source) {
		return nil, errors.ValidationError(fmt.Sprintf("source path must be absolute: %s", source))
	}

	info, err := os.Stat(source)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NotFound("source file", source)
		}
		return nil, fmt.Errorf("inspect source: %w", err)
	}
	if !info.Mode().IsRegular() {
		return nil, errors.ValidationError(fmt.Sprintf("source must be a regular file: %s", source))
	}

	// Opened on the host, before any namespace is joined.
	return os.Open(source)
}

func commandFailure(msg string, res *Result) string {
	if res.Stderr != "" {
		return msg + ": " + res.Stderr
	}
	return fmt.Sprintf("%s (exit status %d)", msg, res.ReturnCode)
}
