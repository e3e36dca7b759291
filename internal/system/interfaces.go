// Package system provides abstractions for OS operations to enable testing.
package system

import (
	"context"
	"io/fs"
	"os"
)

// FileSystem abstracts the host file system lookups used to find machine
// images that machinectl cannot list.
type FileSystem interface {
	// Exists returns true if the path exists.
	Exists(path string) bool

	// ReadDir reads the named directory, returning all its directory entries.
	ReadDir(path string) ([]fs.DirEntry, error)
}

// CommandExecutor abstracts host command execution for testability.
type CommandExecutor interface {
	// Execute runs a command and returns its standard output. A command that
	// exits non-zero yields a *CommandError carrying its standard error.
	Execute(ctx context.Context, name string, args ...string) ([]byte, error)

	// ReplaceProcess replaces the current process with the given command (exec syscall).
	ReplaceProcess(name string, args ...string) error
}

// DefaultFS returns the FileSystem backed by the host.
func DefaultFS() FileSystem {
	return osFileSystem{}
}

// DefaultExecutor returns the CommandExecutor that runs host commands.
func DefaultExecutor() CommandExecutor {
	return osExecutor{}
}

type osFileSystem struct{}

func (osFileSystem) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func (osFileSystem) ReadDir(path string) ([]fs.DirEntry, error) {
	return os.ReadDir(path)
}
