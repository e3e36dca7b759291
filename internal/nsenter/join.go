package nsenter

import (
	"os"

	"golang.org/x/sys/unix"
)

// Joiner moves the calling thread into the namespace referenced by fd.
type Joiner interface {
	Join(fd int) error
}

// JoinerFunc adapts a function to the Joiner interface.
type JoinerFunc func(fd int) error

// Join calls f(fd).
func (f JoinerFunc) Join(fd int) error {
	return f(fd)
}

// SystemJoiner calls setns(2) with nstype 0, letting the kernel infer the
// namespace kind from the descriptor.
var SystemJoiner Joiner = JoinerFunc(func(fd int) error {
	return unix.Setns(fd, 0)
})

// unshareFS gives the calling thread private filesystem attributes, which
// setns(2) requires before joining a mount namespace.
func unshareFS() error {
	return unix.Unshare(unix.CLONE_FS)
}

// openNamespace opens a namespace reference file without leaking it into
// child processes.
func openNamespace(path string) (*os.File, error) {
	fd, err := unix.Open(path, unix.O_RDONLY|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, &os.PathError{Op: "open", Path: path, Err: err}
	}
	return os.NewFile(uintptr(fd), path), nil
}

// identity is the (device, inode) pair that identifies a namespace.
type identity struct {
	dev uint64
	ino uint64
}

func statNamespace(path string) (identity, error) {
	var st unix.Stat_t
	if err := unix.Stat(path, &st); err != nil {
		return identity{}, &os.PathError{Op: "stat", Path: path, Err: err}
	}
	return identity{dev: uint64(st.Dev), ino: st.Ino}, nil
}
