package nsenter

import (
	"os"
	"path/filepath"
	"strconv"
)

// DefaultProcRoot is where the proc filesystem is mounted.
const DefaultProcRoot = "/proc"

// DefaultReexec is the helper binary: nspctl itself, whose constructor joins
// namespaces before the Go runtime starts.
const DefaultReexec = "/proc/self/exe"

// Host is the caller's side of an attachment: where namespace files are
// found, how they are opened and how the join is performed.
type Host struct {
	procRoot    string
	joiner      Joiner
	open        func(path string) (*os.File, error)
	setupThread func() error
	reexec      string
}

// Option configures a Host
type Option func(*Host)

// WithProcRoot sets the proc filesystem root (tests use a directory of plain files)
func WithProcRoot(root string) Option {
	return func(h *Host) {
		h.procRoot = root
	}
}

// WithJoiner replaces the setns(2) binding. Sets are then always joined in
// process through j, never by the helper.
func WithJoiner(j Joiner) Option {
	return func(h *Host) {
		h.joiner = j
		h.reexec = ""
	}
}

// WithReexec sets the helper binary used when a set contains a user
// namespace. An empty path joins every set in process.
func WithReexec(path string) Option {
	return func(h *Host) {
		h.reexec = path
	}
}

// WithOpener replaces how namespace files are opened
func WithOpener(open func(path string) (*os.File, error)) Option {
	return func(h *Host) {
		h.open = open
	}
}

// WithThreadSetup replaces the per-scope thread preparation (unshare CLONE_FS)
func WithThreadSetup(setup func() error) Option {
	return func(h *Host) {
		h.setupThread = setup
	}
}

// NewHost creates a Host that reads /proc and joins with setns(2).
func NewHost(opts ...Option) *Host {
	h := &Host{
		procRoot:    DefaultProcRoot,
		joiner:      SystemJoiner,
		open:        openNamespace,
		setupThread: unshareFS,
	}
	if reexecAvailable {
		h.reexec = DefaultReexec
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// ProcRoot returns the configured proc filesystem root.
func (h *Host) ProcRoot() string {
	return h.procRoot
}

func (h *Host) processDir(pid int) string {
	return filepath.Join(h.procRoot, strconv.Itoa(pid))
}

func (h *Host) namespacePath(pid int, kind Kind) string {
	return filepath.Join(h.processDir(pid), "ns", string(kind))
}

func (h *Host) selfPath(kind Kind) string {
	return filepath.Join(h.procRoot, "self", "ns", string(kind))
}
