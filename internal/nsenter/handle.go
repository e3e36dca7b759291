package nsenter

import (
	"fmt"
	"io/fs"
	"os"

	"go.uber.org/multierr"

	"github.com/firefly-engineering/nspctl/internal/errors"
	"github.com/firefly-engineering/nspctl/internal/logging"
)

// Handle joins and leaves one namespace kind of one target process.
// It owns the target's descriptor and the caller's own descriptor for the
// same kind until Close.
type Handle struct {
	kind    Kind
	pid     int
	target  *os.File
	own     *os.File
	joiner  Joiner
	entered bool
	closed  bool
}

// Open opens the kind namespace of pid together with the caller's own
// namespace of that kind. It fails with a NotAvailable error when the
// namespace file is missing, or, for the user kind, when the target already
// shares the caller's user namespace; in that case the file is never opened.
func (h *Host) Open(pid int, kind Kind) (*Handle, error) {
	if !kind.Valid() {
		return nil, errors.ValidationError(fmt.Sprintf("unknown namespace kind %q", kind))
	}

	if err := h.usable(pid, kind); err != nil {
		return nil, err
	}

	target, err := h.open(h.namespacePath(pid, kind))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, errors.NotAvailable(kind.String(), pid, "namespace file vanished")
		}
		return nil, fmt.Errorf("open %s namespace of pid %d: %w", kind, pid, err)
	}

	own, err := h.open(h.selfPath(kind))
	if err != nil {
		target.Close()
		return nil, fmt.Errorf("open own %s namespace: %w", kind, err)
	}

	return &Handle{
		kind:   kind,
		pid:    pid,
		target: target,
		own:    own,
		joiner: h.joiner,
	}, nil
}

func (h *Host) usable(pid int, kind Kind) error {
	id, err := statNamespace(h.namespacePath(pid, kind))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return errors.NotAvailable(kind.String(), pid, "no namespace file")
		}
		return fmt.Errorf("inspect %s namespace of pid %d: %w", kind, pid, err)
	}

	// setns(2) refuses to re-enter the caller's current user namespace.
	if kind == KindUser {
		self, err := statNamespace(h.selfPath(kind))
		if err != nil {
			return fmt.Errorf("inspect own user namespace: %w", err)
		}
		if self == id {
			return errors.NotAvailable(kind.String(), pid, "same as the caller's user namespace")
		}
	}

	return nil
}

// Kind returns the namespace kind.
func (h *Handle) Kind() Kind {
	return h.kind
}

// Entered reports whether the last Enter succeeded and no Leave followed.
func (h *Handle) Entered() bool {
	return h.entered
}

// Enter joins the target namespace on the calling thread.
func (h *Handle) Enter() error {
	if h.closed {
		return fmt.Errorf("%s namespace handle for pid %d is closed", h.kind, h.pid)
	}

	logging.Debug("entering namespace", "kind", h.kind, "pid", h.pid)
	if err := h.joiner.Join(int(h.target.Fd())); err != nil {
		return errors.AttachFailed(h.kind.String(), h.pid, err)
	}
	h.entered = true
	return nil
}

// Leave rejoins the caller's own namespace. It is attempted whether or not
// Enter succeeded.
func (h *Handle) Leave() error {
	if h.closed {
		return fmt.Errorf("%s namespace handle for pid %d is closed", h.kind, h.pid)
	}

	logging.Debug("leaving namespace", "kind", h.kind, "pid", h.pid)
	err := h.joiner.Join(int(h.own.Fd()))
	h.entered = false
	if err != nil {
		return fmt.Errorf("restore own %s namespace: %w", h.kind, err)
	}
	return nil
}

// Close releases both descriptors. Calling Close again is a no-op.
func (h *Handle) Close() error {
	if h.closed {
		return nil
	}
	h.closed = true
	return multierr.Combine(h.target.Close(), h.own.Close())
}
