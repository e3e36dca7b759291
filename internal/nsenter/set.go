package nsenter

import (
	"fmt"
	"io/fs"
	"os"
	"runtime"

	"go.uber.org/multierr"

	"github.com/firefly-engineering/nspctl/internal/errors"
	"github.com/firefly-engineering/nspctl/internal/logging"
)

// Set is the ordered collection of usable namespace handles for one PID.
// A Set is built for a single operation and must not be reused after Close.
type Set struct {
	pid     int
	host    *Host
	handles []*Handle
	closed  bool
}

// Build probes every namespace kind of pid and opens handles for the usable
// ones, in Kinds order. Kinds that are not available are skipped. It fails
// with ProcessGone when pid no longer exists.
func (h *Host) Build(pid int) (*Set, error) {
	if pid <= 0 {
		return nil, errors.ValidationError(fmt.Sprintf("invalid pid %d", pid))
	}

	if _, err := os.Stat(h.processDir(pid)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, errors.ProcessGone(pid)
		}
		return nil, fmt.Errorf("inspect pid %d: %w", pid, err)
	}

	set := &Set{pid: pid, host: h}
	for _, kind := range Kinds {
		handle, err := h.Open(pid, kind)
		if errors.Is(err, errors.ErrNotAvailable) {
			logging.Debug("skipping namespace", "kind", kind, "pid", pid, "reason", err)
			continue
		}
		if err != nil {
			set.Close()
			return nil, err
		}
		set.handles = append(set.handles, handle)
	}

	// Every file disappeared between the stat and the opens.
	if len(set.handles) == 0 {
		return nil, errors.ProcessGone(pid)
	}

	return set, nil
}

// Pid returns the target process ID.
func (s *Set) Pid() int {
	return s.pid
}

// Kinds returns the kinds in the set, in join order.
func (s *Set) Kinds() []Kind {
	kinds := make([]Kind, len(s.handles))
	for i, h := range s.handles {
		kinds[i] = h.kind
	}
	return kinds
}

// Close releases every handle's descriptors.
func (s *Set) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	var errs error
	for _, h := range s.handles {
		errs = multierr.Append(errs, h.Close())
	}
	return errs
}

type scopeResult struct {
	err      error
	panicked bool
	value    any
}

// Enter joins every namespace in the set and runs fn. fn runs only if every
// join succeeded. Before Enter returns, on every path including a panic in
// fn, each handle whose join was attempted is left again in reverse order.
// Restore failures are logged and never replace the error being returned.
//
// fn runs on a goroutine locked to a dedicated OS thread; processes started
// from fn inherit the joined namespaces.
func (s *Set) Enter(fn func() error) error {
	done := make(chan scopeResult, 1)

	go func() {
		// The thread is never unlocked, so the runtime terminates it with
		// this goroutine instead of handing it to other goroutines.
		runtime.LockOSThread()

		var res scopeResult
		defer func() {
			if r := recover(); r != nil {
				res = scopeResult{panicked: true, value: r}
			}
			done <- res
		}()

		res.err = s.enter(fn)
	}()

	res := <-done
	if res.panicked {
		panic(res.value)
	}
	return res.err
}

func (s *Set) enter(fn func() error) error {
	if s.closed {
		return fmt.Errorf("namespace set for pid %d is closed", s.pid)
	}

	if err := s.host.setupThread(); err != nil {
		return errors.AttachFailed("fs", s.pid, err)
	}

	attempted := 0
	defer func() {
		s.restore(attempted)
	}()

	for _, h := range s.handles {
		attempted++
		if err := h.Enter(); err != nil {
			logging.Debug("namespace join failed, rolling back", "kind", h.kind, "pid", s.pid, "joined", attempted-1)
			return err
		}
	}

	return fn()
}

// restore leaves the first n handles in reverse order.
func (s *Set) restore(n int) {
	var errs error
	for i := n - 1; i >= 0; i-- {
		h := s.handles[i]
		wasEntered := h.entered
		if err := h.Leave(); err != nil {
			if !wasEntered {
				logging.Debug("restore after failed join", "kind", h.kind, "pid", s.pid, "error", err)
				continue
			}
			errs = multierr.Append(errs, err)
		}
	}
	if errs != nil {
		logging.Warn("namespace restore incomplete", "pid", s.pid, "error", errs)
	}
}
