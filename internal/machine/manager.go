// Package machine is the host service manager side of nspctl: it answers
// whether a container exists, whether it runs and which process leads it,
// and forwards lifecycle verbs to machinectl.
package machine

import "context"

// State is a container's run state.
type State string

const (
	StateRunning State = "running"
	StateStopped State = "stopped"
)

// Machine is one row of a listing.
type Machine struct {
	Name  string `json:"name"`
	State State  `json:"state"`
	// Class is "container" or "vm" for running machines, empty otherwise.
	Class string `json:"class,omitempty"`
	// Type is the image type (directory, subvolume, raw) when known.
	Type string `json:"type,omitempty"`
	OS   string `json:"os,omitempty"`
}

// ListFilter selects which machines List returns.
type ListFilter int

const (
	ListRunning ListFilter = iota
	ListStopped
	ListAll
)

// Manager is the service manager surface nspctl depends on.
type Manager interface {
	// Exists reports whether an image or running machine has this name.
	Exists(ctx context.Context, name string) (bool, error)

	// State returns the run state of an existing machine.
	State(ctx context.Context, name string) (State, error)

	// Leader returns the PID of the machine's leader process.
	Leader(ctx context.Context, name string) (int, error)

	// Status returns what the service manager reports about a running
	// machine: when it started, its network and its OS.
	Status(ctx context.Context, name string) (*Status, error)

	// List returns machines matching filter, sorted by name.
	List(ctx context.Context, filter ListFilter) ([]Machine, error)

	Start(ctx context.Context, name string) error
	Poweroff(ctx context.Context, name string) error
	Reboot(ctx context.Context, name string) error
	Terminate(ctx context.Context, name string) error

	// Enable and Disable toggle starting the machine at boot.
	Enable(ctx context.Context, name string) error
	Disable(ctx context.Context, name string) error

	// Remove deletes a stopped machine's image.
	Remove(ctx context.Context, name string) error

	// CopyTo copies a host file into a running machine.
	CopyTo(ctx context.Context, name, source, dest string, makeDirs bool) error

	// Shell replaces the current process with a login shell in the machine.
	Shell(name string) error
}
