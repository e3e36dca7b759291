package dispatch

// Mode is how a container's operations are carried out. It is decided per
// operation and never cached.
type Mode int

const (
	// ModeUnknown is the state before the init probe ran.
	ModeUnknown Mode = iota
	// ModeSystemdManaged containers run systemd as init; lifecycle verbs,
	// copies and shells go through machinectl.
	ModeSystemdManaged
	// ModeRawInit containers are driven by running commands directly in
	// their joined namespaces.
	ModeRawInit
	// ModeReplaced is terminal: the process image became the container shell.
	ModeReplaced
)

func (m Mode) String() string {
	switch m {
	case ModeSystemdManaged:
		return "systemd"
	case ModeRawInit:
		return "raw"
	case ModeReplaced:
		return "replaced"
	default:
		return "unknown"
	}
}

// MarshalText renders the mode for JSON output.
func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}
