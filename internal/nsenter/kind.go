package nsenter

import "fmt"

// Kind names a namespace type as it appears under /proc/<pid>/ns.
type Kind string

const (
	KindUser   Kind = "user"
	KindCgroup Kind = "cgroup"
	KindIPC    Kind = "ipc"
	KindUTS    Kind = "uts"
	KindNet    Kind = "net"
	KindPID    Kind = "pid"
	KindMount  Kind = "mnt"
)

// Kinds lists every supported kind in join order: user first, mnt last
// (joining mnt resets the thread's root and working directory).
var Kinds = []Kind{KindUser, KindCgroup, KindIPC, KindUTS, KindNet, KindPID, KindMount}

func (k Kind) String() string {
	return string(k)
}

// Valid reports whether k is one of Kinds.
func (k Kind) Valid() bool {
	for _, kind := range Kinds {
		if k == kind {
			return true
		}
	}
	return false
}

// ParseKind converts a namespace name such as "net" into a Kind.
func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	if !k.Valid() {
		return "", fmt.Errorf("unknown namespace kind %q", s)
	}
	return k, nil
}
