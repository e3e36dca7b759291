// Package nsenter joins the Linux namespaces of a running process.
//
// A Handle owns two descriptors for one namespace kind: the target's
// /proc/<pid>/ns/<kind> and the caller's own /proc/self/ns/<kind>. A Set is
// the ordered collection of usable handles for one PID, built fresh for every
// operation:
//
//	host := nsenter.NewHost()
//	set, err := host.Build(pid)
//	if err != nil {
//	    return err
//	}
//	defer set.Close()
//
//	err = set.Run(exec.Command("/bin/sh", "-c", "hostname"))
//
// # Threads
//
// Namespace membership belongs to an OS thread, not to the process. Enter runs
// its callback on a dedicated goroutine locked to its thread, unshares
// CLONE_FS on that thread so the mount namespace can be joined from a
// multi-threaded process, and never unlocks it: the runtime discards the
// thread when the goroutine returns. Child processes started from the
// callback are forked from that thread and inherit its namespaces.
//
// # User namespaces
//
// The kernel refuses to move a multi-threaded process into another user
// namespace, and a Go process is always multi-threaded. A user namespace
// identical to the caller's is skipped. When the set holds a private one,
// Run and Exec re-execute the binary instead: a C constructor in the fresh
// image joins the inherited descriptors before the Go runtime starts any
// thread, the user namespace last, switches to root of that namespace, forks
// into the pid namespace when one is joined, and executes the program. Join
// failures come back on a status pipe as the same attach errors Enter
// returns. Hosts built WithJoiner always join in process.
package nsenter
