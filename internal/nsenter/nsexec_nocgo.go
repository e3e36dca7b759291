//go:build !linux || !cgo

package nsenter

// Without cgo there is no constructor to join a user namespace, so every set
// is joined in process.
const reexecAvailable = false
