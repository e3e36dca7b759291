package errors

import (
	"errors"
	"fmt"
	"syscall"
)

// Exit codes for nspctl
const (
	ExitSuccess          = 0
	ExitGeneralError     = 1
	ExitMachineNotFound  = 2
	ExitNotRunning       = 3
	ExitNotAvailable     = 4
	ExitAttachFailed     = 5
	ExitProcessGone      = 6
	ExitLaunchFailed     = 7
	ExitAlreadyExists    = 8
	ExitNotFound         = 9
	ExitUnsupported      = 10
	ExitConfigError      = 11
	ExitPermissionDenied = 12
)

// Sentinels for matching error categories with errors.Is. Any NspctlError
// carrying the same code matches its sentinel.
var (
	ErrNotAvailable     = New(ExitNotAvailable, "namespace not available")
	ErrAttachFailed     = New(ExitAttachFailed, "namespace attach failed")
	ErrProcessGone      = New(ExitProcessGone, "process gone")
	ErrLaunchFailed     = New(ExitLaunchFailed, "launch failed")
	ErrAlreadyExists    = New(ExitAlreadyExists, "already exists")
	ErrNotFound         = New(ExitNotFound, "not found")
	ErrUnsupported      = New(ExitUnsupported, "unsupported")
	ErrMachineNotFound  = New(ExitMachineNotFound, "machine not found")
	ErrNotRunning       = New(ExitNotRunning, "machine not running")
	ErrPermissionDenied = New(ExitPermissionDenied, "permission denied")
)

// NspctlError is the base error type for nspctl
type NspctlError struct {
	Code    int
	Message string
	Cause   error
}

func (e *NspctlError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *NspctlError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an NspctlError with the same exit code.
func (e *NspctlError) Is(target error) bool {
	t, ok := target.(*NspctlError)
	if !ok {
		return false
	}
	return t.Code == e.Code && t.Code != ExitGeneralError
}

// ExitCode returns the exit code for this error
func (e *NspctlError) ExitCode() int {
	return e.Code
}

// New creates a new NspctlError
func New(code int, message string) *NspctlError {
	return &NspctlError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an existing error with an NspctlError
func Wrap(code int, message string, cause error) *NspctlError {
	return &NspctlError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// Namespace attachment errors

// NotAvailable returns an error for a namespace kind that cannot be used for pid.
func NotAvailable(kind string, pid int, reason string) *NspctlError {
	return New(ExitNotAvailable, fmt.Sprintf("%s namespace of pid %d not available: %s", kind, pid, reason))
}

// AttachFailed returns an error for a failed namespace join. The cause is
// usually a syscall.Errno, recoverable with Errno.
func AttachFailed(kind string, pid int, cause error) *NspctlError {
	return Wrap(ExitAttachFailed, fmt.Sprintf("failed to join %s namespace of pid %d", kind, pid), cause)
}

// ProcessGone returns an error for a target process that vanished before attach.
func ProcessGone(pid int) *NspctlError {
	return New(ExitProcessGone, fmt.Sprintf("process %d is gone", pid))
}

// LaunchFailed returns an error for a command that could not be started.
func LaunchFailed(message string, cause error) *NspctlError {
	return Wrap(ExitLaunchFailed, message, cause)
}

// File transfer errors

// AlreadyExists returns an error for a destination that must not be overwritten.
func AlreadyExists(path string) *NspctlError {
	return New(ExitAlreadyExists, fmt.Sprintf("destination %s already exists, use --overwrite to replace it", path))
}

// NotFound returns an error for a missing path.
func NotFound(what, path string) *NspctlError {
	return New(ExitNotFound, fmt.Sprintf("%s %s does not exist", what, path))
}

// Unsupported returns an error for an operation with no valid attach path.
func Unsupported(message string) *NspctlError {
	return New(ExitUnsupported, message)
}

// Machine errors

// MachineNotFound returns an error for a missing container
func MachineNotFound(name string) *NspctlError {
	return New(ExitMachineNotFound, fmt.Sprintf("machine not found: %s", name))
}

// MachineNotRunning returns an error when a container exists but is not running
func MachineNotRunning(name string) *NspctlError {
	return New(ExitNotRunning, fmt.Sprintf("machine %s is not running", name))
}

// MachineFailed returns an error for a failed service manager operation
func MachineFailed(op string, cause error) *NspctlError {
	return Wrap(ExitGeneralError, fmt.Sprintf("machine %s failed", op), cause)
}

// ConfigError returns an error for configuration issues
func ConfigError(message string, cause error) *NspctlError {
	return Wrap(ExitConfigError, message, cause)
}

// PermissionDenied returns an error for operations that require root
func PermissionDenied(op string) *NspctlError {
	return New(ExitPermissionDenied, fmt.Sprintf("%s requires root privileges", op))
}

// ValidationError returns an error for input validation failures
func ValidationError(message string) *NspctlError {
	return New(ExitGeneralError, message)
}

// GetExitCode extracts the exit code from an error
func GetExitCode(err error) int {
	var nspErr *NspctlError
	if errors.As(err, &nspErr) {
		return nspErr.ExitCode()
	}
	return ExitGeneralError
}

// Errno extracts the syscall errno from an error chain, or 0.
func Errno(err error) syscall.Errno {
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return errno
	}
	return 0
}

// Is checks if an error is of a specific type
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target any) bool {
	return errors.As(err, target)
}
