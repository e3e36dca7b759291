// Package errors provides typed errors with exit codes for nspctl.
//
// # Error Types
//
// NspctlError is the base error type that wraps an error with an exit code:
//
//	type NspctlError struct {
//	    Code    int    // Exit code
//	    Message string // User-facing message
//	    Cause   error  // Wrapped error
//	}
//
// Errors with the same code match each other under errors.Is, so callers
// test categories against the exported sentinels:
//
//	if errors.Is(err, errors.ErrAlreadyExists) { ... }
//
// # Exit Codes
//
//	ExitSuccess          = 0  // Success
//	ExitGeneralError     = 1  // General/unknown errors
//	ExitMachineNotFound  = 2  // Machine does not exist
//	ExitNotRunning       = 3  // Machine exists but is not running
//	ExitNotAvailable     = 4  // Namespace kind unusable for the target
//	ExitAttachFailed     = 5  // setns(2) failed
//	ExitProcessGone      = 6  // Leader PID vanished before attach
//	ExitLaunchFailed     = 7  // Command could not be started
//	ExitAlreadyExists    = 8  // Copy destination exists
//	ExitNotFound         = 9  // Copy source or parent missing
//	ExitUnsupported      = 10 // No valid attach path for this guest
//	ExitConfigError      = 11 // Configuration error
//	ExitPermissionDenied = 12 // Operation requires root
//
// # Extracting Exit Codes
//
//	if err != nil {
//	    os.Exit(errors.GetExitCode(err))
//	}
package errors
