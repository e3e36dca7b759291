// Package logging provides logging utilities for nspctl.
//
// This package provides two categories of output:
//   - Debug logging: Structured logs for debugging (via slog)
//   - User output: Formatted messages for end users
//
// # Debug Logging
//
// Debug logs are written using slog and controlled by verbosity settings:
//
//	logging.Debug("entering namespace", "kind", kind, "pid", pid)
//	logging.Warn("namespace restore incomplete", "pid", pid, "error", err)
//	logging.ForMachine(name).Debug("classified machine", "mode", mode)
//
// # User Output
//
// User-facing messages are formatted with status indicators:
//
//	logging.UserInfo("Copying %s to %s...", src, dest)
//	logging.UserSuccess("Machine %s powered off", name)
//	logging.UserWarning("stdin is not a terminal")
//	logging.UserError("Failed to attach: %v", err)
//
// Output destinations:
//   - UserInfo, UserSuccess: stdout
//   - UserWarning, UserError: stderr
//
// # Status Indicators
//
// User functions prepend status indicators, colored with lipgloss when the
// destination is a terminal:
//   - ℹ (info)
//   - ✓ (success)
//   - ⚠ (warning)
//   - ✗ (error)
package logging
