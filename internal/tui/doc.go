// Package tui provides terminal user interface components for nspctl.
//
// This package uses the Bubble Tea framework for the interactive machine
// picker behind "nspctl pick".
//
// # Machine Picker
//
// The picker lists machines grouped by state and returns what to do next:
//
//	result, err := tui.RunPicker(machines)
//	switch result.Action {
//	case tui.ActionShell:
//	    // Open a shell in result.Machine
//	case tui.ActionStart:
//	    // Start the stopped result.Machine
//	case tui.ActionPoweroff:
//	    // Power off the running result.Machine
//	case tui.ActionQuit, tui.ActionNone:
//	    // Exit
//	}
//
// Group headers are skipped by keyboard navigation. SimplePicker renders a
// plain listing for non-interactive output.
//
// # Dependencies
//
// Uses the Charm libraries:
//   - github.com/charmbracelet/bubbletea - TUI framework
//   - github.com/charmbracelet/bubbles - UI components
//   - github.com/charmbracelet/lipgloss - Styling
package tui
