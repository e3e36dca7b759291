package logging

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// User-facing output functions with status prefixes.
// These write to stdout/stderr directly for CLI output,
// separate from the structured debug logging.

var (
	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr

	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
)

// SetOutput redirects user output (used by tests). Styling is applied only
// when the writer is a terminal.
func SetOutput(out, errOut io.Writer) {
	stdout = out
	stderr = errOut
}

// ResetOutput restores os.Stdout and os.Stderr as user output.
func ResetOutput() {
	stdout = os.Stdout
	stderr = os.Stderr
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func emit(w io.Writer, style lipgloss.Style, prefix, format string, args ...interface{}) {
	marker := prefix
	if isTerminal(w) {
		marker = style.Render(prefix)
	}
	fmt.Fprintf(w, marker+" "+format+"\n", args...)
}

// UserInfo prints an info message to stdout.
func UserInfo(format string, args ...interface{}) {
	emit(stdout, infoStyle, "ℹ", format, args...)
}

// UserSuccess prints a success message to stdout.
func UserSuccess(format string, args ...interface{}) {
	emit(stdout, successStyle, "✓", format, args...)
}

// UserWarning prints a warning message to stderr.
func UserWarning(format string, args ...interface{}) {
	emit(stderr, warningStyle, "⚠", format, args...)
}

// UserError prints an error message to stderr.
func UserError(format string, args ...interface{}) {
	emit(stderr, errorStyle, "✗", format, args...)
}
