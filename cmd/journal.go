package cmd

import (
	"fmt"

	"github.com/firefly-engineering/nspctl/internal/app"
	"github.com/firefly-engineering/nspctl/internal/audit"
	"github.com/firefly-engineering/nspctl/internal/config"
	"github.com/firefly-engineering/nspctl/internal/errors"
	"github.com/firefly-engineering/nspctl/internal/logging"
)

// record appends an event to the machine's journal. Journal failures are
// logged and never fail the command.
func record(eventType audit.EventType, name, details string) {
	if config.ValidateMachineName(name) != nil {
		return
	}
	if err := app.Default.Journal().LogEvent(eventType, name, details); err != nil {
		logging.ForMachine(name).Warn("failed to record event", "type", eventType, "error", err)
	}
}

// recordResult journals the outcome of an operation. Rejections that never
// reached the machine are not recorded.
func recordResult(eventType audit.EventType, name, details string, err error) {
	switch {
	case err == nil:
		record(eventType, name, details)
	case errors.Is(err, errors.ErrMachineNotFound),
		errors.Is(err, errors.ErrPermissionDenied),
		errors.Is(err, errors.ErrNotRunning):
		return
	default:
		record(audit.EventError, name, fmt.Sprintf("%s: %v", eventType, err))
	}
}
