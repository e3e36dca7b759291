package cmd

import (
	"encoding/json"
	"io"

	"github.com/firefly-engineering/nspctl/internal/app"
	"github.com/firefly-engineering/nspctl/internal/audit"
	"github.com/firefly-engineering/nspctl/internal/dispatch"
	"github.com/firefly-engineering/nspctl/internal/machine"
)

// dispatcher returns a Dispatcher over the application dependencies. Shells
// are journaled once they are about to start.
func dispatcher() *dispatch.Dispatcher {
	return app.Default.Dispatcher().BeforeShell(func(name string, _ dispatch.Mode) {
		record(audit.EventShell, name, "")
	})
}

// machines returns the application machine manager.
func machines() machine.Manager {
	return app.Default.Machines
}

// writeJSON renders v as indented JSON.
func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
