package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/firefly-engineering/nspctl/internal/app"
	"github.com/firefly-engineering/nspctl/internal/audit"
	"github.com/firefly-engineering/nspctl/internal/config"
	"github.com/firefly-engineering/nspctl/internal/errors"
)

var eventsClear bool

var eventsCmd = &cobra.Command{
	Use:   "events <name>",
	Short: "Show the operations nspctl performed on a machine",
	Args:  cobra.ExactArgs(1),
	RunE:  runEvents,
}

func init() {
	eventsCmd.Flags().BoolVar(&eventsClear, "clear", false, "Delete the machine's journal")
	rootCmd.AddCommand(eventsCmd)
}

func runEvents(cmd *cobra.Command, args []string) error {
	name := args[0]
	if err := config.ValidateMachineName(name); err != nil {
		return errors.ValidationError(err.Error())
	}

	journal := app.Default.Journal()
	if eventsClear {
		if err := journal.Remove(name); err != nil {
			return fmt.Errorf("failed to clear journal: %w", err)
		}
		logSuccess("Cleared events for machine %s", name)
		return nil
	}

	events, err := journal.Events(name)
	if err != nil {
		return fmt.Errorf("failed to read journal: %w", err)
	}

	if jsonOutput {
		if events == nil {
			events = []audit.Event{}
		}
		return writeJSON(cmd.OutOrStdout(), events)
	}

	if len(events) == 0 {
		logInfo("No events found for machine %s", name)
		return nil
	}

	out := cmd.OutOrStdout()
	for _, e := range events {
		ts := e.Timestamp.Local().Format("2006-01-02 15:04:05")
		if e.Details != "" {
			fmt.Fprintf(out, "[%s] %-9s %s (%s)\n", ts, e.Type, e.Machine, e.Details)
		} else {
			fmt.Fprintf(out, "[%s] %-9s %s\n", ts, e.Type, e.Machine)
		}
	}
	return nil
}
