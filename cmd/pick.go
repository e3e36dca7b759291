package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/firefly-engineering/nspctl/internal/logging"
	"github.com/firefly-engineering/nspctl/internal/machine"
	"github.com/firefly-engineering/nspctl/internal/tui"
)

var pickCmd = &cobra.Command{
	Use:   "pick",
	Short: "Interactive machine picker",
	Long: `Opens an interactive TUI for selecting machines.

Use arrow keys or j/k to navigate, / to filter.

Actions:
  Enter  - Open a shell in the selected machine
  s      - Start the selected stopped machine
  p      - Power off the selected running machine
  q/Esc  - Quit

Without a terminal the machines are listed instead.`,
	Args: cobra.NoArgs,
	RunE: runPick,
}

func init() {
	rootCmd.AddCommand(pickCmd)
}

func runPick(cmd *cobra.Command, args []string) error {
	logging.Debug("picker mode started")

	list, err := machines().List(cmd.Context(), machine.ListAll)
	if err != nil {
		return fmt.Errorf("failed to list machines: %w", err)
	}

	if !term.IsTerminal(int(os.Stdout.Fd())) {
		fmt.Fprint(cmd.OutOrStdout(), tui.SimplePicker(list))
		return nil
	}

	if len(list) == 0 {
		logInfo("No machines found")
		return nil
	}

	result, err := tui.RunPicker(list)
	if err != nil {
		return fmt.Errorf("picker error: %w", err)
	}

	logging.Debug("picker result", "action", result.Action)

	return applyPick(cmd, result)
}

func applyPick(cmd *cobra.Command, result tui.PickerResult) error {
	if result.Machine == nil {
		return nil
	}
	name := result.Machine.Name
	d := dispatcher()

	switch result.Action {
	case tui.ActionShell:
		return d.Shell(cmd.Context(), name)

	case tui.ActionStart:
		if err := d.Start(cmd.Context(), name); err != nil {
			return err
		}
		logSuccess("Started machine %s", name)

	case tui.ActionPoweroff:
		if err := d.Poweroff(cmd.Context(), name); err != nil {
			return err
		}
		logSuccess("Powered off machine %s", name)
	}

	return nil
}
