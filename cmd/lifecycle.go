package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/firefly-engineering/nspctl/internal/audit"
	"github.com/firefly-engineering/nspctl/internal/dispatch"
)

// lifecycleVerb is a command that takes one machine name and reports success.
type lifecycleVerb struct {
	use   string
	short string
	done  string
	event audit.EventType
	run   func(d *dispatch.Dispatcher, ctx context.Context, name string) error
}

var lifecycleVerbs = []lifecycleVerb{
	{"start", "Start a stopped machine", "Started", audit.EventStart, (*dispatch.Dispatcher).Start},
	{"poweroff", "Cleanly shut down a running machine", "Powered off", audit.EventPoweroff, (*dispatch.Dispatcher).Poweroff},
	{"reboot", "Reboot a machine, starting it if stopped", "Rebooted", audit.EventReboot, (*dispatch.Dispatcher).Reboot},
	{"terminate", "Kill every process of a machine", "Terminated", audit.EventTerminate, (*dispatch.Dispatcher).Terminate},
	{"enable", "Start a machine at boot", "Enabled", audit.EventEnable, (*dispatch.Dispatcher).Enable},
	{"disable", "Stop starting a machine at boot", "Disabled", audit.EventDisable, (*dispatch.Dispatcher).Disable},
}

func (v lifecycleVerb) command() *cobra.Command {
	return &cobra.Command{
		Use:   v.use + " <name>",
		Short: v.short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			err := v.run(dispatcher(), cmd.Context(), args[0])
			recordResult(v.event, args[0], "", err)
			if err != nil {
				return err
			}
			logSuccess("%s machine %s", v.done, args[0])
			return nil
		},
	}
}

var removeForce bool

var removeCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "Remove a machine image",
	Long:  "Remove a machine image. A running machine is refused unless --force terminates it first.",
	Args:  cobra.ExactArgs(1),
	RunE:  runRemove,
}

func init() {
	for _, v := range lifecycleVerbs {
		rootCmd.AddCommand(v.command())
	}

	removeCmd.Flags().BoolVarP(&removeForce, "force", "f", false, "Terminate a running machine first")
	rootCmd.AddCommand(removeCmd)
}

func runRemove(cmd *cobra.Command, args []string) error {
	name := args[0]
	err := dispatcher().Remove(cmd.Context(), name, removeForce)
	details := ""
	if removeForce {
		details = "forced"
	}
	recordResult(audit.EventRemove, name, details, err)
	if err != nil {
		return err
	}
	logSuccess("Removed machine %s", name)
	return nil
}
