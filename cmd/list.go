package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/firefly-engineering/nspctl/internal/errors"
	"github.com/firefly-engineering/nspctl/internal/machine"
)

var (
	listAll     bool
	listStopped bool
)

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List machines",
	Long:    "List running machines, or with --all every machine image, or with --stopped images that are not running.",
	Args:    cobra.NoArgs,
	RunE:    runList,
}

func init() {
	listCmd.Flags().BoolVarP(&listAll, "all", "a", false, "Include stopped machines")
	listCmd.Flags().BoolVar(&listStopped, "stopped", false, "Only show stopped machines")
	rootCmd.AddCommand(listCmd)
}

func listFilter() (machine.ListFilter, error) {
	switch {
	case listAll && listStopped:
		return 0, errors.ValidationError("--all and --stopped are mutually exclusive")
	case listAll:
		return machine.ListAll, nil
	case listStopped:
		return machine.ListStopped, nil
	default:
		return machine.ListRunning, nil
	}
}

func runList(cmd *cobra.Command, args []string) error {
	filter, err := listFilter()
	if err != nil {
		return err
	}

	list, err := machines().List(cmd.Context(), filter)
	if err != nil {
		return fmt.Errorf("failed to list machines: %w", err)
	}

	if jsonOutput {
		if list == nil {
			list = []machine.Machine{}
		}
		return writeJSON(cmd.OutOrStdout(), list)
	}

	if len(list) == 0 {
		logInfo("No machines found")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tSTATE\tCLASS\tTYPE\tOS")
	for _, mc := range list {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			mc.Name, mc.State, dash(mc.Class), dash(mc.Type), dash(mc.OS))
	}
	return w.Flush()
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
