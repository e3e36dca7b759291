package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var infoCmd = &cobra.Command{
	Use:   "info <name>",
	Short: "Show machine state and how nspctl drives it",
	Args:  cobra.ExactArgs(1),
	RunE:  runInfo,
}

func init() {
	rootCmd.AddCommand(infoCmd)
}

func runInfo(cmd *cobra.Command, args []string) error {
	info, err := dispatcher().Info(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	if jsonOutput {
		return writeJSON(cmd.OutOrStdout(), info)
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Name:\t%s\n", info.Name)
	fmt.Fprintf(w, "State:\t%s\n", info.State)
	if info.Leader != 0 {
		fmt.Fprintf(w, "Leader:\t%d\n", info.Leader)
		fmt.Fprintf(w, "Init:\t%s\n", info.Mode)
	}
	if st := info.Status; st != nil {
		printField(w, "Running Since", st.Since)
		printField(w, "OS", st.OS)
		printField(w, "Root", st.Root)
		printField(w, "Network Interface", st.Iface)
		for i, addr := range st.Addresses {
			label := "Address:"
			if i > 0 {
				label = ""
			}
			fmt.Fprintf(w, "%s\t%s\n", label, addr)
		}
		printField(w, "UID Shift", st.UIDShift)
		printField(w, "Unit", st.Unit)
	}
	return w.Flush()
}

func printField(w io.Writer, label, value string) {
	if value != "" {
		fmt.Fprintf(w, "%s:\t%s\n", label, value)
	}
}
