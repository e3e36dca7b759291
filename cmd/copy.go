package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/firefly-engineering/nspctl/internal/attach"
	"github.com/firefly-engineering/nspctl/internal/audit"
)

var (
	copyOverwrite bool
	copyMakeDirs  bool
)

var copyCmd = &cobra.Command{
	Use:   "copy-to <name> <source> <dest>",
	Short: "Copy a host file into a running machine",
	Long: `Copy a host file into a running machine.

When dest is an existing directory inside the machine the file keeps its
name. An existing destination file is only replaced with --overwrite.`,
	Args: cobra.ExactArgs(3),
	RunE: runCopy,
}

func init() {
	copyCmd.Flags().BoolVar(&copyOverwrite, "overwrite", false, "Replace an existing destination file")
	copyCmd.Flags().BoolVarP(&copyMakeDirs, "makedirs", "p", false, "Create missing parent directories")
	rootCmd.AddCommand(copyCmd)
}

func runCopy(cmd *cobra.Command, args []string) error {
	name := args[0]

	dest, err := dispatcher().Copy(cmd.Context(), name, attach.Transfer{
		Source:    args[1],
		Dest:      args[2],
		Overwrite: copyOverwrite,
		MakeDirs:  copyMakeDirs,
	})
	recordResult(audit.EventCopy, name, fmt.Sprintf("%s -> %s", args[1], dest), err)
	if err != nil {
		return err
	}

	logSuccess("Copied %s to %s:%s", args[1], name, dest)
	return nil
}
