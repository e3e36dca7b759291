package cmd

import (
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var shellCmd = &cobra.Command{
	Use:   "shell <name>",
	Short: "Open a login shell in a machine",
	Long: `Open a login shell in a machine, starting it first if it is stopped.

systemd machines get a machinectl shell; other machines get a shell in their
joined namespaces that replaces the nspctl process.`,
	Args: cobra.ExactArgs(1),
	RunE: runShell,
}

func init() {
	rootCmd.AddCommand(shellCmd)
}

func runShell(cmd *cobra.Command, args []string) error {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		logWarning("stdin is not a terminal; the shell will not be interactive")
	}
	return dispatcher().Shell(cmd.Context(), args[0])
}
