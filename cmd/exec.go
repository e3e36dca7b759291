package cmd

import (
	"fmt"

	"github.com/kballard/go-shellquote"
	"github.com/spf13/cobra"

	"github.com/firefly-engineering/nspctl/internal/app"
	"github.com/firefly-engineering/nspctl/internal/attach"
	"github.com/firefly-engineering/nspctl/internal/audit"
	"github.com/firefly-engineering/nspctl/internal/errors"
)

var (
	execOutput  string
	execEnv     []string
	execKeepEnv bool
)

var execCmd = &cobra.Command{
	Use:   "exec <name> -- <command>",
	Short: "Execute command in a running machine",
	Long: `Execute a command inside a running machine's namespaces and exit with its status.

A single argument after -- is shell text; several are quoted and joined.
The command sees only a safe PATH unless --env or --keep-env says otherwise.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runExec,
}

func init() {
	execCmd.Flags().StringVarP(&execOutput, "output", "o", "full", "What to capture: full, stdout, stderr or returncode")
	execCmd.Flags().StringArrayVarP(&execEnv, "env", "e", nil, "Pass the named environment variable through (repeatable)")
	execCmd.Flags().BoolVar(&execKeepEnv, "keep-env", false, "Pass the whole environment through")
	rootCmd.AddCommand(execCmd)
}

// execRequest builds the request from the arguments after the machine name.
func execRequest(cmd *cobra.Command, args []string) (attach.Request, error) {
	usage := errors.ValidationError("usage: nspctl exec <name> -- <command>")

	dash := cmd.ArgsLenAtDash()
	if dash != 1 || len(args) < 2 {
		return attach.Request{}, usage
	}

	capture, err := attach.ParseCapture(execOutput)
	if err != nil {
		return attach.Request{}, errors.ValidationError(err.Error())
	}

	req := attach.Request{Capture: capture}
	if argv := args[dash:]; len(argv) == 1 {
		req.Command = argv[0]
	} else {
		req.Argv = argv
	}

	switch {
	case execKeepEnv && len(execEnv) > 0:
		return attach.Request{}, errors.ValidationError("--env and --keep-env are mutually exclusive")
	case execKeepEnv:
		req.Env = attach.PassthroughEnv()
	case len(execEnv) > 0:
		req.Env = attach.AllowEnv(execEnv...)
	default:
		policy, err := app.Default.EnvPolicy()
		if err != nil {
			return attach.Request{}, errors.ConfigError("invalid environment policy", err)
		}
		req.Env = policy
	}

	return req, nil
}

func runExec(cmd *cobra.Command, args []string) error {
	req, err := execRequest(cmd, args)
	if err != nil {
		return err
	}

	res, err := dispatcher().Run(cmd.Context(), args[0], req)
	recordResult(audit.EventExec, args[0], execSummary(req, res), err)
	if err != nil {
		return err
	}

	if err := printResult(cmd, req.Capture, res); err != nil {
		return err
	}
	if res.ReturnCode != 0 {
		return newExitStatus(res.ReturnCode)
	}
	return nil
}

// execSummary describes a command and its status for the journal.
func execSummary(req attach.Request, res *attach.Result) string {
	command := req.Command
	if command == "" {
		command = shellquote.Join(req.Argv...)
	}
	if res == nil {
		return command
	}
	return fmt.Sprintf("%s (rc=%d)", command, res.ReturnCode)
}

func printResult(cmd *cobra.Command, capture attach.Capture, res *attach.Result) error {
	if jsonOutput {
		return writeJSON(cmd.OutOrStdout(), res)
	}

	switch capture {
	case attach.CaptureReturnCode:
		fmt.Fprintln(cmd.OutOrStdout(), res.ReturnCode)
		return nil
	case attach.CaptureStderr:
		if res.Stderr != "" {
			fmt.Fprintln(cmd.ErrOrStderr(), res.Stderr)
		}
		return nil
	}

	if res.Stdout != "" {
		fmt.Fprintln(cmd.OutOrStdout(), res.Stdout)
	}
	if res.Stderr != "" {
		fmt.Fprintln(cmd.ErrOrStderr(), res.Stderr)
	}
	return nil
}
