package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/firefly-engineering/nspctl/internal/app"
	"github.com/firefly-engineering/nspctl/internal/config"
	"github.com/firefly-engineering/nspctl/internal/errors"
	"github.com/firefly-engineering/nspctl/internal/logging"
)

var (
	verbose    bool
	jsonOutput bool
	configPath string
)

var rootCmd = &cobra.Command{
	Use:   "nspctl",
	Short: "Manage systemd-nspawn containers",
	Long: `nspctl drives systemd-nspawn containers whether or not they run systemd.

Containers booted with systemd are driven through machinectl. Containers
running any other init are driven by joining their namespaces directly:
  - Commands run with a scrubbed environment
  - Files are streamed in through the container's own filesystem view
  - Shells replace the nspctl process

Most commands require root.`,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logging.Setup(verbose, jsonOutput, os.Stderr)
		return loadApp(cmd)
	},
}

// loadApp installs the App commands run against. Tests replace it.
var loadApp = func(cmd *cobra.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	app.SetDefault(app.New(app.WithConfig(cfg)))
	return nil
}

// loadConfig reads --config when given and the default path otherwise. Only
// the default path may be missing.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	if cmd.Flags().Changed("config") {
		return config.LoadFile(configPath)
	}
	return config.Load(configPath)
}

// Execute runs the CLI. Interrupts cancel the running operation.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	if err != nil && !isExitStatus(err) {
		logging.UserError("%v", err)
	}
	return err
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output logs and results in JSON format")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultConfigPath, "Configuration file")
	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// exitStatus carries a container command's exit status to main without a
// message of its own.
type exitStatus struct {
	err *errors.NspctlError
}

func newExitStatus(code int) error {
	return exitStatus{err: errors.New(code, "command failed")}
}

func (e exitStatus) Error() string { return e.err.Error() }
func (e exitStatus) Unwrap() error { return e.err }

func isExitStatus(err error) bool {
	var status exitStatus
	return errors.As(err, &status)
}

// Helper aliases for user-facing output (delegates to logging package)
var (
	logInfo    = logging.UserInfo
	logSuccess = logging.UserSuccess
	logWarning = logging.UserWarning
)
