// Package app provides the application context for nspctl.
// It allows dependency injection for testing.
package app

import (
	"os"

	"github.com/firefly-engineering/nspctl/internal/attach"
	"github.com/firefly-engineering/nspctl/internal/audit"
	"github.com/firefly-engineering/nspctl/internal/config"
	"github.com/firefly-engineering/nspctl/internal/dispatch"
	"github.com/firefly-engineering/nspctl/internal/machine"
	"github.com/firefly-engineering/nspctl/internal/nsenter"
)

// App holds the application dependencies
type App struct {
	// Config is the loaded configuration
	Config *config.Config

	// Machines talks to machinectl
	Machines machine.Manager

	// Host attaches to container namespaces
	Host *nsenter.Host

	// Geteuid reports the effective user ID
	Geteuid func() int

	shellExec attach.ExecFunc
	dispatch  dispatch.Options
}

// Option is a function that configures the App
type Option func(*App)

// WithConfig sets a custom configuration
func WithConfig(cfg *config.Config) Option {
	return func(a *App) {
		a.Config = cfg
	}
}

// WithMachines sets a custom machine manager
func WithMachines(m machine.Manager) Option {
	return func(a *App) {
		a.Machines = m
	}
}

// WithHost sets a custom namespace host
func WithHost(h *nsenter.Host) Option {
	return func(a *App) {
		a.Host = h
	}
}

// WithGeteuid overrides the effective user ID lookup
func WithGeteuid(fn func() int) Option {
	return func(a *App) {
		a.Geteuid = fn
	}
}

// WithShellExec overrides how the raw shell replaces the process
func WithShellExec(fn attach.ExecFunc) Option {
	return func(a *App) {
		a.shellExec = fn
	}
}

// WithGuestCommands sets the commands run inside raw-init containers to power
// them off and reboot them.
func WithGuestCommands(poweroff, reboot string) Option {
	return func(a *App) {
		a.dispatch.PoweroffCommand = poweroff
		a.dispatch.RebootCommand = reboot
	}
}

// New creates a new App with the given options.
// Dependencies not provided are built from the configuration.
func New(opts ...Option) *App {
	app := &App{}

	for _, opt := range opts {
		opt(app)
	}

	if app.Config == nil {
		app.Config = config.Default()
	}
	if app.Machines == nil {
		app.Machines = machine.NewMachinectl(app.Config.Machinectl, app.Config.MachinesDir)
	}
	if app.Host == nil {
		app.Host = nsenter.NewHost(nsenter.WithProcRoot(app.Config.ProcRoot))
	}
	if app.Geteuid == nil {
		app.Geteuid = os.Geteuid
	}

	return app
}

func (a *App) attachOptions() attach.Options {
	return attach.Options{
		SafePath: a.Config.SafePath,
		Shell:    a.Config.Shell,
	}
}

// Runner returns a command runner over the app's host.
func (a *App) Runner() *attach.Runner {
	return attach.NewRunner(a.Host, a.attachOptions())
}

// ShellLauncher returns a shell launcher over the app's host.
func (a *App) ShellLauncher() *attach.ShellLauncher {
	opts := []attach.ShellOption{attach.WithShellArgs(a.Config.ShellArgs...)}
	if a.shellExec != nil {
		opts = append(opts, attach.WithExec(a.shellExec))
	}
	return attach.NewShellLauncher(a.Host, a.attachOptions(), opts...)
}

// EnvPolicy returns the configured default environment policy.
func (a *App) EnvPolicy() (attach.EnvPolicy, error) {
	return attach.ParsePolicy(a.Config.Env.Policy, a.Config.Env.Allow)
}

// Journal returns the per-machine operation journal under the state dir.
func (a *App) Journal() *audit.Logger {
	return audit.NewLogger(a.Config.StateDir)
}

// Dispatcher wires the app's dependencies into a Dispatcher.
func (a *App) Dispatcher() *dispatch.Dispatcher {
	runner := a.Runner()
	opts := a.dispatch
	opts.SystemdMarker = a.Config.SystemdMarker
	opts.Geteuid = a.Geteuid

	return dispatch.New(
		a.Machines,
		runner,
		attach.NewInjector(runner),
		a.ShellLauncher(),
		opts,
	)
}

// Default is the default application instance
var Default = New()

// SetDefault sets the default application instance (used for testing)
func SetDefault(app *App) {
	Default = app
}

// ResetDefault resets to the default application instance
func ResetDefault() {
	Default = New()
}
