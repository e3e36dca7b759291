// Package dispatch decides, per operation, whether a container is driven
// through machinectl or through a raw namespace attachment, and guards every
// operation with privilege, driver and existence checks.
package dispatch

import (
	"context"
	"fmt"
	"os"

	"github.com/kballard/go-shellquote"

	"github.com/firefly-engineering/nspctl/internal/attach"
	"github.com/firefly-engineering/nspctl/internal/config"
	"github.com/firefly-engineering/nspctl/internal/errors"
	"github.com/firefly-engineering/nspctl/internal/logging"
	"github.com/firefly-engineering/nspctl/internal/machine"
)

const (
	ContainerTypeNspawn = "nspawn"
	ExecDriverNsenter   = "nsenter"
)

// CommandRunner runs a command in the namespaces of a process.
type CommandRunner interface {
	Run(ctx context.Context, pid int, req attach.Request) (*attach.Result, error)
}

// FileInjector copies a host file into the namespaces of a process.
type FileInjector interface {
	Copy(ctx context.Context, pid int, t attach.Transfer) (string, error)
}

// ShellLauncher replaces the process with a shell in the namespaces of a
// process.
type ShellLauncher interface {
	ExecReplace(pid int) error
}

// Options configures a Dispatcher.
type Options struct {
	// SystemdMarker is the path whose presence inside a container means
	// systemd is its init.
	SystemdMarker string

	ContainerType string
	ExecDriver    string

	// PoweroffCommand and RebootCommand are run inside raw-init containers.
	PoweroffCommand string
	RebootCommand   string

	// Geteuid reports the effective user ID.
	Geteuid func() int
}

func (o *Options) setDefaults() {
	if o.SystemdMarker == "" {
		o.SystemdMarker = config.DefaultSystemdMarker
	}
	if o.ContainerType == "" {
		o.ContainerType = ContainerTypeNspawn
	}
	if o.ExecDriver == "" {
		o.ExecDriver = ExecDriverNsenter
	}
	if o.PoweroffCommand == "" {
		o.PoweroffCommand = "poweroff"
	}
	if o.RebootCommand == "" {
		o.RebootCommand = "reboot"
	}
	if o.Geteuid == nil {
		o.Geteuid = os.Geteuid
	}
}

// Dispatcher routes container operations to machinectl or to the raw
// attachment path.
type Dispatcher struct {
	machines machine.Manager
	runner   CommandRunner
	injector FileInjector
	shell    ShellLauncher
	opts     Options

	beforeShell func(name string, mode Mode)
}

// New creates a Dispatcher.
func New(machines machine.Manager, runner CommandRunner, injector FileInjector, shell ShellLauncher, opts Options) *Dispatcher {
	opts.setDefaults()
	return &Dispatcher{
		machines: machines,
		runner:   runner,
		injector: injector,
		shell:    shell,
		opts:     opts,
	}
}

// BeforeShell registers fn to run when a shell is about to be handed over,
// after every check has passed. A raw-init shell replaces the process, so
// this is the last point at which the caller runs.
func (d *Dispatcher) BeforeShell(fn func(name string, mode Mode)) *Dispatcher {
	d.beforeShell = fn
	return d
}

// Info describes a machine and how nspctl would drive it.
type Info struct {
	Name   string        `json:"name"`
	State  machine.State `json:"state"`
	Leader int           `json:"leader,omitempty"`
	Mode   Mode          `json:"mode"`
	// Status is set for running machines.
	Status *machine.Status `json:"status,omitempty"`
}

func (d *Dispatcher) requireRoot(op string) error {
	if d.opts.Geteuid() != 0 {
		return errors.PermissionDenied(op)
	}
	return nil
}

func validateDriver(containerType, driver string) error {
	if containerType != ContainerTypeNspawn {
		return errors.Unsupported(fmt.Sprintf("unsupported container type %q", containerType))
	}
	if driver != ExecDriverNsenter {
		return errors.Unsupported(fmt.Sprintf("exec driver %q is not valid for %s containers", driver, containerType))
	}
	return nil
}

// guard runs the checks every operation starts with and returns the
// machine's current state.
func (d *Dispatcher) guard(ctx context.Context, op, name string) (machine.State, error) {
	if err := d.requireRoot(op); err != nil {
		return "", err
	}
	if err := validateDriver(d.opts.ContainerType, d.opts.ExecDriver); err != nil {
		return "", err
	}
	if err := config.ValidateMachineName(name); err != nil {
		return "", err
	}

	exists, err := d.machines.Exists(ctx, name)
	if err != nil {
		return "", err
	}
	if !exists {
		return "", errors.MachineNotFound(name)
	}

	return d.machines.State(ctx, name)
}

// guardRunning is guard plus a running check; it returns the leader PID,
// resolved now and never reused across operations.
func (d *Dispatcher) guardRunning(ctx context.Context, op, name string) (int, error) {
	state, err := d.guard(ctx, op, name)
	if err != nil {
		return 0, err
	}
	if state != machine.StateRunning {
		return 0, errors.MachineNotRunning(name)
	}
	return d.machines.Leader(ctx, name)
}

// classify probes pid for the systemd marker through the raw path.
func (d *Dispatcher) classify(ctx context.Context, name string, pid int) (Mode, error) {
	res, err := d.runner.Run(ctx, pid, attach.Request{
		Argv:    []string{"stat", d.opts.SystemdMarker},
		Env:     attach.NoEnv(),
		Capture: attach.CaptureReturnCode,
	})
	if err != nil {
		return ModeUnknown, err
	}

	mode := ModeRawInit
	if res.ReturnCode == 0 {
		mode = ModeSystemdManaged
	}
	logging.ForMachine(name).Debug("classified machine", "pid", pid, "mode", mode)
	return mode, nil
}

// Classify reports how the running machine name is driven.
func (d *Dispatcher) Classify(ctx context.Context, name string) (Mode, error) {
	pid, err := d.guardRunning(ctx, "classify", name)
	if err != nil {
		return ModeUnknown, err
	}
	return d.classify(ctx, name, pid)
}

// Run executes req in the running machine name. It always takes the raw
// path; a non-zero exit status is part of the result.
func (d *Dispatcher) Run(ctx context.Context, name string, req attach.Request) (*attach.Result, error) {
	pid, err := d.guardRunning(ctx, "run", name)
	if err != nil {
		return nil, err
	}
	return d.runner.Run(ctx, pid, req)
}

// Copy transfers a host file into the running machine name and returns the
// destination path. The overwrite flag is only enforced on the raw path;
// machinectl copy-to applies its own rules.
func (d *Dispatcher) Copy(ctx context.Context, name string, t attach.Transfer) (string, error) {
	pid, err := d.guardRunning(ctx, "copy", name)
	if err != nil {
		return "", err
	}

	mode, err := d.classify(ctx, name, pid)
	if err != nil {
		return "", err
	}
	if mode == ModeSystemdManaged {
		if err := d.machines.CopyTo(ctx, name, t.Source, t.Dest, t.MakeDirs); err != nil {
			return "", err
		}
		return t.Dest, nil
	}
	return d.injector.Copy(ctx, pid, t)
}

// Shell replaces the current process with a login shell in machine name,
// starting the machine first if it is stopped. It returns only on failure.
func (d *Dispatcher) Shell(ctx context.Context, name string) error {
	state, err := d.guard(ctx, "shell", name)
	if err != nil {
		return err
	}
	if state != machine.StateRunning {
		logging.ForMachine(name).Info("starting machine for shell")
		if err := d.machines.Start(ctx, name); err != nil {
			return err
		}
	}

	pid, err := d.machines.Leader(ctx, name)
	if err != nil {
		return err
	}
	mode, err := d.classify(ctx, name, pid)
	if err != nil {
		return err
	}

	logging.ForMachine(name).Debug("handing over to shell", "mode", mode, "next", ModeReplaced)
	if d.beforeShell != nil {
		d.beforeShell(name, mode)
	}
	if mode == ModeSystemdManaged {
		return d.machines.Shell(name)
	}
	return d.shell.ExecReplace(pid)
}

// Poweroff cleanly shuts down the running machine name.
func (d *Dispatcher) Poweroff(ctx context.Context, name string) error {
	pid, err := d.guardRunning(ctx, "poweroff", name)
	if err != nil {
		return err
	}

	mode, err := d.classify(ctx, name, pid)
	if err != nil {
		return err
	}
	if mode == ModeSystemdManaged {
		return d.machines.Poweroff(ctx, name)
	}
	return d.guestVerb(ctx, name, pid, d.opts.PoweroffCommand)
}

// Reboot restarts machine name. A stopped machine is started.
func (d *Dispatcher) Reboot(ctx context.Context, name string) error {
	state, err := d.guard(ctx, "reboot", name)
	if err != nil {
		return err
	}
	if state != machine.StateRunning {
		return d.machines.Start(ctx, name)
	}

	pid, err := d.machines.Leader(ctx, name)
	if err != nil {
		return err
	}
	mode, err := d.classify(ctx, name, pid)
	if err != nil {
		return err
	}
	if mode == ModeSystemdManaged {
		return d.machines.Reboot(ctx, name)
	}
	return d.guestVerb(ctx, name, pid, d.opts.RebootCommand)
}

// guestVerb runs a shutdown command inside a raw-init machine after checking
// the guest has it.
func (d *Dispatcher) guestVerb(ctx context.Context, name string, pid int, verb string) error {
	probe, err := d.runner.Run(ctx, pid, attach.Request{
		Command: "command -v " + shellquote.Join(verb),
		Env:     attach.NoEnv(),
		Capture: attach.CaptureReturnCode,
	})
	if err != nil {
		return err
	}
	if probe.ReturnCode != 0 {
		return errors.Unsupported(fmt.Sprintf("machine %s runs neither systemd nor a %s command", name, verb))
	}

	res, err := d.runner.Run(ctx, pid, attach.Request{
		Argv:    []string{verb},
		Env:     attach.NoEnv(),
		Capture: attach.CaptureFull,
	})
	if err != nil {
		return err
	}
	if res.ReturnCode != 0 {
		return errors.MachineFailed(verb, fmt.Errorf("exit status %d: %s", res.ReturnCode, res.Stderr))
	}
	return nil
}

// Terminate kills every process of machine name through machinectl.
func (d *Dispatcher) Terminate(ctx context.Context, name string) error {
	if _, err := d.guard(ctx, "terminate", name); err != nil {
		return err
	}
	return d.machines.Terminate(ctx, name)
}

// Start boots machine name. Starting a running machine is a no-op.
func (d *Dispatcher) Start(ctx context.Context, name string) error {
	state, err := d.guard(ctx, "start", name)
	if err != nil {
		return err
	}
	if state == machine.StateRunning {
		logging.ForMachine(name).Debug("machine already running")
		return nil
	}
	return d.machines.Start(ctx, name)
}

// Enable marks machine name to start at boot.
func (d *Dispatcher) Enable(ctx context.Context, name string) error {
	if _, err := d.guard(ctx, "enable", name); err != nil {
		return err
	}
	return d.machines.Enable(ctx, name)
}

// Disable stops machine name from starting at boot.
func (d *Dispatcher) Disable(ctx context.Context, name string) error {
	if _, err := d.guard(ctx, "disable", name); err != nil {
		return err
	}
	return d.machines.Disable(ctx, name)
}

// Remove deletes the image of machine name. A running machine is refused
// unless force is set, in which case it is terminated first.
func (d *Dispatcher) Remove(ctx context.Context, name string, force bool) error {
	state, err := d.guard(ctx, "remove", name)
	if err != nil {
		return err
	}
	if state == machine.StateRunning {
		if !force {
			return errors.ValidationError(fmt.Sprintf("machine %s is running, stop it first or use --force", name))
		}
		if err := d.machines.Terminate(ctx, name); err != nil {
			return err
		}
	}
	return d.machines.Remove(ctx, name)
}

// Info reports the state of machine name and, when it runs, its leader,
// mode and service manager status.
func (d *Dispatcher) Info(ctx context.Context, name string) (*Info, error) {
	state, err := d.guard(ctx, "info", name)
	if err != nil {
		return nil, err
	}

	info := &Info{Name: name, State: state}
	if state != machine.StateRunning {
		return info, nil
	}

	if info.Leader, err = d.machines.Leader(ctx, name); err != nil {
		return nil, err
	}
	if info.Mode, err = d.classify(ctx, name, info.Leader); err != nil {
		return nil, err
	}
	if info.Status, err = d.machines.Status(ctx, name); err != nil {
		return nil, err
	}
	return info, nil
}
