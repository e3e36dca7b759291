package machine

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	securejoin "github.com/cyphar/filepath-securejoin"

	"github.com/firefly-engineering/nspctl/internal/errors"
	"github.com/firefly-engineering/nspctl/internal/logging"
	"github.com/firefly-engineering/nspctl/internal/system"
)

// imageSuffixes are the on-disk forms of an image under the machines
// directory besides a plain directory.
var imageSuffixes = []string{"", ".raw"}

// Machinectl implements Manager with machinectl(1) and systemctl(1).
type Machinectl struct {
	// Path is the machinectl binary.
	Path string

	// MachinesDir is the image root, usually /var/lib/machines.
	MachinesDir string

	exec system.CommandExecutor
	fs   system.FileSystem
}

// NewMachinectl creates a Machinectl using the default executor and file system.
func NewMachinectl(path, machinesDir string) *Machinectl {
	return NewMachinectlWith(path, machinesDir, system.DefaultExecutor(), system.DefaultFS())
}

// NewMachinectlWith creates a Machinectl with explicit dependencies.
func NewMachinectlWith(path, machinesDir string, exec system.CommandExecutor, fs system.FileSystem) *Machinectl {
	if path == "" {
		path = "machinectl"
	}
	return &Machinectl{
		Path:        path,
		MachinesDir: machinesDir,
		exec:        exec,
		fs:          fs,
	}
}

func (m *Machinectl) run(ctx context.Context, args ...string) (string, error) {
	logging.Debug("running machinectl", "args", args)
	out, err := m.exec.Execute(ctx, m.Path, args...)
	return strings.TrimSpace(string(out)), err
}

func (m *Machinectl) list(ctx context.Context, verb string) ([][]string, error) {
	out, err := m.run(ctx, verb, "--no-legend", "--no-pager")
	if err != nil {
		return nil, err
	}

	var rows [][]string
	for _, line := range strings.Split(out, "\n") {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		rows = append(rows, fields)
	}
	return rows, nil
}

func (m *Machinectl) show(ctx context.Context, name, property string) (string, error) {
	return m.run(ctx, "show", name, "-p", property, "--value")
}

// Exists looks for the image under MachinesDir first and asks machinectl
// otherwise.
func (m *Machinectl) Exists(ctx context.Context, name string) (bool, error) {
	if m.MachinesDir != "" {
		for _, suffix := range imageSuffixes {
			p, err := securejoin.SecureJoin(m.MachinesDir, name+suffix)
			if err != nil {
				return false, fmt.Errorf("resolve image path: %w", err)
			}
			if m.fs.Exists(p) {
				return true, nil
			}
		}
	}

	if _, err := m.run(ctx, "show-image", name); err == nil {
		return true, nil
	}
	// Machines registered without an image, e.g. started with systemd-nspawn -D.
	if _, err := m.show(ctx, name, "State"); err == nil {
		return true, nil
	}
	return false, nil
}

// State returns StateRunning when machinectl knows the machine as running.
// A machine that is not registered is stopped.
func (m *Machinectl) State(ctx context.Context, name string) (State, error) {
	out, err := m.show(ctx, name, "State")
	if err != nil || out == "" {
		return StateStopped, nil
	}
	if out == string(StateRunning) {
		return StateRunning, nil
	}
	// "opening", "closing" and similar transient states.
	logging.Debug("machine in transient state", "machine", name, "state", out)
	return StateStopped, nil
}

// Leader returns the machine's leader PID.
func (m *Machinectl) Leader(ctx context.Context, name string) (int, error) {
	out, err := m.show(ctx, name, "Leader")
	if err != nil {
		return 0, errors.MachineNotRunning(name)
	}
	pid, err := strconv.Atoi(out)
	if err != nil || pid <= 0 {
		return 0, errors.MachineFailed("leader lookup", fmt.Errorf("unexpected leader %q for %s", out, name))
	}
	return pid, nil
}

// Status parses `machinectl status`, which unlike show carries the
// addresses and OS of the machine.
func (m *Machinectl) Status(ctx context.Context, name string) (*Status, error) {
	out, err := m.run(ctx, "status", name, "--no-pager", "--lines=0")
	if err != nil {
		return nil, errors.MachineNotRunning(name)
	}
	return parseStatus(out), nil
}

// List combines `machinectl list` with `machinectl list-images`. When
// list-images is unavailable the image directory is scanned instead.
func (m *Machinectl) List(ctx context.Context, filter ListFilter) ([]Machine, error) {
	running, err := m.list(ctx, "list")
	if err != nil {
		return nil, errors.MachineFailed("list", err)
	}

	byName := make(map[string]Machine)
	for _, row := range running {
		mc := Machine{Name: row[0], State: StateRunning}
		if len(row) > 1 {
			mc.Class = row[1]
		}
		if len(row) > 3 && row[3] != "-" {
			mc.OS = row[3]
		}
		byName[mc.Name] = mc
	}

	if filter != ListRunning {
		images, err := m.images(ctx)
		if err != nil {
			return nil, err
		}
		for _, img := range images {
			if mc, ok := byName[img.Name]; ok {
				mc.Type = img.Type
				byName[img.Name] = mc
				continue
			}
			byName[img.Name] = img
		}
	}

	var machines []Machine
	for _, mc := range byName {
		if filter == ListStopped && mc.State != StateStopped {
			continue
		}
		machines = append(machines, mc)
	}
	sort.Slice(machines, func(i, j int) bool { return machines[i].Name < machines[j].Name })
	return machines, nil
}

func (m *Machinectl) images(ctx context.Context) ([]Machine, error) {
	rows, err := m.list(ctx, "list-images")
	if err == nil {
		images := make([]Machine, 0, len(rows))
		for _, row := range rows {
			img := Machine{Name: row[0], State: StateStopped}
			if len(row) > 1 {
				img.Type = row[1]
			}
			images = append(images, img)
		}
		return images, nil
	}

	logging.Debug("list-images failed, scanning image directory", "dir", m.MachinesDir, "error", err)
	entries, dirErr := m.fs.ReadDir(m.MachinesDir)
	if dirErr != nil {
		return nil, errors.MachineFailed("list-images", err)
	}

	var images []Machine
	for _, e := range entries {
		switch {
		case e.IsDir() && !strings.HasPrefix(e.Name(), "."):
			images = append(images, Machine{Name: e.Name(), State: StateStopped, Type: "directory"})
		case strings.HasSuffix(e.Name(), ".raw"):
			images = append(images, Machine{Name: strings.TrimSuffix(e.Name(), ".raw"), State: StateStopped, Type: "raw"})
		}
	}
	return images, nil
}

func (m *Machinectl) verb(ctx context.Context, verb, name string) error {
	logging.Debug("machine lifecycle", "verb", verb, "machine", name)
	if _, err := m.run(ctx, verb, name); err != nil {
		return errors.MachineFailed(verb, err)
	}
	return nil
}

func (m *Machinectl) Start(ctx context.Context, name string) error {
	return m.verb(ctx, "start", name)
}

func (m *Machinectl) Poweroff(ctx context.Context, name string) error {
	return m.verb(ctx, "poweroff", name)
}

func (m *Machinectl) Reboot(ctx context.Context, name string) error {
	return m.verb(ctx, "reboot", name)
}

func (m *Machinectl) Terminate(ctx context.Context, name string) error {
	return m.verb(ctx, "terminate", name)
}

func (m *Machinectl) Enable(ctx context.Context, name string) error {
	return m.verb(ctx, "enable", name)
}

func (m *Machinectl) Disable(ctx context.Context, name string) error {
	return m.verb(ctx, "disable", name)
}

func (m *Machinectl) Remove(ctx context.Context, name string) error {
	return m.verb(ctx, "remove", name)
}

// CopyTo runs `machinectl copy-to`. makeDirs adds --mkdir.
func (m *Machinectl) CopyTo(ctx context.Context, name, source, dest string, makeDirs bool) error {
	args := []string{"copy-to"}
	if makeDirs {
		args = append(args, "--mkdir")
	}
	args = append(args, name, source, dest)

	if _, err := m.run(ctx, args...); err != nil {
		return errors.MachineFailed("copy-to", err)
	}
	return nil
}

// Shell replaces the current process with `machinectl shell <name>`.
func (m *Machinectl) Shell(name string) error {
	logging.Debug("replacing process with machinectl shell", "machine", name)
	if err := m.exec.ReplaceProcess(m.Path, "shell", name); err != nil {
		return errors.MachineFailed("shell", err)
	}
	return nil
}

var _ Manager = (*Machinectl)(nil)
