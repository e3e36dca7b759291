// Package testutil provides test utilities for attachment and dispatch tests
package testutil

import (
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"testing"

	"github.com/firefly-engineering/nspctl/internal/app"
	"github.com/firefly-engineering/nspctl/internal/config"
	"github.com/firefly-engineering/nspctl/internal/machine"
	"github.com/firefly-engineering/nspctl/internal/nsenter"
)

// DefaultKinds are the namespaces FakeProc creates when none are given.
var DefaultKinds = []nsenter.Kind{
	nsenter.KindIPC,
	nsenter.KindUTS,
	nsenter.KindNet,
	nsenter.KindMount,
}

// FakeProc creates a proc tree under a temp dir in which self and every pid
// have the DefaultKinds namespace files. The files are plain files, so only a
// joiner that never calls setns(2) can use them.
func FakeProc(t *testing.T, pids ...int) string {
	t.Helper()

	root := t.TempDir()
	AddProcess(t, root, "self")
	for _, pid := range pids {
		AddProcess(t, root, strconv.Itoa(pid))
	}
	return root
}

// AddProcess adds an entry with namespace files of the given kinds to a fake
// proc tree.
func AddProcess(t *testing.T, root, name string, kinds ...nsenter.Kind) {
	t.Helper()

	if len(kinds) == 0 {
		kinds = DefaultKinds
	}

	dir := filepath.Join(root, name, "ns")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("Failed to create %s: %v", dir, err)
	}
	for _, kind := range kinds {
		if err := os.WriteFile(filepath.Join(dir, kind.String()), nil, 0644); err != nil {
			t.Fatalf("Failed to write namespace file: %v", err)
		}
	}
}

// CountingJoiner accepts every join and counts them.
type CountingJoiner struct {
	mu    sync.Mutex
	joins int
}

func (j *CountingJoiner) Join(fd int) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.joins++
	return nil
}

// Joins returns how many joins were performed.
func (j *CountingJoiner) Joins() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.joins
}

// NewFakeHost returns a Host over a fake proc tree. Joins go to j and the
// thread is left unprepared, so commands run on the host as the current user.
func NewFakeHost(procRoot string, j nsenter.Joiner) *nsenter.Host {
	return nsenter.NewHost(
		nsenter.WithProcRoot(procRoot),
		nsenter.WithJoiner(j),
		nsenter.WithThreadSetup(func() error { return nil }),
	)
}

// TestEnv holds the test environment
type TestEnv struct {
	T        *testing.T
	TmpDir   string
	Config   *config.Config
	Machines *machine.Mock
	Joiner   *CountingJoiner
	Host     *nsenter.Host
	App      *app.App

	// Replaced records the argv of every process replacement
	Replaced [][]string

	nextPid int
}

// NewTestEnv creates a test environment running as root over a mock machine
// manager and a fake proc tree. The environment's App becomes app.Default
// until the test ends.
func NewTestEnv(t *testing.T) *TestEnv {
	t.Helper()

	tmpDir := t.TempDir()

	cfg := config.Default()
	cfg.ProcRoot = filepath.Join(tmpDir, "proc")
	cfg.MachinesDir = filepath.Join(tmpDir, "machines")
	cfg.StateDir = filepath.Join(tmpDir, "state")
	cfg.SystemdMarker = filepath.Join(tmpDir, "run", "systemd", "system")

	for _, dir := range []string{cfg.ProcRoot, cfg.MachinesDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			t.Fatalf("Failed to create directory %s: %v", dir, err)
		}
	}
	AddProcess(t, cfg.ProcRoot, "self")

	env := &TestEnv{
		T:        t,
		TmpDir:   tmpDir,
		Config:   cfg,
		Machines: machine.NewMock(),
		Joiner:   &CountingJoiner{},
		nextPid:  1000,
	}
	env.Host = NewFakeHost(cfg.ProcRoot, env.Joiner)

	env.App = app.New(
		app.WithConfig(cfg),
		app.WithMachines(env.Machines),
		app.WithHost(env.Host),
		app.WithGeteuid(func() int { return 0 }),
		app.WithShellExec(func(argv0 string, argv, envv []string) error {
			env.Replaced = append(env.Replaced, argv)
			return nil
		}),
		// Guest commands that exist on any host and change nothing.
		app.WithGuestCommands("true", "true"),
	)

	originalDefault := app.Default
	app.SetDefault(env.App)
	t.Cleanup(func() {
		app.SetDefault(originalDefault)
	})

	return env
}

// AddRunningMachine adds a running machine with a fresh leader PID present
// in the fake proc tree, and returns the PID.
func (e *TestEnv) AddRunningMachine(name string) int {
	e.T.Helper()
	pid := e.addProcess()
	e.Machines.AddMachine(name, machine.StateRunning, pid)
	return pid
}

// AddStoppedMachine adds a stopped machine and returns the leader PID it
// gets once the mock starts it.
func (e *TestEnv) AddStoppedMachine(name string) int {
	e.T.Helper()
	pid := e.addProcess()
	e.Machines.AddMachine(name, machine.StateStopped, pid)
	return pid
}

func (e *TestEnv) addProcess() int {
	e.nextPid++
	AddProcess(e.T, e.Config.ProcRoot, strconv.Itoa(e.nextPid))
	return e.nextPid
}

// MarkSystemd creates the systemd marker. Probes run on the host, so every
// running machine is classified as systemd-managed afterwards.
func (e *TestEnv) MarkSystemd() {
	e.T.Helper()

	if err := os.MkdirAll(e.Config.SystemdMarker, 0755); err != nil {
		e.T.Fatalf("Failed to create systemd marker: %v", err)
	}
}
