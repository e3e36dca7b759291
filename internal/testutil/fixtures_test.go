package testutil

import (
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"testing"

	"github.com/firefly-engineering/nspctl/internal/machine"
)

func TestLoadValidConfig(t *testing.T) {
	cfg, err := ValidConfig()
	if err != nil {
		t.Fatalf("ValidConfig() error: %v", err)
	}

	if cfg.SafePath != "/usr/bin:/bin" {
		t.Errorf("SafePath = %q, want %q", cfg.SafePath, "/usr/bin:/bin")
	}
	if cfg.MachinesDir != "/srv/machines" {
		t.Errorf("MachinesDir = %q", cfg.MachinesDir)
	}
	if !reflect.DeepEqual(cfg.ShellArgs, []string{"-l", "-i"}) {
		t.Errorf("ShellArgs = %v", cfg.ShellArgs)
	}
	if cfg.Env.Policy != "allowlist" || len(cfg.Env.Allow) != 2 {
		t.Errorf("Env = %+v", cfg.Env)
	}

	// Keys the fixture leaves out keep their defaults
	if cfg.Machinectl != "machinectl" {
		t.Errorf("Machinectl = %q, want default", cfg.Machinectl)
	}
}

func TestLoadInvalidConfigs(t *testing.T) {
	for _, name := range []string{"invalid_config.toml", "unknown_key_config.toml"} {
		t.Run(name, func(t *testing.T) {
			if _, err := LoadConfigFixture(name); err == nil {
				t.Errorf("%s should fail to load", name)
			}
		})
	}
}

func TestLoadFixture_Missing(t *testing.T) {
	if _, err := LoadFixture("nonexistent.toml"); err == nil {
		t.Error("LoadFixture should fail for a missing fixture")
	}
}

func TestFakeProc(t *testing.T) {
	root := FakeProc(t, 1234)

	for _, dir := range []string{"self", "1234"} {
		for _, kind := range DefaultKinds {
			if !fileExists(filepath.Join(root, dir, "ns", kind.String())) {
				t.Errorf("%s/ns/%s missing", dir, kind)
			}
		}
	}
}

func TestNewTestEnv(t *testing.T) {
	env := NewTestEnv(t)

	pid := env.AddRunningMachine("web1")
	if pid == 0 {
		t.Fatal("AddRunningMachine should assign a leader PID")
	}
	if !fileExists(filepath.Join(env.Config.ProcRoot, strconv.Itoa(pid), "ns", "net")) {
		t.Error("running machine should have a fake proc entry")
	}

	env.AddStoppedMachine("db1")
	if env.Machines.Machines["db1"].State != machine.StateStopped {
		t.Error("db1 should be stopped")
	}

	if fileExists(env.Config.SystemdMarker) {
		t.Error("systemd marker should be absent until MarkSystemd")
	}
	env.MarkSystemd()
	if !fileExists(env.Config.SystemdMarker) {
		t.Error("MarkSystemd should create the marker")
	}
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
