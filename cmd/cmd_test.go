package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/firefly-engineering/nspctl/internal/config"
	"github.com/firefly-engineering/nspctl/internal/errors"
	"github.com/firefly-engineering/nspctl/internal/logging"
	"github.com/firefly-engineering/nspctl/internal/machine"
	"github.com/firefly-engineering/nspctl/internal/testutil"
	"github.com/firefly-engineering/nspctl/internal/tui"
)

// setupTestEnv installs a test App with running machine web1 and stopped
// machine db1, and keeps commands from loading the host configuration.
func setupTestEnv(t *testing.T) *testutil.TestEnv {
	t.Helper()

	env := testutil.NewTestEnv(t)
	env.AddRunningMachine("web1")
	env.AddStoppedMachine("db1")

	original := loadApp
	loadApp = func(*cobra.Command) error { return nil }
	t.Cleanup(func() { loadApp = original })

	return env
}

func executeCommand(args ...string) (string, string, error) {
	// Reset flag values before each test
	verbose = false
	jsonOutput = false
	configPath = config.DefaultConfigPath
	execOutput = "full"
	execEnv = nil
	execKeepEnv = false
	copyOverwrite = false
	copyMakeDirs = false
	removeForce = false
	listAll = false
	listStopped = false
	eventsClear = false
	resetCommandState(rootCmd)

	cmd := rootCmd
	cmd.SetArgs(args)

	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	logging.SetOutput(&stdout, &stderr)

	err := cmd.Execute()

	// Reset args for next test
	cmd.SetArgs(nil)
	cmd.SetOut(nil)
	cmd.SetErr(nil)
	logging.ResetOutput()

	return stdout.String(), stderr.String(), err
}

// resetCommandState clears per-command parse state cobra keeps between
// executions of the shared command tree: the --help value and the position
// of "--".
func resetCommandState(c *cobra.Command) {
	if f := c.Flags().Lookup("help"); f != nil {
		_ = f.Value.Set("false")
		f.Changed = false
	}
	c.Flags().Init(c.Name(), pflag.ContinueOnError)
	for _, sub := range c.Commands() {
		resetCommandState(sub)
	}
}

func TestRootCommand_Help(t *testing.T) {
	stdout, _, err := executeCommand("--help")
	if err != nil {
		t.Fatalf("Help command failed: %v", err)
	}

	for _, want := range []string{"nspctl", "machinectl", "--verbose", "--json", "--config"} {
		if !strings.Contains(stdout, want) {
			t.Errorf("Help output should contain %q", want)
		}
	}
}

func TestSubcommand_Help(t *testing.T) {
	tests := []struct {
		cmd  string
		want []string
	}{
		{"exec", []string{"Execute", "--output", "--env", "--keep-env"}},
		{"copy-to", []string{"Copy", "--overwrite", "--makedirs"}},
		{"shell", []string{"login shell"}},
		{"start", []string{"Start"}},
		{"poweroff", []string{"shut down"}},
		{"reboot", []string{"Reboot"}},
		{"terminate", []string{"Kill"}},
		{"enable", []string{"boot"}},
		{"disable", []string{"boot"}},
		{"remove", []string{"--force"}},
		{"info", []string{"state"}},
		{"list", []string{"--all", "--stopped"}},
		{"pick", []string{"Enter"}},
		{"events", []string{"--clear"}},
	}

	for _, tt := range tests {
		t.Run(tt.cmd, func(t *testing.T) {
			stdout, _, err := executeCommand(tt.cmd, "--help")
			if err != nil {
				t.Fatalf("Help command failed: %v", err)
			}
			for _, want := range tt.want {
				if !strings.Contains(stdout, want) {
					t.Errorf("%s help should contain %q", tt.cmd, want)
				}
			}
		})
	}
}

func TestCommandRequiresArgs(t *testing.T) {
	setupTestEnv(t)

	for _, name := range []string{"exec", "copy-to", "shell", "start", "poweroff", "remove", "info"} {
		t.Run(name, func(t *testing.T) {
			if _, _, err := executeCommand(name); err == nil {
				t.Errorf("%s without arguments should fail", name)
			}
		})
	}
}

func TestExec(t *testing.T) {
	setupTestEnv(t)

	tests := []struct {
		name       string
		args       []string
		wantStdout string
		wantCode   int
	}{
		{"shell text", []string{"exec", "web1", "--", "echo hi"}, "hi\n", 0},
		{"argv", []string{"exec", "web1", "--", "echo", "a b"}, "a b\n", 0},
		{"exit status", []string{"exec", "web1", "--", "sh", "-c", "exit 3"}, "", 3},
		{"returncode output", []string{"exec", "--output", "returncode", "web1", "--", "false"}, "1\n", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stdout, _, err := executeCommand(tt.args...)
			if tt.wantCode == 0 && err != nil {
				t.Fatalf("exec error: %v", err)
			}
			if tt.wantCode != 0 {
				if !isExitStatus(err) {
					t.Fatalf("exec error = %v, want exit status", err)
				}
				if got := errors.GetExitCode(err); got != tt.wantCode {
					t.Errorf("exit code = %d, want %d", got, tt.wantCode)
				}
			}
			if stdout != tt.wantStdout {
				t.Errorf("stdout = %q, want %q", stdout, tt.wantStdout)
			}
		})
	}
}

func TestExec_JSON(t *testing.T) {
	setupTestEnv(t)

	stdout, _, err := executeCommand("--json", "exec", "web1", "--", "echo out; echo err >&2")
	if err != nil {
		t.Fatalf("exec error: %v", err)
	}

	var res struct {
		ReturnCode int    `json:"returncode"`
		Stdout     string `json:"stdout"`
		Stderr     string `json:"stderr"`
	}
	if err := json.Unmarshal([]byte(stdout), &res); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, stdout)
	}
	if res.ReturnCode != 0 || res.Stdout != "out" || res.Stderr != "err" {
		t.Errorf("result = %+v", res)
	}
}

func TestExec_Environment(t *testing.T) {
	setupTestEnv(t)
	t.Setenv("NSPCTL_TEST_VAR", "visible")

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"scrubbed by default", []string{"exec", "web1", "--", "echo \"[$NSPCTL_TEST_VAR]\""}, "[]\n"},
		{"allowlisted", []string{"exec", "--env", "NSPCTL_TEST_VAR", "web1", "--", "echo \"[$NSPCTL_TEST_VAR]\""}, "[visible]\n"},
		{"passthrough", []string{"exec", "--keep-env", "web1", "--", "echo \"[$NSPCTL_TEST_VAR]\""}, "[visible]\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stdout, _, err := executeCommand(tt.args...)
			if err != nil {
				t.Fatalf("exec error: %v", err)
			}
			if stdout != tt.want {
				t.Errorf("stdout = %q, want %q", stdout, tt.want)
			}
		})
	}
}

func TestExec_Errors(t *testing.T) {
	setupTestEnv(t)

	tests := []struct {
		name string
		args []string
		want error
	}{
		{"missing separator", []string{"exec", "web1", "echo"}, nil},
		{"nothing after separator", []string{"exec", "web1", "--"}, nil},
		{"env and keep-env", []string{"exec", "--env", "HOME", "--keep-env", "web1", "--", "true"}, nil},
		{"bad output mode", []string{"exec", "--output", "all", "web1", "--", "true"}, nil},
		{"stopped machine", []string{"exec", "db1", "--", "true"}, errors.ErrNotRunning},
		{"unknown machine", []string{"exec", "ghost", "--", "true"}, errors.ErrMachineNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := executeCommand(tt.args...)
			if err == nil {
				t.Fatal("exec should fail")
			}
			if isExitStatus(err) {
				t.Errorf("error = %v, want a validation failure, not an exit status", err)
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestCopyTo(t *testing.T) {
	env := setupTestEnv(t)

	src := filepath.Join(env.TmpDir, "hosts")
	if err := os.WriteFile(src, []byte("127.0.0.1 web1\n"), 0644); err != nil {
		t.Fatal(err)
	}
	dest := filepath.Join(env.TmpDir, "guest", "etc", "hosts")

	if _, _, err := executeCommand("copy-to", "web1", src, dest); err == nil {
		t.Error("copy-to without --makedirs should fail for a missing parent")
	}

	stdout, _, err := executeCommand("copy-to", "--makedirs", "web1", src, dest)
	if err != nil {
		t.Fatalf("copy-to error: %v", err)
	}
	if !strings.Contains(stdout, "Copied") {
		t.Errorf("stdout = %q, want success message", stdout)
	}
	data, err := os.ReadFile(dest)
	if err != nil || string(data) != "127.0.0.1 web1\n" {
		t.Errorf("copied content = %q, %v", data, err)
	}

	if _, _, err := executeCommand("copy-to", "web1", src, dest); !errors.Is(err, errors.ErrAlreadyExists) {
		t.Errorf("second copy error = %v, want AlreadyExists", err)
	}
	if _, _, err := executeCommand("copy-to", "--overwrite", "web1", src, dest); err != nil {
		t.Errorf("copy-to --overwrite error: %v", err)
	}
}

func TestLifecycleCommands(t *testing.T) {
	tests := []struct {
		args   []string
		method string
		output string
	}{
		{[]string{"start", "db1"}, "Start", "Started machine db1"},
		{[]string{"terminate", "web1"}, "Terminate", "Terminated machine web1"},
		{[]string{"enable", "web1"}, "Enable", "Enabled machine web1"},
		{[]string{"disable", "web1"}, "Disable", "Disabled machine web1"},
		{[]string{"reboot", "db1"}, "Start", "Rebooted machine db1"},
	}

	for _, tt := range tests {
		t.Run(strings.Join(tt.args, " "), func(t *testing.T) {
			env := setupTestEnv(t)

			stdout, _, err := executeCommand(tt.args...)
			if err != nil {
				t.Fatalf("error: %v", err)
			}
			if !strings.Contains(stdout, tt.output) {
				t.Errorf("stdout = %q, want %q", stdout, tt.output)
			}
			if len(env.Machines.GetCallsFor(tt.method)) != 1 {
				t.Errorf("%s should be called once", tt.method)
			}
		})
	}
}

func TestPoweroff_RawInit(t *testing.T) {
	env := setupTestEnv(t)

	if _, _, err := executeCommand("poweroff", "web1"); err != nil {
		t.Fatalf("poweroff error: %v", err)
	}
	if len(env.Machines.GetCallsFor("Poweroff")) != 0 {
		t.Error("raw-init machine should be powered off from inside")
	}
}

func TestRemove(t *testing.T) {
	env := setupTestEnv(t)

	if _, _, err := executeCommand("remove", "web1"); err == nil {
		t.Error("remove of a running machine should fail without --force")
	}
	if _, _, err := executeCommand("remove", "--force", "web1"); err != nil {
		t.Fatalf("remove --force error: %v", err)
	}
	if _, ok := env.Machines.Machines["web1"]; ok {
		t.Error("web1 should be removed")
	}
}

func TestInfo(t *testing.T) {
	env := setupTestEnv(t)
	env.Machines.SetStatus("web1", machine.Status{
		Since:     "Mon 2026-10-19 08:00:00 UTC; 1h ago",
		Iface:     "ve-web1",
		Addresses: []string{"10.0.0.2", "fe80::1"},
		OS:        "Debian GNU/Linux 12 (bookworm)",
	})

	stdout, _, err := executeCommand("info", "web1")
	if err != nil {
		t.Fatalf("info error: %v", err)
	}
	for _, want := range []string{
		"web1", "running", "Leader:", "raw",
		"Running Since:", "1h ago", "Network Interface:", "ve-web1",
		"Address:", "10.0.0.2", "fe80::1", "Debian GNU/Linux 12",
	} {
		if !strings.Contains(stdout, want) {
			t.Errorf("info output should contain %q:\n%s", want, stdout)
		}
	}

	stdout, _, err = executeCommand("--json", "info", "db1")
	if err != nil {
		t.Fatalf("info --json error: %v", err)
	}
	var info map[string]any
	if err := json.Unmarshal([]byte(stdout), &info); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if info["state"] != "stopped" || info["mode"] != "unknown" {
		t.Errorf("info = %v", info)
	}
}

func TestList(t *testing.T) {
	setupTestEnv(t)

	tests := []struct {
		args    []string
		want    []string
		notWant []string
	}{
		{[]string{"list"}, []string{"NAME", "web1"}, []string{"db1"}},
		{[]string{"list", "--all"}, []string{"web1", "db1"}, nil},
		{[]string{"list", "--stopped"}, []string{"db1"}, []string{"web1"}},
	}

	for _, tt := range tests {
		t.Run(strings.Join(tt.args, " "), func(t *testing.T) {
			stdout, _, err := executeCommand(tt.args...)
			if err != nil {
				t.Fatalf("list error: %v", err)
			}
			for _, want := range tt.want {
				if !strings.Contains(stdout, want) {
					t.Errorf("output should contain %q:\n%s", want, stdout)
				}
			}
			for _, notWant := range tt.notWant {
				if strings.Contains(stdout, notWant) {
					t.Errorf("output should not contain %q:\n%s", notWant, stdout)
				}
			}
		})
	}

	if _, _, err := executeCommand("list", "--all", "--stopped"); err == nil {
		t.Error("--all with --stopped should fail")
	}
}

func TestList_JSONEmpty(t *testing.T) {
	env := setupTestEnv(t)
	delete(env.Machines.Machines, "web1")

	stdout, _, err := executeCommand("--json", "list")
	if err != nil {
		t.Fatalf("list error: %v", err)
	}
	if strings.TrimSpace(stdout) != "[]" {
		t.Errorf("stdout = %q, want []", stdout)
	}
}

func TestApplyPick(t *testing.T) {
	tests := []struct {
		action tui.Action
		name   string
		method string
	}{
		{tui.ActionStart, "db1", "Start"},
		{tui.ActionPoweroff, "web1", "Poweroff"},
		{tui.ActionQuit, "web1", "Start"},
	}

	for _, tt := range tests {
		t.Run(tt.name+" "+tt.method, func(t *testing.T) {
			env := setupTestEnv(t)
			env.MarkSystemd()

			c := &cobra.Command{}
			c.SetContext(context.Background())
			err := applyPick(c, tui.PickerResult{Action: tt.action, Machine: &machine.Machine{Name: tt.name}})
			if err != nil {
				t.Fatalf("applyPick() error: %v", err)
			}

			want := 1
			if tt.action == tui.ActionQuit {
				want = 0
			}
			if got := len(env.Machines.GetCallsFor(tt.method)); got != want {
				t.Errorf("%s calls = %d, want %d", tt.method, got, want)
			}
		})
	}
}

func TestApplyPick_Shell(t *testing.T) {
	env := setupTestEnv(t)

	c := &cobra.Command{}
	c.SetContext(context.Background())
	err := applyPick(c, tui.PickerResult{Action: tui.ActionShell, Machine: &machine.Machine{Name: "web1"}})
	if err != nil {
		t.Fatalf("applyPick() error: %v", err)
	}
	if len(env.Replaced) != 1 {
		t.Errorf("shell should replace the process once, got %v", env.Replaced)
	}
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()

	valid := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(valid, []byte("shell = \"/bin/bash\"\n"), 0644); err != nil {
		t.Fatal(err)
	}

	newCmd := func(path string, explicit bool) *cobra.Command {
		c := &cobra.Command{}
		c.Flags().StringVar(&configPath, "config", path, "")
		if explicit {
			if err := c.Flags().Set("config", path); err != nil {
				t.Fatal(err)
			}
		}
		return c
	}

	cfg, err := loadConfig(newCmd(valid, true))
	if err != nil {
		t.Fatalf("loadConfig() error: %v", err)
	}
	if cfg.Shell != "/bin/bash" {
		t.Errorf("Shell = %q, want /bin/bash", cfg.Shell)
	}

	missing := filepath.Join(dir, "missing.toml")
	if _, err := loadConfig(newCmd(missing, true)); !errors.Is(err, errors.New(errors.ExitConfigError, "")) {
		t.Errorf("explicit missing config error = %v, want ConfigError", err)
	}

	cfg, err = loadConfig(newCmd(missing, false))
	if err != nil {
		t.Fatalf("default missing config error: %v", err)
	}
	if cfg.Shell != config.DefaultShell {
		t.Errorf("Shell = %q, want default", cfg.Shell)
	}

	configPath = config.DefaultConfigPath
}
