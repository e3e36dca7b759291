package machine

import (
	"context"
	"errors"
	"reflect"
	"testing"

	nsperrors "github.com/firefly-engineering/nspctl/internal/errors"
	"github.com/firefly-engineering/nspctl/internal/system"
)

var errExit = errors.New("exit status 1")

func newTestMachinectl() (*Machinectl, *system.MockExecutor, *system.MockFS) {
	exec := system.NewMockExecutor()
	fs := system.NewMockFS()
	fs.AddDir("/var/lib/machines")
	return NewMachinectlWith("machinectl", "/var/lib/machines", exec, fs), exec, fs
}

func TestMachinectl_State(t *testing.T) {
	tests := []struct {
		name   string
		output string
		err    error
		want   State
	}{
		{"running", "running\n", nil, StateRunning},
		{"not registered", "", errExit, StateStopped},
		{"closing", "closing\n", nil, StateStopped},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, exec, _ := newTestMachinectl()
			exec.AddResponse("machinectl show web1 -p State --value", []byte(tt.output), tt.err)

			got, err := m.State(context.Background(), "web1")
			if err != nil {
				t.Fatalf("State() error: %v", err)
			}
			if got != tt.want {
				t.Errorf("State() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestMachinectl_Leader(t *testing.T) {
	m, exec, _ := newTestMachinectl()
	exec.AddResponse("machinectl show web1 -p Leader --value", []byte("4242\n"), nil)
	exec.AddResponse("machinectl show db1 -p Leader --value", nil, errExit)
	exec.AddResponse("machinectl show odd -p Leader --value", []byte("n/a\n"), nil)

	pid, err := m.Leader(context.Background(), "web1")
	if err != nil || pid != 4242 {
		t.Errorf("Leader(web1) = %d, %v; want 4242", pid, err)
	}

	if _, err := m.Leader(context.Background(), "db1"); !nsperrors.Is(err, nsperrors.ErrNotRunning) {
		t.Errorf("Leader(db1) error = %v, want NotRunning", err)
	}

	if _, err := m.Leader(context.Background(), "odd"); err == nil {
		t.Error("Leader(odd) should fail on unparsable output")
	}
}

const statusOutput = `web1(2b9e2c7a94b54c0f9cf4c3b1ad29ff41)
           Since: Sat 2026-10-17 09:12:44 UTC; 2 days ago
          Leader: 4242 (systemd)
         Service: systemd-nspawn; class container
            Root: /var/lib/machines/web1
           Iface: ve-web1
         Address: 10.0.0.2
                  fe80::7c6d:b3ff:fe2a:1d4e
              OS: Debian GNU/Linux 12 (bookworm)
       UID Shift: 1879048192
            Unit: systemd-nspawn@web1.service
                  ├─payload
                  │ ├─init.scope
                  │ │ └─4242 /sbin/init
                  └─supervisor
                    └─4240 systemd-nspawn --quiet --keep-unit --boot -U
`

func TestMachinectl_Status(t *testing.T) {
	m, exec, _ := newTestMachinectl()
	exec.AddResponse("machinectl status web1 --no-pager --lines=0", []byte(statusOutput), nil)
	exec.AddResponse("machinectl status db1 --no-pager --lines=0", nil, errExit)

	got, err := m.Status(context.Background(), "web1")
	if err != nil {
		t.Fatalf("Status() error: %v", err)
	}
	want := &Status{
		Since:     "Sat 2026-10-17 09:12:44 UTC; 2 days ago",
		Leader:    4242,
		Root:      "/var/lib/machines/web1",
		Iface:     "ve-web1",
		Addresses: []string{"10.0.0.2", "fe80::7c6d:b3ff:fe2a:1d4e"},
		OS:        "Debian GNU/Linux 12 (bookworm)",
		UIDShift:  "1879048192",
		Unit:      "systemd-nspawn@web1.service",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Status() = %+v, want %+v", got, want)
	}

	if _, err := m.Status(context.Background(), "db1"); !nsperrors.Is(err, nsperrors.ErrNotRunning) {
		t.Errorf("Status(db1) error = %v, want NotRunning", err)
	}
}

func TestParseStatus(t *testing.T) {
	tests := []struct {
		name string
		out  string
		want *Status
	}{
		{
			name: "ascii process tree",
			out: "db1(ff)\n" +
				"          Leader: 77 (sh)\n" +
				"           Iface: host0\n" +
				"            Unit: machine-db1.scope\n" +
				"                  `-77 /bin/sh\n",
			want: &Status{Leader: 77, Iface: "host0", Unit: "machine-db1.scope"},
		},
		{
			name: "no network",
			out: "db1(ff)\n" +
				"           Since: Mon 2026-10-19 08:00:00 UTC; 1min ago\n" +
				"              OS: Alpine Linux v3.20\n",
			want: &Status{Since: "Mon 2026-10-19 08:00:00 UTC; 1min ago", OS: "Alpine Linux v3.20"},
		},
		{
			name: "empty",
			out:  "",
			want: &Status{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := parseStatus(tt.out); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("parseStatus() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestMachinectl_Exists(t *testing.T) {
	m, exec, fs := newTestMachinectl()
	fs.AddDir("/var/lib/machines/web1")
	fs.AddFile("/var/lib/machines/db1.raw", []byte("img"), 0644)
	exec.AddResponse("machinectl show-image imported", []byte("Name=imported"), nil)
	exec.DefaultResponse = system.MockResponse{Err: errExit}

	tests := []struct {
		name string
		want bool
	}{
		{"web1", true},
		{"db1", true},
		{"imported", true},
		{"missing", false},
		// SecureJoin keeps the lookup inside the image root.
		{"../../../etc", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := m.Exists(context.Background(), tt.name)
			if err != nil {
				t.Fatalf("Exists() error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Exists(%q) = %v, want %v", tt.name, got, tt.want)
			}
		})
	}
}

func TestMachinectl_List(t *testing.T) {
	m, exec, _ := newTestMachinectl()
	exec.AddResponse("machinectl list --no-legend --no-pager",
		[]byte("web1 container systemd-nspawn debian 12 10.0.0.2\nalpine container systemd-nspawn - - -\n"), nil)
	exec.AddResponse("machinectl list-images --no-legend --no-pager",
		[]byte("web1 directory no 1.2G - -\ndb1  raw       no 800M - -\n"), nil)

	tests := []struct {
		filter ListFilter
		want   []Machine
	}{
		{
			filter: ListRunning,
			want: []Machine{
				{Name: "alpine", State: StateRunning, Class: "container"},
				{Name: "web1", State: StateRunning, Class: "container", OS: "debian"},
			},
		},
		{
			filter: ListStopped,
			want: []Machine{
				{Name: "db1", State: StateStopped, Type: "raw"},
			},
		},
		{
			filter: ListAll,
			want: []Machine{
				{Name: "alpine", State: StateRunning, Class: "container"},
				{Name: "db1", State: StateStopped, Type: "raw"},
				{Name: "web1", State: StateRunning, Class: "container", Type: "directory", OS: "debian"},
			},
		},
	}

	for _, tt := range tests {
		got, err := m.List(context.Background(), tt.filter)
		if err != nil {
			t.Fatalf("List(%d) error: %v", tt.filter, err)
		}
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("List(%d) = %+v\nwant %+v", tt.filter, got, tt.want)
		}
	}
}

func TestMachinectl_ListFallsBackToImageDir(t *testing.T) {
	m, exec, fs := newTestMachinectl()
	exec.AddResponse("machinectl list --no-legend --no-pager", nil, nil)
	exec.AddResponse("machinectl list-images --no-legend --no-pager", nil, errExit)
	fs.AddDir("/var/lib/machines/web1")
	fs.AddDir("/var/lib/machines/.#staging")
	fs.AddFile("/var/lib/machines/db1.raw", []byte("x"), 0644)
	fs.AddFile("/var/lib/machines/notes.txt", []byte("x"), 0644)

	got, err := m.List(context.Background(), ListAll)
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	want := []Machine{
		{Name: "db1", State: StateStopped, Type: "raw"},
		{Name: "web1", State: StateStopped, Type: "directory"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("List() = %+v, want %+v", got, want)
	}
}

func TestMachinectl_Verbs(t *testing.T) {
	tests := []struct {
		name string
		call func(m *Machinectl) error
		want string
	}{
		{"start", func(m *Machinectl) error { return m.Start(context.Background(), "web1") }, "machinectl start web1"},
		{"poweroff", func(m *Machinectl) error { return m.Poweroff(context.Background(), "web1") }, "machinectl poweroff web1"},
		{"reboot", func(m *Machinectl) error { return m.Reboot(context.Background(), "web1") }, "machinectl reboot web1"},
		{"terminate", func(m *Machinectl) error { return m.Terminate(context.Background(), "web1") }, "machinectl terminate web1"},
		{"enable", func(m *Machinectl) error { return m.Enable(context.Background(), "web1") }, "machinectl enable web1"},
		{"disable", func(m *Machinectl) error { return m.Disable(context.Background(), "web1") }, "machinectl disable web1"},
		{"remove", func(m *Machinectl) error { return m.Remove(context.Background(), "web1") }, "machinectl remove web1"},
		{"copy-to", func(m *Machinectl) error {
			return m.CopyTo(context.Background(), "web1", "/etc/hosts", "/etc/hosts", false)
		}, "machinectl copy-to web1 /etc/hosts /etc/hosts"},
		{"copy-to mkdir", func(m *Machinectl) error {
			return m.CopyTo(context.Background(), "web1", "/tmp/a", "/opt/new/a", true)
		}, "machinectl copy-to --mkdir web1 /tmp/a /opt/new/a"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, exec, _ := newTestMachinectl()
			if err := tt.call(m); err != nil {
				t.Fatalf("error: %v", err)
			}
			cmd, _ := exec.LastCommand()
			if cmd.String() != tt.want {
				t.Errorf("command = %q, want %q", cmd.String(), tt.want)
			}
		})
	}
}

func TestMachinectl_VerbFailure(t *testing.T) {
	m, exec, _ := newTestMachinectl()
	exec.AddResponse("machinectl start", nil, &system.CommandError{Command: "machinectl start web1", Stderr: "Failed", Err: errExit})

	err := m.Start(context.Background(), "web1")
	if err == nil {
		t.Fatal("Start() should fail")
	}
	if !errors.Is(err, errExit) {
		t.Errorf("Start() error = %v, want wrapped exit error", err)
	}
}

func TestMachinectl_Shell(t *testing.T) {
	m, exec, _ := newTestMachinectl()

	// The mock cannot replace the process and reports that as an error.
	if err := m.Shell("web1"); err == nil {
		t.Error("Shell() should surface the mock's error")
	}
	cmd, _ := exec.LastCommand()
	if cmd.String() != "machinectl shell web1" {
		t.Errorf("command = %q", cmd.String())
	}
}
