package attach

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/firefly-engineering/nspctl/internal/nsenter"
)

const testPid = 4321

// stubJoiner records join calls and optionally fails them.
type stubJoiner struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (j *stubJoiner) Join(fd int) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.calls++
	return j.err
}

func (j *stubJoiner) Calls() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.calls
}

// fakeHost returns a Host over a proc tree in which testPid has net and uts
// namespaces. Joins go to j instead of the kernel, so commands run on the
// host as the current user.
func fakeHost(t *testing.T, j nsenter.Joiner) *nsenter.Host {
	t.Helper()

	root := t.TempDir()
	for _, dir := range []string{
		filepath.Join(root, "self", "ns"),
		filepath.Join(root, strconv.Itoa(testPid), "ns"),
	} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			t.Fatalf("Failed to create %s: %v", dir, err)
		}
		for _, kind := range []nsenter.Kind{nsenter.KindUTS, nsenter.KindNet} {
			if err := os.WriteFile(filepath.Join(dir, kind.String()), nil, 0644); err != nil {
				t.Fatalf("Failed to write namespace file: %v", err)
			}
		}
	}

	return nsenter.NewHost(
		nsenter.WithProcRoot(root),
		nsenter.WithJoiner(j),
		nsenter.WithThreadSetup(func() error { return nil }),
	)
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write %s: %v", path, err)
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read %s: %v", path, err)
	}
	return string(data)
}

// startUserNamespace starts a process in a private user namespace mapped to
// root, as systemd-nspawn -U does, and returns its pid.
func startUserNamespace(t *testing.T) int {
	t.Helper()
	if os.Geteuid() != 0 {
		t.Skip("requires root")
	}
	unshare, err := exec.LookPath("unshare")
	if err != nil {
		t.Skip("unshare not installed")
	}

	cmd := exec.Command(unshare, "--user", "--map-root-user", "--uts", "--fork", "--kill-child", "sleep", "30")
	if err := cmd.Start(); err != nil {
		t.Fatalf("Failed to start unshare: %v", err)
	}
	t.Cleanup(func() {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
	})

	own, err := os.Readlink("/proc/self/ns/user")
	if err != nil {
		t.Fatalf("Failed to read own user namespace: %v", err)
	}
	pid := cmd.Process.Pid
	for deadline := time.Now().Add(5 * time.Second); time.Now().Before(deadline); time.Sleep(10 * time.Millisecond) {
		target, err := os.Readlink(fmt.Sprintf("/proc/%d/ns/user", pid))
		if err != nil || target == own {
			continue
		}
		if uidMap, err := os.ReadFile(fmt.Sprintf("/proc/%d/uid_map", pid)); err == nil && len(bytes.TrimSpace(uidMap)) > 0 {
			return pid
		}
	}
	t.Skip("user namespace was not set up; user namespaces may be disabled")
	return 0
}
