package machine

import (
	"context"
	"sort"
	"sync"

	"github.com/firefly-engineering/nspctl/internal/errors"
)

// Mock is an in-memory Manager for tests. Lifecycle verbs change the
// recorded state; every call is logged.
type Mock struct {
	mu sync.RWMutex

	// Machines tracks the mock machines by name
	Machines map[string]*MockMachine

	// Errors allows injecting errors for specific operations
	Errors map[string]error

	// CallLog records all method calls for verification
	CallLog []MockCall
}

// MockMachine is the state of one mock machine.
type MockMachine struct {
	State   State
	Leader  int
	Enabled bool
	// Status is reported while running; Leader is filled in.
	Status Status
}

// MockCall represents a recorded method call
type MockCall struct {
	Method string
	Args   []interface{}
}

// NewMock creates an empty Mock.
func NewMock() *Mock {
	return &Mock{
		Machines: make(map[string]*MockMachine),
		Errors:   make(map[string]error),
		CallLog:  make([]MockCall, 0),
	}
}

func (m *Mock) record(method string, args ...interface{}) error {
	m.CallLog = append(m.CallLog, MockCall{Method: method, Args: args})
	return m.Errors[method]
}

// AddMachine adds a machine. A running machine needs a leader PID.
func (m *Mock) AddMachine(name string, state State, leader int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Machines[name] = &MockMachine{State: state, Leader: leader}
}

// SetStatus sets what Status reports for a running machine.
func (m *Mock) SetStatus(name string, st Status) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if mc, ok := m.Machines[name]; ok {
		mc.Status = st
	}
}

// SetError sets an error to be returned for a specific operation
func (m *Mock) SetError(operation string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Errors[operation] = err
}

// GetCallsFor returns all calls for a specific method
func (m *Mock) GetCallsFor(method string) []MockCall {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var calls []MockCall
	for _, call := range m.CallLog {
		if call.Method == method {
			calls = append(calls, call)
		}
	}
	return calls
}

// Methods returns the names of all recorded calls in order.
func (m *Mock) Methods() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	methods := make([]string, len(m.CallLog))
	for i, call := range m.CallLog {
		methods[i] = call.Method
	}
	return methods
}

func (m *Mock) lookup(name string) (*MockMachine, error) {
	mc, ok := m.Machines[name]
	if !ok {
		return nil, errors.MachineNotFound(name)
	}
	return mc, nil
}

func (m *Mock) Exists(ctx context.Context, name string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("Exists", name); err != nil {
		return false, err
	}
	_, ok := m.Machines[name]
	return ok, nil
}

func (m *Mock) State(ctx context.Context, name string) (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("State", name); err != nil {
		return "", err
	}
	mc, err := m.lookup(name)
	if err != nil {
		return "", err
	}
	return mc.State, nil
}

func (m *Mock) Leader(ctx context.Context, name string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("Leader", name); err != nil {
		return 0, err
	}
	mc, err := m.lookup(name)
	if err != nil {
		return 0, err
	}
	if mc.State != StateRunning {
		return 0, errors.MachineNotRunning(name)
	}
	return mc.Leader, nil
}

func (m *Mock) Status(ctx context.Context, name string) (*Status, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("Status", name); err != nil {
		return nil, err
	}
	mc, err := m.lookup(name)
	if err != nil {
		return nil, err
	}
	if mc.State != StateRunning {
		return nil, errors.MachineNotRunning(name)
	}
	st := mc.Status
	st.Leader = mc.Leader
	return &st, nil
}

func (m *Mock) List(ctx context.Context, filter ListFilter) ([]Machine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("List", filter); err != nil {
		return nil, err
	}

	var machines []Machine
	for name, mc := range m.Machines {
		switch {
		case filter == ListRunning && mc.State != StateRunning:
			continue
		case filter == ListStopped && mc.State != StateStopped:
			continue
		}
		machines = append(machines, Machine{Name: name, State: mc.State})
	}
	sort.Slice(machines, func(i, j int) bool { return machines[i].Name < machines[j].Name })
	return machines, nil
}

func (m *Mock) setState(method, name string, state State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record(method, name); err != nil {
		return err
	}
	mc, err := m.lookup(name)
	if err != nil {
		return err
	}
	mc.State = state
	return nil
}

func (m *Mock) Start(ctx context.Context, name string) error {
	return m.setState("Start", name, StateRunning)
}

func (m *Mock) Poweroff(ctx context.Context, name string) error {
	return m.setState("Poweroff", name, StateStopped)
}

func (m *Mock) Reboot(ctx context.Context, name string) error {
	return m.setState("Reboot", name, StateRunning)
}

func (m *Mock) Terminate(ctx context.Context, name string) error {
	return m.setState("Terminate", name, StateStopped)
}

func (m *Mock) setEnabled(method, name string, enabled bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record(method, name); err != nil {
		return err
	}
	mc, err := m.lookup(name)
	if err != nil {
		return err
	}
	mc.Enabled = enabled
	return nil
}

func (m *Mock) Enable(ctx context.Context, name string) error {
	return m.setEnabled("Enable", name, true)
}

func (m *Mock) Disable(ctx context.Context, name string) error {
	return m.setEnabled("Disable", name, false)
}

func (m *Mock) Remove(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.record("Remove", name); err != nil {
		return err
	}
	if _, err := m.lookup(name); err != nil {
		return err
	}
	delete(m.Machines, name)
	return nil
}

func (m *Mock) CopyTo(ctx context.Context, name, source, dest string, makeDirs bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.record("CopyTo", name, source, dest, makeDirs)
}

func (m *Mock) Shell(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.record("Shell", name)
}

var _ Manager = (*Mock)(nil)
