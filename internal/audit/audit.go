// Package audit keeps a journal of the operations nspctl performed on each
// machine. Events are stored as JSON Lines (JSONL) files, one per machine.
package audit

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// EventType classifies a journal entry.
type EventType string

const (
	EventStart     EventType = "start"
	EventPoweroff  EventType = "poweroff"
	EventReboot    EventType = "reboot"
	EventTerminate EventType = "terminate"
	EventEnable    EventType = "enable"
	EventDisable   EventType = "disable"
	EventRemove    EventType = "remove"
	EventExec      EventType = "exec"
	EventCopy      EventType = "copy"
	EventShell     EventType = "shell"
	EventError     EventType = "error"
)

// Event represents a single journal entry.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	Machine   string    `json:"machine"`
	Details   string    `json:"details,omitempty"`
}

// Logger writes and reads journal events.
// Events are stored in {stateDir}/events/{machine}.jsonl.
type Logger struct {
	stateDir string
}

// NewLogger creates a new journal rooted at stateDir.
func NewLogger(stateDir string) *Logger {
	return &Logger{stateDir: stateDir}
}

func (l *Logger) eventPath(machine string) string {
	return filepath.Join(l.stateDir, "events", machine+".jsonl")
}

// Log appends an event to the machine's journal.
func (l *Logger) Log(event Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	path := l.eventPath(event.Machine)
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create journal directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("failed to open journal: %w", err)
	}
	defer f.Close()

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write event: %w", err)
	}

	return nil
}

// LogEvent creates and logs an event stamped now.
func (l *Logger) LogEvent(eventType EventType, machine, details string) error {
	return l.Log(Event{
		Timestamp: time.Now(),
		Type:      eventType,
		Machine:   machine,
		Details:   details,
	})
}

// Events reads all events for a machine in the order they were written.
// A machine without a journal has no events.
func (l *Logger) Events(machine string) ([]Event, error) {
	f, err := os.Open(l.eventPath(machine))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	defer f.Close()

	var events []Event
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var event Event
		if err := json.Unmarshal(line, &event); err != nil {
			continue // Skip malformed lines
		}
		events = append(events, event)
	}

	if err := scanner.Err(); err != nil {
		return events, fmt.Errorf("error reading journal: %w", err)
	}

	return events, nil
}

// Remove deletes the journal of a machine.
func (l *Logger) Remove(machine string) error {
	if err := os.Remove(l.eventPath(machine)); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
