// Package tui provides terminal user interface components for nspctl
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/firefly-engineering/nspctl/internal/machine"
)

// Action represents the action to take after picker selection
type Action int

const (
	ActionNone Action = iota
	ActionShell
	ActionStart
	ActionPoweroff
	ActionQuit
)

// PickerResult holds the result of the picker
type PickerResult struct {
	Action  Action
	Machine *machine.Machine
}

// machineItem implements list.Item for machine display
type machineItem struct {
	machine machine.Machine
}

func (i machineItem) Title() string {
	return i.machine.Name
}

func (i machineItem) Description() string {
	icon := "○"
	if i.machine.State == machine.StateRunning {
		icon = "●"
	}

	parts := []string{fmt.Sprintf("%s %s", icon, i.machine.State)}
	for _, field := range []string{i.machine.Class, i.machine.Type, i.machine.OS} {
		if field != "" {
			parts = append(parts, field)
		}
	}
	return strings.Join(parts, " | ")
}

func (i machineItem) FilterValue() string {
	return i.machine.Name
}

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39")).
			MarginBottom(1)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			MarginTop(1)

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")).
			Bold(true)
)

// Model is the bubbletea model for the machine picker
type Model struct {
	list     list.Model
	result   PickerResult
	quitting bool
	width    int
	height   int
}

// NewPicker creates a new machine picker
func NewPicker(machines []machine.Machine) Model {
	l := list.New(buildGroupedItems(machines), newGroupedDelegate(), 80, 20)
	l.Title = "nspctl - Select Machine"
	l.SetShowStatusBar(true)
	l.SetFilteringEnabled(true)
	l.Styles.Title = titleStyle
	skipHeaders(&l, 1)

	return Model{list: l}
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) selected() (machineItem, bool) {
	item, ok := m.list.SelectedItem().(machineItem)
	return item, ok
}

func (m Model) finish(action Action, item *machineItem) (tea.Model, tea.Cmd) {
	m.result = PickerResult{Action: action}
	if item != nil {
		mc := item.machine
		m.result.Machine = &mc
	}
	m.quitting = true
	return m, tea.Quit
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.list.SetSize(msg.Width, msg.Height-4)
		return m, nil

	case tea.KeyMsg:
		// Don't handle keys if filtering
		if m.list.FilterState() == list.Filtering {
			break
		}

		switch msg.String() {
		case "enter":
			if item, ok := m.selected(); ok {
				return m.finish(ActionShell, &item)
			}

		case "s":
			if item, ok := m.selected(); ok && item.machine.State != machine.StateRunning {
				return m.finish(ActionStart, &item)
			}

		case "p":
			if item, ok := m.selected(); ok && item.machine.State == machine.StateRunning {
				return m.finish(ActionPoweroff, &item)
			}

		case "q", "esc":
			return m.finish(ActionQuit, nil)
		}

		var cmd tea.Cmd
		m.list, cmd = m.list.Update(msg)
		skipHeaders(&m.list, navigationDirection(msg))
		return m, cmd
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	help := helpStyle.Render("[enter] Shell  [s] Start  [p] Poweroff  [/] Filter  [q] Quit")

	return m.list.View() + "\n" + help
}

// Result returns the picker result
func (m Model) Result() PickerResult {
	return m.result
}

// RunPicker runs the interactive machine picker
func RunPicker(machines []machine.Machine) (PickerResult, error) {
	if len(machines) == 0 {
		return PickerResult{Action: ActionNone}, nil
	}

	p := tea.NewProgram(NewPicker(machines), tea.WithAltScreen())

	finalModel, err := p.Run()
	if err != nil {
		return PickerResult{}, err
	}

	return finalModel.(Model).Result(), nil
}

// SimplePicker is a non-interactive picker that just lists machines
func SimplePicker(machines []machine.Machine) string {
	var sb strings.Builder

	sb.WriteString("nspctl - Machines\n")
	sb.WriteString(strings.Repeat("─", 60) + "\n\n")

	if len(machines) == 0 {
		sb.WriteString("No machines found.\n")
		sb.WriteString("Images live in /var/lib/machines; see: nspctl list --all\n")
		return sb.String()
	}

	for i, mc := range machines {
		sb.WriteString(fmt.Sprintf("%d. %s\n", i+1, mc.Name))
		sb.WriteString(fmt.Sprintf("   %s\n\n", machineItem{machine: mc}.Description()))
	}

	return sb.String()
}
