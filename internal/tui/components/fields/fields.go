// Package fields is the stack of observed text inputs.
package fields

import (
	"strings"

	"github.com/billie-coop/typeahead/internal/tui/styles"
	"github.com/charmbracelet/bubbles/v2/textinput"
	tea "github.com/charmbracelet/bubbletea/v2"
	"github.com/charmbracelet/lipgloss/v2"
)

const labelWidth = 10

// Spec describes one input.
type Spec struct {
	Name        string
	Label       string
	Placeholder string
	Value       string
}

type entry struct {
	name  string
	label string
	input textinput.Model
}

// Model holds the inputs and which one has focus.
type Model struct {
	entries []*entry
	focus   int
	width   int
}

// New creates the inputs in order. The first one gets focus on Focus.
func New(specs []Spec) *Model {
	m := &Model{}
	for _, s := range specs {
		ti := textinput.New()
		ti.Prompt = ""
		ti.Placeholder = s.Placeholder
		ti.CharLimit = 256
		ti.SetValue(s.Value)
		ti.CursorEnd()

		label := s.Label
		if label == "" {
			label = s.Name
		}
		m.entries = append(m.entries, &entry{name: s.Name, label: label, input: ti})
	}
	return m
}

// Focus focuses the current input.
func (m *Model) Focus() tea.Cmd {
	if len(m.entries) == 0 {
		return nil
	}
	for i, e := range m.entries {
		if i != m.focus {
			e.input.Blur()
		}
	}
	return m.entries[m.focus].input.Focus()
}

// Next moves focus to the following input, wrapping around.
func (m *Model) Next() tea.Cmd {
	if len(m.entries) == 0 {
		return nil
	}
	m.focus = (m.focus + 1) % len(m.entries)
	return m.Focus()
}

// Prev moves focus to the preceding input, wrapping around.
func (m *Model) Prev() tea.Cmd {
	if len(m.entries) == 0 {
		return nil
	}
	m.focus = (m.focus - 1 + len(m.entries)) % len(m.entries)
	return m.Focus()
}

// FocusField focuses the named input.
func (m *Model) FocusField(name string) tea.Cmd {
	for i, e := range m.entries {
		if e.name == name {
			m.focus = i
			return m.Focus()
		}
	}
	return nil
}

// Focused returns the name of the focused input.
func (m *Model) Focused() string {
	if len(m.entries) == 0 {
		return ""
	}
	return m.entries[m.focus].name
}

// Values returns every input's value by name.
func (m *Model) Values() map[string]string {
	out := make(map[string]string, len(m.entries))
	for _, e := range m.entries {
		out[e.name] = e.input.Value()
	}
	return out
}

func (m *Model) Value(name string) string {
	if e := m.find(name); e != nil {
		return e.input.Value()
	}
	return ""
}

// SetValue replaces an input's text and moves the cursor to the end.
func (m *Model) SetValue(name, value string) {
	if e := m.find(name); e != nil {
		e.input.SetValue(value)
		e.input.CursorEnd()
	}
}

func (m *Model) SetWidth(w int) {
	m.width = w
}

// Update sends msg to the focused input and reports whether its value
// changed.
func (m *Model) Update(msg tea.Msg) (string, bool, tea.Cmd) {
	if len(m.entries) == 0 {
		return "", false, nil
	}
	e := m.entries[m.focus]
	before := e.input.Value()

	var cmd tea.Cmd
	e.input, cmd = e.input.Update(msg)
	return e.name, e.input.Value() != before, cmd
}

func (m *Model) find(name string) *entry {
	for _, e := range m.entries {
		if e.name == name {
			return e
		}
	}
	return nil
}

// View renders the inputs one per row, the focused one highlighted.
func (m *Model) View() string {
	st := styles.CurrentTheme().S()

	rows := make([]string, 0, len(m.entries))
	for i, e := range m.entries {
		box := st.Input
		if i == m.focus {
			box = st.InputFocused
		}
		if m.width > labelWidth+4 {
			box = box.Width(m.width - labelWidth - 1)
		}
		label := st.Label.Width(labelWidth).Render(e.label)
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Center, label, " ", box.Render(e.input.View())))
	}
	return strings.Join(rows, "\n")
}
