// Package predictions renders the ranked prediction list and tracks the
// selected entry.
package predictions

import (
	"fmt"
	"strings"

	"github.com/billie-coop/typeahead/internal/predict"
	"github.com/billie-coop/typeahead/internal/tui/styles"
	"github.com/charmbracelet/lipgloss/v2"
)

const barWidth = 10

// Model is the prediction list.
type Model struct {
	width int

	items         []predict.Prediction
	selectedIndex int
	warning       string
	auxiliaryID   string
}

// New creates an empty list.
func New() *Model {
	return &Model{}
}

// SetItems replaces the list, keeping the selection when the same entry is
// still present and clamping it otherwise.
func (m *Model) SetItems(items []predict.Prediction) {
	var selected string
	if m.selectedIndex < len(m.items) {
		selected = m.items[m.selectedIndex].String()
	}

	m.items = items
	m.selectedIndex = 0
	for i, p := range items {
		if p.String() == selected {
			m.selectedIndex = i
			break
		}
	}
}

// SetInfo sets the service's warning and auxiliary ID.
func (m *Model) SetInfo(warning, auxiliaryID string) {
	m.warning = warning
	m.auxiliaryID = auxiliaryID
}

func (m *Model) SetWidth(w int) {
	m.width = w
}

// Up moves the selection up, wrapping to the bottom.
func (m *Model) Up() {
	if len(m.items) == 0 {
		return
	}
	if m.selectedIndex > 0 {
		m.selectedIndex--
	} else {
		m.selectedIndex = len(m.items) - 1
	}
}

// Down moves the selection down, wrapping to the top.
func (m *Model) Down() {
	if len(m.items) == 0 {
		return
	}
	if m.selectedIndex < len(m.items)-1 {
		m.selectedIndex++
	} else {
		m.selectedIndex = 0
	}
}

// Selected returns the highlighted prediction.
func (m *Model) Selected() (predict.Prediction, bool) {
	if m.selectedIndex >= len(m.items) {
		return predict.Prediction{}, false
	}
	return m.items[m.selectedIndex], true
}

func (m *Model) SelectedIndex() int {
	return m.selectedIndex
}

func (m *Model) Len() int {
	return len(m.items)
}

// View renders the list. Structured predictions show their code and a
// probability bar.
func (m *Model) View() string {
	st := styles.CurrentTheme().S()
	if len(m.items) == 0 {
		return st.Subtle.Render("No predictions yet")
	}

	var lines []string
	for i, p := range m.items {
		lines = append(lines, m.renderItem(i, p))
	}
	if m.warning != "" {
		lines = append(lines, "", st.Warning.Render(styles.WarningIcon+" "+m.warning))
	}
	if m.auxiliaryID != "" {
		lines = append(lines, "", st.Muted.Render("Best match: ")+st.Code.Render(m.auxiliaryID))
	}
	return strings.Join(lines, "\n")
}

func (m *Model) renderItem(i int, p predict.Prediction) string {
	st := styles.CurrentTheme().S()

	rank := st.Subtle.Render(fmt.Sprintf("%2d.", i+1))
	var text string
	if p.Code != "" && p.Label == "" {
		text = st.Code.Render(p.Code) + " " + p.Detail
	} else {
		text = p.String()
	}
	if p.Score > 0 {
		text += "  " + styles.ScoreBar(p.Score, barWidth) + st.Muted.Render(fmt.Sprintf(" %.2f", p.Score))
	}

	line := rank + " " + text
	if i == m.selectedIndex {
		line = st.Title.Render(styles.PointerIcon) + " " + line
	} else {
		line = "  " + line
	}
	if m.width > 0 {
		line = lipgloss.NewStyle().MaxWidth(m.width).Render(line)
	}
	return line
}
