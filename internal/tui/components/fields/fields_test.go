package fields

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea/v2"
	"github.com/stretchr/testify/assert"
)

func newFields() *Model {
	return New([]Spec{
		{Name: "section", Label: "Section", Value: "IN01"},
		{Name: "text", Label: "Drug", Placeholder: "start typing"},
	})
}

func TestFields_FocusCycles(t *testing.T) {
	m := newFields()
	m.Focus()
	assert.Equal(t, "section", m.Focused())

	m.Next()
	assert.Equal(t, "text", m.Focused())
	m.Next()
	assert.Equal(t, "section", m.Focused())
	m.Prev()
	assert.Equal(t, "text", m.Focused())

	m.FocusField("section")
	assert.Equal(t, "section", m.Focused())
}

func TestFields_Values(t *testing.T) {
	m := newFields()
	assert.Equal(t, map[string]string{"section": "IN01", "text": ""}, m.Values())

	m.SetValue("text", "aspirin")
	assert.Equal(t, "aspirin", m.Value("text"))
	assert.Empty(t, m.Value("missing"))
}

func TestFields_TypingReportsChange(t *testing.T) {
	m := newFields()
	m.FocusField("text")

	name, changed, _ := m.Update(tea.KeyPressMsg{Code: 'a', Text: "a"})
	assert.Equal(t, "text", name)
	assert.True(t, changed)
	assert.Equal(t, "a", m.Value("text"))

	_, changed, _ = m.Update(tea.KeyPressMsg{Code: tea.KeyLeft})
	assert.False(t, changed)
}
