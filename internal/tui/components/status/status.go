// Package status renders the one-line status bar: the prediction phase with
// a spinner and elapsed time while loading, plus short-lived messages.
package status

import (
	"fmt"
	"strings"
	"time"

	"github.com/billie-coop/typeahead/internal/predict"
	"github.com/billie-coop/typeahead/internal/tui/components/core"
	"github.com/billie-coop/typeahead/internal/tui/styles"
	"github.com/charmbracelet/bubbles/v2/spinner"
	tea "github.com/charmbracelet/bubbletea/v2"
	"github.com/charmbracelet/lipgloss/v2"
)

// MessageType represents the type of status message
type MessageType int

const (
	Info MessageType = iota
	Warning
	Error
	Success
)

// StatusMessage is a message shown on the right until it expires.
type StatusMessage struct {
	Content   string
	Type      MessageType
	Timestamp time.Time
}

// Component is the status bar.
type Component struct {
	width   int
	state   predict.DisplayState
	latency time.Duration

	spinner spinner.Model
	timer   *core.Timer

	message    *StatusMessage
	clearAfter time.Duration
}

// New creates a status bar in the idle state.
func New() *Component {
	s := spinner.New(spinner.WithSpinner(spinner.Dot))
	s.Style = lipgloss.NewStyle().Foreground(styles.CurrentTheme().Accent)
	return &Component{
		state:      predict.DisplayState{Phase: predict.PhaseIdle, StatusText: predict.StatusAwaiting},
		spinner:    s,
		timer:      core.NewTimer("status", 100*time.Millisecond),
		clearAfter: 5 * time.Second,
	}
}

// SetState follows the predictor's display state. Entering the loading
// phase starts the spinner and the elapsed timer.
func (c *Component) SetState(s predict.DisplayState) tea.Cmd {
	prev := c.state.Phase
	c.state = s
	if s.Phase == prev {
		return nil
	}
	if s.Phase == predict.PhaseLoading {
		return tea.Batch(c.timer.Start(), c.spinner.Tick)
	}
	c.timer.Stop()
	return nil
}

// SetLatency records how long the last shown outcome took.
func (c *Component) SetLatency(d time.Duration) {
	c.latency = d
}

// SetMessage shows a message that clears itself after a few seconds.
func (c *Component) SetMessage(content string, msgType MessageType) tea.Cmd {
	stamp := time.Now()
	c.message = &StatusMessage{
		Content:   content,
		Type:      msgType,
		Timestamp: stamp,
	}
	return tea.Tick(c.clearAfter, func(time.Time) tea.Msg {
		return clearMessageMsg{timestamp: stamp}
	})
}

func (c *Component) ShowInfo(message string) tea.Cmd {
	return c.SetMessage(message, Info)
}

func (c *Component) ShowWarning(message string) tea.Cmd {
	return c.SetMessage(message, Warning)
}

func (c *Component) ShowError(message string) tea.Cmd {
	return c.SetMessage(message, Error)
}

func (c *Component) ShowSuccess(message string) tea.Cmd {
	return c.SetMessage(message, Success)
}

// Message returns the message currently shown, if any.
func (c *Component) Message() string {
	if c.message == nil {
		return ""
	}
	return c.message.Content
}

func (c *Component) SetSize(width int) {
	c.width = width
}

// clearMessageMsg is sent when a status message should be cleared
type clearMessageMsg struct {
	timestamp time.Time
}

// Update handles the bar's own timers.
func (c *Component) Update(msg tea.Msg) (*Component, tea.Cmd) {
	switch msg := msg.(type) {
	case clearMessageMsg:
		// Only clear if this is for the current message
		if c.message != nil && msg.timestamp.Equal(c.message.Timestamp) {
			c.message = nil
		}
	case spinner.TickMsg:
		if c.state.Phase != predict.PhaseLoading {
			return c, nil
		}
		var cmd tea.Cmd
		c.spinner, cmd = c.spinner.Update(msg)
		return c, cmd
	case core.TickMsg:
		return c, c.timer.Update(msg)
	}
	return c, nil
}

// View renders the bar.
func (c *Component) View() string {
	if c.width == 0 {
		return ""
	}
	st := styles.CurrentTheme().S()

	left := c.phaseView()
	right := c.formatMessage()
	if right == "" && c.state.Sequence > 0 {
		right = st.Subtle.Render(fmt.Sprintf("#%d", c.state.Sequence))
	}

	available := c.width - 2
	gap := available - lipgloss.Width(left) - lipgloss.Width(right)
	content := left
	if right != "" {
		content += strings.Repeat(" ", max(gap, 1)) + right
	}
	return st.StatusBar.Width(c.width).MaxWidth(c.width).Render(content)
}

func (c *Component) phaseView() string {
	st := styles.CurrentTheme().S()
	s := c.state

	switch s.Phase {
	case predict.PhaseLoading:
		return c.spinner.View() + " " + s.StatusText + " " + st.Muted.Render(core.FormatSeconds(c.timer.Elapsed()))
	case predict.PhasePending:
		return st.Muted.Render(styles.PendingIcon + " " + s.StatusText)
	case predict.PhaseErrored:
		return st.Error.Render(styles.ErrorIcon + " " + s.StatusText)
	case predict.PhaseSettled:
		text := s.StatusText
		if text == "" {
			text = fmt.Sprintf("%d predictions", len(s.Predictions))
		}
		out := st.Success.Render(styles.CheckIcon + " " + text)
		if c.latency > 0 {
			out += " " + st.Muted.Render(core.FormatMillis(c.latency))
		}
		return out
	default:
		return st.Subtle.Render(styles.IdleIcon + " " + s.StatusText)
	}
}

func (c *Component) formatMessage() string {
	if c.message == nil {
		return ""
	}
	st := styles.CurrentTheme().S()

	switch c.message.Type {
	case Success:
		return st.Success.Render(styles.CheckIcon + " " + c.message.Content)
	case Warning:
		return st.Warning.Render(styles.WarningIcon + " " + c.message.Content)
	case Error:
		return st.Error.Render(styles.ErrorIcon + " " + c.message.Content)
	default:
		return st.Info.Render(c.message.Content)
	}
}
