// Package tui is the interactive front end: observed input fields, a live
// status line and the ranked prediction list.
package tui

import (
	_ "embed"
	"log/slog"
	"time"

	"github.com/billie-coop/typeahead/internal/predict"
	"github.com/billie-coop/typeahead/internal/tui/components/debug"
	"github.com/billie-coop/typeahead/internal/tui/components/fields"
	"github.com/billie-coop/typeahead/internal/tui/components/predictions"
	"github.com/billie-coop/typeahead/internal/tui/components/status"
	"github.com/billie-coop/typeahead/internal/tui/styles"
	"github.com/charmbracelet/bubbles/v2/help"
	"github.com/charmbracelet/bubbles/v2/key"
	tea "github.com/charmbracelet/bubbletea/v2"
	"github.com/charmbracelet/lipgloss/v2"
)

//go:embed help.md
var helpMarkdown string

// Options configures the TUI.
type Options struct {
	Fields []fields.Spec
	// Primary is the field accepted predictions are copied into.
	Primary   string
	Endpoint  string
	Transport predict.Transport
	// PredictOptions are passed to predict.New.
	PredictOptions []predict.Option
	Theme          string
	Logger         *slog.Logger
}

// Model is the root Bubble Tea model.
type Model struct {
	width  int
	height int

	bridge    *Bridge
	fieldSet  *predict.FieldSet
	predictor *predict.Predictor
	state     predict.DisplayState
	dirty     bool
	latency   time.Duration

	fields *fields.Model
	list   *predictions.Model
	status *status.Component
	events *debug.Log
	help   help.Model
	keys   KeyMap

	primary   string
	endpoint  string
	showHelp  bool
	showDebug bool
	helpView  string
	helpWidth int
	logger    *slog.Logger
}

// New creates the model and its predictor. Call Close when the program
// exits.
func New(opts Options) *Model {
	styles.SetDefaultManager(styles.NewManager(opts.Theme))
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	fieldSet := predict.NewFieldSet()
	for _, s := range opts.Fields {
		fieldSet.Set(s.Name, s.Value)
	}

	m := &Model{
		bridge:   NewBridge(64),
		fieldSet: fieldSet,
		fields:   fields.New(opts.Fields),
		list:     predictions.New(),
		status:   status.New(),
		events:   debug.NewLog(),
		help:     help.New(),
		keys:     DefaultKeyMap(),
		primary:  opts.Primary,
		endpoint: opts.Endpoint,
		logger:   logger,
	}

	popts := append([]predict.Option{
		predict.WithLogger(logger),
		predict.WithHook(m.onEvent),
	}, opts.PredictOptions...)
	m.predictor = predict.New(opts.Transport, fieldSet, m.bridge, popts...)
	m.predictor.Subscribe(m.onState)
	m.state = m.predictor.State()

	return m
}

// Predictor exposes the underlying predictor.
func (m *Model) Predictor() *predict.Predictor {
	return m.predictor
}

// Close tears the predictor down and releases the loop.
func (m *Model) Close() {
	m.predictor.Close()
	m.bridge.Close()
}

func (m *Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.bridge.Listen()}
	if m.primary != "" {
		cmds = append(cmds, m.fields.FocusField(m.primary))
	} else {
		cmds = append(cmds, m.fields.Focus())
	}
	// A seeded primary field counts as input.
	if m.primary != "" && m.fieldSet.Get(m.primary) != "" {
		m.predictor.NotifyChange()
		cmds = append(cmds, m.syncState())
	}
	return tea.Batch(cmds...)
}

func (m *Model) onState(s predict.DisplayState) {
	m.state = s
	m.dirty = true
}

func (m *Model) onEvent(ev predict.Event) {
	m.events.Add(ev)
	if ev.Kind == predict.EventApplied && ev.Latency > 0 {
		m.latency = ev.Latency
	}
}

// syncState pushes a changed display state into the components.
func (m *Model) syncState() tea.Cmd {
	if !m.dirty {
		return nil
	}
	m.dirty = false
	m.list.SetItems(m.state.Predictions)
	m.list.SetInfo(m.state.Warning, m.state.AuxiliaryID)
	m.status.SetLatency(m.latency)
	return m.status.SetState(m.state)
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case postedMsg:
		msg.fn()
		cmds = append(cmds, m.bridge.Listen())

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.fields.SetWidth(msg.Width)
		m.list.SetWidth(msg.Width - 4)
		m.status.SetSize(msg.Width)

	case tea.KeyPressMsg:
		cmds = append(cmds, m.handleKey(msg))

	default:
		var cmd tea.Cmd
		m.status, cmd = m.status.Update(msg)
		cmds = append(cmds, cmd)
	}

	cmds = append(cmds, m.syncState())
	return m, tea.Batch(cmds...)
}

func (m *Model) handleKey(msg tea.KeyPressMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.Close()
		return tea.Quit
	case m.showHelp:
		// Any other key closes the help page.
		m.showHelp = false
		return nil
	case key.Matches(msg, m.keys.Help) && m.fields.Value(m.fields.Focused()) == "":
		m.showHelp = true
		return nil
	case key.Matches(msg, m.keys.Debug):
		m.showDebug = !m.showDebug
		return nil
	case key.Matches(msg, m.keys.NextField):
		return m.fields.Next()
	case key.Matches(msg, m.keys.PrevField):
		return m.fields.Prev()
	case key.Matches(msg, m.keys.Up):
		m.list.Up()
		return nil
	case key.Matches(msg, m.keys.Down):
		m.list.Down()
		return nil
	case key.Matches(msg, m.keys.Accept):
		return m.accept()
	case key.Matches(msg, m.keys.FireNow):
		m.predictor.FireNow()
		return nil
	}

	name, changed, cmd := m.fields.Update(msg)
	if changed {
		m.edit(name, m.fields.Value(name))
	}
	return cmd
}

// edit records a field change and restarts the quiet period.
func (m *Model) edit(name, value string) {
	if m.fieldSet.Set(name, value) {
		m.predictor.NotifyChange()
	}
}

// accept copies the selected prediction into the primary field.
func (m *Model) accept() tea.Cmd {
	p, ok := m.list.Selected()
	if !ok || m.primary == "" {
		return nil
	}
	value := AcceptText(p)
	m.fields.SetValue(m.primary, value)
	m.edit(m.primary, value)
	m.logger.Info("prediction accepted", "field", m.primary, "value", value, "code", p.Code)

	msg := "Accepted " + value
	if p.Code != "" {
		msg = "Accepted " + p.Code
	}
	return tea.Batch(m.fields.FocusField(m.primary), m.status.ShowSuccess(msg))
}

// AcceptText is the text a prediction puts into a field.
func AcceptText(p predict.Prediction) string {
	switch {
	case p.Label != "":
		return p.Label
	case p.Detail != "":
		return p.Detail
	default:
		return p.Code
	}
}

func (m *Model) View() tea.View {
	return tea.NewView(m.render())
}

func (m *Model) render() string {
	if m.width == 0 || m.height == 0 {
		return "Initializing..."
	}
	if m.showHelp {
		return m.renderHelp()
	}

	st := styles.CurrentTheme().S()
	header := styles.RenderThemeGradient("typeahead")
	if m.endpoint != "" {
		header += " " + st.Subtle.Render(m.endpoint)
	}

	sections := []string{
		header,
		m.fields.View(),
		st.Panel.Width(m.width - 2).Render(m.list.View()),
	}
	if m.showDebug {
		sections = append(sections, st.Panel.Width(m.width-2).Render(m.events.View()))
	}
	sections = append(sections, m.status.View(), m.help.View(m.keys))

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m *Model) renderHelp() string {
	if m.helpView == "" || m.helpWidth != m.width {
		out, err := styles.RenderMarkdown(helpMarkdown, max(m.width-4, 20))
		if err != nil {
			m.logger.Warn("failed to render help", "error", err)
			out = helpMarkdown
		}
		m.helpView = out
		m.helpWidth = m.width
	}
	return m.helpView + "\n" + styles.CurrentTheme().S().Subtle.Render("press any key to return")
}
