// Package debug renders the predictor event log.
package debug

import (
	"fmt"
	"strings"

	"github.com/billie-coop/typeahead/internal/predict"
	"github.com/billie-coop/typeahead/internal/tui/styles"
)

const defaultLimit = 12

// Log keeps the most recent predictor events.
type Log struct {
	lines []line
	limit int
}

type line struct {
	kind predict.EventKind
	text string
}

func NewLog() *Log {
	return &Log{limit: defaultLimit}
}

// Add records an event, dropping the oldest beyond the limit.
func (l *Log) Add(ev predict.Event) {
	l.lines = append(l.lines, line{kind: ev.Kind, text: Format(ev)})
	if len(l.lines) > l.limit {
		l.lines = l.lines[len(l.lines)-l.limit:]
	}
}

func (l *Log) Len() int {
	return len(l.lines)
}

// Format renders an event on one line.
func Format(ev predict.Event) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] #%d %-9s", ev.At.Format("15:04:05.000"), ev.Sequence, ev.Kind)
	if ev.QueryID != "" {
		fmt.Fprintf(&b, " id=%.8s", ev.QueryID)
	}
	if ev.Latency > 0 {
		fmt.Fprintf(&b, " %dms", ev.Latency.Milliseconds())
	}
	switch o := ev.Outcome.(type) {
	case predict.Success:
		fmt.Fprintf(&b, " success(%d)", len(o.Predictions))
	case predict.Failure:
		fmt.Fprintf(&b, " failure(%s)", o.Message)
	case predict.Cleared:
		b.WriteString(" cleared")
	}
	return b.String()
}

func (l *Log) View() string {
	st := styles.CurrentTheme().S()
	if len(l.lines) == 0 {
		return st.Subtle.Render("no events")
	}

	rows := make([]string, len(l.lines))
	for i, ln := range l.lines {
		switch ln.kind {
		case predict.EventDiscarded, predict.EventTimedOut:
			rows[i] = st.Warning.Render(ln.text)
		case predict.EventApplied:
			rows[i] = st.Success.Render(ln.text)
		default:
			rows[i] = st.Muted.Render(ln.text)
		}
	}
	return strings.Join(rows, "\n")
}
