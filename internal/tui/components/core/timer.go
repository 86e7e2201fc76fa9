// Package core holds small building blocks shared by the TUI components.
package core

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea/v2"
)

// TickMsg is sent periodically while a Timer runs.
type TickMsg struct {
	Time    time.Time
	Elapsed time.Duration
	ID      string
	gen     int
}

// Timer measures elapsed time and drives periodic redraws. Restarting a
// running timer abandons the previous tick chain.
type Timer struct {
	id           string
	now          func() time.Time
	startTime    time.Time
	isRunning    bool
	tickInterval time.Duration
	elapsed      time.Duration
	gen          int
}

// NewTimer creates a timer with the specified tick interval.
func NewTimer(id string, interval time.Duration) *Timer {
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	return &Timer{
		id:           id,
		now:          time.Now,
		tickInterval: interval,
	}
}

// WithNow replaces the time source.
func (t *Timer) WithNow(now func() time.Time) *Timer {
	t.now = now
	return t
}

// Start begins timing from zero.
func (t *Timer) Start() tea.Cmd {
	t.startTime = t.now()
	t.isRunning = true
	t.elapsed = 0
	t.gen++
	return t.tick()
}

// Stop halts the timer and keeps the elapsed time.
func (t *Timer) Stop() {
	if t.isRunning {
		t.elapsed = t.now().Sub(t.startTime)
		t.isRunning = false
	}
}

// Reset clears the timer.
func (t *Timer) Reset() {
	t.startTime = time.Time{}
	t.isRunning = false
	t.elapsed = 0
}

func (t *Timer) IsRunning() bool {
	return t.isRunning
}

// Elapsed returns the time since Start, or the time at Stop.
func (t *Timer) Elapsed() time.Duration {
	if t.isRunning {
		return t.now().Sub(t.startTime)
	}
	return t.elapsed
}

// Update continues the tick chain for this timer's own ticks.
func (t *Timer) Update(msg tea.Msg) tea.Cmd {
	if tick, ok := msg.(TickMsg); ok && tick.ID == t.id && tick.gen == t.gen && t.isRunning {
		return t.tick()
	}
	return nil
}

func (t *Timer) tick() tea.Cmd {
	gen := t.gen
	return tea.Tick(t.tickInterval, func(tm time.Time) tea.Msg {
		return TickMsg{
			Time:    tm,
			Elapsed: t.Elapsed(),
			ID:      t.id,
			gen:     gen,
		}
	})
}

// FormatSeconds formats a duration as "1.2s".
func FormatSeconds(d time.Duration) string {
	return fmt.Sprintf("%.1fs", d.Seconds())
}

// FormatMillis formats a duration as "340ms".
func FormatMillis(d time.Duration) string {
	return fmt.Sprintf("%dms", d.Milliseconds())
}
