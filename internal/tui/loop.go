package tui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea/v2"
)

// postedMsg carries a closure posted to the loop.
type postedMsg struct {
	fn func()
}

// Bridge implements predict.Loop on top of the Bubble Tea update loop:
// posted closures arrive as messages and run inside Update, so the
// predictor and the view share one goroutine.
type Bridge struct {
	posts chan func()
	done  chan struct{}
	once  sync.Once
}

// NewBridge creates a bridge that buffers up to buffer posts.
func NewBridge(buffer int) *Bridge {
	if buffer <= 0 {
		buffer = 64
	}
	return &Bridge{
		posts: make(chan func(), buffer),
		done:  make(chan struct{}),
	}
}

// Post queues fn. Posts are never dropped; they block while the buffer is
// full and are discarded once the bridge is closed.
func (b *Bridge) Post(fn func()) {
	select {
	case b.posts <- fn:
	case <-b.done:
	}
}

// Listen waits for the next posted closure. Update re-arms it after every
// postedMsg.
func (b *Bridge) Listen() tea.Cmd {
	return func() tea.Msg {
		select {
		case fn := <-b.posts:
			return postedMsg{fn: fn}
		case <-b.done:
			return nil
		}
	}
}

// Close releases blocked posters and listeners.
func (b *Bridge) Close() {
	b.once.Do(func() { close(b.done) })
}
