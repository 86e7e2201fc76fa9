package predict

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventLoop_RunsPostsInOrder(t *testing.T) {
	loop := NewEventLoop(4)
	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)
	go func() { errCh <- loop.Run(ctx) }()

	var got []int
	done := make(chan struct{})
	for i := 0; i < 10; i++ {
		loop.Post(func() { got = append(got, i) })
	}
	loop.Post(func() { close(done) })

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("loop did not drain")
	}
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, got)

	cancel()
	require.ErrorIs(t, <-errCh, context.Canceled)

	// Posting to a stopped loop must not block.
	for i := 0; i < 10; i++ {
		loop.Post(func() {})
	}
}

func TestSystemClock_AfterFunc(t *testing.T) {
	fired := make(chan struct{})
	timer := SystemClock().AfterFunc(time.Millisecond, func() { close(fired) })

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("timer never fired")
	}
	assert.False(t, timer.Stop())
}

func TestPredictor_WithEventLoop(t *testing.T) {
	loop := NewEventLoop(0)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go loop.Run(ctx)

	fields := NewFieldSet()
	transport := TransportFunc(func(_ context.Context, q Query) (Result, error) {
		return Result{Predictions: predictions(q.Fields["text"] + "irin")}, nil
	})

	states := make(chan DisplayState, 16)
	var p *Predictor
	loop.Post(func() {
		p = New(transport, fields, loop, WithQuietPeriod(5*time.Millisecond))
		p.Subscribe(func(st DisplayState) { states <- st })
		fields.Set("text", "asp")
		p.NotifyChange()
	})

	deadline := time.After(2 * time.Second)
	for {
		select {
		case st := <-states:
			if st.Phase != PhaseSettled {
				continue
			}
			assert.Equal(t, []string{"aspirin"}, Labels(st.Predictions))
			loop.Post(func() { p.Close() })
			return
		case <-deadline:
			t.Fatal("never settled")
		}
	}
}
