package predict

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestScheduler(quiet time.Duration) (*Scheduler, *fakeClock, *testLoop, *int) {
	clock := newFakeClock()
	loop := newTestLoop()
	fired := new(int)
	s := NewScheduler(clock, loop, quiet, func() { *fired++ })
	return s, clock, loop, fired
}

func TestScheduler_CoalescesBurst(t *testing.T) {
	s, clock, loop, fired := newTestScheduler(500 * time.Millisecond)

	start := clock.Now()
	for i := 0; i < 5; i++ {
		s.NotifyChange()
		clock.Advance(100 * time.Millisecond)
	}
	// The last change happened at start+400ms.
	loop.assertIdle(t)
	assert.True(t, s.Pending())

	clock.Advance(399 * time.Millisecond)
	loop.assertIdle(t)

	clock.Advance(time.Millisecond)
	assert.Equal(t, start.Add(900*time.Millisecond), clock.Now())
	loop.step(t)
	assert.Equal(t, 1, *fired)
	assert.False(t, s.Pending())

	clock.Advance(time.Hour)
	loop.assertIdle(t)
	assert.Equal(t, 1, *fired)
}

func TestScheduler_SeparateBurstsFireSeparately(t *testing.T) {
	s, clock, loop, fired := newTestScheduler(200 * time.Millisecond)

	s.NotifyChange()
	clock.Advance(200 * time.Millisecond)
	loop.step(t)

	s.NotifyChange()
	clock.Advance(200 * time.Millisecond)
	loop.step(t)

	assert.Equal(t, 2, *fired)
}

func TestScheduler_StopCancelsPendingTimer(t *testing.T) {
	s, clock, loop, fired := newTestScheduler(500 * time.Millisecond)

	s.NotifyChange()
	s.Stop()
	clock.Advance(time.Second)

	loop.assertIdle(t)
	assert.Zero(t, *fired)
	assert.False(t, s.Pending())

	s.NotifyChange()
	clock.Advance(time.Second)
	loop.assertIdle(t)
}

func TestScheduler_StopAfterTimerPosted(t *testing.T) {
	s, clock, loop, fired := newTestScheduler(500 * time.Millisecond)

	s.NotifyChange()
	clock.Advance(500 * time.Millisecond)
	// The expiry is already queued on the loop.
	s.Stop()
	loop.step(t)

	assert.Zero(t, *fired)
}

func TestScheduler_RestartAfterTimerPosted(t *testing.T) {
	s, clock, loop, fired := newTestScheduler(500 * time.Millisecond)

	s.NotifyChange()
	clock.Advance(500 * time.Millisecond)
	s.NotifyChange()

	// The stale expiry runs first and must not fire.
	loop.step(t)
	require.Zero(t, *fired)

	clock.Advance(500 * time.Millisecond)
	loop.step(t)
	assert.Equal(t, 1, *fired)
}

func TestScheduler_CancelKeepsSchedulerUsable(t *testing.T) {
	s, clock, loop, fired := newTestScheduler(100 * time.Millisecond)

	s.NotifyChange()
	s.Cancel()
	clock.Advance(time.Second)
	loop.assertIdle(t)

	s.NotifyChange()
	clock.Advance(100 * time.Millisecond)
	loop.step(t)
	assert.Equal(t, 1, *fired)
}
