package predict

import "time"

// DefaultQuietPeriod is how long input has to stay unchanged before a query fires.
const DefaultQuietPeriod = 500 * time.Millisecond

// Scheduler coalesces bursts of change notifications into a single fire
// after a quiet period. It holds at most one pending timer and never reads
// field values.
type Scheduler struct {
	clock  Clock
	loop   Loop
	quiet  time.Duration
	onFire func()

	pending Timer
	// generation guards against a timer that already posted its callback
	// before being cancelled.
	generation uint64
	stopped    bool
}

// NewScheduler creates a scheduler that calls onFire on loop once the quiet
// period passes without another NotifyChange.
func NewScheduler(clock Clock, loop Loop, quiet time.Duration, onFire func()) *Scheduler {
	if quiet < 0 {
		quiet = 0
	}
	return &Scheduler{
		clock:  clock,
		loop:   loop,
		quiet:  quiet,
		onFire: onFire,
	}
}

// NotifyChange restarts the quiet period.
func (s *Scheduler) NotifyChange() {
	if s.stopped {
		return
	}
	s.cancel()

	s.generation++
	gen := s.generation
	s.pending = s.clock.AfterFunc(s.quiet, func() {
		s.loop.Post(func() { s.expire(gen) })
	})
}

// Cancel drops the pending fire, if any, without stopping the scheduler.
func (s *Scheduler) Cancel() {
	s.cancel()
	s.generation++
}

// Pending reports whether a fire is scheduled.
func (s *Scheduler) Pending() bool {
	return s.pending != nil
}

// QuietPeriod returns the configured debounce delay.
func (s *Scheduler) QuietPeriod() time.Duration {
	return s.quiet
}

// Stop cancels any pending timer. No callback fires after Stop returns.
func (s *Scheduler) Stop() {
	s.stopped = true
	s.Cancel()
}

func (s *Scheduler) cancel() {
	if s.pending != nil {
		s.pending.Stop()
		s.pending = nil
	}
}

func (s *Scheduler) expire(gen uint64) {
	if s.stopped || gen != s.generation {
		return
	}
	s.pending = nil
	s.onFire()
}
