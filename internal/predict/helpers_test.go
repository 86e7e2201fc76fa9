package predict

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// fakeClock runs timers only when Advance moves time past them.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

type fakeTimer struct {
	clock *fakeClock
	at    time.Time
	fn    func()
	done  bool
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, fn func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, at: c.now.Add(d), fn: fn}
	c.timers = append(c.timers, t)
	return t
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.done {
		return false
	}
	t.done = true
	return true
}

// Advance moves time forward, running due timers in deadline order.
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now.Add(d)
	for {
		var next *fakeTimer
		for _, t := range c.timers {
			if t.done || t.at.After(target) {
				continue
			}
			if next == nil || t.at.Before(next.at) {
				next = t
			}
		}
		if next == nil {
			break
		}
		next.done = true
		c.now = next.at
		c.mu.Unlock()
		next.fn()
		c.mu.Lock()
	}
	c.now = target
	c.mu.Unlock()
}

// testLoop queues posted calls until the test runs them.
type testLoop struct {
	ch chan func()
}

func newTestLoop() *testLoop {
	return &testLoop{ch: make(chan func(), 64)}
}

func (l *testLoop) Post(fn func()) {
	l.ch <- fn
}

// step runs the next posted call, waiting for goroutines to post it.
func (l *testLoop) step(t *testing.T) {
	t.Helper()
	select {
	case fn := <-l.ch:
		fn()
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a posted call")
	}
}

func (l *testLoop) assertIdle(t *testing.T) {
	t.Helper()
	select {
	case <-l.ch:
		t.Fatal("unexpected call posted to the loop")
	default:
	}
}

type callReply struct {
	res Result
	err error
}

// pendingCall is a transport call the test answers explicitly.
type pendingCall struct {
	query Query
	reply chan callReply
}

func (c *pendingCall) succeed(labels ...string) {
	c.respond(Result{Predictions: predictions(labels...)})
}

func (c *pendingCall) respond(res Result) {
	c.reply <- callReply{res: res}
}

func (c *pendingCall) fail(err error) {
	c.reply <- callReply{err: err}
}

// scriptedTransport blocks every call until the test answers it, so replies
// can be delivered in any order.
type scriptedTransport struct {
	calls chan *pendingCall
	sent  atomic.Int32
}

func newScriptedTransport() *scriptedTransport {
	return &scriptedTransport{calls: make(chan *pendingCall, 16)}
}

func (s *scriptedTransport) Predict(ctx context.Context, q Query) (Result, error) {
	s.sent.Add(1)
	c := &pendingCall{query: q, reply: make(chan callReply, 1)}
	s.calls <- c
	select {
	case r := <-c.reply:
		return r.res, r.err
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

func (s *scriptedTransport) next(t *testing.T) *pendingCall {
	t.Helper()
	select {
	case c := <-s.calls:
		return c
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a transport call")
		return nil
	}
}

func predictions(labels ...string) []Prediction {
	ps := make([]Prediction, len(labels))
	for i, l := range labels {
		ps[i] = Prediction{Label: l}
	}
	return ps
}

// harness drives a Predictor with a fake clock, a test loop and a scripted
// transport.
type harness struct {
	t         *testing.T
	clock     *fakeClock
	loop      *testLoop
	transport *scriptedTransport
	fields    *FieldSet
	p         *Predictor
	events    []Event
}

func newHarness(t *testing.T, opts ...Option) *harness {
	t.Helper()
	h := &harness{
		t:         t,
		clock:     newFakeClock(),
		loop:      newTestLoop(),
		transport: newScriptedTransport(),
		fields:    NewFieldSet(),
	}
	opts = append([]Option{
		WithClock(h.clock),
		WithHook(func(e Event) { h.events = append(h.events, e) }),
	}, opts...)
	h.p = New(h.transport, h.fields, h.loop, opts...)
	t.Cleanup(h.p.Close)
	return h
}

// edit changes a field the way a UI would.
func (h *harness) edit(name, value string) {
	h.fields.Set(name, value)
	h.p.NotifyChange()
}

// settle lets the quiet period pass and runs the resulting fire.
func (h *harness) settle() {
	h.t.Helper()
	h.clock.Advance(h.p.QuietPeriod())
	h.loop.step(h.t)
}

func (h *harness) kinds() []EventKind {
	kinds := make([]EventKind, len(h.events))
	for i, e := range h.events {
		kinds[i] = e.Kind
	}
	return kinds
}
