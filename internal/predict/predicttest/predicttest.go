// Package predicttest provides a manual clock and a scripted transport for
// tests that drive a predict.Predictor from outside the package.
package predicttest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/billie-coop/typeahead/internal/predict"
)

// Clock is a predict.Clock that only moves when Advance is called.
type Clock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*timer
}

type timer struct {
	clock   *Clock
	at      time.Time
	fn      func()
	stopped bool
	fired   bool
}

func (t *timer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

// NewClock returns a clock set to an arbitrary fixed instant.
func NewClock() *Clock {
	return &Clock{now: time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Clock) AfterFunc(d time.Duration, f func()) predict.Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &timer{clock: c, at: c.now.Add(d), fn: f}
	c.timers = append(c.timers, t)
	return t
}

// Advance moves time forward, running due timers in deadline order.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	var due []*timer
	live := c.timers[:0]
	for _, t := range c.timers {
		switch {
		case t.stopped:
		case !t.at.After(c.now):
			t.fired = true
			due = append(due, t)
		default:
			live = append(live, t)
		}
	}
	c.timers = live
	c.mu.Unlock()

	sort.SliceStable(due, func(i, j int) bool { return due[i].at.Before(due[j].at) })
	for _, t := range due {
		t.fn()
	}
}

// Call is one query waiting for a scripted reply.
type Call struct {
	Query predict.Query
	reply chan reply
}

type reply struct {
	res predict.Result
	err error
}

// Succeed answers the call with predictions labelled as given.
func (c *Call) Succeed(labels ...string) {
	ps := make([]predict.Prediction, len(labels))
	for i, l := range labels {
		ps[i] = predict.Prediction{Label: l}
	}
	c.Respond(predict.Result{Predictions: ps})
}

// Respond answers the call with res.
func (c *Call) Respond(res predict.Result) {
	c.reply <- reply{res: res}
}

// Fail answers the call with err.
func (c *Call) Fail(err error) {
	c.reply <- reply{err: err}
}

// Transport hands every query to the test, which replies in any order.
type Transport struct {
	calls chan *Call
}

// NewTransport returns a transport holding up to 16 unanswered calls.
func NewTransport() *Transport {
	return &Transport{calls: make(chan *Call, 16)}
}

func (t *Transport) Predict(ctx context.Context, q predict.Query) (predict.Result, error) {
	c := &Call{Query: q, reply: make(chan reply, 1)}
	t.calls <- c
	select {
	case r := <-c.reply:
		return r.res, r.err
	case <-ctx.Done():
		return predict.Result{}, ctx.Err()
	}
}

// Next waits briefly for the next query. It returns nil if none arrives.
func (t *Transport) Next() *Call {
	select {
	case c := <-t.calls:
		return c
	case <-time.After(2 * time.Second):
		return nil
	}
}

// Pending reports how many queries have not been taken with Next.
func (t *Transport) Pending() int {
	return len(t.calls)
}
