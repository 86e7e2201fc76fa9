// Package predict coordinates live prediction queries for a set of input
// fields.
//
// A Predictor debounces field changes, numbers every query it sends and
// only lets the outcome of the most recently issued query change what the
// user sees. Responses that arrive after a newer one was admitted are
// dropped, so out-of-order replies can never bring back stale predictions.
//
// All Predictor methods run on a single event loop (see Loop). Transport
// calls happen on their own goroutines and hand their outcome back to the
// loop with Post, which is what makes the component lock free:
//
//	loop := predict.NewEventLoop(0)
//	fields := predict.NewFieldSet()
//	p := predict.New(client, fields, loop, predict.WithQuietPeriod(300*time.Millisecond))
//	go loop.Run(ctx)
//
//	loop.Post(func() {
//		fields.Set("text", "asp")
//		p.NotifyChange()
//	})
package predict

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
)

// EventKind classifies Predictor events.
type EventKind int

const (
	// EventSkipped: fired with empty input, no request was sent.
	EventSkipped EventKind = iota
	EventSent
	EventApplied
	// EventDiscarded: a stale outcome was dropped by the sequencer.
	EventDiscarded
	EventTimedOut
)

func (k EventKind) String() string {
	switch k {
	case EventSkipped:
		return "skipped"
	case EventSent:
		return "sent"
	case EventApplied:
		return "applied"
	case EventDiscarded:
		return "discarded"
	case EventTimedOut:
		return "timed_out"
	default:
		return fmt.Sprintf("event(%d)", int(k))
	}
}

// Event describes one step in a query's life.
type Event struct {
	Kind     EventKind
	Sequence int64
	QueryID  string
	// Outcome is nil for EventSent.
	Outcome Outcome
	// Latency is the time since the query was sent. Zero for queries that
	// never hit the transport.
	Latency time.Duration
	At      time.Time
}

// Hook receives Predictor events on the event loop.
type Hook func(Event)

// Option configures a Predictor.
type Option func(*Predictor)

// WithQuietPeriod sets the debounce delay.
func WithQuietPeriod(d time.Duration) Option {
	return func(p *Predictor) {
		p.quiet = d
	}
}

// WithResultCap sets how many predictions are kept from each response.
func WithResultCap(n int) Option {
	return func(p *Predictor) {
		if n > 0 {
			p.resultCap = n
		}
	}
}

// WithRequirement sets the predicate that decides whether the input is
// complete enough to query. By default any non-empty field will do.
func WithRequirement(r Requirement) Option {
	return func(p *Predictor) {
		if r != nil {
			p.require = r
		}
	}
}

// WithRequestTimeout fails queries that take longer than d. Zero disables
// the timeout.
func WithRequestTimeout(d time.Duration) Option {
	return func(p *Predictor) {
		p.timeout = d
	}
}

// WithClock replaces the system clock.
func WithClock(c Clock) Option {
	return func(p *Predictor) {
		p.clock = c
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Predictor) {
		p.logger = l
	}
}

// WithHook registers an event hook.
func WithHook(h Hook) Option {
	return func(p *Predictor) {
		p.hooks = append(p.hooks, h)
	}
}

// flight is a query whose outcome hasn't been resolved yet.
type flight struct {
	query    Query
	started  time.Time
	cancel   context.CancelFunc
	deadline Timer
}

func (f *flight) release() {
	if f.deadline != nil {
		f.deadline.Stop()
	}
	f.cancel()
}

// Predictor wires the scheduler, sequencer, dispatcher and store together
// for one set of input fields.
type Predictor struct {
	transport Transport
	fields    FieldSource
	loop      Loop
	clock     Clock
	logger    *slog.Logger
	require   Requirement
	quiet     time.Duration
	resultCap int
	timeout   time.Duration
	hooks     []Hook

	scheduler *Scheduler
	sequencer *Sequencer
	store     *Store

	inflight map[int64]*flight
	ctx      context.Context
	cancel   context.CancelFunc
	closed   bool
}

// New creates a Predictor that reads fields at fire time and queries
// transport.
func New(transport Transport, fields FieldSource, loop Loop, opts ...Option) *Predictor {
	p := &Predictor{
		transport: transport,
		fields:    fields,
		loop:      loop,
		clock:     SystemClock(),
		logger:    slog.New(slog.DiscardHandler),
		require:   anyField,
		quiet:     DefaultQuietPeriod,
		resultCap: DefaultResultCap,
		inflight:  make(map[int64]*flight),
	}
	for _, opt := range opts {
		opt(p)
	}

	p.ctx, p.cancel = context.WithCancel(context.Background())
	p.sequencer = NewSequencer()
	p.store = NewStore(p.resultCap)
	p.scheduler = NewScheduler(p.clock, loop, p.quiet, p.Fire)
	return p
}

func anyField(f Fields) bool {
	for _, v := range f {
		if strings.TrimSpace(v) != "" {
			return true
		}
	}
	return false
}

// NotifyChange tells the Predictor a field changed. The query fires once
// the fields stay unchanged for the quiet period.
func (p *Predictor) NotifyChange() {
	if p.closed {
		return
	}
	p.store.SetStatus(PhasePending, StatusWaiting)
	p.scheduler.NotifyChange()
}

// FireNow skips the rest of the quiet period and queries immediately.
func (p *Predictor) FireNow() {
	if p.closed {
		return
	}
	p.scheduler.Cancel()
	p.Fire()
}

// Fire reads the fields and sends a query, or clears the display when the
// input isn't complete. The scheduler calls it when the quiet period ends.
func (p *Predictor) Fire() {
	if p.closed {
		return
	}

	fields := p.fields.Snapshot()
	seq := p.sequencer.Allocate()

	// Empty input still takes a sequence number so a slow reply to an
	// earlier query can't repopulate the display.
	if !p.require(fields) {
		p.emit(Event{Kind: EventSkipped, Sequence: seq})
		p.resolve(seq, Cleared{})
		return
	}

	q := Query{
		Sequence: seq,
		ID:       uuid.NewString(),
		Fields:   fields,
		Limit:    p.resultCap,
	}
	ctx, cancel := context.WithCancel(p.ctx)
	f := &flight{query: q, started: p.clock.Now(), cancel: cancel}
	if p.timeout > 0 {
		f.deadline = p.clock.AfterFunc(p.timeout, func() {
			p.loop.Post(func() { p.expire(seq) })
		})
	}
	p.inflight[seq] = f

	p.store.SetStatus(PhaseLoading, StatusLoading)
	p.logger.Debug("sending query", "seq", seq, "query_id", q.ID)
	p.emit(Event{Kind: EventSent, Sequence: seq, QueryID: q.ID, At: f.started})

	go p.send(ctx, q)
}

// send runs off the loop. Whatever the transport does, exactly one outcome
// is posted back.
func (p *Predictor) send(ctx context.Context, q Query) {
	var o Outcome
	defer func() {
		if r := recover(); r != nil {
			o = Failure{Message: fmt.Sprintf("transport panic: %v", r)}
		}
		p.loop.Post(func() { p.resolve(q.Sequence, o) })
	}()

	res, err := p.transport.Predict(ctx, q)
	if err != nil {
		o = Failure{Message: err.Error()}
		return
	}
	o = Success{
		Predictions: capPredictions(res.Predictions, p.resultCap),
		AuxiliaryID: res.AuxiliaryID,
		Warning:     res.Warning,
	}
}

func capPredictions(ps []Prediction, n int) []Prediction {
	if len(ps) > n {
		ps = ps[:n]
	}
	return slices.Clone(ps)
}

func (p *Predictor) expire(seq int64) {
	f, ok := p.inflight[seq]
	if !ok {
		return
	}
	p.logger.Warn("prediction request timed out", "seq", seq, "query_id", f.query.ID, "timeout", p.timeout)
	p.emit(Event{Kind: EventTimedOut, Sequence: seq, QueryID: f.query.ID, Latency: p.clock.Now().Sub(f.started)})
	p.resolve(seq, Failure{Message: fmt.Sprintf("request timed out after %s", p.timeout)})
}

// resolve passes an outcome through the sequencer and, if admitted, on to
// the store. It is the only path to the display.
func (p *Predictor) resolve(seq int64, o Outcome) {
	ev := Event{Sequence: seq, Outcome: o, At: p.clock.Now()}
	if f, ok := p.inflight[seq]; ok {
		delete(p.inflight, seq)
		f.release()
		ev.QueryID = f.query.ID
		ev.Latency = ev.At.Sub(f.started)
	}
	if p.closed {
		return
	}

	if p.sequencer.Admit(seq) == Discarded {
		ev.Kind = EventDiscarded
		p.logger.Debug("discarding stale outcome",
			"seq", seq,
			"last_admitted", p.sequencer.LastAdmitted(),
			"latency", ev.Latency)
		p.emit(ev)
		return
	}

	if fail, ok := o.(Failure); ok {
		p.logger.Warn("prediction request failed", "seq", seq, "error", fail.Message)
	}
	p.store.ApplyOutcome(seq, o)
	ev.Kind = EventApplied
	p.emit(ev)

	// The status follows the newest activity: more typing, or a newer
	// query still on the wire.
	switch {
	case p.scheduler.Pending():
		p.store.SetStatus(PhasePending, StatusWaiting)
	case p.newerInFlight(seq):
		p.store.SetStatus(PhaseLoading, StatusLoading)
	}
}

func (p *Predictor) newerInFlight(seq int64) bool {
	for s := range p.inflight {
		if s > seq {
			return true
		}
	}
	return false
}

func (p *Predictor) emit(ev Event) {
	if ev.At.IsZero() {
		ev.At = p.clock.Now()
	}
	for _, h := range p.hooks {
		h(ev)
	}
}

// OnEvent registers a hook after construction.
func (p *Predictor) OnEvent(h Hook) {
	p.hooks = append(p.hooks, h)
}

// Subscribe registers fn to receive the display state after every change.
func (p *Predictor) Subscribe(fn func(DisplayState)) {
	p.store.Subscribe(fn)
}

// State returns a copy of the display state.
func (p *Predictor) State() DisplayState {
	return p.store.State()
}

// InFlight returns the number of unresolved queries.
func (p *Predictor) InFlight() int {
	return len(p.inflight)
}

// Pending reports whether a fire is waiting for the quiet period.
func (p *Predictor) Pending() bool {
	return p.scheduler.Pending()
}

// LastAdmitted returns the sequence of the outcome on display.
func (p *Predictor) LastAdmitted() int64 {
	return p.sequencer.LastAdmitted()
}

// QuietPeriod returns the debounce delay.
func (p *Predictor) QuietPeriod() time.Duration {
	return p.quiet
}

// Close tears the component down: the pending timer is cancelled, in-flight
// requests are cancelled and no further outcome reaches the display.
func (p *Predictor) Close() {
	if p.closed {
		return
	}
	p.closed = true
	p.scheduler.Stop()
	for seq, f := range p.inflight {
		f.release()
		delete(p.inflight, seq)
	}
	p.cancel()
	p.logger.Debug("predictor closed", "last_admitted", p.sequencer.LastAdmitted())
}
