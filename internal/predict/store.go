package predict

import (
	"fmt"
	"slices"

	"github.com/billie-coop/typeahead/internal/csync"
)

// Phase is the coarse state behind the status text.
type Phase int

const (
	PhaseIdle Phase = iota
	PhasePending
	PhaseLoading
	PhaseSettled
	PhaseErrored
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhasePending:
		return "pending"
	case PhaseLoading:
		return "loading"
	case PhaseSettled:
		return "settled"
	case PhaseErrored:
		return "errored"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// Status texts shown to the user.
const (
	StatusAwaiting    = "Awaiting input..."
	StatusWaiting     = "Waiting for you to stop typing..."
	StatusLoading     = "Fetching predictions..."
	StatusNone        = "No predictions"
	StatusErrorPrefix = "Error! Could not reach the API. "
)

// DisplayState is everything the UI renders.
type DisplayState struct {
	Phase       Phase        `json:"phase"`
	StatusText  string       `json:"status"`
	Predictions []Prediction `json:"predictions"`
	AuxiliaryID string       `json:"auxiliary_id"`
	Warning     string       `json:"warning,omitempty"`
	// LastError is the message of the most recent admitted failure. It is
	// cleared by the next admitted success.
	LastError string `json:"last_error,omitempty"`
	// Sequence is the query whose outcome is on display.
	Sequence int64 `json:"sequence"`
}

func (s DisplayState) clone() DisplayState {
	s.Predictions = slices.Clone(s.Predictions)
	return s
}

// Store owns the DisplayState. Outcomes reach it only after the Sequencer
// admitted them.
type Store struct {
	state       DisplayState
	resultCap   int
	subscribers *csync.Slice[func(DisplayState)]
}

// NewStore creates a store in the idle state.
func NewStore(resultCap int) *Store {
	if resultCap <= 0 {
		resultCap = DefaultResultCap
	}
	return &Store{
		state: DisplayState{
			Phase:      PhaseIdle,
			StatusText: StatusAwaiting,
		},
		resultCap:   resultCap,
		subscribers: csync.NewSlice[func(DisplayState)](),
	}
}

// State returns a copy of the current display state.
func (s *Store) State() DisplayState {
	return s.state.clone()
}

// Subscribe registers fn to receive the state after every mutation.
func (s *Store) Subscribe(fn func(DisplayState)) {
	s.subscribers.Append(fn)
}

// SetStatus changes the status without touching predictions.
func (s *Store) SetStatus(phase Phase, text string) {
	if s.state.Phase == phase && s.state.StatusText == text {
		return
	}
	s.state.Phase = phase
	s.state.StatusText = text
	s.publish()
}

// ApplyOutcome writes an admitted outcome for query seq.
//
// A failure keeps the last good predictions and only changes the status.
func (s *Store) ApplyOutcome(seq int64, o Outcome) {
	s.state.Sequence = seq

	switch o := o.(type) {
	case Success:
		preds := o.Predictions
		if len(preds) > s.resultCap {
			preds = preds[:s.resultCap]
		}
		s.state.Predictions = slices.Clone(preds)
		s.state.AuxiliaryID = o.AuxiliaryID
		s.state.Warning = o.Warning
		s.state.LastError = ""
		s.state.Phase = PhaseSettled
		s.state.StatusText = ""
		if len(preds) == 0 {
			s.state.StatusText = StatusNone
		}

	case Failure:
		s.state.LastError = o.Message
		s.state.Phase = PhaseErrored
		s.state.StatusText = StatusErrorPrefix + o.Message

	case Cleared:
		s.state.Predictions = nil
		s.state.AuxiliaryID = ""
		s.state.Warning = ""
		s.state.LastError = ""
		s.state.Phase = PhaseIdle
		s.state.StatusText = StatusAwaiting
	}

	s.publish()
}

func (s *Store) publish() {
	s.subscribers.Range(func(_ int, fn func(DisplayState)) bool {
		fn(s.state.clone())
		return true
	})
}
