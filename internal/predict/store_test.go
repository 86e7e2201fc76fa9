package predict

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_StartsIdle(t *testing.T) {
	s := NewStore(0)
	st := s.State()
	assert.Equal(t, PhaseIdle, st.Phase)
	assert.Equal(t, StatusAwaiting, st.StatusText)
	assert.Empty(t, st.Predictions)
}

func TestStore_ApplyOutcome(t *testing.T) {
	fifteen := make([]string, 15)
	for i := range fifteen {
		fifteen[i] = fmt.Sprintf("p%02d", i)
	}

	tests := []struct {
		name        string
		outcomes    []Outcome
		phase       Phase
		status      string
		labels      []string
		auxiliaryID string
		lastError   string
	}{
		{
			name:        "success",
			outcomes:    []Outcome{Success{Predictions: predictions("aspirin", "aspartame"), AuxiliaryID: "IN01"}},
			phase:       PhaseSettled,
			status:      "",
			labels:      []string{"aspirin", "aspartame"},
			auxiliaryID: "IN01",
		},
		{
			name:     "empty_success",
			outcomes: []Outcome{Success{}},
			phase:    PhaseSettled,
			status:   StatusNone,
			labels:   []string{},
		},
		{
			name: "failure_keeps_predictions",
			outcomes: []Outcome{
				Success{Predictions: predictions("a", "b")},
				Failure{Message: "dial tcp: connection refused"},
			},
			phase:     PhaseErrored,
			status:    StatusErrorPrefix + "dial tcp: connection refused",
			labels:    []string{"a", "b"},
			lastError: "dial tcp: connection refused",
		},
		{
			name: "success_after_failure_clears_error",
			outcomes: []Outcome{
				Failure{Message: "boom"},
				Success{Predictions: predictions("c")},
			},
			phase:  PhaseSettled,
			labels: []string{"c"},
		},
		{
			name:     "cap_keeps_first_ten_in_order",
			outcomes: []Outcome{Success{Predictions: predictions(fifteen...)}},
			phase:    PhaseSettled,
			labels:   fifteen[:10],
		},
		{
			name: "cleared",
			outcomes: []Outcome{
				Success{Predictions: predictions("a"), AuxiliaryID: "x", Warning: "unsure"},
				Cleared{},
			},
			phase:  PhaseIdle,
			status: StatusAwaiting,
			labels: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewStore(DefaultResultCap)
			for i, o := range tt.outcomes {
				s.ApplyOutcome(int64(i+1), o)
			}
			st := s.State()
			assert.Equal(t, tt.phase, st.Phase)
			assert.Equal(t, tt.status, st.StatusText)
			assert.Equal(t, tt.labels, Labels(st.Predictions))
			assert.Equal(t, tt.auxiliaryID, st.AuxiliaryID)
			assert.Equal(t, tt.lastError, st.LastError)
			assert.Equal(t, int64(len(tt.outcomes)), st.Sequence)
		})
	}
}

func TestStore_SubscribersGetCopies(t *testing.T) {
	s := NewStore(DefaultResultCap)

	var got []DisplayState
	s.Subscribe(func(st DisplayState) { got = append(got, st) })

	s.SetStatus(PhasePending, StatusWaiting)
	s.SetStatus(PhasePending, StatusWaiting) // no change, no publish
	s.ApplyOutcome(1, Success{Predictions: predictions("a", "b")})

	require.Len(t, got, 2)
	assert.Equal(t, PhasePending, got[0].Phase)

	got[1].Predictions[0].Label = "mutated"
	assert.Equal(t, []string{"a", "b"}, Labels(s.State().Predictions))
}

func TestStore_DoesNotAliasOutcomeSlice(t *testing.T) {
	s := NewStore(DefaultResultCap)
	preds := predictions("a", "b")
	s.ApplyOutcome(1, Success{Predictions: preds})

	preds[0].Label = "changed"
	assert.Equal(t, "a", s.State().Predictions[0].Label)
}
