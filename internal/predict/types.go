package predict

import (
	"context"
	"fmt"
	"strings"

	"github.com/billie-coop/typeahead/internal/csync"
)

// DefaultResultCap is the number of predictions kept from each response.
const DefaultResultCap = 10

// Prediction is one ranked result. Rank is its position in the slice the
// service returned; the client never re-sorts.
type Prediction struct {
	Label  string  `json:"label"`
	Code   string  `json:"code,omitempty"`
	Detail string  `json:"detail,omitempty"`
	Score  float64 `json:"score,omitempty"`
}

func (p Prediction) String() string {
	switch {
	case p.Label != "":
		return p.Label
	case p.Detail != "":
		return fmt.Sprintf("%s - %s", p.Code, p.Detail)
	default:
		return p.Code
	}
}

// Labels returns the display strings of ps in order.
func Labels(ps []Prediction) []string {
	labels := make([]string, len(ps))
	for i, p := range ps {
		labels[i] = p.String()
	}
	return labels
}

// Fields is a snapshot of the observed input fields keyed by field name.
// Missing and empty values both mean "unset".
type Fields map[string]string

// Empty reports whether the named field is unset or whitespace only.
func (f Fields) Empty(name string) bool {
	return strings.TrimSpace(f[name]) == ""
}

// Query is one request to the prediction service. It is never modified
// after the dispatcher creates it.
type Query struct {
	Sequence int64
	// ID correlates the request with service-side logs.
	ID     string
	Fields Fields
	Limit  int
}

// Result is what a transport returns for a successful query.
type Result struct {
	Predictions []Prediction `json:"predictions"`
	AuxiliaryID string       `json:"auxiliary_id,omitempty"`
	Warning     string       `json:"warning,omitempty"`
}

// Transport sends a query to the prediction service. Implementations may
// block; the dispatcher always calls Predict off the event loop.
type Transport interface {
	Predict(ctx context.Context, q Query) (Result, error)
}

// TransportFunc adapts a function to Transport.
type TransportFunc func(ctx context.Context, q Query) (Result, error)

func (f TransportFunc) Predict(ctx context.Context, q Query) (Result, error) {
	return f(ctx, q)
}

// Outcome is the resolution of a query: Success, Failure or Cleared.
type Outcome interface {
	isOutcome()
}

// Success carries predictions, already capped and in service order.
type Success struct {
	Predictions []Prediction
	AuxiliaryID string
	Warning     string
}

// Failure carries the transport's error message verbatim.
type Failure struct {
	Message string
}

// Cleared is the outcome of firing with empty input: an empty success that
// also returns the display to the idle status.
type Cleared struct{}

func (Success) isOutcome() {}
func (Failure) isOutcome() {}
func (Cleared) isOutcome() {}

// FieldSource yields the current field values at fire time.
type FieldSource interface {
	Snapshot() Fields
}

// FieldSet is a FieldSource that is safe to write from any goroutine.
type FieldSet struct {
	values *csync.Map[string, string]
}

// NewFieldSet creates an empty field set.
func NewFieldSet() *FieldSet {
	return &FieldSet{values: csync.NewMap[string, string]()}
}

// Set stores a field value. It reports whether the value changed.
func (s *FieldSet) Set(name, value string) bool {
	old, ok := s.values.Swap(name, value)
	return !ok || old != value
}

// Get returns a field value, or "" if unset.
func (s *FieldSet) Get(name string) string {
	v, _ := s.values.Get(name)
	return v
}

// Snapshot copies the current values.
func (s *FieldSet) Snapshot() Fields {
	return s.values.Snapshot()
}

// Requirement decides whether a snapshot holds enough input to query.
type Requirement func(Fields) bool

// RequireAll is satisfied when every named field is non-empty.
func RequireAll(names ...string) Requirement {
	return func(f Fields) bool {
		for _, name := range names {
			if f.Empty(name) {
				return false
			}
		}
		return len(names) > 0
	}
}

// RequireAny is satisfied when at least one named field is non-empty.
func RequireAny(names ...string) Requirement {
	return func(f Fields) bool {
		for _, name := range names {
			if !f.Empty(name) {
				return true
			}
		}
		return false
	}
}
