package predict

// Admission is the sequencer's verdict on an arriving outcome.
type Admission int

const (
	Applied Admission = iota
	Discarded
)

func (a Admission) String() string {
	switch a {
	case Applied:
		return "applied"
	case Discarded:
		return "discarded"
	default:
		return "unknown"
	}
}

// Sequencer numbers queries and decides which outcomes may reach the
// display. An outcome is admitted only if its sequence is newer than every
// outcome admitted before it, so lastAdmitted never goes backwards.
type Sequencer struct {
	next         int64
	lastAdmitted int64
}

// NewSequencer returns a sequencer whose first allocation is 1.
func NewSequencer() *Sequencer {
	return &Sequencer{}
}

// Allocate issues the next sequence number.
func (s *Sequencer) Allocate() int64 {
	s.next++
	return s.next
}

// Admit records seq as the newest visible outcome if it is newer than the
// last one admitted.
func (s *Sequencer) Admit(seq int64) Admission {
	if seq <= s.lastAdmitted {
		return Discarded
	}
	s.lastAdmitted = seq
	return Applied
}

// LastAdmitted returns the sequence of the outcome currently on display,
// or 0 if nothing has been admitted.
func (s *Sequencer) LastAdmitted() int64 {
	return s.lastAdmitted
}

// LastAllocated returns the most recently issued sequence.
func (s *Sequencer) LastAllocated() int64 {
	return s.next
}
