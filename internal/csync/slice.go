package csync

import (
	"slices"
	"sync"
)

// Slice is an append-only slice guarded by a RWMutex.
type Slice[T any] struct {
	mu    sync.RWMutex
	items []T
}

// NewSlice creates an empty Slice.
func NewSlice[T any]() *Slice[T] {
	return &Slice[T]{}
}

// Append adds items to the end.
func (s *Slice[T]) Append(items ...T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, items...)
}

// Len returns the number of items.
func (s *Slice[T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Snapshot returns a copy of the items.
func (s *Slice[T]) Snapshot() []T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.items)
}

// Range calls f for each item in order until f returns false. It iterates
// over a snapshot, so f may append to s.
func (s *Slice[T]) Range(f func(index int, value T) bool) {
	for i, v := range s.Snapshot() {
		if !f(i, v) {
			return
		}
	}
}
