package device

import "sync/atomic"

// Store is the process-wide slot for the latest device State.
//
// Writes replace the previous value unconditionally (last-write-wins).
// The zero value is an empty, usable Store.
//
// Thread Safety:
//   - Set and Get are safe for concurrent use; readers never block writers.
type Store struct {
	current atomic.Pointer[State]
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{}
}

// Set replaces the stored state.
func (s *Store) Set(state State) {
	s.current.Store(&state)
}

// Get returns the latest state and whether one has been stored.
//
// The returned State shares its Readings map with the store; callers
// that modify it should Clone first.
func (s *Store) Get() (State, bool) {
	p := s.current.Load()
	if p == nil {
		return State{}, false
	}
	return *p, true
}
