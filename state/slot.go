package state

import "github.com/torresjeff/atem/packet"

// Slot is the generic per-field freshness wrapper described in the design
// notes: every mirrored field carries a value, a validity flag, and the
// packet ID that last wrote it. A write is accepted only if the writer is
// newer than whatever wrote the slot last, or the slot hasn't been
// populated yet.
type Slot[T any] struct {
	value        T
	valid        bool
	lastChangeID uint16
}

// Set applies v as having been written by writerID. It returns false
// (and leaves the slot untouched) if writerID is stale.
func (s *Slot[T]) Set(writerID uint16, v T) bool {
	if !s.IsNewer(writerID) {
		return false
	}
	s.value = v
	s.valid = true
	s.lastChangeID = writerID
	return true
}

// Get returns the slot's value and whether it has ever been validly set.
func (s *Slot[T]) Get() (T, bool) {
	return s.value, s.valid
}

// IsNewer reports whether a write stamped with writerID would be accepted.
func (s *Slot[T]) IsNewer(writerID uint16) bool {
	return !s.valid || packet.NewerThan(writerID, s.lastChangeID)
}

// Reset clears the slot back to its zero, invalid state.
func (s *Slot[T]) Reset() {
	var zero T
	s.value = zero
	s.valid = false
	s.lastChangeID = 0
}
