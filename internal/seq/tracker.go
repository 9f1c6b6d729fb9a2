// Package seq implements the sliding-window duplicate/gap detector over the
// switcher protocol's 15-bit packet ID space (spec §4.3).
package seq

import "github.com/torresjeff/atem/packet"

// windowSize is the width of the tracker's bitmap of the most recently
// observed IDs: bit n stands for ID offset-n, so the newest is bit 0.
const windowSize = 32

// Tracker detects duplicate and missing packet IDs within a 32-entry
// sliding window.
type Tracker struct {
	offset uint16
	bitmap uint32
}

// New returns a tracker seeded as if ID 0 had already been received: the
// first genuine frame at ID 1 is accepted and 0 is never reported missing.
func New() *Tracker {
	return &Tracker{
		offset: 1,
		bitmap: ^uint32(0) &^ 1, // all-ones except the LSB (slot for ID 1, the offset)
	}
}

// Add records id as received. It returns false if id was already recorded
// (a duplicate), true otherwise.
func (t *Tracker) Add(id uint16) bool {
	// shift is (id - offset) mod 0x8000. When it fits within the 32-bit
	// window it's a forward step: slide the window and advance the
	// cursor. When it doesn't (id is behind the cursor, or the jump
	// forward is implausibly large), leave the cursor alone and just
	// address a bit in the existing window.
	shift := packet.Distance(id, t.offset)
	if shift > 0 && shift < windowSize {
		t.bitmap <<= shift
		t.offset = id
	}

	bit := packet.Distance(t.offset, id)
	if bit >= windowSize {
		// Outside the trailing window entirely; nothing to compare
		// against, so it can't be flagged a duplicate.
		return true
	}
	mask := uint32(1) << bit
	if t.bitmap&mask != 0 {
		return false
	}
	t.bitmap |= mask
	return true
}

// Missing returns the oldest unset bit position mapped back to an ID, or
// (0, false) when the window is full (no gap to report). Bit 0 always
// corresponds to the cursor itself and is never considered: it is set by
// the Add call that produced the current offset.
func (t *Tracker) Missing() (uint16, bool) {
	for bit := uint32(windowSize - 1); bit >= 1; bit-- {
		if t.bitmap&(1<<bit) == 0 {
			return t.offset - uint16(bit), true
		}
	}
	return 0, false
}

// Contains reports whether id falls within the tracked window.
func (t *Tracker) Contains(id uint16) bool {
	d := packet.Distance(t.offset, id)
	return d < windowSize
}

// NewerThan reports whether id is newer than the tracker's current cursor,
// using the same modular comparison as the rest of the protocol.
func (t *Tracker) NewerThan(id uint16) bool {
	return packet.NewerThan(id, t.offset)
}
