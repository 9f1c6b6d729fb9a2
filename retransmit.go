package atem

import "github.com/torresjeff/atem/config"

// retentionRing keeps the last config.RetransmitRingSize outbound packets
// so a ResendRequest from the switcher can be answered without
// re-deriving the packet (spec §4.3/§4.4: "resend as ACK" fallback when
// the requested ID has already aged out of the ring).
type retentionRing struct {
	entries map[uint16][]byte
	order   []uint16
	cap     int
}

func newRetentionRing(capacity int) *retentionRing {
	if capacity < config.RetransmitRingSize {
		capacity = config.RetransmitRingSize
	}
	return &retentionRing{
		entries: make(map[uint16][]byte, capacity),
		cap:     capacity,
	}
}

// Put records data (a fully-encoded packet) under id, evicting the oldest
// entry if the ring is at capacity.
func (r *retentionRing) Put(id uint16, data []byte) {
	if _, exists := r.entries[id]; !exists {
		r.order = append(r.order, id)
	}
	r.entries[id] = data
	for len(r.order) > r.cap {
		oldest := r.order[0]
		r.order = r.order[1:]
		delete(r.entries, oldest)
	}
}

// Get returns the retained packet for id, if it's still in the ring.
func (r *retentionRing) Get(id uint16) ([]byte, bool) {
	data, ok := r.entries[id]
	return data, ok
}
