// Package config holds the tunable constants of the switcher client: wire
// limits, timing budgets, and defaults a caller can reasonably leave alone.
package config

import "time"

// Debug gates verbose, human-oriented logging that is too noisy for
// production use but useful while bringing up a new switcher model.
var Debug = false

const (
	// DefaultPort is the UDP port the switcher listens on.
	DefaultPort = 9910

	// MinPacketSize and MaxPacketSize bound a well-formed packet, header
	// included.
	MinPacketSize = 12
	MaxPacketSize = 2047

	// HeaderSize is the fixed session header length in bytes.
	HeaderSize = 12

	// MaxPacketID is the exclusive upper bound of the 15-bit ID space.
	MaxPacketID = 0x8000

	// InitialSessionID is used on the wire before the peer has assigned
	// a real one.
	InitialSessionID uint16 = 0x0B06

	// RetransmitRingSize is the minimum number of outbound packets kept
	// around for resend requests.
	RetransmitRingSize = 32

	// MaxCommandsPerPacket caps how many commands are parsed out of a
	// single inbound packet before the remainder is dropped.
	MaxCommandsPerPacket = 512

	// ReadTimeout is how long a single blocking socket read waits before
	// the receive loop re-evaluates liveness.
	ReadTimeout = 1 * time.Second

	// MaxConsecutiveEmptyReads is how many timed-out reads in a row are
	// tolerated before the link is declared dead.
	MaxConsecutiveEmptyReads = 5

	// PingAfterEmptyReads is how many consecutive empty reads elapse
	// before a liveness ping is sent.
	PingAfterEmptyReads = 4

	// IdlePingInterval is how long the session waits without any peer
	// traffic while ACTIVE before sending an idle keep-alive.
	IdlePingInterval = 500 * time.Millisecond

	// StateLockBudget and RetentionLockBudget are the contractual upper
	// bounds on how long an API caller may block acquiring the
	// respective lock before giving up.
	StateLockBudget     = 150 * time.Millisecond
	RetentionLockBudget = 50 * time.Millisecond

	// ProductIdentifierSize is the fixed width of the product name slot.
	ProductIdentifierSize = 45

	// LongInputNameSize and ShortInputNameSize bound per-input names.
	LongInputNameSize  = 20
	ShortInputNameSize = 4

	// MediaPoolFileNameSize bounds a mediapool frame's file name.
	MediaPoolFileNameSize = 64
)
