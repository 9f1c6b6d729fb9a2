// Package command implements the switcher's command codec (spec §4.2): the
// TLV iterator over a packet's payload, and the outbound command variants
// with their version-dependent serialization.
package command

import (
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/torresjeff/atem/state"
)

// headerSize is the 8-byte command header: length, reserved, 4-byte tag.
const headerSize = 8

// ErrMalformedLength is returned by the iterator when a command's declared
// length is structurally invalid (too small, zero, or overshoots the
// packet). Iteration stops at that point; commands already yielded remain
// valid.
var ErrMalformedLength = errors.New("command: malformed command length")

// Inbound is one TLV decoded from a packet's payload: the 4-byte ASCII tag
// and its payload slice (command-specific fields, still big-endian).
type Inbound struct {
	Tag     [4]byte
	Payload []byte
}

// TagString returns the command tag as a string, for logging.
func (in Inbound) TagString() string {
	return string(in.Tag[:])
}

// Iterate walks the commands packed into body, calling fn for each one in
// declared order. It stops at the first structurally invalid length (per
// ErrMalformedLength, which it returns) or once limit commands have been
// yielded (spec §4.4 parse cap), returning ErrTooManyCommands in that case.
// Both are non-fatal to the packet already processed up to that point; the
// caller decides whether to log and continue.
func Iterate(body []byte, limit int, fn func(Inbound) error) error {
	count := 0
	for len(body) > 0 {
		if len(body) < headerSize {
			return ErrMalformedLength
		}
		length := int(binary.BigEndian.Uint16(body[0:2]))
		if length < headerSize || length > len(body) {
			return ErrMalformedLength
		}
		if count >= limit {
			return ErrTooManyCommands
		}
		count++

		var in Inbound
		copy(in.Tag[:], body[4:8])
		in.Payload = body[headerSize:length]
		if err := fn(in); err != nil {
			return err
		}
		body = body[length:]
	}
	return nil
}

// ErrTooManyCommands is returned by Iterate once the per-packet parse cap
// (spec §4.4) is reached; the excess is dropped.
var ErrTooManyCommands = errors.New("command: too many commands in packet")

// Outbound is a command ready to be placed into an outbound packet's
// payload. Payload is built by Prepare, which runs immediately before
// serialization so it can vary the wire layout by protocol version (spec
// §4.2's DSK auto-transition example).
type Outbound struct {
	Tag     [4]byte
	Prepare func(v state.Version) []byte
}

// Tag4 builds a 4-byte tag array from a 4-character ASCII string. It
// panics if s is not exactly 4 bytes, since every call site uses a
// compile-time literal.
func Tag4(s string) [4]byte {
	if len(s) != 4 {
		panic("command: tag must be exactly 4 ASCII bytes: " + s)
	}
	var t [4]byte
	copy(t[:], s)
	return t
}

// Encode serializes an outbound command against protocol version v,
// including its 8-byte header.
func Encode(cmd Outbound, v state.Version) []byte {
	payload := cmd.Prepare(v)
	out := make([]byte, headerSize+len(payload))
	binary.BigEndian.PutUint16(out[0:2], uint16(len(out)))
	copy(out[4:8], cmd.Tag[:])
	copy(out[headerSize:], payload)
	return out
}

// EncodeAll serializes a batch of outbound commands in order and
// concatenates them into a single payload suitable for one packet.
func EncodeAll(cmds []Outbound, v state.Version) []byte {
	var out []byte
	for _, c := range cmds {
		out = append(out, Encode(c, v)...)
	}
	return out
}
