// Package packet implements the fixed 12-byte session header framing used
// by the switcher's control protocol: flag bits, the 11-bit length, the
// three 16-bit IDs, and the 15-bit modular ID arithmetic used to order them.
package packet

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

// Flag is a bit in the packet header's flags field (byte 0, high 5 bits).
type Flag uint8

const (
	AckRequest     Flag = 0x01
	Init           Flag = 0x02
	Retransmission Flag = 0x04
	ResendRequest  Flag = 0x08
	AckReply       Flag = 0x10
)

const (
	// HeaderSize is the number of bytes before the first command TLV.
	HeaderSize = 12

	// lengthMask isolates the 11-bit length packed into bytes 0-1.
	lengthMask = 0x07FF

	// MaxID is the exclusive upper bound of the 15-bit ID space.
	MaxID = 0x8000
)

// ErrTooShort is returned when a buffer is too small to hold a header.
var ErrTooShort = errors.New("packet: buffer shorter than header")

// ErrLengthMismatch is returned when the declared length does not match
// the number of bytes actually received.
var ErrLengthMismatch = errors.New("packet: declared length does not match datagram size")

// Header is the decoded form of the 12-byte session header.
type Header struct {
	Flags      Flag
	Length     int
	SessionID  uint16
	AckID      uint16
	ResendID   uint16
	Reserved   uint16
	ID         uint16
}

// Decode parses the header from the front of data. It does not validate
// that len(data) equals the declared length; callers that receive whole
// datagrams should call Validate for that.
func Decode(data []byte) (Header, error) {
	if len(data) < HeaderSize {
		return Header{}, ErrTooShort
	}
	h := Header{
		Flags:     Flag(data[0] >> 3),
		Length:    int(binary.BigEndian.Uint16(data[0:2]) & lengthMask),
		SessionID: binary.BigEndian.Uint16(data[2:4]),
		AckID:     binary.BigEndian.Uint16(data[4:6]),
		ResendID:  binary.BigEndian.Uint16(data[6:8]),
		Reserved:  binary.BigEndian.Uint16(data[8:10]),
		ID:        binary.BigEndian.Uint16(data[10:12]),
	}
	return h, nil
}

// Validate reports ErrLengthMismatch if the header's declared length does
// not equal the size of the datagram it was decoded from.
func (h Header) Validate(datagramSize int) error {
	if h.Length != datagramSize {
		return ErrLengthMismatch
	}
	return nil
}

// Encode writes the 12-byte header for a packet whose payload is
// payloadLen bytes long. It returns ErrTooShort if buf can't hold it.
func Encode(buf []byte, h Header, payloadLen int) error {
	if len(buf) < HeaderSize {
		return ErrTooShort
	}
	length := HeaderSize + payloadLen
	binary.BigEndian.PutUint16(buf[0:2], (uint16(h.Flags)<<11)|(uint16(length)&lengthMask))
	binary.BigEndian.PutUint16(buf[2:4], h.SessionID)
	binary.BigEndian.PutUint16(buf[4:6], h.AckID)
	binary.BigEndian.PutUint16(buf[6:8], h.ResendID)
	binary.BigEndian.PutUint16(buf[8:10], h.Reserved)
	binary.BigEndian.PutUint16(buf[10:12], h.ID)
	return nil
}

// Build encodes a complete packet (header + payload) into a fresh slice.
func Build(h Header, payload []byte) []byte {
	buf := make([]byte, HeaderSize+len(payload))
	_ = Encode(buf, h, len(payload))
	copy(buf[HeaderSize:], payload)
	return buf
}

// Has reports whether flags has every bit in want set.
func (f Flag) Has(want Flag) bool {
	return f&want == want
}

// NewerThan reports whether a is newer than b in the 15-bit modular ID
// space: (a - b) mod 0x8000 is in (0, 0x4000].
func NewerThan(a, b uint16) bool {
	d := (uint32(a) - uint32(b)) & (MaxID - 1)
	return d > 0 && d <= MaxID/2
}

// NextID returns id+1, wrapping modulo the 15-bit ID space.
func NextID(id uint16) uint16 {
	return uint16((uint32(id) + 1) % MaxID)
}

// Distance returns (a - b) mod 0x8000, the forward modular distance from b
// to a.
func Distance(a, b uint16) uint16 {
	return uint16((uint32(a) - uint32(b)) & (MaxID - 1))
}
