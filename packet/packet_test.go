package packet

import (
	"math/rand"
	"testing"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	for i := 0; i < 200; i++ {
		in := Header{
			Flags:     Flag(r.Intn(32)),
			SessionID: uint16(r.Intn(1 << 16)),
			AckID:     uint16(r.Intn(1 << 16)),
			ResendID:  uint16(r.Intn(1 << 16)),
			ID:        uint16(r.Intn(1 << 16)),
		}
		payloadLen := 12 + r.Intn(2047-12)
		buf := make([]byte, payloadLen)
		if err := Encode(buf, in, payloadLen-HeaderSize); err != nil {
			t.Fatalf("Encode: %v", err)
		}
		out, err := Decode(buf)
		if err != nil {
			t.Fatalf("Decode: %v", err)
		}
		if out.Flags != in.Flags || out.SessionID != in.SessionID || out.AckID != in.AckID ||
			out.ResendID != in.ResendID || out.ID != in.ID || out.Length != payloadLen {
			t.Fatalf("round trip mismatch: in=%+v out=%+v", in, out)
		}
	}
}

func TestLengthMasking(t *testing.T) {
	buf := make([]byte, 16)
	h := Header{Flags: AckRequest, ID: 7}
	if err := Encode(buf, h, 4); err != nil {
		t.Fatal(err)
	}
	buf[0] |= 0xF8 // stomp every flag bit sharing byte 0 with the length
	out, err := Decode(buf)
	if err != nil {
		t.Fatal(err)
	}
	if out.Length != 16 {
		t.Fatalf("expected length 16 after stomping high bits, got %d", out.Length)
	}
}

func TestNewerThan(t *testing.T) {
	tests := []struct {
		name string
		a, b uint16
		want bool
	}{
		{"immediate successor", 1, 0x7FFF, true},
		{"wrap across zero", 0, 0x7FFF, true},
		{"same id", 5, 5, false},
		{"older", 0x7FFE, 0x7FFF, false},
		{"far future rejected as old", 0x4001, 0, false},
		{"boundary accepted", 0x4000, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NewerThan(tt.a, tt.b); got != tt.want {
				t.Errorf("NewerThan(%#x, %#x) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestNextID(t *testing.T) {
	if got := NextID(0x7FFF); got != 0 {
		t.Errorf("NextID(0x7FFF) = %#x, want 0", got)
	}
	if got := NextID(1); got != 2 {
		t.Errorf("NextID(1) = %#x, want 2", got)
	}
}
