package command

import (
	"testing"

	"github.com/torresjeff/atem/state"
)

func TestDskAutoVersionVariant(t *testing.T) {
	cmd := DskAuto(3)

	old := cmd.Prepare(state.Version{Major: 2, Minor: 27})
	if len(old) != 1 || old[0] != 3 {
		t.Fatalf("version (2,27) should place keyer at offset 0, got %v", old)
	}

	next := cmd.Prepare(state.Version{Major: 2, Minor: 28})
	if len(next) != 2 || next[0] != 0 || next[1] != 3 {
		t.Fatalf("version (2,28) should place keyer at offset 1, got %v", next)
	}
}

func TestDVEFieldMaskAndOffsets(t *testing.T) {
	f := DVEFields{SizeX: 10, HasSizeX: true, Rotation: 20, HasRotation: true}
	if f.Mask() != 0x00000011 {
		t.Fatalf("expected mask 0x11, got 0x%x", f.Mask())
	}

	cmd := SetKeyerDVE(1, 2, f)
	payload := cmd.Prepare(state.Version{})
	if len(payload) != 36 {
		t.Fatalf("expected a 36-byte DVE payload, got %d", len(payload))
	}
	if payload[16+3] != 10 {
		t.Fatalf("SIZE_X should be encoded at offset 16, got %v", payload[16:20])
	}
	if payload[32+3] != 20 {
		t.Fatalf("ROTATION should be encoded at offset 32, got %v", payload[32:36])
	}
	if payload[20] != 0 || payload[24] != 0 || payload[28] != 0 {
		t.Fatal("fields not requested should remain zero")
	}
}

func TestEncodeIncludesHeader(t *testing.T) {
	out := Encode(Cut(1), state.Version{})
	if len(out) != headerSize+1 {
		t.Fatalf("expected %d bytes, got %d", headerSize+1, len(out))
	}
	if tag := string(out[4:8]); tag != "DCut" {
		t.Fatalf("expected tag DCut, got %q", tag)
	}
}
