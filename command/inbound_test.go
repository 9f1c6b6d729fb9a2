package command

import (
	"encoding/binary"
	"testing"

	"github.com/torresjeff/atem/event"
	"github.com/torresjeff/atem/state"
)

func TestApplyProgramSetsSourceCategory(t *testing.T) {
	s := state.New(nil)
	g := s.Lock()
	defer g.Release()
	g.SetTopology(1, state.Topology{MixEffects: 1})

	payload := make([]byte, 4)
	binary.BigEndian.PutUint16(payload[2:4], 7)
	in := Inbound{Tag: Tag4("PrgI"), Payload: payload}

	var pending event.Set
	if !Apply(2, in, g, &pending) {
		t.Fatal("expected PrgI to be handled")
	}
	if pending&event.Set(event.Source) == 0 {
		t.Fatal("expected SOURCE category to be set")
	}
	src, ok := g.Program(0)
	if !ok || src != 7 {
		t.Fatalf("expected program=7, got (%v, %v)", src, ok)
	}
}

func TestApplyUnknownTagReturnsFalse(t *testing.T) {
	s := state.New(nil)
	g := s.Lock()
	defer g.Release()

	var pending event.Set
	if Apply(1, Inbound{Tag: Tag4("ZZZZ")}, g, &pending) {
		t.Fatal("an unrecognized tag must not be dispatched")
	}
	if pending != 0 {
		t.Fatal("no category should be set for an unhandled tag")
	}
}

func TestApplyTopologyAndCoalescing(t *testing.T) {
	s := state.New(nil)
	g := s.Lock()
	defer g.Release()

	top := make([]byte, 14)
	top[0] = 2 // mix-effects
	var pending event.Set
	Apply(1, Inbound{Tag: Tag4("_top"), Payload: top}, g, &pending)

	progPayload := make([]byte, 4)
	binary.BigEndian.PutUint16(progPayload[2:4], 3)
	Apply(2, Inbound{Tag: Tag4("PrgI"), Payload: progPayload}, g, &pending)

	if pending&event.Set(event.Topology) == 0 || pending&event.Set(event.Source) == 0 {
		t.Fatalf("expected TOPOLOGY and SOURCE both pending, got %v", pending)
	}
}

// TestApplyKeyerOnAirMergesSingleBit covers original_source/src/atem.cpp's
// {me, keyer, state} shape for KeOn: setting one keyer's bit must not
// clobber another keyer's bit in the same ME's on-air mask.
func TestApplyKeyerOnAirMergesSingleBit(t *testing.T) {
	s := state.New(nil)
	g := s.Lock()
	defer g.Release()
	g.SetTopology(1, state.Topology{MixEffects: 1})

	var pending event.Set
	Apply(1, Inbound{Tag: Tag4("KeOn"), Payload: []byte{0, 1, 1}}, g, &pending) // me=0 keyer=1 on
	Apply(2, Inbound{Tag: Tag4("KeOn"), Payload: []byte{0, 3, 1}}, g, &pending) // me=0 keyer=3 on

	mask, ok := g.USKOnAir(0)
	if !ok || mask != (1<<1)|(1<<3) {
		t.Fatalf("expected mask 0b1010, got %b (ok=%v)", mask, ok)
	}

	Apply(3, Inbound{Tag: Tag4("KeOn"), Payload: []byte{0, 1, 0}}, g, &pending) // me=0 keyer=1 off
	mask, ok = g.USKOnAir(0)
	if !ok || mask != 1<<3 {
		t.Fatalf("expected keyer 1 cleared and keyer 3 untouched, got %b (ok=%v)", mask, ok)
	}
}

// TestApplyKeyerDVEMaskFreeLayout covers original_source/src/atem.cpp's
// mask-free inbound KeDV shape, distinct from the outbound CKDV layout.
func TestApplyKeyerDVEMaskFreeLayout(t *testing.T) {
	s := state.New(nil)
	g := s.Lock()
	defer g.Release()
	g.SetTopology(1, state.Topology{MixEffects: 1, DVEs: 1})
	g.SetKeyerCount(0, 1)

	payload := make([]byte, 24)
	payload[0], payload[1] = 0, 0 // me, keyer
	binary.BigEndian.PutUint32(payload[4:8], uint32(int32(10)))
	binary.BigEndian.PutUint32(payload[8:12], uint32(int32(20)))
	binary.BigEndian.PutUint32(payload[12:16], uint32(int32(30)))
	binary.BigEndian.PutUint32(payload[16:20], uint32(int32(40)))
	binary.BigEndian.PutUint32(payload[20:24], uint32(int32(50)))

	var pending event.Set
	if !Apply(1, Inbound{Tag: Tag4("KeDV"), Payload: payload}, g, &pending) {
		t.Fatal("expected KeDV to be handled")
	}
	dve, ok := g.KeyerDVE(0, 0)
	if !ok {
		t.Fatal("expected a DVE value to be recorded")
	}
	want := state.KeyerDVE{SizeX: 10, SizeY: 20, PosX: 30, PosY: 40, Rotation: 50}
	if dve != want {
		t.Fatalf("expected %+v, got %+v", want, dve)
	}
}

// TestApplyAuxChannelOffset covers original_source/src/atem.cpp's
// {channel@0, reserved@1, source@[2:4]} inbound AuxS shape, distinct from
// the outbound CAuS {mask, channel, source} shape.
func TestApplyAuxChannelOffset(t *testing.T) {
	s := state.New(nil)
	g := s.Lock()
	defer g.Release()

	payload := make([]byte, 4)
	payload[0] = 3  // channel
	payload[1] = 99 // reserved; must be ignored, not read as the channel
	binary.BigEndian.PutUint16(payload[2:4], 42)

	var pending event.Set
	Apply(1, Inbound{Tag: Tag4("AuxS"), Payload: payload}, g, &pending)

	src, ok := g.Aux(3)
	if !ok || src != 42 {
		t.Fatalf("expected aux channel 3 to be set to source 42, got (%v, %v)", src, ok)
	}
	if _, ok := g.Aux(99); ok {
		t.Fatal("reserved byte must not be read as the channel index")
	}
}

// TestApplyKeyerStatePopulatesFullMask covers state.KeyerMask's four crop
// fields; KeBP previously left Left/Right permanently zero.
func TestApplyKeyerStatePopulatesFullMask(t *testing.T) {
	s := state.New(nil)
	g := s.Lock()
	defer g.Release()
	g.SetTopology(1, state.Topology{MixEffects: 1})
	g.SetKeyerCount(0, 1)

	payload := make([]byte, 16)
	payload[0], payload[1] = 0, 0 // me, keyer
	binary.BigEndian.PutUint16(payload[8:10], 11)  // top
	binary.BigEndian.PutUint16(payload[10:12], 22) // bottom
	binary.BigEndian.PutUint16(payload[12:14], 33) // left
	binary.BigEndian.PutUint16(payload[14:16], 44) // right

	var pending event.Set
	Apply(1, Inbound{Tag: Tag4("KeBP"), Payload: payload}, g, &pending)

	st, ok := g.KeyerState(0, 0)
	if !ok {
		t.Fatal("expected a keyer state to be recorded")
	}
	want := state.KeyerMask{Top: 11, Bottom: 22, Left: 33, Right: 44}
	if st.Mask != want {
		t.Fatalf("expected mask %+v, got %+v", want, st.Mask)
	}
}
