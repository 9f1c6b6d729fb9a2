package command

import (
	"encoding/binary"

	"github.com/torresjeff/atem/event"
	"github.com/torresjeff/atem/state"
)

// This file dispatches the inbound trigger commands enumerated in spec
// §4.6: each applier reads fixed offsets out of a decoded Inbound's
// payload, writes the result into the state guard under writerID (the
// originating packet's ID, for the store's freshness check), and marks
// the category it touched on pending so the session can flush it once
// per packet.

// Applier writes one inbound command's effect into the store and records
// which event category it touched.
type Applier func(writerID uint16, in Inbound, g *state.Guard, pending *event.Set)

// Dispatch maps a command's 4-byte ASCII tag to its applier. Tags absent
// from this map are silently ignored, per spec §4.6's "unknown commands
// are skipped, not fatal."
var Dispatch = map[string]Applier{
	"_top": applyTopology,
	"_MeC": applyMixEffectConfig,
	"_mpl": applyMediaplayerCapacity,
	"_pin": applyProductID,
	"_ver": applyProtocolVersion,
	"InPr": applyInputProperties,
	"PrgI": applyProgram,
	"PrvI": applyPreview,
	"TrPs": applyTransitionPosition,
	"TrSS": applyTransitionState,
	"FtbS": applyFadeToBlack,
	"KeOn": applyKeyerOnAir,
	"KeBP": applyKeyerState,
	"KeDV": applyKeyerDVE,
	"KeFS": applyKeyerAtKeyFrame,
	"DskS": applyDskState,
	"DskB": applyDskSource,
	"DskP": applyDskTie,
	"AuxS": applyAux,
	"MPCE": applyMediaplayerSource,
	"MPfe": applyMediapoolFrame,
	"StRS": applyStreamState,
}

// Apply looks up in's tag in Dispatch and, if present, invokes the
// applier; it reports whether a handler ran.
func Apply(writerID uint16, in Inbound, g *state.Guard, pending *event.Set) bool {
	fn, ok := Dispatch[in.TagString()]
	if !ok {
		return false
	}
	fn(writerID, in, g, pending)
	return true
}

func applyTopology(writerID uint16, in Inbound, g *state.Guard, pending *event.Set) {
	p := in.Payload
	if len(p) < 14 {
		return
	}
	t := state.Topology{
		MixEffects:            p[0],
		Sources:                p[1],
		DownstreamKeyers:       p[2],
		AuxOutputs:             p[3],
		MixMinusOutputs:        p[4],
		Mediaplayers:           p[5],
		Multiviewers:           p[6],
		RS485Ports:             p[7],
		Hyperdecks:             p[8],
		DVEs:                   p[9],
		Stingers:               p[10],
		Supersources:           p[11],
		TalkbackChannels:       p[12],
		CameraControlChannels:  p[13],
	}
	if g.SetTopology(writerID, t) {
		pending.Add(event.Topology)
	}
}

func applyMixEffectConfig(writerID uint16, in Inbound, g *state.Guard, pending *event.Set) {
	p := in.Payload
	if len(p) < 2 {
		return
	}
	me, keyerCount := int(p[0]), int(p[1])
	if g.SetKeyerCount(me, keyerCount) {
		pending.Add(event.Topology)
	}
}

func applyMediaplayerCapacity(writerID uint16, in Inbound, g *state.Guard, pending *event.Set) {
	p := in.Payload
	if len(p) < 2 {
		return
	}
	c := state.MediaplayerCapacity{Stills: p[0], Clips: p[1]}
	if g.SetMediaplayerCapacity(writerID, c) {
		pending.Add(event.MediaPlayer)
	}
}

func applyProductID(writerID uint16, in Inbound, g *state.Guard, pending *event.Set) {
	name := trimTrailingZero(in.Payload)
	if g.SetProductID(writerID, name) {
		pending.Add(event.ProductID)
	}
}

func applyProtocolVersion(writerID uint16, in Inbound, g *state.Guard, pending *event.Set) {
	p := in.Payload
	if len(p) < 4 {
		return
	}
	v := state.Version{
		Major: binary.BigEndian.Uint16(p[0:2]),
		Minor: binary.BigEndian.Uint16(p[2:4]),
	}
	if g.SetProtocolVersion(writerID, v) {
		pending.Add(event.ProtocolVersion)
	}
}

func applyInputProperties(writerID uint16, in Inbound, g *state.Guard, pending *event.Set) {
	p := in.Payload
	if len(p) < 2+20+4 {
		return
	}
	source := binary.BigEndian.Uint16(p[0:2])
	props := state.InputProperties{
		LongName:  trimTrailingZero(p[2:22]),
		ShortName: trimTrailingZero(p[22:26]),
	}
	if g.SetInput(writerID, source, props) {
		pending.Add(event.InputProperties)
	}
}

func applyProgram(writerID uint16, in Inbound, g *state.Guard, pending *event.Set) {
	p := in.Payload
	if len(p) < 4 {
		return
	}
	me := int(p[0])
	src := state.Source(binary.BigEndian.Uint16(p[2:4]))
	if g.SetProgram(writerID, me, src) {
		pending.Add(event.Source)
	}
}

func applyPreview(writerID uint16, in Inbound, g *state.Guard, pending *event.Set) {
	p := in.Payload
	if len(p) < 4 {
		return
	}
	me := int(p[0])
	src := state.Source(binary.BigEndian.Uint16(p[2:4]))
	if g.SetPreview(writerID, me, src) {
		pending.Add(event.Source)
	}
}

func applyTransitionPosition(writerID uint16, in Inbound, g *state.Guard, pending *event.Set) {
	p := in.Payload
	if len(p) < 4 {
		return
	}
	me := int(p[0])
	pos := state.TransitionPosition{
		InTransition: p[1] != 0,
		Position:     binary.BigEndian.Uint16(p[2:4]),
	}
	if g.SetTransitionPosition(writerID, me, pos) {
		pending.Add(event.TransitionPosition)
	}
}

func applyTransitionState(writerID uint16, in Inbound, g *state.Guard, pending *event.Set) {
	p := in.Payload
	if len(p) < 4 {
		return
	}
	me := int(p[0])
	st := state.TransitionState{
		Style: state.TransitionStyle(p[1]),
		Next:  uint16(p[2]),
	}
	if g.SetTransitionState(writerID, me, st) {
		pending.Add(event.TransitionState)
	}
}

func applyFadeToBlack(writerID uint16, in Inbound, g *state.Guard, pending *event.Set) {
	p := in.Payload
	if len(p) < 2 {
		return
	}
	me := int(p[0])
	f := state.FadeToBlack{
		FullyBlack:   p[1]&0x01 != 0,
		InTransition: p[1]&0x02 != 0,
	}
	if g.SetFTB(writerID, me, f) {
		pending.Add(event.FadeToBlack)
	}
}

func applyKeyerOnAir(writerID uint16, in Inbound, g *state.Guard, pending *event.Set) {
	p := in.Payload
	if len(p) < 3 {
		return
	}
	me, keyer, on := int(p[0]), p[1], p[2]
	mask, _ := g.USKOnAir(me)
	mask &^= 1 << keyer
	if on != 0 {
		mask |= 1 << keyer
	}
	if g.SetUSKOnAir(writerID, me, mask) {
		pending.Add(event.USK)
	}
}

func applyKeyerState(writerID uint16, in Inbound, g *state.Guard, pending *event.Set) {
	p := in.Payload
	if len(p) < 16 {
		return
	}
	me, k := int(p[0]), int(p[1])
	st := state.KeyerState{
		Type: state.KeyerType(p[2]),
		Fill: state.Source(binary.BigEndian.Uint16(p[4:6])),
		Key:  state.Source(binary.BigEndian.Uint16(p[6:8])),
		Mask: state.KeyerMask{
			Top:    binary.BigEndian.Uint16(p[8:10]),
			Bottom: binary.BigEndian.Uint16(p[10:12]),
			Left:   binary.BigEndian.Uint16(p[12:14]),
			Right:  binary.BigEndian.Uint16(p[14:16]),
		},
	}
	if g.SetKeyerState(writerID, me, k, st) {
		pending.Add(event.USK)
	}
}

// applyKeyerDVE parses the inbound KeDV frame, which — unlike the
// outbound CKDV/CKFP commands — carries no field mask: the switcher
// always reports all five DVE fields together at me@0, keyer@1,
// size_x@[4:8], size_y@[8:12], pos_x@[12:16], pos_y@[16:20],
// rotation@[20:24].
func applyKeyerDVE(writerID uint16, in Inbound, g *state.Guard, pending *event.Set) {
	p := in.Payload
	if len(p) < 24 {
		return
	}
	me, k := int(p[0]), int(p[1])
	dve := state.KeyerDVE{
		SizeX:    int32(binary.BigEndian.Uint32(p[4:8])),
		SizeY:    int32(binary.BigEndian.Uint32(p[8:12])),
		PosX:     int32(binary.BigEndian.Uint32(p[12:16])),
		PosY:     int32(binary.BigEndian.Uint32(p[16:20])),
		Rotation: int32(binary.BigEndian.Uint32(p[20:24])),
	}
	const allFields = 1<<0 | 1<<1 | 1<<2 | 1<<3 | 1<<4
	if g.SetKeyerDVEMasked(writerID, me, k, allFields, dve) {
		pending.Add(event.USKDVE)
	}
}

func applyKeyerAtKeyFrame(writerID uint16, in Inbound, g *state.Guard, pending *event.Set) {
	p := in.Payload
	if len(p) < 3 {
		return
	}
	me, k := int(p[0]), int(p[1])
	if g.SetKeyerAtKeyFrame(writerID, me, k, p[2]) {
		pending.Add(event.USKDVE)
	}
}

func applyDskState(writerID uint16, in Inbound, g *state.Guard, pending *event.Set) {
	p := in.Payload
	if len(p) < 3 {
		return
	}
	k := int(p[0])
	st := state.DskState{
		OnAir:               p[1] != 0,
		InTransition:        p[2]&0x01 != 0,
		IsAutoTransitioning: p[2]&0x02 != 0,
	}
	if g.SetDskState(writerID, k, st) {
		pending.Add(event.Dsk)
	}
}

func applyDskSource(writerID uint16, in Inbound, g *state.Guard, pending *event.Set) {
	p := in.Payload
	if len(p) < 6 {
		return
	}
	k := int(p[0])
	src := state.DskSource{
		Fill: state.Source(binary.BigEndian.Uint16(p[2:4])),
		Key:  state.Source(binary.BigEndian.Uint16(p[4:6])),
	}
	if g.SetDskSource(writerID, k, src) {
		pending.Add(event.Dsk)
	}
}

func applyDskTie(writerID uint16, in Inbound, g *state.Guard, pending *event.Set) {
	p := in.Payload
	if len(p) < 2 {
		return
	}
	k := int(p[0])
	if g.SetDskTie(writerID, k, p[1] != 0) {
		pending.Add(event.Dsk)
	}
}

func applyAux(writerID uint16, in Inbound, g *state.Guard, pending *event.Set) {
	p := in.Payload
	if len(p) < 4 {
		return
	}
	channel := p[0]
	src := state.Source(binary.BigEndian.Uint16(p[2:4]))
	if g.SetAux(writerID, channel, src) {
		pending.Add(event.Aux)
	}
}

func applyMediaplayerSource(writerID uint16, in Inbound, g *state.Guard, pending *event.Set) {
	p := in.Payload
	if len(p) < 5 {
		return
	}
	mp := int(p[0])
	src := state.MediaplayerSource{
		Type:       state.MediaplayerSourceType(p[1]),
		StillIndex: p[2],
		ClipIndex:  p[3],
	}
	if g.SetMediaplayerSource(writerID, mp, src) {
		pending.Add(event.MediaPlayer)
	}
}

func applyMediapoolFrame(writerID uint16, in Inbound, g *state.Guard, pending *event.Set) {
	p := in.Payload
	if len(p) < 3+64 {
		return
	}
	index := binary.BigEndian.Uint16(p[0:2])
	isUsed := p[2] != 0
	frame := state.MediapoolFrame{FileName: trimTrailingZero(p[3 : 3+64])}
	if g.SetMediapoolFrame(writerID, index, frame, isUsed) {
		pending.Add(event.MediaPool)
	}
}

func applyStreamState(writerID uint16, in Inbound, g *state.Guard, pending *event.Set) {
	p := in.Payload
	if len(p) < 1 {
		return
	}
	if g.SetStreamState(writerID, state.StreamState(p[0])) {
		pending.Add(event.Stream)
	}
}

// trimTrailingZero returns b as a string, truncated at the first NUL
// byte — the switcher pads fixed-width name/path fields with zeros.
func trimTrailingZero(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}
