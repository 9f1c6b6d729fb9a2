package command

import (
	"encoding/binary"

	"github.com/torresjeff/atem/state"
)

// This file builds the outbound commands enumerated in spec §4.2. Each
// constructor returns an Outbound whose Prepare hook is evaluated against
// the switcher's current protocol version immediately before
// serialization, per the design notes' "virtual command hierarchy ->
// tagged variant" guidance.

func fixed(tag string, payload []byte) Outbound {
	return Outbound{Tag: Tag4(tag), Prepare: func(state.Version) []byte { return payload }}
}

func be16(v uint16) []byte {
	b := make([]byte, 2)
	binary.BigEndian.PutUint16(b, v)
	return b
}

// Auto triggers an automatic transition on a mix-effect.
func Auto(me uint8) Outbound { return fixed("DAut", []byte{me}) }

// Cut performs an instant cut transition on a mix-effect.
func Cut(me uint8) Outbound { return fixed("DCut", []byte{me}) }

// FadeToBlack triggers the fade-to-black transition on a mix-effect.
func FadeToBlack(me uint8) Outbound { return fixed("FtbA", []byte{me}) }

// SetProgram assigns the program source of a mix-effect.
func SetProgram(me uint8, source uint16) Outbound {
	return fixed("CPgI", append([]byte{me, 0}, be16(source)...))
}

// SetPreview assigns the preview source of a mix-effect.
func SetPreview(me uint8, source uint16) Outbound {
	return fixed("CPvI", append([]byte{me, 0}, be16(source)...))
}

// SetAux assigns the source routed to an aux output channel.
func SetAux(channel uint8, source uint16) Outbound {
	return fixed("CAuS", append([]byte{1, channel}, be16(source)...))
}

// SetTransitionPosition moves a mix-effect's in-progress transition to a
// specific position, 0..10000.
func SetTransitionPosition(me uint8, position uint16) Outbound {
	return fixed("CTPs", append([]byte{me, 0}, be16(position)...))
}

// SetTransitionState configures a mix-effect's transition style and/or
// which upstream keyers participate in the next transition.
func SetTransitionState(me uint8, style *state.TransitionStyle, next *uint16) Outbound {
	var mask, styleByte, nextByte uint8
	if style != nil {
		mask |= 1 << 0
		styleByte = uint8(*style)
	}
	if next != nil {
		mask |= 1 << 1
		nextByte = uint8(*next)
	}
	return fixed("CTTp", []byte{mask, me, styleByte, nextByte})
}

// SetKeyerFill assigns an upstream keyer's fill source.
func SetKeyerFill(me, keyer uint8, source uint16) Outbound {
	return fixed("CKeF", append([]byte{me, keyer}, be16(source)...))
}

// SetKeyerKey assigns an upstream keyer's key source. The switcher rejects
// this unless the keyer's type is LUMA.
func SetKeyerKey(me, keyer uint8, source uint16) Outbound {
	return fixed("CKeC", append([]byte{me, keyer}, be16(source)...))
}

// SetKeyerType configures an upstream keyer's compositing type and flying
// key flag.
func SetKeyerType(me, keyer uint8, keyerType *state.KeyerType, flying *bool) Outbound {
	var mask, typeByte, flyingByte uint8
	if keyerType != nil {
		mask |= 1 << 0
		typeByte = uint8(*keyerType)
	}
	if flying != nil {
		mask |= 1 << 1
		if *flying {
			flyingByte = 1
		}
	}
	return fixed("CKTp", []byte{mask, me, keyer, typeByte, flyingByte})
}

// SetKeyerOnAir turns an upstream keyer on or off air.
func SetKeyerOnAir(me, keyer uint8, enabled bool) Outbound {
	var e uint8
	if enabled {
		e = 1
	}
	return fixed("CKOn", []byte{me, keyer, e})
}

// SetDskFill assigns a downstream keyer's fill source.
func SetDskFill(dsk uint8, source uint16) Outbound {
	return fixed("CDsF", append([]byte{dsk, 0}, be16(source)...))
}

// SetDskKey assigns a downstream keyer's key source.
func SetDskKey(dsk uint8, source uint16) Outbound {
	return fixed("CDsC", append([]byte{dsk, 0}, be16(source)...))
}

// SetDskOnAir turns a downstream keyer on or off air.
func SetDskOnAir(dsk uint8, enabled bool) Outbound {
	var e uint8
	if enabled {
		e = 1
	}
	return fixed("CDsL", []byte{dsk, e})
}

// SetDskTie sets whether a downstream keyer is tied to the next
// transition.
func SetDskTie(dsk uint8, tie bool) Outbound {
	var t uint8
	if tie {
		t = 1
	}
	return fixed("CDsT", []byte{dsk, t})
}

// dskAutoTransitionVersionSplit is the firmware version at and below which
// the DSK auto-transition command places the keyer index at payload
// offset 0; firmware newer than this places it at offset 1 instead (spec
// §4.2's normative version-variant example, tested by Testable Property
// 7).
var dskAutoTransitionVersionSplit = state.Version{Major: 2, Minor: 27}

// DskAuto triggers a downstream keyer's auto transition. Its wire layout
// depends on the switcher's protocol version.
func DskAuto(dsk uint8) Outbound {
	return Outbound{
		Tag: Tag4("DDsA"),
		Prepare: func(v state.Version) []byte {
			if v.AtMost(dskAutoTransitionVersionSplit) {
				return []byte{dsk}
			}
			return []byte{0, dsk}
		},
	}
}

// dveFieldPayload lays out the shared body of CKDV/CKFP: me/keyer at
// offsets 0,1, the u32 mask at offset 4, then the five ordinal-ordered
// u32 fields at offsets 16..36, each left zero unless its Has* flag is
// set (spec §4.2, reconciled per
// Testable Property 6 — the table's "{me, keyer} at offsets 16,17" does
// not typecheck against the same table's SIZE_X/ROTATION offsets and is
// treated as a table error; me/keyer are placed at 0,1 like every other
// per-ME-per-keyer command instead, and the mask is shifted to offset 4
// to keep the field block starting at the byte-16 boundary Property 6
// pins down).
func dveFieldPayload(me, keyer uint8, f DVEFields) []byte {
	payload := make([]byte, 36)
	payload[0] = me
	payload[1] = keyer
	binary.BigEndian.PutUint32(payload[4:8], f.Mask())
	if f.HasSizeX {
		binary.BigEndian.PutUint32(payload[16:20], uint32(f.SizeX))
	}
	if f.HasSizeY {
		binary.BigEndian.PutUint32(payload[20:24], uint32(f.SizeY))
	}
	if f.HasPosX {
		binary.BigEndian.PutUint32(payload[24:28], uint32(f.PosX))
	}
	if f.HasPosY {
		binary.BigEndian.PutUint32(payload[28:32], uint32(f.PosY))
	}
	if f.HasRotation {
		binary.BigEndian.PutUint32(payload[32:36], uint32(f.Rotation))
	}
	return payload
}

// SetKeyerDVE changes an upstream keyer's DVE (size/position/rotation)
// properties. Only fields marked Has* in f are sent; the rest are left
// zero and excluded from the mask.
func SetKeyerDVE(me, keyer uint8, f DVEFields) Outbound {
	return fixed("CKDV", dveFieldPayload(me, keyer, f))
}

// SetKeyerDVEKeyframe changes an upstream keyer's DVE properties for a
// specific keyframe slot. The keyframe enum is appended after the fixed
// 36-byte DVE block (flagged alongside dveFieldPayload: the table's
// literal "offset 24" collides with POS_X and cannot be meant literally).
func SetKeyerDVEKeyframe(me, keyer uint8, kf state.Keyframe, f DVEFields) Outbound {
	payload := append(dveFieldPayload(me, keyer, f), uint8(kf))
	return fixed("CKFP", payload)
}

// RunToKeyframe drives an upstream keyer toward a keyframe (or the
// run-to-infinity index) over time.
func RunToKeyframe(me, keyer uint8, kf state.Keyframe, runToInfIndex uint8) Outbound {
	return fixed("RFlK", []byte{0, me, keyer, 0, uint8(kf), runToInfIndex})
}

// SetMediaplayerSource assigns a mediaplayer's still or clip source.
func SetMediaplayerSource(mp uint8, sourceType state.MediaplayerSourceType, still, clip uint8) Outbound {
	return fixed("MPSS", []byte{1, mp, uint8(sourceType), still, clip})
}

// SaveStartupState asks the switcher to persist its current state as the
// power-on default.
func SaveStartupState() Outbound { return fixed("SRsv", []byte{0, 0, 0, 0}) }

// SetStreaming starts or stops the streaming subsystem.
func SetStreaming(start bool) Outbound {
	var s uint8
	if start {
		s = 1
	}
	return fixed("StrR", []byte{s})
}

// CaptureStill captures the current program output to the still pool.
func CaptureStill() Outbound { return fixed("Capt", nil) }
