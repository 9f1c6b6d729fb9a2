package state

// Source identifies a video source: a camera, color generator, mediaplayer
// output, mix-effect program/preview output, and so on.
type Source uint16

// Version is the switcher's protocol version, (major, minor).
type Version struct {
	Major, Minor uint16
}

// AtMost reports whether v <= other, compared first by Major then Minor.
// Used by outbound commands to pick a version-dependent wire layout.
func (v Version) AtMost(other Version) bool {
	if v.Major != other.Major {
		return v.Major < other.Major
	}
	return v.Minor <= other.Minor
}

// Topology carries the per-model entity counts advertised by the switcher
// at boot.
type Topology struct {
	MixEffects      uint8
	Sources         uint8
	DownstreamKeyers uint8
	AuxOutputs      uint8
	MixMinusOutputs uint8
	Mediaplayers    uint8
	Multiviewers    uint8
	RS485Ports      uint8
	Hyperdecks      uint8
	DVEs            uint8
	Stingers        uint8
	Supersources    uint8
	TalkbackChannels uint8
	CameraControlChannels uint8
}

// MediaplayerCapacity bounds how many stills/clips the mediaplayer subsystem
// can hold.
type MediaplayerCapacity struct {
	Stills uint8
	Clips  uint8
}

// InputProperties names a source for display purposes.
type InputProperties struct {
	LongName  string // <= 20 bytes
	ShortName string // <= 4 bytes
}

// TransitionPosition is a mix-effect's current position in an in-progress
// manual transition.
type TransitionPosition struct {
	InTransition bool
	Position     uint16 // 0..10000
}

// TransitionStyle enumerates the available transition effects.
type TransitionStyle uint8

const (
	TransitionMix TransitionStyle = iota
	TransitionDip
	TransitionWipe
)

// TransitionState is a mix-effect's configured transition style and which
// upstream keyers participate in the next transition (bitmap).
type TransitionState struct {
	Style TransitionStyle
	Next  uint16
}

// FadeToBlack is a mix-effect's fade-to-black status.
type FadeToBlack struct {
	FullyBlack   bool
	InTransition bool
}

// KeyerType enumerates upstream keyer compositing modes.
type KeyerType uint8

const (
	KeyerLuma KeyerType = iota
	KeyerChroma
	KeyerPattern
	KeyerDVEType
)

// KeyerMask is an upstream keyer's edge-crop mask.
type KeyerMask struct {
	Top, Bottom, Left, Right uint16
}

// KeyerState is an upstream keyer's type, sources, and crop mask.
type KeyerState struct {
	Type KeyerType
	Fill Source
	Key  Source
	Mask KeyerMask
}

// KeyerDVE is an upstream keyer's DVE (geometric transform) properties.
// Only the fields a given write's mask selected are meaningful to that
// write; a merge against the prior value fills in the rest.
type KeyerDVE struct {
	SizeX, SizeY int32
	PosX, PosY   int32
	Rotation     int32
}

// Keyframe identifies a DVE keyframe slot.
type Keyframe uint8

const (
	KeyframeA Keyframe = 1 + iota
	KeyframeB
	KeyframeFull
	KeyframeRunToInf
)

// DskState is a downstream keyer's on-air/transition status.
type DskState struct {
	OnAir               bool
	InTransition        bool
	IsAutoTransitioning bool
}

// DskSource is a downstream keyer's fill/key sources.
type DskSource struct {
	Fill Source
	Key  Source
}

// StreamState is the streaming subsystem's current state.
type StreamState uint8

const (
	StreamIdle StreamState = iota
	StreamStarting
	StreamStreaming
)

// MediaplayerSourceType distinguishes a mediaplayer's still/clip mode.
type MediaplayerSourceType uint8

const (
	MediaplayerStill MediaplayerSourceType = iota
	MediaplayerClip
)

// MediaplayerSource is a mediaplayer's currently selected still or clip.
type MediaplayerSource struct {
	Type       MediaplayerSourceType
	StillIndex uint8
	ClipIndex  uint8
}

// MediapoolFrame is a still image cached in the mediapool.
type MediapoolFrame struct {
	FileName string // <= 64 bytes
}
