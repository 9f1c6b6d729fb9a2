// Package state mirrors the switcher's observable state (spec §3.2, §4.5):
// a tree of freshness-tracked slots, guarded by a single lock, with typed
// getters that never mutate and reject stale writes.
package state

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

type mixEffect struct {
	program            Slot[Source]
	preview            Slot[Source]
	uskOnAir           Slot[uint16]
	transitionPosition Slot[TransitionPosition]
	transitionState    Slot[TransitionState]
	ftb                Slot[FadeToBlack]
	keyers             []*keyer
}

type keyer struct {
	state      Slot[KeyerState]
	dve        Slot[KeyerDVE]
	atKeyFrame Slot[uint8]
}

type dsk struct {
	state  Slot[DskState]
	source Slot[DskSource]
	tie    Slot[bool]
}

// Store holds every mirrored entity of §3.2, guarded by a single
// sync.RWMutex: the receive task takes the write side while applying a
// packet's commands, API callers take the read side to query.
type Store struct {
	mu     sync.RWMutex
	logger *zap.Logger

	topology            Slot[Topology]
	protocolVersion     Slot[Version]
	productID           Slot[string]
	mediaplayerCapacity Slot[MediaplayerCapacity]

	inputs map[uint16]*Slot[InputProperties]

	mixEffects []*mixEffect
	dsks       []*dsk
	aux        map[uint8]*Slot[Source]

	mediaplayerSources []*Slot[MediaplayerSource]
	mediapool          map[uint16]*Slot[MediapoolFrame]

	streamState Slot[StreamState]
}

// New returns an empty store. logger may be nil; debug-lock-check
// violations are silently swallowed in that case.
func New(logger *zap.Logger) *Store {
	return &Store{
		logger: logger,
		inputs: make(map[uint16]*Slot[InputProperties]),
		aux:    make(map[uint8]*Slot[Source]),
		mediapool: make(map[uint16]*Slot[MediapoolFrame]),
	}
}

// Clear resets every slot to invalid, as happens on every reconnect
// (spec §3.2 Lifecycle). Callers must hold the write lock.
func (s *Store) Clear() {
	s.topology.Reset()
	s.protocolVersion.Reset()
	s.productID.Reset()
	s.mediaplayerCapacity.Reset()
	s.inputs = make(map[uint16]*Slot[InputProperties])
	s.mixEffects = nil
	s.dsks = nil
	s.aux = make(map[uint8]*Slot[Source])
	s.mediaplayerSources = nil
	s.mediapool = make(map[uint16]*Slot[MediapoolFrame])
	s.streamState.Reset()
}

// Guard is a scoped acquisition of the store's lock (spec §6
// state_lock()). Every getter and, for a write guard, setter is a method
// on Guard: a Guard obtained from RLock only exposes a read-only surface
// in spirit, though Go's type system doesn't split the method set — write
// attempts through a read guard are rejected (the setter returns false),
// mirroring the debug lock-ownership assertion the source spec describes. Calling any
// method after Release is always rejected the same way: released guards
// never touch store state, satisfying the no-dereference-after-release
// testable property without needing to introspect which goroutine holds
// the mutex, which Go's sync.RWMutex does not expose.
type Guard struct {
	store    *Store
	write    bool
	released bool
}

// Lock acquires the store for exclusive (read+write) access.
func (s *Store) Lock() *Guard {
	s.mu.Lock()
	return &Guard{store: s, write: true}
}

// RLock acquires the store for read-only access.
func (s *Store) RLock() *Guard {
	s.mu.RLock()
	return &Guard{store: s}
}

// TryRLockTimeout attempts to acquire the store for read-only access,
// polling until budget elapses (spec §6's bounded state_lock() contract;
// §5 sets the budget at 150ms). Returns ok=false, and no Guard, if the
// budget runs out first.
func (s *Store) TryRLockTimeout(budget time.Duration) (*Guard, bool) {
	deadline := time.Now().Add(budget)
	for {
		if s.mu.TryRLock() {
			return &Guard{store: s}, true
		}
		if time.Now().After(deadline) {
			return nil, false
		}
		time.Sleep(time.Millisecond)
	}
}

// TryLockTimeout is TryRLockTimeout's write-side counterpart.
func (s *Store) TryLockTimeout(budget time.Duration) (*Guard, bool) {
	deadline := time.Now().Add(budget)
	for {
		if s.mu.TryLock() {
			return &Guard{store: s, write: true}, true
		}
		if time.Now().After(deadline) {
			return nil, false
		}
		time.Sleep(time.Millisecond)
	}
}

// Release returns the lock. It is safe, and a no-op, to call more than
// once.
func (g *Guard) Release() {
	if g.released {
		return
	}
	g.released = true
	if g.write {
		g.store.mu.Unlock()
	} else {
		g.store.mu.RUnlock()
	}
}

// alive reports whether g may still touch store state, logging if not.
func (g *Guard) alive() bool {
	if g == nil || g.released {
		if g != nil && g.store != nil && g.store.logger != nil {
			g.store.logger.Warn("state: getter called on a released guard")
		}
		return false
	}
	return true
}

func getSlot[T any](g *Guard, s *Slot[T]) (T, bool) {
	var zero T
	if !g.alive() {
		return zero, false
	}
	return s.Get()
}

func setSlot[T any](g *Guard, s *Slot[T], writerID uint16, v T) bool {
	if !g.alive() || !g.write {
		return false
	}
	return s.Set(writerID, v)
}

// --- Topology, version, product, mediaplayer capacity ---

func (g *Guard) Topology() (Topology, bool) { return getSlot(g, &g.store.topology) }

// SetTopology applies t and, if it's a genuine change in mix-effect count,
// grows the mix-effect slice to match (lazily — keyer counts per ME are
// filled in later by SetKeyerCount, per Open Question 3).
func (g *Guard) SetTopology(writerID uint16, t Topology) bool {
	if !setSlot(g, &g.store.topology, writerID, t) {
		return false
	}
	for len(g.store.mixEffects) < int(t.MixEffects) {
		g.store.mixEffects = append(g.store.mixEffects, &mixEffect{})
	}
	for len(g.store.dsks) < int(t.DownstreamKeyers) {
		g.store.dsks = append(g.store.dsks, &dsk{})
	}
	for len(g.store.mediaplayerSources) < int(t.Mediaplayers) {
		g.store.mediaplayerSources = append(g.store.mediaplayerSources, &Slot[MediaplayerSource]{})
	}
	return true
}

func (g *Guard) ProtocolVersion() (Version, bool) { return getSlot(g, &g.store.protocolVersion) }
func (g *Guard) SetProtocolVersion(writerID uint16, v Version) bool {
	return setSlot(g, &g.store.protocolVersion, writerID, v)
}

func (g *Guard) ProductID() (string, bool) { return getSlot(g, &g.store.productID) }
func (g *Guard) SetProductID(writerID uint16, name string) bool {
	return setSlot(g, &g.store.productID, writerID, name)
}

func (g *Guard) MediaplayerCapacity() (MediaplayerCapacity, bool) {
	return getSlot(g, &g.store.mediaplayerCapacity)
}
func (g *Guard) SetMediaplayerCapacity(writerID uint16, c MediaplayerCapacity) bool {
	return setSlot(g, &g.store.mediaplayerCapacity, writerID, c)
}

// --- Per-input properties ---

func (g *Guard) Input(source uint16) (InputProperties, bool) {
	if !g.alive() {
		return InputProperties{}, false
	}
	slot, ok := g.store.inputs[source]
	if !ok {
		return InputProperties{}, false
	}
	return slot.Get()
}

func (g *Guard) SetInput(writerID uint16, source uint16, props InputProperties) bool {
	if !g.alive() || !g.write {
		return false
	}
	slot, ok := g.store.inputs[source]
	if !ok {
		slot = &Slot[InputProperties]{}
		g.store.inputs[source] = slot
	}
	return slot.Set(writerID, props)
}

// --- Mix-effect scoped fields ---

func (g *Guard) mixEffectAt(me int) (*mixEffect, bool) {
	if me < 0 || me >= len(g.store.mixEffects) {
		return nil, false
	}
	return g.store.mixEffects[me], true
}

func (g *Guard) Program(me int) (Source, bool) {
	if !g.alive() {
		return 0, false
	}
	m, ok := g.mixEffectAt(me)
	if !ok {
		return 0, false
	}
	return m.program.Get()
}

func (g *Guard) SetProgram(writerID uint16, me int, src Source) bool {
	if !g.alive() || !g.write {
		return false
	}
	m, ok := g.mixEffectAt(me)
	if !ok {
		return false
	}
	return m.program.Set(writerID, src)
}

func (g *Guard) Preview(me int) (Source, bool) {
	if !g.alive() {
		return 0, false
	}
	m, ok := g.mixEffectAt(me)
	if !ok {
		return 0, false
	}
	return m.preview.Get()
}

func (g *Guard) SetPreview(writerID uint16, me int, src Source) bool {
	if !g.alive() || !g.write {
		return false
	}
	m, ok := g.mixEffectAt(me)
	if !ok {
		return false
	}
	return m.preview.Set(writerID, src)
}

func (g *Guard) USKOnAir(me int) (uint16, bool) {
	if !g.alive() {
		return 0, false
	}
	m, ok := g.mixEffectAt(me)
	if !ok {
		return 0, false
	}
	return m.uskOnAir.Get()
}

func (g *Guard) SetUSKOnAir(writerID uint16, me int, mask uint16) bool {
	if !g.alive() || !g.write {
		return false
	}
	m, ok := g.mixEffectAt(me)
	if !ok {
		return false
	}
	return m.uskOnAir.Set(writerID, mask)
}

func (g *Guard) TransitionPosition(me int) (TransitionPosition, bool) {
	if !g.alive() {
		return TransitionPosition{}, false
	}
	m, ok := g.mixEffectAt(me)
	if !ok {
		return TransitionPosition{}, false
	}
	return m.transitionPosition.Get()
}

func (g *Guard) SetTransitionPosition(writerID uint16, me int, p TransitionPosition) bool {
	if !g.alive() || !g.write {
		return false
	}
	m, ok := g.mixEffectAt(me)
	if !ok {
		return false
	}
	return m.transitionPosition.Set(writerID, p)
}

func (g *Guard) TransitionState(me int) (TransitionState, bool) {
	if !g.alive() {
		return TransitionState{}, false
	}
	m, ok := g.mixEffectAt(me)
	if !ok {
		return TransitionState{}, false
	}
	return m.transitionState.Get()
}

func (g *Guard) SetTransitionState(writerID uint16, me int, st TransitionState) bool {
	if !g.alive() || !g.write {
		return false
	}
	m, ok := g.mixEffectAt(me)
	if !ok {
		return false
	}
	return m.transitionState.Set(writerID, st)
}

func (g *Guard) FTB(me int) (FadeToBlack, bool) {
	if !g.alive() {
		return FadeToBlack{}, false
	}
	m, ok := g.mixEffectAt(me)
	if !ok {
		return FadeToBlack{}, false
	}
	return m.ftb.Get()
}

func (g *Guard) SetFTB(writerID uint16, me int, f FadeToBlack) bool {
	if !g.alive() || !g.write {
		return false
	}
	m, ok := g.mixEffectAt(me)
	if !ok {
		return false
	}
	return m.ftb.Set(writerID, f)
}

// SetKeyerCount grows (never shrinks) me's keyer slice to count entries,
// as a MixEffectConfig command arrives — which may happen before or after
// Topology is known (Open Question 3).
func (g *Guard) SetKeyerCount(me int, count int) bool {
	if !g.alive() || !g.write {
		return false
	}
	for len(g.store.mixEffects) <= me {
		g.store.mixEffects = append(g.store.mixEffects, &mixEffect{})
	}
	m := g.store.mixEffects[me]
	for len(m.keyers) < count {
		m.keyers = append(m.keyers, &keyer{})
	}
	return true
}

func (g *Guard) keyerAt(me, k int) (*keyer, bool) {
	m, ok := g.mixEffectAt(me)
	if !ok || k < 0 || k >= len(m.keyers) {
		return nil, false
	}
	return m.keyers[k], true
}

func (g *Guard) KeyerState(me, k int) (KeyerState, bool) {
	if !g.alive() {
		return KeyerState{}, false
	}
	ky, ok := g.keyerAt(me, k)
	if !ok {
		return KeyerState{}, false
	}
	return ky.state.Get()
}

func (g *Guard) SetKeyerState(writerID uint16, me, k int, st KeyerState) bool {
	if !g.alive() || !g.write {
		return false
	}
	ky, ok := g.keyerAt(me, k)
	if !ok {
		return false
	}
	return ky.state.Set(writerID, st)
}

func (g *Guard) KeyerDVE(me, k int) (KeyerDVE, bool) {
	if !g.alive() {
		return KeyerDVE{}, false
	}
	ky, ok := g.keyerAt(me, k)
	if !ok {
		return KeyerDVE{}, false
	}
	return ky.dve.Get()
}

// SetKeyerDVEMasked merges only the fields selected by mask into the
// keyer's DVE slot, preserving the rest of the existing value (spec
// §4.2's DVE field mask). Ordinal bits: SIZE_X=0, SIZE_Y=1, POS_X=2,
// POS_Y=3, ROTATION=4.
func (g *Guard) SetKeyerDVEMasked(writerID uint16, me, k int, mask uint32, v KeyerDVE) bool {
	if !g.alive() || !g.write {
		return false
	}
	ky, ok := g.keyerAt(me, k)
	if !ok {
		return false
	}
	if !ky.dve.IsNewer(writerID) {
		return false
	}
	merged, _ := ky.dve.Get()
	if mask&(1<<0) != 0 {
		merged.SizeX = v.SizeX
	}
	if mask&(1<<1) != 0 {
		merged.SizeY = v.SizeY
	}
	if mask&(1<<2) != 0 {
		merged.PosX = v.PosX
	}
	if mask&(1<<3) != 0 {
		merged.PosY = v.PosY
	}
	if mask&(1<<4) != 0 {
		merged.Rotation = v.Rotation
	}
	return ky.dve.Set(writerID, merged)
}

func (g *Guard) KeyerAtKeyFrame(me, k int) (uint8, bool) {
	if !g.alive() {
		return 0, false
	}
	ky, ok := g.keyerAt(me, k)
	if !ok {
		return 0, false
	}
	return ky.atKeyFrame.Get()
}

func (g *Guard) SetKeyerAtKeyFrame(writerID uint16, me, k int, v uint8) bool {
	if !g.alive() || !g.write {
		return false
	}
	ky, ok := g.keyerAt(me, k)
	if !ok {
		return false
	}
	return ky.atKeyFrame.Set(writerID, v)
}

// --- Downstream keyers ---

func (g *Guard) dskAt(k int) (*dsk, bool) {
	if k < 0 || k >= len(g.store.dsks) {
		return nil, false
	}
	return g.store.dsks[k], true
}

func (g *Guard) DskState(k int) (DskState, bool) {
	if !g.alive() {
		return DskState{}, false
	}
	d, ok := g.dskAt(k)
	if !ok {
		return DskState{}, false
	}
	return d.state.Get()
}

func (g *Guard) SetDskState(writerID uint16, k int, st DskState) bool {
	if !g.alive() || !g.write {
		return false
	}
	d, ok := g.dskAt(k)
	if !ok {
		return false
	}
	return d.state.Set(writerID, st)
}

func (g *Guard) DskSource(k int) (DskSource, bool) {
	if !g.alive() {
		return DskSource{}, false
	}
	d, ok := g.dskAt(k)
	if !ok {
		return DskSource{}, false
	}
	return d.source.Get()
}

func (g *Guard) SetDskSource(writerID uint16, k int, src DskSource) bool {
	if !g.alive() || !g.write {
		return false
	}
	d, ok := g.dskAt(k)
	if !ok {
		return false
	}
	return d.source.Set(writerID, src)
}

func (g *Guard) DskTie(k int) (bool, bool) {
	if !g.alive() {
		return false, false
	}
	d, ok := g.dskAt(k)
	if !ok {
		return false, false
	}
	return d.tie.Get()
}

func (g *Guard) SetDskTie(writerID uint16, k int, tie bool) bool {
	if !g.alive() || !g.write {
		return false
	}
	d, ok := g.dskAt(k)
	if !ok {
		return false
	}
	return d.tie.Set(writerID, tie)
}

// --- Aux outputs ---

func (g *Guard) Aux(channel uint8) (Source, bool) {
	if !g.alive() {
		return 0, false
	}
	slot, ok := g.store.aux[channel]
	if !ok {
		return 0, false
	}
	return slot.Get()
}

func (g *Guard) SetAux(writerID uint16, channel uint8, src Source) bool {
	if !g.alive() || !g.write {
		return false
	}
	slot, ok := g.store.aux[channel]
	if !ok {
		slot = &Slot[Source]{}
		g.store.aux[channel] = slot
	}
	return slot.Set(writerID, src)
}

// --- Mediaplayers ---

func (g *Guard) MediaplayerSource(mp int) (MediaplayerSource, bool) {
	if !g.alive() {
		return MediaplayerSource{}, false
	}
	if mp < 0 || mp >= len(g.store.mediaplayerSources) {
		return MediaplayerSource{}, false
	}
	return g.store.mediaplayerSources[mp].Get()
}

func (g *Guard) SetMediaplayerSource(writerID uint16, mp int, v MediaplayerSource) bool {
	if !g.alive() || !g.write {
		return false
	}
	if mp < 0 {
		return false
	}
	for len(g.store.mediaplayerSources) <= mp {
		g.store.mediaplayerSources = append(g.store.mediaplayerSources, &Slot[MediaplayerSource]{})
	}
	return g.store.mediaplayerSources[mp].Set(writerID, v)
}

// --- Mediapool ---

func (g *Guard) MediapoolFrame(index uint16) (MediapoolFrame, bool) {
	if !g.alive() {
		return MediapoolFrame{}, false
	}
	slot, ok := g.store.mediapool[index]
	if !ok {
		return MediapoolFrame{}, false
	}
	return slot.Get()
}

// SetMediapoolFrame records frame, or evicts the slot entirely when
// isUsed is false (spec §3.2: "eviction when is_used=0").
func (g *Guard) SetMediapoolFrame(writerID uint16, index uint16, frame MediapoolFrame, isUsed bool) bool {
	if !g.alive() || !g.write {
		return false
	}
	if !isUsed {
		delete(g.store.mediapool, index)
		return true
	}
	slot, ok := g.store.mediapool[index]
	if !ok {
		slot = &Slot[MediapoolFrame]{}
		g.store.mediapool[index] = slot
	}
	return slot.Set(writerID, frame)
}

// --- Stream ---

func (g *Guard) StreamState() (StreamState, bool) { return getSlot(g, &g.store.streamState) }
func (g *Guard) SetStreamState(writerID uint16, st StreamState) bool {
	return setSlot(g, &g.store.streamState, writerID, st)
}

// SizeInBytes is a rough diagnostic estimate of the store's memory
// footprint (spec §6). It is not used for any control-flow decision.
func (s *Store) SizeInBytes() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := len(s.mixEffects) * 128
	for _, m := range s.mixEffects {
		n += len(m.keyers) * 96
	}
	n += len(s.dsks) * 64
	n += len(s.aux) * 16
	n += len(s.inputs) * 32
	n += len(s.mediapool) * 80
	n += len(s.mediaplayerSources) * 16
	return n
}
