package state

import (
	"testing"
	"time"
)

func TestModularFreshnessRejectsStaleWrite(t *testing.T) {
	s := New(nil)
	g := s.Lock()
	defer g.Release()

	if !g.SetTopology(1, Topology{MixEffects: 1}) {
		t.Fatal("first topology write should be accepted")
	}
	if !g.SetProgram(0x7FFF, 0, Source(5)) {
		t.Fatal("SetProgram(0x7FFF) should be accepted on an invalid slot")
	}

	if g.SetProgram(0x7FFE, 0, Source(9)) {
		t.Fatal("a write stamped 0x7FFE should be rejected after last=0x7FFF")
	}
	if src, ok := g.Program(0); !ok || src != 5 {
		t.Fatalf("stale write must not have applied, got (%v, %v)", src, ok)
	}

	if !g.SetProgram(1, 0, Source(9)) {
		t.Fatal("a write stamped 1 should be accepted after last=0x7FFF (modular wrap)")
	}
	if src, ok := g.Program(0); !ok || src != 9 {
		t.Fatalf("wrapped write should have applied, got (%v, %v)", src, ok)
	}
}

func TestLazyMixEffectAndKeyerResize(t *testing.T) {
	s := New(nil)
	g := s.Lock()
	defer g.Release()

	// _MeC can arrive before _top (Open Question 3): growing keyer count
	// for an ME index that doesn't exist yet must allocate the ME too.
	if !g.SetKeyerCount(2, 4) {
		t.Fatal("SetKeyerCount should succeed even without a prior SetTopology")
	}
	if _, ok := g.KeyerState(2, 3); ok {
		t.Fatal("a freshly allocated keyer slot should report invalid, not true")
	}

	if !g.SetTopology(1, Topology{MixEffects: 5}) {
		t.Fatal("SetTopology should succeed")
	}
	if _, ok := g.Program(4); ok {
		t.Fatal("program should be invalid until written, even after topology grows the slice")
	}
	if _, ok := g.Program(5); ok {
		t.Fatal("out-of-range ME index must report ok=false")
	}
}

func TestDVEFieldMaskMerge(t *testing.T) {
	s := New(nil)
	g := s.Lock()
	defer g.Release()
	g.SetTopology(1, Topology{MixEffects: 1})
	g.SetKeyerCount(0, 1)

	mask := uint32(1<<0 | 1<<4) // SIZE_X, ROTATION
	if !g.SetKeyerDVEMasked(2, 0, 0, mask, KeyerDVE{SizeX: 10, Rotation: 20}) {
		t.Fatal("masked DVE write should be accepted")
	}
	dve, ok := g.KeyerDVE(0, 0)
	if !ok {
		t.Fatal("DVE slot should be valid after a masked write")
	}
	if dve.SizeX != 10 || dve.Rotation != 20 || dve.SizeY != 0 || dve.PosX != 0 {
		t.Fatalf("unexpected merge result: %+v", dve)
	}

	// A later write touching only POS_X must preserve SizeX/Rotation.
	if !g.SetKeyerDVEMasked(3, 0, 0, 1<<2, KeyerDVE{PosX: 7}) {
		t.Fatal("second masked write should be accepted")
	}
	dve, _ = g.KeyerDVE(0, 0)
	if dve.SizeX != 10 || dve.Rotation != 20 || dve.PosX != 7 {
		t.Fatalf("merge should preserve earlier fields, got %+v", dve)
	}
}

func TestReleasedGuardRejectsReads(t *testing.T) {
	s := New(nil)
	g := s.Lock()
	g.SetTopology(1, Topology{MixEffects: 1})
	g.SetProgram(1, 0, Source(3))
	g.Release()

	if _, ok := g.Program(0); ok {
		t.Fatal("a getter called on a released guard must return ok=false")
	}
}

func TestMediapoolEviction(t *testing.T) {
	s := New(nil)
	g := s.Lock()
	defer g.Release()

	g.SetMediapoolFrame(1, 0, MediapoolFrame{FileName: "a.png"}, true)
	if _, ok := g.MediapoolFrame(0); !ok {
		t.Fatal("frame should be present after a used write")
	}
	g.SetMediapoolFrame(2, 0, MediapoolFrame{}, false)
	if _, ok := g.MediapoolFrame(0); ok {
		t.Fatal("frame should be evicted once is_used=0")
	}
}

func TestTryLockTimeoutFailsWhenContended(t *testing.T) {
	s := New(nil)
	held := s.Lock()
	defer held.Release()

	if _, ok := s.TryLockTimeout(20 * time.Millisecond); ok {
		t.Fatal("expected TryLockTimeout to time out while the write lock is held")
	}
	if _, ok := s.TryRLockTimeout(20 * time.Millisecond); ok {
		t.Fatal("expected TryRLockTimeout to time out while the write lock is held")
	}
}

func TestTryLockTimeoutSucceedsOnceReleased(t *testing.T) {
	s := New(nil)

	release := make(chan struct{})
	unlocked := make(chan struct{})
	go func() {
		g := s.Lock()
		<-release
		g.Release()
		close(unlocked)
	}()

	// Give the goroutine above a moment to actually take the lock before
	// racing TryLockTimeout against it.
	time.Sleep(10 * time.Millisecond)
	close(release)
	<-unlocked

	g, ok := s.TryLockTimeout(200 * time.Millisecond)
	if !ok {
		t.Fatal("expected TryLockTimeout to succeed once the writer released")
	}
	g.Release()
}
