package seq

import "testing"

func TestSequenceWindowGapDetection(t *testing.T) {
	tr := New()

	if !tr.Add(1) {
		t.Fatal("Add(1) should not be a duplicate")
	}
	if !tr.Add(2) {
		t.Fatal("Add(2) should not be a duplicate")
	}
	if !tr.Add(4) {
		t.Fatal("Add(4) should not be a duplicate")
	}

	missing, ok := tr.Missing()
	if !ok || missing != 3 {
		t.Fatalf("Missing() = (%d, %v), want (3, true)", missing, ok)
	}

	if !tr.Add(3) {
		t.Fatal("Add(3) should not be a duplicate")
	}
	if _, ok := tr.Missing(); ok {
		t.Fatal("Missing() should report no gap once 3 is filled in")
	}

	if tr.Add(2) {
		t.Fatal("re-Add(2) should report a duplicate")
	}
}

func TestSequenceWindowWrapAround(t *testing.T) {
	tr := &Tracker{offset: 0x7FFE, bitmap: ^uint32(0)}

	if !tr.Add(0x7FFF) {
		t.Fatal("Add(0x7FFF) should not be a duplicate")
	}
	if !tr.Add(0) {
		t.Fatal("Add(0) should not be a duplicate")
	}
	if !tr.Add(1) {
		t.Fatal("Add(1) should not be a duplicate")
	}
	if _, ok := tr.Missing(); ok {
		t.Fatal("Missing() should report no gap after a clean wrap")
	}
}

func TestSequenceWindowInitialState(t *testing.T) {
	tr := New()
	if _, ok := tr.Missing(); ok {
		t.Fatal("a fresh tracker should report no gap before anything is added")
	}
}
