package event

import "testing"

func TestCoalescingEmitsEachCategoryOnce(t *testing.T) {
	var got []Category
	d := &Dispatcher{}
	d.Subscribe(func(cat Category, packetID uint16) {
		got = append(got, cat)
	})

	var pending Set
	pending.Add(Source) // PrgI
	pending.Add(Source) // PrvI, same category again
	pending.Add(Aux)     // AuxS

	d.Flush(pending, 42)

	if len(got) != 2 {
		t.Fatalf("expected 2 distinct categories emitted, got %d: %v", len(got), got)
	}
	seen := map[Category]bool{}
	for _, c := range got {
		if seen[c] {
			t.Fatalf("category %v emitted more than once", c)
		}
		seen[c] = true
	}
	if !seen[Source] || !seen[Aux] {
		t.Fatalf("expected SOURCE and AUX, got %v", got)
	}
}

func TestFlushEmptyIsNoOp(t *testing.T) {
	called := false
	d := &Dispatcher{}
	d.Subscribe(func(Category, uint16) { called = true })
	d.Flush(0, 1)
	if called {
		t.Fatal("Flush with an empty set must not call any handler")
	}
}
