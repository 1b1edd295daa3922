package malloc

import "testing"

func TestArena(t *testing.T) {
	space := NewSpace(8192, Maxspan)
	arena, err := NewArena(space, 1024)
	if err != nil {
		t.Fatal(err)
	}
	a, ok := arena.Bump(16)
	if !ok || a != arena.Start() {
		t.Fatalf("unexpected %x %v", uint64(a), ok)
	} else if !arena.Contains(a) {
		t.Errorf("expected arena to contain %x", uint64(a))
	}
	b, ok := arena.Bump(20) // rounded up to 24
	if !ok || b != a.Add(16) {
		t.Fatalf("unexpected %x %v", uint64(b), ok)
	} else if x := arena.Used(); x != 40 {
		t.Errorf("expected %v, got %v", 40, x)
	} else if arena.Free() != a.Add(40) {
		t.Errorf("unexpected free %x", uint64(arena.Free()))
	}
	if _, ok := arena.Bump(1024); ok {
		t.Errorf("expected arena to refuse")
	} else if _, ok := arena.Bump(0); ok {
		t.Errorf("expected arena to refuse")
	}
	if arena.Contains(arena.Start().Add(1024)) {
		t.Errorf("stop is not part of arena")
	}

	*space.Word(b) = 0xff
	arena.Disable()
	if _, ok := arena.Bump(8); ok {
		t.Errorf("expected disabled arena to refuse")
	} else if !arena.Isdisabled() {
		t.Errorf("expected disabled")
	}
	arena.Reset()
	if !arena.Isempty() || arena.Isdisabled() {
		t.Errorf("expected empty enabled arena")
	} else if x := *space.Word(b); x != 0 {
		t.Errorf("expected zero, got %x", x)
	}
	// fill exactly.
	for i := 0; i < 1024/16; i++ {
		if _, ok := arena.Bump(16); !ok {
			t.Fatalf("bump %v failed", i)
		}
	}
	if _, ok := arena.Bump(8); ok {
		t.Errorf("expected full arena to refuse")
	}
	arena.Release()
	if space.Isvalid(a) {
		t.Errorf("expected invalid address after release")
	}
}
