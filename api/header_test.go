package api

import "testing"

func TestPackheader(t *testing.T) {
	flags := Gcflags(0).Setglobal().Setwithhash()
	word := Packheader(0xdeadbeef, flags)
	typeid, fl := Unpackheader(word)
	if typeid != 0xdeadbeef {
		t.Errorf("expected %x, got %x", 0xdeadbeef, typeid)
	} else if fl != flags {
		t.Errorf("expected %x, got %x", flags, fl)
	}
}

func TestRoundup(t *testing.T) {
	testcases := [][2]int64{{0, 0}, {1, 8}, {8, 8}, {9, 16}, {17, 24}}
	for _, tcase := range testcases {
		if x := Roundup(tcase[0]); x != tcase[1] {
			t.Errorf("for %v expected %v, got %v", tcase[0], tcase[1], x)
		}
	}
	if x := Ref(100).Add(16); x != 116 {
		t.Errorf("expected %v, got %v", 116, x)
	}
}
