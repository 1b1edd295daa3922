package api

import "testing"

func TestGcflags(t *testing.T) {
	f := Gcflags(0)
	f = f.Setglobal().Setnotwritten().Sethashfield()
	if f.Isglobal() == false {
		t.Errorf("unexpected false")
	} else if f.Isnotwritten() == false {
		t.Errorf("unexpected false")
	} else if f.Ishashfield() == false {
		t.Errorf("unexpected false")
	} else if f.Iswithhash() == true {
		t.Errorf("unexpected true")
	} else if f.Clearglobal().Isglobal() == true {
		t.Errorf("unexpected true")
	} else if f.Clearnotwritten().Isnotwritten() == true {
		t.Errorf("unexpected true")
	} else if f.Islocal() == true {
		t.Errorf("unexpected true")
	} else if f.Clearglobal().Islocal() == false {
		t.Errorf("unexpected false")
	}

	f = Gcflags(0).Setvisited().Setlocalcopy()
	if f.Isvisited() == false || f.Islocalcopy() == false {
		t.Errorf("unexpected %x", f)
	} else if f.Clearvisited().Isvisited() == true {
		t.Errorf("unexpected true")
	} else if f.Clearlocalcopy().Islocalcopy() == true {
		t.Errorf("unexpected true")
	}

	f = Gcflags(0).Setfreeslot()
	if f.Isfreeslot() == false {
		t.Errorf("unexpected false")
	} else if f.Islocal() == true {
		t.Errorf("unexpected true")
	}
}

func TestDuplicateflags(t *testing.T) {
	f := Gcflags(0).Setglobal().Setpossiblyoutdated().Setprebuilt()
	f = f.Setwithhash().Sethashfield()
	f = (f &^ Duplicateclear) | Duplicateset
	if f.Isglobal() || f.Ispossiblyoutdated() || f.Isprebuilt() {
		t.Errorf("unexpected flags %x", f)
	} else if !f.Isvisited() || !f.Islocalcopy() {
		t.Errorf("unexpected flags %x", f)
	} else if !f.Iswithhash() || !f.Ishashfield() {
		t.Errorf("unexpected flags %x", f)
	}
}
