package api

// Gcflags is the status bit-set carried in the low half of an object's
// first header word.
type Gcflags uint32

const (
	gcflagGlobal           = 0x1
	gcflagLocalcopy        = 0x2
	gcflagVisited          = 0x4
	gcflagNotwritten       = 0x8
	gcflagPossiblyoutdated = 0x10
	gcflagHashfield        = 0x20
	gcflagWithhash         = 0x40
	gcflagPrebuilt         = 0x80
	// page slot that is not holding an object, owned by malloc.
	gcflagFreeslot = 0x80000000
)

// Flags that stmduplicate clears and sets on a fresh LOCAL copy.
const (
	Duplicateclear = Gcflags(gcflagGlobal | gcflagPossiblyoutdated | gcflagPrebuilt)
	Duplicateset   = Gcflags(gcflagVisited | gcflagLocalcopy)
)

//---- GLOBAL

// Setglobal mark object as shared by all threads.
func (f Gcflags) Setglobal() Gcflags {
	return f | Gcflags(gcflagGlobal)
}

// Clearglobal mark object as thread private.
func (f Gcflags) Clearglobal() Gcflags {
	return f & (^Gcflags(gcflagGlobal))
}

// Isglobal object is shared and read-only for every thread.
func (f Gcflags) Isglobal() bool {
	return (f & gcflagGlobal) == Gcflags(gcflagGlobal)
}

//---- LOCAL_COPY

// Setlocalcopy object is the working copy of a GLOBAL original.
func (f Gcflags) Setlocalcopy() Gcflags {
	return f | Gcflags(gcflagLocalcopy)
}

// Clearlocalcopy flag.
func (f Gcflags) Clearlocalcopy() Gcflags {
	return f & (^Gcflags(gcflagLocalcopy))
}

// Islocalcopy object is the working copy of a GLOBAL original.
func (f Gcflags) Islocalcopy() bool {
	return (f & gcflagLocalcopy) == Gcflags(gcflagLocalcopy)
}

//---- VISITED

// Setvisited mark object as reached by the current collection.
func (f Gcflags) Setvisited() Gcflags {
	return f | Gcflags(gcflagVisited)
}

// Clearvisited flag.
func (f Gcflags) Clearvisited() Gcflags {
	return f & (^Gcflags(gcflagVisited))
}

// Isvisited object was reached by the current collection.
func (f Gcflags) Isvisited() bool {
	return (f & gcflagVisited) == Gcflags(gcflagVisited)
}

//---- NOT_WRITTEN

// Setnotwritten mark object as not written since promotion.
func (f Gcflags) Setnotwritten() Gcflags {
	return f | Gcflags(gcflagNotwritten)
}

// Clearnotwritten flag.
func (f Gcflags) Clearnotwritten() Gcflags {
	return f & (^Gcflags(gcflagNotwritten))
}

// Isnotwritten object was not written since promotion.
func (f Gcflags) Isnotwritten() bool {
	return (f & gcflagNotwritten) == Gcflags(gcflagNotwritten)
}

//---- POSSIBLY_OUTDATED

// Setpossiblyoutdated flag, used by the STM layer.
func (f Gcflags) Setpossiblyoutdated() Gcflags {
	return f | Gcflags(gcflagPossiblyoutdated)
}

// Clearpossiblyoutdated flag.
func (f Gcflags) Clearpossiblyoutdated() Gcflags {
	return f & (^Gcflags(gcflagPossiblyoutdated))
}

// Ispossiblyoutdated flag, used by the STM layer.
func (f Gcflags) Ispossiblyoutdated() bool {
	return (f & gcflagPossiblyoutdated) == Gcflags(gcflagPossiblyoutdated)
}

//---- HASH_FIELD

// Sethashfield object carries a trailing hash word.
func (f Gcflags) Sethashfield() Gcflags {
	return f | Gcflags(gcflagHashfield)
}

// Ishashfield object carries a trailing hash word.
func (f Gcflags) Ishashfield() bool {
	return (f & gcflagHashfield) == Gcflags(gcflagHashfield)
}

//---- WITH_HASH

// Setwithhash identity of this object was observed.
func (f Gcflags) Setwithhash() Gcflags {
	return f | Gcflags(gcflagWithhash)
}

// Iswithhash identity of this object was observed.
func (f Gcflags) Iswithhash() bool {
	return (f & gcflagWithhash) == Gcflags(gcflagWithhash)
}

//---- PREBUILT_ORIGINAL

// Setprebuilt object is statically allocated and is the source of truth
// for its hash.
func (f Gcflags) Setprebuilt() Gcflags {
	return f | Gcflags(gcflagPrebuilt)
}

// Isprebuilt object is statically allocated.
func (f Gcflags) Isprebuilt() bool {
	return (f & gcflagPrebuilt) == Gcflags(gcflagPrebuilt)
}

//---- FREE slot, private to allocators.

// Setfreeslot mark page slot as unallocated.
func (f Gcflags) Setfreeslot() Gcflags {
	return f | Gcflags(gcflagFreeslot)
}

// Isfreeslot page slot is unallocated.
func (f Gcflags) Isfreeslot() bool {
	return (f & gcflagFreeslot) == Gcflags(gcflagFreeslot)
}

// Islocal object is neither GLOBAL nor a free slot.
func (f Gcflags) Islocal() bool {
	return (f & (gcflagGlobal | gcflagFreeslot)) == 0
}
