package gc

import "github.com/bnclabs/stmgc/api"

// Globalrevision is the revision of an object freshly promoted to
// GLOBAL, before the STM layer commits a new value into it.
const Globalrevision = uint64(1)

// revision word of a header is a tagged union, the active member is
// implied by the object's status and location.
type revisionkind byte

const (
	revstm      revisionkind = iota + 1 // GLOBAL object, owned by STM layer
	revoriginal                         // LOCAL_COPY, GLOBAL original
	revforward                          // VISITED nursery object, new address
	revnextold                          // old LOCAL object, next in chain
)

func (kind revisionkind) String() string {
	switch kind {
	case revstm:
		return "stm"
	case revoriginal:
		return "original"
	case revforward:
		return "forward"
	case revnextold:
		return "nextold"
	}
	return "unknown"
}

func (gc *GC) header(obj api.Ref) (uint32, api.Gcflags) {
	return api.Unpackheader(*gc.space.Word(obj))
}

// Flags return the collector flags of object.
func (gc *GC) Flags(obj api.Ref) api.Gcflags {
	_, flags := api.Unpackheader(*gc.space.Word(obj))
	return flags
}

func (gc *GC) setflags(obj api.Ref, flags api.Gcflags) {
	if checkinvariants && flags.Isglobal() && flags.Islocalcopy() {
		fatalerror("object %x both GLOBAL and LOCAL_COPY", uint64(obj))
	}
	word := gc.space.Word(obj)
	typeid, _ := api.Unpackheader(*word)
	*word = api.Packheader(typeid, flags)
}

func (gc *GC) setheader(obj api.Ref, typeid uint32, flags api.Gcflags) {
	*gc.space.Word(obj) = api.Packheader(typeid, flags)
}

func (gc *GC) revision(obj api.Ref) *uint64 {
	return gc.space.Word(obj.Add(api.Revisionoffset))
}

// revisionkind as seen by thread t, t may be nil when the object is known
// not to be in any nursery.
func (gc *GC) revisionkind(t *TLS, obj api.Ref) revisionkind {
	flags := gc.Flags(obj)
	switch {
	case flags.Isglobal():
		return revstm
	case flags.Islocalcopy():
		return revoriginal
	case t != nil && t.nursery.Contains(obj):
		if flags.Isvisited() {
			return revforward
		}
		return 0
	}
	return revnextold
}

func (gc *GC) assertrevision(t *TLS, obj api.Ref, want revisionkind) {
	if kind := gc.revisionkind(t, obj); kind != want {
		fatalerror("revision of %x read as %v, is %v", uint64(obj), want, kind)
	}
}

// Stmrevision return the revision of a GLOBAL object.
func (gc *GC) Stmrevision(obj api.Ref) uint64 {
	if checkinvariants {
		gc.assertrevision(nil, obj, revstm)
	}
	return *gc.revision(obj)
}

// Setstmrevision update the revision of a GLOBAL object.
func (gc *GC) Setstmrevision(obj api.Ref, rev uint64) {
	if checkinvariants {
		gc.assertrevision(nil, obj, revstm)
	}
	*gc.revision(obj) = rev
}

// Original return the GLOBAL object a LOCAL_COPY was duplicated from.
func (gc *GC) Original(obj api.Ref) api.Ref {
	if checkinvariants {
		gc.assertrevision(nil, obj, revoriginal)
	}
	return api.Ref(*gc.revision(obj))
}

func (gc *GC) setoriginal(obj, original api.Ref) {
	if checkinvariants {
		gc.assertrevision(nil, obj, revoriginal)
	}
	*gc.revision(obj) = uint64(original)
}

func (t *TLS) forwarded(obj api.Ref) api.Ref {
	if checkinvariants {
		t.gc.assertrevision(t, obj, revforward)
	}
	return api.Ref(*t.gc.revision(obj))
}

func (t *TLS) setforwarded(obj, to api.Ref) {
	if checkinvariants {
		t.gc.assertrevision(t, obj, revforward)
	}
	*t.gc.revision(obj) = uint64(to)
}

func (t *TLS) nextold(obj api.Ref) api.Ref {
	if checkinvariants {
		t.gc.assertrevision(t, obj, revnextold)
	}
	return api.Ref(*t.gc.revision(obj))
}

func (t *TLS) setnextold(obj, next api.Ref) {
	if checkinvariants {
		t.gc.assertrevision(t, obj, revnextold)
	}
	*t.gc.revision(obj) = uint64(next)
}

// Sizeof object in bytes as allocated, including trailing hash field.
func (gc *GC) Sizeof(obj api.Ref) int64 {
	size := api.Roundup(gc.ts.Sizeof(gc, obj))
	if size < api.Headersize {
		size = api.Headersize
	}
	if gc.Flags(obj).Ishashfield() {
		size += api.Wordsize
	}
	return size
}

// hashword of an object carrying HASH_FIELD, placed right after the
// object's payload.
func (gc *GC) hashword(obj api.Ref) *uint64 {
	return gc.space.Word(obj.Add(gc.Sizeof(obj) - api.Wordsize))
}
