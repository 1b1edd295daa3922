package gc

import "github.com/bnclabs/stmgc/api"

const manglemul = uint64(0xff51afd7ed558ccd)

var unmanglemul = inversemul(manglemul)

// inversemul return the multiplicative inverse of odd x modulo 2^64.
func inversemul(x uint64) uint64 {
	inv := x // correct to 3 bits for any odd x
	for i := 0; i < 5; i++ {
		inv *= 2 - (x * inv)
	}
	return inv
}

// Mangle an address into an id. Mangling is a bijection so that ids are
// unique as long as addresses are.
func Mangle(ref api.Ref) int64 {
	x := uint64(ref)
	x ^= x >> 33
	x *= manglemul
	x ^= x >> 33
	return int64(x)
}

// Unmangle return the address an id was computed from.
func Unmangle(id int64) api.Ref {
	x := uint64(id)
	x ^= x >> 33
	x *= unmanglemul
	x ^= x >> 33
	return api.Ref(x)
}

// Idorhash return a value that stays constant for obj over its
// lifetime. With wanthash, objects carrying an explicit hash field
// return that hash, otherwise the value is unique among live objects.
// Local copies answer for their GLOBAL original.
func (t *TLS) Idorhash(obj api.Ref, wanthash bool) int64 {
	gc := t.gc
	flags := gc.Flags(obj)
	if flags.Islocalcopy() {
		obj = gc.Original(obj)
		flags = gc.Flags(obj)
	}

	if flags.Ishashfield() {
		if wanthash && (flags.Iswithhash() || flags.Isprebuilt()) {
			return int64(*gc.hashword(obj))
		}
		return Mangle(obj)
	} else if flags.Iswithhash() {
		if t.nursery.Contains(obj) {
			sh, ok := t.shadows[obj]
			if !ok {
				fatalerror("%v nursery object %x has no shadow", t.logprefix, uint64(obj))
			}
			return Mangle(sh.ref)
		}
		return Mangle(obj)
	}

	if t.nursery.Contains(obj) {
		sh := t.allocshadow(obj)
		gc.setflags(obj, flags.Setwithhash())
		return Mangle(sh.ref)
	}
	gc.setflags(obj, flags.Setwithhash())
	return Mangle(obj)
}

// allocshadow reserve the permanent home of a nursery object, the object
// moves into it at next local collection.
func (t *TLS) allocshadow(obj api.Ref) shadow {
	size := t.gc.Sizeof(obj)
	ref, err := t.alloc.Mallocobject(size)
	if err != nil {
		fatalerror("%v allocating shadow of %v bytes: %v", t.logprefix, size, err)
	}
	sh := shadow{ref: ref, size: size}
	t.shadows[obj] = sh
	t.nshadows++
	return sh
}
