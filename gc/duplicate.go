package gc

import "github.com/bnclabs/stmgc/api"

// Stmduplicate make a LOCAL_COPY of a GLOBAL object in the thread-local
// allocator. The copy refers back to its original and stays VISITED, so
// that local collections neither move nor free it. Copies are freed at
// the start of the next transaction, after the STM layer committed them.
func (t *TLS) Stmduplicate(global api.Ref) api.Ref {
	gc := t.gc
	typeid, flags := gc.header(global)
	if checkinvariants && !flags.Isglobal() {
		fatalerror("%v duplicating LOCAL object %x", t.logprefix, uint64(global))
	}
	size := gc.Sizeof(global)
	local, err := t.alloc.Mallocobject(size)
	if err != nil {
		fatalerror("%v duplicating %v bytes: %v", t.logprefix, size, err)
	}
	gc.space.Copy(local, global, size)
	flags = (flags &^ api.Duplicateclear) | api.Duplicateset
	gc.setflags(local, flags)
	gc.setoriginal(local, global)

	t.copies = append(t.copies, local)
	if gc.ts.Weakrefoffset(typeid) >= 0 {
		t.weakrefs = append(t.weakrefs, local)
	}
	t.nduplicates++
	return local
}
