package gc

import "time"
import "sync/atomic"

import "github.com/bnclabs/stmgc/api"
import humanize "github.com/dustin/go-humanize"

// Localcollection move every reachable nursery object out of the nursery
// and free unreachable old LOCAL objects. With endoftransaction,
// references to local copies are redirected to their GLOBAL originals.
func (t *TLS) Localcollection(endoftransaction bool) {
	if t.state != stateallocating {
		fatalerror("%v local collection in state %v", t.logprefix, t.state)
	}
	t.localcollection(endoftransaction)
}

func (t *TLS) localcollection(eot bool) {
	if t.state == statecollecting {
		fatalerror("%v local collection re-entered", t.logprefix)
	}
	start := time.Now()
	t.state, t.eot = statecollecting, eot
	prevold, used := t.oldobjects, t.nursery.Used()
	t.oldobjects = api.Nil
	ncopied := t.ncopied

	t.roots.Stackroots(t.dragout)
	t.roots.Rawroots(t.dragout)
	t.stm.Tldictenum(func(local, global api.Ref) {
		t.gc.ts.Trace(t.gc, local, t.dragout)
	})
	t.drain()

	t.updateweakrefs()
	t.releaseshadows()
	nfreed := t.sweepold(prevold)
	t.nursery.Reset()
	if prevold != api.Nil && t.oldobjects == api.Nil && len(t.copies) == 0 {
		// whole generation died, nothing LOCAL is left in allocator.
		t.alloc.Giftpages()
	}

	t.state, t.eot = stateallocating, false
	t.nlocals++
	atomic.AddInt64(&t.gc.nlocals, 1)
	t.nfreed += nfreed
	t.survivors.Add(t.ncopied - ncopied)
	elapsed := time.Since(start)
	t.localpause.Add(int64(elapsed))
	verbosef("%v local collection eot:%v nursery:%v copied:%v freed:%v took %v\n",
		t.logprefix, eot, humanize.Bytes(uint64(used)),
		humanize.Bytes(uint64(t.ncopied-ncopied)),
		humanize.Bytes(uint64(nfreed)), elapsed)
}

// dragout fix a reference slot: nursery objects are moved out, old LOCAL
// objects are marked, local copies are redirected at end of transaction.
func (t *TLS) dragout(slot *api.Ref) {
	obj := *slot
	if obj == api.Nil {
		return
	}
	gc := t.gc
	flags := gc.Flags(obj)
	if t.nursery.Contains(obj) {
		if flags.Isvisited() {
			*slot = t.forwarded(obj)
			return
		}
		*slot = t.copyout(obj, flags)
		return
	}
	switch {
	case flags.Isglobal():
	case flags.Islocalcopy():
		if t.eot {
			*slot = gc.Original(obj)
		}
	case flags.Isvisited():
	default:
		gc.setflags(obj, flags.Setvisited())
		t.pending = append(t.pending, obj)
	}
}

// copyout move a nursery object into its shadow, if it has one, or into
// a fresh slot of the thread-local allocator.
func (t *TLS) copyout(obj api.Ref, flags api.Gcflags) api.Ref {
	gc := t.gc
	size := gc.Sizeof(obj)
	newobj := api.Nil
	if sh, ok := t.shadows[obj]; ok {
		delete(t.shadows, obj)
		if checkinvariants && sh.size != size {
			fatalerror("%v shadow %x of %v bytes for %v bytes", t.logprefix,
				uint64(sh.ref), sh.size, size)
		}
		newobj = sh.ref
	} else {
		var err error
		if newobj, err = t.alloc.Mallocobject(size); err != nil {
			fatalerror("%v moving %v bytes out of nursery: %v", t.logprefix, size, err)
		}
	}
	gc.space.Copy(newobj, obj, size)
	gc.setflags(obj, flags.Setvisited())
	t.setforwarded(obj, newobj)

	gc.setflags(newobj, flags.Setvisited())
	t.setnextold(newobj, t.oldobjects)
	t.oldobjects = newobj
	t.pending = append(t.pending, newobj)
	t.ncopied += size
	return newobj
}

func (t *TLS) drain() {
	gc := t.gc
	for len(t.pending) > 0 {
		obj := t.pending[len(t.pending)-1]
		t.pending = t.pending[:len(t.pending)-1]
		if checkinvariants && gc.Flags(obj).Isglobal() {
			fatalerror("%v tracing GLOBAL object %x", t.logprefix, uint64(obj))
		}
		gc.ts.Trace(gc, obj, t.dragout)
	}
}

// releaseshadows free shadows whose nursery object died.
func (t *TLS) releaseshadows() {
	for obj, sh := range t.shadows {
		t.alloc.Freeobject(sh.ref, sh.size)
		delete(t.shadows, obj)
	}
}

// sweepold free unmarked objects from the previous old object chain,
// survivors join the new chain and every object on it is unmarked.
func (t *TLS) sweepold(prevold api.Ref) (nfreed int64) {
	gc := t.gc
	for obj := prevold; obj != api.Nil; {
		next := t.nextold(obj)
		if gc.Flags(obj).Isvisited() {
			t.setnextold(obj, t.oldobjects)
			t.oldobjects = obj
		} else {
			size := gc.Sizeof(obj)
			t.alloc.Freeobject(obj, size)
			nfreed += size
		}
		obj = next
	}
	for obj := t.oldobjects; obj != api.Nil; obj = t.nextold(obj) {
		gc.setflags(obj, gc.Flags(obj).Clearvisited())
	}
	return nfreed
}
