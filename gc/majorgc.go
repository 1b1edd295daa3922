package gc

import "time"
import "sync/atomic"

import "github.com/bnclabs/stmgc/api"
import humanize "github.com/dustin/go-humanize"

// Maybemajorcollection run a major collection if the shared byte counter
// crossed the threshold. caller is the requesting thread, if any.
func (gc *GC) Maybemajorcollection(caller *TLS) bool {
	if gc.area.Majorcollectiondue() {
		gc.Majorcollection(caller)
		return true
	}
	return false
}

// Majorcollection stop the world and mark-sweep the whole heap. Every
// other thread is parked at a transaction boundary when marking starts.
// Requests that arrive while a collection is running wait for it and
// return without collecting again. The caller may be inside a
// transaction, its LOCAL objects are traced but never freed. Registered
// threads must pass their TLS as caller.
func (gc *GC) Majorcollection(caller *TLS) {
	seen := atomic.LoadInt64(&gc.nmajors)
	inworld := caller != nil && caller.inworld
	if inworld {
		gc.world.RUnlock()
	}

	gc.majormu.Lock()
	if atomic.LoadInt64(&gc.nmajors) == seen {
		gc.world.Lock()
		gc.majorcollection(caller)
		atomic.AddInt64(&gc.nmajors, 1)
		gc.world.Unlock()
	}
	gc.majormu.Unlock()

	if inworld {
		gc.world.RLock()
	}
}

func (gc *GC) majorcollection(caller *TLS) {
	start := time.Now()
	used := gc.area.Used()
	threads := gc.threads()

	m := newmarker(gc)
	for _, t := range threads {
		t.roots.Stackroots(m.mark)
		t.roots.Rawroots(m.mark)
		t.stm.Tldictenum(func(local, global api.Ref) {
			m.markref(local)
			m.markref(global)
		})
	}
	for _, obj := range gc.prebuiltroots() {
		m.markref(obj)
	}
	m.drain()

	for _, wr := range m.weakrefs {
		gc.clearweakref(wr)
	}
	// threads waiting on a collection from inside their transaction
	// still hold LOCAL weak references.
	for _, t := range threads {
		for _, wr := range t.weakrefs {
			gc.clearweakref(wr)
		}
	}

	keep := func(obj api.Ref) bool {
		flags := gc.Flags(obj)
		if !flags.Isglobal() {
			return true
		} else if flags.Isvisited() {
			gc.setflags(obj, flags.Clearvisited())
			return true
		}
		return false
	}
	nobjs, nbytes := gc.area.Sweep(keep)
	for _, t := range threads {
		n, b := t.alloc.Sweep(keep)
		nobjs, nbytes = nobjs+n, nbytes+b
	}
	threshold := gc.area.Recomputethreshold()

	elapsed := time.Since(start)
	gc.majorpause.Add(int64(elapsed))
	gc.majorlive.Add(gc.area.Used())
	atomic.AddInt64(&gc.nfreed, nbytes)
	requester := gc.logprefix
	if caller != nil {
		requester = caller.logprefix
	}
	debugf("%v major collection marked:%v freed:%v objects %v, heap %v -> %v, "+
		"threshold %v took %v\n",
		requester, m.nmarked, nobjs, humanize.Bytes(uint64(nbytes)),
		humanize.Bytes(uint64(used)), humanize.Bytes(uint64(gc.area.Used())),
		humanize.Bytes(uint64(threshold)), elapsed)
}

// marker traces the heap for major collection. GLOBAL objects are
// marked VISITED in place, LOCAL objects of a thread caught inside its
// transaction are remembered on the side so that the thread's own
// local collection state is left untouched.
type marker struct {
	gc       *GC
	pending  []api.Ref
	locals   map[api.Ref]bool
	weakrefs []api.Ref
	nmarked  int64
}

func newmarker(gc *GC) *marker {
	return &marker{
		gc:      gc,
		pending: make([]api.Ref, 0, 1024),
		locals:  make(map[api.Ref]bool),
	}
}

func (m *marker) mark(slot *api.Ref) {
	m.markref(*slot)
}

func (m *marker) markref(obj api.Ref) {
	if obj == api.Nil {
		return
	}
	gc := m.gc
	typeid, flags := gc.header(obj)
	if flags.Isglobal() {
		if flags.Isvisited() {
			return
		}
		gc.setflags(obj, flags.Setvisited())
		m.nmarked++
		if gc.ts.Weakrefoffset(typeid) >= 0 {
			m.weakrefs = append(m.weakrefs, obj)
		}
	} else if m.locals[obj] {
		return
	} else {
		m.locals[obj] = true
		if flags.Islocalcopy() {
			m.markref(gc.Original(obj))
		}
	}
	m.pending = append(m.pending, obj)
}

func (m *marker) drain() {
	gc := m.gc
	for len(m.pending) > 0 {
		obj := m.pending[len(m.pending)-1]
		m.pending = m.pending[:len(m.pending)-1]
		if checkinvariants && gc.Flags(obj).Isglobal() {
			gc.ts.Trace(gc, obj, m.checkglobal(obj))
		}
		gc.ts.Trace(gc, obj, m.mark)
	}
}

// checkglobal GLOBAL objects never refer to LOCAL ones.
func (m *marker) checkglobal(obj api.Ref) func(*api.Ref) {
	return func(slot *api.Ref) {
		if ref := *slot; ref != api.Nil && !m.gc.Flags(ref).Isglobal() {
			fatalerror("GLOBAL %x refers to LOCAL %x", uint64(obj), uint64(ref))
		}
	}
}
