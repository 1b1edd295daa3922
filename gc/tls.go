package gc

import "fmt"

import "github.com/bnclabs/stmgc/api"
import "github.com/bnclabs/stmgc/lib"
import "github.com/bnclabs/stmgc/malloc"

type tlsstate byte

const (
	// between two transactions, nursery disabled.
	stateidle tlsstate = iota + 1
	// inside a transaction.
	stateallocating
	// local collection in progress.
	statecollecting
	// torn down.
	statedead
)

func (state tlsstate) String() string {
	switch state {
	case stateidle:
		return "idle"
	case stateallocating:
		return "allocating"
	case statecollecting:
		return "collecting"
	case statedead:
		return "dead"
	}
	return "unknown"
}

type shadow struct {
	ref  api.Ref
	size int64
}

// TLS is the per-thread collector state. A TLS must be used only by the
// goroutine that set it up.
type TLS struct {
	id      int64
	gc      *GC
	nursery *malloc.Arena
	alloc   *malloc.Localalloc
	roots   api.Rootwalker
	stm     api.Transactor
	state   tlsstate
	inworld bool // holding gc.world read lock

	pending    []api.Ref          // objects waiting to be traced
	oldobjects api.Ref            // chain of old LOCAL objects
	weakrefs   []api.Ref          // LOCAL weak references
	copies     []api.Ref          // local copies of last transaction
	shadows    map[api.Ref]shadow // nursery object -> reserved slot
	eot        bool               // collection at end of transaction

	// linkage in gc registry, guarded by gc.lock.
	prev, next *TLS

	// stats
	ntransactions int64
	nlocals       int64
	nshadows      int64
	nduplicates   int64
	ncopied       int64
	nfreed        int64
	localpause    lib.AverageInt64
	survivors     *lib.HistogramInt64
	logprefix     string
}

// Setupthread create and link the collector state for calling thread,
// and start its first transaction. roots enumerate the thread's
// references and stm is the thread's face of the STM layer. Until
// Teardownthread the thread takes part in stopping the world, it must
// keep starting transactions or requesting collections.
func (gc *GC) Setupthread(roots api.Rootwalker, stm api.Transactor) (*TLS, error) {
	nursery, err := malloc.NewArena(gc.space, gc.nurserysize)
	if err != nil {
		return nil, err
	}
	t := &TLS{
		gc:      gc,
		nursery: nursery,
		alloc:   gc.area.Newlocalalloc(),
		roots:   roots,
		stm:     stm,
		state:   stateidle,
		shadows: make(map[api.Ref]shadow),
		pending: make([]api.Ref, 0, 64),
	}
	width := gc.nurserysize / 16
	if width < 1 {
		width = 1
	}
	t.survivors = lib.NewhistogramInt64(0, gc.nurserysize, width)
	t.nursery.Disable()

	gc.world.RLock()
	gc.link(t)
	t.inworld = true

	t.logprefix = fmt.Sprintf("%v[%v]", gc.logprefix, t.id)
	debugf("%v setup thread, nursery at %x\n", t.logprefix, uint64(nursery.Start()))
	stm.Begintransaction()
	t.Starttransaction()
	return t, nil
}

// Teardownthread stop and commit the thread's transaction if any,
// release its nursery, free its local copies and gift its pages to the
// shared area.
func (gc *GC) Teardownthread(t *TLS) {
	if t.state == stateallocating {
		t.Stoptransaction()
		t.stm.Committransaction()
	} else if t.state != stateidle {
		fatalerror("%v teardown in state %v", t.logprefix, t.state)
	}

	t.freecopies()
	t.alloc.Giftpages()
	gc.unlink(t)
	t.nursery.Release()
	t.inworld = false
	gc.world.RUnlock()

	t.state = statedead
	debugf("%v teardown thread\n", t.logprefix)
}

// GC return the collector this thread belongs to.
func (t *TLS) GC() *GC {
	return t.gc
}

// Id of thread, unique within the collector.
func (t *TLS) Id() int64 {
	return t.id
}

// Localalloc return the thread-local allocator.
func (t *TLS) Localalloc() *malloc.Localalloc {
	return t.alloc
}

// Isinnursery return true if obj lives in this thread's nursery.
func (t *TLS) Isinnursery(obj api.Ref) bool {
	return t.nursery.Contains(obj)
}

// Intransaction return true between Starttransaction and
// Stoptransaction.
func (t *TLS) Intransaction() bool {
	return t.state == stateallocating || t.state == statecollecting
}

//---- transaction boundaries

// Starttransaction enable the nursery. All objects reachable from the
// thread's roots are GLOBAL at this point.
func (t *TLS) Starttransaction() {
	if t.state != stateidle {
		fatalerror("%v start transaction in state %v", t.logprefix, t.state)
	}
	t.safepoint()

	t.freecopies()
	t.nursery.Reset()
	if checkinvariants {
		t.checkallglobal()
	}
	t.state = stateallocating
	t.ntransactions++
}

// Stoptransaction run a local collection with end of transaction
// semantics, promote every surviving LOCAL object to GLOBAL and disable
// the nursery. Local copies are left for the STM layer to commit.
func (t *TLS) Stoptransaction() {
	if t.state != stateallocating {
		fatalerror("%v stop transaction in state %v", t.logprefix, t.state)
	}
	t.localcollection(true)
	t.promote()
	t.nursery.Disable()
	t.state = stateidle
	t.gc.Maybemajorcollection(t)
}

// safepoint let a waiting major collection run. A thread holds the world
// read lock from setup to teardown and is parked only here, or while it
// waits on a major collection itself.
func (t *TLS) safepoint() {
	t.gc.world.RUnlock()
	t.gc.world.RLock()
}

// promote every old LOCAL object, called after an end of transaction
// collection so that the chain holds only survivors.
func (t *TLS) promote() {
	gc := t.gc
	for obj := t.oldobjects; obj != api.Nil; {
		next := t.nextold(obj)
		flags := gc.Flags(obj).Clearvisited().Setglobal().Setnotwritten()
		gc.setflags(obj, flags)
		*gc.revision(obj) = Globalrevision
		obj = next
	}
	t.oldobjects = api.Nil
	t.weakrefs = t.weakrefs[:0]
}

// freecopies free local copies of the last transaction, the STM layer
// has committed them by now.
func (t *TLS) freecopies() {
	for _, obj := range t.copies {
		t.alloc.Freeobject(obj, t.gc.Sizeof(obj))
	}
	t.copies = t.copies[:0]
}

// Collect run a local collection, or break the transaction and run a
// major collection if major is true.
func (t *TLS) Collect(major bool) {
	if !major {
		t.Localcollection(false)
		return
	}
	t.Stoptransaction()
	t.stm.Committransaction()
	t.gc.Majorcollection(t)
	t.stm.Begintransaction()
	t.Starttransaction()
}

//---- allocation

// Mallocfixed allocate an object of type typeid and size bytes, header
// included. Returned object is zero filled except for its header.
func (t *TLS) Mallocfixed(typeid uint32, size int64) (api.Ref, error) {
	obj, err := t.allocate(size)
	if err != nil {
		return api.Nil, err
	}
	t.gc.setheader(obj, typeid, 0)
	if t.gc.ts.Weakrefoffset(typeid) >= 0 {
		t.weakrefs = append(t.weakrefs, obj)
	}
	return obj, nil
}

// Mallocvarsize allocate an object with a fixed part and `length` items,
// length is stored at lengthoffset.
func (t *TLS) Mallocvarsize(
	typeid uint32, length, fixedsize, itemsize, lengthoffset int64) (api.Ref, error) {

	if length < 0 || itemsize < 0 {
		return api.Nil, api.ErrorTooLarge
	} else if itemsize > 0 && length > (t.gc.heaplimit-fixedsize)/itemsize {
		return api.Nil, api.ErrorTooLarge
	}
	obj, err := t.Mallocfixed(typeid, fixedsize+(length*itemsize))
	if err != nil {
		return api.Nil, err
	}
	*t.gc.Word(obj, lengthoffset) = uint64(length)
	return obj, nil
}

func (t *TLS) allocate(size int64) (api.Ref, error) {
	if t.state != stateallocating {
		fatalerror("%v allocation in state %v", t.logprefix, t.state)
	}
	size = api.Roundup(size)
	if size < api.Headersize {
		size = api.Headersize
	}
	if size > t.gc.largeobject {
		return t.allocateexternal(size)
	}
	return t.allocatebumppointer(size), nil
}

func (t *TLS) allocatebumppointer(size int64) api.Ref {
	if obj, ok := t.nursery.Bump(size); ok {
		return obj
	}
	t.localcollection(false)
	if obj, ok := t.nursery.Bump(size); ok {
		return obj
	}
	if size > (t.nursery.Capacity()/8)*7 {
		fatalerror("%v object of %v bytes cannot fit nursery", t.logprefix, size)
	}
	t.localcollection(false)
	if obj, ok := t.nursery.Bump(size); ok {
		return obj
	}
	fatalerror("%v nursery exhausted after collection", t.logprefix)
	return api.Nil
}

// allocateexternal allocate directly from thread-local allocator, the
// object joins the old object chain as a LOCAL object.
func (t *TLS) allocateexternal(size int64) (api.Ref, error) {
	obj, err := t.alloc.Mallocobject(size)
	if err == api.ErrorOutofMemory {
		t.localcollection(false)
		obj, err = t.alloc.Mallocobject(size)
	}
	if err == api.ErrorOutofMemory {
		t.gc.Majorcollection(t)
		obj, err = t.alloc.Mallocobject(size)
	}
	if err != nil {
		warnf("%v allocating %v bytes: %v\n", t.logprefix, size, err)
		return api.Nil, err
	}
	t.setnextold(obj, t.oldobjects)
	t.oldobjects = obj
	return obj, nil
}

// checkallglobal every root refers to a GLOBAL object.
func (t *TLS) checkallglobal() {
	check := func(slot *api.Ref) {
		if obj := *slot; obj != api.Nil && !t.gc.Flags(obj).Isglobal() {
			fatalerror("%v root %x is not GLOBAL", t.logprefix, uint64(obj))
		}
	}
	t.roots.Stackroots(check)
	t.roots.Rawroots(check)
}
