package gc

import "sync"
import "fmt"

import "github.com/bnclabs/stmgc/api"
import "github.com/bnclabs/stmgc/lib"
import "github.com/bnclabs/stmgc/malloc"
import s "github.com/bnclabs/gosettings"

// GC is the process wide collector, one instance per runtime.
type GC struct {
	// 64-bit aligned, accessed atomically.
	nmajors   int64
	nthreads  int64
	nlocals   int64
	nfreed    int64 // bytes freed by major collections
	nprebuilt int64

	ts    api.Typesystem
	area  *malloc.Sharedarea
	space *malloc.Space

	// lock is the process wide lock, it guards TLS linkage, prebuilt
	// objects and every page transfer between thread-local allocators
	// and the shared area.
	lock sync.Mutex
	// world is read-locked by every registered thread, released only at
	// safepoints. Major collection write-locks it.
	world sync.RWMutex
	// majormu serialises major collection requests.
	majormu   sync.Mutex
	head      *TLS
	prebuilts []api.Ref
	threadid  int64

	// guarded by majormu.
	majorpause lib.AverageInt64
	majorlive  *lib.HistogramInt64

	// settings
	nurserysize int64
	largeobject int64
	heaplimit   int64
	logprefix   string
	setts       s.Settings
}

// New collector for the type system ts, configured with setts, refer
// Defaultsettings() for the list of settings.
func New(ts api.Typesystem, setts s.Settings) *GC {
	setts = make(s.Settings).Mixin(Defaultsettings(), setts)
	gc := &GC{ts: ts}
	gc.readsettings(setts)
	msetts := setts.Section("malloc.").Trim("malloc.")
	gc.area = malloc.NewSharedarea(&gc.lock, msetts)
	gc.space = gc.area.Space()
	width := gc.area.Threshold() / 16
	if width < 1 {
		width = 1
	}
	gc.majorlive = lib.NewhistogramInt64(0, gc.area.Threshold(), width)
	infof("%v new collector, nursery %v threshold %v\n",
		gc.logprefix, gc.nurserysize, gc.area.Threshold())
	return gc
}

// Sharedarea used by this collector.
func (gc *GC) Sharedarea() *malloc.Sharedarea {
	return gc.area
}

// Space return the address space backing the heap.
func (gc *GC) Space() *malloc.Space {
	return gc.space
}

// Typesystem this collector was created for.
func (gc *GC) Typesystem() api.Typesystem {
	return gc.ts
}

//---- api.Heap{} interface.

// Typeid implement api.Heap{} interface.
func (gc *GC) Typeid(obj api.Ref) uint32 {
	typeid, _ := api.Unpackheader(*gc.space.Word(obj))
	return typeid
}

// Word implement api.Heap{} interface.
func (gc *GC) Word(obj api.Ref, offset int64) *uint64 {
	return gc.space.Word(obj.Add(offset))
}

// Slot implement api.Heap{} interface.
func (gc *GC) Slot(obj api.Ref, offset int64) *api.Ref {
	return gc.space.Slot(obj.Add(offset))
}

// Prebuilt allocate a permanent GLOBAL object that carries its hash in a
// trailing field. Prebuilt objects are never moved and are roots for
// major collection.
func (gc *GC) Prebuilt(typeid uint32, size int64, hash int64) (api.Ref, error) {
	if size < api.Headersize {
		return api.Nil, fmt.Errorf("prebuilt object size %v too small", size)
	}
	total := api.Roundup(size) + api.Wordsize
	obj, err := gc.area.Mallocobject(total)
	if err != nil {
		return api.Nil, err
	}
	flags := api.Gcflags(0).Setglobal().Setprebuilt().Sethashfield()
	gc.setheader(obj, typeid, flags)
	*gc.revision(obj) = Globalrevision
	*gc.space.Word(obj.Add(total - api.Wordsize)) = uint64(hash)

	gc.lock.Lock()
	gc.prebuilts = append(gc.prebuilts, obj)
	gc.nprebuilt++
	gc.lock.Unlock()
	return obj, nil
}

func (gc *GC) String() string {
	return fmt.Sprintf("%v threads:%v majors:%v", gc.logprefix,
		gc.Nthreads(), gc.Nmajors())
}
