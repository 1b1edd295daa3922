package malloc

import "fmt"
import "sort"
import "sync"
import "unsafe"
import "sync/atomic"

import "github.com/bnclabs/stmgc/api"
import s "github.com/bnclabs/gosettings"
import humanize "github.com/dustin/go-humanize"

// Sharedarea manage pages and large objects that are not owned by any
// thread, and account for every byte reserved by any allocator.
type Sharedarea struct {
	// 64-bit aligned, atomic access
	used      int64 // bytes in pages and large objects, any owner
	threshold int64 // next major collection is due beyond this

	space *Space
	lock  sync.Locker // process wide lock

	// guarded by lock
	lowusage   []api.Ref // per size class, chained by next-page link
	full       []api.Ref // per size class, chained by next-page link
	npages     int64
	larges     map[api.Ref]*region
	mallocated int64

	// settings
	pagesize       int64
	smallthreshold int64 // in words
	growth         float64
	minheap        int64
	addressspace   int64
	heaplimit      int64
	setts          s.Settings
}

// NewSharedarea create a shared area, `lock` is the process wide lock
// also used for thread registration.
func NewSharedarea(lock sync.Locker, setts s.Settings) *Sharedarea {
	setts = make(s.Settings).Mixin(Defaultsettings(), setts)
	area := &Sharedarea{lock: lock, larges: make(map[api.Ref]*region)}
	area.readsettings(setts)
	if maxsize := area.pagesize - Pageheader; area.smallthreshold*api.Wordsize > maxsize {
		panicerr("smallthreshold %v words exceeds page capacity %v bytes",
			area.smallthreshold, maxsize)
	}
	area.space = NewSpace(area.pagesize, Maxspan)
	area.lowusage = make([]api.Ref, area.smallthreshold+1)
	area.full = make([]api.Ref, area.smallthreshold+1)
	area.threshold = area.minheap

	limit := humanize.Bytes(uint64(area.heaplimit))
	fmsg := "sharedarea pagesize:%v smallthreshold:%v words heaplimit:%v\n"
	infof(fmsg, area.pagesize, area.smallthreshold, limit)
	return area
}

func (area *Sharedarea) readsettings(setts s.Settings) {
	area.pagesize = setts.Int64("pagesize")
	area.smallthreshold = setts.Int64("smallthreshold")
	area.growth = setts.Float64("growth")
	area.minheap = setts.Int64("minheap")
	area.addressspace = setts.Int64("addressspace")
	area.heaplimit = setts.Int64("heaplimit")
	area.setts = setts
}

// Space backing this shared area.
func (area *Sharedarea) Space() *Space {
	return area.space
}

// Pagesize of every page.
func (area *Sharedarea) Pagesize() int64 {
	return area.pagesize
}

// Issmall object of `size` bytes is served from pages.
func (area *Sharedarea) Issmall(size int64) bool {
	return size <= area.smallthreshold*api.Wordsize
}

// Allocsize actual bytes reserved for an object of `size` bytes.
func (area *Sharedarea) Allocsize(size int64) int64 {
	if area.Issmall(size) {
		return Sizeclass(size) * api.Wordsize
	}
	return size
}

//---- accounting, safe for concurrent use.

// Used bytes in pages and large objects, whoever owns them.
func (area *Sharedarea) Used() int64 {
	return atomic.LoadInt64(&area.used)
}

func (area *Sharedarea) charge(n int64) error {
	for {
		used := atomic.LoadInt64(&area.used)
		if used+n > area.heaplimit {
			return api.ErrorOutofMemory
		}
		if atomic.CompareAndSwapInt64(&area.used, used, used+n) {
			return nil
		}
	}
}

func (area *Sharedarea) discharge(n int64) {
	atomic.AddInt64(&area.used, -n)
}

// Threshold for next major collection.
func (area *Sharedarea) Threshold() int64 {
	return atomic.LoadInt64(&area.threshold)
}

// Majorcollectiondue used bytes exceeds the threshold.
func (area *Sharedarea) Majorcollectiondue() bool {
	return area.Used() > area.Threshold()
}

// Recomputethreshold after a major collection, from bytes still in use.
func (area *Sharedarea) Recomputethreshold() int64 {
	threshold := int64(float64(area.Used()) * area.growth)
	if threshold < area.minheap {
		threshold = area.minheap
	}
	if limit := int64(float64(area.addressspace) * 0.99); threshold > limit {
		threshold = limit
	}
	atomic.StoreInt64(&area.threshold, threshold)
	return threshold
}

//---- allocation

// Mallocobject implement api.Mallocer{} interface. Shared area serves
// objects that belong to no thread, like prebuilt objects.
func (area *Sharedarea) Mallocobject(size int64) (api.Ref, error) {
	if size <= 0 {
		panicerr("invalid allocation size %v", size)
	}
	area.lock.Lock()
	defer area.lock.Unlock()

	if !area.Issmall(size) {
		reg, err := area.newlarge(size)
		if err != nil {
			return api.Nil, err
		}
		area.larges[reg.base] = reg
		area.mallocated += size
		return reg.base, nil
	}

	sc := Sizeclass(size)
	if area.lowusage[sc] == api.Nil {
		reg, err := area.newpage(sc)
		if err != nil {
			return api.Nil, err
		}
		area.lowusage[sc] = reg.base
		area.npages++
	}
	reg := area.space.lookup(area.lowusage[sc])
	slot := reg.popfree()
	if reg.nfree == 0 {
		area.lowusage[sc] = reg.nextpage()
		reg.setnextpage(area.full[sc])
		area.full[sc], reg.full = reg.base, true
	}
	area.mallocated += sc * api.Wordsize
	return slot, nil
}

// Freeobject implement api.Mallocer{} interface. Objects in pages or
// large regions owned by a thread go back to that thread's free-lists,
// caller must make sure the owning thread is parked.
func (area *Sharedarea) Freeobject(obj api.Ref, size int64) {
	reg := area.space.lookup(obj)
	if reg == nil {
		panicerr("free of invalid address %x", uint64(obj))
	} else if reg.owner != nil {
		reg.owner.Freeobject(obj, size)
		return
	}

	area.lock.Lock()
	defer area.lock.Unlock()
	area.freeshared(reg, obj)
}

// called with lock held.
func (area *Sharedarea) freeshared(reg *region, obj api.Ref) {
	switch reg.kind {
	case kindlarge:
		delete(area.larges, reg.base)
		area.mallocated -= reg.size
		area.releaselarge(reg)

	case kindpage:
		reg.pushfree(obj)
		area.mallocated -= reg.sizeclass * api.Wordsize
		if reg.full {
			area.unlinkfull(reg)
			reg.setnextpage(area.lowusage[reg.sizeclass])
			area.lowusage[reg.sizeclass] = reg.base
		}

	default:
		panicerr("free of non heap address %x", uint64(obj))
	}
}

func (area *Sharedarea) unlinkfull(reg *region) {
	sc := reg.sizeclass
	if area.full[sc] == reg.base {
		area.full[sc] = reg.nextpage()
	} else {
		prev := area.space.lookup(area.full[sc])
		for prev.nextpage() != reg.base {
			prev = area.space.lookup(prev.nextpage())
		}
		prev.setnextpage(reg.nextpage())
	}
	reg.full = false
}

func (area *Sharedarea) newpage(sizeclass int64) (*region, error) {
	if err := area.charge(area.pagesize); err != nil {
		return nil, err
	}
	reg, err := area.space.newpage(sizeclass)
	if err != nil {
		area.discharge(area.pagesize)
		return nil, err
	}
	debugf("new page %x for size class %v\n", uint64(reg.base), sizeclass)
	return reg, nil
}

func (area *Sharedarea) releasepage(reg *region) {
	area.space.release(reg)
	area.discharge(area.pagesize)
}

func (area *Sharedarea) newlarge(size int64) (*region, error) {
	if err := area.charge(size); err != nil {
		return nil, err
	}
	reg, err := area.space.reserve(size, kindlarge)
	if err != nil {
		area.discharge(size)
		return nil, err
	}
	return reg, nil
}

func (area *Sharedarea) releaselarge(reg *region) {
	size := reg.size
	area.space.release(reg)
	area.discharge(size)
}

// adopt a low usage page of size class for alloc, nil if none.
func (area *Sharedarea) adopt(sizeclass int64, alloc *Localalloc) *region {
	area.lock.Lock()
	defer area.lock.Unlock()

	head := area.lowusage[sizeclass]
	if head == api.Nil {
		return nil
	}
	reg := area.space.lookup(head)
	area.lowusage[sizeclass] = reg.nextpage()
	reg.setnextpage(api.Nil)
	reg.owner = alloc
	area.npages--
	area.mallocated -= (reg.nslots - reg.nfree) * reg.sizeclass * api.Wordsize
	return reg
}

// receive a page gifted by a thread, called with lock held.
func (area *Sharedarea) receive(reg *region) {
	area.linkpage(reg)
	area.npages++
	area.mallocated += (reg.nslots - reg.nfree) * reg.sizeclass * api.Wordsize
}

func (area *Sharedarea) linkpage(reg *region) {
	sc := reg.sizeclass
	reg.owner = nil
	if reg.nfree == 0 {
		reg.setnextpage(area.full[sc])
		area.full[sc], reg.full = reg.base, true
	} else {
		reg.setnextpage(area.lowusage[sc])
		area.lowusage[sc], reg.full = reg.base, false
	}
}

//---- sweeping

// Sweep every object held by the shared area, objects for which keep
// returns false are freed. Pages left empty are released to the address
// space. Return number of objects and bytes freed.
func (area *Sharedarea) Sweep(keep func(obj api.Ref) bool) (nobjs, nbytes int64) {
	area.lock.Lock()
	defer area.lock.Unlock()

	for ref, reg := range area.larges {
		if !keep(ref) {
			nobjs, nbytes = nobjs+1, nbytes+reg.size
			delete(area.larges, ref)
			area.mallocated -= reg.size
			area.releaselarge(reg)
		}
	}

	var pages []*region
	for sc := range area.lowusage {
		pages = area.collectpages(area.lowusage[sc], pages)
		pages = area.collectpages(area.full[sc], pages)
		area.lowusage[sc], area.full[sc] = api.Nil, api.Nil
	}
	area.npages = 0
	for _, reg := range pages {
		reg.forslots(func(slot api.Ref) {
			if !keep(slot) {
				reg.pushfree(slot)
				size := reg.sizeclass * api.Wordsize
				nobjs, nbytes = nobjs+1, nbytes+size
				area.mallocated -= size
			}
		})
		if reg.nfree == reg.nslots {
			area.releasepage(reg)
			continue
		}
		area.linkpage(reg)
		area.npages++
	}
	return nobjs, nbytes
}

func (area *Sharedarea) collectpages(head api.Ref, pages []*region) []*region {
	for head != api.Nil {
		reg := area.space.lookup(head)
		pages = append(pages, reg)
		head = reg.nextpage()
	}
	return pages
}

//---- statistics and maintenance

// Npages owned by shared area.
func (area *Sharedarea) Npages() int64 {
	area.lock.Lock()
	defer area.lock.Unlock()
	return area.npages
}

// Nlarges number of large objects owned by shared area.
func (area *Sharedarea) Nlarges() int64 {
	area.lock.Lock()
	defer area.lock.Unlock()
	return int64(len(area.larges))
}

// Info implement api.Mallocer{} interface. `heap` is the bytes reserved
// by every allocator, `alloc` is what shared area handed out.
func (area *Sharedarea) Info() (capacity, heap, alloc, overhead int64) {
	area.lock.Lock()
	defer area.lock.Unlock()

	self := int64(unsafe.Sizeof(*area))
	slicesz := int64(cap(area.lowusage)+cap(area.full)) * api.Wordsize
	return area.heaplimit, area.Used(), area.mallocated, self + slicesz
}

// Utilization implement api.Mallocer{} interface, percentage of slots
// in use for every size class held by the shared area.
func (area *Sharedarea) Utilization() ([]int, []float64) {
	area.lock.Lock()
	defer area.lock.Unlock()

	classes := make(map[int]*[2]int64)
	for sc := range area.lowusage {
		var pages []*region
		pages = area.collectpages(area.lowusage[sc], pages)
		pages = area.collectpages(area.full[sc], pages)
		for _, reg := range pages {
			if classes[sc] == nil {
				classes[sc] = &[2]int64{}
			}
			classes[sc][0] += reg.nslots
			classes[sc][1] += reg.nslots - reg.nfree
		}
	}
	return utilization(classes)
}

// Stats of shared area.
func (area *Sharedarea) Stats() map[string]interface{} {
	capacity, heap, alloc, overhead := area.Info()
	return map[string]interface{}{
		"capacity":  capacity,
		"heap":      heap,
		"allocated": alloc,
		"overhead":  overhead,
		"threshold": area.Threshold(),
		"npages":    area.Npages(),
		"nlarges":   area.Nlarges(),
	}
}

// Logstats log shared area statistics in human readable form.
func (area *Sharedarea) Logstats(prefix string) {
	capacity, heap, alloc, _ := area.Info()
	fmsg := "%v sharedarea heap %v/%v allocated %v threshold %v\n"
	infof(fmsg, prefix, humanize.Bytes(uint64(heap)),
		humanize.Bytes(uint64(capacity)), humanize.Bytes(uint64(alloc)),
		humanize.Bytes(uint64(area.Threshold())))
}

func utilization(classes map[int]*[2]int64) ([]int, []float64) {
	sizes := make([]int, 0, len(classes))
	for sc := range classes {
		sizes = append(sizes, sc)
	}
	sort.Ints(sizes)
	ss, zs := make([]int, 0), make([]float64, 0)
	for _, sc := range sizes {
		nslots, used := classes[sc][0], classes[sc][1]
		ss = append(ss, sc*int(api.Wordsize))
		zs = append(zs, (float64(used)/float64(nslots))*100)
	}
	return ss, zs
}

func (area *Sharedarea) String() string {
	return fmt.Sprintf("sharedarea{used:%v threshold:%v}", area.Used(), area.Threshold())
}
