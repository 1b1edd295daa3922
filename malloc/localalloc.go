package malloc

import "unsafe"

import "github.com/bnclabs/stmgc/api"

// Localalloc is a thread's allocator. Free-lists, pages and large
// objects are private to the owning thread until Giftpages, only page
// adoption and gifting take the process wide lock.
type Localalloc struct {
	area      *Sharedarea
	freelists []api.Ref // per size class, chained by slot's second word
	pages     []api.Ref // per size class, chained by next-page link
	npages    int64
	larges    map[api.Ref]*region

	// stats
	mallocated int64
	nadopted   int64
	ngifted    int64
}

// Newlocalalloc create a thread-local front-end over shared area.
func (area *Sharedarea) Newlocalalloc() *Localalloc {
	return &Localalloc{
		area:      area,
		freelists: make([]api.Ref, area.smallthreshold+1),
		pages:     make([]api.Ref, area.smallthreshold+1),
		larges:    make(map[api.Ref]*region),
	}
}

// Sharedarea this allocator delegates to.
func (alloc *Localalloc) Sharedarea() *Sharedarea {
	return alloc.area
}

// Mallocobject implement api.Mallocer{} interface.
func (alloc *Localalloc) Mallocobject(size int64) (api.Ref, error) {
	if size <= 0 {
		panicerr("invalid allocation size %v", size)
	}
	area := alloc.area
	if !area.Issmall(size) {
		reg, err := area.newlarge(size)
		if err != nil {
			return api.Nil, err
		}
		reg.owner = alloc
		alloc.larges[reg.base] = reg
		alloc.mallocated += size
		return reg.base, nil
	}

	sc := Sizeclass(size)
	if alloc.freelists[sc] == api.Nil {
		if err := alloc.refill(sc); err != nil {
			return api.Nil, err
		}
	}
	slot := alloc.freelists[sc]
	reg := area.space.lookup(slot)
	words := reg.slotwords(slot)
	alloc.freelists[sc] = api.Ref(words[1])
	clear(words)
	reg.nfree--
	alloc.mallocated += sc * api.Wordsize
	return slot, nil
}

// refill free-list for size class, from an adopted low usage page if
// shared area has one, else from a fresh page.
func (alloc *Localalloc) refill(sc int64) error {
	area := alloc.area
	reg := area.adopt(sc, alloc)
	if reg != nil {
		alloc.nadopted++
		alloc.mallocated += (reg.nslots - reg.nfree) * sc * api.Wordsize
	} else {
		var err error
		if reg, err = area.newpage(sc); err != nil {
			return err
		}
		reg.owner = alloc
	}
	// thread's free-list is empty, take over page's free-slot chain.
	alloc.freelists[sc] = api.Ref(reg.words[hdrfreeslot])
	reg.words[hdrfreeslot] = 0
	reg.setnextpage(alloc.pages[sc])
	alloc.pages[sc] = reg.base
	alloc.npages++
	return nil
}

// Freeobject implement api.Mallocer{} interface. Objects not owned by
// this allocator are handed over to the shared area.
func (alloc *Localalloc) Freeobject(obj api.Ref, size int64) {
	area := alloc.area
	reg := area.space.lookup(obj)
	if reg == nil {
		panicerr("free of invalid address %x", uint64(obj))
	} else if reg.owner != alloc {
		area.Freeobject(obj, size)
		return
	}
	switch reg.kind {
	case kindlarge:
		delete(alloc.larges, reg.base)
		alloc.mallocated -= reg.size
		area.releaselarge(reg)

	case kindpage:
		alloc.pushfree(reg, obj)
	}
}

func (alloc *Localalloc) pushfree(reg *region, slot api.Ref) {
	sc := reg.sizeclass
	reg.markfree(slot, alloc.freelists[sc])
	alloc.freelists[sc] = slot
	alloc.mallocated -= sc * api.Wordsize
}

// Giftpages hand over every page and large object of this allocator to
// the shared area. Allocator remains usable and starts afresh.
func (alloc *Localalloc) Giftpages() {
	area := alloc.area
	area.lock.Lock()
	defer area.lock.Unlock()

	for sc, head := range alloc.freelists {
		for slot := head; slot != api.Nil; {
			reg := area.space.lookup(slot)
			idx := reg.windex(slot)
			next := api.Ref(reg.words[idx+1])
			reg.words[idx+1] = reg.words[hdrfreeslot]
			reg.words[hdrfreeslot] = uint64(slot)
			slot = next
		}
		alloc.freelists[sc] = api.Nil
	}
	npages := alloc.npages
	for sc, head := range alloc.pages {
		for head != api.Nil {
			reg := area.space.lookup(head)
			head = reg.nextpage()
			area.receive(reg)
		}
		alloc.pages[sc] = api.Nil
	}
	for ref, reg := range alloc.larges {
		reg.owner = nil
		area.larges[ref] = reg
		area.mallocated += reg.size
		delete(alloc.larges, ref)
	}
	alloc.npages, alloc.mallocated = 0, 0
	alloc.ngifted += npages
	verbosef("gifted %v pages to shared area\n", npages)
}

// Sweep every object held by this allocator, objects for which keep
// returns false are freed. Pages left empty are released to the address
// space and free-lists are rebuilt from the remaining pages. Caller must
// make sure the owning thread is parked. Return number of objects and
// bytes freed.
func (alloc *Localalloc) Sweep(keep func(obj api.Ref) bool) (nobjs, nbytes int64) {
	area := alloc.area
	for ref, reg := range alloc.larges {
		if !keep(ref) {
			nobjs, nbytes = nobjs+1, nbytes+reg.size
			delete(alloc.larges, ref)
			alloc.mallocated -= reg.size
			area.releaselarge(reg)
		}
	}
	var nreleased int64
	for sc, head := range alloc.pages {
		alloc.pages[sc], alloc.freelists[sc] = api.Nil, api.Nil
		for head != api.Nil {
			reg := area.space.lookup(head)
			head = reg.nextpage()
			reg.forslots(func(slot api.Ref) {
				if !keep(slot) {
					reg.markfree(slot, api.Nil)
					size := reg.sizeclass * api.Wordsize
					nobjs, nbytes = nobjs+1, nbytes+size
					alloc.mallocated -= size
				}
			})
			if reg.nfree == reg.nslots {
				area.releasepage(reg)
				alloc.npages--
				nreleased++
				continue
			}
			reg.setnextpage(alloc.pages[sc])
			alloc.pages[sc] = reg.base
			alloc.freelists[sc] = reg.chainfree(alloc.freelists[sc])
		}
	}
	if nreleased > 0 {
		verbosef("released %v empty pages\n", nreleased)
	}
	return nobjs, nbytes
}

//---- statistics

// Npages owned by this allocator.
func (alloc *Localalloc) Npages() int64 {
	return alloc.npages
}

// Nlarges number of large objects owned by this allocator.
func (alloc *Localalloc) Nlarges() int64 {
	return int64(len(alloc.larges))
}

// Info implement api.Mallocer{} interface.
func (alloc *Localalloc) Info() (capacity, heap, mallocated, overhead int64) {
	heap = alloc.npages * alloc.area.pagesize
	for _, reg := range alloc.larges {
		heap += reg.size
	}
	self := int64(unsafe.Sizeof(*alloc))
	slicesz := int64(cap(alloc.freelists)+cap(alloc.pages)) * api.Wordsize
	return alloc.area.heaplimit, heap, alloc.mallocated, self + slicesz
}

// Utilization implement api.Mallocer{} interface.
func (alloc *Localalloc) Utilization() ([]int, []float64) {
	classes := make(map[int]*[2]int64)
	for sc, head := range alloc.pages {
		for head != api.Nil {
			reg := alloc.area.space.lookup(head)
			if classes[sc] == nil {
				classes[sc] = &[2]int64{}
			}
			classes[sc][0] += reg.nslots
			classes[sc][1] += reg.nslots - reg.nfree
			head = reg.nextpage()
		}
	}
	return utilization(classes)
}

// Stats of this allocator.
func (alloc *Localalloc) Stats() map[string]interface{} {
	_, heap, mallocated, overhead := alloc.Info()
	return map[string]interface{}{
		"heap":      heap,
		"allocated": mallocated,
		"overhead":  overhead,
		"npages":    alloc.npages,
		"nlarges":   alloc.Nlarges(),
		"nadopted":  alloc.nadopted,
		"ngifted":   alloc.ngifted,
	}
}
