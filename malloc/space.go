package malloc

import "sync"
import "sync/atomic"

import "github.com/bnclabs/stmgc/api"

// Spacebase first address handed out, keeps small integers from ever
// looking like valid references.
const Spacebase = uint64(1 << 32)

// Maxspan maximum virtual span of an address space.
const Maxspan = int64(1 << 40) // 1TB

const l2bits = 16
const l2size = 1 << l2bits
const l2mask = l2size - 1

type regionkind byte

const (
	kindpage regionkind = iota + 1
	kindlarge
	kindnursery
)

// region is a page aligned range of the address space backed by words.
type region struct {
	base  api.Ref
	words []uint64
	kind  regionkind

	// page regions
	sizeclass int64      // slot size in words
	nslots    int64      // number of slots in the page
	nfree     int64      // slots carrying the free-slot flag
	owner     *Localalloc // nil if owned by shared area
	full      bool       // on shared area's full list

	// large regions
	size int64
}

type l2index [l2size]atomic.Pointer[region]

// Space is the simulated address space, regions are never moved.
type Space struct {
	cursor    uint64 // atomic, next unreserved address
	pagesize  int64
	pageshift uint
	span      int64
	index     []atomic.Pointer[l2index]

	mu       sync.Mutex
	recycled []api.Ref // single page ranges available for reuse
}

// NewSpace create an address space of `span` bytes divided into pages
// of `pagesize`, pagesize must be a power of 2.
func NewSpace(pagesize, span int64) *Space {
	if pagesize < 1024 || (pagesize&(pagesize-1)) != 0 {
		panicerr("pagesize %v should be a power of 2 >= 1024", pagesize)
	} else if span > Maxspan {
		panicerr("address space %v exceeds %v", span, Maxspan)
	}
	space := &Space{cursor: Spacebase, pagesize: pagesize, span: span}
	for (int64(1) << space.pageshift) < pagesize {
		space.pageshift++
	}
	nchunks := (span + pagesize - 1) / pagesize
	space.index = make([]atomic.Pointer[l2index], (nchunks+l2size-1)/l2size)
	return space
}

// Pagesize of this address space.
func (space *Space) Pagesize() int64 {
	return space.pagesize
}

// reserve a region for `size` bytes, safe for concurrent use.
func (space *Space) reserve(size int64, kind regionkind) (*region, error) {
	npages := (size + space.pagesize - 1) / space.pagesize
	span := uint64(npages * space.pagesize)

	var base api.Ref
	if npages == 1 {
		space.mu.Lock()
		if ln := len(space.recycled); ln > 0 {
			base = space.recycled[ln-1]
			space.recycled = space.recycled[:ln-1]
		}
		space.mu.Unlock()
	}
	if base == api.Nil {
		for {
			cursor := atomic.LoadUint64(&space.cursor)
			if cursor+span-Spacebase > uint64(space.span) {
				return nil, api.ErrorOutofMemory
			}
			if atomic.CompareAndSwapUint64(&space.cursor, cursor, cursor+span) {
				base = api.Ref(cursor)
				break
			}
		}
	}

	reg := &region{
		base: base, words: make([]uint64, api.Roundup(size)/api.Wordsize),
		kind: kind, size: size,
	}
	for i := int64(0); i < npages; i++ {
		space.setindex(base.Add(i*space.pagesize), reg)
	}
	return reg, nil
}

// release a region, the address range becomes invalid.
func (space *Space) release(reg *region) {
	npages := (int64(len(reg.words))*api.Wordsize + space.pagesize - 1)
	npages /= space.pagesize
	for i := int64(0); i < npages; i++ {
		space.setindex(reg.base.Add(i*space.pagesize), nil)
	}
	if npages == 1 {
		space.mu.Lock()
		space.recycled = append(space.recycled, reg.base)
		space.mu.Unlock()
	}
	reg.words = nil
}

func (space *Space) setindex(addr api.Ref, reg *region) {
	chunk := (uint64(addr) - Spacebase) >> space.pageshift
	l1 := &space.index[chunk>>l2bits]
	l2 := l1.Load()
	if l2 == nil {
		l1.CompareAndSwap(nil, new(l2index))
		l2 = l1.Load()
	}
	l2[chunk&l2mask].Store(reg)
}

// lookup region containing addr, nil if addr was never reserved or
// is already released.
func (space *Space) lookup(addr api.Ref) *region {
	if uint64(addr) < Spacebase {
		return nil
	}
	chunk := (uint64(addr) - Spacebase) >> space.pageshift
	if l1 := chunk >> l2bits; l1 < uint64(len(space.index)) {
		if l2 := space.index[l1].Load(); l2 != nil {
			return l2[chunk&l2mask].Load()
		}
	}
	return nil
}

// Isvalid address falls within a live region.
func (space *Space) Isvalid(addr api.Ref) bool {
	reg := space.lookup(addr)
	if reg == nil {
		return false
	}
	return int64(addr-reg.base) < int64(len(reg.words))*api.Wordsize
}

// Word return pointer to the word at addr, panics on an invalid or
// unaligned address.
func (space *Space) Word(addr api.Ref) *uint64 {
	reg := space.lookup(addr)
	if reg == nil {
		panicerr("invalid address %x", uint64(addr))
	}
	return &reg.words[reg.windex(addr)]
}

// Slot return pointer to the reference stored at addr.
func (space *Space) Slot(addr api.Ref) *api.Ref {
	return (*api.Ref)(space.Word(addr))
}

// Words return the slice of n bytes starting at addr. The slice
// aliases heap memory and must not outlive the object.
func (space *Space) Words(addr api.Ref, n int64) []uint64 {
	reg := space.lookup(addr)
	if reg == nil {
		panicerr("invalid address %x", uint64(addr))
	}
	from := reg.windex(addr)
	till := from + (api.Roundup(n) / api.Wordsize)
	if till > int64(len(reg.words)) {
		panicerr("%v bytes at %x overflow region at %x", n, addr, reg.base)
	}
	return reg.words[from:till]
}

// Copy n bytes from src to dst, both must be live objects.
func (space *Space) Copy(dst, src api.Ref, n int64) {
	copy(space.Words(dst, n), space.Words(src, n))
}

// Zero n bytes starting from addr.
func (space *Space) Zero(addr api.Ref, n int64) {
	clear(space.Words(addr, n))
}

func (reg *region) windex(addr api.Ref) int64 {
	off := int64(addr - reg.base)
	if off < 0 || (off&(api.Wordsize-1)) != 0 {
		panicerr("unaligned address %x in region %x", uint64(addr), reg.base)
	} else if idx := off / api.Wordsize; idx < int64(len(reg.words)) {
		return idx
	}
	panicerr("address %x beyond region %x", uint64(addr), reg.base)
	return -1
}
