package malloc

import "github.com/bnclabs/stmgc/api"

// page header word indices.
const (
	hdrnextpage = 0
	hdrfreeslot = 1
)

var freeslotword = api.Packheader(0, api.Gcflags(0).Setfreeslot())

// newpage reserve a page for `sizeclass` with every slot free and
// chained, in address order, from the page's free-slot link.
func (space *Space) newpage(sizeclass int64) (*region, error) {
	reg, err := space.reserve(space.pagesize, kindpage)
	if err != nil {
		return nil, err
	}
	reg.sizeclass = sizeclass
	reg.nslots = Nslots(space.pagesize, sizeclass)
	reg.nfree = reg.nslots
	next := api.Nil
	for i := reg.nslots - 1; i >= 0; i-- {
		idx := reg.slotindex(i)
		reg.words[idx] = freeslotword
		reg.words[idx+1] = uint64(next)
		next = reg.slotaddr(i)
	}
	reg.words[hdrnextpage], reg.words[hdrfreeslot] = 0, uint64(next)
	return reg, nil
}

func (reg *region) slotindex(i int64) int64 {
	return (Pageheader / api.Wordsize) + i*reg.sizeclass
}

func (reg *region) slotaddr(i int64) api.Ref {
	return reg.base.Add(reg.slotindex(i) * api.Wordsize)
}

func (reg *region) slotwords(slot api.Ref) []uint64 {
	from := reg.windex(slot)
	return reg.words[from : from+reg.sizeclass]
}

func (reg *region) nextpage() api.Ref {
	return api.Ref(reg.words[hdrnextpage])
}

func (reg *region) setnextpage(next api.Ref) {
	reg.words[hdrnextpage] = uint64(next)
}

func (reg *region) isfree(slot api.Ref) bool {
	_, flags := api.Unpackheader(reg.words[reg.windex(slot)])
	return flags.Isfreeslot()
}

// popfree take the first slot from page's free-slot chain, slot is
// returned zeroed.
func (reg *region) popfree() api.Ref {
	slot := api.Ref(reg.words[hdrfreeslot])
	if slot == api.Nil {
		return api.Nil
	}
	words := reg.slotwords(slot)
	reg.words[hdrfreeslot] = words[1]
	clear(words)
	reg.nfree--
	return slot
}

// pushfree put slot on page's free-slot chain.
func (reg *region) pushfree(slot api.Ref) {
	words := reg.slotwords(slot)
	poisonslot(words)
	words[0], words[1] = freeslotword, reg.words[hdrfreeslot]
	reg.words[hdrfreeslot] = uint64(slot)
	reg.nfree++
}

// markfree format slot as free and link it to `next`, page's free-slot
// chain is left untouched.
func (reg *region) markfree(slot, next api.Ref) {
	words := reg.slotwords(slot)
	poisonslot(words)
	words[0], words[1] = freeslotword, uint64(next)
	reg.nfree++
}

// chainfree link every free slot of the page, in address order, in
// front of `next` and return the new head.
func (reg *region) chainfree(next api.Ref) api.Ref {
	for i := reg.nslots - 1; i >= 0; i-- {
		if idx := reg.slotindex(i); reg.words[idx] == freeslotword {
			reg.words[idx+1] = uint64(next)
			next = reg.slotaddr(i)
		}
	}
	return next
}

// forslots call fn for every slot holding an object.
func (reg *region) forslots(fn func(slot api.Ref)) {
	for i := int64(0); i < reg.nslots; i++ {
		if w := reg.words[reg.slotindex(i)]; w != freeslotword {
			fn(reg.slotaddr(i))
		}
	}
}

