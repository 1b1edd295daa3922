package typesys

import "testing"

import "github.com/bnclabs/stmgc/api"
import "github.com/stretchr/testify/require"

// wordheap is a minimal api.Heap over a word slice, address is the byte
// offset into the slice plus a non-zero base.
type wordheap struct {
	words []uint64
}

const heapbase = api.Ref(1024)

func (h *wordheap) index(obj api.Ref, offset int64) int {
	return int(int64(obj-heapbase)+offset) / 8
}

func (h *wordheap) Typeid(obj api.Ref) uint32 {
	typeid, _ := api.Unpackheader(h.words[h.index(obj, 0)])
	return typeid
}

func (h *wordheap) Word(obj api.Ref, offset int64) *uint64 {
	return &h.words[h.index(obj, offset)]
}

func (h *wordheap) Slot(obj api.Ref, offset int64) *api.Ref {
	return (*api.Ref)(&h.words[h.index(obj, offset)])
}

func TestRegister(t *testing.T) {
	r := New()
	node := r.Fixed("node", 40, 16, 24)
	weak := r.Weakref("weak")
	array := r.Array("array")
	require.Equal(t, uint32(1), node)
	require.Equal(t, uint32(2), weak)
	require.Equal(t, uint32(3), array)
	require.Equal(t, 3, r.Ntypes())
	require.Equal(t, "node", r.Desc(node).Name)
	require.Equal(t, int64(-1), r.Weakrefoffset(node))
	require.Equal(t, int64(16), r.Weakrefoffset(weak))

	_, err := r.Register(Typedesc{Name: "tiny", Fixedsize: 8})
	require.Error(t, err)
	_, err = r.Register(Typedesc{Name: "bad", Fixedsize: 32, Ptroffsets: []int64{8}})
	require.Error(t, err)
	_, err = r.Register(Typedesc{Name: "bad", Fixedsize: 32, Ptroffsets: []int64{28}})
	require.Error(t, err)
	_, err = r.Register(Typedesc{
		Name: "bad", Fixedsize: 32, Itemsize: 16, Itemptrs: true, Lengthoffset: 16,
	})
	require.Error(t, err)
	require.Panics(t, func() { r.Desc(10) })
}

func TestSizeofTrace(t *testing.T) {
	r := New()
	node := r.Fixed("node", 40, 16, 24)
	weak := r.Weakref("weak")
	array := r.Array("array")

	h := &wordheap{words: make([]uint64, 64)}
	nodeobj, weakobj, arrobj := heapbase, heapbase+40, heapbase+64
	*h.Word(nodeobj, 0) = api.Packheader(node, 0)
	*h.Word(weakobj, 0) = api.Packheader(weak, 0)
	*h.Word(arrobj, 0) = api.Packheader(array, 0)
	*h.Word(arrobj, 16) = 3

	require.Equal(t, int64(40), r.Sizeof(h, nodeobj))
	require.Equal(t, int64(24), r.Sizeof(h, weakobj))
	require.Equal(t, int64(48), r.Sizeof(h, arrobj))

	offsets := func(obj api.Ref) []int64 {
		offs := []int64{}
		r.Trace(h, obj, func(slot *api.Ref) {
			for off := int64(0); off < 128; off += 8 {
				if h.Slot(obj, off) == slot {
					offs = append(offs, off)
				}
			}
		})
		return offs
	}
	require.Equal(t, []int64{16, 24}, offsets(nodeobj))
	require.Equal(t, []int64{}, offsets(weakobj))
	require.Equal(t, []int64{24, 32, 40}, offsets(arrobj))
}

func TestShadowstack(t *testing.T) {
	ss := &Shadowstack{Raw: []api.Ref{7}}
	require.Equal(t, 0, ss.Push(1))
	require.Equal(t, 1, ss.Push(2))
	ss.Set(0, 3)
	require.Equal(t, api.Ref(3), ss.Get(0))

	n := 0
	ss.Stackroots(func(slot *api.Ref) { *slot += 10; n++ })
	require.Equal(t, 2, n)
	require.Equal(t, []api.Ref{13, 12}, ss.Stack)
	ss.Rawroots(func(slot *api.Ref) { *slot = api.Nil })
	require.Equal(t, api.Nil, ss.Raw[0])

	require.Equal(t, api.Ref(12), ss.Pop())
	require.Equal(t, 1, ss.Len())
}
