package malloc

import "sync"
import "testing"

import "github.com/bnclabs/stmgc/api"
import "github.com/stretchr/testify/require"

func TestLocalallocMalloc(t *testing.T) {
	area := NewSharedarea(&sync.Mutex{}, testsettings())
	alloc := area.Newlocalalloc()
	space := area.Space()

	a, err := alloc.Mallocobject(24)
	require.NoError(t, err)
	b, err := alloc.Mallocobject(24)
	require.NoError(t, err)
	require.Equal(t, a.Add(24), b) // slots handed out in address order
	require.Equal(t, int64(1), alloc.Npages())
	require.Equal(t, area.pagesize, area.Used())
	require.Equal(t, int64(0), area.Npages())

	*space.Word(a) = api.Packheader(7, 0)
	alloc.Freeobject(a, 24)
	_, flags := api.Unpackheader(*space.Word(a))
	require.True(t, flags.Isfreeslot())
	c, err := alloc.Mallocobject(20)
	require.NoError(t, err)
	require.Equal(t, a, c)
	require.Equal(t, uint64(0), *space.Word(c))

	large, err := alloc.Mallocobject(4000)
	require.NoError(t, err)
	require.Equal(t, int64(1), alloc.Nlarges())
	require.Equal(t, area.pagesize+4000, area.Used())
	alloc.Freeobject(large, 4000)
	require.Equal(t, int64(0), alloc.Nlarges())
	require.Equal(t, area.pagesize, area.Used())

	_, heap, mallocated, _ := alloc.Info()
	require.Equal(t, area.pagesize, heap)
	require.Equal(t, int64(48), mallocated)
	sizes, _ := alloc.Utilization()
	require.Equal(t, []int{24}, sizes)
}

func TestLocalallocGift(t *testing.T) {
	area := NewSharedarea(&sync.Mutex{}, testsettings())
	alloc := area.Newlocalalloc()

	objs := []api.Ref{}
	for i := 0; i < 1000; i++ {
		obj, err := alloc.Mallocobject(16)
		require.NoError(t, err)
		objs = append(objs, obj)
	}
	large, err := alloc.Mallocobject(3000)
	require.NoError(t, err)
	for i := 0; i < 100; i++ {
		alloc.Freeobject(objs[i], 16)
	}
	used := area.Used()
	require.Equal(t, int64(2), alloc.Npages())

	alloc.Giftpages()
	require.Equal(t, used, area.Used())
	require.Equal(t, int64(2), area.Npages())
	require.Equal(t, int64(1), area.Nlarges())
	require.Equal(t, int64(0), alloc.Npages())
	require.Equal(t, accounted(area, alloc), area.Used())
	_, _, mallocated, _ := area.Info()
	require.Equal(t, int64(900*16+3000), mallocated)

	// a fresh allocator adopts low usage pages before reserving new ones.
	other := area.Newlocalalloc()
	for i := 0; i < 100; i++ {
		_, err := other.Mallocobject(16)
		require.NoError(t, err)
	}
	require.Equal(t, used, area.Used())
	require.Equal(t, int64(1), other.Stats()["nadopted"])

	// objects owned by shared area are freed through it.
	other.Freeobject(large, 3000)
	require.Equal(t, int64(0), area.Nlarges())
	require.Equal(t, accounted(area, other), area.Used())
}

func TestLocalallocSweep(t *testing.T) {
	area := NewSharedarea(&sync.Mutex{}, testsettings())
	alloc := area.Newlocalalloc()
	keep := map[api.Ref]bool{}
	for i := 0; i < 600; i++ {
		obj, err := alloc.Mallocobject(int64(16 + (i%4)*8))
		require.NoError(t, err)
		keep[obj] = i%2 == 0
	}
	obj, err := alloc.Mallocobject(2048)
	require.NoError(t, err)
	keep[obj] = false

	nobjs, _ := alloc.Sweep(func(obj api.Ref) bool { return keep[obj] })
	require.Equal(t, int64(301), nobjs)
	require.Equal(t, int64(0), alloc.Nlarges())
	require.Equal(t, accounted(area, alloc), area.Used())

	// swept slots are reused.
	npages := alloc.Npages()
	for i := 0; i < 300; i++ {
		_, err := alloc.Mallocobject(int64(16 + (i%4)*8))
		require.NoError(t, err)
	}
	require.Equal(t, npages, alloc.Npages())
}

func TestLocalallocSweepRelease(t *testing.T) {
	area := NewSharedarea(&sync.Mutex{}, testsettings())
	alloc := area.Newlocalalloc()
	objs := []api.Ref{}
	for i := 0; i < 2000; i++ {
		obj, err := alloc.Mallocobject(16)
		require.NoError(t, err)
		objs = append(objs, obj)
	}
	alloc.Freeobject(objs[1], 16) // free slot on a page that survives
	npages := alloc.Npages()
	require.True(t, npages > 2)

	// only the first page keeps live objects.
	live := map[api.Ref]bool{objs[0]: true, objs[2]: true}
	nobjs, nbytes := alloc.Sweep(func(obj api.Ref) bool { return live[obj] })
	require.Equal(t, int64(1997), nobjs)
	require.Equal(t, int64(1997*16), nbytes)
	require.Equal(t, int64(1), alloc.Npages())
	require.Equal(t, area.pagesize, area.Used())
	require.Equal(t, accounted(area, alloc), area.Used())
	_, _, mallocated, _ := alloc.Info()
	require.Equal(t, int64(32), mallocated)

	// free-list is rebuilt in address order from the surviving page.
	obj, err := alloc.Mallocobject(16)
	require.NoError(t, err)
	require.Equal(t, objs[1], obj)

	nobjs, _ = alloc.Sweep(func(obj api.Ref) bool { return false })
	require.Equal(t, int64(3), nobjs)
	require.Equal(t, int64(0), alloc.Npages())
	require.Equal(t, int64(0), area.Used())
	_, err = alloc.Mallocobject(16)
	require.NoError(t, err)
	require.Equal(t, area.pagesize, area.Used())
}
