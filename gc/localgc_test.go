package gc

import "testing"

import "github.com/bnclabs/stmgc/api"
import "github.com/stretchr/testify/require"

func TestLocalcollectionMove(t *testing.T) {
	f := newfixture(testsettings(64 * 1024))
	th, ss, _ := f.setup(t)
	defer f.gc.Teardownthread(th)

	ss.Push(api.Nil)
	f.pushlist(t, th, ss, 0, 100)
	for _, obj := range f.walklist(t, ss, 0, 100) {
		require.True(t, th.Isinnursery(obj))
	}
	th.Localcollection(false)
	require.True(t, th.nursery.Isempty())
	for _, obj := range f.walklist(t, ss, 0, 100) {
		require.False(t, th.Isinnursery(obj))
		flags := f.gc.Flags(obj)
		require.False(t, flags.Isvisited())
		require.False(t, flags.Isglobal())
	}
	require.Equal(t, int64(100*nodesize), th.ncopied)

	// old objects are not moved again.
	before := f.walklist(t, ss, 0, 100)
	th.Localcollection(false)
	require.Equal(t, before, f.walklist(t, ss, 0, 100))
	require.Equal(t, int64(100*nodesize), th.ncopied)
}

func TestLocalcollectionFree(t *testing.T) {
	f := newfixture(testsettings(64 * 1024))
	th, ss, _ := f.setup(t)
	defer f.gc.Teardownthread(th)

	ss.Push(api.Nil)
	f.pushlist(t, th, ss, 0, 50)
	th.Localcollection(false)
	_, _, mallocated, _ := th.alloc.Info()
	require.Equal(t, 50*nodesize, mallocated)

	// cut the list in half, the tail is freed by next collection.
	objs := f.walklist(t, ss, 0, 50)
	*f.gc.Slot(objs[24], offnext) = api.Nil
	th.Localcollection(false)
	require.Equal(t, objs[:25], f.chain(ss.Get(0)))
	_, _, mallocated, _ = th.alloc.Info()
	require.Equal(t, 25*nodesize, mallocated)
	require.Equal(t, 25*nodesize, th.nfreed)
}

func TestNoDanglingForward(t *testing.T) {
	f := newfixture(testsettings(4 * 1024))
	th, ss, _ := f.setup(t)
	defer f.gc.Teardownthread(th)

	// several lists sharing a tail, allocated across many collections.
	ss.Push(api.Nil)
	f.pushlist(t, th, ss, 0, 20)
	for i := 1; i <= 5; i++ {
		ss.Push(ss.Get(0))
		f.pushlist(t, th, ss, i, 300)
	}
	ss.Raw = append(ss.Raw, ss.Get(0))
	th.Localcollection(false)

	check := func(slot *api.Ref) {
		if obj := *slot; obj != api.Nil {
			require.False(t, th.Isinnursery(obj))
			require.False(t, f.gc.Flags(obj).Isvisited())
		}
	}
	ss.Stackroots(check)
	ss.Rawroots(check)
	for i := 1; i <= 5; i++ {
		objs := f.chain(ss.Get(i))
		require.Equal(t, 320, len(objs))
		for j, obj := range objs[:300] {
			require.Equal(t, uint64(300-j), *f.gc.Word(obj, offdata))
		}
		for _, obj := range objs {
			f.types.Trace(f.gc, obj, check)
		}
		require.Equal(t, ss.Get(0), objs[300])
	}
	require.Equal(t, ss.Get(0), ss.Raw[0])
	require.True(t, th.nlocals > 5)
}

func TestPromotion(t *testing.T) {
	f := newfixture(testsettings(64 * 1024))
	th, ss, _ := f.setup(t)
	defer f.gc.Teardownthread(th)

	ss.Push(api.Nil)
	f.pushlist(t, th, ss, 0, 10)
	big, err := th.Mallocvarsize(f.array, 4096, 24, 8, 16)
	require.NoError(t, err)
	*f.gc.Slot(big, 24) = ss.Get(0)
	ss.Push(big)

	th.Stoptransaction()
	require.True(t, th.nursery.Isdisabled())
	require.Equal(t, api.Nil, th.oldobjects)
	objs := append(f.walklist(t, ss, 0, 10), ss.Get(1))
	for _, obj := range objs {
		flags := f.gc.Flags(obj)
		require.True(t, flags.Isglobal())
		require.True(t, flags.Isnotwritten())
		require.False(t, flags.Isvisited())
		require.Equal(t, Globalrevision, f.gc.Stmrevision(obj))
	}
	require.Equal(t, ss.Get(0), *f.gc.Slot(ss.Get(1), 24))

	th.Starttransaction()
	require.False(t, th.nursery.Isdisabled())
	// new objects may refer to GLOBAL ones, collections leave them be.
	obj := f.newnode(t, th, 77)
	*f.gc.Slot(obj, offother) = ss.Get(0)
	ss.Push(obj)
	th.Localcollection(false)
	require.Equal(t, objs[0], *f.gc.Slot(ss.Get(2), offother))
	f.walklist(t, ss, 0, 10)
}

func TestLocalcollectionReentry(t *testing.T) {
	f := newfixture(testsettings(64 * 1024))
	th, _, _ := f.setup(t)
	defer f.gc.Teardownthread(th)

	th.state = statecollecting
	require.Panics(t, func() { th.localcollection(false) })
	th.state = stateallocating
}

func TestLocalcollectionGift(t *testing.T) {
	f := newfixture(testsettings(64 * 1024))
	th, ss, _ := f.setup(t)
	defer f.gc.Teardownthread(th)

	ss.Push(api.Nil)
	f.pushlist(t, th, ss, 0, 50)
	th.Localcollection(false)
	require.Equal(t, int64(1), th.alloc.Npages())

	// the old generation dies as a whole, its pages go to shared area.
	ss.Set(0, api.Nil)
	th.Localcollection(false)
	require.Equal(t, api.Nil, th.oldobjects)
	require.Equal(t, int64(0), th.alloc.Npages())
	require.Equal(t, int64(1), th.alloc.Stats()["ngifted"])
	require.Equal(t, int64(1), f.gc.Sharedarea().Npages())

	// next allocations adopt the gifted page.
	f.pushlist(t, th, ss, 0, 10)
	th.Localcollection(false)
	f.walklist(t, ss, 0, 10)
	require.Equal(t, int64(0), f.gc.Sharedarea().Npages())
	require.Equal(t, int64(1), th.alloc.Stats()["nadopted"])
}

func TestStoptransactionCollectsOnce(t *testing.T) {
	f := newfixture(testsettings(64 * 1024))
	th, ss, _ := f.setup(t)
	defer f.gc.Teardownthread(th)

	ss.Push(api.Nil)
	f.pushlist(t, th, ss, 0, 100)
	nlocals := th.nlocals
	th.Stoptransaction()
	require.Equal(t, nlocals+1, th.nlocals)
	require.True(t, th.nursery.Isempty())
	for _, obj := range f.walklist(t, ss, 0, 100) {
		require.True(t, f.gc.Flags(obj).Isglobal())
	}
	th.Starttransaction()
}
