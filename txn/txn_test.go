package txn

import "fmt"
import "sync"
import "testing"

import "github.com/bnclabs/stmgc/api"
import "github.com/bnclabs/stmgc/gc"
import "github.com/bnclabs/stmgc/typesys"
import s "github.com/bnclabs/gosettings"
import "github.com/stretchr/testify/require"

// cell: header, value reference, counter.
const cellsize = int64(32)
const offvalue, offcount = int64(16), int64(24)

func testcollector() (*gc.GC, uint32) {
	types := typesys.New()
	cell := types.Fixed("cell", cellsize, offvalue)
	setts := s.Settings{
		"nursery.size":        int64(16 * 1024),
		"nursery.largeobject": int64(4 * 1024),
		"malloc.heaplimit":    int64(64 * 1024 * 1024),
		"malloc.addressspace": int64(64 * 1024 * 1024),
		"malloc.minheap":      int64(256 * 1024),
	}
	return gc.New(types, setts), cell
}

func TestWriteCommit(t *testing.T) {
	collector, cell := testcollector()
	ss := &typesys.Shadowstack{}
	txn, thread, err := Setup(collector, ss)
	require.NoError(t, err)
	defer collector.Teardownthread(thread)

	txn.Run(func() {
		obj, err := thread.Mallocfixed(cell, cellsize)
		require.NoError(t, err)
		ss.Push(obj)
	})
	global := ss.Get(0)
	require.True(t, collector.Flags(global).Isglobal())
	require.Equal(t, global, txn.Readbarrier(global))

	txn.Run(func() {
		local := txn.Writebarrier(ss.Get(0))
		require.NotEqual(t, global, local)
		require.Equal(t, local, txn.Writebarrier(ss.Get(0)))
		require.Equal(t, local, txn.Readbarrier(ss.Get(0)))
		require.Equal(t, local, txn.Writebarrier(local))
		require.Equal(t, 1, txn.Nwrites())

		value, err := thread.Mallocfixed(cell, cellsize)
		require.NoError(t, err)
		*collector.Word(value, offcount) = 99
		*collector.Slot(txn.Writebarrier(ss.Get(0)), offvalue) = value
		*collector.Word(txn.Writebarrier(ss.Get(0)), offcount) = 1
		// original is untouched until commit.
		require.Equal(t, uint64(0), *collector.Word(global, offcount))
	})
	require.Equal(t, global, ss.Get(0))
	require.Equal(t, 0, txn.Nwrites())
	require.Equal(t, uint64(1), *collector.Word(global, offcount))
	require.Equal(t, gc.Globalrevision+1, collector.Stmrevision(global))
	value := *collector.Slot(global, offvalue)
	require.True(t, collector.Flags(value).Isglobal())
	require.Equal(t, uint64(99), *collector.Word(value, offcount))

	stats := txn.Stats()
	require.Equal(t, int64(2), stats["ncommits"])
	require.Equal(t, int64(1), stats["nwrites"])
	require.Equal(t, cellsize, stats["ncommitted"])
}

func TestTeardownCommits(t *testing.T) {
	collector, cell := testcollector()
	ss := &typesys.Shadowstack{}
	txn, thread, err := Setup(collector, ss)
	require.NoError(t, err)

	txn.Run(func() {
		obj, err := thread.Mallocfixed(cell, cellsize)
		require.NoError(t, err)
		*collector.Word(obj, offcount) = 1
		ss.Push(obj)
	})
	global := ss.Get(0)
	*collector.Word(txn.Writebarrier(global), offcount) = 42
	require.Equal(t, 1, txn.Nwrites())

	collector.Teardownthread(thread)
	require.Equal(t, 0, txn.Nwrites())
	require.Equal(t, uint64(42), *collector.Word(global, offcount))
	stats := txn.Stats()
	require.Equal(t, int64(2), stats["nbegins"])
	require.Equal(t, int64(2), stats["ncommits"])
}

func TestCollectAcrossCommit(t *testing.T) {
	collector, cell := testcollector()
	ss := &typesys.Shadowstack{}
	txn, thread, err := Setup(collector, ss)
	require.NoError(t, err)
	defer collector.Teardownthread(thread)

	txn.Run(func() {
		obj, err := thread.Mallocfixed(cell, cellsize)
		require.NoError(t, err)
		ss.Push(obj)
	})

	// the only reference to the new value lives in the local copy,
	// major collection from inside the transaction keeps it.
	value, err := thread.Mallocfixed(cell, cellsize)
	require.NoError(t, err)
	*collector.Word(value, offcount) = 5
	*collector.Slot(txn.Writebarrier(ss.Get(0)), offvalue) = value
	thread.Collect(true)
	require.Equal(t, 0, txn.Nwrites())

	value = *collector.Slot(ss.Get(0), offvalue)
	require.True(t, collector.Flags(value).Isglobal())
	require.Equal(t, uint64(5), *collector.Word(value, offcount))
}

func TestConcurrentTxn(t *testing.T) {
	collector, cell := testcollector()
	var wg sync.WaitGroup
	nthreads, nloops := 4, 200
	errch := make(chan error, nthreads)

	for i := 0; i < nthreads; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := cellloop(collector, cell, nloops); err != nil {
				errch <- err
			}
		}()
	}
	wg.Wait()
	close(errch)
	for err := range errch {
		t.Fatal(err)
	}
	require.Equal(t, int64(0), collector.Nthreads())
}

// cellloop chain one cell per transaction, dropping the chain every ten
// transactions, then walk what is left newest first.
func cellloop(collector *gc.GC, cell uint32, nloops int) error {
	ss := &typesys.Shadowstack{}
	txn, thread, err := Setup(collector, ss)
	if err != nil {
		return err
	}
	defer collector.Teardownthread(thread)

	ss.Push(api.Nil)
	for j := 0; j < nloops && err == nil; j++ {
		txn.Run(func() {
			var obj api.Ref
			if obj, err = thread.Mallocfixed(cell, cellsize); err != nil {
				return
			}
			*collector.Word(obj, offcount) = uint64(j)
			*collector.Slot(obj, offvalue) = ss.Get(0)
			ss.Set(0, obj)
			if j%10 == 0 {
				ss.Set(0, api.Nil)
			}
		})
	}
	if err != nil {
		return err
	}
	n, obj := 0, ss.Get(0)
	for ; obj != api.Nil; obj = *collector.Slot(obj, offvalue) {
		if count := *collector.Word(obj, offcount); count != uint64(nloops-1-n) {
			return fmt.Errorf("cell %v counts %v", n, count)
		}
		n++
	}
	return nil
}
