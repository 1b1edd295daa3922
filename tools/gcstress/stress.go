package main

import "fmt"
import "sync"
import "math/rand"

import "github.com/bnclabs/stmgc/api"
import "github.com/bnclabs/stmgc/gc"
import "github.com/bnclabs/stmgc/txn"
import "github.com/bnclabs/stmgc/typesys"
import s "github.com/bnclabs/gosettings"

// node: header, left, right, checksum, serial.
const nodesize = int64(48)
const offleft, offright, offsum, offserial = int64(16), int64(24), int64(32), int64(40)

type stressstats struct {
	allocated int64
	verified  int64
}

type mutator struct {
	collector *gc.GC
	types     *typesys.Registry
	node      uint32
	array     uint32
	weak      uint32
	rnd       *rand.Rand
	roots     *typesys.Shadowstack
	txn       *txn.Txn
	thread    *gc.TLS
	serial    uint64
	stats     stressstats
}

func stress(setts s.Settings) (*gc.GC, stressstats) {
	types := typesys.New()
	node := types.Fixed("node", nodesize, offleft, offright)
	array := types.Array("array")
	weak := types.Weakref("weak")
	collector := gc.New(types, setts)

	var wg sync.WaitGroup
	var mu sync.Mutex
	total := stressstats{}
	for i := 0; i < options.nthreads; i++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			m := &mutator{
				collector: collector, types: types,
				node: node, array: array, weak: weak,
				rnd: rand.New(rand.NewSource(seed)),
			}
			m.run()
			mu.Lock()
			total.allocated += m.stats.allocated
			total.verified += m.stats.verified
			mu.Unlock()
		}(options.seed + int64(i))
	}
	wg.Wait()
	return collector, total
}

func (m *mutator) run() {
	m.roots = &typesys.Shadowstack{Stack: make([]api.Ref, options.nroots)}
	var err error
	m.txn, m.thread, err = txn.Setup(m.collector, m.roots)
	if err != nil {
		panic(err)
	}
	for i := 0; i < options.ntxns; i++ {
		m.txn.Run(m.transaction)
		if options.major > 0 && i%options.major == 0 {
			m.thread.Collect(true)
		}
		m.verify()
	}
	m.thread.Logstats()
	m.collector.Teardownthread(m.thread)
}

// transaction allocate new nodes and link them into a random graph,
// writes into GLOBAL nodes go through the write barrier.
func (m *mutator) transaction() {
	collector, nroots := m.collector, len(m.roots.Stack)
	for i := 0; i < options.nobjs; i++ {
		obj := m.newnode()
		r := m.rnd.Intn(nroots)
		switch m.rnd.Intn(8) {
		case 0: // drop a root
			m.roots.Set(r, api.Nil)
		case 1: // array of nodes
			obj = m.newarray(obj)
			m.roots.Set(r, obj)
		case 2: // weak reference kept in raw roots
			m.roots.Set(r, m.newweak(obj))
		case 3, 4: // hang under an existing node
			if parent := m.roots.Get(r); parent != api.Nil && m.isnode(parent) {
				parent = m.txn.Writebarrier(parent)
				*collector.Slot(parent, offright) = obj
				break
			}
			m.roots.Set(r, obj)
		default:
			*collector.Slot(obj, offleft) = m.roots.Get(r)
			m.roots.Set(r, obj)
		}
	}
}

func (m *mutator) newnode() api.Ref {
	obj, err := m.thread.Mallocfixed(m.node, nodesize)
	if err != nil {
		panic(err)
	}
	m.serial++
	*m.collector.Word(obj, offserial) = m.serial
	*m.collector.Word(obj, offsum) = checksum(m.serial)
	m.stats.allocated += nodesize
	return obj
}

// newarray holding obj and a few nil slots, obj is kept on the stack
// while allocating since the allocation may collect.
func (m *mutator) newarray(obj api.Ref) api.Ref {
	i := m.roots.Push(obj)
	length := int64(m.rnd.Intn(64) + 1)
	arr, err := m.thread.Mallocvarsize(m.array, length, 24, 8, 16)
	if err != nil {
		panic(err)
	}
	*m.collector.Slot(arr, 24) = m.roots.Get(i)
	m.roots.Pop()
	m.stats.allocated += 24 + length*8
	return arr
}

// newweak refer to obj weakly from raw roots, return obj as it may have
// moved.
func (m *mutator) newweak(obj api.Ref) api.Ref {
	m.roots.Push(obj)
	wr, err := m.thread.Mallocfixed(m.weak, 24)
	if err != nil {
		panic(err)
	}
	obj = m.roots.Pop()
	*m.collector.Slot(wr, api.Headersize) = obj
	if len(m.roots.Raw) > 16 {
		m.roots.Raw = m.roots.Raw[1:]
	}
	m.roots.Raw = append(m.roots.Raw, wr)
	return obj
}

func (m *mutator) isnode(obj api.Ref) bool {
	return m.collector.Typeid(obj) == m.node
}

// verify every node reachable from roots.
func (m *mutator) verify() {
	seen := make(map[api.Ref]bool)
	var visit func(slot *api.Ref)
	visit = func(slot *api.Ref) {
		obj := *slot
		if obj == api.Nil || seen[obj] {
			return
		}
		seen[obj] = true
		if m.isnode(obj) {
			serial := *m.collector.Word(obj, offserial)
			if sum := *m.collector.Word(obj, offsum); sum != checksum(serial) {
				panic(fmt.Errorf("node %x serial %v corrupted", uint64(obj), serial))
			}
			m.stats.verified++
		}
		m.types.Trace(m.collector, obj, visit)
	}
	m.roots.Stackroots(visit)
	m.roots.Rawroots(visit)
}

func checksum(serial uint64) uint64 {
	return (serial * 0x9e3779b97f4a7c15) ^ 0x5bd1e995
}
