package gc

import "sync/atomic"

import "github.com/bnclabs/stmgc/api"

// link thread into the registry, threads are kept on an intrusive doubly
// linked list so that unlink is O(1).
func (gc *GC) link(t *TLS) {
	gc.lock.Lock()
	defer gc.lock.Unlock()

	gc.threadid++
	t.id = gc.threadid
	t.prev, t.next = nil, gc.head
	if gc.head != nil {
		gc.head.prev = t
	}
	gc.head = t
	atomic.AddInt64(&gc.nthreads, 1)
}

func (gc *GC) unlink(t *TLS) {
	gc.lock.Lock()
	defer gc.lock.Unlock()

	if t.prev != nil {
		t.prev.next = t.next
	} else if gc.head == t {
		gc.head = t.next
	} else {
		fatalerror("%v thread not linked", t.logprefix)
	}
	if t.next != nil {
		t.next.prev = t.prev
	}
	t.prev, t.next = nil, nil
	atomic.AddInt64(&gc.nthreads, -1)
}

// threads return a snapshot of registered threads.
func (gc *GC) threads() []*TLS {
	gc.lock.Lock()
	defer gc.lock.Unlock()

	threads := make([]*TLS, 0, atomic.LoadInt64(&gc.nthreads))
	for t := gc.head; t != nil; t = t.next {
		threads = append(threads, t)
	}
	return threads
}

func (gc *GC) prebuiltroots() []api.Ref {
	gc.lock.Lock()
	defer gc.lock.Unlock()
	return append([]api.Ref(nil), gc.prebuilts...)
}

// Nthreads currently registered.
func (gc *GC) Nthreads() int64 {
	return atomic.LoadInt64(&gc.nthreads)
}

// Nmajors return number of major collections done so far.
func (gc *GC) Nmajors() int64 {
	return atomic.LoadInt64(&gc.nmajors)
}
