// Package gc implement the collector of a runtime with software
// transactional memory.
//
// Every thread owns a TLS, which owns a nursery and a thread-local
// allocator. Objects are born LOCAL in the nursery, survive local
// collections by moving out of it into the thread-local allocator, and
// are promoted to GLOBAL when the thread's transaction stops. Between
// two transactions of a thread, every object reachable from its roots is
// GLOBAL, and no GLOBAL object ever refers to a LOCAL one.
//
// Allocation and local collection touch only thread owned memory. The
// process wide lock is taken only to link or unlink a TLS and when a
// thread-local allocator adopts or gifts pages. Major collection is a
// non-moving mark and sweep over all threads, it stops the world by
// waiting for every other thread to reach a safepoint: the start of its
// next transaction, or its own request for a major collection.
//
// Identity of moving objects is kept stable with shadow objects: the
// first time id or hash is asked for a nursery object, a permanent slot
// is reserved in the thread-local allocator and the object moves into it
// at the next local collection.
//
// Failures are either retried, like running out of memory during an
// ordinary allocation, or fatal. Fatal failures panic with an error
// wrapping api.ErrorFatal, pointer fixups applied until then cannot be
// rolled back.
package gc
