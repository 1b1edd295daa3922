// Package stmgc implement memory management for a runtime with software
// transactional memory, along with the libraries and tools around it.
//
// api:
//
// Object handles, header word layout, collector flags and the interfaces
// the collector expects from its embedder: type system, root walker and
// STM layer.
//
// malloc:
//
// Address space, nursery arenas, size-classed pages, a shared area that
// accounts every reserved byte and thread-local allocators that adopt and
// gift pages.
//
// gc:
//
// The collector. Per-thread nurseries with copying local collection,
// promotion of LOCAL objects at end of transaction, stop-the-world
// non-moving major collection, stable identity through shadow objects and
// weak references.
//
// typesys:
//
// Reference type descriptors and shadow stack, to drive the collector
// without a language runtime.
//
// txn:
//
// Reference STM layer built on local copies.
//
// lib:
//
// Convinience functions that can be used by other packages. Package shall
// not import packages other than golang's standard packages.
//
// tools:
//
// gcstress drives the collector from many threads over a random object
// graph, pools tabulates page utilization per size class.
package stmgc
