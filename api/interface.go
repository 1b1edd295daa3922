// Package api define types and interfaces shared by the allocators, the
// collector and the collaborators plugged into them: type system, root
// walker and STM layer.
package api

// Heap gives collaborators access to object memory. Offsets are in bytes
// from the start of the object, header included.
type Heap interface {
	// Typeid of object, as stored in its header.
	Typeid(obj Ref) uint32

	// Word return pointer to the word at offset.
	Word(obj Ref, offset int64) *uint64

	// Slot return pointer to the reference field at offset.
	Slot(obj Ref, offset int64) *Ref
}

// Typesystem describes object layouts. It is owned by the runtime
// embedding the collector.
type Typesystem interface {
	// Sizeof object in bytes, header included, hash field excluded.
	Sizeof(heap Heap, obj Ref) int64

	// Trace call callback once for every strong reference field of obj.
	// Weak reference fields must not be reported.
	Trace(heap Heap, obj Ref, callback func(slot *Ref))

	// Weakrefoffset return the offset of the weak field for typeid,
	// or -1 if objects of this type are not weak references.
	Weakrefoffset(typeid uint32) int64
}

// Rootwalker enumerates the live reference slots of one thread. The
// collector may overwrite a slot.
type Rootwalker interface {
	// Stackroots call callback for every reference slot on the stack.
	Stackroots(callback func(slot *Ref))

	// Rawroots call callback for every reference slot held in non heap
	// structures.
	Rawroots(callback func(slot *Ref))
}

// Transactor is the per-thread face of the STM layer.
type Transactor interface {
	// Tldictenum call callback for every {local, global} pair tracked for
	// this thread in the current transaction.
	Tldictenum(callback func(local, global Ref))

	// Begintransaction is called before the collector's own start.
	Begintransaction()

	// Committransaction is called after the collector's own stop.
	Committransaction()
}
