package api

// Mallocer interface for size-classed object memory.
type Mallocer interface {
	// Mallocobject allocate a zeroed chunk of `size` bytes. Returned
	// reference is always 64-bit aligned.
	Mallocobject(size int64) (Ref, error)

	// Freeobject chunk previously allocated for `size` bytes.
	Freeobject(obj Ref, size int64)

	// Info of memory accounting for this allocator.
	Info() (capacity, heap, alloc, overhead int64)

	// Utilization map of size-class and its utilization
	Utilization() ([]int, []float64)
}
