package malloc

import "github.com/bnclabs/stmgc/api"

// Arena is a contiguous bump-pointer region. Bytes in [base, base+cursor)
// are handed out, [base+cursor, base+top) is free. A disabled arena has
// top == cursor and refuses every allocation until Reset.
type Arena struct {
	space    *Space
	reg      *region
	base     api.Ref
	capacity int64
	cursor   int64
	top      int64
	extent   int64 // highest cursor since last Reset
	disabled bool
}

// NewArena reserve `capacity` bytes from space.
func NewArena(space *Space, capacity int64) (*Arena, error) {
	capacity = api.Roundup(capacity)
	reg, err := space.reserve(capacity, kindnursery)
	if err != nil {
		return nil, err
	}
	arena := &Arena{
		space: space, reg: reg, base: reg.base, capacity: capacity,
		top: capacity,
	}
	return arena, nil
}

// Bump allocate size bytes, return false if arena cannot fit them.
func (arena *Arena) Bump(size int64) (api.Ref, bool) {
	size = api.Roundup(size)
	if size <= 0 || arena.top-arena.cursor < size {
		return api.Nil, false
	}
	ref := arena.base.Add(arena.cursor)
	arena.cursor += size
	if arena.cursor > arena.extent {
		arena.extent = arena.cursor
	}
	return ref, true
}

// Contains address in [start, stop) of this arena.
func (arena *Arena) Contains(addr api.Ref) bool {
	return addr >= arena.base && int64(addr-arena.base) < arena.capacity
}

// Start of arena.
func (arena *Arena) Start() api.Ref {
	return arena.base
}

// Free return the next address to be handed out.
func (arena *Arena) Free() api.Ref {
	return arena.base.Add(arena.cursor)
}

// Capacity of arena in bytes.
func (arena *Arena) Capacity() int64 {
	return arena.capacity
}

// Used bytes since last Reset.
func (arena *Arena) Used() int64 {
	return arena.cursor
}

// Isempty nothing allocated since last Reset.
func (arena *Arena) Isempty() bool {
	return arena.cursor == 0
}

// Isdisabled arena refuses allocation until Reset.
func (arena *Arena) Isdisabled() bool {
	return arena.disabled
}

// Reset zero-fill the extent used since last Reset and rewind cursor.
func (arena *Arena) Reset() {
	if arena.extent > 0 {
		clear(arena.reg.words[:arena.extent/api.Wordsize])
	}
	arena.cursor, arena.extent, arena.top = 0, 0, arena.capacity
	arena.disabled = false
}

// Disable further allocation until Reset.
func (arena *Arena) Disable() {
	arena.top, arena.disabled = arena.cursor, true
}

// Release arena back to space.
func (arena *Arena) Release() {
	if arena.reg != nil {
		arena.space.release(arena.reg)
	}
	arena.reg, arena.capacity, arena.cursor, arena.top = nil, 0, 0, 0
}
