package api

// Ref is an opaque object handle, the address of the object's first
// header word in the heap's address space.
type Ref uint64

// Nil reference.
const Nil = Ref(0)

// Wordsize in bytes.
const Wordsize = int64(8)

// Headersize every heap object starts with two words, the packed
// {typeid, gcflags} word and the revision word.
const Headersize = 2 * Wordsize

// Revisionoffset byte offset of the revision word within header.
const Revisionoffset = Wordsize

// Packheader compose the first header word.
func Packheader(typeid uint32, flags Gcflags) uint64 {
	return (uint64(typeid) << 32) | uint64(flags)
}

// Unpackheader decompose the first header word.
func Unpackheader(word uint64) (typeid uint32, flags Gcflags) {
	return uint32(word >> 32), Gcflags(uint32(word))
}

// Roundup size to whole words.
func Roundup(size int64) int64 {
	return (size + Wordsize - 1) &^ (Wordsize - 1)
}

// Add return reference offset by n bytes.
func (ref Ref) Add(n int64) Ref {
	return Ref(int64(ref) + n)
}
