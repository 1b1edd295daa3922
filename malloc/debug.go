//go:build debug
// +build debug

package malloc

// Checkmemory is true in debug builds, freed slots are poisoned so that
// use after free shows up as garbage instead of stale objects.
const Checkmemory = true

const poisonword = uint64(0xdddddddddddddddd)

func poisonslot(words []uint64) {
	for i := range words {
		words[i] = poisonword
	}
}
