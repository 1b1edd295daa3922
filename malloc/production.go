//go:build !debug
// +build !debug

package malloc

// Checkmemory is true in debug builds.
const Checkmemory = false

func poisonslot(words []uint64) {
}
