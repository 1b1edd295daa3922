//go:build !debug
// +build !debug

package gc

const checkinvariants = false
