//go:build debug
// +build debug

package gc

// checkinvariants enable assertions on flag combinations, revision
// interpretation and the GLOBAL to LOCAL pointer rule.
const checkinvariants = true
