// Package txn is a reference STM layer for the collector. Every thread
// owns a Txn that tracks the GLOBAL objects it wrote in the current
// transaction along with their local copies, and writes the copies back
// into the originals on commit.
//
// Transactions here are not validated against each other, conflicting
// writers simply commit in order. The layer exists to drive the
// collector's local copy protocol end to end.
package txn
