// Package malloc supplies object memory for the collector. Memory is
// simulated as a single address space of page aligned regions, each
// backed by a word slice, so that object references can travel as plain
// integers while every raw access stays in this package.
//
// Space reserves regions and maps any address back to its region
// through a two level radix index, lookups are lock free.
//
// Arena is the nursery, a contiguous bump-pointer region described by
// its base, capacity and cursor.
//
// Page is a pagesize region holding a two word header, next-page link
// and free-slot link, followed by equal sized slots of one size class.
//
// Sharedarea owns pages that no thread owns, large objects that no
// thread owns, the global byte counter and the major collection
// threshold.
//
// Localalloc is a thread's front-end over the shared area, free-lists
// and pages are private to the thread until they are gifted back.
//
// Types and functions exported by this package are not thread safe
// unless documented otherwise.
package malloc
