// Package lib provide small helpers used by the allocators and the
// collector for book-keeping: running averages for pause times,
// histograms for survivor sizes, and formatting of stats maps. They
// shall not depend on anything other than the standard library.
package lib
