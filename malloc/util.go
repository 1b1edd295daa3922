package malloc

import "fmt"

import "github.com/bnclabs/stmgc/api"

// Sizeclass for an object of `size` bytes, in words.
func Sizeclass(size int64) int64 {
	return api.Roundup(size) / api.Wordsize
}

// Nslots number of slots of `sizeclass` words that fit in a page.
func Nslots(pagesize, sizeclass int64) int64 {
	return (pagesize - Pageheader) / (sizeclass * api.Wordsize)
}

func panicerr(fmsg string, args ...interface{}) {
	panic(fmt.Errorf(fmsg, args...))
}
