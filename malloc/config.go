package malloc

import s "github.com/bnclabs/gosettings"
import "github.com/cloudfoundry/gosigar"

// Pageheader size of page header, next-page link and free-slot link.
const Pageheader = 2 * int64(8)

// Defaultsettings for shared area and its thread-local allocators.
//
// "pagesize" (int64, default: 8192)
//		Size of a page, power of 2. All slots in a page belong to one
//		size class.
//
// "smallthreshold" (int64, default: 35)
//		Objects up to this many words are served from pages, bigger
//		objects are allocated as individual large regions.
//
// "growth" (float64, default: 1.82)
//		Next major collection is due when used bytes exceeds
//		used bytes after the last major collection times growth.
//
// "minheap" (int64, default: 256MB)
//		Lower bound for the major collection threshold.
//
// "addressspace" (int64, default: <total RAM>)
//		Upper bound for the major collection threshold is 99% of this.
//
// "heaplimit" (int64, default: <total RAM>)
//		Allocations that push used bytes beyond this fail with
//		api.ErrorOutofMemory.
func Defaultsettings() s.Settings {
	total, _, _ := getsysmem()
	return s.Settings{
		"pagesize":       int64(8192),
		"smallthreshold": int64(35),
		"growth":         float64(1.82),
		"minheap":        int64(8 * 32 * 1024 * 1024),
		"addressspace":   int64(total),
		"heaplimit":      int64(total),
	}
}

func getsysmem() (total, used, free uint64) {
	mem := sigar.Mem{}
	mem.Get()
	if mem.Total == 0 { // platforms without sigar support.
		mem.Total = uint64(Maxspan / 4)
	}
	return mem.Total, mem.Used, mem.Free
}
