package gc

import "github.com/bnclabs/stmgc/malloc"
import s "github.com/bnclabs/gosettings"

// Defaultsettings for the collector, shared area settings are included
// with "malloc." prefix, refer malloc.Defaultsettings().
//
// "nursery.size" (int64, default: 32MB)
//		Size of every thread's nursery.
//
// "nursery.largeobject" (int64, default: 8MB)
//		Objects bigger than this are allocated directly from the
//		thread-local allocator.
//
// "log.prefix" (string, default: "STMGC")
//		Prefix for every log line from this instance.
func Defaultsettings() s.Settings {
	nurserysize := int64(32 * 1024 * 1024)
	setts := s.Settings{
		"nursery.size":        nurserysize,
		"nursery.largeobject": nurserysize / 4,
		"log.prefix":          "STMGC",
	}
	msetts := malloc.Defaultsettings()
	msetts["minheap"] = 8 * nurserysize
	return setts.Mixin(msetts.AddPrefix("malloc."))
}

func (gc *GC) readsettings(setts s.Settings) {
	gc.nurserysize = setts.Int64("nursery.size")
	gc.largeobject = setts.Int64("nursery.largeobject")
	gc.logprefix = setts.String("log.prefix")
	gc.heaplimit = setts.Int64("malloc.heaplimit")
	if gc.largeobject > (gc.nurserysize/8)*7 {
		gc.largeobject = (gc.nurserysize / 8) * 7
	}
	gc.setts = setts
}
