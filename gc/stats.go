package gc

import "fmt"
import "strings"
import "sync/atomic"

import "github.com/bnclabs/stmgc/lib"
import humanize "github.com/dustin/go-humanize"

// Stats return collector wide statistics, shared area statistics are
// prefixed with "sharedarea.".
func (gc *GC) Stats() map[string]interface{} {
	stats := map[string]interface{}{
		"nthreads":  atomic.LoadInt64(&gc.nthreads),
		"nmajors":   atomic.LoadInt64(&gc.nmajors),
		"nlocals":   atomic.LoadInt64(&gc.nlocals),
		"nfreed":    atomic.LoadInt64(&gc.nfreed),
		"threshold": gc.area.Threshold(),
	}
	gc.lock.Lock()
	stats["nprebuilt"] = gc.nprebuilt
	gc.lock.Unlock()

	gc.majormu.Lock()
	stats["majorpause"] = gc.majorpause.Stats()
	stats["majorlive"] = gc.majorlive.Fullstats()
	gc.majormu.Unlock()

	for key, value := range gc.area.Stats() {
		stats["sharedarea."+key] = value
	}
	return stats
}

// Logstats log collector statistics.
func (gc *GC) Logstats() {
	stats := gc.Stats()
	infof("%v threads:%v majors:%v locals:%v freed:%v threshold:%v\n",
		gc.logprefix, stats["nthreads"], stats["nmajors"], stats["nlocals"],
		humanize.Bytes(uint64(stats["nfreed"].(int64))),
		humanize.Bytes(uint64(stats["threshold"].(int64))))
	gc.majormu.Lock()
	infof("%v major pause %v\n", gc.logprefix, gc.majorpause.Stats())
	infof("%v major live %v\n", gc.logprefix, gc.majorlive.Logstring())
	gc.majormu.Unlock()
	gc.area.Logstats(gc.logprefix)
}

// Stats return thread statistics, thread-local allocator statistics are
// prefixed with "localalloc.". Must be called from the thread itself.
func (t *TLS) Stats() map[string]interface{} {
	stats := map[string]interface{}{
		"state":         t.state.String(),
		"ntransactions": t.ntransactions,
		"nlocals":       t.nlocals,
		"nshadows":      t.nshadows,
		"nduplicates":   t.nduplicates,
		"ncopied":       t.ncopied,
		"nfreed":        t.nfreed,
		"nursery.used":  t.nursery.Used(),
		"nursery.size":  t.nursery.Capacity(),
		"localpause":    t.localpause.Stats(),
		"survivors":     t.survivors.Fullstats(),
	}
	for key, value := range t.alloc.Stats() {
		stats["localalloc."+key] = value
	}
	return stats
}

// Logstats log thread statistics.
func (t *TLS) Logstats() {
	infof("%v transactions:%v locals:%v copied:%v freed:%v shadows:%v dups:%v\n",
		t.logprefix, t.ntransactions, t.nlocals,
		humanize.Bytes(uint64(t.ncopied)), humanize.Bytes(uint64(t.nfreed)),
		t.nshadows, t.nduplicates)
	infof("%v local pause %v\n", t.logprefix, t.localpause.Stats())
	infof("%v survivors %v\n", t.logprefix, t.survivors.Logstring())
	infof("%v localalloc %v\n", t.logprefix, lib.Prettystats(t.alloc.Stats(), false))
}

func (t *TLS) String() string {
	ss := []string{
		fmt.Sprintf("%v %v", t.logprefix, t.state),
		fmt.Sprintf("nursery %v/%v", t.nursery.Used(), t.nursery.Capacity()),
		fmt.Sprintf("pages %v larges %v", t.alloc.Npages(), t.alloc.Nlarges()),
	}
	return strings.Join(ss, ", ")
}
