package main

import "os"
import "fmt"
import "flag"
import "time"
import "runtime"
import "runtime/pprof"

import "github.com/bnclabs/stmgc/gc"
import "github.com/bnclabs/stmgc/lib"
import "github.com/bnclabs/stmgc/malloc"
import "github.com/bnclabs/stmgc/txn"
import "github.com/bnclabs/golog"
import s "github.com/bnclabs/gosettings"
import hm "github.com/dustin/go-humanize"

var options struct {
	nthreads  int
	ntxns     int
	nobjs     int
	nroots    int
	nursery   string
	heaplimit string
	major     int
	seed      int64
	ncpu      int
	log       string
	loglevel  string
	pprof     string
	mprof     string
}

func argParse() {
	flag.IntVar(&options.nthreads, "threads", 4,
		"number of mutator threads")
	flag.IntVar(&options.ntxns, "txns", 1000,
		"number of transactions per thread")
	flag.IntVar(&options.nobjs, "objs", 100,
		"objects allocated per transaction")
	flag.IntVar(&options.nroots, "roots", 64,
		"number of stack roots per thread")
	flag.StringVar(&options.nursery, "nursery", "1MB",
		"nursery size per thread")
	flag.StringVar(&options.heaplimit, "heaplimit", "1GB",
		"limit on bytes held by pages and large objects")
	flag.IntVar(&options.major, "major", 0,
		"force major collection every so many transactions, 0 to disable")
	flag.Int64Var(&options.seed, "seed", time.Now().UnixNano(),
		"seed for random object graph")
	flag.IntVar(&options.ncpu, "ncpu", runtime.NumCPU(),
		"set number cores to use.")
	flag.StringVar(&options.log, "log", "",
		"comma separated components to log: gc,malloc,txn,all")
	flag.StringVar(&options.loglevel, "loglevel", "info",
		"log level")
	flag.StringVar(&options.pprof, "pprof", "",
		"dump cpu-profile to file")
	flag.StringVar(&options.mprof, "mprof", "",
		"dump mem-profile to file")
	flag.Parse()
}

func main() {
	argParse()
	runtime.GOMAXPROCS(options.ncpu)

	setts, err := makesettings()
	if err != nil {
		fmt.Printf("%v\n", err)
		os.Exit(1)
	}
	if comps := lib.Parsecsv(options.log); len(comps) > 0 {
		logsetts := map[string]interface{}{
			"log.level":      options.loglevel,
			"log.colorfatal": "red",
			"log.colorerror": "hired",
			"log.colorwarn":  "yellow",
		}
		log.SetLogger(nil, logsetts)
		gc.LogComponents(comps...)
		malloc.LogComponents(comps...)
		txn.LogComponents(comps...)
	}

	if options.pprof != "" {
		fd, err := os.Create(options.pprof)
		if err != nil {
			fmt.Printf("unable to create cpu profile: %v\n", err)
			os.Exit(1)
		}
		pprof.StartCPUProfile(fd)
		defer pprof.StopCPUProfile()
	}

	now := time.Now()
	collector, stats := stress(setts)
	elapsed := time.Since(now)
	ntxns := options.nthreads * options.ntxns
	fmt.Printf("took %v for %v transactions, %v objects\n",
		elapsed, ntxns, ntxns*options.nobjs)
	fmt.Printf("allocated %v, verified %v objects\n",
		hm.Bytes(uint64(stats.allocated)), stats.verified)
	fmt.Println(lib.Prettystats(collector.Stats(), true))

	if options.mprof != "" {
		takeMEMProfile(options.mprof)
	}
}

func makesettings() (s.Settings, error) {
	nursery, err := hm.ParseBytes(options.nursery)
	if err != nil {
		return nil, fmt.Errorf("invalid nursery size %q: %v", options.nursery, err)
	}
	heaplimit, err := hm.ParseBytes(options.heaplimit)
	if err != nil {
		return nil, fmt.Errorf("invalid heaplimit %q: %v", options.heaplimit, err)
	}
	setts := s.Settings{
		"nursery.size":        int64(nursery),
		"nursery.largeobject": int64(nursery / 4),
		"malloc.heaplimit":    int64(heaplimit),
		"log.prefix":          "GCSTRESS",
	}
	return setts, nil
}

func takeMEMProfile(filename string) bool {
	fd, err := os.Create(filename)
	if err != nil {
		fmt.Printf("unable to create %q: %v\n", filename, err)
		return false
	}
	defer fd.Close()
	pprof.WriteHeapProfile(fd)
	return true
}
