package main

import "fmt"
import "flag"

import "github.com/bnclabs/stmgc/api"
import "github.com/bnclabs/stmgc/malloc"
import hm "github.com/dustin/go-humanize"

var options struct {
	pagesize       int64
	smallthreshold int64
}

func argParse() {
	flag.Int64Var(&options.pagesize, "pagesize", 8192,
		"page size in bytes")
	flag.Int64Var(&options.smallthreshold, "smallthreshold", 35,
		"largest size class in words")
	flag.Parse()
}

func main() {
	argParse()
	tellutilization()
}

func tellutilization() {
	ps := options.pagesize
	fmt.Printf("pagesize %v, small objects upto %v\n",
		hm.Bytes(uint64(ps)), hm.Bytes(uint64(options.smallthreshold*8)))
	for sc := int64(2); sc <= options.smallthreshold; sc++ {
		nslots := malloc.Nslots(ps, sc)
		used := nslots * sc * api.Wordsize
		u := float64(used) / float64(ps-malloc.Pageheader)
		fmt.Printf("size %4v, slots %4v, util %.4f\n", sc*api.Wordsize, nslots, u)
	}
	fmt.Printf("total %v size classes\n", options.smallthreshold-1)
}
