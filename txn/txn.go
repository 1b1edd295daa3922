package txn

import "fmt"

import "github.com/bnclabs/stmgc/api"
import "github.com/bnclabs/stmgc/gc"
import humanize "github.com/dustin/go-humanize"

// Txn is the per-thread STM state, implements api.Transactor{}.
type Txn struct {
	collector *gc.GC
	thread    *gc.TLS
	tldict    map[api.Ref]api.Ref // global -> local copy
	order     []api.Ref           // globals in write order
	revision  uint64

	// stats
	nbegins    int64
	ncommits   int64
	nwrites    int64
	ncommitted int64 // bytes written back
}

// New STM state for a thread of collector. Bind the thread returned by
// Setupthread before any barrier is used.
func New(collector *gc.GC) *Txn {
	return &Txn{
		collector: collector,
		tldict:    make(map[api.Ref]api.Ref),
		order:     make([]api.Ref, 0, 16),
		revision:  gc.Globalrevision,
	}
}

// Setup a collector thread that uses this transaction layer.
func Setup(collector *gc.GC, roots api.Rootwalker) (*Txn, *gc.TLS, error) {
	txn := New(collector)
	thread, err := collector.Setupthread(roots, txn)
	if err != nil {
		return nil, nil, err
	}
	txn.Bind(thread)
	return txn, thread, nil
}

// Bind thread to this transaction layer.
func (txn *Txn) Bind(thread *gc.TLS) {
	txn.thread = thread
}

// Thread bound to this transaction layer.
func (txn *Txn) Thread() *gc.TLS {
	return txn.thread
}

// Tldictenum implement api.Transactor{} interface.
func (txn *Txn) Tldictenum(callback func(local, global api.Ref)) {
	for _, global := range txn.order {
		callback(txn.tldict[global], global)
	}
}

// Begintransaction implement api.Transactor{} interface.
func (txn *Txn) Begintransaction() {
	if len(txn.order) > 0 {
		panic(fmt.Errorf("begin with %v uncommitted writes", len(txn.order)))
	}
	txn.nbegins++
}

// Committransaction implement api.Transactor{} interface. Payload of
// every local copy is written back into its GLOBAL original.
func (txn *Txn) Committransaction() {
	collector := txn.collector
	space := collector.Space()
	if len(txn.order) > 0 {
		txn.revision++
	}
	for _, global := range txn.order {
		local := txn.tldict[global]
		size := collector.Sizeof(global)
		space.Copy(global.Add(api.Headersize), local.Add(api.Headersize),
			size-api.Headersize)
		collector.Setstmrevision(global, txn.revision)
		txn.ncommitted += size
		delete(txn.tldict, global)
	}
	if len(txn.order) > 0 {
		debugf("txn commit %v objects, %v\n", len(txn.order),
			humanize.Bytes(uint64(txn.ncommitted)))
	}
	txn.order = txn.order[:0]
	txn.ncommits++
}

// Readbarrier return the object to read from: the local copy of obj, if
// it was written in this transaction, else obj itself.
func (txn *Txn) Readbarrier(obj api.Ref) api.Ref {
	if obj == api.Nil {
		return obj
	} else if local, ok := txn.tldict[obj]; ok {
		return local
	}
	return obj
}

// Writebarrier return the object to write into. GLOBAL objects are
// duplicated into a local copy on first write.
func (txn *Txn) Writebarrier(obj api.Ref) api.Ref {
	if obj == api.Nil {
		return obj
	}
	flags := txn.collector.Flags(obj)
	if !flags.Isglobal() {
		return obj
	} else if local, ok := txn.tldict[obj]; ok {
		return local
	}
	local := txn.thread.Stmduplicate(obj)
	txn.tldict[obj] = local
	txn.order = append(txn.order, obj)
	txn.nwrites++
	return local
}

// Run fn as one transaction: collector and STM layer stop, commit, and
// begin the next transaction once fn returns.
func (txn *Txn) Run(fn func()) {
	fn()
	txn.thread.Stoptransaction()
	txn.Committransaction()
	txn.Begintransaction()
	txn.thread.Starttransaction()
}

// Nwrites pending in current transaction.
func (txn *Txn) Nwrites() int {
	return len(txn.order)
}

// Stats of this transaction layer.
func (txn *Txn) Stats() map[string]interface{} {
	return map[string]interface{}{
		"nbegins":    txn.nbegins,
		"ncommits":   txn.ncommits,
		"nwrites":    txn.nwrites,
		"ncommitted": txn.ncommitted,
		"revision":   txn.revision,
	}
}
