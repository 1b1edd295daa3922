package gc

import "github.com/bnclabs/stmgc/api"

// updateweakrefs after local tracing: weak references that died are
// dropped from the list, moved ones are followed, and their targets are
// either repointed, redirected to the GLOBAL original or cleared.
func (t *TLS) updateweakrefs() {
	gc := t.gc
	kept := t.weakrefs[:0]
	for _, wr := range t.weakrefs {
		flags := gc.Flags(wr)
		if t.nursery.Contains(wr) {
			if !flags.Isvisited() {
				continue
			}
			wr = t.forwarded(wr)
		} else if flags.Isglobal() || !flags.Isvisited() {
			continue
		}
		slot := gc.Slot(wr, gc.ts.Weakrefoffset(gc.Typeid(wr)))
		*slot = t.weaktarget(*slot)
		kept = append(kept, wr)
	}
	t.weakrefs = kept
}

func (t *TLS) weaktarget(target api.Ref) api.Ref {
	if target == api.Nil {
		return target
	}
	gc := t.gc
	flags := gc.Flags(target)
	if t.nursery.Contains(target) {
		if flags.Isvisited() {
			return t.forwarded(target)
		}
		return api.Nil
	}
	switch {
	case flags.Isglobal():
		return target
	case flags.Islocalcopy():
		if t.eot {
			return gc.Original(target)
		}
		return target
	case flags.Isvisited():
		return target
	}
	return api.Nil
}

// clearweakref null out weak field of wr if it points to a GLOBAL
// object that was not marked by the ongoing major collection.
func (gc *GC) clearweakref(wr api.Ref) {
	slot := gc.Slot(wr, gc.ts.Weakrefoffset(gc.Typeid(wr)))
	if target := *slot; target != api.Nil {
		if flags := gc.Flags(target); flags.Isglobal() && !flags.Isvisited() {
			*slot = api.Nil
		}
	}
}
