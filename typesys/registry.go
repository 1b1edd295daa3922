package typesys

import "fmt"
import "sync"

import "github.com/bnclabs/stmgc/api"

// Typedesc describe the layout of objects of a type, offsets are in bytes
// from start of object, header included.
type Typedesc struct {
	Name         string
	Fixedsize    int64   // including header
	Itemsize     int64   // zero for fixed size types
	Lengthoffset int64   // word holding number of items
	Ptroffsets   []int64 // reference fields in fixed part
	Itemptrs     bool    // items are references
	Weakoffset   int64   // weak field, -1 if none
}

// Registry of type descriptors, typeids start from 1.
type Registry struct {
	mu    sync.RWMutex
	types []*Typedesc
}

// New empty registry.
func New() *Registry {
	return &Registry{types: make([]*Typedesc, 0, 16)}
}

// Register type and return its typeid.
func (r *Registry) Register(desc Typedesc) (uint32, error) {
	if desc.Fixedsize < api.Headersize {
		return 0, fmt.Errorf("type %q: size %v smaller than header", desc.Name, desc.Fixedsize)
	} else if desc.Itemptrs && desc.Itemsize != api.Wordsize {
		return 0, fmt.Errorf("type %q: reference items must be a word", desc.Name)
	} else if desc.Itemsize > 0 && !iswordfield(desc.Lengthoffset, desc.Fixedsize) {
		return 0, fmt.Errorf("type %q: invalid length offset %v", desc.Name, desc.Lengthoffset)
	}
	for _, off := range desc.Ptroffsets {
		if !iswordfield(off, desc.Fixedsize) {
			return 0, fmt.Errorf("type %q: invalid reference offset %v", desc.Name, off)
		}
	}
	if desc.Weakoffset >= 0 && !iswordfield(desc.Weakoffset, desc.Fixedsize) {
		return 0, fmt.Errorf("type %q: invalid weak offset %v", desc.Name, desc.Weakoffset)
	}
	desc.Ptroffsets = append([]int64(nil), desc.Ptroffsets...)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.types = append(r.types, &desc)
	return uint32(len(r.types)), nil
}

// Fixed register a fixed size type with reference fields at ptroffsets.
func (r *Registry) Fixed(name string, size int64, ptroffsets ...int64) uint32 {
	typeid, err := r.Register(Typedesc{
		Name: name, Fixedsize: size, Ptroffsets: ptroffsets, Weakoffset: api.Nowordweak,
	})
	if err != nil {
		panic(err)
	}
	return typeid
}

// Weakref register a weak reference type of one weak field.
func (r *Registry) Weakref(name string) uint32 {
	typeid, err := r.Register(Typedesc{
		Name: name, Fixedsize: api.Headersize + api.Wordsize,
		Weakoffset: api.Headersize,
	})
	if err != nil {
		panic(err)
	}
	return typeid
}

// Array register a variable sized type of references, length is kept
// in the first word after header.
func (r *Registry) Array(name string) uint32 {
	typeid, err := r.Register(Typedesc{
		Name: name, Fixedsize: api.Headersize + api.Wordsize,
		Itemsize: api.Wordsize, Lengthoffset: api.Headersize,
		Itemptrs: true, Weakoffset: api.Nowordweak,
	})
	if err != nil {
		panic(err)
	}
	return typeid
}

// Desc return descriptor for typeid.
func (r *Registry) Desc(typeid uint32) *Typedesc {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if typeid == 0 || int(typeid) > len(r.types) {
		panic(fmt.Errorf("unknown typeid %v", typeid))
	}
	return r.types[typeid-1]
}

// Sizeof implement api.Typesystem{} interface.
func (r *Registry) Sizeof(heap api.Heap, obj api.Ref) int64 {
	desc := r.Desc(heap.Typeid(obj))
	if desc.Itemsize == 0 {
		return desc.Fixedsize
	}
	length := int64(*heap.Word(obj, desc.Lengthoffset))
	return desc.Fixedsize + (length * desc.Itemsize)
}

// Trace implement api.Typesystem{} interface.
func (r *Registry) Trace(heap api.Heap, obj api.Ref, callback func(slot *api.Ref)) {
	desc := r.Desc(heap.Typeid(obj))
	for _, off := range desc.Ptroffsets {
		if off != desc.Weakoffset {
			callback(heap.Slot(obj, off))
		}
	}
	if desc.Itemptrs {
		length := int64(*heap.Word(obj, desc.Lengthoffset))
		for i := int64(0); i < length; i++ {
			callback(heap.Slot(obj, desc.Fixedsize+(i*desc.Itemsize)))
		}
	}
}

// Weakrefoffset implement api.Typesystem{} interface.
func (r *Registry) Weakrefoffset(typeid uint32) int64 {
	return r.Desc(typeid).Weakoffset
}

// Ntypes registered so far.
func (r *Registry) Ntypes() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.types)
}

func iswordfield(offset, size int64) bool {
	return offset >= api.Headersize && offset%api.Wordsize == 0 &&
		offset+api.Wordsize <= size
}
