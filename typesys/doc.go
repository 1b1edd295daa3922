// Package typesys supply reference collaborators for the collector: a
// registry of type descriptors implementing api.Typesystem, and a shadow
// stack implementing api.Rootwalker.
//
// Layout of every object is described by a Typedesc. Fixed size objects
// have Itemsize zero; variable sized objects keep their item count in the
// word at Lengthoffset and carry items after Fixedsize bytes.
package typesys
