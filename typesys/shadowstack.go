package typesys

import "github.com/bnclabs/stmgc/api"

// Shadowstack holds a thread's references where the collector can find
// and update them. Stack is walked as stack roots, Raw as raw roots.
type Shadowstack struct {
	Stack []api.Ref
	Raw   []api.Ref
}

// Push reference on stack, return its index.
func (ss *Shadowstack) Push(ref api.Ref) int {
	ss.Stack = append(ss.Stack, ref)
	return len(ss.Stack) - 1
}

// Pop reference from stack.
func (ss *Shadowstack) Pop() api.Ref {
	ref := ss.Stack[len(ss.Stack)-1]
	ss.Stack = ss.Stack[:len(ss.Stack)-1]
	return ref
}

// Get reference at index, references may change across collections
// so they must be read back from the stack after any allocation.
func (ss *Shadowstack) Get(i int) api.Ref {
	return ss.Stack[i]
}

// Set reference at index.
func (ss *Shadowstack) Set(i int, ref api.Ref) {
	ss.Stack[i] = ref
}

// Len of stack.
func (ss *Shadowstack) Len() int {
	return len(ss.Stack)
}

// Stackroots implement api.Rootwalker{} interface.
func (ss *Shadowstack) Stackroots(callback func(slot *api.Ref)) {
	for i := range ss.Stack {
		callback(&ss.Stack[i])
	}
}

// Rawroots implement api.Rootwalker{} interface.
func (ss *Shadowstack) Rawroots(callback func(slot *api.Ref)) {
	for i := range ss.Raw {
		callback(&ss.Raw[i])
	}
}
