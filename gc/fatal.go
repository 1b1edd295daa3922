package gc

import "fmt"
import "runtime/debug"

import "github.com/bnclabs/stmgc/api"
import "github.com/bnclabs/stmgc/lib"

// fatalerror abort with a diagnostic. Used where partially applied
// pointer fixups cannot be undone, the panic is not meant to be
// recovered outside tests.
func fatalerror(fmsg string, args ...interface{}) {
	err := fmt.Errorf("%w: %v", api.ErrorFatal, fmt.Sprintf(fmsg, args...))
	fatalf("%v\n%v", err, lib.GetStacktrace(2, debug.Stack()))
	panic(err)
}
