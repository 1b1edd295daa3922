package api

import "errors"

// ErrorOutofMemory allocation cannot succeed even after collecting.
var ErrorOutofMemory = errors.New("outofmemory")

// ErrorTooLarge requested size can never be allocated.
var ErrorTooLarge = errors.New("toolarge")

// ErrorFatal wrapped by every unrecoverable failure raised by the
// collector. Pointer fixups applied so far cannot be rolled back.
var ErrorFatal = errors.New("fatal")

// Nowordweak returned by Typesystem.Weakrefoffset for types that are not
// weak references.
const Nowordweak = int64(-1)
