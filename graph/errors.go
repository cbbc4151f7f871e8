package graph

import "errors"

// Wiring errors are detected at graph-construction time and abort
// construction; they are the static bugs of a graph definition.
var (
	ErrNoTarget          = errors.New("node requires exactly one work target")
	ErrPortCountMismatch = errors.New("explicit reactive ports must match target arity")
	ErrPassivePort       = errors.New("explicit reactive ports must not be passive")
	ErrPortIndex         = errors.New("reactive port index out of range")
	ErrDuplicatePort     = errors.New("duplicate reactive port index")
	ErrTooManyInputs     = errors.New("more upstream inputs than reactive ports")
	ErrUnknownKeyword    = errors.New("no passive port for keyword input")
	ErrDefaultsMismatch  = errors.New("default reactive values must match target arity")
)
