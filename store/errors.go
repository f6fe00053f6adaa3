package store

import "errors"

// Sentinel errors returned by Store operations alongside the Status the
// worker puts on the wire; they are never logged by the store itself.
var (
	ErrNotFound          = errors.New("store: file not found")
	ErrAlreadyExists     = errors.New("store: file already exists")
	ErrAlreadyOpen       = errors.New("store: file already open by this client")
	ErrPermissionDenied  = errors.New("store: operation not permitted for this client")
	ErrLockedElsewhere   = errors.New("store: file locked by another client")
	ErrNoSpace           = errors.New("store: not enough room even after eviction")
	ErrTooBig            = errors.New("store: payload exceeds storage capacity")
	ErrRemoved           = errors.New("store: file was removed while client was waiting")
	ErrClientGone        = errors.New("store: client disconnected before a reply could be produced")
)

// FatalError marks an internal invariant violation. Per the propagation
// policy, a FatalError makes the server answer FATAL and trigger a hard
// stop; it is never something a caller can recover from locally.
type FatalError struct {
	Op  string
	Err error
}

func (e *FatalError) Error() string {
	return "store: fatal: " + e.Op + ": " + e.Err.Error()
}

func (e *FatalError) Unwrap() error { return e.Err }

func fatalf(op string, err error) *FatalError {
	return &FatalError{Op: op, Err: err}
}
