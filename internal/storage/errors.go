package storage

import (
	"fmt"

	"github.com/pkg/errors"
)

// Reason classifies a storage failure.
type Reason uint8

const (
	NotFound Reason = iota + 1
	// IncompatibleSchema means the database file was not created by this
	// package or by an incompatible version of it.
	IncompatibleSchema
	NotIndexed
	Backend
	Encode
)

func (r Reason) String() string {
	switch r {
	case NotFound:
		return "not found"
	case IncompatibleSchema:
		return "incompatible schema"
	case NotIndexed:
		return "path not indexed"
	case Backend:
		return "backend failure"
	case Encode:
		return "encoding failure"
	default:
		return "storage error"
	}
}

// Error is returned by every Store operation.
type Error struct {
	Reason Reason
	Op     string
	Key    string
	Err    error
}

// Sentinels for errors.Is.
var (
	ErrNotFound           = &Error{Reason: NotFound}
	ErrIncompatibleSchema = &Error{Reason: IncompatibleSchema}
	ErrNotIndexed         = &Error{Reason: NotIndexed}
	ErrBackend            = &Error{Reason: Backend}
	ErrEncode             = &Error{Reason: Encode}
)

func (e *Error) Error() string {
	msg := fmt.Sprintf("storage %s", e.Op)
	if e.Key != "" {
		msg += fmt.Sprintf(" %q", e.Key)
	}
	msg += ": " + e.Reason.String()
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Cause returns the innermost error, for callers using github.com/pkg/errors.
func (e *Error) Cause() error {
	if e.Err == nil {
		return nil
	}
	return errors.Cause(e.Err)
}

// Is matches any Error with the same reason.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Reason == e.Reason
}

// Category names the error class used by the CLI error taxonomy.
func (e *Error) Category() string { return "storage" }
