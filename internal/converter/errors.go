package converter

import (
	"fmt"

	"github.com/mcncl/jsondoc/internal/value"
)

// ErrorKind classifies a conversion failure.
type ErrorKind uint8

const (
	TypeMismatch ErrorKind = iota + 1
	MissingField
	UnknownField
	Overflow
	Unsupported
)

func (k ErrorKind) String() string {
	switch k {
	case TypeMismatch:
		return "type mismatch"
	case MissingField:
		return "missing field"
	case UnknownField:
		return "unknown field"
	case Overflow:
		return "overflow"
	case Unsupported:
		return "unsupported type"
	default:
		return "conversion error"
	}
}

// Error reports a conversion failure at a location in the document.
type Error struct {
	Kind ErrorKind
	Path value.Path
	Key  string
	Want string
	Got  string
	Err  error
}

// Sentinels for errors.Is.
var (
	ErrTypeMismatch = &Error{Kind: TypeMismatch}
	ErrMissingField = &Error{Kind: MissingField}
	ErrUnknownField = &Error{Kind: UnknownField}
	ErrOverflow     = &Error{Kind: Overflow}
	ErrUnsupported  = &Error{Kind: Unsupported}
)

func (e *Error) Error() string {
	var msg string
	switch e.Kind {
	case MissingField, UnknownField:
		msg = fmt.Sprintf("%s %q", e.Kind, e.Key)
	case TypeMismatch, Overflow:
		msg = fmt.Sprintf("%s: cannot store %s in %s", e.Kind, e.Got, e.Want)
	default:
		msg = fmt.Sprintf("%s %s", e.Kind, e.Want)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return fmt.Sprintf("%s at %s", msg, e.Path)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// Category names the error class used by the CLI error taxonomy.
func (e *Error) Category() string { return "conversion" }
