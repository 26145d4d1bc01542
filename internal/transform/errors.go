package transform

import (
	"fmt"

	"github.com/mcncl/jsondoc/internal/formatter"
	"github.com/mcncl/jsondoc/internal/value"
)

// ConflictError reports a patch operation or merge that could not be applied
// at Path. For an expected-value mismatch Expected and Actual carry both
// sides; for a missing target Actual is nil.
type ConflictError struct {
	Op       string
	Path     value.Path
	Expected *value.Value
	Actual   *value.Value
	Err      error
}

// ErrConflict matches every ConflictError with errors.Is.
var ErrConflict = &ConflictError{}

func (e *ConflictError) Error() string {
	msg := fmt.Sprintf("%s conflict at %s", e.Op, e.Path.Pointer())
	switch {
	case e.Expected != nil && e.Actual != nil:
		msg += fmt.Sprintf(": expected %s, found %s", formatter.String(e.Expected), formatter.String(e.Actual))
	case e.Err != nil:
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ConflictError) Unwrap() error { return e.Err }

func (e *ConflictError) Is(target error) bool {
	_, ok := target.(*ConflictError)
	return ok
}

// Category names the error class used by the CLI error taxonomy.
func (e *ConflictError) Category() string { return "patch" }

// DecodeError reports a malformed operation document.
type DecodeError struct {
	Index int
	Msg   string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("patch operation %d: %s", e.Index, e.Msg)
}

// Category names the error class used by the CLI error taxonomy.
func (e *DecodeError) Category() string { return "patch" }
