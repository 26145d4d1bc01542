package schema

import (
	"fmt"

	"github.com/mcncl/jsondoc/internal/value"
)

// CompileErrorKind classifies a schema that cannot be compiled.
type CompileErrorKind uint8

const (
	UnknownSchemaRef CompileErrorKind = iota + 1
	InvalidKeyword
)

// CompileError reports a malformed schema. Path locates the offending
// keyword inside the schema document.
type CompileError struct {
	Kind    CompileErrorKind
	Keyword string
	Ref     string
	Path    value.Path
	Msg     string
	Err     error
}

// Sentinels for errors.Is.
var (
	ErrUnknownSchemaRef = &CompileError{Kind: UnknownSchemaRef}
	ErrInvalidKeyword   = &CompileError{Kind: InvalidKeyword}
)

func (e *CompileError) Error() string {
	if e.Kind == UnknownSchemaRef {
		return fmt.Sprintf("unknown schema reference %q at %s", e.Ref, e.Path)
	}
	msg := fmt.Sprintf("invalid keyword %q at %s", e.Keyword, e.Path)
	if e.Msg != "" {
		msg += ": " + e.Msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *CompileError) Unwrap() error { return e.Err }

// Is matches any CompileError of the same kind.
func (e *CompileError) Is(target error) bool {
	t, ok := target.(*CompileError)
	return ok && t.Kind == e.Kind
}

// Category names the error class used by the CLI error taxonomy.
func (e *CompileError) Category() string { return "compile" }

// ValidationError is the first rule a document broke, in document order.
type ValidationError struct {
	Path    value.Path
	Rule    string
	Message string
}

// ErrValidation matches every ValidationError with errors.Is.
var ErrValidation = &ValidationError{}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed at %s: %s: %s", e.Path, e.Rule, e.Message)
}

// Is matches a ValidationError with the same rule, or any when the target
// rule is empty.
func (e *ValidationError) Is(target error) bool {
	t, ok := target.(*ValidationError)
	return ok && (t.Rule == "" || t.Rule == e.Rule)
}

// Breadcrumbs returns the keys and indices leading to the failing value.
func (e *ValidationError) Breadcrumbs() []string {
	return e.Path.Breadcrumbs()
}

// Category names the error class used by the CLI error taxonomy.
func (e *ValidationError) Category() string { return "validation" }

func fail(path value.Path, rule, format string, args ...any) *ValidationError {
	return &ValidationError{Path: path, Rule: rule, Message: fmt.Sprintf(format, args...)}
}
