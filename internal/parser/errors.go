package parser

import (
	"fmt"

	"github.com/mcncl/jsondoc/internal/lexer"
)

// ErrorKind classifies a parse failure.
type ErrorKind uint8

const (
	// Lex wraps a tokenizer error; see Unwrap.
	Lex ErrorKind = iota + 1
	UnexpectedToken
	DepthExceeded
	DuplicateKey
	TrailingData
	// MissingSeparator is a document that starts right where the previous
	// one ended.
	MissingSeparator
)

func (k ErrorKind) String() string {
	switch k {
	case Lex:
		return "lex error"
	case UnexpectedToken:
		return "unexpected token"
	case DepthExceeded:
		return "depth exceeded"
	case DuplicateKey:
		return "duplicate key"
	case TrailingData:
		return "trailing data"
	case MissingSeparator:
		return "missing separator"
	default:
		return "parse error"
	}
}

// Error reports where and why parsing stopped.
type Error struct {
	Kind     ErrorKind
	Expected string
	Found    string
	Key      string
	Limit    int
	Location lexer.Span
	Err      error
}

// Sentinels for errors.Is.
var (
	ErrUnexpectedToken  = &Error{Kind: UnexpectedToken}
	ErrDepthExceeded    = &Error{Kind: DepthExceeded}
	ErrDuplicateKey     = &Error{Kind: DuplicateKey}
	ErrTrailingData     = &Error{Kind: TrailingData}
	ErrMissingSeparator = &Error{Kind: MissingSeparator}
)

func (e *Error) Error() string {
	switch e.Kind {
	case Lex:
		return e.Err.Error()
	case UnexpectedToken:
		return fmt.Sprintf("unexpected %s at %s, expected %s", e.Found, e.Location, e.Expected)
	case DepthExceeded:
		return fmt.Sprintf("nesting deeper than %d at %s", e.Limit, e.Location)
	case DuplicateKey:
		return fmt.Sprintf("duplicate key %q at %s", e.Key, e.Location)
	case TrailingData:
		if e.Err != nil {
			return fmt.Sprintf("invalid data after top-level value: %v", e.Err)
		}
		return fmt.Sprintf("unexpected %s after top-level value at %s", e.Found, e.Location)
	case MissingSeparator:
		return fmt.Sprintf("unexpected %s at %s, documents must be separated by whitespace", e.Found, e.Location)
	default:
		return e.Kind.String()
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// Category names the error class used by the CLI error taxonomy.
func (e *Error) Category() string {
	if e.Kind == Lex {
		return "lex"
	}
	return "parsing"
}
