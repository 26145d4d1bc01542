package lexer

import "fmt"

// ErrorKind classifies a lexical error.
type ErrorKind uint8

const (
	UnterminatedString ErrorKind = iota + 1
	InvalidEscape
	InvalidNumber
	UnexpectedByte
	InvalidUTF8
	UnterminatedComment
)

func (k ErrorKind) String() string {
	switch k {
	case UnterminatedString:
		return "unterminated string"
	case InvalidEscape:
		return "invalid escape"
	case InvalidNumber:
		return "invalid number"
	case UnexpectedByte:
		return "unexpected byte"
	case InvalidUTF8:
		return "invalid UTF-8"
	case UnterminatedComment:
		return "unterminated comment"
	default:
		return "lex error"
	}
}

// Error is a lexical error at a byte offset.
type Error struct {
	Kind   ErrorKind
	Msg    string
	Offset int
	Line   int
	Column int
}

// Sentinels for errors.Is.
var (
	ErrUnterminatedString  = &Error{Kind: UnterminatedString}
	ErrInvalidEscape       = &Error{Kind: InvalidEscape}
	ErrInvalidNumber       = &Error{Kind: InvalidNumber}
	ErrUnexpectedByte      = &Error{Kind: UnexpectedByte}
	ErrInvalidUTF8         = &Error{Kind: InvalidUTF8}
	ErrUnterminatedComment = &Error{Kind: UnterminatedComment}
)

func (e *Error) Error() string {
	if e.Msg == "" {
		return fmt.Sprintf("%s at line %d, column %d (offset %d)", e.Kind, e.Line, e.Column, e.Offset)
	}
	return fmt.Sprintf("%s: %s at line %d, column %d (offset %d)", e.Kind, e.Msg, e.Line, e.Column, e.Offset)
}

// Is matches any Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}
