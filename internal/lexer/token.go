package lexer

import "fmt"

// Kind is the lexical class of a Token.
type Kind uint8

const (
	EOF Kind = iota
	LeftBrace
	RightBrace
	LeftBracket
	RightBracket
	Colon
	Comma
	String
	Number
	True
	False
	Null
)

func (k Kind) String() string {
	switch k {
	case EOF:
		return "end of input"
	case LeftBrace:
		return "'{'"
	case RightBrace:
		return "'}'"
	case LeftBracket:
		return "'['"
	case RightBracket:
		return "']'"
	case Colon:
		return "':'"
	case Comma:
		return "','"
	case String:
		return "string"
	case Number:
		return "number"
	case True:
		return "'true'"
	case False:
		return "'false'"
	case Null:
		return "'null'"
	default:
		return "unknown token"
	}
}

// Span locates a token in its source. Line and Column are 1-based.
type Span struct {
	Offset int
	Line   int
	Column int
}

func (s Span) String() string {
	return fmt.Sprintf("line %d, column %d (offset %d)", s.Line, s.Column, s.Offset)
}

// Token is one lexical unit. Text holds the decoded contents of a string
// token or the literal of a number token.
type Token struct {
	Kind Kind
	Text string
	Span Span
}

// String generates a readable form of a token for error messages.
func (t Token) String() string {
	switch t.Kind {
	case String:
		return fmt.Sprintf("string %q", t.Text)
	case Number:
		return "number " + t.Text
	default:
		return t.Kind.String()
	}
}
