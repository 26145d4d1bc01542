// Package lexer turns JSON text into tokens on demand.
//
// The lexer never reads ahead more than one token and never retains tokens
// it has handed out. After end of input or the first error it keeps
// returning that same result until Reset is called with the next document.
package lexer

import (
	"bytes"
	"fmt"
	"iter"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/mcncl/jsondoc/internal/value"
)

// Options relax the standard grammar.
type Options struct {
	// AllowComments skips // line comments and /* block */ comments
	// between tokens. Comments are a non-standard extension.
	AllowComments bool
}

// Lexer produces Tokens from a byte slice.
type Lexer struct {
	data      []byte
	pos       int
	line      int
	lineStart int
	opts      Options
	last      *Token
	err       error
	buf       []byte
}

var bom = []byte{0xEF, 0xBB, 0xBF}

// New returns a lexer over data.
func New(data []byte, opts Options) *Lexer {
	l := &Lexer{opts: opts}
	l.Reset(data)
	return l
}

// Reset restarts the lexer on a new document, keeping its options.
func (l *Lexer) Reset(data []byte) {
	l.data = data
	l.pos = 0
	l.line = 1
	l.lineStart = 0
	l.last = nil
	l.err = nil
	if bytes.HasPrefix(data, bom) {
		l.pos = len(bom)
		l.lineStart = len(bom)
	}
}

// Offset returns the byte offset of the next unread byte.
func (l *Lexer) Offset() int { return l.pos }

// Span returns the current position.
func (l *Lexer) Span() Span {
	return l.spanAt(l.pos)
}

func (l *Lexer) spanAt(off int) Span {
	return Span{Offset: off, Line: l.line, Column: off - l.lineStart + 1}
}

// Tokens returns the remaining tokens as a sequence. The sequence ends
// after the EOF token or after the first error.
func (l *Lexer) Tokens() iter.Seq2[Token, error] {
	return func(yield func(Token, error) bool) {
		for {
			tok, err := l.Next()
			if !yield(tok, err) || err != nil || tok.Kind == EOF {
				return
			}
		}
	}
}

// Next returns the next token.
func (l *Lexer) Next() (Token, error) {
	if l.err != nil {
		return Token{}, l.err
	}
	if l.last != nil {
		return *l.last, nil
	}
	tok, err := l.scan()
	if err != nil {
		l.err = err
		return Token{}, err
	}
	if tok.Kind == EOF {
		l.last = &tok
	}
	return tok, nil
}

func (l *Lexer) scan() (Token, error) {
	if err := l.skipSpace(); err != nil {
		return Token{}, err
	}
	start := l.spanAt(l.pos)
	if l.pos >= len(l.data) {
		return Token{Kind: EOF, Span: start}, nil
	}
	c := l.data[l.pos]
	switch c {
	case '{':
		l.pos++
		return Token{Kind: LeftBrace, Span: start}, nil
	case '}':
		l.pos++
		return Token{Kind: RightBrace, Span: start}, nil
	case '[':
		l.pos++
		return Token{Kind: LeftBracket, Span: start}, nil
	case ']':
		l.pos++
		return Token{Kind: RightBracket, Span: start}, nil
	case ':':
		l.pos++
		return Token{Kind: Colon, Span: start}, nil
	case ',':
		l.pos++
		return Token{Kind: Comma, Span: start}, nil
	case '"':
		return l.scanString(start)
	case 't':
		return l.scanLiteral(start, "true", True)
	case 'f':
		return l.scanLiteral(start, "false", False)
	case 'n':
		return l.scanLiteral(start, "null", Null)
	}
	if c == '-' || isDigit(c) {
		return l.scanNumber(start)
	}
	return Token{}, l.errorAt(UnexpectedByte, start, fmt.Sprintf("%q", l.word(l.pos)))
}

func (l *Lexer) skipSpace() error {
	for l.pos < len(l.data) {
		switch l.data[l.pos] {
		case ' ', '\t', '\r':
			l.pos++
		case '\n':
			l.pos++
			l.line++
			l.lineStart = l.pos
		case '/':
			if !l.opts.AllowComments {
				return nil
			}
			if err := l.skipComment(); err != nil {
				return err
			}
		default:
			return nil
		}
	}
	return nil
}

func (l *Lexer) skipComment() error {
	start := l.spanAt(l.pos)
	if l.pos+1 >= len(l.data) {
		return l.errorAt(UnexpectedByte, start, `"/"`)
	}
	switch l.data[l.pos+1] {
	case '/':
		l.pos += 2
		for l.pos < len(l.data) && l.data[l.pos] != '\n' {
			l.pos++
		}
		return nil
	case '*':
		l.pos += 2
		for l.pos < len(l.data) {
			if l.data[l.pos] == '*' && l.pos+1 < len(l.data) && l.data[l.pos+1] == '/' {
				l.pos += 2
				return nil
			}
			if l.data[l.pos] == '\n' {
				l.line++
				l.lineStart = l.pos + 1
			}
			l.pos++
		}
		return l.errorAt(UnterminatedComment, start, "")
	default:
		return l.errorAt(UnexpectedByte, start, `"/"`)
	}
}

func (l *Lexer) scanLiteral(start Span, lit string, kind Kind) (Token, error) {
	if !bytes.HasPrefix(l.data[l.pos:], []byte(lit)) {
		return Token{}, l.errorAt(UnexpectedByte, start, fmt.Sprintf("invalid literal %q", l.word(l.pos)))
	}
	l.pos += len(lit)
	return Token{Kind: kind, Span: start}, nil
}

func (l *Lexer) scanNumber(start Span) (Token, error) {
	end := l.pos
	for end < len(l.data) {
		c := l.data[end]
		if isDigit(c) || c == '-' || c == '+' || c == '.' || c == 'e' || c == 'E' {
			end++
			continue
		}
		break
	}
	lit := string(l.data[l.pos:end])
	if !value.ValidNumberLiteral(lit) {
		return Token{}, l.errorAt(InvalidNumber, start, fmt.Sprintf("%q", lit))
	}
	l.pos = end
	return Token{Kind: Number, Text: lit, Span: start}, nil
}

func (l *Lexer) scanString(start Span) (Token, error) {
	l.pos++ // opening quote
	runStart := l.pos
	l.buf = l.buf[:0]
	for l.pos < len(l.data) {
		c := l.data[l.pos]
		switch {
		case c == '"':
			l.buf = append(l.buf, l.data[runStart:l.pos]...)
			l.pos++
			return Token{Kind: String, Text: string(l.buf), Span: start}, nil
		case c == '\\':
			l.buf = append(l.buf, l.data[runStart:l.pos]...)
			if err := l.scanEscape(); err != nil {
				return Token{}, err
			}
			runStart = l.pos
		case c < 0x20:
			return Token{}, l.errorAt(UnexpectedByte, l.spanAt(l.pos), fmt.Sprintf("control character %#02x in string", c))
		case c < utf8.RuneSelf:
			l.pos++
		default:
			r, size := utf8.DecodeRune(l.data[l.pos:])
			if r == utf8.RuneError && size <= 1 {
				return Token{}, l.errorAt(InvalidUTF8, l.spanAt(l.pos), "")
			}
			l.pos += size
		}
	}
	return Token{}, l.errorAt(UnterminatedString, start, "")
}

// scanEscape decodes one escape sequence starting at the backslash.
func (l *Lexer) scanEscape() error {
	at := l.spanAt(l.pos)
	if l.pos+1 >= len(l.data) {
		return l.errorAt(UnterminatedString, at, "")
	}
	c := l.data[l.pos+1]
	l.pos += 2
	switch c {
	case '"', '\\', '/':
		l.buf = append(l.buf, c)
	case 'b':
		l.buf = append(l.buf, '\b')
	case 'f':
		l.buf = append(l.buf, '\f')
	case 'n':
		l.buf = append(l.buf, '\n')
	case 'r':
		l.buf = append(l.buf, '\r')
	case 't':
		l.buf = append(l.buf, '\t')
	case 'u':
		r, ok := l.hex4()
		if !ok {
			return l.errorAt(InvalidEscape, at, `malformed \u escape`)
		}
		switch {
		case utf16.IsSurrogate(r) && r < 0xDC00:
			if l.pos+1 >= len(l.data) || l.data[l.pos] != '\\' || l.data[l.pos+1] != 'u' {
				return l.errorAt(InvalidEscape, at, "unpaired high surrogate")
			}
			l.pos += 2
			lo, ok := l.hex4()
			if !ok || lo < 0xDC00 || lo > 0xDFFF {
				return l.errorAt(InvalidEscape, at, "unpaired high surrogate")
			}
			r = utf16.DecodeRune(r, lo)
		case utf16.IsSurrogate(r):
			return l.errorAt(InvalidEscape, at, "unpaired low surrogate")
		}
		l.buf = utf8.AppendRune(l.buf, r)
	default:
		return l.errorAt(InvalidEscape, at, fmt.Sprintf(`"\%c"`, c))
	}
	return nil
}

func (l *Lexer) hex4() (rune, bool) {
	if l.pos+4 > len(l.data) {
		return 0, false
	}
	var r rune
	for _, c := range l.data[l.pos : l.pos+4] {
		r <<= 4
		switch {
		case c >= '0' && c <= '9':
			r |= rune(c - '0')
		case c >= 'a' && c <= 'f':
			r |= rune(c - 'a' + 10)
		case c >= 'A' && c <= 'F':
			r |= rune(c - 'A' + 10)
		default:
			return 0, false
		}
	}
	l.pos += 4
	return r, true
}

// word returns the run of non-delimiter bytes at off, for messages.
func (l *Lexer) word(off int) string {
	end := off
	for end < len(l.data) && end-off < 32 {
		switch l.data[end] {
		case ' ', '\t', '\r', '\n', '{', '}', '[', ']', ',', ':', '"':
			if end == off {
				end++
			}
			return string(l.data[off:end])
		}
		end++
	}
	return string(l.data[off:end])
}

func (l *Lexer) errorAt(kind ErrorKind, at Span, msg string) error {
	return &Error{Kind: kind, Msg: msg, Offset: at.Offset, Line: at.Line, Column: at.Column}
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }
