package path

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/mcncl/jsondoc/internal/parser"
	"github.com/mcncl/jsondoc/internal/value"
)

// Error reports a malformed expression. Offset is the byte position of the
// problem within Expr.
type Error struct {
	Expr   string
	Offset int
	Msg    string
	Err    error
}

// ErrSyntax matches every Error with errors.Is.
var ErrSyntax = &Error{}

func (e *Error) Error() string {
	msg := fmt.Sprintf("path %q: offset %d: %s", e.Expr, e.Offset, e.Msg)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	_, ok := target.(*Error)
	return ok
}

// Category names the error class used by the CLI error taxonomy.
func (e *Error) Category() string { return "compile" }

type scanner struct {
	src string
	pos int
}

func (s *scanner) errorf(format string, args ...any) *Error {
	return &Error{Expr: s.src, Offset: s.pos, Msg: fmt.Sprintf(format, args...)}
}

func (s *scanner) eof() bool { return s.pos >= len(s.src) }

func (s *scanner) peek() byte {
	if s.eof() {
		return 0
	}
	return s.src[s.pos]
}

func (s *scanner) accept(prefix string) bool {
	if strings.HasPrefix(s.src[s.pos:], prefix) {
		s.pos += len(prefix)
		return true
	}
	return false
}

func (s *scanner) expect(prefix string) *Error {
	if !s.accept(prefix) {
		return s.errorf("expected %q", prefix)
	}
	return nil
}

func (s *scanner) skipSpace() {
	for !s.eof() && (s.src[s.pos] == ' ' || s.src[s.pos] == '\t') {
		s.pos++
	}
}

// Compile parses expr. The leading "$" is optional and a bare first key
// needs no dot, so "a.b", ".a.b" and "$.a.b" are the same expression.
func Compile(expr string) (*Expr, error) {
	s := &scanner{src: strings.TrimSpace(expr)}
	s.accept("$")
	var steps []step
	if !s.eof() && s.peek() != '.' && s.peek() != '[' {
		st, err := s.dotted(false)
		if err != nil {
			return nil, err
		}
		steps = append(steps, st)
	}
	rest, err := s.steps(false)
	if err != nil {
		return nil, err
	}
	return &Expr{src: expr, steps: append(steps, rest...)}, nil
}

// steps parses segments until the end of input or, inside a filter, until
// a character that cannot start a segment.
func (s *scanner) steps(inFilter bool) ([]step, *Error) {
	var out []step
	for !s.eof() {
		switch s.peek() {
		case '.':
			s.pos++
			st, err := s.dotted(inFilter)
			if err != nil {
				return nil, err
			}
			out = append(out, st)
		case '[':
			st, err := s.bracket(inFilter)
			if err != nil {
				return nil, err
			}
			out = append(out, st)
		default:
			if inFilter {
				return out, nil
			}
			return nil, s.errorf("unexpected %q", s.peek())
		}
	}
	return out, nil
}

func (s *scanner) dotted(inFilter bool) (step, *Error) {
	start := s.pos
	for !s.eof() && !strings.ContainsRune(".[", rune(s.peek())) {
		if inFilter && strings.ContainsRune(" \t)=!<>", rune(s.peek())) {
			break
		}
		s.pos++
	}
	key := s.src[start:s.pos]
	switch {
	case key == "":
		return step{}, s.errorf("expected a key after '.'")
	case key == "*" && !inFilter:
		return step{kind: stepWildcard}, nil
	}
	return step{kind: stepKey, key: key}, nil
}

func (s *scanner) bracket(inFilter bool) (step, *Error) {
	open := s.pos
	s.pos++
	switch c := s.peek(); {
	case c == '*' && !inFilter:
		s.pos++
		if err := s.expect("]"); err != nil {
			return step{}, err
		}
		return step{kind: stepWildcard}, nil
	case c == '\'' || c == '"':
		key, err := s.quoted()
		if err != nil {
			return step{}, err
		}
		if err := s.expect("]"); err != nil {
			return step{}, err
		}
		return step{kind: stepKey, key: key}, nil
	case c == '?' && !inFilter:
		s.pos++
		f, err := s.filter()
		if err != nil {
			return step{}, err
		}
		return step{kind: stepFilter, filter: f}, nil
	case c == '-' || (c >= '0' && c <= '9'):
		start := s.pos
		s.pos++
		for !s.eof() && s.peek() >= '0' && s.peek() <= '9' {
			s.pos++
		}
		n, err := strconv.Atoi(s.src[start:s.pos])
		if err != nil {
			s.pos = start
			return step{}, s.errorf("bad index")
		}
		if err := s.expect("]"); err != nil {
			return step{}, err
		}
		return step{kind: stepIndex, index: n}, nil
	default:
		s.pos = open
		return step{}, s.errorf("malformed bracket segment")
	}
}

// quoted reads a single- or double-quoted key. Backslash escapes the
// quote and itself; double-quoted keys follow JSON string rules.
func (s *scanner) quoted() (string, *Error) {
	start := s.pos
	q := s.peek()
	s.pos++
	var b strings.Builder
	for !s.eof() {
		c := s.peek()
		switch {
		case c == q:
			s.pos++
			if q == '"' {
				v, err := parser.ParseString(s.src[start:s.pos], parser.DefaultOptions())
				if err != nil {
					return "", &Error{Expr: s.src, Offset: start, Msg: "bad string", Err: err}
				}
				str, _ := v.AsString()
				return str, nil
			}
			return b.String(), nil
		case c == '\\' && s.pos+1 < len(s.src):
			s.pos++
			if q == '"' {
				b.WriteByte('\\')
			}
			b.WriteByte(s.src[s.pos])
			s.pos++
		default:
			b.WriteByte(c)
			s.pos++
		}
	}
	s.pos = start
	return "", s.errorf("unterminated quoted key")
}

func (s *scanner) filter() (*filter, *Error) {
	if err := s.expect("("); err != nil {
		return nil, err
	}
	s.skipSpace()
	if err := s.expect("@"); err != nil {
		return nil, err
	}
	target, err := s.steps(true)
	if err != nil {
		return nil, err
	}
	f := &filter{target: target, op: Exists}
	s.skipSpace()
	if !s.accept(")") {
		f.op, err = s.operator()
		if err != nil {
			return nil, err
		}
		s.skipSpace()
		f.operand, err = s.literal()
		if err != nil {
			return nil, err
		}
		s.skipSpace()
		if err := s.expect(")"); err != nil {
			return nil, err
		}
	}
	if err := s.expect("]"); err != nil {
		return nil, err
	}
	return f, nil
}

func (s *scanner) operator() (Op, *Error) {
	for _, sym := range []string{"==", "!=", "<=", ">=", "<", ">"} {
		if s.accept(sym) {
			op, _ := ParseOp(sym)
			return op, nil
		}
	}
	return 0, s.errorf("expected a comparison operator")
}

// literal reads a JSON scalar. Single-quoted strings are accepted too.
func (s *scanner) literal() (*value.Value, *Error) {
	start := s.pos
	switch s.peek() {
	case '\'', '"':
		str, err := s.quoted()
		if err != nil {
			return nil, err
		}
		return value.NewString(str), nil
	}
	for !s.eof() && !strings.ContainsRune(" \t)", rune(s.peek())) {
		s.pos++
	}
	v, err := parser.ParseString(s.src[start:s.pos], parser.DefaultOptions())
	if err != nil || v.Kind() == value.ArrayKind || v.Kind() == value.ObjectKind {
		s.pos = start
		return nil, &Error{Expr: s.src, Offset: start, Msg: "expected a scalar literal", Err: err}
	}
	return v, nil
}
