package parser

import (
	"bytes"
	stderrors "errors"
	"fmt"
	"io"
	"iter"
	"slices"

	"github.com/mcncl/jsondoc/internal/errors"
	"github.com/mcncl/jsondoc/internal/lexer"
	"github.com/mcncl/jsondoc/internal/value"
)

// chunkSize is how much DocumentsReader asks its source for at a time.
const chunkSize = 32 << 10

var bom = []byte{0xEF, 0xBB, 0xBF}

// Documents parses a stream of top-level documents separated by
// whitespace (or comments, when allowed). Iteration stops at end of input,
// after Options.MaxDocuments documents, or after the first error is
// yielded.
func Documents(data []byte, opts Options) iter.Seq2[*value.Value, error] {
	return DocumentsReader(bytes.NewReader(data), opts)
}

// DocumentsReader is Documents over a reader. It holds at most one
// document plus one chunk in memory, so long streams of small documents
// parse in bounded space. Error locations count from the start of the
// stream.
func DocumentsReader(r io.Reader, opts Options) iter.Seq2[*value.Value, error] {
	return func(yield func(*value.Value, error) bool) {
		s := &stream{r: r, opts: opts, at: lexer.Span{Line: 1, Column: 1}}
		if s.hasPrefix(bom) {
			s.consume(len(bom))
			s.at.Column = 1
		}

		for count := 0; opts.MaxDocuments <= 0 || count < opts.MaxDocuments; count++ {
			separated := s.skipSeparators()
			if _, ok := s.peek(0); !ok {
				if s.readErr != nil {
					yield(nil, errors.NewInputError("failed to read input", s.readErr))
				}
				return
			}
			if count > 0 && !separated {
				c, _ := s.peek(0)
				yield(nil, &Error{Kind: MissingSeparator, Found: quoteByte(c), Location: s.at})
				return
			}

			n := s.frame()
			start := s.at
			v, err := ParseBytes(s.buf[:n], opts)
			s.consume(n)
			if err != nil {
				if s.readErr != nil {
					err = errors.NewInputError("failed to read input", s.readErr)
				} else {
					err = relocate(err, start)
				}
				yield(nil, err)
				return
			}
			if !yield(v, nil) {
				return
			}
		}
	}
}

// stream buffers the unread part of a document source. buf[0] sits at
// position at.
type stream struct {
	r       io.Reader
	opts    Options
	buf     []byte
	chunk   []byte
	at      lexer.Span
	eof     bool
	readErr error
}

func (s *stream) fill() {
	if s.chunk == nil {
		s.chunk = make([]byte, chunkSize)
	}
	n, err := s.r.Read(s.chunk)
	s.buf = append(s.buf, s.chunk[:n]...)
	if err != nil {
		s.eof = true
		if err != io.EOF {
			s.readErr = err
		}
	}
}

// peek returns buf[i], reading more input as needed.
func (s *stream) peek(i int) (byte, bool) {
	for len(s.buf) <= i && !s.eof {
		s.fill()
	}
	if i < len(s.buf) {
		return s.buf[i], true
	}
	return 0, false
}

func (s *stream) hasPrefix(p []byte) bool {
	for i, c := range p {
		if b, ok := s.peek(i); !ok || b != c {
			return false
		}
	}
	return true
}

// consume drops the first n buffered bytes and advances at past them.
func (s *stream) consume(n int) {
	for _, c := range s.buf[:n] {
		s.at.Offset++
		if c == '\n' {
			s.at.Line++
			s.at.Column = 1
		} else {
			s.at.Column++
		}
	}
	if cap(s.buf) > 4*chunkSize {
		s.buf = slices.Clone(s.buf[n:])
		return
	}
	s.buf = append(s.buf[:0], s.buf[n:]...)
}

// skipSeparators consumes whitespace and complete comments and reports
// whether there were any.
func (s *stream) skipSeparators() bool {
	i := 0
	for {
		c, ok := s.peek(i)
		if !ok {
			break
		}
		if isSpace(c) {
			i++
			continue
		}
		if c == '/' && s.opts.AllowComments {
			if end, ok := s.comment(i); ok {
				i = end
				continue
			}
		}
		break
	}
	s.consume(i)
	return i > 0
}

// comment returns the index just past the comment starting at buf[i], or
// false when there is no complete comment there.
func (s *stream) comment(i int) (int, bool) {
	switch c, _ := s.peek(i + 1); c {
	case '/':
		j := i + 2
		for {
			c, ok := s.peek(j)
			if !ok || c == '\n' {
				return j, true
			}
			j++
		}
	case '*':
		for j := i + 2; ; j++ {
			c, ok := s.peek(j)
			if !ok {
				return 0, false
			}
			if c == '*' {
				if next, _ := s.peek(j + 1); next == '/' {
					return j + 2, true
				}
			}
		}
	}
	return 0, false
}

// frame returns the length of the document at the front of buf. It only
// finds the boundary; ParseBytes judges the contents, so a malformed
// document is framed as far as needed for the parser to report it.
func (s *stream) frame() int {
	c, _ := s.peek(0)
	switch c {
	case '{', '[':
		return s.frameContainer()
	case '"':
		return s.frameString(0)
	case '}', ']', ',', ':':
		return 1
	case '/':
		// A comment that skipSeparators left behind never ends.
		if next, _ := s.peek(1); next == '*' && s.opts.AllowComments {
			for !s.eof {
				s.fill()
			}
			return len(s.buf)
		}
		return 1
	}
	i := 0
	for {
		c, ok := s.peek(i)
		if !ok || isDelimiter(c) {
			break
		}
		i++
	}
	return max(i, 1)
}

// frameContainer stops one byte past the bracket that exceeds MaxDepth,
// which is as much as the parser reads before failing.
func (s *stream) frameContainer() int {
	depth := 0
	i := 0
	for {
		c, ok := s.peek(i)
		if !ok {
			return i
		}
		switch c {
		case '{', '[':
			depth++
			if depth > s.opts.maxDepth() {
				return i + 1
			}
		case '}', ']':
			depth--
			if depth == 0 {
				return i + 1
			}
		case '"':
			i = s.frameString(i)
			continue
		case '/':
			if s.opts.AllowComments {
				if end, ok := s.comment(i); ok {
					i = end
					continue
				}
			}
		}
		i++
	}
}

// frameString returns the index past the string starting at buf[i].
func (s *stream) frameString(i int) int {
	j := i + 1
	for {
		c, ok := s.peek(j)
		if !ok {
			return len(s.buf)
		}
		switch c {
		case '\\':
			j += 2
		case '"':
			return j + 1
		default:
			j++
		}
	}
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

func isDelimiter(c byte) bool {
	switch c {
	case '{', '}', '[', ']', ',', ':', '"', '/':
		return true
	}
	return isSpace(c)
}

func quoteByte(c byte) string {
	return fmt.Sprintf("%q", rune(c))
}

// relocate moves the positions in err, which count from the start of one
// document, to count from the start of the stream.
func relocate(err error, base lexer.Span) error {
	var pe *Error
	if !stderrors.As(err, &pe) {
		return err
	}
	pe.Location = shift(pe.Location, base)
	var le *lexer.Error
	if stderrors.As(pe.Err, &le) {
		at := shift(lexer.Span{Offset: le.Offset, Line: le.Line, Column: le.Column}, base)
		le.Offset, le.Line, le.Column = at.Offset, at.Line, at.Column
	}
	return err
}

func shift(at, base lexer.Span) lexer.Span {
	if at.Line == 0 {
		return at
	}
	if at.Line == 1 {
		at.Column += base.Column - 1
	}
	at.Line += base.Line - 1
	at.Offset += base.Offset
	return at
}
