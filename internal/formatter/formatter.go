// Package formatter writes value trees as JSON text.
package formatter

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"slices"
	"strings"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/mcncl/jsondoc/internal/value"
)

// bufferSize bounds the memory held between writes to the sink.
const bufferSize = 4096

// Tab indents nested lines with one tab per level.
const Tab = "\t"

// Options control the shape of the output.
type Options struct {
	// Indent is repeated once per nesting level. Empty means compact.
	Indent string
	// SortKeys writes object members in byte order of their keys instead of
	// insertion order.
	SortKeys bool
	// ASCIIOnly escapes every non-ASCII rune as \uXXXX.
	ASCIIOnly bool
	// FloatPrecision is the number of significant digits for computed
	// floats; 0 selects the shortest form that reads back exactly.
	FloatPrecision int
}

// Indent returns an indent of n spaces.
func Indent(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat(" ", n)
}

// Error wraps a failure of the underlying writer.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return fmt.Sprintf("serialize: %s: %v", e.Op, e.Err) }

func (e *Error) Unwrap() error { return e.Err }

// Category names the error class used by the CLI error taxonomy.
func (e *Error) Category() string { return "serialize" }

// Formatter serializes values with a fixed set of options.
type Formatter struct {
	opts Options
}

// NewFormatter creates a new Formatter instance
func NewFormatter(opts Options) *Formatter {
	return &Formatter{opts: opts}
}

// Options returns the options f was created with.
func (f *Formatter) Options() Options { return f.opts }

// Write streams v to w.
func (f *Formatter) Write(w io.Writer, v *value.Value) error {
	e := &emitter{w: bufio.NewWriterSize(w, bufferSize), opts: f.opts}
	e.value(v, 0)
	if e.err == nil {
		e.err = e.w.Flush()
	}
	if e.err != nil {
		return &Error{Op: "write", Err: e.err}
	}
	return nil
}

// Format returns v as JSON text.
func (f *Formatter) Format(v *value.Value) ([]byte, error) {
	var buf bytes.Buffer
	if err := f.Write(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// String returns v as JSON text. Writing to memory cannot fail.
func (f *Formatter) String(v *value.Value) string {
	var sb strings.Builder
	_ = f.Write(&sb, v)
	return sb.String()
}

// Write streams v to w using opts.
func Write(w io.Writer, v *value.Value, opts Options) error {
	return NewFormatter(opts).Write(w, v)
}

// Format returns v as JSON text using opts.
func Format(v *value.Value, opts Options) ([]byte, error) {
	return NewFormatter(opts).Format(v)
}

// String returns v as compact JSON text.
func String(v *value.Value) string {
	return NewFormatter(Options{}).String(v)
}

type emitter struct {
	w    *bufio.Writer
	opts Options
	err  error
}

func (e *emitter) writeString(s string) {
	if e.err == nil {
		_, e.err = e.w.WriteString(s)
	}
}

func (e *emitter) writeByte(c byte) {
	if e.err == nil {
		e.err = e.w.WriteByte(c)
	}
}

func (e *emitter) newline(depth int) {
	if e.opts.Indent == "" {
		return
	}
	e.writeByte('\n')
	for range depth {
		e.writeString(e.opts.Indent)
	}
}

func (e *emitter) value(v *value.Value, depth int) {
	if e.err != nil {
		return
	}
	switch v.Kind() {
	case value.NullKind:
		e.writeString("null")
	case value.BoolKind:
		b, _ := v.AsBool()
		if b {
			e.writeString("true")
		} else {
			e.writeString("false")
		}
	case value.NumberKind:
		n, _ := v.AsNumber()
		if !n.IsFinite() {
			e.writeString("null")
			return
		}
		e.writeString(n.Format(e.opts.FloatPrecision))
	case value.StringKind:
		s, _ := v.AsString()
		e.quote(s)
	case value.ArrayKind:
		e.array(v, depth)
	case value.ObjectKind:
		e.object(v, depth)
	default:
		e.writeString("null")
	}
}

func (e *emitter) array(v *value.Value, depth int) {
	items := v.Items()
	if len(items) == 0 {
		e.writeString("[]")
		return
	}
	e.writeByte('[')
	for i, item := range items {
		if i > 0 {
			e.writeByte(',')
		}
		e.newline(depth + 1)
		e.value(item, depth+1)
	}
	e.newline(depth)
	e.writeByte(']')
}

func (e *emitter) object(v *value.Value, depth int) {
	members := v.Members()
	if len(members) == 0 {
		e.writeString("{}")
		return
	}
	if e.opts.SortKeys {
		slices.SortStableFunc(members, func(a, b value.Member) int {
			return strings.Compare(a.Key, b.Key)
		})
	}
	e.writeByte('{')
	for i, m := range members {
		if i > 0 {
			e.writeByte(',')
		}
		e.newline(depth + 1)
		e.quote(m.Key)
		if e.opts.Indent != "" {
			e.writeString(": ")
		} else {
			e.writeByte(':')
		}
		e.value(m.Value, depth+1)
	}
	e.newline(depth)
	e.writeByte('}')
}

const hex = "0123456789abcdef"

func (e *emitter) quote(s string) {
	e.writeByte('"')
	start := 0
	for i := 0; i < len(s); {
		c := s[i]
		if c < utf8.RuneSelf {
			if c >= 0x20 && c != '"' && c != '\\' {
				i++
				continue
			}
			e.writeString(s[start:i])
			switch c {
			case '"', '\\':
				e.writeByte('\\')
				e.writeByte(c)
			case '\b':
				e.writeString(`\b`)
			case '\f':
				e.writeString(`\f`)
			case '\n':
				e.writeString(`\n`)
			case '\r':
				e.writeString(`\r`)
			case '\t':
				e.writeString(`\t`)
			default:
				e.writeString(`\u00`)
				e.writeByte(hex[c>>4])
				e.writeByte(hex[c&0xF])
			}
			i++
			start = i
			continue
		}
		r, size := utf8.DecodeRuneInString(s[i:])
		if r == utf8.RuneError && size == 1 {
			e.writeString(s[start:i])
			e.writeString(`\ufffd`)
			i += size
			start = i
			continue
		}
		if e.opts.ASCIIOnly {
			e.writeString(s[start:i])
			if r > 0xFFFF {
				hi, lo := utf16.EncodeRune(r)
				e.escapeRune(hi)
				e.escapeRune(lo)
			} else {
				e.escapeRune(r)
			}
			i += size
			start = i
			continue
		}
		i += size
	}
	e.writeString(s[start:])
	e.writeByte('"')
}

func (e *emitter) escapeRune(r rune) {
	e.writeString(`\u`)
	e.writeByte(hex[r>>12&0xF])
	e.writeByte(hex[r>>8&0xF])
	e.writeByte(hex[r>>4&0xF])
	e.writeByte(hex[r&0xF])
}
