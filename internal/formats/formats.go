// Package formats converts documents to and from YAML, CSV, XML and INI.
//
// Every format carries less type information than JSON. Importers recover
// types where the source marks them (YAML tags) and otherwise infer them
// from the text of a cell: an empty cell is null, true and false are
// booleans, a JSON number literal is a number, and anything else is a
// string.
package formats

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/mcncl/jsondoc/internal/parser"
	"github.com/mcncl/jsondoc/internal/value"
)

// Format names a foreign document format.
type Format uint8

const (
	JSON Format = iota
	YAML
	CSV
	XML
	INI
)

var formatNames = []string{"json", "yaml", "csv", "xml", "ini"}

func (f Format) String() string {
	if int(f) < len(formatNames) {
		return formatNames[f]
	}
	return fmt.Sprintf("Format(%d)", uint8(f))
}

// ParseFormat reads a format name, case-insensitively. "yml" is accepted
// for YAML.
func ParseFormat(name string) (Format, error) {
	name = strings.ToLower(strings.TrimPrefix(name, "."))
	if name == "yml" {
		return YAML, nil
	}
	for i, n := range formatNames {
		if n == name {
			return Format(i), nil
		}
	}
	return 0, fmt.Errorf("unknown format %q (want json, yaml, csv, xml or ini)", name)
}

// FromExtension picks the format from a file name's extension. Unknown
// extensions report false.
func FromExtension(path string) (Format, bool) {
	f, err := ParseFormat(filepath.Ext(path))
	return f, err == nil
}

// Import reads data written in f. JSON input is parsed with opts.
func Import(f Format, data []byte, opts parser.Options) (*value.Value, error) {
	switch f {
	case JSON:
		return parser.ParseBytes(data, opts)
	case YAML:
		return FromYAML(data)
	case CSV:
		return FromCSV(data)
	case XML:
		return FromXML(data)
	case INI:
		return FromINI(data)
	}
	return nil, &Error{Format: f, Op: "import", Msg: "unsupported format"}
}

// Export writes v in f. JSON output is left to the caller's serializer.
func Export(f Format, v *value.Value) ([]byte, error) {
	switch f {
	case YAML:
		return ToYAML(v)
	case CSV:
		return ToCSV(v)
	case XML:
		return ToXML(v)
	case INI:
		return ToINI(v)
	}
	return nil, &Error{Format: f, Op: "export", Msg: "unsupported format"}
}

// Error reports a document that cannot be represented in, or read from, a
// foreign format.
type Error struct {
	Format Format
	Op     string
	Path   value.Path
	Msg    string
	Err    error
}

// ErrFormat matches every Error with errors.Is.
var ErrFormat = &Error{}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s %s: %s", e.Format, e.Op, e.Msg)
	if len(e.Path) > 0 {
		msg += " at " + e.Path.String()
	}
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
func (e *Error) Category() string { return "conversion" }

// inferScalar types a cell of text.
func inferScalar(s string) *value.Value {
	switch s {
	case "":
		return value.NewNull()
	case "true":
		return value.NewBool(true)
	case "false":
		return value.NewBool(false)
	}
	if value.ValidNumberLiteral(s) {
		if n, err := value.ParseNumber(s); err == nil {
			return value.NewNumber(n)
		}
	}
	return value.NewString(s)
}

// scalarText renders a scalar as cell text, the inverse of inferScalar.
// Containers report false.
func scalarText(v *value.Value) (string, bool) {
	switch v.Kind() {
	case value.NullKind:
		return "", true
	case value.BoolKind:
		b, _ := v.AsBool()
		if b {
			return "true", true
		}
		return "false", true
	case value.NumberKind:
		n, _ := v.AsNumber()
		return n.String(), true
	case value.StringKind:
		s, _ := v.AsString()
		return s, true
	}
	return "", false
}

// set attaches a freshly built child, replacing any earlier member.
func set(obj *value.Value, key string, child *value.Value) {
	if err := obj.Set(key, child); err != nil {
		panic(fmt.Sprintf("formats: set %q: %v", key, err))
	}
}

func appendItem(arr, child *value.Value) {
	if err := arr.Append(child); err != nil {
		panic(fmt.Sprintf("formats: append: %v", err))
	}
}
