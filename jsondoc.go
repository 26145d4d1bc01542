// Package jsondoc parses, validates, stores and transforms JSON documents.
//
// The root package gathers the engine's entry points; the packages under
// internal hold the implementations.
package jsondoc

import (
	"context"
	"io"
	"iter"

	"github.com/mcncl/jsondoc/internal/analyzer"
	"github.com/mcncl/jsondoc/internal/converter"
	"github.com/mcncl/jsondoc/internal/formatter"
	"github.com/mcncl/jsondoc/internal/parser"
	"github.com/mcncl/jsondoc/internal/schema"
	"github.com/mcncl/jsondoc/internal/storage"
	"github.com/mcncl/jsondoc/internal/transform"
	"github.com/mcncl/jsondoc/internal/value"
)

type (
	// Value is a node of a document tree.
	Value = value.Value
	// Path addresses a node by keys and indices.
	Path = value.Path

	ParseOptions   = parser.Options
	FormatOptions  = formatter.Options
	ConvertOptions = converter.Options
	StoreOptions   = storage.Options

	Validator = schema.Validator
	Captures  = schema.Captures
	Store     = storage.Store

	// Op is one step of a patch.
	Op     = transform.Op
	Policy = transform.Policy
)

// Merge policies.
const (
	PreferA        = transform.PreferA
	PreferB        = transform.PreferB
	FailOnConflict = transform.FailOnConflict
)

// Parse reads one strict RFC 8259 document.
func Parse(data []byte) (*Value, error) {
	return parser.ParseBytes(data, parser.DefaultOptions())
}

// ParseWith reads one document under opts, which may relax the grammar.
func ParseWith(data []byte, opts ParseOptions) (*Value, error) {
	return parser.ParseBytes(data, opts)
}

// Documents yields each whitespace-separated document of data in order. It
// stops after the first error.
func Documents(data []byte, opts ParseOptions) iter.Seq2[*Value, error] {
	return parser.Documents(data, opts)
}

// DocumentsReader is Documents over r. It reads r in chunks and holds one
// document at a time.
func DocumentsReader(r io.Reader, opts ParseOptions) iter.Seq2[*Value, error] {
	return parser.DocumentsReader(r, opts)
}

// Serialize writes v as JSON text. Zero options give the compact form.
func Serialize(v *Value, opts FormatOptions) ([]byte, error) {
	return formatter.Format(v, opts)
}

// SerializeTo streams v as JSON text to w.
func SerializeTo(w io.Writer, v *Value, opts FormatOptions) error {
	return formatter.Write(w, v, opts)
}

// Encode builds a document from native Go data.
func Encode(v any, opts ConvertOptions) (*Value, error) {
	return converter.Encode(v, opts)
}

// Decode fills target, which must be a non-nil pointer, from v.
func Decode(v *Value, target any, opts ConvertOptions) error {
	return converter.Decode(v, target, opts)
}

// CompileSchema compiles a schema document into a reusable validator.
func CompileSchema(s *Value) (*Validator, error) {
	return schema.Compile(s)
}

// Validate checks v against a compiled schema and returns what the
// schema's capture annotations collected.
func Validate(val *Validator, v *Value) (Captures, error) {
	return val.Validate(v)
}

// OpenStore opens or creates a document store at dsn. Use
// storage.MemoryPath for a private in-memory store.
func OpenStore(ctx context.Context, dsn string, opts StoreOptions) (*Store, error) {
	return storage.Open(ctx, dsn, opts)
}

// Diff returns the operations that turn a into b.
func Diff(a, b *Value) []Op {
	return transform.Diff(a, b)
}

// Patch applies ops to a copy of a. It fails without partial effect when an
// operation conflicts with the document.
func Patch(a *Value, ops []Op) (*Value, error) {
	return transform.Patch(a, ops)
}

// Merge combines two documents. Objects merge recursively; any other
// disagreement is settled by policy.
func Merge(a, b *Value, policy Policy) (*Value, error) {
	return transform.Merge(a, b, policy)
}

// Query yields the nodes of root matched by a path expression.
func Query(root *Value, expr string) (iter.Seq[*Value], error) {
	return transform.Query(root, expr)
}

// Equal reports whether a and b hold the same data. Member order is
// ignored and numbers compare by value.
func Equal(a, b *Value) bool {
	return transform.Equal(a, b)
}

// Infer derives a schema that accepts every sample.
func Infer(samples ...*Value) *Value {
	return analyzer.Infer(samples...)
}
