// Package schema compiles JSON-described schemas into validators.
//
// A compiled Validator is an immutable graph of matchers. Named references
// ($ref) resolve to slots of a shared table, so recursive schemas compile to
// a finite graph and validate without unbounded expansion.
package schema

import (
	"github.com/mcncl/jsondoc/internal/parser"
	"github.com/mcncl/jsondoc/internal/value"
)

// Captures maps capture names to the validated values they bound. The
// values are shared with the validated document.
type Captures map[string]*value.Value

// Validator checks documents against a compiled schema. It is safe for
// concurrent use.
type Validator struct {
	root     matcher
	table    []matcher
	required []string
}

// Compile builds a Validator from a schema document. Compilation is all or
// nothing: any malformed keyword or unresolved reference fails the whole
// schema.
func Compile(s *value.Value) (*Validator, error) {
	c := newCompiler(s)
	i, err := c.resolve("")
	if err != nil {
		return nil, err
	}
	return &Validator{
		root:     c.table[i],
		table:    c.table,
		required: rootRequired(s),
	}, nil
}

// ParseFile reads and compiles a schema from a file
func ParseFile(path string) (*Validator, error) {
	s, err := parser.ParseFile(path, parser.DefaultOptions())
	if err != nil {
		return nil, err
	}
	return Compile(s)
}

// ParseBytes compiles a schema from JSON text
func ParseBytes(data []byte) (*Validator, error) {
	s, err := parser.ParseBytes(data, parser.DefaultOptions())
	if err != nil {
		return nil, err
	}
	return Compile(s)
}

// ParseString compiles a schema from a string
func ParseString(s string) (*Validator, error) {
	return ParseBytes([]byte(s))
}

// Validate checks v. On success it returns the captured values: every
// required property of a root object schema under its own key, plus every
// value matched by a schema carrying $capture. On failure it returns the
// first *ValidationError in document order.
func (val *Validator) Validate(v *value.Value) (Captures, error) {
	ctx := &validation{
		table:    val.table,
		captures: Captures{},
		active:   make(map[activeRef]bool),
	}
	if err := val.root.match(ctx, v, value.Path{}); err != nil {
		return nil, err
	}
	if v.Kind() == value.ObjectKind {
		for _, key := range val.required {
			if member, err := v.Get(key); err == nil {
				if _, taken := ctx.captures[key]; !taken {
					ctx.captures[key] = member
				}
			}
		}
	}
	return ctx.captures, nil
}

// Valid reports whether v satisfies the schema.
func (val *Validator) Valid(v *value.Value) bool {
	_, err := val.Validate(v)
	return err == nil
}
