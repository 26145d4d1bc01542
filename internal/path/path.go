// Package path compiles and evaluates path expressions over value trees.
//
// The grammar is a small JSONPath subset:
//
//	$                   the root (optional)
//	.key  ['key']       object member
//	[n]                 array element, negative n counts from the end
//	.*  [*]             every array element or object member value
//	[?(@.k op literal)] children whose k compares true against literal
//	[?(@.k)]            children that have k
//
// Operators are ==, !=, <, <=, > and >=.
package path

import (
	"iter"
	"strconv"
	"strings"

	"github.com/mcncl/jsondoc/internal/formatter"
	"github.com/mcncl/jsondoc/internal/value"
)

type stepKind uint8

const (
	stepKey stepKind = iota
	stepIndex
	stepWildcard
	stepFilter
)

type step struct {
	kind   stepKind
	key    string
	index  int
	filter *filter
}

// filter is a predicate applied to each child of the current node.
type filter struct {
	target  []step
	op      Op
	operand *value.Value
}

// Expr is a compiled path expression. It is immutable and safe for
// concurrent use.
type Expr struct {
	src   string
	steps []step
}

// MustCompile is like Compile but panics on a malformed expression.
func MustCompile(expr string) *Expr {
	e, err := Compile(expr)
	if err != nil {
		panic(err)
	}
	return e
}

// Source returns the text the expression was compiled from.
func (e *Expr) Source() string { return e.src }

// Singular reports whether the expression addresses at most one node.
func (e *Expr) Singular() bool {
	for _, s := range e.steps {
		if s.kind == stepWildcard || s.kind == stepFilter {
			return false
		}
	}
	return true
}

// String renders the expression in canonical form, so equivalent spellings
// such as "a.b" and "$['a'].b" print the same.
func (e *Expr) String() string {
	var b strings.Builder
	b.WriteByte('$')
	writeSteps(&b, e.steps)
	return b.String()
}

func writeSteps(b *strings.Builder, steps []step) {
	for _, s := range steps {
		switch s.kind {
		case stepKey:
			if isIdent(s.key) {
				b.WriteByte('.')
				b.WriteString(s.key)
			} else {
				b.WriteString("['")
				b.WriteString(strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(s.key))
				b.WriteString("']")
			}
		case stepIndex:
			b.WriteByte('[')
			b.WriteString(strconv.Itoa(s.index))
			b.WriteByte(']')
		case stepWildcard:
			b.WriteString("[*]")
		case stepFilter:
			b.WriteString("[?(@")
			writeSteps(b, s.filter.target)
			if s.filter.op != Exists {
				b.WriteByte(' ')
				b.WriteString(s.filter.op.String())
				b.WriteByte(' ')
				b.WriteString(formatter.String(s.filter.operand))
			}
			b.WriteString(")]")
		}
	}
}

// Eval yields every node the expression matches, in document order.
func (e *Expr) Eval(root *value.Value) iter.Seq[*value.Value] {
	return func(yield func(*value.Value) bool) {
		for _, v := range e.EvalPaths(root) {
			if !yield(v) {
				return
			}
		}
	}
}

// EvalPaths yields every match together with its concrete path from root.
func (e *Expr) EvalPaths(root *value.Value) iter.Seq2[value.Path, *value.Value] {
	return func(yield func(value.Path, *value.Value) bool) {
		walk(e.steps, root, value.Path{}, yield)
	}
}

// First returns the first match.
func (e *Expr) First(root *value.Value) (*value.Value, bool) {
	for v := range e.Eval(root) {
		return v, true
	}
	return nil, false
}

// walk returns false once yield asks to stop.
func walk(steps []step, v *value.Value, p value.Path, yield func(value.Path, *value.Value) bool) bool {
	if len(steps) == 0 {
		return yield(p, v)
	}
	s, rest := steps[0], steps[1:]
	switch s.kind {
	case stepKey:
		child, err := v.Get(s.key)
		if err != nil {
			return true
		}
		return walk(rest, child, p.Key(s.key), yield)
	case stepIndex:
		i, ok := resolveIndex(v, s.index)
		if !ok {
			return true
		}
		child, _ := v.Index(i)
		return walk(rest, child, p.Index(i), yield)
	default:
		switch v.Kind() {
		case value.ArrayKind:
			for i, child := range v.Items() {
				if s.kind == stepFilter && !s.filter.match(child) {
					continue
				}
				if !walk(rest, child, p.Index(i), yield) {
					return false
				}
			}
		case value.ObjectKind:
			for key, child := range v.All() {
				if s.kind == stepFilter && !s.filter.match(child) {
					continue
				}
				if !walk(rest, child, p.Key(key), yield) {
					return false
				}
			}
		}
		return true
	}
}

func resolveIndex(v *value.Value, i int) (int, bool) {
	if v.Kind() != value.ArrayKind {
		return 0, false
	}
	if i < 0 {
		i += v.Len()
	}
	return i, i >= 0 && i < v.Len()
}

func (f *filter) match(v *value.Value) bool {
	cur := v
	for _, s := range f.target {
		var err error
		switch s.kind {
		case stepKey:
			cur, err = cur.Get(s.key)
		case stepIndex:
			i, ok := resolveIndex(cur, s.index)
			if !ok {
				return false
			}
			cur, err = cur.Index(i)
		}
		if err != nil {
			return false
		}
	}
	if f.op == Exists {
		return true
	}
	return Compare(cur, f.op, f.operand)
}

func isIdent(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z'):
		case i > 0 && r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return true
}
