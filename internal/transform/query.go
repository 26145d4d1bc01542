package transform

import (
	"iter"

	"github.com/mcncl/jsondoc/internal/path"
	"github.com/mcncl/jsondoc/internal/value"
)

// Query compiles expr and returns a lazy sequence of the nodes it matches
// under root. The sequence can be ranged over more than once.
func Query(root *value.Value, expr string) (iter.Seq[*value.Value], error) {
	e, err := path.Compile(expr)
	if err != nil {
		return nil, err
	}
	return e.Eval(root), nil
}

// QueryPaths is like Query but also yields each match's concrete path.
func QueryPaths(root *value.Value, expr string) (iter.Seq2[value.Path, *value.Value], error) {
	e, err := path.Compile(expr)
	if err != nil {
		return nil, err
	}
	return e.EvalPaths(root), nil
}

// Equal reports whether a and b are structurally equal.
func Equal(a, b *value.Value) bool { return value.Equal(a, b) }
