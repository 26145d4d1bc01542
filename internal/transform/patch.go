package transform

import (
	"github.com/mcncl/jsondoc/internal/value"
)

// Patch applies ops in order to a copy of a and returns the copy. It fails
// with a *ConflictError when an expected value does not match or a target
// path is absent; a is never modified.
func Patch(a *value.Value, ops []Op) (*value.Value, error) {
	root := a.Clone()
	for _, op := range ops {
		var err error
		root, err = apply(root, op)
		if err != nil {
			return nil, err
		}
	}
	return root, nil
}

func apply(root *value.Value, op Op) (*value.Value, error) {
	conflict := func(err error) *ConflictError {
		return &ConflictError{Op: op.Kind.String(), Path: op.Path, Err: err}
	}

	expect := op.Old
	if op.Kind == Test {
		expect = op.Value
	}
	if expect != nil {
		cur, err := root.Lookup(op.Path)
		if err != nil {
			return nil, conflict(err)
		}
		if !value.Equal(cur, expect) {
			return nil, &ConflictError{Op: op.Kind.String(), Path: op.Path, Expected: expect, Actual: cur}
		}
	}

	switch op.Kind {
	case Test:
		return root, nil
	case Add:
		if len(op.Path) == 0 {
			return op.Value.Clone(), nil
		}
		parent, err := root.Lookup(op.Path.Parent())
		if err != nil {
			return nil, conflict(err)
		}
		last := op.Path[len(op.Path)-1]
		if parent.Kind() == value.ArrayKind {
			i := last.Index
			if !last.IsIndex {
				if last.Key != "-" {
					return nil, conflict(value.ErrTypeMismatch)
				}
				i = parent.Len()
			}
			if err := parent.Insert(i, op.Value.Clone()); err != nil {
				return nil, conflict(err)
			}
			return root, nil
		}
		if err := root.SetPath(op.Path, op.Value.Clone()); err != nil {
			return nil, conflict(err)
		}
		return root, nil
	case Remove:
		if len(op.Path) == 0 {
			return nil, conflict(value.ErrKeyNotFound)
		}
		if _, err := root.RemovePath(op.Path); err != nil {
			return nil, conflict(err)
		}
		return root, nil
	case Replace:
		if len(op.Path) == 0 {
			return op.Value.Clone(), nil
		}
		if _, err := root.Lookup(op.Path); err != nil {
			return nil, conflict(err)
		}
		if err := root.SetPath(op.Path, op.Value.Clone()); err != nil {
			return nil, conflict(err)
		}
		return root, nil
	}
	return nil, &ConflictError{Op: op.Kind.String(), Path: op.Path}
}
