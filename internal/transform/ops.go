// Package transform compares, patches, merges and queries value trees.
//
// Diff and the query functions only read their inputs and may hand back
// nodes shared with them. Patch and Merge build fresh trees and never
// modify their arguments.
package transform

import (
	"fmt"

	"github.com/mcncl/jsondoc/internal/value"
)

// OpKind is the kind of a patch operation.
type OpKind uint8

const (
	Add OpKind = iota + 1
	Remove
	Replace
	// Test asserts the value at Path without changing anything.
	Test
)

var opKindNames = []string{Add: "add", Remove: "remove", Replace: "replace", Test: "test"}

func (k OpKind) String() string {
	if int(k) < len(opKindNames) && opKindNames[k] != "" {
		return opKindNames[k]
	}
	return fmt.Sprintf("OpKind(%d)", uint8(k))
}

func parseOpKind(s string) (OpKind, bool) {
	for k, name := range opKindNames {
		if name != "" && name == s {
			return OpKind(k), true
		}
	}
	return 0, false
}

// Op is one step of a patch. Value is the new value for Add and Replace
// and the asserted value for Test. Old, when set on Remove or Replace, is
// the value the target must currently hold.
type Op struct {
	Kind  OpKind
	Path  value.Path
	Value *value.Value
	Old   *value.Value
}

func (op Op) String() string {
	return fmt.Sprintf("%s %s", op.Kind, op.Path.Pointer())
}

// OpsToValue renders ops as an RFC 6902 document. An expected previous value
// becomes a "test" operation placed before the operation it guards.
func OpsToValue(ops []Op) *value.Value {
	out := value.NewArray()
	entry := func(kind OpKind, p value.Path, v *value.Value) {
		obj := value.NewObject()
		_ = obj.Set("op", value.NewString(kind.String()))
		_ = obj.Set("path", value.NewString(p.Pointer()))
		if v != nil {
			_ = obj.Set("value", v.Clone())
		}
		_ = out.Append(obj)
	}
	for _, op := range ops {
		if op.Old != nil && (op.Kind == Remove || op.Kind == Replace) {
			entry(Test, op.Path, op.Old)
		}
		switch op.Kind {
		case Remove:
			entry(op.Kind, op.Path, nil)
		default:
			entry(op.Kind, op.Path, op.Value)
		}
	}
	return out
}

// OpsFromValue reads an RFC 6902 document. A "test" immediately followed by
// a remove or replace of the same path is folded into that operation's Old.
func OpsFromValue(doc *value.Value) ([]Op, error) {
	if doc.Kind() != value.ArrayKind {
		return nil, &DecodeError{Index: -1, Msg: fmt.Sprintf("expected an array of operations, got %s", doc.Kind())}
	}
	var ops []Op
	for i, item := range doc.Items() {
		op, err := decodeOp(i, item)
		if err != nil {
			return nil, err
		}
		if n := len(ops); n > 0 && ops[n-1].Kind == Test && (op.Kind == Remove || op.Kind == Replace) && ops[n-1].Path.Equal(op.Path) {
			op.Old = ops[n-1].Value
			ops[n-1] = op
			continue
		}
		ops = append(ops, op)
	}
	return ops, nil
}

func decodeOp(i int, item *value.Value) (Op, error) {
	if item.Kind() != value.ObjectKind {
		return Op{}, &DecodeError{Index: i, Msg: "operation must be an object"}
	}
	str := func(key string) (string, error) {
		v, err := item.Get(key)
		if err != nil {
			return "", &DecodeError{Index: i, Msg: fmt.Sprintf("missing %q", key)}
		}
		s, err := v.AsString()
		if err != nil {
			return "", &DecodeError{Index: i, Msg: fmt.Sprintf("%q must be a string", key)}
		}
		return s, nil
	}
	name, err := str("op")
	if err != nil {
		return Op{}, err
	}
	kind, ok := parseOpKind(name)
	if !ok {
		return Op{}, &DecodeError{Index: i, Msg: fmt.Sprintf("unsupported op %q", name)}
	}
	ptr, err := str("path")
	if err != nil {
		return Op{}, err
	}
	p, err := value.ParsePointer(ptr)
	if err != nil {
		return Op{}, &DecodeError{Index: i, Msg: err.Error()}
	}
	op := Op{Kind: kind, Path: p}
	if kind != Remove {
		v, err := item.Get("value")
		if err != nil {
			return Op{}, &DecodeError{Index: i, Msg: fmt.Sprintf("%s needs a value", kind)}
		}
		op.Value = v
	}
	return op, nil
}
