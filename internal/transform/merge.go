package transform

import (
	"fmt"
	"strings"

	"github.com/mcncl/jsondoc/internal/value"
)

// Policy decides a merge conflict.
type Policy uint8

const (
	PreferA Policy = iota
	PreferB
	FailOnConflict
)

func (p Policy) String() string {
	switch p {
	case PreferA:
		return "prefer-a"
	case PreferB:
		return "prefer-b"
	case FailOnConflict:
		return "fail"
	}
	return fmt.Sprintf("Policy(%d)", uint8(p))
}

// ParsePolicy reads a policy name. Underscores and hyphens are
// interchangeable.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ReplaceAll(strings.ToLower(s), "_", "-") {
	case "prefer-a", "a":
		return PreferA, nil
	case "prefer-b", "b":
		return PreferB, nil
	case "fail", "fail-on-conflict":
		return FailOnConflict, nil
	}
	return 0, fmt.Errorf("unknown merge policy %q", s)
}

// Merge combines a and b into a new tree. Two objects merge key by key,
// recursively: members of a keep their order and members only in b follow
// in b's order. Any other pair of unequal values is a conflict decided by
// policy; FailOnConflict reports the first one as a *ConflictError.
func Merge(a, b *value.Value, policy Policy) (*value.Value, error) {
	return merge(a, b, value.Path{}, policy)
}

func merge(a, b *value.Value, p value.Path, policy Policy) (*value.Value, error) {
	if a.Kind() == value.ObjectKind && b.Kind() == value.ObjectKind {
		out := value.NewObject()
		for key, av := range a.All() {
			mv := av.Clone()
			if bv, err := b.Get(key); err == nil {
				if mv, err = merge(av, bv, p.Key(key), policy); err != nil {
					return nil, err
				}
			}
			if err := out.Set(key, mv); err != nil {
				return nil, err
			}
		}
		for key, bv := range b.All() {
			if a.Has(key) {
				continue
			}
			if err := out.Set(key, bv.Clone()); err != nil {
				return nil, err
			}
		}
		return out, nil
	}

	if value.Equal(a, b) {
		return a.Clone(), nil
	}
	switch policy {
	case PreferA:
		return a.Clone(), nil
	case PreferB:
		return b.Clone(), nil
	default:
		return nil, &ConflictError{Op: "merge", Path: p, Expected: a, Actual: b}
	}
}
