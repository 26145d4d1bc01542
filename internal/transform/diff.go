package transform

import "github.com/mcncl/jsondoc/internal/value"

// Diff returns the operations that turn a into b. Objects are compared
// member by member and arrays element by element; any other difference
// becomes a Replace of the whole node. Remove and Replace carry the value
// they expect to find, so applying the result to anything but a fails.
//
// The returned operations share nodes with a and b.
func Diff(a, b *value.Value) []Op {
	var ops []Op
	diff(a, b, value.Path{}, &ops)
	return ops
}

func diff(a, b *value.Value, p value.Path, ops *[]Op) {
	if value.Equal(a, b) {
		return
	}
	switch {
	case a.Kind() == value.ObjectKind && b.Kind() == value.ObjectKind:
		for key, av := range a.All() {
			bv, err := b.Get(key)
			if err != nil {
				*ops = append(*ops, Op{Kind: Remove, Path: p.Key(key), Old: av})
				continue
			}
			diff(av, bv, p.Key(key), ops)
		}
		for key, bv := range b.All() {
			if !a.Has(key) {
				*ops = append(*ops, Op{Kind: Add, Path: p.Key(key), Value: bv})
			}
		}
	case a.Kind() == value.ArrayKind && b.Kind() == value.ArrayKind:
		ai, bi := a.Items(), b.Items()
		common := min(len(ai), len(bi))
		for i := range common {
			diff(ai[i], bi[i], p.Index(i), ops)
		}
		for i := common; i < len(bi); i++ {
			*ops = append(*ops, Op{Kind: Add, Path: p.Index(i), Value: bi[i]})
		}
		// Trailing removals run back to front so earlier indices stay valid.
		for i := len(ai) - 1; i >= common; i-- {
			*ops = append(*ops, Op{Kind: Remove, Path: p.Index(i), Old: ai[i]})
		}
	default:
		*ops = append(*ops, Op{Kind: Replace, Path: p, Value: b, Old: a})
	}
}
