package value

// Equal reports whether a and b are structurally equal. Numbers compare by
// numeric value and object members compare regardless of order.
func Equal(a, b *Value) bool {
	return equal(a, b, false)
}

// EqualStrict is Equal that also requires numbers to share form and source
// literal.
func EqualStrict(a, b *Value) bool {
	return equal(a, b, true)
}

func equal(a, b *Value, strict bool) bool {
	if a == b {
		return true
	}
	if a.Kind() != b.Kind() {
		return false
	}
	switch a.Kind() {
	case NullKind:
		return true
	case BoolKind:
		return a.boolean == b.boolean
	case NumberKind:
		if strict {
			return a.num.StrictEqual(b.num)
		}
		return a.num.Equal(b.num)
	case StringKind:
		return a.str == b.str
	case ArrayKind:
		if len(a.items) != len(b.items) {
			return false
		}
		for i := range a.items {
			if !equal(a.items[i], b.items[i], strict) {
				return false
			}
		}
		return true
	case ObjectKind:
		if len(a.members) != len(b.members) {
			return false
		}
		for _, m := range a.members {
			j, ok := b.index[m.Key]
			if !ok || !equal(m.Value, b.members[j].Value, strict) {
				return false
			}
		}
		return true
	}
	return false
}
