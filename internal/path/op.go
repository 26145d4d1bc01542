package path

import (
	"fmt"
	"strings"

	"github.com/mcncl/jsondoc/internal/value"
)

// Op is a comparison operator.
type Op uint8

const (
	// Exists tests only that the filter target is present.
	Exists Op = iota
	Eq
	Ne
	Lt
	Le
	Gt
	Ge
)

var opNames = map[Op]string{
	Exists: "exists",
	Eq:     "==",
	Ne:     "!=",
	Lt:     "<",
	Le:     "<=",
	Gt:     ">",
	Ge:     ">=",
}

func (op Op) String() string {
	if s, ok := opNames[op]; ok {
		return s
	}
	return fmt.Sprintf("Op(%d)", uint8(op))
}

// ParseOp accepts both the symbolic spelling ("<=") and the short names
// used on the command line ("le").
func ParseOp(s string) (Op, error) {
	switch strings.ToLower(s) {
	case "==", "=", "eq":
		return Eq, nil
	case "!=", "ne":
		return Ne, nil
	case "<", "lt":
		return Lt, nil
	case "<=", "le":
		return Le, nil
	case ">", "gt":
		return Gt, nil
	case ">=", "ge":
		return Ge, nil
	}
	return 0, fmt.Errorf("unknown comparison operator %q", s)
}

// Compare applies op to a and b. Equality uses value.Equal. Ordering is
// defined between two numbers and between two strings; any other pairing
// compares false.
func Compare(a *value.Value, op Op, b *value.Value) bool {
	switch op {
	case Eq:
		return value.Equal(a, b)
	case Ne:
		return !value.Equal(a, b)
	case Exists:
		return a != nil
	}
	c, ok := order(a, b)
	if !ok {
		return false
	}
	switch op {
	case Lt:
		return c < 0
	case Le:
		return c <= 0
	case Gt:
		return c > 0
	case Ge:
		return c >= 0
	}
	return false
}

func order(a, b *value.Value) (int, bool) {
	switch {
	case a.Kind() == value.NumberKind && b.Kind() == value.NumberKind:
		x, _ := a.AsNumber()
		y, _ := b.AsNumber()
		if !x.IsFinite() || !y.IsFinite() {
			return 0, false
		}
		return x.Cmp(y), true
	case a.Kind() == value.StringKind && b.Kind() == value.StringKind:
		x, _ := a.AsString()
		y, _ := b.AsString()
		return strings.Compare(x, y), true
	}
	return 0, false
}
