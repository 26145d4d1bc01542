package value

import "fmt"

// AccessKind classifies an AccessError.
type AccessKind uint8

const (
	TypeMismatch AccessKind = iota + 1
	IndexOutOfRange
	KeyNotFound
	// Shared is returned when a child that already has an owner is attached.
	Shared
	// Cycle is returned when a value would become its own descendant.
	Cycle
)

func (k AccessKind) String() string {
	switch k {
	case TypeMismatch:
		return "type mismatch"
	case IndexOutOfRange:
		return "index out of range"
	case KeyNotFound:
		return "key not found"
	case Shared:
		return "value already owned"
	case Cycle:
		return "cycle"
	default:
		return "access error"
	}
}

// AccessError reports a failed accessor or mutation on a Value.
type AccessError struct {
	Kind  AccessKind
	Op    string
	Want  Kind
	Got   Kind
	Index int
	Len   int
	Key   string
}

// Sentinels for errors.Is.
var (
	ErrTypeMismatch    = &AccessError{Kind: TypeMismatch}
	ErrIndexOutOfRange = &AccessError{Kind: IndexOutOfRange}
	ErrKeyNotFound     = &AccessError{Kind: KeyNotFound}
	ErrShared          = &AccessError{Kind: Shared}
	ErrCycle           = &AccessError{Kind: Cycle}
)

func (e *AccessError) Error() string {
	switch e.Kind {
	case TypeMismatch:
		return fmt.Sprintf("%s: type mismatch: want %s, got %s", e.Op, e.Want, e.Got)
	case IndexOutOfRange:
		return fmt.Sprintf("%s: index %d out of range [0,%d)", e.Op, e.Index, e.Len)
	case KeyNotFound:
		return fmt.Sprintf("%s: key %q not found", e.Op, e.Key)
	default:
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
}

// Is matches any AccessError of the same kind.
func (e *AccessError) Is(target error) bool {
	t, ok := target.(*AccessError)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

func mismatch(op string, want, got Kind) error {
	return &AccessError{Kind: TypeMismatch, Op: op, Want: want, Got: got}
}
