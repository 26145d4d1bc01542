// Package value holds the JSON value tree every other component works on.
//
// A Value owns its children exclusively: attaching a child that already
// belongs to another container fails with ErrShared, and attaching a value
// beneath itself fails with ErrCycle. Readers may share subtrees freely as
// long as they never mutate through them; use Clone to get a private copy.
package value

import "iter"

// Kind is the JSON type of a Value.
type Kind uint8

const (
	NullKind Kind = iota
	BoolKind
	NumberKind
	StringKind
	ArrayKind
	ObjectKind

	invalidKind Kind = 0xff
)

func (k Kind) String() string {
	switch k {
	case NullKind:
		return "null"
	case BoolKind:
		return "boolean"
	case NumberKind:
		return "number"
	case StringKind:
		return "string"
	case ArrayKind:
		return "array"
	case ObjectKind:
		return "object"
	default:
		return "invalid"
	}
}

// Member is one key/value pair of an object.
type Member struct {
	Key   string
	Value *Value
}

// Value is one node of a JSON tree. The zero Value is null.
type Value struct {
	kind    Kind
	boolean bool
	num     Number
	str     string
	items   []*Value
	members []Member
	index   map[string]int
	owned   bool
}

// NewNull returns a null value.
func NewNull() *Value { return &Value{kind: NullKind} }

// NewBool returns a boolean value.
func NewBool(b bool) *Value { return &Value{kind: BoolKind, boolean: b} }

// NewInt returns an exact integer number.
func NewInt(i int64) *Value { return &Value{kind: NumberKind, num: IntNumber(i)} }

// NewFloat returns a floating point number.
func NewFloat(f float64) *Value { return &Value{kind: NumberKind, num: FloatNumber(f)} }

// NewNumber wraps n.
func NewNumber(n Number) *Value { return &Value{kind: NumberKind, num: n} }

// NewString returns a string value.
func NewString(s string) *Value { return &Value{kind: StringKind, str: s} }

// NewArray returns an array owning items. It panics if an item is already
// owned or nil; use Append for checked construction.
func NewArray(items ...*Value) *Value {
	v := &Value{kind: ArrayKind, items: make([]*Value, 0, len(items))}
	for _, it := range items {
		if err := v.Append(it); err != nil {
			panic(err)
		}
	}
	return v
}

// NewObject returns an empty object.
func NewObject() *Value {
	return &Value{kind: ObjectKind, index: make(map[string]int)}
}

// Kind returns the JSON type of v; a nil Value reports null.
func (v *Value) Kind() Kind {
	if v == nil {
		return NullKind
	}
	return v.kind
}

// IsNull reports whether v is null.
func (v *Value) IsNull() bool { return v.Kind() == NullKind }

// Owned reports whether v is attached to a container.
func (v *Value) Owned() bool { return v != nil && v.owned }

// AsBool returns the boolean held by v.
func (v *Value) AsBool() (bool, error) {
	if v.Kind() != BoolKind {
		return false, mismatch("AsBool", BoolKind, v.Kind())
	}
	return v.boolean, nil
}

// AsNumber returns the number held by v.
func (v *Value) AsNumber() (Number, error) {
	if v.Kind() != NumberKind {
		return Number{}, mismatch("AsNumber", NumberKind, v.Kind())
	}
	return v.num, nil
}

// AsString returns the string held by v.
func (v *Value) AsString() (string, error) {
	if v.Kind() != StringKind {
		return "", mismatch("AsString", StringKind, v.Kind())
	}
	return v.str, nil
}

// Len returns the number of elements or members; scalars have length 0.
func (v *Value) Len() int {
	switch v.Kind() {
	case ArrayKind:
		return len(v.items)
	case ObjectKind:
		return len(v.members)
	default:
		return 0
	}
}

// Index returns the i-th element of an array.
func (v *Value) Index(i int) (*Value, error) {
	if v.Kind() != ArrayKind {
		return nil, mismatch("Index", ArrayKind, v.Kind())
	}
	if i < 0 || i >= len(v.items) {
		return nil, &AccessError{Kind: IndexOutOfRange, Op: "Index", Index: i, Len: len(v.items)}
	}
	return v.items[i], nil
}

// Items returns the elements of an array. The slice is a copy; the
// elements are shared and must not be mutated by the caller.
func (v *Value) Items() []*Value {
	if v.Kind() != ArrayKind {
		return nil
	}
	out := make([]*Value, len(v.items))
	copy(out, v.items)
	return out
}

// Append adds child to the end of an array and takes ownership of it.
func (v *Value) Append(child *Value) error {
	if v.Kind() != ArrayKind {
		return mismatch("Append", ArrayKind, v.Kind())
	}
	if err := v.adopt("Append", child); err != nil {
		return err
	}
	v.items = append(v.items, child)
	return nil
}

// Insert places child at position i, shifting later elements. i may equal
// Len to append.
func (v *Value) Insert(i int, child *Value) error {
	if v.Kind() != ArrayKind {
		return mismatch("Insert", ArrayKind, v.Kind())
	}
	if i < 0 || i > len(v.items) {
		return &AccessError{Kind: IndexOutOfRange, Op: "Insert", Index: i, Len: len(v.items)}
	}
	if err := v.adopt("Insert", child); err != nil {
		return err
	}
	v.items = append(v.items, nil)
	copy(v.items[i+1:], v.items[i:])
	v.items[i] = child
	return nil
}

// SetIndex replaces the i-th element; the previous element is released.
func (v *Value) SetIndex(i int, child *Value) error {
	if v.Kind() != ArrayKind {
		return mismatch("SetIndex", ArrayKind, v.Kind())
	}
	if i < 0 || i >= len(v.items) {
		return &AccessError{Kind: IndexOutOfRange, Op: "SetIndex", Index: i, Len: len(v.items)}
	}
	if v.items[i] == child {
		return nil
	}
	if err := v.adopt("SetIndex", child); err != nil {
		return err
	}
	v.items[i].owned = false
	v.items[i] = child
	return nil
}

// RemoveIndex detaches and returns the i-th element.
func (v *Value) RemoveIndex(i int) (*Value, error) {
	if v.Kind() != ArrayKind {
		return nil, mismatch("RemoveIndex", ArrayKind, v.Kind())
	}
	if i < 0 || i >= len(v.items) {
		return nil, &AccessError{Kind: IndexOutOfRange, Op: "RemoveIndex", Index: i, Len: len(v.items)}
	}
	old := v.items[i]
	v.items = append(v.items[:i], v.items[i+1:]...)
	old.owned = false
	return old, nil
}

// Get returns the member value stored under key.
func (v *Value) Get(key string) (*Value, error) {
	if v.Kind() != ObjectKind {
		return nil, mismatch("Get", ObjectKind, v.Kind())
	}
	i, ok := v.index[key]
	if !ok {
		return nil, &AccessError{Kind: KeyNotFound, Op: "Get", Key: key}
	}
	return v.members[i].Value, nil
}

// Has reports whether an object has key. It is false for non-objects.
func (v *Value) Has(key string) bool {
	if v.Kind() != ObjectKind {
		return false
	}
	_, ok := v.index[key]
	return ok
}

// Set stores child under key. An existing key keeps its position and its
// previous value is released.
func (v *Value) Set(key string, child *Value) error {
	if v.Kind() != ObjectKind {
		return mismatch("Set", ObjectKind, v.Kind())
	}
	if i, ok := v.index[key]; ok && v.members[i].Value == child {
		return nil
	}
	if err := v.adopt("Set", child); err != nil {
		return err
	}
	if i, ok := v.index[key]; ok {
		v.members[i].Value.owned = false
		v.members[i].Value = child
		return nil
	}
	if v.index == nil {
		v.index = make(map[string]int)
	}
	v.index[key] = len(v.members)
	v.members = append(v.members, Member{Key: key, Value: child})
	return nil
}

// Delete detaches and returns the member stored under key.
func (v *Value) Delete(key string) (*Value, error) {
	if v.Kind() != ObjectKind {
		return nil, mismatch("Delete", ObjectKind, v.Kind())
	}
	i, ok := v.index[key]
	if !ok {
		return nil, &AccessError{Kind: KeyNotFound, Op: "Delete", Key: key}
	}
	old := v.members[i].Value
	v.members = append(v.members[:i], v.members[i+1:]...)
	delete(v.index, key)
	for j := i; j < len(v.members); j++ {
		v.index[v.members[j].Key] = j
	}
	old.owned = false
	return old, nil
}

// Keys returns object keys in insertion order.
func (v *Value) Keys() []string {
	if v.Kind() != ObjectKind {
		return nil
	}
	keys := make([]string, len(v.members))
	for i, m := range v.members {
		keys[i] = m.Key
	}
	return keys
}

// Members returns a copy of the object's members in insertion order.
func (v *Value) Members() []Member {
	if v.Kind() != ObjectKind {
		return nil
	}
	out := make([]Member, len(v.members))
	copy(out, v.members)
	return out
}

// All iterates object members in insertion order.
func (v *Value) All() iter.Seq2[string, *Value] {
	return func(yield func(string, *Value) bool) {
		if v.Kind() != ObjectKind {
			return
		}
		for _, m := range v.members {
			if !yield(m.Key, m.Value) {
				return
			}
		}
	}
}

// adopt checks that child may be attached under v and marks it owned.
func (v *Value) adopt(op string, child *Value) error {
	if child == nil {
		return mismatch(op, NullKind, invalidKind)
	}
	if child.owned {
		return &AccessError{Kind: Shared, Op: op}
	}
	// Only owned values can sit beneath another root.
	if child == v || (v.owned && child.contains(v)) {
		return &AccessError{Kind: Cycle, Op: op}
	}
	child.owned = true
	return nil
}

// contains reports whether target is a strict descendant of v.
func (v *Value) contains(target *Value) bool {
	switch v.kind {
	case ArrayKind:
		for _, it := range v.items {
			if it == target || it.contains(target) {
				return true
			}
		}
	case ObjectKind:
		for _, m := range v.members {
			if m.Value == target || m.Value.contains(target) {
				return true
			}
		}
	}
	return false
}

// Clone returns a deep, unowned copy of v.
func (v *Value) Clone() *Value {
	if v == nil {
		return NewNull()
	}
	c := &Value{kind: v.kind, boolean: v.boolean, num: v.num, str: v.str}
	switch v.kind {
	case ArrayKind:
		c.items = make([]*Value, len(v.items))
		for i, it := range v.items {
			cc := it.Clone()
			cc.owned = true
			c.items[i] = cc
		}
	case ObjectKind:
		c.members = make([]Member, len(v.members))
		c.index = make(map[string]int, len(v.members))
		for i, m := range v.members {
			cc := m.Value.Clone()
			cc.owned = true
			c.members[i] = Member{Key: m.Key, Value: cc}
			c.index[m.Key] = i
		}
	}
	return c
}

// Depth returns the nesting depth; scalars and empty containers have
// depth 1.
func (v *Value) Depth() int {
	d := 0
	switch v.Kind() {
	case ArrayKind:
		for _, it := range v.items {
			d = max(d, it.Depth())
		}
	case ObjectKind:
		for _, m := range v.members {
			d = max(d, m.Value.Depth())
		}
	}
	return d + 1
}

// Size returns the number of nodes in the tree rooted at v.
func (v *Value) Size() int {
	n := 1
	switch v.Kind() {
	case ArrayKind:
		for _, it := range v.items {
			n += it.Size()
		}
	case ObjectKind:
		for _, m := range v.members {
			n += m.Value.Size()
		}
	}
	return n
}
