package value

import (
	"fmt"
	"strconv"
	"strings"
)

// Segment is one step of a Path: an object key or an array index. Index
// segments also carry their decimal form in Key so they can address objects
// whose keys look like numbers.
type Segment struct {
	Key     string
	Index   int
	IsIndex bool
}

// KeySegment returns a segment addressing an object member.
func KeySegment(key string) Segment { return Segment{Key: key} }

// IndexSegment returns a segment addressing an array element.
func IndexSegment(i int) Segment {
	return Segment{Key: strconv.Itoa(i), Index: i, IsIndex: true}
}

// Path is a breadcrumb list from a root to a node. The empty path is the
// root itself.
type Path []Segment

// Key returns a copy of p extended with an object key.
func (p Path) Key(key string) Path { return p.with(KeySegment(key)) }

// Index returns a copy of p extended with an array index.
func (p Path) Index(i int) Path { return p.with(IndexSegment(i)) }

func (p Path) with(s Segment) Path {
	out := make(Path, len(p), len(p)+1)
	copy(out, p)
	return append(out, s)
}

// Parent returns p without its last segment.
func (p Path) Parent() Path {
	if len(p) == 0 {
		return p
	}
	return p[:len(p)-1]
}

// Equal reports whether p and q address the same node.
func (p Path) Equal(q Path) bool {
	if len(p) != len(q) {
		return false
	}
	for i := range p {
		if p[i].IsIndex != q[i].IsIndex || p[i].Key != q[i].Key {
			return false
		}
	}
	return true
}

// Breadcrumbs returns each segment as a string.
func (p Path) Breadcrumbs() []string {
	out := make([]string, len(p))
	for i, s := range p {
		out[i] = s.Key
	}
	return out
}

// String renders p as "$.a[0]['b c']".
func (p Path) String() string {
	var b strings.Builder
	b.WriteByte('$')
	for _, s := range p {
		switch {
		case s.IsIndex:
			b.WriteByte('[')
			b.WriteString(strconv.Itoa(s.Index))
			b.WriteByte(']')
		case isIdent(s.Key):
			b.WriteByte('.')
			b.WriteString(s.Key)
		default:
			b.WriteString("['")
			b.WriteString(strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(s.Key))
			b.WriteString("']")
		}
	}
	return b.String()
}

// Pointer renders p as an RFC 6901 JSON pointer.
func (p Path) Pointer() string {
	var b strings.Builder
	esc := strings.NewReplacer("~", "~0", "/", "~1")
	for _, s := range p {
		b.WriteByte('/')
		b.WriteString(esc.Replace(s.Key))
	}
	return b.String()
}

// ParsePointer parses an RFC 6901 JSON pointer. Tokens that are canonical
// decimal numbers become index segments; "-" stays a key segment and means
// "past the end" to array insertions.
func ParsePointer(ptr string) (Path, error) {
	if ptr == "" {
		return Path{}, nil
	}
	if ptr[0] != '/' {
		return nil, fmt.Errorf("json pointer %q must start with '/'", ptr)
	}
	unesc := strings.NewReplacer("~1", "/", "~0", "~")
	parts := strings.Split(ptr[1:], "/")
	out := make(Path, 0, len(parts))
	for _, part := range parts {
		tok := unesc.Replace(part)
		if n, ok := canonicalIndex(tok); ok {
			out = append(out, Segment{Key: tok, Index: n, IsIndex: true})
			continue
		}
		out = append(out, KeySegment(tok))
	}
	return out, nil
}

func canonicalIndex(tok string) (int, bool) {
	if tok == "" || (len(tok) > 1 && tok[0] == '0') {
		return 0, false
	}
	for i := 0; i < len(tok); i++ {
		if !isDigit(tok[i]) {
			return 0, false
		}
	}
	n, err := strconv.Atoi(tok)
	return n, err == nil
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

// Step resolves one segment against v. Index segments match arrays and,
// through their decimal Key, objects; key segments that are canonical
// numbers also address arrays.
func (v *Value) Step(s Segment) (*Value, error) {
	switch v.Kind() {
	case ArrayKind:
		i := s.Index
		if !s.IsIndex {
			n, ok := canonicalIndex(s.Key)
			if !ok {
				return nil, mismatch("Step", ObjectKind, ArrayKind)
			}
			i = n
		}
		return v.Index(i)
	case ObjectKind:
		return v.Get(s.Key)
	default:
		if s.IsIndex {
			return nil, mismatch("Step", ArrayKind, v.Kind())
		}
		return nil, mismatch("Step", ObjectKind, v.Kind())
	}
}

// Lookup follows p from v.
func (v *Value) Lookup(p Path) (*Value, error) {
	cur := v
	for _, s := range p {
		next, err := cur.Step(s)
		if err != nil {
			return nil, err
		}
		cur = next
	}
	return cur, nil
}

// SetPath stores child at p. The parent of p must already exist. On an
// array parent the index may equal the length, or the key may be "-", to
// append.
func (v *Value) SetPath(p Path, child *Value) error {
	if len(p) == 0 {
		return &AccessError{Kind: KeyNotFound, Op: "SetPath", Key: ""}
	}
	parent, err := v.Lookup(p.Parent())
	if err != nil {
		return err
	}
	last := p[len(p)-1]
	switch parent.Kind() {
	case ObjectKind:
		return parent.Set(last.Key, child)
	case ArrayKind:
		i, ok := arrayIndex(last, parent.Len())
		if !ok {
			return mismatch("SetPath", ObjectKind, ArrayKind)
		}
		if i == parent.Len() {
			return parent.Append(child)
		}
		return parent.SetIndex(i, child)
	default:
		return mismatch("SetPath", ObjectKind, parent.Kind())
	}
}

// RemovePath detaches and returns the value at p.
func (v *Value) RemovePath(p Path) (*Value, error) {
	if len(p) == 0 {
		return nil, &AccessError{Kind: KeyNotFound, Op: "RemovePath", Key: ""}
	}
	parent, err := v.Lookup(p.Parent())
	if err != nil {
		return nil, err
	}
	last := p[len(p)-1]
	switch parent.Kind() {
	case ObjectKind:
		return parent.Delete(last.Key)
	case ArrayKind:
		i, ok := arrayIndex(last, parent.Len())
		if !ok {
			return nil, mismatch("RemovePath", ObjectKind, ArrayKind)
		}
		return parent.RemoveIndex(i)
	default:
		return nil, mismatch("RemovePath", ObjectKind, parent.Kind())
	}
}

func arrayIndex(s Segment, n int) (int, bool) {
	if s.IsIndex {
		return s.Index, true
	}
	if s.Key == "-" {
		return n, true
	}
	return canonicalIndex(s.Key)
}
