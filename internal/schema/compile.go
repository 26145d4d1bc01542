package schema

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/mcncl/jsondoc/internal/value"
)

var typeNames = map[string]bool{
	"null": true, "boolean": true, "number": true, "integer": true,
	"string": true, "array": true, "object": true,
}

type compiler struct {
	root     *value.Value
	table    []matcher
	refIndex map[string]int
	patterns map[string]*regexp.Regexp
}

func newCompiler(root *value.Value) *compiler {
	return &compiler{
		root:     root,
		refIndex: make(map[string]int),
		patterns: make(map[string]*regexp.Regexp),
	}
}

func invalid(path value.Path, keyword, format string, args ...any) *CompileError {
	return &CompileError{Kind: InvalidKeyword, Keyword: keyword, Path: path.Key(keyword), Msg: fmt.Sprintf(format, args...)}
}

// target resolves a $ref string to a pointer into the schema document.
func (c *compiler) target(ref string) (string, bool) {
	if strings.HasPrefix(ref, "#") {
		ptr := ref[1:]
		p, err := value.ParsePointer(ptr)
		if err != nil {
			return "", false
		}
		if _, err := c.root.Lookup(p); err != nil {
			return "", false
		}
		return ptr, true
	}
	for _, section := range []string{"definitions", "$defs"} {
		p := value.Path{}.Key(section).Key(ref)
		if _, err := c.root.Lookup(p); err == nil {
			return p.Pointer(), true
		}
	}
	return "", false
}

// resolve returns the table slot for a pointer, compiling it on first use.
// The slot is reserved before compiling so cycles end at the reservation.
func (c *compiler) resolve(ptr string) (int, error) {
	if i, ok := c.refIndex[ptr]; ok {
		return i, nil
	}
	p, err := value.ParsePointer(ptr)
	if err != nil {
		return 0, err
	}
	sv, err := c.root.Lookup(p)
	if err != nil {
		return 0, err
	}
	i := len(c.table)
	c.table = append(c.table, nil)
	c.refIndex[ptr] = i
	m, err := c.compile(sv, p)
	if err != nil {
		return 0, err
	}
	c.table[i] = m
	return i, nil
}

func (c *compiler) compile(s *value.Value, path value.Path) (matcher, error) {
	switch s.Kind() {
	case value.BoolKind:
		b, _ := s.AsBool()
		return boolMatcher(b), nil
	case value.ObjectKind:
	default:
		return nil, &CompileError{Kind: InvalidKeyword, Keyword: "schema", Path: path, Msg: fmt.Sprintf("schema must be an object or boolean, got %s", s.Kind())}
	}

	n := &node{}
	if ref, err := s.Get("$ref"); err == nil {
		name, err := ref.AsString()
		if err != nil {
			return nil, invalid(path, "$ref", "must be a string")
		}
		ptr, ok := c.target(name)
		if !ok {
			return nil, &CompileError{Kind: UnknownSchemaRef, Ref: name, Path: path.Key("$ref")}
		}
		i, err := c.resolve(ptr)
		if err != nil {
			return nil, err
		}
		n.checks = append(n.checks, &refMatcher{index: i, ref: name})
	}

	if err := c.compileMeta(s, path, n); err != nil {
		return nil, err
	}
	if err := c.compileType(s, path, n); err != nil {
		return nil, err
	}
	if err := c.compileValues(s, path, n); err != nil {
		return nil, err
	}
	if err := c.compileNumber(s, path, n); err != nil {
		return nil, err
	}
	if err := c.compileString(s, path, n); err != nil {
		return nil, err
	}
	if err := c.compileArray(s, path, n); err != nil {
		return nil, err
	}
	if err := c.compileObject(s, path, n); err != nil {
		return nil, err
	}
	if err := c.compileComposition(s, path, n); err != nil {
		return nil, err
	}

	for _, section := range []string{"definitions", "$defs"} {
		defs, err := s.Get(section)
		if err != nil {
			continue
		}
		if defs.Kind() != value.ObjectKind {
			return nil, invalid(path, section, "must be an object")
		}
		for _, name := range defs.Keys() {
			if _, err := c.resolve(path.Key(section).Key(name).Pointer()); err != nil {
				return nil, err
			}
		}
	}
	return n, nil
}

func (c *compiler) compileMeta(s *value.Value, path value.Path, n *node) error {
	if v, err := s.Get("nullable"); err == nil {
		b, err := v.AsBool()
		if err != nil {
			return invalid(path, "nullable", "must be a boolean")
		}
		n.nullable = b
	}
	if v, err := s.Get("$capture"); err == nil {
		name, err := v.AsString()
		if err != nil || name == "" {
			return invalid(path, "$capture", "must be a non-empty string")
		}
		n.capture = name
	}
	return nil
}

func (c *compiler) compileType(s *value.Value, path value.Path, n *node) error {
	v, err := s.Get("type")
	if err != nil {
		return nil
	}
	var names []string
	switch v.Kind() {
	case value.StringKind:
		name, _ := v.AsString()
		names = []string{name}
	case value.ArrayKind:
		for _, item := range v.Items() {
			name, err := item.AsString()
			if err != nil {
				return invalid(path, "type", "array entries must be strings")
			}
			names = append(names, name)
		}
	default:
		return invalid(path, "type", "must be a string or an array of strings")
	}
	for _, name := range names {
		if !typeNames[name] {
			return invalid(path, "type", "unknown type %q", name)
		}
	}
	n.checks = append(n.checks, typeMatcher(names))
	return nil
}

func (c *compiler) compileValues(s *value.Value, path value.Path, n *node) error {
	if v, err := s.Get("const"); err == nil {
		n.checks = append(n.checks, constMatcher{want: v})
	}
	if v, err := s.Get("enum"); err == nil {
		if v.Kind() != value.ArrayKind || v.Len() == 0 {
			return invalid(path, "enum", "must be a non-empty array")
		}
		n.checks = append(n.checks, enumMatcher(v.Items()))
	}
	return nil
}

func (c *compiler) compileNumber(s *value.Value, path value.Path, n *node) error {
	m := &numberMatcher{}
	used := false
	number := func(keyword string) (*value.Number, error) {
		v, err := s.Get(keyword)
		if err != nil {
			return nil, nil
		}
		num, err := v.AsNumber()
		if err != nil || !num.IsFinite() {
			return nil, invalid(path, keyword, "must be a number")
		}
		used = true
		return &num, nil
	}

	lo, err := number("minimum")
	if err != nil {
		return err
	}
	hi, err := number("maximum")
	if err != nil {
		return err
	}
	if lo != nil {
		m.min = &bound{n: *lo}
	}
	if hi != nil {
		m.max = &bound{n: *hi}
	}

	// exclusiveMinimum/Maximum are either bounds of their own or, in the
	// older boolean form, modifiers of minimum/maximum.
	for _, kw := range []string{"exclusiveMinimum", "exclusiveMaximum"} {
		v, err := s.Get(kw)
		if err != nil {
			continue
		}
		target := &m.min
		if kw == "exclusiveMaximum" {
			target = &m.max
		}
		if b, err := v.AsBool(); err == nil {
			if b && *target != nil {
				(*target).exclusive = true
			}
			continue
		}
		num, err := number(kw)
		if err != nil {
			return err
		}
		*target = tighter(*target, &bound{n: *num, exclusive: true}, kw == "exclusiveMinimum")
	}

	if mult, err := number("multipleOf"); err != nil {
		return err
	} else if mult != nil {
		r, ok := numberRat(*mult)
		if !ok || r.Sign() <= 0 {
			return invalid(path, "multipleOf", "must be greater than zero")
		}
		m.multipleOf = r
	}

	if used || m.min != nil || m.max != nil {
		n.checks = append(n.checks, m)
	}
	return nil
}

// tighter picks the more restrictive of two bounds.
func tighter(a, b *bound, lower bool) *bound {
	if a == nil {
		return b
	}
	c := a.n.Cmp(b.n)
	switch {
	case c == 0:
		if b.exclusive {
			return b
		}
		return a
	case (c < 0) == lower:
		return b
	default:
		return a
	}
}

func nonNegative(s *value.Value, path value.Path, keyword string, def int) (int, error) {
	v, err := s.Get(keyword)
	if err != nil {
		return def, nil
	}
	num, err := v.AsNumber()
	if err != nil {
		return 0, invalid(path, keyword, "must be a non-negative integer")
	}
	i, ok := num.Int64()
	if !ok || i < 0 || i > int64(^uint32(0)) {
		return 0, invalid(path, keyword, "must be a non-negative integer")
	}
	return int(i), nil
}

func (c *compiler) compileString(s *value.Value, path value.Path, n *node) error {
	m := &stringMatcher{maxLength: -1}
	used := s.Has("minLength") || s.Has("maxLength")
	var err error
	if m.minLength, err = nonNegative(s, path, "minLength", 0); err != nil {
		return err
	}
	if m.maxLength, err = nonNegative(s, path, "maxLength", -1); err != nil {
		return err
	}
	if v, err := s.Get("pattern"); err == nil {
		src, err := v.AsString()
		if err != nil {
			return invalid(path, "pattern", "must be a string")
		}
		re, ok := c.patterns[src]
		if !ok {
			re, err = regexp.Compile(src)
			if err != nil {
				ce := invalid(path, "pattern", "bad regular expression")
				ce.Err = err
				return ce
			}
			c.patterns[src] = re
		}
		m.pattern = re
		used = true
	}
	if v, err := s.Get("format"); err == nil {
		name, err := v.AsString()
		if err != nil {
			return invalid(path, "format", "must be a string")
		}
		check, ok := formats[name]
		if !ok {
			return invalid(path, "format", "unsupported format %q", name)
		}
		m.format, m.checkFormat = name, check
		used = true
	}
	if used {
		n.checks = append(n.checks, m)
	}
	return nil
}

func (c *compiler) compileArray(s *value.Value, path value.Path, n *node) error {
	m := &arrayMatcher{maxItems: -1}
	var err error
	if m.minItems, err = nonNegative(s, path, "minItems", 0); err != nil {
		return err
	}
	if m.maxItems, err = nonNegative(s, path, "maxItems", -1); err != nil {
		return err
	}
	used := s.Has("minItems") || s.Has("maxItems")
	if v, err := s.Get("uniqueItems"); err == nil {
		b, err := v.AsBool()
		if err != nil {
			return invalid(path, "uniqueItems", "must be a boolean")
		}
		m.unique = b
		used = true
	}
	if v, err := s.Get("items"); err == nil {
		if v.Kind() == value.ArrayKind {
			m.tuple = make([]matcher, 0, v.Len())
			for i, item := range v.Items() {
				im, err := c.compile(item, path.Key("items").Index(i))
				if err != nil {
					return err
				}
				m.tuple = append(m.tuple, im)
			}
		} else {
			im, err := c.compile(v, path.Key("items"))
			if err != nil {
				return err
			}
			m.items = im
		}
		used = true
	}
	if used {
		n.checks = append(n.checks, m)
	}
	return nil
}

func (c *compiler) compileObject(s *value.Value, path value.Path, n *node) error {
	m := &objectMatcher{byKey: make(map[string]matcher), maxProperties: -1}
	used := false
	if v, err := s.Get("properties"); err == nil {
		if v.Kind() != value.ObjectKind {
			return invalid(path, "properties", "must be an object")
		}
		for key, ps := range v.All() {
			pm, err := c.compile(ps, path.Key("properties").Key(key))
			if err != nil {
				return err
			}
			m.properties = append(m.properties, property{key: key, schema: pm})
			m.byKey[key] = pm
		}
		used = true
	}
	if v, err := s.Get("required"); err == nil {
		if v.Kind() != value.ArrayKind {
			return invalid(path, "required", "must be an array of strings")
		}
		seen := make(map[string]bool)
		for _, item := range v.Items() {
			key, err := item.AsString()
			if err != nil {
				return invalid(path, "required", "must be an array of strings")
			}
			if seen[key] {
				return invalid(path, "required", "duplicate entry %q", key)
			}
			seen[key] = true
			m.required = append(m.required, key)
		}
		used = true
	}
	var err error
	if m.minProperties, err = nonNegative(s, path, "minProperties", 0); err != nil {
		return err
	}
	if m.maxProperties, err = nonNegative(s, path, "maxProperties", -1); err != nil {
		return err
	}
	used = used || s.Has("minProperties") || s.Has("maxProperties")
	if v, err := s.Get("additionalProperties"); err == nil {
		am, err := c.compile(v, path.Key("additionalProperties"))
		if err != nil {
			return err
		}
		if b, ok := am.(boolMatcher); !ok || !bool(b) {
			m.additional = am
		}
		used = true
	}
	if used {
		n.checks = append(n.checks, m)
	}
	return nil
}

func (c *compiler) compileComposition(s *value.Value, path value.Path, n *node) error {
	list := func(keyword string) ([]matcher, error) {
		v, err := s.Get(keyword)
		if err != nil {
			return nil, nil
		}
		if v.Kind() != value.ArrayKind || v.Len() == 0 {
			return nil, invalid(path, keyword, "must be a non-empty array of schemas")
		}
		out := make([]matcher, 0, v.Len())
		for i, item := range v.Items() {
			m, err := c.compile(item, path.Key(keyword).Index(i))
			if err != nil {
				return nil, err
			}
			out = append(out, m)
		}
		return out, nil
	}

	all, err := list("allOf")
	if err != nil {
		return err
	}
	if all != nil {
		n.checks = append(n.checks, allOf(all))
	}
	some, err := list("anyOf")
	if err != nil {
		return err
	}
	if some != nil {
		n.checks = append(n.checks, anyOf(some))
	}
	one, err := list("oneOf")
	if err != nil {
		return err
	}
	if one != nil {
		n.checks = append(n.checks, oneOf(one))
	}
	if v, err := s.Get("not"); err == nil {
		m, err := c.compile(v, path.Key("not"))
		if err != nil {
			return err
		}
		n.checks = append(n.checks, notMatcher{m: m})
	}
	return nil
}

// rootRequired lists the required keys of a root object schema.
func rootRequired(s *value.Value) []string {
	if s.Kind() != value.ObjectKind {
		return nil
	}
	if t, err := s.Get("type"); err == nil {
		if name, err := t.AsString(); err == nil && name != "object" {
			return nil
		}
	}
	req, err := s.Get("required")
	if err != nil {
		return nil
	}
	var out []string
	for _, item := range req.Items() {
		if key, err := item.AsString(); err == nil {
			out = append(out, key)
		}
	}
	return out
}
