package schema

import (
	"math/big"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/mcncl/jsondoc/internal/formatter"
	"github.com/mcncl/jsondoc/internal/value"
)

// matcher is one compiled check. It returns nil when v satisfies it.
type matcher interface {
	match(ctx *validation, v *value.Value, path value.Path) *ValidationError
}

type activeRef struct {
	index int
	v     *value.Value
}

type validation struct {
	table    []matcher
	captures Captures
	active   map[activeRef]bool
}

// try runs m with a private capture set and returns the captures only when
// m succeeds.
func (ctx *validation) try(m matcher, v *value.Value, path value.Path) (Captures, *ValidationError) {
	saved := ctx.captures
	ctx.captures = Captures{}
	err := m.match(ctx, v, path)
	got := ctx.captures
	ctx.captures = saved
	if err != nil {
		return nil, err
	}
	return got, nil
}

func (ctx *validation) merge(c Captures) {
	for k, v := range c {
		ctx.captures[k] = v
	}
}

// boolMatcher is the boolean schema: true accepts everything.
type boolMatcher bool

func (b boolMatcher) match(_ *validation, _ *value.Value, path value.Path) *ValidationError {
	if b {
		return nil
	}
	return fail(path, "false", "no value is allowed here")
}

// node is one schema object: its checks run in order.
type node struct {
	checks   []matcher
	nullable bool
	capture  string
}

func (n *node) match(ctx *validation, v *value.Value, path value.Path) *ValidationError {
	if n.nullable && v.IsNull() {
		n.record(ctx, v)
		return nil
	}
	for _, c := range n.checks {
		if err := c.match(ctx, v, path); err != nil {
			return err
		}
	}
	n.record(ctx, v)
	return nil
}

func (n *node) record(ctx *validation, v *value.Value) {
	if n.capture != "" {
		ctx.captures[n.capture] = v
	}
}

type refMatcher struct {
	index int
	ref   string
}

func (r *refMatcher) match(ctx *validation, v *value.Value, path value.Path) *ValidationError {
	key := activeRef{r.index, v}
	if ctx.active[key] {
		// Re-entered for the same value without consuming any input.
		return nil
	}
	ctx.active[key] = true
	defer delete(ctx.active, key)
	return ctx.table[r.index].match(ctx, v, path)
}

type typeMatcher []string

func (t typeMatcher) match(_ *validation, v *value.Value, path value.Path) *ValidationError {
	for _, name := range t {
		if kindMatches(name, v) {
			return nil
		}
	}
	return fail(path, "type", "expected %s, got %s", strings.Join(t, " or "), v.Kind())
}

func kindMatches(name string, v *value.Value) bool {
	switch name {
	case "null":
		return v.Kind() == value.NullKind
	case "boolean":
		return v.Kind() == value.BoolKind
	case "number":
		return v.Kind() == value.NumberKind
	case "integer":
		n, err := v.AsNumber()
		return err == nil && n.IsInteger()
	case "string":
		return v.Kind() == value.StringKind
	case "array":
		return v.Kind() == value.ArrayKind
	case "object":
		return v.Kind() == value.ObjectKind
	}
	return false
}

type constMatcher struct{ want *value.Value }

func (c constMatcher) match(_ *validation, v *value.Value, path value.Path) *ValidationError {
	if value.Equal(c.want, v) {
		return nil
	}
	return fail(path, "const", "expected %s", formatter.String(c.want))
}

type enumMatcher []*value.Value

func (e enumMatcher) match(_ *validation, v *value.Value, path value.Path) *ValidationError {
	for _, want := range e {
		if value.Equal(want, v) {
			return nil
		}
	}
	return fail(path, "enum", "%s is not one of the allowed values", formatter.String(v))
}

type bound struct {
	n         value.Number
	exclusive bool
}

type numberMatcher struct {
	min, max   *bound
	multipleOf *big.Rat
}

func (m *numberMatcher) match(_ *validation, v *value.Value, path value.Path) *ValidationError {
	n, err := v.AsNumber()
	if err != nil {
		return nil
	}
	if m.min != nil {
		c := n.Cmp(m.min.n)
		if c < 0 || (c == 0 && m.min.exclusive) {
			rule := "minimum"
			if m.min.exclusive {
				rule = "exclusiveMinimum"
			}
			return fail(path, rule, "%s is below %s", n, m.min.n)
		}
	}
	if m.max != nil {
		c := n.Cmp(m.max.n)
		if c > 0 || (c == 0 && m.max.exclusive) {
			rule := "maximum"
			if m.max.exclusive {
				rule = "exclusiveMaximum"
			}
			return fail(path, rule, "%s is above %s", n, m.max.n)
		}
	}
	if m.multipleOf != nil {
		r, ok := numberRat(n)
		if !ok || !r.Quo(r, m.multipleOf).IsInt() {
			return fail(path, "multipleOf", "%s is not a multiple of %s", n, m.multipleOf.RatString())
		}
	}
	return nil
}

func numberRat(n value.Number) (*big.Rat, bool) {
	if !n.IsFinite() {
		return nil, false
	}
	return new(big.Rat).SetString(n.String())
}

type stringMatcher struct {
	minLength, maxLength int
	pattern              *regexp.Regexp
	format               string
	checkFormat          func(string) bool
}

func (m *stringMatcher) match(_ *validation, v *value.Value, path value.Path) *ValidationError {
	s, err := v.AsString()
	if err != nil {
		return nil
	}
	if m.minLength > 0 || m.maxLength >= 0 {
		n := utf8.RuneCountInString(s)
		if n < m.minLength {
			return fail(path, "minLength", "length %d is shorter than %d", n, m.minLength)
		}
		if m.maxLength >= 0 && n > m.maxLength {
			return fail(path, "maxLength", "length %d is longer than %d", n, m.maxLength)
		}
	}
	if m.pattern != nil && !m.pattern.MatchString(s) {
		return fail(path, "pattern", "%q does not match %s", s, m.pattern)
	}
	if m.checkFormat != nil && !m.checkFormat(s) {
		return fail(path, "format", "%q is not a valid %s", s, m.format)
	}
	return nil
}

type property struct {
	key    string
	schema matcher
}

type objectMatcher struct {
	properties    []property
	byKey         map[string]matcher
	required      []string
	minProperties int
	maxProperties int
	// additional is nil when undeclared members are allowed unchecked.
	additional matcher
}

func (m *objectMatcher) match(ctx *validation, v *value.Value, path value.Path) *ValidationError {
	if v.Kind() != value.ObjectKind {
		return nil
	}
	for _, key := range m.required {
		if !v.Has(key) {
			return fail(path.Key(key), "required", "missing required property %q", key)
		}
	}
	if v.Len() < m.minProperties {
		return fail(path, "minProperties", "%d properties, want at least %d", v.Len(), m.minProperties)
	}
	if m.maxProperties >= 0 && v.Len() > m.maxProperties {
		return fail(path, "maxProperties", "%d properties, want at most %d", v.Len(), m.maxProperties)
	}
	for key, member := range v.All() {
		s, ok := m.byKey[key]
		if !ok {
			s = m.additional
		}
		if s == nil {
			continue
		}
		if err := s.match(ctx, member, path.Key(key)); err != nil {
			if !ok && err.Rule == "false" {
				return fail(path.Key(key), "additionalProperties", "property %q is not allowed", key)
			}
			return err
		}
	}
	return nil
}

type arrayMatcher struct {
	items    matcher
	tuple    []matcher
	minItems int
	maxItems int
	unique   bool
}

func (m *arrayMatcher) match(ctx *validation, v *value.Value, path value.Path) *ValidationError {
	if v.Kind() != value.ArrayKind {
		return nil
	}
	n := v.Len()
	if n < m.minItems {
		return fail(path, "minItems", "%d items, want at least %d", n, m.minItems)
	}
	if m.maxItems >= 0 && n > m.maxItems {
		return fail(path, "maxItems", "%d items, want at most %d", n, m.maxItems)
	}
	items := v.Items()
	if m.unique {
		for i := 1; i < len(items); i++ {
			for j := 0; j < i; j++ {
				if value.Equal(items[i], items[j]) {
					return fail(path.Index(i), "uniqueItems", "duplicate of item %d", j)
				}
			}
		}
	}
	for i, item := range items {
		s := m.items
		if m.tuple != nil {
			s = nil
			if i < len(m.tuple) {
				s = m.tuple[i]
			}
		}
		if s == nil {
			continue
		}
		if err := s.match(ctx, item, path.Index(i)); err != nil {
			return err
		}
	}
	return nil
}

type allOf []matcher

func (a allOf) match(ctx *validation, v *value.Value, path value.Path) *ValidationError {
	for _, m := range a {
		if err := m.match(ctx, v, path); err != nil {
			return err
		}
	}
	return nil
}

type anyOf []matcher

func (a anyOf) match(ctx *validation, v *value.Value, path value.Path) *ValidationError {
	var first *ValidationError
	for _, m := range a {
		got, err := ctx.try(m, v, path)
		if err == nil {
			ctx.merge(got)
			return nil
		}
		if first == nil {
			first = err
		}
	}
	return fail(path, "anyOf", "matches none of the %d alternatives (first: %s)", len(a), first.Message)
}

type oneOf []matcher

func (o oneOf) match(ctx *validation, v *value.Value, path value.Path) *ValidationError {
	var winner Captures
	matched := 0
	for _, m := range o {
		got, err := ctx.try(m, v, path)
		if err == nil {
			matched++
			winner = got
		}
	}
	if matched != 1 {
		return fail(path, "oneOf", "matches %d of the %d alternatives, want exactly one", matched, len(o))
	}
	ctx.merge(winner)
	return nil
}

type notMatcher struct{ m matcher }

func (n notMatcher) match(ctx *validation, v *value.Value, path value.Path) *ValidationError {
	if _, err := ctx.try(n.m, v, path); err == nil {
		return fail(path, "not", "value matches a forbidden schema")
	}
	return nil
}
