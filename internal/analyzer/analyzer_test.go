package analyzer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcncl/jsondoc/internal/config"
	"github.com/mcncl/jsondoc/internal/formatter"
	"github.com/mcncl/jsondoc/internal/parser"
	"github.com/mcncl/jsondoc/internal/schema"
	"github.com/mcncl/jsondoc/internal/value"
)

func parseAll(t *testing.T, srcs ...string) []*value.Value {
	t.Helper()
	var out []*value.Value
	for _, src := range srcs {
		v, err := parser.ParseString(src, parser.DefaultOptions())
		require.NoError(t, err, src)
		out = append(out, v)
	}
	return out
}

// assertAccepts compiles the inferred schema and validates every sample
// against it.
func assertAccepts(t *testing.T, inferred *value.Value, samples []*value.Value) {
	t.Helper()
	val, err := schema.Compile(inferred)
	require.NoError(t, err, formatter.String(inferred))
	for _, s := range samples {
		_, err := val.Validate(s)
		assert.NoError(t, err, formatter.String(s))
	}
}

func TestInfer_SimpleObject(t *testing.T) {
	samples := parseAll(t, `{"name": "John Doe", "age": 30, "is_student": false, "score": 99.5}`)

	got := Infer(samples...)

	want := `{"type":"object","title":"Root","properties":{` +
		`"name":{"type":"string"},` +
		`"age":{"type":"integer"},` +
		`"is_student":{"type":"boolean"},` +
		`"score":{"type":"number"}},` +
		`"required":["name","age","is_student","score"]}`
	assert.Equal(t, want, formatter.String(got))
	assertAccepts(t, got, samples)
}

func TestInfer_NestedObject(t *testing.T) {
	samples := parseAll(t, `{
		"user_id": 123,
		"profile": {
			"full_name": "John Doe",
			"address": {"street": "123 Main St", "city": "Anytown"}
		},
		"billing_address": {"street": "1 Side St", "city": "Elsewhere"}
	}`)

	got := Infer(samples...)

	title := func(p string) string {
		v, err := got.Lookup(mustPointer(t, p))
		require.NoError(t, err, p)
		s, _ := v.AsString()
		return s
	}
	assert.Equal(t, "Profile", title("/properties/profile/title"))
	assert.Equal(t, "Address", title("/properties/profile/properties/address/title"))
	assert.Equal(t, "BillingAddress", title("/properties/billing_address/title"))
	assertAccepts(t, got, samples)
}

func TestInfer_MergesSamples(t *testing.T) {
	samples := parseAll(t,
		`{"id": 1, "name": "a", "tags": ["x"]}`,
		`{"id": 2.5, "tags": [], "extra": null}`,
		`{"id": 3, "name": null, "tags": ["y", 1]}`,
	)

	got := Infer(samples...)

	want := `{"type":"object","title":"Root","properties":{` +
		`"id":{"type":"number"},` +
		`"name":{"type":["null","string"]},` +
		`"tags":{"type":"array","items":{"type":["integer","string"]}},` +
		`"extra":{"type":"null"}},` +
		`"required":["id","tags"]}`
	assert.Equal(t, want, formatter.String(got))
	assertAccepts(t, got, samples)
}

func TestInfer_ArrayOfObjects(t *testing.T) {
	samples := parseAll(t, `{"people": [
		{"name": "ada", "email": "ada@example.com"},
		{"name": "bob", "age": 40}
	]}`)

	got := Infer(samples...)

	items, err := got.Lookup(mustPointer(t, "/properties/people/items"))
	require.NoError(t, err)
	assert.Equal(t,
		`{"type":"object","title":"Person","properties":{"name":{"type":"string"},"email":{"type":"string","format":"email"},"age":{"type":"integer"}},"required":["name"]}`,
		formatter.String(items))
	assertAccepts(t, got, samples)
}

func TestInfer_Formats(t *testing.T) {
	tests := []struct {
		name   string
		values string
		want   string
	}{
		{"uuid", `["123e4567-e89b-12d3-a456-426614174000", "00000000-0000-0000-0000-000000000000"]`, "uuid"},
		{"date-time", `["2023-01-15T14:30:00Z", "2023-01-15T14:30:00.123+02:00"]`, "date-time"},
		{"date", `["2023-01-15"]`, "date"},
		{"email", `["ada@example.com"]`, "email"},
		{"uri", `["https://example.com/a?b=c"]`, "uri"},
		{"invalid date", `["2023-13-45"]`, ""},
		{"mixed formats", `["2023-01-15", "2023-01-15T14:30:00Z"]`, ""},
		{"some plain", `["2023-01-15", "soon"]`, ""},
		{"plain", `["hello"]`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			samples := parseAll(t, `{"v": `+tt.values+`}`)
			got := Infer(samples...)

			items, err := got.Lookup(mustPointer(t, "/properties/v/items"))
			require.NoError(t, err)
			format, err := items.Get("format")
			if tt.want == "" {
				assert.Error(t, err, formatter.String(items))
			} else {
				require.NoError(t, err)
				s, _ := format.AsString()
				assert.Equal(t, tt.want, s)
			}
			assertAccepts(t, got, samples)
		})
	}
}

func TestInfer_ConfiguredMappings(t *testing.T) {
	cfg := config.NewConfig()
	cfg.Infer.DetectFormats = false
	cfg.Infer.Mappings = []config.FormatMapping{{Pattern: "^website$", Format: "uri"}}
	require.NoError(t, cfg.Validate())

	samples := parseAll(t, `{"website": "https://example.com", "created": "2023-01-15", "homepage": "https://example.org"}`)
	got := NewAnalyzerWithConfig(cfg).Infer(samples...)

	props, err := got.Get("properties")
	require.NoError(t, err)
	assert.Equal(t,
		`{"website":{"type":"string","format":"uri"},"created":{"type":"string"},"homepage":{"type":"string"}}`,
		formatter.String(props))
	assertAccepts(t, got, samples)
}

func TestInfer_Numbers(t *testing.T) {
	tests := []struct {
		name   string
		values string
		want   string
	}{
		{"integers", `[1, -2, 300]`, `"integer"`},
		{"big integer", `[123456789012345678901234567890]`, `"integer"`},
		{"float spelling", `[1.0]`, `"number"`},
		{"exponent", `[1e3]`, `"number"`},
		{"mixed", `[1, 2.5]`, `"number"`},
		{"with null", `[1, null]`, `["null","integer"]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			samples := parseAll(t, tt.values)
			got := Infer(samples...)
			typ, err := got.Lookup(mustPointer(t, "/items/type"))
			require.NoError(t, err)
			assert.Equal(t, tt.want, formatter.String(typ))
			assertAccepts(t, got, samples)
		})
	}
}

func TestInfer_EdgeCases(t *testing.T) {
	assert.Equal(t, `{}`, formatter.String(Infer()))
	assert.Equal(t, `{"type":"array"}`, formatter.String(Infer(parseAll(t, `[]`)...)))
	assert.Equal(t, `{"type":"object","title":"Root","properties":{}}`, formatter.String(Infer(parseAll(t, `{}`)...)))

	samples := parseAll(t, `1`, `"x"`, `{"a": true}`, `[null]`)
	got := Infer(samples...)
	typ, err := got.Get("type")
	require.NoError(t, err)
	assert.Equal(t, `["integer","string","array","object"]`, formatter.String(typ))
	assertAccepts(t, got, samples)
}

func TestInfer_UniqueTitles(t *testing.T) {
	samples := parseAll(t, `{"a": {"item": {}}, "b": {"item": {}}, "items": [{}]}`)
	got := Infer(samples...)

	var titles []string
	for _, p := range []string{
		"/properties/a/properties/item/title",
		"/properties/b/properties/item/title",
		"/properties/items/items/title",
	} {
		v, err := got.Lookup(mustPointer(t, p))
		require.NoError(t, err, p)
		s, _ := v.AsString()
		titles = append(titles, s)
	}
	assert.Equal(t, []string{"Item", "Item1", "Item2"}, titles)
}

func TestSingularize(t *testing.T) {
	tests := map[string]string{
		"users":     "user",
		"Companies": "Company",
		"addresses": "address",
		"People":    "Person",
		"status":    "status",
		"class":     "class",
		"data":      "data",
		"item":      "item",
	}
	for in, want := range tests {
		assert.Equal(t, want, singularize(in), in)
	}
}

func mustPointer(t *testing.T, p string) value.Path {
	t.Helper()
	path, err := value.ParsePointer(p)
	require.NoError(t, err, p)
	return path
}
