package converter

import (
	"encoding/json"
	"math"
	"net/netip"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcncl/jsondoc/internal/formatter"
	"github.com/mcncl/jsondoc/internal/models"
	"github.com/mcncl/jsondoc/internal/parser"
	"github.com/mcncl/jsondoc/internal/value"
)

type Address struct {
	Street string `json:"street"`
	City   string `json:"city"`
}

type Audit struct {
	CreatedAt time.Time `json:"created_at"`
}

type Person struct {
	Audit
	ID       int64             `json:"id"`
	Name     string            `json:"name"`
	Email    *string           `json:"email"`
	Tags     []string          `json:"tags,omitempty"`
	Address  Address           `json:"address"`
	Labels   map[string]string `json:"labels,omitempty"`
	Score    float64           `json:"score" default:"1.5"`
	Avatar   []byte            `json:"avatar,omitempty"`
	Internal string            `json:"-"`
	private  int
}

func parse(t *testing.T, src string) *value.Value {
	t.Helper()
	v, err := parser.ParseString(src, parser.DefaultOptions())
	require.NoError(t, err)
	return v
}

func TestEncode_Struct(t *testing.T) {
	email := "ada@example.com"
	p := Person{
		Audit:   Audit{CreatedAt: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)},
		ID:      7,
		Name:    "Ada",
		Email:   &email,
		Address: Address{Street: "1 Loop", City: "London"},
		Labels:  map[string]string{"z": "last", "a": "first"},
		Score:   2,
		Avatar:  []byte("hi"),
	}

	v, err := Encode(p, Options{})
	require.NoError(t, err)

	want := `{"created_at":"2024-03-01T12:00:00Z","id":7,"name":"Ada","email":"ada@example.com",` +
		`"address":{"street":"1 Loop","city":"London"},"labels":{"a":"first","z":"last"},"score":2.0,"avatar":"aGk="}`
	assert.Equal(t, want, formatter.String(v))
}

func TestEncode_Scalars(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
	}{
		{"nil", nil, "null"},
		{"nil pointer", (*int)(nil), "null"},
		{"nil slice", []int(nil), "null"},
		{"empty slice", []int{}, "[]"},
		{"array", [2]bool{true, false}, "[true,false]"},
		{"max uint64", uint64(math.MaxUint64), "18446744073709551615"},
		{"json number", json.Number("1.50"), "1.50"},
		{"text marshaler", netip.MustParseAddr("10.0.0.1"), `"10.0.0.1"`},
		{"value passthrough", value.NewArray(value.NewInt(1)), "[1]"},
		{"generic", models.JSONObject{"b": models.JSONArray{nil, true}, "a": "x"}, `{"a":"x","b":[null,true]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := Encode(tt.in, Options{})
			require.NoError(t, err)
			assert.Equal(t, tt.want, formatter.String(v))
		})
	}
}

func TestEncode_Unsupported(t *testing.T) {
	_, err := Encode(map[int]string{1: "a"}, Options{})
	assert.ErrorIs(t, err, ErrUnsupported)

	_, err = Encode(struct{ C chan int }{}, Options{})
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestDecode_Struct(t *testing.T) {
	src := `{"created_at": "2024-03-01T12:00:00Z", "id": 7, "name": "Ada", "email": null,
		"address": {"street": "1 Loop", "city": "London"}, "tags": ["a", "b"], "avatar": "aGk="}`

	var p Person
	require.NoError(t, Decode(parse(t, src), &p, Options{}))

	assert.Equal(t, int64(7), p.ID)
	assert.Equal(t, "Ada", p.Name)
	assert.Nil(t, p.Email)
	assert.Equal(t, []string{"a", "b"}, p.Tags)
	assert.Equal(t, "London", p.Address.City)
	assert.Equal(t, 1.5, p.Score, "default applies to absent key")
	assert.Equal(t, []byte("hi"), p.Avatar)
	assert.True(t, p.CreatedAt.Equal(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)))
}

func TestDecode_Errors(t *testing.T) {
	base := `"created_at": "2024-03-01T12:00:00Z", "address": {"street": "", "city": ""}`
	tests := []struct {
		name   string
		src    string
		opts   Options
		target func() any
		want   error
		path   string
	}{
		{"missing required", `{` + base + `, "name": "x"}`, Options{}, func() any { return &Person{} }, ErrMissingField, "$"},
		{"nested missing", `{"created_at": "2024-03-01T12:00:00Z", "id": 1, "name": "x", "address": {"street": ""}}`, Options{}, func() any { return &Person{} }, ErrMissingField, "$.address"},
		{"unknown strict", `{` + base + `, "id": 1, "name": "x", "extra": 1}`, Options{Strict: true}, func() any { return &Person{} }, ErrUnknownField, "$"},
		{"type mismatch", `{` + base + `, "id": "1", "name": "x"}`, Options{}, func() any { return &Person{} }, ErrTypeMismatch, "$.id"},
		{"int8 overflow", `[300]`, Options{}, func() any { return &[]int8{} }, ErrOverflow, "$[0]"},
		{"fraction into int", `1.5`, Options{}, func() any { var i int; return &i }, ErrOverflow, "$"},
		{"decimal into int64", `123456789012345678901234567890`, Options{}, func() any { var i int64; return &i }, ErrOverflow, "$"},
		{"negative into uint", `-1`, Options{}, func() any { var u uint; return &u }, ErrOverflow, "$"},
		{"huge into float32", `1e300`, Options{}, func() any { var f float32; return &f }, ErrOverflow, "$"},
		{"null into int", `null`, Options{}, func() any { var i int; return &i }, ErrTypeMismatch, "$"},
		{"array length", `[1,2,3]`, Options{}, func() any { return &[2]int{} }, ErrTypeMismatch, "$"},
		{"bad time", `"yesterday"`, Options{}, func() any { return &time.Time{} }, ErrTypeMismatch, "$"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Decode(parse(t, tt.src), tt.target(), tt.opts)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
			var cerr *Error
			require.ErrorAs(t, err, &cerr)
			assert.Equal(t, tt.path, cerr.Path.String())
		})
	}
}

func TestDecode_NonPointerTarget(t *testing.T) {
	var p Person
	assert.ErrorIs(t, Decode(value.NewObject(), p, Options{}), ErrUnsupported)
}

func TestDecode_Interface(t *testing.T) {
	var out any
	require.NoError(t, Decode(parse(t, `{"a": [1, "two", null, true]}`), &out, Options{}))
	assert.Equal(t, models.JSONObject{"a": models.JSONArray{json.Number("1"), "two", nil, true}}, out)
}

func TestNaming(t *testing.T) {
	type Row struct {
		UserName  string
		FirstName string
	}
	tests := []struct {
		naming Naming
		keys   string
	}{
		{NamingTag, "UserName,FirstName"},
		{NamingSnake, "user_name,first_name"},
		{NamingCamel, "UserName,FirstName"},
		{NamingLowerCamel, "userName,firstName"},
		{NamingKebab, "user-name,first-name"},
	}
	for _, tt := range tests {
		t.Run(tt.naming.String(), func(t *testing.T) {
			v, err := Encode(Row{UserName: "u", FirstName: "a"}, Options{Naming: tt.naming})
			require.NoError(t, err)
			assert.Equal(t, tt.keys, strings.Join(v.Keys(), ","))

			var back Row
			require.NoError(t, Decode(v, &back, Options{Naming: tt.naming, Strict: true}))
			assert.Equal(t, Row{UserName: "u", FirstName: "a"}, back)
		})
	}

	_, err := ParseNaming("shouting")
	assert.Error(t, err)
	n, err := ParseNaming("kebab")
	require.NoError(t, err)
	assert.Equal(t, NamingKebab, n)
}

func TestMappings(t *testing.T) {
	type Temperature struct {
		Celsius float64
		Station string
	}
	opts := Options{Mappings: map[reflect.Type][]Field{
		reflect.TypeFor[Temperature](): {
			{
				Name: "Celsius",
				Key:  "fahrenheit",
				Encode: func(x any) (*value.Value, error) {
					return value.NewFloat(x.(float64)*9/5 + 32), nil
				},
				Decode: func(v *value.Value) (any, error) {
					n, err := v.AsNumber()
					if err != nil {
						return nil, err
					}
					return (n.Float64() - 32) * 5 / 9, nil
				},
				Required: true,
			},
			{Name: "Station", Default: value.NewString("unknown")},
		},
	}}

	v, err := Encode(Temperature{Celsius: 100, Station: "north"}, opts)
	require.NoError(t, err)
	assert.Equal(t, `{"fahrenheit":212.0,"Station":"north"}`, formatter.String(v))

	var back Temperature
	require.NoError(t, Decode(parse(t, `{"fahrenheit": 32}`), &back, opts))
	assert.Equal(t, Temperature{Celsius: 0, Station: "unknown"}, back)

	err = Decode(parse(t, `{}`), &back, opts)
	assert.ErrorIs(t, err, ErrMissingField)
}

func TestNativeRoundTrip(t *testing.T) {
	src := parse(t, `{"a": 1, "b": [true, null, "s", 2.5], "c": {}}`)
	native := ToNative(src)

	back, err := FromNative(native)
	require.NoError(t, err)
	assert.True(t, value.Equal(src, back))
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	in := map[string][]int{"x": {1, 2}, "y": nil}
	v, err := Encode(in, Options{})
	require.NoError(t, err)

	var out map[string][]int
	require.NoError(t, Decode(v, &out, Options{}))
	assert.Equal(t, in, out)
}
