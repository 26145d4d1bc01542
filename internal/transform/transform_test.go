package transform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcncl/jsondoc/internal/formatter"
	"github.com/mcncl/jsondoc/internal/parser"
	"github.com/mcncl/jsondoc/internal/value"
)

func mustParse(t *testing.T, src string) *value.Value {
	t.Helper()
	v, err := parser.ParseString(src, parser.DefaultOptions())
	require.NoError(t, err)
	return v
}

var diffPairs = []struct {
	name string
	a, b string
}{
	{"equal", `{"a": 1}`, `{"a": 1.0}`},
	{"scalar root", `1`, `"one"`},
	{"kind change", `{"a": [1]}`, `{"a": {"0": 1}}`},
	{"object add remove", `{"a": 1, "b": 2}`, `{"b": 3, "c": 4}`},
	{"nested", `{"user": {"name": "ada", "tags": ["x"]}}`, `{"user": {"name": "ada", "tags": ["x", "y"], "age": 36}}`},
	{"array shrink", `[1, 2, 3, 4]`, `[1, 5]`},
	{"array grow", `[]`, `[{"a": null}, true]`},
	{"array of objects", `[{"id": 1, "v": "a"}, {"id": 2}]`, `[{"id": 1, "v": "b"}, {"id": 2, "w": false}]`},
	{"numeric keys", `{"0": "a", "1": "b"}`, `{"1": "c"}`},
	{"odd keys", `{"a/b": 1, "m~n": 2}`, `{"a/b": 2}`},
	{"to null", `{"a": {"b": 1}}`, `null`},
}

func TestDiffPatchLaw(t *testing.T) {
	for _, tt := range diffPairs {
		t.Run(tt.name, func(t *testing.T) {
			a, b := mustParse(t, tt.a), mustParse(t, tt.b)
			before := formatter.String(a)

			ops := Diff(a, b)
			got, err := Patch(a, ops)
			require.NoError(t, err)
			assert.True(t, value.Equal(got, b), "got %s, want %s", formatter.String(got), tt.b)
			assert.Equal(t, before, formatter.String(a), "patch modified its input")

			// The same law holds through the RFC 6902 form.
			decoded, err := OpsFromValue(mustParse(t, formatter.String(OpsToValue(ops))))
			require.NoError(t, err)
			got, err = Patch(a, decoded)
			require.NoError(t, err)
			assert.True(t, value.Equal(got, b))
		})
	}
}

func TestDiff_Ops(t *testing.T) {
	a := mustParse(t, `{"a": 1, "b": [1, 2, 3], "c": true}`)
	b := mustParse(t, `{"a": 2, "b": [1], "d": null}`)

	var got []string
	for _, op := range Diff(a, b) {
		got = append(got, op.String())
	}
	assert.Equal(t, []string{
		"replace /a",
		"remove /b/2",
		"remove /b/1",
		"remove /c",
		"add /d",
	}, got)

	assert.Empty(t, Diff(a, a))
}

func TestPatch_Conflicts(t *testing.T) {
	doc := `{"a": 1, "list": [1, 2]}`
	tests := []struct {
		name string
		ops  string
		path string
	}{
		{"stale replace", `[{"op": "test", "path": "/a", "value": 2}, {"op": "replace", "path": "/a", "value": 3}]`, "/a"},
		{"missing replace", `[{"op": "replace", "path": "/b", "value": 3}]`, "/b"},
		{"missing remove", `[{"op": "remove", "path": "/list/5"}]`, "/list/5"},
		{"missing parent", `[{"op": "add", "path": "/x/y", "value": 1}]`, "/x/y"},
		{"add past end", `[{"op": "add", "path": "/list/3", "value": 1}]`, "/list/3"},
		{"remove root", `[{"op": "remove", "path": ""}]`, ""},
		{"failed test", `[{"op": "test", "path": "/list/0", "value": "1"}]`, "/list/0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ops, err := OpsFromValue(mustParse(t, tt.ops))
			require.NoError(t, err)

			_, err = Patch(mustParse(t, doc), ops)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrConflict)
			var cerr *ConflictError
			require.ErrorAs(t, err, &cerr)
			assert.Equal(t, tt.path, cerr.Path.Pointer())
		})
	}
}

func TestPatch_ArrayOps(t *testing.T) {
	ops, err := OpsFromValue(mustParse(t, `[
		{"op": "add", "path": "/0", "value": "first"},
		{"op": "add", "path": "/-", "value": "last"},
		{"op": "replace", "path": "/1", "value": "two"},
		{"op": "test", "path": "/2", "value": 3.0}
	]`))
	require.NoError(t, err)
	require.Len(t, ops, 4)

	got, err := Patch(mustParse(t, `[2, 3]`), ops)
	require.NoError(t, err)
	assert.Equal(t, `["first","two",3,"last"]`, formatter.String(got))
}

func TestOpsFromValue_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"not array", `{"op": "add"}`},
		{"not object", `[1]`},
		{"missing op", `[{"path": "/a"}]`},
		{"unknown op", `[{"op": "move", "path": "/a", "from": "/b"}]`},
		{"bad pointer", `[{"op": "remove", "path": "a"}]`},
		{"missing value", `[{"op": "add", "path": "/a"}]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := OpsFromValue(mustParse(t, tt.doc))
			var derr *DecodeError
			assert.ErrorAs(t, err, &derr)
		})
	}
}

func TestOpsToValue_FoldsExpectedValues(t *testing.T) {
	ops := Diff(mustParse(t, `{"a": 1}`), mustParse(t, `{"a": 2}`))
	assert.Equal(t,
		`[{"op":"test","path":"/a","value":1},{"op":"replace","path":"/a","value":2}]`,
		formatter.String(OpsToValue(ops)))

	back, err := OpsFromValue(OpsToValue(ops))
	require.NoError(t, err)
	require.Len(t, back, 1)
	assert.Equal(t, Replace, back[0].Kind)
	assert.Equal(t, "1", formatter.String(back[0].Old))
}

func TestMerge(t *testing.T) {
	a := `{"name": "a", "cfg": {"x": 1, "y": [1]}, "only_a": true}`
	b := `{"cfg": {"y": [2], "z": 3}, "name": "b", "only_b": null}`

	tests := []struct {
		policy Policy
		want   string
	}{
		{PreferA, `{"name":"a","cfg":{"x":1,"y":[1],"z":3},"only_a":true,"only_b":null}`},
		{PreferB, `{"name":"b","cfg":{"x":1,"y":[2],"z":3},"only_a":true,"only_b":null}`},
	}
	for _, tt := range tests {
		t.Run(tt.policy.String(), func(t *testing.T) {
			av, bv := mustParse(t, a), mustParse(t, b)
			got, err := Merge(av, bv, tt.policy)
			require.NoError(t, err)
			assert.Equal(t, tt.want, formatter.String(got))
			assert.False(t, got.Owned())
		})
	}

	_, err := Merge(mustParse(t, a), mustParse(t, b), FailOnConflict)
	var cerr *ConflictError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "/name", cerr.Path.Pointer())

	got, err := Merge(mustParse(t, `{"a": {"b": 1}}`), mustParse(t, `{"a": {"c": 2.0}, "d": 1}`), FailOnConflict)
	require.NoError(t, err)
	assert.Equal(t, `{"a":{"b":1,"c":2.0},"d":1}`, formatter.String(got))
}

func TestParsePolicy(t *testing.T) {
	for in, want := range map[string]Policy{
		"prefer_a":         PreferA,
		"prefer-b":         PreferB,
		"B":                PreferB,
		"fail_on_conflict": FailOnConflict,
	} {
		got, err := ParsePolicy(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}
	_, err := ParsePolicy("newest")
	assert.Error(t, err)
}

func TestQuery(t *testing.T) {
	root := mustParse(t, `{"items": [{"n": 1}, {"n": 2}, {"m": 3}]}`)

	seq, err := Query(root, "$.items[*].n")
	require.NoError(t, err)
	var got []string
	for v := range seq {
		got = append(got, formatter.String(v))
	}
	assert.Equal(t, []string{"1", "2"}, got)

	paths, err := QueryPaths(root, "items[?(@.m)]")
	require.NoError(t, err)
	for p := range paths {
		assert.Equal(t, "$.items[2]", p.String())
	}

	_, err = Query(root, "$.items[")
	assert.Error(t, err)

	assert.True(t, Equal(mustParse(t, `{"a": 1, "b": 2}`), mustParse(t, `{"b": 2, "a": 1e0}`)))
}
