package storage

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcncl/jsondoc/internal/formatter"
	"github.com/mcncl/jsondoc/internal/parser"
	"github.com/mcncl/jsondoc/internal/path"
	"github.com/mcncl/jsondoc/internal/value"
)

func mustParse(t *testing.T, src string) *value.Value {
	t.Helper()
	v, err := parser.ParseString(src, parser.DefaultOptions())
	require.NoError(t, err)
	return v
}

func openStore(t *testing.T, indexed ...string) *Store {
	t.Helper()
	opts := DefaultOptions()
	opts.Indexed = indexed
	s, err := Open(t.Context(), MemoryPath, opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func seed(t *testing.T, s *Store, docs map[string]string) {
	t.Helper()
	for key, src := range docs {
		_, err := s.Put(t.Context(), key, mustParse(t, src))
		require.NoError(t, err)
	}
}

func TestStore_PutGetRoundTrip(t *testing.T) {
	s := openStore(t)
	ctx := t.Context()

	src := `{"name":"Ada","age":36,"big":123456789012345678901234567890,"f":1.50,"tags":["a",null,true],"nested":{"x":{}}}`
	key, err := s.Put(ctx, "user:1", mustParse(t, src))
	require.NoError(t, err)
	assert.Equal(t, "user:1", key)

	got, err := s.Get(ctx, "user:1")
	require.NoError(t, err)
	assert.Equal(t, src, formatter.String(got))

	// Put overwrites.
	_, err = s.Put(ctx, "user:1", mustParse(t, `[1]`))
	require.NoError(t, err)
	got, err = s.Get(ctx, "user:1")
	require.NoError(t, err)
	assert.Equal(t, "[1]", formatter.String(got))

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestStore_Keys(t *testing.T) {
	s := openStore(t)
	ctx := t.Context()

	key, err := s.Put(ctx, "", mustParse(t, `{}`))
	require.NoError(t, err)
	_, err = uuid.Parse(key)
	assert.NoError(t, err, "generated key %q", key)

	// Decomposed and precomposed spellings address the same document.
	_, err = s.Put(ctx, "cafe\u0301", mustParse(t, `1`))
	require.NoError(t, err)
	got, err := s.Get(ctx, "caf\u00e9")
	require.NoError(t, err)
	assert.Equal(t, "1", formatter.String(got))

	keys, err := s.Keys(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{key, "caf\u00e9"}, keys)
}

func TestStore_NotFound(t *testing.T) {
	s := openStore(t)
	ctx := t.Context()

	_, err := s.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	err = s.Delete(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	err = s.Replace(ctx, "missing", value.NewNull())
	assert.ErrorIs(t, err, ErrNotFound)
	var serr *Error
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, "replace", serr.Op)
	assert.Equal(t, "missing", serr.Key)
	assert.Equal(t, "storage", serr.Category())
}

func TestStore_Query(t *testing.T) {
	s := openStore(t, "$.age", "name", "$.tags[*]", "$.active", "$.nick")
	seed(t, s, map[string]string{
		"a": `{"name": "ada", "age": 36, "tags": ["x", "y"], "active": true, "nick": null}`,
		"b": `{"name": "bob", "age": 41.5, "tags": ["y"], "active": false, "nick": "b"}`,
		"c": `{"name": "cyd", "age": 19, "tags": [], "active": true}`,
		"d": `{"name": "dee", "age": "unknown"}`,
		"e": `{"name": {"first": "eve"}, "age": 36.0}`,
	})

	tests := []struct {
		name string
		expr string
		op   path.Op
		arg  string
		want []string
	}{
		{"eq int", "$.age", path.Eq, `36`, []string{"a", "e"}},
		{"eq float spelling", "age", path.Eq, `36.0`, []string{"a", "e"}},
		{"gt", "$.age", path.Gt, `20`, []string{"a", "b", "e"}},
		{"le", "$.age", path.Le, `36`, []string{"a", "c", "e"}},
		{"lt mixed kinds", "$.age", path.Lt, `100`, []string{"a", "b", "c", "e"}},
		{"string range", "$['name']", path.Ge, `"bob"`, []string{"b", "c", "d"}},
		{"string eq", "$.age", path.Eq, `"unknown"`, []string{"d"}},
		{"ne", "$.name", path.Ne, `"ada"`, []string{"b", "c", "d"}},
		{"wildcard", "$.tags[*]", path.Eq, `"y"`, []string{"a", "b"}},
		{"wildcard spelling", "$.tags.*", path.Eq, `"x"`, []string{"a"}},
		{"bool", "$.active", path.Eq, `true`, []string{"a", "c"}},
		{"bool not int", "$.active", path.Eq, `1`, nil},
		{"null", "$.nick", path.Eq, `null`, []string{"a"}},
		{"ordering on bool", "$.active", path.Gt, `false`, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.Query(t.Context(), tt.expr, tt.op, mustParse(t, tt.arg))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := s.Query(t.Context(), "$.missing", path.Eq, value.NewInt(1))
	assert.ErrorIs(t, err, ErrNotIndexed)
	_, err = s.Query(t.Context(), "$.age[", path.Eq, value.NewInt(1))
	assert.ErrorIs(t, err, ErrNotIndexed)
	_, err = s.Query(t.Context(), "$.age", path.Eq, value.NewArray())
	assert.ErrorIs(t, err, ErrEncode)
}

func TestStore_FailureBetweenPayloadAndIndex(t *testing.T) {
	s := openStore(t, "$.v")
	ctx := t.Context()
	seed(t, s, map[string]string{"kept": `{"v": 1}`})

	boom := fmt.Errorf("injected failure")
	s.beforeIndex = func(key string) error { return boom }

	_, err := s.Put(ctx, "new", mustParse(t, `{"v": 2}`))
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, err, ErrBackend)

	_, err = s.Put(ctx, "kept", mustParse(t, `{"v": 3}`))
	require.Error(t, err)

	s.beforeIndex = nil

	// Neither the payload nor the index rows of the failed writes survive.
	_, err = s.Get(ctx, "new")
	assert.ErrorIs(t, err, ErrNotFound)
	got, err := s.Get(ctx, "kept")
	require.NoError(t, err)
	assert.Equal(t, `{"v":1}`, formatter.String(got))

	keys, err := s.Query(ctx, "$.v", path.Eq, value.NewInt(1))
	require.NoError(t, err)
	assert.Equal(t, []string{"kept"}, keys)
	keys, err = s.Query(ctx, "$.v", path.Ge, value.NewInt(2))
	require.NoError(t, err)
	assert.Empty(t, keys)

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestStore_ReplaceAndDelete(t *testing.T) {
	s := openStore(t, "$.status")
	ctx := t.Context()
	seed(t, s, map[string]string{"job": `{"status": "queued"}`})

	require.NoError(t, s.Replace(ctx, "job", mustParse(t, `{"status": "done"}`)))
	keys, err := s.Query(ctx, "$.status", path.Eq, value.NewString("queued"))
	require.NoError(t, err)
	assert.Empty(t, keys)
	keys, err = s.Query(ctx, "$.status", path.Eq, value.NewString("done"))
	require.NoError(t, err)
	assert.Equal(t, []string{"job"}, keys)

	require.NoError(t, s.Delete(ctx, "job"))
	keys, err = s.Query(ctx, "$.status", path.Eq, value.NewString("done"))
	require.NoError(t, err)
	assert.Empty(t, keys)
	require.NoError(t, s.Optimize(ctx))
}

func TestStore_Reindex(t *testing.T) {
	s := openStore(t)
	ctx := t.Context()
	seed(t, s, map[string]string{
		"a": `{"user": {"id": 7}}`,
		"b": `{"user": {"id": 8}}`,
	})

	_, err := s.Query(ctx, "$.user.id", path.Eq, value.NewInt(7))
	assert.ErrorIs(t, err, ErrNotIndexed)

	require.NoError(t, s.Reindex(ctx, []string{"user.id", "$['user']['id']"}))
	assert.Equal(t, []string{"$.user.id"}, s.Indexed())

	keys, err := s.Query(ctx, "$.user.id", path.Ge, value.NewInt(7))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, keys)

	err = s.Reindex(ctx, []string{"$.["})
	assert.ErrorIs(t, err, ErrNotIndexed)
	assert.Equal(t, []string{"$.user.id"}, s.Indexed())
}

func TestOpen_PersistsAcrossHandles(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "docs.db")
	ctx := t.Context()
	opts := DefaultOptions()
	opts.Indexed = []string{"$.n"}

	s, err := Open(ctx, dsn, opts)
	require.NoError(t, err)
	_, err = s.Put(ctx, "k", mustParse(t, `{"n": 5}`))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(ctx, dsn, opts)
	require.NoError(t, err)
	defer s.Close()
	got, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, `{"n":5}`, formatter.String(got))
	keys, err := s.Query(ctx, "$.n", path.Eq, value.NewInt(5))
	require.NoError(t, err)
	assert.Equal(t, []string{"k"}, keys)
}

func TestOpen_IncompatibleSchema(t *testing.T) {
	tests := []struct {
		name  string
		setup []string
	}{
		{"foreign tables", []string{"CREATE TABLE users (id INTEGER PRIMARY KEY)"}},
		{"future version", []string{"PRAGMA user_version = 9"}},
		{"wrong columns", []string{
			"CREATE TABLE documents (key TEXT PRIMARY KEY, body TEXT)",
			"CREATE TABLE document_index (key TEXT, path TEXT, kind TEXT, value)",
			"PRAGMA user_version = 1",
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dsn := filepath.Join(t.TempDir(), "foreign.db")
			prepare(t, dsn, tt.setup)

			_, err := Open(t.Context(), dsn, DefaultOptions())
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrIncompatibleSchema)
		})
	}
}

func prepare(t *testing.T, dsn string, stmts []string) {
	t.Helper()
	db, err := sql.Open("sqlite", dsn)
	require.NoError(t, err)
	defer db.Close()
	for _, stmt := range stmts {
		_, err := db.ExecContext(context.Background(), stmt)
		require.NoError(t, err, stmt)
	}
}

func TestOpen_BadIndexExpression(t *testing.T) {
	opts := DefaultOptions()
	opts.Indexed = []string{"$.a[?("}
	_, err := Open(t.Context(), MemoryPath, opts)
	assert.ErrorIs(t, err, ErrNotIndexed)
}
