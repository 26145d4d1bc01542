package parser

import (
	stderrors "errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mcncl/jsondoc/internal/errors"
	"github.com/mcncl/jsondoc/internal/lexer"
	"github.com/mcncl/jsondoc/internal/value"
)

func mustParse(t *testing.T, s string, opts Options) *value.Value {
	t.Helper()
	v, err := ParseString(s, opts)
	if err != nil {
		t.Fatalf("ParseString(%q) error = %v, wantErr nil", s, err)
	}
	return v
}

func TestParse_SimpleObject(t *testing.T) {
	root := mustParse(t, `{"name": "John Doe", "age": 30, "isStudent": false, "city": null}`, DefaultOptions())

	if root.Kind() != value.ObjectKind {
		t.Fatalf("root kind = %v, want object", root.Kind())
	}
	if got := strings.Join(root.Keys(), ","); got != "name,age,isStudent,city" {
		t.Errorf("keys = %s, want insertion order", got)
	}
	age, err := root.Get("age")
	if err != nil {
		t.Fatalf("Get(age) error = %v", err)
	}
	n, _ := age.AsNumber()
	if n.Form() != value.IntForm || n.String() != "30" {
		t.Errorf("age = %v (form %v), want int 30", n, n.Form())
	}
	city, _ := root.Get("city")
	if !city.IsNull() {
		t.Errorf("city kind = %v, want null", city.Kind())
	}
}

func TestParse_NestedStructures(t *testing.T) {
	root := mustParse(t, `{"user": {"tags": ["a", "b"], "scores": [1.5, 2]}, "empty": {}, "none": []}`, DefaultOptions())

	got, err := root.Lookup(value.Path{}.Key("user").Key("tags").Index(1))
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if s, _ := got.AsString(); s != "b" {
		t.Errorf("user.tags[1] = %q, want b", s)
	}
	empty, _ := root.Get("empty")
	none, _ := root.Get("none")
	if empty.Len() != 0 || none.Len() != 0 {
		t.Errorf("empty containers have members: %d, %d", empty.Len(), none.Len())
	}
}

func TestParse_RootPrimitives(t *testing.T) {
	testCases := []struct {
		name string
		src  string
		kind value.Kind
	}{
		{"RootString", `"hello world"`, value.StringKind},
		{"RootNumber", `123.45`, value.NumberKind},
		{"RootBooleanTrue", `true`, value.BoolKind},
		{"RootBooleanFalse", ` false `, value.BoolKind},
		{"RootNull", "\nnull\n", value.NullKind},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			v := mustParse(t, tc.src, DefaultOptions())
			if v.Kind() != tc.kind {
				t.Errorf("kind = %v, want %v", v.Kind(), tc.kind)
			}
		})
	}
}

func TestParse_RetainsNumberLiterals(t *testing.T) {
	root := mustParse(t, `[1.50, 1e400, 123456789012345678901234567890]`, DefaultOptions())
	want := []struct {
		lit  string
		form value.Form
	}{
		{"1.50", value.FloatForm},
		{"1e400", value.DecimalForm},
		{"123456789012345678901234567890", value.DecimalForm},
	}
	for i, w := range want {
		item, _ := root.Index(i)
		n, _ := item.AsNumber()
		if n.Literal() != w.lit || n.Form() != w.form {
			t.Errorf("item %d = %s (form %v), want %s (form %v)", i, n.Literal(), n.Form(), w.lit, w.form)
		}
	}
}

func TestParse_Errors(t *testing.T) {
	testCases := []struct {
		name string
		src  string
		want error
	}{
		{"Empty", ``, ErrUnexpectedToken},
		{"WhitespaceOnly", "  \n\t", ErrUnexpectedToken},
		{"MissingValue", `{"a": }`, ErrUnexpectedToken},
		{"MissingColon", `{"a" 1}`, ErrUnexpectedToken},
		{"NonStringKey", `{1: 2}`, ErrUnexpectedToken},
		{"UnclosedArray", `[1, 2`, ErrUnexpectedToken},
		{"MissingComma", `[1 2]`, ErrUnexpectedToken},
		{"TrailingCommaArray", `[1,]`, ErrUnexpectedToken},
		{"TrailingCommaObject", `{"a":1,}`, ErrUnexpectedToken},
		{"TrailingData", `{} {}`, ErrTrailingData},
		{"TrailingGarbage", `1 @`, ErrTrailingData},
		{"LexError", `["a\q"]`, lexer.ErrInvalidEscape},
		{"CommentsDisabled", `[1 /* c */]`, lexer.ErrUnexpectedByte},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseString(tc.src, DefaultOptions())
			if err == nil {
				t.Fatalf("ParseString(%q) err = nil, want %v", tc.src, tc.want)
			}
			if !stderrors.Is(err, tc.want) {
				t.Errorf("ParseString(%q) err = %v, want %v", tc.src, err, tc.want)
			}
		})
	}
}

func TestParse_UnexpectedTokenLocation(t *testing.T) {
	_, err := ParseString("{\n  \"a\": 1,\n  \"b\" 2\n}", DefaultOptions())
	var perr *Error
	if !stderrors.As(err, &perr) {
		t.Fatalf("err = %v, want *Error", err)
	}
	if perr.Expected != "':'" || perr.Found != "number 2" {
		t.Errorf("expected/found = %s/%s", perr.Expected, perr.Found)
	}
	if perr.Location.Line != 3 || perr.Location.Column != 7 {
		t.Errorf("location = %v, want line 3 column 7", perr.Location)
	}
}

func TestParse_RelaxedOptions(t *testing.T) {
	opts := Options{AllowTrailingComma: true, AllowComments: true}
	root := mustParse(t, "{\n  // comment\n  \"a\": [1, 2,],\n  \"b\": 3, /* x */\n}", opts)
	if got := strings.Join(root.Keys(), ","); got != "a,b" {
		t.Errorf("keys = %s, want a,b", got)
	}
	a, _ := root.Get("a")
	if a.Len() != 2 {
		t.Errorf("len(a) = %d, want 2", a.Len())
	}

	if _, err := ParseString(`[,]`, opts); !stderrors.Is(err, ErrUnexpectedToken) {
		t.Errorf("leading comma err = %v, want unexpected token", err)
	}
}

func TestParse_DepthLimit(t *testing.T) {
	nested := func(n int) string {
		return strings.Repeat("[", n) + strings.Repeat("]", n)
	}
	opts := Options{MaxDepth: 3}

	if _, err := ParseString(nested(3), opts); err != nil {
		t.Errorf("depth 3 err = %v, want nil", err)
	}
	_, err := ParseString(nested(4), opts)
	if !stderrors.Is(err, ErrDepthExceeded) {
		t.Fatalf("depth 4 err = %v, want depth exceeded", err)
	}
	var perr *Error
	stderrors.As(err, &perr)
	if perr.Location.Offset != 3 {
		t.Errorf("depth error offset = %d, want 3", perr.Location.Offset)
	}

	// The default limit stops pathological input without exhausting the stack.
	if _, err := ParseString(nested(100000), DefaultOptions()); !stderrors.Is(err, ErrDepthExceeded) {
		t.Errorf("deep input err = %v, want depth exceeded", err)
	}
}

func TestParse_DuplicateKeys(t *testing.T) {
	src := `{"a": 1, "b": 2, "a": 3}`

	root := mustParse(t, src, DefaultOptions())
	if got := strings.Join(root.Keys(), ","); got != "a,b" {
		t.Errorf("keys = %s, want a,b", got)
	}
	a, _ := root.Get("a")
	if n, _ := a.AsNumber(); n.String() != "3" {
		t.Errorf("a = %s, want last value 3", n)
	}

	_, err := ParseString(src, Options{DuplicateKeys: Reject})
	var perr *Error
	if !stderrors.As(err, &perr) || perr.Kind != DuplicateKey {
		t.Fatalf("err = %v, want duplicate key", err)
	}
	if perr.Key != "a" || perr.Location.Offset != 17 {
		t.Errorf("duplicate key = %q at %d, want \"a\" at 17", perr.Key, perr.Location.Offset)
	}
}

func TestDocuments(t *testing.T) {
	var got []string
	for v, err := range Documents([]byte("{\"n\":1}\n[2]\n  \"three\" 4"), DefaultOptions()) {
		if err != nil {
			t.Fatalf("Documents() error = %v", err)
		}
		got = append(got, v.Kind().String())
	}
	if strings.Join(got, ",") != "object,array,string,number" {
		t.Errorf("kinds = %v", got)
	}
}

func TestDocuments_StopsAtFirstError(t *testing.T) {
	var docs, errs int
	for _, err := range Documents([]byte(`1 2 ] 4`), DefaultOptions()) {
		if err != nil {
			errs++
			continue
		}
		docs++
	}
	if docs != 2 || errs != 1 {
		t.Errorf("docs = %d, errs = %d, want 2 and 1", docs, errs)
	}
}

func TestDocuments_MaxDocumentsStopsEarly(t *testing.T) {
	var docs int
	for _, err := range Documents([]byte(`1 2 3 ]`), Options{MaxDocuments: 2}) {
		if err != nil {
			t.Fatalf("Documents() error = %v, want early stop", err)
		}
		docs++
	}
	if docs != 2 {
		t.Errorf("docs = %d, want 2", docs)
	}
}

func TestDocuments_RequiresSeparator(t *testing.T) {
	tests := []struct {
		input  string
		docs   int
		offset int
	}{
		{`[1][2]`, 1, 3},
		{`{}{}`, 1, 2},
		{`1 "a""b"`, 2, 5},
		{`true[]`, 1, 4},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			var docs int
			var last error
			for _, err := range Documents([]byte(tt.input), DefaultOptions()) {
				if err != nil {
					last = err
					continue
				}
				docs++
			}
			var perr *Error
			if docs != tt.docs || !stderrors.As(last, &perr) || perr.Kind != MissingSeparator {
				t.Fatalf("docs = %d, err = %v, want %d docs then a missing separator", docs, last, tt.docs)
			}
			if perr.Location.Offset != tt.offset {
				t.Errorf("offset = %d, want %d", perr.Location.Offset, tt.offset)
			}
		})
	}

	var docs int
	opts := Options{AllowComments: true}
	for _, err := range Documents([]byte("[1]/* next */[2]// last\n3"), opts) {
		if err != nil {
			t.Fatalf("Documents() error = %v", err)
		}
		docs++
	}
	if docs != 3 {
		t.Errorf("comment-separated docs = %d, want 3", docs)
	}
}

// chunkReader hands out at most n bytes per Read.
type chunkReader struct {
	data []byte
	n    int
}

func (r *chunkReader) Read(p []byte) (int, error) {
	if len(r.data) == 0 {
		return 0, io.EOF
	}
	n := min(r.n, len(p), len(r.data))
	copy(p, r.data[:n])
	r.data = r.data[n:]
	return n, nil
}

func TestDocumentsReader_ChunkBoundaries(t *testing.T) {
	input := "{\"name\": \"a\\\"b\", \"tags\": [\"x\", \"}\"]}\n[1, [2, 3]]\n\"str\" -12.5e3 true null\n{\"k\": {}}"
	want := []string{"object", "array", "string", "number", "boolean", "null", "object"}
	for _, size := range []int{1, 2, 3, 7, 64} {
		var got []string
		for v, err := range DocumentsReader(&chunkReader{data: []byte(input), n: size}, DefaultOptions()) {
			if err != nil {
				t.Fatalf("chunk %d: DocumentsReader() error = %v", size, err)
			}
			got = append(got, v.Kind().String())
		}
		if strings.Join(got, ",") != strings.Join(want, ",") {
			t.Errorf("chunk %d: kinds = %v, want %v", size, got, want)
		}
	}
}

func TestDocumentsReader_ErrorLocation(t *testing.T) {
	var last error
	for _, err := range DocumentsReader(&chunkReader{data: []byte("{\"a\": 1}\n[1,\n  tru]"), n: 4}, DefaultOptions()) {
		last = err
	}
	var lexErr *lexer.Error
	if !stderrors.As(last, &lexErr) {
		t.Fatalf("err = %v, want a lexer error", last)
	}
	if lexErr.Line != 3 || lexErr.Column != 3 || lexErr.Offset != 15 {
		t.Errorf("location = line %d, column %d, offset %d, want 3, 3, 15", lexErr.Line, lexErr.Column, lexErr.Offset)
	}
}

func TestDocumentsReader_DepthLimit(t *testing.T) {
	// Nothing past the first bracket over the limit is needed.
	r := &chunkReader{data: []byte(strings.Repeat("[", 10) + strings.Repeat("]", 10)), n: 1}
	var last error
	for _, err := range DocumentsReader(r, Options{MaxDepth: 3}) {
		last = err
	}
	if !stderrors.Is(last, ErrDepthExceeded) {
		t.Fatalf("err = %v, want depth exceeded", last)
	}
	if len(r.data) != 16 {
		t.Errorf("read %d bytes, want 4", 20-len(r.data))
	}
}

type failingReader struct{ err error }

func (r failingReader) Read([]byte) (int, error) { return 0, r.err }

func TestDocumentsReader_ReadError(t *testing.T) {
	boom := stderrors.New("disk gone")
	var last error
	for _, err := range DocumentsReader(failingReader{boom}, DefaultOptions()) {
		last = err
	}
	if !stderrors.Is(last, boom) {
		t.Errorf("err = %v, want %v", last, boom)
	}
}

func TestParse_TrailingLexError(t *testing.T) {
	_, err := ParseString(`{"a": 1} tru`, DefaultOptions())
	if !stderrors.Is(err, ErrTrailingData) {
		t.Fatalf("err = %v, want trailing data", err)
	}
	if !strings.Contains(err.Error(), "invalid") || !strings.Contains(err.Error(), "column 10") {
		t.Errorf("Error() = %q, want the lexer's message", err.Error())
	}
}

func TestValid(t *testing.T) {
	if !Valid([]byte(`{"a":[1,2,{"b":null}]}`)) {
		t.Error("Valid() = false for well-formed input")
	}
	if Valid([]byte(`{"a":}`)) {
		t.Error("Valid() = true for malformed input")
	}
}

func TestParseFile_SimpleObject(t *testing.T) {
	path := filepath.Join(t.TempDir(), "simple.json")
	if err := os.WriteFile(path, []byte(`{"product": "Laptop", "price": 1200.50}`), 0o644); err != nil {
		t.Fatalf("Failed to write temp file: %v", err)
	}

	root, err := ParseFile(path, DefaultOptions())
	if err != nil {
		t.Fatalf("ParseFile() error = %v, wantErr nil", err)
	}
	price, _ := root.Get("price")
	if n, _ := price.AsNumber(); n.String() != "1200.50" {
		t.Errorf("price = %s, want 1200.50", n)
	}
}

func TestParseFile_NonExistentFile(t *testing.T) {
	_, err := ParseFile(filepath.Join(t.TempDir(), "missing.json"), DefaultOptions())
	if !stderrors.Is(err, errors.ErrFileNotFound) {
		t.Errorf("ParseFile() with non-existent file, err = %v, want file not found", err)
	}
}

func TestParseFile_EmptyPath(t *testing.T) {
	_, err := ParseFile("  ", DefaultOptions())
	if err == nil || !strings.Contains(err.Error(), "file path is empty") {
		t.Errorf("ParseFile() with empty path, err = %v, want error containing 'file path is empty'", err)
	}
}

func TestParseFile_EmptyFileContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.json")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatalf("Failed to create temp file: %v", err)
	}

	_, err := ParseFile(path, DefaultOptions())
	if !stderrors.Is(err, errors.ErrFileEmpty) {
		t.Errorf("ParseFile() with empty file content, err = %v, want file empty", err)
	}
}

func TestParse_Reader(t *testing.T) {
	v, err := Parse(strings.NewReader(`[true]`), DefaultOptions())
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if v.Len() != 1 {
		t.Errorf("len = %d, want 1", v.Len())
	}
}
