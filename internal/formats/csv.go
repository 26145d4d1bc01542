package formats

import (
	"bytes"
	"encoding/csv"
	"errors"
	"io"

	"github.com/mcncl/jsondoc/internal/value"
)

// ToCSV writes an array of flat objects as CSV. The header is the union of
// all member keys in first-seen order; a member an object lacks becomes an
// empty cell, as does null. Nested containers cannot be written.
func ToCSV(v *value.Value) ([]byte, error) {
	if v.Kind() != value.ArrayKind {
		return nil, &Error{Format: CSV, Op: "export", Msg: "want an array of objects, got " + v.Kind().String()}
	}

	var header []string
	seen := make(map[string]bool)
	for i, row := range v.Items() {
		if row.Kind() != value.ObjectKind {
			return nil, &Error{Format: CSV, Op: "export", Path: value.Path{}.Index(i), Msg: "row is " + row.Kind().String() + ", not an object"}
		}
		for _, key := range row.Keys() {
			if !seen[key] {
				seen[key] = true
				header = append(header, key)
			}
		}
	}
	if len(header) == 0 {
		return []byte{}, nil
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(header); err != nil {
		return nil, &Error{Format: CSV, Op: "export", Msg: "write header", Err: err}
	}
	record := make([]string, len(header))
	for i, row := range v.Items() {
		for col, key := range header {
			record[col] = ""
			cell, err := row.Get(key)
			if err != nil {
				continue
			}
			text, ok := scalarText(cell)
			if !ok {
				return nil, &Error{Format: CSV, Op: "export", Path: value.Path{}.Index(i).Key(key), Msg: "cannot write nested " + cell.Kind().String()}
			}
			record[col] = text
		}
		if err := w.Write(record); err != nil {
			return nil, &Error{Format: CSV, Op: "export", Path: value.Path{}.Index(i), Msg: "write row", Err: err}
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, &Error{Format: CSV, Op: "export", Msg: "flush", Err: err}
	}
	return buf.Bytes(), nil
}

// FromCSV reads CSV with a header row into an array of objects keyed by the
// header. Every row must have as many cells as the header. Cell types are
// inferred from their text.
func FromCSV(data []byte) (*value.Value, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.ReuseRecord = true

	out := value.NewArray()
	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return out, nil
	}
	if err != nil {
		return nil, &Error{Format: CSV, Op: "import", Msg: "read header", Err: err}
	}
	header = append([]string(nil), header...)
	seen := make(map[string]bool, len(header))
	for _, h := range header {
		if seen[h] {
			return nil, &Error{Format: CSV, Op: "import", Msg: "duplicate column " + h}
		}
		seen[h] = true
	}

	for i := 0; ; i++ {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, &Error{Format: CSV, Op: "import", Path: value.Path{}.Index(i), Msg: "read row", Err: err}
		}
		row := value.NewObject()
		for col, cell := range record {
			set(row, header[col], inferScalar(cell))
		}
		appendItem(out, row)
	}
	return out, nil
}
