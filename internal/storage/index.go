package storage

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"

	"github.com/mcncl/jsondoc/internal/models"
	"github.com/mcncl/jsondoc/internal/path"
	"github.com/mcncl/jsondoc/internal/value"
)

// document assembles the stored record: the payload plus one index entry
// per scalar matched by each expression. Containers are not indexed.
func document(key string, payload []byte, v *value.Value, exprs []*path.Expr) models.StoredDocument {
	doc := models.StoredDocument{Key: key, Payload: payload}
	for _, e := range exprs {
		canonical := e.String()
		for match := range e.Eval(v) {
			sqlValue, ok := scalar(match)
			if !ok {
				continue
			}
			doc.Index = append(doc.Index, models.IndexEntry{
				Path:  canonical,
				Kind:  match.Kind().String(),
				Value: sqlValue,
			})
		}
	}
	return doc
}

// scalar converts v to the value bound in the index table. Integers that
// fit int64 stay exact; other numbers are stored as REAL.
func scalar(v *value.Value) (any, bool) {
	switch v.Kind() {
	case value.NullKind:
		return nil, true
	case value.BoolKind:
		b, _ := v.AsBool()
		if b {
			return int64(1), true
		}
		return int64(0), true
	case value.NumberKind:
		n, _ := v.AsNumber()
		if i, ok := n.Int64(); ok {
			return i, true
		}
		return n.Float64(), true
	case value.StringKind:
		s, _ := v.AsString()
		return s, true
	}
	return nil, false
}

func insertIndex(ctx context.Context, tx *sql.Tx, doc models.StoredDocument) error {
	if len(doc.Index) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx, "INSERT INTO document_index (key, path, kind, value) VALUES (?, ?, ?, ?)")
	if err != nil {
		return errors.Wrap(err, "prepare index insert")
	}
	defer stmt.Close()
	for _, e := range doc.Index {
		if _, err := stmt.ExecContext(ctx, doc.Key, e.Path, e.Kind, e.Value); err != nil {
			return errors.Wrapf(err, "index %s of %q", e.Path, doc.Key)
		}
	}
	return nil
}

// Query returns the keys, in ascending order, of documents with an indexed
// scalar at expr that compares true against v. expr must be one of the
// indexed expressions, in any spelling with the same canonical form. Only
// the index table is read.
//
// Ordering operators apply to numbers and strings; against null or a
// boolean they match nothing. Ne matches documents holding some indexed
// value at expr that differs from v.
func (s *Store) Query(ctx context.Context, expr string, op path.Op, v *value.Value) ([]string, error) {
	e, err := path.Compile(expr)
	if err != nil {
		return nil, s.fail("query", "", NotIndexed, err)
	}
	canonical := e.String()
	if !s.isIndexed(canonical) {
		return nil, s.fail("query", "", NotIndexed, errors.Errorf("%s is not indexed", canonical))
	}
	arg, ok := scalar(v)
	if !ok {
		return nil, s.fail("query", "", Encode, errors.Errorf("cannot compare against %s", v.Kind()))
	}
	kind := v.Kind().String()

	var cond string
	switch op {
	case path.Eq:
		cond = "kind = ? AND value IS ?"
	case path.Ne:
		cond = "NOT (kind = ? AND value IS ?)"
	case path.Lt, path.Le, path.Gt, path.Ge:
		if v.Kind() != value.NumberKind && v.Kind() != value.StringKind {
			return nil, nil
		}
		cond = "kind = ? AND value " + op.String() + " ?"
	default:
		return nil, s.fail("query", "", NotIndexed, errors.Errorf("unsupported operator %s", op))
	}

	s.log.DebugContext(ctx, "query", "path", canonical, "op", op.String())
	return s.keys(ctx, "query",
		"SELECT DISTINCT key FROM document_index WHERE path = ? AND "+cond+" ORDER BY key",
		canonical, kind, arg)
}
