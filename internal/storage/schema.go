package storage

import (
	"context"
	"database/sql"
	"fmt"
	"slices"

	"github.com/pkg/errors"
)

// schemaVersion is written to PRAGMA user_version.
const schemaVersion = 1

var migrations = []string{
	`CREATE TABLE documents (
		key     TEXT PRIMARY KEY,
		payload BLOB NOT NULL
	)`,
	`CREATE TABLE document_index (
		key   TEXT NOT NULL REFERENCES documents(key) ON DELETE CASCADE,
		path  TEXT NOT NULL,
		kind  TEXT NOT NULL,
		value
	)`,
	`CREATE INDEX document_index_path_value ON document_index(path, value)`,
	`CREATE INDEX document_index_key ON document_index(key)`,
}

var expectedColumns = map[string][]string{
	"documents":      {"key", "payload"},
	"document_index": {"key", "path", "kind", "value"},
}

// migrate creates the tables in an empty database and verifies them in an
// existing one.
func (s *Store) migrate(ctx context.Context) error {
	var version int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return s.fail("open", "", Backend, errors.Wrap(err, "read user_version"))
	}

	switch version {
	case schemaVersion:
		return s.verify(ctx)
	case 0:
	default:
		return s.fail("open", "", IncompatibleSchema, errors.Errorf("schema version %d, want %d", version, schemaVersion))
	}

	var tables int
	if err := s.db.QueryRowContext(ctx, "SELECT count(*) FROM sqlite_master WHERE type = 'table'").Scan(&tables); err != nil {
		return s.fail("open", "", Backend, errors.Wrap(err, "list tables"))
	}
	if tables > 0 {
		return s.fail("open", "", IncompatibleSchema, errors.New("database has foreign tables and no schema version"))
	}

	s.log.DebugContext(ctx, "creating schema", "version", schemaVersion)
	return s.withTx(ctx, "open", "", func(tx *sql.Tx) error {
		for _, stmt := range migrations {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return errors.Wrap(err, "create schema")
			}
		}
		// PRAGMA does not take bound parameters.
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", schemaVersion)); err != nil {
			return errors.Wrap(err, "write user_version")
		}
		return nil
	})
}

func (s *Store) verify(ctx context.Context) error {
	for table, want := range expectedColumns {
		rows, err := s.db.QueryContext(ctx, "SELECT name FROM pragma_table_info(?)", table)
		if err != nil {
			return s.fail("open", "", Backend, errors.Wrapf(err, "inspect %s", table))
		}
		var got []string
		for rows.Next() {
			var name string
			if err := rows.Scan(&name); err != nil {
				rows.Close()
				return s.fail("open", "", Backend, errors.Wrapf(err, "inspect %s", table))
			}
			got = append(got, name)
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return s.fail("open", "", Backend, errors.Wrapf(err, "inspect %s", table))
		}
		if !slices.Equal(got, want) {
			return s.fail("open", "", IncompatibleSchema, errors.Errorf("table %s has columns %v, want %v", table, got, want))
		}
	}
	return nil
}
