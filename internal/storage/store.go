// Package storage persists documents in an embedded SQLite database.
//
// Each document is stored whole in the documents table. Scalars selected by
// the configured path expressions are copied into document_index, which is
// the only table Query reads. Both tables are written in one transaction.
package storage

import (
	"context"
	"database/sql"
	"log/slog"
	"slices"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/text/unicode/norm"
	_ "modernc.org/sqlite"

	"github.com/mcncl/jsondoc/internal/formatter"
	"github.com/mcncl/jsondoc/internal/parser"
	"github.com/mcncl/jsondoc/internal/path"
	"github.com/mcncl/jsondoc/internal/value"
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// Options configures a Store.
type Options struct {
	// Indexed lists the path expressions whose scalar matches are indexed.
	Indexed []string
	Logger  *slog.Logger
	// Format controls the stored payload text.
	Format formatter.Options
	// Parse controls how payloads are read back.
	Parse parser.Options
}

// DefaultOptions returns compact payloads and default parser limits.
func DefaultOptions() Options {
	return Options{Parse: parser.DefaultOptions()}
}

// Store is a handle on one database. It holds a single connection, so one
// transaction is active at a time. A Store is safe for concurrent use.
type Store struct {
	db   *sql.DB
	log  *slog.Logger
	opts Options

	// mu guards indexed. Writers hold it shared; Reindex holds it
	// exclusively.
	mu      sync.RWMutex
	indexed []*path.Expr

	// beforeIndex runs between the payload write and the index writes.
	beforeIndex func(key string) error
}

// Open opens or creates the database at dsn. A new database gets the
// current schema; an existing one must already carry it.
func Open(ctx context.Context, dsn string, opts Options) (*Store, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{log: logger.With("component", "storage"), opts: opts}

	var err error
	if s.indexed, err = compileAll(opts.Indexed); err != nil {
		return nil, s.fail("open", "", NotIndexed, err)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, s.fail("open", "", Backend, errors.Wrapf(err, "open %s", dsn))
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)
	s.db = db

	for _, pragma := range []string{"PRAGMA foreign_keys = ON", "PRAGMA busy_timeout = 5000"} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, s.fail("open", "", Backend, errors.Wrap(err, pragma))
		}
	}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	s.log.DebugContext(ctx, "opened store", "dsn", dsn, "indexed", len(s.indexed))
	return s, nil
}

func compileAll(exprs []string) ([]*path.Expr, error) {
	out := make([]*path.Expr, 0, len(exprs))
	seen := make(map[string]bool)
	for _, src := range exprs {
		e, err := path.Compile(src)
		if err != nil {
			return nil, err
		}
		if !seen[e.String()] {
			seen[e.String()] = true
			out = append(out, e)
		}
	}
	return out, nil
}

// Close releases the connection.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return s.fail("close", "", Backend, err)
	}
	return nil
}

// Indexed returns the canonical forms of the indexed expressions.
func (s *Store) Indexed() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.indexed))
	for i, e := range s.indexed {
		out[i] = e.String()
	}
	return out
}

func (s *Store) fail(op, key string, reason Reason, err error) *Error {
	return &Error{Reason: reason, Op: op, Key: key, Err: err}
}

// withTx runs fn in a transaction that is rolled back unless fn succeeds
// and the commit goes through.
func (s *Store) withTx(ctx context.Context, op, key string, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return s.fail(op, key, Backend, errors.Wrap(err, "begin"))
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		s.log.DebugContext(ctx, "rolled back", "op", op, "key", key, "error", err)
		var serr *Error
		if errors.As(err, &serr) {
			return serr
		}
		return s.fail(op, key, Backend, err)
	}
	if err := tx.Commit(); err != nil {
		return s.fail(op, key, Backend, errors.Wrap(err, "commit"))
	}
	return nil
}

// normalizeKey returns key in NFC so visually equal keys address the same
// document. An empty key gets a fresh UUID.
func normalizeKey(key string) string {
	if key == "" {
		return uuid.NewString()
	}
	return norm.NFC.String(key)
}

// Put stores v under key, replacing any previous document, and returns the
// key used.
func (s *Store) Put(ctx context.Context, key string, v *value.Value) (string, error) {
	key = normalizeKey(key)
	s.mu.RLock()
	defer s.mu.RUnlock()
	err := s.withTx(ctx, "put", key, func(tx *sql.Tx) error {
		return s.write(ctx, tx, "put", key, v)
	})
	if err != nil {
		return "", err
	}
	return key, nil
}

// Replace overwrites an existing document. It fails with NotFound when key
// is absent.
func (s *Store) Replace(ctx context.Context, key string, v *value.Value) error {
	key = norm.NFC.String(key)
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.withTx(ctx, "replace", key, func(tx *sql.Tx) error {
		var one int
		err := tx.QueryRowContext(ctx, "SELECT 1 FROM documents WHERE key = ?", key).Scan(&one)
		if errors.Is(err, sql.ErrNoRows) {
			return s.fail("replace", key, NotFound, nil)
		}
		if err != nil {
			return errors.Wrap(err, "lookup")
		}
		return s.write(ctx, tx, "replace", key, v)
	})
}

// write stores the payload and rebuilds the document's index rows.
func (s *Store) write(ctx context.Context, tx *sql.Tx, op, key string, v *value.Value) error {
	payload, err := formatter.Format(v, s.opts.Format)
	if err != nil {
		return s.fail(op, key, Encode, err)
	}
	doc := document(key, payload, v, s.indexed)

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO documents (key, payload) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET payload = excluded.payload`,
		doc.Key, doc.Payload); err != nil {
		return errors.Wrapf(err, "write payload of %q", key)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM document_index WHERE key = ?", key); err != nil {
		return errors.Wrapf(err, "clear index of %q", key)
	}
	if s.beforeIndex != nil {
		if err := s.beforeIndex(key); err != nil {
			return err
		}
	}
	if err := insertIndex(ctx, tx, doc); err != nil {
		return err
	}
	s.log.DebugContext(ctx, "stored document", "key", key, "bytes", len(payload), "index_entries", len(doc.Index))
	return nil
}

// Get loads the document stored under key.
func (s *Store) Get(ctx context.Context, key string) (*value.Value, error) {
	key = norm.NFC.String(key)
	var payload []byte
	err := s.db.QueryRowContext(ctx, "SELECT payload FROM documents WHERE key = ?", key).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, s.fail("get", key, NotFound, nil)
	}
	if err != nil {
		return nil, s.fail("get", key, Backend, errors.Wrap(err, "read payload"))
	}
	v, err := parser.ParseBytes(payload, s.opts.Parse)
	if err != nil {
		return nil, s.fail("get", key, Encode, errors.Wrap(err, "decode payload"))
	}
	return v, nil
}

// Delete removes the document and its index rows.
func (s *Store) Delete(ctx context.Context, key string) error {
	key = norm.NFC.String(key)
	return s.withTx(ctx, "delete", key, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM document_index WHERE key = ?", key); err != nil {
			return errors.Wrap(err, "delete index rows")
		}
		res, err := tx.ExecContext(ctx, "DELETE FROM documents WHERE key = ?", key)
		if err != nil {
			return errors.Wrap(err, "delete payload")
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return s.fail("delete", key, NotFound, nil)
		}
		s.log.DebugContext(ctx, "deleted document", "key", key)
		return nil
	})
}

// Keys lists every stored key in ascending order.
func (s *Store) Keys(ctx context.Context) ([]string, error) {
	return s.keys(ctx, "keys", "SELECT key FROM documents ORDER BY key")
}

func (s *Store) keys(ctx context.Context, op, query string, args ...any) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, s.fail(op, "", Backend, errors.Wrap(err, "query"))
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, s.fail(op, "", Backend, errors.Wrap(err, "scan"))
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, s.fail(op, "", Backend, errors.Wrap(err, "iterate"))
	}
	return keys, nil
}

// Count returns the number of stored documents.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT count(*) FROM documents").Scan(&n); err != nil {
		return 0, s.fail("count", "", Backend, errors.Wrap(err, "count"))
	}
	return n, nil
}

// Optimize refreshes the query planner statistics.
func (s *Store) Optimize(ctx context.Context) error {
	for _, stmt := range []string{"ANALYZE", "PRAGMA optimize"} {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return s.fail("optimize", "", Backend, errors.Wrap(err, stmt))
		}
	}
	s.log.DebugContext(ctx, "optimized store")
	return nil
}

// Reindex replaces the indexed expressions and rebuilds every index row in
// one transaction. On failure the previous index stays in place.
func (s *Store) Reindex(ctx context.Context, exprs []string) error {
	compiled, err := compileAll(exprs)
	if err != nil {
		return s.fail("reindex", "", NotIndexed, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	err = s.withTx(ctx, "reindex", "", func(tx *sql.Tx) error {
		docs, err := loadAll(ctx, tx)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM document_index"); err != nil {
			return errors.Wrap(err, "clear index")
		}
		for _, d := range docs {
			v, err := parser.ParseBytes(d.payload, s.opts.Parse)
			if err != nil {
				return s.fail("reindex", d.key, Encode, errors.Wrap(err, "decode payload"))
			}
			if err := insertIndex(ctx, tx, document(d.key, d.payload, v, compiled)); err != nil {
				return err
			}
		}
		s.log.DebugContext(ctx, "reindexed", "documents", len(docs), "paths", len(compiled))
		return nil
	})
	if err != nil {
		return err
	}
	s.indexed = compiled
	return nil
}

type row struct {
	key     string
	payload []byte
}

// loadAll reads every document before any write, so no statement is left
// open on the connection while the index is rebuilt.
func loadAll(ctx context.Context, tx *sql.Tx) ([]row, error) {
	rows, err := tx.QueryContext(ctx, "SELECT key, payload FROM documents ORDER BY key")
	if err != nil {
		return nil, errors.Wrap(err, "load documents")
	}
	defer rows.Close()
	var out []row
	for rows.Next() {
		var r row
		if err := rows.Scan(&r.key, &r.payload); err != nil {
			return nil, errors.Wrap(err, "scan document")
		}
		out = append(out, r)
	}
	return out, errors.Wrap(rows.Err(), "load documents")
}

func (s *Store) isIndexed(canonical string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.ContainsFunc(s.indexed, func(e *path.Expr) bool { return e.String() == canonical })
}
