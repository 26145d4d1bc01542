package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/mcncl/jsondoc/internal/errors"
	"github.com/mcncl/jsondoc/internal/parser"
	"github.com/mcncl/jsondoc/internal/path"
	"github.com/mcncl/jsondoc/internal/storage"
	"github.com/mcncl/jsondoc/internal/value"
)

// StoreCmd groups the document store commands. The store path and indexed
// expressions come from --db and --index or the config file.
type StoreCmd struct {
	Put     StorePutCmd     `cmd:"" help:"Store a document."`
	Get     StoreGetCmd     `cmd:"" help:"Print a stored document."`
	Delete  StoreDeleteCmd  `cmd:"" help:"Delete a stored document."`
	Query   StoreQueryCmd   `cmd:"" help:"List the keys whose indexed value matches."`
	Keys    StoreKeysCmd    `cmd:"" help:"List every stored key."`
	Reindex StoreReindexCmd `cmd:"" help:"Rebuild the index for the configured expressions."`
}

// withStore opens the configured store, runs fn and closes the store.
func (ctx *Context) withStore(fn func(context.Context, *storage.Store) error) error {
	bg := context.Background()
	cfg := ctx.Config
	s, err := storage.Open(bg, cfg.Storage.Path, cfg.StorageOptions(ctx.Log))
	if err != nil {
		return errors.NewStorageError(fmt.Sprintf("failed to open store '%s'", cfg.Storage.Path), err)
	}
	err = fn(bg, s)
	if cerr := s.Close(); err == nil && cerr != nil {
		err = errors.NewStorageError("failed to close store", cerr)
	}
	return err
}

// StorePutCmd stores a document.
type StorePutCmd struct {
	Input string `arg:"" optional:"" help:"Document file. Reads stdin when omitted." type:"path"`
	Key   string `help:"Key to store under. A new UUID is used when omitted." short:"k"`
}

func (c *StorePutCmd) Run(ctx *Context) error {
	v, err := ctx.parseInput(c.Input)
	if err != nil {
		return err
	}
	return ctx.withStore(func(bg context.Context, s *storage.Store) error {
		key, err := s.Put(bg, c.Key, v)
		if err != nil {
			return errors.NewStorageError("failed to store document", err)
		}
		fmt.Fprintln(ctx.Stdout, key)
		return nil
	})
}

// StoreGetCmd prints a stored document.
type StoreGetCmd struct {
	Key    string `arg:"" help:"Document key."`
	Output string `help:"Output file. Writes stdout when omitted." short:"o" type:"path"`
}

func (c *StoreGetCmd) Run(ctx *Context) error {
	return ctx.withStore(func(bg context.Context, s *storage.Store) error {
		v, err := s.Get(bg, c.Key)
		if err != nil {
			return errors.NewStorageError("failed to load document", err)
		}
		return ctx.writeDocument(c.Output, v)
	})
}

// StoreDeleteCmd deletes a stored document.
type StoreDeleteCmd struct {
	Key string `arg:"" help:"Document key."`
}

func (c *StoreDeleteCmd) Run(ctx *Context) error {
	return ctx.withStore(func(bg context.Context, s *storage.Store) error {
		if err := s.Delete(bg, c.Key); err != nil {
			return errors.NewStorageError("failed to delete document", err)
		}
		return nil
	})
}

// StoreQueryCmd finds documents by an indexed scalar.
type StoreQueryCmd struct {
	Expr  string `arg:"" help:"Indexed path expression, e.g. $.user.id"`
	Op    string `arg:"" help:"Comparison: ==, !=, <, <=, >, >= or eq, ne, lt, le, gt, ge."`
	Value string `arg:"" help:"JSON literal to compare with. Text that is not JSON is taken as a string."`
}

func (c *StoreQueryCmd) Run(ctx *Context) error {
	op, err := path.ParseOp(c.Op)
	if err != nil {
		return errors.NewInputError("invalid comparison", err)
	}
	return ctx.withStore(func(bg context.Context, s *storage.Store) error {
		keys, err := s.Query(bg, c.Expr, op, literal(c.Value))
		if err != nil {
			return errors.NewStorageError("query failed", err)
		}
		return ctx.printKeys(keys)
	})
}

// literal reads a command line comparison value. Bare words such as Ada
// are strings; "Ada" quoted for the shell works too.
func literal(s string) *value.Value {
	v, err := parser.ParseString(s, parser.DefaultOptions())
	if err != nil || v.Kind() == value.ArrayKind || v.Kind() == value.ObjectKind {
		return value.NewString(s)
	}
	return v
}

// StoreKeysCmd lists every key.
type StoreKeysCmd struct{}

func (c *StoreKeysCmd) Run(ctx *Context) error {
	return ctx.withStore(func(bg context.Context, s *storage.Store) error {
		keys, err := s.Keys(bg)
		if err != nil {
			return errors.NewStorageError("failed to list keys", err)
		}
		return ctx.printKeys(keys)
	})
}

// StoreReindexCmd rebuilds the index rows for the configured expressions.
type StoreReindexCmd struct{}

func (c *StoreReindexCmd) Run(ctx *Context) error {
	return ctx.withStore(func(bg context.Context, s *storage.Store) error {
		if err := s.Reindex(bg, ctx.Config.Storage.Indexed); err != nil {
			return errors.NewStorageError("failed to rebuild index", err)
		}
		if err := s.Optimize(bg); err != nil {
			return errors.NewStorageError("failed to optimize store", err)
		}
		n, err := s.Count(bg)
		if err != nil {
			return errors.NewStorageError("failed to count documents", err)
		}
		fmt.Fprintf(ctx.Stdout, "reindexed %d document(s)\n", n)
		return nil
	})
}

func (ctx *Context) printKeys(keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	return ctx.writeOutput("", []byte(strings.Join(keys, "\n")))
}
