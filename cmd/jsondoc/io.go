package main

import (
	"bufio"
	"bytes"
	stderrors "errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/mcncl/jsondoc/internal/errors"
	"github.com/mcncl/jsondoc/internal/formatter"
	"github.com/mcncl/jsondoc/internal/parser"
	"github.com/mcncl/jsondoc/internal/value"
)

// stdinName is the input argument that selects stdin explicitly.
const stdinName = "-"

// readInput reads a file, or stdin when path is empty or "-".
func (ctx *Context) readInput(path string) ([]byte, error) {
	if path != "" && path != stdinName {
		data, err := os.ReadFile(path)
		if stderrors.Is(err, fs.ErrNotExist) {
			return nil, errors.NewInputError(fmt.Sprintf("cannot read '%s'", path), errors.ErrFileNotFound)
		}
		if err != nil {
			return nil, errors.NewInputError(fmt.Sprintf("failed to read '%s'", path), err)
		}
		if len(bytes.TrimSpace(data)) == 0 {
			return nil, errors.NewInputError(fmt.Sprintf("cannot read '%s'", path), errors.ErrFileEmpty)
		}
		ctx.Log.Debug("read input", "path", path, "bytes", len(data))
		return data, nil
	}

	if isTerminal(ctx.Stdin) {
		return ctx.readInteractiveInput()
	}

	// Read from stdin (piped input)
	data, err := io.ReadAll(ctx.Stdin)
	if err != nil {
		return nil, errors.NewInputError("failed to read from stdin", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, errors.NewInputError("empty input received from stdin", errors.ErrEmptyInput)
	}
	ctx.Log.Debug("read input", "path", stdinName, "bytes", len(data))
	return data, nil
}

func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	if !ok {
		return false
	}
	info, err := f.Stat()
	return err == nil && info.Mode()&os.ModeCharDevice != 0
}

// readInteractiveInput lets users paste a document and signal completion
// with Ctrl+D (EOF)
func (ctx *Context) readInteractiveInput() ([]byte, error) {
	fmt.Fprintln(ctx.Stderr, "jsondoc interactive mode")
	fmt.Fprintln(ctx.Stderr, "Paste your JSON below and press Ctrl+D (or Ctrl+Z on Windows) when done:")

	reader := bufio.NewReader(ctx.Stdin)
	var buf bytes.Buffer
	for {
		line, err := reader.ReadString('\n')
		buf.WriteString(line)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.NewInputError("error reading input", err)
		}
	}

	if len(bytes.TrimSpace(buf.Bytes())) == 0 {
		return nil, errors.NewInputError("empty input received", errors.ErrEmptyInput)
	}
	fmt.Fprintln(ctx.Stderr, "\nProcessing...")
	return buf.Bytes(), nil
}

// parseInput reads and parses one document.
func (ctx *Context) parseInput(path string) (*value.Value, error) {
	data, err := ctx.readInput(path)
	if err != nil {
		return nil, err
	}
	v, err := parser.ParseBytes(data, ctx.Config.ParserOptions())
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeParsing, "failed to parse "+displayName(path))
	}
	return v, nil
}

// openInput opens a file, or stdin when path is empty or "-".
func (ctx *Context) openInput(path string) (io.ReadCloser, error) {
	if path != "" && path != stdinName {
		f, err := os.Open(path)
		if stderrors.Is(err, fs.ErrNotExist) {
			return nil, errors.NewInputError(fmt.Sprintf("cannot read '%s'", path), errors.ErrFileNotFound)
		}
		if err != nil {
			return nil, errors.NewInputError(fmt.Sprintf("failed to read '%s'", path), err)
		}
		ctx.Log.Debug("streaming input", "path", path)
		return f, nil
	}

	if isTerminal(ctx.Stdin) {
		data, err := ctx.readInteractiveInput()
		if err != nil {
			return nil, err
		}
		return io.NopCloser(bytes.NewReader(data)), nil
	}
	ctx.Log.Debug("streaming input", "path", stdinName)
	return io.NopCloser(ctx.Stdin), nil
}

// eachDocument parses the documents of a file or stdin one at a time and
// hands each to fn, so only one document is held in memory.
func (ctx *Context) eachDocument(path string, fn func(*value.Value) error) error {
	r, err := ctx.openInput(path)
	if err != nil {
		return err
	}
	defer func() {
		if err := r.Close(); err != nil {
			ctx.Log.Debug("close input", "path", path, "error", err)
		}
	}()

	n := 0
	for v, err := range parser.DocumentsReader(r, ctx.Config.ParserOptions()) {
		if err != nil {
			return errors.Wrap(err, errors.ErrorTypeParsing, "failed to parse "+displayName(path))
		}
		n++
		if err := fn(v); err != nil {
			return err
		}
	}
	if n > 0 {
		return nil
	}
	if path != "" && path != stdinName {
		return errors.NewInputError(fmt.Sprintf("cannot read '%s'", path), errors.ErrFileEmpty)
	}
	return errors.NewInputError("empty input received from stdin", errors.ErrEmptyInput)
}

// parseDocuments collects every document of a file or stdin.
func (ctx *Context) parseDocuments(path string) ([]*value.Value, error) {
	var docs []*value.Value
	err := ctx.eachDocument(path, func(v *value.Value) error {
		docs = append(docs, v)
		return nil
	})
	return docs, err
}

func displayName(path string) string {
	if path == "" || path == stdinName {
		return "stdin"
	}
	return "'" + path + "'"
}

// writeDocument serializes v with the configured formatting and writes it.
func (ctx *Context) writeDocument(path string, v *value.Value) error {
	out, err := formatter.Format(v, ctx.Config.FormatterOptions())
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeSerialize, "failed to serialize document")
	}
	return ctx.writeOutput(path, out)
}

// writeOutput writes data to a file or stdout, ending with a newline.
func (ctx *Context) writeOutput(path string, data []byte) error {
	if len(data) > 0 && data[len(data)-1] != '\n' {
		data = append(data, '\n')
	}
	if path != "" && path != stdinName {
		if err := os.WriteFile(path, data, 0644); err != nil {
			return errors.NewOutputError(fmt.Sprintf("failed to write to file '%s'", path), err)
		}
		fmt.Fprintf(ctx.Stderr, "Output written to %s\n", path)
		return nil
	}

	if _, err := ctx.Stdout.Write(data); err != nil {
		return errors.NewOutputError("failed to write to stdout", err)
	}
	return nil
}
