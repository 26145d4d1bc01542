// Package parser builds value trees from JSON text.
package parser

import (
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mcncl/jsondoc/internal/errors"
	"github.com/mcncl/jsondoc/internal/lexer"
	"github.com/mcncl/jsondoc/internal/value"
)

// DefaultMaxDepth bounds container nesting when Options.MaxDepth is zero.
const DefaultMaxDepth = 512

// DuplicatePolicy decides what happens when an object repeats a key.
type DuplicatePolicy uint8

const (
	// LastWins keeps the later value in the position of the first occurrence.
	LastWins DuplicatePolicy = iota
	Reject
)

// Options control the accepted grammar and resource limits.
type Options struct {
	MaxDepth           int
	AllowTrailingComma bool
	AllowComments      bool
	DuplicateKeys      DuplicatePolicy
	// MaxDocuments stops Documents after that many documents without
	// reading further. Zero means no limit.
	MaxDocuments int
}

// DefaultOptions returns strict RFC 8259 settings.
func DefaultOptions() Options {
	return Options{MaxDepth: DefaultMaxDepth}
}

func (o Options) maxDepth() int {
	if o.MaxDepth <= 0 {
		return DefaultMaxDepth
	}
	return o.MaxDepth
}

type parser struct {
	lex   *lexer.Lexer
	opts  Options
	tok   lexer.Token
	depth int
}

func newParser(data []byte, opts Options) *parser {
	return &parser{
		lex:  lexer.New(data, lexer.Options{AllowComments: opts.AllowComments}),
		opts: opts,
	}
}

// ParseBytes parses exactly one JSON document.
func ParseBytes(data []byte, opts Options) (*value.Value, error) {
	p := newParser(data, opts)
	if err := p.advance(); err != nil {
		return nil, err
	}
	root, err := p.parseValue()
	if err != nil {
		return nil, err
	}
	if err := p.advance(); err != nil {
		return nil, &Error{Kind: TrailingData, Location: lexErrorSpan(err), Err: stderrors.Unwrap(err)}
	}
	if p.tok.Kind != lexer.EOF {
		return nil, &Error{Kind: TrailingData, Found: p.tok.String(), Location: p.tok.Span}
	}
	return root, nil
}

// ParseString parses JSON from a string
func ParseString(s string, opts Options) (*value.Value, error) {
	return ParseBytes([]byte(s), opts)
}

// Parse reads r to the end and parses one document.
func Parse(r io.Reader, opts Options) (*value.Value, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.NewInputError("failed to read input", err)
	}
	return ParseBytes(data, opts)
}

// ParseFile parses JSON from a file path
func ParseFile(filePath string, opts Options) (*value.Value, error) {
	if strings.TrimSpace(filePath) == "" {
		return nil, errors.NewInputError("file path is empty", errors.ErrInvalidFilePath)
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewInputError(
				fmt.Sprintf("file '%s' not found", filePath),
				errors.ErrFileNotFound,
			)
		}
		return nil, errors.NewInputError(
			fmt.Sprintf("failed to open file '%s'", filePath),
			err,
		)
	}
	if len(data) == 0 {
		return nil, errors.NewInputError(
			fmt.Sprintf("input file '%s' is empty", filePath),
			errors.ErrFileEmpty,
		)
	}
	return ParseBytes(data, opts)
}

// Valid reports whether data is exactly one well-formed document under
// default options.
func Valid(data []byte) bool {
	_, err := ParseBytes(data, DefaultOptions())
	return err == nil
}

func (p *parser) advance() error {
	tok, err := p.lex.Next()
	if err != nil {
		var lexErr *lexer.Error
		loc := lexer.Span{}
		if stderrors.As(err, &lexErr) {
			loc = lexer.Span{Offset: lexErr.Offset, Line: lexErr.Line, Column: lexErr.Column}
		}
		return &Error{Kind: Lex, Location: loc, Err: err}
	}
	p.tok = tok
	return nil
}

func lexErrorSpan(err error) lexer.Span {
	var pe *Error
	if stderrors.As(err, &pe) {
		return pe.Location
	}
	return lexer.Span{}
}

func (p *parser) unexpected(expected string) error {
	return &Error{Kind: UnexpectedToken, Expected: expected, Found: p.tok.String(), Location: p.tok.Span}
}

// parseValue consumes the tokens of one value starting at p.tok and leaves
// p.tok on the value's last token.
func (p *parser) parseValue() (*value.Value, error) {
	switch p.tok.Kind {
	case lexer.LeftBrace:
		return p.parseObject()
	case lexer.LeftBracket:
		return p.parseArray()
	case lexer.String:
		return value.NewString(p.tok.Text), nil
	case lexer.Number:
		n, err := value.ParseNumber(p.tok.Text)
		if err != nil {
			return nil, &Error{Kind: UnexpectedToken, Expected: "value", Found: p.tok.String(), Location: p.tok.Span, Err: err}
		}
		return value.NewNumber(n), nil
	case lexer.True:
		return value.NewBool(true), nil
	case lexer.False:
		return value.NewBool(false), nil
	case lexer.Null:
		return value.NewNull(), nil
	default:
		return nil, p.unexpected("value")
	}
}

func (p *parser) enter() error {
	if p.depth >= p.opts.maxDepth() {
		return &Error{Kind: DepthExceeded, Limit: p.opts.maxDepth(), Found: p.tok.String(), Location: p.tok.Span}
	}
	p.depth++
	return nil
}

func (p *parser) parseObject() (*value.Value, error) {
	if err := p.enter(); err != nil {
		return nil, err
	}
	defer func() { p.depth-- }()

	obj := value.NewObject()
	if err := p.advance(); err != nil {
		return nil, err
	}
	if p.tok.Kind == lexer.RightBrace {
		return obj, nil
	}
	for {
		if p.tok.Kind != lexer.String {
			return nil, p.unexpected("string key")
		}
		key, keySpan := p.tok.Text, p.tok.Span
		if err := p.advance(); err != nil {
			return nil, err
		}
		if p.tok.Kind != lexer.Colon {
			return nil, p.unexpected("':'")
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		child, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		if p.opts.DuplicateKeys == Reject && obj.Has(key) {
			return nil, &Error{Kind: DuplicateKey, Key: key, Location: keySpan}
		}
		if err := obj.Set(key, child); err != nil {
			return nil, err
		}

		if err := p.advance(); err != nil {
			return nil, err
		}
		switch p.tok.Kind {
		case lexer.RightBrace:
			return obj, nil
		case lexer.Comma:
			if err := p.advance(); err != nil {
				return nil, err
			}
			if p.tok.Kind == lexer.RightBrace && p.opts.AllowTrailingComma {
				return obj, nil
			}
		default:
			return nil, p.unexpected("',' or '}'")
		}
	}
}

func (p *parser) parseArray() (*value.Value, error) {
	if err := p.enter(); err != nil {
		return nil, err
	}
	defer func() { p.depth-- }()

	arr := value.NewArray()
	if err := p.advance(); err != nil {
		return nil, err
	}
	if p.tok.Kind == lexer.RightBracket {
		return arr, nil
	}
	for {
		item, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		if err := arr.Append(item); err != nil {
			return nil, err
		}

		if err := p.advance(); err != nil {
			return nil, err
		}
		switch p.tok.Kind {
		case lexer.RightBracket:
			return arr, nil
		case lexer.Comma:
			if err := p.advance(); err != nil {
				return nil, err
			}
			if p.tok.Kind == lexer.RightBracket && p.opts.AllowTrailingComma {
				return arr, nil
			}
		default:
			return nil, p.unexpected("',' or ']'")
		}
	}
}
