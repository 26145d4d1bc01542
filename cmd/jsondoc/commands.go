package main

import (
	"bytes"
	"fmt"
	"slices"

	"github.com/mcncl/jsondoc/internal/analyzer"
	"github.com/mcncl/jsondoc/internal/errors"
	"github.com/mcncl/jsondoc/internal/formats"
	"github.com/mcncl/jsondoc/internal/formatter"
	"github.com/mcncl/jsondoc/internal/generator"
	"github.com/mcncl/jsondoc/internal/schema"
	"github.com/mcncl/jsondoc/internal/transform"
	"github.com/mcncl/jsondoc/internal/value"
)

// FmtCmd reformats every document of its input.
type FmtCmd struct {
	Input  string `arg:"" optional:"" help:"Input file. Reads stdin when omitted." type:"path"`
	Output string `help:"Output file. Writes stdout when omitted." short:"o" type:"path"`
	Check  bool   `help:"Only check that the input parses."`
}

func (c *FmtCmd) Run(ctx *Context) error {
	if c.Check {
		n := 0
		if err := ctx.eachDocument(c.Input, func(*value.Value) error { n++; return nil }); err != nil {
			return err
		}
		fmt.Fprintf(ctx.Stdout, "%d document(s) OK\n", n)
		return nil
	}

	f := formatter.NewFormatter(ctx.Config.FormatterOptions())
	var buf bytes.Buffer
	err := ctx.eachDocument(c.Input, func(v *value.Value) error {
		if err := f.Write(&buf, v); err != nil {
			return errors.Wrap(err, errors.ErrorTypeSerialize, "failed to serialize document")
		}
		buf.WriteByte('\n')
		if c.Output != "" {
			return nil
		}
		// Without -o each document goes out as soon as it is formatted.
		_, err := ctx.Stdout.Write(buf.Bytes())
		buf.Reset()
		if err != nil {
			return errors.NewOutputError("failed to write to stdout", err)
		}
		return nil
	})
	if err != nil || c.Output == "" {
		return err
	}
	return ctx.writeOutput(c.Output, buf.Bytes())
}

// ValidateCmd checks a document against a schema.
type ValidateCmd struct {
	Schema   string `arg:"" help:"Schema file." type:"path"`
	Input    string `arg:"" optional:"" help:"Document file. Reads stdin when omitted." type:"path"`
	Captures bool   `help:"Print the captured values as an object."`
}

func (c *ValidateCmd) Run(ctx *Context) error {
	s, err := ctx.parseInput(c.Schema)
	if err != nil {
		return err
	}
	val, err := schema.Compile(s)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeCompile, "failed to compile schema")
	}
	v, err := ctx.parseInput(c.Input)
	if err != nil {
		return err
	}

	captures, err := val.Validate(v)
	if err != nil {
		return errors.NewValidationError(displayName(c.Input)+" does not match the schema", err)
	}
	ctx.Log.Debug("validated", "captures", len(captures))
	if !c.Captures {
		fmt.Fprintln(ctx.Stdout, "valid")
		return nil
	}

	keys := make([]string, 0, len(captures))
	for k := range captures {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	out := value.NewObject()
	for _, k := range keys {
		if err := out.Set(k, captures[k].Clone()); err != nil {
			return errors.Wrap(err, errors.ErrorTypeOutput, "failed to collect captures")
		}
	}
	return ctx.writeDocument("", out)
}

// QueryCmd prints the matches of a path expression, one per line.
type QueryCmd struct {
	Expr  string `arg:"" help:"Path expression, e.g. $.items[?(@.qty > 1)].sku"`
	Input string `arg:"" optional:"" help:"Input file. Reads stdin when omitted." type:"path"`
	Paths bool   `help:"Prefix each match with its JSON Pointer." short:"p"`
	First bool   `help:"Stop after the first match."`
}

func (c *QueryCmd) Run(ctx *Context) error {
	v, err := ctx.parseInput(c.Input)
	if err != nil {
		return err
	}
	matches, err := transform.QueryPaths(v, c.Expr)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeCompile, "invalid path expression")
	}

	opts := ctx.Config.FormatterOptions()
	opts.Indent = ""
	f := formatter.NewFormatter(opts)
	var buf bytes.Buffer
	n := 0
	for p, m := range matches {
		if c.Paths {
			buf.WriteString(p.Pointer())
			buf.WriteByte('\t')
		}
		if err := f.Write(&buf, m); err != nil {
			return errors.Wrap(err, errors.ErrorTypeSerialize, "failed to serialize match")
		}
		buf.WriteByte('\n')
		n++
		if c.First {
			break
		}
	}
	ctx.Log.Debug("query", "expr", c.Expr, "matches", n)
	if n == 0 {
		return nil
	}
	return ctx.writeOutput("", buf.Bytes())
}

// DiffCmd prints an RFC 6902 patch from A to B.
type DiffCmd struct {
	A    string `arg:"" help:"Original document." type:"path"`
	B    string `arg:"" optional:"" help:"Changed document. Reads stdin when omitted." type:"path"`
	Fail bool   `help:"Exit with an error when the documents differ."`
}

func (c *DiffCmd) Run(ctx *Context) error {
	a, err := ctx.parseInput(c.A)
	if err != nil {
		return err
	}
	b, err := ctx.parseInput(c.B)
	if err != nil {
		return err
	}
	ops := transform.Diff(a, b)
	if err := ctx.writeDocument("", transform.OpsToValue(ops)); err != nil {
		return err
	}
	if c.Fail && len(ops) > 0 {
		return errors.ErrDocumentsDiffer
	}
	return nil
}

// PatchCmd applies an RFC 6902 patch.
type PatchCmd struct {
	Patch  string `arg:"" help:"Patch file." type:"path"`
	Input  string `arg:"" optional:"" help:"Document to patch. Reads stdin when omitted." type:"path"`
	Output string `help:"Output file. Writes stdout when omitted." short:"o" type:"path"`
}

func (c *PatchCmd) Run(ctx *Context) error {
	doc, err := ctx.parseInput(c.Patch)
	if err != nil {
		return err
	}
	ops, err := transform.OpsFromValue(doc)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypePatch, "invalid patch "+displayName(c.Patch))
	}
	v, err := ctx.parseInput(c.Input)
	if err != nil {
		return err
	}
	out, err := transform.Patch(v, ops)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypePatch, "failed to apply patch")
	}
	ctx.Log.Debug("patched", "ops", len(ops))
	return ctx.writeDocument(c.Output, out)
}

// MergeCmd merges B into A.
type MergeCmd struct {
	A      string `arg:"" help:"Base document." type:"path"`
	B      string `arg:"" optional:"" help:"Document merged over the base. Reads stdin when omitted." type:"path"`
	Policy string `help:"Conflict policy: prefer-a, prefer-b or fail. Defaults to the configured policy." short:"P"`
	Output string `help:"Output file. Writes stdout when omitted." short:"o" type:"path"`
}

func (c *MergeCmd) Run(ctx *Context) error {
	policy, err := ctx.Config.MergePolicy()
	if c.Policy != "" {
		policy, err = transform.ParsePolicy(c.Policy)
	}
	if err != nil {
		return errors.NewInputError("invalid merge policy", err)
	}
	a, err := ctx.parseInput(c.A)
	if err != nil {
		return err
	}
	b, err := ctx.parseInput(c.B)
	if err != nil {
		return err
	}
	out, err := transform.Merge(a, b, policy)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypePatch, "failed to merge documents")
	}
	return ctx.writeDocument(c.Output, out)
}

// InferCmd derives a schema from every document of its inputs, or Go
// types when --go names a package.
type InferCmd struct {
	Inputs   []string `arg:"" optional:"" help:"Sample files. Reads stdin when omitted." type:"path"`
	Output   string   `help:"Output file. Writes stdout when omitted." short:"o" type:"path"`
	Go       string   `help:"Write Go struct definitions in this package instead of a schema." placeholder:"PACKAGE"`
	RootName string   `help:"Name for the root struct." short:"r" default:"Root"`
}

func (c *InferCmd) Run(ctx *Context) error {
	inputs := c.Inputs
	if len(inputs) == 0 {
		inputs = []string{stdinName}
	}
	var samples []*value.Value
	for _, in := range inputs {
		docs, err := ctx.parseDocuments(in)
		if err != nil {
			return err
		}
		samples = append(samples, docs...)
	}
	ctx.Log.Debug("inferring schema", "samples", len(samples))
	inferred := analyzer.NewAnalyzerWithConfig(ctx.Config).Infer(samples...)
	if c.Go == "" {
		return ctx.writeDocument(c.Output, inferred)
	}

	code, err := generator.NewGenerator().Generate(inferred, c.RootName, c.Go)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeConversion, "failed to generate Go types")
	}
	return ctx.writeOutput(c.Output, []byte(code))
}

// ConvertCmd translates a document between formats. Formats default to
// the file extensions, then to JSON.
type ConvertCmd struct {
	Input  string `arg:"" optional:"" help:"Input file. Reads stdin when omitted." type:"path"`
	From   string `help:"Input format: json, yaml, csv, xml or ini." short:"f"`
	To     string `help:"Output format: json, yaml, csv, xml or ini." short:"t"`
	Output string `help:"Output file. Writes stdout when omitted." short:"o" type:"path"`
}

func (c *ConvertCmd) Run(ctx *Context) error {
	from, err := pickFormat(c.From, c.Input)
	if err != nil {
		return err
	}
	to, err := pickFormat(c.To, c.Output)
	if err != nil {
		return err
	}
	data, err := ctx.readInput(c.Input)
	if err != nil {
		return err
	}
	v, err := formats.Import(from, data, ctx.Config.ParserOptions())
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeConversion, "failed to read "+from.String())
	}
	ctx.Log.Debug("convert", "from", from, "to", to)

	if to == formats.JSON {
		return ctx.writeDocument(c.Output, v)
	}
	out, err := formats.Export(to, v)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeConversion, "failed to write "+to.String())
	}
	return ctx.writeOutput(c.Output, out)
}

func pickFormat(name, path string) (formats.Format, error) {
	if name != "" {
		f, err := formats.ParseFormat(name)
		if err != nil {
			return 0, errors.NewInputError("invalid format", err)
		}
		return f, nil
	}
	if f, ok := formats.FromExtension(path); ok {
		return f, nil
	}
	return formats.JSON, nil
}
