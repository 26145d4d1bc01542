package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"github.com/mcncl/jsondoc/internal/config"
	"github.com/mcncl/jsondoc/internal/errors"
)

// Version information
const (
	Version = "0.1.0"
)

// CLI defines the command-line interface
type CLI struct {
	Config  string           `help:"Path to config file. Defaults to the nearest .jsondoc.yml." short:"c" type:"path"`
	Debug   bool             `help:"Enable debug logging." short:"d"`
	Version kong.VersionFlag `help:"Show version information." short:"v"`

	Indent        int  `help:"Spaces per nesting level. 0 writes compact output." short:"n"`
	Tabs          bool `help:"Indent with tabs."`
	SortKeys      bool `help:"Write object members in key order." short:"s"`
	ASCII         bool `help:"Escape every non-ASCII character."`
	Comments      bool `help:"Accept // and /* */ comments in input."`
	TrailingComma bool `help:"Accept a trailing comma before ] and }."`

	DB    string   `help:"Document store path." name:"db" type:"path" group:"store"`
	Index []string `help:"Path expression to index. Repeatable." group:"store" sep:"none"`

	Fmt      FmtCmd      `cmd:"" help:"Reformat JSON documents."`
	Validate ValidateCmd `cmd:"" help:"Check a document against a schema."`
	Query    QueryCmd    `cmd:"" help:"Print the nodes a path expression selects."`
	Diff     DiffCmd     `cmd:"" help:"Print the patch that turns one document into another."`
	Patch    PatchCmd    `cmd:"" help:"Apply a patch to a document."`
	Merge    MergeCmd    `cmd:"" help:"Merge two documents."`
	Infer    InferCmd    `cmd:"" help:"Infer a schema from sample documents."`
	Convert  ConvertCmd  `cmd:"" help:"Convert between JSON, YAML, CSV, XML and INI."`
	Store    StoreCmd    `cmd:"" help:"Work with the document store."`
}

// Context holds the runtime context
type Context struct {
	Config *config.Config
	Log    *slog.Logger
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// run parses args, executes the selected command and returns the exit code.
func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	var cli CLI
	exitCode := -1
	parser, err := kong.New(&cli,
		kong.Name("jsondoc"),
		kong.Description("Parse, validate, query, transform and store JSON documents"),
		kong.UsageOnError(),
		kong.Vars{"version": "jsondoc version " + Version},
		kong.Writers(stdout, stderr),
		kong.Exit(func(code int) { exitCode = code }),
	)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	kctx, err := parser.Parse(args)
	if exitCode >= 0 {
		// --help or --version already wrote their output
		return exitCode
	}
	if err != nil {
		// Prints the error and, through kong.UsageOnError(), the usage
		parser.FatalIfErrorf(err)
		return 1
	}

	ctx, err := newContext(&cli, stdin, stdout, stderr)
	if err == nil {
		err = kctx.Run(ctx)
	}
	if err != nil {
		// Use our custom error handling to provide user-friendly error messages
		fmt.Fprintf(stderr, "%s\n", errors.UserFriendlyError(err))
		return 1
	}
	return 0
}

// newContext loads the config, applies the global flags to it and sets up
// logging.
func newContext(cli *CLI, stdin io.Reader, stdout, stderr io.Writer) (*Context, error) {
	configPath := cli.Config
	if configPath == "" {
		configPath = config.FindConfigFile()
	}
	cfg, err := config.LoadConfigWithCLI(configPath, config.Overrides{
		Indent:        cli.Indent,
		UseTabs:       cli.Tabs,
		SortKeys:      cli.SortKeys,
		ASCIIOnly:     cli.ASCII,
		AllowComments: cli.Comments,
		TrailingComma: cli.TrailingComma,
		StoragePath:   cli.DB,
		Indexed:       cli.Index,
		Debug:         cli.Debug,
	})
	if err != nil {
		return nil, errors.NewInputError("failed to load configuration", err)
	}

	level := slog.LevelWarn
	if cfg.Dev.Debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))
	if configPath != "" {
		logger.Debug("loaded config", "path", configPath)
	}

	return &Context{
		Config: cfg,
		Log:    logger,
		Stdin:  stdin,
		Stdout: stdout,
		Stderr: stderr,
	}, nil
}
