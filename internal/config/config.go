package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/mcncl/jsondoc/internal/converter"
	"github.com/mcncl/jsondoc/internal/formatter"
	"github.com/mcncl/jsondoc/internal/parser"
	"github.com/mcncl/jsondoc/internal/path"
	"github.com/mcncl/jsondoc/internal/schema"
	"github.com/mcncl/jsondoc/internal/storage"
	"github.com/mcncl/jsondoc/internal/transform"
)

// Config represents the complete configuration for jsondoc
type Config struct {
	Parse   ParseConfig   `yaml:"parse"`
	Format  FormatConfig  `yaml:"format"`
	Convert ConvertConfig `yaml:"convert"`
	Storage StorageConfig `yaml:"storage"`
	Infer   InferConfig   `yaml:"infer"`
	Merge   MergeConfig   `yaml:"merge"`
	Dev     DevConfig     `yaml:"dev"`
}

// ParseConfig controls how input text is read
type ParseConfig struct {
	MaxDepth           int    `yaml:"max_depth"`
	AllowComments      bool   `yaml:"allow_comments"`
	AllowTrailingComma bool   `yaml:"allow_trailing_comma"`
	DuplicateKeys      string `yaml:"duplicate_keys"` // "last" or "reject"
	MaxDocuments       int    `yaml:"max_documents"`
}

// FormatConfig controls serializer output
type FormatConfig struct {
	Indent         int  `yaml:"indent"`
	UseTabs        bool `yaml:"use_tabs"`
	SortKeys       bool `yaml:"sort_keys"`
	ASCIIOnly      bool `yaml:"ascii_only"`
	FloatPrecision int  `yaml:"float_precision"`
}

// ConvertConfig controls struct conversion
type ConvertConfig struct {
	Strict bool   `yaml:"strict"`
	Naming string `yaml:"naming"` // tag, snake, camel, lowerCamel or kebab
}

// StorageConfig controls the document store
type StorageConfig struct {
	Path    string   `yaml:"path"`
	Indexed []string `yaml:"indexed"`
}

// InferConfig controls schema inference
type InferConfig struct {
	DetectFormats bool            `yaml:"detect_formats"`
	Mappings      []FormatMapping `yaml:"mappings"`
}

// FormatMapping assigns a string format to every member whose key matches
// Pattern.
type FormatMapping struct {
	Pattern string `yaml:"pattern"`
	Format  string `yaml:"format"`
	Comment string `yaml:"comment,omitempty"`

	// compiled regex (not serialized)
	regex *regexp.Regexp
}

// MergeConfig controls document merging
type MergeConfig struct {
	Policy string `yaml:"policy"`
}

// DevConfig contains development/debug options
type DevConfig struct {
	Debug   bool `yaml:"debug"`
	Verbose bool `yaml:"verbose"`
}

// NewConfig creates a new Config with default values
func NewConfig() *Config {
	return &Config{
		Parse: ParseConfig{
			MaxDepth:      parser.DefaultMaxDepth,
			DuplicateKeys: "last",
		},
		Format: FormatConfig{
			Indent: 0,
		},
		Convert: ConvertConfig{
			Naming: converter.NamingTag.String(),
		},
		Storage: StorageConfig{
			Path:    "jsondoc.db",
			Indexed: []string{},
		},
		Infer: InferConfig{
			DetectFormats: true,
			Mappings:      []FormatMapping{},
		},
		Merge: MergeConfig{
			Policy: transform.PreferB.String(),
		},
	}
}

// LoadConfig loads configuration from a YAML file
func LoadConfig(path string) (*Config, error) {
	// Read file
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Start with defaults
	cfg := NewConfig()

	// Parse YAML
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// FindConfigFile searches for a config file in current directory and parents
func FindConfigFile() string {
	configNames := []string{".jsondoc.yml", ".jsondoc.yaml", "jsondoc.yml", "jsondoc.yaml"}

	// Start from current directory
	currentDir, err := os.Getwd()
	if err != nil {
		return ""
	}

	// Search up the directory tree
	for {
		for _, name := range configNames {
			configPath := filepath.Join(currentDir, name)
			if _, err := os.Stat(configPath); err == nil {
				return configPath
			}
		}

		// Move up one directory
		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir {
			// Reached root directory
			break
		}
		currentDir = parentDir
	}

	return ""
}

// Validate checks the names and expressions a config refers to and compiles
// its patterns.
func (c *Config) Validate() error {
	if _, err := c.duplicatePolicy(); err != nil {
		return err
	}
	if _, err := converter.ParseNaming(c.Convert.Naming); err != nil {
		return fmt.Errorf("invalid naming strategy: %w", err)
	}
	if _, err := transform.ParsePolicy(c.Merge.Policy); err != nil {
		return fmt.Errorf("invalid merge policy: %w", err)
	}
	for _, expr := range c.Storage.Indexed {
		if _, err := path.Compile(expr); err != nil {
			return fmt.Errorf("invalid indexed path: %w", err)
		}
	}
	if c.Format.Indent < 0 {
		return fmt.Errorf("invalid indent %d", c.Format.Indent)
	}
	return c.compilePatterns()
}

// compilePatterns compiles all regex patterns in the config
func (c *Config) compilePatterns() error {
	for i := range c.Infer.Mappings {
		mapping := &c.Infer.Mappings[i]
		regex, err := regexp.Compile(mapping.Pattern)
		if err != nil {
			return fmt.Errorf("invalid format mapping pattern '%s': %w", mapping.Pattern, err)
		}
		mapping.regex = regex
		if !schema.KnownFormat(mapping.Format) {
			return fmt.Errorf("format mapping '%s' names unsupported format %q", mapping.Pattern, mapping.Format)
		}
	}
	return nil
}

// MatchesField checks if this mapping matches the given member key
func (fm *FormatMapping) MatchesField(key string) bool {
	if fm.regex == nil {
		// Try to compile if not already compiled (fallback)
		regex, err := regexp.Compile(fm.Pattern)
		if err != nil {
			return false
		}
		fm.regex = regex
	}
	return fm.regex.MatchString(key)
}

// FindFormatMapping finds the first format mapping that matches the key
func (c *Config) FindFormatMapping(key string) (FormatMapping, bool) {
	for i := range c.Infer.Mappings {
		if c.Infer.Mappings[i].MatchesField(key) {
			return c.Infer.Mappings[i], true
		}
	}
	return FormatMapping{}, false
}

func (c *Config) duplicatePolicy() (parser.DuplicatePolicy, error) {
	switch strings.ToLower(c.Parse.DuplicateKeys) {
	case "", "last", "last_wins", "last-wins":
		return parser.LastWins, nil
	case "reject", "error":
		return parser.Reject, nil
	}
	return 0, fmt.Errorf("invalid duplicate key policy %q", c.Parse.DuplicateKeys)
}

// ParserOptions returns the parser settings.
func (c *Config) ParserOptions() parser.Options {
	policy, _ := c.duplicatePolicy()
	return parser.Options{
		MaxDepth:           c.Parse.MaxDepth,
		AllowComments:      c.Parse.AllowComments,
		AllowTrailingComma: c.Parse.AllowTrailingComma,
		DuplicateKeys:      policy,
		MaxDocuments:       c.Parse.MaxDocuments,
	}
}

// FormatterOptions returns the serializer settings.
func (c *Config) FormatterOptions() formatter.Options {
	opts := formatter.Options{
		SortKeys:       c.Format.SortKeys,
		ASCIIOnly:      c.Format.ASCIIOnly,
		FloatPrecision: c.Format.FloatPrecision,
	}
	switch {
	case c.Format.UseTabs:
		opts.Indent = formatter.Tab
	case c.Format.Indent > 0:
		opts.Indent = formatter.Indent(c.Format.Indent)
	}
	return opts
}

// ConverterOptions returns the struct conversion settings.
func (c *Config) ConverterOptions() (converter.Options, error) {
	naming, err := converter.ParseNaming(c.Convert.Naming)
	if err != nil {
		return converter.Options{}, err
	}
	return converter.Options{Strict: c.Convert.Strict, Naming: naming}, nil
}

// StorageOptions returns the store settings. Payloads are always stored
// compact regardless of the output format.
func (c *Config) StorageOptions(logger *slog.Logger) storage.Options {
	return storage.Options{
		Indexed: c.Storage.Indexed,
		Logger:  logger,
		Parse:   c.ParserOptions(),
	}
}

// MergePolicy returns the configured merge policy.
func (c *Config) MergePolicy() (transform.Policy, error) {
	return transform.ParsePolicy(c.Merge.Policy)
}

// Overrides carries command line values. Zero values leave the config
// untouched, since a flag left at its default cannot be told apart from an
// explicit one.
type Overrides struct {
	Indent        int
	UseTabs       bool
	SortKeys      bool
	ASCIIOnly     bool
	AllowComments bool
	TrailingComma bool
	Strict        bool
	Naming        string
	Policy        string
	StoragePath   string
	Indexed       []string
	Debug         bool
}

// LoadConfigWithCLI loads config with CLI argument precedence
func LoadConfigWithCLI(configPath string, cli Overrides) (*Config, error) {
	// Start with defaults
	cfg := NewConfig()

	// Load config file if provided
	if configPath != "" {
		fileConfig, err := LoadConfig(configPath)
		if err != nil {
			return nil, err
		}
		cfg = fileConfig
	}

	if cli.Indent > 0 {
		cfg.Format.Indent = cli.Indent
	}
	cfg.Format.UseTabs = cfg.Format.UseTabs || cli.UseTabs
	cfg.Format.SortKeys = cfg.Format.SortKeys || cli.SortKeys
	cfg.Format.ASCIIOnly = cfg.Format.ASCIIOnly || cli.ASCIIOnly
	cfg.Parse.AllowComments = cfg.Parse.AllowComments || cli.AllowComments
	cfg.Parse.AllowTrailingComma = cfg.Parse.AllowTrailingComma || cli.TrailingComma
	cfg.Convert.Strict = cfg.Convert.Strict || cli.Strict
	cfg.Dev.Debug = cfg.Dev.Debug || cli.Debug
	if cli.Naming != "" {
		cfg.Convert.Naming = cli.Naming
	}
	if cli.Policy != "" {
		cfg.Merge.Policy = cli.Policy
	}
	if cli.StoragePath != "" {
		cfg.Storage.Path = cli.StoragePath
	}
	if len(cli.Indexed) > 0 {
		cfg.Storage.Indexed = cli.Indexed
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
