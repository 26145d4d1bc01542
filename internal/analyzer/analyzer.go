// Package analyzer infers a schema from sample documents.
package analyzer

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/iancoleman/strcase"

	"github.com/mcncl/jsondoc/internal/config"
	"github.com/mcncl/jsondoc/internal/schema"
	"github.com/mcncl/jsondoc/internal/value"
)

// DefaultRootName is the title given to a root object schema.
const DefaultRootName = "Root"

// Regex patterns for string formats
var (
	uuidRegex = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)

	// Time format patterns (ordered by specificity - most specific first)
	rfc3339Regex  = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}(\.\d+)?(Z|[+-]\d{2}:\d{2})$`) // 2006-01-02T15:04:05Z
	dateOnlyRegex = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)                                              // 2006-01-02

	emailRegex = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
	uriRegex   = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9+.-]*://\S+$`)
)

// Type bits, in the order types are listed in an inferred schema.
const (
	tNull uint8 = 1 << iota
	tBoolean
	tInteger
	tNumber
	tString
	tArray
	tObject
)

var typeNames = []struct {
	bit  uint8
	name string
}{
	{tNull, "null"},
	{tBoolean, "boolean"},
	{tInteger, "integer"},
	{tNumber, "number"},
	{tString, "string"},
	{tArray, "array"},
	{tObject, "object"},
}

// shape accumulates everything seen at one position across all samples.
type shape struct {
	count int
	types uint8

	// format is the one format every string so far satisfied.
	format     string
	sawStrings bool

	objects int
	keys    []string
	members map[string]*shape

	items *shape
}

// Analyzer infers schemas from sample documents
type Analyzer struct {
	// structNames tracks titles given out to avoid collisions
	structNames map[string]int
	// config holds configuration settings for inference
	config *config.Config
}

// NewAnalyzer creates a new Analyzer instance.
func NewAnalyzer() *Analyzer {
	return NewAnalyzerWithConfig(config.NewConfig())
}

// NewAnalyzerWithConfig creates a new Analyzer instance with custom configuration.
func NewAnalyzerWithConfig(cfg *config.Config) *Analyzer {
	return &Analyzer{
		structNames: make(map[string]int),
		config:      cfg,
	}
}

// Infer returns a schema that accepts every sample. Object members keep the
// order they were first seen in, members present in every sample object are
// required, and a position holding several kinds lists them all under
// "type". With no samples the result is the empty schema, which accepts
// anything.
func Infer(samples ...*value.Value) *value.Value {
	return NewAnalyzer().Infer(samples...)
}

// Infer is like the package-level Infer but follows the analyzer's format
// settings.
func (a *Analyzer) Infer(samples ...*value.Value) *value.Value {
	a.structNames = make(map[string]int)
	root := &shape{}
	for _, s := range samples {
		a.observe(root, s, "")
	}
	return a.emit(root, DefaultRootName)
}

func (a *Analyzer) observe(s *shape, v *value.Value, key string) {
	s.count++
	switch v.Kind() {
	case value.NullKind:
		s.types |= tNull
	case value.BoolKind:
		s.types |= tBoolean
	case value.NumberKind:
		n, _ := v.AsNumber()
		if isIntegerLiteral(n) {
			s.types |= tInteger
		} else {
			s.types |= tNumber
		}
	case value.StringKind:
		s.types |= tString
		str, _ := v.AsString()
		f := a.detectFormat(key, str)
		if !s.sawStrings {
			s.format, s.sawStrings = f, true
		} else if s.format != f {
			s.format = ""
		}
	case value.ArrayKind:
		s.types |= tArray
		if s.items == nil {
			s.items = &shape{}
		}
		for _, item := range v.Items() {
			a.observe(s.items, item, key)
		}
	case value.ObjectKind:
		s.types |= tObject
		s.objects++
		if s.members == nil {
			s.members = make(map[string]*shape)
		}
		for k, member := range v.All() {
			child, ok := s.members[k]
			if !ok {
				child = &shape{}
				s.members[k] = child
				s.keys = append(s.keys, k)
			}
			a.observe(child, member, k)
		}
	}
}

// isIntegerLiteral reports whether n was written without a fraction or
// exponent. 1.0 counts as a number so that samples keep their spelling.
func isIntegerLiteral(n value.Number) bool {
	switch n.Form() {
	case value.IntForm:
		return true
	case value.DecimalForm:
		return !strings.ContainsAny(n.Literal(), ".eE")
	}
	return false
}

// detectFormat returns the format str satisfies, or "". A configured
// mapping for key wins over pattern detection when str satisfies it.
func (a *Analyzer) detectFormat(key, str string) string {
	if key != "" {
		if m, ok := a.config.FindFormatMapping(key); ok && schema.CheckFormat(m.Format, str) {
			return m.Format
		}
	}
	if !a.config.Infer.DetectFormats {
		return ""
	}

	var candidate string
	switch {
	case uuidRegex.MatchString(str):
		candidate = "uuid"
	case rfc3339Regex.MatchString(str):
		candidate = "date-time"
	case dateOnlyRegex.MatchString(str):
		candidate = "date"
	case emailRegex.MatchString(str):
		candidate = "email"
	case uriRegex.MatchString(str):
		candidate = "uri"
	default:
		return ""
	}
	// The patterns only shortlist; 2024-13-45 looks like a date but is not.
	if !schema.CheckFormat(candidate, str) {
		return ""
	}
	return candidate
}

func (a *Analyzer) emit(s *shape, name string) *value.Value {
	out := value.NewObject()
	if s == nil || s.count == 0 {
		return out
	}

	types := s.types
	if types&tNumber != 0 {
		// Every integer is also a number.
		types &^= tInteger
	}
	var names []*value.Value
	for _, t := range typeNames {
		if types&t.bit != 0 {
			names = append(names, value.NewString(t.name))
		}
	}
	if len(names) == 1 {
		mustSet(out, "type", names[0])
	} else {
		mustSet(out, "type", value.NewArray(names...))
	}

	if types&tString != 0 && s.format != "" {
		mustSet(out, "format", value.NewString(s.format))
	}

	if types&tArray != 0 && s.items != nil && s.items.count > 0 {
		mustSet(out, "items", a.emit(s.items, singularize(name)))
	}

	if types&tObject != 0 {
		mustSet(out, "title", value.NewString(a.generateUniqueStructName(jsonKeyToPascalCase(name))))
		props := value.NewObject()
		var required []*value.Value
		for _, k := range s.keys {
			member := s.members[k]
			mustSet(props, k, a.emit(member, k))
			if member.count == s.objects {
				required = append(required, value.NewString(k))
			}
		}
		mustSet(out, "properties", props)
		if len(required) > 0 {
			mustSet(out, "required", value.NewArray(required...))
		}
	}
	return out
}

// mustSet attaches a freshly built child, which cannot fail.
func mustSet(obj *value.Value, key string, child *value.Value) {
	if err := obj.Set(key, child); err != nil {
		panic(fmt.Sprintf("analyzer: set %q: %v", key, err))
	}
}

// generateUniqueStructName ensures that the title is unique by appending a number if needed.
func (a *Analyzer) generateUniqueStructName(baseName string) string {
	name := baseName
	count := a.structNames[baseName]
	if count > 0 {
		name = fmt.Sprintf("%s%d", baseName, count)
	}
	a.structNames[baseName] = count + 1
	return name
}

// jsonKeyToPascalCase converts a member key to a PascalCase title.
func jsonKeyToPascalCase(jsonKey string) string {
	pascalCaseName := strcase.ToCamel(jsonKey)

	// Purely symbolic keys like "_" convert to nothing.
	if pascalCaseName == "" {
		return "Item"
	}
	return pascalCaseName
}

// singularize attempts to convert a plural name to a singular one.
// This is a basic implementation and might need a more robust library for complex cases.
var knownSingulars = map[string]string{
	"series":    "series",
	"status":    "status",
	"analysis":  "analysis",
	"species":   "species",
	"news":      "news",
	"goods":     "goods",
	"children":  "child",
	"people":    "person",
	"men":       "man",
	"women":     "woman",
	"data":      "data",
	"media":     "media",
	"addresses": "address",
}

func singularize(plural string) string {
	if singular, ok := knownSingulars[strings.ToLower(plural)]; ok {
		// Preserve original casing if the first letter was capitalized
		if len(plural) > 0 && strings.ToUpper(string(plural[0])) == string(plural[0]) {
			return strings.ToUpper(string(singular[0])) + singular[1:]
		}
		return singular
	}

	lowerPlural := strings.ToLower(plural)

	if strings.HasSuffix(lowerPlural, "ies") && len(lowerPlural) > 3 {
		return plural[:len(plural)-3] + "y"
	}

	// Avoid removing 's' from words like 'bus', 'gas', 'class', 'address'
	if strings.HasSuffix(lowerPlural, "ss") ||
		strings.HasSuffix(lowerPlural, "us") || // e.g. status, virus
		strings.HasSuffix(lowerPlural, "is") { // e.g. analysis, basis
		return plural
	}

	if strings.HasSuffix(lowerPlural, "s") && len(lowerPlural) > 1 {
		return plural[:len(plural)-1]
	}

	return plural
}
