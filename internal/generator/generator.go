// Package generator writes Go struct definitions for the documents a
// schema describes. The structs carry json tags that converter.Decode
// reads, so generated types can be filled straight from a parsed document.
package generator

import (
	"bytes"
	"fmt"
	"go/format"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/iancoleman/strcase"

	"github.com/mcncl/jsondoc/internal/models"
	"github.com/mcncl/jsondoc/internal/value"
)

const (
	timeImport = "time"
	uuidImport = "github.com/google/uuid"
)

// Generator is responsible for generating Go struct definitions from analysis results
type Generator struct{}

// NewGenerator creates a new Generator instance
func NewGenerator() *Generator {
	return &Generator{}
}

// Generate renders the structs schema describes as a Go file in package
// packageName.
func (g *Generator) Generate(schema *value.Value, rootName, packageName string) (string, error) {
	result, err := Analyze(schema, rootName)
	if err != nil {
		return "", err
	}
	return g.GenerateStructs(result, packageName)
}

// GenerateStructs generates Go struct definitions from the analysis result
func (g *Generator) GenerateStructs(result models.AnalysisResult, packageName string) (string, error) {
	var buf bytes.Buffer

	// Write package declaration
	buf.WriteString(fmt.Sprintf("package %s\n", packageName))

	// Write imports if any
	if len(result.Imports) > 0 {
		buf.WriteString("\nimport (\n")

		// Sort imports for consistent output
		imports := make([]string, 0, len(result.Imports))
		stdLibImports := make([]string, 0)
		thirdPartyImports := make([]string, 0)

		for imp := range result.Imports {
			imports = append(imports, imp)
		}
		sort.Strings(imports)

		// Standard library imports have no dot in their first element
		for _, imp := range imports {
			first, _, _ := strings.Cut(imp, "/")
			if !strings.Contains(first, ".") {
				stdLibImports = append(stdLibImports, imp)
			} else {
				thirdPartyImports = append(thirdPartyImports, imp)
			}
		}

		for _, imp := range stdLibImports {
			buf.WriteString(fmt.Sprintf("\t\"%s\"\n", imp))
		}

		// Add a blank line between standard library and third-party imports if both exist
		if len(stdLibImports) > 0 && len(thirdPartyImports) > 0 {
			buf.WriteString("\n")
		}

		for _, imp := range thirdPartyImports {
			buf.WriteString(fmt.Sprintf("\t\"%s\"\n", imp))
		}

		buf.WriteString(")\n")
	}

	// Sort structs to ensure root structs come first
	sortedStructs := sortStructs(result.Structs)

	for _, structDef := range sortedStructs {
		buf.WriteString("\n")
		buf.WriteString(fmt.Sprintf("type %s struct {\n", structDef.Name))

		// Sort fields alphabetically by GoName for consistent output
		sortedFields := make([]models.FieldInfo, len(structDef.Fields))
		copy(sortedFields, structDef.Fields)
		sort.Slice(sortedFields, func(i, j int) bool {
			return sortedFields[i].GoName < sortedFields[j].GoName
		})

		// Calculate the maximum width for field names and types for proper alignment
		maxNameWidth := 0
		maxTypeWidth := 0
		for _, field := range sortedFields {
			maxNameWidth = max(maxNameWidth, len(field.GoName))
			maxTypeWidth = max(maxTypeWidth, len(getTypeString(field.GoType)))
		}

		for _, field := range sortedFields {
			buf.WriteString(fmt.Sprintf("\t%-*s %-*s %s\n",
				maxNameWidth, field.GoName,
				maxTypeWidth, getTypeString(field.GoType),
				field.JSONTag))
		}

		buf.WriteString("}\n")
	}

	// A root array has no root struct; suggest the slice type
	hasRoot := false
	for _, structDef := range result.Structs {
		if structDef.IsRoot {
			hasRoot = true
			break
		}
	}
	if !hasRoot && len(sortedStructs) > 0 {
		structDef := sortedStructs[0]
		buf.WriteString("\n// For a root array type, you would typically define a type alias like:\n")
		buf.WriteString(fmt.Sprintf("// type %ss []%s\n", structDef.Name, structDef.Name))
	}

	code, err := format.Source(buf.Bytes())
	if err != nil {
		return "", fmt.Errorf("generated code does not parse: %w", err)
	}
	return string(code), nil
}

// sortStructs sorts structs to ensure root structs come first, followed by nested structs
func sortStructs(structs []models.StructDef) []models.StructDef {
	sorted := make([]models.StructDef, len(structs))
	copy(sorted, structs)

	sort.SliceStable(sorted, func(i, j int) bool {
		// If one is root and the other is not, root comes first
		if sorted[i].IsRoot != sorted[j].IsRoot {
			return sorted[i].IsRoot
		}
		return sorted[i].Name < sorted[j].Name
	})

	return sorted
}

// getTypeString converts a TypeInfo to a string representation of the Go type
func getTypeString(typeInfo models.TypeInfo) string {
	var typeStr string

	switch typeInfo.Kind {
	case models.Struct:
		typeStr = typeInfo.StructName
	case models.Slice:
		if typeInfo.SliceElementType != nil {
			typeStr = "[]" + getTypeString(*typeInfo.SliceElementType)
		} else {
			typeStr = "[]interface{}"
		}
	case models.Any:
		typeStr = typeInfo.Name
		if typeStr == "" {
			typeStr = "interface{}"
		}
	default:
		typeStr = typeInfo.Name
	}

	if typeInfo.IsPointer {
		return "*" + typeStr
	}

	return typeStr
}

// analysis collects struct definitions while walking a schema.
type analysis struct {
	result models.AnalysisResult
	names  map[string]int
}

// Analyze turns a schema into struct definitions. The root must describe an
// object, which becomes the root struct, or an array of objects, whose
// element struct is emitted without a root. rootName names that first
// struct; when empty the schema's title is used. Nested structs are named
// by their title or their property key.
func Analyze(schema *value.Value, rootName string) (models.AnalysisResult, error) {
	a := &analysis{
		result: models.AnalysisResult{Imports: map[string]struct{}{}},
		names:  make(map[string]int),
	}
	types, _ := schemaTypes(schema)
	switch {
	case len(types) == 1 && types[0] == "object":
		if rootName == "" {
			rootName = titleOr(schema, "Root")
		}
		if _, err := a.structType(schema, rootName, true, value.Path{}); err != nil {
			return models.AnalysisResult{}, err
		}
	case len(types) == 1 && types[0] == "array":
		items, err := schema.Get("items")
		if err != nil {
			return models.AnalysisResult{}, fmt.Errorf("root array schema has no items")
		}
		if t, _ := schemaTypes(items); len(t) != 1 || t[0] != "object" {
			return models.AnalysisResult{}, fmt.Errorf("root array items must describe objects")
		}
		if rootName == "" {
			rootName = titleOr(items, "Item")
		}
		if _, err := a.structType(items, rootName, false, value.Path{}.Key("items")); err != nil {
			return models.AnalysisResult{}, err
		}
	default:
		return models.AnalysisResult{}, fmt.Errorf("schema root must describe an object or an array of objects")
	}
	return a.result, nil
}

// schemaTypes returns the non-null type names of s and whether null is
// allowed.
func schemaTypes(s *value.Value) ([]string, bool) {
	if s.Kind() != value.ObjectKind {
		return nil, false
	}
	t, err := s.Get("type")
	if err != nil {
		return nil, false
	}
	var names []string
	if name, err := t.AsString(); err == nil {
		names = []string{name}
	}
	for _, item := range t.Items() {
		if name, err := item.AsString(); err == nil {
			names = append(names, name)
		}
	}
	var out []string
	nullable := false
	for _, n := range names {
		if n == "null" {
			nullable = true
			continue
		}
		out = append(out, n)
	}
	return out, nullable
}

func stringMember(s *value.Value, key string) string {
	v, err := s.Get(key)
	if err != nil {
		return ""
	}
	str, _ := v.AsString()
	return str
}

func (a *analysis) typeOf(s *value.Value, key string, p value.Path) (models.TypeInfo, error) {
	types, nullable := schemaTypes(s)
	if len(types) == 2 && (types[0] == "integer" && types[1] == "number" || types[0] == "number" && types[1] == "integer") {
		types = []string{"number"}
	}
	if len(types) != 1 {
		return models.TypeInfo{Kind: models.Any}, nil
	}

	var t models.TypeInfo
	switch types[0] {
	case "string":
		switch stringMember(s, "format") {
		case "date-time":
			a.result.Imports[timeImport] = struct{}{}
			t = models.TypeInfo{Kind: models.Time, Name: "time.Time"}
		case "uuid":
			a.result.Imports[uuidImport] = struct{}{}
			t = models.TypeInfo{Kind: models.UUID, Name: "uuid.UUID"}
		default:
			t = models.TypeInfo{Kind: models.String, Name: "string"}
		}
	case "integer":
		t = models.TypeInfo{Kind: models.Int, Name: "int64"}
	case "number":
		t = models.TypeInfo{Kind: models.Float, Name: "float64"}
	case "boolean":
		t = models.TypeInfo{Kind: models.Bool, Name: "bool"}
	case "array":
		elem := models.TypeInfo{Kind: models.Any}
		if items, err := s.Get("items"); err == nil {
			var ierr error
			if elem, ierr = a.typeOf(items, singular(key), p.Key("items")); ierr != nil {
				return models.TypeInfo{}, ierr
			}
			elem.IsPointer = false
		}
		return models.TypeInfo{Kind: models.Slice, SliceElementType: &elem}, nil
	case "object":
		if !s.Has("properties") {
			return models.TypeInfo{Kind: models.Any, Name: "map[string]interface{}"}, nil
		}
		var err error
		if t, err = a.structType(s, titleOr(s, key), false, p); err != nil {
			return models.TypeInfo{}, err
		}
	default:
		return models.TypeInfo{Kind: models.Any}, nil
	}
	t.IsPointer = nullable
	return t, nil
}

func titleOr(s *value.Value, fallback string) string {
	if title := stringMember(s, "title"); title != "" {
		return title
	}
	return fallback
}

// structType records the struct s describes and returns a reference to it.
func (a *analysis) structType(s *value.Value, name string, root bool, p value.Path) (models.TypeInfo, error) {
	def := models.StructDef{Name: a.uniqueName(goIdentifier(name, "Object")), IsRoot: root}

	required := make(map[string]bool)
	if req, err := s.Get("required"); err == nil {
		for _, item := range req.Items() {
			if k, err := item.AsString(); err == nil {
				required[k] = true
			}
		}
	}

	fieldNames := make(map[string]int)
	if props, err := s.Get("properties"); err == nil {
		for k, child := range props.All() {
			if strings.ContainsAny(k, ",`\"") {
				return models.TypeInfo{}, fmt.Errorf("property %q at %s cannot be written as a json tag", k, p)
			}
			ft, err := a.typeOf(child, k, p.Key("properties").Key(k))
			if err != nil {
				return models.TypeInfo{}, err
			}
			tag := k
			if !required[k] {
				tag += ",omitempty"
				if ft.Kind != models.Any && ft.Kind != models.Slice {
					ft.IsPointer = true
				}
			}
			goName := goIdentifier(k, "Field")
			if n := fieldNames[goName]; n > 0 {
				fieldNames[goName] = n + 1
				goName = fmt.Sprintf("%s%d", goName, n)
			} else {
				fieldNames[goName] = 1
			}
			def.Fields = append(def.Fields, models.FieldInfo{
				JSONKey: k,
				GoName:  goName,
				GoType:  ft,
				JSONTag: "`json:" + strconv.Quote(tag) + "`",
			})
		}
	}

	a.result.Structs = append(a.result.Structs, def)
	return models.TypeInfo{Kind: models.Struct, Name: def.Name, StructName: def.Name}, nil
}

func (a *analysis) uniqueName(base string) string {
	name := base
	if count := a.names[base]; count > 0 {
		name = fmt.Sprintf("%s%d", base, count)
	}
	a.names[base]++
	return name
}

// goIdentifier converts a key to an exported Go identifier.
func goIdentifier(key, fallback string) string {
	name := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			return r
		}
		return ' '
	}, key)
	name = strcase.ToCamel(name)
	if name == "" {
		return fallback
	}
	if r := []rune(name)[0]; !unicode.IsLetter(r) || !unicode.IsUpper(r) {
		name = fallback + name
	}
	return name
}

// singular names the element of an array member.
func singular(key string) string {
	if s, ok := strings.CutSuffix(key, "ies"); ok && s != "" {
		return s + "y"
	}
	if s, ok := strings.CutSuffix(key, "s"); ok && s != "" && !strings.HasSuffix(s, "s") {
		return s
	}
	return key + "Item"
}
