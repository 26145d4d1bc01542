package converter

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/iancoleman/strcase"

	"github.com/mcncl/jsondoc/internal/parser"
	"github.com/mcncl/jsondoc/internal/value"
)

// Naming selects how Go field names become object keys.
type Naming uint8

const (
	// NamingTag uses the json tag name, or the Go field name as is.
	NamingTag Naming = iota
	NamingSnake
	NamingCamel
	NamingLowerCamel
	NamingKebab
)

var namingNames = map[string]Naming{
	"tag":        NamingTag,
	"snake":      NamingSnake,
	"camel":      NamingCamel,
	"lowerCamel": NamingLowerCamel,
	"kebab":      NamingKebab,
}

// ParseNaming maps a configuration name such as "snake" to a Naming.
func ParseNaming(name string) (Naming, error) {
	if name == "" {
		return NamingTag, nil
	}
	if n, ok := namingNames[name]; ok {
		return n, nil
	}
	return NamingTag, fmt.Errorf("unknown naming strategy %q (want tag, snake, camel, lowerCamel or kebab)", name)
}

func (n Naming) String() string {
	for name, v := range namingNames {
		if v == n {
			return name
		}
	}
	return "unknown"
}

// Apply converts a Go identifier according to the strategy.
func (n Naming) Apply(name string) string {
	switch n {
	case NamingSnake:
		return strcase.ToSnake(name)
	case NamingCamel:
		return strcase.ToCamel(name)
	case NamingLowerCamel:
		return strcase.ToLowerCamel(name)
	case NamingKebab:
		return strcase.ToKebab(name)
	default:
		return name
	}
}

// Field describes how one struct field maps to an object member. Fields
// listed in Options.Mappings replace the tag-derived mapping for their type.
type Field struct {
	// Name is the Go struct field name.
	Name string
	// Key is the object key; empty means the naming strategy decides.
	Key      string
	Required bool
	// Default is decoded into the field when the key is absent.
	Default *value.Value
	// Encode, when set, replaces the default encoding of the field value.
	Encode func(any) (*value.Value, error)
	// Decode, when set, produces the field value from the member. The
	// result must be assignable to the field.
	Decode func(*value.Value) (any, error)
}

type fieldInfo struct {
	Field
	index     []int
	omitEmpty bool
	typ       reflect.Type
}

// structFields lists the mapped fields of t in declaration order.
func structFields(t reflect.Type, opts Options) ([]fieldInfo, error) {
	if mapped, ok := opts.Mappings[t]; ok {
		out := make([]fieldInfo, 0, len(mapped))
		for _, m := range mapped {
			sf, ok := t.FieldByName(m.Name)
			if !ok {
				return nil, &Error{Kind: Unsupported, Want: fmt.Sprintf("mapping for %s: no field %s", t, m.Name)}
			}
			fi := fieldInfo{Field: m, index: sf.Index, typ: sf.Type}
			if fi.Key == "" {
				fi.Key = opts.Naming.Apply(sf.Name)
			}
			out = append(out, fi)
		}
		return out, nil
	}

	var out []fieldInfo
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		tag := sf.Tag.Get("json")
		if tag == "-" {
			continue
		}
		name, flags, _ := strings.Cut(tag, ",")

		if sf.Anonymous && name == "" {
			ft := sf.Type
			if ft.Kind() == reflect.Pointer {
				ft = ft.Elem()
			}
			if ft.Kind() == reflect.Struct {
				inner, err := structFields(ft, opts)
				if err != nil {
					return nil, err
				}
				for _, f := range inner {
					f.index = append([]int{i}, f.index...)
					out = append(out, f)
				}
				continue
			}
		}
		if !sf.IsExported() {
			continue
		}

		fi := fieldInfo{
			Field:     Field{Name: sf.Name, Key: name},
			index:     sf.Index,
			omitEmpty: strings.Contains(","+flags+",", ",omitempty,"),
			typ:       sf.Type,
		}
		if fi.Key == "" {
			fi.Key = opts.Naming.Apply(sf.Name)
		}
		if def, ok := sf.Tag.Lookup("default"); ok {
			dv, err := parser.ParseString(def, parser.DefaultOptions())
			if err != nil {
				return nil, &Error{Kind: Unsupported, Want: fmt.Sprintf("default for %s.%s", t, sf.Name), Err: err}
			}
			fi.Default = dv
		}
		fi.Required = !fi.omitEmpty && fi.Default == nil && sf.Type.Kind() != reflect.Pointer
		out = append(out, fi)
	}
	return out, nil
}

// fieldByIndex walks index, allocating nil embedded pointers when alloc is
// set. It reports false when a nil embedded pointer blocks the way.
func fieldByIndex(v reflect.Value, index []int, alloc bool) (reflect.Value, bool) {
	for i, x := range index {
		if i > 0 && v.Kind() == reflect.Pointer {
			if v.IsNil() {
				if !alloc {
					return reflect.Value{}, false
				}
				v.Set(reflect.New(v.Type().Elem()))
			}
			v = v.Elem()
		}
		v = v.Field(x)
	}
	return v, true
}
