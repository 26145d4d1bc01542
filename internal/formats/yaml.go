package formats

import (
	"bytes"
	"fmt"
	"math"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/mcncl/jsondoc/internal/parser"
	"github.com/mcncl/jsondoc/internal/value"
)

// ToYAML writes v as a single YAML document with two-space indentation.
// Object members keep their order and number literals keep their spelling.
func ToYAML(v *value.Value) ([]byte, error) {
	doc := &yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{yamlNode(v)}}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return nil, &Error{Format: YAML, Op: "export", Msg: "encode", Err: err}
	}
	if err := enc.Close(); err != nil {
		return nil, &Error{Format: YAML, Op: "export", Msg: "encode", Err: err}
	}
	return buf.Bytes(), nil
}

func yamlNode(v *value.Value) *yaml.Node {
	switch v.Kind() {
	case value.NullKind:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}
	case value.BoolKind:
		text, _ := scalarText(v)
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: text}
	case value.NumberKind:
		text, _ := scalarText(v)
		tag := "!!int"
		if strings.ContainsAny(text, ".eE") {
			tag = "!!float"
		}
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: text}
	case value.StringKind:
		s, _ := v.AsString()
		// A !!str tag makes the encoder quote text that would read back as
		// another type.
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s}
	case value.ArrayKind:
		seq := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, item := range v.Items() {
			seq.Content = append(seq.Content, yamlNode(item))
		}
		return seq
	default:
		m := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		for key, member := range v.All() {
			m.Content = append(m.Content,
				&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key},
				yamlNode(member))
		}
		return m
	}
}

// FromYAML reads the first document of a YAML stream. Mapping keys must be
// scalars and are used as written. Aliases are expanded and merge keys
// (<<) fill in members the mapping does not set itself. Infinities and NaN
// have no JSON form and are rejected.
func FromYAML(data []byte) (*value.Value, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &Error{Format: YAML, Op: "import", Msg: "invalid YAML", Err: err}
	}
	if doc.Kind == 0 || len(doc.Content) == 0 {
		return nil, &Error{Format: YAML, Op: "import", Msg: "empty document"}
	}
	d := yamlDecoder{}
	return d.value(doc.Content[0], value.Path{})
}

type yamlDecoder struct {
	depth int
}

func (d *yamlDecoder) fail(n *yaml.Node, p value.Path, msg string, err error) *Error {
	return &Error{Format: YAML, Op: "import", Path: p, Msg: fmt.Sprintf("%s (line %d)", msg, n.Line), Err: err}
}

func (d *yamlDecoder) value(n *yaml.Node, p value.Path) (*value.Value, error) {
	switch n.Kind {
	case yaml.AliasNode:
		d.depth++
		defer func() { d.depth-- }()
		if d.depth > parser.DefaultMaxDepth {
			return nil, d.fail(n, p, "aliases nest too deeply", nil)
		}
		return d.value(n.Alias, p)
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return value.NewNull(), nil
		}
		return d.value(n.Content[0], p)
	case yaml.ScalarNode:
		return d.scalar(n, p)
	}

	d.depth++
	defer func() { d.depth-- }()
	if d.depth > parser.DefaultMaxDepth {
		return nil, d.fail(n, p, "document nests too deeply", nil)
	}

	if n.Kind == yaml.SequenceNode {
		arr := value.NewArray()
		for i, item := range n.Content {
			child, err := d.value(item, p.Index(i))
			if err != nil {
				return nil, err
			}
			appendItem(arr, child)
		}
		return arr, nil
	}

	obj := value.NewObject()
	var merged []*value.Value
	for i := 0; i+1 < len(n.Content); i += 2 {
		k, vn := n.Content[i], n.Content[i+1]
		if k.Kind == yaml.AliasNode {
			k = k.Alias
		}
		if k.Kind != yaml.ScalarNode {
			return nil, d.fail(k, p, "mapping keys must be scalars", nil)
		}
		if k.ShortTag() == "!!merge" {
			src, err := d.value(vn, p)
			if err != nil {
				return nil, err
			}
			merged = append(merged, src)
			continue
		}
		child, err := d.value(vn, p.Key(k.Value))
		if err != nil {
			return nil, err
		}
		set(obj, k.Value, child)
	}
	for _, src := range merged {
		if err := mergeInto(obj, src); err != nil {
			return nil, d.fail(n, p, "merge key", err)
		}
	}
	return obj, nil
}

// mergeInto copies members of src that obj lacks. src may be a mapping or
// a sequence of mappings, the first of which wins.
func mergeInto(obj, src *value.Value) error {
	switch src.Kind() {
	case value.ObjectKind:
		for key, member := range src.All() {
			if !obj.Has(key) {
				set(obj, key, member.Clone())
			}
		}
		return nil
	case value.ArrayKind:
		for _, item := range src.Items() {
			if err := mergeInto(obj, item); err != nil {
				return err
			}
		}
		return nil
	}
	return fmt.Errorf("cannot merge %s into a mapping", src.Kind())
}

func (d *yamlDecoder) scalar(n *yaml.Node, p value.Path) (*value.Value, error) {
	switch n.ShortTag() {
	case "!!null":
		return value.NewNull(), nil
	case "!!bool":
		var b bool
		if err := n.Decode(&b); err != nil {
			return nil, d.fail(n, p, "invalid boolean", err)
		}
		return value.NewBool(b), nil
	case "!!int":
		if num, err := value.ParseNumber(n.Value); err == nil {
			return value.NewNumber(num), nil
		}
		// Hex, octal and underscored spellings.
		var i int64
		if err := n.Decode(&i); err != nil {
			return nil, d.fail(n, p, "invalid integer", err)
		}
		return value.NewInt(i), nil
	case "!!float":
		if num, err := value.ParseNumber(n.Value); err == nil {
			return value.NewNumber(num), nil
		}
		var f float64
		if err := n.Decode(&f); err != nil {
			return nil, d.fail(n, p, "invalid float", err)
		}
		if math.IsInf(f, 0) || math.IsNaN(f) {
			return nil, d.fail(n, p, "non-finite number "+n.Value, nil)
		}
		return value.NewFloat(f), nil
	}
	// !!str, !!timestamp, !!binary and custom tags keep their text.
	return value.NewString(n.Value), nil
}
