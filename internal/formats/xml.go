package formats

import (
	"bytes"
	"encoding/xml"
	"errors"
	"io"
	"strings"
	"unicode"

	"github.com/mcncl/jsondoc/internal/parser"
	"github.com/mcncl/jsondoc/internal/value"
)

const (
	// xmlRoot names the element wrapping the whole document.
	xmlRoot = "root"
	// xmlItem names the elements of an array that is not an object member.
	xmlItem    = "item"
	attrPrefix = "@"
	textKey    = "#text"
)

// ToXML writes v inside a <root> element. Object members become child
// elements named by their keys; an array member repeats its element once
// per item, and any other array wraps its items in <item> elements.
// Members named "@name" become attributes and "#text" becomes the
// element's text. null is an empty element.
func ToXML(v *value.Value) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := writeElement(enc, xmlRoot, v, value.Path{}); err != nil {
		return nil, err
	}
	if err := enc.Flush(); err != nil {
		return nil, &Error{Format: XML, Op: "export", Msg: "flush", Err: err}
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

func writeElement(enc *xml.Encoder, name string, v *value.Value, p value.Path) error {
	if !isXMLName(name) {
		return &Error{Format: XML, Op: "export", Path: p, Msg: "key " + name + " is not an XML name"}
	}
	start := xml.StartElement{Name: xml.Name{Local: name}}
	var text *value.Value
	if v.Kind() == value.ObjectKind {
		for key, member := range v.All() {
			switch {
			case key == textKey:
				text = member
			case strings.HasPrefix(key, attrPrefix):
				attr := strings.TrimPrefix(key, attrPrefix)
				s, ok := scalarText(member)
				if !ok || !isXMLName(attr) {
					return &Error{Format: XML, Op: "export", Path: p.Key(key), Msg: "attributes must be scalars with XML names"}
				}
				start.Attr = append(start.Attr, xml.Attr{Name: xml.Name{Local: attr}, Value: s})
			}
		}
	}
	if err := enc.EncodeToken(start); err != nil {
		return &Error{Format: XML, Op: "export", Path: p, Msg: "write element", Err: err}
	}

	switch v.Kind() {
	case value.ObjectKind:
		if text != nil {
			if err := writeText(enc, text, p.Key(textKey)); err != nil {
				return err
			}
		}
		for key, member := range v.All() {
			if key == textKey || strings.HasPrefix(key, attrPrefix) {
				continue
			}
			if member.Kind() == value.ArrayKind {
				for i, item := range member.Items() {
					if err := writeElement(enc, key, item, p.Key(key).Index(i)); err != nil {
						return err
					}
				}
				continue
			}
			if err := writeElement(enc, key, member, p.Key(key)); err != nil {
				return err
			}
		}
	case value.ArrayKind:
		for i, item := range v.Items() {
			if err := writeElement(enc, xmlItem, item, p.Index(i)); err != nil {
				return err
			}
		}
	default:
		if err := writeText(enc, v, p); err != nil {
			return err
		}
	}

	if err := enc.EncodeToken(start.End()); err != nil {
		return &Error{Format: XML, Op: "export", Path: p, Msg: "close element", Err: err}
	}
	return nil
}

func writeText(enc *xml.Encoder, v *value.Value, p value.Path) error {
	s, ok := scalarText(v)
	if !ok {
		return &Error{Format: XML, Op: "export", Path: p, Msg: "text must be a scalar"}
	}
	if s == "" {
		return nil
	}
	if err := enc.EncodeToken(xml.CharData(s)); err != nil {
		return &Error{Format: XML, Op: "export", Path: p, Msg: "write text", Err: err}
	}
	return nil
}

// isXMLName accepts the subset of XML names this package writes: a letter
// or underscore followed by letters, digits, '-', '_' and '.'.
func isXMLName(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case unicode.IsLetter(r), r == '_':
		case i > 0 && (unicode.IsDigit(r) || r == '-' || r == '.'):
		default:
			return false
		}
	}
	return true
}

type element struct {
	name     string
	attrs    []xml.Attr
	children []*element
	text     strings.Builder
}

// FromXML reads a single root element; the root's own name is dropped.
// Child elements become members named by their local names and repeated
// names collect into an array. Attributes become "@name" members. Text
// beside attributes or children becomes "#text"; an element with only text
// becomes a scalar typed from that text, and an empty element is null.
func FromXML(data []byte) (*value.Value, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))

	var stack []*element
	var root *element
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, &Error{Format: XML, Op: "import", Msg: "invalid XML", Err: err}
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if root != nil && len(stack) == 0 {
				return nil, &Error{Format: XML, Op: "import", Msg: "more than one root element"}
			}
			if len(stack) >= parser.DefaultMaxDepth {
				return nil, &Error{Format: XML, Op: "import", Msg: "document nests too deeply"}
			}
			e := &element{name: t.Name.Local, attrs: t.Attr}
			if len(stack) == 0 {
				root = e
			} else {
				parent := stack[len(stack)-1]
				parent.children = append(parent.children, e)
			}
			stack = append(stack, e)
		case xml.EndElement:
			stack = stack[:len(stack)-1]
		case xml.CharData:
			if len(stack) > 0 {
				stack[len(stack)-1].text.Write(t)
			}
		}
	}
	if root == nil {
		return nil, &Error{Format: XML, Op: "import", Msg: "no root element"}
	}
	return root.value(), nil
}

func (e *element) value() *value.Value {
	text := strings.TrimSpace(e.text.String())
	if len(e.attrs) == 0 && len(e.children) == 0 {
		return inferScalar(text)
	}

	obj := value.NewObject()
	for _, a := range e.attrs {
		if a.Name.Space == "xmlns" || a.Name.Local == "xmlns" {
			continue
		}
		set(obj, attrPrefix+a.Name.Local, inferScalar(a.Value))
	}
	if text != "" {
		set(obj, textKey, inferScalar(text))
	}
	var names []string
	groups := make(map[string][]*value.Value)
	for _, c := range e.children {
		if _, ok := groups[c.name]; !ok {
			names = append(names, c.name)
		}
		groups[c.name] = append(groups[c.name], c.value())
	}
	for _, name := range names {
		if items := groups[name]; len(items) == 1 {
			set(obj, name, items[0])
		} else {
			set(obj, name, value.NewArray(items...))
		}
	}
	return obj
}
