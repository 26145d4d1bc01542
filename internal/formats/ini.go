package formats

import (
	"bytes"
	"strings"

	"gopkg.in/ini.v1"

	"github.com/mcncl/jsondoc/internal/value"
)

// sectionSep joins the keys of nested objects into a section name.
const sectionSep = "."

// ToINI writes an object as INI. Top-level scalars go in the default
// section and each object member becomes a section; objects nested deeper
// become sections named by the dotted path, so {"a": {"b": {"c": 1}}}
// writes c under [a.b]. Arrays have no INI form.
func ToINI(v *value.Value) ([]byte, error) {
	if v.Kind() != value.ObjectKind {
		return nil, &Error{Format: INI, Op: "export", Msg: "want an object, got " + v.Kind().String()}
	}
	f := ini.Empty()
	if err := writeSection(f, "", v, value.Path{}); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, &Error{Format: INI, Op: "export", Msg: "write", Err: err}
	}
	return buf.Bytes(), nil
}

func writeSection(f *ini.File, name string, obj *value.Value, p value.Path) error {
	sec := f.Section(name)
	var nested []string
	for key, member := range obj.All() {
		switch member.Kind() {
		case value.ObjectKind:
			nested = append(nested, key)
			continue
		case value.ArrayKind:
			return &Error{Format: INI, Op: "export", Path: p.Key(key), Msg: "arrays cannot be written"}
		}
		if key == "" {
			return &Error{Format: INI, Op: "export", Path: p.Key(key), Msg: "empty key"}
		}
		text, _ := scalarText(member)
		if _, err := sec.NewKey(key, text); err != nil {
			return &Error{Format: INI, Op: "export", Path: p.Key(key), Msg: "write key", Err: err}
		}
	}
	for _, key := range nested {
		if key == "" || strings.ContainsAny(key, "[]"+sectionSep) {
			return &Error{Format: INI, Op: "export", Path: p.Key(key), Msg: "key cannot name a section"}
		}
		child := key
		if name != "" {
			child = name + sectionSep + key
		}
		member, _ := obj.Get(key)
		if _, err := f.NewSection(child); err != nil {
			return &Error{Format: INI, Op: "export", Path: p.Key(key), Msg: "write section", Err: err}
		}
		if err := writeSection(f, child, member, p.Key(key)); err != nil {
			return err
		}
	}
	return nil
}

// FromINI reads INI into an object. Keys of the default section become
// top-level members and every other section an object member; a dotted
// section name nests, so [a.b] fills {"a": {"b": {...}}}. Values are typed
// from their text.
func FromINI(data []byte) (*value.Value, error) {
	f, err := ini.LoadSources(ini.LoadOptions{}, data)
	if err != nil {
		return nil, &Error{Format: INI, Op: "import", Msg: "invalid INI", Err: err}
	}

	out := value.NewObject()
	for _, sec := range f.Sections() {
		target := out
		if sec.Name() != ini.DefaultSection {
			p := value.Path{}
			for _, part := range strings.Split(sec.Name(), sectionSep) {
				p = p.Key(part)
				next, err := target.Get(part)
				if err != nil {
					next = value.NewObject()
					set(target, part, next)
				} else if next.Kind() != value.ObjectKind {
					return nil, &Error{Format: INI, Op: "import", Path: p, Msg: "section " + sec.Name() + " collides with a key"}
				}
				target = next
			}
		}
		for _, key := range sec.Keys() {
			if existing, err := target.Get(key.Name()); err == nil && existing.Kind() == value.ObjectKind {
				return nil, &Error{Format: INI, Op: "import", Msg: "key " + key.Name() + " collides with a section"}
			}
			set(target, key.Name(), inferScalar(key.Value()))
		}
	}
	return out, nil
}
