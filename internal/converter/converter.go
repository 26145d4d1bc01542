// Package converter maps value trees to and from native Go data.
package converter

import (
	"encoding"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"slices"
	"strconv"
	"time"

	"github.com/mcncl/jsondoc/internal/models"
	"github.com/mcncl/jsondoc/internal/value"
)

// Options control struct mapping.
type Options struct {
	// Strict rejects object keys that map to no struct field.
	Strict bool
	Naming Naming
	// Mappings replaces the tag-derived field list of a struct type.
	Mappings map[reflect.Type][]Field
}

var (
	valueType           = reflect.TypeFor[*value.Value]()
	timeType            = reflect.TypeFor[time.Time]()
	numberType          = reflect.TypeFor[json.Number]()
	textMarshalerType   = reflect.TypeFor[encoding.TextMarshaler]()
	textUnmarshalerType = reflect.TypeFor[encoding.TextUnmarshaler]()
)

// Encode builds a value tree from native data.
func Encode(v any, opts Options) (*value.Value, error) {
	return encode(reflect.ValueOf(v), nil, opts)
}

func encode(rv reflect.Value, path value.Path, opts Options) (*value.Value, error) {
	if !rv.IsValid() {
		return value.NewNull(), nil
	}
	t := rv.Type()
	switch t {
	case valueType:
		if rv.IsNil() {
			return value.NewNull(), nil
		}
		return rv.Interface().(*value.Value).Clone(), nil
	case timeType:
		return value.NewString(rv.Interface().(time.Time).Format(time.RFC3339Nano)), nil
	case numberType:
		n, err := value.ParseNumber(rv.String())
		if err != nil {
			return nil, &Error{Kind: TypeMismatch, Path: path, Want: "number", Got: strconv.Quote(rv.String()), Err: err}
		}
		return value.NewNumber(n), nil
	}

	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return value.NewNull(), nil
		}
		if rv.Kind() == reflect.Pointer && t.Implements(textMarshalerType) {
			return encodeText(rv, path)
		}
		return encode(rv.Elem(), path, opts)
	case reflect.Bool:
		return value.NewBool(rv.Bool()), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return value.NewInt(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		u := rv.Uint()
		if u <= math.MaxInt64 {
			return value.NewInt(int64(u)), nil
		}
		n, err := value.ParseNumber(strconv.FormatUint(u, 10))
		if err != nil {
			return nil, err
		}
		return value.NewNumber(n), nil
	case reflect.Float32, reflect.Float64:
		return value.NewFloat(rv.Float()), nil
	case reflect.String:
		if t.Implements(textMarshalerType) {
			return encodeText(rv, path)
		}
		return value.NewString(rv.String()), nil
	}

	if t.Implements(textMarshalerType) {
		return encodeText(rv, path)
	}

	switch rv.Kind() {
	case reflect.Slice:
		if rv.IsNil() {
			return value.NewNull(), nil
		}
		if t.Elem().Kind() == reflect.Uint8 {
			return value.NewString(base64.StdEncoding.EncodeToString(rv.Bytes())), nil
		}
		return encodeArray(rv, path, opts)
	case reflect.Array:
		return encodeArray(rv, path, opts)
	case reflect.Map:
		if rv.IsNil() {
			return value.NewNull(), nil
		}
		if t.Key().Kind() != reflect.String {
			return nil, &Error{Kind: Unsupported, Path: path, Want: t.String()}
		}
		return encodeMap(rv, path, opts)
	case reflect.Struct:
		return encodeStruct(rv, path, opts)
	default:
		return nil, &Error{Kind: Unsupported, Path: path, Want: t.String()}
	}
}

func encodeText(rv reflect.Value, path value.Path) (*value.Value, error) {
	text, err := rv.Interface().(encoding.TextMarshaler).MarshalText()
	if err != nil {
		return nil, &Error{Kind: TypeMismatch, Path: path, Want: "text", Got: rv.Type().String(), Err: err}
	}
	return value.NewString(string(text)), nil
}

func encodeArray(rv reflect.Value, path value.Path, opts Options) (*value.Value, error) {
	arr := value.NewArray()
	for i := 0; i < rv.Len(); i++ {
		item, err := encode(rv.Index(i), path.Index(i), opts)
		if err != nil {
			return nil, err
		}
		if err := arr.Append(item); err != nil {
			return nil, err
		}
	}
	return arr, nil
}

func encodeMap(rv reflect.Value, path value.Path, opts Options) (*value.Value, error) {
	keys := rv.MapKeys()
	slices.SortFunc(keys, func(a, b reflect.Value) int {
		switch {
		case a.String() < b.String():
			return -1
		case a.String() > b.String():
			return 1
		}
		return 0
	})
	obj := value.NewObject()
	for _, k := range keys {
		member, err := encode(rv.MapIndex(k), path.Key(k.String()), opts)
		if err != nil {
			return nil, err
		}
		if err := obj.Set(k.String(), member); err != nil {
			return nil, err
		}
	}
	return obj, nil
}

func encodeStruct(rv reflect.Value, path value.Path, opts Options) (*value.Value, error) {
	fields, err := structFields(rv.Type(), opts)
	if err != nil {
		return nil, err
	}
	obj := value.NewObject()
	for _, f := range fields {
		fv, ok := fieldByIndex(rv, f.index, false)
		if !ok {
			continue
		}
		if f.omitEmpty && isEmpty(fv) {
			continue
		}
		var member *value.Value
		if f.Encode != nil {
			member, err = f.Encode(fv.Interface())
		} else {
			member, err = encode(fv, path.Key(f.Key), opts)
		}
		if err != nil {
			return nil, err
		}
		if err := obj.Set(f.Key, member); err != nil {
			return nil, err
		}
	}
	return obj, nil
}

func isEmpty(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Array, reflect.Map, reflect.Slice, reflect.String:
		return v.Len() == 0
	case reflect.Bool, reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64, reflect.Interface, reflect.Pointer:
		return v.IsZero()
	}
	return false
}

// Decode stores v into the value target points to.
func Decode(v *value.Value, target any, opts Options) error {
	rv := reflect.ValueOf(target)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return &Error{Kind: Unsupported, Want: fmt.Sprintf("non-nil pointer target, got %T", target)}
	}
	return decode(v, rv.Elem(), nil, opts)
}

func mismatch(v *value.Value, rv reflect.Value, path value.Path) error {
	return &Error{Kind: TypeMismatch, Path: path, Want: rv.Type().String(), Got: v.Kind().String()}
}

func decode(v *value.Value, rv reflect.Value, path value.Path, opts Options) error {
	t := rv.Type()
	switch t {
	case valueType:
		rv.Set(reflect.ValueOf(v.Clone()))
		return nil
	case timeType:
		s, err := v.AsString()
		if err != nil {
			return mismatch(v, rv, path)
		}
		ts, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return &Error{Kind: TypeMismatch, Path: path, Want: "RFC 3339 time", Got: strconv.Quote(s), Err: err}
		}
		rv.Set(reflect.ValueOf(ts))
		return nil
	case numberType:
		n, err := v.AsNumber()
		if err != nil {
			return mismatch(v, rv, path)
		}
		rv.SetString(n.String())
		return nil
	}

	if rv.Kind() == reflect.Pointer {
		if v.IsNull() {
			rv.SetZero()
			return nil
		}
		if rv.IsNil() {
			rv.Set(reflect.New(t.Elem()))
		}
		return decode(v, rv.Elem(), path, opts)
	}
	if rv.Kind() == reflect.Interface && t.NumMethod() == 0 {
		native := ToNative(v)
		if native == nil {
			rv.SetZero()
		} else {
			rv.Set(reflect.ValueOf(native))
		}
		return nil
	}
	if rv.CanAddr() && reflect.PointerTo(t).Implements(textUnmarshalerType) && v.Kind() == value.StringKind {
		s, _ := v.AsString()
		if err := rv.Addr().Interface().(encoding.TextUnmarshaler).UnmarshalText([]byte(s)); err != nil {
			return &Error{Kind: TypeMismatch, Path: path, Want: t.String(), Got: strconv.Quote(s), Err: err}
		}
		return nil
	}

	switch rv.Kind() {
	case reflect.Slice, reflect.Map:
		if v.IsNull() {
			rv.SetZero()
			return nil
		}
	}

	switch rv.Kind() {
	case reflect.Bool:
		b, err := v.AsBool()
		if err != nil {
			return mismatch(v, rv, path)
		}
		rv.SetBool(b)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := v.AsNumber()
		if err != nil {
			return mismatch(v, rv, path)
		}
		i, ok := n.Int64()
		if !ok || rv.OverflowInt(i) {
			return &Error{Kind: Overflow, Path: path, Want: t.String(), Got: n.String()}
		}
		rv.SetInt(i)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		n, err := v.AsNumber()
		if err != nil {
			return mismatch(v, rv, path)
		}
		u, ok := n.Uint64()
		if !ok || rv.OverflowUint(u) {
			return &Error{Kind: Overflow, Path: path, Want: t.String(), Got: n.String()}
		}
		rv.SetUint(u)
	case reflect.Float32, reflect.Float64:
		n, err := v.AsNumber()
		if err != nil {
			return mismatch(v, rv, path)
		}
		f := n.Float64()
		if math.IsInf(f, 0) && n.IsFinite() || rv.OverflowFloat(f) {
			return &Error{Kind: Overflow, Path: path, Want: t.String(), Got: n.String()}
		}
		rv.SetFloat(f)
	case reflect.String:
		s, err := v.AsString()
		if err != nil {
			return mismatch(v, rv, path)
		}
		rv.SetString(s)
	case reflect.Slice:
		if t.Elem().Kind() == reflect.Uint8 && v.Kind() == value.StringKind {
			s, _ := v.AsString()
			b, err := base64.StdEncoding.DecodeString(s)
			if err != nil {
				return &Error{Kind: TypeMismatch, Path: path, Want: "base64 bytes", Got: "string", Err: err}
			}
			rv.SetBytes(b)
			return nil
		}
		if v.Kind() != value.ArrayKind {
			return mismatch(v, rv, path)
		}
		out := reflect.MakeSlice(t, v.Len(), v.Len())
		for i, item := range v.Items() {
			if err := decode(item, out.Index(i), path.Index(i), opts); err != nil {
				return err
			}
		}
		rv.Set(out)
	case reflect.Array:
		if v.Kind() != value.ArrayKind || v.Len() != rv.Len() {
			return mismatch(v, rv, path)
		}
		for i, item := range v.Items() {
			if err := decode(item, rv.Index(i), path.Index(i), opts); err != nil {
				return err
			}
		}
	case reflect.Map:
		if v.Kind() != value.ObjectKind || t.Key().Kind() != reflect.String {
			return mismatch(v, rv, path)
		}
		out := reflect.MakeMapWithSize(t, v.Len())
		for k, member := range v.All() {
			elem := reflect.New(t.Elem()).Elem()
			if err := decode(member, elem, path.Key(k), opts); err != nil {
				return err
			}
			out.SetMapIndex(reflect.ValueOf(k).Convert(t.Key()), elem)
		}
		rv.Set(out)
	case reflect.Struct:
		return decodeStruct(v, rv, path, opts)
	default:
		return &Error{Kind: Unsupported, Path: path, Want: t.String()}
	}
	return nil
}

func decodeStruct(v *value.Value, rv reflect.Value, path value.Path, opts Options) error {
	if v.Kind() != value.ObjectKind {
		return mismatch(v, rv, path)
	}
	fields, err := structFields(rv.Type(), opts)
	if err != nil {
		return err
	}
	if opts.Strict {
		known := make(map[string]bool, len(fields))
		for _, f := range fields {
			known[f.Key] = true
		}
		for _, k := range v.Keys() {
			if !known[k] {
				return &Error{Kind: UnknownField, Path: path, Key: k}
			}
		}
	}
	for _, f := range fields {
		member, err := v.Get(f.Key)
		if err != nil {
			switch {
			case f.Default != nil:
				member = f.Default
			case f.Required:
				return &Error{Kind: MissingField, Path: path, Key: f.Key}
			default:
				continue
			}
		}
		fv, _ := fieldByIndex(rv, f.index, true)
		if f.Decode != nil {
			out, err := f.Decode(member)
			if err != nil {
				return &Error{Kind: TypeMismatch, Path: path.Key(f.Key), Want: fv.Type().String(), Got: member.Kind().String(), Err: err}
			}
			ov := reflect.ValueOf(out)
			if !ov.IsValid() {
				fv.SetZero()
				continue
			}
			if !ov.Type().AssignableTo(fv.Type()) {
				return &Error{Kind: TypeMismatch, Path: path.Key(f.Key), Want: fv.Type().String(), Got: ov.Type().String()}
			}
			fv.Set(ov)
			continue
		}
		if err := decode(member, fv, path.Key(f.Key), opts); err != nil {
			return err
		}
	}
	return nil
}

// ToNative converts v into the generic shapes of models.JSONValue.
func ToNative(v *value.Value) models.JSONValue {
	switch v.Kind() {
	case value.BoolKind:
		b, _ := v.AsBool()
		return b
	case value.NumberKind:
		n, _ := v.AsNumber()
		return json.Number(n.String())
	case value.StringKind:
		s, _ := v.AsString()
		return s
	case value.ArrayKind:
		out := make(models.JSONArray, 0, v.Len())
		for _, item := range v.Items() {
			out = append(out, ToNative(item))
		}
		return out
	case value.ObjectKind:
		out := make(models.JSONObject, v.Len())
		for k, member := range v.All() {
			out[k] = ToNative(member)
		}
		return out
	default:
		return nil
	}
}

// FromNative converts generic native data into a value tree. Object keys
// come out sorted because maps carry no order.
func FromNative(x models.JSONValue) (*value.Value, error) {
	return Encode(x, Options{})
}
