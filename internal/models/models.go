package models

// JSONValue is a generic type to represent any JSON value.
// It holds nil, bool, json.Number, string, JSONObject or JSONArray.
type JSONValue interface{}

// JSONObject represents a JSON object, which is a map of strings to JSONValues.
type JSONObject map[string]JSONValue

// JSONArray represents a JSON array, which is a slice of JSONValues.
type JSONArray []JSONValue

// IndexEntry is one indexed scalar of a stored document.
type IndexEntry struct {
	// Path is the canonical indexed expression, e.g. $.user.id.
	Path string
	// Kind is the value kind name: null, boolean, number or string.
	Kind string
	// Value is the scalar as bound to SQL: nil, int64, float64 or string.
	// Booleans are stored as 0 or 1.
	Value interface{}
}

// StoredDocument is a document as the storage layer persists it.
type StoredDocument struct {
	Key     string
	Payload []byte
	Index   []IndexEntry
}

// TypeKind classifies a generated Go type.
type TypeKind int

const (
	Any TypeKind = iota
	String
	Int
	Float
	Bool
	Time
	UUID
	Struct
	Slice
)

// TypeInfo describes the Go type of a generated field.
type TypeInfo struct {
	Kind TypeKind
	// Name is the Go spelling for scalar kinds, e.g. int64 or time.Time.
	Name             string
	IsPointer        bool
	StructName       string
	SliceElementType *TypeInfo
}

// FieldInfo is one field of a generated struct.
type FieldInfo struct {
	JSONKey string
	GoName  string
	GoType  TypeInfo
	JSONTag string
}

// StructDef is a generated struct type. The root struct describes the
// whole document.
type StructDef struct {
	Name   string
	IsRoot bool
	Fields []FieldInfo
}

// AnalysisResult is what the generator renders: the structs a schema
// describes and the imports their fields need.
type AnalysisResult struct {
	Structs []StructDef
	Imports map[string]struct{}
}
