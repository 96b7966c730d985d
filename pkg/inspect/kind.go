package inspect

import (
	"reflect"

	lru "github.com/hashicorp/golang-lru"

	"github.com/willibrandon/rummage/pkg/checkpoint"
)

// Kind is the catalogue kind of a value.
type Kind int

const (
	Invalid Kind = iota
	Int
	Uint
	Float
	Bool
	Char
	String
	Struct
	Array
	Pointer
)

func (k Kind) String() string {
	switch k {
	case Int:
		return "int"
	case Uint:
		return "uint"
	case Float:
		return "float"
	case Bool:
		return "bool"
	case Char:
		return "char"
	case String:
		return "string"
	case Struct:
		return "struct"
	case Array:
		return "array"
	case Pointer:
		return "pointer"
	default:
		return "invalid"
	}
}

// IsNumeric reports whether values of kind k have a numeric reading.
func (k Kind) IsNumeric() bool {
	switch k {
	case Int, Uint, Float, Char:
		return true
	}
	return false
}

var charType = reflect.TypeOf(checkpoint.Char(0))

// typeCacheSize bounds the classification cache; fixtures use a few dozen types.
const typeCacheSize = 256

type typeInfo struct {
	kind      Kind
	name      string
	canonical string
	fields    []string // struct field names as the observer sees them
}

var typeCache, _ = lru.New(typeCacheSize)

func infoOf(t reflect.Type) *typeInfo {
	if cached, ok := typeCache.Get(t); ok {
		return cached.(*typeInfo)
	}
	ti := classify(t)
	typeCache.Add(t, ti)
	return ti
}

func classify(t reflect.Type) *typeInfo {
	ti := &typeInfo{name: t.Name()}
	if ti.name == "" {
		ti.name = t.String()
	}
	ti.canonical = ti.name

	if t == charType {
		ti.kind = Char
		ti.canonical = "char"
		return ti
	}

	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		ti.kind = Int
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		ti.kind = Uint
	case reflect.Float32, reflect.Float64:
		ti.kind = Float
	case reflect.Bool:
		ti.kind = Bool
	case reflect.String:
		ti.kind = String
	case reflect.Struct:
		ti.kind = Struct
		ti.fields = make([]string, t.NumField())
		for i := range ti.fields {
			ti.fields[i] = fieldName(t.Field(i))
		}
	case reflect.Array, reflect.Slice:
		ti.kind = Array
	case reflect.Pointer:
		ti.kind = Pointer
	default:
		ti.kind = Invalid
	}
	if ti.kind <= String {
		// named scalars resolve to their underlying type, like a typedef
		ti.canonical = t.Kind().String()
	}
	return ti
}

// fieldName is the name an observer uses for a struct field: the rummage
// tag when present, the Go name otherwise.
func fieldName(f reflect.StructField) string {
	if tag := f.Tag.Get("rummage"); tag != "" {
		return tag
	}
	return f.Name
}
