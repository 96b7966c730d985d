package inspect

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/willibrandon/rummage/pkg/checkpoint"
)

var (
	// ErrNotFound is returned when a variable or field does not exist.
	ErrNotFound = errors.New("not found")
	// ErrKind is returned when a value is read as a kind it does not have.
	ErrKind = errors.New("wrong kind")
	// ErrNotPointer is returned when a non-pointer is dereferenced.
	ErrNotPointer = errors.New("not a pointer")
	// ErrNullPointer is returned when a nil pointer is dereferenced.
	ErrNullPointer = errors.New("null pointer")
	// ErrOutOfRange is returned for indexes outside a value's extent.
	ErrOutOfRange = errors.New("index out of range")
	// ErrNotSettable is returned when a value cannot be written.
	ErrNotSettable = errors.New("not settable")
)

// Value is a read/write view of one variable in a snapshot.
type Value struct {
	name string
	v    reflect.Value
	ti   *typeInfo
	heap *checkpoint.Heap
}

func newValue(name string, v reflect.Value, heap *checkpoint.Heap) Value {
	return Value{name: name, v: v, ti: infoOf(v.Type()), heap: heap}
}

// ValueOf wraps a binding. The binding's referent is the value.
func ValueOf(b checkpoint.Binding, heap *checkpoint.Heap) Value {
	return newValue(b.Name, reflect.ValueOf(b.Ref).Elem(), heap)
}

// Name is the variable name, or an expression path for derived values.
func (x Value) Name() string { return x.name }

// Kind is the catalogue kind of the value.
func (x Value) Kind() Kind { return x.ti.kind }

// TypeName is the declared type name.
func (x Value) TypeName() string { return x.ti.name }

// CanonicalType is the type name with named scalars resolved to their underlying type.
func (x Value) CanonicalType() string { return x.ti.canonical }

// Interface returns the underlying Go value.
func (x Value) Interface() any {
	if !x.v.CanInterface() {
		return nil
	}
	return x.v.Interface()
}

func (x Value) kindErr(want string) error {
	return fmt.Errorf("cannot read %s variable %q as %s: %w", x.ti.canonical, x.name, want, ErrKind)
}

// Int reads an integer, unsigned or character value.
func (x Value) Int() (int64, error) {
	switch x.ti.kind {
	case Int:
		return x.v.Int(), nil
	case Uint, Char:
		return int64(x.v.Uint()), nil
	}
	return 0, x.kindErr("integer")
}

// Float reads any numeric value as a float.
func (x Value) Float() (float64, error) {
	switch x.ti.kind {
	case Float:
		return x.v.Float(), nil
	case Int, Uint, Char:
		n, _ := x.Int()
		return float64(n), nil
	}
	return 0, x.kindErr("float")
}

// Bool reads a boolean.
func (x Value) Bool() (bool, error) {
	if x.ti.kind != Bool {
		return false, x.kindErr("bool")
	}
	return x.v.Bool(), nil
}

// Str reads a string.
func (x Value) Str() (string, error) {
	if x.ti.kind != String {
		return "", x.kindErr("string")
	}
	return x.v.String(), nil
}

// Len is the number of children: elements of an array, fields of a struct,
// one for a non-nil pointer, bytes of a string.
func (x Value) Len() int {
	switch x.ti.kind {
	case Array, String:
		return x.v.Len()
	case Struct:
		return x.v.NumField()
	case Pointer:
		if x.v.IsNil() {
			return 0
		}
		return 1
	}
	return 0
}

// Index returns the i-th child of an array, or of a pointer within the
// extent of the heap buffer it points into.
func (x Value) Index(i int) (Value, error) {
	switch x.ti.kind {
	case Array:
		if i < 0 || i >= x.v.Len() {
			return Value{}, fmt.Errorf("%s[%d]: %w", x.name, i, ErrOutOfRange)
		}
		return newValue(fmt.Sprintf("%s[%d]", x.name, i), x.v.Index(i), x.heap), nil
	case Pointer:
		if i == 0 {
			return x.Deref()
		}
		n, ok := x.extent()
		if !ok || i < 0 || i >= n {
			return Value{}, fmt.Errorf("%s[%d]: %w", x.name, i, ErrOutOfRange)
		}
		arr, err := x.AsArray(n)
		if err != nil {
			return Value{}, err
		}
		return arr.Index(i)
	}
	return Value{}, fmt.Errorf("cannot index %s variable %q: %w", x.ti.canonical, x.name, ErrKind)
}

// Elems returns every child of an array.
func (x Value) Elems() ([]Value, error) {
	if x.ti.kind != Array {
		return nil, x.kindErr("array")
	}
	elems := make([]Value, x.v.Len())
	for i := range elems {
		elems[i], _ = x.Index(i)
	}
	return elems, nil
}

// Field returns the struct member with the given name.
func (x Value) Field(name string) (Value, error) {
	if x.ti.kind != Struct {
		return Value{}, fmt.Errorf("%s variable %q has no member %q: %w", x.ti.canonical, x.name, name, ErrKind)
	}
	for i, fn := range x.ti.fields {
		if fn == name || strings.EqualFold(x.v.Type().Field(i).Name, name) {
			return newValue(x.name+"."+fn, x.v.Field(i), x.heap), nil
		}
	}
	return Value{}, fmt.Errorf("member %q of %q: %w", name, x.name, ErrNotFound)
}

// FieldNames lists the struct members in declaration order.
func (x Value) FieldNames() []string {
	return append([]string(nil), x.ti.fields...)
}

// Fields returns the struct members in declaration order.
func (x Value) Fields() ([]Value, error) {
	if x.ti.kind != Struct {
		return nil, x.kindErr("struct")
	}
	fields := make([]Value, len(x.ti.fields))
	for i, fn := range x.ti.fields {
		fields[i] = newValue(x.name+"."+fn, x.v.Field(i), x.heap)
	}
	return fields, nil
}

// Deref follows a pointer.
func (x Value) Deref() (Value, error) {
	if x.ti.kind != Pointer {
		return Value{}, fmt.Errorf("can't dereference %q of type %s: %w", x.name, x.ti.canonical, ErrNotPointer)
	}
	if x.v.IsNil() {
		return Value{}, fmt.Errorf("can't dereference %q: %w", x.name, ErrNullPointer)
	}
	return newValue("*"+x.name, x.v.Elem(), x.heap), nil
}

// IsNull reports whether a pointer is nil.
func (x Value) IsNull() (bool, error) {
	if x.ti.kind != Pointer {
		return false, fmt.Errorf("%q of type %s can't be null: %w", x.name, x.ti.canonical, ErrNotPointer)
	}
	return x.v.IsNil(), nil
}

// Address returns the pointer value of a pointer, or the address of an
// addressable value.
func (x Value) Address() uintptr {
	if x.ti.kind == Pointer {
		return x.v.Pointer()
	}
	if x.v.CanAddr() {
		return x.v.Addr().Pointer()
	}
	return 0
}

// Set writes v into the variable, converting between compatible types.
func (x Value) Set(v any) error {
	if !x.v.CanSet() {
		return fmt.Errorf("%q: %w", x.name, ErrNotSettable)
	}
	rv := reflect.ValueOf(v)
	if !rv.IsValid() || !rv.Type().ConvertibleTo(x.v.Type()) {
		return fmt.Errorf("cannot assign %T to %q of type %s: %w", v, x.name, x.ti.name, ErrKind)
	}
	x.v.Set(rv.Convert(x.v.Type()))
	return nil
}

func (x Value) extent() (int, bool) {
	if x.heap == nil || x.v.IsNil() {
		return 0, false
	}
	return x.heap.Extent(x.v.Pointer())
}
