package inspect

import (
	"fmt"
	"reflect"
)

// AsArray reinterprets a pointer to the first element of a heap buffer as
// an array of n elements. n may not exceed the buffer's live extent.
func (x Value) AsArray(n int) (Value, error) {
	if x.ti.kind != Pointer {
		return Value{}, fmt.Errorf("can't view %q of type %s as an array: %w", x.name, x.ti.canonical, ErrNotPointer)
	}
	if x.v.IsNil() {
		return Value{}, fmt.Errorf("can't view %q as an array: %w", x.name, ErrNullPointer)
	}
	extent, ok := x.extent()
	if !ok {
		extent = 1 // a plain reference only covers its pointee
	}
	if n <= 0 || n > extent {
		return Value{}, fmt.Errorf("%q covers %d elements, asked for %d: %w", x.name, extent, n, ErrOutOfRange)
	}
	arrType := reflect.ArrayOf(n, x.v.Type().Elem())
	arr := reflect.NewAt(arrType, x.v.UnsafePointer()).Elem()
	return newValue(x.name, arr, x.heap), nil
}
