package objectstream

import (
	"math"
	"reflect"
)

// Truthy reports whether v counts as a usable result.
//
// Falsy values are nil, nil pointers, maps, slices, channels, functions and
// interfaces, false, numeric zero, NaN and the empty string. Everything else
// is truthy, including empty but non-nil slices and maps, arrays and structs.
func Truthy(v any) bool {
	if v == nil {
		return false
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Bool:
		return rv.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int() != 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return rv.Uint() != 0
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		return f != 0 && !math.IsNaN(f)
	case reflect.Complex64, reflect.Complex128:
		return rv.Complex() != 0
	case reflect.String:
		return rv.Len() > 0
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func, reflect.Interface, reflect.UnsafePointer:
		return !rv.IsNil()
	default:
		return true
	}
}
