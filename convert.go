package confer

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
)

// Int is the set of integer types the width-checked accessors support.
type Int interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64
}

// AsString converts v to a string. Only String values are accepted.
func AsString(section, key string, v Value) (string, error) {
	if s, ok := v.(String); ok {
		return string(s), nil
	}
	return "", typeMismatch(section, key, "string", v)
}

// AsInteger converts v to an int64. Only Integer values are accepted.
func AsInteger(section, key string, v Value) (int64, error) {
	if n, ok := v.(Integer); ok {
		return int64(n), nil
	}
	return 0, typeMismatch(section, key, "integer", v)
}

// AsFloat converts v to a float64. Integers are upcast.
func AsFloat(section, key string, v Value) (float64, error) {
	switch x := v.(type) {
	case Float:
		return float64(x), nil
	case Integer:
		return float64(x), nil
	default:
		return 0, typeMismatch(section, key, "float", v)
	}
}

// AsBoolean converts v to a bool. Only Boolean values are accepted.
func AsBoolean(section, key string, v Value) (bool, error) {
	if b, ok := v.(Boolean); ok {
		return bool(b), nil
	}
	return false, typeMismatch(section, key, "boolean", v)
}

// AsDatetime converts v to a Datetime. String values are parsed.
func AsDatetime(section, key string, v Value) (Datetime, error) {
	switch x := v.(type) {
	case Datetime:
		return x, nil
	case String:
		d, err := ParseDatetime(string(x))
		if err != nil {
			return Datetime{}, valueParse(section, key, "failed to parse datetime: %v", err)
		}
		return d, nil
	default:
		return Datetime{}, typeMismatch(section, key, "datetime", v)
	}
}

// AsInt converts v to the integer type T, failing with a value-parse error
// naming T's width when the stored integer does not fit.
func AsInt[T Int](section, key string, v Value) (T, error) {
	n, err := AsInteger(section, key, v)
	if err != nil {
		return 0, err
	}
	kind := reflect.TypeFor[T]().Kind()
	if err := checkIntRange(section, key, n, kind); err != nil {
		return 0, err
	}
	return T(n), nil
}

// AsFloat32 converts v to a float32, rejecting non-finite and out-of-range
// magnitudes.
func AsFloat32(section, key string, v Value) (float32, error) {
	f, err := AsFloat(section, key, v)
	if err != nil {
		return 0, err
	}
	if err := checkFloat32(section, key, f); err != nil {
		return 0, err
	}
	return float32(f), nil
}

// IntegerOf converts n to an Integer for storage. Unsigned 64-bit values
// above the signed range are rejected.
func IntegerOf[T Int](section, key string, n T) (Integer, error) {
	switch reflect.TypeFor[T]().Kind() {
	case reflect.Uint, reflect.Uint64, reflect.Uintptr:
		return integerFromUint(section, key, uint64(n))
	default:
		return Integer(int64(n)), nil
	}
}

// AsStringSlice converts an array of strings.
func AsStringSlice(section, key string, v Value) ([]string, error) {
	return asSlice(section, key, v, "string", AsString)
}

// AsIntegerSlice converts an array of integers.
func AsIntegerSlice(section, key string, v Value) ([]int64, error) {
	return asSlice(section, key, v, "integer", AsInteger)
}

// AsFloatSlice converts an array of numbers, upcasting integer elements.
func AsFloatSlice(section, key string, v Value) ([]float64, error) {
	return asSlice(section, key, v, "float", AsFloat)
}

// AsBooleanSlice converts an array of booleans.
func AsBooleanSlice(section, key string, v Value) ([]bool, error) {
	return asSlice(section, key, v, "boolean", AsBoolean)
}

// AsDatetimeSlice converts an array of datetimes, parsing string elements.
func AsDatetimeSlice(section, key string, v Value) ([]Datetime, error) {
	return asSlice(section, key, v, "datetime", AsDatetime)
}

// AsIntSlice converts an array of integers to []T with per-element range
// checks.
func AsIntSlice[T Int](section, key string, v Value) ([]T, error) {
	return asSlice(section, key, v, "integer", AsInt[T])
}

// AsFloat32Slice converts an array of numbers to []float32.
func AsFloat32Slice(section, key string, v Value) ([]float32, error) {
	return asSlice(section, key, v, "float", AsFloat32)
}

// asSlice applies convert to every element of an Array. The first failing
// element aborts the conversion with its index attached.
func asSlice[T any](section, key string, v Value, expected string, convert func(string, string, Value) (T, error)) ([]T, error) {
	arr, ok := v.(Array)
	if !ok {
		return nil, typeMismatch(section, key, "array", v)
	}
	out := make([]T, 0, len(arr))
	for i, item := range arr {
		conv, err := convert(section, key, item)
		if err != nil {
			return nil, elementError(err, expected, item, i)
		}
		out = append(out, conv)
	}
	return out, nil
}

// elementError turns a scalar conversion failure into a value-parse error
// annotated with the element index.
func elementError(err error, expected string, item Value, index int) error {
	switch e := err.(type) {
	case *TypeMismatchError:
		return &ValueParseError{
			Section: e.Section,
			Key:     e.Key,
			Message: fmt.Sprintf("expected array elements of type %s, found %s (at index %d)", expected, describe(item), index),
		}
	case *ValueParseError:
		return &ValueParseError{
			Section: e.Section,
			Key:     e.Key,
			Message: fmt.Sprintf("%s (at index %d)", e.Message, index),
		}
	default:
		return err
	}
}

// checkIntRange verifies that n fits the integer kind.
func checkIntRange(section, key string, n int64, kind reflect.Kind) error {
	var ok bool
	switch kind {
	case reflect.Int8:
		ok = n >= math.MinInt8 && n <= math.MaxInt8
	case reflect.Int16:
		ok = n >= math.MinInt16 && n <= math.MaxInt16
	case reflect.Int32:
		ok = n >= math.MinInt32 && n <= math.MaxInt32
	case reflect.Int:
		ok = strconv.IntSize == 64 || (n >= math.MinInt32 && n <= math.MaxInt32)
	case reflect.Int64:
		ok = true
	case reflect.Uint8:
		ok = n >= 0 && n <= math.MaxUint8
	case reflect.Uint16:
		ok = n >= 0 && n <= math.MaxUint16
	case reflect.Uint32:
		ok = n >= 0 && n <= math.MaxUint32
	case reflect.Uint, reflect.Uintptr:
		ok = n >= 0 && (strconv.IntSize == 64 || n <= math.MaxUint32)
	case reflect.Uint64:
		ok = n >= 0
	default:
		return valueParse(section, key, "unsupported integer type %s", kind)
	}
	if !ok {
		return valueParse(section, key, "value %d out of range for %s", n, kind)
	}
	return nil
}

// checkFloat32 verifies that f is representable as a finite float32.
func checkFloat32(section, key string, f float64) error {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return valueParse(section, key, "non-finite float")
	}
	if f < -math.MaxFloat32 || f > math.MaxFloat32 {
		return valueParse(section, key, "value out of range for float32")
	}
	return nil
}

// integerFromUint narrows an unsigned value to the stored signed range.
func integerFromUint(section, key string, u uint64) (Integer, error) {
	if u > math.MaxInt64 {
		return 0, valueParse(section, key, "value %d out of range for 64-bit signed integer", u)
	}
	return Integer(int64(u)), nil
}
