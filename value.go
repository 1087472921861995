package confer

import (
	"fmt"
	"sort"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Kind identifies the variant held by a Value.
type Kind uint8

const (
	KindString Kind = iota
	KindInteger
	KindFloat
	KindBoolean
	KindDatetime
	KindArray
	KindTable
)

// String returns the lowercase variant name used in error messages.
func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInteger:
		return "integer"
	case KindFloat:
		return "float"
	case KindBoolean:
		return "boolean"
	case KindDatetime:
		return "datetime"
	case KindArray:
		return "array"
	case KindTable:
		return "table"
	default:
		return "unknown"
	}
}

// Value is any datum stored in a document. The variant set is closed:
// String, Integer, Float, Boolean, Datetime, Array and Table are the only
// implementations.
type Value interface {
	Kind() Kind
	value()
}

// String is a text value.
type String string

// Integer is a 64-bit signed integer value.
type Integer int64

// Float is a 64-bit floating point value.
type Float float64

// Boolean is a true/false value.
type Boolean bool

// Array is an ordered sequence of values.
type Array []Value

// Table maps names to values. Keys are unique.
type Table map[string]Value

func (String) Kind() Kind  { return KindString }
func (Integer) Kind() Kind { return KindInteger }
func (Float) Kind() Kind   { return KindFloat }
func (Boolean) Kind() Kind { return KindBoolean }
func (Array) Kind() Kind   { return KindArray }
func (Table) Kind() Kind   { return KindTable }

func (String) value()  {}
func (Integer) value() {}
func (Float) value()   {}
func (Boolean) value() {}
func (Array) value()   {}
func (Table) value()   {}

// Keys returns the table keys in sorted order.
func (t Table) Keys() []string {
	keys := make([]string, 0, len(t))
	for k := range t {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// describe names the variant of v for error messages.
func describe(v Value) string {
	if v == nil {
		return "nothing"
	}
	return v.Kind().String()
}

// Clone returns a deep copy of v. Arrays and tables are copied recursively.
func Clone(v Value) Value {
	switch x := v.(type) {
	case Array:
		if x == nil {
			return Array(nil)
		}
		out := make(Array, len(x))
		for i, item := range x {
			out[i] = Clone(item)
		}
		return out
	case Table:
		return x.clone()
	default:
		return v
	}
}

func (t Table) clone() Table {
	if t == nil {
		return nil
	}
	out := make(Table, len(t))
	for k, v := range t {
		out[k] = Clone(v)
	}
	return out
}

// fromAny converts a decoded document value into a Value.
func fromAny(raw any) (Value, error) {
	switch v := raw.(type) {
	case string:
		return String(v), nil
	case int64:
		return Integer(v), nil
	case int:
		return Integer(int64(v)), nil
	case float64:
		return Float(v), nil
	case bool:
		return Boolean(v), nil
	case time.Time:
		return NewDatetime(v), nil
	case toml.LocalDateTime:
		return NewLocalDateTime(v), nil
	case toml.LocalDate:
		return NewLocalDate(v), nil
	case toml.LocalTime:
		return NewLocalTime(v), nil
	case []any:
		out := make(Array, len(v))
		for i, item := range v {
			conv, err := fromAny(item)
			if err != nil {
				return nil, fmt.Errorf("index %d: %w", i, err)
			}
			out[i] = conv
		}
		return out, nil
	case map[string]any:
		return tableFromMap(v)
	default:
		return nil, fmt.Errorf("unsupported value of type %T", raw)
	}
}

func tableFromMap(m map[string]any) (Table, error) {
	out := make(Table, len(m))
	for k, item := range m {
		conv, err := fromAny(item)
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", k, err)
		}
		out[k] = conv
	}
	return out, nil
}

// toAny converts a Value into the plain representation the encoders accept.
func toAny(v Value) any {
	switch x := v.(type) {
	case String:
		return string(x)
	case Integer:
		return int64(x)
	case Float:
		return float64(x)
	case Boolean:
		return bool(x)
	case Datetime:
		return x.raw()
	case Array:
		out := make([]any, len(x))
		for i, item := range x {
			out[i] = toAny(item)
		}
		return out
	case Table:
		return x.toMap()
	default:
		panic(fmt.Sprintf("confer: unexpected value type %T", v))
	}
}

func (t Table) toMap() map[string]any {
	out := make(map[string]any, len(t))
	for k, v := range t {
		out[k] = toAny(v)
	}
	return out
}

// Native returns v as plain Go values: string, int64, float64, bool,
// time.Time or a go-toml local date/time type, []any and map[string]any.
func Native(v Value) any {
	if v == nil {
		return nil
	}
	return toAny(v)
}

// FromNative converts plain Go values, as produced by Native or a document
// decoder, into a Value.
func FromNative(raw any) (Value, error) {
	return fromAny(raw)
}

// ParseLiteral parses a single TOML value literal such as 8080, "text",
// 1979-05-27 or [1, 2].
func ParseLiteral(lit string) (Value, error) {
	var doc map[string]any
	if err := toml.Unmarshal([]byte("v = "+lit), &doc); err != nil {
		return nil, fmt.Errorf("invalid literal %q: %w", lit, err)
	}
	raw, ok := doc["v"]
	if !ok || len(doc) != 1 {
		return nil, fmt.Errorf("invalid literal %q", lit)
	}
	return fromAny(raw)
}
