package confer

import (
	"fmt"
	"reflect"
)

// Container describes how a field wraps its scalar type.
type Container uint8

const (
	// ContainerPlain is a required single value (T).
	ContainerPlain Container = iota
	// ContainerVec is a required homogeneous array ([]T).
	ContainerVec
	// ContainerOption is an optional single value (*T).
	ContainerOption
	// ContainerOptionVec is an optional homogeneous array (*[]T).
	ContainerOptionVec
)

// String returns the container name.
func (c Container) String() string {
	switch c {
	case ContainerPlain:
		return "plain"
	case ContainerVec:
		return "vec"
	case ContainerOption:
		return "option"
	case ContainerOptionVec:
		return "option-vec"
	default:
		return "unknown"
	}
}

// Optional reports whether an absent key leaves the field unset.
func (c Container) Optional() bool { return c == ContainerOption || c == ContainerOptionVec }

// Scalar is the element type of a field.
type Scalar uint8

// Supported scalar types. Integer and float scalars carry their width.
const (
	ScalarString Scalar = iota
	ScalarBool
	ScalarInt
	ScalarInt8
	ScalarInt16
	ScalarInt32
	ScalarInt64
	ScalarUint
	ScalarUint8
	ScalarUint16
	ScalarUint32
	ScalarUint64
	ScalarFloat32
	ScalarFloat64
	ScalarDatetime
)

var scalarNames = [...]string{
	ScalarString:   "string",
	ScalarBool:     "bool",
	ScalarInt:      "int",
	ScalarInt8:     "int8",
	ScalarInt16:    "int16",
	ScalarInt32:    "int32",
	ScalarInt64:    "int64",
	ScalarUint:     "uint",
	ScalarUint8:    "uint8",
	ScalarUint16:   "uint16",
	ScalarUint32:   "uint32",
	ScalarUint64:   "uint64",
	ScalarFloat32:  "float32",
	ScalarFloat64:  "float64",
	ScalarDatetime: "datetime",
}

// String returns the Go name of the scalar type.
func (s Scalar) String() string {
	if int(s) < len(scalarNames) {
		return scalarNames[s]
	}
	return "unknown"
}

// expected names the document variant the scalar is stored as.
func (s Scalar) expected() string {
	switch {
	case s == ScalarString:
		return "string"
	case s == ScalarBool:
		return "boolean"
	case s == ScalarFloat32 || s == ScalarFloat64:
		return "float"
	case s == ScalarDatetime:
		return "datetime"
	default:
		return "integer"
	}
}

var datetimeType = reflect.TypeFor[Datetime]()

// scalarOf classifies a Go type as a supported scalar.
func scalarOf(t reflect.Type) (Scalar, bool) {
	if t == datetimeType {
		return ScalarDatetime, true
	}
	switch t.Kind() {
	case reflect.String:
		return ScalarString, true
	case reflect.Bool:
		return ScalarBool, true
	case reflect.Int:
		return ScalarInt, true
	case reflect.Int8:
		return ScalarInt8, true
	case reflect.Int16:
		return ScalarInt16, true
	case reflect.Int32:
		return ScalarInt32, true
	case reflect.Int64:
		return ScalarInt64, true
	case reflect.Uint:
		return ScalarUint, true
	case reflect.Uint8:
		return ScalarUint8, true
	case reflect.Uint16:
		return ScalarUint16, true
	case reflect.Uint32:
		return ScalarUint32, true
	case reflect.Uint64:
		return ScalarUint64, true
	case reflect.Float32:
		return ScalarFloat32, true
	case reflect.Float64:
		return ScalarFloat64, true
	}
	return 0, false
}

// classify derives the container and scalar of a field type.
func classify(t reflect.Type) (Container, Scalar, bool) {
	container := ContainerPlain
	if t.Kind() == reflect.Pointer {
		container = ContainerOption
		t = t.Elem()
	}
	if t.Kind() == reflect.Slice {
		if container == ContainerOption {
			container = ContainerOptionVec
		} else {
			container = ContainerVec
		}
		t = t.Elem()
	}
	sc, ok := scalarOf(t)
	return container, sc, ok
}

// FieldSpec describes how one record field maps to a document key.
type FieldSpec struct {
	// Name is the Go struct field name.
	Name string

	// Key is the document key. Defaults to Name.
	Key string

	// Container and Scalar are derived from the field's Go type when the
	// schema is built.
	Container Container
	Scalar    Scalar

	// Default is used when the key is absent on load.
	Default Value

	// Init constructs the field's initial value for new records. It must
	// return a value assignable to the field. Mutually exclusive with
	// Default.
	Init func() any

	// Ignore excludes the field from load and save. Its key is never known
	// to the schema, so a matching document key is pruned on save.
	Ignore bool

	index []int
	typ   reflect.Type
}

// Schema is the ordered field list of a record type plus its section name.
// Build it once per type and reuse it.
type Schema struct {
	// Section is the document section the record maps to.
	Section string

	// Fields lists the record's fields in declaration order.
	Fields []FieldSpec

	recordType reflect.Type
	known      map[string]struct{}
}

// NewSchema builds a schema for the struct type T from explicit field
// specs. Fields of T not listed are left alone by load and save.
func NewSchema[T any](section string, fields ...FieldSpec) (*Schema, error) {
	rt := reflect.TypeFor[T]()
	if rt.Kind() != reflect.Struct {
		return nil, &SchemaError{Type: rt.String(), Message: "record type must be a struct"}
	}
	return buildSchema(rt, section, fields)
}

func buildSchema(rt reflect.Type, section string, fields []FieldSpec) (*Schema, error) {
	if section == "" {
		return nil, &SchemaError{Type: rt.String(), Message: "section name is empty"}
	}

	s := &Schema{
		Section:    section,
		Fields:     make([]FieldSpec, 0, len(fields)),
		recordType: rt,
		known:      make(map[string]struct{}, len(fields)),
	}
	names := make(map[string]struct{}, len(fields))

	for _, f := range fields {
		fail := func(format string, args ...any) error {
			return &SchemaError{Type: rt.String(), Field: f.Name, Message: fmt.Sprintf(format, args...)}
		}

		sf, ok := rt.FieldByName(f.Name)
		if !ok || !sf.IsExported() {
			return nil, fail("no exported field %q", f.Name)
		}
		if _, dup := names[f.Name]; dup {
			return nil, fail("field listed twice")
		}
		names[f.Name] = struct{}{}

		f.index = sf.Index
		f.typ = sf.Type
		if f.Key == "" {
			f.Key = f.Name
		}
		if f.Default != nil && f.Init != nil {
			return nil, fail("default and init are mutually exclusive")
		}

		if f.Ignore {
			if f.Default != nil {
				return nil, fail("ignored field cannot declare a default")
			}
			s.Fields = append(s.Fields, f)
			continue
		}

		container, scalar, ok := classify(sf.Type)
		if !ok {
			return nil, fail("unsupported field type %s", sf.Type)
		}
		f.Container = container
		f.Scalar = scalar

		if _, dup := s.known[f.Key]; dup {
			return nil, fail("duplicate key %q", f.Key)
		}
		s.known[f.Key] = struct{}{}

		if f.Default != nil {
			f.Default = Clone(f.Default)
			if _, err := f.decode(section, f.Default); err != nil {
				return nil, fail("invalid default: %v", err)
			}
		}
		s.Fields = append(s.Fields, f)
	}
	return s, nil
}

// Known reports whether key is declared by a non-ignored field.
func (s *Schema) Known(key string) bool {
	_, ok := s.known[key]
	return ok
}

// Keys returns the declared keys in field order.
func (s *Schema) Keys() []string {
	keys := make([]string, 0, len(s.known))
	for _, f := range s.Fields {
		if !f.Ignore {
			keys = append(keys, f.Key)
		}
	}
	return keys
}

// Type returns the record type the schema describes.
func (s *Schema) Type() reflect.Type { return s.recordType }

// decode converts a stored value into a value of the field's Go type.
func (f *FieldSpec) decode(section string, v Value) (reflect.Value, error) {
	switch f.Container {
	case ContainerPlain:
		return decodeScalar(section, f.Key, v, f.Scalar, f.typ)
	case ContainerVec:
		return decodeSlice(section, f.Key, v, f.Scalar, f.typ)
	case ContainerOption:
		elem, err := decodeScalar(section, f.Key, v, f.Scalar, f.typ.Elem())
		if err != nil {
			return reflect.Value{}, err
		}
		return pointerTo(elem), nil
	case ContainerOptionVec:
		elems, err := decodeSlice(section, f.Key, v, f.Scalar, f.typ.Elem())
		if err != nil {
			return reflect.Value{}, err
		}
		return pointerTo(elems), nil
	default:
		return reflect.Value{}, f.unknownContainer()
	}
}

// encode converts a field value into a stored value. The boolean result is
// false when an optional field is unset.
func (f *FieldSpec) encode(section string, rv reflect.Value) (Value, bool, error) {
	switch f.Container {
	case ContainerPlain:
		v, err := encodeScalar(section, f.Key, rv, f.Scalar)
		return v, err == nil, err
	case ContainerVec:
		v, err := encodeSlice(section, f.Key, rv, f.Scalar)
		return v, err == nil, err
	case ContainerOption:
		if rv.IsNil() {
			return nil, false, nil
		}
		v, err := encodeScalar(section, f.Key, rv.Elem(), f.Scalar)
		return v, err == nil, err
	case ContainerOptionVec:
		if rv.IsNil() {
			return nil, false, nil
		}
		v, err := encodeSlice(section, f.Key, rv.Elem(), f.Scalar)
		return v, err == nil, err
	default:
		return nil, false, f.unknownContainer()
	}
}

func (f *FieldSpec) unknownContainer() error {
	return &SchemaError{Type: f.typ.String(), Field: f.Name, Message: fmt.Sprintf("unknown container %d", f.Container)}
}

func pointerTo(v reflect.Value) reflect.Value {
	p := reflect.New(v.Type())
	p.Elem().Set(v)
	return p
}

func decodeScalar(section, key string, v Value, sc Scalar, t reflect.Type) (reflect.Value, error) {
	out := reflect.New(t).Elem()
	switch sc {
	case ScalarString:
		s, err := AsString(section, key, v)
		if err != nil {
			return reflect.Value{}, err
		}
		out.SetString(s)
	case ScalarBool:
		b, err := AsBoolean(section, key, v)
		if err != nil {
			return reflect.Value{}, err
		}
		out.SetBool(b)
	case ScalarFloat32:
		f, err := AsFloat32(section, key, v)
		if err != nil {
			return reflect.Value{}, err
		}
		out.SetFloat(float64(f))
	case ScalarFloat64:
		f, err := AsFloat(section, key, v)
		if err != nil {
			return reflect.Value{}, err
		}
		out.SetFloat(f)
	case ScalarDatetime:
		d, err := AsDatetime(section, key, v)
		if err != nil {
			return reflect.Value{}, err
		}
		out.Set(reflect.ValueOf(d))
	default:
		n, err := AsInteger(section, key, v)
		if err != nil {
			return reflect.Value{}, err
		}
		if err := checkIntRange(section, key, n, t.Kind()); err != nil {
			return reflect.Value{}, err
		}
		if out.CanInt() {
			out.SetInt(n)
		} else {
			out.SetUint(uint64(n))
		}
	}
	return out, nil
}

func decodeSlice(section, key string, v Value, sc Scalar, t reflect.Type) (reflect.Value, error) {
	arr, ok := v.(Array)
	if !ok {
		return reflect.Value{}, typeMismatch(section, key, "array", v)
	}
	out := reflect.MakeSlice(t, 0, len(arr))
	for i, item := range arr {
		elem, err := decodeScalar(section, key, item, sc, t.Elem())
		if err != nil {
			return reflect.Value{}, elementError(err, sc.expected(), item, i)
		}
		out = reflect.Append(out, elem)
	}
	return out, nil
}

func encodeScalar(section, key string, rv reflect.Value, sc Scalar) (Value, error) {
	switch sc {
	case ScalarString:
		return String(rv.String()), nil
	case ScalarBool:
		return Boolean(rv.Bool()), nil
	case ScalarFloat32, ScalarFloat64:
		return Float(rv.Float()), nil
	case ScalarDatetime:
		return rv.Interface().(Datetime), nil
	case ScalarUint, ScalarUint8, ScalarUint16, ScalarUint32, ScalarUint64:
		return integerFromUint(section, key, rv.Uint())
	default:
		return Integer(rv.Int()), nil
	}
}

func encodeSlice(section, key string, rv reflect.Value, sc Scalar) (Value, error) {
	arr := make(Array, rv.Len())
	for i := range arr {
		v, err := encodeScalar(section, key, rv.Index(i), sc)
		if err != nil {
			return nil, elementError(err, sc.expected(), nil, i)
		}
		arr[i] = v
	}
	return arr, nil
}
