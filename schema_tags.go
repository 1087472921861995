package confer

import (
	"fmt"
	"reflect"
	"strings"
)

const (
	keyTag     = "confer"
	defaultTag = "default"
)

// sectionNamer lets a record type choose its own section name.
type sectionNamer interface {
	ConferSection() string
}

// ModuleOption configures schema derivation and record construction.
type ModuleOption func(*moduleConfig)

type moduleConfig struct {
	section    string
	fieldInits map[string]func() any
	init       any
}

// WithSection overrides the section name derived from the record type.
func WithSection(name string) ModuleOption {
	return func(c *moduleConfig) {
		c.section = name
	}
}

// WithFieldInit sets the constructor used for field's initial value in new
// records. It is the only way to give an ignored field a non-zero value.
func WithFieldInit(field string, fn func() any) ModuleOption {
	return func(c *moduleConfig) {
		if c.fieldInits == nil {
			c.fieldInits = make(map[string]func() any)
		}
		c.fieldInits[field] = fn
	}
}

// WithInit registers a hook run on every new record after defaults and
// field constructors have been applied. T must match the module's record
// type.
func WithInit[T any](fn func(*T)) ModuleOption {
	return func(c *moduleConfig) {
		c.init = fn
	}
}

func newModuleConfig(opts []ModuleOption) *moduleConfig {
	c := &moduleConfig{}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SchemaOf derives a schema for the struct type T from its struct tags.
//
// Every exported field is mapped. The key is the field name unless the
// confer tag renames it; confer:"-" ignores the field. A default tag holds
// a TOML literal used when the key is absent, except for string fields
// where the raw tag text is the default.
//
// The section is taken from WithSection, then from a ConferSection method
// on T, then from the type name with a leading "Confer" removed.
func SchemaOf[T any](opts ...ModuleOption) (*Schema, error) {
	return schemaFor(reflect.TypeFor[T](), newModuleConfig(opts))
}

func schemaFor(rt reflect.Type, cfg *moduleConfig) (*Schema, error) {
	if rt.Kind() != reflect.Struct {
		return nil, &SchemaError{Type: rt.String(), Message: "record type must be a struct"}
	}

	fields := make([]FieldSpec, 0, rt.NumField())
	for i := 0; i < rt.NumField(); i++ {
		sf := rt.Field(i)
		if !sf.IsExported() || sf.Anonymous {
			continue
		}
		field, err := fieldFromTags(rt, sf)
		if err != nil {
			return nil, err
		}
		fields = append(fields, field)
	}

	for name, fn := range cfg.fieldInits {
		found := false
		for i := range fields {
			if fields[i].Name == name {
				fields[i].Init = fn
				found = true
				break
			}
		}
		if !found {
			return nil, &SchemaError{Type: rt.String(), Field: name, Message: "init for unknown field"}
		}
	}

	return buildSchema(rt, sectionFor(rt, cfg), fields)
}

func fieldFromTags(rt reflect.Type, sf reflect.StructField) (FieldSpec, error) {
	field := FieldSpec{Name: sf.Name, Key: sf.Name}

	if tag, ok := sf.Tag.Lookup(keyTag); ok {
		name, _, _ := strings.Cut(tag, ",")
		switch name {
		case "-":
			field.Ignore = true
		case "":
		default:
			field.Key = name
		}
	}

	lit, ok := sf.Tag.Lookup(defaultTag)
	if !ok {
		return field, nil
	}
	if field.Ignore {
		return field, &SchemaError{Type: rt.String(), Field: sf.Name, Message: "ignored field cannot declare a default"}
	}
	v, err := parseDefault(sf.Type, lit)
	if err != nil {
		return field, &SchemaError{Type: rt.String(), Field: sf.Name, Message: fmt.Sprintf("invalid default %q: %v", lit, err)}
	}
	field.Default = v
	return field, nil
}

// parseDefault reads a default tag. Plain and optional string fields take
// the text verbatim; everything else is a TOML literal.
func parseDefault(t reflect.Type, lit string) (Value, error) {
	container, scalar, ok := classify(t)
	if !ok {
		return nil, fmt.Errorf("unsupported field type %s", t)
	}
	if scalar == ScalarString && (container == ContainerPlain || container == ContainerOption) {
		return String(lit), nil
	}
	return ParseLiteral(lit)
}

func sectionFor(rt reflect.Type, cfg *moduleConfig) string {
	if cfg.section != "" {
		return cfg.section
	}
	if namer, ok := reflect.Zero(rt).Interface().(sectionNamer); ok {
		return namer.ConferSection()
	}
	if namer, ok := reflect.New(rt).Interface().(sectionNamer); ok {
		return namer.ConferSection()
	}
	name := rt.Name()
	if trimmed := strings.TrimPrefix(name, "Confer"); trimmed != "" {
		return trimmed
	}
	return name
}
