package confer

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"time"
)

// Module synchronizes records of type T with one section of a Store.
//
// Load and Save are not transactional. Each field is read or written
// separately, so a failure part way leaves earlier fields applied, and a
// concurrent writer may interleave between fields.
type Module[T any] struct {
	schema *Schema
	init   func(*T)
}

// NewModule derives the schema of T from its struct tags and returns a
// module for it.
func NewModule[T any](opts ...ModuleOption) (*Module[T], error) {
	cfg := newModuleConfig(opts)
	schema, err := schemaFor(reflect.TypeFor[T](), cfg)
	if err != nil {
		return nil, err
	}
	return newModule[T](schema, cfg)
}

// NewModuleFromSchema returns a module using an explicit schema built for
// T, such as one returned by NewSchema.
func NewModuleFromSchema[T any](schema *Schema, opts ...ModuleOption) (*Module[T], error) {
	rt := reflect.TypeFor[T]()
	if schema == nil || schema.recordType != rt {
		return nil, &SchemaError{Type: rt.String(), Message: "schema was built for a different type"}
	}
	return newModule[T](schema, newModuleConfig(opts))
}

func newModule[T any](schema *Schema, cfg *moduleConfig) (*Module[T], error) {
	m := &Module[T]{schema: schema}
	if cfg.init != nil {
		fn, ok := cfg.init.(func(*T))
		if !ok {
			return nil, &SchemaError{
				Type:    schema.recordType.String(),
				Message: fmt.Sprintf("init hook has type %T", cfg.init),
			}
		}
		m.init = fn
	}
	return m, nil
}

// MustModule is like NewModule but panics on a schema error.
func MustModule[T any](opts ...ModuleOption) *Module[T] {
	m, err := NewModule[T](opts...)
	if err != nil {
		panic(err)
	}
	return m
}

// Schema returns the module's schema.
func (m *Module[T]) Schema() *Schema { return m.schema }

// Section returns the section the module reads and writes.
func (m *Module[T]) Section() string { return m.schema.Section }

// New returns a record holding the declared defaults. Fields without a
// default take their Init value or the zero value.
func (m *Module[T]) New() (T, error) {
	var rec T
	rv := reflect.ValueOf(&rec).Elem()

	for i := range m.schema.Fields {
		f := &m.schema.Fields[i]
		field := rv.FieldByIndex(f.index)
		switch {
		case f.Default != nil:
			val, err := f.decode(m.schema.Section, f.Default)
			if err != nil {
				return rec, err
			}
			field.Set(val)
		case f.Init != nil:
			val := reflect.ValueOf(f.Init())
			if !val.IsValid() {
				continue
			}
			if !val.Type().AssignableTo(f.typ) {
				return rec, &SchemaError{
					Type:    m.schema.recordType.String(),
					Field:   f.Name,
					Message: fmt.Sprintf("init returned %s, want %s", val.Type(), f.typ),
				}
			}
			field.Set(val)
		}
	}

	if m.init != nil {
		m.init(&rec)
	}
	return rec, nil
}

// FromStore builds a new record and loads it from store.
func (m *Module[T]) FromStore(ctx context.Context, store *Store) (*Shared[T], error) {
	rec, err := m.New()
	if err != nil {
		return nil, err
	}
	shared := NewShared(rec)
	if err := m.Load(ctx, shared, store); err != nil {
		return nil, err
	}
	return shared, nil
}

// Load refreshes rec from the module's section of store. Absent keys take
// their declared default; absent optional fields without a default become
// nil. Each field is assigned under its own write lock.
func (m *Module[T]) Load(ctx context.Context, rec *Shared[T], store *Store) error {
	start := time.Now()
	err := m.load(ctx, rec, store)
	store.recorder.RecordSync("load", m.schema.Section, time.Since(start), err)
	return err
}

func (m *Module[T]) load(ctx context.Context, rec *Shared[T], store *Store) error {
	section := m.schema.Section

	for i := range m.schema.Fields {
		f := &m.schema.Fields[i]
		if f.Ignore {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		val, err := m.fetchField(store, f)
		if err != nil {
			return err
		}

		rec.Write(func(r *T) {
			reflect.ValueOf(r).Elem().FieldByIndex(f.index).Set(val)
		})
	}

	store.logger.Debug().Str("section", section).Int("fields", len(m.schema.Fields)).Msg("record loaded")
	return nil
}

// fetchField reads and decodes one field, falling back to its default.
func (m *Module[T]) fetchField(store *Store, f *FieldSpec) (reflect.Value, error) {
	section := m.schema.Section

	v, err := store.fetch(section, f.Key)
	if err == nil {
		return f.decode(section, v)
	}
	if !errors.Is(err, ErrMissingKey) {
		return reflect.Value{}, err
	}

	switch {
	case f.Default != nil:
		return f.decode(section, f.Default)
	case f.Container.Optional():
		return reflect.Zero(f.typ), nil
	default:
		return reflect.Value{}, err
	}
}

// Save writes rec to the module's section of store and removes every key
// in that section the schema does not declare. All fields are read under a
// single read lock before the store is touched.
func (m *Module[T]) Save(ctx context.Context, rec *Shared[T], store *Store) error {
	start := time.Now()
	err := m.save(ctx, rec, store)
	store.recorder.RecordSync("save", m.schema.Section, time.Since(start), err)
	return err
}

type fieldSnapshot struct {
	key     string
	value   Value
	present bool
	err     error
}

func (m *Module[T]) save(ctx context.Context, rec *Shared[T], store *Store) error {
	section := m.schema.Section

	if err := store.AddSection(section); err != nil {
		return err
	}

	snapshot := make([]fieldSnapshot, 0, len(m.schema.Fields))
	rec.Read(func(r *T) {
		rv := reflect.ValueOf(r).Elem()
		for i := range m.schema.Fields {
			f := &m.schema.Fields[i]
			if f.Ignore {
				continue
			}
			v, present, err := f.encode(section, rv.FieldByIndex(f.index))
			snapshot = append(snapshot, fieldSnapshot{key: f.Key, value: v, present: present, err: err})
		}
	})

	for _, snap := range snapshot {
		if err := ctx.Err(); err != nil {
			return err
		}
		if snap.err != nil {
			return snap.err
		}
		var err error
		if snap.present {
			err = store.SetValue(section, snap.key, snap.value)
		} else {
			err = store.RemoveKey(section, snap.key)
		}
		if err != nil {
			return err
		}
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	return m.prune(store)
}

// prune removes keys in the section that no field declares.
func (m *Module[T]) prune(store *Store) error {
	section := m.schema.Section

	keys, err := store.ListKeys(section)
	if err != nil {
		return err
	}

	var pruned []string
	for _, key := range keys {
		if m.schema.Known(key) {
			continue
		}
		if err := store.RemoveKey(section, key); err != nil {
			return err
		}
		pruned = append(pruned, key)
	}

	if len(pruned) > 0 {
		store.logger.Debug().Str("section", section).Strs("keys", pruned).Msg("pruned orphan keys")
	}
	return nil
}
