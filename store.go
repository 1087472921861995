package confer

import (
	"sort"
	"sync"

	"github.com/dshills/confer/internal/loader"
	"github.com/dshills/confer/notify"
	"github.com/rs/zerolog"
)

// Store is an in-memory, sectioned key/value document guarded by a single
// reader/writer lock. Many readers may proceed concurrently; writers are
// exclusive. Each method is atomic on its own, but a sequence of calls is
// not: another goroutine may interleave between any two of them.
//
// Sections are tables directly under the document root. A non-table value
// stored at a section name makes every section operation on that name fail
// with a type mismatch.
type Store struct {
	mu  sync.RWMutex
	doc Table

	format   Format
	fs       FileSystem
	logger   zerolog.Logger
	notifier *notify.Notifier
	recorder Recorder
}

// New creates an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		doc:      make(Table),
		format:   FormatTOML,
		fs:       loader.DefaultFS(),
		logger:   zerolog.Nop(),
		recorder: nopRecorder{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// FromString creates a store holding the document parsed from source.
func FromString(source string, opts ...Option) (*Store, error) {
	s := New(opts...)
	doc, err := s.parse("<string>", []byte(source), s.format)
	if err != nil {
		return nil, err
	}
	s.doc = doc
	return s, nil
}

// FromFile creates a store holding the document read from path.
func FromFile(path string, opts ...Option) (*Store, error) {
	s := New(opts...)
	doc, err := s.readFile(path)
	if err != nil {
		return nil, err
	}
	s.doc = doc
	return s, nil
}

// GetValue returns a copy of the raw value stored at section.key.
func (s *Store) GetValue(section, key string) (Value, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tbl, ok := s.doc[section].(Table)
	if !ok {
		return nil, false
	}
	v, ok := tbl[key]
	if !ok {
		return nil, false
	}
	return Clone(v), true
}

// SectionTable returns a copy of the table stored at section.
func (s *Store) SectionTable(section string) (Table, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tbl, ok := s.doc[section].(Table)
	if !ok {
		return nil, false
	}
	return tbl.clone(), true
}

// SectionExists reports whether section holds a table.
func (s *Store) SectionExists(section string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.doc[section].(Table)
	return ok
}

// SetValue stores a copy of v at section.key, creating the section if
// needed.
func (s *Store) SetValue(section, key string, v Value) error {
	err := s.setValue(section, key, v)
	s.recorder.RecordOperation("set", err)
	return err
}

func (s *Store) setValue(section, key string, v Value) error {
	if v == nil {
		return valueParse(section, key, "cannot store a nil value")
	}
	v = Clone(v)

	s.mu.Lock()
	var old Value
	switch cur := s.doc[section].(type) {
	case nil:
		s.doc[section] = Table{key: v}
	case Table:
		old = cur[key]
		cur[key] = v
	default:
		s.mu.Unlock()
		return sectionMismatch(section, cur)
	}
	s.mu.Unlock()

	if s.notifier != nil {
		s.notifier.NotifySet(section, key, old, Clone(v), "")
	}
	return nil
}

// AddSection ensures section exists as a table. It succeeds without change
// if the table already exists.
func (s *Store) AddSection(section string) error {
	s.mu.Lock()
	created := false
	var err error
	switch cur := s.doc[section].(type) {
	case nil:
		s.doc[section] = make(Table)
		created = true
	case Table:
	default:
		err = sectionMismatch(section, cur)
	}
	s.mu.Unlock()

	if created && s.notifier != nil {
		s.notifier.Notify(notify.Change{Type: notify.ChangeSectionAdd, Section: section})
	}
	s.recorder.RecordOperation("add_section", err)
	return err
}

// RemoveKey deletes section.key. Missing sections and keys are ignored.
func (s *Store) RemoveKey(section, key string) error {
	s.mu.Lock()
	var old Value
	var err error
	switch cur := s.doc[section].(type) {
	case nil:
	case Table:
		old = cur[key]
		delete(cur, key)
	default:
		err = sectionMismatch(section, cur)
	}
	s.mu.Unlock()

	if old != nil && s.notifier != nil {
		s.notifier.NotifyDelete(section, key, old, "")
	}
	s.recorder.RecordOperation("remove_key", err)
	return err
}

// RemoveSection deletes section. A missing section is ignored.
func (s *Store) RemoveSection(section string) error {
	s.mu.Lock()
	old, existed := s.doc[section]
	delete(s.doc, section)
	s.mu.Unlock()

	if existed && s.notifier != nil {
		s.notifier.Notify(notify.Change{Type: notify.ChangeSectionRemove, Section: section, OldValue: old})
	}
	s.recorder.RecordOperation("remove_section", nil)
	return nil
}

// ListSections returns the sorted names of all sections that hold tables.
func (s *Store) ListSections() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.doc))
	for name, v := range s.doc {
		if _, ok := v.(Table); ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// ListKeys returns the sorted keys of section. An absent section yields an
// empty slice.
func (s *Store) ListKeys(section string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	switch cur := s.doc[section].(type) {
	case nil:
		return []string{}, nil
	case Table:
		return cur.Keys(), nil
	default:
		return nil, sectionMismatch(section, cur)
	}
}

// fetch returns a copy of the value at section.key, distinguishing absent
// entries from a section of the wrong shape.
func (s *Store) fetch(section, key string) (Value, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sv, ok := s.doc[section]
	if !ok {
		return nil, missingKey(section, key)
	}
	tbl, ok := sv.(Table)
	if !ok {
		return nil, sectionMismatch(section, sv)
	}
	v, ok := tbl[key]
	if !ok {
		return nil, missingKey(section, key)
	}
	return Clone(v), nil
}

// get fetches section.key and applies convert.
func get[T any](s *Store, section, key string, convert func(string, string, Value) (T, error)) (T, error) {
	v, err := s.fetch(section, key)
	if err != nil {
		s.recorder.RecordOperation("get", err)
		var zero T
		return zero, err
	}
	out, err := convert(section, key, v)
	s.recorder.RecordOperation("get", err)
	return out, err
}

// GetString returns the string at section.key.
func (s *Store) GetString(section, key string) (string, error) {
	return get(s, section, key, AsString)
}

// GetInteger returns the integer at section.key.
func (s *Store) GetInteger(section, key string) (int64, error) {
	return get(s, section, key, AsInteger)
}

// GetFloat returns the number at section.key. Integers are upcast.
func (s *Store) GetFloat(section, key string) (float64, error) {
	return get(s, section, key, AsFloat)
}

// GetBoolean returns the boolean at section.key.
func (s *Store) GetBoolean(section, key string) (bool, error) {
	return get(s, section, key, AsBoolean)
}

// GetDatetime returns the datetime at section.key, parsing string values.
func (s *Store) GetDatetime(section, key string) (Datetime, error) {
	return get(s, section, key, AsDatetime)
}

// GetStringSlice returns the string array at section.key.
func (s *Store) GetStringSlice(section, key string) ([]string, error) {
	return get(s, section, key, AsStringSlice)
}

// GetIntegerSlice returns the integer array at section.key.
func (s *Store) GetIntegerSlice(section, key string) ([]int64, error) {
	return get(s, section, key, AsIntegerSlice)
}

// GetFloatSlice returns the numeric array at section.key. Integer elements
// are upcast.
func (s *Store) GetFloatSlice(section, key string) ([]float64, error) {
	return get(s, section, key, AsFloatSlice)
}

// GetBooleanSlice returns the boolean array at section.key.
func (s *Store) GetBooleanSlice(section, key string) ([]bool, error) {
	return get(s, section, key, AsBooleanSlice)
}

// GetDatetimeSlice returns the datetime array at section.key, parsing string
// elements.
func (s *Store) GetDatetimeSlice(section, key string) ([]Datetime, error) {
	return get(s, section, key, AsDatetimeSlice)
}

// GetFloat32 returns the number at section.key narrowed to float32.
func (s *Store) GetFloat32(section, key string) (float32, error) {
	return get(s, section, key, AsFloat32)
}

// GetInt returns the integer at section.key converted to T with a range
// check.
func GetInt[T Int](s *Store, section, key string) (T, error) {
	return get(s, section, key, AsInt[T])
}

// GetIntSlice returns the integer array at section.key converted to []T with
// per-element range checks.
func GetIntSlice[T Int](s *Store, section, key string) ([]T, error) {
	return get(s, section, key, AsIntSlice[T])
}

// SetString stores a string at section.key.
func (s *Store) SetString(section, key, value string) error {
	return s.SetValue(section, key, String(value))
}

// SetInteger stores an integer at section.key.
func (s *Store) SetInteger(section, key string, value int64) error {
	return s.SetValue(section, key, Integer(value))
}

// SetFloat stores a float at section.key.
func (s *Store) SetFloat(section, key string, value float64) error {
	return s.SetValue(section, key, Float(value))
}

// SetBoolean stores a boolean at section.key.
func (s *Store) SetBoolean(section, key string, value bool) error {
	return s.SetValue(section, key, Boolean(value))
}

// SetDatetime stores a datetime at section.key.
func (s *Store) SetDatetime(section, key string, value Datetime) error {
	return s.SetValue(section, key, value)
}

// SetStringSlice stores a string array at section.key.
func (s *Store) SetStringSlice(section, key string, values []string) error {
	return s.SetValue(section, key, arrayOf(values, func(v string) Value { return String(v) }))
}

// SetIntegerSlice stores an integer array at section.key.
func (s *Store) SetIntegerSlice(section, key string, values []int64) error {
	return s.SetValue(section, key, arrayOf(values, func(v int64) Value { return Integer(v) }))
}

// SetFloatSlice stores a float array at section.key.
func (s *Store) SetFloatSlice(section, key string, values []float64) error {
	return s.SetValue(section, key, arrayOf(values, func(v float64) Value { return Float(v) }))
}

// SetBooleanSlice stores a boolean array at section.key.
func (s *Store) SetBooleanSlice(section, key string, values []bool) error {
	return s.SetValue(section, key, arrayOf(values, func(v bool) Value { return Boolean(v) }))
}

// SetDatetimeSlice stores a datetime array at section.key.
func (s *Store) SetDatetimeSlice(section, key string, values []Datetime) error {
	return s.SetValue(section, key, arrayOf(values, func(v Datetime) Value { return v }))
}

// SetInt stores an integer of any width at section.key. Unsigned values
// above the signed 64-bit range are rejected.
func SetInt[T Int](s *Store, section, key string, value T) error {
	n, err := IntegerOf(section, key, value)
	if err != nil {
		s.recorder.RecordOperation("set", err)
		return err
	}
	return s.SetValue(section, key, n)
}

// SetIntSlice stores an integer array of any width at section.key.
func SetIntSlice[T Int](s *Store, section, key string, values []T) error {
	arr := make(Array, len(values))
	for i, v := range values {
		n, err := IntegerOf(section, key, v)
		if err != nil {
			err = elementError(err, "integer", nil, i)
			s.recorder.RecordOperation("set", err)
			return err
		}
		arr[i] = n
	}
	return s.SetValue(section, key, arr)
}

func arrayOf[T any](values []T, wrap func(T) Value) Array {
	arr := make(Array, len(values))
	for i, v := range values {
		arr[i] = wrap(v)
	}
	return arr
}
