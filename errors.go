package confer

import (
	"errors"
	"fmt"

	"github.com/dshills/confer/internal/loader"
)

// Errors returned by store and module operations. Store failures and schema
// problems match one of these through errors.Is. Module Load and Save also
// return the context's error when it is cancelled.
var (
	// ErrIO indicates a read, write or rename failure.
	ErrIO = errors.New("i/o error")

	// ErrParse indicates malformed document text.
	ErrParse = loader.ErrParse

	// ErrSerialize indicates the document could not be serialized.
	ErrSerialize = errors.New("serialize error")

	// ErrMissingKey indicates the section or key is absent.
	ErrMissingKey = errors.New("missing key")

	// ErrTypeMismatch indicates a value is present but has the wrong shape.
	ErrTypeMismatch = errors.New("type mismatch")

	// ErrValueParse indicates a value has the right shape but an invalid,
	// out-of-range or unparseable payload.
	ErrValueParse = errors.New("invalid value")

	// ErrSchema indicates an invalid record schema declaration.
	ErrSchema = errors.New("invalid schema")
)

// sectionMarker is the key reported when a section itself has the wrong shape.
const sectionMarker = "<section>"

// IOError wraps a file system failure.
type IOError struct {
	// Path is the file involved, if known.
	Path string
	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *IOError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("I/O error: %v", e.Err)
	}
	return fmt.Sprintf("I/O error (path: %s): %v", e.Path, e.Err)
}

// Unwrap returns the underlying error.
func (e *IOError) Unwrap() error { return e.Err }

// Is implements error matching for IOError.
func (e *IOError) Is(target error) bool { return target == ErrIO }

// ParseError represents an error while parsing a document. Line and
// Column are set when the decoder reports a position.
type ParseError = loader.ParseError

// SerializeError is returned when the document cannot be encoded.
type SerializeError struct {
	Err error
}

// Error implements the error interface.
func (e *SerializeError) Error() string {
	return fmt.Sprintf("failed to serialize document: %v", e.Err)
}

// Unwrap returns the underlying error.
func (e *SerializeError) Unwrap() error { return e.Err }

// Is implements error matching for SerializeError.
func (e *SerializeError) Is(target error) bool { return target == ErrSerialize }

// MissingKeyError is returned when a section or key is absent.
type MissingKeyError struct {
	Section string
	Key     string
}

// Error implements the error interface.
func (e *MissingKeyError) Error() string {
	return fmt.Sprintf("missing key %s.%s", e.Section, e.Key)
}

// Is implements error matching for MissingKeyError.
func (e *MissingKeyError) Is(target error) bool { return target == ErrMissingKey }

// TypeMismatchError is returned when a value is present with the wrong shape.
// Key is "<section>" when the section itself is not a table.
type TypeMismatchError struct {
	Section  string
	Key      string
	Expected string
	Found    string
}

// Error implements the error interface.
func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("expected %s at %s.%s but found %s", e.Expected, e.Section, e.Key, e.Found)
}

// Is implements error matching for TypeMismatchError.
func (e *TypeMismatchError) Is(target error) bool { return target == ErrTypeMismatch }

// ValueParseError is returned when a value of the right shape carries an
// invalid payload. Array element failures include "(at index N)".
type ValueParseError struct {
	Section string
	Key     string
	Message string
}

// Error implements the error interface.
func (e *ValueParseError) Error() string {
	return fmt.Sprintf("invalid value at %s.%s: %s", e.Section, e.Key, e.Message)
}

// Is implements error matching for ValueParseError.
func (e *ValueParseError) Is(target error) bool { return target == ErrValueParse }

// SchemaError describes an invalid record declaration.
type SchemaError struct {
	// Type is the record type name.
	Type string
	// Field is the offending struct field, empty for type-level problems.
	Field string
	// Message describes the problem.
	Message string
}

// Error implements the error interface.
func (e *SchemaError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid schema for %s: %s", e.Type, e.Message)
	}
	return fmt.Sprintf("invalid schema for %s: field %s: %s", e.Type, e.Field, e.Message)
}

// Is implements error matching for SchemaError.
func (e *SchemaError) Is(target error) bool { return target == ErrSchema }

func missingKey(section, key string) error {
	return &MissingKeyError{Section: section, Key: key}
}

func typeMismatch(section, key, expected string, found Value) error {
	return &TypeMismatchError{Section: section, Key: key, Expected: expected, Found: describe(found)}
}

func sectionMismatch(section string, found Value) error {
	return typeMismatch(section, sectionMarker, "table", found)
}

func valueParse(section, key, format string, args ...any) error {
	return &ValueParseError{Section: section, Key: key, Message: fmt.Sprintf(format, args...)}
}
