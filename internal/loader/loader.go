// Package loader provides document encoding and durable file persistence
// for confer stores.
//
// The loader package handles parsing configuration documents in the
// supported text formats (TOML, YAML) into plain Go maps, encoding those
// maps back to text, and replacing files atomically on disk.
package loader

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Format identifies a document text format.
type Format uint8

const (
	// FormatTOML is the primary document format.
	FormatTOML Format = iota
	// FormatYAML is accepted as an alternative representation.
	FormatYAML
)

// String returns the format name.
func (f Format) String() string {
	switch f {
	case FormatTOML:
		return "toml"
	case FormatYAML:
		return "yaml"
	default:
		return "unknown"
	}
}

// ParseFormat resolves a format name such as "toml" or "yml".
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(name, ".")) {
	case "toml":
		return FormatTOML, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return FormatTOML, fmt.Errorf("unsupported document format %q", name)
	}
}

// FormatForPath picks the format implied by the file extension, falling
// back to fallback when the extension is not recognized.
func FormatForPath(path string, fallback Format) Format {
	ext := filepath.Ext(path)
	if ext == "" {
		return fallback
	}
	f, err := ParseFormat(ext)
	if err != nil {
		return fallback
	}
	return f
}

// Parse decodes data in the given format into a document map.
// The source is used for error reporting only.
func Parse(format Format, source string, data []byte) (map[string]any, error) {
	switch format {
	case FormatYAML:
		return parseYAML(source, data)
	default:
		return parseTOML(source, data)
	}
}

// Encode serializes a document map in the given format.
func Encode(format Format, doc map[string]any) ([]byte, error) {
	switch format {
	case FormatYAML:
		return encodeYAML(doc)
	default:
		return encodeTOML(doc)
	}
}

// FileSystem is an abstraction for the file operations needed to load and
// persist documents. This allows for easy testing with in-memory file systems.
type FileSystem interface {
	// ReadFile reads the entire file at path.
	ReadFile(path string) ([]byte, error)
	// WriteFile writes data to path, creating or truncating it.
	WriteFile(path string, data []byte, perm fs.FileMode) error
	// Rename moves oldpath to newpath.
	Rename(oldpath, newpath string) error
	// Remove deletes the named file.
	Remove(path string) error
	// Stat returns file info for path.
	Stat(path string) (fs.FileInfo, error)
}

// OSFS implements FileSystem using the real OS file system.
type OSFS struct{}

// ReadFile reads the entire file at path.
func (OSFS) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// WriteFile writes data to path.
func (OSFS) WriteFile(path string, data []byte, perm fs.FileMode) error {
	return os.WriteFile(path, data, perm)
}

// Rename moves oldpath to newpath.
func (OSFS) Rename(oldpath, newpath string) error {
	return os.Rename(oldpath, newpath)
}

// Remove deletes the named file.
func (OSFS) Remove(path string) error {
	return os.Remove(path)
}

// Stat returns file info for path.
func (OSFS) Stat(path string) (fs.FileInfo, error) {
	return os.Stat(path)
}

// DefaultFS returns the default file system (OS).
func DefaultFS() FileSystem {
	return OSFS{}
}
