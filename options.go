package confer

import (
	"time"

	"github.com/dshills/confer/internal/loader"
	"github.com/dshills/confer/notify"
	"github.com/rs/zerolog"
)

// Format identifies a document text format.
type Format = loader.Format

// Supported document formats.
const (
	FormatTOML = loader.FormatTOML
	FormatYAML = loader.FormatYAML
)

// ParseFormat resolves a format name such as "toml" or "yaml".
func ParseFormat(name string) (Format, error) {
	return loader.ParseFormat(name)
}

// FileSystem is the set of file operations a Store uses for LoadFile and
// SaveFile.
type FileSystem = loader.FileSystem

// Recorder receives instrumentation events from a Store and the modules
// synchronized against it. See the metrics package for a Prometheus
// implementation.
type Recorder interface {
	// RecordOperation is called once per public store operation.
	RecordOperation(op string, err error)
	// RecordSync is called once per module load or save pass.
	RecordSync(direction, section string, elapsed time.Duration, err error)
}

type nopRecorder struct{}

func (nopRecorder) RecordOperation(string, error)                   {}
func (nopRecorder) RecordSync(string, string, time.Duration, error) {}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the structured logger. The default discards everything.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// WithFormat sets the format used by LoadString and SaveString, and by
// LoadFile and SaveFile when the file extension does not name a format.
func WithFormat(format Format) Option {
	return func(s *Store) {
		s.format = format
	}
}

// WithNotifier publishes every document change to n.
func WithNotifier(n *notify.Notifier) Option {
	return func(s *Store) {
		s.notifier = n
	}
}

// WithRecorder sets the instrumentation sink.
func WithRecorder(r Recorder) Option {
	return func(s *Store) {
		if r != nil {
			s.recorder = r
		}
	}
}

// WithFileSystem replaces the OS file system used by LoadFile and SaveFile.
func WithFileSystem(fsys FileSystem) Option {
	return func(s *Store) {
		if fsys != nil {
			s.fs = fsys
		}
	}
}
