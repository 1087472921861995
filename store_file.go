package confer

import (
	"errors"
	"fmt"
	"time"

	"github.com/dshills/confer/internal/loader"
	"github.com/rs/zerolog"
)

// LoadString replaces the whole document with the one parsed from source.
// The document is left untouched when parsing fails.
func (s *Store) LoadString(source string) error {
	doc, err := s.parse("<string>", []byte(source), s.format)
	if err == nil {
		s.replace(doc, "<string>")
	}
	s.recorder.RecordOperation("load", err)
	return err
}

// LoadFile replaces the whole document with the one read from path. The
// format is chosen from the file extension, falling back to the store's
// configured format.
func (s *Store) LoadFile(path string) error {
	start := time.Now()
	doc, err := s.readFile(path)
	if err != nil {
		s.logger.Warn().Err(err).Str("path", path).Msg("failed to load document")
		s.recorder.RecordOperation("load", err)
		return err
	}
	s.replace(doc, path)
	s.logger.Debug().
		Str("path", path).
		Int("sections", len(doc)).
		Dur("elapsed", time.Since(start)).
		Msg("document loaded")
	s.recorder.RecordOperation("load", nil)
	return nil
}

// SaveString serializes the document in the store's configured format.
func (s *Store) SaveString() (string, error) {
	data, err := s.encode(s.format)
	s.recorder.RecordOperation("save", err)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// SaveFile writes the document to path atomically. The document is written
// to a sibling temporary file which is then renamed over the destination.
func (s *Store) SaveFile(path string) error {
	err := s.saveFile(path)
	s.recorder.RecordOperation("save", err)
	return err
}

func (s *Store) saveFile(path string) error {
	start := time.Now()
	data, err := s.encode(loader.FormatForPath(path, s.format))
	if err != nil {
		return err
	}
	if err := loader.WriteAtomic(s.fs, path, data, s.logger); err != nil {
		s.logger.Error().Err(err).Str("path", path).Msg("failed to save document")
		return &IOError{Path: path, Err: err}
	}
	s.logger.Debug().
		Str("path", path).
		Int("bytes", len(data)).
		Dur("elapsed", time.Since(start)).
		Msg("document saved")
	return nil
}

func (s *Store) readFile(path string) (Table, error) {
	data, err := s.fs.ReadFile(path)
	if err != nil {
		return nil, &IOError{Path: path, Err: err}
	}
	return s.parse(path, data, loader.FormatForPath(path, s.format))
}

func (s *Store) parse(source string, data []byte, format Format) (Table, error) {
	raw, err := loader.Parse(format, source, data)
	if err != nil {
		var perr *ParseError
		if errors.As(err, &perr) {
			return nil, perr
		}
		return nil, &ParseError{Path: source, Message: err.Error(), Err: err}
	}
	doc, err := tableFromMap(raw)
	if err != nil {
		return nil, &ParseError{Path: source, Message: err.Error(), Err: err}
	}
	return doc, nil
}

func (s *Store) encode(format Format) ([]byte, error) {
	s.mu.RLock()
	raw := s.doc.toMap()
	s.mu.RUnlock()

	data, err := loader.Encode(format, raw)
	if err != nil {
		return nil, &SerializeError{Err: err}
	}
	return data, nil
}

// replace swaps in doc and announces the reload.
func (s *Store) replace(doc Table, source string) {
	s.mu.Lock()
	s.doc = doc
	s.mu.Unlock()

	if s.notifier != nil {
		s.notifier.NotifyReload(source)
	}
}

// Logger returns the logger the store was configured with.
func (s *Store) Logger() zerolog.Logger {
	return s.logger
}

// Format returns the store's default document format.
func (s *Store) Format() Format {
	return s.format
}

// String implements fmt.Stringer with a short summary of the store.
func (s *Store) String() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fmt.Sprintf("confer.Store{sections: %d, format: %s}", len(s.doc), s.format)
}
