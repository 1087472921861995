// Package httpapi exposes a store over HTTP for inspection and editing.
package httpapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dshills/confer"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// Server serves a single store.
type Server struct {
	store    *confer.Store
	logger   zerolog.Logger
	metrics  http.Handler
	readOnly bool
	router   chi.Router
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithMetrics mounts h at /metrics.
func WithMetrics(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

// WithReadOnly rejects every mutating request with 405.
func WithReadOnly(readOnly bool) Option {
	return func(s *Server) {
		s.readOnly = readOnly
	}
}

// New creates a server for store.
func New(store *confer.Store, opts ...Option) *Server {
	s := &Server{
		store:  store,
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.router = s.routes()
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(newLoggingMiddleware(s.logger))
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics)
	}

	r.Get("/document", s.handleDocument)

	r.Route("/sections", func(r chi.Router) {
		r.Get("/", s.handleListSections)
		r.Route("/{section}", func(r chi.Router) {
			r.Get("/", s.handleGetSection)
			r.With(s.writable).Put("/", s.handleAddSection)
			r.With(s.writable).Delete("/", s.handleRemoveSection)

			r.Get("/keys", s.handleListKeys)
			r.Get("/keys/{key}", s.handleGetKey)
			r.With(s.writable).Put("/keys/{key}", s.handleSetKey)
			r.With(s.writable).Delete("/keys/{key}", s.handleRemoveKey)
		})
	})

	return r
}

func (s *Server) writable(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.readOnly {
			writeError(w, http.StatusMethodNotAllowed, errors.New("store is read-only"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// SectionResponse is the body of GET /sections/{section}.
type SectionResponse struct {
	Section string         `json:"section"`
	Values  map[string]any `json:"values"`
}

// KeyResponse is the body of GET /sections/{section}/keys/{key}.
type KeyResponse struct {
	Section string `json:"section"`
	Key     string `json:"key"`
	Kind    string `json:"kind"`
	Value   any    `json:"value"`
}

// SetRequest is the body of PUT /sections/{section}/keys/{key}. Exactly
// one of Value (JSON) or Literal (TOML) must be set. Datetimes can only be
// written through Literal.
type SetRequest struct {
	Value   json.RawMessage `json:"value,omitempty"`
	Literal *string         `json:"literal,omitempty"`
}

func (s *Server) handleDocument(w http.ResponseWriter, r *http.Request) {
	format := s.store.Format()
	if name := r.URL.Query().Get("format"); name != "" {
		f, err := confer.ParseFormat(name)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		format = f
	}

	text, err := s.renderDocument(format)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/"+format.String())
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(text))
}

// renderDocument serializes the store in format. Only the default format
// can be rendered directly, so other formats go through a copy.
func (s *Server) renderDocument(format confer.Format) (string, error) {
	if format == s.store.Format() {
		return s.store.SaveString()
	}
	cp := confer.New(confer.WithFormat(format))
	for _, section := range s.store.ListSections() {
		tbl, ok := s.store.SectionTable(section)
		if !ok {
			continue
		}
		if err := cp.AddSection(section); err != nil {
			return "", err
		}
		for key, v := range tbl {
			if err := cp.SetValue(section, key, v); err != nil {
				return "", err
			}
		}
	}
	return cp.SaveString()
}

func (s *Server) handleListSections(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"sections": s.store.ListSections()})
}

func (s *Server) handleGetSection(w http.ResponseWriter, r *http.Request) {
	section := chi.URLParam(r, "section")
	if _, err := s.store.ListKeys(section); err != nil {
		writeStoreError(w, err)
		return
	}
	tbl, ok := s.store.SectionTable(section)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Errorf("section %q not found", section))
		return
	}
	values, _ := confer.Native(tbl).(map[string]any)
	writeJSON(w, http.StatusOK, SectionResponse{Section: section, Values: values})
}

func (s *Server) handleAddSection(w http.ResponseWriter, r *http.Request) {
	if err := s.store.AddSection(chi.URLParam(r, "section")); err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRemoveSection(w http.ResponseWriter, r *http.Request) {
	if err := s.store.RemoveSection(chi.URLParam(r, "section")); err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListKeys(w http.ResponseWriter, r *http.Request) {
	keys, err := s.store.ListKeys(chi.URLParam(r, "section"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"keys": keys})
}

func (s *Server) handleGetKey(w http.ResponseWriter, r *http.Request) {
	section, key := chi.URLParam(r, "section"), chi.URLParam(r, "key")
	if _, err := s.store.ListKeys(section); err != nil {
		writeStoreError(w, err)
		return
	}
	v, ok := s.store.GetValue(section, key)
	if !ok {
		writeStoreError(w, &confer.MissingKeyError{Section: section, Key: key})
		return
	}
	writeJSON(w, http.StatusOK, KeyResponse{
		Section: section,
		Key:     key,
		Kind:    v.Kind().String(),
		Value:   confer.Native(v),
	})
}

func (s *Server) handleSetKey(w http.ResponseWriter, r *http.Request) {
	section, key := chi.URLParam(r, "section"), chi.URLParam(r, "key")

	var req SetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}

	v, err := req.value()
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.store.SetValue(section, key, v); err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRemoveKey(w http.ResponseWriter, r *http.Request) {
	if err := s.store.RemoveKey(chi.URLParam(r, "section"), chi.URLParam(r, "key")); err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (req SetRequest) value() (confer.Value, error) {
	hasValue := len(req.Value) > 0
	switch {
	case hasValue && req.Literal != nil:
		return nil, errors.New("value and literal are mutually exclusive")
	case req.Literal != nil:
		return confer.ParseLiteral(*req.Literal)
	case hasValue:
		dec := json.NewDecoder(bytes.NewReader(req.Value))
		dec.UseNumber()
		var raw any
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("invalid value: %w", err)
		}
		native, err := fromJSON(raw)
		if err != nil {
			return nil, err
		}
		return confer.FromNative(native)
	default:
		return nil, errors.New("value or literal is required")
	}
}

// fromJSON narrows decoded JSON to the value set the store accepts.
func fromJSON(raw any) (any, error) {
	switch v := raw.(type) {
	case nil:
		return nil, errors.New("null values are not supported")
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return n, nil
		}
		f, err := v.Float64()
		if err != nil {
			return nil, fmt.Errorf("invalid number %s", v)
		}
		return f, nil
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			conv, err := fromJSON(item)
			if err != nil {
				return nil, fmt.Errorf("index %d: %w", i, err)
			}
			out[i] = conv
		}
		return out, nil
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, item := range v {
			conv, err := fromJSON(item)
			if err != nil {
				return nil, fmt.Errorf("key %q: %w", k, err)
			}
			out[k] = conv
		}
		return out, nil
	default:
		return v, nil
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// writeStoreError maps store error categories to HTTP status codes.
func writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, confer.ErrMissingKey):
		writeError(w, http.StatusNotFound, err)
	case errors.Is(err, confer.ErrTypeMismatch):
		writeError(w, http.StatusConflict, err)
	case errors.Is(err, confer.ErrValueParse):
		writeError(w, http.StatusBadRequest, err)
	default:
		writeError(w, http.StatusInternalServerError, err)
	}
}

func newLoggingMiddleware(logger zerolog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			if strings.HasPrefix(r.URL.Path, "/health") || r.URL.Path == "/metrics" {
				return
			}

			logger.Debug().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Int("bytes", ww.BytesWritten()).
				Dur("duration", time.Since(start)).
				Str("request_id", middleware.GetReqID(r.Context())).
				Msg("http request")
		})
	}
}
