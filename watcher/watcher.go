// Package watcher reloads a store when its backing file changes on disk.
//
// The parent directory is watched rather than the file itself so that
// atomic saves, which replace the file through a rename, are seen as
// a create of the watched name.
package watcher

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// Reloader replaces its contents from a file. *confer.Store satisfies it.
type Reloader interface {
	LoadFile(path string) error
}

// Event describes one reload attempt.
type Event struct {
	// Path is the absolute path of the watched file.
	Path string

	// Trigger names what caused the reload: a file operation such as
	// "WRITE" or "CREATE", "signal", or "manual".
	Trigger string

	// Time is when the reload finished.
	Time time.Time

	// Err is the reload error. The store keeps its previous document when
	// Err is non-nil.
	Err error
}

// Handler is called after every reload attempt.
type Handler func(event Event)

// ErrRunning is returned by Start when the watcher is already running.
var ErrRunning = errors.New("watcher already running")

// Watcher monitors one file and reloads a target when it changes.
type Watcher struct {
	mu       sync.RWMutex
	path     string
	target   Reloader
	logger   zerolog.Logger
	debounce time.Duration
	handlers []Handler

	fsw     *fsnotify.Watcher
	stopCh  chan struct{}
	wg      sync.WaitGroup
	running bool
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets how long the file must be quiet before a reload.
// Zero reloads on every event.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d >= 0 {
			w.debounce = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(w *Watcher) {
		w.logger = logger
	}
}

// OnReload registers a handler called after each reload attempt.
func OnReload(h Handler) Option {
	return func(w *Watcher) {
		w.handlers = append(w.handlers, h)
	}
}

// New creates a watcher for path that reloads target.
func New(path string, target Reloader, opts ...Option) (*Watcher, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("absolute path: %w", err)
	}

	w := &Watcher{
		path:     absPath,
		target:   target,
		logger:   zerolog.Nop(),
		debounce: 100 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Path returns the absolute path being watched.
func (w *Watcher) Path() string { return w.path }

// OnReload registers a handler after construction.
func (w *Watcher) OnReload(h Handler) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.handlers = append(w.handlers, h)
}

// Start begins watching the file's directory.
func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return ErrRunning
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := fsw.Add(filepath.Dir(w.path)); err != nil {
		fsw.Close()
		return fmt.Errorf("watch directory: %w", err)
	}

	w.fsw = fsw
	w.stopCh = make(chan struct{})
	w.running = true

	w.wg.Add(1)
	go w.watchLoop(fsw, w.stopCh)

	w.logger.Info().Str("path", w.path).Msg("watching document for changes")
	return nil
}

// WatchSignals reloads on SIGHUP until the watcher is stopped. Start must
// be called first.
func (w *Watcher) WatchSignals() {
	w.mu.RLock()
	stopCh := w.stopCh
	w.mu.RUnlock()
	if stopCh == nil {
		return
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGHUP)

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer signal.Stop(sigCh)
		for {
			select {
			case <-sigCh:
				w.logger.Info().Msg("received SIGHUP, reloading document")
				w.reload("signal")
			case <-stopCh:
				return
			}
		}
	}()
}

// Stop stops watching and waits for in-flight reloads to finish.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	close(w.stopCh)
	w.running = false
	fsw := w.fsw
	w.mu.Unlock()

	w.wg.Wait()
	fsw.Close()
}

// IsRunning reports whether the watcher is active.
func (w *Watcher) IsRunning() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.running
}

// Reload reloads the target immediately.
func (w *Watcher) Reload() error {
	return w.reload("manual")
}

func (w *Watcher) watchLoop(fsw *fsnotify.Watcher, stopCh <-chan struct{}) {
	defer w.wg.Done()

	filename := filepath.Base(w.path)
	var (
		timer   *time.Timer
		fire    <-chan time.Time
		trigger string
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case event, ok := <-fsw.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != filename {
				continue
			}
			if !event.Op.Has(fsnotify.Write) && !event.Op.Has(fsnotify.Create) {
				continue
			}

			w.logger.Debug().
				Str("event", event.Op.String()).
				Str("file", event.Name).
				Msg("document file changed")

			trigger = event.Op.String()
			if w.debounce == 0 {
				w.reload(trigger)
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			w.reload(trigger)

		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			w.logger.Error().Err(err).Msg("file watcher error")

		case <-stopCh:
			return
		}
	}
}

func (w *Watcher) reload(trigger string) error {
	err := w.target.LoadFile(w.path)
	if err != nil {
		w.logger.Error().Err(err).Str("path", w.path).Msg("reload failed, keeping previous document")
	} else {
		w.logger.Info().Str("path", w.path).Str("trigger", trigger).Msg("document reloaded")
	}

	w.mu.RLock()
	handlers := make([]Handler, len(w.handlers))
	copy(handlers, w.handlers)
	w.mu.RUnlock()

	event := Event{Path: w.path, Trigger: trigger, Time: time.Now(), Err: err}
	for _, h := range handlers {
		h(event)
	}
	return err
}
