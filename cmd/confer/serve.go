package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dshills/confer"
	"github.com/dshills/confer/internal/httpapi"
	"github.com/dshills/confer/metrics"
	"github.com/dshills/confer/notify"
	"github.com/dshills/confer/watcher"
	"github.com/spf13/cobra"
)

type serveOptions struct {
	addr     string
	watch    bool
	readOnly bool
	persist  bool
	debounce time.Duration
}

func newServeCmd(opts *options) *cobra.Command {
	so := &serveOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the document over HTTP",
		Long: `Serve the document over HTTP with Prometheus metrics at /metrics.

Routes:
  GET    /sections
  GET    /sections/{section}
  PUT    /sections/{section}
  DELETE /sections/{section}
  GET    /sections/{section}/keys
  GET    /sections/{section}/keys/{key}
  PUT    /sections/{section}/keys/{key}
  DELETE /sections/{section}/keys/{key}
  GET    /document`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, opts, so)
		},
	}

	cmd.Flags().StringVar(&so.addr, "addr", ":8080", "listen address")
	cmd.Flags().BoolVar(&so.watch, "watch", false, "reload the document when the file changes")
	cmd.Flags().BoolVar(&so.readOnly, "read-only", false, "reject mutating requests")
	cmd.Flags().BoolVar(&so.persist, "persist", false, "save the document to the file after every change")
	cmd.Flags().DurationVar(&so.debounce, "debounce", 100*time.Millisecond, "quiet period before a file change triggers a reload")
	return cmd
}

func runServe(ctx context.Context, opts *options, so *serveOptions) error {
	logger := opts.logger
	collector := metrics.New(metrics.Config{})
	notifier := notify.New(notify.WithAsync(64))
	defer notifier.Close()

	store, err := opts.open(true,
		confer.WithRecorder(collector),
		confer.WithNotifier(notifier),
	)
	if err != nil {
		return err
	}

	if so.persist && !so.readOnly {
		notifier.Subscribe(func(change notify.Change) {
			if change.Type == notify.ChangeReload {
				return
			}
			if err := store.SaveFile(opts.file); err != nil {
				logger.Error().Err(err).Msg("failed to persist change")
			}
		})
	}

	if so.watch {
		w, err := watcher.New(opts.file, store,
			watcher.WithLogger(logger),
			watcher.WithDebounce(so.debounce),
			watcher.OnReload(collector.ObserveReload),
		)
		if err != nil {
			return err
		}
		if err := w.Start(); err != nil {
			return err
		}
		w.WatchSignals()
		defer w.Stop()
	}

	api := httpapi.New(store,
		httpapi.WithLogger(logger),
		httpapi.WithMetrics(collector.Handler()),
		httpapi.WithReadOnly(so.readOnly),
	)

	srv := &http.Server{
		Addr:              so.addr,
		Handler:           api.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", so.addr).Str("file", opts.file).Msg("serving document")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
