// Package metrics provides Prometheus instrumentation for confer stores.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dshills/confer"
	"github.com/dshills/confer/watcher"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Config configures a Collector.
type Config struct {
	// Namespace prefixes every metric name (default: "confer").
	Namespace string

	// Registry receives the metrics. A private registry is created when nil.
	Registry *prometheus.Registry

	// ConstLabels are added to every metric.
	ConstLabels prometheus.Labels

	// Buckets for the sync duration histogram (in seconds).
	// Default: [0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1]
	Buckets []float64
}

// DefaultBuckets returns the default sync duration buckets.
func DefaultBuckets() []float64 {
	return []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1}
}

// Collector records store and sync activity. It implements confer.Recorder.
type Collector struct {
	registry *prometheus.Registry

	Operations   *prometheus.CounterVec
	Syncs        *prometheus.CounterVec
	SyncDuration *prometheus.HistogramVec
	Reloads      *prometheus.CounterVec
	LastReload   prometheus.Gauge
}

var _ confer.Recorder = (*Collector)(nil)

// New creates a collector with all metrics registered.
func New(cfg Config) *Collector {
	if cfg.Namespace == "" {
		cfg.Namespace = "confer"
	}
	if cfg.Buckets == nil {
		cfg.Buckets = DefaultBuckets()
	}
	if cfg.Registry == nil {
		cfg.Registry = prometheus.NewRegistry()
	}

	factory := promauto.With(cfg.Registry)

	return &Collector{
		registry: cfg.Registry,
		Operations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   cfg.Namespace,
				Name:        "store_operations_total",
				Help:        "Total number of store operations by result",
				ConstLabels: cfg.ConstLabels,
			},
			[]string{"op", "result"},
		),
		Syncs: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   cfg.Namespace,
				Name:        "module_syncs_total",
				Help:        "Total number of module load and save passes",
				ConstLabels: cfg.ConstLabels,
			},
			[]string{"direction", "section", "result"},
		),
		SyncDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace:   cfg.Namespace,
				Name:        "module_sync_duration_seconds",
				Help:        "Module load and save duration in seconds",
				Buckets:     cfg.Buckets,
				ConstLabels: cfg.ConstLabels,
			},
			[]string{"direction", "section"},
		),
		Reloads: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   cfg.Namespace,
				Name:        "reloads_total",
				Help:        "Total number of document reloads from disk",
				ConstLabels: cfg.ConstLabels,
			},
			[]string{"result"},
		),
		LastReload: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace:   cfg.Namespace,
				Name:        "last_reload_timestamp_seconds",
				Help:        "Unix timestamp of the last successful reload",
				ConstLabels: cfg.ConstLabels,
			},
		),
	}
}

// RecordOperation implements confer.Recorder.
func (c *Collector) RecordOperation(op string, err error) {
	c.Operations.WithLabelValues(op, Result(err)).Inc()
}

// RecordSync implements confer.Recorder.
func (c *Collector) RecordSync(direction, section string, elapsed time.Duration, err error) {
	c.Syncs.WithLabelValues(direction, section, Result(err)).Inc()
	c.SyncDuration.WithLabelValues(direction, section).Observe(elapsed.Seconds())
}

// ObserveReload records a watcher reload. Pass it to watcher.OnReload.
func (c *Collector) ObserveReload(ev watcher.Event) {
	c.Reloads.WithLabelValues(Result(ev.Err)).Inc()
	if ev.Err == nil {
		c.LastReload.Set(float64(ev.Time.Unix()))
	}
}

// Registry returns the registry the metrics are registered with.
func (c *Collector) Registry() *prometheus.Registry { return c.registry }

// Handler returns the HTTP handler for the /metrics endpoint.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// Result maps an error to a low-cardinality label value.
func Result(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, confer.ErrMissingKey):
		return "missing_key"
	case errors.Is(err, confer.ErrTypeMismatch):
		return "type_mismatch"
	case errors.Is(err, confer.ErrValueParse):
		return "value_parse"
	case errors.Is(err, confer.ErrParse):
		return "parse"
	case errors.Is(err, confer.ErrSerialize):
		return "serialize"
	case errors.Is(err, confer.ErrIO):
		return "io"
	case errors.Is(err, confer.ErrSchema):
		return "schema"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	default:
		return "error"
	}
}
