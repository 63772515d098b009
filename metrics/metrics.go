// Package metrics exports dispatch outcomes as Prometheus metrics.
//
//	obs := metrics.New(metrics.WithRegistry(reg))
//	r := gate.New(gate.WithObserver(obs))
//
// Metrics collected:
//   - gate_requests_total: counter by method, route, status and outcome
//   - gate_request_duration_seconds: histogram by method and route
//   - gate_validation_failures_total: counter by route and surface
//   - gate_response_size_bytes: histogram by method and route
package metrics

import (
	"context"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bjaus/gate"
)

// unmatchedRoute labels requests that matched no route, keeping label
// cardinality bounded.
const unmatchedRoute = "unmatched"

// Config configures the Observer.
type Config struct {
	// Namespace is the metrics namespace (default: "gate").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for request duration.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// Option configures the Observer.
type Option func(*Config)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) Option {
	return func(c *Config) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) Option {
	return func(c *Config) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) Option {
	return func(c *Config) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the duration histogram buckets.
func WithBuckets(buckets []float64) Option {
	return func(c *Config) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) Option {
	return func(c *Config) {
		c.Registry = registry
	}
}

func defaultConfig() Config {
	return Config{
		Namespace: "gate",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Observer records dispatch events. It implements gate.Observer.
type Observer struct {
	requests     *prometheus.CounterVec
	duration     *prometheus.HistogramVec
	validation   *prometheus.CounterVec
	responseSize *prometheus.HistogramVec
}

var _ gate.Observer = (*Observer)(nil)

// New creates an Observer and registers its collectors. It panics if the
// collectors are already registered with the registry.
func New(opts ...Option) *Observer {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	factory := promauto.With(cfg.Registry)

	return &Observer{
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   cfg.Subsystem,
			Name:        "requests_total",
			Help:        "Total number of dispatched requests",
			ConstLabels: cfg.ConstLabels,
		}, []string{"method", "route", "status", "outcome"}),

		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   cfg.Subsystem,
			Name:        "request_duration_seconds",
			Help:        "Dispatch duration in seconds",
			ConstLabels: cfg.ConstLabels,
			Buckets:     cfg.Buckets,
		}, []string{"method", "route"}),

		validation: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   cfg.Subsystem,
			Name:        "validation_failures_total",
			Help:        "Total number of schema validation failures by surface",
			ConstLabels: cfg.ConstLabels,
		}, []string{"route", "surface"}),

		responseSize: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   cfg.Subsystem,
			Name:        "response_size_bytes",
			Help:        "Response body size in bytes",
			ConstLabels: cfg.ConstLabels,
			Buckets:     prometheus.ExponentialBuckets(64, 4, 8), // 64B to 1MB
		}, []string{"method", "route"}),
	}
}

// ObserveDispatch implements gate.Observer.
func (o *Observer) ObserveDispatch(_ context.Context, ev gate.DispatchEvent) {
	route := ev.Route
	if route == "" {
		route = unmatchedRoute
	}

	o.requests.WithLabelValues(ev.Method, route, strconv.Itoa(ev.Status), string(ev.Outcome)).Inc()
	o.duration.WithLabelValues(ev.Method, route).Observe(ev.Duration.Seconds())
	o.responseSize.WithLabelValues(ev.Method, route).Observe(float64(ev.Size))

	if ev.Outcome == gate.OutcomeInvalid {
		o.validation.WithLabelValues(route, string(ev.Surface)).Inc()
	}
}
