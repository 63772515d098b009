// Package oteltrace traces gate dispatches with OpenTelemetry.
//
//	r := gate.New(gate.WithTracer(oteltrace.New()))
//
// The tracer uses the global OpenTelemetry tracer provider unless one is set
// with WithTracerProvider. Configure it in main() before serving.
package oteltrace

import (
	"context"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/bjaus/gate"
)

const defaultTracerName = "github.com/bjaus/gate"

type config struct {
	tracerName string
	provider   trace.TracerProvider
}

// Option configures the span starter.
type Option func(*config)

// WithTracerName sets the instrumentation scope name.
func WithTracerName(name string) Option {
	return func(c *config) {
		c.tracerName = name
	}
}

// WithTracerProvider sets the provider spans are created from.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *config) {
		c.provider = tp
	}
}

// Tracer starts one server span per dispatch. It implements gate.SpanStarter.
type Tracer struct {
	tracer trace.Tracer
}

var _ gate.SpanStarter = (*Tracer)(nil)

// New creates a Tracer.
func New(opts ...Option) *Tracer {
	cfg := config{tracerName: defaultTracerName}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.provider == nil {
		cfg.provider = otel.GetTracerProvider()
	}
	return &Tracer{tracer: cfg.provider.Tracer(cfg.tracerName)}
}

// StartSpan implements gate.SpanStarter.
func (t *Tracer) StartSpan(ctx context.Context, name string, attrs map[string]string) (context.Context, func(int, error)) {
	kvs := make([]attribute.KeyValue, 0, len(attrs))
	for k, v := range attrs {
		kvs = append(kvs, attribute.String(k, v))
	}

	ctx, span := t.tracer.Start(ctx, name,
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(kvs...),
	)

	return ctx, func(status int, err error) {
		defer span.End()

		span.SetAttributes(attribute.Int("http.status_code", status))
		if err != nil && status >= http.StatusInternalServerError {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return
		}
		if status >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(status))
			return
		}
		span.SetStatus(codes.Ok, "")
	}
}
