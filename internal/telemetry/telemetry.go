package telemetry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

// ServiceName is reported as service.name on every span.
const ServiceName = "boardcrawl"

// ErrNoEndpoint is returned by Setup when the endpoint is empty.
var ErrNoEndpoint = errors.New("no trace endpoint configured")

// Telemetry owns the tracer provider of one crawl.
type Telemetry struct {
	TracerProvider *sdktrace.TracerProvider
}

// Setup creates a Telemetry that exports spans to an OTLP/HTTP endpoint
// such as http://localhost:4318/v1/traces.
func Setup(ctx context.Context, endpoint, version string) (*Telemetry, error) {
	if endpoint == "" {
		return nil, ErrNoEndpoint
	}

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	exporter, err := otlptracehttp.New(ctx, otlptracehttp.WithEndpointURL(endpoint))
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}
	return New(exporter, version)
}

// New creates a Telemetry that batches spans into exporter.
func New(exporter sdktrace.SpanExporter, version string) (*Telemetry, error) {
	r, err := newResource(version)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(r),
	)
	return &Telemetry{TracerProvider: tp}, nil
}

// Tracer returns the tracer sessions record their spans with.
func (t *Telemetry) Tracer() trace.Tracer {
	return t.TracerProvider.Tracer("github.com/nao1215/boardcrawl")
}

// Shutdown flushes pending spans and stops the exporter.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	return t.TracerProvider.Shutdown(ctx)
}

func newResource(version string) (*resource.Resource, error) {
	return resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(ServiceName),
			semconv.ServiceVersion(version),
		),
	)
}
