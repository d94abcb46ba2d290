package tracing

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// DefaultServiceName is reported as service.name.
const DefaultServiceName = "rocketboy"

// InstrumentationName names the tracer handed to components.
const InstrumentationName = "github.com/rocketboy/rocketboy"

// ErrNoEndpoint is returned by New without a collector endpoint.
var ErrNoEndpoint = errors.New("tracing endpoint is required")

// Config selects the collector and sampling.
type Config struct {
	// Endpoint is the collector's OTLP/gRPC address, e.g. "localhost:4317".
	Endpoint string
	// Insecure disables TLS towards the collector.
	Insecure bool
	// Headers are sent with every export, e.g. an auth token.
	Headers map[string]string

	ServiceName    string
	ServiceVersion string

	// SampleRatio is the fraction of root spans kept. Zero or anything
	// from 1 up samples everything.
	SampleRatio float64
}

// Provider owns an SDK tracer provider and its exporter.
type Provider struct {
	tp *sdktrace.TracerProvider
}

// New connects an OTLP/gRPC exporter to cfg.Endpoint. The connection is
// established lazily, so an unreachable collector does not fail here.
func New(ctx context.Context, cfg Config) (*Provider, error) {
	if cfg.Endpoint == "" {
		return nil, ErrNoEndpoint
	}

	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts,
			otlptracegrpc.WithInsecure(),
			otlptracegrpc.WithDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
		)
	}
	if len(cfg.Headers) > 0 {
		opts = append(opts, otlptracegrpc.WithHeaders(cfg.Headers))
	}

	exp, err := otlptracegrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create trace exporter: %w", err)
	}
	return NewWithExporter(exp, cfg), nil
}

// NewWithExporter builds a Provider that batches spans to exp. cfg.Endpoint
// is ignored.
func NewWithExporter(exp sdktrace.SpanExporter, cfg Config) *Provider {
	name := cfg.ServiceName
	if name == "" {
		name = DefaultServiceName
	}
	attrs := []attribute.KeyValue{semconv.ServiceName(name)}
	if cfg.ServiceVersion != "" {
		attrs = append(attrs, semconv.ServiceVersion(cfg.ServiceVersion))
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(resource.NewWithAttributes(semconv.SchemaURL, attrs...)),
		sdktrace.WithSampler(sampler(cfg.SampleRatio)),
	)
	return &Provider{tp: tp}
}

func sampler(ratio float64) sdktrace.Sampler {
	if ratio <= 0 || ratio >= 1 {
		return sdktrace.AlwaysSample()
	}
	return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))
}

// Tracer returns the tracer for rocketboy components. A nil Provider
// yields a no-op tracer.
func (p *Provider) Tracer() trace.Tracer {
	if p == nil {
		return Noop()
	}
	return p.tp.Tracer(InstrumentationName)
}

// ForceFlush exports every finished span still buffered.
func (p *Provider) ForceFlush(ctx context.Context) error {
	if p == nil {
		return nil
	}
	return p.tp.ForceFlush(ctx)
}

// Shutdown flushes and stops the exporter. Spans ended afterwards are
// dropped.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p == nil {
		return nil
	}
	return p.tp.Shutdown(ctx)
}

// Noop returns a tracer that records nothing.
func Noop() trace.Tracer {
	return noop.NewTracerProvider().Tracer(InstrumentationName)
}

// Fail records err on span and marks it failed.
func Fail(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
