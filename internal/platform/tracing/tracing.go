// Package tracing wires the OpenTelemetry trace provider for the service.
// When disabled it hands out a no-op tracer with zero overhead.
package tracing

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const serviceName = "did-registry"

// Provider manages the OpenTelemetry tracer provider lifecycle.
type Provider struct {
	provider *sdktrace.TracerProvider
	tracer   trace.Tracer
}

// NewProvider creates the trace provider. Disabled tracing returns a no-op
// provider so instrumentation sites never need to branch.
func NewProvider(enabled bool) (*Provider, error) {
	if !enabled {
		return &Provider{tracer: noop.NewTracerProvider().Tracer(serviceName)}, nil
	}

	exporter, err := stdouttrace.New()
	if err != nil {
		return nil, fmt.Errorf("create stdout exporter: %w", err)
	}

	res, err := resource.Merge(resource.Default(), resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(serviceName),
	))
	if err != nil {
		return nil, fmt.Errorf("build resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	return &Provider{provider: tp, tracer: tp.Tracer(serviceName)}, nil
}

// Tracer returns the tracer instrumentation sites should use.
func (p *Provider) Tracer() trace.Tracer {
	return p.tracer
}

// Shutdown flushes pending spans. Safe to call on a disabled provider.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p.provider == nil {
		return nil
	}
	return p.provider.Shutdown(ctx)
}
