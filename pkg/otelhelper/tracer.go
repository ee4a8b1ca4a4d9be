// Package otelhelper provides distributed tracing setup for the engine.
package otelhelper

import (
	"context"
	"log/slog"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otlptracehttp "go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

const (
	// Common attribute keys.
	TenantIDKey    = "relay.tenant.id"
	WorkflowIDKey  = "relay.workflow.id"
	TriggerTypeKey = "relay.trigger.type"
	ActionIDKey    = "relay.action.id"
	ActionTypeKey  = "relay.action.type"
	ExecutionIDKey = "relay.execution.id"
	EventIDKey     = "relay.event.id"
	AttemptKey     = "relay.attempt"
)

// TracerFromEnv initializes OTLP tracing when an exporter endpoint is
// configured in the environment; otherwise it returns nil and callers fall
// back to a noop tracer.
//
// nolint:ireturn // Returning interface is intentional for OpenTelemetry tracing
func TracerFromEnv(ctx context.Context, serviceName string) trace.Tracer {
	if os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT") == "" {
		return nil
	}

	tracer, err := NewTracer(ctx, serviceName)
	if err != nil {
		slog.WarnContext(ctx, "Failed to initialize tracing", "error", err)

		return nil
	}

	return tracer
}

// nolint:ireturn // Returning interface is intentional for OpenTelemetry tracing
func NewTracer(ctx context.Context, serviceName string) (trace.Tracer, error) {
	provider, err := newTracerProvider(ctx, serviceName)
	if err != nil {
		return nil, err
	}

	return provider.Tracer(serviceName), nil
}

// nolint:ireturn,spancheck // Returning interface is intentional for OpenTelemetry tracing
func StartSpan(ctx context.Context, tracer trace.Tracer, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

func newTracerProvider(ctx context.Context, serviceName string) (*sdktrace.TracerProvider, error) {
	r, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(serviceName),
		),
	)
	if err != nil {
		return nil, err
	}

	exporter, err := otlptracehttp.New(ctx)
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(r),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}))

	return tp, nil
}
