package monitoring

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/jaeger"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/turtacn/cle/internal/config"
	"github.com/turtacn/cle/pkg/constants"
	"github.com/turtacn/cle/pkg/logger"
)

// TracingManager manages the OpenTelemetry tracer lifecycle.
type TracingManager struct {
	tracer   trace.Tracer
	provider *sdktrace.TracerProvider
	log      logger.Logger
}

// NewTracingManager creates the tracing manager. When tracing is disabled it
// returns a manager backed by the global no-op tracer.
//
// Parameters:
//   - cfg: Tracing configuration.
//   - log: Logger for tracing lifecycle events.
//
// Returns:
//   - *TracingManager: The configured manager.
//   - error: Exporter or resource construction failure.
func NewTracingManager(cfg *config.TracingConfig, log logger.Logger) (*TracingManager, error) {
	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = constants.ServiceName
	}

	if !cfg.Enabled {
		log.Info(context.Background(), "Tracing is disabled")
		return &TracingManager{
			tracer: otel.Tracer(serviceName),
			log:    log,
		}, nil
	}

	exporter, err := jaeger.New(jaeger.WithCollectorEndpoint(
		jaeger.WithEndpoint(cfg.JaegerEndpoint),
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create Jaeger exporter: %w", err)
	}

	res, err := resource.New(
		context.Background(),
		resource.WithAttributes(
			semconv.ServiceNameKey.String(serviceName),
			semconv.ServiceVersionKey.String(constants.ServiceVersion),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.TraceIDRatioBased(cfg.SampleRatio)),
	)

	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	log.Info(context.Background(), "Tracing initialized",
		logger.String("endpoint", cfg.JaegerEndpoint),
		logger.Float64("sample_ratio", cfg.SampleRatio),
	)

	return &TracingManager{
		tracer:   provider.Tracer(serviceName),
		provider: provider,
		log:      log,
	}, nil
}

// Tracer returns the underlying tracer for instrumentation layers.
func (tm *TracingManager) Tracer() trace.Tracer {
	return tm.tracer
}

// StartSpan starts a new span.
func (tm *TracingManager) StartSpan(ctx context.Context, spanName string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return tm.tracer.Start(ctx, spanName, opts...)
}

// RecordError records err on the current span and marks it failed.
func (tm *TracingManager) RecordError(ctx context.Context, err error) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// SetSpanAttributes sets attributes on the current span.
func (tm *TracingManager) SetSpanAttributes(ctx context.Context, attrs map[string]interface{}) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}
	for key, value := range attrs {
		span.SetAttributes(toAttribute(key, value))
	}
}

// TraceID returns the current trace ID, or empty when no span is active.
func (tm *TracingManager) TraceID(ctx context.Context) string {
	span := trace.SpanFromContext(ctx)
	if !span.SpanContext().IsValid() {
		return ""
	}
	return span.SpanContext().TraceID().String()
}

// Shutdown flushes pending spans and stops the provider.
func (tm *TracingManager) Shutdown(ctx context.Context) error {
	if tm.provider == nil {
		return nil
	}
	if err := tm.provider.Shutdown(ctx); err != nil {
		tm.log.Error(ctx, "Failed to shutdown tracing provider", err)
		return err
	}
	tm.log.Info(ctx, "Tracing provider shut down")
	return nil
}

// toAttribute converts a dynamic value to an OpenTelemetry attribute.
func toAttribute(key string, value interface{}) attribute.KeyValue {
	switch v := value.(type) {
	case string:
		return attribute.String(key, v)
	case int:
		return attribute.Int(key, v)
	case int64:
		return attribute.Int64(key, v)
	case float64:
		return attribute.Float64(key, v)
	case bool:
		return attribute.Bool(key, v)
	case []string:
		return attribute.StringSlice(key, v)
	default:
		return attribute.String(key, fmt.Sprintf("%v", v))
	}
}
