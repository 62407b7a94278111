// Package telemetry traces ghops operations and GitHub API requests with OpenTelemetry.
package telemetry

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
)

const (
	serviceName = "ghops"
	tracerName  = "github.com/cchalm/ghops"
)

// Config holds the configuration for telemetry
type Config struct {
	Enabled        bool
	Endpoint       string // OTLP/HTTP collector host:port
	Insecure       bool
	ServiceVersion string
}

// Provider manages the tracer used for operations and API requests
type Provider struct {
	tracer   trace.Tracer
	shutdown func(context.Context) error
	logger   *zap.Logger
}

// NewProvider creates a new telemetry provider. When telemetry is disabled every span is a no-op
func NewProvider(ctx context.Context, config Config, logger *zap.Logger) (*Provider, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if !config.Enabled {
		logger.Debug("telemetry disabled")
		return NewProviderFrom(noop.NewTracerProvider(), logger), nil
	}

	opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(config.Endpoint)}
	if config.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	exporter, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}

	version := config.ServiceVersion
	if version == "" {
		version = "dev"
	}
	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(serviceName),
		semconv.ServiceVersion(version),
	)

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	logger.Debug("telemetry enabled", zap.String("endpoint", config.Endpoint))

	p := NewProviderFrom(tp, logger)
	p.shutdown = tp.Shutdown
	return p, nil
}

// NewProviderFrom wraps an existing tracer provider
func NewProviderFrom(tp trace.TracerProvider, logger *zap.Logger) *Provider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Provider{
		tracer:   tp.Tracer(tracerName),
		shutdown: func(context.Context) error { return nil },
		logger:   logger,
	}
}

// Tracer returns the tracer for manual spans
func (p *Provider) Tracer() trace.Tracer {
	return p.tracer
}

// Shutdown flushes pending spans
func (p *Provider) Shutdown(ctx context.Context) error {
	if err := p.shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shut down tracer provider: %w", err)
	}
	return nil
}

// Operation is one user-facing command, e.g. "issue.create", traced as a span and tagged with a unique ID
type Operation struct {
	ID     string
	Name   string
	span   trace.Span
	logger *zap.Logger
	start  time.Time
}

// StartOperation starts the span for a command
func (p *Provider) StartOperation(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, *Operation) {
	id := NewOperationID()
	attrs = append(attrs, attribute.String("ghops.operation.id", id))
	ctx, span := p.tracer.Start(ctx, name, trace.WithAttributes(attrs...))

	op := &Operation{
		ID:     id,
		Name:   name,
		span:   span,
		logger: p.logger.With(zap.String("operation", name), zap.String("operation_id", id)),
		start:  time.Now(),
	}
	op.logger.Debug("operation started")
	return ctx, op
}

// Logger returns a logger tagged with the operation
func (o *Operation) Logger() *zap.Logger {
	return o.logger
}

// End finishes the span, marking it failed when err is not nil
func (o *Operation) End(err error) {
	elapsed := time.Since(o.start)
	if err != nil {
		o.span.RecordError(err)
		o.span.SetStatus(codes.Error, err.Error())
		o.logger.Error("operation failed", zap.Error(err), zap.Duration("elapsed", elapsed))
	} else {
		o.span.SetStatus(codes.Ok, "")
		o.logger.Debug("operation finished", zap.Duration("elapsed", elapsed))
	}
	o.span.End()
}

// NewOperationID generates a new operation UUID
func NewOperationID() string {
	return uuid.New().String()
}
