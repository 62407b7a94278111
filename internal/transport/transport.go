// Package transport provides the HTTP round tripper underneath the GitHub client.
package transport

import (
	"net/http"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// DefaultLowRateLimit is the remaining-request count under which a warning is logged
const DefaultLowRateLimit = 100

// InstrumentedTransport traces and logs every request. It never retries
type InstrumentedTransport struct {
	base         http.RoundTripper
	tracer       trace.Tracer
	logger       *zap.Logger
	lowRateLimit int
}

func WithInstrumentation(base http.RoundTripper, tracer trace.Tracer, logger *zap.Logger) *InstrumentedTransport {
	if base == nil {
		base = http.DefaultTransport
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InstrumentedTransport{
		base:         base,
		tracer:       tracer,
		logger:       logger,
		lowRateLimit: DefaultLowRateLimit,
	}
}

func (t *InstrumentedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx, span := t.tracer.Start(req.Context(), "github "+req.Method,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", req.Method),
			attribute.String("url.path", req.URL.Path),
		),
	)
	defer span.End()

	start := time.Now()
	resp, err := t.base.RoundTrip(req.WithContext(ctx))
	elapsed := time.Since(start)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		t.logger.Debug("github request failed",
			zap.String("method", req.Method),
			zap.String("path", req.URL.Path),
			zap.Duration("elapsed", elapsed),
			zap.Error(err),
		)
		return resp, err
	}

	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))
	if resp.StatusCode >= http.StatusBadRequest {
		span.SetStatus(codes.Error, resp.Status)
	}
	t.logger.Debug("github request",
		zap.String("method", req.Method),
		zap.String("path", req.URL.Path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", elapsed),
	)

	if remaining, err := strconv.Atoi(resp.Header.Get("X-RateLimit-Remaining")); err == nil {
		span.SetAttributes(attribute.Int("github.rate_limit.remaining", remaining))
		if remaining < t.lowRateLimit {
			t.logger.Warn("GitHub rate limit running low",
				zap.Int("remaining", remaining),
				zap.String("reset", resp.Header.Get("X-RateLimit-Reset")),
			)
		}
	}

	return resp, nil
}
