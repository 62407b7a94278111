package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newRecordingProvider(t *testing.T) (*Provider, *tracetest.SpanRecorder, *observer.ObservedLogs) {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	core, logs := observer.New(zapcore.DebugLevel)
	return NewProviderFrom(tp, zap.New(core)), recorder, logs
}

func TestStartOperation_Success(t *testing.T) {
	p, recorder, logs := newRecordingProvider(t)

	_, op := p.StartOperation(context.Background(), "issue.create", attribute.String("repo", "o/r"))
	op.End(nil)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	require.Equal(t, "issue.create", spans[0].Name())
	require.Equal(t, codes.Ok, spans[0].Status().Code)

	attrs := map[attribute.Key]string{}
	for _, kv := range spans[0].Attributes() {
		attrs[kv.Key] = kv.Value.AsString()
	}
	require.Equal(t, "o/r", attrs["repo"])
	require.Equal(t, op.ID, attrs["ghops.operation.id"])
	_, err := uuid.Parse(op.ID)
	require.NoError(t, err)

	require.Equal(t, 2, logs.FilterField(zap.String("operation_id", op.ID)).Len())
}

func TestStartOperation_Failure(t *testing.T) {
	p, recorder, logs := newRecordingProvider(t)

	_, op := p.StartOperation(context.Background(), "pr.merge")
	op.End(errors.New("boom"))

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	require.Equal(t, codes.Error, spans[0].Status().Code)
	require.Equal(t, "boom", spans[0].Status().Description)
	require.Equal(t, 1, logs.FilterMessage("operation failed").Len())
}

func TestNewProvider_Disabled(t *testing.T) {
	ctx := context.Background()
	p, err := NewProvider(ctx, Config{Enabled: false}, nil)
	require.NoError(t, err)

	_, op := p.StartOperation(ctx, "repo.push")
	op.End(nil)
	require.NoError(t, p.Shutdown(ctx))
}
