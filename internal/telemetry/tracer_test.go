// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace/noop"
)

func TestNewProvider_Disabled(t *testing.T) {
	provider, err := NewProvider(context.Background(), Config{Enabled: false, ServiceName: "suiteops", ExporterType: "grpc"})
	require.NoError(t, err)
	assert.Nil(t, provider.tp)

	_, span := otel.Tracer("test").Start(context.Background(), "noop-check")
	assert.False(t, span.IsRecording(), "disabled telemetry must install a noop tracer")
	span.End()

	assert.NoError(t, provider.Shutdown(context.Background()))
}

func TestNewProvider_InvalidExporter(t *testing.T) {
	_, err := NewProvider(context.Background(), Config{Enabled: true, ServiceName: "suiteops", ExporterType: "invalid"})
	require.ErrorIs(t, err, ErrUnsupportedExporter)
	assert.Equal(t, `unsupported exporter type "invalid" (supported: grpc, http)`, err.Error())
}

func TestNewProvider_HTTPExporterShutdown(t *testing.T) {
	// The OTLP exporters connect lazily, so construction succeeds without a collector.
	provider, err := NewProvider(context.Background(), Config{
		Enabled:      true,
		ServiceName:  "suiteops",
		ExporterType: ExporterHTTP,
		Endpoint:     "127.0.0.1:1",
		SamplingRate: 0,
	})
	require.NoError(t, err)
	require.NotNil(t, provider.tp)
	t.Cleanup(func() { otel.SetTracerProvider(noop.NewTracerProvider()) })

	_, span := Tracer("test").Start(context.Background(), "unsampled")
	assert.False(t, span.IsRecording())
	span.End()

	assert.NoError(t, provider.Shutdown(context.Background()))
}

func TestShutdown_NilProvider(t *testing.T) {
	var p *Provider
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestSampler(t *testing.T) {
	assert.Contains(t, sampler(1).Description(), "AlwaysOnSampler")
	assert.Contains(t, sampler(0).Description(), "AlwaysOffSampler")
	assert.Contains(t, sampler(0.25).Description(), "TraceIDRatioBased{0.25}")
}

func TestJobAttributes(t *testing.T) {
	attrs := JobAttributes("job-1", "notifications", "send", 2)
	require.Len(t, attrs, 4)
	assert.Equal(t, attribute.String(JobTypeKey, "send"), attrs[2])
	assert.Equal(t, attribute.Int(JobAttemptKey, 2), attrs[3])
}

func TestEventAttributes_OmitsEmpty(t *testing.T) {
	assert.Len(t, EventAttributes("task.assigned", "", ""), 1)
	assert.Len(t, EventAttributes("task.assigned", "task.notify_assignee", "corr"), 3)
}
