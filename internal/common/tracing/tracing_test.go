// Package tracing 提供 OpenTelemetry 分布式追踪单元测试
package tracing

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestInit(t *testing.T) {
	t.Run("默认配置不启用", func(t *testing.T) {
		tracer, err := Init(nil)
		require.NoError(t, err)
		assert.Nil(t, tracer.provider)
		assert.Equal(t, "hotel-inventory", tracer.config.ServiceName)
		assert.NoError(t, tracer.Shutdown(context.Background()))
	})

	t.Run("启用 stdout 导出", func(t *testing.T) {
		prev := otel.GetTracerProvider()
		t.Cleanup(func() { otel.SetTracerProvider(prev) })

		tracer, err := Init(&Config{ServiceName: "test-service", SampleRate: 0.5, Enabled: true})
		require.NoError(t, err)
		require.NotNil(t, tracer.provider)
		assert.NoError(t, tracer.Shutdown(context.Background()))
	})
}

func TestSamplerFor(t *testing.T) {
	assert.Contains(t, samplerFor(1).Description(), "AlwaysOnSampler")
	assert.Equal(t, "AlwaysOffSampler", samplerFor(0).Description())
	assert.Contains(t, samplerFor(0.25).Description(), "TraceIDRatioBased")
}

func TestStartEnd_RecordsSpans(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(provider)
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	ctx, span := Start(context.Background(), "booking.confirm", WithBookingID(9), WithEvent("confirm"))
	AddEvent(ctx, "availability.checked")
	End(span, nil)

	_, failing := Start(context.Background(), "booking.cancel")
	End(failing, errors.New("boom"))

	spans := recorder.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, "booking.confirm", spans[0].Name())
	assert.Len(t, spans[0].Events(), 1)
	assert.Contains(t, spans[0].Attributes(), WithBookingID(9))
	assert.Equal(t, codes.Error, spans[1].Status().Code)
}
