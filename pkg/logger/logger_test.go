package logger

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]zapcore.Level{
		Debug:     zap.DebugLevel,
		Info:      zap.InfoLevel,
		Warning:   zap.WarnLevel,
		Error:     zap.ErrorLevel,
		"verbose": zap.InfoLevel,
		"":        zap.InfoLevel,
	}
	for in, want := range cases {
		if got := parseLevel(in); got != want {
			t.Errorf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestWarnCarriesErrorAndFields(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	log := NewFromZap(zap.New(core))

	log.Warn("option failed validation", errors.New("boom"), map[string]interface{}{
		"option": "peer_service",
	})

	entries := logs.FilterMessage("option failed validation").All()
	require.Len(t, entries, 1)
	assert.Equal(t, zap.WarnLevel, entries[0].Level)
	ctx := entries[0].ContextMap()
	assert.Equal(t, "peer_service", ctx["option"])
	assert.Equal(t, "boom", ctx["error"])
}

func TestWithContextAddsTraceFields(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	log := NewFromZap(zap.New(core)).WithTracing(true)

	tp := sdktrace.NewTracerProvider()
	ctx, span := tp.Tracer("test").Start(context.Background(), "op")
	defer span.End()

	log.InfoWithContext(ctx, "traced", nil)
	log.InfoWithContext(context.Background(), "untraced", nil)

	traced := logs.FilterMessage("traced").All()
	require.Len(t, traced, 1)
	assert.Equal(t, span.SpanContext().TraceID().String(), traced[0].ContextMap()["trace_id"])

	untraced := logs.FilterMessage("untraced").All()
	require.Len(t, untraced, 1)
	assert.NotContains(t, untraced[0].ContextMap(), "trace_id")
}

func TestWithContextWithoutTracingAddsNothing(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	log := NewFromZap(zap.New(core)).WithTracing(true).WithTracing(false)

	tp := sdktrace.NewTracerProvider()
	ctx, span := tp.Tracer("test").Start(context.Background(), "op")
	defer span.End()

	log.WarnWithContext(ctx, "plain", nil)

	entries := logs.FilterMessage("plain").All()
	require.Len(t, entries, 1)
	assert.NotContains(t, entries[0].ContextMap(), "trace_id")
}

func TestSyncIgnoringTTY(t *testing.T) {
	assert.NoError(t, syncIgnoringTTY(NewFromZap(zap.NewNop())))
}
