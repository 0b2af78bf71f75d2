package instrumentation

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Aleph-Alpha/otel-instrumentation/pkg/logger"
	"github.com/Aleph-Alpha/otel-instrumentation/pkg/tracer"
)

func simpleDefinition(t *testing.T, name string, present bool, installErr error) *Definition {
	t.Helper()
	def, err := Define(Descriptor{
		Name:    name,
		Options: []OptionSpec{{Name: "opt", Default: "d", Validator: TypeOf(ValidationString)}},
		Present: func() bool { return present },
		Install: func(context.Context, *Instrumentation, ResolvedConfig) error { return installErr },
	}, nil)
	require.NoError(t, err)
	return def
}

func TestRegistryRegisterLookupAll(t *testing.T) {
	log, _ := newObservedLogger()
	r := NewRegistry(log, nil)

	a := simpleDefinition(t, "a", true, nil)
	b := simpleDefinition(t, "b", true, nil)
	require.NoError(t, r.Register(a))
	require.NoError(t, r.Register(b))

	err := r.Register(simpleDefinition(t, "a", true, nil))
	assert.True(t, IsAlreadyRegistered(err))

	got, ok := r.Lookup("b")
	assert.True(t, ok)
	assert.Same(t, b, got)

	_, ok = r.Lookup("c")
	assert.False(t, ok)

	assert.Equal(t, []*Definition{a, b}, r.All())
}

func TestRegistryInstallAll(t *testing.T) {
	log, logs := newObservedLogger()
	recorder := tracetest.NewSpanRecorder()
	tr := tracer.NewClientWithOptions(tracer.Config{ServiceName: "test"}, log, sdktrace.WithSpanProcessor(recorder))
	r := NewRegistry(log, tr)

	require.NoError(t, r.Register(simpleDefinition(t, "present", true, nil)))
	require.NoError(t, r.Register(simpleDefinition(t, "absent", false, nil)))
	require.NoError(t, r.Register(simpleDefinition(t, "broken", true, errors.New("boom"))))
	require.NoError(t, r.Register(simpleDefinition(t, "skipped", true, nil)))

	cfg := Config{
		Instrumentations: map[string]map[string]any{"present": {"opt": "custom"}},
		Disabled:         []string{"skipped"},
	}
	result, err := r.InstallAll(context.Background(), cfg, WithLookupEnv(envOf(nil)))
	require.NoError(t, err)

	assert.Equal(t, map[string]bool{"present": true, "absent": false, "broken": false, "skipped": false}, result)

	def, _ := r.Lookup("present")
	inst, err := def.Instance()
	require.NoError(t, err)
	assert.Equal(t, "custom", inst.Config()["opt"])

	assert.Equal(t, 1, logs.FilterMessage("Instrumentation was successfully installed").Len())

	spans := recorder.Ended()
	require.Len(t, spans, 4)
	for _, s := range spans {
		assert.Equal(t, "instrumentation.install", s.Name())
	}
	assert.Contains(t, spans[0].Attributes(), attribute.Bool("instrumentation.installed", true))
	assert.Len(t, spans[2].Events(), 1)
	assert.Contains(t, spans[3].Attributes(), attribute.Bool("instrumentation.skipped", true))
}

func TestRegistryInstallLogsCarryTraceContext(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	log := logger.NewFromZap(zap.New(core)).WithTracing(true)
	recorder := tracetest.NewSpanRecorder()
	tr := tracer.NewClientWithOptions(tracer.Config{ServiceName: "test"}, log, sdktrace.WithSpanProcessor(recorder))
	r := NewRegistry(log, tr)

	require.NoError(t, r.Register(simpleDefinition(t, "traced", true, nil)))
	require.NoError(t, r.Register(simpleDefinition(t, "traced_broken", true, errors.New("boom"))))

	_, err := r.InstallAll(context.Background(), Config{}, WithLookupEnv(envOf(nil)))
	require.NoError(t, err)

	spans := recorder.Ended()
	require.Len(t, spans, 2)

	installed := logs.FilterMessage("Instrumentation was successfully installed").All()
	require.Len(t, installed, 1)
	fields := installed[0].ContextMap()
	assert.Equal(t, spans[0].SpanContext().TraceID().String(), fields["trace_id"])
	assert.Equal(t, spans[0].SpanContext().SpanID().String(), fields["span_id"])

	failed := logs.FilterMessage("Instrumentation install failed").All()
	require.Len(t, failed, 1)
	assert.Equal(t, spans[1].SpanContext().TraceID().String(), failed[0].ContextMap()["trace_id"])
}

func TestRegistryInstallUnknownName(t *testing.T) {
	log, _ := newObservedLogger()
	r := NewRegistry(log, nil)

	_, err := r.Install(context.Background(), []string{"nope"}, Config{})
	assert.True(t, IsNotRegistered(err))
}

func TestRegistryInstallRecordsConstructionError(t *testing.T) {
	ctrl := gomock.NewController(t)
	spans := NewMockSpanStarter(ctrl)
	log, _ := newObservedLogger()

	_, span := noopSpans{}.StartSpan(context.Background(), "x")
	spans.EXPECT().StartSpan(gomock.Any(), "instrumentation.install").Return(context.Background(), span)
	spans.EXPECT().RecordErrorOnSpan(span, gomock.Any()).Times(1)

	def := MustDefine(Descriptor{
		Name: "failing_init",
		Init: func(*Instrumentation) error { return errors.New("init") },
	}, nil)
	r := NewRegistry(log, spans)
	require.NoError(t, r.Register(def))

	_, err := r.InstallAll(context.Background(), Config{})
	assert.EqualError(t, err, "instrumentation failing_init: construct instance: init")
}
