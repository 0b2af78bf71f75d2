package tracer

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/mock/gomock"
)

func TestNewClientRegistersGlobalProvider(t *testing.T) {
	ctrl := gomock.NewController(t)
	log := NewMockLogger(ctrl)

	recorder := tracetest.NewSpanRecorder()
	tr := NewClientWithOptions(Config{ServiceName: "svc", AppEnv: "test"}, log, sdktrace.WithSpanProcessor(recorder))
	require.NotNil(t, tr)
	assert.Same(t, tr.Provider(), otel.GetTracerProvider())

	_, span := otel.Tracer("global-check").Start(context.Background(), "global")
	span.End()
	require.Len(t, recorder.Ended(), 1)
	assert.Equal(t, "global", recorder.Ended()[0].Name())
}

func TestStartSpanAttributesAndErrors(t *testing.T) {
	ctrl := gomock.NewController(t)
	log := NewMockLogger(ctrl)

	recorder := tracetest.NewSpanRecorder()
	tr := NewClientWithOptions(Config{ServiceName: "svc"}, log, sdktrace.WithSpanProcessor(recorder))

	_, span := tr.StartSpan(context.Background(), "instrumentation.install")
	tr.SetAttributes(span, map[string]interface{}{
		"instrumentation.name": "system",
		"installed":            false,
		"attempt":              2,
		"options":              []string{"a"},
		"other":                uint8(3),
	})
	tr.RecordErrorOnSpan(span, errors.New("not present"))
	span.End()

	ended := recorder.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, ScopeName, ended[0].InstrumentationScope().Name)
	assert.Equal(t, codes.Error, ended[0].Status().Code)
	assert.Contains(t, ended[0].Attributes(), attribute.String("instrumentation.name", "system"))
	assert.Contains(t, ended[0].Attributes(), attribute.Bool("installed", false))
	assert.Contains(t, ended[0].Attributes(), attribute.Int("attempt", 2))
	assert.Contains(t, ended[0].Attributes(), attribute.StringSlice("options", []string{"a"}))
	assert.Contains(t, ended[0].Attributes(), attribute.String("other", "3"))
}

func TestShutdownNilProviderWarns(t *testing.T) {
	ctrl := gomock.NewController(t)
	log := NewMockLogger(ctrl)
	log.EXPECT().Warn("tracer was nil during shutdown", nil).Times(1)

	tr := &Tracer{logger: log}
	assert.NoError(t, tr.Shutdown(context.Background()))
}
