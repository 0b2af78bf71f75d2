package instrumentation

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Logger defines the logging methods used by this package. *logger.Logger
// satisfies it.
//
//go:generate mockgen -source=interface.go -destination=mock_logger.go -package=instrumentation
type Logger interface {
	Info(msg string, err error, fields ...map[string]interface{})
	Debug(msg string, err error, fields ...map[string]interface{})
	Warn(msg string, err error, fields ...map[string]interface{})
	Error(msg string, err error, fields ...map[string]interface{})

	// The context variants add trace correlation from the span in ctx.
	InfoWithContext(ctx context.Context, msg string, err error, fields ...map[string]interface{})
	WarnWithContext(ctx context.Context, msg string, err error, fields ...map[string]interface{})
	ErrorWithContext(ctx context.Context, msg string, err error, fields ...map[string]interface{})
}

// Observer receives values from an observable instrument callback. Values are
// converted to the instrument's number type.
type Observer interface {
	ObserveInt64(value int64, attrs ...attribute.KeyValue)
	ObserveFloat64(value float64, attrs ...attribute.KeyValue)
}

// SpanStarter is the tracing surface used by the Registry. *tracer.Tracer
// satisfies it.
type SpanStarter interface {
	StartSpan(ctx context.Context, name string) (context.Context, trace.Span)
	SetAttributes(span trace.Span, attrs map[string]interface{})
	RecordErrorOnSpan(span trace.Span, err error)
}
