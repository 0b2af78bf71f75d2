package tracer

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.opentelemetry.io/otel/trace"
)

// ScopeName is the instrumentation scope of spans started through Tracer.StartSpan.
const ScopeName = "github.com/Aleph-Alpha/otel-instrumentation"

// Logger defines the interface for logging operations in the tracer package.
//
//go:generate mockgen -source=setup.go -destination=mock_logger.go -package=tracer
type Logger interface {
	Info(msg string, err error, fields ...map[string]interface{})
	Debug(msg string, err error, fields ...map[string]interface{})
	Warn(msg string, err error, fields ...map[string]interface{})
	Error(msg string, err error, fields ...map[string]interface{})
	Fatal(msg string, err error, fields ...map[string]interface{})
}

// Tracer owns the process TracerProvider. Installed instrumentations obtain
// their tracers from the global provider it registers; the registry uses
// StartSpan to wrap each install attempt.
//
// The Tracer is safe for concurrent use.
type Tracer struct {
	tracer *sdktrace.TracerProvider
	logger Logger
}

// NewClient creates the SDK TracerProvider, registers it (and the W3C
// propagators) as the OpenTelemetry globals and returns a Tracer around it.
//
// If trace export is enabled an OTLP HTTP exporter is attached with a batch
// span processor. Failure to build the exporter is fatal.
//
// Example:
//
//	tracerClient := tracer.NewClient(tracer.Config{
//	    ServiceName:  "billing-api",
//	    AppEnv:       "production",
//	    EnableExport: true,
//	}, log)
func NewClient(cfg Config, logger Logger) *Tracer {
	return NewClientWithOptions(cfg, logger)
}

// NewClientWithOptions is NewClient with extra provider options appended, e.g.
// a span processor from sdk/trace/tracetest.
func NewClientWithOptions(cfg Config, logger Logger, opts ...sdktrace.TracerProviderOption) *Tracer {
	var options []sdktrace.TracerProviderOption

	if cfg.EnableExport {
		client := otlptracehttp.NewClient()
		exporter, err := otlptrace.New(context.Background(), client)
		if err != nil {
			logger.Fatal("cannot initiate tracer", err, nil)
			return nil
		}
		options = append(options, sdktrace.WithBatcher(exporter))
	}

	options = append(options, sdktrace.WithResource(resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(cfg.ServiceName),
		semconv.DeploymentEnvironment(cfg.AppEnv),
		attribute.String("environment", cfg.AppEnv),
	)))
	options = append(options, opts...)

	tp := sdktrace.NewTracerProvider(options...)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))

	return &Tracer{tracer: tp, logger: logger}
}

// Provider exposes the underlying provider through the API interface so it can
// be handed to instrumentations explicitly instead of through the global.
func (t *Tracer) Provider() trace.TracerProvider {
	return t.tracer
}
