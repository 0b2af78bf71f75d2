// Package tracer owns the OpenTelemetry TracerProvider that installed
// instrumentations bind their tracers from.
//
// The tracer package builds an sdk/trace provider, registers it together with
// the W3C trace context and baggage propagators as OpenTelemetry globals, and
// offers the small span API the instrumentation registry uses to wrap every
// install in an "instrumentation.install" span.
//
// Core Features:
//   - Provider setup with service.name and deployment.environment resources
//   - Optional OTLP/HTTP export configured through OTEL_EXPORTER_OTLP_*
//   - Span creation, attributes and error recording
//   - Explicit provider handoff to instrumentations
//   - Graceful shutdown through the fx lifecycle
//
// Basic Usage:
//
//	import (
//		"context"
//		"github.com/Aleph-Alpha/otel-instrumentation/pkg/logger"
//		"github.com/Aleph-Alpha/otel-instrumentation/pkg/tracer"
//	)
//
//	// Create a logger
//	log := logger.NewLoggerClient(logger.Config{Level: "info"})
//
//	// Create a tracer
//	tr := tracer.NewClient(tracer.Config{
//		ServiceName:  "billing-api",
//		AppEnv:       "production",
//		EnableExport: true,
//	}, log)
//	defer tr.Shutdown(ctx)
//
//	// Create a span
//	ctx, span := tr.StartSpan(ctx, "instrumentation.install")
//	defer span.End()
//
//	// Add attributes to the span
//	tr.SetAttributes(span, map[string]interface{}{
//		"instrumentation.name":      "opentelemetry/instrumentation/system",
//		"instrumentation.installed": true,
//		"instrumentation.options":   []string{"process_metrics", "system_metrics"},
//	})
//
//	// Record errors
//	if err != nil {
//		tr.RecordErrorOnSpan(span, err)
//	}
//
// SetAttributes maps strings, booleans, integers, floats and string slices to
// typed attributes. Any other value is stored as its fmt.Sprint form.
//
// Binding Instrumentations:
//
// An instrumentation binds its tracer with its own name and version as the
// instrumentation scope. By default that comes from the global provider; pass
// Provider to bind it explicitly:
//
//	inst.Install(ctx, userConfig, instrumentation.WithTracerProvider(tr.Provider()))
//
// The instrumentation fx module does this for every registered definition.
//
// Testing:
//
// NewClientWithOptions appends extra provider options, which lets tests record
// finished spans:
//
//	recorder := tracetest.NewSpanRecorder()
//	tr := tracer.NewClientWithOptions(tracer.Config{ServiceName: "test"}, log,
//		sdktrace.WithSpanProcessor(recorder))
//	// ...
//	spans := recorder.Ended()
//
// FX Module Integration:
//
// This package provides an fx module that builds the tracer from a Config and
// shuts the provider down when the app stops:
//
//	app := fx.New(
//		logger.FXModule,
//		tracer.FXModule,
//		fx.Supply(tracer.Config{ServiceName: "billing-api", AppEnv: "production"}),
//		// ... other modules
//	)
//	app.Run()
//
// Configuration:
//
//	TRACER_SERVICE_NAME=billing-api # service.name resource attribute
//	APP_ENV=production              # deployment.environment resource attribute
//	TRACER_ENABLE_EXPORT=true       # send spans to the OTLP/HTTP endpoint
//
// Without EnableExport spans are recorded but never leave the process.
//
// Thread Safety:
//
// All methods on Tracer are safe for concurrent use by multiple goroutines.
package tracer
