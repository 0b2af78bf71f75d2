// Package logger provides the structured diagnostics sink of the
// instrumentation framework.
//
// The logger package wraps a zap logger that writes JSON entries to stderr.
// Every entry carries the pid and the service name, so the warnings emitted
// while resolving instrumentation options or sampling process statistics can
// be attributed to the program that produced them. It integrates with the fx
// dependency injection framework and flushes on shutdown.
//
// Core Features:
//   - Structured logging with key-value fields
//   - Levels Debug, Info, Warn, Error and Fatal
//   - Context-aware logging that correlates entries with the active span
//   - ISO8601 timestamps and capitalised level names
//   - A NewFromZap constructor for tests built on zaptest/observer
//
// Basic Usage:
//
//	import "github.com/Aleph-Alpha/otel-instrumentation/pkg/logger"
//
//	// Create a new logger
//	log := logger.NewLoggerClient(logger.Config{
//		Level:         "info",
//		ServiceName:   "billing-api",
//		EnableTracing: true,
//	})
//
//	// Log with structured fields (without context)
//	log.Warn("Instrumentation ignored the following unknown configuration options", nil, map[string]interface{}{
//		"instrumentation": "opentelemetry/instrumentation/system",
//		"options":         []string{"foo"},
//	})
//
//	// Log with trace context (adds trace_id and span_id)
//	log.InfoWithContext(ctx, "Instrumentation was successfully installed", nil, map[string]interface{}{
//		"instrumentation": "opentelemetry/instrumentation/system",
//		"version":         "0.4.0",
//	})
//
//	// Other levels
//	log.Debug("Instrumentation disabled by configuration", nil, nil)
//	log.Error("Instrumentation install failed", err, nil)
//	log.WarnWithContext(ctx, "process statistics partially unavailable", err, nil)
//	log.ErrorWithContext(ctx, "process statistics read timed out", err, nil)
//
// Consumers such as the instrumentation and system packages depend on a small
// Logger interface rather than on *Logger. Their tests inject a gomock mock or
// a *Logger built with NewFromZap over an observer core:
//
//	core, logs := observer.New(zap.DebugLevel)
//	log := logger.NewFromZap(zap.New(core)).WithTracing(true)
//	// ... exercise the code under test
//	entries := logs.FilterMessage("Instrumentation install failed").All()
//
// FX Module Integration:
//
// FXModule provides a *Logger built from a Config supplied to the app and
// syncs it when the app stops:
//
//	app := fx.New(
//		logger.FXModule,
//		fx.Supply(logger.Config{Level: "info", ServiceName: "billing-api"}),
//		// ... other modules
//	)
//	app.Run()
//
// Configuration:
//
// The logger can be configured via environment variables:
//
//	ZAP_LOGGER_LEVEL=debug          # Log level (debug, info, warning, error)
//	LOGGER_SERVICE_NAME=billing-api # "service" field, otel-instrumentation if empty
//	LOGGER_ENABLE_TRACING=true      # Enable trace correlation
//
// Tracing Integration:
//
// When tracing is enabled, the *WithContext methods read the span context
// stored in ctx and add two fields to the entry:
//   - trace_id: The OpenTelemetry trace ID
//   - span_id: The OpenTelemetry span ID
//
// Nothing is added when tracing is off or ctx holds no valid span. The
// instrumentation registry logs install results with the context of its
// "instrumentation.install" span, so those entries line up with the trace.
//
// Thread Safety:
//
// All methods on Logger are safe for concurrent use by multiple goroutines.
package logger
