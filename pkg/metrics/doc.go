// Package metrics exposes OpenTelemetry instruments on a Prometheus endpoint.
//
// The metrics package wires an sdk/metric MeterProvider to the OpenTelemetry
// Prometheus exporter, registers the provider as the global one and serves the
// underlying Prometheus registry with promhttp. Instrumentations bind their
// meters from the global provider, or from one passed with
// instrumentation.WithMeterProvider, so every observable instrument they
// declare is collected whenever the endpoint is scraped.
//
// Core Features:
//   - A dedicated Prometheus registry with a constant "service" label
//   - Optional Go runtime and build info collectors
//   - A namespace prefix for every exported family
//   - A service.name resource on the MeterProvider
//   - Server start and graceful shutdown through the fx lifecycle
//
// Basic Usage:
//
//	import "github.com/Aleph-Alpha/otel-instrumentation/pkg/metrics"
//
//	m, err := metrics.NewMetrics(metrics.Config{
//		Address:     ":9090",
//		Namespace:   "billing",
//		ServiceName: "billing-api",
//	})
//	if err != nil {
//		return err
//	}
//
//	go m.Server.ListenAndServe()
//	defer m.Shutdown(ctx)
//
//	// Hand the provider to instrumentations explicitly
//	inst.Install(ctx, userConfig, instrumentation.WithMeterProvider(m.Provider()))
//
// Naming:
//
// Instrument names keep their OpenTelemetry dots inside the registry, so
// Registry.Gather reports process.thread.count under the namespace "billing"
// as billing_process.thread.count. The text exposition served on /metrics
// escapes the dots, and a scrape sees:
//
//	billing_process_thread_count{otel_scope_name="opentelemetry/instrumentation/system",service="billing-api",...} 12
//
// FX Module Integration:
//
// FXModule provides *Metrics from a Config supplied to the app. The HTTP
// server starts with the app, and on stop the server and then the
// MeterProvider are shut down:
//
//	app := fx.New(
//		logger.FXModule,
//		metrics.FXModule,
//		fx.Supply(metrics.Config{Address: ":9090", ServiceName: "billing-api"}),
//		// ... other modules
//	)
//	app.Run()
//
// Configuration:
//
//	METRICS_ADDRESS=:9090                   # listen address, :9090 if empty
//	METRICS_ENABLE_DEFAULT_COLLECTORS=true  # Go and build info collectors
//	METRICS_NAMESPACE=billing               # prefix of every family
//	METRICS_SERVICE_NAME=billing-api        # "service" label and service.name
//
// Process statistics are reported by the system instrumentation, so no
// Prometheus process collector is registered.
//
// Thread Safety:
//
// The registry, the provider and the HTTP handler are safe for concurrent use
// by multiple goroutines.
package metrics
