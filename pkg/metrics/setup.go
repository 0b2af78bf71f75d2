package metrics

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
)

// Metrics bridges the OpenTelemetry metrics SDK onto a Prometheus registry and
// serves it over HTTP. Instruments created by installed instrumentations are
// collected whenever the registry is scraped.
type Metrics struct {
	Server   *http.Server
	Registry *prometheus.Registry

	provider    *sdkmetric.MeterProvider
	serviceName string
}

// NewMetrics builds the registry, the OpenTelemetry Prometheus exporter reading
// into it and a MeterProvider, and registers that provider as the global one.
func NewMetrics(cfg Config) (*Metrics, error) {
	if cfg.Address == "" {
		cfg.Address = DefaultMetricsAddress
	}

	registry := prometheus.NewRegistry()

	wrappedRegistry := prometheus.WrapRegistererWith(prometheus.Labels{"service": cfg.ServiceName}, registry)

	if cfg.EnableDefaultCollectors {
		wrappedRegistry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewBuildInfoCollector(),
		)
	}

	exporterOpts := []otelprom.Option{otelprom.WithRegisterer(wrappedRegistry)}
	if cfg.Namespace != "" {
		exporterOpts = append(exporterOpts, otelprom.WithNamespace(cfg.Namespace))
	}
	exporter, err := otelprom.New(exporterOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(exporter),
		sdkmetric.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(cfg.ServiceName),
		)),
	)
	otel.SetMeterProvider(provider)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	server := &http.Server{
		Addr:    cfg.Address,
		Handler: handler,
	}

	return &Metrics{
		Server:      server,
		Registry:    registry,
		provider:    provider,
		serviceName: cfg.ServiceName,
	}, nil
}

// Provider returns the MeterProvider backing the Prometheus endpoint.
func (m *Metrics) Provider() metric.MeterProvider {
	return m.provider
}

// Shutdown stops the MeterProvider. Observable callbacks are unregistered and
// no further collections happen.
func (m *Metrics) Shutdown(ctx context.Context) error {
	return m.provider.Shutdown(ctx)
}
