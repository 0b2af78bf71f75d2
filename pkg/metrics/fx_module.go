package metrics

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/fx"
	"go.uber.org/multierr"

	"github.com/Aleph-Alpha/otel-instrumentation/pkg/logger"
)

// FXModule provides *Metrics and starts/stops its HTTP server with the app.
//
//	app := fx.New(
//	    logger.FXModule,
//	    metrics.FXModule,
//	    fx.Supply(metrics.Config{Address: ":9090", ServiceName: "billing-api"}),
//	)
var FXModule = fx.Module("metrics",
	fx.Provide(NewMetrics),
	fx.Invoke(RegisterMetricsLifecycle),
)

// RegisterMetricsLifecycle launches the Prometheus HTTP server on start and,
// on stop, shuts down the server and then the MeterProvider.
func RegisterMetricsLifecycle(lc fx.Lifecycle, m *Metrics, log *logger.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				log.Info("Starting Prometheus metrics server", nil, map[string]interface{}{
					"address": m.Server.Addr,
				})

				if err := m.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Error("Error starting Prometheus metrics server", err, nil)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("Shutting down Prometheus metrics server", nil, nil)
			return multierr.Combine(m.Server.Shutdown(ctx), m.Shutdown(ctx))
		},
	})
}
