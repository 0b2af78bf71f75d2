package tracer

import (
	"context"

	"go.uber.org/fx"

	"github.com/Aleph-Alpha/otel-instrumentation/pkg/logger"
)

var FXModule = fx.Module("tracer",
	fx.Provide(
		func(cfg Config, log *logger.Logger) *Tracer {
			return NewClient(cfg, log)
		},
	),
	fx.Invoke(RegisterTracerLifecycle),
)

func RegisterTracerLifecycle(lc fx.Lifecycle, tracer *Tracer) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			tracer.logger.Info("shutting down tracer provider", nil, nil)
			return tracer.Shutdown(ctx)
		},
	})
}
