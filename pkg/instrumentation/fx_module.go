package instrumentation

import (
	"context"

	"go.uber.org/fx"

	"github.com/Aleph-Alpha/otel-instrumentation/pkg/logger"
	"github.com/Aleph-Alpha/otel-instrumentation/pkg/metrics"
	"github.com/Aleph-Alpha/otel-instrumentation/pkg/tracer"
)

// FXModule provides a *Registry holding every *Definition contributed to the
// "instrumentations" group and installs them all when the app starts.
//
//	app := fx.New(
//	    logger.FXModule,
//	    tracer.FXModule,
//	    metrics.FXModule,
//	    instrumentation.FXModule,
//	    system.FXModule,
//	    fx.Supply(instrumentation.Config{}),
//	)
var FXModule = fx.Module("instrumentation",
	fx.Provide(NewRegistryFromParams),
	fx.Invoke(RegisterInstrumentationLifecycle),
)

// AsInstrumentation annotates a constructor returning *Definition so its
// result joins the "instrumentations" group.
func AsInstrumentation(constructor any) any {
	return fx.Annotate(constructor, fx.ResultTags(`group:"instrumentations"`))
}

// RegistryParams groups the dependencies of NewRegistryFromParams.
type RegistryParams struct {
	fx.In

	Logger      *logger.Logger
	Tracer      *tracer.Tracer `optional:"true"`
	Definitions []*Definition  `group:"instrumentations"`
}

// NewRegistryFromParams builds a Registry and registers every grouped definition.
func NewRegistryFromParams(p RegistryParams) (*Registry, error) {
	var spans SpanStarter
	if p.Tracer != nil {
		spans = p.Tracer
	}
	r := NewRegistry(p.Logger, spans)
	for _, def := range p.Definitions {
		if err := r.Register(def); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// LifecycleParams groups the dependencies of RegisterInstrumentationLifecycle.
type LifecycleParams struct {
	fx.In

	Lifecycle fx.Lifecycle
	Registry  *Registry
	Config    Config           `optional:"true"`
	Tracer    *tracer.Tracer   `optional:"true"`
	Metrics   *metrics.Metrics `optional:"true"`
}

// RegisterInstrumentationLifecycle installs all registered instrumentations on
// start, binding them to the provided tracer and metrics providers when present.
func RegisterInstrumentationLifecycle(p LifecycleParams) {
	p.Lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			var opts []InstallOption
			if p.Tracer != nil {
				opts = append(opts, WithTracerProvider(p.Tracer.Provider()))
			}
			if p.Metrics != nil {
				opts = append(opts, WithMeterProvider(p.Metrics.Provider()))
			}
			_, err := p.Registry.InstallAll(ctx, p.Config, opts...)
			return err
		},
	})
}
