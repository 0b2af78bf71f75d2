// Package instrumentation decides, per instrumentation unit, whether and how it
// activates.
//
// An instrumentation is declared once with a Descriptor: its name and version,
// the options it accepts, the meter instruments it may create, presence and
// compatibility checks and an install procedure. Define validates the
// declaration and returns a Definition whose Instance is created lazily and
// shared by every caller. A Registry collects definitions and installs them,
// wrapping each install in an "instrumentation.install" span.
//
// Core Features:
//   - Typed option declarations validated by TypeOf, OneOf or Predicate
//   - Layered configuration from environment, user config and defaults
//   - Ordered install gates that fail closed on panics
//   - Tracer and meter binding scoped to the instrumentation name and version
//   - Lazily created, cached meter instruments
//   - A YAML configuration file and an fx module
//
// Declaring an Instrumentation:
//
//	def, err := instrumentation.Define(instrumentation.Descriptor{
//		Name:    "opentelemetry/instrumentation/queue",
//		Version: "1.2.0",
//		Options: []instrumentation.OptionSpec{
//			{Name: "peer_service", Default: nil, Validator: instrumentation.TypeOf(instrumentation.ValidationString)},
//			{Name: "mode", Default: "batch", Validator: instrumentation.OneOf("batch", "single")},
//		},
//		Instruments: []instrumentation.InstrumentSpec{
//			{Kind: instrumentation.Counter, Name: "queue.messages", Unit: "{message}"},
//		},
//		Present: func() bool { return queueLoaded() },
//		Install: func(ctx context.Context, inst *instrumentation.Instrumentation, cfg instrumentation.ResolvedConfig) error {
//			return patchQueue(inst.Tracer(), cfg.String("mode"))
//		},
//	}, log)
//
// Installing:
//
//	inst, err := def.Instance()
//	if err != nil {
//		return err
//	}
//	ok := inst.Install(ctx, map[string]any{"mode": "single"},
//		instrumentation.WithTracerProvider(tp),
//		instrumentation.WithMeterProvider(mp))
//
// Install resolves each option from three layers, in order of precedence: the
// <NAME>_CONFIG_OPTS environment variable, the user configuration and the
// declared default. Values that fail validation are logged and replaced by
// the default; unknown keys are dropped. The install gates then run in order
// (enabled, present, compatible, install procedure declared) and only when all
// pass are the tracer and meter bound and the procedure executed. A second
// Install returns true without doing anything.
//
// Environment Variables:
//
// Variable names are derived from the instrumentation name:
//
//	OTEL_GO_INSTRUMENTATION_SYSTEM_ENABLED=false           # disables it
//	OTEL_GO_INSTRUMENTATION_SYSTEM_METRICS_ENABLED=true    # opts in to metrics
//	OTEL_GO_INSTRUMENTATION_SYSTEM_CONFIG_OPTS="system_metrics=true;process_metrics=false"
//
// Override values are coerced to the declared type before validation. Options
// validated as callable cannot be set from the environment.
//
// Instruments:
//
// Instruments are created on first use through Instrumentation.Instrument and
// cached per (kind, name). Synchronous instruments are fed with Record:
//
//	instrumentation.Record(ctx, inst, instrumentation.Counter, "queue.messages", int64(1))
//
// Observable instruments report through their Callback once created, and
// StartObservables creates every declared observable at once. Before install,
// or when metrics are disabled, every instrument is a no-op.
//
// Building with the nometrics tag compiles metrics out: every instrument is a
// no-op and the metrics environment flags are not consulted.
//
// Registry and Configuration File:
//
//	cfg, err := instrumentation.LoadConfig("instrumentation.yaml")
//	registry := instrumentation.NewRegistry(log, tr)
//	_ = registry.Register(def)
//	installed, err := registry.InstallAll(ctx, cfg)
//
// with instrumentation.yaml:
//
//	instrumentations:
//	  opentelemetry/instrumentation/system:
//	    system_metrics: true
//	disabled:
//	  - opentelemetry/instrumentation/queue
//
// Registering two definitions under the same name fails with an error that
// IsAlreadyRegistered recognises.
//
// FX Module Integration:
//
// FXModule builds a Registry from every *Definition in the "instrumentations"
// group and installs them all when the app starts, bound to the tracer and
// metrics providers when those modules are present:
//
//	app := fx.New(
//		logger.FXModule,
//		tracer.FXModule,
//		metrics.FXModule,
//		instrumentation.FXModule,
//		fx.Provide(instrumentation.AsInstrumentation(newQueueDefinition)),
//		fx.Supply(cfg),
//	)
//
// Thread Safety:
//
// Definition, Instrumentation and Registry are safe for concurrent use. The
// shared instance is constructed exactly once even under concurrent first
// calls.
package instrumentation
