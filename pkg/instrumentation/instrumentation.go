package instrumentation

import (
	"context"
	"fmt"
	"os"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

var (
	noopTracer        = tracenoop.NewTracerProvider().Tracer("")
	noopMeterProvider = metricnoop.NewMeterProvider()
)

// Instrumentation is the shared, stateful instance of a Definition. It moves
// from uninstalled to installed at most once per lifetime.
type Instrumentation struct {
	def *Definition

	// installMu serializes Install; the install procedure runs under it.
	installMu sync.Mutex

	mu             sync.RWMutex
	installed      bool
	config         ResolvedConfig
	tracer         trace.Tracer
	meter          metric.Meter
	meterProvider  metric.MeterProvider
	metricsEnabled bool
	lookupEnv      LookupEnvFunc
	lastErr        error

	instrumentMu sync.Mutex
	instruments  sync.Map
}

func newInstrumentation(def *Definition) *Instrumentation {
	return &Instrumentation{
		def:           def,
		config:        ResolvedConfig{},
		tracer:        noopTracer,
		meter:         noopMeter,
		meterProvider: noopMeterProvider,
		lookupEnv:     os.LookupEnv,
	}
}

type installOptions struct {
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
	lookupEnv      LookupEnvFunc
}

// InstallOption customizes a single Install call.
type InstallOption func(*installOptions)

// WithTracerProvider binds the tracer from tp instead of the global provider.
func WithTracerProvider(tp trace.TracerProvider) InstallOption {
	return func(o *installOptions) { o.tracerProvider = tp }
}

// WithMeterProvider binds the meter from mp instead of the global provider.
func WithMeterProvider(mp metric.MeterProvider) InstallOption {
	return func(o *installOptions) { o.meterProvider = mp }
}

// WithLookupEnv replaces os.LookupEnv for environment overrides and flags.
func WithLookupEnv(fn LookupEnvFunc) InstallOption {
	return func(o *installOptions) { o.lookupEnv = fn }
}

func (i *Instrumentation) Name() string    { return i.def.desc.Name }
func (i *Instrumentation) Version() string { return i.def.desc.Version }

// Installed reports whether Install has succeeded.
func (i *Instrumentation) Installed() bool {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.installed
}

// Config returns a copy of the configuration resolved by the latest Install
// call, including calls whose gating failed.
func (i *Instrumentation) Config() ResolvedConfig {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.config.clone()
}

// Tracer returns the bound tracer, or a no-op tracer before install.
func (i *Instrumentation) Tracer() trace.Tracer {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.tracer
}

// Meter returns the bound meter, or a no-op meter when metrics are disabled.
func (i *Instrumentation) Meter() metric.Meter {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.meter
}

// MeterProvider returns the provider the meter was bound from, or a no-op
// provider when metrics are disabled. Integrations that create their own
// meters, such as Go runtime metrics, use it.
func (i *Instrumentation) MeterProvider() metric.MeterProvider {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.meterProvider
}

// MetricsEnabled reports the metrics decision made by the latest Install call.
func (i *Instrumentation) MetricsEnabled() bool {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.metricsEnabled
}

// WithMeter calls fn with the bound meter only when metrics are enabled.
func (i *Instrumentation) WithMeter(fn func(metric.Meter)) {
	i.mu.RLock()
	enabled, meter := i.metricsEnabled, i.meter
	i.mu.RUnlock()
	if enabled {
		fn(meter)
	}
}

// Err returns the error of the last failed install procedure, if any.
func (i *Instrumentation) Err() error {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.lastErr
}

func (i *Instrumentation) env() LookupEnvFunc {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.lookupEnv
}

// Enabled reports whether the instrumentation may be installed with the given
// user configuration. <NAME>_ENABLED=false always disables it; otherwise an
// "enabled" key in userConfig decides; otherwise it is enabled.
func (i *Instrumentation) Enabled(userConfig map[string]any) bool {
	if disabledByEnv(i.def.desc.Name, i.env()) {
		return false
	}
	if v, ok := userConfig[ReservedEnabledKey]; ok {
		return truthy(v)
	}
	return true
}

// Present runs the presence check. Without one the target is absent.
func (i *Instrumentation) Present() bool {
	if i.def.desc.Present == nil {
		return false
	}
	return i.check("present", i.def.desc.Present)
}

// Compatible runs the compatibility check. Without one it is compatible.
func (i *Instrumentation) Compatible() bool {
	if i.def.desc.Compatible == nil {
		return true
	}
	return i.check("compatible", i.def.desc.Compatible)
}

// Installable evaluates the install gates in order: enabled, present,
// compatible, and the existence of an install procedure.
func (i *Instrumentation) Installable(userConfig map[string]any) bool {
	return i.Enabled(userConfig) && i.Present() && i.Compatible() && i.def.desc.Install != nil
}

func (i *Instrumentation) check(name string, fn func() bool) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			i.def.log.Error("Instrumentation check failed", fmt.Errorf("%w: %v", ErrCallbackPanicked, r), map[string]interface{}{
				"instrumentation": i.def.desc.Name,
				"check":           name,
			})
			ok = false
		}
	}()
	return fn()
}

// Install resolves userConfig, evaluates the install gates and, when they all
// pass, binds the tracer and meter and runs the install procedure. It returns
// true once installed; later calls return true without doing anything.
//
// The resolved configuration is stored even when a gate fails. A failing
// install procedure is logged, leaves the instrumentation uninstalled and is
// available from Err.
func (i *Instrumentation) Install(ctx context.Context, userConfig map[string]any, opts ...InstallOption) bool {
	i.installMu.Lock()
	defer i.installMu.Unlock()

	if i.Installed() {
		return true
	}

	o := installOptions{
		tracerProvider: otel.GetTracerProvider(),
		meterProvider:  otel.GetMeterProvider(),
		lookupEnv:      os.LookupEnv,
	}
	for _, opt := range opts {
		opt(&o)
	}

	name := i.def.desc.Name
	cfg := ResolveConfig(name, i.def.desc.Options, userConfig, configOverridesFromEnv(name, o.lookupEnv), i.def.log)
	metricsEnabled := computeMetricsEnabled(name, cfg, o.lookupEnv)

	i.mu.Lock()
	i.config = cfg
	i.metricsEnabled = metricsEnabled
	i.lookupEnv = o.lookupEnv
	i.lastErr = nil
	i.mu.Unlock()
	i.resetInstruments()

	if !i.Installable(userConfig) {
		return false
	}

	tracer := o.tracerProvider.Tracer(name, trace.WithInstrumentationVersion(i.def.desc.Version))
	meter, meterProvider := noopMeter, metric.MeterProvider(noopMeterProvider)
	if metricsEnabled {
		meter = o.meterProvider.Meter(name, metric.WithInstrumentationVersion(i.def.desc.Version))
		meterProvider = o.meterProvider
	}

	i.mu.Lock()
	i.tracer = tracer
	i.meter = meter
	i.meterProvider = meterProvider
	i.mu.Unlock()

	if err := i.runInstall(ctx, cfg.clone()); err != nil {
		i.def.log.ErrorWithContext(ctx, "Instrumentation install failed", err, map[string]interface{}{
			"instrumentation": name,
			"version":         i.def.desc.Version,
		})
		i.mu.Lock()
		i.tracer = noopTracer
		i.meter = noopMeter
		i.meterProvider = noopMeterProvider
		i.lastErr = err
		i.mu.Unlock()
		i.resetInstruments()
		return false
	}

	i.mu.Lock()
	i.installed = true
	i.mu.Unlock()
	return true
}

func (i *Instrumentation) runInstall(ctx context.Context, cfg ResolvedConfig) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: install: %v", ErrCallbackPanicked, r)
		}
	}()
	return i.def.desc.Install(ctx, i, cfg)
}

// computeMetricsEnabled requires compiled-in metrics and no
// <NAME>_METRICS_ENABLED=false; then either the "metrics" option or the
// presence of that variable enables metrics.
func computeMetricsEnabled(name string, cfg ResolvedConfig, lookup LookupEnvFunc) bool {
	if !metricsCompiled {
		return false
	}
	value, set := metricsEnvFlag(name, lookup)
	if set && value == "false" {
		return false
	}
	return cfg.Bool("metrics") || set
}

func (i *Instrumentation) resetInstruments() {
	i.instrumentMu.Lock()
	defer i.instrumentMu.Unlock()
	i.instruments.Clear()
}

// ResetForTesting returns the instance to its uninstalled state.
func (i *Instrumentation) ResetForTesting() {
	i.installMu.Lock()
	defer i.installMu.Unlock()

	i.mu.Lock()
	i.installed = false
	i.config = ResolvedConfig{}
	i.tracer = noopTracer
	i.meter = noopMeter
	i.meterProvider = noopMeterProvider
	i.metricsEnabled = false
	i.lastErr = nil
	i.mu.Unlock()
	i.resetInstruments()
}
