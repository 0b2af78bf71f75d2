package system

import (
	"context"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"

	otelruntime "go.opentelemetry.io/contrib/instrumentation/runtime"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/Aleph-Alpha/otel-instrumentation/pkg/instrumentation"
	"github.com/Aleph-Alpha/otel-instrumentation/pkg/logger"
)

const (
	// Name identifies the system instrumentation; its environment variables
	// start with OTEL_GO_INSTRUMENTATION_SYSTEM_.
	Name    = "opentelemetry/instrumentation/system"
	Version = "0.4.0"
)

var (
	cpuModeKey           = attribute.Key("cpu.mode")
	contextSwitchTypeKey = attribute.Key("process.context_switch_type")
	pagingFaultTypeKey   = attribute.Key("process.paging.fault_type")
	memoryStateKey       = attribute.Key("system.memory.state")
)

// Instrumentation reports process and host metrics of the running program
// through observable instruments fed by a DataSource.
type Instrumentation struct {
	def  *instrumentation.Definition
	cfg  Config
	log  Logger
	goos string

	strategy Strategy
	dsOpts   []DataSourceOption
	host     HostStatsFunc

	source atomic.Pointer[DataSource]

	runtimeOnce sync.Once
	runtimeErr  error
}

// Option customizes New.
type Option func(*Instrumentation)

// WithGOOS overrides runtime.GOOS for platform detection.
func WithGOOS(goos string) Option {
	return func(s *Instrumentation) { s.goos = goos }
}

// WithStrategy bypasses platform detection and samples with strategy.
func WithStrategy(strategy Strategy) Option {
	return func(s *Instrumentation) { s.strategy = strategy }
}

// WithHostStats replaces FetchHost as the source of system.* values.
func WithHostStats(fn HostStatsFunc) Option {
	return func(s *Instrumentation) { s.host = fn }
}

// WithDataSourceOptions passes opts to the DataSource built at install.
func WithDataSourceOptions(opts ...DataSourceOption) Option {
	return func(s *Instrumentation) { s.dsOpts = append(s.dsOpts, opts...) }
}

// New declares the system instrumentation. A nil log discards diagnostics.
//
// Each call builds a fresh Definition named Name, so a process is expected to
// hold exactly one Instrumentation. Registering a second one with the same
// Registry fails with an already registered error; FXModule provides the
// single instance for fx applications.
func New(cfg Config, log instrumentation.Logger, opts ...Option) (*Instrumentation, error) {
	if log == nil {
		log = logger.NewFromZap(zap.NewNop())
	}
	s := &Instrumentation{
		cfg:  cfg.withDefaults(),
		log:  log,
		goos: runtime.GOOS,
		host: FetchHost,
	}
	for _, opt := range opts {
		opt(s)
	}

	def, err := instrumentation.Define(instrumentation.Descriptor{
		Name:    Name,
		Version: Version,
		Options: []instrumentation.OptionSpec{
			{Name: OptionProcessMetrics, Default: true, Validator: instrumentation.TypeOf(instrumentation.ValidationBoolean)},
			{Name: OptionSystemMetrics, Default: false, Validator: instrumentation.TypeOf(instrumentation.ValidationBoolean)},
			{Name: OptionMetrics, Default: true, Validator: instrumentation.TypeOf(instrumentation.ValidationBoolean)},
			{Name: OptionRuntimeMetrics, Default: false, Validator: instrumentation.TypeOf(instrumentation.ValidationBoolean)},
		},
		Instruments: s.instruments(),
		Present:     func() bool { return s.strategy != nil || Supported(s.goos) },
		Compatible:  func() bool { return true },
		Install:     s.install,
	}, log)
	if err != nil {
		return nil, err
	}
	s.def = def
	return s, nil
}

// Definition returns the declaration to register with an instrumentation.Registry.
func (s *Instrumentation) Definition() *instrumentation.Definition {
	return s.def
}

// DataSource returns the data source bound at install, or nil before.
func (s *Instrumentation) DataSource() *DataSource {
	return s.source.Load()
}

func (s *Instrumentation) install(_ context.Context, inst *instrumentation.Instrumentation, cfg instrumentation.ResolvedConfig) error {
	strategy := s.strategy
	if strategy == nil {
		var err error
		if strategy, err = SelectStrategy(s.goos, s.cfg); err != nil {
			return err
		}
	}
	s.source.Store(NewDataSource(strategy, s.cfg, s.log, s.dsOpts...))

	if !cfg.Bool(OptionMetrics) || !inst.MetricsEnabled() {
		return nil
	}

	var prefixes []string
	if cfg.Bool(OptionProcessMetrics) {
		prefixes = append(prefixes, "process.")
	}
	if cfg.Bool(OptionSystemMetrics) {
		prefixes = append(prefixes, "system.")
	}
	started := inst.StartObservables(func(spec instrumentation.InstrumentSpec) bool {
		for _, p := range prefixes {
			if strings.HasPrefix(spec.Name, p) {
				return true
			}
		}
		return false
	})
	s.log.Debug("system instruments started", nil, map[string]interface{}{
		"strategy":    strategy.Name(),
		"instruments": started,
	})

	if cfg.Bool(OptionRuntimeMetrics) {
		s.runtimeOnce.Do(func() {
			s.runtimeErr = otelruntime.Start(otelruntime.WithMeterProvider(inst.MeterProvider()))
		})
		return s.runtimeErr
	}
	return nil
}

// snapshot returns the current process snapshot, or false before install.
func (s *Instrumentation) snapshot(ctx context.Context) (ProcessSnapshot, bool) {
	source := s.source.Load()
	if source == nil {
		return ProcessSnapshot{}, false
	}
	return source.FetchCurrent(ctx), true
}

// observeProcess builds a callback that reads the current snapshot and hands
// it to observe.
func (s *Instrumentation) observeProcess(observe func(instrumentation.Observer, ProcessSnapshot)) func(context.Context, instrumentation.Observer) error {
	return func(ctx context.Context, o instrumentation.Observer) error {
		if snap, ok := s.snapshot(ctx); ok {
			observe(o, snap)
		}
		return nil
	}
}

func (s *Instrumentation) observeHost(observe func(instrumentation.Observer, HostSnapshot)) func(context.Context, instrumentation.Observer) error {
	return func(ctx context.Context, o instrumentation.Observer) error {
		snap, err := s.host(ctx)
		if err != nil {
			s.log.WarnWithContext(ctx, "host statistics partially unavailable", err)
		}
		observe(o, snap)
		return nil
	}
}

func (s *Instrumentation) instruments() []instrumentation.InstrumentSpec {
	return []instrumentation.InstrumentSpec{
		{
			Kind:        instrumentation.ObservableCounter,
			Name:        "process.cpu.time",
			Unit:        "s",
			Description: "Total CPU seconds broken down by different CPU modes.",
			Callback: s.observeProcess(func(o instrumentation.Observer, snap ProcessSnapshot) {
				instrumentation.ObserveIfPresent(o, snap.CPUTimeUser.Get, cpuModeKey.String("user"))
				instrumentation.ObserveIfPresent(o, snap.CPUTimeSystem.Get, cpuModeKey.String("system"))
			}),
		},
		{
			Kind:        instrumentation.ObservableGauge,
			Name:        "process.cpu.utilization",
			Unit:        "1",
			Float:       true,
			Description: "Difference in process.cpu.time since the last measurement, divided by the elapsed time and number of CPUs available to the process.",
			Disabled:    true,
		},
		{
			Kind:        instrumentation.ObservableUpDownCounter,
			Name:        "process.memory.usage",
			Unit:        "By",
			Description: "The amount of physical memory in use.",
			Callback: s.observeProcess(func(o instrumentation.Observer, snap ProcessSnapshot) {
				instrumentation.ObserveIfPresent(o, snap.MemoryUsageBytes)
			}),
		},
		{
			Kind:        instrumentation.ObservableUpDownCounter,
			Name:        "process.memory.virtual",
			Unit:        "By",
			Description: "The amount of committed virtual memory.",
			Callback: s.observeProcess(func(o instrumentation.Observer, snap ProcessSnapshot) {
				instrumentation.ObserveIfPresent(o, snap.MemoryVirtualBytes)
			}),
		},
		{
			Kind:        instrumentation.ObservableCounter,
			Name:        "process.disk.io",
			Unit:        "By",
			Description: "Disk bytes transferred.",
			Disabled:    true,
		},
		{
			Kind:        instrumentation.ObservableCounter,
			Name:        "process.network.io",
			Unit:        "By",
			Description: "Network bytes transferred.",
			Disabled:    true,
		},
		{
			Kind:        instrumentation.ObservableUpDownCounter,
			Name:        "process.thread.count",
			Unit:        "{thread}",
			Description: "Process threads count.",
			Callback: s.observeProcess(func(o instrumentation.Observer, snap ProcessSnapshot) {
				instrumentation.ObserveIfPresent(o, snap.ThreadCount.Get)
			}),
		},
		{
			Kind:        instrumentation.ObservableCounter,
			Name:        "process.context_switches",
			Unit:        "{count}",
			Description: "Number of times the process has been context switched.",
			Callback: s.observeProcess(func(o instrumentation.Observer, snap ProcessSnapshot) {
				instrumentation.ObserveIfPresent(o, snap.VoluntaryContextSwitches.Get, contextSwitchTypeKey.String("voluntary"))
				instrumentation.ObserveIfPresent(o, snap.InvoluntaryContextSwitches.Get, contextSwitchTypeKey.String("involuntary"))
			}),
		},
		{
			Kind:        instrumentation.ObservableUpDownCounter,
			Name:        "process.open_file_descriptor.count",
			Unit:        "{count}",
			Description: "Number of file descriptors in use by the process.",
			Callback: s.observeProcess(func(o instrumentation.Observer, snap ProcessSnapshot) {
				instrumentation.ObserveIfPresent(o, snap.OpenFileDescriptors.Get)
			}),
		},
		{
			Kind:        instrumentation.ObservableCounter,
			Name:        "process.paging.faults",
			Unit:        "{fault}",
			Description: "Number of page faults the process has made.",
			Callback: s.observeProcess(func(o instrumentation.Observer, snap ProcessSnapshot) {
				instrumentation.ObserveIfPresent(o, snap.PageFaultsMajor.Get, pagingFaultTypeKey.String("major"))
				instrumentation.ObserveIfPresent(o, snap.PageFaultsMinor.Get, pagingFaultTypeKey.String("minor"))
			}),
		},
		{
			Kind:        instrumentation.ObservableGauge,
			Name:        "process.uptime",
			Unit:        "s",
			Float:       true,
			Description: "The time the process has been running.",
			Callback: s.observeProcess(func(o instrumentation.Observer, snap ProcessSnapshot) {
				instrumentation.ObserveIfPresent(o, snap.Uptime.Get)
			}),
		},
		{
			Kind:        instrumentation.ObservableCounter,
			Name:        "process.runtime.gc_count",
			Unit:        "{count}",
			Description: "Number of completed garbage collection cycles.",
			Callback: func(_ context.Context, o instrumentation.Observer) error {
				instrumentation.ObserveIfPresent(o, gcCount)
				return nil
			},
		},
		{
			Kind:        instrumentation.ObservableUpDownCounter,
			Name:        "system.memory.usage",
			Unit:        "By",
			Description: "Reports memory in use by state.",
			Callback: s.observeHost(func(o instrumentation.Observer, snap HostSnapshot) {
				instrumentation.ObserveIfPresent(o, snap.MemoryUsed.Get, memoryStateKey.String("used"))
				instrumentation.ObserveIfPresent(o, snap.MemoryFree.Get, memoryStateKey.String("free"))
			}),
		},
		{
			Kind:        instrumentation.ObservableUpDownCounter,
			Name:        "system.cpu.logical.count",
			Unit:        "{cpu}",
			Description: "Reports the number of logical (virtual) processor cores created by the operating system to manage multitasking.",
			Callback: s.observeHost(func(o instrumentation.Observer, snap HostSnapshot) {
				instrumentation.ObserveIfPresent(o, snap.LogicalCPUs.Get)
			}),
		},
		{
			Kind:        instrumentation.ObservableGauge,
			Name:        "system.uptime",
			Unit:        "s",
			Float:       true,
			Description: "The time the system has been running.",
			Callback: s.observeHost(func(o instrumentation.Observer, snap HostSnapshot) {
				instrumentation.ObserveIfPresent(o, snap.Uptime.Get)
			}),
		},
	}
}
