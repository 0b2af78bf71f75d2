package system

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/Aleph-Alpha/otel-instrumentation/pkg/instrumentation"
)

func fixtureSnapshot() ProcessSnapshot {
	return ProcessSnapshot{
		CPUTimeUser:                Some(int64(26)),
		CPUTimeSystem:              Some(int64(14)),
		MemoryUsage:                Some(int64(5255)),
		MemoryVirtual:              Some(int64(492294144)),
		VoluntaryContextSwitches:   Some(int64(119345)),
		InvoluntaryContextSwitches: Some(int64(7)),
		PageFaultsMajor:            Some(int64(0)),
		PageFaultsMinor:            Some(int64(3832)),
		Uptime:                     Some(771.22),
		ThreadCount:                Some(int64(2)),
		MemoryUnit:                 4096,
		VirtualUnit:                1,
	}
}

func fixtureHost(context.Context) (HostSnapshot, error) {
	return HostSnapshot{
		MemoryUsed:  Some(int64(1000)),
		MemoryFree:  Some(int64(500)),
		LogicalCPUs: Some(int64(8)),
		Uptime:      Some(3600.0),
	}, nil
}

func envOf(vars map[string]string) instrumentation.InstallOption {
	return instrumentation.WithLookupEnv(func(key string) (string, bool) {
		v, ok := vars[key]
		return v, ok
	})
}

type installed struct {
	sys      *Instrumentation
	inst     *instrumentation.Instrumentation
	reader   *sdkmetric.ManualReader
	strategy *countingStrategy
	ok       bool
}

func installSystem(t *testing.T, userConfig map[string]any, env map[string]string, opts ...Option) installed {
	t.Helper()
	log, _ := newObservedLogger()
	strategy := &countingStrategy{snapshot: fixtureSnapshot()}
	opts = append([]Option{WithStrategy(strategy), WithHostStats(fixtureHost)}, opts...)

	sys, err := New(Config{}, log, opts...)
	require.NoError(t, err)
	inst, err := sys.Definition().Instance()
	require.NoError(t, err)

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	ok := inst.Install(context.Background(), userConfig, envOf(env), instrumentation.WithMeterProvider(mp))
	return installed{sys: sys, inst: inst, reader: reader, strategy: strategy, ok: ok}
}

func int64Points(t *testing.T, data metricdata.Aggregation) []metricdata.DataPoint[int64] {
	t.Helper()
	switch d := data.(type) {
	case metricdata.Sum[int64]:
		return d.DataPoints
	case metricdata.Gauge[int64]:
		return d.DataPoints
	case nil:
		return nil
	}
	t.Fatalf("unexpected aggregation %T", data)
	return nil
}

func float64Points(t *testing.T, data metricdata.Aggregation) []metricdata.DataPoint[float64] {
	t.Helper()
	switch d := data.(type) {
	case metricdata.Sum[float64]:
		return d.DataPoints
	case metricdata.Gauge[float64]:
		return d.DataPoints
	case nil:
		return nil
	}
	t.Fatalf("unexpected aggregation %T", data)
	return nil
}

func byAttribute[N int64 | float64](points []metricdata.DataPoint[N], key attribute.Key) map[string]N {
	out := make(map[string]N, len(points))
	for _, p := range points {
		v, _ := p.Attributes.Value(key)
		out[v.AsString()] = p.Value
	}
	return out
}

func TestInstallReportsProcessMetrics(t *testing.T) {
	sys := installSystem(t, nil, nil)
	require.True(t, sys.ok)
	require.NotNil(t, sys.sys.DataSource())
	assert.Equal(t, "counting", sys.sys.DataSource().Strategy().Name())

	got := collect(t, sys.reader)

	cpu := byAttribute(int64Points(t, got["process.cpu.time"]), cpuModeKey)
	assert.Equal(t, map[string]int64{"user": 26, "system": 14}, cpu)

	memory := int64Points(t, got["process.memory.usage"])
	require.Len(t, memory, 1)
	assert.Equal(t, int64(5255*4096), memory[0].Value)

	virtual := int64Points(t, got["process.memory.virtual"])
	require.Len(t, virtual, 1)
	assert.Equal(t, int64(492294144), virtual[0].Value)

	switches := byAttribute(int64Points(t, got["process.context_switches"]), contextSwitchTypeKey)
	assert.Equal(t, map[string]int64{"voluntary": 119345, "involuntary": 7}, switches)

	faults := byAttribute(int64Points(t, got["process.paging.faults"]), pagingFaultTypeKey)
	assert.Equal(t, map[string]int64{"major": 0, "minor": 3832}, faults)

	threads := int64Points(t, got["process.thread.count"])
	require.Len(t, threads, 1)
	assert.Equal(t, int64(2), threads[0].Value)

	uptime := float64Points(t, got["process.uptime"])
	require.Len(t, uptime, 1)
	assert.InDelta(t, 771.22, uptime[0].Value, 1e-9)

	assert.NotEmpty(t, int64Points(t, got["process.runtime.gc_count"]))
	assert.Empty(t, int64Points(t, got["process.open_file_descriptor.count"]))

	for _, name := range []string{"process.cpu.utilization", "process.disk.io", "process.network.io", "system.memory.usage", "system.uptime"} {
		_, present := got[name]
		assert.False(t, present, name)
	}

	assert.Equal(t, int32(1), sys.strategy.calls.Load())
}

func TestInstallReportsSystemMetricsWhenEnabled(t *testing.T) {
	sys := installSystem(t, map[string]any{"system_metrics": true, "process_metrics": false}, nil)
	require.True(t, sys.ok)

	got := collect(t, sys.reader)

	state := byAttribute(int64Points(t, got["system.memory.usage"]), memoryStateKey)
	assert.Equal(t, map[string]int64{"used": 1000, "free": 500}, state)

	cpus := int64Points(t, got["system.cpu.logical.count"])
	require.Len(t, cpus, 1)
	assert.Equal(t, int64(8), cpus[0].Value)

	uptime := float64Points(t, got["system.uptime"])
	require.Len(t, uptime, 1)
	assert.InDelta(t, 3600.0, uptime[0].Value, 1e-9)

	for name := range got {
		assert.NotContains(t, name, "process.")
	}
	assert.Equal(t, int32(0), sys.strategy.calls.Load())
}

func TestInstallWithoutMetricsStartsNothing(t *testing.T) {
	tests := []struct {
		name   string
		config map[string]any
		env    map[string]string
	}{
		{name: "metrics option off", config: map[string]any{"metrics": false}},
		{name: "metrics env off", env: map[string]string{"OTEL_GO_INSTRUMENTATION_SYSTEM_METRICS_ENABLED": "false"}},
		{name: "metrics env override", env: map[string]string{"OTEL_GO_INSTRUMENTATION_SYSTEM_CONFIG_OPTS": "metrics=false"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sys := installSystem(t, tt.config, tt.env)
			require.True(t, sys.ok)
			assert.NotNil(t, sys.sys.DataSource())
			assert.Empty(t, collect(t, sys.reader))
		})
	}
}

func TestInstallAppliesEnvironmentOverrides(t *testing.T) {
	sys := installSystem(t, nil, map[string]string{
		"OTEL_GO_INSTRUMENTATION_SYSTEM_CONFIG_OPTS": "system_metrics=true;process_metrics=false",
	})
	require.True(t, sys.ok)

	cfg := sys.inst.Config()
	assert.True(t, cfg.Bool(OptionSystemMetrics))
	assert.False(t, cfg.Bool(OptionProcessMetrics))

	got := collect(t, sys.reader)
	assert.Contains(t, got, "system.cpu.logical.count")
	assert.NotContains(t, got, "process.cpu.time")
}

func TestInstallDisabledByEnvironment(t *testing.T) {
	sys := installSystem(t, nil, map[string]string{"OTEL_GO_INSTRUMENTATION_SYSTEM_ENABLED": "false"})
	assert.False(t, sys.ok)
	assert.Nil(t, sys.sys.DataSource())
}

func TestInstallUnsupportedPlatform(t *testing.T) {
	log, _ := newObservedLogger()
	sys, err := New(Config{}, log, WithGOOS("plan9"))
	require.NoError(t, err)
	inst, err := sys.Definition().Instance()
	require.NoError(t, err)

	assert.False(t, inst.Present())
	assert.True(t, inst.Compatible())
	assert.False(t, inst.Install(context.Background(), nil, envOf(nil)))
	assert.Nil(t, sys.DataSource())
	assert.False(t, inst.Config().Bool(OptionSystemMetrics))
	assert.True(t, inst.Config().Bool(OptionProcessMetrics))
}

func TestInstallStartsRuntimeMetrics(t *testing.T) {
	sys := installSystem(t, map[string]any{"runtime_metrics": true}, nil)
	require.True(t, sys.ok)
	require.NoError(t, sys.inst.Err())

	var rm metricdata.ResourceMetrics
	require.NoError(t, sys.reader.Collect(context.Background(), &rm))

	scopes := make(map[string]bool)
	for _, sm := range rm.ScopeMetrics {
		scopes[sm.Scope.Name] = true
	}
	assert.True(t, scopes[Name])
	assert.True(t, scopes["go.opentelemetry.io/contrib/instrumentation/runtime"])
}

func TestDefinitionDeclaresOptionsAndInstruments(t *testing.T) {
	sys, err := New(Config{}, nil)
	require.NoError(t, err)
	def := sys.Definition()

	assert.Equal(t, Name, def.Name())
	assert.Equal(t, Version, def.Version())

	defaults := make(map[string]any)
	for _, opt := range def.Options() {
		defaults[opt.Name] = opt.Default
	}
	assert.Equal(t, map[string]any{
		OptionProcessMetrics: true,
		OptionSystemMetrics:  false,
		OptionMetrics:        true,
		OptionRuntimeMetrics: false,
	}, defaults)

	var disabled []string
	for _, spec := range def.Instruments() {
		assert.True(t, spec.Kind.Observable(), spec.Name)
		if spec.Disabled {
			disabled = append(disabled, spec.Name)
		}
	}
	assert.ElementsMatch(t, []string{"process.cpu.utilization", "process.disk.io", "process.network.io"}, disabled)
}

func TestSecondInstanceIsRejectedByRegistry(t *testing.T) {
	log, _ := newObservedLogger()
	first, err := New(Config{}, log)
	require.NoError(t, err)
	second, err := New(Config{}, log)
	require.NoError(t, err)

	registry := instrumentation.NewRegistry(log, nil)
	require.NoError(t, registry.Register(first.Definition()))

	err = registry.Register(second.Definition())
	assert.True(t, instrumentation.IsAlreadyRegistered(err))

	got, ok := registry.Lookup(Name)
	require.True(t, ok)
	assert.Same(t, first.Definition(), got)
}
