package instrumentation

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
)

// InstrumentKind enumerates the meter instrument types an instrumentation can declare.
type InstrumentKind int

const (
	Counter InstrumentKind = iota + 1
	ObservableCounter
	Histogram
	Gauge
	ObservableGauge
	UpDownCounter
	ObservableUpDownCounter
)

func (k InstrumentKind) String() string {
	switch k {
	case Counter:
		return "counter"
	case ObservableCounter:
		return "observable_counter"
	case Histogram:
		return "histogram"
	case Gauge:
		return "gauge"
	case ObservableGauge:
		return "observable_gauge"
	case UpDownCounter:
		return "up_down_counter"
	case ObservableUpDownCounter:
		return "observable_up_down_counter"
	default:
		return fmt.Sprintf("InstrumentKind(%d)", int(k))
	}
}

// Observable reports whether instruments of this kind are fed by a callback.
func (k InstrumentKind) Observable() bool {
	return k == ObservableCounter || k == ObservableGauge || k == ObservableUpDownCounter
}

// InstrumentSpec holds the construction parameters of one declared instrument.
type InstrumentSpec struct {
	Kind        InstrumentKind
	Name        string
	Unit        string
	Description string

	// Float selects the float64 variant of the instrument.
	Float bool

	// Buckets sets explicit histogram bucket boundaries.
	Buckets []float64

	// Callback feeds observable instruments on every collection.
	Callback func(ctx context.Context, o Observer) error

	// Disabled instruments are declared but never started by StartObservables.
	Disabled bool
}

type instrumentKey struct {
	kind InstrumentKind
	name string
}

type int64Observer struct{ o metric.Int64Observer }

func (a int64Observer) ObserveInt64(v int64, attrs ...attribute.KeyValue) {
	a.o.Observe(v, metric.WithAttributes(attrs...))
}

func (a int64Observer) ObserveFloat64(v float64, attrs ...attribute.KeyValue) {
	a.o.Observe(int64(v), metric.WithAttributes(attrs...))
}

type float64Observer struct{ o metric.Float64Observer }

func (a float64Observer) ObserveInt64(v int64, attrs ...attribute.KeyValue) {
	a.o.Observe(float64(v), metric.WithAttributes(attrs...))
}

func (a float64Observer) ObserveFloat64(v float64, attrs ...attribute.KeyValue) {
	a.o.Observe(v, metric.WithAttributes(attrs...))
}

// ObserveIfPresent reports the value returned by extract unless extract
// signals absence. It returns whether a value was observed.
func ObserveIfPresent[T int64 | float64](o Observer, extract func() (T, bool), attrs ...attribute.KeyValue) bool {
	v, ok := extract()
	if !ok {
		return false
	}
	switch val := any(v).(type) {
	case int64:
		o.ObserveInt64(val, attrs...)
	case float64:
		o.ObserveFloat64(val, attrs...)
	}
	return true
}

func int64Callback(spec InstrumentSpec) metric.Int64Callback {
	return func(ctx context.Context, o metric.Int64Observer) error {
		return spec.Callback(ctx, int64Observer{o})
	}
}

func float64Callback(spec InstrumentSpec) metric.Float64Callback {
	return func(ctx context.Context, o metric.Float64Observer) error {
		return spec.Callback(ctx, float64Observer{o})
	}
}

// createInstrument builds the instrument described by spec on meter.
func createInstrument(meter metric.Meter, spec InstrumentSpec) (any, error) {
	unit := metric.WithUnit(spec.Unit)
	desc := metric.WithDescription(spec.Description)

	if spec.Float {
		var cb []metric.Float64ObservableOption
		if spec.Callback != nil {
			cb = append(cb, metric.WithFloat64Callback(float64Callback(spec)))
		}
		switch spec.Kind {
		case Counter:
			return meter.Float64Counter(spec.Name, unit, desc)
		case ObservableCounter:
			opts := []metric.Float64ObservableCounterOption{unit, desc}
			for _, o := range cb {
				opts = append(opts, o)
			}
			return meter.Float64ObservableCounter(spec.Name, opts...)
		case Histogram:
			opts := []metric.Float64HistogramOption{unit, desc}
			if len(spec.Buckets) > 0 {
				opts = append(opts, metric.WithExplicitBucketBoundaries(spec.Buckets...))
			}
			return meter.Float64Histogram(spec.Name, opts...)
		case Gauge:
			return meter.Float64Gauge(spec.Name, unit, desc)
		case ObservableGauge:
			opts := []metric.Float64ObservableGaugeOption{unit, desc}
			for _, o := range cb {
				opts = append(opts, o)
			}
			return meter.Float64ObservableGauge(spec.Name, opts...)
		case UpDownCounter:
			return meter.Float64UpDownCounter(spec.Name, unit, desc)
		case ObservableUpDownCounter:
			opts := []metric.Float64ObservableUpDownCounterOption{unit, desc}
			for _, o := range cb {
				opts = append(opts, o)
			}
			return meter.Float64ObservableUpDownCounter(spec.Name, opts...)
		}
		return nil, fmt.Errorf("unknown instrument kind %s", spec.Kind)
	}

	var cb []metric.Int64ObservableOption
	if spec.Callback != nil {
		cb = append(cb, metric.WithInt64Callback(int64Callback(spec)))
	}
	switch spec.Kind {
	case Counter:
		return meter.Int64Counter(spec.Name, unit, desc)
	case ObservableCounter:
		opts := []metric.Int64ObservableCounterOption{unit, desc}
		for _, o := range cb {
			opts = append(opts, o)
		}
		return meter.Int64ObservableCounter(spec.Name, opts...)
	case Histogram:
		opts := []metric.Int64HistogramOption{unit, desc}
		if len(spec.Buckets) > 0 {
			opts = append(opts, metric.WithExplicitBucketBoundaries(spec.Buckets...))
		}
		return meter.Int64Histogram(spec.Name, opts...)
	case Gauge:
		return meter.Int64Gauge(spec.Name, unit, desc)
	case ObservableGauge:
		opts := []metric.Int64ObservableGaugeOption{unit, desc}
		for _, o := range cb {
			opts = append(opts, o)
		}
		return meter.Int64ObservableGauge(spec.Name, opts...)
	case UpDownCounter:
		return meter.Int64UpDownCounter(spec.Name, unit, desc)
	case ObservableUpDownCounter:
		opts := []metric.Int64ObservableUpDownCounterOption{unit, desc}
		for _, o := range cb {
			opts = append(opts, o)
		}
		return meter.Int64ObservableUpDownCounter(spec.Name, opts...)
	}
	return nil, fmt.Errorf("unknown instrument kind %s", spec.Kind)
}

var noopMeter = metricnoop.NewMeterProvider().Meter("")

// noopInstrument returns a no-op instrument of the declared shape, or an
// int64 no-op of kind when nothing was declared.
func noopInstrument(kind InstrumentKind, spec InstrumentSpec, declared bool) any {
	if !declared {
		spec = InstrumentSpec{Kind: kind}
	}
	spec.Callback = nil
	inst, _ := createInstrument(noopMeter, spec)
	return inst
}

// Instrument returns the meter instrument declared under (kind, name),
// creating it on first use with the bound meter. Before a successful install,
// or when metrics are disabled, it returns a no-op instrument. It returns nil
// and logs a warning when nothing was declared under (kind, name).
//
// Observable instruments start reporting through their callback as soon as
// they are created.
func (i *Instrumentation) Instrument(kind InstrumentKind, name string) any {
	key := instrumentKey{kind: kind, name: name}
	if cached, ok := i.instruments.Load(key); ok {
		return cached
	}

	spec, declared := i.def.instruments[key]

	if !metricsCompiled || !i.MetricsEnabled() {
		return noopInstrument(kind, spec, declared)
	}

	if !declared {
		i.def.log.Warn("unconfigured instrument requested", nil, map[string]interface{}{
			"instrumentation": i.def.desc.Name,
			"kind":            kind.String(),
			"name":            name,
		})
		return nil
	}

	i.instrumentMu.Lock()
	defer i.instrumentMu.Unlock()

	if cached, ok := i.instruments.Load(key); ok {
		return cached
	}

	inst, err := createInstrument(i.Meter(), spec)
	if err != nil {
		i.def.log.Error("failed to create instrument", err, map[string]interface{}{
			"instrumentation": i.def.desc.Name,
			"kind":            kind.String(),
			"name":            name,
		})
		return noopInstrument(kind, spec, true)
	}
	i.instruments.Store(key, inst)
	return inst
}

// Record adds value to (or records value on) the synchronous instrument
// declared under (kind, name). Observable kinds are fed by their callbacks and
// are ignored here, as are undeclared instruments.
func Record[N int64 | float64](ctx context.Context, i *Instrumentation, kind InstrumentKind, name string, value N, attrs ...attribute.KeyValue) {
	if kind.Observable() {
		return
	}
	opt := metric.WithAttributes(attrs...)
	inst := i.Instrument(kind, name)

	switch kind {
	case Counter:
		if c, ok := inst.(metric.Int64Counter); ok {
			c.Add(ctx, int64(value), opt)
		} else if c, ok := inst.(metric.Float64Counter); ok {
			c.Add(ctx, float64(value), opt)
		}
	case UpDownCounter:
		if c, ok := inst.(metric.Int64UpDownCounter); ok {
			c.Add(ctx, int64(value), opt)
		} else if c, ok := inst.(metric.Float64UpDownCounter); ok {
			c.Add(ctx, float64(value), opt)
		}
	case Histogram:
		if h, ok := inst.(metric.Int64Histogram); ok {
			h.Record(ctx, int64(value), opt)
		} else if h, ok := inst.(metric.Float64Histogram); ok {
			h.Record(ctx, float64(value), opt)
		}
	case Gauge:
		if g, ok := inst.(metric.Int64Gauge); ok {
			g.Record(ctx, int64(value), opt)
		} else if g, ok := inst.(metric.Float64Gauge); ok {
			g.Record(ctx, float64(value), opt)
		}
	}
}

// StartObservables creates every declared observable instrument accepted by
// filter and not marked Disabled, which registers its callback with the meter.
// It returns the names that were started.
func (i *Instrumentation) StartObservables(filter func(InstrumentSpec) bool) []string {
	var started []string
	for _, spec := range i.def.order {
		if !spec.Kind.Observable() || spec.Disabled {
			continue
		}
		if filter != nil && !filter(spec) {
			continue
		}
		if i.Instrument(spec.Kind, spec.Name) != nil {
			started = append(started, spec.Name)
		}
	}
	return started
}
