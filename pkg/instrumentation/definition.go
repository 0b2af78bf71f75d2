package instrumentation

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/Aleph-Alpha/otel-instrumentation/pkg/logger"
)

// DefaultVersion is used when a Descriptor leaves Version empty.
const DefaultVersion = "0.0.0"

// Descriptor is the static declaration of an instrumentation.
type Descriptor struct {
	// Name identifies the instrumentation and derives its environment
	// variables, e.g. "opentelemetry/instrumentation/system".
	Name    string
	Version string

	Options     []OptionSpec
	Instruments []InstrumentSpec

	// Present reports whether the instrumented target exists. A nil check
	// means the target is not present.
	Present func() bool

	// Compatible reports whether the target can be instrumented. A nil check
	// means compatible.
	Compatible func() bool

	// Install activates the instrumentation. Without it the instrumentation
	// can never be installed.
	Install func(ctx context.Context, inst *Instrumentation, cfg ResolvedConfig) error

	// Init runs once when the shared instance is constructed. An error leaves
	// the instance unconstructed so that a later Instance call retries.
	Init func(inst *Instrumentation) error
}

// Definition is a validated, immutable Descriptor holding the lazily created
// shared Instrumentation.
type Definition struct {
	desc        Descriptor
	instruments map[instrumentKey]InstrumentSpec
	order       []InstrumentSpec
	log         Logger

	instance atomic.Pointer[Instrumentation]
	mu       sync.Mutex
}

// Define validates d and returns its Definition. An option whose validator is
// not one of TypeOf, OneOf or Predicate yields ErrInvalidValidator; a missing
// name or a duplicate option name yields ErrInvalidDescriptor. Instruments
// declared twice under the same kind and name keep the first declaration.
//
// A nil log discards diagnostics.
func Define(d Descriptor, log Logger) (*Definition, error) {
	if log == nil {
		log = logger.NewFromZap(zap.NewNop())
	}
	if d.Name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidDescriptor)
	}
	if d.Version == "" {
		d.Version = DefaultVersion
	}

	seen := make(map[string]struct{}, len(d.Options))
	for _, opt := range d.Options {
		if opt.Name == "" {
			return nil, fmt.Errorf("%w: %s: option without a name", ErrInvalidDescriptor, d.Name)
		}
		if _, dup := seen[opt.Name]; dup {
			return nil, fmt.Errorf("%w: %s: option %q declared twice", ErrInvalidDescriptor, d.Name, opt.Name)
		}
		seen[opt.Name] = struct{}{}
		if err := opt.Validator.validate(); err != nil {
			return nil, fmt.Errorf("%s: option %q: %w", d.Name, opt.Name, err)
		}
	}
	d.Options = append([]OptionSpec(nil), d.Options...)

	def := &Definition{
		desc:        d,
		instruments: make(map[instrumentKey]InstrumentSpec, len(d.Instruments)),
		log:         log,
	}
	for _, spec := range d.Instruments {
		key := instrumentKey{kind: spec.Kind, name: spec.Name}
		if _, dup := def.instruments[key]; dup {
			log.Warn("Duplicate instrument configured", nil, map[string]interface{}{
				"instrumentation": d.Name,
				"kind":            spec.Kind.String(),
				"name":            spec.Name,
			})
			continue
		}
		def.instruments[key] = spec
		def.order = append(def.order, spec)
	}
	def.desc.Instruments = nil

	return def, nil
}

// MustDefine is Define that panics on error, for package level declarations.
func MustDefine(d Descriptor, log Logger) *Definition {
	def, err := Define(d, log)
	if err != nil {
		panic(err)
	}
	return def
}

func (d *Definition) Name() string    { return d.desc.Name }
func (d *Definition) Version() string { return d.desc.Version }

// Options returns a copy of the declared options.
func (d *Definition) Options() []OptionSpec {
	return append([]OptionSpec(nil), d.desc.Options...)
}

// Instruments returns the declared instruments in declaration order.
func (d *Definition) Instruments() []InstrumentSpec {
	return append([]InstrumentSpec(nil), d.order...)
}

// Instance returns the shared Instrumentation, constructing it on first use.
// Concurrent first calls construct exactly once. A failing Init is returned
// to the caller and leaves nothing cached.
func (d *Definition) Instance() (*Instrumentation, error) {
	if inst := d.instance.Load(); inst != nil {
		return inst, nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if inst := d.instance.Load(); inst != nil {
		return inst, nil
	}

	inst := newInstrumentation(d)
	if d.desc.Init != nil {
		if err := d.desc.Init(inst); err != nil {
			return nil, fmt.Errorf("instrumentation %s: construct instance: %w", d.desc.Name, err)
		}
	}
	d.instance.Store(inst)
	return inst, nil
}
