package instrumentation

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// Registry holds the instrumentations known to the process and drives their
// installation.
type Registry struct {
	mu    sync.RWMutex
	defs  map[string]*Definition
	order []string

	log   Logger
	spans SpanStarter
}

// NewRegistry creates an empty registry. spans may be nil, in which case
// install attempts are not traced.
func NewRegistry(log Logger, spans SpanStarter) *Registry {
	if spans == nil {
		spans = noopSpans{}
	}
	return &Registry{
		defs:  make(map[string]*Definition),
		log:   log,
		spans: spans,
	}
}

// Register adds def under its name.
func (r *Registry) Register(def *Definition) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.defs[def.Name()]; exists {
		return fmt.Errorf("%w: %s", ErrAlreadyRegistered, def.Name())
	}
	r.defs[def.Name()] = def
	r.order = append(r.order, def.Name())
	return nil
}

// Lookup returns the definition registered under name.
func (r *Registry) Lookup(name string) (*Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.defs[name]
	return def, ok
}

// All returns the registered definitions in registration order.
func (r *Registry) All() []*Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Definition, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.defs[name])
	}
	return out
}

// Install installs the named instrumentations with their user configuration
// from cfg and reports which ones ended up installed. Names disabled in cfg
// are skipped and reported as not installed.
func (r *Registry) Install(ctx context.Context, names []string, cfg Config, opts ...InstallOption) (map[string]bool, error) {
	result := make(map[string]bool, len(names))
	for _, name := range names {
		def, ok := r.Lookup(name)
		if !ok {
			return result, fmt.Errorf("%w: %s", ErrNotRegistered, name)
		}
		installed, err := r.install(ctx, def, cfg, opts...)
		if err != nil {
			return result, err
		}
		result[name] = installed
	}
	return result, nil
}

// InstallAll installs every registered instrumentation.
func (r *Registry) InstallAll(ctx context.Context, cfg Config, opts ...InstallOption) (map[string]bool, error) {
	r.mu.RLock()
	names := append([]string(nil), r.order...)
	r.mu.RUnlock()
	return r.Install(ctx, names, cfg, opts...)
}

func (r *Registry) install(ctx context.Context, def *Definition, cfg Config, opts ...InstallOption) (bool, error) {
	ctx, span := r.spans.StartSpan(ctx, "instrumentation.install")
	defer span.End()

	attrs := map[string]interface{}{
		"instrumentation.name":    def.Name(),
		"instrumentation.version": def.Version(),
	}

	if cfg.IsDisabled(def.Name()) {
		attrs["instrumentation.installed"] = false
		attrs["instrumentation.skipped"] = true
		r.spans.SetAttributes(span, attrs)
		r.log.Debug("Instrumentation disabled by configuration", nil, map[string]interface{}{
			"instrumentation": def.Name(),
		})
		return false, nil
	}

	inst, err := def.Instance()
	if err != nil {
		r.spans.RecordErrorOnSpan(span, err)
		r.log.ErrorWithContext(ctx, "Instrumentation instance unavailable", err, map[string]interface{}{
			"instrumentation": def.Name(),
		})
		return false, err
	}

	installed := inst.Install(ctx, cfg.Instrumentations[def.Name()], opts...)
	attrs["instrumentation.installed"] = installed
	r.spans.SetAttributes(span, attrs)

	if err := inst.Err(); err != nil {
		r.spans.RecordErrorOnSpan(span, err)
		return false, nil
	}

	if installed {
		r.log.InfoWithContext(ctx, "Instrumentation was successfully installed", nil, map[string]interface{}{
			"instrumentation": def.Name(),
			"version":         def.Version(),
			"config":          sortedConfig(inst.Config()),
		})
	}
	return installed, nil
}

func sortedConfig(c ResolvedConfig) []string {
	out := make([]string, 0, len(c))
	for k, v := range c {
		out = append(out, fmt.Sprintf("%s=%v", k, v))
	}
	sort.Strings(out)
	return out
}

type noopSpans struct{}

func (noopSpans) StartSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return tracenoop.NewTracerProvider().Tracer("").Start(ctx, name)
}

func (noopSpans) SetAttributes(trace.Span, map[string]interface{}) {}

func (noopSpans) RecordErrorOnSpan(trace.Span, error) {}
