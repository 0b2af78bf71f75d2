package instrumentation

import (
	"fmt"
	"maps"
	"sort"
)

// OptionSpec declares one configurable option of an instrumentation.
type OptionSpec struct {
	Name      string
	Default   any
	Validator Validator
}

// ReservedEnabledKey is accepted in user configuration without being declared.
const ReservedEnabledKey = "enabled"

// ResolvedConfig maps option names to validated values. It only ever contains
// declared options.
type ResolvedConfig map[string]any

// Get returns the raw value for name.
func (c ResolvedConfig) Get(name string) (any, bool) {
	v, ok := c[name]
	return v, ok
}

// Bool reports whether the value for name is truthy: present, non-nil and not false.
func (c ResolvedConfig) Bool(name string) bool {
	return truthy(c[name])
}

// Int returns the value for name as an int, or 0 when it is not an integer.
func (c ResolvedConfig) Int(name string) int {
	switch v := c[name].(type) {
	case int:
		return v
	case int8:
		return int(v)
	case int16:
		return int(v)
	case int32:
		return int(v)
	case int64:
		return int(v)
	case uint:
		return int(v)
	case uint8:
		return int(v)
	case uint16:
		return int(v)
	case uint32:
		return int(v)
	case uint64:
		return int(v)
	default:
		return 0
	}
}

// String returns the value for name if it is a string or fmt.Stringer.
func (c ResolvedConfig) String(name string) string {
	s, _ := asString(c[name])
	return s
}

// Strings returns the value for name as a string slice. Elements that are
// not strings are formatted with fmt.Sprint.
func (c ResolvedConfig) Strings(name string) []string {
	switch v := c[name].(type) {
	case []string:
		return append([]string(nil), v...)
	case []any:
		out := make([]string, len(v))
		for i, e := range v {
			out[i] = fmt.Sprint(e)
		}
		return out
	default:
		return nil
	}
}

func truthy(v any) bool {
	switch b := v.(type) {
	case nil:
		return false
	case bool:
		return b
	default:
		return true
	}
}

// ResolveConfig computes the configuration of instrumentation name from its
// option specs, the user supplied values and raw environment overrides.
//
// For every option the environment override wins if it validates, then the
// user value, then the default. A rejected value is logged with the default
// that replaces it; a panicking validator falls back to the default. Options
// with neither an override nor a user value take the default silently. User
// keys that match no option (other than "enabled") are dropped and reported in
// a single warning.
//
// The result depends only on its inputs.
func ResolveConfig(name string, specs []OptionSpec, user map[string]any, overrides map[string]string, log Logger) ResolvedConfig {
	resolved := make(ResolvedConfig, len(specs))

	for _, spec := range specs {
		resolved[spec.Name] = resolveOption(name, spec, user, overrides, log)
	}

	var dropped []string
	for key := range user {
		if _, ok := resolved[key]; ok || key == ReservedEnabledKey {
			continue
		}
		dropped = append(dropped, key)
	}
	if len(dropped) > 0 {
		sort.Strings(dropped)
		log.Warn("Instrumentation ignored the following unknown configuration options", nil, map[string]interface{}{
			"instrumentation": name,
			"options":         dropped,
		})
	}

	return resolved
}

func resolveOption(name string, spec OptionSpec, user map[string]any, overrides map[string]string, log Logger) any {
	userValue, hasUser := user[spec.Name]
	if userValue == nil {
		hasUser = false
	}

	var envValue any
	hasEnv := false
	if raw, ok := overrides[spec.Name]; ok {
		if spec.Validator.ValidationType() == ValidationCallable {
			log.Warn("Instrumentation options that accept a callable are not configurable using environment variables", nil, map[string]interface{}{
				"instrumentation": name,
				"option":          spec.Name,
				"raw_value":       raw,
			})
		} else {
			envValue, hasEnv = coerce(raw, spec.Validator.ValidationType())
		}
	}

	if !hasEnv && !hasUser {
		return spec.Default
	}

	if hasEnv {
		ok, err := spec.Validator.Accept(envValue)
		if err != nil {
			return unexpectedConfigError(name, spec, err, log)
		}
		if ok {
			return envValue
		}
	}

	if hasUser {
		ok, err := spec.Validator.Accept(userValue)
		if err != nil {
			return unexpectedConfigError(name, spec, err, log)
		}
		if ok {
			return userValue
		}
	}

	fields := map[string]interface{}{
		"instrumentation": name,
		"option":          spec.Name,
		"value":           userValue,
		"default":         spec.Default,
	}
	if hasEnv {
		fields["override"] = envValue
	}
	log.Warn("Instrumentation configuration option failed validation, falling back to default value", nil, fields)
	return spec.Default
}

func unexpectedConfigError(name string, spec OptionSpec, err error, log Logger) any {
	log.Error("Instrumentation unexpected configuration error", err, map[string]interface{}{
		"instrumentation": name,
		"option":          spec.Name,
		"default":         spec.Default,
	})
	return spec.Default
}

// clone returns a shallow copy so callers cannot mutate stored state.
func (c ResolvedConfig) clone() ResolvedConfig {
	if c == nil {
		return ResolvedConfig{}
	}
	return maps.Clone(c)
}
