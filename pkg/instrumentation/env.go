package instrumentation

import "strings"

// Environment variable suffixes appended to an instrumentation's derived name.
const (
	EnabledSuffix        = "_ENABLED"
	MetricsEnabledSuffix = "_METRICS_ENABLED"
	ConfigOptsSuffix     = "_CONFIG_OPTS"
)

const (
	vendorPrefix      = "OPENTELEMETRY_"
	shortVendorPrefix = "OTEL_GO_"
)

var envNameReplacer = strings.NewReplacer("::", "_", ".", "_", "/", "_", "-", "_")

// LookupEnvFunc has the signature of os.LookupEnv.
type LookupEnvFunc func(key string) (string, bool)

// EnvVarName derives the environment variable for an instrumentation name and
// suffix: the name is upper-cased, namespace separators become underscores and
// the OPENTELEMETRY_ vendor prefix is shortened to OTEL_GO_.
//
//	EnvVarName("opentelemetry/instrumentation/system", EnabledSuffix)
//	// OTEL_GO_INSTRUMENTATION_SYSTEM_ENABLED
func EnvVarName(name, suffix string) string {
	n := envNameReplacer.Replace(strings.ToUpper(name))
	n = strings.Replace(n, vendorPrefix, shortVendorPrefix, 1)
	return n + suffix
}

// ParseConfigOverrides splits a "key=value;key2=value2" override string into
// raw values. Entries without a key or without a value are skipped; anything
// after a second '=' is ignored.
func ParseConfigOverrides(raw string) map[string]string {
	overrides := make(map[string]string)
	if raw == "" {
		return overrides
	}
	for _, entry := range strings.Split(raw, ";") {
		parts := strings.Split(entry, "=")
		if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
			continue
		}
		overrides[parts[0]] = parts[1]
	}
	return overrides
}

// configOverridesFromEnv reads <NAME>_CONFIG_OPTS.
func configOverridesFromEnv(name string, lookup LookupEnvFunc) map[string]string {
	raw, _ := lookup(EnvVarName(name, ConfigOptsSuffix))
	return ParseConfigOverrides(raw)
}

// disabledByEnv reports whether <NAME>_ENABLED is exactly "false".
func disabledByEnv(name string, lookup LookupEnvFunc) bool {
	v, _ := lookup(EnvVarName(name, EnabledSuffix))
	return v == "false"
}

// metricsEnvFlag returns whether <NAME>_METRICS_ENABLED is set and its value.
func metricsEnvFlag(name string, lookup LookupEnvFunc) (value string, set bool) {
	return lookup(EnvVarName(name, MetricsEnabledSuffix))
}
