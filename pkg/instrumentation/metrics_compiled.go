//go:build !nometrics

package instrumentation

// metricsCompiled is false in builds tagged nometrics, which turns every
// instrument into a no-op regardless of configuration.
const metricsCompiled = true
