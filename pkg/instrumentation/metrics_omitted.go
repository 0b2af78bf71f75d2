//go:build nometrics

package instrumentation

const metricsCompiled = false
