package metrics

// DefaultMetricsAddress is where the scrape endpoint listens when Address is empty.
const DefaultMetricsAddress = ":9090"

// Config controls the Prometheus scrape endpoint that the OpenTelemetry
// meter provider exports into.
type Config struct {
	// Address of the /metrics HTTP listener, e.g. ":9090" or "127.0.0.1:9100".
	Address string `yaml:"address" envconfig:"METRICS_ADDRESS"`

	// EnableDefaultCollectors registers the Prometheus Go and build info
	// collectors. Process statistics come from the system instrumentation,
	// so no process collector is registered either way.
	EnableDefaultCollectors bool `yaml:"enable_default_collectors" envconfig:"METRICS_ENABLE_DEFAULT_COLLECTORS"`

	// Namespace prefixes every exported family: with "billing",
	// process.thread.count is scraped as billing_process_thread_count.
	Namespace string `yaml:"namespace" envconfig:"METRICS_NAMESPACE"`

	// ServiceName becomes the constant "service" label and the resource's
	// service.name.
	ServiceName string `yaml:"service_name" envconfig:"METRICS_SERVICE_NAME"`
}
