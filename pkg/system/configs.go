package system

import "time"

const (
	// DefaultTTL is how long a snapshot is reused before the process is sampled again.
	DefaultTTL = 15 * time.Second

	// DefaultFetchTimeout bounds a single raw read.
	DefaultFetchTimeout = 5 * time.Second

	DefaultProcRoot = "/proc"
	DefaultPSPath   = "ps"
)

// Option names of the system instrumentation.
const (
	OptionProcessMetrics = "process_metrics"
	OptionSystemMetrics  = "system_metrics"
	OptionMetrics        = "metrics"
	OptionRuntimeMetrics = "runtime_metrics"
)

// Config tunes the platform data source.
type Config struct {
	// TTL is the snapshot cache lifetime.
	TTL time.Duration `yaml:"ttl" envconfig:"SYSTEM_METRICS_TTL"`

	// FetchTimeout bounds a raw read; on expiry the snapshot has every field absent.
	FetchTimeout time.Duration `yaml:"fetch_timeout" envconfig:"SYSTEM_METRICS_FETCH_TIMEOUT"`

	// ProcRoot is the procfs mount point used on Linux.
	ProcRoot string `yaml:"proc_root" envconfig:"SYSTEM_METRICS_PROC_ROOT"`

	// PSPath is the ps binary used on BSD-family systems.
	PSPath string `yaml:"ps_path" envconfig:"SYSTEM_METRICS_PS_PATH"`
}

func (c Config) withDefaults() Config {
	if c.TTL <= 0 {
		c.TTL = DefaultTTL
	}
	if c.FetchTimeout <= 0 {
		c.FetchTimeout = DefaultFetchTimeout
	}
	if c.ProcRoot == "" {
		c.ProcRoot = DefaultProcRoot
	}
	if c.PSPath == "" {
		c.PSPath = DefaultPSPath
	}
	return c
}
