package instrumentation

import (
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// Config is the file based configuration of a Registry.
//
//	instrumentations:
//	  opentelemetry/instrumentation/system:
//	    system_metrics: true
//	disabled:
//	  - opentelemetry/instrumentation/legacy
type Config struct {
	// Instrumentations holds the user configuration of each instrumentation,
	// keyed by instrumentation name.
	Instrumentations map[string]map[string]any `yaml:"instrumentations"`

	// Disabled lists instrumentations the registry never installs.
	Disabled []string `yaml:"disabled"`
}

// IsDisabled reports whether name is listed in Disabled.
func (c Config) IsDisabled(name string) bool {
	return slices.Contains(c.Disabled, name)
}

// ParseConfig decodes a YAML document into a Config.
func ParseConfig(data []byte) (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse instrumentation config: %w", err)
	}
	return cfg, nil
}

// LoadConfig reads and decodes the YAML file at path.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read instrumentation config: %w", err)
	}
	return ParseConfig(data)
}
