package instrumentation

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
instrumentations:
  opentelemetry/instrumentation/system:
    system_metrics: true
    process_metrics: false
    allowed:
      - a
      - b
disabled:
  - opentelemetry/instrumentation/legacy
`

func TestParseConfig(t *testing.T) {
	cfg, err := ParseConfig([]byte(sampleConfig))
	require.NoError(t, err)

	system := cfg.Instrumentations["opentelemetry/instrumentation/system"]
	assert.Equal(t, true, system["system_metrics"])
	assert.Equal(t, false, system["process_metrics"])
	assert.Equal(t, []any{"a", "b"}, system["allowed"])
	assert.True(t, cfg.IsDisabled("opentelemetry/instrumentation/legacy"))
	assert.False(t, cfg.IsDisabled("opentelemetry/instrumentation/system"))

	_, err = ParseConfig([]byte("instrumentations: ["))
	assert.Error(t, err)
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "instrumentation.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleConfig), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Len(t, cfg.Instrumentations, 1)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
