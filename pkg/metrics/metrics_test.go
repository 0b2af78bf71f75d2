package metrics

import (
	"context"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

func familyNames(t *testing.T, m *Metrics) map[string]bool {
	t.Helper()
	families, err := m.Registry.Gather()
	require.NoError(t, err)
	names := make(map[string]bool, len(families))
	for _, f := range families {
		names[f.GetName()] = true
	}
	return names
}

// scrape returns the text exposition served on /metrics.
func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Server.Handler.ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	return string(body)
}

func TestNewMetricsBridgesOtelInstruments(t *testing.T) {
	m, err := NewMetrics(Config{Namespace: "billing", ServiceName: "billing-api"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Shutdown(context.Background()) })

	assert.Equal(t, DefaultMetricsAddress, m.Server.Addr)
	assert.Same(t, m.Provider(), otel.GetMeterProvider())

	meter := m.Provider().Meter("test")
	_, err = meter.Int64ObservableGauge("process.thread.count",
		metric.WithInt64Callback(func(_ context.Context, o metric.Int64Observer) error {
			o.Observe(7)
			return nil
		}))
	require.NoError(t, err)

	names := familyNames(t, m)
	assert.True(t, names["billing_process.thread.count"], "got %v", names)
	assert.False(t, names["go_goroutines"])

	body := scrape(t, m)
	assert.Contains(t, body, "billing_process_thread_count{")
	assert.NotContains(t, body, "process.thread.count")
}

func TestDefaultCollectors(t *testing.T) {
	m, err := NewMetrics(Config{EnableDefaultCollectors: true, ServiceName: "svc"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Shutdown(context.Background()) })

	names := familyNames(t, m)
	if !names["go_goroutines"] {
		t.Fatalf("expected go collector metrics, got %v", names)
	}
}

func TestHandlerServesServiceLabel(t *testing.T) {
	m, err := NewMetrics(Config{ServiceName: "svc"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Shutdown(context.Background()) })

	counter, err := m.Provider().Meter("test").Int64Counter("jobs.done")
	require.NoError(t, err)
	counter.Add(context.Background(), 3)

	body := scrape(t, m)

	var line string
	for _, l := range strings.Split(body, "\n") {
		if strings.HasPrefix(l, "jobs_done_total{") {
			line = l
		}
	}
	require.NotEmpty(t, line, body)
	assert.Contains(t, line, `service="svc"`)
	assert.True(t, strings.HasSuffix(line, " 3"), line)
}
