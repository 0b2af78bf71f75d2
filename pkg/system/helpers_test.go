package system

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Aleph-Alpha/otel-instrumentation/pkg/logger"
)

func newObservedLogger() (*logger.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zap.DebugLevel)
	return logger.NewFromZap(zap.New(core)), logs
}

// countingStrategy returns a fixed snapshot and counts raw reads.
type countingStrategy struct {
	mu       sync.Mutex
	snapshot ProcessSnapshot
	err      error
	calls    atomic.Int32
}

func (c *countingStrategy) Name() string { return "counting" }

func (c *countingStrategy) Fetch(_ context.Context, pid int) (ProcessSnapshot, error) {
	c.calls.Add(1)
	c.mu.Lock()
	defer c.mu.Unlock()
	snap := c.snapshot
	snap.PID = pid
	return snap, c.err
}

func (c *countingStrategy) set(snap ProcessSnapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snapshot = snap
}

// blockingStrategy does not return until release is closed.
type blockingStrategy struct {
	release chan struct{}
}

func (b blockingStrategy) Name() string { return "blocking" }

func (b blockingStrategy) Fetch(_ context.Context, pid int) (ProcessSnapshot, error) {
	<-b.release
	return ProcessSnapshot{PID: pid, ThreadCount: Some(int64(1))}, nil
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Aggregation {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	out := make(map[string]metricdata.Aggregation)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m.Data
		}
	}
	return out
}
