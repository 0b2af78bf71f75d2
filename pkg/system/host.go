package system

import (
	"context"
	"fmt"
	"runtime/metrics"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/mem"
	"go.uber.org/multierr"
)

// HostSnapshot holds the host wide values behind the system.* instruments.
type HostSnapshot struct {
	MemoryUsed  Optional[int64]
	MemoryFree  Optional[int64]
	LogicalCPUs Optional[int64]
	Uptime      Optional[float64]
}

// HostStatsFunc reads a HostSnapshot.
type HostStatsFunc func(ctx context.Context) (HostSnapshot, error)

// FetchHost reads host memory, cpu count and uptime with gopsutil.
func FetchHost(ctx context.Context) (HostSnapshot, error) {
	var snapshot HostSnapshot
	var errs error

	if vm, err := mem.VirtualMemoryWithContext(ctx); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("virtual memory: %w", err))
	} else {
		snapshot.MemoryUsed = Some(int64(vm.Used))
		snapshot.MemoryFree = Some(int64(vm.Free))
	}

	if n, err := cpu.CountsWithContext(ctx, true); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("cpu count: %w", err))
	} else {
		snapshot.LogicalCPUs = Some(int64(n))
	}

	if up, err := host.UptimeWithContext(ctx); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("uptime: %w", err))
	} else {
		snapshot.Uptime = Some(float64(up))
	}

	return snapshot, errs
}

const gcCyclesMetric = "/gc/cycles/total:gc-cycles"

// gcCount returns the number of completed GC cycles of this process.
func gcCount() (int64, bool) {
	sample := []metrics.Sample{{Name: gcCyclesMetric}}
	metrics.Read(sample)
	if sample[0].Value.Kind() != metrics.KindUint64 {
		return 0, false
	}
	return int64(sample[0].Value.Uint64()), true
}
