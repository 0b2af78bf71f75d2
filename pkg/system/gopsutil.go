package system

import (
	"context"
	"fmt"
	"time"

	"github.com/shirou/gopsutil/v4/process"
	"go.uber.org/multierr"
)

// GopsutilStrategy samples a process through gopsutil. It serves platforms
// without a procfs or ps(1) strategy.
type GopsutilStrategy struct {
	now func() time.Time
}

// NewGopsutilStrategy returns a GopsutilStrategy.
func NewGopsutilStrategy() *GopsutilStrategy {
	return &GopsutilStrategy{now: time.Now}
}

func (g *GopsutilStrategy) Name() string { return "gopsutil" }

func (g *GopsutilStrategy) Fetch(ctx context.Context, pid int) (ProcessSnapshot, error) {
	snapshot := ProcessSnapshot{PID: pid, MemoryUnit: 1, VirtualUnit: 1}

	p, err := process.NewProcessWithContext(ctx, int32(pid))
	if err != nil {
		return snapshot, fmt.Errorf("open process: %w", err)
	}

	var errs error
	if times, err := p.TimesWithContext(ctx); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("cpu times: %w", err))
	} else {
		snapshot.CPUTimeUser = Some(int64(times.User))
		snapshot.CPUTimeSystem = Some(int64(times.System))
	}

	if mem, err := p.MemoryInfoWithContext(ctx); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("memory: %w", err))
	} else {
		snapshot.MemoryUsage = Some(int64(mem.RSS))
		snapshot.MemoryVirtual = Some(int64(mem.VMS))
	}

	if sw, err := p.NumCtxSwitchesWithContext(ctx); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("context switches: %w", err))
	} else {
		snapshot.VoluntaryContextSwitches = Some(sw.Voluntary)
		snapshot.InvoluntaryContextSwitches = Some(sw.Involuntary)
	}

	if faults, err := p.PageFaultsWithContext(ctx); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("page faults: %w", err))
	} else {
		snapshot.PageFaultsMajor = Some(int64(faults.MajorFaults))
		snapshot.PageFaultsMinor = Some(int64(faults.MinorFaults))
	}

	if created, err := p.CreateTimeWithContext(ctx); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("create time: %w", err))
	} else {
		snapshot.Uptime = Some(g.now().Sub(time.UnixMilli(created)).Seconds())
	}

	if fds, err := p.NumFDsWithContext(ctx); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("open file descriptors: %w", err))
	} else {
		snapshot.OpenFileDescriptors = Some(int64(fds))
	}

	if threads, err := p.NumThreadsWithContext(ctx); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("threads: %w", err))
	} else {
		snapshot.ThreadCount = Some(int64(threads))
	}

	return snapshot, errs
}
