//go:build linux

package system

import (
	"github.com/prometheus/procfs"
	"github.com/tklauser/go-sysconf"
	"golang.org/x/sys/unix"
)

func clockTicks() int64 {
	ticks, err := sysconf.Sysconf(sysconf.SC_CLK_TCK)
	if err != nil || ticks <= 0 {
		return defaultClockTicks
	}
	return ticks
}

func bootClock() (float64, error) {
	var ts unix.Timespec
	if err := unix.ClockGettime(unix.CLOCK_BOOTTIME, &ts); err != nil {
		return 0, err
	}
	return float64(ts.Sec) + float64(ts.Nsec)/1e9, nil
}

func openFDCounter(root string) func(pid int) (int64, error) {
	return func(pid int) (int64, error) {
		fs, err := procfs.NewFS(root)
		if err != nil {
			return 0, err
		}
		proc, err := fs.Proc(pid)
		if err != nil {
			return 0, err
		}
		n, err := proc.FileDescriptorsLen()
		if err != nil {
			return 0, err
		}
		return int64(n), nil
	}
}
