//go:build !linux

package system

func clockTicks() int64 { return defaultClockTicks }

func bootClock() (float64, error) { return 0, ErrUnsupportedPlatform }

func openFDCounter(string) func(pid int) (int64, error) { return nil }
