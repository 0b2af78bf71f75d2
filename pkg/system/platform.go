package system

import "fmt"

// SelectStrategy picks the Strategy for an operating system identifier as
// reported by runtime.GOOS.
func SelectStrategy(goos string, cfg Config) (Strategy, error) {
	cfg = cfg.withDefaults()
	switch goos {
	case "linux", "android":
		return NewProcStrategy(cfg.ProcRoot), nil
	case "darwin", "freebsd", "openbsd", "netbsd", "dragonfly":
		return NewPSStrategy(cfg.PSPath), nil
	case "windows", "solaris", "illumos", "aix":
		return NewGopsutilStrategy(), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedPlatform, goos)
	}
}

// Supported reports whether SelectStrategy has a strategy for goos.
func Supported(goos string) bool {
	_, err := SelectStrategy(goos, Config{})
	return err == nil
}
