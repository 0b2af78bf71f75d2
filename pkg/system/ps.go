package system

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"go.uber.org/multierr"
)

// psColumns are requested from ps(1); RSS and VSZ are reported in KiB.
const psColumns = "utime,time,rss,vsz,nvcsw,nivcsw,majflt,etime"

const kibibyte = 1024

// CommandRunner runs an external command and returns its standard output.
type CommandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// PSStrategy samples a process with ps(1) and parses its one-row table.
type PSStrategy struct {
	Path string
	Run  CommandRunner
}

// NewPSStrategy returns a PSStrategy running the ps binary at path.
func NewPSStrategy(path string) *PSStrategy {
	return &PSStrategy{Path: path, Run: execRunner}
}

func (p *PSStrategy) Name() string { return "ps" }

func (p *PSStrategy) Fetch(ctx context.Context, pid int) (ProcessSnapshot, error) {
	run := p.Run
	if run == nil {
		run = execRunner
	}
	out, err := run(ctx, p.Path, "-p", strconv.Itoa(pid), "-o", psColumns)
	if err != nil {
		return ProcessSnapshot{PID: pid}, fmt.Errorf("run %s: %w", p.Path, err)
	}
	return parsePS(pid, string(out))
}

// parsePSTable zips the header row with the first value row. Columns whose
// value is "-" are left out.
func parsePSTable(raw string) (map[string]string, error) {
	var lines []string
	for _, l := range strings.Split(raw, "\n") {
		if strings.TrimSpace(l) != "" {
			lines = append(lines, l)
		}
	}
	if len(lines) < 2 {
		return nil, fmt.Errorf("%w: ps: expected a header and a value row, got %d lines", ErrMalformedField, len(lines))
	}

	header := strings.Fields(lines[0])
	values := strings.Fields(lines[1])
	fields := make(map[string]string, len(header))
	for i, h := range header {
		if i >= len(values) {
			break
		}
		if values[i] == "-" {
			continue
		}
		fields[h] = values[i]
	}
	return fields, nil
}

func parsePS(pid int, raw string) (ProcessSnapshot, error) {
	snapshot := ProcessSnapshot{PID: pid, MemoryUnit: kibibyte, VirtualUnit: kibibyte}

	fields, err := parsePSTable(raw)
	if err != nil {
		return snapshot, err
	}

	var errs error
	user, userOK := durationField(fields, "UTIME", &errs)
	if userOK {
		snapshot.CPUTimeUser = Some(int64(user))
	}
	if total, ok := durationField(fields, "TIME", &errs); ok && userOK {
		system := int64(total) - int64(user)
		if system < 0 {
			errs = multierr.Append(errs, fmt.Errorf("%w: TIME=%q is below UTIME=%q", ErrNegativeDuration, fields["TIME"], fields["UTIME"]))
		} else {
			snapshot.CPUTimeSystem = Some(system)
		}
	}
	if elapsed, ok := durationField(fields, "ELAPSED", &errs); ok {
		snapshot.Uptime = Some(elapsed)
	}

	snapshot.MemoryUsage = intField(fields, "RSS", &errs)
	snapshot.MemoryVirtual = intField(fields, "VSZ", &errs)
	snapshot.VoluntaryContextSwitches = intField(fields, "NVCSW", &errs)
	snapshot.InvoluntaryContextSwitches = intField(fields, "NIVCSW", &errs)
	snapshot.PageFaultsMajor = intField(fields, "MAJFLT", &errs)

	return snapshot, errs
}

func durationField(fields map[string]string, key string, errs *error) (float64, bool) {
	raw, ok := fields[key]
	if !ok {
		return 0, false
	}
	v, err := parsePSTime(raw)
	if err != nil {
		*errs = multierr.Append(*errs, fmt.Errorf("%s: %w", key, err))
		return 0, false
	}
	return v, true
}

// parsePSTime converts a ps duration of the form [[dd-]hh:]mm:ss[.frac] to
// seconds. Components are read right to left; only seconds are required.
func parsePSTime(raw string) (float64, error) {
	timePart := raw
	days := 0
	if d, rest, ok := strings.Cut(raw, "-"); ok {
		n, err := strconv.Atoi(d)
		if err != nil || !allDigits(d) {
			return 0, fmt.Errorf("%w: days in %q", ErrMalformedField, raw)
		}
		days, timePart = n, rest
	}

	parts := strings.Split(timePart, ":")
	if len(parts) > 3 {
		return 0, fmt.Errorf("%w: too many components in %q", ErrMalformedField, raw)
	}

	secs := parts[len(parts)-1]
	if !isDecimal(secs) {
		return 0, fmt.Errorf("%w: seconds in %q", ErrMalformedField, raw)
	}
	seconds, err := strconv.ParseFloat(secs, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: seconds in %q", ErrMalformedField, raw)
	}

	multipliers := []int{60, 3600}
	total := seconds + float64(days*86400)
	for i, j := len(parts)-2, 0; i >= 0; i, j = i-1, j+1 {
		n, err := strconv.Atoi(parts[i])
		if err != nil || !allDigits(parts[i]) {
			return 0, fmt.Errorf("%w: %q", ErrMalformedField, raw)
		}
		total += float64(n * multipliers[j])
	}
	return total, nil
}

// isDecimal reports whether s is digits with an optional ".digits" fraction,
// which keeps NaN, Inf and exponents away from ParseFloat.
func isDecimal(s string) bool {
	whole, frac, hasFrac := strings.Cut(s, ".")
	return allDigits(whole) && (!hasFrac || allDigits(frac))
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
