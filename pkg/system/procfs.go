package system

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/multierr"
)

const defaultClockTicks = 100

// statFields names the columns of /proc/<pid>/stat, see proc_pid_stat(5).
var statFields = []string{
	"pid", "comm", "state", "ppid", "pgrp", "session", "tty_nr", "tpgid", "flags",
	"minflt", "cminflt", "majflt", "cmajflt", "utime", "stime", "cutime", "cstime",
	"priority", "nice", "num_threads", "itrealvalue", "starttime", "vsize", "rss",
	"rsslim", "startcode", "endcode", "startstack", "kstkesp", "kstkeip", "signal",
	"blocked", "sigignore", "sigcatch", "wchan", "nswap", "cnswap", "exit_signal",
	"processor", "rt_priority", "policy", "delayacct_blkio_ticks", "guest_time",
	"cguest_time", "start_data", "end_data", "start_brk", "arg_start", "arg_end",
	"env_start", "env_end", "exit_code",
}

// ProcStrategy reads /proc/<pid>/stat and /proc/<pid>/status.
type ProcStrategy struct {
	Root       string
	ClockTicks int64
	PageSize   int64

	// BootClock returns seconds since boot. Nil leaves Uptime absent.
	BootClock func() (float64, error)

	// FDCount counts open descriptors of pid. Nil leaves OpenFileDescriptors absent.
	FDCount func(pid int) (int64, error)

	readFile func(name string) ([]byte, error)
}

// NewProcStrategy returns a ProcStrategy for the procfs mounted at root using
// the host's clock tick rate, page size and boot clock.
func NewProcStrategy(root string) *ProcStrategy {
	return &ProcStrategy{
		Root:       root,
		ClockTicks: clockTicks(),
		PageSize:   int64(os.Getpagesize()),
		BootClock:  bootClock,
		FDCount:    openFDCounter(root),
		readFile:   os.ReadFile,
	}
}

func (p *ProcStrategy) Name() string { return "procfs" }

func (p *ProcStrategy) Fetch(_ context.Context, pid int) (ProcessSnapshot, error) {
	read := p.readFile
	if read == nil {
		read = os.ReadFile
	}
	dir := filepath.Join(p.Root, strconv.Itoa(pid))

	stat, statErr := read(filepath.Join(dir, "stat"))
	status, statusErr := read(filepath.Join(dir, "status"))

	var bootClock float64
	var bootErr error
	if p.BootClock != nil {
		bootClock, bootErr = p.BootClock()
	}

	snapshot, err := p.parse(pid, stat, statErr, status, statusErr, bootClock, bootErr)

	if p.FDCount != nil && statErr == nil {
		if n, fdErr := p.FDCount(pid); fdErr != nil {
			err = multierr.Append(err, fmt.Errorf("open file descriptors: %w", fdErr))
		} else {
			snapshot.OpenFileDescriptors = Some(n)
		}
	}
	return snapshot, err
}

func (p *ProcStrategy) parse(pid int, stat []byte, statErr error, status []byte, statusErr error, bootClock float64, bootErr error) (ProcessSnapshot, error) {
	snapshot := ProcessSnapshot{PID: pid, MemoryUnit: p.PageSize, VirtualUnit: 1}
	var errs error

	if statErr != nil {
		errs = multierr.Append(errs, fmt.Errorf("read stat: %w", statErr))
	} else if fields, err := parseProcStat(string(stat)); err != nil {
		errs = multierr.Append(errs, err)
	} else {
		ticks := p.ClockTicks
		if ticks <= 0 {
			ticks = defaultClockTicks
		}
		if v, ok := intField(fields, "utime", &errs).Get(); ok {
			snapshot.CPUTimeUser = Some(v / ticks)
		}
		if v, ok := intField(fields, "stime", &errs).Get(); ok {
			snapshot.CPUTimeSystem = Some(v / ticks)
		}
		snapshot.MemoryUsage = intField(fields, "rss", &errs)
		snapshot.MemoryVirtual = intField(fields, "vsize", &errs)
		snapshot.PageFaultsMajor = intField(fields, "majflt", &errs)
		snapshot.PageFaultsMinor = intField(fields, "minflt", &errs)
		snapshot.ThreadCount = intField(fields, "num_threads", &errs)

		if start, ok := intField(fields, "starttime", &errs).Get(); ok {
			switch {
			case bootErr != nil:
				errs = multierr.Append(errs, fmt.Errorf("boot clock: %w", bootErr))
			case p.BootClock != nil:
				snapshot.Uptime = Some(bootClock - float64(start)/float64(ticks))
			}
		}
	}

	if statusErr != nil {
		errs = multierr.Append(errs, fmt.Errorf("read status: %w", statusErr))
	} else {
		fields := parseProcStatus(string(status))
		snapshot.VoluntaryContextSwitches = intField(fields, "voluntary_ctxt_switches", &errs)
		snapshot.InvoluntaryContextSwitches = intField(fields, "nonvoluntary_ctxt_switches", &errs)
	}

	return snapshot, errs
}

// parseProcStat splits a /proc/<pid>/stat line into named fields. The command
// name spans from the first '(' to the last ')' since it may itself contain
// parentheses and spaces.
func parseProcStat(line string) (map[string]string, error) {
	start := strings.IndexByte(line, '(')
	end := strings.LastIndexByte(line, ')')
	if start < 0 || end < start {
		return nil, fmt.Errorf("%w: stat: command name not enclosed in parentheses", ErrMalformedField)
	}

	values := append([]string{strings.TrimSpace(line[:start]), line[start : end+1]}, strings.Fields(line[end+1:])...)

	fields := make(map[string]string, len(values))
	for i, v := range values {
		if i >= len(statFields) {
			break
		}
		fields[statFields[i]] = v
	}
	return fields, nil
}

// parseProcStatus reads the "Key:\tvalue" lines of /proc/<pid>/status.
func parseProcStatus(raw string) map[string]string {
	fields := make(map[string]string)
	for _, line := range strings.Split(raw, "\n") {
		key, value, ok := strings.Cut(strings.TrimSpace(line), ":\t")
		if !ok || key == "" || value == "" {
			continue
		}
		fields[key] = value
	}
	return fields
}

// intField parses fields[key]. A missing key is absent without error; a
// malformed value is absent and appended to errs.
func intField(fields map[string]string, key string, errs *error) Optional[int64] {
	raw, ok := fields[key]
	if !ok {
		return Optional[int64]{}
	}
	v, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		*errs = multierr.Append(*errs, fmt.Errorf("%w: %s=%q", ErrMalformedField, key, raw))
		return Optional[int64]{}
	}
	return Some(v)
}
