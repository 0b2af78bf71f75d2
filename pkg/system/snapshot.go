package system

// Optional holds a value that a platform may be unable to report.
type Optional[T any] struct {
	value T
	ok    bool
}

// Some returns a present Optional.
func Some[T any](v T) Optional[T] {
	return Optional[T]{value: v, ok: true}
}

// Get returns the value and whether it is present.
func (o Optional[T]) Get() (T, bool) {
	return o.value, o.ok
}

// Present reports whether a value is held.
func (o Optional[T]) Present() bool {
	return o.ok
}

// ProcessSnapshot is one read of a process's statistics. Absent fields are
// not supported by the platform or could not be parsed; they are never zero
// stand-ins.
type ProcessSnapshot struct {
	PID int

	// CPUTimeUser and CPUTimeSystem are whole seconds.
	CPUTimeUser   Optional[int64]
	CPUTimeSystem Optional[int64]

	// MemoryUsage and MemoryVirtual are in the source's unit, see MemoryUnit
	// and VirtualUnit.
	MemoryUsage   Optional[int64]
	MemoryVirtual Optional[int64]

	VoluntaryContextSwitches   Optional[int64]
	InvoluntaryContextSwitches Optional[int64]
	PageFaultsMajor            Optional[int64]
	PageFaultsMinor            Optional[int64]

	// Uptime is seconds since the process started.
	Uptime Optional[float64]

	OpenFileDescriptors Optional[int64]
	ThreadCount         Optional[int64]

	// MemoryUnit and VirtualUnit convert MemoryUsage and MemoryVirtual to
	// bytes. Zero means 1.
	MemoryUnit  int64
	VirtualUnit int64
}

// MemoryUsageBytes is MemoryUsage converted to bytes.
func (s ProcessSnapshot) MemoryUsageBytes() (int64, bool) {
	return scaled(s.MemoryUsage, s.MemoryUnit)
}

// MemoryVirtualBytes is MemoryVirtual converted to bytes.
func (s ProcessSnapshot) MemoryVirtualBytes() (int64, bool) {
	return scaled(s.MemoryVirtual, s.VirtualUnit)
}

func scaled(v Optional[int64], unit int64) (int64, bool) {
	n, ok := v.Get()
	if !ok {
		return 0, false
	}
	if unit == 0 {
		unit = 1
	}
	return n * unit, true
}
