package system

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	statFixture = "14 (irb) R 1 14 1 34816 14 4194560 3832 0 0 0 2657 1499 0 0 20 0 2 0 22878 492294144 5255 18446744073709551615 187650009333760 187650009337256 281474020148384 0 0 0 0 0 1107394127 0 0 0 17 8 0 0 0 0 0 187650009464144 187650009464936 187650643861504 281474020150775 281474020150814 281474020150814 281474020151269 0\n"

	statusFixture = "Name:\tirb\nUmask:\t0022\nState:\tR (running)\nThreads:\t2\nvoluntary_ctxt_switches:\t119345\nnonvoluntary_ctxt_switches:\t7\n"
)

func fixtureStrategy(files map[string]string) *ProcStrategy {
	return &ProcStrategy{
		Root:       "/proc",
		ClockTicks: 100,
		PageSize:   4096,
		BootClock:  func() (float64, error) { return 1000, nil },
		readFile: func(name string) ([]byte, error) {
			content, ok := files[name]
			if !ok {
				return nil, os.ErrNotExist
			}
			return []byte(content), nil
		},
	}
}

func TestProcStrategyParsesFixture(t *testing.T) {
	p := fixtureStrategy(map[string]string{
		"/proc/14/stat":   statFixture,
		"/proc/14/status": statusFixture,
	})

	snap, err := p.Fetch(context.Background(), 14)
	require.NoError(t, err)

	assertValue(t, int64(5255), snap.MemoryUsage)
	assertValue(t, int64(492294144), snap.MemoryVirtual)
	assertValue(t, int64(119345), snap.VoluntaryContextSwitches)
	assertValue(t, int64(7), snap.InvoluntaryContextSwitches)
	assertValue(t, int64(3832), snap.PageFaultsMinor)
	assertValue(t, int64(0), snap.PageFaultsMajor)
	assertValue(t, int64(26), snap.CPUTimeUser)
	assertValue(t, int64(14), snap.CPUTimeSystem)
	assertValue(t, int64(2), snap.ThreadCount)
	uptime, ok := snap.Uptime.Get()
	require.True(t, ok)
	assert.InDelta(t, 771.22, uptime, 1e-9)
	assert.False(t, snap.OpenFileDescriptors.Present())

	usage, ok := snap.MemoryUsageBytes()
	require.True(t, ok)
	assert.Equal(t, int64(5255*4096), usage)
	virtual, ok := snap.MemoryVirtualBytes()
	require.True(t, ok)
	assert.Equal(t, int64(492294144), virtual)
}

func TestParseProcStatCommandWithParentheses(t *testing.T) {
	fields, err := parseProcStat("42 (my (odd) cmd) S 1 42 1 0 -1 4194560 10 0 3 0 7 9 0 0 20 0 4 0 100 2048 16 0\n")
	require.NoError(t, err)

	assert.Equal(t, "(my (odd) cmd)", fields["comm"])
	assert.Equal(t, "S", fields["state"])
	assert.Equal(t, "10", fields["minflt"])
	assert.Equal(t, "3", fields["majflt"])
	assert.Equal(t, "4", fields["num_threads"])
	assert.Equal(t, "16", fields["rss"])

	_, err = parseProcStat("42 no parentheses here")
	assert.ErrorIs(t, err, ErrMalformedField)
}

func TestProcStrategyMalformedFieldKeepsOthers(t *testing.T) {
	malformed := "14 (irb) R 1 14 1 34816 14 4194560 3832 0 x 0 2657 1499 0 0 20 0 2 0 22878 492294144 5255\n"
	p := fixtureStrategy(map[string]string{
		"/proc/14/stat":   malformed,
		"/proc/14/status": "voluntary_ctxt_switches:\tlots\n",
	})

	snap, err := p.Fetch(context.Background(), 14)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformedField)

	assert.False(t, snap.PageFaultsMajor.Present())
	assert.False(t, snap.VoluntaryContextSwitches.Present())
	assert.False(t, snap.InvoluntaryContextSwitches.Present())
	assertValue(t, int64(5255), snap.MemoryUsage)
	assertValue(t, int64(3832), snap.PageFaultsMinor)
}

func TestProcStrategyMissingSources(t *testing.T) {
	p := fixtureStrategy(map[string]string{"/proc/14/status": statusFixture})
	p.FDCount = func(int) (int64, error) { return 0, errors.New("unexpected") }

	snap, err := p.Fetch(context.Background(), 14)
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.False(t, snap.MemoryUsage.Present())
	assert.False(t, snap.OpenFileDescriptors.Present())
	assertValue(t, int64(7), snap.InvoluntaryContextSwitches)
}

func TestProcStrategyBootClockFailure(t *testing.T) {
	p := fixtureStrategy(map[string]string{
		"/proc/14/stat":   statFixture,
		"/proc/14/status": statusFixture,
	})
	p.BootClock = func() (float64, error) { return 0, ErrUnsupportedPlatform }

	snap, err := p.Fetch(context.Background(), 14)
	assert.True(t, IsUnsupportedPlatform(err))
	assert.False(t, snap.Uptime.Present())
	assertValue(t, int64(26), snap.CPUTimeUser)
}

func TestProcStrategyFileDescriptors(t *testing.T) {
	p := fixtureStrategy(map[string]string{
		"/proc/14/stat":   statFixture,
		"/proc/14/status": statusFixture,
	})
	p.FDCount = func(pid int) (int64, error) {
		assert.Equal(t, 14, pid)
		return 12, nil
	}

	snap, err := p.Fetch(context.Background(), 14)
	require.NoError(t, err)
	assertValue(t, int64(12), snap.OpenFileDescriptors)
}

func TestProcStrategyReadsProcRoot(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "14")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "stat"), []byte(statFixture), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "status"), []byte(statusFixture), 0o644))

	p := NewProcStrategy(root)
	p.BootClock = nil
	p.FDCount = nil
	assert.Equal(t, "procfs", p.Name())

	snap, err := p.Fetch(context.Background(), 14)
	require.NoError(t, err)
	assertValue(t, int64(5255), snap.MemoryUsage)
	assertValue(t, int64(119345), snap.VoluntaryContextSwitches)
	assert.False(t, snap.Uptime.Present())
}

func assertValue[T comparable](t *testing.T, want T, got Optional[T]) {
	t.Helper()
	v, ok := got.Get()
	if assert.True(t, ok, "expected a value") {
		assert.Equal(t, want, v)
	}
}
