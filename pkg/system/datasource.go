package system

import (
	"context"
	"os"
	"sync"
	"time"
)

// Logger is the logging surface of this package. *logger.Logger satisfies it.
type Logger interface {
	Debug(msg string, err error, fields ...map[string]interface{})
	WarnWithContext(ctx context.Context, msg string, err error, fields ...map[string]interface{})
	ErrorWithContext(ctx context.Context, msg string, err error, fields ...map[string]interface{})
}

// Strategy reads and parses the statistics of one process. It returns
// whatever fields it could read together with the combined error of those it
// could not.
type Strategy interface {
	Name() string
	Fetch(ctx context.Context, pid int) (ProcessSnapshot, error)
}

type cacheEntry struct {
	fetchedAt time.Time
	snapshot  ProcessSnapshot
}

// DataSource is a read-through snapshot cache in front of a Strategy. One
// mutex covers the whole cache, so at most one raw read is in flight and a
// fresh entry is never refetched.
type DataSource struct {
	strategy Strategy
	ttl      time.Duration
	timeout  time.Duration
	now      func() time.Time
	log      Logger

	mu    sync.Mutex
	cache map[int]cacheEntry
}

// DataSourceOption customizes a DataSource.
type DataSourceOption func(*DataSource)

// WithClock replaces time.Now for TTL checks.
func WithClock(now func() time.Time) DataSourceOption {
	return func(d *DataSource) { d.now = now }
}

// NewDataSource wraps strategy with a cache using cfg.TTL and cfg.FetchTimeout.
func NewDataSource(strategy Strategy, cfg Config, log Logger, opts ...DataSourceOption) *DataSource {
	cfg = cfg.withDefaults()
	d := &DataSource{
		strategy: strategy,
		ttl:      cfg.TTL,
		timeout:  cfg.FetchTimeout,
		now:      time.Now,
		log:      log,
		cache:    make(map[int]cacheEntry),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Strategy returns the platform strategy in use.
func (d *DataSource) Strategy() Strategy {
	return d.strategy
}

// FetchCurrent returns the snapshot of the calling process.
func (d *DataSource) FetchCurrent(ctx context.Context) ProcessSnapshot {
	return d.Fetch(ctx, os.Getpid())
}

// Fetch returns the cached snapshot for pid while it is younger than the TTL
// and samples the process otherwise. Read failures are logged and yield a
// snapshot with the unreadable fields absent.
func (d *DataSource) Fetch(ctx context.Context, pid int) ProcessSnapshot {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	if entry, ok := d.cache[pid]; ok && entry.fetchedAt.Add(d.ttl).After(now) {
		return entry.snapshot
	}

	snapshot := d.refresh(ctx, pid)
	d.cache[pid] = cacheEntry{fetchedAt: now, snapshot: snapshot}
	return snapshot
}

type fetchResult struct {
	snapshot ProcessSnapshot
	err      error
}

func (d *DataSource) refresh(ctx context.Context, pid int) ProcessSnapshot {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	done := make(chan fetchResult, 1)
	go func() {
		snapshot, err := d.strategy.Fetch(ctx, pid)
		done <- fetchResult{snapshot: snapshot, err: err}
	}()

	select {
	case res := <-done:
		if res.err != nil {
			d.log.WarnWithContext(ctx, "process statistics partially unavailable", res.err, map[string]interface{}{
				"pid":      pid,
				"strategy": d.strategy.Name(),
			})
		}
		res.snapshot.PID = pid
		return res.snapshot
	case <-ctx.Done():
		d.log.ErrorWithContext(ctx, "process statistics read timed out", ctx.Err(), map[string]interface{}{
			"pid":      pid,
			"strategy": d.strategy.Name(),
			"timeout":  d.timeout.String(),
		})
		return ProcessSnapshot{PID: pid}
	}
}
