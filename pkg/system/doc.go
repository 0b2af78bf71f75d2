// Package system reports process and host metrics of the running program.
//
// The system package declares the "opentelemetry/instrumentation/system"
// instrumentation. Once installed it registers observable instruments that
// read the current process through a DataSource and the host through
// gopsutil. A process is expected to hold exactly one Instrumentation: each
// New declares a Definition under the same name, and a Registry rejects the
// second one.
//
// Core Features:
//   - CPU time, memory, threads, context switches, page faults and uptime of
//     the current process
//   - Host memory, logical CPU count and uptime
//   - A TTL cache so that one collection triggers at most one raw read
//   - Per-platform read strategies with fields left absent when unsupported
//   - Optional OpenTelemetry Go runtime metrics
//
// Platforms:
//
// A DataSource samples the process through a platform Strategy and caches the
// resulting ProcessSnapshot for Config.TTL:
//
//   - Linux and Android read /proc/<pid>/stat and /proc/<pid>/status (procfs).
//   - Darwin and the BSDs parse the output of ps(1).
//   - Windows, Solaris, illumos and AIX use gopsutil.
//
// On any other platform the instrumentation is not present and never
// installs. Fields a platform cannot supply stay absent and are not observed,
// and a raw read that outlives Config.FetchTimeout yields a snapshot with
// every field absent.
//
// Instruments:
//
//	process.cpu.time                     s        by cpu.mode (user, system)
//	process.memory.usage                 By
//	process.memory.virtual               By
//	process.thread.count                 {thread}
//	process.context_switches             {count}  by process.context_switch_type
//	process.open_file_descriptor.count   {count}
//	process.paging.faults                {fault}  by process.paging.fault_type
//	process.uptime                       s
//	process.runtime.gc_count             {count}
//	system.memory.usage                  By       by system.memory.state
//	system.cpu.logical.count             {cpu}
//	system.uptime                        s
//
// process.cpu.utilization, process.disk.io and process.network.io are
// declared but never started.
//
// Usage with fx:
//
//	app := fx.New(
//		logger.FXModule,
//		metrics.FXModule,
//		instrumentation.FXModule,
//		system.FXModule,
//		fx.Supply(system.Config{TTL: 10 * time.Second}),
//		fx.Supply(instrumentation.Config{
//			Instrumentations: map[string]map[string]any{
//				system.Name: {"system_metrics": true},
//			},
//		}),
//	)
//	app.Run()
//
// Without fx:
//
//	sys, err := system.New(system.Config{TTL: 10 * time.Second}, log)
//	if err != nil {
//		return err
//	}
//	inst, err := sys.Definition().Instance()
//	if err != nil {
//		return err
//	}
//	inst.Install(ctx, map[string]any{"runtime_metrics": true})
//
//	// The cache can also be read directly after install
//	snap := sys.DataSource().FetchCurrent(ctx)
//	if threads, ok := snap.ThreadCount.Get(); ok {
//		// ...
//	}
//
// Options:
//
//   - process_metrics (default true) starts the "process." instruments.
//   - system_metrics (default false) starts the "system." instruments.
//   - metrics (default true) gates all of them.
//   - runtime_metrics (default false) also starts the OpenTelemetry Go
//     runtime instrumentation.
//
// Each can be overridden through OTEL_GO_INSTRUMENTATION_SYSTEM_CONFIG_OPTS,
// e.g. "system_metrics=true;process_metrics=false".
//
// Configuration:
//
//	SYSTEM_METRICS_TTL=15s             # snapshot cache lifetime
//	SYSTEM_METRICS_FETCH_TIMEOUT=5s    # bound on one raw read
//	SYSTEM_METRICS_PROC_ROOT=/proc     # procfs mount point on Linux
//	SYSTEM_METRICS_PS_PATH=ps          # ps binary on BSD-family systems
//
// Thread Safety:
//
// DataSource and Instrumentation are safe for concurrent use. Concurrent
// fetches for a stale entry share one raw read.
package system
