package telemetry

import (
	"context"
	"log/slog"
	"runtime"

	"github.com/shirou/gopsutil/v4/cpu"
	"go.opentelemetry.io/otel"
)

var meter = otel.Meter("labextract.perf_stats")
var cpuGauge, _ = meter.Float64Gauge("cpu_usage")
var memoryGauge, _ = meter.Int64Gauge("allocated_mb")
var goroutineGauge, _ = meter.Int64Gauge("goroutine_count")

// RecordProcessStats takes one sample of process resource usage, it is meant
// to be called once when a command finishes.
func RecordProcessStats(ctx context.Context) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	// interval 0 compares against the last call (or boot), so this never blocks
	cpuUsage, err := cpu.PercentWithContext(ctx, 0, false)
	if err == nil && len(cpuUsage) > 0 {
		cpuGauge.Record(ctx, cpuUsage[0])
	} else if err != nil {
		slog.DebugContext(ctx, "failed to read cpu usage", "err", err)
	}

	allocated := int64(memStats.Alloc / 1_000_000)
	memoryGauge.Record(ctx, allocated)
	goroutineGauge.Record(ctx, int64(runtime.NumGoroutine()))

	slog.DebugContext(ctx, "process stats", "allocated_mb", allocated, "goroutines", runtime.NumGoroutine())
}
