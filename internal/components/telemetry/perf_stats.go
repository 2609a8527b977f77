package telemetry

import (
	"context"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/mem"
	"go.opentelemetry.io/otel"
)

const (
	report_perf_stats        = "perf-stats.sample"
	report_perf_stats_memory = "perf-stats.host-memory-percent"
)

var meter = otel.Meter("showtimes.perf_stats")
var cpuGauge, _ = meter.Float64Gauge("host_cpu_percent")
var hostMemoryGauge, _ = meter.Float64Gauge("host_memory_percent")
var allocatedGauge, _ = meter.Int64Gauge("allocated_mb")
var goroutineGauge, _ = meter.Int64Gauge("goroutine_count")

// PerfStats is one sample of the resource usage of the host and this process.
type PerfStats struct {
	HostCpuPercent    float64
	HostMemoryPercent float64
	AllocatedMb       int64
	Goroutines        int64
}

// SamplePerfStats reads the current resource usage, the cpu usage is measured since the previous call.
func SamplePerfStats(ctx context.Context) (PerfStats, error) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)
	stats := PerfStats{
		AllocatedMb: int64(memStats.Alloc / 1_000_000),
		Goroutines:  int64(runtime.NumGoroutine()),
	}

	cpuUsage, err := cpu.PercentWithContext(ctx, 0, false)
	if err != nil {
		return stats, err
	}
	if len(cpuUsage) > 0 {
		stats.HostCpuPercent = cpuUsage[0]
	}

	vmem, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return stats, err
	}
	stats.HostMemoryPercent = vmem.UsedPercent

	return stats, nil
}

// InstrumentPerfStats samples the resource usage every interval until ctx is done.
// The headless browser runs on the same host, so host memory is reported as well.
func InstrumentPerfStats(ctx context.Context, tel API, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				stats, err := SamplePerfStats(ctx)
				if err != nil {
					tel.ReportWarning(report_perf_stats, err)
				}
				cpuGauge.Record(ctx, stats.HostCpuPercent)
				hostMemoryGauge.Record(ctx, stats.HostMemoryPercent)
				allocatedGauge.Record(ctx, stats.AllocatedMb)
				goroutineGauge.Record(ctx, stats.Goroutines)
				tel.ReportCount(report_perf_stats_memory, int64(stats.HostMemoryPercent))
			case <-ctx.Done():
				return
			}
		}
	}()
}
