package metrics

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
)

// MetricsManager owns the process-wide registry and the system gauges
type MetricsManager struct {
	systemCPUUsage    *prometheus.GaugeVec
	systemMemoryUsage *prometheus.GaugeVec

	goGoroutines    prometheus.Gauge
	goHeapAlloc     prometheus.Gauge
	goHeapSys       prometheus.Gauge
	goGCPauseNs     prometheus.Histogram
	goGCCPUFraction prometheus.Gauge

	processOpenFDs   prometheus.Gauge
	processRSS       prometheus.Gauge
	processStartTime prometheus.Gauge

	storeUp          prometheus.Gauge
	storePingSeconds prometheus.Histogram

	proc     *process.Process
	probe    StoreProbe
	registry *prometheus.Registry

	initialized bool
	mu          sync.RWMutex
}

// StoreProbe checks that the backing store answers
type StoreProbe func(ctx context.Context) error

var (
	instance *MetricsManager
	once     sync.Once
)

// GetInstance returns the singleton instance of MetricsManager
func GetInstance() *MetricsManager {
	once.Do(func() {
		instance = &MetricsManager{
			registry: prometheus.NewRegistry(),
		}
	})
	return instance
}

// SystemMetricsEnabled reports whether ENABLE_SYSTEM_METRICS is on
func SystemMetricsEnabled() bool {
	return os.Getenv("ENABLE_SYSTEM_METRICS") == "true"
}

// InitializeMetrics registers the system gauges (thread-safe)
func (mm *MetricsManager) InitializeMetrics() {
	mm.mu.Lock()
	defer mm.mu.Unlock()

	if mm.initialized {
		return
	}

	mm.systemCPUUsage = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "system_cpu_usage_percent",
			Help: "Current CPU usage percentage",
		},
		[]string{"core"},
	)

	mm.systemMemoryUsage = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "system_memory_usage_bytes",
			Help: "Current memory usage in bytes",
		},
		[]string{"type"},
	)

	mm.goGoroutines = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "medadmin_goroutines",
		Help: "Number of goroutines that currently exist",
	})
	mm.goHeapAlloc = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "medadmin_heap_alloc_bytes",
		Help: "Heap memory usage in bytes",
	})
	mm.goHeapSys = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "medadmin_heap_sys_bytes",
		Help: "Heap memory reserved in bytes",
	})
	mm.goGCPauseNs = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "medadmin_gc_pause_nanoseconds",
		Help:    "GC pause time in nanoseconds",
		Buckets: prometheus.ExponentialBuckets(1000, 2, 20),
	})
	mm.goGCCPUFraction = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "medadmin_gc_cpu_fraction",
		Help: "Fraction of CPU time used by GC",
	})

	mm.processOpenFDs = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "medadmin_process_open_fds",
		Help: "Number of open file descriptors",
	})
	mm.processRSS = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "medadmin_process_resident_memory_bytes",
		Help: "Resident set size of the process",
	})
	mm.processStartTime = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "medadmin_process_start_time_seconds",
		Help: "Start time of the process since unix epoch in seconds",
	})

	mm.storeUp = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "medadmin_store_up",
		Help: "1 when the last store ping succeeded, 0 otherwise",
	})
	mm.storePingSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "medadmin_store_ping_seconds",
		Help:    "Latency of store pings",
		Buckets: prometheus.DefBuckets,
	})

	mm.registry.MustRegister(
		mm.systemCPUUsage,
		mm.systemMemoryUsage,
		mm.goGoroutines,
		mm.goHeapAlloc,
		mm.goHeapSys,
		mm.goGCPauseNs,
		mm.goGCCPUFraction,
		mm.processOpenFDs,
		mm.processRSS,
		mm.processStartTime,
		mm.storeUp,
		mm.storePingSeconds,
	)

	if proc, err := process.NewProcess(int32(os.Getpid())); err == nil {
		mm.proc = proc
		if created, err := proc.CreateTime(); err == nil {
			mm.processStartTime.Set(float64(created) / 1000)
		}
	}

	mm.initialized = true
}

// GetRegistry returns the registry when any metric family is enabled
func GetRegistry() *prometheus.Registry {
	if !SystemMetricsEnabled() && !BusinessMetricsEnabled() {
		return nil
	}
	return GetInstance().registry
}

// StartSystemMetrics collects system metrics every interval until ctx is
// done. probe may be nil.
func StartSystemMetrics(ctx context.Context, interval time.Duration, probe StoreProbe) {
	if !SystemMetricsEnabled() {
		return
	}

	mm := GetInstance()
	mm.InitializeMetrics()
	mm.mu.Lock()
	mm.probe = probe
	mm.mu.Unlock()

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				mm.collectSystemMetrics()
				mm.collectGoRuntimeMetrics()
				mm.collectProcessMetrics()
				mm.collectStoreMetrics(ctx, interval)
			}
		}
	}()
}

func (mm *MetricsManager) collectSystemMetrics() {
	mm.mu.RLock()
	defer mm.mu.RUnlock()

	if !mm.initialized {
		return
	}

	if cpuPercentages, err := cpu.Percent(0, true); err == nil {
		for i, percentage := range cpuPercentages {
			mm.systemCPUUsage.WithLabelValues(fmt.Sprintf("cpu%d", i)).Set(percentage)
		}
	}

	if vmstat, err := mem.VirtualMemory(); err == nil {
		mm.systemMemoryUsage.WithLabelValues("total").Set(float64(vmstat.Total))
		mm.systemMemoryUsage.WithLabelValues("available").Set(float64(vmstat.Available))
		mm.systemMemoryUsage.WithLabelValues("used").Set(float64(vmstat.Used))
		mm.systemMemoryUsage.WithLabelValues("free").Set(float64(vmstat.Free))
	}
}

func (mm *MetricsManager) collectGoRuntimeMetrics() {
	mm.mu.RLock()
	defer mm.mu.RUnlock()

	if !mm.initialized {
		return
	}

	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	mm.goGoroutines.Set(float64(runtime.NumGoroutine()))
	mm.goHeapAlloc.Set(float64(m.HeapAlloc))
	mm.goHeapSys.Set(float64(m.HeapSys))
	mm.goGCPauseNs.Observe(float64(m.PauseNs[(m.NumGC+255)%256]))
	mm.goGCCPUFraction.Set(m.GCCPUFraction)
}

func (mm *MetricsManager) collectProcessMetrics() {
	mm.mu.RLock()
	defer mm.mu.RUnlock()

	if !mm.initialized || mm.proc == nil {
		return
	}

	if fds, err := mm.proc.NumFDs(); err == nil {
		mm.processOpenFDs.Set(float64(fds))
	}
	if memInfo, err := mm.proc.MemoryInfo(); err == nil {
		mm.processRSS.Set(float64(memInfo.RSS))
	}
}

// collectStoreMetrics pings the store, bounded by the collection interval
func (mm *MetricsManager) collectStoreMetrics(ctx context.Context, timeout time.Duration) {
	mm.mu.RLock()
	defer mm.mu.RUnlock()

	if !mm.initialized || mm.probe == nil {
		return
	}

	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	err := mm.probe(pingCtx)
	mm.storePingSeconds.Observe(time.Since(start).Seconds())
	if err != nil {
		mm.storeUp.Set(0)
		return
	}
	mm.storeUp.Set(1)
}
