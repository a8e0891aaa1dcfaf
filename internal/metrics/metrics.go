package metrics

import (
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/shirou/gopsutil/host"
	"github.com/shirou/gopsutil/mem"
)

var (
	// Database metrics
	dbQueries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "evmsync_db_queries_total",
			Help: "Total number of database queries",
		},
		[]string{"db", "operation"},
	)

	dbQueryTime = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "evmsync_db_query_duration_seconds",
			Help:    "Duration of database queries",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"db", "operation"},
	)

	dbErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "evmsync_db_errors_total",
			Help: "Total number of database errors",
		},
		[]string{"db", "error_type"},
	)

	// Sync engine metrics
	LastIndexedBlock = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "evmsync_last_indexed_block",
			Help: "The last block number successfully committed to the store",
		},
	)

	BlocksProcessed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "evmsync_blocks_processed_total",
			Help: "Total number of blocks committed to the store",
		},
	)

	BlockProcessingTime = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "evmsync_block_processing_duration_seconds",
			Help:    "Time taken to fetch, validate, and commit one block",
			Buckets: prometheus.DefBuckets,
		},
	)

	SyncLag = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "evmsync_sync_lag_blocks",
			Help: "Blocks between the last committed height and the current chain head",
		},
	)

	ReorgsDetected = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "evmsync_reorgs_detected_total",
			Help: "Total number of chain reorganizations detected by the integrity guard",
		},
	)

	// System metrics
	Uptime = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "evmsync_uptime_seconds",
			Help: "Application uptime in seconds",
		},
	)

	Errors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "evmsync_errors_total",
			Help: "Total number of errors by component and severity",
		},
		[]string{"component", "severity"},
	)

	ComponentHealth = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "evmsync_component_health",
			Help: "Component health status (1=healthy, 0=unhealthy)",
		},
		[]string{"component"},
	)

	Goroutines = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "evmsync_goroutines",
			Help: "Number of active goroutines",
		},
	)

	MemoryUsage = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "evmsync_memory_usage_bytes",
			Help: "Memory usage statistics",
		},
		[]string{"type"},
	)

	HostMemoryUsedPercent = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "evmsync_host_memory_used_percent",
			Help: "Percentage of host physical memory in use",
		},
	)

	HostUptime = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "evmsync_host_uptime_seconds",
			Help: "Host operating system uptime in seconds",
		},
	)

	startTime = time.Now()
)

func DBQueryInc(db string, operation string) {
	dbQueries.WithLabelValues(db, operation).Inc()
}

func DBQueryDuration(db string, operation string, duration time.Duration) {
	dbQueryTime.WithLabelValues(db, operation).Observe(duration.Seconds())
}

func DBErrorsInc(db string, errorType string) {
	dbErrors.WithLabelValues(db, errorType).Inc()
}

func BlockProcessingTimeLog(duration time.Duration) {
	BlockProcessingTime.Observe(duration.Seconds())
}

func LastIndexedBlockSet(blockNum uint64) {
	LastIndexedBlock.Set(float64(blockNum))
}

func BlocksProcessedInc() {
	BlocksProcessed.Inc()
}

func SyncLagSet(lag int64) {
	SyncLag.Set(float64(lag))
}

func ReorgsDetectedInc() {
	ReorgsDetected.Inc()
}

func ErrorsInc(component, severity string) {
	Errors.WithLabelValues(component, severity).Inc()
}

func ComponentHealthSet(component string, healthy bool) {
	boolAsFloat := float64(1)
	if !healthy {
		boolAsFloat = 0
	}

	ComponentHealth.WithLabelValues(component).Set(boolAsFloat)
}

// UpdateSystemMetrics updates runtime system metrics.
// This should be called periodically (e.g., every 15 seconds).
func UpdateSystemMetrics() {
	Uptime.Set(time.Since(startTime).Seconds())
	Goroutines.Set(float64(runtime.NumGoroutine()))

	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	MemoryUsage.WithLabelValues("alloc").Set(float64(m.Alloc))
	MemoryUsage.WithLabelValues("total_alloc").Set(float64(m.TotalAlloc))
	MemoryUsage.WithLabelValues("sys").Set(float64(m.Sys))
	MemoryUsage.WithLabelValues("heap_inuse").Set(float64(m.HeapInuse))

	if vm, err := mem.VirtualMemory(); err == nil {
		HostMemoryUsedPercent.Set(vm.UsedPercent)
	}

	if uptimeSeconds, err := host.Uptime(); err == nil {
		HostUptime.Set(float64(uptimeSeconds))
	}
}
