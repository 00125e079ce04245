package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	// Window Processor metrics
	SlotOutcomes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "logbatcher",
		Subsystem: "window",
		Name:      "slot_outcomes_total",
		Help:      "Slot processing outcomes by status.",
	}, []string{"status"})

	SlotProcessSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "logbatcher",
		Subsystem: "window",
		Name:      "process_seconds",
		Help:      "Time to process a single (date, hour) slot.",
		Buckets:   []float64{.1, .5, 1, 2.5, 5, 10, 30, 60, 120, 300},
	}, []string{"status"})

	SlotRetries = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "logbatcher",
		Subsystem: "window",
		Name:      "slot_retries_total",
		Help:      "Slot retry attempts.",
	}, []string{"reason"})

	RecordsPerBatch = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "logbatcher",
		Subsystem: "window",
		Name:      "records_per_batch",
		Help:      "Record count per processed window.",
		Buckets:   prometheus.ExponentialBuckets(1, 4, 10),
	})

	// Archive Adapter metrics
	ArchiveBytesWritten = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "logbatcher",
		Subsystem: "archive",
		Name:      "bytes_written_total",
		Help:      "Bytes written to the archive backend.",
	}, []string{"provider"})

	ArchiveErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "logbatcher",
		Subsystem: "archive",
		Name:      "errors_total",
		Help:      "Archive adapter errors by classification.",
	}, []string{"provider", "kind"})

	ArchiveCircuitState = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "logbatcher",
		Subsystem: "archive",
		Name:      "circuit_state",
		Help:      "Circuit breaker state (0=closed, 1=open, 2=half_open) per provider.",
	}, []string{"provider"})

	// Scheduler metrics
	SchedulerTicks = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "logbatcher",
		Subsystem: "scheduler",
		Name:      "ticks_total",
		Help:      "Scheduler trigger ticks by trigger name and outcome.",
	}, []string{"trigger", "outcome"})

	RetrySweepSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "logbatcher",
		Subsystem: "scheduler",
		Name:      "retry_sweep_seconds",
		Help:      "Duration of a retry sweep pass.",
		Buckets:   []float64{.01, .05, .1, .5, 1, 5, 10, 30},
	})

	// Retention Engine metrics
	RetentionRecordsDeleted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "logbatcher",
		Subsystem: "retention",
		Name:      "records_deleted_total",
		Help:      "Records deleted by the record-store sweeper per collection.",
	}, []string{"collection"})

	RetentionArchiveKeysDeleted = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "logbatcher",
		Subsystem: "retention",
		Name:      "archive_keys_deleted_total",
		Help:      "Archive keys deleted by the archive-retention sweeper.",
	})

	RetentionSweepSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "logbatcher",
		Subsystem: "retention",
		Name:      "sweep_seconds",
		Help:      "Duration of a retention sweep by kind.",
		Buckets:   []float64{.01, .1, .5, 1, 5, 10, 30, 60},
	}, []string{"kind"})

	// System metrics
	SystemInfo = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "logbatcher",
		Subsystem: "system",
		Name:      "info",
		Help:      "Build information.",
	}, []string{"version", "commit", "build_date", "go_version"})

	SystemUptime = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "logbatcher",
		Subsystem: "system",
		Name:      "uptime_seconds",
		Help:      "Process uptime in seconds.",
	})
)

var (
	registry  *prometheus.Registry
	regOnce   sync.Once
	startTime time.Time
)

// Init initializes the metrics registry with safe registration.
func Init() {
	regOnce.Do(func() {
		startTime = time.Now()

		registry = prometheus.NewRegistry()
		registry.MustRegister(collectors.NewGoCollector())
		registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

		registry.MustRegister(
			SlotOutcomes, SlotProcessSeconds, SlotRetries, RecordsPerBatch,
			ArchiveBytesWritten, ArchiveErrors, ArchiveCircuitState,
			SchedulerTicks, RetrySweepSeconds,
			RetentionRecordsDeleted, RetentionArchiveKeysDeleted, RetentionSweepSeconds,
			SystemInfo, SystemUptime,
		)

		go func() {
			ticker := time.NewTicker(10 * time.Second)
			defer ticker.Stop()
			for range ticker.C {
				SystemUptime.Set(time.Since(startTime).Seconds())
			}
		}()
	})
}

// Registry returns the custom Prometheus registry.
func Registry() *prometheus.Registry {
	return registry
}

// RecordSlotOutcome records a completed slot attempt.
func RecordSlotOutcome(status string, duration time.Duration, recordCount int) {
	SlotOutcomes.WithLabelValues(status).Inc()
	SlotProcessSeconds.WithLabelValues(status).Observe(duration.Seconds())
	if status == "success" {
		RecordsPerBatch.Observe(float64(recordCount))
	}
}

// RecordSlotRetry records a retry transition with its reason.
func RecordSlotRetry(reason string) {
	SlotRetries.WithLabelValues(reason).Inc()
}

// RecordArchiveWrite records bytes successfully written to the archive.
func RecordArchiveWrite(provider string, bytes int) {
	ArchiveBytesWritten.WithLabelValues(provider).Add(float64(bytes))
}

// RecordArchiveError classifies an archive adapter failure.
func RecordArchiveError(provider, kind string) {
	ArchiveErrors.WithLabelValues(provider, kind).Inc()
}
