package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inspection_capture_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "inspection_capture_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "inspection_capture_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)
)

// Database metrics
var (
	DBQueryTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inspection_capture_db_queries_total",
			Help: "Total number of database queries",
		},
		[]string{"operation", "status"},
	)

	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "inspection_capture_db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"operation"},
	)

	DBTransactionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "inspection_capture_db_transaction_duration_seconds",
			Help:    "Database transaction duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
		[]string{"result"}, // "commit", "rollback"
	)

	DBConnectionsOpen = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "inspection_capture_db_connections_open",
			Help: "Number of open database connections",
		},
	)

	DBSizeBytes = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "inspection_capture_db_size_bytes",
			Help: "Size of SQLite database files in bytes",
		},
		[]string{"file"}, // "main", "wal", "shm"
	)
)

// Filesystem metrics
var (
	FilesystemOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "inspection_capture_filesystem_operation_duration_seconds",
			Help:    "Duration of filesystem operations including retries",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5},
		},
		[]string{"volume", "operation"},
	)

	FilesystemOperationErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inspection_capture_filesystem_operation_errors_total",
			Help: "Total number of failed filesystem operations",
		},
		[]string{"volume", "operation"},
	)

	FilesystemRetryAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inspection_capture_filesystem_retry_attempts_total",
			Help: "Total number of filesystem retry attempts",
		},
		[]string{"operation", "volume"},
	)

	FilesystemRetrySuccess = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inspection_capture_filesystem_retry_success_total",
			Help: "Total number of operations that succeeded after retrying",
		},
		[]string{"operation", "volume"},
	)

	FilesystemRetryFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inspection_capture_filesystem_retry_failures_total",
			Help: "Total number of operations that failed after all retries",
		},
		[]string{"operation", "volume"},
	)

	FilesystemStaleErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inspection_capture_filesystem_stale_errors_total",
			Help: "Total number of NFS stale file handle errors",
		},
		[]string{"operation", "volume"},
	)
)

// Photo store metrics
var (
	PhotosStoredTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inspection_capture_photos_stored_total",
			Help: "Total number of photos accepted by the upload sink",
		},
		[]string{"slot"},
	)

	PhotosDeletedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inspection_capture_photos_deleted_total",
			Help: "Total number of photos removed through the deletion notifier",
		},
		[]string{"slot"},
	)

	PhotoBytesStored = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "inspection_capture_photo_size_bytes",
			Help:    "Size of stored photos in bytes",
			Buckets: prometheus.ExponentialBuckets(64*1024, 2, 10),
		},
	)

	PhotosCurrent = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "inspection_capture_photos",
			Help: "Number of visible photos per slot",
		},
		[]string{"slot"},
	)
)

// Capture pipeline metrics
var (
	ConversionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inspection_capture_heic_conversions_total",
			Help: "Total number of HEIC conversions",
		},
		[]string{"status"},
	)

	ConversionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "inspection_capture_heic_conversion_duration_seconds",
			Help:    "HEIC conversion duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
	)

	NormalizeAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inspection_capture_normalize_attempts_total",
			Help: "Total number of normalization attempts by attempt number and status",
		},
		[]string{"attempt", "status"},
	)

	NormalizeAttemptDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "inspection_capture_normalize_attempt_duration_seconds",
			Help:    "Duration of one decode-scale-encode attempt",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15},
		},
	)

	NormalizeResultsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inspection_capture_normalize_results_total",
			Help: "Total number of normalizations by outcome",
		},
		[]string{"outcome"}, // "scaled", "reencoded", "failed"
	)

	UploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inspection_capture_uploads_total",
			Help: "Total number of handled files by browser family and result kind",
		},
		[]string{"browser", "kind"},
	)

	UploadDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "inspection_capture_upload_duration_seconds",
			Help:    "Time from hand-off to recorded outcome",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"kind"},
	)

	TelemetryEntriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inspection_capture_telemetry_entries_total",
			Help: "Total number of telemetry entries by browser family and status",
		},
		[]string{"browser", "status"},
	)

	CaptureTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inspection_capture_session_transitions_total",
			Help: "Total number of capture session state transitions",
		},
		[]string{"from", "to"},
	)
)

// Memory metrics
var (
	MemoryUsageRatio = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "inspection_capture_memory_usage_ratio",
			Help: "Heap allocation as a share of the memory limit",
		},
	)

	MemoryCritical = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "inspection_capture_memory_critical",
			Help: "Whether uploads are being refused for memory pressure (1 = refusing)",
		},
	)

	UploadsRejectedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "inspection_capture_uploads_rejected_total",
			Help: "Total number of uploads refused for memory pressure",
		},
	)
)

// Application info metric
var (
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "inspection_capture_app_info",
			Help: "Application information",
		},
		[]string{"version", "commit", "go_version"},
	)
)

// SetAppInfo sets the application info metric
func SetAppInfo(version, commit, goVersion string) {
	AppInfo.WithLabelValues(version, commit, goVersion).Set(1)
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
