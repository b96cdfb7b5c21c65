// Package metrics provides Prometheus instrumentation for the inspection
// capture services. All metrics are prefixed with "inspection_capture_".
//
// # Metric Categories
//
// HTTP metrics track request rate, latency and in-flight requests per
// route template. Database metrics cover query counts and latency per
// operation, transaction duration, open connections and SQLite file sizes.
// Filesystem metrics record photo store operations and their NFS retries.
//
// Pipeline metrics describe the capture agent: HEIC conversions,
// normalization attempts and outcomes, handled uploads by browser family and
// failure kind, telemetry entries and capture session transitions. The
// pipeline packages never import Prometheus; they accept small observer
// interfaces that Pipeline implements.
//
// # Usage
//
//	metrics.InitializeMetrics()
//	filesystem.SetObserver(metrics.NewFilesystemObserver())
//	obs := metrics.NewPipelineObserver()
//	normalizer := media.NewNormalizer(media.DefaultRetryConfig(), obs)
//
// The Collector refreshes gauges derived from the database on an interval.
package metrics
