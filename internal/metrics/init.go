package metrics

import (
	"inspection-capture/internal/capability"
	"inspection-capture/internal/slot"
)

// InitializeMetrics pre-populates the expected label combinations so every
// metric is exported from the first Prometheus scrape. Call once at startup.
func InitializeMetrics() {
	volumes := []string{"photos", "database", "unknown"}
	fsOps := []string{"stat", "open", "write", "remove"}

	for _, vol := range volumes {
		for _, op := range fsOps {
			FilesystemOperationDuration.WithLabelValues(vol, op)
			FilesystemOperationErrors.WithLabelValues(vol, op)
			FilesystemRetryAttempts.WithLabelValues(op, vol)
			FilesystemRetrySuccess.WithLabelValues(op, vol)
			FilesystemRetryFailures.WithLabelValues(op, vol)
			FilesystemStaleErrors.WithLabelValues(op, vol)
		}
	}

	for _, info := range slot.All() {
		name := info.Slot.String()
		PhotosStoredTotal.WithLabelValues(name)
		PhotosDeletedTotal.WithLabelValues(name)
		PhotosCurrent.WithLabelValues(name)
	}

	for _, file := range []string{"main", "wal", "shm"} {
		DBSizeBytes.WithLabelValues(file)
	}

	for _, op := range []string{"initialize_schema", "insert_photo", "list_photos", "get_photo",
		"delete_photo", "insert_telemetry", "list_telemetry", "count_telemetry", "stats"} {
		DBQueryTotal.WithLabelValues(op, "success")
		DBQueryTotal.WithLabelValues(op, "error")
		DBQueryDuration.WithLabelValues(op)
	}

	for _, r := range []string{"commit", "rollback"} {
		DBTransactionDuration.WithLabelValues(r)
	}

	for _, b := range []capability.Browser{capability.SafariIOS, capability.SafariDesktop,
		capability.Chrome, capability.Firefox, capability.Unknown} {
		TelemetryEntriesTotal.WithLabelValues(string(b), "success")
		TelemetryEntriesTotal.WithLabelValues(string(b), "error")
	}
}
