package metrics

import (
	"strconv"

	"inspection-capture/internal/capture"
	"inspection-capture/internal/filesystem"
	"inspection-capture/internal/media"
	"inspection-capture/internal/memory"
	"inspection-capture/internal/telemetry"
	"inspection-capture/internal/upload"
)

// filesystemObserver implements filesystem.Observer.
type filesystemObserver struct{}

// NewFilesystemObserver creates an observer backed by the filesystem
// collectors declared in metrics.go.
func NewFilesystemObserver() filesystem.Observer {
	return &filesystemObserver{}
}

func (o *filesystemObserver) ObserveOperation(volume, operation string, durationSeconds float64, err error) {
	FilesystemOperationDuration.WithLabelValues(volume, operation).Observe(durationSeconds)
	if err != nil {
		FilesystemOperationErrors.WithLabelValues(volume, operation).Inc()
	}
}

func (o *filesystemObserver) ObserveRetryAttempt(retryOp, volume string) {
	FilesystemRetryAttempts.WithLabelValues(retryOp, volume).Inc()
}

func (o *filesystemObserver) ObserveRetrySuccess(retryOp, volume string) {
	FilesystemRetrySuccess.WithLabelValues(retryOp, volume).Inc()
}

func (o *filesystemObserver) ObserveRetryFailure(retryOp, volume string) {
	FilesystemRetryFailures.WithLabelValues(retryOp, volume).Inc()
}

func (o *filesystemObserver) ObserveStaleError(retryOp, volume string) {
	FilesystemStaleErrors.WithLabelValues(retryOp, volume).Inc()
}

// Pipeline implements the observer interfaces of the capture pipeline
// packages.
type Pipeline struct{}

var (
	_ media.Observer     = Pipeline{}
	_ upload.Observer    = Pipeline{}
	_ telemetry.Observer = Pipeline{}
	_ capture.Observer   = Pipeline{}
)

// NewPipelineObserver returns the Prometheus-backed pipeline observer.
func NewPipelineObserver() Pipeline {
	return Pipeline{}
}

func (Pipeline) ObserveConversion(durationSeconds float64, err error) {
	ConversionsTotal.WithLabelValues(status(err)).Inc()
	ConversionDuration.Observe(durationSeconds)
}

func (Pipeline) ObserveNormalizeAttempt(attempt int, durationSeconds float64, err error) {
	NormalizeAttemptsTotal.WithLabelValues(strconv.Itoa(attempt), status(err)).Inc()
	NormalizeAttemptDuration.Observe(durationSeconds)
}

func (Pipeline) ObserveNormalizeResult(_ int, scaled bool, err error) {
	outcome := "reencoded"
	switch {
	case err != nil:
		outcome = "failed"
	case scaled:
		outcome = "scaled"
	}
	NormalizeResultsTotal.WithLabelValues(outcome).Inc()
}

func (Pipeline) ObserveUpload(browser, kind string, durationSeconds float64) {
	UploadsTotal.WithLabelValues(browser, kind).Inc()
	UploadDuration.WithLabelValues(kind).Observe(durationSeconds)
}

func (Pipeline) ObserveEntry(browser string, failed bool) {
	s := "success"
	if failed {
		s = "error"
	}
	TelemetryEntriesTotal.WithLabelValues(browser, s).Inc()
}

func (Pipeline) ObserveTransition(from, to string) {
	CaptureTransitionsTotal.WithLabelValues(from, to).Inc()
}

type memoryObserver struct{}

// NewMemoryObserver returns the Prometheus-backed memory guard observer.
func NewMemoryObserver() memory.Observer {
	return memoryObserver{}
}

func (memoryObserver) ObserveMemory(usage float64, critical bool) {
	MemoryUsageRatio.Set(usage)
	if critical {
		MemoryCritical.Set(1)
	} else {
		MemoryCritical.Set(0)
	}
}

func (memoryObserver) ObserveRejectedUpload() {
	UploadsRejectedTotal.Inc()
}
