package media

// Observer records pipeline metrics. The implementation lives in the metrics
// package so that media stays free of Prometheus imports.
type Observer interface {
	// ObserveConversion records one HEIC conversion.
	ObserveConversion(durationSeconds float64, err error)

	// ObserveNormalizeAttempt records a single decode-draw-encode attempt.
	ObserveNormalizeAttempt(attempt int, durationSeconds float64, err error)
	// ObserveNormalizeResult records the outcome after all attempts.
	ObserveNormalizeResult(attempts int, scaled bool, err error)
}
