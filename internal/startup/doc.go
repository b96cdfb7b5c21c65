// Package startup handles configuration loading and startup/shutdown
// logging for both binaries.
//
// # Server configuration
//
// [LoadConfig] reads the storage server settings from the environment:
//
//   - PHOTOS_DIR: Root of the photo store (default: /photos)
//   - DATABASE_DIR: Directory holding the SQLite database (default: /database)
//   - PORT: HTTP server port (default: 8080)
//   - METRICS_PORT: Prometheus metrics server port (default: 9090)
//   - METRICS_ENABLED: Enable or disable metrics server (default: true)
//   - MAX_UPLOAD_SIZE: Largest accepted request body in bytes (default: 26 MiB)
//   - STATS_INTERVAL: Gauge refresh interval as Go duration (default: 1m)
//   - UPLOAD_CONCURRENCY: Uploads parsed at once (default: 2 per CPU, max 16)
//   - DOWNLOAD_WRITE_TIMEOUT: Per-chunk write deadline for photo downloads (default: 30s)
//   - MEMORY_LIMIT, MEMORY_RATIO: Heap budget, see the memory package
//   - LOG_LEVEL: Logging level - debug, info, warn, error (default: info)
//   - LOG_HEALTH_CHECKS: Log health check requests (default: true)
//   - LOG_PHOTO_READS: Log stored photo downloads (default: false)
//
// Both directories are created if missing and must be writable.
//
// # Agent configuration
//
// [LoadAgentConfig] reads an optional YAML profile for capturectl and then
// applies CAPTURE_SERVER, CAPTURE_USER_AGENT, CAPTURE_REQUEST_TIMEOUT,
// CAPTURE_NORMALIZE, CAPTURE_MAX_WIDTH, CAPTURE_MAX_HEIGHT,
// CAPTURE_FALLBACK_DELAY and CAPTURE_HEIC.
//
// # Build Information
//
// Build-time variables are injected via ldflags and exposed via [GetBuildInfo].
package startup
