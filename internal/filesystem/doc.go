/*
Package filesystem wraps the file operations of the photo store with retry
logic for network-mounted volumes.

Only NFS stale file handle errors (ESTALE) are retried, with exponential
backoff (50ms, 100ms, 200ms by default, capped at 500ms). Every other error
is returned at once.

	info, err := filesystem.StatWithRetry(path, filesystem.DefaultRetryConfig())

WriteFileWithRetry writes through a temporary file in the same directory and
renames it into place, so readers never observe a partially written photo.

Metrics are recorded through the package-level Observer, labeled with the
volume a path belongs to ("photos", "database" or "unknown").
*/
package filesystem
