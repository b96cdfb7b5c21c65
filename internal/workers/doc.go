/*
Package workers sizes and enforces the number of uploads the storage server
processes at once.

Every upload is parsed into memory before it is stored, so the number of
uploads in flight bounds the server's peak memory as much as the memory
guard does. The bound is derived from GOMAXPROCS, which follows the
container CPU limit, rather than runtime.NumCPU, which reports the host:

	limiter := workers.NewLimiter(workers.ForIO(16))

	if err := limiter.Acquire(r.Context()); err != nil {
		return // client went away while queued
	}
	defer limiter.Release()

# Environment Variables

  - UPLOAD_CONCURRENCY: overrides the computed count (still capped by the
    limit passed to [Count])
*/
package workers
