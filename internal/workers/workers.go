package workers

import (
	"context"
	"os"
	"runtime"
	"strconv"
)

// EnvOverride names the variable that overrides the computed count.
const EnvOverride = "UPLOAD_CONCURRENCY"

// Count returns the number of workers for a task. multiplier scales
// GOMAXPROCS: 1.0 for CPU-bound work, 2.0 for I/O-bound work. limit caps
// the result; 0 means no cap.
func Count(multiplier float64, limit int) int {
	if override := os.Getenv(EnvOverride); override != "" {
		if count, err := strconv.Atoi(override); err == nil && count > 0 {
			if limit > 0 && count > limit {
				return limit
			}
			return count
		}
	}

	workers := int(float64(runtime.GOMAXPROCS(0)) * multiplier)
	if workers < 1 {
		workers = 1
	}
	if limit > 0 && workers > limit {
		workers = limit
	}
	return workers
}

// ForCPU returns one worker per available CPU.
func ForCPU(limit int) int {
	return Count(1.0, limit)
}

// ForIO returns two workers per available CPU.
func ForIO(limit int) int {
	return Count(2.0, limit)
}

// Limiter is a counting semaphore. The zero value is not usable; a nil
// *Limiter admits everything.
type Limiter struct {
	slots chan struct{}
}

// NewLimiter allows n concurrent holders. n below 1 is treated as 1.
func NewLimiter(n int) *Limiter {
	if n < 1 {
		n = 1
	}
	return &Limiter{slots: make(chan struct{}, n)}
}

// Acquire waits for a free slot or for ctx to end.
func (l *Limiter) Acquire(ctx context.Context) error {
	if l == nil {
		return nil
	}
	select {
	case l.slots <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release frees a slot taken by Acquire.
func (l *Limiter) Release() {
	if l == nil {
		return
	}
	<-l.slots
}

// Size returns the number of concurrent holders allowed.
func (l *Limiter) Size() int {
	if l == nil {
		return 0
	}
	return cap(l.slots)
}

// InUse returns the number of slots currently held.
func (l *Limiter) InUse() int {
	if l == nil {
		return 0
	}
	return len(l.slots)
}
