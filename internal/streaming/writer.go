package streaming

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"inspection-capture/internal/logging"
)

var (
	// ErrClientGone means the request context ended mid-stream.
	ErrClientGone = errors.New("client disconnected")
	// ErrStreamTimeout means the stream ran past its maximum duration.
	ErrStreamTimeout = errors.New("stream exceeded maximum duration")
)

// Config tunes a Writer.
type Config struct {
	// WriteTimeout bounds each chunk write.
	WriteTimeout time.Duration
	// MaxDuration bounds the whole response (0 = unlimited).
	MaxDuration time.Duration
	// ChunkSize splits large writes (0 = write as received).
	ChunkSize int
}

// DefaultConfig returns the download defaults.
func DefaultConfig() Config {
	return Config{
		WriteTimeout: 30 * time.Second,
		ChunkSize:    64 * 1024,
	}
}

// Writer is an http.ResponseWriter with per-chunk write deadlines.
type Writer struct {
	w      http.ResponseWriter
	rc     *http.ResponseController
	ctx    context.Context
	config Config
	start  time.Time

	mu        sync.Mutex
	written   int64
	deadlines bool
}

// NewWriter wraps w. ctx is normally the request context.
func NewWriter(ctx context.Context, w http.ResponseWriter, config Config) *Writer {
	return &Writer{
		w:         w,
		rc:        http.NewResponseController(w),
		ctx:       ctx,
		config:    config,
		start:     time.Now(),
		deadlines: config.WriteTimeout > 0,
	}
}

// Header implements http.ResponseWriter.
func (sw *Writer) Header() http.Header {
	return sw.w.Header()
}

// WriteHeader implements http.ResponseWriter.
func (sw *Writer) WriteHeader(code int) {
	sw.w.WriteHeader(code)
}

// Write implements http.ResponseWriter.
func (sw *Writer) Write(p []byte) (int, error) {
	total := 0
	for len(p) > 0 {
		chunk := len(p)
		if sw.config.ChunkSize > 0 && chunk > sw.config.ChunkSize {
			chunk = sw.config.ChunkSize
		}
		n, err := sw.writeChunk(p[:chunk])
		total += n
		if err != nil {
			return total, err
		}
		p = p[chunk:]
	}
	return total, nil
}

func (sw *Writer) writeChunk(p []byte) (int, error) {
	if sw.ctx.Err() != nil {
		return 0, ErrClientGone
	}
	if sw.config.MaxDuration > 0 && time.Since(sw.start) > sw.config.MaxDuration {
		return 0, ErrStreamTimeout
	}

	sw.mu.Lock()
	defer sw.mu.Unlock()

	if sw.deadlines {
		if err := sw.rc.SetWriteDeadline(time.Now().Add(sw.config.WriteTimeout)); err != nil {
			if !errors.Is(err, http.ErrNotSupported) {
				return 0, err
			}
			logging.Debug("Response writer does not support deadlines, streaming without them")
			sw.deadlines = false
		}
	}

	n, err := sw.w.Write(p)
	sw.written += int64(n)
	if err != nil {
		return n, err
	}
	if err := sw.rc.Flush(); err != nil && !errors.Is(err, http.ErrNotSupported) {
		return n, err
	}
	return n, nil
}

// Stats returns the bytes written and the time since the writer was created.
func (sw *Writer) Stats() (int64, time.Duration) {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	return sw.written, time.Since(sw.start)
}

// Close clears the write deadline so the connection can be reused.
func (sw *Writer) Close() error {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	if !sw.deadlines {
		return nil
	}
	sw.deadlines = false
	if err := sw.rc.SetWriteDeadline(time.Time{}); err != nil && !errors.Is(err, http.ErrNotSupported) {
		return err
	}
	return nil
}
