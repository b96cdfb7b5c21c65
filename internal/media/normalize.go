package media

import (
	"context"
	"errors"
	"fmt"
	"image"
	"math"
	"time"

	"inspection-capture/internal/logging"

	"github.com/disintegration/imaging"
)

// Options bounds the output of a normalization.
type Options struct {
	// Quality is the JPEG quality on the 0..1 scale.
	Quality   float64
	MaxWidth  int
	MaxHeight int
}

// DefaultOptions returns quality 0.8 within a 1920x1080 box.
func DefaultOptions() Options {
	return Options{
		Quality:   0.8,
		MaxWidth:  1920,
		MaxHeight: 1080,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.Quality <= 0 || o.Quality > 1 {
		o.Quality = d.Quality
	}
	if o.MaxWidth <= 0 {
		o.MaxWidth = d.MaxWidth
	}
	if o.MaxHeight <= 0 {
		o.MaxHeight = d.MaxHeight
	}
	return o
}

// RetryConfig configures the attempt/backoff policy of the Normalizer
type RetryConfig struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	// AttemptTimeout bounds one decode-draw-encode attempt.
	AttemptTimeout time.Duration
}

// DefaultRetryConfig returns 3 attempts, 1s/2s/4s backoff and a 15s timeout
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:    3,
		InitialBackoff: 1 * time.Second,
		MaxBackoff:     4 * time.Second,
		AttemptTimeout: 15 * time.Second,
	}
}

// Backoff returns the delay after failed attempt n (1-based).
func (c RetryConfig) Backoff(n int) time.Duration {
	delay := c.InitialBackoff
	for i := 1; i < n; i++ {
		delay *= 2
		if c.MaxBackoff > 0 && delay >= c.MaxBackoff {
			return c.MaxBackoff
		}
	}
	return delay
}

// NormalizationError is the terminal failure after all attempts are spent.
type NormalizationError struct {
	Name     string
	Attempts int
	Err      error
}

func (e *NormalizationError) Error() string {
	return fmt.Sprintf("failed to normalize %s after %d attempts: %v", e.Name, e.Attempts, e.Err)
}

func (e *NormalizationError) Unwrap() error {
	return e.Err
}

var errEmptyOutput = errors.New("encoder produced no data")

// Normalizer re-encodes images to fit a bounding box.
type Normalizer struct {
	retry    RetryConfig
	observer Observer

	decode func([]byte) (image.Image, error)
	encode func(image.Image, int) ([]byte, error)
	sleep  func(context.Context, time.Duration) error
}

// NewNormalizer creates a Normalizer. Zero fields of retry take the defaults.
func NewNormalizer(retry RetryConfig, observer Observer) *Normalizer {
	d := DefaultRetryConfig()
	if retry.MaxAttempts <= 0 {
		retry.MaxAttempts = d.MaxAttempts
	}
	if retry.InitialBackoff <= 0 {
		retry.InitialBackoff = d.InitialBackoff
	}
	if retry.AttemptTimeout <= 0 {
		retry.AttemptTimeout = d.AttemptTimeout
	}
	return &Normalizer{
		retry:    retry,
		observer: observer,
		decode:   decodeImage,
		encode:   encodeJPEG,
		sleep:    sleepContext,
	}
}

// Normalize re-encodes f as JPEG within the options' bounding box. Images
// that already fit are re-encoded at their own size and keep the name
// <stem>.jpg; scaled images are named <stem>_1080p.jpg. Upscaling never
// happens.
func (n *Normalizer) Normalize(ctx context.Context, f File, opts Options) (File, error) {
	opts = opts.withDefaults()

	var lastErr error
	attempts := 0
	for attempts < n.retry.MaxAttempts {
		attempts++

		start := time.Now()
		out, scaled, err := n.attempt(ctx, f, opts)
		if n.observer != nil {
			n.observer.ObserveNormalizeAttempt(attempts, time.Since(start).Seconds(), err)
		}
		if err == nil {
			if attempts > 1 {
				logging.Info("Normalization of %s succeeded on attempt %d", f.Name, attempts)
			}
			if n.observer != nil {
				n.observer.ObserveNormalizeResult(attempts, scaled, nil)
			}
			return out, nil
		}

		lastErr = err
		if ctx.Err() != nil {
			break
		}

		// Don't sleep after the last attempt
		if attempts < n.retry.MaxAttempts {
			delay := n.retry.Backoff(attempts)
			logging.Warn("Normalization of %s failed (attempt %d/%d): %v, retrying in %v",
				f.Name, attempts, n.retry.MaxAttempts, err, delay)
			if err := n.sleep(ctx, delay); err != nil {
				lastErr = err
				break
			}
		}
	}

	logging.Error("Normalization of %s failed after %d attempts: %v", f.Name, attempts, lastErr)
	nerr := &NormalizationError{Name: f.Name, Attempts: attempts, Err: lastErr}
	if n.observer != nil {
		n.observer.ObserveNormalizeResult(attempts, false, nerr)
	}
	return File{}, nerr
}

type attemptResult struct {
	file   File
	scaled bool
	err    error
}

// attempt runs one decode-draw-encode pass under the attempt timeout.
func (n *Normalizer) attempt(ctx context.Context, f File, opts Options) (File, bool, error) {
	actx, cancel := context.WithTimeout(ctx, n.retry.AttemptTimeout)
	defer cancel()

	done := make(chan attemptResult, 1)
	go func() {
		out, scaled, err := n.process(f, opts)
		done <- attemptResult{file: out, scaled: scaled, err: err}
	}()

	select {
	case r := <-done:
		return r.file, r.scaled, r.err
	case <-actx.Done():
		if errors.Is(actx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return File{}, false, fmt.Errorf("normalization timed out after %v", n.retry.AttemptTimeout)
		}
		return File{}, false, actx.Err()
	}
}

func (n *Normalizer) process(f File, opts Options) (File, bool, error) {
	img, err := n.decode(f.Data)
	if err != nil {
		return File{}, false, err
	}

	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width == 0 || height == 0 {
		return File{}, false, fmt.Errorf("decoded image has no pixels")
	}

	name := f.Stem() + ".jpg"
	scaled := false
	if !(Dimensions{Width: width, Height: height}).Fits(opts.MaxWidth, opts.MaxHeight) {
		targetWidth, targetHeight := ScaledSize(width, height, opts.MaxWidth, opts.MaxHeight)
		logging.Debug("Scaling %s from %dx%d to %dx%d", f.Name, width, height, targetWidth, targetHeight)
		img = imaging.Resize(img, targetWidth, targetHeight, imaging.Lanczos)
		name = f.Stem() + "_1080p.jpg"
		scaled = true
	}

	data, err := n.encode(img, QualityPercent(opts.Quality))
	if err != nil {
		return File{}, false, err
	}
	if len(data) == 0 {
		return File{}, false, errEmptyOutput
	}

	return NewFile(name, MimeJPEG, data, f.LastModified), scaled, nil
}

// ScaledSize computes the bounding-box target: scale = min(maxW/w, maxH/h, 1),
// with rounded dimensions of at least one pixel.
func ScaledSize(width, height, maxWidth, maxHeight int) (int, int) {
	scale := math.Min(math.Min(float64(maxWidth)/float64(width), float64(maxHeight)/float64(height)), 1)
	targetWidth := int(math.Round(float64(width) * scale))
	targetHeight := int(math.Round(float64(height) * scale))
	if targetWidth < 1 {
		targetWidth = 1
	}
	if targetHeight < 1 {
		targetHeight = 1
	}
	return targetWidth, targetHeight
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
