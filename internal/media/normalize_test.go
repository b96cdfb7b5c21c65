package media

import (
	"context"
	"errors"
	"image"
	"strings"
	"testing"
	"time"
)

func TestDefaultRetryConfig(t *testing.T) {
	config := DefaultRetryConfig()

	if config.MaxAttempts != 3 {
		t.Errorf("MaxAttempts = %d, want 3", config.MaxAttempts)
	}
	if config.InitialBackoff != time.Second {
		t.Errorf("InitialBackoff = %v, want 1s", config.InitialBackoff)
	}
	if config.AttemptTimeout != 15*time.Second {
		t.Errorf("AttemptTimeout = %v, want 15s", config.AttemptTimeout)
	}
}

func TestRetryConfigBackoff(t *testing.T) {
	config := DefaultRetryConfig()
	want := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 4 * time.Second}
	for i, w := range want {
		if got := config.Backoff(i + 1); got != w {
			t.Errorf("Backoff(%d) = %v, want %v", i+1, got, w)
		}
	}
}

func TestScaledSize(t *testing.T) {
	tests := []struct {
		name          string
		width, height int
		wantW, wantH  int
	}{
		{name: "4:3 landscape", width: 4000, height: 3000, wantW: 1440, wantH: 1080},
		{name: "16:9 landscape", width: 3840, height: 2160, wantW: 1920, wantH: 1080},
		{name: "very wide", width: 8000, height: 1000, wantW: 1920, wantH: 240},
		{name: "portrait", width: 3000, height: 4000, wantW: 810, wantH: 1080},
		{name: "already fits", width: 800, height: 600, wantW: 800, wantH: 600},
		{name: "never upscales", width: 10, height: 10, wantW: 10, wantH: 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, h := ScaledSize(tt.width, tt.height, 1920, 1080)
			if w != tt.wantW || h != tt.wantH {
				t.Errorf("ScaledSize(%d, %d) = %dx%d, want %dx%d", tt.width, tt.height, w, h, tt.wantW, tt.wantH)
			}
		})
	}
}

// newTestNormalizer returns a normalizer whose sleeps are recorded, not slept.
func newTestNormalizer(delays *[]time.Duration) *Normalizer {
	n := NewNormalizer(DefaultRetryConfig(), nil)
	n.sleep = func(_ context.Context, d time.Duration) error {
		*delays = append(*delays, d)
		return nil
	}
	return n
}

func TestNormalizeAlreadyFits(t *testing.T) {
	var delays []time.Duration
	n := newTestNormalizer(&delays)

	modified := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	in := NewFile("dash.png", "image/png", createTestImage(t, 1280, 720, "png"), modified)

	out, err := n.Normalize(context.Background(), in, DefaultOptions())
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if out.Name != "dash.jpg" {
		t.Errorf("Name = %q, want dash.jpg", out.Name)
	}
	if out.Type != MimeJPEG {
		t.Errorf("Type = %q, want %q", out.Type, MimeJPEG)
	}
	if !out.LastModified.Equal(modified) {
		t.Errorf("LastModified = %v, want %v", out.LastModified, modified)
	}
	dims, err := DecodeDimensions(out.Data)
	if err != nil {
		t.Fatalf("DecodeDimensions() error = %v", err)
	}
	if dims.Width != 1280 || dims.Height != 720 {
		t.Errorf("dimensions = %dx%d, want 1280x720", dims.Width, dims.Height)
	}
	if SniffFormat(out.Data) != "jpeg" {
		t.Errorf("output format = %s, want jpeg", SniffFormat(out.Data))
	}
	if len(delays) != 0 {
		t.Errorf("unexpected backoff delays: %v", delays)
	}
}

func TestNormalizeScalesLargeImage(t *testing.T) {
	var delays []time.Duration
	n := newTestNormalizer(&delays)

	in := NewFile("tire.jpg", MimeJPEG, createTestImage(t, 4000, 3000, "jpeg"), time.Now())
	out, err := n.Normalize(context.Background(), in, DefaultOptions())
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if out.Name != "tire_1080p.jpg" {
		t.Errorf("Name = %q, want tire_1080p.jpg", out.Name)
	}
	dims, err := DecodeDimensions(out.Data)
	if err != nil {
		t.Fatalf("DecodeDimensions() error = %v", err)
	}
	if dims.Width > 1920 || dims.Height > 1080 {
		t.Errorf("dimensions %dx%d exceed 1920x1080", dims.Width, dims.Height)
	}
	if dims.Width != 1440 || dims.Height != 1080 {
		t.Errorf("dimensions = %dx%d, want 1440x1080", dims.Width, dims.Height)
	}

	// A second pass only re-encodes
	again, err := n.Normalize(context.Background(), out, DefaultOptions())
	if err != nil {
		t.Fatalf("second Normalize() error = %v", err)
	}
	dims2, err := DecodeDimensions(again.Data)
	if err != nil {
		t.Fatalf("DecodeDimensions() error = %v", err)
	}
	if dims2 != dims {
		t.Errorf("second pass changed dimensions: %v -> %v", dims, dims2)
	}
	if again.Name != "tire_1080p.jpg" {
		t.Errorf("second pass Name = %q, want tire_1080p.jpg", again.Name)
	}
}

func TestNormalizeRetriesThenSucceeds(t *testing.T) {
	var delays []time.Duration
	n := newTestNormalizer(&delays)

	calls := 0
	realEncode := n.encode
	n.encode = func(img image.Image, q int) ([]byte, error) {
		calls++
		if calls <= 2 {
			return nil, errors.New("canvas export failed")
		}
		return realEncode(img, q)
	}

	in := NewFile("vin.jpg", MimeJPEG, createTestImage(t, 300, 300, "jpeg"), time.Now())
	out, err := n.Normalize(context.Background(), in, DefaultOptions())
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if calls != 3 {
		t.Errorf("encode called %d times, want 3", calls)
	}
	if len(out.Data) == 0 {
		t.Error("expected output data")
	}
	want := []time.Duration{time.Second, 2 * time.Second}
	if len(delays) != len(want) {
		t.Fatalf("delays = %v, want %v", delays, want)
	}
	for i := range want {
		if delays[i] != want[i] {
			t.Errorf("delay[%d] = %v, want %v", i, delays[i], want[i])
		}
	}
}

func TestNormalizeTerminalFailure(t *testing.T) {
	var delays []time.Duration
	n := newTestNormalizer(&delays)
	n.encode = func(image.Image, int) ([]byte, error) {
		return nil, nil // null blob
	}

	in := NewFile("vin.jpg", MimeJPEG, createTestImage(t, 300, 300, "jpeg"), time.Now())
	out, err := n.Normalize(context.Background(), in, DefaultOptions())
	if err == nil {
		t.Fatal("expected an error")
	}
	var nerr *NormalizationError
	if !errors.As(err, &nerr) {
		t.Fatalf("error type = %T, want *NormalizationError", err)
	}
	if nerr.Attempts != 3 {
		t.Errorf("Attempts = %d, want 3", nerr.Attempts)
	}
	if !strings.Contains(err.Error(), "3 attempts") {
		t.Errorf("error %q does not name the attempt count", err)
	}
	if !errors.Is(err, errEmptyOutput) {
		t.Errorf("error does not wrap the last cause: %v", err)
	}
	if len(out.Data) != 0 || out.Name != "" {
		t.Errorf("expected zero output, got %+v", out)
	}
	if len(delays) != 2 {
		t.Errorf("delays = %v, want two", delays)
	}
}

func TestNormalizeAttemptTimeout(t *testing.T) {
	n := NewNormalizer(RetryConfig{
		MaxAttempts:    1,
		InitialBackoff: time.Millisecond,
		AttemptTimeout: 20 * time.Millisecond,
	}, nil)
	release := make(chan struct{})
	defer close(release)
	n.decode = func([]byte) (image.Image, error) {
		<-release
		return nil, errors.New("unreachable")
	}

	in := NewFile("stall.jpg", MimeJPEG, []byte{0xFF, 0xD8, 0xFF}, time.Now())
	_, err := n.Normalize(context.Background(), in, DefaultOptions())
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if !strings.Contains(err.Error(), "timed out") {
		t.Errorf("error = %v, want timeout", err)
	}
}

func TestNormalizeDecodeError(t *testing.T) {
	var delays []time.Duration
	n := newTestNormalizer(&delays)

	in := NewFile("garbage.jpg", MimeJPEG, []byte("not an image"), time.Now())
	_, err := n.Normalize(context.Background(), in, DefaultOptions())
	var nerr *NormalizationError
	if !errors.As(err, &nerr) {
		t.Fatalf("error = %v, want *NormalizationError", err)
	}
	if nerr.Attempts != 3 {
		t.Errorf("Attempts = %d, want 3", nerr.Attempts)
	}
}

func TestNormalizeStopsOnCancel(t *testing.T) {
	n := NewNormalizer(DefaultRetryConfig(), nil)
	n.encode = func(image.Image, int) ([]byte, error) {
		return nil, errors.New("boom")
	}

	ctx, cancel := context.WithCancel(context.Background())
	n.sleep = func(ctx context.Context, _ time.Duration) error {
		cancel()
		return ctx.Err()
	}

	in := NewFile("vin.jpg", MimeJPEG, createTestImage(t, 300, 300, "jpeg"), time.Now())
	_, err := n.Normalize(ctx, in, DefaultOptions())
	var nerr *NormalizationError
	if !errors.As(err, &nerr) {
		t.Fatalf("error = %v, want *NormalizationError", err)
	}
	if nerr.Attempts != 1 {
		t.Errorf("Attempts = %d, want 1 after cancellation", nerr.Attempts)
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error should wrap context.Canceled: %v", err)
	}
}
