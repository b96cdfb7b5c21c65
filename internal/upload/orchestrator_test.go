package upload

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"strings"
	"sync"
	"testing"
	"time"

	"inspection-capture/internal/capability"
	"inspection-capture/internal/media"
	"inspection-capture/internal/slot"
	"inspection-capture/internal/telemetry"
)

const (
	safariIOSAgent = "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1"
	chromeAgent    = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"
)

func jpegBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y += 8 {
		for x := 0; x < w; x += 8 {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 100, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 85}); err != nil {
		t.Fatalf("Failed to encode test JPEG: %v", err)
	}
	return buf.Bytes()
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))); err != nil {
		t.Fatalf("Failed to encode test PNG: %v", err)
	}
	return buf.Bytes()
}

type recordingSink struct {
	mu    sync.Mutex
	files []media.File
	slots []slot.Slot
	err   error
}

func (s *recordingSink) Upload(_ context.Context, f media.File, sl slot.Slot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.files = append(s.files, f)
	s.slots = append(s.slots, sl)
	return nil
}

type fakeHEIC struct {
	results [][]byte
	err     error
}

func (f fakeHEIC) ToJPEG(context.Context, []byte, int) ([][]byte, error) {
	return f.results, f.err
}

type recordingBanner struct {
	messages []string
	ttls     []time.Duration
}

func (b *recordingBanner) Show(message string, ttl time.Duration) {
	b.messages = append(b.messages, message)
	b.ttls = append(b.ttls, ttl)
}

type harness struct {
	orch   *Orchestrator
	sink   *recordingSink
	log    *telemetry.Log
	banner *recordingBanner
	errs   []string
}

func newHarness(t *testing.T, agent string, lib media.HEICLibrary) *harness {
	t.Helper()
	env := capability.StaticEnvironment{Agent: agent, HasFileInput: true, HasFileAPI: true}
	h := &harness{
		sink:   &recordingSink{},
		log:    telemetry.NewLog(env, nil),
		banner: &recordingBanner{},
	}
	h.orch = New(Config{
		Converter:  media.NewConverter(lib, nil),
		Normalizer: media.NewNormalizer(media.RetryConfig{}, nil),
		Sink:       h.sink,
		Log:        h.log,
		Env:        env,
		OnError:    func(msg string) { h.errs = append(h.errs, msg) },
		Banner:     h.banner,
		Options:    DefaultOptions(),
	})
	return h
}

func TestValidate(t *testing.T) {
	o := New(Config{Options: DefaultOptions()})
	now := time.Now()

	tests := []struct {
		name string
		file media.File
		want error
	}{
		{"valid jpeg", media.NewFile("a.jpg", "image/jpeg", jpegBytes(t, 400, 300), now), nil},
		{"valid png", media.NewFile("a.png", "image/png", pngBytes(t, 200, 200), now), nil},
		{"text file", media.NewFile("notes.txt", "text/plain", []byte("hello"), now), ErrUnsupportedType},
		{"pdf named heic", media.NewFile("x.heic", "application/pdf", []byte("x"), now), ErrUnsupportedType},
		{"too small", media.NewFile("s.jpg", "image/jpeg", jpegBytes(t, 199, 400), now), ErrResolutionLow},
		{"corrupt", media.NewFile("c.jpg", "image/jpeg", []byte("not an image"), now), ErrInvalidImage},
		{"heic by type skips dimensions", media.NewFile("p.heic", "image/heic", []byte("ftypheic"), now), nil},
		{"untyped heic by suffix", media.NewFile("P.HEIF", "", []byte("ftypheic"), now), nil},
		{"octet-stream named heic", media.NewFile("x.heic", "application/octet-stream", []byte("ftypheic"), now), ErrUnsupportedType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := o.Validate(tt.file)
			if tt.want == nil {
				if err != nil {
					t.Fatalf("Validate() error = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Fatalf("Validate() error = %v, want %v", err, tt.want)
			}
			if Classify(err) != KindValidation {
				t.Errorf("Classify() = %s, want %s", Classify(err), KindValidation)
			}
		})
	}
}

func TestValidateSizeCheckedBeforeDimensions(t *testing.T) {
	o := New(Config{Options: DefaultOptions()})
	f := media.NewFile("big.jpg", "image/jpeg", []byte("garbage"), time.Now())
	f.Size = 30 * 1024 * 1024

	err := o.Validate(f)
	if !errors.Is(err, ErrFileTooLarge) {
		t.Fatalf("Validate() error = %v, want %v", err, ErrFileTooLarge)
	}
}

func TestHandleUploadsNormalizedJPEG(t *testing.T) {
	h := newHarness(t, chromeAgent, nil)
	f := media.NewFile("wide.jpg", "image/jpeg", jpegBytes(t, 4000, 3000), time.Now())

	h.orch.Handle(context.Background(), f, slot.FrontLeftTire)

	if len(h.errs) != 0 {
		t.Fatalf("unexpected errors: %v", h.errs)
	}
	if len(h.sink.files) != 1 {
		t.Fatalf("sink received %d files, want 1", len(h.sink.files))
	}
	got := h.sink.files[0]
	if got.Name != "wide_1080p.jpg" {
		t.Errorf("uploaded name = %q, want wide_1080p.jpg", got.Name)
	}
	dims, err := media.DecodeDimensions(got.Data)
	if err != nil {
		t.Fatalf("DecodeDimensions() error = %v", err)
	}
	if dims.Width != 1440 || dims.Height != 1080 {
		t.Errorf("uploaded dimensions = %dx%d, want 1440x1080", dims.Width, dims.Height)
	}
	if h.sink.slots[0] != slot.FrontLeftTire {
		t.Errorf("slot = %s, want %s", h.sink.slots[0], slot.FrontLeftTire)
	}

	report := h.log.Report()
	if len(report) != 1 {
		t.Fatalf("telemetry entries = %d, want 1", len(report))
	}
	if report[0].Failed() {
		t.Errorf("telemetry entry unexpectedly failed: %s", report[0].Error)
	}
}

func TestHandleWithoutNormalization(t *testing.T) {
	h := newHarness(t, chromeAgent, nil)
	h.orch.cfg.Options.Normalize = false
	data := jpegBytes(t, 4000, 3000)

	h.orch.Handle(context.Background(), media.NewFile("raw.jpg", "image/jpeg", data, time.Now()), slot.VIN)

	if len(h.sink.files) != 1 {
		t.Fatalf("sink received %d files, want 1", len(h.sink.files))
	}
	if !bytes.Equal(h.sink.files[0].Data, data) {
		t.Error("file was modified with normalization disabled")
	}
}

func TestHandleConvertsHEIC(t *testing.T) {
	lib := fakeHEIC{results: [][]byte{jpegBytes(t, 800, 600)}}
	h := newHarness(t, chromeAgent, lib)
	modified := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	h.orch.Handle(context.Background(), media.NewFile("photo.HEIC", "image/heic", []byte("ftypheic"), modified), slot.Odometer)

	if len(h.errs) != 0 {
		t.Fatalf("unexpected errors: %v", h.errs)
	}
	got := h.sink.files[0]
	if got.Name != "photo.jpg" || got.Type != media.MimeJPEG {
		t.Errorf("uploaded %q (%s), want photo.jpg (image/jpeg)", got.Name, got.Type)
	}
	if !got.LastModified.Equal(modified) {
		t.Errorf("LastModified = %v, want %v", got.LastModified, modified)
	}
}

func TestHandleFailures(t *testing.T) {
	tests := []struct {
		name     string
		agent    string
		lib      media.HEICLibrary
		sinkErr  error
		file     media.File
		wantKind Kind
		wantMsg  string
		banner   bool
	}{
		{
			name:     "non image on chrome",
			agent:    chromeAgent,
			file:     media.NewFile("notes.txt", "text/plain", []byte("x"), time.Now()),
			wantKind: KindValidation,
			wantMsg:  "unsupported file type",
		},
		{
			name:     "non image on safari posts banner",
			agent:    safariIOSAgent,
			file:     media.NewFile("notes.txt", "text/plain", []byte("x"), time.Now()),
			wantKind: KindValidation,
			wantMsg:  "unsupported file type",
			banner:   true,
		},
		{
			name:     "conversion failure",
			agent:    safariIOSAgent,
			lib:      fakeHEIC{err: errors.New("decoder crashed")},
			file:     media.NewFile("p.heic", "image/heic", []byte("ftypheic"), time.Now()),
			wantKind: KindConversion,
			wantMsg:  "could not convert",
			banner:   true,
		},
		{
			name:     "sink rejection",
			agent:    chromeAgent,
			sinkErr:  errors.New("503"),
			file:     media.NewFile("ok.jpg", "image/jpeg", jpegBytes(t, 300, 300), time.Now()),
			wantKind: KindSink,
			wantMsg:  "upload failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, tt.agent, tt.lib)
			h.sink.err = tt.sinkErr

			h.orch.Handle(context.Background(), tt.file, slot.Front)

			if len(h.errs) != 1 {
				t.Fatalf("OnError called %d times, want 1", len(h.errs))
			}
			if !strings.Contains(h.errs[0], tt.wantMsg) {
				t.Errorf("error message = %q, want it to contain %q", h.errs[0], tt.wantMsg)
			}
			if got := len(h.banner.messages) > 0; got != tt.banner {
				t.Errorf("banner shown = %v, want %v", got, tt.banner)
			}
			if tt.banner && h.banner.ttls[0] != BannerTTL {
				t.Errorf("banner ttl = %v, want %v", h.banner.ttls[0], BannerTTL)
			}

			report := h.log.Report()
			if len(report) != 1 || !report[0].Failed() {
				t.Fatalf("telemetry = %+v, want one failed entry", report)
			}
			if report[0].File == nil || report[0].File.Name != tt.file.Name {
				t.Errorf("telemetry file = %+v, want %s", report[0].File, tt.file.Name)
			}
		})
	}
}

type countingHEIC struct {
	mu    sync.Mutex
	calls int
}

func (c *countingHEIC) ToJPEG(context.Context, []byte, int) ([][]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	return nil, errors.New("converter should not run")
}

func TestHandleRejectsNonImageTypeBeforeConversion(t *testing.T) {
	lib := &countingHEIC{}
	h := newHarness(t, chromeAgent, lib)

	h.orch.Handle(context.Background(), media.NewFile("photo.heic", "application/octet-stream", []byte("ftypheic"), time.Now()), slot.Front)

	if lib.calls != 0 {
		t.Errorf("converter called %d times for a non-image type", lib.calls)
	}
	if len(h.sink.files) != 0 {
		t.Errorf("sink received %d files, want 0", len(h.sink.files))
	}
	if len(h.errs) != 1 || !strings.Contains(h.errs[0], "unsupported file type") {
		t.Errorf("errors = %v, want one unsupported file type", h.errs)
	}
}

func TestHandleWithoutConverterIsConversionFailure(t *testing.T) {
	h := newHarness(t, chromeAgent, nil)
	h.orch.cfg.Converter = nil

	h.orch.Handle(context.Background(), media.NewFile("p.heic", "image/heic", []byte("ftypheic"), time.Now()), slot.Front)

	report := h.log.Report()
	if len(report) != 1 {
		t.Fatalf("telemetry entries = %d, want 1", len(report))
	}
	if len(h.errs) != 1 || !strings.Contains(h.errs[0], "could not convert") {
		t.Errorf("errors = %v, want a conversion failure", h.errs)
	}
}

func TestHandleRecoversFromSinkPanic(t *testing.T) {
	h := newHarness(t, chromeAgent, nil)
	h.orch.cfg.Sink = SinkFunc(func(context.Context, media.File, slot.Slot) error {
		panic("boom")
	})

	h.orch.Handle(context.Background(), media.NewFile("ok.jpg", "image/jpeg", jpegBytes(t, 300, 300), time.Now()), slot.Rear)

	if len(h.errs) != 1 {
		t.Fatalf("OnError called %d times, want 1", len(h.errs))
	}
	if h.log.Len() != 1 {
		t.Errorf("telemetry entries = %d, want 1", h.log.Len())
	}
}

func TestHandleBatchIsSequentialAndOrdered(t *testing.T) {
	h := newHarness(t, chromeAgent, nil)
	files := []media.File{
		media.NewFile("one.jpg", "image/jpeg", jpegBytes(t, 300, 300), time.Now()),
		media.NewFile("bad.txt", "text/plain", []byte("x"), time.Now()),
		media.NewFile("three.jpg", "image/jpeg", jpegBytes(t, 320, 240), time.Now()),
	}

	h.orch.HandleBatch(context.Background(), files, slot.Interior)

	if len(h.sink.files) != 2 {
		t.Fatalf("sink received %d files, want 2", len(h.sink.files))
	}
	if h.sink.files[0].Name != "one.jpg" || h.sink.files[1].Name != "three.jpg" {
		t.Errorf("upload order = %s, %s", h.sink.files[0].Name, h.sink.files[1].Name)
	}
	if len(h.errs) != 1 {
		t.Errorf("OnError called %d times, want 1", len(h.errs))
	}
	if h.log.Len() != 3 {
		t.Errorf("telemetry entries = %d, want 3", h.log.Len())
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		err  error
		want Kind
	}{
		{nil, KindNone},
		{&ValidationError{Reason: ErrFileTooLarge}, KindValidation},
		{&media.ConversionError{Err: errors.New("x")}, KindConversion},
		{&media.NormalizationError{Attempts: 3, Err: errors.New("x")}, KindNormalization},
		{&SinkError{Err: errors.New("x")}, KindSink},
		{errors.New("other"), KindInternal},
	}
	for _, tt := range tests {
		t.Run(string(tt.want), func(t *testing.T) {
			if got := Classify(tt.err); got != tt.want {
				t.Errorf("Classify() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestBoardAutoDismiss(t *testing.T) {
	b := NewBoard()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	b.now = func() time.Time { return now }

	b.Show("upload problem", BannerTTL)
	if msg, ok := b.Current(); !ok || msg != "upload problem" {
		t.Fatalf("Current() = %q, %v", msg, ok)
	}

	now = now.Add(BannerTTL - time.Second)
	if _, ok := b.Current(); !ok {
		t.Error("banner dismissed before TTL")
	}

	now = now.Add(2 * time.Second)
	if _, ok := b.Current(); ok {
		t.Error("banner still visible after TTL")
	}

	b.Show("again", BannerTTL)
	b.Dismiss()
	if _, ok := b.Current(); ok {
		t.Error("banner visible after Dismiss")
	}
}
