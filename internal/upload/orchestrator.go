package upload

import (
	"context"
	"fmt"
	"strings"
	"time"

	"inspection-capture/internal/capability"
	"inspection-capture/internal/logging"
	"inspection-capture/internal/media"
	"inspection-capture/internal/slot"
	"inspection-capture/internal/telemetry"
)

const (
	// MaxFileSize is the largest accepted input (25 MiB).
	MaxFileSize = 25 * 1024 * 1024
	// MinDimension is the smallest accepted width and height.
	MinDimension = 200
)

// Sink is the external upload destination.
type Sink interface {
	Upload(ctx context.Context, f media.File, s slot.Slot) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, f media.File, s slot.Slot) error

func (fn SinkFunc) Upload(ctx context.Context, f media.File, s slot.Slot) error {
	return fn(ctx, f, s)
}

// Observer records orchestrator outcomes.
type Observer interface {
	ObserveUpload(browser string, kind string, durationSeconds float64)
}

// Options tunes validation and processing.
type Options struct {
	// Normalize enables bounding-box re-encoding before upload.
	Normalize     bool
	Normalization media.Options
	MaxFileSize   int64
	MinDimension  int
	BannerTTL     time.Duration
}

// DefaultOptions returns the standard limits with normalization enabled.
func DefaultOptions() Options {
	return Options{
		Normalize:     true,
		Normalization: media.DefaultOptions(),
		MaxFileSize:   MaxFileSize,
		MinDimension:  MinDimension,
		BannerTTL:     BannerTTL,
	}
}

// Config wires an Orchestrator. Sink and Log are required.
type Config struct {
	Converter  *media.Converter
	Normalizer *media.Normalizer
	Sink       Sink
	Log        *telemetry.Log
	// Env identifies the capturing browser for the Safari diagnostics.
	Env      capability.Environment
	OnError  func(message string)
	Banner   Banner
	Observer Observer
	Options  Options
}

// Orchestrator validates, converts, normalizes and uploads files.
type Orchestrator struct {
	cfg Config
}

// New creates an Orchestrator.
func New(cfg Config) *Orchestrator {
	d := DefaultOptions()
	if cfg.Options.MaxFileSize <= 0 {
		cfg.Options.MaxFileSize = d.MaxFileSize
	}
	if cfg.Options.MinDimension <= 0 {
		cfg.Options.MinDimension = d.MinDimension
	}
	if cfg.Options.BannerTTL <= 0 {
		cfg.Options.BannerTTL = d.BannerTTL
	}
	return &Orchestrator{cfg: cfg}
}

// Handle runs one file through the pipeline. It returns once the attempt
// has been recorded; failures are reported through OnError only.
func (o *Orchestrator) Handle(ctx context.Context, f media.File, s slot.Slot) {
	start := time.Now()
	browser := capability.BrowserOf(o.cfg.Env)

	var err error
	func() {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("internal error: %v", r)
			}
		}()
		err = o.process(ctx, f, s)
	}()

	if o.cfg.Log != nil {
		o.cfg.Log.Record(&f, err)
	}
	kind := Classify(err)
	if o.cfg.Observer != nil {
		o.cfg.Observer.ObserveUpload(string(browser), string(kind), time.Since(start).Seconds())
	}

	if err == nil {
		logging.Info("Uploaded %s to slot %s in %v", f.Name, s, time.Since(start))
		return
	}

	logging.Warn("Upload of %s to slot %s failed (%s): %v", f.Name, s, kind, err)
	o.report(f, err, browser)
}

// HandleBatch processes files strictly in order, one at a time.
func (o *Orchestrator) HandleBatch(ctx context.Context, files []media.File, s slot.Slot) {
	for i, f := range files {
		logging.Debug("Processing file %d/%d of batch for slot %s: %s", i+1, len(files), s, f.Name)
		o.Handle(ctx, f, s)
	}
}

func (o *Orchestrator) process(ctx context.Context, f media.File, s slot.Slot) error {
	if err := o.Validate(f); err != nil {
		return err
	}

	var err error
	if media.IsConvertible(f) {
		f, err = o.cfg.Converter.Convert(ctx, f)
		if err != nil {
			return err
		}
	}

	if o.cfg.Options.Normalize && o.cfg.Normalizer != nil {
		f, err = o.cfg.Normalizer.Normalize(ctx, f, o.cfg.Options.Normalization)
		if err != nil {
			return err
		}
	}

	if o.cfg.Sink == nil {
		return &SinkError{Name: f.Name, Err: fmt.Errorf("no upload sink configured")}
	}
	if err := o.cfg.Sink.Upload(ctx, f, s); err != nil {
		return &SinkError{Name: f.Name, Err: err}
	}
	return nil
}

// Validate applies the checks in order and stops at the first violation.
// HEIC/HEIF files skip the dimension check; their size is unknown until
// converted.
func (o *Orchestrator) Validate(f media.File) error {
	if !acceptableType(f) {
		return &ValidationError{Name: f.Name, Reason: ErrUnsupportedType, Detail: f.Type}
	}
	if f.Size > o.cfg.Options.MaxFileSize {
		return &ValidationError{
			Name:   f.Name,
			Reason: ErrFileTooLarge,
			Detail: fmt.Sprintf("%d bytes, limit %d", f.Size, o.cfg.Options.MaxFileSize),
		}
	}
	if media.IsConvertible(f) {
		return nil
	}

	dims, err := media.DecodeDimensions(f.Data)
	if err != nil {
		return &ValidationError{Name: f.Name, Reason: ErrInvalidImage, Detail: err.Error()}
	}
	min := o.cfg.Options.MinDimension
	if dims.Width < min || dims.Height < min {
		return &ValidationError{
			Name:   f.Name,
			Reason: ErrResolutionLow,
			Detail: fmt.Sprintf("%dx%d, minimum %dx%d", dims.Width, dims.Height, min, min),
		}
	}
	return nil
}

// acceptableType allows image/* MIME types, plus HEIC/HEIF recognised by
// suffix when the file arrived with no type at all. A declared non-image
// type is never overridden by the name.
func acceptableType(f media.File) bool {
	mime := strings.ToLower(strings.TrimSpace(f.Type))
	if strings.HasPrefix(mime, "image/") {
		return true
	}
	return mime == "" && media.IsConvertible(f)
}

func (o *Orchestrator) report(f media.File, err error, browser capability.Browser) {
	message := userMessage(f.Name, err)

	if browser.IsSafari() {
		report := capability.Probe(o.cfg.Env)
		logging.Error("Safari upload diagnostics: browser=%s file=%s type=%q size=%d format=%s capabilities=%+v error=%v",
			browser, f.Name, f.Type, f.Size, media.SniffFormat(f.Data), report, err)
		if o.cfg.Banner != nil {
			o.cfg.Banner.Show(fmt.Sprintf("%s upload problem: %s", browser, message), o.cfg.Options.BannerTTL)
		}
	}

	if o.cfg.OnError != nil {
		o.cfg.OnError(message)
	}
}
