package media

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"inspection-capture/internal/logging"
)

// ConversionQuality is the fixed JPEG quality (0.8) of HEIC conversion.
const ConversionQuality = 80

// HEICLibrary is the conversion backend. A single input may yield several
// JPEG results; callers use the first.
type HEICLibrary interface {
	ToJPEG(ctx context.Context, data []byte, quality int) ([][]byte, error)
}

// ConversionError reports a HEIC/HEIF conversion failure. It is terminal.
type ConversionError struct {
	Name string
	Err  error
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("failed to convert %s to jpeg: %v", e.Name, e.Err)
}

func (e *ConversionError) Unwrap() error {
	return e.Err
}

var errNoResults = errors.New("conversion produced no output")

// IsConvertible reports whether f is HEIC/HEIF, either by declared MIME type
// or by file name suffix. Some camera apps omit the MIME type.
func IsConvertible(f File) bool {
	mime := strings.ToLower(f.Type)
	if mime == MimeHEIC || mime == MimeHEIF {
		return true
	}
	ext := strings.ToLower(filepath.Ext(f.Name))
	return ext == ".heic" || ext == ".heif"
}

// Converter turns HEIC/HEIF files into JPEG files.
type Converter struct {
	lib      HEICLibrary
	observer Observer
}

// NewConverter creates a Converter over lib. A nil observer disables
// metric recording.
func NewConverter(lib HEICLibrary, observer Observer) *Converter {
	return &Converter{lib: lib, observer: observer}
}

// Available reports whether the conversion backend can be used.
func (c *Converter) Available() bool {
	if c == nil || c.lib == nil {
		return false
	}
	if _, ok := c.lib.(VipsLibrary); ok {
		return IsVipsAvailable()
	}
	return true
}

// Convert produces a JPEG copy of f named <stem>.jpg with the original
// LastModified timestamp.
func (c *Converter) Convert(ctx context.Context, f File) (File, error) {
	start := time.Now()
	out, err := c.convert(ctx, f)
	if c != nil && c.observer != nil {
		c.observer.ObserveConversion(time.Since(start).Seconds(), err)
	}
	return out, err
}

func (c *Converter) convert(ctx context.Context, f File) (File, error) {
	if c == nil || c.lib == nil {
		return File{}, &ConversionError{Name: f.Name, Err: errors.New("no conversion library configured")}
	}

	logging.Debug("Converting %s (%s, %d bytes) to jpeg", f.Name, f.Type, f.Size)

	results, err := c.lib.ToJPEG(ctx, f.Data, ConversionQuality)
	if err != nil {
		return File{}, &ConversionError{Name: f.Name, Err: err}
	}
	if len(results) == 0 || len(results[0]) == 0 {
		return File{}, &ConversionError{Name: f.Name, Err: errNoResults}
	}
	if len(results) > 1 {
		logging.Debug("Conversion of %s yielded %d images, using the first", f.Name, len(results))
	}

	converted := NewFile(f.Stem()+".jpg", MimeJPEG, results[0], f.LastModified)
	logging.Debug("Converted %s -> %s (%d bytes)", f.Name, converted.Name, converted.Size)
	return converted, nil
}
