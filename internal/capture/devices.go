package capture

import (
	"context"
	"errors"
	"image"

	"inspection-capture/internal/media"
	"inspection-capture/internal/slot"
)

var (
	// ErrPermissionDenied is returned by MediaDevices when the user or
	// platform refuses camera access.
	ErrPermissionDenied = errors.New("camera permission denied")
	// ErrNoCamera is returned when no input device exists.
	ErrNoCamera = errors.New("no camera available")
	// ErrTrackEnded is returned by a stopped stream.
	ErrTrackEnded = errors.New("media track ended")
	// ErrTorchUnsupported is returned by streams without hardware flash.
	ErrTorchUnsupported = errors.New("torch not supported")
)

// Facing modes.
const (
	FacingEnvironment = "environment"
	FacingUser        = "user"
)

// Device is one video input.
type Device struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// Constraints select the stream to acquire. An empty DeviceID asks for
// the preferred facing mode.
type Constraints struct {
	DeviceID   string
	FacingMode string
	Width      int
	Height     int
}

// MediaDevices enumerates and opens cameras.
type MediaDevices interface {
	Devices(ctx context.Context) ([]Device, error)
	Open(ctx context.Context, c Constraints) (Stream, error)
}

// Stream is an acquired video track.
type Stream interface {
	// Frame returns the current frame at native resolution.
	Frame(ctx context.Context) (image.Image, error)
	TorchSupported() bool
	SetTorch(on bool) error
	Stop()
}

// Preview shows a live stream. Both methods may be called with the
// session lock released.
type Preview interface {
	Attach(s Stream, d Device)
	Detach()
}

// PickerRequest configures the native file picker.
type PickerRequest struct {
	Accept   string
	Capture  string
	Multiple bool
}

// Picker is the platform's native file chooser.
type Picker interface {
	Pick(ctx context.Context, req PickerRequest) ([]media.File, error)
}

// Handler receives captured and picked files. *upload.Orchestrator
// satisfies it.
type Handler interface {
	Handle(ctx context.Context, f media.File, s slot.Slot)
	HandleBatch(ctx context.Context, files []media.File, s slot.Slot)
}

// PermissionError records why the camera could not be acquired. It
// triggers the picker fallback instead of surfacing as a failure.
type PermissionError struct {
	Err error
}

func (e *PermissionError) Error() string {
	return "camera unavailable: " + e.Err.Error()
}

func (e *PermissionError) Unwrap() error {
	return e.Err
}
