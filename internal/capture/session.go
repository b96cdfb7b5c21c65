package capture

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"inspection-capture/internal/logging"
	"inspection-capture/internal/media"
	"inspection-capture/internal/slot"
)

// State of a capture session.
type State int

const (
	Idle State = iota
	Requesting
	Previewing
	Captured
	Denied
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Requesting:
		return "requesting"
	case Previewing:
		return "previewing"
	case Captured:
		return "captured"
	case Denied:
		return "denied"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Permission is the last known camera permission.
type Permission string

const (
	PermissionPrompt  Permission = "prompt"
	PermissionGranted Permission = "granted"
	PermissionDenied  Permission = "denied"
)

const (
	// DefaultFallbackDelay gives the user time to read the fallback notice.
	DefaultFallbackDelay = time.Second
	// CaptureQuality is the JPEG quality of captured frames.
	CaptureQuality = 90
)

var (
	ErrBusy      = errors.New("capture session already open")
	ErrNotActive = errors.New("capture session is not previewing")
	ErrClosed    = errors.New("capture session closed")
)

// Observer records session transitions.
type Observer interface {
	ObserveTransition(from, to string)
}

// Config wires a Session. Devices, Picker and Handler are required.
type Config struct {
	Devices  MediaDevices
	Picker   Picker
	Handler  Handler
	Preview  Preview
	Observer Observer
	// FallbackDelay precedes the picker after a denial. Zero means
	// DefaultFallbackDelay; negative opens the picker immediately.
	FallbackDelay time.Duration
	// Width and Height are the ideal stream resolution.
	Width  int
	Height int
}

// Snapshot is a copy of the session's observable state.
type Snapshot struct {
	State          State
	Slot           slot.Slot
	Devices        []Device
	CurrentDevice  int
	FlashOn        bool
	FlashSupported bool
	Permission     Permission
	LastError      error
	Captured       *media.File
}

// Session is one camera dialog. It is safe for concurrent use; Close may
// be called while Open is still acquiring the camera.
type Session struct {
	cfg Config

	mu             sync.Mutex
	state          State
	slot           slot.Slot
	devices        []Device
	current        int
	flashOn        bool
	flashSupported bool
	permission     Permission
	lastErr        error
	captured       *media.File
	track          *track
	cancel         context.CancelFunc
	fallback       *time.Timer
	generation     uint64

	background sync.WaitGroup
}

// NewSession creates an idle session.
func NewSession(cfg Config) *Session {
	if cfg.FallbackDelay == 0 {
		cfg.FallbackDelay = DefaultFallbackDelay
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		cfg.Width, cfg.Height = 1920, 1080
	}
	return &Session{cfg: cfg, permission: PermissionPrompt}
}

// track stops its stream at most once.
type track struct {
	stream Stream
	device Device
	once   sync.Once
}

func (t *track) stop() {
	if t == nil {
		return
	}
	t.once.Do(func() {
		defer func() {
			if r := recover(); r != nil {
				logging.Warn("Camera track stop panicked: %v", r)
			}
		}()
		t.stream.Stop()
	})
}

func (s *Session) setState(to State) {
	from := s.state
	s.state = to
	if from != to {
		logging.Debug("Capture session %s -> %s", from, to)
		if s.cfg.Observer != nil {
			s.cfg.Observer.ObserveTransition(from.String(), to.String())
		}
	}
}

// Snapshot returns the current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := Snapshot{
		State:          s.state,
		Slot:           s.slot,
		Devices:        append([]Device(nil), s.devices...),
		CurrentDevice:  s.current,
		FlashOn:        s.flashOn,
		FlashSupported: s.flashSupported,
		Permission:     s.permission,
		LastError:      s.lastErr,
	}
	if s.captured != nil {
		f := *s.captured
		snap.Captured = &f
	}
	return snap
}

// Open starts the dialog for sl and acquires the environment-facing
// camera. If acquisition fails the session enters Denied and the picker
// fallback is scheduled; Open then returns the PermissionError.
func (s *Session) Open(ctx context.Context, sl slot.Slot) error {
	if !sl.Valid() {
		return fmt.Errorf("invalid slot %q", sl)
	}

	s.mu.Lock()
	if s.state != Idle {
		s.mu.Unlock()
		return ErrBusy
	}
	acquireCtx, cancel := context.WithCancel(ctx)
	s.slot = sl
	s.cancel = cancel
	s.lastErr = nil
	s.generation++
	gen := s.generation
	s.setState(Requesting)
	s.mu.Unlock()

	logging.Info("Opening camera for slot %s", sl)
	return s.acquire(acquireCtx, gen, Constraints{FacingMode: FacingEnvironment})
}

// acquire opens a stream and moves to Previewing, or to Denied on failure.
// The stream is stopped at once if the session was closed meanwhile.
func (s *Session) acquire(ctx context.Context, gen uint64, c Constraints) error {
	c.Width, c.Height = s.cfg.Width, s.cfg.Height

	stream, err := s.cfg.Devices.Open(ctx, c)
	var devices []Device
	if err == nil {
		devices, err = s.cfg.Devices.Devices(ctx)
		if err != nil {
			stream.Stop()
		}
	}

	s.mu.Lock()
	if s.generation != gen || s.state != Requesting {
		s.mu.Unlock()
		if err == nil {
			(&track{stream: stream}).stop()
		}
		return ErrClosed
	}

	if err != nil {
		perr := &PermissionError{Err: err}
		s.lastErr = perr
		if errors.Is(err, ErrPermissionDenied) {
			s.permission = PermissionDenied
		}
		s.setState(Denied)
		s.scheduleFallback(gen)
		s.mu.Unlock()
		logging.Warn("Camera unavailable for slot %s, falling back to picker: %v", s.slot, err)
		return perr
	}

	s.permission = PermissionGranted
	s.devices = devices
	s.current = indexOf(devices, c.DeviceID)
	device := Device{ID: c.DeviceID}
	if s.current < len(devices) {
		device = devices[s.current]
	}
	s.track = &track{stream: stream, device: device}
	flash := supportsTorch(stream)
	s.flashSupported = flash
	if !flash {
		s.flashOn = false
	} else if s.flashOn {
		_ = stream.SetTorch(true)
	}
	s.setState(Previewing)
	preview := s.cfg.Preview
	s.mu.Unlock()

	if preview != nil {
		preview.Attach(stream, device)
	}
	logging.Debug("Camera %q streaming, %d devices, flash supported: %v", device.Label, len(devices), flash)
	return nil
}

func supportsTorch(stream Stream) (ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	return stream.TorchSupported()
}

func indexOf(devices []Device, id string) int {
	for i, d := range devices {
		if d.ID == id {
			return i
		}
	}
	return 0
}

// scheduleFallback must be called with s.mu held.
func (s *Session) scheduleFallback(gen uint64) {
	delay := max(s.cfg.FallbackDelay, 0)
	s.background.Add(1)
	s.fallback = time.AfterFunc(delay, func() {
		defer s.background.Done()
		s.runFallback(gen)
	})
}

func (s *Session) runFallback(gen uint64) {
	s.mu.Lock()
	if s.generation != gen || s.state != Denied {
		s.mu.Unlock()
		return
	}
	sl := s.slot
	s.fallback = nil
	s.mu.Unlock()

	ctx := context.Background()
	files, err := s.cfg.Picker.Pick(ctx, PickerRequest{
		Accept:   "image/*",
		Capture:  FacingEnvironment,
		Multiple: true,
	})
	if err != nil {
		logging.Warn("Fallback picker failed: %v", err)
		s.mu.Lock()
		if s.generation == gen {
			s.lastErr = err
		}
		s.mu.Unlock()
		return
	}
	logging.Info("Fallback picker returned %d files for slot %s", len(files), sl)
	s.cfg.Handler.HandleBatch(ctx, files, sl)
}

// SwitchDevice stops the active track and opens the next device, cycling
// modulo the device count.
func (s *Session) SwitchDevice(ctx context.Context) error {
	s.mu.Lock()
	if s.state != Previewing {
		s.mu.Unlock()
		return ErrNotActive
	}
	if len(s.devices) < 2 {
		s.mu.Unlock()
		return nil
	}
	next := (s.current + 1) % len(s.devices)
	old := s.track
	s.track = nil
	s.current = next
	id := s.devices[next].ID
	gen := s.generation
	s.setState(Requesting)
	preview := s.cfg.Preview
	s.mu.Unlock()

	if preview != nil {
		preview.Detach()
	}
	old.stop()

	logging.Debug("Switching camera to device %d (%s)", next, id)
	return s.acquire(ctx, gen, Constraints{DeviceID: id})
}

// ToggleFlash flips the flash flag. Hardware torch control is best-effort.
func (s *Session) ToggleFlash() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.flashOn = !s.flashOn
	if s.track != nil && s.flashSupported {
		if err := s.track.stream.SetTorch(s.flashOn); err != nil {
			logging.Debug("Torch control ignored: %v", err)
		}
	}
	return s.flashOn
}

// Capture grabs the current frame, encodes it as JPEG and hands it to the
// Handler without waiting. The upload outlives the session.
func (s *Session) Capture(ctx context.Context) (media.File, error) {
	s.mu.Lock()
	if s.state != Previewing || s.track == nil {
		s.mu.Unlock()
		return media.File{}, ErrNotActive
	}
	stream := s.track.stream
	sl := s.slot
	gen := s.generation
	s.mu.Unlock()

	frame, err := stream.Frame(ctx)
	if err != nil {
		return media.File{}, fmt.Errorf("failed to read frame: %w", err)
	}
	data, err := media.EncodeJPEG(frame, CaptureQuality)
	if err != nil {
		return media.File{}, fmt.Errorf("failed to encode frame: %w", err)
	}

	now := time.Now()
	f := media.NewFile(fmt.Sprintf("%s_%d.jpg", sl, now.UnixMilli()), media.MimeJPEG, data, now)

	s.mu.Lock()
	if s.generation != gen || s.state != Previewing {
		s.mu.Unlock()
		return media.File{}, ErrClosed
	}
	s.captured = &f
	s.setState(Captured)
	s.mu.Unlock()

	bounds := frame.Bounds()
	logging.Info("Captured %dx%d frame for slot %s", bounds.Dx(), bounds.Dy(), sl)

	uploadCtx := context.WithoutCancel(ctx)
	s.background.Add(1)
	go func() {
		defer s.background.Done()
		s.cfg.Handler.Handle(uploadCtx, f, sl)
	}()
	return f, nil
}

// Retake discards the captured preview and resumes previewing.
func (s *Session) Retake() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Captured {
		return ErrNotActive
	}
	s.captured = nil
	s.setState(Previewing)
	return nil
}

// Close ends the dialog from any state. It cancels a pending acquisition
// or fallback, stops the active track and detaches the preview. Uploads
// already started continue.
func (s *Session) Close() {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	if s.fallback != nil && s.fallback.Stop() {
		s.background.Done()
	}
	s.fallback = nil
	t := s.track
	s.track = nil
	wasIdle := s.state == Idle
	s.generation++
	s.captured = nil
	s.devices = nil
	s.current = 0
	s.flashOn = false
	s.flashSupported = false
	s.setState(Idle)
	preview := s.cfg.Preview
	s.mu.Unlock()

	t.stop()
	if preview != nil && !wasIdle {
		func() {
			defer func() {
				if r := recover(); r != nil {
					logging.Warn("Preview detach panicked: %v", r)
				}
			}()
			preview.Detach()
		}()
	}
}

// Wait blocks until scheduled fallbacks and started uploads finish.
func (s *Session) Wait() {
	s.background.Wait()
}
