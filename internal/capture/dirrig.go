package capture

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"inspection-capture/internal/media"

	"github.com/disintegration/imaging"
)

// torchFile marks a device directory whose camera has a flash. Its
// content is "on" or "off".
const torchFile = ".torch"

// DirRig serves cameras from a directory tree.
type DirRig struct {
	Root string
}

// Devices lists the sub-directories of Root as devices.
func (r DirRig) Devices(ctx context.Context) ([]Device, error) {
	entries, err := os.ReadDir(r.Root)
	if err != nil {
		return nil, rigError(err)
	}
	var devices []Device
	for _, e := range entries {
		if e.IsDir() && !strings.HasPrefix(e.Name(), ".") {
			devices = append(devices, Device{ID: e.Name(), Label: e.Name()})
		}
	}
	if len(devices) == 0 {
		return nil, ErrNoCamera
	}
	sort.Slice(devices, func(i, j int) bool { return devices[i].ID < devices[j].ID })
	return devices, nil
}

// Open acquires the device named by c.DeviceID, or the first device.
func (r DirRig) Open(ctx context.Context, c Constraints) (Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	id := c.DeviceID
	if id == "" {
		devices, err := r.Devices(ctx)
		if err != nil {
			return nil, err
		}
		id = devices[0].ID
	}
	dir := filepath.Join(r.Root, id)
	info, err := os.Stat(dir)
	if err != nil {
		return nil, rigError(err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a device", ErrNoCamera, id)
	}
	return &dirStream{dir: dir}, nil
}

func rigError(err error) error {
	switch {
	case errors.Is(err, fs.ErrPermission):
		return fmt.Errorf("%w: %v", ErrPermissionDenied, err)
	case errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("%w: %v", ErrNoCamera, err)
	default:
		return err
	}
}

type dirStream struct {
	dir     string
	mu      sync.Mutex
	stopped bool
}

func (s *dirStream) ended() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}

// Frame decodes the newest image in the device directory.
func (s *dirStream) Frame(ctx context.Context) (image.Image, error) {
	if s.ended() {
		return nil, ErrTrackEnded
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}
	var newest string
	var newestInfo fs.FileInfo
	for _, e := range entries {
		if e.IsDir() || media.TypeByName(e.Name()) == "application/octet-stream" {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if newestInfo == nil || info.ModTime().After(newestInfo.ModTime()) {
			newest, newestInfo = e.Name(), info
		}
	}
	if newest == "" {
		return nil, fmt.Errorf("no frame available in %s", s.dir)
	}
	return imaging.Open(filepath.Join(s.dir, newest), imaging.AutoOrientation(true))
}

func (s *dirStream) TorchSupported() bool {
	_, err := os.Stat(filepath.Join(s.dir, torchFile))
	return err == nil
}

func (s *dirStream) SetTorch(on bool) error {
	if !s.TorchSupported() {
		return ErrTorchUnsupported
	}
	state := "off"
	if on {
		state = "on"
	}
	return os.WriteFile(filepath.Join(s.dir, torchFile), []byte(state), 0o644)
}

func (s *dirStream) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
}
