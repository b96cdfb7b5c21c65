package capture

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"inspection-capture/internal/logging"
	"inspection-capture/internal/media"
	"inspection-capture/internal/slot"
)

// PickKind names the picker entry points that bypass the camera.
type PickKind string

const (
	PickLibrary    PickKind = "library"
	PickTire       PickKind = "tire"
	PickChooseFile PickKind = "choose-file"
)

// Request returns the picker configuration of the entry point.
func (k PickKind) Request() (PickerRequest, error) {
	switch k {
	case PickLibrary:
		return PickerRequest{Accept: "image/*", Multiple: true}, nil
	case PickTire:
		return PickerRequest{Accept: "image/*", Capture: FacingEnvironment}, nil
	case PickChooseFile:
		return PickerRequest{Accept: "image/*,.heic,.heif", Multiple: true}, nil
	default:
		return PickerRequest{}, fmt.Errorf("unknown picker %q", string(k))
	}
}

// PickFiles opens the picker for kind and routes the selection to h in
// order. It does not touch any camera session.
func PickFiles(ctx context.Context, p Picker, h Handler, sl slot.Slot, kind PickKind) (int, error) {
	req, err := kind.Request()
	if err != nil {
		return 0, err
	}
	files, err := p.Pick(ctx, req)
	if err != nil {
		return 0, fmt.Errorf("picker failed: %w", err)
	}
	if !req.Multiple && len(files) > 1 {
		files = files[:1]
	}
	logging.Debug("Picker %s selected %d files for slot %s", kind, len(files), sl)
	h.HandleBatch(ctx, files, sl)
	return len(files), nil
}

// PathPicker "selects" a fixed list of local files.
type PathPicker struct {
	Paths []string
	// OnSkip, if set, is told about every path that could not be read.
	OnSkip func(path string, err error)
}

// Pick reads every path in order. Files that cannot be read are skipped
// and reported to OnSkip.
func (p PathPicker) Pick(ctx context.Context, req PickerRequest) ([]media.File, error) {
	files := make([]media.File, 0, len(p.Paths))
	for _, path := range p.Paths {
		if err := ctx.Err(); err != nil {
			return files, err
		}
		f, err := ReadFile(path)
		if err != nil {
			logging.Warn("Skipping %s: %v", path, err)
			if p.OnSkip != nil {
				p.OnSkip(path, err)
			}
			continue
		}
		files = append(files, f)
		if !req.Multiple {
			break
		}
	}
	return files, nil
}

// ReadFile loads a local file with its MIME type guessed from the name.
func ReadFile(path string) (media.File, error) {
	info, err := os.Stat(path)
	if err != nil {
		return media.File{}, err
	}
	if info.IsDir() {
		return media.File{}, fmt.Errorf("%s is a directory", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return media.File{}, err
	}
	name := filepath.Base(path)
	return media.NewFile(name, media.TypeByName(name), data, info.ModTime()), nil
}
