// Package gallery keeps the per-slot collections of uploaded photos shown
// to the technician, with their progress, remote location and position.
package gallery

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"inspection-capture/internal/logging"
	"inspection-capture/internal/media"
	"inspection-capture/internal/slot"
	"inspection-capture/internal/upload"

	"github.com/google/uuid"
)

var (
	// ErrDeleted is returned when an operation targets a deleted upload.
	ErrDeleted = errors.New("upload has been deleted")
	// ErrNotFound is returned for unknown upload IDs or positions.
	ErrNotFound = errors.New("upload not found")
)

// Source is the metadata of the file an upload was created from.
type Source struct {
	Name         string    `json:"name"`
	Type         string    `json:"type"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"lastModified"`
}

// ImageUpload tracks one photo from selection to its remote location.
// It never holds both Error and RemoteURL.
type ImageUpload struct {
	ID        string    `json:"id"`
	Slot      slot.Slot `json:"slot"`
	Source    Source    `json:"source"`
	Progress  int       `json:"progress"`
	RemoteURL string    `json:"remoteUrl,omitempty"`
	Error     string    `json:"error,omitempty"`
	// Position is 1-based within the slot; 0 means unplaced.
	Position  int  `json:"position,omitempty"`
	IsDeleted bool `json:"isDeleted,omitempty"`
}

// Uploader stores a file remotely and returns its URL. progress receives
// percentages in 0..100.
type Uploader interface {
	Put(ctx context.Context, f media.File, s slot.Slot, progress func(int)) (string, error)
}

// Callbacks notify the embedding surface of gallery actions.
type Callbacks struct {
	// OnDeleteImage fires exactly once per successful Delete.
	OnDeleteImage func(s slot.Slot, index int)
	OnImageClick  func(photos []ImageUpload, s slot.Slot)
}

// Gallery is safe for concurrent use.
type Gallery struct {
	mu    sync.Mutex
	slots map[slot.Slot][]*ImageUpload
	byID  map[string]*ImageUpload
	cb    Callbacks
}

// New creates an empty gallery.
func New(cb Callbacks) *Gallery {
	return &Gallery{
		slots: make(map[slot.Slot][]*ImageUpload),
		byID:  make(map[string]*ImageUpload),
		cb:    cb,
	}
}

// Track appends a pending upload for f to the slot.
func (g *Gallery) Track(f media.File, s slot.Slot) ImageUpload {
	g.mu.Lock()
	defer g.mu.Unlock()

	u := &ImageUpload{
		ID:   uuid.NewString(),
		Slot: s,
		Source: Source{
			Name:         f.Name,
			Type:         f.Type,
			Size:         f.Size,
			LastModified: f.LastModified,
		},
	}
	g.slots[s] = append(g.slots[s], u)
	u.Position = len(g.slots[s])
	g.byID[u.ID] = u
	return *u
}

// Load replaces the slot contents with uploads that already exist
// remotely, such as a listing fetched from the server.
func (g *Gallery) Load(s slot.Slot, uploads []ImageUpload) {
	g.mu.Lock()
	defer g.mu.Unlock()

	for _, old := range g.slots[s] {
		delete(g.byID, old.ID)
	}
	list := make([]*ImageUpload, 0, len(uploads))
	for _, u := range uploads {
		if u.IsDeleted {
			continue
		}
		u := u
		u.Slot = s
		u.Position = len(list) + 1
		if u.ID == "" {
			u.ID = uuid.NewString()
		}
		list = append(list, &u)
		g.byID[u.ID] = &u
	}
	g.slots[s] = list
}

// SetProgress records upload progress, clamped to 0..100.
func (g *Gallery) SetProgress(id string, percent int) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	u, err := g.lookup(id)
	if err != nil {
		return err
	}
	u.Progress = max(0, min(100, percent))
	return nil
}

// Complete marks an upload as stored at remoteURL.
func (g *Gallery) Complete(id, remoteURL string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	u, err := g.lookup(id)
	if err != nil {
		return err
	}
	u.RemoteURL = remoteURL
	u.Error = ""
	u.Progress = 100
	return nil
}

// Fail marks an upload as failed.
func (g *Gallery) Fail(id, message string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	u, err := g.lookup(id)
	if err != nil {
		return err
	}
	u.Error = message
	u.RemoteURL = ""
	return nil
}

func (g *Gallery) lookup(id string) (*ImageUpload, error) {
	u, ok := g.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if u.IsDeleted {
		return nil, ErrDeleted
	}
	return u, nil
}

// Get returns a copy of the upload with the given ID, deleted or not.
func (g *Gallery) Get(id string) (ImageUpload, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	u, ok := g.byID[id]
	if !ok {
		return ImageUpload{}, false
	}
	return *u, true
}

// Photos returns the visible uploads of a slot in position order.
func (g *Gallery) Photos(s slot.Slot) []ImageUpload {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.photos(s)
}

func (g *Gallery) photos(s slot.Slot) []ImageUpload {
	out := make([]ImageUpload, 0, len(g.slots[s]))
	for _, u := range g.slots[s] {
		out = append(out, *u)
	}
	return out
}

// Delete removes the upload at the 0-based index from the slot view,
// marks it deleted and renumbers the remaining positions.
func (g *Gallery) Delete(s slot.Slot, index int) error {
	g.mu.Lock()
	list := g.slots[s]
	if index < 0 || index >= len(list) {
		g.mu.Unlock()
		return fmt.Errorf("%w: %s[%d]", ErrNotFound, s, index)
	}

	list[index].IsDeleted = true
	list[index].Position = 0
	list = append(list[:index:index], list[index+1:]...)
	for i, u := range list {
		u.Position = i + 1
	}
	g.slots[s] = list
	onDelete := g.cb.OnDeleteImage
	g.mu.Unlock()

	logging.Debug("Deleted photo %d from slot %s", index, s)
	if onDelete != nil {
		onDelete(s, index)
	}
	return nil
}

// Open fires OnImageClick with the slot's visible photos.
func (g *Gallery) Open(s slot.Slot) {
	g.mu.Lock()
	photos := g.photos(s)
	onClick := g.cb.OnImageClick
	g.mu.Unlock()

	if onClick != nil {
		onClick(photos, s)
	}
}

// Sink returns an upload sink that tracks each file in the gallery before
// handing it to up. Uploads deleted before transfer never reach up.
func (g *Gallery) Sink(up Uploader) upload.Sink {
	return upload.SinkFunc(func(ctx context.Context, f media.File, s slot.Slot) error {
		tracked := g.Track(f, s)
		return g.transfer(ctx, tracked.ID, f, s, up)
	})
}

func (g *Gallery) transfer(ctx context.Context, id string, f media.File, s slot.Slot, up Uploader) error {
	if current, ok := g.Get(id); !ok || current.IsDeleted {
		return ErrDeleted
	}

	url, err := up.Put(ctx, f, s, func(p int) {
		_ = g.SetProgress(id, p)
	})
	if err != nil {
		_ = g.Fail(id, err.Error())
		return err
	}
	if err := g.Complete(id, url); err != nil {
		logging.Debug("Upload %s finished after deletion, discarding %s", id, url)
	}
	return nil
}
