// Package storage keeps uploaded photos on disk and their records in the
// database. It is the persistence behind the server's upload sink.
package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"inspection-capture/internal/database"
	"inspection-capture/internal/filesystem"
	"inspection-capture/internal/logging"
	"inspection-capture/internal/media"
	"inspection-capture/internal/slot"

	"github.com/google/uuid"
)

// ErrInvalidPath rejects stored paths that escape the store root.
var ErrInvalidPath = errors.New("invalid stored path")

// Store writes photo files below a root directory, one sub-directory per
// slot.
type Store struct {
	root  string
	retry filesystem.RetryConfig
}

// NewStore creates the root directory if needed.
func NewStore(root string, retry filesystem.RetryConfig) (*Store, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create photo directory: %w", err)
	}
	return &Store{root: root, retry: retry}, nil
}

// Root returns the store directory.
func (s *Store) Root() string {
	return s.root
}

// Write stores data as <slot>/<id>.jpg and returns the relative path.
func (s *Store) Write(sl slot.Slot, id string, data []byte) (string, error) {
	rel := filepath.Join(sl.String(), id+".jpg")
	abs, err := s.resolve(rel)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return "", err
	}
	if err := filesystem.WriteFileWithRetry(abs, data, 0o644, s.retry); err != nil {
		return "", err
	}
	return rel, nil
}

// Open opens a stored photo.
func (s *Store) Open(rel string) (*os.File, error) {
	abs, err := s.resolve(rel)
	if err != nil {
		return nil, err
	}
	return filesystem.OpenWithRetry(abs, s.retry)
}

// Stat returns the file info of a stored photo.
func (s *Store) Stat(rel string) (os.FileInfo, error) {
	abs, err := s.resolve(rel)
	if err != nil {
		return nil, err
	}
	return filesystem.StatWithRetry(abs, s.retry)
}

// Remove deletes a stored photo.
func (s *Store) Remove(rel string) error {
	abs, err := s.resolve(rel)
	if err != nil {
		return err
	}
	return filesystem.RemoveWithRetry(abs, s.retry)
}

func (s *Store) resolve(rel string) (string, error) {
	clean := filepath.Clean(rel)
	if filepath.IsAbs(clean) || clean == "." || strings.HasPrefix(clean, "..") {
		return "", fmt.Errorf("%w: %s", ErrInvalidPath, rel)
	}
	return filepath.Join(s.root, clean), nil
}

// Photos combines the file store with the photo records.
type Photos struct {
	db    *database.Database
	store *Store
}

// NewPhotos creates the photo service.
func NewPhotos(db *database.Database, store *Store) *Photos {
	return &Photos{db: db, store: store}
}

// Put stores f at the end of the slot. The file is written before the
// record so a listed photo always has content.
func (p *Photos) Put(ctx context.Context, f media.File, sl slot.Slot) (*database.Photo, error) {
	if !sl.Valid() {
		return nil, fmt.Errorf("invalid slot %q", sl)
	}

	id := uuid.NewString()
	rel, err := p.store.Write(sl, id, f.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to write photo: %w", err)
	}

	photo := &database.Photo{
		ID:           id,
		Slot:         sl,
		Name:         f.Name,
		MimeType:     f.Type,
		Size:         int64(len(f.Data)),
		LastModified: f.LastModified,
		StoredPath:   rel,
	}
	if dims, err := media.DecodeDimensions(f.Data); err == nil {
		photo.Width, photo.Height = dims.Width, dims.Height
	}

	if err := p.db.InsertPhoto(ctx, photo); err != nil {
		if rmErr := p.store.Remove(rel); rmErr != nil {
			logging.Warn("Failed to remove orphaned photo %s: %v", rel, rmErr)
		}
		return nil, fmt.Errorf("failed to record photo: %w", err)
	}

	logging.Info("Stored photo %s for slot %s at position %d (%d bytes)", id, sl, photo.Position, photo.Size)
	return photo, nil
}

// List returns the visible photos of a slot.
func (p *Photos) List(ctx context.Context, sl slot.Slot) ([]database.Photo, error) {
	return p.db.ListPhotos(ctx, sl)
}

// Get returns a photo record that has not been deleted.
func (p *Photos) Get(ctx context.Context, id string) (*database.Photo, error) {
	photo, err := p.db.GetPhoto(ctx, id)
	if err != nil {
		return nil, err
	}
	if photo.Deleted {
		return nil, fmt.Errorf("photo %s: %w", id, database.ErrNotFound)
	}
	return photo, nil
}

// Open opens the content of a photo.
func (p *Photos) Open(photo *database.Photo) (*os.File, error) {
	return p.store.Open(photo.StoredPath)
}

// Delete removes the photo at the 0-based index of the slot. The record is
// kept; the file is removed.
func (p *Photos) Delete(ctx context.Context, sl slot.Slot, index int) (*database.Photo, error) {
	photo, err := p.db.DeletePhotoAt(ctx, sl, index)
	if err != nil {
		return nil, err
	}
	if err := p.store.Remove(photo.StoredPath); err != nil {
		logging.Warn("Photo %s deleted but file removal failed: %v", photo.ID, err)
	}
	logging.Info("Deleted photo %s (slot %s, index %d)", photo.ID, sl, index)
	return photo, nil
}
