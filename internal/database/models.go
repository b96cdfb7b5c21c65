package database

import (
	"time"

	"inspection-capture/internal/slot"
)

// Photo is a stored upload.
type Photo struct {
	ID           string    `json:"id"`
	Slot         slot.Slot `json:"slot"`
	Name         string    `json:"name"`
	MimeType     string    `json:"mimeType"`
	Size         int64     `json:"size"`
	Width        int       `json:"width,omitempty"`
	Height       int       `json:"height,omitempty"`
	LastModified time.Time `json:"lastModified"`
	// StoredPath is relative to the photo store root.
	StoredPath string    `json:"-"`
	Position   int       `json:"position"`
	Deleted    bool      `json:"deleted,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
	URL        string    `json:"url,omitempty"`
}

// Stats summarises the database contents.
type Stats struct {
	PhotosBySlot     map[slot.Slot]int `json:"photosBySlot"`
	TotalPhotos      int               `json:"totalPhotos"`
	DeletedPhotos    int               `json:"deletedPhotos"`
	TelemetryEntries int               `json:"telemetryEntries"`
	FailedEntries    int               `json:"failedEntries"`
}
