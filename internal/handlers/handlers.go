package handlers

import (
	"sync"
	"time"

	"inspection-capture/internal/database"
	"inspection-capture/internal/memory"
	"inspection-capture/internal/startup"
	"inspection-capture/internal/storage"
	"inspection-capture/internal/streaming"
	"inspection-capture/internal/telemetry"
	"inspection-capture/internal/workers"
)

// Handlers serves the storage API used by capture agents.
type Handlers struct {
	db        *database.Database
	photos    *storage.Photos
	telemetry *telemetry.Log
	view      *telemetry.View
	// ingestMu keeps the database sequence and the in-memory log in the
	// same order.
	ingestMu  sync.Mutex
	maxUpload int64
	memory    *memory.Guard
	uploads   *workers.Limiter
	download  streaming.Config
	started   time.Time
}

// New creates the handlers. log holds every ingested telemetry entry and
// view is the operator's cleared presentation of it.
func New(db *database.Database, photos *storage.Photos, log *telemetry.Log, view *telemetry.View, config *startup.Config) *Handlers {
	maxUpload := int64(startup.DefaultMaxUploadSize)
	concurrency := 0
	download := streaming.DefaultConfig()
	if config != nil {
		if config.MaxUploadSize > 0 {
			maxUpload = config.MaxUploadSize
		}
		concurrency = config.UploadConcurrency
		if config.DownloadWriteTimeout > 0 {
			download.WriteTimeout = config.DownloadWriteTimeout
		}
	}
	if concurrency <= 0 {
		concurrency = workers.ForIO(startup.MaxUploadConcurrency)
	}
	return &Handlers{
		db:        db,
		photos:    photos,
		telemetry: log,
		view:      view,
		maxUpload: maxUpload,
		uploads:   workers.NewLimiter(concurrency),
		download:  download,
		started:   time.Now(),
	}
}

// SetMemoryGuard makes uploads fail fast with 503 while the guard reports
// memory pressure.
func (h *Handlers) SetMemoryGuard(g *memory.Guard) {
	h.memory = g
}
