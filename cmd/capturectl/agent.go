package main

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"sync"

	"inspection-capture/internal/capability"
	"inspection-capture/internal/capture"
	"inspection-capture/internal/gallery"
	"inspection-capture/internal/logging"
	"inspection-capture/internal/media"
	"inspection-capture/internal/metrics"
	"inspection-capture/internal/remote"
	"inspection-capture/internal/slot"
	"inspection-capture/internal/startup"
	"inspection-capture/internal/telemetry"
	"inspection-capture/internal/upload"
)

// agent is one capturectl run: the upload pipeline, the local gallery and
// the telemetry log, all talking to a single storage server.
type agent struct {
	cfg      *startup.AgentConfig
	client   *remote.Client
	env      capability.StaticEnvironment
	log      *telemetry.Log
	gallery  *gallery.Gallery
	uploader *upload.Orchestrator
	banner   *termBanner
	vips     bool
	// viewer receives the photos of a slot opened from the gallery.
	viewer   func(photos []gallery.ImageUpload, s slot.Slot)

	mu        sync.Mutex
	failures  []string
	skipped   int
	deleteErr error
}

// newAgent wires the pipeline. cameraDir is the capture rig root; empty
// means the agent has no camera.
func newAgent(cfg *startup.AgentConfig, errOut io.Writer, cameraDir string) (*agent, error) {
	client, err := newClient(cfg)
	if err != nil {
		return nil, err
	}

	a := &agent{
		cfg:    cfg,
		client: client,
		banner: newTermBanner(errOut),
	}

	var lib media.HEICLibrary
	if cfg.HEIC {
		if err := media.InitVips(); err != nil {
			logging.Warn("HEIC conversion disabled: %v", err)
		} else {
			a.vips = true
			lib = media.VipsLibrary{}
		}
	}

	a.env = capability.StaticEnvironment{
		Agent:        cfg.UserAgent,
		HasFileInput: true,
		HasFileAPI:   true,
		HasCamera: func() bool {
			if cameraDir == "" {
				return false
			}
			devices, err := capture.DirRig{Root: cameraDir}.Devices(context.Background())
			return err == nil && len(devices) > 0
		},
		HEIC: func() bool { return lib != nil && media.IsVipsAvailable() },
	}
	client.SetHints(capability.Probe(a.env))

	pipeline := metrics.NewPipelineObserver()
	a.log = telemetry.NewLog(a.env, pipeline)
	a.log.AddExporter(client)

	a.gallery = gallery.New(gallery.Callbacks{
		OnDeleteImage: a.notifyDelete,
		OnImageClick:  a.openPhotos,
	})

	options := upload.DefaultOptions()
	options.Normalize = cfg.Normalize
	options.Normalization = media.Options{
		Quality:   cfg.Quality,
		MaxWidth:  cfg.MaxWidth,
		MaxHeight: cfg.MaxHeight,
	}

	a.uploader = upload.New(upload.Config{
		Converter:  media.NewConverter(lib, pipeline),
		Normalizer: media.NewNormalizer(media.DefaultRetryConfig(), pipeline),
		Sink:       a.gallery.Sink(client),
		Log:        a.log,
		Env:        a.env,
		OnError:    a.recordFailure,
		Banner:     a.banner,
		Observer:   pipeline,
		Options:    options,
	})

	logging.Debug("Agent ready: server=%s browser=%s normalize=%v heic=%v",
		cfg.ServerURL, capability.BrowserOf(a.env), cfg.Normalize, a.vips)
	return a, nil
}

// Close waits for telemetry exports and releases libvips.
func (a *agent) Close() {
	a.log.Flush()
	if a.vips {
		media.ShutdownVips()
	}
}

func (a *agent) recordFailure(message string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.failures = append(a.failures, message)
}

func (a *agent) openPhotos(photos []gallery.ImageUpload, s slot.Slot) {
	if a.viewer != nil {
		a.viewer(photos, s)
	}
}

// recordSkip counts a picked path that could not be read as a failed file.
func (a *agent) recordSkip(path string, err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.skipped++
	a.failures = append(a.failures, fmt.Sprintf("%s: %v", filepath.Base(path), err))
}

// Skipped returns how many picked paths never reached the pipeline.
func (a *agent) Skipped() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.skipped
}

// Failures returns the user-facing messages of every failed upload.
func (a *agent) Failures() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.failures...)
}

func (a *agent) notifyDelete(s slot.Slot, index int) {
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.RequestTimeout)
	defer cancel()

	err := a.client.Delete(ctx, s, index)
	if err != nil {
		logging.Warn("Server rejected deletion of %s[%d]: %v", s, index, err)
	}
	a.mu.Lock()
	a.deleteErr = err
	a.mu.Unlock()
}

// loadSlot replaces the gallery contents of s with the server's listing.
func (a *agent) loadSlot(ctx context.Context, s slot.Slot) error {
	photos, err := a.client.List(ctx, s)
	if err != nil {
		return fmt.Errorf("failed to list %s: %w", s, err)
	}
	uploads := make([]gallery.ImageUpload, 0, len(photos))
	for _, p := range photos {
		uploads = append(uploads, gallery.ImageUpload{
			ID: p.ID,
			Source: gallery.Source{
				Name:         p.Name,
				Type:         p.MimeType,
				Size:         p.Size,
				LastModified: p.LastModified,
			},
			Progress:  100,
			RemoteURL: p.URL,
		})
	}
	a.gallery.Load(s, uploads)
	return nil
}

// deletePhoto removes the photo at the 0-based index from the gallery and
// reports the server's answer to the deletion notice.
func (a *agent) deletePhoto(s slot.Slot, index int) error {
	a.mu.Lock()
	a.deleteErr = nil
	a.mu.Unlock()

	if err := a.gallery.Delete(s, index); err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	return a.deleteErr
}
