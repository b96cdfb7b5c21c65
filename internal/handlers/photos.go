package handlers

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"inspection-capture/internal/database"
	"inspection-capture/internal/logging"
	"inspection-capture/internal/media"
	"inspection-capture/internal/slot"
	"inspection-capture/internal/streaming"

	"github.com/gorilla/mux"
)

// multipartMemory is the part of a multipart body kept in memory before
// spilling to temporary files.
const multipartMemory = 8 << 20

// Form fields of a photo upload.
const (
	FormFile         = "file"
	FormLastModified = "lastModified"
)

// UploadResponse is returned for a stored photo.
type UploadResponse struct {
	ID       string `json:"id"`
	URL      string `json:"url"`
	Position int    `json:"position"`
}

// DeleteResponse is returned for a deleted photo.
type DeleteResponse struct {
	ID    string    `json:"id"`
	Slot  slot.Slot `json:"slot"`
	Index int       `json:"index"`
}

// PhotoURL is the download location of a stored photo.
func PhotoURL(id string) string {
	return "/api/photos/" + id
}

func slotVar(w http.ResponseWriter, r *http.Request) (slot.Slot, bool) {
	sl, err := slot.Parse(mux.Vars(r)["slot"])
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return "", false
	}
	return sl, true
}

// UploadPhoto is the upload sink: it stores the multipart "file" part at
// the end of the slot.
func (h *Handlers) UploadPhoto(w http.ResponseWriter, r *http.Request) {
	sl, ok := slotVar(w, r)
	if !ok {
		return
	}

	if !h.memory.Admit() {
		w.Header().Set("Retry-After", "5")
		writeJSONError(w, "server is low on memory, retry shortly", http.StatusServiceUnavailable)
		return
	}
	if err := h.uploads.Acquire(r.Context()); err != nil {
		logging.Debug("Upload to slot %s abandoned while queued: %v", sl, err)
		return
	}
	defer h.uploads.Release()

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSONError(w, "upload exceeds size limit", http.StatusRequestEntityTooLarge)
			return
		}
		writeJSONError(w, "invalid multipart form", http.StatusBadRequest)
		return
	}
	defer func() {
		if err := r.MultipartForm.RemoveAll(); err != nil {
			logging.Debug("failed to remove multipart temp files: %v", err)
		}
	}()

	part, header, err := r.FormFile(FormFile)
	if err != nil {
		writeJSONError(w, "missing file", http.StatusBadRequest)
		return
	}
	defer part.Close()

	data, err := io.ReadAll(part)
	if err != nil {
		writeJSONError(w, "failed to read file", http.StatusBadRequest)
		return
	}
	if len(data) == 0 {
		writeJSONError(w, "empty file", http.StatusBadRequest)
		return
	}

	mimeType := header.Header.Get("Content-Type")
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = media.TypeByName(header.Filename)
	}
	if !strings.HasPrefix(mimeType, "image/") {
		writeJSONError(w, "unsupported file type", http.StatusUnsupportedMediaType)
		return
	}

	lastModified := time.Now()
	if v := r.FormValue(FormLastModified); v != "" {
		ms, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			writeJSONError(w, "invalid lastModified", http.StatusBadRequest)
			return
		}
		lastModified = time.UnixMilli(ms)
	}

	photo, err := h.photos.Put(r.Context(), media.NewFile(header.Filename, mimeType, data, lastModified), sl)
	if err != nil {
		logging.Error("Failed to store photo %q for slot %s: %v", header.Filename, sl, err)
		writeJSONError(w, "failed to store photo", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Location", PhotoURL(photo.ID))
	writeJSONResponse(w, http.StatusCreated, UploadResponse{
		ID:       photo.ID,
		URL:      PhotoURL(photo.ID),
		Position: photo.Position,
	})
}

// ListPhotos returns the visible photos of a slot in position order.
func (h *Handlers) ListPhotos(w http.ResponseWriter, r *http.Request) {
	sl, ok := slotVar(w, r)
	if !ok {
		return
	}

	photos, err := h.photos.List(r.Context(), sl)
	if err != nil {
		logging.Error("Failed to list photos for slot %s: %v", sl, err)
		writeJSONError(w, "failed to list photos", http.StatusInternalServerError)
		return
	}
	for i := range photos {
		photos[i].URL = PhotoURL(photos[i].ID)
	}
	writeJSONResponse(w, http.StatusOK, photos)
}

// DeletePhoto is the deletion notifier target. index is 0-based among the
// visible photos of the slot.
func (h *Handlers) DeletePhoto(w http.ResponseWriter, r *http.Request) {
	sl, ok := slotVar(w, r)
	if !ok {
		return
	}
	index, err := strconv.Atoi(mux.Vars(r)["index"])
	if err != nil || index < 0 {
		writeJSONError(w, "invalid index", http.StatusBadRequest)
		return
	}

	photo, err := h.photos.Delete(r.Context(), sl, index)
	if errors.Is(err, database.ErrNotFound) {
		writeJSONError(w, "photo not found", http.StatusNotFound)
		return
	}
	if err != nil {
		logging.Error("Failed to delete photo %s[%d]: %v", sl, index, err)
		writeJSONError(w, "failed to delete photo", http.StatusInternalServerError)
		return
	}

	writeJSONResponse(w, http.StatusOK, DeleteResponse{ID: photo.ID, Slot: sl, Index: index})
}

// GetPhoto serves the stored content of a photo.
func (h *Handlers) GetPhoto(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	photo, err := h.photos.Get(r.Context(), id)
	if errors.Is(err, database.ErrNotFound) {
		http.Error(w, "Photo not found", http.StatusNotFound)
		return
	}
	if err != nil {
		logging.Error("Failed to look up photo %s: %v", id, err)
		http.Error(w, "Failed to load photo", http.StatusInternalServerError)
		return
	}

	f, err := h.photos.Open(photo)
	if err != nil {
		logging.Error("Photo %s is recorded but unreadable: %v", id, err)
		http.Error(w, "Photo content unavailable", http.StatusNotFound)
		return
	}
	defer f.Close()

	sw := streaming.NewWriter(r.Context(), w, h.download)
	defer func() {
		if err := sw.Close(); err != nil {
			logging.Debug("Failed to clear write deadline for photo %s: %v", id, err)
		}
	}()

	sw.Header().Set("Content-Type", photo.MimeType)
	sw.Header().Set("Cache-Control", "private, max-age=86400")
	http.ServeContent(sw, r, photo.Name, photo.CreatedAt, f)

	if n, d := sw.Stats(); n > 0 {
		logging.Debug("Served photo %s: %d bytes in %v", id, n, d)
	}
}
