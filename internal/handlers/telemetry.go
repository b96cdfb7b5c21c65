package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"inspection-capture/internal/capability"
	"inspection-capture/internal/logging"
	"inspection-capture/internal/telemetry"
)

const maxTelemetryBody = 1 << 20

// TelemetryReport is the operator view of the telemetry log.
type TelemetryReport struct {
	// Offset is the log position of the first returned entry.
	Offset  int               `json:"offset"`
	Total   int               `json:"total"`
	Entries []telemetry.Entry `json:"entries"`
}

// IngestTelemetry records an entry sent by a capture agent. Missing
// browser, user agent or capability fields are filled from the request.
// Entries are idempotent by ID.
func (h *Handlers) IngestTelemetry(w http.ResponseWriter, r *http.Request) {
	var entry telemetry.Entry
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxTelemetryBody)).Decode(&entry); err != nil {
		writeJSONError(w, "invalid telemetry entry", http.StatusBadRequest)
		return
	}
	if entry.ID == "" || entry.Timestamp.IsZero() {
		writeJSONError(w, "telemetry entry requires id and timestamp", http.StatusBadRequest)
		return
	}

	env := capability.FromRequest(r)
	if entry.UserAgent == "" {
		entry.UserAgent = r.UserAgent()
	}
	if entry.Browser == "" {
		entry.Browser = capability.ClassifyBrowser(entry.UserAgent)
	}
	if entry.Capabilities == (capability.Report{}) && r.Header.Get(capability.HeaderFileInput) != "" {
		entry.Capabilities = capability.Probe(env)
	}

	h.ingestMu.Lock()
	defer h.ingestMu.Unlock()
	inserted, err := h.db.InsertTelemetry(r.Context(), entry)
	if err != nil {
		logging.Error("Failed to persist telemetry entry %s: %v", entry.ID, err)
		writeJSONError(w, "failed to store telemetry", http.StatusInternalServerError)
		return
	}
	if !inserted {
		logging.Debug("Telemetry entry %s already recorded", entry.ID)
		writeJSONResponse(w, http.StatusOK, entry)
		return
	}

	h.telemetry.Append(entry)
	writeJSONResponse(w, http.StatusCreated, entry)
}

// GetTelemetry returns the entries visible since the last clear, or every
// entry from ?since= on.
func (h *Handlers) GetTelemetry(w http.ResponseWriter, r *http.Request) {
	report := TelemetryReport{Total: h.telemetry.Len()}

	if v := r.URL.Query().Get("since"); v != "" {
		since, err := strconv.Atoi(v)
		if err != nil || since < 0 {
			writeJSONError(w, "invalid since", http.StatusBadRequest)
			return
		}
		report.Offset = since
		report.Entries = h.telemetry.Since(since)
	} else {
		report.Offset = h.view.Offset()
		report.Entries = h.view.Entries()
	}

	w.Header().Set("Cache-Control", "no-cache")
	writeJSONResponse(w, http.StatusOK, report)
}

// ClearTelemetry hides every current entry from the report. The log and
// the database keep them.
func (h *Handlers) ClearTelemetry(w http.ResponseWriter, r *http.Request) {
	h.ingestMu.Lock()
	h.view.Clear()
	offset := h.view.Offset()
	err := h.db.SetTelemetryViewOffset(r.Context(), offset)
	h.ingestMu.Unlock()
	if err != nil {
		logging.Error("Failed to persist telemetry view offset %d: %v", offset, err)
		writeJSONError(w, "failed to persist clear", http.StatusInternalServerError)
		return
	}
	logging.Info("Telemetry view cleared at offset %d", offset)
	writeJSONResponse(w, http.StatusOK, TelemetryReport{
		Offset:  offset,
		Total:   h.telemetry.Len(),
		Entries: []telemetry.Entry{},
	})
}
