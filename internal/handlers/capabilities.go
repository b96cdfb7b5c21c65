package handlers

import (
	"net/http"

	"inspection-capture/internal/capability"
	"inspection-capture/internal/slot"
)

// CapabilitiesResponse describes the calling browser.
type CapabilitiesResponse struct {
	Browser  capability.Browser `json:"browser"`
	IsSafari bool               `json:"isSafari"`
	capability.Report
}

// GetCapabilities probes the calling browser from its user agent and
// client hint headers.
func (h *Handlers) GetCapabilities(w http.ResponseWriter, r *http.Request) {
	env := capability.FromRequest(r)
	browser := capability.BrowserOf(env)

	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Vary", "User-Agent")
	writeJSONResponse(w, http.StatusOK, CapabilitiesResponse{
		Browser:  browser,
		IsSafari: browser.IsSafari(),
		Report:   capability.Probe(env),
	})
}

// ListSlots returns the slot catalogue with guide flags.
func (h *Handlers) ListSlots(w http.ResponseWriter, _ *http.Request) {
	writeJSONResponse(w, http.StatusOK, slot.All())
}
