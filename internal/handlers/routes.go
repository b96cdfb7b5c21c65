package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
)

// Routes registers the application routes on r.
func (h *Handlers) Routes(r *mux.Router) {
	r.HandleFunc("/health", h.HealthCheck).Methods(http.MethodGet)
	r.HandleFunc("/healthz", h.HealthCheck).Methods(http.MethodGet)
	r.HandleFunc("/livez", h.LivenessCheck).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc("/readyz", h.ReadinessCheck).Methods(http.MethodGet)
	r.HandleFunc("/version", h.GetVersion).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/slots", h.ListSlots).Methods(http.MethodGet)
	api.HandleFunc("/slots/{slot}/photos", h.ListPhotos).Methods(http.MethodGet)
	api.HandleFunc("/slots/{slot}/photos", h.UploadPhoto).Methods(http.MethodPost)
	api.HandleFunc("/slots/{slot}/photos/{index:[0-9]+}", h.DeletePhoto).Methods(http.MethodDelete)
	api.HandleFunc("/photos/{id}", h.GetPhoto).Methods(http.MethodGet, http.MethodHead)

	api.HandleFunc("/telemetry", h.GetTelemetry).Methods(http.MethodGet)
	api.HandleFunc("/telemetry", h.IngestTelemetry).Methods(http.MethodPost)
	api.HandleFunc("/telemetry", h.ClearTelemetry).Methods(http.MethodDelete)

	api.HandleFunc("/capabilities", h.GetCapabilities).Methods(http.MethodGet)
}
