package handlers

import (
	"fmt"
	"net/http"

	"inspection-capture/internal/logging"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsHandler serves the storage, pipeline and HTTP metrics. Database
// connection gauges are refreshed on every scrape so they do not wait for
// the stats collector.
func (h *Handlers) MetricsHandler() http.Handler {
	exporter := promhttp.HandlerFor(prometheus.DefaultGatherer, promhttp.HandlerOpts{
		ErrorLog:          scrapeErrorLog{},
		ErrorHandling:     promhttp.ContinueOnError,
		EnableOpenMetrics: true,
	})
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.db.UpdateDBMetrics()
		exporter.ServeHTTP(w, r)
	})
}

type scrapeErrorLog struct{}

func (scrapeErrorLog) Println(v ...interface{}) {
	logging.Error("Metrics scrape: %s", fmt.Sprint(v...))
}
