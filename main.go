package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"inspection-capture/internal/database"
	"inspection-capture/internal/filesystem"
	"inspection-capture/internal/handlers"
	"inspection-capture/internal/logging"
	"inspection-capture/internal/memory"
	"inspection-capture/internal/metrics"
	"inspection-capture/internal/middleware"
	"inspection-capture/internal/startup"
	"inspection-capture/internal/storage"
	"inspection-capture/internal/telemetry"

	"github.com/gorilla/mux"
)

func main() {
	startTime := time.Now()
	memory.ConfigureLimit()

	config, err := startup.LoadConfig()
	if err != nil {
		startup.LogFatal("Configuration error: %v", err)
	}

	metrics.InitializeMetrics()
	metrics.SetAppInfo(startup.Version, startup.Commit, startup.GoVersion)
	filesystem.SetObserver(metrics.NewFilesystemObserver())
	filesystem.SetDefaultVolumeResolver(filesystem.NewVolumeResolver(map[string]string{
		"photos":   config.PhotosDir,
		"database": config.DatabaseDir,
	}))

	ctx := context.Background()

	dbStart := time.Now()
	db, err := database.New(ctx, config.DatabasePath)
	if err != nil {
		startup.LogFatal("Failed to initialize database: %v", err)
	}
	defer db.Close()
	startup.LogDatabaseInit(time.Since(dbStart))

	store, err := storage.NewStore(config.PhotosDir, filesystem.DefaultRetryConfig())
	if err != nil {
		startup.LogFatal("Failed to initialize photo store: %v", err)
	}
	photos := storage.NewPhotos(db, store)

	telemetryLog, view, err := restoreTelemetry(ctx, db)
	if err != nil {
		startup.LogFatal("Failed to restore telemetry: %v", err)
	}

	collector := metrics.NewCollector(db, db, config.StatsInterval)
	collector.Start()

	guard := memory.NewGuard(memory.DefaultConfig(), metrics.NewMemoryObserver())
	guard.Start()

	h := handlers.New(db, photos, telemetryLog, view, config)
	h.SetMemoryGuard(guard)

	router := mux.NewRouter()
	h.Routes(router)
	router.Use(middleware.Metrics(middleware.DefaultMetricsConfig()))

	startup.LogHTTPRoutes(router, config.LogHealthChecks)

	loggingConfig := middleware.DefaultLoggingConfig()
	loggingConfig.LogHealthChecks = config.LogHealthChecks
	loggingConfig.LogPhotoReads = config.LogPhotoReads
	loggedHandler := middleware.Logger(loggingConfig)(router)
	handler := middleware.Compression(middleware.DefaultCompressionConfig())(loggedHandler)

	srv := &http.Server{
		Addr:              ":" + config.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       2 * time.Minute,
		WriteTimeout:      2 * time.Minute,
		IdleTimeout:       60 * time.Second,
	}

	var metricsSrv *http.Server
	if config.MetricsEnabled {
		metricsMux := http.NewServeMux()
		metricsMux.Handle("/metrics", h.MetricsHandler())
		metricsSrv = &http.Server{
			Addr:              ":" + config.MetricsPort,
			Handler:           metricsMux,
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logging.Error("Metrics server error: %v", err)
			}
		}()
	}

	done := make(chan struct{})
	go handleShutdown(srv, metricsSrv, collector, guard, done)

	startup.LogServerStarted(startup.ServerConfig{
		Port:            config.Port,
		MetricsPort:     config.MetricsPort,
		MetricsEnabled:  config.MetricsEnabled,
		StartupDuration: time.Since(startTime),
	})
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		startup.LogFatal("Server error: %v", err)
	}
	<-done
}

// restoreTelemetry loads every persisted entry into the in-memory log and
// restores the operator's last clear.
func restoreTelemetry(ctx context.Context, db *database.Database) (*telemetry.Log, *telemetry.View, error) {
	log := telemetry.NewLog(nil, metrics.NewPipelineObserver())

	entries, err := db.ListTelemetry(ctx, 0)
	if err != nil {
		return nil, nil, err
	}
	for _, e := range entries {
		log.Append(e)
	}

	offset, err := db.GetTelemetryViewOffset(ctx)
	if err != nil {
		return nil, nil, err
	}
	view := telemetry.NewViewAt(log, offset)
	startup.LogTelemetryRestored(len(entries), min(offset, len(entries)))
	return log, view, nil
}

func handleShutdown(srv, metricsSrv *http.Server, collector *metrics.Collector, guard *memory.Guard, done chan<- struct{}) {
	defer close(done)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan

	startup.LogShutdownInitiated(sig.String())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	startup.LogShutdownStep("Shutting down HTTP server")
	if err := srv.Shutdown(ctx); err != nil {
		logging.Warn("Server shutdown error: %v", err)
	} else {
		startup.LogShutdownStepComplete("HTTP server stopped")
	}

	if metricsSrv != nil {
		startup.LogShutdownStep("Shutting down metrics server")
		if err := metricsSrv.Shutdown(ctx); err != nil {
			logging.Warn("Metrics server shutdown error: %v", err)
		} else {
			startup.LogShutdownStepComplete("Metrics server stopped")
		}
	}

	startup.LogShutdownStep("Stopping stats collector")
	collector.Stop()
	startup.LogShutdownStepComplete("Stats collector stopped")

	startup.LogShutdownStep("Stopping memory guard")
	guard.Stop()
	startup.LogShutdownStepComplete("Memory guard stopped")

	startup.LogShutdownComplete()
}
