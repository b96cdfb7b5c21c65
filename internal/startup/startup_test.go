package startup

import (
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gorilla/mux"
)

func TestGetBuildInfo(t *testing.T) {
	info := GetBuildInfo()

	if info.Version == "" {
		t.Error("Expected Version to be set")
	}
	if info.OS == "" || info.Arch == "" {
		t.Error("Expected OS and Arch to be set")
	}
	if info.GoVersion != GoVersion {
		t.Errorf("Expected GoVersion=%s, got %s", GoVersion, info.GoVersion)
	}
}

func TestLoadConfig(t *testing.T) {
	root := t.TempDir()
	photos := filepath.Join(root, "photos")
	db := filepath.Join(root, "db")

	t.Setenv("PHOTOS_DIR", photos)
	t.Setenv("DATABASE_DIR", db)
	t.Setenv("PORT", "18080")
	t.Setenv("MAX_UPLOAD_SIZE", "1048576")
	t.Setenv("STATS_INTERVAL", "5s")
	t.Setenv("LOG_PHOTO_READS", "true")
	t.Setenv("UPLOAD_CONCURRENCY", "3")
	t.Setenv("DOWNLOAD_WRITE_TIMEOUT", "45s")

	config, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if config.PhotosDir != photos || config.DatabaseDir != db {
		t.Errorf("directories = %q, %q", config.PhotosDir, config.DatabaseDir)
	}
	if config.DatabasePath != filepath.Join(db, "inspection.db") {
		t.Errorf("DatabasePath = %q", config.DatabasePath)
	}
	if config.Port != "18080" || config.MetricsPort != "9090" {
		t.Errorf("ports = %q, %q", config.Port, config.MetricsPort)
	}
	if config.MaxUploadSize != 1<<20 {
		t.Errorf("MaxUploadSize = %d", config.MaxUploadSize)
	}
	if config.StatsInterval != 5*time.Second {
		t.Errorf("StatsInterval = %s", config.StatsInterval)
	}
	if config.UploadConcurrency != 3 || config.DownloadWriteTimeout != 45*time.Second {
		t.Errorf("UploadConcurrency = %d, DownloadWriteTimeout = %s", config.UploadConcurrency, config.DownloadWriteTimeout)
	}
	if !config.LogPhotoReads || !config.LogHealthChecks || !config.MetricsEnabled {
		t.Errorf("flags = %+v", config)
	}

	for _, dir := range []string{photos, db} {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			t.Errorf("directory %s not created: %v", dir, err)
		}
	}
}

func TestLoadConfigRejectsFileAsDirectory(t *testing.T) {
	root := t.TempDir()
	file := filepath.Join(root, "not-a-dir")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("PHOTOS_DIR", file)
	t.Setenv("DATABASE_DIR", filepath.Join(root, "db"))

	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected error when PHOTOS_DIR is a file")
	}
}

func TestGetRoutes(t *testing.T) {
	r := mux.NewRouter()
	r.HandleFunc("/health", func(http.ResponseWriter, *http.Request) {}).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc("/api/slots/{slot}/photos", func(http.ResponseWriter, *http.Request) {}).Methods(http.MethodPost).Name("upload")

	routes, err := GetRoutes(r)
	if err != nil {
		t.Fatalf("GetRoutes: %v", err)
	}
	if len(routes) != 3 {
		t.Fatalf("got %d routes, want 3: %+v", len(routes), routes)
	}
	last := routes[2]
	if last.Method != http.MethodPost || last.Path != "/api/slots/{slot}/photos" || last.Name != "upload" {
		t.Errorf("unexpected route %+v", last)
	}
}

func TestGetRouteGroup(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/api/slots/{slot}/photos", "api/slots"},
		{"/api/telemetry", "api/telemetry"},
		{"/health", "health"},
		{"/", ""},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := getRouteGroup(tt.path); got != tt.want {
				t.Errorf("getRouteGroup(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}
