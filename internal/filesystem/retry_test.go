package filesystem

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"syscall"
	"testing"
	"time"
)

type recordingObserver struct {
	mu         sync.Mutex
	operations []string
	stale      int
	attempts   int
	successes  int
	failures   int
}

func (o *recordingObserver) ObserveOperation(volume, operation string, _ float64, _ error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.operations = append(o.operations, volume+":"+operation)
}

func (o *recordingObserver) ObserveRetryAttempt(string, string) { o.attempts++ }
func (o *recordingObserver) ObserveRetrySuccess(string, string) { o.successes++ }
func (o *recordingObserver) ObserveRetryFailure(string, string) { o.failures++ }
func (o *recordingObserver) ObserveStaleError(string, string)   { o.stale++ }

func withObserver(t *testing.T) *recordingObserver {
	t.Helper()
	obs := &recordingObserver{}
	original := defaultObserver
	SetObserver(obs)
	t.Cleanup(func() { defaultObserver = original })
	return obs
}

func fastConfig() RetryConfig {
	return RetryConfig{MaxRetries: 3, InitialBackoff: time.Millisecond, MaxBackoff: 4 * time.Millisecond}
}

func TestDefaultRetryConfig(t *testing.T) {
	config := DefaultRetryConfig()

	if config.MaxRetries != 3 {
		t.Errorf("MaxRetries = %d, want 3", config.MaxRetries)
	}
	if config.InitialBackoff != 50*time.Millisecond {
		t.Errorf("InitialBackoff = %v, want 50ms", config.InitialBackoff)
	}
	if config.MaxBackoff != 500*time.Millisecond {
		t.Errorf("MaxBackoff = %v, want 500ms", config.MaxBackoff)
	}
	if config.VolumeResolver != nil {
		t.Error("VolumeResolver should be nil by default")
	}
}

func TestIsNFSStaleError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil error", nil, false},
		{"ESTALE error", syscall.ESTALE, true},
		{"wrapped ESTALE", &os.PathError{Op: "stat", Path: "/photos/x", Err: syscall.ESTALE}, true},
		{"ENOENT error", syscall.ENOENT, false},
		{"generic error", os.ErrNotExist, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isNFSStaleError(tt.err); got != tt.want {
				t.Errorf("isNFSStaleError() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestVolumeResolver_Resolve(t *testing.T) {
	vr := NewVolumeResolver(map[string]string{
		"photos":   "/data/photos",
		"database": "/data/database",
		"data":     "/data",
	})

	tests := []struct {
		name string
		path string
		want string
	}{
		{"photos root", "/data/photos", "photos"},
		{"photo file", "/data/photos/front-left-tire/abc.jpg", "photos"},
		{"database file", "/data/database/capture.db-wal", "database"},
		{"longest prefix wins", "/data/other/file", "data"},
		{"sibling with shared prefix", "/data/photos-old/x.jpg", "data"},
		{"unknown path", "/etc/hosts", "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := vr.Resolve(tt.path); got != tt.want {
				t.Errorf("Resolve(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}

func TestVolumeResolver_Resolve_NilResolver(t *testing.T) {
	var vr *VolumeResolver
	if got := vr.Resolve("/data/photos/x.jpg"); got != "unknown" {
		t.Errorf("nil resolver Resolve() = %q, want %q", got, "unknown")
	}
}

func TestRetryConfig_ResolveVolume(t *testing.T) {
	original := defaultResolver
	defer func() { defaultResolver = original }()

	SetDefaultVolumeResolver(NewVolumeResolver(map[string]string{"default": "/photos"}))

	config := RetryConfig{}
	if got := config.resolveVolume("/photos/a.jpg"); got != "default" {
		t.Errorf("resolveVolume() = %q, want default", got)
	}

	config.VolumeResolver = NewVolumeResolver(map[string]string{"override": "/photos"})
	if got := config.resolveVolume("/photos/a.jpg"); got != "override" {
		t.Errorf("resolveVolume() = %q, want override", got)
	}
}

func TestWithRetry_StaleThenSuccess(t *testing.T) {
	obs := withObserver(t)
	calls := 0

	err := withRetry("stat", "/photos/a.jpg", fastConfig(), func() error {
		calls++
		if calls < 3 {
			return syscall.ESTALE
		}
		return nil
	})

	if err != nil {
		t.Fatalf("withRetry() error = %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
	if obs.stale != 2 || obs.attempts != 2 || obs.successes != 1 || obs.failures != 0 {
		t.Errorf("observer = %+v", obs)
	}
}

func TestWithRetry_GivesUp(t *testing.T) {
	obs := withObserver(t)
	calls := 0

	err := withRetry("open", "/photos/a.jpg", fastConfig(), func() error {
		calls++
		return syscall.ESTALE
	})

	if !errors.Is(err, syscall.ESTALE) {
		t.Fatalf("withRetry() error = %v, want ESTALE", err)
	}
	if calls != 4 {
		t.Errorf("calls = %d, want 4 (1 + 3 retries)", calls)
	}
	if obs.failures != 1 {
		t.Errorf("failures = %d, want 1", obs.failures)
	}
}

func TestWithRetry_NonStaleFailsFast(t *testing.T) {
	withObserver(t)
	calls := 0

	err := withRetry("stat", "/photos/a.jpg", fastConfig(), func() error {
		calls++
		return os.ErrPermission
	})

	if !errors.Is(err, os.ErrPermission) || calls != 1 {
		t.Errorf("withRetry() = %v after %d calls, want ErrPermission after 1", err, calls)
	}
}

func TestStatAndOpenWithRetry(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "photo.jpg")
	if err := os.WriteFile(path, []byte("jpeg"), 0o644); err != nil {
		t.Fatal(err)
	}

	info, err := StatWithRetry(path, DefaultRetryConfig())
	if err != nil || info.Size() != 4 {
		t.Fatalf("StatWithRetry() = %v, %v", info, err)
	}

	f, err := OpenWithRetry(path, DefaultRetryConfig())
	if err != nil {
		t.Fatalf("OpenWithRetry() error = %v", err)
	}
	f.Close()

	if _, err := StatWithRetry(filepath.Join(dir, "missing.jpg"), DefaultRetryConfig()); !os.IsNotExist(err) {
		t.Errorf("StatWithRetry(missing) error = %v, want not-exist", err)
	}
	if _, err := OpenWithRetry(filepath.Join(dir, "missing.jpg"), DefaultRetryConfig()); !os.IsNotExist(err) {
		t.Errorf("OpenWithRetry(missing) error = %v, want not-exist", err)
	}
}

func TestWriteFileWithRetry(t *testing.T) {
	obs := withObserver(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "photo.jpg")
	config := fastConfig()
	config.VolumeResolver = NewVolumeResolver(map[string]string{"photos": dir})

	if err := WriteFileWithRetry(path, []byte("first"), 0o644, config); err != nil {
		t.Fatalf("WriteFileWithRetry() error = %v", err)
	}
	if err := WriteFileWithRetry(path, []byte("second"), 0o644, config); err != nil {
		t.Fatalf("WriteFileWithRetry() overwrite error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil || !bytes.Equal(data, []byte("second")) {
		t.Fatalf("content = %q, %v", data, err)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("directory has %d entries, temporary files left behind", len(entries))
	}
	if len(obs.operations) != 2 || obs.operations[0] != "photos:write" {
		t.Errorf("operations = %v", obs.operations)
	}
}

func TestRemoveWithRetry(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "photo.jpg")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := RemoveWithRetry(path, fastConfig()); err != nil {
		t.Fatalf("RemoveWithRetry() error = %v", err)
	}
	if err := RemoveWithRetry(path, fastConfig()); err != nil {
		t.Errorf("RemoveWithRetry() on missing file error = %v", err)
	}
}

func BenchmarkVolumeResolver_Resolve(b *testing.B) {
	vr := NewVolumeResolver(map[string]string{
		"photos":   "/data/photos",
		"database": "/data/database",
	})
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		vr.Resolve("/data/photos/front-left-tire/0b8a.jpg")
	}
}
