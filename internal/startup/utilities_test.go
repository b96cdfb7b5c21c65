package startup

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestGetEnv(t *testing.T) {
	t.Setenv("TEST_SET_VAR", "custom")

	if got := getEnv("TEST_SET_VAR", "default"); got != "custom" {
		t.Errorf("getEnv set = %q, want custom", got)
	}
	if got := getEnv("TEST_UNSET_VAR_STARTUP", "default"); got != "default" {
		t.Errorf("getEnv unset = %q, want default", got)
	}
}

func TestGetEnvBool(t *testing.T) {
	tests := []struct {
		name         string
		envValue     string
		defaultValue bool
		want         bool
	}{
		{"unset uses default", "", true, true},
		{"true", "true", false, true},
		{"numeric false", "0", true, false},
		{"invalid uses default", "maybe", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_BOOL_VAR", tt.envValue)
			if got := getEnvBool("TEST_BOOL_VAR", tt.defaultValue); got != tt.want {
				t.Errorf("getEnvBool = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGetEnvInt64(t *testing.T) {
	tests := []struct {
		name     string
		envValue string
		want     int64
	}{
		{"unset", "", 42},
		{"valid", "1024", 1024},
		{"negative uses default", "-5", 42},
		{"garbage uses default", "1k", 42},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_INT_VAR", tt.envValue)
			if got := getEnvInt64("TEST_INT_VAR", 42); got != tt.want {
				t.Errorf("getEnvInt64 = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestGetEnvDuration(t *testing.T) {
	tests := []struct {
		name     string
		envValue string
		want     time.Duration
	}{
		{"unset", "", time.Second},
		{"valid", "250ms", 250 * time.Millisecond},
		{"zero allowed", "0s", 0},
		{"invalid uses default", "soon", time.Second},
		{"negative uses default", "-1s", time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_DURATION_VAR", tt.envValue)
			if got := getEnvDuration("TEST_DURATION_VAR", time.Second); got != tt.want {
				t.Errorf("getEnvDuration = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestLoadAgentConfigDefaults(t *testing.T) {
	config, err := LoadAgentConfig(filepath.Join(t.TempDir(), "missing.yaml"), false)
	if err != nil {
		t.Fatalf("LoadAgentConfig: %v", err)
	}
	want := DefaultAgentConfig()
	if *config != want {
		t.Errorf("config = %+v, want defaults %+v", *config, want)
	}
}

func TestLoadAgentConfigMissingExplicitProfile(t *testing.T) {
	if _, err := LoadAgentConfig(filepath.Join(t.TempDir(), "missing.yaml"), true); err == nil {
		t.Fatal("expected error for missing explicit profile")
	}
}

func TestLoadAgentConfigProfileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.yaml")
	profile := `
server: http://inspect.local:8080
userAgent: "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) Version/17.0 Mobile/15E148 Safari/604.1"
normalize: false
fallbackDelay: 2500ms
maxWidth: 1280
maxHeight: 720
`
	if err := os.WriteFile(path, []byte(profile), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CAPTURE_MAX_HEIGHT", "960")

	config, err := LoadAgentConfig(path, true)
	if err != nil {
		t.Fatalf("LoadAgentConfig: %v", err)
	}

	if config.ServerURL != "http://inspect.local:8080" {
		t.Errorf("ServerURL = %q", config.ServerURL)
	}
	if config.Normalize {
		t.Error("Normalize should be disabled by the profile")
	}
	if config.FallbackDelay != 2500*time.Millisecond {
		t.Errorf("FallbackDelay = %s", config.FallbackDelay)
	}
	if config.MaxWidth != 1280 || config.MaxHeight != 960 {
		t.Errorf("bounds = %dx%d, want 1280x960", config.MaxWidth, config.MaxHeight)
	}
	if config.Quality != 0.8 {
		t.Errorf("Quality = %v, want default 0.8", config.Quality)
	}
}

func TestLoadAgentConfigValidation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("quality: 1.5\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadAgentConfig(path, true); err == nil {
		t.Fatal("expected validation error for quality 1.5")
	}
}
