package startup

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"inspection-capture/internal/logging"
)

// AgentConfig configures the capture agent. Values come from an optional
// YAML profile and are then overridden by CAPTURE_* environment variables.
type AgentConfig struct {
	ServerURL      string        `yaml:"server"`
	RequestTimeout time.Duration `yaml:"requestTimeout"`

	// UserAgent is reported with every telemetry entry and decides whether
	// Safari-specific diagnostics are shown.
	UserAgent string `yaml:"userAgent"`

	Normalize bool    `yaml:"normalize"`
	MaxWidth  int     `yaml:"maxWidth"`
	MaxHeight int     `yaml:"maxHeight"`
	Quality   float64 `yaml:"quality"`

	FallbackDelay time.Duration `yaml:"fallbackDelay"`
	CameraWidth   int           `yaml:"cameraWidth"`
	CameraHeight  int           `yaml:"cameraHeight"`

	// HEIC enables conversion through libvips.
	HEIC bool `yaml:"heic"`
}

// DefaultAgentConfig returns the agent defaults.
func DefaultAgentConfig() AgentConfig {
	return AgentConfig{
		ServerURL:      "http://localhost:8080",
		RequestTimeout: 2 * time.Minute,
		UserAgent:      "capturectl/" + Version,
		Normalize:      true,
		MaxWidth:       1920,
		MaxHeight:      1080,
		Quality:        0.8,
		FallbackDelay:  time.Second,
		CameraWidth:    1920,
		CameraHeight:   1080,
		HEIC:           true,
	}
}

// LoadAgentConfig reads the profile at path, if any, and applies
// environment overrides. A missing profile is only an error when path was
// given explicitly.
func LoadAgentConfig(path string, explicit bool) (*AgentConfig, error) {
	config := DefaultAgentConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist) && !explicit:
			logging.Debug("No agent profile at %s, using defaults", path)
		case err != nil:
			return nil, fmt.Errorf("failed to read profile %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, &config); err != nil {
				return nil, fmt.Errorf("failed to parse profile %s: %w", path, err)
			}
			logging.Debug("Loaded agent profile %s", path)
		}
	}

	config.ServerURL = getEnv("CAPTURE_SERVER", config.ServerURL)
	config.UserAgent = getEnv("CAPTURE_USER_AGENT", config.UserAgent)
	config.RequestTimeout = getEnvDuration("CAPTURE_REQUEST_TIMEOUT", config.RequestTimeout)
	config.Normalize = getEnvBool("CAPTURE_NORMALIZE", config.Normalize)
	config.MaxWidth = getEnvInt("CAPTURE_MAX_WIDTH", config.MaxWidth)
	config.MaxHeight = getEnvInt("CAPTURE_MAX_HEIGHT", config.MaxHeight)
	config.FallbackDelay = getEnvDuration("CAPTURE_FALLBACK_DELAY", config.FallbackDelay)
	config.HEIC = getEnvBool("CAPTURE_HEIC", config.HEIC)

	if err := config.validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func (c *AgentConfig) validate() error {
	if c.ServerURL == "" {
		return errors.New("server URL is required")
	}
	if c.MaxWidth <= 0 || c.MaxHeight <= 0 {
		return fmt.Errorf("invalid normalization bounds %dx%d", c.MaxWidth, c.MaxHeight)
	}
	if c.Quality <= 0 || c.Quality > 1 {
		return fmt.Errorf("quality %v out of range (0, 1]", c.Quality)
	}
	if c.FallbackDelay < 0 {
		return fmt.Errorf("negative fallback delay %s", c.FallbackDelay)
	}
	return nil
}
