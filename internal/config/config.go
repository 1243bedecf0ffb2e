// Package config loads the engine configuration from YAML.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/eliteGoblin/focusd/focus_guard/internal/overlay"
)

// Store kinds.
const (
	StoreFile      = "file"
	StoreEncrypted = "encrypted"
)

// DefaultSelfID is the surface id of the FocusGuard settings app.
const DefaultSelfID = "com.focusguard.app"

// DefaultHomeSurfaceID is the surface reported after returning home.
const DefaultHomeSurfaceID = "com.android.launcher3"

// StoreConfig selects the preference backend.
type StoreConfig struct {
	Kind  string `yaml:"kind"`
	Watch bool   `yaml:"watch"`
}

// OverlayConfig configures the interruption.
type OverlayConfig struct {
	Message       string        `yaml:"message"`
	DebounceDelay time.Duration `yaml:"debounce_delay"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	File  string `yaml:"file"`
	Level string `yaml:"level"`
}

// Config holds all configurable engine parameters.
type Config struct {
	SelfID            string        `yaml:"self_id"`
	HomeSurfaceID     string        `yaml:"home_surface_id"`
	DataDir           string        `yaml:"data_dir"`
	Store             StoreConfig   `yaml:"store"`
	Overlay           OverlayConfig `yaml:"overlay"`
	HeartbeatInterval time.Duration `yaml:"heartbeat_interval"`
	ExtractorBudget   int           `yaml:"extractor_budget"`
	Log               LogConfig     `yaml:"log"`
	HTTPAddr          string        `yaml:"http_addr"`
}

// DefaultConfig returns the built-in configuration. An empty DataDir is
// resolved from the execution mode at startup.
func DefaultConfig() *Config {
	return &Config{
		SelfID:        DefaultSelfID,
		HomeSurfaceID: DefaultHomeSurfaceID,
		Store: StoreConfig{
			Kind:  StoreFile,
			Watch: true,
		},
		Overlay: OverlayConfig{
			Message:       overlay.DefaultMessage,
			DebounceDelay: overlay.DefaultDebounceDelay,
		},
		HeartbeatInterval: 30 * time.Second,
		ExtractorBudget:   5000,
		Log: LogConfig{
			Level: "info",
		},
		HTTPAddr: "127.0.0.1:7311",
	}
}

// Load reads configuration from path. An empty path or a missing file yields
// the defaults; invalid YAML is an error.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	// Start with defaults, YAML overwrites only specified fields
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects values the engine cannot run with.
func (c *Config) Validate() error {
	switch c.Store.Kind {
	case StoreFile, StoreEncrypted:
	default:
		return fmt.Errorf("invalid store kind %q (want %q or %q)", c.Store.Kind, StoreFile, StoreEncrypted)
	}
	if c.Overlay.DebounceDelay < 0 {
		return fmt.Errorf("overlay.debounce_delay must not be negative")
	}
	if c.HeartbeatInterval <= 0 {
		return fmt.Errorf("heartbeat_interval must be positive")
	}
	if c.ExtractorBudget <= 0 {
		return fmt.Errorf("extractor_budget must be positive")
	}
	switch c.Log.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level %q", c.Log.Level)
	}
	return nil
}

// LogPath returns the daemon log file, defaulting to focusguard.log in dataDir.
func (c *Config) LogPath(dataDir string) string {
	if c.Log.File != "" {
		return c.Log.File
	}
	return filepath.Join(dataDir, "focusguard.log")
}
