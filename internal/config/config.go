// Package config loads docscout configuration: YAML file, environment
// overrides, then validation. A missing config file is not an error; the
// defaults are a complete working configuration for mock mode.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration.
type Config struct {
	Backend  BackendConfig  `yaml:"backend"`
	Glossary GlossaryConfig `yaml:"glossary"`
	Session  SessionConfig  `yaml:"session"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// BackendConfig configures the retrieval store client.
type BackendConfig struct {
	// BaseURL of the store's HTTP API. Empty selects the in-memory mock.
	BaseURL string `yaml:"base_url"`

	// TimeoutSeconds bounds one retrieval round trip.
	TimeoutSeconds int `yaml:"timeout_seconds"`

	// TopK is the default result budget per search.
	TopK int `yaml:"top_k"`

	// MinScore is the default semantic relevance floor.
	MinScore float64 `yaml:"min_score"`

	// ProgressiveThreshold is the mock backend's structure cutover, in bytes.
	ProgressiveThreshold int `yaml:"progressive_threshold"`
}

// GlossaryConfig configures query expansion.
type GlossaryConfig struct {
	// Path to the synonym/acronym YAML dictionary. Empty disables expansion.
	Path string `yaml:"path"`

	// WatchReload hot-reloads the dictionary when the file changes.
	WatchReload bool `yaml:"watch_reload"`
}

// SessionConfig bounds the conversation controller.
type SessionConfig struct {
	// MaxFutileTurns is the retry budget: consecutive unproductive tool
	// invocations tolerated before the controller answers "not found".
	MaxFutileTurns int `yaml:"max_futile_turns"`

	// MaxTurns is a hard ceiling on total turns per query.
	MaxTurns int `yaml:"max_turns"`

	// StructureCacheSize bounds the per-session document structure cache.
	StructureCacheSize int `yaml:"structure_cache_size"`

	// TranscriptDir receives one JSONL transcript per session. Empty
	// disables transcripts.
	TranscriptDir string `yaml:"transcript_dir"`
}

// LoggingConfig configures the zap root logger.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Backend: BackendConfig{
			TimeoutSeconds:       30,
			TopK:                 8,
			MinScore:             0.1,
			ProgressiveThreshold: 4000,
		},
		Glossary: GlossaryConfig{
			Path:        "glossary.yaml",
			WatchReload: false,
		},
		Session: SessionConfig{
			MaxFutileTurns:     3,
			MaxTurns:           24,
			StructureCacheSize: 64,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads the config file at path over the defaults, then applies
// environment overrides and validates. A missing file is fine.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to read config %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides applies DOCSCOUT_* environment variables on top of the
// file values.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("DOCSCOUT_BACKEND_URL"); v != "" {
		c.Backend.BaseURL = v
	}
	if v := os.Getenv("DOCSCOUT_BACKEND_TIMEOUT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Backend.TimeoutSeconds = n
		}
	}
	if v := os.Getenv("DOCSCOUT_GLOSSARY"); v != "" {
		c.Glossary.Path = v
	}
	if v := os.Getenv("DOCSCOUT_GLOSSARY_WATCH"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Glossary.WatchReload = b
		}
	}
	if v := os.Getenv("DOCSCOUT_MAX_FUTILE_TURNS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Session.MaxFutileTurns = n
		}
	}
	if v := os.Getenv("DOCSCOUT_TRANSCRIPT_DIR"); v != "" {
		c.Session.TranscriptDir = v
	}
	if v := os.Getenv("DOCSCOUT_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

// Validate rejects configurations the controller cannot run with.
func (c *Config) Validate() error {
	if c.Backend.TimeoutSeconds < 1 {
		return fmt.Errorf("backend.timeout_seconds must be >= 1, got %d", c.Backend.TimeoutSeconds)
	}
	if c.Backend.TopK < 1 {
		return fmt.Errorf("backend.top_k must be >= 1, got %d", c.Backend.TopK)
	}
	if c.Backend.MinScore < 0 || c.Backend.MinScore > 1 {
		return fmt.Errorf("backend.min_score must be in [0, 1], got %g", c.Backend.MinScore)
	}
	if c.Session.MaxFutileTurns < 1 {
		return fmt.Errorf("session.max_futile_turns must be >= 1, got %d", c.Session.MaxFutileTurns)
	}
	if c.Session.MaxTurns < 2 {
		return fmt.Errorf("session.max_turns must be >= 2, got %d", c.Session.MaxTurns)
	}
	if c.Session.StructureCacheSize < 1 {
		return fmt.Errorf("session.structure_cache_size must be >= 1, got %d", c.Session.StructureCacheSize)
	}
	return nil
}

// BackendTimeout returns the retrieval round-trip bound as a duration.
func (c *Config) BackendTimeout() time.Duration {
	return time.Duration(c.Backend.TimeoutSeconds) * time.Second
}
