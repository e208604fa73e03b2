// Package config provides configuration loading for the transcript viewer.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// DefaultFileName is the config file looked up in the working directory when
// no explicit path is given.
const DefaultFileName = "claudia.toml"

// EnvConfigPath overrides the config file location when set.
const EnvConfigPath = "CLAUDIA_CONFIG"

// Config represents the viewer configuration.
type Config struct {
	Runs       RunsConfig       `toml:"runs"`       // On-disk run storage
	Feed       FeedConfig       `toml:"feed"`       // Transcript source selection
	Cache      CacheConfig      `toml:"cache"`      // Snapshot cache tuning
	Viewer     ViewerConfig     `toml:"viewer"`     // Rendering and scrolling
	Visibility VisibilityConfig `toml:"visibility"` // Self-rendering tool extensions
	Log        LogConfig        `toml:"log"`        // Diagnostic output
}

// RunsConfig locates run directories on disk.
type RunsConfig struct {
	Dir string `toml:"dir"` // Root directory holding one subdirectory per run
}

// FeedConfig selects and tunes the transcript source.
type FeedConfig struct {
	Source  string `toml:"source"`   // "dir" (default) or "nats"
	NATSURL string `toml:"nats_url"` // Server URL for the nats source
}

// CacheConfig tunes the snapshot cache.
type CacheConfig struct {
	FreshnessMs int `toml:"freshness_ms"` // Reuse window for finished runs (default 5000)
	Capacity    int `toml:"capacity"`     // Max cached runs (default 64)
}

// ViewerConfig tunes rendering and scrolling. Extents are terminal lines.
type ViewerConfig struct {
	FollowThreshold int `toml:"follow_threshold"` // Distance from bottom that re-engages following (default 50)
	Estimate        int `toml:"estimate"`         // Assumed lines of an unmeasured item (default 4)
	Overscan        int `toml:"overscan"`         // Items mounted beyond each viewport edge (default 5)
	PollMs          int `toml:"poll_ms"`          // Refetch interval when the live subscription fails (default 2000)
}

// VisibilityConfig extends the self-rendering tool set.
type VisibilityConfig struct {
	CatalogDir    string   `toml:"catalog_dir"`    // Directory of YAML extension files
	SelfRendering []string `toml:"self_rendering"` // Extra tool names suppressed inline
}

// LogConfig controls diagnostic output.
type LogConfig struct {
	Level string `toml:"level"` // debug, info, warn, error (default info)
}

// New creates a new config with defaults.
func New() *Config {
	return &Config{
		Runs: RunsConfig{
			Dir: "~/.claudia/runs",
		},
		Feed: FeedConfig{
			Source:  "dir",
			NATSURL: "nats://127.0.0.1:4222",
		},
		Cache: CacheConfig{
			FreshnessMs: 5000,
			Capacity:    64,
		},
		Viewer: ViewerConfig{
			FollowThreshold: 50,
			Estimate:        4,
			Overscan:        5,
			PollMs:          2000,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Default returns a default configuration.
func Default() *Config {
	return New()
}

// LoadFile loads configuration from a TOML file.
func LoadFile(path string) (*Config, error) {
	cfg := New()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

// LoadDefault resolves configuration the way the CLI does: an explicit
// CLAUDIA_CONFIG path wins, then claudia.toml in the working directory, then
// plain defaults.
func LoadDefault() (*Config, error) {
	if path := os.Getenv(EnvConfigPath); path != "" {
		return LoadFile(path)
	}

	cwd, err := os.Getwd()
	if err != nil {
		return New(), nil
	}
	path := filepath.Join(cwd, DefaultFileName)
	if _, err := os.Stat(path); err != nil {
		return New(), nil
	}
	return LoadFile(path)
}

// ExpandHome rewrites a leading "~/" against the user's home directory.
func ExpandHome(path string) string {
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}
