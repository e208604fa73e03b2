package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNew_Defaults(t *testing.T) {
	cfg := New()

	if cfg.Cache.FreshnessMs != 5000 {
		t.Errorf("expected freshness 5000, got %d", cfg.Cache.FreshnessMs)
	}
	if cfg.Viewer.FollowThreshold != 50 {
		t.Errorf("expected follow threshold 50, got %d", cfg.Viewer.FollowThreshold)
	}
	if cfg.Viewer.Estimate != 4 || cfg.Viewer.Overscan != 5 {
		t.Errorf("unexpected viewer defaults: %+v", cfg.Viewer)
	}
	if cfg.Feed.Source != "dir" {
		t.Errorf("expected dir source default, got %q", cfg.Feed.Source)
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "claudia.toml")
	content := `
[feed]
source = "nats"
nats_url = "nats://example:4222"

[cache]
freshness_ms = 9000

[viewer]
follow_threshold = 80

[visibility]
self_rendering = ["sitetool"]
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}

	if cfg.Feed.Source != "nats" || cfg.Feed.NATSURL != "nats://example:4222" {
		t.Errorf("feed section not loaded: %+v", cfg.Feed)
	}
	if cfg.Cache.FreshnessMs != 9000 {
		t.Errorf("cache freshness not loaded: %d", cfg.Cache.FreshnessMs)
	}
	if cfg.Viewer.FollowThreshold != 80 {
		t.Errorf("viewer threshold not loaded: %d", cfg.Viewer.FollowThreshold)
	}
	// Unset keys keep their defaults.
	if cfg.Cache.Capacity != 64 {
		t.Errorf("default capacity lost on load: %d", cfg.Cache.Capacity)
	}
	if len(cfg.Visibility.SelfRendering) != 1 || cfg.Visibility.SelfRendering[0] != "sitetool" {
		t.Errorf("visibility extras not loaded: %v", cfg.Visibility.SelfRendering)
	}
}

func TestLoadFile_Invalid(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.toml")
	if err := os.WriteFile(path, []byte("[feed\nsource="), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	if _, err := LoadFile(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skipf("no home dir: %v", err)
	}

	got := ExpandHome("~/.claudia/runs")
	want := filepath.Join(home, ".claudia/runs")
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}

	if got := ExpandHome("/abs/path"); got != "/abs/path" {
		t.Errorf("absolute path must pass through, got %q", got)
	}
}
