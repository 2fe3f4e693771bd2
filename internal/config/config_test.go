package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"storygraph/internal/config"
)

func isolateEnv(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")
	t.Setenv("STORYGRAPH_MEDIA_ROOT", "")
	return home
}

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	home := isolateEnv(t)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantData := filepath.Join(home, ".local", "share", "storygraph")
	if cfg.Paths.DataDir != wantData {
		t.Fatalf("unexpected data dir: got %q want %q", cfg.Paths.DataDir, wantData)
	}
	if cfg.RegistryPath() != filepath.Join(wantData, "registry.db") {
		t.Fatalf("unexpected registry path: %q", cfg.RegistryPath())
	}
	if cfg.Triage.ConfidenceThreshold != 0.8 {
		t.Fatalf("expected triage threshold 0.8, got %v", cfg.Triage.ConfidenceThreshold)
	}
	if cfg.Triage.InitialWindowSeconds != 15 || cfg.Triage.RetryWindowSeconds != 30 {
		t.Fatalf("unexpected triage windows: %+v", cfg.Triage)
	}
	if cfg.Sync.DurationLimitSeconds != 10 || cfg.Sync.StartOffsetSeconds != 0 {
		t.Fatalf("unexpected sync window: %+v", cfg.Sync)
	}
	if cfg.Poller.IntervalSeconds != 10 {
		t.Fatalf("expected 10s poll interval, got %d", cfg.Poller.IntervalSeconds)
	}
	if cfg.Timeline.SequenceName != "StoryGraph_Multicam_Sync" {
		t.Fatalf("unexpected sequence name: %q", cfg.Timeline.SequenceName)
	}
	if cfg.Timeline.DefaultDurationFrames != 250 {
		t.Fatalf("unexpected default duration: %d", cfg.Timeline.DefaultDurationFrames)
	}
	if cfg.Google.DriveEnabled || cfg.Google.MirrorEnabled || cfg.Google.VideoAIEnabled {
		t.Fatalf("expected google integrations disabled by default: %+v", cfg.Google)
	}
}

func TestLoadCustomConfigOverridesDefaults(t *testing.T) {
	isolateEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	payload := map[string]any{
		"paths": map[string]any{
			"data_dir": filepath.Join(dir, "data"),
		},
		"services": map[string]any{
			"extractor_url": "https://extractor.example.com/",
			"triage_url":    "  https://triage.example.com  ",
		},
		"triage": map[string]any{
			"confidence_threshold": 0.65,
		},
		"timeline": map[string]any{
			"media_root": "file://localhost/Volumes/Shoot",
		},
		"logging": map[string]any{
			"format": "JSON",
			"level":  "Debug",
		},
	}
	data, err := toml.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("expected config at %q, got %q exists=%v", path, resolved, exists)
	}
	if cfg.Services.ExtractorURL != "https://extractor.example.com" {
		t.Fatalf("expected trailing slash trimmed, got %q", cfg.Services.ExtractorURL)
	}
	if cfg.Services.TriageURL != "https://triage.example.com" {
		t.Fatalf("expected whitespace trimmed, got %q", cfg.Services.TriageURL)
	}
	if cfg.Triage.ConfidenceThreshold != 0.65 {
		t.Fatalf("expected threshold override, got %v", cfg.Triage.ConfidenceThreshold)
	}
	if cfg.Timeline.MediaRoot != "file://localhost/Volumes/Shoot/" {
		t.Fatalf("expected media root with trailing slash, got %q", cfg.Timeline.MediaRoot)
	}
	if cfg.Logging.Format != "json" || cfg.Logging.Level != "debug" {
		t.Fatalf("expected lowercased logging settings, got %+v", cfg.Logging)
	}
	if cfg.Poller.MaxConcurrent != config.Default().Poller.MaxConcurrent {
		t.Fatalf("expected unspecified fields to keep defaults, got %d", cfg.Poller.MaxConcurrent)
	}
}

func TestLoadUsesCredentialsFromEnvironment(t *testing.T) {
	isolateEnv(t)
	creds := filepath.Join(t.TempDir(), "sa.json")
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", creds)
	t.Setenv("STORYGRAPH_MEDIA_ROOT", "file://localhost/mnt/media")

	cfg, _, _, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Google.CredentialsFile != creds {
		t.Fatalf("expected credentials from env, got %q", cfg.Google.CredentialsFile)
	}
	if cfg.Timeline.MediaRoot != "file://localhost/mnt/media/" {
		t.Fatalf("expected media root from env, got %q", cfg.Timeline.MediaRoot)
	}
}

func TestValidateRejectsInvalidSettings(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*config.Config)
		wantKey string
	}{
		{"threshold zero", func(c *config.Config) { c.Triage.ConfidenceThreshold = 0 }, "triage.confidence_threshold"},
		{"threshold above one", func(c *config.Config) { c.Triage.ConfidenceThreshold = 1.2 }, "triage.confidence_threshold"},
		{"retry window shorter", func(c *config.Config) { c.Triage.RetryWindowSeconds = 5 }, "triage.retry_window_seconds"},
		{"relative url", func(c *config.Config) { c.Services.SyncURL = "sync-service" }, "services.sync_url"},
		{"no retries", func(c *config.Config) { c.Remote.RetryAttempts = 0 }, "remote.retry_attempts"},
		{"poll fanout", func(c *config.Config) { c.Poller.MaxConcurrent = 0 }, "poller.max_concurrent"},
		{"frame rate", func(c *config.Config) { c.Timeline.DefaultFrameRate = 0 }, "timeline.default_frame_rate"},
		{"log format", func(c *config.Config) { c.Logging.Format = "xml" }, "logging.format"},
		{"negative start", func(c *config.Config) { c.Sync.StartOffsetSeconds = -1 }, "sync.start_offset_seconds"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantKey) {
				t.Fatalf("expected error to mention %q, got %v", tt.wantKey, err)
			}
		})
	}
}

func TestDefaultConfigValidates(t *testing.T) {
	cfg := config.Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestCreateSampleProducesLoadableConfig(t *testing.T) {
	isolateEnv(t)
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load sample: %v", err)
	}
	if !exists {
		t.Fatal("expected sample to exist")
	}
	if cfg.Sync.Bucket != "story-graph-proxies" {
		t.Fatalf("unexpected sample bucket: %q", cfg.Sync.Bucket)
	}
}

func TestEnsureDirectoriesCreatesPaths(t *testing.T) {
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.ExportDir = filepath.Join(base, "exports")
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	for _, dir := range []string{cfg.Paths.DataDir, cfg.Paths.LogDir, cfg.Paths.ExportDir} {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			t.Fatalf("expected directory %q: %v", dir, err)
		}
	}
}
