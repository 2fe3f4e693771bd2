package testsupport

import (
	"path/filepath"
	"testing"

	"storygraph/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// Remote retries are reduced to a single attempt so failing fakes fail fast.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.ExportDir = filepath.Join(base, "export")
	cfgVal.Remote.RetryAttempts = 1
	cfgVal.Remote.RetryBaseDelayMs = 1
	cfgVal.Remote.RetryMaxDelayMs = 1
	cfgVal.Poller.IntervalSeconds = 1

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}
	for _, opt := range opts {
		opt(builder)
	}
	return builder.cfg
}

// WithServiceURL points every remote forensic service at baseURL, typically an
// httptest server.
func WithServiceURL(baseURL string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Services.ExtractorURL = baseURL
		b.cfg.Services.TriageURL = baseURL
		b.cfg.Services.SyncURL = baseURL
		b.cfg.Services.TranscodeURL = baseURL
		b.cfg.Services.JobStatusURL = baseURL
	}
}

// WithMediaRoot overrides the timeline media root.
func WithMediaRoot(root string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Timeline.MediaRoot = root
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}
