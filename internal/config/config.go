package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	DataDir   string `toml:"data_dir"`
	LogDir    string `toml:"log_dir"`
	ExportDir string `toml:"export_dir"`
}

// Services contains the base URLs of the remote forensic services.
type Services struct {
	ExtractorURL string `toml:"extractor_url"`
	TriageURL    string `toml:"triage_url"`
	SyncURL      string `toml:"sync_url"`
	TranscodeURL string `toml:"transcode_url"`
	JobStatusURL string `toml:"job_status_url"`
}

// Remote contains timeout and retry settings shared by every HTTP client.
type Remote struct {
	TimeoutSeconds   int `toml:"timeout_seconds"`
	RetryAttempts    int `toml:"retry_attempts"`
	RetryBaseDelayMs int `toml:"retry_base_delay_ms"`
	RetryMaxDelayMs  int `toml:"retry_max_delay_ms"`
}

// Triage contains categorization thresholds and sampling windows.
type Triage struct {
	ConfidenceThreshold  float64 `toml:"confidence_threshold"`
	InitialWindowSeconds int     `toml:"initial_window_seconds"`
	RetryWindowSeconds   int     `toml:"retry_window_seconds"`
}

// Sync contains cross-correlation request parameters.
type Sync struct {
	Bucket               string `toml:"bucket"`
	StartOffsetSeconds   int    `toml:"start_offset_seconds"`
	DurationLimitSeconds int    `toml:"duration_limit_seconds"`
}

// Poller contains status reconciliation settings.
type Poller struct {
	IntervalSeconds       int `toml:"interval_seconds"`
	MaxConcurrent         int `toml:"max_concurrent"`
	RequestTimeoutSeconds int `toml:"request_timeout_seconds"`
}

// Timeline contains multicam export settings.
type Timeline struct {
	SequenceName          string  `toml:"sequence_name"`
	OutputFile            string  `toml:"output_file"`
	MediaRoot             string  `toml:"media_root"`
	DefaultFrameRate      float64 `toml:"default_frame_rate"`
	DefaultDurationFrames int64   `toml:"default_duration_frames"`
}

// Google contains Google Cloud and Drive integration settings.
type Google struct {
	CredentialsFile string `toml:"credentials_file"`
	DriveEnabled    bool   `toml:"drive_enabled"`
	MirrorEnabled   bool   `toml:"mirror_enabled"`
	VideoAIEnabled  bool   `toml:"video_ai_enabled"`
	LanguageCode    string `toml:"language_code"`
	// IdentityTokens attaches Google-signed identity tokens to forensic
	// service calls, for services deployed as private Cloud Run endpoints.
	IdentityTokens  bool   `toml:"identity_tokens"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for StoryGraph.
//
// Configuration sections by subsystem:
//   - Paths: registry, log, and export directories
//   - Services: remote forensic service endpoints
//   - Remote: shared HTTP timeout and retry policy
//   - Triage: categorization confidence threshold and windows
//   - Sync: cross-correlation bucket and sample window
//   - Poller: job reconciliation cadence and fan-out
//   - Timeline: multicam export naming and placeholders
//   - Google: Drive discovery, bucket mirroring, Video Intelligence
//   - Logging: log format and level
type Config struct {
	Paths    Paths    `toml:"paths"`
	Services Services `toml:"services"`
	Remote   Remote   `toml:"remote"`
	Triage   Triage   `toml:"triage"`
	Sync     Sync     `toml:"sync"`
	Poller   Poller   `toml:"poller"`
	Timeline Timeline `toml:"timeline"`
	Google   Google   `toml:"google"`
	Logging  Logging  `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("storygraph.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the data, log, and export directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir, c.Paths.ExportDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// RegistryPath returns the SQLite database location.
func (c *Config) RegistryPath() string {
	return filepath.Join(c.Paths.DataDir, "registry.db")
}

// LockPath returns the phase execution lock location.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.DataDir, "phase.lock")
}

// ExportPath returns the default multicam export location.
func (c *Config) ExportPath() string {
	return filepath.Join(c.Paths.ExportDir, c.Timeline.OutputFile)
}

// RemoteTimeout returns the per-call timeout applied to remote requests.
func (c *Config) RemoteTimeout() time.Duration {
	return time.Duration(c.Remote.TimeoutSeconds) * time.Second
}

// PollInterval returns the reconciliation tick interval.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Poller.IntervalSeconds) * time.Second
}

// PollTimeout returns the per-check timeout used by the poller.
func (c *Config) PollTimeout() time.Duration {
	return time.Duration(c.Poller.RequestTimeoutSeconds) * time.Second
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// Encode renders the configuration as TOML.
func (c *Config) Encode() ([]byte, error) {
	data, err := toml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	return data, nil
}
