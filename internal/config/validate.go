package config

import (
	"errors"
	"fmt"
	"net/url"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateServices(); err != nil {
		return err
	}
	if err := c.validateRemote(); err != nil {
		return err
	}
	if err := c.validateTriage(); err != nil {
		return err
	}
	if err := c.validateSync(); err != nil {
		return err
	}
	if err := c.validatePoller(); err != nil {
		return err
	}
	if err := c.validateTimeline(); err != nil {
		return err
	}
	if err := c.validateGoogle(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateServices() error {
	endpoints := []struct {
		key   string
		value string
	}{
		{"services.extractor_url", c.Services.ExtractorURL},
		{"services.triage_url", c.Services.TriageURL},
		{"services.sync_url", c.Services.SyncURL},
		{"services.transcode_url", c.Services.TranscodeURL},
		{"services.job_status_url", c.Services.JobStatusURL},
	}
	for _, endpoint := range endpoints {
		if endpoint.value == "" {
			continue
		}
		parsed, err := url.Parse(endpoint.value)
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			return fmt.Errorf("%s must be an absolute URL, got %q", endpoint.key, endpoint.value)
		}
	}
	return nil
}

func (c *Config) validateRemote() error {
	if c.Remote.TimeoutSeconds <= 0 {
		return errors.New("remote.timeout_seconds must be positive")
	}
	if c.Remote.RetryAttempts < 1 {
		return errors.New("remote.retry_attempts must be at least 1")
	}
	if c.Remote.RetryBaseDelayMs < 0 || c.Remote.RetryMaxDelayMs < c.Remote.RetryBaseDelayMs {
		return errors.New("remote.retry_max_delay_ms must be >= remote.retry_base_delay_ms >= 0")
	}
	return nil
}

func (c *Config) validateTriage() error {
	if c.Triage.ConfidenceThreshold <= 0 || c.Triage.ConfidenceThreshold > 1 {
		return errors.New("triage.confidence_threshold must be in (0,1]")
	}
	if c.Triage.InitialWindowSeconds <= 0 {
		return errors.New("triage.initial_window_seconds must be positive")
	}
	if c.Triage.RetryWindowSeconds < c.Triage.InitialWindowSeconds {
		return errors.New("triage.retry_window_seconds must be >= triage.initial_window_seconds")
	}
	return nil
}

func (c *Config) validateSync() error {
	if c.Sync.StartOffsetSeconds < 0 {
		return errors.New("sync.start_offset_seconds must be >= 0")
	}
	if c.Sync.DurationLimitSeconds <= 0 {
		return errors.New("sync.duration_limit_seconds must be positive")
	}
	return nil
}

func (c *Config) validatePoller() error {
	if c.Poller.IntervalSeconds <= 0 {
		return errors.New("poller.interval_seconds must be positive")
	}
	if c.Poller.MaxConcurrent <= 0 {
		return errors.New("poller.max_concurrent must be positive")
	}
	if c.Poller.RequestTimeoutSeconds <= 0 {
		return errors.New("poller.request_timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateTimeline() error {
	if c.Timeline.DefaultFrameRate <= 0 {
		return errors.New("timeline.default_frame_rate must be positive")
	}
	if c.Timeline.DefaultDurationFrames <= 0 {
		return errors.New("timeline.default_duration_frames must be positive")
	}
	return nil
}

func (c *Config) validateGoogle() error {
	if c.Google.MirrorEnabled && c.Sync.Bucket == "" {
		return errors.New("google.mirror_enabled requires sync.bucket")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	return nil
}
