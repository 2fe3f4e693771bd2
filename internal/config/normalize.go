package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeServices()
	c.normalizeTimeline()
	if err := c.normalizeGoogle(); err != nil {
		return err
	}
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if strings.TrimSpace(c.Paths.ExportDir) == "" {
		c.Paths.ExportDir = defaultExportDir
	}
	var err error
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if c.Paths.ExportDir, err = expandPath(c.Paths.ExportDir); err != nil {
		return fmt.Errorf("paths.export_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeServices() {
	trim := func(value string) string {
		return strings.TrimRight(strings.TrimSpace(value), "/")
	}
	c.Services.ExtractorURL = trim(c.Services.ExtractorURL)
	c.Services.TriageURL = trim(c.Services.TriageURL)
	c.Services.SyncURL = trim(c.Services.SyncURL)
	c.Services.TranscodeURL = trim(c.Services.TranscodeURL)
	c.Services.JobStatusURL = trim(c.Services.JobStatusURL)
	c.Sync.Bucket = strings.TrimSpace(c.Sync.Bucket)
	if c.Sync.Bucket == "" {
		c.Sync.Bucket = defaultSyncBucket
	}
}

func (c *Config) normalizeTimeline() {
	c.Timeline.SequenceName = strings.TrimSpace(c.Timeline.SequenceName)
	if c.Timeline.SequenceName == "" {
		c.Timeline.SequenceName = defaultSequenceName
	}
	c.Timeline.OutputFile = strings.TrimSpace(c.Timeline.OutputFile)
	if c.Timeline.OutputFile == "" {
		c.Timeline.OutputFile = defaultOutputFile
	}
	if value, ok := os.LookupEnv("STORYGRAPH_MEDIA_ROOT"); ok && strings.TrimSpace(value) != "" {
		c.Timeline.MediaRoot = strings.TrimSpace(value)
	}
	c.Timeline.MediaRoot = strings.TrimSpace(c.Timeline.MediaRoot)
	if c.Timeline.MediaRoot != "" && !strings.HasSuffix(c.Timeline.MediaRoot, "/") {
		c.Timeline.MediaRoot += "/"
	}
}

func (c *Config) normalizeGoogle() error {
	if strings.TrimSpace(c.Google.CredentialsFile) == "" {
		if value, ok := os.LookupEnv("GOOGLE_APPLICATION_CREDENTIALS"); ok {
			c.Google.CredentialsFile = value
		}
	}
	c.Google.CredentialsFile = strings.TrimSpace(c.Google.CredentialsFile)
	if c.Google.CredentialsFile != "" {
		expanded, err := expandPath(c.Google.CredentialsFile)
		if err != nil {
			return fmt.Errorf("google.credentials_file: %w", err)
		}
		c.Google.CredentialsFile = expanded
	}
	c.Google.LanguageCode = strings.TrimSpace(c.Google.LanguageCode)
	if c.Google.LanguageCode == "" {
		c.Google.LanguageCode = defaultLanguageCode
	}
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
