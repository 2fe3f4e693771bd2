package config

const (
	defaultConfigPath            = "~/.config/storygraph/config.toml"
	defaultDataDir               = "~/.local/share/storygraph"
	defaultLogDir                = "~/.local/share/storygraph/logs"
	defaultExportDir             = "~/.local/share/storygraph/exports"
	defaultRemoteTimeoutSeconds  = 60
	defaultRemoteRetryAttempts   = 3
	defaultRemoteRetryBaseMs     = 500
	defaultRemoteRetryMaxMs      = 8000
	defaultTriageThreshold       = 0.8
	defaultTriageInitialWindow   = 15
	defaultTriageRetryWindow     = 30
	defaultSyncBucket            = "story-graph-proxies"
	defaultSyncDurationLimit     = 10
	defaultPollIntervalSeconds   = 10
	defaultPollMaxConcurrent     = 4
	defaultPollRequestTimeout    = 30
	defaultSequenceName          = "StoryGraph_Multicam_Sync"
	defaultOutputFile            = "StoryGraph_Final_Sync.xml"
	defaultMediaRoot             = "file://localhost/Volumes/Media/"
	defaultTimelineFrameRate     = 25
	defaultTimelineDurationFrame = 250
	defaultLanguageCode          = "en-US"
	defaultLogFormat             = "console"
	defaultLogLevel              = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:   defaultDataDir,
			LogDir:    defaultLogDir,
			ExportDir: defaultExportDir,
		},
		Remote: Remote{
			TimeoutSeconds:   defaultRemoteTimeoutSeconds,
			RetryAttempts:    defaultRemoteRetryAttempts,
			RetryBaseDelayMs: defaultRemoteRetryBaseMs,
			RetryMaxDelayMs:  defaultRemoteRetryMaxMs,
		},
		Triage: Triage{
			ConfidenceThreshold:  defaultTriageThreshold,
			InitialWindowSeconds: defaultTriageInitialWindow,
			RetryWindowSeconds:   defaultTriageRetryWindow,
		},
		Sync: Sync{
			Bucket:               defaultSyncBucket,
			DurationLimitSeconds: defaultSyncDurationLimit,
		},
		Poller: Poller{
			IntervalSeconds:       defaultPollIntervalSeconds,
			MaxConcurrent:         defaultPollMaxConcurrent,
			RequestTimeoutSeconds: defaultPollRequestTimeout,
		},
		Timeline: Timeline{
			SequenceName:          defaultSequenceName,
			OutputFile:            defaultOutputFile,
			MediaRoot:             defaultMediaRoot,
			DefaultFrameRate:      defaultTimelineFrameRate,
			DefaultDurationFrames: defaultTimelineDurationFrame,
		},
		Google: Google{
			LanguageCode: defaultLanguageCode,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
