package timeline

import (
	"strings"

	"storygraph/internal/config"
	"storygraph/internal/timecode"
)

// DefaultSequenceName names the sequence when no name is configured.
const DefaultSequenceName = "StoryGraph_Multicam_Sync"

// DefaultDurationFrames is the placeholder length of a clip with no known
// duration.
const DefaultDurationFrames = 250

// Options controls naming and fallbacks of a synthesized timeline.
type Options struct {
	SequenceName string
	// MediaRoot prefixes every clip path in the emitted file URLs.
	MediaRoot             string
	DefaultFrameRate      float64
	DefaultDurationFrames int64
}

// OptionsFromConfig reads the [timeline] section.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		SequenceName:          cfg.Timeline.SequenceName,
		MediaRoot:             cfg.Timeline.MediaRoot,
		DefaultFrameRate:      cfg.Timeline.DefaultFrameRate,
		DefaultDurationFrames: cfg.Timeline.DefaultDurationFrames,
	}
}

func (o Options) withDefaults() Options {
	if strings.TrimSpace(o.SequenceName) == "" {
		o.SequenceName = DefaultSequenceName
	}
	o.DefaultFrameRate = timecode.Normalize(o.DefaultFrameRate)
	if o.DefaultDurationFrames <= 0 {
		o.DefaultDurationFrames = DefaultDurationFrames
	}
	return o
}
