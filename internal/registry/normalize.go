package registry

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"storygraph/internal/timecode"
)

// DefaultCodecID labels assets whose extractor reported no codec.
const DefaultCodecID = "Unknown"

// RawTechMetadata is the extractor payload as received. Numeric fields may
// arrive as JSON numbers or as strings ("25.000", "24000/1001", "1542").
type RawTechMetadata struct {
	StartTimecode     any `json:"start_tc"`
	CodecID           any `json:"codec_id"`
	Width             any `json:"width"`
	Height            any `json:"height"`
	FrameRateFraction any `json:"frame_rate_fraction"`
	TotalFrames       any `json:"total_frames"`
	SampleRate        any `json:"sample_rate"`
	Channels          any `json:"channels"`
	BitDepth          any `json:"bit_depth"`
	DurationMs        any `json:"duration_ms"`
	ReelName          any `json:"reel_name"`
}

// NormalizeTech converts raw extractor fields into native types. Malformed
// values fall back to defaults and are reported by name in the returned slice;
// normalization never fails.
func NormalizeTech(raw RawTechMetadata) (TechMetadata, []string) {
	var defaulted []string
	note := func(field string) { defaulted = append(defaulted, field) }

	tech := TechMetadata{
		StartTimecode: timecode.Zero,
		FrameRate:     timecode.DefaultFrameRate,
		CodecID:       DefaultCodecID,
	}

	if s, ok := asString(raw.StartTimecode); ok && s != "" {
		if _, err := timecode.Parse(s); err == nil {
			tech.StartTimecode = s
		} else {
			note("start_tc")
		}
	}
	if s, ok := asString(raw.CodecID); ok && s != "" {
		tech.CodecID = s
	}
	if s, ok := asString(raw.ReelName); ok {
		tech.ReelName = s
	}

	if raw.FrameRateFraction != nil {
		if fps, ok := asFrameRate(raw.FrameRateFraction); ok {
			tech.FrameRate = fps
		} else {
			note("frame_rate_fraction")
		}
	}
	if raw.TotalFrames != nil {
		if n, ok := asInt(raw.TotalFrames); ok && n >= 0 {
			tech.TotalFrames = n
		} else {
			note("total_frames")
		}
	}
	if raw.DurationMs != nil {
		if n, ok := asInt(raw.DurationMs); ok && n >= 0 {
			tech.DurationMs = n
		} else {
			note("duration_ms")
		}
	}
	if n, ok := asInt(raw.Width); ok && n >= 0 {
		tech.Width = int(n)
	} else if raw.Width != nil {
		note("width")
	}
	if n, ok := asInt(raw.Height); ok && n >= 0 {
		tech.Height = int(n)
	} else if raw.Height != nil {
		note("height")
	}

	tech.SampleRate = optionalInt(raw.SampleRate, "sample_rate", note)
	tech.Channels = optionalInt(raw.Channels, "channels", note)
	tech.BitDepth = optionalInt(raw.BitDepth, "bit_depth", note)
	return tech, defaulted
}

func optionalInt(value any, field string, note func(string)) *int {
	if value == nil {
		return nil
	}
	if s, ok := value.(string); ok && strings.TrimSpace(s) == "" {
		return nil
	}
	n, ok := asInt(value)
	if !ok || n < 0 {
		note(field)
		return nil
	}
	out := int(n)
	return &out
}

func asString(value any) (string, bool) {
	switch v := value.(type) {
	case nil:
		return "", false
	case string:
		return strings.TrimSpace(v), true
	case json.Number:
		return v.String(), true
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	default:
		return "", false
	}
}

func asFrameRate(value any) (float64, bool) {
	switch v := value.(type) {
	case string:
		return timecode.ParseFrameRate(v)
	case json.Number:
		return timecode.ParseFrameRate(v.String())
	case float64:
		return finitePositive(v)
	case int:
		return finitePositive(float64(v))
	case int64:
		return finitePositive(float64(v))
	default:
		return 0, false
	}
}

func finitePositive(v float64) (float64, bool) {
	if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return 0, false
	}
	return v, true
}

// asInt accepts integral numbers and strings. Fractional strings such as
// "1542.0" truncate the way a lenient integer parse does.
func asInt(value any) (int64, bool) {
	switch v := value.(type) {
	case int:
		return int64(v), true
	case int64:
		return v, true
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, false
		}
		return int64(v), true
	case json.Number:
		return asInt(v.String())
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return 0, false
		}
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n, true
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return int64(f), true
	default:
		return 0, false
	}
}
