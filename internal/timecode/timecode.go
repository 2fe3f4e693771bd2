package timecode

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// DefaultFrameRate applies whenever a frame rate is missing or unparseable.
const DefaultFrameRate = 25.0

// Zero is the timecode assumed when a source carries none.
const Zero = "00:00:00:00"

// ErrInvalidTimecode reports a string that is not HH:MM:SS:FF non-drop timecode.
var ErrInvalidTimecode = errors.New("invalid timecode")

// Timecode is a non-drop SMPTE timecode.
type Timecode struct {
	Hours   int
	Minutes int
	Seconds int
	Frames  int
}

func (tc Timecode) String() string {
	return fmt.Sprintf("%02d:%02d:%02d:%02d", tc.Hours, tc.Minutes, tc.Seconds, tc.Frames)
}

// Parse reads an "HH:MM:SS:FF" string of zero-padded fields. Signs, short
// fields and drop-frame separators are rejected.
func Parse(value string) (Timecode, error) {
	value = strings.TrimSpace(value)
	parts := strings.Split(value, ":")
	if len(parts) != 4 {
		return Timecode{}, fmt.Errorf("%w: %q", ErrInvalidTimecode, value)
	}
	var fields [4]int
	for i, part := range parts {
		if !isField(part) {
			return Timecode{}, fmt.Errorf("%w: %q", ErrInvalidTimecode, value)
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return Timecode{}, fmt.Errorf("%w: %q", ErrInvalidTimecode, value)
		}
		fields[i] = n
	}
	tc := Timecode{Hours: fields[0], Minutes: fields[1], Seconds: fields[2], Frames: fields[3]}
	if tc.Minutes >= 60 || tc.Seconds >= 60 {
		return Timecode{}, fmt.Errorf("%w: %q", ErrInvalidTimecode, value)
	}
	return tc, nil
}

// isField reports whether part is two or more ASCII digits, the only form
// String renders back unchanged.
func isField(part string) bool {
	if len(part) < 2 {
		return false
	}
	for i := 0; i < len(part); i++ {
		if part[i] < '0' || part[i] > '9' {
			return false
		}
	}
	return true
}

// Timebase returns the integer frame count per second used for timecode
// arithmetic: the nominal rate round(fps), with DefaultFrameRate substituted
// for missing or invalid rates.
func Timebase(fps float64) int64 {
	fps = Normalize(fps)
	base := int64(math.Round(fps))
	if base < 1 {
		return 1
	}
	return base
}

// Normalize returns fps, or DefaultFrameRate when fps is not a positive finite number.
func Normalize(fps float64) float64 {
	if math.IsNaN(fps) || math.IsInf(fps, 0) || fps <= 0 {
		return DefaultFrameRate
	}
	return fps
}

// Absolute returns the frame count of tc at the given rate.
func (tc Timecode) Absolute(fps float64) (int64, error) {
	base := Timebase(fps)
	if int64(tc.Frames) >= base {
		return 0, fmt.Errorf("%w: frame %d exceeds timebase %d", ErrInvalidTimecode, tc.Frames, base)
	}
	seconds := int64(tc.Hours)*3600 + int64(tc.Minutes)*60 + int64(tc.Seconds)
	return seconds*base + int64(tc.Frames), nil
}

// ToFrame converts an "HH:MM:SS:FF" string into an absolute frame count.
func ToFrame(value string, fps float64) (int64, error) {
	tc, err := Parse(value)
	if err != nil {
		return 0, err
	}
	return tc.Absolute(fps)
}

// FromFrame converts an absolute frame count into a timecode. Negative counts
// are rendered with a leading minus sign.
func FromFrame(total int64, fps float64) string {
	sign := ""
	if total < 0 {
		sign = "-"
		total = -total
	}
	base := Timebase(fps)
	perHour := 3600 * base
	perMinute := 60 * base
	tc := Timecode{
		Hours:   int(total / perHour),
		Minutes: int((total % perHour) / perMinute),
		Seconds: int((total % perMinute) / base),
		Frames:  int(total % base),
	}
	return sign + tc.String()
}

// Offset adds offset frames to base and returns the resulting timecode. An
// unparseable base is treated as Zero.
func Offset(base string, offset int64, fps float64) string {
	start, err := ToFrame(base, fps)
	if err != nil {
		start = 0
	}
	return FromFrame(start+offset, fps)
}

// ParseFrameRate reads values such as "25", "25.000", "23.976" or "24000/1001".
func ParseFrameRate(raw string) (float64, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}
	if num, den, ok := strings.Cut(raw, "/"); ok {
		n, err := strconv.ParseFloat(strings.TrimSpace(num), 64)
		if err != nil {
			return 0, false
		}
		d, err := strconv.ParseFloat(strings.TrimSpace(den), 64)
		if err != nil || d == 0 {
			return 0, false
		}
		return valid(n / d)
	}
	fps, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return valid(fps)
}

func valid(fps float64) (float64, bool) {
	if math.IsNaN(fps) || math.IsInf(fps, 0) || fps <= 0 {
		return 0, false
	}
	return fps, true
}

// Round rounds half away from zero.
func Round(value float64) int64 {
	return int64(math.Round(value))
}

// Convert maps a native frame count at nativeFPS onto the timeline rate.
func Convert(nativeFrames int64, nativeFPS, timelineFPS float64) int64 {
	nativeFPS = Normalize(nativeFPS)
	timelineFPS = Normalize(timelineFPS)
	return Round(float64(nativeFrames) / nativeFPS * timelineFPS)
}

// FromMillis maps a duration in milliseconds onto the timeline rate.
func FromMillis(ms int64, timelineFPS float64) int64 {
	return Round(float64(ms) * Normalize(timelineFPS) / 1000)
}

// FromSeconds maps a duration in seconds onto the timeline rate.
func FromSeconds(seconds float64, timelineFPS float64) int64 {
	return Round(seconds * Normalize(timelineFPS))
}
