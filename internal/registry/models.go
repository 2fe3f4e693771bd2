package registry

import (
	"strings"
	"time"
)

// MediaCategory is the coarse media kind reported by discovery.
type MediaCategory string

const (
	CategoryVideo MediaCategory = "video"
	CategoryAudio MediaCategory = "audio"
)

// ClipType is the editorial role assigned by categorization.
type ClipType string

const (
	ClipUnknown       ClipType = "unknown"
	ClipInterview     ClipType = "interview"
	ClipBRoll         ClipType = "b-roll"
	ClipExternalAudio ClipType = "external_audio"
	ClipLocationSound ClipType = "location_sound"
)

// ParseClipType normalizes a remote category label. Unrecognized labels map to ClipUnknown.
func ParseClipType(raw string) ClipType {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "interview":
		return ClipInterview
	case "b-roll", "broll", "b_roll", "b roll":
		return ClipBRoll
	case "external_audio", "external-audio":
		return ClipExternalAudio
	case "location_sound", "location-sound":
		return ClipLocationSound
	default:
		return ClipUnknown
	}
}

// JobStatus is the pipeline job sentinel.
type JobStatus string

const (
	JobNone          JobStatus = "none"
	JobInFlight      JobStatus = "in_flight"
	JobLightComplete JobStatus = "light_complete"
	JobComplete      JobStatus = "complete"
	JobError         JobStatus = "error"
)

// Terminal reports whether no further remote status checks are needed.
func (s JobStatus) Terminal() bool {
	switch s {
	case JobLightComplete, JobComplete, JobError:
		return true
	default:
		return false
	}
}

// JobState pairs the job sentinel with the remote job identifier carried by IN_FLIGHT.
type JobState struct {
	Status JobStatus
	JobID  string
}

// InFlight returns the state of a remote job awaiting reconciliation.
func InFlight(jobID string) JobState { return JobState{Status: JobInFlight, JobID: jobID} }

// Completed returns the COMPLETE state.
func Completed() JobState { return JobState{Status: JobComplete} }

// LightCompleted returns the LIGHT_COMPLETE state.
func LightCompleted() JobState { return JobState{Status: JobLightComplete} }

// Failed returns the ERROR state.
func Failed() JobState { return JobState{Status: JobError} }

func (s JobState) String() string {
	if s.Status == JobInFlight && s.JobID != "" {
		return string(s.Status) + "(" + s.JobID + ")"
	}
	if s.Status == "" {
		return string(JobNone)
	}
	return string(s.Status)
}

// Stage is the last forensic stage applied to an asset.
type Stage string

const (
	StageNone  Stage = "none"
	StageLight Stage = "light"
	StageHeavy Stage = "heavy"
	StageTech  Stage = "tech"
	StageSync  Stage = "sync"
)

// TechMetadata holds normalized technical descriptors. Numeric fields are
// native types; raw remote strings never reach this struct.
type TechMetadata struct {
	StartTimecode string  `json:"start_tc"`
	FrameRate     float64 `json:"frame_rate"`
	TotalFrames   int64   `json:"total_frames"`
	CodecID       string  `json:"codec_id"`
	Width         int     `json:"width"`
	Height        int     `json:"height"`
	SampleRate    *int    `json:"sample_rate,omitempty"`
	Channels      *int    `json:"channels,omitempty"`
	BitDepth      *int    `json:"bit_depth,omitempty"`
	DurationMs    int64   `json:"duration_ms"`
	ReelName      string  `json:"reel_name,omitempty"`
}

// Asset is one discovered media file and its pipeline state.
type Asset struct {
	ID           string
	Filename     string
	Checksum     string
	SizeBytes    int64
	MimeType     string
	RelativePath string
	// DurationMs is the duration reported by the discovery source.
	DurationMs int64

	MediaCategory MediaCategory
	ClipType      ClipType

	Tech *TechMetadata

	Job       JobState
	LastStage Stage

	SyncOffsetFrames int64
	AnalysisContent  string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// HasTech reports whether technical metadata has been recorded.
func (a *Asset) HasTech() bool {
	return a != nil && a.Tech != nil
}

// IsVideo reports whether the asset is a picture source.
func (a *Asset) IsVideo() bool {
	return a != nil && a.MediaCategory == CategoryVideo
}

// IsAudio reports whether the asset is a sound-only source.
func (a *Asset) IsAudio() bool {
	return a != nil && a.MediaCategory == CategoryAudio
}

// IsMasterCandidate reports audio ∧ interview, the spine definition.
func (a *Asset) IsMasterCandidate() bool {
	return a.IsAudio() && a.ClipType == ClipInterview
}

// IsSatellite reports video ∧ interview, an angle to align against the spine.
func (a *Asset) IsSatellite() bool {
	return a.IsVideo() && a.ClipType == ClipInterview
}

// DisplayPath joins the relative folder path and the filename.
func (a *Asset) DisplayPath() string {
	if a.RelativePath == "" {
		return a.Filename
	}
	return strings.TrimSuffix(a.RelativePath, "/") + "/" + a.Filename
}

func newAsset(id string) *Asset {
	return &Asset{
		ID:            id,
		MediaCategory: CategoryVideo,
		ClipType:      ClipUnknown,
		Job:           JobState{Status: JobNone},
		LastStage:     StageNone,
	}
}

func (a *Asset) clone() *Asset {
	if a == nil {
		return nil
	}
	out := *a
	if a.Tech != nil {
		tech := *a.Tech
		tech.SampleRate = cloneInt(a.Tech.SampleRate)
		tech.Channels = cloneInt(a.Tech.Channels)
		tech.BitDepth = cloneInt(a.Tech.BitDepth)
		out.Tech = &tech
	}
	return &out
}

func cloneInt(v *int) *int {
	if v == nil {
		return nil
	}
	out := *v
	return &out
}
