package testsupport

import (
	"testing"

	"storygraph/internal/registry"
)

// InterviewAngle returns a video interview asset with technical metadata and
// the given sync offset.
func InterviewAngle(id, filename string, fps float64, totalFrames, offset int64) *registry.Asset {
	return &registry.Asset{
		ID:            id,
		Filename:      filename,
		MimeType:      "video/quicktime",
		MediaCategory: registry.CategoryVideo,
		ClipType:      registry.ClipInterview,
		Tech: &registry.TechMetadata{
			StartTimecode: "10:00:00:00",
			FrameRate:     fps,
			TotalFrames:   totalFrames,
			CodecID:       "ProRes",
			Width:         1920,
			Height:        1080,
		},
		Job:              registry.Completed(),
		LastStage:        registry.StageSync,
		SyncOffsetFrames: offset,
	}
}

// MasterAudio returns the audio interview asset acting as the spine.
func MasterAudio(id, filename string, durationMs int64) *registry.Asset {
	channels := 2
	sampleRate := 48000
	return &registry.Asset{
		ID:            id,
		Filename:      filename,
		MimeType:      "audio/wav",
		MediaCategory: registry.CategoryAudio,
		ClipType:      registry.ClipInterview,
		DurationMs:    durationMs,
		Tech: &registry.TechMetadata{
			StartTimecode: "10:00:00:00",
			FrameRate:     25,
			CodecID:       "PCM",
			DurationMs:    durationMs,
			SampleRate:    &sampleRate,
			Channels:      &channels,
		},
		Job:       registry.LightCompleted(),
		LastStage: registry.StageLight,
	}
}

// PatchOf builds a patch setting every field of a.
func PatchOf(a *registry.Asset) registry.Patch {
	patch := registry.Patch{
		Filename:         registry.Ptr(a.Filename),
		Checksum:         registry.Ptr(a.Checksum),
		SizeBytes:        registry.Ptr(a.SizeBytes),
		MimeType:         registry.Ptr(a.MimeType),
		RelativePath:     registry.Ptr(a.RelativePath),
		DurationMs:       registry.Ptr(a.DurationMs),
		MediaCategory:    registry.Ptr(a.MediaCategory),
		ClipType:         registry.Ptr(a.ClipType),
		Tech:             a.Tech,
		LastStage:        registry.Ptr(a.LastStage),
		SyncOffsetFrames: registry.Ptr(a.SyncOffsetFrames),
		AnalysisContent:  registry.Ptr(a.AnalysisContent),
	}
	if a.Job.Status != "" {
		patch.Job = registry.Ptr(a.Job)
	}
	return patch
}

// Seed stores every asset and returns the stored records.
func Seed(t testing.TB, store *registry.Store, assets ...*registry.Asset) []*registry.Asset {
	t.Helper()

	out := make([]*registry.Asset, 0, len(assets))
	for _, a := range assets {
		out = append(out, MustUpsert(t, store, a.ID, PatchOf(a)))
	}
	return out
}
