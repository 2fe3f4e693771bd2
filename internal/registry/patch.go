package registry

import "reflect"

// Patch is a per-field merge applied by Store.Upsert. Nil fields leave the
// stored value untouched.
type Patch struct {
	Filename     *string
	Checksum     *string
	SizeBytes    *int64
	MimeType     *string
	RelativePath *string
	DurationMs   *int64

	MediaCategory *MediaCategory
	ClipType      *ClipType

	Tech *TechMetadata

	Job       *JobState
	LastStage *Stage

	SyncOffsetFrames *int64
	AnalysisContent  *string
}

// Ptr returns a pointer to v, for building patches inline.
func Ptr[T any](v T) *T {
	return &v
}

// Empty reports whether the patch sets no fields.
func (p Patch) Empty() bool {
	return reflect.DeepEqual(p, Patch{})
}

// Apply merges the patch into a copy of asset and returns the copy.
func (p Patch) Apply(asset *Asset) *Asset {
	out := asset.clone()
	if out == nil {
		out = newAsset("")
	}
	if p.Filename != nil {
		out.Filename = *p.Filename
	}
	if p.Checksum != nil {
		out.Checksum = *p.Checksum
	}
	if p.SizeBytes != nil {
		out.SizeBytes = *p.SizeBytes
	}
	if p.MimeType != nil {
		out.MimeType = *p.MimeType
	}
	if p.RelativePath != nil {
		out.RelativePath = *p.RelativePath
	}
	if p.DurationMs != nil {
		out.DurationMs = *p.DurationMs
	}
	if p.MediaCategory != nil && *p.MediaCategory != "" {
		out.MediaCategory = *p.MediaCategory
	}
	if p.ClipType != nil && *p.ClipType != "" {
		out.ClipType = *p.ClipType
	}
	if p.Tech != nil {
		tech := (&Asset{Tech: p.Tech}).clone().Tech
		out.Tech = tech
	}
	if p.Job != nil {
		out.Job = mergeJob(out.Job, *p.Job)
	}
	if p.LastStage != nil && *p.LastStage != "" {
		out.LastStage = *p.LastStage
	}
	if p.SyncOffsetFrames != nil {
		out.SyncOffsetFrames = *p.SyncOffsetFrames
	}
	if p.AnalysisContent != nil {
		out.AnalysisContent = *p.AnalysisContent
	}
	return out
}

// mergeJob never moves a job back to NONE once it has left it.
func mergeJob(current, next JobState) JobState {
	if next.Status == "" || next.Status == JobNone {
		if current.Status == "" || current.Status == JobNone {
			return JobState{Status: JobNone}
		}
		return current
	}
	if next.Status != JobInFlight {
		next.JobID = ""
	}
	return next
}

// sameContent compares two assets ignoring timestamps.
func sameContent(a, b *Asset) bool {
	left := a.clone()
	right := b.clone()
	left.CreatedAt, left.UpdatedAt = right.CreatedAt, right.UpdatedAt
	return reflect.DeepEqual(left, right)
}
