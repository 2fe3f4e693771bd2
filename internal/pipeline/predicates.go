package pipeline

import "storygraph/internal/registry"

// NeedsTech selects assets with no technical metadata.
func NeedsTech(a *registry.Asset) bool {
	return !a.HasTech()
}

// NeedsCategorization selects assets not yet triaged.
func NeedsCategorization(a *registry.Asset) bool {
	return a.ClipType == registry.ClipUnknown
}

// NeedsSync selects interview angles. Without force, angles already synced
// are skipped.
func NeedsSync(a *registry.Asset, force bool) bool {
	if !a.IsSatellite() {
		return false
	}
	return force || a.LastStage != registry.StageSync
}

// NeedsDeepAnalysis selects video interviews and b-roll that have no heavy
// pass and no job pending.
func NeedsDeepAnalysis(a *registry.Asset) bool {
	if !a.IsVideo() {
		return false
	}
	if a.ClipType != registry.ClipInterview && a.ClipType != registry.ClipBRoll {
		return false
	}
	return a.LastStage != registry.StageHeavy && a.Job.Status != registry.JobInFlight
}

// HasSyncOffsets reports whether any asset carries a non-zero offset, the
// precondition for exporting a timeline.
func HasSyncOffsets(assets []*registry.Asset) bool {
	for _, a := range assets {
		if a.SyncOffsetFrames != 0 {
			return true
		}
	}
	return false
}
