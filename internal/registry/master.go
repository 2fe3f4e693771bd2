package registry

import (
	"fmt"
	"strings"

	"storygraph/internal/services"
)

// ResolveMaster returns the single audio interview asset acting as the spine.
// Zero candidates and more than one candidate are both ErrMissingMaster: an
// ambiguous spine cannot anchor offsets.
func ResolveMaster(assets []*Asset) (*Asset, error) {
	var candidates []*Asset
	for _, a := range assets {
		if a.IsMasterCandidate() {
			candidates = append(candidates, a)
		}
	}
	switch len(candidates) {
	case 1:
		return candidates[0], nil
	case 0:
		return nil, services.Wrap(services.ErrMissingMaster, "registry", "resolve master",
			"no audio asset is categorized as interview", nil)
	default:
		names := make([]string, 0, len(candidates))
		for _, c := range candidates {
			names = append(names, c.DisplayPath())
		}
		return nil, services.Wrap(services.ErrMissingMaster, "registry", "resolve master",
			fmt.Sprintf("%d audio interview assets (%s); exactly one is required", len(candidates), strings.Join(names, ", ")), nil)
	}
}

// Satellites returns the video interview assets in input order.
func Satellites(assets []*Asset) []*Asset {
	var out []*Asset
	for _, a := range assets {
		if a.IsSatellite() {
			out = append(out, a)
		}
	}
	return out
}

// ResolveSyncMaster returns the audio asset that sync offsets are measured
// against. A single audio asset is the spine whatever triage labelled it.
// With several audio assets the one interview candidate wins; without exactly
// one candidate the spine is ambiguous and the result is ErrMissingMaster.
func ResolveSyncMaster(assets []*Asset) (*Asset, error) {
	var audio []*Asset
	for _, a := range assets {
		if a.IsAudio() {
			audio = append(audio, a)
		}
	}
	switch len(audio) {
	case 0:
		return nil, services.Wrap(services.ErrMissingMaster, "registry", "resolve sync master",
			"no audio asset is registered", nil)
	case 1:
		return audio[0], nil
	}
	return ResolveMaster(audio)
}
