package discovery

import (
	"context"
	"log/slog"

	"storygraph/internal/logging"
	"storygraph/internal/registry"
)

// Upserter stores identity patches.
type Upserter interface {
	Upsert(ctx context.Context, id string, patch registry.Patch) (*registry.Asset, error)
}

// IngestReport summarizes one discovery run.
type IngestReport struct {
	Discovered int
	Audio      int
	Video      int
}

// Ingest walks rootID and upserts every media file. Patches carry identity
// fields and media category only, so rediscovery never clobbers
// classification, metadata, or offsets.
func Ingest(ctx context.Context, walker *Walker, store Upserter, rootID string, logger *slog.Logger) (IngestReport, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	var report IngestReport
	err := walker.Walk(ctx, rootID, func(f File) error {
		if _, err := store.Upsert(ctx, f.ID, PatchFor(f)); err != nil {
			return err
		}
		report.Discovered++
		if f.IsAudio() {
			report.Audio++
		} else {
			report.Video++
		}
		logger.Debug("asset discovered",
			logging.AssetID(f.ID),
			logging.String("filename", f.Name),
			logging.String("relative_path", f.RelativePath),
		)
		return nil
	})
	return report, err
}

// PatchFor maps a discovered file onto an identity-only registry patch.
func PatchFor(f File) registry.Patch {
	category := registry.CategoryVideo
	if f.IsAudio() {
		category = registry.CategoryAudio
	}
	return registry.Patch{
		Filename:      registry.Ptr(f.Name),
		Checksum:      registry.Ptr(f.Checksum),
		SizeBytes:     registry.Ptr(f.SizeBytes),
		MimeType:      registry.Ptr(f.MimeType),
		RelativePath:  registry.Ptr(f.RelativePath),
		DurationMs:    registry.Ptr(f.DurationMs),
		MediaCategory: registry.Ptr(category),
	}
}
