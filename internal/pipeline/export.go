package pipeline

import (
	"context"
	"errors"
	"strings"

	"storygraph/internal/fileutil"
	"storygraph/internal/logging"
	"storygraph/internal/services"
	"storygraph/internal/timeline"
)

// ErrNoSyncOffsets reports an export attempted before any asset was synced.
var ErrNoSyncOffsets = errors.New("no synchronized assets")

// ExportOptions overrides the configured output and sequence name.
type ExportOptions struct {
	Output       string
	SequenceName string
}

// ExportResult describes a written timeline.
type ExportResult struct {
	Path     string
	Document *timeline.Document
	Bytes    int
}

// Export synthesizes the multicam timeline from the registry and writes it.
// The file appears only once its content is complete.
func (o *Orchestrator) Export(ctx context.Context, opts ExportOptions) (*ExportResult, error) {
	assets, err := o.store.All(ctx)
	if err != nil {
		return nil, err
	}
	if !HasSyncOffsets(assets) {
		return nil, services.Wrap(services.ErrValidation, "pipeline", "export",
			"run the sync phase first", ErrNoSyncOffsets)
	}

	timelineOpts := o.opts.Timeline
	if name := strings.TrimSpace(opts.SequenceName); name != "" {
		timelineOpts.SequenceName = name
	}
	doc, err := timeline.Synthesize(assets, timelineOpts)
	if err != nil {
		return nil, err
	}
	data, err := doc.Bytes()
	if err != nil {
		return nil, services.Wrap(services.ErrStorage, "pipeline", "export", "encode timeline", err)
	}

	target := strings.TrimSpace(opts.Output)
	if target == "" {
		target = o.opts.ExportPath
	}
	if target == "" {
		return nil, services.Wrap(services.ErrConfiguration, "pipeline", "export", "no output path", nil)
	}
	if err := fileutil.WriteFileAtomic(target, data, 0o644); err != nil {
		return nil, services.Wrap(services.ErrStorage, "pipeline", "export", "write "+target, err)
	}

	o.logger.Info("timeline exported",
		logging.String(logging.FieldEventType, "timeline_exported"),
		logging.String("path", target),
		logging.Int("angles", len(doc.Angles)),
		logging.Int64("sequence_frames", doc.Duration),
		logging.Int64("timebase", doc.Timebase),
	)
	return &ExportResult{Path: target, Document: doc, Bytes: len(data)}, nil
}
