package forensic

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"storygraph/internal/config"
	"storygraph/internal/logging"
	"storygraph/internal/registry"
	"storygraph/internal/services"
	"storygraph/internal/services/gcs"
	"storygraph/internal/services/syncsvc"
	"storygraph/internal/services/triage"
	"storygraph/internal/services/videoai"
)

// Store persists per-asset results.
type Store interface {
	Upsert(ctx context.Context, id string, patch registry.Patch) (*registry.Asset, error)
}

// Extractor returns raw technical metadata for a file.
type Extractor interface {
	Extract(ctx context.Context, filename string) (registry.RawTechMetadata, error)
}

// Classifier runs one triage snippet request.
type Classifier interface {
	Classify(ctx context.Context, req triage.Request) (triage.Result, error)
}

// Aligner computes a satellite offset in timeline frames.
type Aligner interface {
	Offset(ctx context.Context, req syncsvc.Request, timelineFPS float64) (syncsvc.Result, error)
}

// Analyzer starts a long-running deep analysis job and returns its id.
type Analyzer interface {
	Start(ctx context.Context, gcsURI string, kind videoai.Kind) (string, error)
}

// Mirror makes an asset readable from the analysis bucket.
type Mirror interface {
	Ensure(ctx context.Context, asset *registry.Asset) (string, error)
}

// SideEffect fires a best-effort follow-up for an asset.
type SideEffect interface {
	Dispatch(ctx context.Context, assetID, filename string)
}

// Deps wires the remote collaborators. Nil collaborators disable the
// operations that need them.
type Deps struct {
	Store      Store
	Extractor  Extractor
	Classifier Classifier
	Aligner    Aligner
	Analyzer   Analyzer
	Mirror     Mirror
	Transcode  SideEffect
}

// Options holds the tunables of the remote calls.
type Options struct {
	ConfidenceThreshold  float64
	InitialWindowSeconds int
	RetryWindowSeconds   int
	Bucket               string
	StartOffsetSeconds   int
	DurationLimitSeconds int
}

// OptionsFromConfig reads the triage and sync sections.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		ConfidenceThreshold:  cfg.Triage.ConfidenceThreshold,
		InitialWindowSeconds: cfg.Triage.InitialWindowSeconds,
		RetryWindowSeconds:   cfg.Triage.RetryWindowSeconds,
		Bucket:               cfg.Sync.Bucket,
		StartOffsetSeconds:   cfg.Sync.StartOffsetSeconds,
		DurationLimitSeconds: cfg.Sync.DurationLimitSeconds,
	}
}

// Dispatcher issues phase requests for one asset at a time, normalizes the
// results, and records them on the asset.
type Dispatcher struct {
	deps   Deps
	opts   Options
	logger *slog.Logger
}

// New builds a dispatcher.
func New(deps Deps, opts Options, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Dispatcher{
		deps:   deps,
		opts:   opts,
		logger: logging.NewComponentLogger(logger, "forensic"),
	}
}

// CanExtract reports whether the tech phase has a remote to call.
func (d *Dispatcher) CanExtract() bool { return d.deps.Extractor != nil }

// CanClassify reports whether the categorize phase has a remote to call.
func (d *Dispatcher) CanClassify() bool { return d.deps.Classifier != nil }

// CanAlign reports whether the sync phase has a remote to call.
func (d *Dispatcher) CanAlign() bool { return d.deps.Aligner != nil }

// CanAnalyze reports whether deep analysis is enabled.
func (d *Dispatcher) CanAnalyze() bool { return d.deps.Analyzer != nil }

// TechSpecs extracts and stores technical metadata.
func (d *Dispatcher) TechSpecs(ctx context.Context, asset *registry.Asset) (*registry.Asset, error) {
	if d.deps.Extractor == nil {
		return nil, notConfigured("tech", "services.extractor_url")
	}
	if _, err := d.mirror(ctx, asset); err != nil {
		return d.fail(ctx, asset, "Tech Spec Error", err)
	}
	raw, err := d.deps.Extractor.Extract(ctx, asset.Filename)
	if err != nil {
		return d.fail(ctx, asset, "Tech Spec Error", err)
	}
	tech, defaulted := registry.NormalizeTech(raw)
	if len(defaulted) > 0 {
		logging.WithContext(ctx, d.logger).Debug("technical fields defaulted",
			logging.AssetID(asset.ID),
			logging.Any("fields", defaulted),
		)
	}
	content := fmt.Sprintf("SMPTE TC: %s | FPS: %.3f | Frames: %d", tech.StartTimecode, tech.FrameRate, tech.TotalFrames)
	return d.deps.Store.Upsert(ctx, asset.ID, registry.Patch{
		Tech:            &tech,
		LastStage:       registry.Ptr(registry.StageTech),
		Job:             registry.Ptr(registry.Completed()),
		AnalysisContent: registry.Ptr(content),
	})
}

// Categorize runs snippet triage. A first answer below the confidence
// threshold gets exactly one retry with the wider window; the retry's answer
// is final whatever its confidence.
func (d *Dispatcher) Categorize(ctx context.Context, asset *registry.Asset) (*registry.Asset, error) {
	if d.deps.Classifier == nil {
		return nil, notConfigured("categorize", "services.triage_url")
	}
	if _, err := d.mirror(ctx, asset); err != nil {
		return d.fail(ctx, asset, "Triage Error", err)
	}
	durationMs := asset.DurationMs
	if asset.Tech != nil && asset.Tech.DurationMs > 0 {
		durationMs = asset.Tech.DurationMs
	}

	window := d.opts.InitialWindowSeconds
	result, err := d.deps.Classifier.Classify(ctx, triage.Request{
		Filename:      asset.Filename,
		DurationMs:    durationMs,
		DurationLimit: window,
	})
	if err != nil {
		return d.fail(ctx, asset, "Triage Error", err)
	}
	if result.Confidence < d.opts.ConfidenceThreshold {
		logging.WithContext(ctx, d.logger).Info("low triage confidence, retrying with wider window",
			logging.String(logging.FieldEventType, "triage_retry"),
			logging.AssetID(asset.ID),
			logging.Float64("confidence", result.Confidence),
			logging.Int("window_seconds", d.opts.RetryWindowSeconds),
		)
		window = d.opts.RetryWindowSeconds
		result, err = d.deps.Classifier.Classify(ctx, triage.Request{
			Filename:      asset.Filename,
			DurationMs:    durationMs,
			DurationLimit: window,
		})
		if err != nil {
			return d.fail(ctx, asset, "Triage Error", err)
		}
	}

	clip := result.Category
	if clip == registry.ClipUnknown {
		clip = registry.ClipBRoll
	}
	content := fmt.Sprintf("Snippet Triage (%ds): %s (Conf: %d%%)",
		window, d.label(clip), int(math.Round(result.Confidence*100)))
	updated, err := d.deps.Store.Upsert(ctx, asset.ID, registry.Patch{
		ClipType:        registry.Ptr(clip),
		LastStage:       registry.Ptr(registry.StageLight),
		Job:             registry.Ptr(registry.LightCompleted()),
		AnalysisContent: registry.Ptr(content),
	})
	if err != nil {
		return nil, err
	}
	if updated.IsSatellite() && d.deps.Transcode != nil {
		d.deps.Transcode.Dispatch(ctx, updated.ID, updated.Filename)
	}
	return updated, nil
}

// Sync aligns satellite against master and stores the offset in timeline
// frames.
func (d *Dispatcher) Sync(ctx context.Context, master, satellite *registry.Asset, timelineFPS float64) (*registry.Asset, error) {
	if d.deps.Aligner == nil {
		return nil, notConfigured("sync", "services.sync_url")
	}
	if master == nil {
		return nil, services.Wrap(services.ErrMissingMaster, "forensic", "sync", "no master audio asset", nil)
	}
	if _, err := d.mirror(ctx, satellite); err != nil {
		return d.fail(ctx, satellite, "Sync Error", err)
	}
	result, err := d.deps.Aligner.Offset(ctx, syncsvc.Request{
		Master:        master.Filename,
		Sample:        satellite.Filename,
		Bucket:        d.opts.Bucket,
		StartOffset:   d.opts.StartOffsetSeconds,
		DurationLimit: d.opts.DurationLimitSeconds,
	}, timelineFPS)
	if err != nil {
		return d.fail(ctx, satellite, "Sync Error", err)
	}
	logging.WithContext(ctx, d.logger).Debug("offset computed",
		logging.AssetID(satellite.ID),
		logging.Int64("offset_frames", result.Frames),
		logging.String("offset_field", result.Field),
	)
	return d.deps.Store.Upsert(ctx, satellite.ID, registry.Patch{
		SyncOffsetFrames: registry.Ptr(result.Frames),
		LastStage:        registry.Ptr(registry.StageSync),
	})
}

// DeepAnalyze starts a speech or visual analysis job and marks the asset in
// flight until the poller resolves it.
func (d *Dispatcher) DeepAnalyze(ctx context.Context, asset *registry.Asset) (*registry.Asset, error) {
	if d.deps.Analyzer == nil {
		return nil, notConfigured("analyze", "google.video_ai_enabled")
	}
	var (
		kind    videoai.Kind
		pending string
	)
	switch asset.ClipType {
	case registry.ClipInterview:
		kind, pending = videoai.Speech, "Transcription in progress..."
	case registry.ClipBRoll:
		kind, pending = videoai.Visual, "Deep visual analysis in progress..."
	default:
		return nil, services.Wrap(services.ErrValidation, "forensic", "analyze",
			fmt.Sprintf("clip type %q has no deep analysis", asset.ClipType), nil)
	}

	uri, err := d.mirror(ctx, asset)
	if err != nil {
		return d.fail(ctx, asset, "Error", err)
	}
	if uri == "" {
		uri = gcs.URI(d.opts.Bucket, asset.Filename)
	}
	jobID, err := d.deps.Analyzer.Start(ctx, uri, kind)
	if err != nil {
		return d.fail(ctx, asset, "Error", err)
	}
	logging.WithContext(ctx, d.logger).Info("deep analysis started",
		logging.String(logging.FieldEventType, "deep_analysis_started"),
		logging.AssetID(asset.ID),
		logging.JobID(jobID),
		logging.String("uri", uri),
	)
	return d.deps.Store.Upsert(ctx, asset.ID, registry.Patch{
		Job:             registry.Ptr(registry.InFlight(jobID)),
		LastStage:       registry.Ptr(registry.StageHeavy),
		AnalysisContent: registry.Ptr(pending),
	})
}

func (d *Dispatcher) mirror(ctx context.Context, asset *registry.Asset) (string, error) {
	if d.deps.Mirror == nil {
		return "", nil
	}
	return d.deps.Mirror.Ensure(ctx, asset)
}

// fail records the error on the asset and returns it. Cancellation is not
// recorded so an interrupted batch leaves the asset eligible.
func (d *Dispatcher) fail(ctx context.Context, asset *registry.Asset, prefix string, cause error) (*registry.Asset, error) {
	if errors.Is(cause, context.Canceled) {
		return nil, cause
	}
	content := prefix + ": " + errorMessage(cause)
	updated, err := d.deps.Store.Upsert(context.WithoutCancel(ctx), asset.ID, registry.Patch{
		Job:             registry.Ptr(registry.Failed()),
		AnalysisContent: registry.Ptr(content),
	})
	if err != nil {
		return nil, errors.Join(cause, err)
	}
	return updated, cause
}

func (d *Dispatcher) label(clip registry.ClipType) string {
	return cases.Title(language.English).String(strings.ReplaceAll(string(clip), "_", " "))
}

func errorMessage(err error) string {
	msg := strings.TrimSpace(err.Error())
	if msg == "" {
		return "unknown error"
	}
	return msg
}

func notConfigured(phase, key string) error {
	return services.Wrap(services.ErrConfiguration, "forensic", phase, key+" not configured", nil)
}
