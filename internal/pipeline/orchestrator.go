package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"storygraph/internal/forensic"
	"storygraph/internal/logging"
	"storygraph/internal/registry"
	"storygraph/internal/services"
	"storygraph/internal/services/transcoder"
	"storygraph/internal/stage"
	"storygraph/internal/stageexec"
	"storygraph/internal/timeline"
)

// Store is the registry view the orchestrator reads.
type Store interface {
	All(ctx context.Context) ([]*registry.Asset, error)
}

// Options tunes an Orchestrator.
type Options struct {
	// Timeline supplies the sequence defaults used by Export and the
	// fallback rate sync offsets are expressed in.
	Timeline   timeline.Options
	ExportPath string
}

// AssetFailure is one asset that failed during a batch.
type AssetFailure struct {
	AssetID  string
	Filename string
	Err      error
}

// BatchReport summarizes one phase run.
type BatchReport struct {
	Phase     Phase
	Eligible  int
	Succeeded int
	Failed    int
	// Skipped counts eligible assets left untouched because the run was
	// cancelled.
	Skipped  int
	Failures []AssetFailure
	Duration time.Duration
}

// RunOptions modifies a single phase run.
type RunOptions struct {
	Force bool
}

// Orchestrator runs phase batches and exports the timeline.
type Orchestrator struct {
	store      Store
	dispatcher *forensic.Dispatcher
	lease      *Lease
	transcodes <-chan transcoder.Outcome
	opts       Options
	logger     *slog.Logger
}

// New builds an orchestrator. transcodes may be nil when no trigger is wired.
func New(store Store, dispatcher *forensic.Dispatcher, lease *Lease, transcodes <-chan transcoder.Outcome, opts Options, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = logging.NewNop()
	}
	if lease == nil {
		lease = NewLease("")
	}
	return &Orchestrator{
		store:      store,
		dispatcher: dispatcher,
		lease:      lease,
		transcodes: transcodes,
		opts:       opts,
		logger:     logging.NewComponentLogger(logger, "pipeline"),
	}
}

// RunPhase processes every asset eligible for phase, one at a time. It holds
// the lease for the whole batch. Per-asset failures are recorded on the asset
// and counted in the report; the returned error is reserved for failures that
// prevent the batch from running, and for cancellation.
func (o *Orchestrator) RunPhase(ctx context.Context, phase Phase, opts RunOptions) (*BatchReport, error) {
	release, err := o.lease.Acquire(string(phase))
	if err != nil {
		return nil, err
	}
	defer release()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	report := &BatchReport{Phase: phase}
	defer func() { report.Duration = time.Since(start) }()

	assets, err := o.store.All(ctx)
	if err != nil {
		return nil, err
	}
	handler, err := o.handlerFor(phase, assets, opts)
	if err != nil {
		return nil, err
	}
	if health := handler.HealthCheck(ctx); !health.Ready {
		return nil, services.Wrap(services.ErrConfiguration, "pipeline", string(phase), health.Detail, nil)
	}

	var eligible []*registry.Asset
	for _, a := range assets {
		if handler.Eligible(a) {
			eligible = append(eligible, a)
		}
	}
	report.Eligible = len(eligible)

	phaseCtx := services.WithPhase(ctx, string(phase))
	logger := logging.WithContext(phaseCtx, o.logger)
	logger.Info("phase started",
		logging.String(logging.FieldEventType, "phase_start"),
		logging.Int("eligible", len(eligible)),
		logging.Bool("force", opts.Force),
	)

	for i, asset := range eligible {
		if err := ctx.Err(); err != nil {
			report.Skipped = len(eligible) - i
			logger.Info("phase interrupted",
				logging.String(logging.FieldEventType, "phase_interrupted"),
				logging.Int("skipped", report.Skipped),
			)
			o.drainTranscodes()
			return report, err
		}
		if err := stageexec.Run(phaseCtx, stageexec.Options{Logger: o.logger, Handler: handler, Asset: asset}); err != nil {
			if errors.Is(err, context.Canceled) {
				report.Skipped = len(eligible) - i
				o.drainTranscodes()
				return report, err
			}
			report.Failed++
			report.Failures = append(report.Failures, AssetFailure{AssetID: asset.ID, Filename: asset.Filename, Err: err})
		} else {
			report.Succeeded++
		}
		o.drainTranscodes()
	}

	logger.Info("phase completed",
		logging.String(logging.FieldEventType, "phase_complete"),
		logging.Int("succeeded", report.Succeeded),
		logging.Int("failed", report.Failed),
		logging.Duration("phase_duration", time.Since(start)),
	)
	return report, nil
}

func (o *Orchestrator) handlerFor(phase Phase, assets []*registry.Asset, opts RunOptions) (stage.Handler, error) {
	switch phase {
	case PhaseTech:
		return techHandler{d: o.dispatcher}, nil
	case PhaseCategorize:
		return categorizeHandler{d: o.dispatcher}, nil
	case PhaseSync:
		master, err := registry.ResolveSyncMaster(assets)
		if err != nil {
			return nil, err
		}
		tb := timeline.TimelineTimebase(assets, o.opts.Timeline.DefaultFrameRate)
		return syncHandler{d: o.dispatcher, master: master, timelineFPS: float64(tb), force: opts.Force}, nil
	case PhaseAnalyze:
		return analyzeHandler{d: o.dispatcher}, nil
	}
	return nil, services.Wrap(services.ErrValidation, "pipeline", "run phase", fmt.Sprintf("unknown phase %q", phase), nil)
}

// drainTranscodes logs every transcode outcome reported so far.
func (o *Orchestrator) drainTranscodes() {
	if o.transcodes == nil {
		return
	}
	for {
		select {
		case outcome, ok := <-o.transcodes:
			if !ok {
				o.transcodes = nil
				return
			}
			o.logTranscode(outcome)
		default:
			return
		}
	}
}

func (o *Orchestrator) logTranscode(outcome transcoder.Outcome) {
	if outcome.Err != nil {
		logging.WarnWithContext(o.logger, "transcode trigger failed", "transcode_failed",
			append(logging.ErrorAttrs(outcome.Err),
				logging.AssetID(outcome.AssetID),
				logging.String("file", outcome.Filename),
				logging.String(logging.FieldImpact, "proxy not transcoded; categorization unaffected"),
			)...,
		)
		return
	}
	o.logger.Info("transcode triggered",
		logging.String(logging.FieldEventType, "transcode_complete"),
		logging.AssetID(outcome.AssetID),
		logging.String("file", outcome.Filename),
		logging.Duration("trigger_duration", outcome.Duration),
	)
}

// DrainTranscodes logs outstanding transcode outcomes. Callers use it after
// the dispatcher has been waited on.
func (o *Orchestrator) DrainTranscodes() {
	o.drainTranscodes()
}
