package poller

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"storygraph/internal/config"
	"storygraph/internal/logging"
	"storygraph/internal/registry"
	"storygraph/internal/services"
)

const (
	defaultInterval      = 10 * time.Second
	defaultMaxConcurrent = 4
)

// Store is the registry view the poller needs.
type Store interface {
	InFlight(ctx context.Context) ([]*registry.Asset, error)
	ResolveJob(ctx context.Context, id, jobID string, status registry.JobStatus, content string) (bool, error)
}

// Options tunes the reconciliation loop.
type Options struct {
	Interval      time.Duration
	Timeout       time.Duration
	MaxConcurrent int
}

// OptionsFromConfig reads the [poller] section.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Interval:      cfg.PollInterval(),
		Timeout:       cfg.PollTimeout(),
		MaxConcurrent: cfg.Poller.MaxConcurrent,
	}
}

// TickReport counts what one pass did.
type TickReport struct {
	InFlight int
	Checked  int
	Resolved int
	Failed   int
	Errors   int
	// Skipped counts assets whose previous check had not returned yet.
	Skipped int
}

// Poller advances in-flight jobs to their terminal state.
type Poller struct {
	store   Store
	checker Checker
	opts    Options
	logger  *slog.Logger

	mu      sync.Mutex
	pending map[string]struct{}
}

// New builds a poller.
func New(store Store, checker Checker, opts Options, logger *slog.Logger) *Poller {
	if opts.Interval <= 0 {
		opts.Interval = defaultInterval
	}
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = defaultMaxConcurrent
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Poller{
		store:   store,
		checker: checker,
		opts:    opts,
		logger:  logging.NewComponentLogger(logger, "poller"),
		pending: make(map[string]struct{}),
	}
}

// Run ticks until ctx is cancelled. The first pass runs immediately.
func (p *Poller) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.opts.Interval)
	defer ticker.Stop()

	p.logger.Info("poller started",
		logging.String(logging.FieldEventType, "poller_start"),
		logging.Duration("interval", p.opts.Interval),
		logging.Int("max_concurrent", p.opts.MaxConcurrent),
	)
	for {
		if _, err := p.Tick(ctx); err != nil && ctx.Err() == nil {
			logging.WarnWithContext(p.logger, "poll pass failed", "poll_failed",
				append(logging.ErrorAttrs(err),
					logging.String(logging.FieldImpact, "in-flight jobs retried next tick"))...,
			)
		}
		select {
		case <-ctx.Done():
			p.logger.Info("poller stopped", logging.String(logging.FieldEventType, "poller_stop"))
			return nil
		case <-ticker.C:
		}
	}
}

// Tick checks every in-flight asset once and waits for the checks to return.
func (p *Poller) Tick(ctx context.Context) (TickReport, error) {
	var report TickReport
	assets, err := p.store.InFlight(ctx)
	if err != nil {
		return report, err
	}
	report.InFlight = len(assets)

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	g.SetLimit(p.opts.MaxConcurrent)
	for _, asset := range assets {
		if !p.claim(asset.ID) {
			report.Skipped++
			continue
		}
		if ctx.Err() != nil {
			p.release(asset.ID)
			break
		}
		g.Go(func() error {
			defer p.release(asset.ID)
			outcome := p.check(ctx, asset)
			mu.Lock()
			report.Checked++
			switch outcome {
			case outcomeResolved:
				report.Resolved++
			case outcomeFailed:
				report.Resolved++
				report.Failed++
			case outcomeError:
				report.Errors++
			}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	if report.Checked > 0 {
		p.logger.Debug("poll pass complete",
			logging.Int("in_flight", report.InFlight),
			logging.Int("checked", report.Checked),
			logging.Int("resolved", report.Resolved),
			logging.Int("errors", report.Errors),
		)
	}
	return report, ctx.Err()
}

type outcome int

const (
	outcomePending outcome = iota
	outcomeResolved
	outcomeFailed
	outcomeError
)

func (p *Poller) check(ctx context.Context, asset *registry.Asset) outcome {
	jobID := asset.Job.JobID
	ctx = services.WithAssetID(ctx, asset.ID)
	logger := logging.WithContext(ctx, p.logger).With(logging.JobID(jobID))

	callCtx := ctx
	if p.opts.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, p.opts.Timeout)
		defer cancel()
	}
	status, err := p.checker.Check(callCtx, jobID)
	if err != nil {
		if ctx.Err() != nil {
			return outcomePending
		}
		logging.WarnWithContext(logger, "job status check failed", "job_check_failed",
			append(logging.ErrorAttrs(err),
				logging.String(logging.FieldImpact, "job stays in flight; retried next tick"))...,
		)
		return outcomeError
	}
	if !status.Done {
		return outcomePending
	}

	state, content, result := registry.JobComplete, status.Content, outcomeResolved
	if status.Failed {
		state, content, result = registry.JobError, "Error: "+status.Content, outcomeFailed
	}
	applied, err := p.store.ResolveJob(context.WithoutCancel(ctx), asset.ID, jobID, state, content)
	if err != nil {
		logging.WarnWithContext(logger, "job resolution not stored", "job_resolve_failed",
			append(logging.ErrorAttrs(err),
				logging.String(logging.FieldImpact, "job re-checked next tick"))...,
		)
		return outcomeError
	}
	if !applied {
		logger.Debug("job already resolved elsewhere")
		return outcomePending
	}
	logger.Info("job resolved",
		logging.String(logging.FieldEventType, "job_resolved"),
		logging.String("state", string(state)),
	)
	return result
}

func (p *Poller) claim(id string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, busy := p.pending[id]; busy {
		return false
	}
	p.pending[id] = struct{}{}
	return true
}

func (p *Poller) release(id string) {
	p.mu.Lock()
	delete(p.pending, id)
	p.mu.Unlock()
}
