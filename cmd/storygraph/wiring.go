package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"storygraph/internal/config"
	"storygraph/internal/forensic"
	"storygraph/internal/pipeline"
	"storygraph/internal/poller"
	"storygraph/internal/registry"
	"storygraph/internal/services/drive"
	"storygraph/internal/services/extractor"
	"storygraph/internal/services/gcs"
	"storygraph/internal/services/httpjson"
	"storygraph/internal/services/jobstatus"
	"storygraph/internal/services/syncsvc"
	"storygraph/internal/services/transcoder"
	"storygraph/internal/services/triage"
	"storygraph/internal/services/videoai"
	"storygraph/internal/timeline"
)

// serviceClient returns the JSON client for one forensic service. ok is false
// when the service has no configured URL.
func serviceClient(ctx context.Context, cfg *config.Config, name, baseURL string) (*httpjson.Client, bool, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, false, nil
	}
	var httpClient *http.Client
	if cfg.Google.IdentityTokens {
		hc, err := httpjson.NewIDTokenHTTPClient(ctx, baseURL, cfg.Google.CredentialsFile)
		if err != nil {
			return nil, false, err
		}
		httpClient = hc
	}
	return httpjson.FromConfig(name, baseURL, cfg, httpClient), true, nil
}

// newBucketMirror copies Drive media into the analysis bucket before any
// service reads it.
var newBucketMirror = func(ctx context.Context, cfg *config.Config, logger *slog.Logger) (forensic.Mirror, func() error, error) {
	source, err := drive.New(ctx, cfg.Google.CredentialsFile)
	if err != nil {
		return nil, nil, err
	}
	mirror, err := gcs.NewMirror(ctx, cfg.Sync.Bucket, cfg.Google.CredentialsFile, source, logger)
	if err != nil {
		return nil, nil, err
	}
	return mirror, mirror.Close, nil
}

// pipelineRuntime owns the collaborators built for one command.
type pipelineRuntime struct {
	orchestrator *pipeline.Orchestrator
	transcodes   *transcoder.Dispatcher
	closers      []func() error
}

// buildPipeline wires the services phase needs. An empty phase builds an
// orchestrator with no remote collaborators, enough for export.
func buildPipeline(ctx context.Context, cfg *config.Config, store *registry.Store, phase pipeline.Phase, logger *slog.Logger) (*pipelineRuntime, error) {
	rt := &pipelineRuntime{}
	deps := forensic.Deps{Store: store}

	fail := func(err error) (*pipelineRuntime, error) {
		rt.Close()
		return nil, err
	}

	if phase != "" && cfg.Google.MirrorEnabled {
		mirror, closeMirror, err := newBucketMirror(ctx, cfg, logger)
		if err != nil {
			return fail(err)
		}
		rt.closers = append(rt.closers, closeMirror)
		deps.Mirror = mirror
	}

	switch phase {
	case pipeline.PhaseTech:
		client, ok, err := serviceClient(ctx, cfg, "extractor", cfg.Services.ExtractorURL)
		if err != nil {
			return fail(err)
		}
		if ok {
			deps.Extractor = extractor.New(client)
		}
	case pipeline.PhaseCategorize:
		client, ok, err := serviceClient(ctx, cfg, "triage", cfg.Services.TriageURL)
		if err != nil {
			return fail(err)
		}
		if ok {
			deps.Classifier = triage.New(client)
		}
		trigger, ok, err := serviceClient(ctx, cfg, "transcoder", cfg.Services.TranscodeURL)
		if err != nil {
			return fail(err)
		}
		if ok {
			rt.transcodes = transcoder.NewDispatcher(transcoder.New(trigger), cfg.RemoteTimeout(), logger)
			deps.Transcode = rt.transcodes
		}
	case pipeline.PhaseSync:
		client, ok, err := serviceClient(ctx, cfg, "sync", cfg.Services.SyncURL)
		if err != nil {
			return fail(err)
		}
		if ok {
			deps.Aligner = syncsvc.New(client)
		}
	case pipeline.PhaseAnalyze:
		if cfg.Google.VideoAIEnabled {
			analyzer, err := videoai.New(ctx, videoai.Options{
				LanguageCode:    cfg.Google.LanguageCode,
				CredentialsFile: cfg.Google.CredentialsFile,
				Logger:          logger,
			})
			if err != nil {
				return fail(err)
			}
			rt.closers = append(rt.closers, analyzer.Close)
			deps.Analyzer = analyzer
		}
	}

	dispatcher := forensic.New(deps, forensic.OptionsFromConfig(cfg), logger)
	var outcomes <-chan transcoder.Outcome
	if rt.transcodes != nil {
		outcomes = rt.transcodes.Outcomes()
	}
	rt.orchestrator = pipeline.New(store, dispatcher, pipeline.NewLease(cfg.LockPath()), outcomes, pipeline.Options{
		Timeline:   timeline.OptionsFromConfig(cfg),
		ExportPath: cfg.ExportPath(),
	}, logger)
	return rt, nil
}

// Close waits for background transcode triggers, logs their outcomes, and
// releases the remote clients.
func (r *pipelineRuntime) Close() error {
	if r.transcodes != nil {
		r.transcodes.Close()
		if r.orchestrator != nil {
			r.orchestrator.DrainTranscodes()
		}
	}
	var errs []error
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	r.closers = nil
	return errors.Join(errs...)
}

// statusChecker routes Video Intelligence operations to the annotation client
// and every other job id to the HTTP job status service.
func statusChecker(ctx context.Context, cfg *config.Config, logger *slog.Logger) (poller.Router, func() error, error) {
	var router poller.Router
	closeFn := func() error { return nil }

	client, ok, err := serviceClient(ctx, cfg, "jobstatus", cfg.Services.JobStatusURL)
	if err != nil {
		return router, closeFn, err
	}
	if ok {
		router.Default = jobstatus.New(client)
	}
	if cfg.Google.VideoAIEnabled {
		analyzer, err := videoai.New(ctx, videoai.Options{
			LanguageCode:    cfg.Google.LanguageCode,
			CredentialsFile: cfg.Google.CredentialsFile,
			Logger:          logger,
		})
		if err != nil {
			return router, closeFn, err
		}
		router.Operations = analyzer
		closeFn = analyzer.Close
	}
	return router, closeFn, nil
}
