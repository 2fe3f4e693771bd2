package preflight

import (
	"context"

	"storygraph/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all applicable preflight checks for the given config.
// Service checks are only run for configured endpoints.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Data directory", cfg.Paths.DataDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
		CheckDirectoryAccess("Export directory", cfg.Paths.ExportDir),
	}

	for _, svc := range configuredServices(cfg) {
		results = append(results, CheckService(ctx, svc.name, svc.url))
	}

	if usesGoogle(cfg) {
		results = append(results, CheckCredentials(cfg.Google.CredentialsFile))
	}
	return results
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if !r.Passed {
			out = append(out, r)
		}
	}
	return out
}

type service struct {
	name string
	url  string
}

func configuredServices(cfg *config.Config) []service {
	all := []service{
		{"Extractor service", cfg.Services.ExtractorURL},
		{"Triage service", cfg.Services.TriageURL},
		{"Sync service", cfg.Services.SyncURL},
		{"Transcode trigger", cfg.Services.TranscodeURL},
		{"Job status service", cfg.Services.JobStatusURL},
	}
	out := all[:0]
	for _, svc := range all {
		if svc.url != "" {
			out = append(out, svc)
		}
	}
	return out
}

func usesGoogle(cfg *config.Config) bool {
	g := cfg.Google
	return g.DriveEnabled || g.MirrorEnabled || g.VideoAIEnabled || g.IdentityTokens
}
