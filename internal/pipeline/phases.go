package pipeline

import (
	"context"
	"fmt"
	"strings"

	"storygraph/internal/forensic"
	"storygraph/internal/registry"
	"storygraph/internal/services"
	"storygraph/internal/stage"
)

// Phase names a forensic pass.
type Phase string

const (
	PhaseTech       Phase = "tech"
	PhaseCategorize Phase = "categorize"
	PhaseSync       Phase = "sync"
	PhaseAnalyze    Phase = "analyze"
)

// Phases lists every phase in pipeline order.
var Phases = []Phase{PhaseTech, PhaseCategorize, PhaseSync, PhaseAnalyze}

// ParsePhase accepts a phase name or its number (0 tech, 1 categorize, 2 sync,
// 3 analyze).
func ParsePhase(raw string) (Phase, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "tech", "0":
		return PhaseTech, nil
	case "categorize", "triage", "1":
		return PhaseCategorize, nil
	case "sync", "2":
		return PhaseSync, nil
	case "analyze", "deep", "3":
		return PhaseAnalyze, nil
	}
	return "", services.Wrap(services.ErrValidation, "pipeline", "parse phase",
		fmt.Sprintf("unknown phase %q", raw), nil)
}

type techHandler struct{ d *forensic.Dispatcher }

func (h techHandler) Name() string                   { return string(PhaseTech) }
func (h techHandler) Eligible(a *registry.Asset) bool { return NeedsTech(a) }

func (h techHandler) Execute(ctx context.Context, a *registry.Asset) error {
	_, err := h.d.TechSpecs(ctx, a)
	return err
}

func (h techHandler) HealthCheck(context.Context) stage.Health {
	if !h.d.CanExtract() {
		return stage.NotReady(h.Name(), "services.extractor_url not configured")
	}
	return stage.Ready(h.Name())
}

type categorizeHandler struct{ d *forensic.Dispatcher }

func (h categorizeHandler) Name() string                   { return string(PhaseCategorize) }
func (h categorizeHandler) Eligible(a *registry.Asset) bool { return NeedsCategorization(a) }

func (h categorizeHandler) Execute(ctx context.Context, a *registry.Asset) error {
	_, err := h.d.Categorize(ctx, a)
	return err
}

func (h categorizeHandler) HealthCheck(context.Context) stage.Health {
	if !h.d.CanClassify() {
		return stage.NotReady(h.Name(), "services.triage_url not configured")
	}
	return stage.Ready(h.Name())
}

// syncHandler is built per batch: it carries the resolved master and the
// timeline rate offsets are expressed in.
type syncHandler struct {
	d           *forensic.Dispatcher
	master      *registry.Asset
	timelineFPS float64
	force       bool
}

func (h syncHandler) Name() string                   { return string(PhaseSync) }
func (h syncHandler) Eligible(a *registry.Asset) bool { return NeedsSync(a, h.force) }

func (h syncHandler) Execute(ctx context.Context, a *registry.Asset) error {
	_, err := h.d.Sync(ctx, h.master, a, h.timelineFPS)
	return err
}

func (h syncHandler) HealthCheck(context.Context) stage.Health {
	if !h.d.CanAlign() {
		return stage.NotReady(h.Name(), "services.sync_url not configured")
	}
	return stage.Ready(h.Name())
}

type analyzeHandler struct{ d *forensic.Dispatcher }

func (h analyzeHandler) Name() string                   { return string(PhaseAnalyze) }
func (h analyzeHandler) Eligible(a *registry.Asset) bool { return NeedsDeepAnalysis(a) }

func (h analyzeHandler) Execute(ctx context.Context, a *registry.Asset) error {
	_, err := h.d.DeepAnalyze(ctx, a)
	return err
}

func (h analyzeHandler) HealthCheck(context.Context) stage.Health {
	if !h.d.CanAnalyze() {
		return stage.NotReady(h.Name(), "google.video_ai_enabled is false")
	}
	return stage.Ready(h.Name())
}
