package stage

import (
	"context"

	"storygraph/internal/registry"
)

// Handler describes the contract the pipeline needs from each phase.
//
// Eligible is a pure predicate over the stored record; the pipeline
// recomputes it from the registry on every run, which keeps interrupted
// phases resumable. Execute performs the remote work for one asset and
// persists its outcome.
type Handler interface {
	Name() string
	Eligible(*registry.Asset) bool
	Execute(context.Context, *registry.Asset) error
	HealthCheck(context.Context) Health
}

// Health reports whether the remote dependency behind a phase is usable.
type Health struct {
	Phase  string
	Ready  bool
	Detail string
}

// Ready builds a usable Health record.
func Ready(phase string) Health {
	return Health{Phase: phase, Ready: true}
}

// NotReady builds an unusable Health record with the reason.
func NotReady(phase, detail string) Health {
	return Health{Phase: phase, Detail: detail}
}

func (h Health) String() string {
	if h.Ready {
		return h.Phase + ": ready"
	}
	return h.Phase + ": " + h.Detail
}
