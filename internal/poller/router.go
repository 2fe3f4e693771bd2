package poller

import (
	"context"
	"strings"

	"storygraph/internal/services"
	"storygraph/internal/services/jobstatus"
)

// Checker reports the state of one remote job.
type Checker interface {
	Check(ctx context.Context, jobID string) (jobstatus.Status, error)
}

// Router sends Video Intelligence operation names to Operations and every
// other job id to Default.
type Router struct {
	Operations Checker
	Default    Checker
}

// Check implements Checker.
func (r Router) Check(ctx context.Context, jobID string) (jobstatus.Status, error) {
	target := r.Default
	if strings.HasPrefix(jobID, "projects/") && r.Operations != nil {
		target = r.Operations
	}
	if target == nil {
		return jobstatus.Status{}, services.Wrap(services.ErrConfiguration, "poller", "check",
			"no status checker for job "+jobID, nil)
	}
	return target.Check(ctx, jobID)
}
