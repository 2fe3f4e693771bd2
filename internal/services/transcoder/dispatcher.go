package transcoder

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"storygraph/internal/logging"
)

const defaultOutcomeBuffer = 64

// Trigger is the side effect the dispatcher fires.
type Trigger interface {
	Trigger(ctx context.Context, filename string) error
}

// Outcome reports how one dispatched trigger ended.
type Outcome struct {
	AssetID  string
	Filename string
	Err      error
	Duration time.Duration
}

// Dispatcher fires transcode triggers in the background and reports each
// result on its outcome channel. Dispatch never blocks the caller and never
// fails it; callers that care read Outcomes.
type Dispatcher struct {
	trigger Trigger
	timeout time.Duration
	logger  *slog.Logger

	mu       sync.Mutex
	closed   bool
	wg       sync.WaitGroup
	outcomes chan Outcome
}

// NewDispatcher builds a dispatcher. timeout bounds each trigger because the
// work outlives the dispatching request.
func NewDispatcher(trigger Trigger, timeout time.Duration, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Dispatcher{
		trigger:  trigger,
		timeout:  timeout,
		logger:   logging.NewComponentLogger(logger, "transcoder"),
		outcomes: make(chan Outcome, defaultOutcomeBuffer),
	}
}

// Outcomes returns the channel results are published on. It is closed by Close.
func (d *Dispatcher) Outcomes() <-chan Outcome {
	return d.outcomes
}

// Dispatch starts a trigger for filename. Cancellation of ctx does not stop
// it; values carried by ctx are kept for logging.
func (d *Dispatcher) Dispatch(ctx context.Context, assetID, filename string) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		d.logger.Warn("transcode dispatch after close",
			logging.String(logging.FieldEventType, "transcode_dropped"),
			logging.AssetID(assetID),
			logging.String(logging.FieldErrorHint, "dispatcher already closed"),
			logging.String(logging.FieldImpact, "file will not be transcoded"),
		)
		return
	}
	d.wg.Add(1)
	d.mu.Unlock()

	base := context.WithoutCancel(ctx)
	go func() {
		defer d.wg.Done()
		callCtx := base
		if d.timeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(base, d.timeout)
			defer cancel()
		}
		start := time.Now()
		err := d.trigger.Trigger(callCtx, filename)
		d.publish(Outcome{AssetID: assetID, Filename: filename, Err: err, Duration: time.Since(start)})
	}()
}

func (d *Dispatcher) publish(outcome Outcome) {
	select {
	case d.outcomes <- outcome:
	default:
		d.logger.Warn("transcode outcome dropped",
			logging.String(logging.FieldEventType, "transcode_outcome_dropped"),
			logging.AssetID(outcome.AssetID),
			logging.String(logging.FieldErrorHint, "drain Outcomes more often"),
			logging.String(logging.FieldImpact, "result not reported"),
		)
	}
}

// Close waits for outstanding triggers and closes the outcome channel.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	d.mu.Unlock()
	d.wg.Wait()
	close(d.outcomes)
}
