// Package stageexec runs one phase handler against one asset with the request
// scoping and logging every phase shares.
package stageexec

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"storygraph/internal/logging"
	"storygraph/internal/registry"
	"storygraph/internal/services"
	"storygraph/internal/stage"
)

// Options describes a single handler invocation.
type Options struct {
	Logger  *slog.Logger
	Handler stage.Handler
	Asset   *registry.Asset
	// RequestID overrides the generated id, for callers that already have one.
	RequestID string
}

// Run executes the handler for the asset. The context passed to the handler
// carries the asset id, the phase, and a fresh request id. Cancellation is
// returned unlogged; every other failure is logged as a warning because the
// batch carries on.
func Run(ctx context.Context, opts Options) error {
	if opts.Handler == nil {
		return fmt.Errorf("stage handler unavailable")
	}
	if opts.Asset == nil {
		return fmt.Errorf("asset is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	requestID := opts.RequestID
	if requestID == "" {
		requestID = uuid.NewString()
	}

	asset := opts.Asset
	ctx = services.WithPhase(ctx, opts.Handler.Name())
	ctx = services.WithRequestID(services.WithAssetID(ctx, asset.ID), requestID)
	assetLogger := logging.WithContext(ctx, logger)

	started := time.Now()
	assetLogger.Debug("asset started",
		logging.String(logging.FieldEventType, "asset_start"),
		logging.String("file", asset.DisplayPath()),
	)
	if err := opts.Handler.Execute(ctx, asset); err != nil {
		if errors.Is(err, context.Canceled) {
			assetLogger.Debug("asset interrupted")
			return err
		}
		logging.WarnWithContext(assetLogger, "asset failed", "asset_failed",
			append(logging.ErrorAttrs(err),
				logging.String("file", asset.DisplayPath()),
				logging.String(logging.FieldImpact, "asset recorded as error; batch continues"),
			)...,
		)
		return err
	}
	assetLogger.Info("asset completed",
		logging.String(logging.FieldEventType, "asset_complete"),
		logging.String("file", asset.DisplayPath()),
		logging.Duration("asset_duration", time.Since(started)),
	)
	return nil
}
