package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"storygraph/internal/config"
	"storygraph/internal/discovery"
	"storygraph/internal/registry"
	"storygraph/internal/services"
	"storygraph/internal/services/drive"
)

// newDriveLister is the discovery source; tests replace it.
var newDriveLister = func(ctx context.Context, cfg *config.Config) (discovery.Lister, error) {
	return drive.New(ctx, cfg.Google.CredentialsFile)
}

func newDiscoverCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "discover <folder-id>",
		Short: "Register every media file under a Drive folder",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rootID := strings.TrimSpace(args[0])
			if rootID == "" {
				return services.Wrap(services.ErrValidation, "discover", "parse args", "folder id required", nil)
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			return ctx.withStore(func(cfg *config.Config, store *registry.Store) error {
				if !cfg.Google.DriveEnabled {
					return services.Wrap(services.ErrConfiguration, "discover", "drive", "set google.drive_enabled = true to discover from Drive", nil)
				}
				lister, err := newDriveLister(cmd.Context(), cfg)
				if err != nil {
					return err
				}
				walker := discovery.NewWalker(lister, logger)
				report, err := discovery.Ingest(cmd.Context(), walker, store, rootID, logger)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Discovered %d media files (%d video, %d audio)\n",
					report.Discovered, report.Video, report.Audio)
				return nil
			})
		},
	}
}
