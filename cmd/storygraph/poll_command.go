package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"storygraph/internal/config"
	"storygraph/internal/poller"
	"storygraph/internal/registry"
)

func newPollCommand(ctx *commandContext) *cobra.Command {
	var once bool

	cmd := &cobra.Command{
		Use:   "poll",
		Short: "Reconcile in-flight analysis jobs until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			return ctx.withStore(func(cfg *config.Config, store *registry.Store) error {
				router, closeChecker, err := statusChecker(cmd.Context(), cfg, logger)
				if err != nil {
					return err
				}
				defer closeChecker()

				p := poller.New(store, router, poller.OptionsFromConfig(cfg), logger)
				if !once {
					fmt.Fprintf(cmd.OutOrStdout(), "Polling every %s; press Ctrl+C to stop\n", cfg.PollInterval())
					return p.Run(cmd.Context())
				}
				report, err := p.Tick(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "In flight: %d, checked: %d, resolved: %d, failed: %d, errors: %d\n",
					report.InFlight, report.Checked, report.Resolved, report.Failed, report.Errors)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&once, "once", false, "Run a single reconciliation pass and exit")
	return cmd
}
