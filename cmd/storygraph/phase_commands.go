package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"storygraph/internal/config"
	"storygraph/internal/logging"
	"storygraph/internal/pipeline"
	"storygraph/internal/preflight"
	"storygraph/internal/registry"
	"storygraph/internal/services"
)

func newPhaseCommand(ctx *commandContext) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "phase <tech|categorize|sync|analyze>",
		Short: "Run one forensic phase over every eligible asset",
		Long: `Run one forensic phase over every eligible asset, one asset at a time.

Phases:
  tech        extract technical metadata (0)
  categorize  triage clips as interview or b-roll (1)
  sync        compute angle offsets against the master audio (2)
  analyze     start deep analysis jobs; reconcile them with poll (3)`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			phase, err := pipeline.ParsePhase(args[0])
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			return ctx.withStore(func(cfg *config.Config, store *registry.Store) error {
				if err := checkPhaseService(cmd, cfg, phase); err != nil {
					return err
				}
				rt, err := buildPipeline(cmd.Context(), cfg, store, phase, logger)
				if err != nil {
					return err
				}
				report, runErr := rt.orchestrator.RunPhase(cmd.Context(), phase, pipeline.RunOptions{Force: force})
				closeErr := rt.Close()
				if report != nil {
					printBatchReport(cmd.OutOrStdout(), report)
				}
				if runErr != nil {
					return runErr
				}
				if closeErr != nil {
					logger.Debug("release remote clients failed", logging.Error(closeErr))
				}
				if report.Failed > 0 {
					return fmt.Errorf("%s phase: %d of %d assets failed", phase, report.Failed, report.Eligible)
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Re-sync angles that already have an offset")
	return cmd
}

// checkPhaseService probes the endpoint a phase depends on before the batch
// starts, so an unreachable service fails once instead of once per asset.
func checkPhaseService(cmd *cobra.Command, cfg *config.Config, phase pipeline.Phase) error {
	var name, url string
	switch phase {
	case pipeline.PhaseTech:
		name, url = "Extractor service", cfg.Services.ExtractorURL
	case pipeline.PhaseCategorize:
		name, url = "Triage service", cfg.Services.TriageURL
	case pipeline.PhaseSync:
		name, url = "Sync service", cfg.Services.SyncURL
	}
	if strings.TrimSpace(url) == "" {
		return nil
	}
	result := preflight.CheckService(cmd.Context(), name, url)
	if result.Passed {
		return nil
	}
	return services.Wrap(services.ErrRemoteService, "preflight", string(phase), name+": "+result.Detail, nil)
}

func printBatchReport(out io.Writer, report *pipeline.BatchReport) {
	fmt.Fprintf(out, "Phase %s: %d eligible, %d succeeded, %d failed", report.Phase, report.Eligible, report.Succeeded, report.Failed)
	if report.Skipped > 0 {
		fmt.Fprintf(out, ", %d skipped", report.Skipped)
	}
	fmt.Fprintf(out, " (%s)\n", report.Duration.Round(time.Millisecond))
	if len(report.Failures) == 0 {
		return
	}
	rows := make([][]string, 0, len(report.Failures))
	for _, f := range report.Failures {
		rows = append(rows, []string{f.AssetID, f.Filename, f.Err.Error()})
	}
	fmt.Fprintln(out, renderTable([]string{"Asset", "File", "Error"}, rows, nil))
}

func newExportCommand(ctx *commandContext) *cobra.Command {
	var output string
	var name string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the synchronized multicam timeline as XMEML",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			return ctx.withStore(func(cfg *config.Config, store *registry.Store) error {
				target := strings.TrimSpace(output)
				if target != "" {
					expanded, err := config.ExpandPath(target)
					if err != nil {
						return fmt.Errorf("resolve output path: %w", err)
					}
					target = expanded
				}
				rt, err := buildPipeline(cmd.Context(), cfg, store, "", logger)
				if err != nil {
					return err
				}
				defer rt.Close()

				result, err := rt.orchestrator.Export(cmd.Context(), pipeline.ExportOptions{
					Output:       target,
					SequenceName: name,
				})
				if err != nil {
					return err
				}
				doc := result.Document
				fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s: %q, %d angles, %d frames at %d fps\n",
					result.Path, doc.SequenceName, len(doc.Angles), doc.Duration, doc.Timebase)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Destination file (defaults to export_dir/output_file)")
	cmd.Flags().StringVarP(&name, "name", "n", "", "Sequence name override")
	return cmd
}
