package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"storygraph/internal/config"
	"storygraph/internal/registry"
	"storygraph/internal/timeline"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var bin bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show registered assets and their pipeline state",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *registry.Store) error {
				assets, err := store.All(cmd.Context())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(assets) == 0 {
					fmt.Fprintln(out, "No assets registered; run `storygraph discover <folder-id>` first")
					return nil
				}
				if bin {
					return renderBin(out, assets, timeline.OptionsFromConfig(cfg))
				}
				renderAssets(out, assets)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&bin, "bin", false, "Show the multicam bin: master spine and angle placements")
	return cmd
}

func renderAssets(out io.Writer, assets []*registry.Asset) {
	rows := make([][]string, 0, len(assets))
	counts := map[registry.JobStatus]int{}
	for _, a := range assets {
		counts[a.Job.Status]++
		rows = append(rows, []string{
			a.Filename,
			a.RelativePath,
			label(string(a.MediaCategory)),
			label(string(a.ClipType)),
			string(a.LastStage),
			label(string(a.Job.Status)),
			strconv.FormatInt(a.SyncOffsetFrames, 10),
			yesNo(a.AnalysisContent != ""),
		})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"File", "Path", "Category", "Type", "Stage", "Job", "Offset", "Analysis"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
	))
	fmt.Fprintf(out, "%d assets: %d in flight, %d complete, %d failed\n",
		len(assets), counts[registry.JobInFlight], counts[registry.JobComplete]+counts[registry.JobLightComplete], counts[registry.JobError])
}

func renderBin(out io.Writer, assets []*registry.Asset, opts timeline.Options) error {
	doc, err := timeline.Synthesize(assets, opts)
	if err != nil {
		return err
	}
	rows := make([][]string, 0, len(doc.Angles)+1)
	for _, p := range append([]timeline.Placement{doc.Master}, doc.Angles...) {
		rows = append(rows, []string{
			label(string(p.Role)),
			p.Filename,
			strconv.FormatInt(p.Start, 10),
			strconv.FormatInt(p.Duration, 10),
			strconv.FormatInt(p.Offset, 10),
			p.NativeStartTimecode,
		})
	}
	fmt.Fprintf(out, "%s (%d fps, %d frames)\n", doc.SequenceName, doc.Timebase, doc.Duration)
	fmt.Fprintln(out, renderTable(
		[]string{"Role", "File", "Start", "Duration", "Offset", "Source TC"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignRight, alignLeft},
	))
	return nil
}

// label title-cases a stored enum value for display, "b-roll" as "B-Roll".
func label(value string) string {
	value = strings.ReplaceAll(value, "_", " ")
	if strings.TrimSpace(value) == "" {
		return "-"
	}
	return cases.Title(language.English).String(value)
}
