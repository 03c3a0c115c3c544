package main

import (
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"univsrg/internal/convert"
)

func newConvertCommand(ctx *commandContext) *cobra.Command {
	var (
		output        string
		filterExpr    string
		keepPathIndex bool
		force         bool
	)

	cmd := &cobra.Command{
		Use:   "convert <input.osz>... -o <output.osz>",
		Short: "Merge input bundles into one output bundle",
		Long: `Decode every chart of every input bundle, optionally keep only the
beatmaps matching --filter, and write them with their audio and backgrounds
into a single output bundle. Identical resources are stored once.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := convert.Request{
				Inputs:        args,
				Output:        output,
				Filter:        filterExpr,
				KeepPathIndex: keepPathIndex,
				Overwrite:     force,
			}
			return ctx.withConverter(func(conv *convert.Converter) error {
				report, err := conv.Run(cmd.Context(), req)
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, convertJSON(report))
				}
				printConvertReport(cmd.OutOrStdout(), report)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output bundle path (required)")
	cmd.Flags().StringVar(&filterExpr, "filter", "", "Beatmap filter expression, overriding export.filter")
	cmd.Flags().BoolVar(&keepPathIndex, "keep-path-index", false, "Let paths in later bundles resolve to files from earlier ones")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Replace the output bundle if it exists")
	_ = cmd.MarkFlagRequired("output")
	return cmd
}

func printConvertReport(out io.Writer, report *convert.Report) {
	summary := report.Summary()
	fmt.Fprintf(out, "Wrote %s\n", report.Output)
	fmt.Fprintf(out, "  charts:    %d\n", summary.ChartsWritten)
	fmt.Fprintf(out, "  resources: %d\n", summary.Resources)
	if summary.Filtered > 0 {
		fmt.Fprintf(out, "  filtered:  %d\n", summary.Filtered)
	}
	fmt.Fprintf(out, "  run:       %s (%s)\n", report.RunID, report.Duration.Round(time.Millisecond))

	var failed []convert.ItemFailure
	for _, f := range report.Failures {
		if f.Err != nil {
			failed = append(failed, f)
		}
	}
	if len(failed) == 0 {
		return
	}
	fmt.Fprintf(out, "\n%s skipped:\n", humanize.Comma(int64(len(failed))))
	rows := make([][]string, 0, len(failed))
	for _, f := range failed {
		rows = append(rows, []string{f.Stage, f.Item, f.Kind(), f.Message()})
	}
	fmt.Fprintln(out, renderTable(out, []string{"Stage", "Item", "Kind", "Error"}, rows, nil))
}

type convertFailureJSON struct {
	Stage   string `json:"stage"`
	Item    string `json:"item"`
	Kind    string `json:"kind"`
	Message string `json:"message,omitempty"`
}

type convertReportJSON struct {
	RunID      string               `json:"run_id"`
	Output     string               `json:"output"`
	Charts     []string             `json:"charts"`
	Resources  int                  `json:"resources"`
	Filtered   []string             `json:"filtered"`
	Failures   []convertFailureJSON `json:"failures"`
	DurationMs int64                `json:"duration_ms"`
}

func convertJSON(report *convert.Report) convertReportJSON {
	payload := convertReportJSON{
		RunID:      report.RunID,
		Output:     report.Output,
		Charts:     []string{},
		Filtered:   report.Filtered,
		Failures:   []convertFailureJSON{},
		DurationMs: report.Duration.Milliseconds(),
	}
	if payload.Filtered == nil {
		payload.Filtered = []string{}
	}
	if report.Compiled != nil {
		payload.Resources = report.Compiled.Resources
		for _, c := range report.Compiled.Charts {
			payload.Charts = append(payload.Charts, c.Name)
		}
	}
	for _, f := range report.Failures {
		if f.Err == nil {
			continue
		}
		payload.Failures = append(payload.Failures, convertFailureJSON{
			Stage:   f.Stage,
			Item:    f.Item,
			Kind:    f.Kind(),
			Message: f.Message(),
		})
	}
	return payload
}
