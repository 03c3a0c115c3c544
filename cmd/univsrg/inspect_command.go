package main

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"univsrg/internal/chart"
	"univsrg/internal/convert"
	"univsrg/internal/filter"
	"univsrg/internal/osu"
)

func newInspectCommand(ctx *commandContext) *cobra.Command {
	var (
		filterExpr    string
		keepPathIndex bool
	)

	cmd := &cobra.Command{
		Use:   "inspect <input.osz>...",
		Short: "List the beatmaps and problems in bundles without writing anything",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			selector, err := filter.Compile(filterExpr)
			if err != nil {
				return err
			}
			return ctx.withConverter(func(conv *convert.Converter) error {
				pkg, reports, err := conv.Inspect(cmd.Context(), args, keepPathIndex)
				if err != nil {
					return err
				}
				beatmaps := make([]*chart.Beatmap, 0, len(pkg.Beatmaps))
				for _, b := range pkg.Beatmaps {
					ok, err := selector.Match(b)
					if err != nil {
						return err
					}
					if ok {
						beatmaps = append(beatmaps, b)
					}
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, inspectJSON(beatmaps, reports, pkg.Resources.TotalBytes()))
				}
				printInspect(cmd.OutOrStdout(), beatmaps, reports, pkg)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&filterExpr, "filter", "", "Only list beatmaps matching this expression")
	cmd.Flags().BoolVar(&keepPathIndex, "keep-path-index", false, "Let paths in later bundles resolve to files from earlier ones")
	return cmd
}

func printInspect(out io.Writer, beatmaps []*chart.Beatmap, reports []*osu.ParseReport, pkg *chart.Package) {
	if len(beatmaps) == 0 {
		fmt.Fprintln(out, "No beatmaps found")
	} else {
		rows := make([][]string, 0, len(beatmaps))
		for _, b := range beatmaps {
			stats := b.Stats()
			rows = append(rows, []string{
				b.Source,
				strconv.Itoa(b.ColumnCount),
				b.Title.Best(),
				b.Version,
				b.Creator,
				strconv.Itoa(stats.Notes),
				strconv.Itoa(stats.LongNotes),
				formatBPM(stats),
				formatLength(stats.LengthMs),
			})
		}
		fmt.Fprintln(out, renderTable(out,
			[]string{"Source", "Keys", "Title", "Version", "Creator", "Notes", "LNs", "BPM", "Length"},
			rows,
			[]columnAlignment{alignLeft, alignRight, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight},
		))
	}
	fmt.Fprintf(out, "%d beatmaps, %d distinct resources (%s)\n",
		len(beatmaps), pkg.Resources.Len(), humanize.IBytes(uint64(pkg.Resources.TotalBytes())))

	var rows [][]string
	for _, r := range reports {
		for _, f := range r.Failures {
			rows = append(rows, []string{r.Bundle, f.Item, f.Kind(), f.Err.Error()})
		}
	}
	if len(rows) > 0 {
		fmt.Fprintln(out)
		fmt.Fprintln(out, renderTable(out, []string{"Bundle", "Chart", "Kind", "Error"}, rows, nil))
	}
}

func formatBPM(stats chart.Stats) string {
	if stats.MaxBPM == 0 {
		return "-"
	}
	if stats.MinBPM == stats.MaxBPM {
		return strconv.FormatFloat(stats.MinBPM, 'f', -1, 64)
	}
	return strconv.FormatFloat(stats.MinBPM, 'f', -1, 64) + "-" + strconv.FormatFloat(stats.MaxBPM, 'f', -1, 64)
}

func formatLength(ms int) string {
	d := time.Duration(ms) * time.Millisecond
	return fmt.Sprintf("%d:%02d", int(d.Minutes()), int(d.Seconds())%60)
}

type inspectBeatmapJSON struct {
	Source    string  `json:"source"`
	Keys      int     `json:"keys"`
	Title     string  `json:"title"`
	Artist    string  `json:"artist"`
	Version   string  `json:"version"`
	Creator   string  `json:"creator"`
	Notes     int     `json:"notes"`
	LongNotes int     `json:"long_notes"`
	MinBPM    float64 `json:"min_bpm"`
	MaxBPM    float64 `json:"max_bpm"`
	LengthMs  int     `json:"length_ms"`
}

type inspectFailureJSON struct {
	Bundle  string `json:"bundle"`
	Item    string `json:"item"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

type inspectJSONPayload struct {
	Beatmaps      []inspectBeatmapJSON `json:"beatmaps"`
	Failures      []inspectFailureJSON `json:"failures"`
	ResourceBytes int64                `json:"resource_bytes"`
}

func inspectJSON(beatmaps []*chart.Beatmap, reports []*osu.ParseReport, resourceBytes int64) inspectJSONPayload {
	payload := inspectJSONPayload{
		Beatmaps:      make([]inspectBeatmapJSON, 0, len(beatmaps)),
		Failures:      []inspectFailureJSON{},
		ResourceBytes: resourceBytes,
	}
	for _, b := range beatmaps {
		stats := b.Stats()
		payload.Beatmaps = append(payload.Beatmaps, inspectBeatmapJSON{
			Source:    b.Source,
			Keys:      b.ColumnCount,
			Title:     b.Title.Best(),
			Artist:    b.Artist.Best(),
			Version:   b.Version,
			Creator:   b.Creator,
			Notes:     stats.Notes,
			LongNotes: stats.LongNotes,
			MinBPM:    stats.MinBPM,
			MaxBPM:    stats.MaxBPM,
			LengthMs:  stats.LengthMs,
		})
	}
	for _, r := range reports {
		for _, f := range r.Failures {
			payload.Failures = append(payload.Failures, inspectFailureJSON{
				Bundle:  r.Bundle,
				Item:    f.Item,
				Kind:    f.Kind(),
				Message: f.Err.Error(),
			})
		}
	}
	return payload
}
