package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"univsrg/internal/history"
)

var errHistoryDisabled = errors.New("history is disabled; set history.enabled = true in the config")

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect past conversions",
	}

	historyCmd.AddCommand(newHistoryListCommand(ctx))
	historyCmd.AddCommand(newHistoryShowCommand(ctx))
	historyCmd.AddCommand(newHistoryPruneCommand(ctx))

	return historyCmd
}

func (c *commandContext) withHistory(fn func(*history.Store) error) error {
	store, err := c.openHistory()
	if err != nil {
		return err
	}
	if store == nil {
		return errHistoryDisabled
	}
	defer store.Close()
	return fn(store)
}

func newHistoryListCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent conversion runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withHistory(func(store *history.Store) error {
				runs, err := store.ListRuns(cmd.Context(), limit)
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					payload := make([]runJSON, 0, len(runs))
					for _, run := range runs {
						payload = append(payload, toRunJSON(run))
					}
					return writeJSON(cmd, payload)
				}
				out := cmd.OutOrStdout()
				if len(runs) == 0 {
					fmt.Fprintln(out, "No conversions recorded")
					return nil
				}
				rows := make([][]string, 0, len(runs))
				for _, run := range runs {
					rows = append(rows, []string{
						shortID(run.ID),
						humanize.Time(run.StartedAt),
						string(run.Status),
						strconv.Itoa(len(run.Inputs)),
						strconv.Itoa(run.Summary.ChartsWritten),
						strconv.Itoa(run.Summary.Failed),
						run.Output,
					})
				}
				fmt.Fprintln(out, renderTable(out,
					[]string{"ID", "Started", "Status", "Inputs", "Charts", "Failed", "Output"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignLeft},
				))
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of runs to show (0 for all)")
	return cmd
}

func newHistoryShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show one run and everything it skipped",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withHistory(func(store *history.Store) error {
				run, err := store.GetRun(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if run == nil {
					return fmt.Errorf("run %s not found", args[0])
				}
				failures, err := store.Failures(cmd.Context(), run.ID)
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					payload := toRunJSON(*run)
					payload.Failures = make([]failureJSON, 0, len(failures))
					for _, f := range failures {
						payload.Failures = append(payload.Failures, failureJSON{Stage: f.Stage, Item: f.Item, Kind: f.Kind, Message: f.Message})
					}
					return writeJSON(cmd, payload)
				}
				printRun(cmd.OutOrStdout(), run, failures)
				return nil
			})
		},
	}
}

func printRun(out io.Writer, run *history.Run, failures []history.Failure) {
	fmt.Fprintf(out, "Run:       %s\n", run.ID)
	fmt.Fprintf(out, "Status:    %s\n", run.Status)
	fmt.Fprintf(out, "Started:   %s (%s)\n", run.StartedAt.Local().Format(time.DateTime), humanize.Time(run.StartedAt))
	if run.FinishedAt != nil {
		fmt.Fprintf(out, "Duration:  %s\n", run.Duration().Round(time.Millisecond))
	}
	fmt.Fprintf(out, "Output:    %s\n", run.Output)
	for i, input := range run.Inputs {
		label := ""
		if i == 0 {
			label = "Inputs:"
		}
		fmt.Fprintf(out, "%-10s %s\n", label, input)
	}
	if run.Filter != "" {
		fmt.Fprintf(out, "Filter:    %s\n", run.Filter)
	}
	fmt.Fprintf(out, "Charts:    %d\n", run.Summary.ChartsWritten)
	fmt.Fprintf(out, "Resources: %d\n", run.Summary.Resources)
	fmt.Fprintf(out, "Filtered:  %d\n", run.Summary.Filtered)
	fmt.Fprintf(out, "Failed:    %d\n", run.Summary.Failed)
	if run.ErrorMessage != "" {
		fmt.Fprintf(out, "Error:     %s\n", run.ErrorMessage)
	}
	if len(failures) == 0 {
		return
	}
	rows := make([][]string, 0, len(failures))
	for _, f := range failures {
		rows = append(rows, []string{f.Stage, f.Item, f.Kind, f.Message})
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, renderTable(out, []string{"Stage", "Item", "Kind", "Error"}, rows, nil))
}

func newHistoryPruneCommand(ctx *commandContext) *cobra.Command {
	var days int

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete finished runs older than --days",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if days < 0 {
				return fmt.Errorf("--days must not be negative")
			}
			return ctx.withHistory(func(store *history.Store) error {
				cutoff := time.Now().AddDate(0, 0, -days)
				removed, err := store.Prune(cmd.Context(), cutoff)
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, map[string]any{"removed": removed, "cutoff": cutoff.UTC()})
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d runs started before %s\n", removed, cutoff.Format(time.DateOnly))
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&days, "days", 30, "Keep runs started within this many days")
	return cmd
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

type failureJSON struct {
	Stage   string `json:"stage"`
	Item    string `json:"item"`
	Kind    string `json:"kind"`
	Message string `json:"message,omitempty"`
}

type runJSON struct {
	ID           string        `json:"id"`
	Status       string        `json:"status"`
	StartedAt    time.Time     `json:"started_at"`
	FinishedAt   *time.Time    `json:"finished_at,omitempty"`
	Inputs       []string      `json:"inputs"`
	Output       string        `json:"output"`
	Filter       string        `json:"filter,omitempty"`
	Charts       int           `json:"charts_written"`
	Resources    int           `json:"resources"`
	Filtered     int           `json:"filtered"`
	Failed       int           `json:"failed"`
	ErrorMessage string        `json:"error,omitempty"`
	Failures     []failureJSON `json:"failures,omitempty"`
}

func toRunJSON(run history.Run) runJSON {
	inputs := run.Inputs
	if inputs == nil {
		inputs = []string{}
	}
	return runJSON{
		ID:           run.ID,
		Status:       string(run.Status),
		StartedAt:    run.StartedAt,
		FinishedAt:   run.FinishedAt,
		Inputs:       inputs,
		Output:       run.Output,
		Filter:       run.Filter,
		Charts:       run.Summary.ChartsWritten,
		Resources:    run.Summary.Resources,
		Filtered:     run.Summary.Filtered,
		Failed:       run.Summary.Failed,
		ErrorMessage: run.ErrorMessage,
	}
}
