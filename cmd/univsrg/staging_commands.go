package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"univsrg/internal/logging"
	"univsrg/internal/staging"
)

func newStagingCommand(ctx *commandContext) *cobra.Command {
	stagingCmd := &cobra.Command{
		Use:   "staging",
		Short: "Manage scratch directories",
	}

	stagingCmd.AddCommand(newStagingCleanCommand(ctx))

	return stagingCmd
}

func newStagingCleanCommand(ctx *commandContext) *cobra.Command {
	var olderThan time.Duration

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove scratch directories left behind by interrupted runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			maxAge := olderThan
			if !cmd.Flags().Changed("older-than") {
				maxAge = cfg.StaleAfter()
			}
			if maxAge < 0 {
				return fmt.Errorf("--older-than must not be negative")
			}

			result := staging.CleanStale(cmd.Context(), cfg.Paths.StagingDir, maxAge, logging.NewComponentLogger(logger, "staging"))
			if ctx.JSONMode() {
				failed := make([]map[string]string, 0, len(result.Errors))
				for _, e := range result.Errors {
					failed = append(failed, map[string]string{"path": e.Path, "error": e.Error.Error()})
				}
				removed := result.Removed
				if removed == nil {
					removed = []string{}
				}
				return writeJSON(cmd, map[string]any{"removed": removed, "errors": failed})
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Removed %d scratch directories from %s\n", len(result.Removed), cfg.Paths.StagingDir)
			for _, e := range result.Errors {
				fmt.Fprintf(out, "  failed: %s: %v\n", e.Path, e.Error)
			}
			if len(result.Errors) > 0 {
				return fmt.Errorf("%d scratch directories could not be removed", len(result.Errors))
			}
			return nil
		},
	}

	cmd.Flags().DurationVar(&olderThan, "older-than", 0, "Minimum age to remove (default staging.stale_after_hours)")
	return cmd
}
