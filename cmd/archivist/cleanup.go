package main

import (
	"encoding/json"
	"fmt"

	"github.com/4thel00z/archivist/internal"
	"github.com/spf13/cobra"
)

func NewCleanupCmd(uc func() *internal.UseCases, cfg func() *internal.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Delete snapshots outside the retention window",
		Long: `Delete snapshots older than the retention window. With --keep-monthly the
first snapshot of every month is kept regardless of age.`,
		Args: cobra.NoArgs,
		RunE: makeCleanupRunner(uc, cfg),
	}

	cmd.Flags().Int("days", -1, "Maximum snapshot age in days (0 keeps everything; default from config)")
	cmd.Flags().Bool("keep-monthly", true, "Keep the first snapshot of each month")
	cmd.Flags().Bool("dry-run", false, "Show what would be deleted without deleting")
	cmd.Flags().String("site", "", "Only clean up this site (name or slug)")
	return cmd
}

func makeCleanupRunner(uc func() *internal.UseCases, cfg func() *internal.Config) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		policy := cfg().Retention
		if cmd.Flags().Changed("days") {
			policy.MaxAgeDays, _ = cmd.Flags().GetInt("days")
		}
		if cmd.Flags().Changed("keep-monthly") {
			policy.KeepMonthlyFirst, _ = cmd.Flags().GetBool("keep-monthly")
		}
		if dryRun, _ := cmd.Flags().GetBool("dry-run"); dryRun {
			policy.DryRun = true
		}
		site, _ := cmd.Flags().GetString("site")
		asJSON, _ := cmd.Flags().GetBool("json")

		out, err := uc().Cleanup.Execute(cmd.Context(), internal.CleanupInput{Policy: policy, Site: site})
		if err != nil {
			return fmt.Errorf("cleanup: %w", err)
		}

		if asJSON {
			return outputCleanupJSON(cmd, out)
		}

		w := cmd.OutOrStdout()
		for _, sp := range out.Plans {
			p := sp.Plan
			if !p.HasCutoff {
				fmt.Fprintf(w, "%s: retention disabled, nothing to delete\n", sp.Scope)
				continue
			}
			verb := "deleting"
			if policy.DryRun {
				verb = "would delete"
			}
			fmt.Fprintf(w, "%s: cutoff %s, %s %d, keeping %d monthly firsts\n",
				sp.Scope, p.Cutoff.UTC().Format("2006-01-02"), verb, len(p.Delete), len(p.Exempt))
			for _, s := range p.Delete {
				fmt.Fprintf(w, "  - %s  %s\n", s.TimestampID(), s.URL)
			}
		}
		failed := 0
		for _, r := range out.Results {
			if r.Err != nil {
				failed++
				fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", r.Scope, r.Err)
			}
		}
		if failed > 0 {
			return fmt.Errorf("cleanup failed for %d archive(s)", failed)
		}
		return nil
	}
}

func outputCleanupJSON(cmd *cobra.Command, out *internal.CleanupOutput) error {
	data := make([]map[string]any, 0, len(out.Plans))
	for _, sp := range out.Plans {
		ids := func(snaps []internal.Snapshot) []string {
			r := make([]string, 0, len(snaps))
			for _, s := range snaps {
				r = append(r, s.TimestampID())
			}
			return r
		}
		data = append(data, map[string]any{
			"scope":   sp.Scope.String(),
			"cutoff":  sp.Plan.Cutoff,
			"dry_run": sp.Plan.Policy.DryRun,
			"delete":  ids(sp.Plan.Delete),
			"exempt":  ids(sp.Plan.Exempt),
			"keep":    len(sp.Plan.Keep),
		})
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}
