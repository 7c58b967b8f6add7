package main

import (
	"encoding/json"
	"fmt"

	"github.com/4thel00z/archivist/internal"
	"github.com/spf13/cobra"
)

func NewCompareCmd(uc func() *internal.UseCases) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare <url|site> <month> [month]",
		Short: "Diff the text of two snapshots",
		Long: `Resolve the snapshots nearest two months and show a line diff of their
text. The second month defaults to the current one.`,
		Args: cobra.RangeArgs(2, 3),
		RunE: makeCompareRunner(uc),
	}

	cmd.Flags().Int("context", 3, "Unchanged lines shown around each change (-1 for all)")
	cmd.Flags().Bool("stat", false, "Only print the change counts")
	return cmd
}

func makeCompareRunner(uc func() *internal.UseCases) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		context, _ := cmd.Flags().GetInt("context")
		statOnly, _ := cmd.Flags().GetBool("stat")
		asJSON, _ := cmd.Flags().GetBool("json")

		input := internal.CompareInput{Ref: args[0], Date1: args[1], Context: context}
		if len(args) == 3 {
			input.Date2 = args[2]
		}

		out, err := uc().Compare.Execute(cmd.Context(), input)
		if err != nil {
			return fmt.Errorf("compare: %w", err)
		}

		if asJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(map[string]any{
				"before":  internal.NewLinkView(out.Before),
				"after":   internal.NewLinkView(out.After),
				"added":   out.Stats.Added,
				"removed": out.Stats.Removed,
				"diff":    out.Diff,
				"note":    out.Note,
			})
		}

		w := cmd.OutOrStdout()
		if out.Note != "" {
			fmt.Fprintln(w, out.Note)
			return nil
		}
		fmt.Fprintf(w, "--- %s (%s)\n", out.Before.Timestamp, out.BeforeSource)
		fmt.Fprintf(w, "+++ %s (%s)\n", out.After.Timestamp, out.AfterSource)
		if !statOnly {
			fmt.Fprint(w, out.Diff)
		}
		fmt.Fprintf(w, "%d added, %d removed\n", out.Stats.Added, out.Stats.Removed)
		return nil
	}
}
