package main

import (
	"encoding/json"
	"fmt"

	"github.com/4thel00z/archivist/internal"
	"github.com/spf13/cobra"
)

func NewNearestCmd(uc func() *internal.UseCases) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "nearest <url|site>",
		Short: "Link to the snapshot nearest a month",
		Long: `Resolve the snapshot of a URL or configured site closest to a month.
Without --month the target is --months-ago months before the current one.`,
		Args: cobra.ExactArgs(1),
		RunE: makeNearestRunner(uc),
	}

	cmd.Flags().String("month", "", "Target month (YYYY-MM)")
	cmd.Flags().Int("months-ago", 0, "Target this many months before now")
	cmd.Flags().String("server-base", "", "Base URL of the ArchiveBox web UI")
	return cmd
}

func makeNearestRunner(uc func() *internal.UseCases) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		month, _ := cmd.Flags().GetString("month")
		monthsAgo, _ := cmd.Flags().GetInt("months-ago")
		serverBase, _ := cmd.Flags().GetString("server-base")
		asJSON, _ := cmd.Flags().GetBool("json")

		res, err := uc().Nearest.Execute(cmd.Context(), internal.NearestInput{
			Ref:        args[0],
			Month:      month,
			MonthsAgo:  monthsAgo,
			ServerBase: serverBase,
		})
		if err != nil {
			return fmt.Errorf("nearest: %w", err)
		}

		if asJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(internal.NewLinkView(*res))
		}

		if !res.Found() {
			fmt.Fprintf(cmd.OutOrStdout(), "No snapshots found for %s\n", args[0])
			return nil
		}

		fmt.Fprintln(cmd.OutOrStdout(), res.Link)
		if res.LocalPath != "" {
			fmt.Fprintf(cmd.ErrOrStderr(), "local: %s\n", res.LocalPath)
		}
		if res.Distance != 0 {
			fmt.Fprintf(cmd.ErrOrStderr(), "nearest snapshot is from %s, %d month(s) from %s\n",
				res.Snapshot.Month(), res.Distance, res.Target)
		}
		return nil
	}
}
