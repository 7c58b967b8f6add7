package main

import (
	"encoding/json"
	"fmt"

	"github.com/4thel00z/archivist/internal"
	"github.com/spf13/cobra"
)

func NewBulkCmd(uc func() *internal.UseCases) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bulk",
		Short: "Archive every configured site",
		Long: `Archive every site with monthly snapshots enabled, including its subpages.
Without configured sites the URLs in the data dir's urls.txt are archived.
A site that fails is reported and skipped.`,
		Args: cobra.NoArgs,
		RunE: makeBulkRunner(uc),
	}

	cmd.Flags().Bool("index-only", false, "Add to the index without running extractors")
	cmd.Flags().Bool("parallel", false, "Do not pause between sites")
	return cmd
}

func makeBulkRunner(uc func() *internal.UseCases) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		indexOnly, _ := cmd.Flags().GetBool("index-only")
		parallel, _ := cmd.Flags().GetBool("parallel")
		asJSON, _ := cmd.Flags().GetBool("json")

		out, err := uc().Bulk.Execute(cmd.Context(), internal.BulkInput{
			IndexOnly: indexOnly,
			Parallel:  parallel,
		})
		if err != nil {
			return fmt.Errorf("bulk archive: %w", err)
		}

		if asJSON {
			return outputBulkJSON(cmd, out)
		}

		for _, r := range out.Results {
			if r.OK() {
				fmt.Fprintf(cmd.OutOrStdout(), "ok      %s %s\n", r.Name, r.URL)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "FAILED  %s %s: %v\n", r.Name, r.URL, r.Err)
			}
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d sites from %s, %d failed\n",
			len(out.Results), out.Source, out.Failed())
		return nil
	}
}

func outputBulkJSON(cmd *cobra.Command, out *internal.BulkOutput) error {
	data := make([]map[string]any, 0, len(out.Results))
	for _, r := range out.Results {
		entry := map[string]any{
			"name":  r.Name,
			"url":   r.URL,
			"scope": r.Scope,
			"tags":  r.Tags,
			"ok":    r.OK(),
		}
		if r.Err != nil {
			entry["error"] = r.Err.Error()
		}
		data = append(data, entry)
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(map[string]any{"source": out.Source, "results": data})
}
