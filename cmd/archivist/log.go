package main

import (
	"encoding/json"
	"fmt"

	"github.com/4thel00z/archivist/internal"
	"github.com/spf13/cobra"
)

func NewLogCmd(uc func() *internal.UseCases) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "log [run]",
		Short: "Show the run journal",
		Long:  `List recorded scheduled runs, or print the report of one run by commit hash.`,
		Args:  cobra.MaximumNArgs(1),
		RunE:  makeLogRunner(uc),
	}

	cmd.Flags().IntP("limit", "n", 10, "Maximum number of runs to show")
	return cmd
}

func makeLogRunner(uc func() *internal.UseCases) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		asJSON, _ := cmd.Flags().GetBool("json")

		input := internal.JournalInput{Limit: limit}
		if len(args) == 1 {
			input.Show = args[0]
		}

		out, err := uc().Journal.Execute(cmd.Context(), input)
		if err != nil {
			return fmt.Errorf("log: %w", err)
		}

		if input.Show != "" {
			fmt.Fprint(cmd.OutOrStdout(), out.Report)
			return nil
		}

		if asJSON {
			return outputLogJSON(cmd, out.Entries)
		}

		if len(out.Entries) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded yet")
			return nil
		}
		for _, e := range out.Entries {
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s %s\n",
				e.Hash[:7], e.Timestamp.Format("2006-01-02 15:04"), e.Message)
		}
		return nil
	}
}

func outputLogJSON(cmd *cobra.Command, entries []*internal.JournalEntry) error {
	data := make([]map[string]any, 0, len(entries))
	for _, e := range entries {
		data = append(data, map[string]any{
			"hash":      e.Hash,
			"message":   e.Message,
			"path":      e.Path,
			"timestamp": e.Timestamp,
		})
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}
