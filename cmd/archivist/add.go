package main

import (
	"fmt"
	"strings"

	"github.com/4thel00z/archivist/internal"
	"github.com/spf13/cobra"
)

func NewAddCmd(uc func() *internal.UseCases) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <url>",
		Short: "Archive a single URL",
		Long: `Archive one URL now. URLs of configured sites get the site's tags and go
to the site's archive; other URLs are tagged with the current month.`,
		Args: cobra.ExactArgs(1),
		RunE: makeAddRunner(uc),
	}

	cmd.Flags().Int("depth", 1, "Crawl depth (0 or 1; default from the site or config)")
	cmd.Flags().StringSlice("tag", nil, "Extra tag (repeatable)")
	cmd.Flags().Bool("index-only", false, "Add to the index without running extractors")
	return cmd
}

func makeAddRunner(uc func() *internal.UseCases) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		tags, _ := cmd.Flags().GetStringSlice("tag")
		indexOnly, _ := cmd.Flags().GetBool("index-only")

		var depth *int
		if cmd.Flags().Changed("depth") {
			d, _ := cmd.Flags().GetInt("depth")
			depth = &d
		}

		out, err := uc().AddURL.Execute(cmd.Context(), internal.AddURLInput{
			URL:       args[0],
			Depth:     depth,
			Tags:      tags,
			IndexOnly: indexOnly,
		})
		if err != nil {
			return fmt.Errorf("add %s: %w", args[0], err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Archived %s (%s) tags: %s\n",
			out.URL, out.Scope, strings.Join(out.Tags, ","))
		return nil
	}
}
