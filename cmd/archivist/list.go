package main

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/4thel00z/archivist/internal"
	"github.com/spf13/cobra"
)

func NewListCmd(uc func() *internal.UseCases) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List archived snapshots",
		Long:    `List snapshots across all archives, filtered by client, month, site or URL.`,
		Args:    cobra.NoArgs,
		RunE:    makeListRunner(uc),
	}

	cmd.Flags().String("client", "", "Only snapshots tagged with this client")
	cmd.Flags().String("month", "", "Only snapshots tagged with this month (YYYY-MM)")
	cmd.Flags().String("site", "", "Only snapshots of this site (name or slug)")
	cmd.Flags().String("url", "", "Only snapshots of this exact URL")
	cmd.Flags().Int("limit", 0, "Show at most this many of the newest snapshots")
	cmd.Flags().String("format", "text", "Output format (text|json|csv)")
	return cmd
}

func makeListRunner(uc func() *internal.UseCases) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		client, _ := cmd.Flags().GetString("client")
		month, _ := cmd.Flags().GetString("month")
		site, _ := cmd.Flags().GetString("site")
		url, _ := cmd.Flags().GetString("url")
		limit, _ := cmd.Flags().GetInt("limit")
		format, _ := cmd.Flags().GetString("format")
		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			format = "json"
		}

		out, err := uc().List.Execute(cmd.Context(), internal.ListInput{
			Client: client,
			Month:  month,
			Site:   site,
			URL:    url,
			Limit:  limit,
		})
		if err != nil {
			return fmt.Errorf("list snapshots: %w", err)
		}

		switch format {
		case "json":
			return outputListJSON(cmd, out)
		case "csv":
			return outputListCSV(cmd, out)
		case "text":
		default:
			return fmt.Errorf("unknown format %q", format)
		}

		for _, ls := range out.Snapshots {
			s := ls.Snapshot
			fmt.Fprintf(cmd.OutOrStdout(), "%s  %s  %s  [%s]\n",
				s.Timestamp.UTC().Format("2006-01-02 15:04"), s.TimestampID(), s.URL, strings.Join(s.Tags, ","))
		}
		return nil
	}
}

func outputListJSON(cmd *cobra.Command, out *internal.ListOutput) error {
	data := make([]internal.SnapshotView, 0, len(out.Snapshots))
	for _, ls := range out.Snapshots {
		data = append(data, internal.NewSnapshotView(ls.Scope, ls.Snapshot))
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

func outputListCSV(cmd *cobra.Command, out *internal.ListOutput) error {
	w := csv.NewWriter(cmd.OutOrStdout())
	if err := w.Write([]string{"timestamp", "time", "url", "title", "tags", "scope"}); err != nil {
		return err
	}
	for _, ls := range out.Snapshots {
		v := internal.NewSnapshotView(ls.Scope, ls.Snapshot)
		if err := w.Write([]string{v.Timestamp, v.Time, v.URL, v.Title, strings.Join(v.Tags, ","), v.Scope}); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
