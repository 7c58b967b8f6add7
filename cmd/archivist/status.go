package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/4thel00z/archivist/internal"
	"github.com/spf13/cobra"
)

func NewStatusCmd(uc func() *internal.UseCases) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show archive status",
		Long:  `Show snapshot counts, recent snapshots and disk usage for every archive.`,
		Args:  cobra.NoArgs,
		RunE:  makeStatusRunner(uc),
	}

	cmd.Flags().Int("recent", 10, "Number of recent snapshots to show")
	cmd.Flags().Bool("verbose", false, "Include the ArchiveBox status output")
	return cmd
}

func makeStatusRunner(uc func() *internal.UseCases) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		recent, _ := cmd.Flags().GetInt("recent")
		verbose, _ := cmd.Flags().GetBool("verbose")
		asJSON, _ := cmd.Flags().GetBool("json")

		out, err := uc().Status.Execute(cmd.Context(), internal.StatusInput{Recent: recent})
		if err != nil {
			return fmt.Errorf("status: %w", err)
		}

		if asJSON {
			return outputStatusJSON(cmd, out)
		}

		w := cmd.OutOrStdout()
		for _, st := range out.Scopes {
			fmt.Fprintf(w, "%s (%s)\n", st.Scope, st.Scope.DataDir)
			if !st.Initialized {
				fmt.Fprintln(w, "  not initialized")
				continue
			}
			fmt.Fprintf(w, "  snapshots: %d\n", st.Total)
			fmt.Fprintf(w, "  disk usage: %s\n", formatGB(st.SizeBytes))
			if st.ToolErr != nil {
				fmt.Fprintf(w, "  archivebox status failed: %v\n", st.ToolErr)
			} else if verbose && st.ToolStatus != "" {
				for _, line := range strings.Split(strings.TrimSpace(st.ToolStatus), "\n") {
					fmt.Fprintf(w, "  | %s\n", line)
				}
			}
			if len(st.Recent) > 0 {
				fmt.Fprintln(w, "  recent:")
				for _, s := range st.Recent {
					fmt.Fprintf(w, "    %s  %s\n", s.Timestamp.UTC().Format("2006-01-02 15:04"), s.URL)
				}
			}
		}
		return nil
	}
}

func formatGB(n int64) string {
	return fmt.Sprintf("%.2f GB", float64(n)/(1<<30))
}

func outputStatusJSON(cmd *cobra.Command, out *internal.StatusOutput) error {
	data := make([]map[string]any, 0, len(out.Scopes))
	for _, st := range out.Scopes {
		recent := make([]internal.SnapshotView, 0, len(st.Recent))
		for _, s := range st.Recent {
			recent = append(recent, internal.NewSnapshotView(st.Scope, s))
		}
		entry := map[string]any{
			"scope":       st.Scope.String(),
			"data_dir":    st.Scope.DataDir,
			"initialized": st.Initialized,
			"snapshots":   st.Total,
			"size_bytes":  st.SizeBytes,
			"recent":      recent,
		}
		if st.ToolErr != nil {
			entry["error"] = st.ToolErr.Error()
		}
		data = append(data, entry)
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}
