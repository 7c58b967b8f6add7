package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/4thel00z/archivist/internal"
	"github.com/spf13/cobra"
)

func NewTagsCmd(cfg func() *internal.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tags <site>",
		Short: "Preview the tags a site is archived with",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			site, err := cfg().FindSite(args[0])
			if err != nil {
				return err
			}

			at := time.Now()
			if v, _ := cmd.Flags().GetString("at"); v != "" {
				at, err = time.Parse(time.RFC3339, v)
				if err != nil {
					return fmt.Errorf("invalid --at: %w", err)
				}
			}

			tags := internal.SynthesizeTags(site, at)
			if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(tags)
			}
			for _, t := range tags {
				fmt.Fprintln(cmd.OutOrStdout(), t)
			}
			return nil
		},
	}

	cmd.Flags().String("at", "", "Capture time (RFC3339), defaults to now")
	return cmd
}
