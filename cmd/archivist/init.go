package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/4thel00z/archivist/internal"
	"github.com/spf13/cobra"
)

func NewInitCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a sites config and initialize the archive",
		Long: `Write an example sites config if none exists, then initialize the shared
ArchiveBox data directory and one per configured per-site instance.`,
		RunE: makeInitRunner(a),
	}

	cmd.Flags().Bool("force", false, "Overwrite an existing config file")
	cmd.Flags().Bool("config-only", false, "Only write the config file")
	return cmd
}

func makeInitRunner(a *app) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		force, _ := cmd.Flags().GetBool("force")
		configOnly, _ := cmd.Flags().GetBool("config-only")

		_, statErr := os.Stat(a.configPath)
		switch {
		case statErr == nil && !force:
			fmt.Fprintf(cmd.OutOrStdout(), "Config already exists at %s\n", a.configPath)
		case statErr == nil || errors.Is(statErr, fs.ErrNotExist):
			if err := internal.SaveConfig(a.configPath, internal.ExampleConfig()); err != nil {
				return fmt.Errorf("save config: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote example config to %s\n", a.configPath)
		default:
			return fmt.Errorf("stat config: %w", statErr)
		}

		if configOnly {
			return nil
		}

		for _, scope := range a.uc.Resolver.All(a.cfg.Sites) {
			if err := a.archiveBox(scope).EnsureInit(cmd.Context()); err != nil {
				return fmt.Errorf("init %s: %w", scope, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Initialized %s archive at %s\n", scope, scope.DataDir)
		}
		return internal.EnsureURLsFile(a.uc.Resolver.Shared().URLsFile())
	}
}
