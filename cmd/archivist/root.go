package main

import (
	"fmt"

	"github.com/4thel00z/archivist/internal"
	"github.com/spf13/cobra"
)

func NewRootCmd(version string, a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "archivist",
		Short: "Scheduled website archiving on top of ArchiveBox",
		Long: `Archive configured sites every month, keep a retention window with one
snapshot per month, and resolve links to the snapshot nearest a date.`,
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
		Run: func(cmd *cobra.Command, _ []string) {
			_ = cmd.Help()
		},
	}

	addPersistentFlags(rootCmd)
	setHelpWithExternals(rootCmd)

	if a != nil {
		rootCmd.PersistentPreRunE = makeLoader(a)
		addSubcommands(rootCmd, a)
	}

	return rootCmd
}

func addPersistentFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringP("config", "c", internal.DefaultConfigFile, "Path to the sites config file")
	cmd.PersistentFlags().String("data-dir", "", "ArchiveBox data directory (overrides config)")
	cmd.PersistentFlags().String("binary", "", "ArchiveBox executable (overrides config)")
	cmd.PersistentFlags().String("log-level", "", "Log level (debug|info|warn|error)")
	cmd.PersistentFlags().Bool("json", false, "Output in JSON format")
}

func makeLoader(a *app) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		if a.loaded {
			return nil
		}
		configPath, _ := cmd.Flags().GetString("config")
		dataDir, _ := cmd.Flags().GetString("data-dir")
		binary, _ := cmd.Flags().GetString("binary")
		logLevel, _ := cmd.Flags().GetString("log-level")

		err := a.load(loadOptions{
			configPath: configPath,
			dataDir:    dataDir,
			binary:     binary,
			logLevel:   logLevel,
			stdout:     cmd.OutOrStdout(),
			stderr:     cmd.ErrOrStderr(),
		})
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		return nil
	}
}

func addSubcommands(root *cobra.Command, a *app) {
	uc := func() *internal.UseCases { return a.uc }
	cfg := func() *internal.Config { return a.cfg }

	root.AddCommand(
		NewInitCmd(a),
		NewAddCmd(uc),
		NewBulkCmd(uc),
		NewListCmd(uc),
		NewStatusCmd(uc),
		NewCleanupCmd(uc, cfg),
		NewNearestCmd(uc),
		NewCompareCmd(uc),
		NewTagsCmd(cfg),
		NewScheduleCmd(uc, cfg, a),
		NewDaemonCmd(a),
		NewLogCmd(uc),
		NewServerCmd(a),
	)
}

func setHelpWithExternals(cmd *cobra.Command) {
	defaultHelp := cmd.HelpFunc()

	cmd.SetHelpFunc(func(c *cobra.Command, args []string) {
		defaultHelp(c, args)
		printExternalCommands(c)
	})
}

func printExternalCommands(cmd *cobra.Command) {
	externals := listExternalCommands()
	if len(externals) == 0 {
		return
	}

	fmt.Fprintln(cmd.OutOrStdout(), "\nExternal commands (archivist-*):")
	for _, name := range externals {
		fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", name)
	}
}
