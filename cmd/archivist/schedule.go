package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/4thel00z/archivist/internal"
	"github.com/spf13/cobra"
)

func NewScheduleCmd(uc func() *internal.UseCases, cfg func() *internal.Config, a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Show or run the archive schedule",
		Long: `Show the configured cron schedules and their next fire times. Use the
subcommands to run one scheduled pass or to print crontab entries.`,
		Args: cobra.NoArgs,
		RunE: makeScheduleShowRunner(cfg),
	}

	cmd.AddCommand(newScheduleRunCmd(uc, cfg), newScheduleCrontabCmd(a))
	return cmd
}

func makeScheduleShowRunner(cfg func() *internal.Config) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		sched := cfg().Schedule
		now := time.Now()
		asJSON, _ := cmd.Flags().GetBool("json")

		jobs := []struct{ name, expr string }{
			{"archive", sched.Archive},
			{"cleanup", sched.Cleanup},
		}

		data := make([]map[string]string, 0, len(jobs))
		for _, j := range jobs {
			entry := map[string]string{"job": j.name, "schedule": j.expr}
			if j.expr != "" {
				next, err := internal.NextFire(j.expr, now)
				if err != nil {
					return err
				}
				entry["next"] = next.Format(time.RFC3339)
			}
			data = append(data, entry)
		}

		if asJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(data)
		}
		for _, e := range data {
			if e["schedule"] == "" {
				fmt.Fprintf(cmd.OutOrStdout(), "%-8s disabled\n", e["job"])
				continue
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%-8s %-14s next %s\n", e["job"], e["schedule"], e["next"])
		}
		return nil
	}
}

func newScheduleRunCmd(uc func() *internal.UseCases, cfg func() *internal.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one scheduled archive pass now",
		Long: `Archive every configured site, optionally run retention cleanup, record a
report in the run journal and send a notification.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cleanup, _ := cmd.Flags().GetBool("cleanup")
			notify := cfg().Schedule.Notify
			if cmd.Flags().Changed("notify") {
				notify, _ = cmd.Flags().GetBool("notify")
			}

			report, err := uc().Schedule.Execute(cmd.Context(), internal.ScheduledRunInput{
				Cleanup: cleanup,
				Notify:  notify,
			})
			if report != nil {
				fmt.Fprintln(cmd.OutOrStdout(), report.Summary())
			}
			if err != nil {
				return fmt.Errorf("scheduled run: %w", err)
			}
			if !report.Success() {
				return fmt.Errorf("scheduled run finished with errors")
			}
			return nil
		},
	}

	cmd.Flags().Bool("cleanup", false, "Run retention cleanup after archiving")
	cmd.Flags().Bool("notify", true, "Send a notification with the outcome")
	return cmd
}

func newScheduleCrontabCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "crontab",
		Short: "Print crontab entries for the configured schedules",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			bin, err := os.Executable()
			if err != nil {
				return fmt.Errorf("locate executable: %w", err)
			}
			for _, line := range crontabLines(bin, a.configPath, a.cfg, a.uc.Resolver.Shared()) {
				fmt.Fprintln(cmd.OutOrStdout(), line)
			}
			return nil
		},
	}
}

func crontabLines(bin, configPath string, cfg *internal.Config, shared internal.Scope) []string {
	logFile := shared.ScheduleLog()
	var lines []string
	if cfg.Schedule.Archive != "" {
		lines = append(lines, fmt.Sprintf("%s %s --config %s schedule run >> %s 2>&1",
			cfg.Schedule.Archive, bin, configPath, logFile))
	}
	if cfg.Schedule.Cleanup != "" {
		lines = append(lines, fmt.Sprintf("%s %s --config %s cleanup >> %s 2>&1",
			cfg.Schedule.Cleanup, bin, configPath, logFile))
	}
	return lines
}
