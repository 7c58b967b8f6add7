package main

import (
	"fmt"
	"net"
	"strconv"

	"github.com/spf13/cobra"
)

func NewServerCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "server",
		Short: "Start the ArchiveBox web UI",
		Long:  `Start the ArchiveBox web server for the shared archive. Runs until interrupted.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			host := a.cfg.Server.Host
			if v, _ := cmd.Flags().GetString("host"); v != "" {
				host = v
			}
			port := a.cfg.Server.Port
			if cmd.Flags().Changed("port") {
				port, _ = cmd.Flags().GetInt("port")
			}
			addr := net.JoinHostPort(host, strconv.Itoa(port))

			scope := a.uc.Resolver.Shared()
			if site, _ := cmd.Flags().GetString("site"); site != "" {
				s, err := a.cfg.FindSite(site)
				if err != nil {
					return err
				}
				scope = a.uc.Resolver.For(s)
			}

			box := a.archiveBox(scope)
			if err := box.EnsureInit(cmd.Context()); err != nil {
				return fmt.Errorf("init %s: %w", scope, err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Serving %s on http://%s\n", scope, addr)
			return box.Server(cmd.Context(), addr)
		},
	}

	cmd.Flags().String("host", "", "Bind host (default from config)")
	cmd.Flags().Int("port", 0, "Bind port (default from config)")
	cmd.Flags().String("site", "", "Serve this per-site archive instead of the shared one")
	return cmd
}
