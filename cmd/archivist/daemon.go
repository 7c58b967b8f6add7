package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/4thel00z/archivist/internal"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
)

func NewDaemonCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Run the scheduler and HTTP API",
		Long: `Run the archive and cleanup jobs on their cron schedules and serve the
lookup API, health and metrics endpoints. The config file is watched and
reloaded on change.`,
		Args: cobra.NoArgs,
		RunE: makeDaemonRunner(a),
	}

	cmd.Flags().String("listen", "", "HTTP listen address (default from config)")
	cmd.Flags().Duration("debounce", 500*time.Millisecond, "Debounce window for config changes")
	cmd.Flags().Bool("no-watch", false, "Do not reload the config on change")
	return cmd
}

func makeDaemonRunner(a *app) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		debounce, _ := cmd.Flags().GetDuration("debounce")
		noWatch, _ := cmd.Flags().GetBool("no-watch")
		listenFlag, _ := cmd.Flags().GetString("listen")

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		var changes <-chan struct{}
		if !noWatch {
			watcher, err := fsnotify.NewWatcher()
			if err != nil {
				return fmt.Errorf("create watcher: %w", err)
			}
			defer watcher.Close()

			// Editors replace files on save, so watch the directory.
			if err := watcher.Add(filepath.Dir(a.configPath)); err != nil {
				return fmt.Errorf("watch config: %w", err)
			}
			changes = debounceConfigEvents(ctx, watcher, a.configPath, debounce, a.logger)
		}

		for {
			listen := listenFlag
			if listen == "" {
				listen = a.cfg.Server.Listen
			}

			// Only the HTTP server follows a reload; running jobs finish
			// under ctx before the scheduler is replaced.
			serveCtx, cancel := context.WithCancel(ctx)
			errCh, err := startDaemon(ctx, serveCtx, a, listen)
			if err != nil {
				cancel()
				return err
			}

			select {
			case <-ctx.Done():
				cancel()
				return <-errCh
			case err := <-errCh:
				cancel()
				return err
			case <-changes:
				cancel()
				if err := <-errCh; err != nil {
					return err
				}
				if err := a.reload(); err != nil {
					a.logger.Error("config reload failed, keeping previous config", "error", err)
				} else {
					a.logger.Info("config reloaded", "path", a.configPath, "sites", len(a.cfg.Sites))
				}
			}
		}
	}
}

// startDaemon starts the scheduler with jobCtx and the HTTP server with
// serveCtx. The returned channel yields once the server has stopped and
// every running job has finished.
func startDaemon(jobCtx, serveCtx context.Context, a *app, listen string) (<-chan error, error) {
	sched := internal.NewScheduler(a.cfg, a.uc.Schedule, a.uc.Cleanup, a.logger)
	if err := sched.Start(jobCtx); err != nil {
		return nil, fmt.Errorf("start scheduler: %w", err)
	}

	srv := internal.NewServer(a.cfg, a.uc, a.metrics, sched, a.logger)
	errCh := make(chan error, 1)
	go func() {
		err := srv.ListenAndServe(serveCtx, listen)
		sched.Stop()
		errCh <- err
	}()
	return errCh, nil
}

func debounceConfigEvents(ctx context.Context, watcher *fsnotify.Watcher, configPath string, debounce time.Duration, logger *slog.Logger) <-chan struct{} {
	out := make(chan struct{}, 1)
	target := filepath.Clean(configPath)

	go func() {
		timer := time.NewTimer(0)
		if !timer.Stop() {
			<-timer.C
		}
		pending := false

		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !isConfigEvent(event, target) {
					continue
				}
				if !pending {
					timer.Reset(debounce)
					pending = true
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				if !errors.Is(err, fsnotify.ErrEventOverflow) {
					logger.Warn("config watch error", "error", err)
				}
			case <-timer.C:
				pending = false
				select {
				case out <- struct{}{}:
				default:
				}
			}
		}
	}()
	return out
}

func isConfigEvent(event fsnotify.Event, target string) bool {
	if filepath.Clean(event.Name) != target {
		return false
	}
	return event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0
}
