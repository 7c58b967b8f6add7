package internal

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Scheduler runs the monthly archive and the weekly cleanup on cron
// schedules. A job that is still running when its next tick fires is
// skipped.
type Scheduler struct {
	cron     *cron.Cron
	schedule ScheduleConfig
	run      *ScheduledRunUseCase
	cleanup  *CleanupUseCase
	policy   RetentionPolicy
	logger   *slog.Logger

	mu      sync.Mutex
	running bool
	done    chan struct{}
	entries map[string]cron.EntryID
}

func NewScheduler(cfg *Config, run *ScheduledRunUseCase, cleanup *CleanupUseCase, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = discardLogger()
	}
	logger = logger.With("component", "scheduler")
	return &Scheduler{
		cron: cron.New(cron.WithChain(
			cron.Recover(cronLogger{logger}),
			cron.SkipIfStillRunning(cronLogger{logger}),
		)),
		schedule: cfg.Schedule,
		run:      run,
		cleanup:  cleanup,
		policy:   cfg.Retention,
		logger:   logger,
		entries:  make(map[string]cron.EntryID),
	}
}

// Start registers the jobs and starts the cron loop. Empty expressions
// disable their job. Jobs run under ctx, and the scheduler stops when ctx
// is cancelled or Stop is called, whichever comes first.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}

	if s.schedule.Archive != "" {
		id, err := s.cron.AddFunc(s.schedule.Archive, func() { s.runArchive(ctx) })
		if err != nil {
			return fmt.Errorf("invalid archive schedule %q: %w", s.schedule.Archive, err)
		}
		s.entries["archive"] = id
	}
	if s.schedule.Cleanup != "" {
		id, err := s.cron.AddFunc(s.schedule.Cleanup, func() { s.runCleanup(ctx) })
		if err != nil {
			return fmt.Errorf("invalid cleanup schedule %q: %w", s.schedule.Cleanup, err)
		}
		s.entries["cleanup"] = id
	}

	if len(s.entries) == 0 {
		s.logger.Info("no schedules configured, scheduler idle")
		return nil
	}

	s.cron.Start()
	s.running = true
	s.done = make(chan struct{})
	s.logger.Info("scheduler started",
		"archive", s.schedule.Archive,
		"cleanup", s.schedule.Cleanup,
		"retention_days", s.policy.MaxAgeDays,
	)

	done := s.done
	go func() {
		select {
		case <-ctx.Done():
			s.Stop()
		case <-done:
		}
	}()
	return nil
}

func (s *Scheduler) runArchive(ctx context.Context) {
	report, err := s.run.Execute(ctx, ScheduledRunInput{Notify: s.schedule.Notify})
	if err != nil {
		s.logger.Error("scheduled archive failed", "error", err)
		return
	}
	s.logger.Info("scheduled archive completed", "summary", report.Summary())
}

func (s *Scheduler) runCleanup(ctx context.Context) {
	out, err := s.cleanup.Execute(ctx, CleanupInput{Policy: s.policy})
	if err != nil {
		s.logger.Error("scheduled cleanup failed", "error", err)
		return
	}
	deleted := 0
	for _, r := range out.Results {
		deleted += r.Deleted
	}
	s.logger.Info("scheduled cleanup completed", "deleted", deleted, "scopes", len(out.Results))
}

// Stop stops the scheduler and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	<-s.cron.Stop().Done()
	s.running = false
	close(s.done)
	s.logger.Info("scheduler stopped")
}

func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// NextRuns returns the next fire time per job name.
func (s *Scheduler) NextRuns() map[string]time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]time.Time, len(s.entries))
	for name, id := range s.entries {
		if e := s.cron.Entry(id); e.Valid() {
			out[name] = e.Next
		}
	}
	return out
}

// NextFire computes the next time expr fires after from, without a
// running scheduler.
func NextFire(expr string, from time.Time) (time.Time, error) {
	sched, err := cron.ParseStandard(expr)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid cron schedule %q: %w", expr, err)
	}
	return sched.Next(from), nil
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error(msg, append(keysAndValues, "error", err)...)
}
