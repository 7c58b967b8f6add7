package internal

import (
	"context"
	"log/slog"
)

// Notifier delivers the outcome of a scheduled run.
type Notifier interface {
	Notify(ctx context.Context, report *RunReport) error
}

// LogNotifier writes run outcomes to the structured log.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = discardLogger()
	}
	return &LogNotifier{logger: logger.With("component", "notify")}
}

func (n *LogNotifier) Notify(ctx context.Context, report *RunReport) error {
	ok, failed := report.Counts()
	attrs := []any{
		"run_id", report.ID.String(),
		"archived", ok,
		"failed", failed,
		"duration", report.Duration().String(),
	}
	if report.Success() {
		n.logger.Info("archive run succeeded", attrs...)
		return nil
	}
	if report.Err != nil {
		attrs = append(attrs, "error", report.Err)
	}
	n.logger.Error("archive run finished with errors", attrs...)
	return nil
}
