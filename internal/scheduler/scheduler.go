// Package scheduler triggers the tracker on a fixed interval.
package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sakif/shiptrack/internal/tracker"
)

// Runner is satisfied by *tracker.Engine.
type Runner interface {
	Run(ctx context.Context) (tracker.RunSummary, error)
}

type Scheduler struct {
	runner     Runner
	interval   time.Duration
	runOnStart bool
	logger     *slog.Logger
}

func New(runner Runner, interval time.Duration, runOnStart bool, logger *slog.Logger) *Scheduler {
	return &Scheduler{runner: runner, interval: interval, runOnStart: runOnStart, logger: logger}
}

// Start blocks, running the tracker every interval until ctx is cancelled.
// It returns nil on cancellation; run failures are logged, never returned.
func (s *Scheduler) Start(ctx context.Context) error {
	t := time.NewTicker(s.interval)
	defer t.Stop()

	s.logger.Info("scheduler: started", "interval", s.interval, "runOnStart", s.runOnStart)
	if s.runOnStart {
		s.runOnce(ctx)
	}
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler: stopped")
			return nil
		case <-t.C:
			s.runOnce(ctx)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context) {
	sum, err := s.runner.Run(ctx)
	switch {
	case errors.Is(err, tracker.ErrRunInProgress):
		s.logger.Info("scheduler: previous run still in progress, skipping tick")
	case errors.Is(err, context.Canceled):
	case err != nil:
		s.logger.Error("scheduler: tracker run failed", "error", err)
	default:
		s.logger.Info("scheduler: tracker run complete", "shipped", sum.Shipped, "failed", sum.Failed)
	}
}
