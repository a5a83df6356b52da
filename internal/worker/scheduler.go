// Package worker runs the background jobs: the due-pass scheduler for
// allowances and interest, and the statement export worker.
package worker

import (
	"context"
	"log/slog"
	"time"

	"familybank/internal/services"
)

// Scheduler periodically runs the allowance and interest due passes. A
// failing pass is logged and retried on the next tick.
type Scheduler struct {
	allowances *services.AllowanceEngine
	interest   *services.InterestEngine
	interval   time.Duration
	logger     *slog.Logger
	stopCh     chan struct{}
	doneCh     chan struct{}
}

func NewScheduler(allowances *services.AllowanceEngine, interest *services.InterestEngine, interval time.Duration, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		allowances: allowances,
		interest:   interest,
		interval:   interval,
		logger:     logger,
		stopCh:     make(chan struct{}),
		doneCh:     make(chan struct{}),
	}
}

// Start runs one pass immediately and then ticks until Stop is called or
// ctx is canceled.
func (s *Scheduler) Start(ctx context.Context) {
	defer close(s.doneCh)

	s.logger.InfoContext(ctx, "scheduler started", "interval", s.interval.String())
	s.RunOnce(ctx, time.Now().UTC())

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.InfoContext(ctx, "scheduler stopping", "reason", ctx.Err())
			return
		case <-s.stopCh:
			s.logger.InfoContext(ctx, "scheduler stopping")
			return
		case <-ticker.C:
			s.RunOnce(ctx, time.Now().UTC())
		}
	}
}

// RunOnce executes a single allowance and interest pass.
func (s *Scheduler) RunOnce(ctx context.Context, now time.Time) {
	if paid, err := s.allowances.RunDuePass(ctx, now); err != nil {
		s.logger.ErrorContext(ctx, "allowance pass failed", "error", err)
	} else if paid > 0 {
		s.logger.InfoContext(ctx, "allowances disbursed", "count", paid)
	}

	if applied, err := s.interest.RunDuePass(ctx, now); err != nil {
		s.logger.ErrorContext(ctx, "interest pass failed", "error", err)
	} else if applied > 0 {
		s.logger.InfoContext(ctx, "interest applied", "count", applied)
	}
}

// Stop signals the scheduler to exit and waits for the loop to finish.
func (s *Scheduler) Stop() {
	close(s.stopCh)
	<-s.doneCh
}
