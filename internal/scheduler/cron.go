package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hnipps/pulsarr/internal/arr"
	"github.com/hnipps/pulsarr/pkg/models"
	"github.com/robfig/cron/v3"
)

// Runner performs one delete sync
type Runner interface {
	Run(ctx context.Context, dryRun bool) (*models.DeletionResult, error)
}

// Scheduler triggers delete sync on a cron schedule
type Scheduler struct {
	cron     *cron.Cron
	runner   Runner
	schedule string
	dryRun   bool
	timeout  time.Duration
	logger   arr.Logger

	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
}

// NewScheduler creates a scheduler; overlapping triggers are skipped while a run is in progress
func NewScheduler(runner Runner, schedule string, dryRun bool, logger arr.Logger) *Scheduler {
	return &Scheduler{
		cron:     cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		runner:   runner,
		schedule: schedule,
		dryRun:   dryRun,
		timeout:  2 * time.Hour,
		logger:   logger,
	}
}

// Start registers the delete sync job and starts the cron loop. Runs are
// cancelled when ctx is done or Stop is called.
func (s *Scheduler) Start(ctx context.Context) error {
	s.logger.Info("Starting scheduler")

	if _, err := s.cron.AddFunc(s.schedule, s.runDeleteSync); err != nil {
		return fmt.Errorf("failed to add delete sync job %q: %w", s.schedule, err)
	}

	s.mu.Lock()
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.mu.Unlock()

	s.cron.Start()
	if next := s.NextRun(); !next.IsZero() {
		s.logger.Info("Scheduler started, next delete sync at %s", next.Format(time.RFC3339))
	}
	return nil
}

// Stop stops the scheduler and waits for a running job to return
func (s *Scheduler) Stop() {
	s.logger.Info("Stopping scheduler")
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()
	<-s.cron.Stop().Done()
}

// NextRun returns the next scheduled trigger, zero when nothing is scheduled
func (s *Scheduler) NextRun() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}

// runDeleteSync executes the delete sync job
func (s *Scheduler) runDeleteSync() {
	s.mu.Lock()
	parent := s.ctx
	s.mu.Unlock()
	if parent == nil {
		parent = context.Background()
	}

	ctx, cancel := context.WithTimeout(parent, s.timeout)
	defer cancel()

	s.logger.Info("Running scheduled delete sync")
	result, err := s.runner.Run(ctx, s.dryRun)
	switch {
	case err != nil:
		s.logger.Error("Scheduled delete sync failed: %v", err)
	case result != nil && result.SafetyTriggered:
		s.logger.Warn("Scheduled delete sync stopped by safety check: %s", result.SafetyMessage)
	case result != nil:
		s.logger.Info("Scheduled delete sync completed: %d deleted, %d skipped, %d protected",
			result.Total.Deleted, result.Total.Skipped, result.Total.Protected)
	}
}

// ValidateSchedule reports whether expr is a valid five-field cron expression or descriptor
func ValidateSchedule(expr string) error {
	if _, err := cron.ParseStandard(expr); err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", expr, err)
	}
	return nil
}
