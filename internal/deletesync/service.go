package deletesync

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hnipps/pulsarr/internal/arr"
	"github.com/hnipps/pulsarr/internal/config"
	"github.com/hnipps/pulsarr/pkg/models"
	"golang.org/x/sync/singleflight"
)

// Run outcomes recorded in metrics
const (
	OutcomeCompleted       = "completed"
	OutcomeDryRun          = "dry_run"
	OutcomeSafetyTriggered = "safety_triggered"
	OutcomeDisabled        = "disabled"
	OutcomeError           = "error"
)

// Service reconciles Sonarr/Radarr libraries against user watchlists
type Service struct {
	deps   Deps
	cfg    config.DeleteSyncConfig
	group  singleflight.Group
	runMu  sync.Mutex
	logger arr.Logger
}

// NewService validates deps and creates a delete sync service
func NewService(cfg config.DeleteSyncConfig, deps Deps) (*Service, error) {
	switch {
	case deps.Watchlists == nil:
		return nil, errors.New("deletesync: watchlist store is required")
	case deps.Users == nil:
		return nil, errors.New("deletesync: user store is required")
	case deps.Sonarr == nil || deps.Radarr == nil:
		return nil, errors.New("deletesync: Sonarr and Radarr managers are required")
	case deps.Refresher == nil:
		return nil, errors.New("deletesync: watchlist refresher is required")
	case cfg.EnablePlexPlaylistProtection && deps.Protection == nil:
		return nil, errors.New("deletesync: playlist protection is enabled but no Plex protection service was given")
	}

	if deps.Logger == nil {
		deps.Logger = arr.NewStandardLogger("INFO")
	}
	if deps.Progress == nil {
		deps.Progress = arr.NewConsoleProgressReporter(deps.Logger)
	}
	if deps.Metrics == nil {
		deps.Metrics = noopMetrics{}
	}

	return &Service{deps: deps, cfg: cfg, logger: deps.Logger}, nil
}

// Run performs one delete sync. Concurrent calls with the same dryRun value
// share a single execution and its result; a real run and a dry run never
// overlap, the later one waits. Systemic failures come back as a
// result with SafetyTriggered set and a nil error; a non-nil error means the
// context was cancelled and the result is partial.
func (s *Service) Run(ctx context.Context, dryRun bool) (*models.DeletionResult, error) {
	key := "run"
	if dryRun {
		key = "dry-run"
	}

	v, err, shared := s.group.Do(key, func() (interface{}, error) {
		s.runMu.Lock()
		defer s.runMu.Unlock()
		return s.run(ctx, dryRun)
	})
	if shared {
		s.logger.Debug("Delete sync (%s) joined an execution already in progress", key)
	}

	result, _ := v.(*models.DeletionResult)
	return result, err
}

func (s *Service) run(ctx context.Context, dryRun bool) (*models.DeletionResult, error) {
	start := time.Now()

	if !s.cfg.Enabled() {
		s.logger.Info("Delete sync is disabled: movie, ended show and continuing show deletion are all off")
		s.deps.Metrics.ObserveRun(OutcomeDisabled, time.Since(start))
		return models.NewDeletionResult(), nil
	}

	if dryRun {
		s.logger.Info("🏃 Starting delete sync (DRY RUN - no content will be deleted)")
	} else {
		s.logger.Info("Starting delete sync")
	}

	s.clearWorkflowCaches()
	defer s.clearWorkflowCaches()

	result := models.NewDeletionResult()
	err := s.execute(ctx, dryRun, result)

	var abortErr *AbortError
	switch {
	case errors.As(err, &abortErr):
		s.logger.Error("🛑 %s", abortErr.Error())
		result = models.NewSafetyTriggeredResult(abortErr.Message(), abortErr.SeriesCount, abortErr.MovieCount)
		err = nil
	case err != nil:
		result.Finalize()
		s.logger.Warn("Delete sync interrupted: %v", err)
		s.deps.Metrics.ObserveRun(OutcomeError, time.Since(start))
		return result, err
	default:
		result.Finalize()
	}

	duration := time.Since(start)
	s.deps.Metrics.ObserveRun(runOutcome(result, dryRun), duration)
	s.deps.Progress.Finish(result, dryRun)
	s.publish(ctx, result, dryRun, duration)
	return result, nil
}

// execute runs the pipeline from watchlist refresh to the last deletion
func (s *Service) execute(ctx context.Context, dryRun bool, result *models.DeletionResult) error {
	if err := s.refreshWatchlists(ctx); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return abort("failed to refresh watchlists", 0, 0, err)
	}

	watchlist, _, err := s.GetAllWatchlistItems(ctx, s.cfg.RespectUserSyncSetting)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return abort("failed to load watchlist items", 0, 0, err)
	}

	inv, err := s.fetchInventory(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return abort("failed to fetch library inventory", 0, 0, err)
	}

	if watchlist.Len() == 0 {
		return abort("the watchlist is empty, which usually means the watchlist fetch failed; refusing to delete anything",
			len(inv.series), len(inv.movies), nil)
	}

	if inv.size() == 0 {
		s.logger.Info("Library inventory is empty, nothing to delete")
	}

	check := PerformSafetyCheck(inv.series, inv.movies, watchlist, s.cfg.MaxDeletionPrevention)
	if !check.Safe {
		return abort(check.Message, len(inv.series), len(inv.movies), nil)
	}
	s.logger.Info("%s", check.Message)

	prot, err := s.resolveProtection(ctx, inv)
	if err != nil {
		return err
	}

	exec := &executor{
		cfg:        s.cfg,
		dryRun:     dryRun,
		watchlist:  watchlist,
		protection: prot,
		sonarr:     s.deps.Sonarr,
		radarr:     s.deps.Radarr,
		progress:   s.deps.Progress,
		metrics:    s.deps.Metrics,
		logger:     s.logger,
	}
	if err := exec.run(ctx, inv, result); err != nil {
		var abortErr *AbortError
		if errors.As(err, &abortErr) {
			abortErr.SeriesCount, abortErr.MovieCount = len(inv.series), len(inv.movies)
		}
		return err
	}
	return nil
}

func (s *Service) clearWorkflowCaches() {
	if s.deps.Protection != nil {
		s.deps.Protection.ClearWorkflowCaches()
	}
}

// publish writes the report and sends notifications; failures are only logged
func (s *Service) publish(ctx context.Context, result *models.DeletionResult, dryRun bool, duration time.Duration) {
	if s.deps.Reports != nil {
		runType := "real"
		if dryRun {
			runType = "dry-run"
		}
		report := &models.DeleteSyncReport{
			GeneratedAt: time.Now().Format(time.RFC3339),
			RunType:     runType,
			DurationMS:  duration.Milliseconds(),
			Result:      result,
		}
		if err := s.deps.Reports.GenerateReport(report, s.deps.PrintReport); err != nil {
			s.logger.Warn("Failed to write delete sync report: %v", err)
		}
	}

	if s.deps.Notifier != nil {
		if err := s.deps.Notifier.NotifyDeleteSync(ctx, result, dryRun); err != nil {
			s.logger.Warn("Delete sync notification failed: %v", err)
		}
	}
}

func runOutcome(result *models.DeletionResult, dryRun bool) string {
	switch {
	case result.SafetyTriggered:
		return OutcomeSafetyTriggered
	case dryRun:
		return OutcomeDryRun
	default:
		return OutcomeCompleted
	}
}

// Summary describes a result on one line
func Summary(result *models.DeletionResult) string {
	if result.SafetyTriggered {
		return "safety triggered: " + result.SafetyMessage
	}
	return fmt.Sprintf("%d deleted, %d skipped, %d protected of %d processed",
		result.Total.Deleted, result.Total.Skipped, result.Total.Protected, result.Total.Processed)
}
