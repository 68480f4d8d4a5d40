package deletesync

import (
	"context"
	"fmt"
	"strings"

	"github.com/hnipps/pulsarr/internal/arr"
	"github.com/hnipps/pulsarr/internal/config"
	"github.com/hnipps/pulsarr/pkg/models"
)

// Item actions recorded in metrics
const (
	actionKept      = "kept"
	actionDeleted   = "deleted"
	actionSkipped   = "skipped"
	actionProtected = "protected"
)

const (
	kindMovie = "movie"
	kindShow  = "show"
)

// executor walks the inventory of one run and applies the per-item pipeline
type executor struct {
	cfg        config.DeleteSyncConfig
	dryRun     bool
	watchlist  models.GUIDSet
	protection protection

	sonarr   SonarrManager
	radarr   RadarrManager
	progress arr.ProgressReporter
	metrics  Metrics
	logger   arr.Logger
}

// run processes movies, then shows, filling result. It returns an
// *AbortError for an inconsistent protection state and ctx.Err() when
// cancelled between items.
func (e *executor) run(ctx context.Context, inv inventory, result *models.DeletionResult) error {
	if e.cfg.DeleteMovie {
		e.progress.StartPhase("movies", len(inv.movies))
		for _, movie := range inv.movies {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := e.processMovie(ctx, movie, &result.Movies); err != nil {
				return err
			}
		}
	} else {
		e.logger.Info("Movie deletion disabled, skipping %d movie(s)", len(inv.movies))
	}

	if e.cfg.DeleteEndedShow || e.cfg.DeleteContinuingShow {
		e.progress.StartPhase("shows", len(inv.series))
		for _, show := range inv.series {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := e.processShow(ctx, show, &result.Shows); err != nil {
				return err
			}
		}
	} else {
		e.logger.Info("Show deletion disabled, skipping %d series", len(inv.series))
	}

	return nil
}

func (e *executor) processMovie(ctx context.Context, movie models.RadarrItem, bucket *models.DeletionBucket) error {
	if e.watchlist.Intersects(movie.GUIDs) {
		e.metrics.ObserveItem(kindMovie, actionKept)
		return nil
	}

	if len(movie.GUIDs) == 0 {
		e.skip(kindMovie, movie.Title, movie.InstanceID, movie.GUIDs, "no identifiable GUIDs", bucket)
		return nil
	}

	if movie.InstanceID <= 0 {
		e.skip(kindMovie, movie.Title, movie.InstanceID, movie.GUIDs, "no Radarr instance linked", bucket)
		return nil
	}
	svc, ok := e.radarr.GetRadarrService(movie.InstanceID)
	if !ok {
		e.skip(kindMovie, movie.Title, movie.InstanceID, movie.GUIDs, fmt.Sprintf("Radarr instance %d is not configured", movie.InstanceID), bucket)
		return nil
	}

	if err := e.checkProtection(kindMovie, movie.Title, movie.InstanceID, movie.GUIDs); err != nil {
		return err
	}
	if e.protection.covers(movie.GUIDs) {
		e.protect(kindMovie, movie.Title, bucket)
		return nil
	}

	if !e.dryRun {
		if err := svc.DeleteFromRadarr(ctx, movie, e.cfg.DeleteFiles); err != nil {
			e.progress.ReportError(err)
			e.skip(kindMovie, movie.Title, movie.InstanceID, movie.GUIDs, "delete failed", bucket)
			return nil
		}
	}
	e.delete(kindMovie, movie.Title, movie.InstanceID, movie.GUIDs, bucket)
	return nil
}

func (e *executor) processShow(ctx context.Context, show models.SonarrItem, bucket *models.DeletionBucket) error {
	if e.watchlist.Intersects(show.GUIDs) {
		e.metrics.ObserveItem(kindShow, actionKept)
		return nil
	}

	if len(show.GUIDs) == 0 {
		e.skip(kindShow, show.Title, show.InstanceID, show.GUIDs, "no identifiable GUIDs", bucket)
		return nil
	}

	if show.IsEnded() {
		if !e.cfg.DeleteEndedShow {
			e.skip(kindShow, show.Title, show.InstanceID, show.GUIDs, "ended show deletion disabled", bucket)
			return nil
		}
	} else if !e.cfg.DeleteContinuingShow {
		e.skip(kindShow, show.Title, show.InstanceID, show.GUIDs, "continuing show deletion disabled", bucket)
		return nil
	}

	if show.InstanceID <= 0 {
		e.skip(kindShow, show.Title, show.InstanceID, show.GUIDs, "no Sonarr instance linked", bucket)
		return nil
	}
	svc, ok := e.sonarr.GetSonarrService(show.InstanceID)
	if !ok {
		e.skip(kindShow, show.Title, show.InstanceID, show.GUIDs, fmt.Sprintf("Sonarr instance %d is not configured", show.InstanceID), bucket)
		return nil
	}

	if err := e.checkProtection(kindShow, show.Title, show.InstanceID, show.GUIDs); err != nil {
		return err
	}
	if e.protection.covers(show.GUIDs) {
		e.protect(kindShow, show.Title, bucket)
		return nil
	}

	if !e.dryRun {
		if err := svc.DeleteFromSonarr(ctx, show, e.cfg.DeleteFiles); err != nil {
			e.progress.ReportError(err)
			e.skip(kindShow, show.Title, show.InstanceID, show.GUIDs, "delete failed", bucket)
			return nil
		}
	}
	e.delete(kindShow, show.Title, show.InstanceID, show.GUIDs, bucket)
	return nil
}

// checkProtection aborts when protection is on but its set was never computed
func (e *executor) checkProtection(kind, title string, instanceID int, guids []string) error {
	if e.protection.ready() {
		return nil
	}
	e.logger.Error("Protection enabled but protected items were never loaded (at %s \"%s\", instance %d, guids %s)",
		kind, title, instanceID, strings.Join(guids, ","))
	return abort("playlist protection is enabled but the protected items are unavailable", 0, 0, nil)
}

func (e *executor) skip(kind, title string, instanceID int, guids []string, reason string, bucket *models.DeletionBucket) {
	bucket.Skipped++
	e.metrics.ObserveItem(kind, actionSkipped)
	e.logger.Debug("Skipping %s \"%s\" (instance %d, guids [%s]): %s", kind, title, instanceID, strings.Join(guids, ","), reason)
	e.progress.ReportSkipped(kind, title, reason)
}

func (e *executor) protect(kind, title string, bucket *models.DeletionBucket) {
	bucket.Protected++
	e.metrics.ObserveItem(kind, actionProtected)
	e.progress.ReportProtected(kind, title)
}

func (e *executor) delete(kind, title string, instanceID int, guids []string, bucket *models.DeletionBucket) {
	bucket.Deleted++
	bucket.Items = append(bucket.Items, models.DeletedItem{
		Title:    title,
		GUID:     models.FirstGUID(guids),
		Instance: instanceID,
	})
	e.metrics.ObserveItem(kind, actionDeleted)
	e.progress.ReportDeleted(kind, title, instanceID, e.dryRun)
}
