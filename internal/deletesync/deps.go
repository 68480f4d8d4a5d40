package deletesync

import (
	"context"
	"time"

	"github.com/hnipps/pulsarr/internal/arr"
	"github.com/hnipps/pulsarr/pkg/models"
)

// WatchlistStore reads persisted watchlist rows
type WatchlistStore interface {
	GetAllShowWatchlistItems() ([]models.WatchlistItem, error)
	GetAllMovieWatchlistItems() ([]models.WatchlistItem, error)
	GetWatchlistItemsByUsers(userIDs []uint64) ([]models.WatchlistItem, error)
}

// UserStore reads the known users
type UserStore interface {
	GetAllUsers() ([]models.User, error)
}

// SonarrManager lists and resolves Sonarr instances
type SonarrManager interface {
	FetchAllSeries(ctx context.Context, bypassExclusions bool) ([]models.SonarrItem, error)
	GetSonarrService(instanceID int) (arr.SonarrInstance, bool)
}

// RadarrManager lists and resolves Radarr instances
type RadarrManager interface {
	FetchAllMovies(ctx context.Context, bypassExclusions bool) ([]models.RadarrItem, error)
	GetRadarrService(instanceID int) (arr.RadarrInstance, bool)
}

// PlexProtection resolves the protected GUID set from Plex playlists
type PlexProtection interface {
	GetOrCreateProtectionPlaylists(ctx context.Context, createIfMissing bool) (map[uint64]string, error)
	GetProtectedItems(ctx context.Context) (models.GUIDSet, error)
	ClearWorkflowCaches()
}

// WatchlistRefresher pulls fresh watchlists before reconciliation
type WatchlistRefresher interface {
	GetSelfWatchlist(ctx context.Context) error
	GetOthersWatchlists(ctx context.Context) error
}

// Notifier delivers the run summary
type Notifier interface {
	NotifyDeleteSync(ctx context.Context, result *models.DeletionResult, dryRun bool) error
}

// ReportWriter persists the run summary
type ReportWriter interface {
	GenerateReport(report *models.DeleteSyncReport, printToTerminal bool) error
}

// Metrics records run and item outcomes
type Metrics interface {
	ObserveRun(outcome string, duration time.Duration)
	ObserveItem(contentType, action string)
}

// Deps enumerates every collaborator of the delete sync service. Watchlists,
// Users, Sonarr, Radarr and Refresher are required. Protection is required
// only when playlist protection is enabled. The rest are optional.
type Deps struct {
	Watchlists WatchlistStore
	Users      UserStore
	Sonarr     SonarrManager
	Radarr     RadarrManager
	Refresher  WatchlistRefresher
	Protection PlexProtection

	Notifier Notifier
	Reports  ReportWriter
	Metrics  Metrics
	Progress arr.ProgressReporter
	Logger   arr.Logger

	// PrintReport echoes each written report to the terminal
	PrintReport bool
}

type noopMetrics struct{}

func (noopMetrics) ObserveRun(string, time.Duration) {}
func (noopMetrics) ObserveItem(string, string)       {}
