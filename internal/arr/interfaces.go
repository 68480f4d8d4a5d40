package arr

import (
	"context"

	"github.com/hnipps/pulsarr/pkg/models"
)

// SonarrInstance is one configured Sonarr server
type SonarrInstance interface {
	// ID returns the configured instance id
	ID() int

	// Name returns the human readable instance name
	Name() string

	// FetchSeries returns every series in the library. Series carrying an
	// excluded tag are hidden unless bypassExclusions is set.
	FetchSeries(ctx context.Context, bypassExclusions bool) ([]models.SonarrItem, error)

	// DeleteFromSonarr removes a series, optionally deleting its files
	DeleteFromSonarr(ctx context.Context, item models.SonarrItem, deleteFiles bool) error
}

// RadarrInstance is one configured Radarr server
type RadarrInstance interface {
	ID() int
	Name() string

	// FetchMovies returns every movie in the library. Movies carrying an
	// excluded tag are hidden unless bypassExclusions is set.
	FetchMovies(ctx context.Context, bypassExclusions bool) ([]models.RadarrItem, error)

	// DeleteFromRadarr removes a movie, optionally deleting its files
	DeleteFromRadarr(ctx context.Context, item models.RadarrItem, deleteFiles bool) error
}

// Logger defines the interface for logging operations
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
}

// ProgressReporter defines the interface for delete sync progress reporting
type ProgressReporter interface {
	StartPhase(name string, total int)
	ReportDeleted(kind, title string, instanceID int, dryRun bool)
	ReportSkipped(kind, title, reason string)
	ReportProtected(kind, title string)
	ReportError(err error)
	Finish(result *models.DeletionResult, dryRun bool)
}
