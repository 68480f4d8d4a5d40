package arr

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hnipps/pulsarr/internal/config"
	"github.com/hnipps/pulsarr/pkg/models"
	"golift.io/starr"
	"golift.io/starr/radarr"
)

// radarrAPI is the subset of the starr Radarr client used here
type radarrAPI interface {
	GetMovieContext(ctx context.Context, params *radarr.GetMovie) ([]*radarr.Movie, error)
	DeleteMovieContext(ctx context.Context, movieID int64, deleteFiles, addImportExclusion bool) error
	GetTagsContext(ctx context.Context) ([]*starr.Tag, error)
}

// RadarrClient implements the RadarrInstance interface using golift.io/starr
type RadarrClient struct {
	id           int
	name         string
	excludedTags []string
	api          radarrAPI
	guard        *guard
	logger       Logger
}

// NewRadarrClient creates a new Radarr client for one configured instance
func NewRadarrClient(cfg *config.InstanceConfig, timeout, requestDelay time.Duration, logger Logger) *RadarrClient {
	starrCfg := starr.New(cfg.APIKey, strings.TrimRight(cfg.URL, "/"), timeout)
	return newRadarrClient(cfg, radarr.New(starrCfg), requestDelay, logger)
}

func newRadarrClient(cfg *config.InstanceConfig, api radarrAPI, requestDelay time.Duration, logger Logger) *RadarrClient {
	return &RadarrClient{
		id:           cfg.ID,
		name:         cfg.Name,
		excludedTags: cfg.ExcludedTags,
		api:          api,
		guard:        newGuard(cfg.Name, requestDelay, logger),
		logger:       logger,
	}
}

// ID returns the configured instance id
func (c *RadarrClient) ID() int {
	return c.id
}

// Name returns the instance name
func (c *RadarrClient) Name() string {
	return c.name
}

// FetchMovies returns all movies from this Radarr instance
func (c *RadarrClient) FetchMovies(ctx context.Context, bypassExclusions bool) ([]models.RadarrItem, error) {
	raw, err := c.guard.execute(func() (interface{}, error) {
		return c.api.GetMovieContext(ctx, &radarr.GetMovie{})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch movies from %s: %w", c.name, err)
	}
	movies, _ := raw.([]*radarr.Movie)

	if !bypassExclusions && len(c.excludedTags) > 0 {
		tagsRaw, err := c.guard.execute(func() (interface{}, error) {
			return c.api.GetTagsContext(ctx)
		})
		if err != nil {
			return nil, fmt.Errorf("failed to fetch tags from %s: %w", c.name, err)
		}
		tags, _ := tagsRaw.([]*starr.Tag)
		excluded := matchTagLabels(tags, c.excludedTags)

		kept := make([]*radarr.Movie, 0, len(movies))
		for _, m := range movies {
			if m != nil && hasAnyTag(m.Tags, excluded) {
				continue
			}
			kept = append(kept, m)
		}
		movies = kept
	}

	items := mapRadarrMoviesToItems(movies, c.id)
	c.logger.Debug("Fetched %d movies from %s (bypassExclusions=%t)", len(items), c.name, bypassExclusions)
	return items, nil
}

// DeleteFromRadarr deletes a movie from this instance
func (c *RadarrClient) DeleteFromRadarr(ctx context.Context, item models.RadarrItem, deleteFiles bool) error {
	if item.ArrID <= 0 {
		return fmt.Errorf("movie %q has no Radarr id", item.Title)
	}

	err := c.guard.paced(ctx, func() error {
		return c.api.DeleteMovieContext(ctx, item.ArrID, deleteFiles, false)
	})
	if err != nil {
		return fmt.Errorf("failed to delete movie %q (id %d) from %s: %w", item.Title, item.ArrID, c.name, err)
	}

	c.logger.Debug("Successfully deleted movie %d from %s", item.ArrID, c.name)
	return nil
}
