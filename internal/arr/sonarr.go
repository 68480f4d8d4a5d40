package arr

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hnipps/pulsarr/internal/config"
	"github.com/hnipps/pulsarr/pkg/models"
	"golift.io/starr"
	"golift.io/starr/sonarr"
)

// sonarrAPI is the subset of the starr Sonarr client used here
type sonarrAPI interface {
	GetAllSeriesContext(ctx context.Context) ([]*sonarr.Series, error)
	DeleteSeriesContext(ctx context.Context, seriesID int, deleteFiles bool, importExclude bool) error
	GetTagsContext(ctx context.Context) ([]*starr.Tag, error)
}

// SonarrClient implements the SonarrInstance interface using golift.io/starr
type SonarrClient struct {
	id           int
	name         string
	excludedTags []string
	api          sonarrAPI
	guard        *guard
	logger       Logger
}

// NewSonarrClient creates a new Sonarr client for one configured instance
func NewSonarrClient(cfg *config.InstanceConfig, timeout, requestDelay time.Duration, logger Logger) *SonarrClient {
	starrCfg := starr.New(cfg.APIKey, strings.TrimRight(cfg.URL, "/"), timeout)
	return newSonarrClient(cfg, sonarr.New(starrCfg), requestDelay, logger)
}

func newSonarrClient(cfg *config.InstanceConfig, api sonarrAPI, requestDelay time.Duration, logger Logger) *SonarrClient {
	return &SonarrClient{
		id:           cfg.ID,
		name:         cfg.Name,
		excludedTags: cfg.ExcludedTags,
		api:          api,
		guard:        newGuard(cfg.Name, requestDelay, logger),
		logger:       logger,
	}
}

// ID returns the configured instance id
func (c *SonarrClient) ID() int {
	return c.id
}

// Name returns the instance name
func (c *SonarrClient) Name() string {
	return c.name
}

// FetchSeries returns all series from this Sonarr instance
func (c *SonarrClient) FetchSeries(ctx context.Context, bypassExclusions bool) ([]models.SonarrItem, error) {
	raw, err := c.guard.execute(func() (interface{}, error) {
		return c.api.GetAllSeriesContext(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch series from %s: %w", c.name, err)
	}
	series, _ := raw.([]*sonarr.Series)

	if !bypassExclusions && len(c.excludedTags) > 0 {
		excluded, err := c.excludedTagIDs(ctx)
		if err != nil {
			return nil, err
		}
		series = filterSeriesByTags(series, excluded)
	}

	items := mapSonarrSeriesToItems(series, c.id)
	c.logger.Debug("Fetched %d series from %s (bypassExclusions=%t)", len(items), c.name, bypassExclusions)
	return items, nil
}

// DeleteFromSonarr deletes a series from this instance
func (c *SonarrClient) DeleteFromSonarr(ctx context.Context, item models.SonarrItem, deleteFiles bool) error {
	if item.ArrID <= 0 {
		return fmt.Errorf("series %q has no Sonarr id", item.Title)
	}

	err := c.guard.paced(ctx, func() error {
		return c.api.DeleteSeriesContext(ctx, int(item.ArrID), deleteFiles, false)
	})
	if err != nil {
		return fmt.Errorf("failed to delete series %q (id %d) from %s: %w", item.Title, item.ArrID, c.name, err)
	}

	c.logger.Debug("Successfully deleted series %d from %s", item.ArrID, c.name)
	return nil
}

func (c *SonarrClient) excludedTagIDs(ctx context.Context) (map[int]bool, error) {
	raw, err := c.guard.execute(func() (interface{}, error) {
		return c.api.GetTagsContext(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch tags from %s: %w", c.name, err)
	}
	tags, _ := raw.([]*starr.Tag)
	return matchTagLabels(tags, c.excludedTags), nil
}

func filterSeriesByTags(series []*sonarr.Series, excluded map[int]bool) []*sonarr.Series {
	if len(excluded) == 0 {
		return series
	}
	kept := make([]*sonarr.Series, 0, len(series))
	for _, s := range series {
		if s != nil && hasAnyTag(s.Tags, excluded) {
			continue
		}
		kept = append(kept, s)
	}
	return kept
}

// matchTagLabels resolves tag labels to ids, case-insensitively
func matchTagLabels(tags []*starr.Tag, labels []string) map[int]bool {
	wanted := make(map[string]bool, len(labels))
	for _, l := range labels {
		wanted[strings.ToLower(l)] = true
	}
	ids := make(map[int]bool)
	for _, tag := range tags {
		if tag != nil && wanted[strings.ToLower(tag.Label)] {
			ids[tag.ID] = true
		}
	}
	return ids
}

func hasAnyTag(tags []int, set map[int]bool) bool {
	for _, t := range tags {
		if set[t] {
			return true
		}
	}
	return false
}
