package arr

import (
	"context"
	"fmt"
	"sort"

	"github.com/hnipps/pulsarr/internal/config"
	"github.com/hnipps/pulsarr/pkg/models"
	"golang.org/x/sync/errgroup"
)

// SonarrManager fans requests out to every configured Sonarr instance
type SonarrManager struct {
	instances map[int]SonarrInstance
	order     []int
	logger    Logger
}

// NewSonarrManager builds a manager over already constructed instances
func NewSonarrManager(logger Logger, instances ...SonarrInstance) *SonarrManager {
	m := &SonarrManager{
		instances: make(map[int]SonarrInstance, len(instances)),
		logger:    logger,
	}
	for _, inst := range instances {
		if _, dup := m.instances[inst.ID()]; dup {
			continue
		}
		m.instances[inst.ID()] = inst
		m.order = append(m.order, inst.ID())
	}
	sort.Ints(m.order)
	return m
}

// NewSonarrManagerFromConfig creates starr-backed clients for each configured instance
func NewSonarrManagerFromConfig(cfg *config.Config, logger Logger) *SonarrManager {
	instances := make([]SonarrInstance, 0, len(cfg.Sonarr))
	for i := range cfg.Sonarr {
		instLogger := withField(logger, "instance", cfg.Sonarr[i].Name)
		instances = append(instances, NewSonarrClient(&cfg.Sonarr[i], cfg.RequestTimeout, cfg.RequestDelay, instLogger))
	}
	return NewSonarrManager(logger, instances...)
}

// FetchAllSeries lists every instance concurrently. Any instance failure fails the whole fetch.
func (m *SonarrManager) FetchAllSeries(ctx context.Context, bypassExclusions bool) ([]models.SonarrItem, error) {
	results := make([][]models.SonarrItem, len(m.order))

	g, gctx := errgroup.WithContext(ctx)
	for i, id := range m.order {
		i, inst := i, m.instances[id]
		g.Go(func() error {
			items, err := inst.FetchSeries(gctx, bypassExclusions)
			if err != nil {
				return fmt.Errorf("sonarr instance %d (%s): %w", inst.ID(), inst.Name(), err)
			}
			results[i] = items
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var all []models.SonarrItem
	for _, items := range results {
		all = append(all, items...)
	}
	m.logger.Debug("Fetched %d series across %d Sonarr instance(s)", len(all), len(m.order))
	return all, nil
}

// GetSonarrService returns the instance registered under id
func (m *SonarrManager) GetSonarrService(id int) (SonarrInstance, bool) {
	inst, ok := m.instances[id]
	return inst, ok
}

// Instances returns the configured instances ordered by id
func (m *SonarrManager) Instances() []SonarrInstance {
	out := make([]SonarrInstance, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.instances[id])
	}
	return out
}

// RadarrManager fans requests out to every configured Radarr instance
type RadarrManager struct {
	instances map[int]RadarrInstance
	order     []int
	logger    Logger
}

// NewRadarrManager builds a manager over already constructed instances
func NewRadarrManager(logger Logger, instances ...RadarrInstance) *RadarrManager {
	m := &RadarrManager{
		instances: make(map[int]RadarrInstance, len(instances)),
		logger:    logger,
	}
	for _, inst := range instances {
		if _, dup := m.instances[inst.ID()]; dup {
			continue
		}
		m.instances[inst.ID()] = inst
		m.order = append(m.order, inst.ID())
	}
	sort.Ints(m.order)
	return m
}

// NewRadarrManagerFromConfig creates starr-backed clients for each configured instance
func NewRadarrManagerFromConfig(cfg *config.Config, logger Logger) *RadarrManager {
	instances := make([]RadarrInstance, 0, len(cfg.Radarr))
	for i := range cfg.Radarr {
		instLogger := withField(logger, "instance", cfg.Radarr[i].Name)
		instances = append(instances, NewRadarrClient(&cfg.Radarr[i], cfg.RequestTimeout, cfg.RequestDelay, instLogger))
	}
	return NewRadarrManager(logger, instances...)
}

// FetchAllMovies lists every instance concurrently. Any instance failure fails the whole fetch.
func (m *RadarrManager) FetchAllMovies(ctx context.Context, bypassExclusions bool) ([]models.RadarrItem, error) {
	results := make([][]models.RadarrItem, len(m.order))

	g, gctx := errgroup.WithContext(ctx)
	for i, id := range m.order {
		i, inst := i, m.instances[id]
		g.Go(func() error {
			items, err := inst.FetchMovies(gctx, bypassExclusions)
			if err != nil {
				return fmt.Errorf("radarr instance %d (%s): %w", inst.ID(), inst.Name(), err)
			}
			results[i] = items
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var all []models.RadarrItem
	for _, items := range results {
		all = append(all, items...)
	}
	m.logger.Debug("Fetched %d movies across %d Radarr instance(s)", len(all), len(m.order))
	return all, nil
}

// GetRadarrService returns the instance registered under id
func (m *RadarrManager) GetRadarrService(id int) (RadarrInstance, bool) {
	inst, ok := m.instances[id]
	return inst, ok
}

// Instances returns the configured instances ordered by id
func (m *RadarrManager) Instances() []RadarrInstance {
	out := make([]RadarrInstance, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.instances[id])
	}
	return out
}
