package deletesync

import (
	"context"
	"fmt"

	"github.com/hnipps/pulsarr/pkg/models"
	"golang.org/x/sync/errgroup"
)

// inventory is the complete library state of one run
type inventory struct {
	series []models.SonarrItem
	movies []models.RadarrItem
}

func (inv inventory) size() int {
	return len(inv.series) + len(inv.movies)
}

// fetchInventory lists every series and movie, ignoring instance exclusions.
// Both listings run concurrently and either failure fails the fetch.
func (s *Service) fetchInventory(ctx context.Context) (inventory, error) {
	var inv inventory

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		series, err := s.deps.Sonarr.FetchAllSeries(gctx, true)
		if err != nil {
			return fmt.Errorf("failed to fetch series: %w", err)
		}
		inv.series = series
		return nil
	})
	g.Go(func() error {
		movies, err := s.deps.Radarr.FetchAllMovies(gctx, true)
		if err != nil {
			return fmt.Errorf("failed to fetch movies: %w", err)
		}
		inv.movies = movies
		return nil
	})

	if err := g.Wait(); err != nil {
		return inventory{}, err
	}

	s.logger.Info("Library inventory: %d series, %d movies", len(inv.series), len(inv.movies))
	return inv, nil
}

// refreshWatchlists pulls the owner's and every other user's watchlist concurrently
func (s *Service) refreshWatchlists(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.deps.Refresher.GetSelfWatchlist(gctx)
	})
	g.Go(func() error {
		return s.deps.Refresher.GetOthersWatchlists(gctx)
	})
	return g.Wait()
}
