package deletesync

import (
	"context"
	"fmt"

	"github.com/hnipps/pulsarr/pkg/models"
)

// GetAllWatchlistItems builds the set of GUIDs wanted by at least one user.
// With respectUserSyncSetting only rows of users with sync enabled count.
// Rows without a parseable GUID are counted in malformed and left out.
func (s *Service) GetAllWatchlistItems(ctx context.Context, respectUserSyncSetting bool) (models.GUIDSet, int, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}

	var items []models.WatchlistItem
	if respectUserSyncSetting {
		users, err := s.deps.Users.GetAllUsers()
		if err != nil {
			return nil, 0, fmt.Errorf("failed to load users: %w", err)
		}

		var syncIDs []uint64
		for _, u := range users {
			if u.SyncEnabled() {
				syncIDs = append(syncIDs, u.ID)
			}
		}
		s.logger.Debug("%d of %d user(s) have sync enabled", len(syncIDs), len(users))

		if len(syncIDs) == 0 {
			return models.NewGUIDSet(), 0, nil
		}

		items, err = s.deps.Watchlists.GetWatchlistItemsByUsers(syncIDs)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to load watchlist items: %w", err)
		}
	} else {
		shows, err := s.deps.Watchlists.GetAllShowWatchlistItems()
		if err != nil {
			return nil, 0, fmt.Errorf("failed to load show watchlist items: %w", err)
		}
		movies, err := s.deps.Watchlists.GetAllMovieWatchlistItems()
		if err != nil {
			return nil, 0, fmt.Errorf("failed to load movie watchlist items: %w", err)
		}
		items = append(shows, movies...)
	}

	guids := models.NewGUIDSet()
	malformed := 0
	for _, item := range items {
		parsed := models.ParseGuids(item.GUIDs)
		if len(parsed) == 0 {
			malformed++
			s.logger.Debug("Watchlist item \"%s\" (user %d) has no usable GUIDs", item.Title, item.UserID)
			continue
		}
		for _, g := range parsed {
			guids.Add(g)
		}
	}

	if malformed > 0 {
		s.logger.Warn("⚠️  %d watchlist item(s) had malformed or missing GUIDs and were ignored", malformed)
	}
	s.logger.Info("Watchlists reference %d unique GUID(s) across %d item(s)", guids.Len(), len(items))
	return guids, malformed, nil
}
