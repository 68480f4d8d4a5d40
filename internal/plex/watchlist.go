package plex

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/hnipps/pulsarr/internal/arr"
	"github.com/hnipps/pulsarr/internal/store"
	"github.com/hnipps/pulsarr/pkg/models"
	gocache "github.com/patrickmn/go-cache"
)

const (
	defaultDiscoverURL = "https://discover.provider.plex.tv"
	watchlistPageSize  = 100
)

// WatchlistStore is the persistence the refresher writes fresh snapshots into
type WatchlistStore interface {
	GetAllUsers() ([]models.User, error)
	GetPrimaryUser() (*models.User, error)
	SaveUser(user *models.User) error
	ReplaceUserWatchlist(userID uint64, items []models.WatchlistItem) error
}

// WatchlistRefresher pulls current watchlists from the Plex discover service
type WatchlistRefresher struct {
	client      *PlexClient
	store       WatchlistStore
	discoverURL string
	guidCache   *gocache.Cache
	logger      arr.Logger
}

// NewWatchlistRefresher creates a refresher backed by the given client and store
func NewWatchlistRefresher(client *PlexClient, db WatchlistStore, logger arr.Logger) *WatchlistRefresher {
	return &WatchlistRefresher{
		client:      client,
		store:       db,
		discoverURL: defaultDiscoverURL,
		guidCache:   gocache.New(24*time.Hour, time.Hour),
		logger:      logger,
	}
}

// GetSelfWatchlist refreshes the server owner's watchlist using the admin token
func (r *WatchlistRefresher) GetSelfWatchlist(ctx context.Context) error {
	primary, err := r.primaryUser()
	if err != nil {
		return err
	}

	token := primary.PlexToken
	if token == "" {
		token = r.client.AdminToken()
	}

	count, err := r.refreshUser(ctx, primary, token)
	if err != nil {
		return fmt.Errorf("self watchlist: %w", err)
	}
	r.logger.Info("Refreshed watchlist of %s (%d items)", primary.Name, count)
	return nil
}

// GetOthersWatchlists refreshes every other user that has a stored token. All
// users are attempted; the joined error reports every failure.
func (r *WatchlistRefresher) GetOthersWatchlists(ctx context.Context) error {
	users, err := r.store.GetAllUsers()
	if err != nil {
		return fmt.Errorf("failed to load users: %w", err)
	}

	var errs []error
	refreshed := 0
	for _, user := range users {
		if user.IsPrimary || user.PlexToken == "" {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		count, err := r.refreshUser(ctx, user, user.PlexToken)
		if err != nil {
			errs = append(errs, fmt.Errorf("watchlist of %s: %w", user.Name, err))
			continue
		}
		refreshed++
		r.logger.Debug("Refreshed watchlist of %s (%d items)", user.Name, count)
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	r.logger.Info("Refreshed watchlists of %d other user(s)", refreshed)
	return nil
}

func (r *WatchlistRefresher) primaryUser() (models.User, error) {
	existing, err := r.store.GetPrimaryUser()
	if err == nil {
		return *existing, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return models.User{}, fmt.Errorf("failed to load primary user: %w", err)
	}

	primary := models.User{Name: "admin", IsPrimary: true}
	if err := r.store.SaveUser(&primary); err != nil {
		return models.User{}, fmt.Errorf("failed to create primary user: %w", err)
	}
	r.logger.Info("Created primary user %q for the server owner", primary.Name)
	return primary, nil
}

// refreshUser fetches a user's watchlist and replaces their stored rows
func (r *WatchlistRefresher) refreshUser(ctx context.Context, user models.User, token string) (int, error) {
	entries, err := r.fetchWatchlist(ctx, token)
	if err != nil {
		return 0, err
	}

	items := make([]models.WatchlistItem, 0, len(entries))
	for _, entry := range entries {
		contentType, ok := contentTypeOf(entry.Type)
		if !ok {
			continue
		}

		guids, err := r.resolveGUIDs(ctx, entry, token)
		if err != nil {
			return 0, err
		}

		items = append(items, models.WatchlistItem{
			UserID: user.ID,
			Key:    entry.RatingKey,
			Title:  entry.Title,
			Type:   contentType,
			GUIDs:  models.EncodeGuids(guids),
			Status: "pending",
		})
	}

	if err := r.store.ReplaceUserWatchlist(user.ID, items); err != nil {
		return 0, err
	}
	return len(items), nil
}

func (r *WatchlistRefresher) fetchWatchlist(ctx context.Context, token string) ([]Metadata, error) {
	var all []Metadata
	for start := 0; ; start += watchlistPageSize {
		query := url.Values{}
		query.Set("X-Plex-Container-Start", strconv.Itoa(start))
		query.Set("X-Plex-Container-Size", strconv.Itoa(watchlistPageSize))

		var page MediaContainer
		if err := r.client.getJSON(ctx, r.discoverURL, "/library/sections/watchlist/all", token, query, &page); err != nil {
			return nil, fmt.Errorf("failed to fetch watchlist: %w", err)
		}

		all = append(all, page.MediaContainer.Metadata...)
		total := page.MediaContainer.TotalSize
		if len(page.MediaContainer.Metadata) < watchlistPageSize || (total > 0 && len(all) >= total) {
			return all, nil
		}
	}
}

// resolveGUIDs looks up external ids for a watchlist entry; lookups are cached by rating key
func (r *WatchlistRefresher) resolveGUIDs(ctx context.Context, entry Metadata, token string) ([]string, error) {
	if len(entry.Guids) > 0 {
		return entry.AllGUIDs(), nil
	}
	if cached, ok := r.guidCache.Get(entry.RatingKey); ok {
		return cached.([]string), nil
	}

	var container MediaContainer
	path := "/library/metadata/" + url.PathEscape(entry.RatingKey)
	if err := r.client.getJSON(ctx, r.discoverURL, path, token, nil, &container); err != nil {
		return nil, fmt.Errorf("failed to resolve GUIDs of %q: %w", entry.Title, err)
	}

	guids := entry.AllGUIDs()
	if len(container.MediaContainer.Metadata) > 0 {
		guids = models.ParseGuids(append(guids, container.MediaContainer.Metadata[0].AllGUIDs()...))
	}
	r.guidCache.SetDefault(entry.RatingKey, guids)
	return guids, nil
}

func contentTypeOf(plexType string) (models.ContentType, bool) {
	switch plexType {
	case "movie":
		return models.ContentTypeMovie, true
	case "show":
		return models.ContentTypeShow, true
	default:
		return "", false
	}
}
