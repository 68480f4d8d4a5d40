package plex

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hnipps/pulsarr/internal/arr"
	"github.com/hnipps/pulsarr/pkg/models"
	gocache "github.com/patrickmn/go-cache"
)

// ErrProtectionUnavailable reports that no protection playlist could be used
var ErrProtectionUnavailable = errors.New("protection playlists unavailable")

const (
	playlistsCacheKey = "protection:playlists"
	showGUIDKeyPrefix = "protection:show:"
)

// UserLister supplies the users whose protection playlists are consulted
type UserLister interface {
	GetAllUsers() ([]models.User, error)
}

// ProtectionService resolves the content shielded by per-user protection playlists
type ProtectionService struct {
	client       *PlexClient
	users        UserLister
	playlistName string
	cache        *gocache.Cache
	logger       arr.Logger
}

// NewProtectionService creates a protection resolver for the named playlist
func NewProtectionService(client *PlexClient, users UserLister, playlistName string, logger arr.Logger) *ProtectionService {
	return &ProtectionService{
		client:       client,
		users:        users,
		playlistName: playlistName,
		cache:        gocache.New(30*time.Minute, time.Hour),
		logger:       logger,
	}
}

type protectionPlaylist struct {
	userID uint64
	id     string
	token  string
}

// GetOrCreateProtectionPlaylists finds each user's protection playlist, creating
// missing ones when createIfMissing is set. Users whose playlist cannot be
// resolved are logged and left out; an empty result is an error.
func (s *ProtectionService) GetOrCreateProtectionPlaylists(ctx context.Context, createIfMissing bool) (map[uint64]string, error) {
	playlists, err := s.resolvePlaylists(ctx, createIfMissing)
	if err != nil {
		return nil, err
	}

	result := make(map[uint64]string, len(playlists))
	for _, p := range playlists {
		result[p.userID] = p.id
	}
	return result, nil
}

func (s *ProtectionService) resolvePlaylists(ctx context.Context, createIfMissing bool) ([]protectionPlaylist, error) {
	if cached, ok := s.cache.Get(playlistsCacheKey); ok {
		return cached.([]protectionPlaylist), nil
	}

	users, err := s.users.GetAllUsers()
	if err != nil {
		return nil, fmt.Errorf("failed to load users: %w", err)
	}

	var playlists []protectionPlaylist
	for _, user := range users {
		token := s.userToken(user)
		if token == "" {
			s.logger.Debug("User %s has no Plex token, skipping protection playlist", user.Name)
			continue
		}

		id, err := s.findOrCreate(ctx, token, createIfMissing)
		if err != nil {
			s.logger.Warn("Could not resolve protection playlist for user %s: %v", user.Name, err)
			continue
		}
		if id == "" {
			continue
		}
		playlists = append(playlists, protectionPlaylist{userID: user.ID, id: id, token: token})
	}

	if len(playlists) == 0 {
		return nil, fmt.Errorf("%w: no \"%s\" playlist found or created for any user", ErrProtectionUnavailable, s.playlistName)
	}

	s.cache.SetDefault(playlistsCacheKey, playlists)
	s.logger.Debug("Resolved %d protection playlist(s)", len(playlists))
	return playlists, nil
}

func (s *ProtectionService) userToken(user models.User) string {
	if user.PlexToken != "" {
		return user.PlexToken
	}
	if user.IsPrimary {
		return s.client.AdminToken()
	}
	return ""
}

func (s *ProtectionService) findOrCreate(ctx context.Context, token string, createIfMissing bool) (string, error) {
	existing, err := s.client.GetPlaylists(ctx, token)
	if err != nil {
		return "", err
	}

	for _, p := range existing {
		if p.Smart {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(p.Title), s.playlistName) {
			return p.RatingKey, nil
		}
	}

	if !createIfMissing {
		return "", nil
	}

	created, err := s.client.CreatePlaylist(ctx, s.playlistName, token)
	if err != nil {
		return "", err
	}
	return created.RatingKey, nil
}

// GetProtectedItems returns the GUIDs of everything in any protection
// playlist. Episodes and seasons protect their whole show. Any failure is
// returned so callers never act on a partial set.
func (s *ProtectionService) GetProtectedItems(ctx context.Context) (models.GUIDSet, error) {
	playlists, err := s.resolvePlaylists(ctx, true)
	if err != nil {
		return nil, err
	}

	protected := models.NewGUIDSet()
	for _, p := range playlists {
		items, err := s.client.GetPlaylistItems(ctx, p.id, p.token)
		if err != nil {
			return nil, fmt.Errorf("protection playlist of user %d: %w", p.userID, err)
		}

		for _, item := range items {
			guids, err := s.itemGUIDs(ctx, item, p.token)
			if err != nil {
				return nil, err
			}
			for _, g := range guids {
				protected.Add(g)
			}
		}
	}

	s.logger.Info("🛡️  %d GUID(s) protected by \"%s\" playlists", protected.Len(), s.playlistName)
	return protected, nil
}

// itemGUIDs maps a playlist entry to the GUIDs an inventory item would carry
func (s *ProtectionService) itemGUIDs(ctx context.Context, item Metadata, token string) ([]string, error) {
	switch item.Type {
	case "episode":
		return s.showGUIDs(ctx, item.GrandparentRatingKey, item.Title, token)
	case "season":
		return s.showGUIDs(ctx, item.ParentRatingKey, item.Title, token)
	default:
		return item.AllGUIDs(), nil
	}
}

func (s *ProtectionService) showGUIDs(ctx context.Context, showKey, title, token string) ([]string, error) {
	if showKey == "" {
		return nil, fmt.Errorf("playlist entry %q has no parent show", title)
	}

	cacheKey := showGUIDKeyPrefix + showKey
	if cached, ok := s.cache.Get(cacheKey); ok {
		return cached.([]string), nil
	}

	show, err := s.client.GetMetadata(ctx, showKey, token)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve show for %q: %w", title, err)
	}

	guids := show.AllGUIDs()
	s.cache.SetDefault(cacheKey, guids)
	return guids, nil
}

// ClearWorkflowCaches drops every cached playlist and show lookup
func (s *ProtectionService) ClearWorkflowCaches() {
	s.cache.Flush()
}
