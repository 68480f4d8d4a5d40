package store

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/hnipps/pulsarr/pkg/models"
	"github.com/timshannon/bolthold"
	"go.etcd.io/bbolt"
)

// ErrNotFound is returned when a lookup matches no record
var ErrNotFound = bolthold.ErrNotFound

// Store wraps the bolthold database holding users and watchlist rows
type Store struct {
	db *bolthold.Store
}

// Open opens (or creates) the database file at path
func Open(path string) (*Store, error) {
	db, err := bolthold.Open(path, 0600, &bolthold.Options{
		Options: &bbolt.Options{
			Timeout: 1 * time.Second,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

// User operations

// SaveUser inserts a new user or updates an existing one
func (s *Store) SaveUser(user *models.User) error {
	now := time.Now()
	user.UpdatedAt = now
	if user.ID == 0 {
		user.CreatedAt = now
		return s.db.Insert(bolthold.NextSequence(), user)
	}
	return s.db.Update(user.ID, user)
}

// GetUserByID retrieves a user by id
func (s *Store) GetUserByID(id uint64) (*models.User, error) {
	var user models.User
	if err := s.db.Get(id, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// GetUserByName retrieves a user by name
func (s *Store) GetUserByName(name string) (*models.User, error) {
	var user models.User
	if err := s.db.FindOne(&user, bolthold.Where("Name").Eq(name).Index("Name")); err != nil {
		return nil, err
	}
	return &user, nil
}

// GetAllUsers retrieves every user
func (s *Store) GetAllUsers() ([]models.User, error) {
	var users []models.User
	if err := s.db.Find(&users, nil); err != nil {
		return nil, err
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

// GetPrimaryUser returns the user owning the Plex server token
func (s *Store) GetPrimaryUser() (*models.User, error) {
	var user models.User
	if err := s.db.FindOne(&user, bolthold.Where("IsPrimary").Eq(true)); err != nil {
		return nil, err
	}
	return &user, nil
}

// Watchlist operations

// GetAllShowWatchlistItems retrieves every show watchlist row
func (s *Store) GetAllShowWatchlistItems() ([]models.WatchlistItem, error) {
	return s.watchlistByType(models.ContentTypeShow)
}

// GetAllMovieWatchlistItems retrieves every movie watchlist row
func (s *Store) GetAllMovieWatchlistItems() ([]models.WatchlistItem, error) {
	return s.watchlistByType(models.ContentTypeMovie)
}

func (s *Store) watchlistByType(contentType models.ContentType) ([]models.WatchlistItem, error) {
	var items []models.WatchlistItem
	err := s.db.Find(&items, bolthold.Where("Type").Eq(contentType).Index("Type"))
	return items, err
}

// GetWatchlistItemsByUsers retrieves show and movie rows owned by the given users
func (s *Store) GetWatchlistItemsByUsers(userIDs []uint64) ([]models.WatchlistItem, error) {
	if len(userIDs) == 0 {
		return []models.WatchlistItem{}, nil
	}

	ids := make([]interface{}, len(userIDs))
	for i, id := range userIDs {
		ids[i] = id
	}

	var items []models.WatchlistItem
	query := bolthold.Where("UserID").In(ids...).Index("UserID").
		And("Type").In(models.ContentTypeShow, models.ContentTypeMovie)
	err := s.db.Find(&items, query)
	return items, err
}

// GetWatchlistItemsByUser retrieves every row owned by one user
func (s *Store) GetWatchlistItemsByUser(userID uint64) ([]models.WatchlistItem, error) {
	var items []models.WatchlistItem
	err := s.db.Find(&items, bolthold.Where("UserID").Eq(userID).Index("UserID"))
	return items, err
}

// ReplaceUserWatchlist atomically swaps a user's rows for a fresh snapshot
func (s *Store) ReplaceUserWatchlist(userID uint64, items []models.WatchlistItem) error {
	if _, err := s.GetUserByID(userID); err != nil {
		if errors.Is(err, bolthold.ErrNotFound) {
			return fmt.Errorf("user %d does not exist", userID)
		}
		return err
	}

	now := time.Now()
	return s.db.Bolt().Update(func(tx *bbolt.Tx) error {
		err := s.db.TxDeleteMatching(tx, &models.WatchlistItem{}, bolthold.Where("UserID").Eq(userID).Index("UserID"))
		if err != nil {
			return fmt.Errorf("failed to clear watchlist for user %d: %w", userID, err)
		}

		for i := range items {
			item := items[i]
			item.ID = 0
			item.UserID = userID
			item.CreatedAt = now
			item.UpdatedAt = now
			if err := s.db.TxInsert(tx, bolthold.NextSequence(), &item); err != nil {
				return fmt.Errorf("failed to insert watchlist item %q: %w", item.Title, err)
			}
		}
		return nil
	})
}
