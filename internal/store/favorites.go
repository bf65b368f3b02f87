package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"listing-discovery/internal/common/logger"
)

// FavoriteStore implements the favorites contract on Postgres with a
// Redis membership cache in front of IsFavorite. Cache misses and cache
// failures both fall through to the database.
type FavoriteStore struct {
	db       *sql.DB
	cache    *redis.Client
	cacheTTL time.Duration
	logger   logger.Logger
}

func NewFavoriteStore(db *sql.DB, cache *redis.Client, cacheTTL time.Duration, log logger.Logger) *FavoriteStore {
	if cacheTTL == 0 {
		cacheTTL = 5 * time.Minute
	}
	return &FavoriteStore{
		db:       db,
		cache:    cache,
		cacheTTL: cacheTTL,
		logger:   log.WithFields(map[string]interface{}{"component": "favorite-store"}),
	}
}

func favoriteCacheKey(userID, listingID string) string {
	return "fav:" + userID + ":" + listingID
}

// Add records a favorite; the keyword the user was searching with is
// stored alongside for later recall. Adding twice is a no-op.
func (s *FavoriteStore) Add(ctx context.Context, userID, listingID, keyword string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO favorites (user_id, listing_id, keyword, created_at)
		 VALUES ($1, $2, $3, NOW())
		 ON CONFLICT (user_id, listing_id) DO NOTHING`,
		userID, listingID, keyword,
	)
	if err != nil {
		return fmt.Errorf("add favorite: %w", err)
	}
	s.cacheSet(ctx, userID, listingID, true)
	return nil
}

// Remove deletes a favorite if present.
func (s *FavoriteStore) Remove(ctx context.Context, userID, listingID string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM favorites WHERE user_id = $1 AND listing_id = $2`,
		userID, listingID,
	)
	if err != nil {
		return fmt.Errorf("remove favorite: %w", err)
	}
	s.cacheSet(ctx, userID, listingID, false)
	return nil
}

// IsFavorite reports whether the user has favorited the listing.
func (s *FavoriteStore) IsFavorite(ctx context.Context, userID, listingID string) (bool, error) {
	if s.cache != nil {
		if val, err := s.cache.Get(ctx, favoriteCacheKey(userID, listingID)).Result(); err == nil {
			return val == "1", nil
		}
	}

	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM favorites WHERE user_id = $1 AND listing_id = $2)`,
		userID, listingID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check favorite: %w", err)
	}

	s.cacheSet(ctx, userID, listingID, exists)
	return exists, nil
}

func (s *FavoriteStore) cacheSet(ctx context.Context, userID, listingID string, isFav bool) {
	if s.cache == nil {
		return
	}
	val := "0"
	if isFav {
		val = "1"
	}
	if err := s.cache.Set(ctx, favoriteCacheKey(userID, listingID), val, s.cacheTTL).Err(); err != nil {
		s.logger.Debug("favorite cache write failed", map[string]interface{}{"error": err.Error()})
	}
}
