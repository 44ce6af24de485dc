package service

import (
	"context"
	"time"

	"gorm.io/gorm"
	"ghostlore.app/cache"
	"ghostlore.app/config"
	"ghostlore.app/database"
	"ghostlore.app/errors"
	"ghostlore.app/models"
	"ghostlore.app/repository"
)

// BookmarkService handles bookmark lists with read-through caching
type BookmarkService struct {
	db          *gorm.DB
	bookmarks   *repository.BookmarkRepository
	cache       *cache.Client
	invalidator cache.Invalidator
	ttl         time.Duration
}

// NewBookmarkService creates a new bookmark service
func NewBookmarkService(db *gorm.DB, bookmarks *repository.BookmarkRepository, cacheClient *cache.Client, invalidator cache.Invalidator, cacheCfg config.CacheConfig) *BookmarkService {
	return &BookmarkService{
		db:          db,
		bookmarks:   bookmarks,
		cache:       cacheClient,
		invalidator: invalidator,
		ttl:         time.Duration(cacheCfg.TTLDefault) * time.Second,
	}
}

// List reads a user's bookmarks through the cache
func (s *BookmarkService) List(ctx context.Context, userID string) ([]models.Bookmark, error) {
	key := cache.BookmarksKey(userID)

	var cached []models.Bookmark
	if found, _ := s.cache.Get(ctx, key, &cached); found {
		return cached, nil
	}

	bookmarks, err := s.bookmarks.FindByUser(userID)
	if err != nil {
		return nil, database.Classify(err, "bookmarks")
	}

	_ = s.cache.Set(ctx, key, bookmarks, s.ttl)
	return bookmarks, nil
}

// Add saves a content item, then invalidates the user's list caches
func (s *BookmarkService) Add(ctx context.Context, userID, contentID, contentType string) (*models.Bookmark, error) {
	if contentType != "ghost" && contentType != "story" {
		return nil, errors.NewValidationError("content type must be ghost or story")
	}

	bookmark := &models.Bookmark{
		UserID:      userID,
		ContentID:   contentID,
		ContentType: contentType,
	}

	err := database.WithTransaction(s.db, func(tx *gorm.DB) error {
		return s.bookmarks.Create(tx, bookmark)
	})
	if err != nil {
		return nil, database.Classify(err, "bookmark")
	}

	s.invalidateFor(ctx, userID)
	return bookmark, nil
}

// Remove deletes a bookmark, then invalidates the user's list caches
func (s *BookmarkService) Remove(ctx context.Context, userID, bookmarkID string) error {
	err := database.WithTransaction(s.db, func(tx *gorm.DB) error {
		return s.bookmarks.Delete(tx, userID, bookmarkID)
	})
	if err != nil {
		return database.Classify(err, "bookmark")
	}

	s.invalidateFor(ctx, userID)
	return nil
}

// Organize replaces a bookmark's tags, then invalidates the user's list caches
func (s *BookmarkService) Organize(ctx context.Context, userID, bookmarkID string, tags []string) (*models.Bookmark, error) {
	var bookmark *models.Bookmark
	err := database.WithTransaction(s.db, func(tx *gorm.DB) error {
		var txErr error
		bookmark, txErr = s.bookmarks.UpdateTags(tx, userID, bookmarkID, tags)
		return txErr
	})
	if err != nil {
		return nil, database.Classify(err, "bookmark")
	}

	s.invalidateFor(ctx, userID)
	return bookmark, nil
}

func (s *BookmarkService) invalidateFor(ctx context.Context, userID string) {
	s.invalidator.Run(ctx, cache.InvalidationSet{
		Keys: []string{cache.BookmarksKey(userID)},
		Patterns: []string{
			cache.ResponsePattern("/api/bookmarks"),
		},
	})
}
