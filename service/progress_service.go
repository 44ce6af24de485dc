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

// ProgressService tracks reading progress pairs
type ProgressService struct {
	db          *gorm.DB
	progress    *repository.ProgressRepository
	cache       *cache.Client
	invalidator cache.Invalidator
	ttl         time.Duration
}

// NewProgressService creates a new progress service
func NewProgressService(db *gorm.DB, progress *repository.ProgressRepository, cacheClient *cache.Client, invalidator cache.Invalidator, cacheCfg config.CacheConfig) *ProgressService {
	return &ProgressService{
		db:          db,
		progress:    progress,
		cache:       cacheClient,
		invalidator: invalidator,
		ttl:         time.Duration(cacheCfg.TTLDefault) * time.Second,
	}
}

// Get reads the progress pair through the cache; absent pairs resolve to zero
func (s *ProgressService) Get(ctx context.Context, userID, storyID string) (*models.ReadingProgress, error) {
	key := cache.ReadingProgressKey(userID, storyID)

	var cached models.ReadingProgress
	if found, _ := s.cache.Get(ctx, key, &cached); found {
		return &cached, nil
	}

	progress, err := s.progress.Find(userID, storyID)
	if err != nil {
		return nil, database.Classify(err, "reading progress")
	}
	if progress == nil {
		progress = &models.ReadingProgress{UserID: userID, StoryID: storyID}
	}

	_ = s.cache.Set(ctx, key, progress, s.ttl)
	return progress, nil
}

// Upsert advances the progress pair, then invalidates its cache entry
func (s *ProgressService) Upsert(ctx context.Context, userID, storyID string, value float64) (*models.ReadingProgress, error) {
	if value < 0 || value > 1 {
		return nil, errors.NewValidationError("progress must be between 0 and 1")
	}

	var progress *models.ReadingProgress
	err := database.WithTransaction(s.db, func(tx *gorm.DB) error {
		var txErr error
		progress, txErr = s.progress.Upsert(tx, userID, storyID, value)
		return txErr
	})
	if err != nil {
		return nil, database.Classify(err, "reading progress")
	}

	s.invalidator.Run(ctx, cache.InvalidationSet{
		Keys: []string{cache.ReadingProgressKey(userID, storyID)},
	})

	return progress, nil
}

// MarkRead records a story as completed
func (s *ProgressService) MarkRead(ctx context.Context, userID, storyID string) (*models.ReadingProgress, error) {
	return s.Upsert(ctx, userID, storyID, 1.0)
}
