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

// PreferencesService handles preference profile reads and updates. A
// preference change stales not just the profile entry but everything
// derived from it: the recommendation cache and the user's cached responses.
type PreferencesService struct {
	db          *gorm.DB
	prefs       *repository.PreferencesRepository
	cache       *cache.Client
	invalidator cache.Invalidator
	ttl         time.Duration
}

// NewPreferencesService creates a new preferences service
func NewPreferencesService(db *gorm.DB, prefs *repository.PreferencesRepository, cacheClient *cache.Client, invalidator cache.Invalidator, cacheCfg config.CacheConfig) *PreferencesService {
	return &PreferencesService{
		db:          db,
		prefs:       prefs,
		cache:       cacheClient,
		invalidator: invalidator,
		ttl:         time.Duration(cacheCfg.TTLDefault) * time.Second,
	}
}

// GetPreferences reads the profile through the cache; absent rows resolve
// to the default profile
func (s *PreferencesService) GetPreferences(ctx context.Context, userID string) (*models.UserPreferences, error) {
	key := cache.UserPreferencesKey(userID)

	var cached models.UserPreferences
	if found, _ := s.cache.Get(ctx, key, &cached); found {
		return &cached, nil
	}

	prefs, err := s.prefs.FindByUserID(userID)
	if err != nil {
		return nil, database.Classify(err, "preferences")
	}
	if prefs == nil {
		prefs = &models.UserPreferences{
			UserID:          userID,
			SpookinessLevel: 3,
		}
	}

	_ = s.cache.Set(ctx, key, prefs, s.ttl)
	return prefs, nil
}

// UpdatePreferences validates and applies a partial update, then invalidates
// the profile, the derived recommendation cache and the user's responses
func (s *PreferencesService) UpdatePreferences(ctx context.Context, userID string, req *models.UpdatePreferencesRequest) (*models.UserPreferences, error) {
	if req.SpookinessLevel != nil && (*req.SpookinessLevel < 1 || *req.SpookinessLevel > 5) {
		return nil, errors.NewValidationError("spookiness level must be between 1 and 5")
	}

	prefs, err := s.prefs.FindByUserID(userID)
	if err != nil {
		return nil, database.Classify(err, "preferences")
	}
	if prefs == nil {
		prefs = &models.UserPreferences{
			UserID:          userID,
			SpookinessLevel: 3,
		}
	}

	if req.FavoriteGhostTypes != nil {
		prefs.FavoriteGhostTypes = *req.FavoriteGhostTypes
	}
	if req.PreferredContentTypes != nil {
		prefs.PreferredContentTypes = *req.PreferredContentTypes
	}
	if req.CulturalInterests != nil {
		prefs.CulturalInterests = *req.CulturalInterests
	}
	if req.SpookinessLevel != nil {
		prefs.SpookinessLevel = *req.SpookinessLevel
	}

	err = database.WithTransaction(s.db, func(tx *gorm.DB) error {
		return s.prefs.Upsert(tx, prefs)
	})
	if err != nil {
		return nil, database.Classify(err, "preferences")
	}

	s.invalidator.Run(ctx, cache.InvalidationSet{
		Keys: []string{
			cache.UserPreferencesKey(userID),
			cache.RecommendationsKey(userID),
		},
		Patterns: []string{
			cache.ResponsePattern("/api/users/" + userID),
			cache.ResponsePattern("/api/recommendations"),
			"response:" + userID + ":*",
		},
	})

	return prefs, nil
}
