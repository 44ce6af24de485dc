package service

import (
	"context"
	"time"

	"gorm.io/gorm"
	"ghostlore.app/cache"
	"ghostlore.app/config"
	"ghostlore.app/database"
	"ghostlore.app/models"
	"ghostlore.app/repository"
)

// UserService handles profile reads and mutations with cache invalidation
type UserService struct {
	db          *gorm.DB
	users       *repository.UserRepository
	cache       *cache.Client
	invalidator cache.Invalidator
	ttl         time.Duration
}

// NewUserService creates a new user service
func NewUserService(db *gorm.DB, users *repository.UserRepository, cacheClient *cache.Client, invalidator cache.Invalidator, cacheCfg config.CacheConfig) *UserService {
	return &UserService{
		db:          db,
		users:       users,
		cache:       cacheClient,
		invalidator: invalidator,
		ttl:         time.Duration(cacheCfg.TTLDefault) * time.Second,
	}
}

// GetUser reads a profile through the entity cache
func (s *UserService) GetUser(ctx context.Context, userID string) (*models.User, error) {
	key := cache.UserKey(userID)

	var cached models.User
	if found, _ := s.cache.Get(ctx, key, &cached); found {
		return &cached, nil
	}

	user, err := s.users.FindByID(userID)
	if err != nil {
		return nil, database.Classify(err, "user")
	}

	_ = s.cache.Set(ctx, key, user, s.ttl)
	return user, nil
}

// UpdateUsername changes the display name; commits, then invalidates
func (s *UserService) UpdateUsername(ctx context.Context, userID, username string) (*models.User, error) {
	user, err := s.users.FindByID(userID)
	if err != nil {
		return nil, database.Classify(err, "user")
	}

	user.Username = username
	err = database.WithTransaction(s.db, func(tx *gorm.DB) error {
		return s.users.Update(tx, user)
	})
	if err != nil {
		return nil, database.Classify(err, "user")
	}

	s.invalidator.Run(ctx, cache.InvalidationSet{
		Keys:     []string{cache.UserKey(userID)},
		Patterns: []string{cache.ResponsePattern("/api/users/" + userID)},
	})

	return user, nil
}

// DeleteUser removes the account, its dependents and every cache the user owns
func (s *UserService) DeleteUser(ctx context.Context, userID string) error {
	err := database.WithTransaction(s.db, func(tx *gorm.DB) error {
		return s.users.Delete(tx, userID)
	})
	if err != nil {
		return database.Classify(err, "user")
	}

	s.invalidator.Run(ctx, cache.InvalidationSet{
		Keys: []string{
			cache.UserKey(userID),
			cache.UserPreferencesKey(userID),
			cache.RecommendationsKey(userID),
			cache.BookmarksKey(userID),
		},
		Patterns: []string{
			cache.ResponsePattern("/api/users/" + userID),
			"response:" + userID + ":*",
		},
	})

	return nil
}
