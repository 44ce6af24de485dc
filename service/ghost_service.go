package service

import (
	"context"
	"log/slog"
	"time"

	"gorm.io/gorm"
	"ghostlore.app/cache"
	"ghostlore.app/config"
	"ghostlore.app/database"
	"ghostlore.app/errors"
	"ghostlore.app/models"
	"ghostlore.app/repository"
)

const (
	maxPageSize  = 100
	relatedLimit = 10
)

// GhostService handles catalog search and entries with read-through caching
type GhostService struct {
	db          *gorm.DB
	ghosts      *repository.GhostRepository
	prefs       *repository.PreferencesRepository
	cache       *cache.Client
	invalidator cache.Invalidator
	ttl         time.Duration
}

// NewGhostService creates a new catalog service
func NewGhostService(db *gorm.DB, ghosts *repository.GhostRepository, prefs *repository.PreferencesRepository, cacheClient *cache.Client, invalidator cache.Invalidator, cacheCfg config.CacheConfig) *GhostService {
	return &GhostService{
		db:          db,
		ghosts:      ghosts,
		prefs:       prefs,
		cache:       cacheClient,
		invalidator: invalidator,
		ttl:         time.Duration(cacheCfg.TTLGhosts) * time.Second,
	}
}

// Search performs a cached catalog search. The cache key canonicalizes the
// filter set so equivalent queries share one entry.
func (s *GhostService) Search(ctx context.Context, opts GhostSearchOptions) (*models.PaginatedResult[models.Ghost], error) {
	opts = clampSearchOptions(opts)
	key := cache.GhostSearchKey(opts.Query, searchFilterMap(opts))

	var cached models.PaginatedResult[models.Ghost]
	if found, _ := s.cache.Get(ctx, key, &cached); found {
		return &cached, nil
	}

	result, err := s.ghosts.Search(opts.Query, opts.Filters, opts.Page, opts.Limit)
	if err != nil {
		return nil, database.Classify(err, "ghost search")
	}

	_ = s.cache.Set(ctx, key, result, s.ttl)
	return result, nil
}

// GetByID reads one entry through the entity cache
func (s *GhostService) GetByID(ctx context.Context, ghostID string) (*models.Ghost, error) {
	key := cache.GhostKey(ghostID)

	var cached models.Ghost
	if found, _ := s.cache.Get(ctx, key, &cached); found {
		return &cached, nil
	}

	ghost, err := s.ghosts.FindByID(ghostID)
	if err != nil {
		return nil, database.Classify(err, "ghost")
	}

	_ = s.cache.Set(ctx, key, ghost, s.ttl)
	return ghost, nil
}

// GetByCategory reads one category page through the cache
func (s *GhostService) GetByCategory(ctx context.Context, category string, page, limit int) (*models.PaginatedResult[models.Ghost], error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > maxPageSize {
		limit = 50
	}

	key := cache.GhostsByCategoryKey(category, page)

	var cached models.PaginatedResult[models.Ghost]
	if found, _ := s.cache.Get(ctx, key, &cached); found {
		return &cached, nil
	}

	result, err := s.ghosts.FindByCategory(category, page, limit)
	if err != nil {
		return nil, database.Classify(err, "ghost category")
	}

	_ = s.cache.Set(ctx, key, result, s.ttl)
	return result, nil
}

// GetRelated lists entries related to one entry, uncached
func (s *GhostService) GetRelated(ctx context.Context, ghostID string) ([]models.Ghost, error) {
	related, err := s.ghosts.FindRelated(ghostID, relatedLimit)
	if err != nil {
		return nil, database.Classify(err, "ghost")
	}
	return related, nil
}

// Create adds a catalog entry, learns the creator's interests from its tags,
// then invalidates every list that could now contain the new entry
func (s *GhostService) Create(ctx context.Context, req *models.CreateGhostRequest, userID string) (*models.Ghost, error) {
	if req.DangerLevel != 0 && (req.DangerLevel < 1 || req.DangerLevel > 5) {
		return nil, errors.NewValidationError("danger level must be between 1 and 5")
	}

	ghost := &models.Ghost{
		Name:            req.Name,
		Type:            req.Type,
		Description:     req.Description,
		CulturalContext: req.CulturalContext,
		DangerLevel:     req.DangerLevel,
		Tags:            req.Tags,
		ImageURL:        req.ImageURL,
	}
	if ghost.DangerLevel == 0 {
		ghost.DangerLevel = 1
	}

	err := database.WithTransaction(s.db, func(tx *gorm.DB) error {
		if err := s.ghosts.Create(tx, ghost); err != nil {
			return err
		}
		if userID != "" && len(req.Tags) > 0 {
			if err := s.prefs.AddCulturalInterests(tx, userID, req.Tags); err != nil {
				// Preference learning must not fail entry creation.
				slog.Error("Failed to learn interests from tags", "userID", userID, "error", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, database.Classify(err, "ghost")
	}

	s.invalidator.Run(ctx, cache.InvalidationSet{
		Keys: []string{cache.GhostKey(ghost.ID)},
		Patterns: []string{
			cache.GhostSearchPattern(),
			cache.GhostCategoryPattern(),
			cache.ResponsePattern("/api/ghosts"),
		},
	})

	slog.Info("Ghost created", "ghostID", ghost.ID, "name", ghost.Name)
	return ghost, nil
}

// Update modifies a catalog entry, then invalidates the entity and every
// list that could still serve the old version
func (s *GhostService) Update(ctx context.Context, ghostID string, req *models.UpdateGhostRequest) (*models.Ghost, error) {
	if req.DangerLevel != nil && (*req.DangerLevel < 1 || *req.DangerLevel > 5) {
		return nil, errors.NewValidationError("danger level must be between 1 and 5")
	}

	ghost, err := s.ghosts.FindByID(ghostID)
	if err != nil {
		return nil, database.Classify(err, "ghost")
	}

	if req.Name != nil {
		ghost.Name = *req.Name
	}
	if req.Type != nil {
		ghost.Type = *req.Type
	}
	if req.Description != nil {
		ghost.Description = *req.Description
	}
	if req.CulturalContext != nil {
		ghost.CulturalContext = *req.CulturalContext
	}
	if req.DangerLevel != nil {
		ghost.DangerLevel = *req.DangerLevel
	}
	if req.Tags != nil {
		ghost.Tags = *req.Tags
	}
	if req.ImageURL != nil {
		ghost.ImageURL = *req.ImageURL
	}

	err = database.WithTransaction(s.db, func(tx *gorm.DB) error {
		return s.ghosts.Update(tx, ghost)
	})
	if err != nil {
		return nil, database.Classify(err, "ghost")
	}

	s.invalidator.Run(ctx, cache.InvalidationSet{
		Keys: []string{cache.GhostKey(ghost.ID)},
		Patterns: []string{
			cache.GhostSearchPattern(),
			cache.GhostCategoryPattern(),
			cache.ResponsePattern("/api/ghosts"),
		},
	})

	return ghost, nil
}

func clampSearchOptions(opts GhostSearchOptions) GhostSearchOptions {
	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.Limit < 1 || opts.Limit > maxPageSize {
		opts.Limit = 50
	}
	return opts
}

// searchFilterMap renders the search options as the canonical filter object
// used for key composition.
func searchFilterMap(opts GhostSearchOptions) map[string]interface{} {
	filters := map[string]interface{}{
		"page":  opts.Page,
		"limit": opts.Limit,
	}
	if len(opts.Filters.Categories) > 0 {
		filters["categories"] = opts.Filters.Categories
	}
	if opts.Filters.DangerLevel != nil {
		filters["dangerLevel"] = *opts.Filters.DangerLevel
	}
	if opts.Filters.CulturalContext != "" {
		filters["culturalContext"] = opts.Filters.CulturalContext
	}
	if len(opts.Filters.Tags) > 0 {
		filters["tags"] = opts.Filters.Tags
	}
	if opts.Filters.SortBy != "" {
		filters["sortBy"] = opts.Filters.SortBy
	}
	if opts.Filters.SortOrder != "" {
		filters["sortOrder"] = opts.Filters.SortOrder
	}
	return filters
}
