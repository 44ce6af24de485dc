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

// StoryService handles story reads and mutations with cache invalidation
type StoryService struct {
	db          *gorm.DB
	stories     *repository.StoryRepository
	cache       *cache.Client
	invalidator cache.Invalidator
	ttl         time.Duration
}

// NewStoryService creates a new story service
func NewStoryService(db *gorm.DB, stories *repository.StoryRepository, cacheClient *cache.Client, invalidator cache.Invalidator, cacheCfg config.CacheConfig) *StoryService {
	return &StoryService{
		db:          db,
		stories:     stories,
		cache:       cacheClient,
		invalidator: invalidator,
		ttl:         time.Duration(cacheCfg.TTLStories) * time.Second,
	}
}

// GetByID reads one story through the entity cache
func (s *StoryService) GetByID(ctx context.Context, storyID string) (*models.Story, error) {
	key := cache.StoryKey(storyID)

	var cached models.Story
	if found, _ := s.cache.Get(ctx, key, &cached); found {
		return &cached, nil
	}

	story, err := s.stories.FindByID(storyID)
	if err != nil {
		return nil, database.Classify(err, "story")
	}

	_ = s.cache.Set(ctx, key, story, s.ttl)
	return story, nil
}

// GetByGhost lists a catalog entry's stories through the cache
func (s *StoryService) GetByGhost(ctx context.Context, ghostID string) ([]models.Story, error) {
	key := cache.StoriesByGhostKey(ghostID)

	var cached []models.Story
	if found, _ := s.cache.Get(ctx, key, &cached); found {
		return cached, nil
	}

	stories, err := s.stories.FindByGhost(ghostID)
	if err != nil {
		return nil, database.Classify(err, "story")
	}

	_ = s.cache.Set(ctx, key, stories, s.ttl)
	return stories, nil
}

// Create publishes a story, then invalidates the lists that now contain it
func (s *StoryService) Create(ctx context.Context, req *models.CreateStoryRequest, authorID string) (*models.Story, error) {
	story := &models.Story{
		GhostID:     req.GhostID,
		Title:       req.Title,
		Content:     req.Content,
		AuthorID:    authorID,
		ReadingTime: req.ReadingTime,
	}

	err := database.WithTransaction(s.db, func(tx *gorm.DB) error {
		return s.stories.Create(tx, story)
	})
	if err != nil {
		return nil, database.Classify(err, "story")
	}

	s.invalidator.Run(ctx, cache.InvalidationSet{
		Keys: []string{cache.StoriesByGhostKey(req.GhostID)},
		Patterns: []string{
			cache.ResponsePattern("/api/stories"),
			cache.ResponsePattern("/api/ghosts/" + req.GhostID),
		},
	})

	return story, nil
}

// Update edits a story, then invalidates the entity and the lists that
// still carry the old version
func (s *StoryService) Update(ctx context.Context, storyID string, req *models.UpdateStoryRequest) (*models.Story, error) {
	story, err := s.stories.FindByID(storyID)
	if err != nil {
		return nil, database.Classify(err, "story")
	}

	if req.Title != nil {
		story.Title = *req.Title
	}
	if req.Content != nil {
		story.Content = *req.Content
	}
	if req.ReadingTime != nil {
		story.ReadingTime = *req.ReadingTime
	}

	err = database.WithTransaction(s.db, func(tx *gorm.DB) error {
		return s.stories.Update(tx, story)
	})
	if err != nil {
		return nil, database.Classify(err, "story")
	}

	s.invalidator.Run(ctx, cache.InvalidationSet{
		Keys: []string{
			cache.StoryKey(storyID),
			cache.StoriesByGhostKey(story.GhostID),
		},
		Patterns: []string{
			cache.ResponsePattern("/api/stories"),
			cache.ResponsePattern("/api/ghosts/" + story.GhostID),
		},
	})

	return story, nil
}

// Delete removes a story and every cache that could still serve it
func (s *StoryService) Delete(ctx context.Context, storyID string) error {
	story, err := s.stories.FindByID(storyID)
	if err != nil {
		return database.Classify(err, "story")
	}

	err = database.WithTransaction(s.db, func(tx *gorm.DB) error {
		return s.stories.Delete(tx, storyID)
	})
	if err != nil {
		return database.Classify(err, "story")
	}

	s.invalidator.Run(ctx, cache.InvalidationSet{
		Keys: []string{
			cache.StoryKey(storyID),
			cache.StoriesByGhostKey(story.GhostID),
		},
		Patterns: []string{
			cache.ResponsePattern("/api/stories"),
			cache.ResponsePattern("/api/ghosts/" + story.GhostID),
		},
	})

	return nil
}
