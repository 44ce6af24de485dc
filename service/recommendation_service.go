package service

import (
	"context"
	"log/slog"
	"time"

	"gorm.io/gorm"
	"ghostlore.app/aiservice"
	"ghostlore.app/cache"
	"ghostlore.app/config"
	"ghostlore.app/database"
	"ghostlore.app/errors"
	"ghostlore.app/models"
	"ghostlore.app/repository"
)

const (
	defaultRecommendationLimit = 10
	interactionHistoryLimit    = 50
	recommendationFreshness    = time.Hour
	fallbackCacheTTL           = 5 * time.Minute
)

// RecommendationService produces personalized suggestions. The AI service is
// the preferred source; stored recommendations are the fallback when it is
// down, and an empty list the last resort. An upstream outage never reaches
// the caller as an error.
type RecommendationService struct {
	db              *gorm.DB
	recommendations *repository.RecommendationRepository
	interactions    *repository.InteractionRepository
	prefs           *repository.PreferencesRepository
	ai              aiservice.ClientInterface
	cache           *cache.Client
	invalidator     cache.Invalidator
	ttl             time.Duration
}

// NewRecommendationService creates a new recommendation service
func NewRecommendationService(
	db *gorm.DB,
	recommendations *repository.RecommendationRepository,
	interactions *repository.InteractionRepository,
	prefs *repository.PreferencesRepository,
	ai aiservice.ClientInterface,
	cacheClient *cache.Client,
	invalidator cache.Invalidator,
	cacheCfg config.CacheConfig,
) *RecommendationService {
	return &RecommendationService{
		db:              db,
		recommendations: recommendations,
		interactions:    interactions,
		prefs:           prefs,
		ai:              ai,
		cache:           cacheClient,
		invalidator:     invalidator,
		ttl:             time.Duration(cacheCfg.TTLRecommendations) * time.Second,
	}
}

// GetPersonalized resolves recommendations: cache, then fresh stored rows,
// then the AI service, then stale stored rows as fallback
func (s *RecommendationService) GetPersonalized(ctx context.Context, userID string, limit int) ([]models.Recommendation, error) {
	if limit < 1 {
		limit = defaultRecommendationLimit
	}

	key := cache.RecommendationsKey(userID)

	var cached []models.Recommendation
	if found, _ := s.cache.Get(ctx, key, &cached); found {
		if len(cached) > limit {
			cached = cached[:limit]
		}
		return cached, nil
	}

	stored, err := s.recommendations.FindByUser(userID, limit)
	if err != nil {
		return nil, database.Classify(err, "recommendations")
	}

	// Fresh stored rows short-circuit the AI call.
	if len(stored) > 0 && time.Since(stored[0].GeneratedAt) < recommendationFreshness {
		_ = s.cache.Set(ctx, key, stored, s.ttl)
		return stored, nil
	}

	generated, err := s.generate(ctx, userID, limit)
	if err != nil {
		slog.Warn("AI recommendation call failed, using stored fallback",
			"userID", userID, "error", err)

		if len(stored) > 0 {
			// Short TTL: retry the AI service soon, not after a full window.
			_ = s.cache.Set(ctx, key, stored, fallbackCacheTTL)
			return stored, nil
		}
		return []models.Recommendation{}, nil
	}

	if len(generated) > 0 {
		_ = s.cache.Set(ctx, key, generated, s.ttl)
	}
	return generated, nil
}

// RecordInteraction stores one user action and invalidates the derived
// recommendation caches once the write commits
func (s *RecommendationService) RecordInteraction(ctx context.Context, userID, contentID, contentType, interactionType string) (*models.Interaction, error) {
	interaction := &models.Interaction{
		UserID:          userID,
		ContentID:       contentID,
		ContentType:     contentType,
		InteractionType: interactionType,
	}

	err := database.WithTransaction(s.db, func(tx *gorm.DB) error {
		return s.interactions.Create(tx, interaction)
	})
	if err != nil {
		return nil, database.Classify(err, "interaction")
	}

	s.invalidator.Run(ctx, cache.InvalidationSet{
		Keys: []string{cache.RecommendationsKey(userID)},
		Patterns: []string{
			cache.ResponsePattern("/api/recommendations"),
		},
	})

	return interaction, nil
}

// validFeedbackTypes is the feedback vocabulary the model update pipeline
// accepts.
var validFeedbackTypes = map[string]bool{
	"like":           true,
	"dislike":        true,
	"not_interested": true,
}

// SubmitFeedback stores one verdict on a recommendation and invalidates the
// derived recommendation caches once the write commits
func (s *RecommendationService) SubmitFeedback(ctx context.Context, userID, recommendationID, feedbackType string) error {
	if !validFeedbackTypes[feedbackType] {
		return errors.NewValidationError("feedback type must be like, dislike or not_interested")
	}

	err := database.WithTransaction(s.db, func(tx *gorm.DB) error {
		return s.recommendations.RecordFeedback(tx, &models.RecommendationFeedback{
			UserID:           userID,
			RecommendationID: recommendationID,
			FeedbackType:     feedbackType,
		})
	})
	if err != nil {
		return database.Classify(err, "recommendation feedback")
	}

	s.invalidator.Run(ctx, cache.InvalidationSet{
		Keys: []string{cache.RecommendationsKey(userID)},
		Patterns: []string{
			cache.ResponsePattern("/api/recommendations"),
		},
	})

	return nil
}

// generate asks the AI service for suggestions and persists them as the
// next fallback generation
func (s *RecommendationService) generate(ctx context.Context, userID string, limit int) ([]models.Recommendation, error) {
	prefs, err := s.prefs.FindByUserID(userID)
	if err != nil {
		return nil, database.Classify(err, "preferences")
	}

	interactions, err := s.interactions.FindByUser(userID, interactionHistoryLimit)
	if err != nil {
		return nil, database.Classify(err, "interactions")
	}

	req := &aiservice.RecommendationRequest{
		UserID:            userID,
		PreferenceProfile: preferenceProfile(prefs),
		Limit:             limit,
	}
	for _, i := range interactions {
		req.InteractionHistory = append(req.InteractionHistory, aiservice.InteractionEvent{
			ContentID:       i.ContentID,
			ContentType:     i.ContentType,
			InteractionType: i.InteractionType,
			Timestamp:       i.Timestamp.Format(time.RFC3339),
		})
	}

	resp, err := s.ai.GenerateRecommendations(ctx, req)
	if err != nil {
		return nil, err
	}

	recommendations := make([]models.Recommendation, 0, len(resp.Recommendations))
	err = database.WithTransaction(s.db, func(tx *gorm.DB) error {
		for _, scored := range resp.Recommendations {
			rec := models.Recommendation{
				UserID:      userID,
				ContentID:   scored.ContentID,
				ContentType: scored.ContentType,
				Score:       scored.Score,
				Reasoning:   scored.Reasoning,
			}
			if err := s.recommendations.Create(tx, &rec); err != nil {
				return err
			}
			recommendations = append(recommendations, rec)
		}
		return nil
	})
	if err != nil {
		return nil, database.Classify(err, "recommendation")
	}

	return recommendations, nil
}

func preferenceProfile(prefs *models.UserPreferences) aiservice.PreferenceProfile {
	profile := aiservice.PreferenceProfile{
		FavoriteGhostTypes:    []string{},
		PreferredContentTypes: []string{},
		CulturalInterests:     []string{},
		SpookinessLevel:       3,
	}
	if prefs != nil {
		profile.FavoriteGhostTypes = prefs.FavoriteGhostTypes
		profile.PreferredContentTypes = prefs.PreferredContentTypes
		profile.CulturalInterests = prefs.CulturalInterests
		profile.SpookinessLevel = prefs.SpookinessLevel
	}
	return profile
}
