package repository

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"ghostlore.app/models"
)

// BookmarkRepository handles data access operations for bookmarks
type BookmarkRepository struct {
	db *gorm.DB
}

// NewBookmarkRepository creates a new repository for bookmark data
func NewBookmarkRepository(db *gorm.DB) *BookmarkRepository {
	return &BookmarkRepository{db: db}
}

// FindByUser lists a user's bookmarks, newest first
func (r *BookmarkRepository) FindByUser(userID string) ([]models.Bookmark, error) {
	var bookmarks []models.Bookmark
	result := r.db.Where("user_id = ?", userID).Order("created_at desc").Find(&bookmarks)
	if result.Error != nil {
		return nil, result.Error
	}
	return bookmarks, nil
}

// Create persists a new bookmark
func (r *BookmarkRepository) Create(tx *gorm.DB, bookmark *models.Bookmark) error {
	if bookmark.ID == "" {
		bookmark.ID = uuid.New().String()
	}
	return tx.Create(bookmark).Error
}

// Delete removes one of a user's bookmarks
func (r *BookmarkRepository) Delete(tx *gorm.DB, userID, bookmarkID string) error {
	result := tx.Where("id = ? AND user_id = ?", bookmarkID, userID).Delete(&models.Bookmark{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// UpdateTags replaces the tag set on one of a user's bookmarks
func (r *BookmarkRepository) UpdateTags(tx *gorm.DB, userID, bookmarkID string, tags []string) (*models.Bookmark, error) {
	var bookmark models.Bookmark
	if err := tx.Where("id = ? AND user_id = ?", bookmarkID, userID).First(&bookmark).Error; err != nil {
		return nil, err
	}

	bookmark.Tags = tags
	if err := tx.Save(&bookmark).Error; err != nil {
		return nil, err
	}
	return &bookmark, nil
}

// ProgressRepository handles data access operations for reading progress
type ProgressRepository struct {
	db *gorm.DB
}

// NewProgressRepository creates a new repository for progress data
func NewProgressRepository(db *gorm.DB) *ProgressRepository {
	return &ProgressRepository{db: db}
}

// Find retrieves the progress pair for a user and story, nil when absent
func (r *ProgressRepository) Find(userID, storyID string) (*models.ReadingProgress, error) {
	var progress models.ReadingProgress
	result := r.db.Where("user_id = ? AND story_id = ?", userID, storyID).First(&progress)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return &progress, nil
}

// Upsert creates or advances the progress pair
func (r *ProgressRepository) Upsert(tx *gorm.DB, userID, storyID string, value float64) (*models.ReadingProgress, error) {
	var progress models.ReadingProgress
	result := tx.Where("user_id = ? AND story_id = ?", userID, storyID).First(&progress)
	if result.Error != nil {
		if !errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, result.Error
		}
		progress = models.ReadingProgress{
			ID:      uuid.New().String(),
			UserID:  userID,
			StoryID: storyID,
		}
	}

	progress.Progress = value
	progress.UpdatedAt = time.Now()
	if err := tx.Save(&progress).Error; err != nil {
		return nil, err
	}
	return &progress, nil
}

// InteractionRepository handles data access operations for interactions
type InteractionRepository struct {
	db *gorm.DB
}

// NewInteractionRepository creates a new repository for interaction data
func NewInteractionRepository(db *gorm.DB) *InteractionRepository {
	return &InteractionRepository{db: db}
}

// FindByUser lists a user's most recent interactions
func (r *InteractionRepository) FindByUser(userID string, limit int) ([]models.Interaction, error) {
	var interactions []models.Interaction
	result := r.db.Where("user_id = ?", userID).
		Order("timestamp desc").Limit(limit).Find(&interactions)
	if result.Error != nil {
		return nil, result.Error
	}
	return interactions, nil
}

// Create persists a new interaction
func (r *InteractionRepository) Create(tx *gorm.DB, interaction *models.Interaction) error {
	if interaction.ID == "" {
		interaction.ID = uuid.New().String()
	}
	if interaction.Timestamp.IsZero() {
		interaction.Timestamp = time.Now()
	}
	return tx.Create(interaction).Error
}

// RecommendationRepository handles data access operations for stored
// recommendations, the fallback data when the AI service is down
type RecommendationRepository struct {
	db *gorm.DB
}

// NewRecommendationRepository creates a new repository for recommendation data
func NewRecommendationRepository(db *gorm.DB) *RecommendationRepository {
	return &RecommendationRepository{db: db}
}

// FindByUser lists a user's stored recommendations, freshest first
func (r *RecommendationRepository) FindByUser(userID string, limit int) ([]models.Recommendation, error) {
	var recommendations []models.Recommendation
	result := r.db.Where("user_id = ?", userID).
		Order("generated_at desc, score desc").Limit(limit).Find(&recommendations)
	if result.Error != nil {
		return nil, result.Error
	}
	return recommendations, nil
}

// Create persists one recommendation
func (r *RecommendationRepository) Create(tx *gorm.DB, rec *models.Recommendation) error {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.GeneratedAt.IsZero() {
		rec.GeneratedAt = time.Now()
	}
	return tx.Create(rec).Error
}

// RecordFeedback persists one user verdict on a recommendation
func (r *RecommendationRepository) RecordFeedback(tx *gorm.DB, feedback *models.RecommendationFeedback) error {
	if feedback.ID == "" {
		feedback.ID = uuid.New().String()
	}
	return tx.Create(feedback).Error
}

// DeleteOlderThan prunes stale recommendations
func (r *RecommendationRepository) DeleteOlderThan(cutoff time.Time) (int64, error) {
	result := r.db.Where("generated_at < ?", cutoff).Delete(&models.Recommendation{})
	return result.RowsAffected, result.Error
}

// ConversationRepository handles data access operations for twin chats
type ConversationRepository struct {
	db *gorm.DB
}

// NewConversationRepository creates a new repository for conversation data
func NewConversationRepository(db *gorm.DB) *ConversationRepository {
	return &ConversationRepository{db: db}
}

// FindRecent lists a user's latest messages, oldest first
func (r *ConversationRepository) FindRecent(userID string, limit int) ([]models.ConversationMessage, error) {
	var messages []models.ConversationMessage
	result := r.db.Where("user_id = ?", userID).
		Order("created_at desc").Limit(limit).Find(&messages)
	if result.Error != nil {
		return nil, result.Error
	}

	// Reverse into chronological order for the chat context.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

// Create persists one chat message
func (r *ConversationRepository) Create(tx *gorm.DB, message *models.ConversationMessage) error {
	if message.ID == "" {
		message.ID = uuid.New().String()
	}
	return tx.Create(message).Error
}
