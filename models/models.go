// Package models defines data structures used throughout the application
package models

import (
	"time"

	"gorm.io/gorm"
)

// User represents a registered reader
type User struct {
	ID           string         `json:"id" gorm:"primaryKey;type:uuid"`
	Email        string         `json:"email" gorm:"uniqueIndex;not null"`
	Username     string         `json:"username" gorm:"uniqueIndex;not null"`
	PasswordHash string         `json:"-" gorm:"not null"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `json:"-" gorm:"index"`
}

// UserPreferences represents a user's content preference profile
type UserPreferences struct {
	ID                    string         `json:"id" gorm:"primaryKey;type:uuid"`
	UserID                string         `json:"user_id" gorm:"uniqueIndex;not null"`
	User                  User           `json:"-" gorm:"foreignKey:UserID"`
	FavoriteGhostTypes    []string       `json:"favorite_ghost_types" gorm:"serializer:json"`
	PreferredContentTypes []string       `json:"preferred_content_types" gorm:"serializer:json"`
	CulturalInterests     []string       `json:"cultural_interests" gorm:"serializer:json"`
	SpookinessLevel       int            `json:"spookiness_level" gorm:"default:3"`
	CreatedAt             time.Time      `json:"created_at"`
	UpdatedAt             time.Time      `json:"updated_at"`
	DeletedAt             gorm.DeletedAt `json:"-" gorm:"index"`
}

// Ghost represents a catalog entry for a ghost or supernatural entity
type Ghost struct {
	ID              string         `json:"id" gorm:"primaryKey;type:uuid"`
	Name            string         `json:"name" gorm:"index;not null"`
	Type            string         `json:"type" gorm:"index;not null"`
	Description     string         `json:"description"`
	CulturalContext string         `json:"cultural_context" gorm:"index"`
	DangerLevel     int            `json:"danger_level" gorm:"default:1"`
	Tags            []string       `json:"tags" gorm:"serializer:json"`
	ImageURL        string         `json:"image_url"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	DeletedAt       gorm.DeletedAt `json:"-" gorm:"index"`
}

// Story represents a reading item tied to a ghost entry
type Story struct {
	ID          string         `json:"id" gorm:"primaryKey;type:uuid"`
	GhostID     string         `json:"ghost_id" gorm:"index;not null"`
	Ghost       Ghost          `json:"-" gorm:"foreignKey:GhostID"`
	Title       string         `json:"title" gorm:"not null"`
	Content     string         `json:"content" gorm:"not null"`
	AuthorID    string         `json:"author_id" gorm:"index"`
	ReadingTime int            `json:"reading_time"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `json:"-" gorm:"index"`
}

// Bookmark links a user to a saved content item
type Bookmark struct {
	ID          string    `json:"id" gorm:"primaryKey;type:uuid"`
	UserID      string    `json:"user_id" gorm:"index:idx_bookmark_user_content,unique;not null"`
	ContentID   string    `json:"content_id" gorm:"index:idx_bookmark_user_content,unique;not null"`
	ContentType string    `json:"content_type" gorm:"not null"` // "ghost" or "story"
	Tags        []string  `json:"tags" gorm:"serializer:json"`
	CreatedAt   time.Time `json:"created_at"`
}

// ReadingProgress tracks how far a user has read into a story
type ReadingProgress struct {
	ID        string    `json:"id" gorm:"primaryKey;type:uuid"`
	UserID    string    `json:"user_id" gorm:"index:idx_progress_user_story,unique;not null"`
	StoryID   string    `json:"story_id" gorm:"index:idx_progress_user_story,unique;not null"`
	Progress  float64   `json:"progress" gorm:"default:0"` // 0..1
	UpdatedAt time.Time `json:"updated_at"`
}

// Interaction records one user action against a content item; feeds the
// recommendation engine
type Interaction struct {
	ID              string    `json:"id" gorm:"primaryKey;type:uuid"`
	UserID          string    `json:"user_id" gorm:"index;not null"`
	ContentID       string    `json:"content_id" gorm:"not null"`
	ContentType     string    `json:"content_type" gorm:"not null"`
	InteractionType string    `json:"interaction_type" gorm:"not null"` // view, bookmark, read, like
	Timestamp       time.Time `json:"timestamp"`
}

// Recommendation is one AI-scored content suggestion persisted as fallback data
type Recommendation struct {
	ID          string    `json:"id" gorm:"primaryKey;type:uuid"`
	UserID      string    `json:"user_id" gorm:"index;not null"`
	ContentID   string    `json:"content_id" gorm:"not null"`
	ContentType string    `json:"content_type" gorm:"not null"`
	Score       float64   `json:"score"`
	Reasoning   string    `json:"reasoning"`
	GeneratedAt time.Time `json:"generated_at" gorm:"index"`
}

// RecommendationFeedback records a user's verdict on one suggestion; the
// model update pipeline consumes it downstream
type RecommendationFeedback struct {
	ID               string    `json:"id" gorm:"primaryKey;type:uuid"`
	UserID           string    `json:"user_id" gorm:"index;not null"`
	RecommendationID string    `json:"recommendation_id" gorm:"index;not null"`
	FeedbackType     string    `json:"feedback_type" gorm:"not null"` // like, dislike, not_interested
	CreatedAt        time.Time `json:"created_at"`
}

// ConversationMessage stores one side of a digital twin chat exchange
type ConversationMessage struct {
	ID        string    `json:"id" gorm:"primaryKey;type:uuid"`
	UserID    string    `json:"user_id" gorm:"index;not null"`
	Role      string    `json:"role" gorm:"not null"` // "user" or "assistant"
	Content   string    `json:"content" gorm:"not null"`
	CreatedAt time.Time `json:"created_at"`
}

// Session represents an authenticated session stored in the cache
type Session struct {
	Token     string    `json:"token"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// RegisterRequest represents data required to create an account
type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Username string `json:"username" binding:"required,min=3,max=32"`
	Password string `json:"password" binding:"required,min=8"`
}

// LoginRequest represents login credentials
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// UpdatePreferencesRequest carries a partial preference update
type UpdatePreferencesRequest struct {
	FavoriteGhostTypes    *[]string `json:"favorite_ghost_types"`
	PreferredContentTypes *[]string `json:"preferred_content_types"`
	CulturalInterests     *[]string `json:"cultural_interests"`
	SpookinessLevel       *int      `json:"spookiness_level"`
}

// CreateGhostRequest represents data required to create a ghost entry
type CreateGhostRequest struct {
	Name            string   `json:"name" binding:"required"`
	Type            string   `json:"type" binding:"required"`
	Description     string   `json:"description"`
	CulturalContext string   `json:"cultural_context"`
	DangerLevel     int      `json:"danger_level"`
	Tags            []string `json:"tags"`
	ImageURL        string   `json:"image_url"`
}

// UpdateGhostRequest carries a partial catalog entry update
type UpdateGhostRequest struct {
	Name            *string   `json:"name"`
	Type            *string   `json:"type"`
	Description     *string   `json:"description"`
	CulturalContext *string   `json:"cultural_context"`
	DangerLevel     *int      `json:"danger_level"`
	Tags            *[]string `json:"tags"`
	ImageURL        *string   `json:"image_url"`
}

// CreateStoryRequest represents data required to publish a story
type CreateStoryRequest struct {
	GhostID     string `json:"ghost_id" binding:"required"`
	Title       string `json:"title" binding:"required"`
	Content     string `json:"content" binding:"required"`
	ReadingTime int    `json:"reading_time"`
}

// UpdateStoryRequest carries a partial story update
type UpdateStoryRequest struct {
	Title       *string `json:"title"`
	Content     *string `json:"content"`
	ReadingTime *int    `json:"reading_time"`
}

// TwinMessageRequest carries one conversational message to the digital twin
type TwinMessageRequest struct {
	Message string `json:"message" binding:"required"`
}

// TwinMessageResponse is the reply returned to the chat caller
type TwinMessageResponse struct {
	Response          string             `json:"response"`
	ContentReferences []ContentReference `json:"content_references"`
	Fallback          bool               `json:"fallback,omitempty"`
}

// ContentReference points at a catalog item mentioned in a twin reply
type ContentReference struct {
	ContentType string `json:"content_type"`
	ContentID   string `json:"content_id"`
}

// PaginatedResult wraps a page of results with paging metadata
type PaginatedResult[T any] struct {
	Data       []T   `json:"data"`
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalPages int   `json:"total_pages"`
}

// ErrorResponse represents an error message structure for API responses
type ErrorResponse struct {
	Error string `json:"error"`
}

// RateLimitDetails carries the limit metadata on a 429 response
type RateLimitDetails struct {
	Limit      int `json:"limit"`
	WindowMs   int `json:"windowMs"`
	RetryAfter int `json:"retryAfter"`
}

// RateLimitErrorBody is the structured body of a 429 rejection
type RateLimitErrorBody struct {
	Code    string           `json:"code"`
	Message string           `json:"message"`
	Details RateLimitDetails `json:"details"`
}
