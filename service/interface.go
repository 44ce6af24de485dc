package service

import (
	"context"

	"ghostlore.app/models"
	"ghostlore.app/repository"
)

// AuthServiceInterface defines account and session operations
type AuthServiceInterface interface {
	Register(ctx context.Context, req *models.RegisterRequest) (*models.User, string, error)
	Login(ctx context.Context, req *models.LoginRequest) (*models.User, string, error)
	Logout(ctx context.Context, token string) error
}

// UserServiceInterface defines profile operations
type UserServiceInterface interface {
	GetUser(ctx context.Context, userID string) (*models.User, error)
	UpdateUsername(ctx context.Context, userID, username string) (*models.User, error)
	DeleteUser(ctx context.Context, userID string) error
}

// PreferencesServiceInterface defines preference profile operations
type PreferencesServiceInterface interface {
	GetPreferences(ctx context.Context, userID string) (*models.UserPreferences, error)
	UpdatePreferences(ctx context.Context, userID string, req *models.UpdatePreferencesRequest) (*models.UserPreferences, error)
}

// GhostServiceInterface defines catalog operations
type GhostServiceInterface interface {
	Search(ctx context.Context, opts GhostSearchOptions) (*models.PaginatedResult[models.Ghost], error)
	GetByID(ctx context.Context, ghostID string) (*models.Ghost, error)
	GetByCategory(ctx context.Context, category string, page, limit int) (*models.PaginatedResult[models.Ghost], error)
	GetRelated(ctx context.Context, ghostID string) ([]models.Ghost, error)
	Create(ctx context.Context, req *models.CreateGhostRequest, userID string) (*models.Ghost, error)
	Update(ctx context.Context, ghostID string, req *models.UpdateGhostRequest) (*models.Ghost, error)
}

// StoryServiceInterface defines story operations
type StoryServiceInterface interface {
	GetByID(ctx context.Context, storyID string) (*models.Story, error)
	GetByGhost(ctx context.Context, ghostID string) ([]models.Story, error)
	Create(ctx context.Context, req *models.CreateStoryRequest, authorID string) (*models.Story, error)
	Update(ctx context.Context, storyID string, req *models.UpdateStoryRequest) (*models.Story, error)
	Delete(ctx context.Context, storyID string) error
}

// BookmarkServiceInterface defines bookmark operations
type BookmarkServiceInterface interface {
	List(ctx context.Context, userID string) ([]models.Bookmark, error)
	Add(ctx context.Context, userID, contentID, contentType string) (*models.Bookmark, error)
	Remove(ctx context.Context, userID, bookmarkID string) error
	Organize(ctx context.Context, userID, bookmarkID string, tags []string) (*models.Bookmark, error)
}

// ProgressServiceInterface defines reading progress operations
type ProgressServiceInterface interface {
	Get(ctx context.Context, userID, storyID string) (*models.ReadingProgress, error)
	Upsert(ctx context.Context, userID, storyID string, progress float64) (*models.ReadingProgress, error)
	MarkRead(ctx context.Context, userID, storyID string) (*models.ReadingProgress, error)
}

// RecommendationServiceInterface defines recommendation operations
type RecommendationServiceInterface interface {
	GetPersonalized(ctx context.Context, userID string, limit int) ([]models.Recommendation, error)
	RecordInteraction(ctx context.Context, userID, contentID, contentType, interactionType string) (*models.Interaction, error)
	SubmitFeedback(ctx context.Context, userID, recommendationID, feedbackType string) error
}

// TwinServiceInterface defines conversational operations
type TwinServiceInterface interface {
	SendMessage(ctx context.Context, userID string, req *models.TwinMessageRequest) (*models.TwinMessageResponse, error)
	GetHistory(ctx context.Context, userID string, limit int) ([]models.ConversationMessage, error)
}

// GhostSearchOptions carries the parsed search request
type GhostSearchOptions struct {
	Query   string
	Filters repository.GhostFilters
	Page    int
	Limit   int
}
