package service

import (
	"context"
	stderrors "errors"
	"log/slog"
	"time"

	"gorm.io/gorm"
	"ghostlore.app/aiservice"
	"ghostlore.app/cache"
	"ghostlore.app/database"
	"ghostlore.app/errors"
	"ghostlore.app/models"
	"ghostlore.app/repository"
)

const (
	conversationContextLimit = 10
	twinInteractionLimit     = 20
	historyDefaultLimit      = 20
	historyMaxLimit          = 100

	// fallbackReply is the static apology served when the twin is down.
	fallbackReply = "I'm having trouble connecting right now. Please try again in a moment."
)

// TwinService relays conversational messages to the digital twin. An
// unavailable upstream degrades to a stored apology reply; the raw error
// never reaches the end user.
type TwinService struct {
	db            *gorm.DB
	conversations *repository.ConversationRepository
	interactions  *repository.InteractionRepository
	prefs         *repository.PreferencesRepository
	ai            aiservice.ClientInterface
	invalidator   cache.Invalidator
}

// NewTwinService creates a new digital twin service
func NewTwinService(
	db *gorm.DB,
	conversations *repository.ConversationRepository,
	interactions *repository.InteractionRepository,
	prefs *repository.PreferencesRepository,
	ai aiservice.ClientInterface,
	invalidator cache.Invalidator,
) *TwinService {
	return &TwinService{
		db:            db,
		conversations: conversations,
		interactions:  interactions,
		prefs:         prefs,
		ai:            ai,
		invalidator:   invalidator,
	}
}

// SendMessage relays one message with conversation context and persists
// both sides of the exchange
func (s *TwinService) SendMessage(ctx context.Context, userID string, req *models.TwinMessageRequest) (*models.TwinMessageResponse, error) {
	twinCtx, err := s.buildContext(userID)
	if err != nil {
		return nil, err
	}

	aiResp, aiErr := s.ai.SendTwinMessage(ctx, &aiservice.TwinMessageRequest{
		UserID:  userID,
		Message: req.Message,
		Context: twinCtx,
	})

	reply := &models.TwinMessageResponse{}
	if aiErr != nil {
		var appErr *errors.AppError
		if !stderrors.As(aiErr, &appErr) ||
			(appErr.Type != errors.AIUnavailableError && appErr.Type != errors.AIServiceError) {
			return nil, aiErr
		}

		slog.Warn("Digital twin unavailable, serving fallback reply",
			"userID", userID, "error", aiErr)
		reply.Response = fallbackReply
		reply.Fallback = true
	} else {
		reply.Response = aiResp.Response
		for _, ref := range aiResp.ContentReferences {
			reply.ContentReferences = append(reply.ContentReferences, models.ContentReference{
				ContentType: ref.ContentType,
				ContentID:   ref.ContentID,
			})
		}
	}

	err = database.WithTransaction(s.db, func(tx *gorm.DB) error {
		if err := s.conversations.Create(tx, &models.ConversationMessage{
			UserID:  userID,
			Role:    "user",
			Content: req.Message,
		}); err != nil {
			return err
		}
		return s.conversations.Create(tx, &models.ConversationMessage{
			UserID:  userID,
			Role:    "assistant",
			Content: reply.Response,
		})
	})
	if err != nil {
		return nil, database.Classify(err, "conversation")
	}

	s.invalidator.Run(ctx, cache.InvalidationSet{
		Patterns: []string{cache.ResponsePattern("/api/twin")},
	})

	return reply, nil
}

// GetHistory returns a user's recent conversation turns, oldest first
func (s *TwinService) GetHistory(ctx context.Context, userID string, limit int) ([]models.ConversationMessage, error) {
	if limit == 0 {
		limit = historyDefaultLimit
	}
	if limit < 1 || limit > historyMaxLimit {
		return nil, errors.NewValidationError("limit must be between 1 and 100")
	}

	messages, err := s.conversations.FindRecent(userID, limit)
	if err != nil {
		return nil, database.Classify(err, "conversation")
	}
	return messages, nil
}

func (s *TwinService) buildContext(userID string) (aiservice.TwinContext, error) {
	prefs, err := s.prefs.FindByUserID(userID)
	if err != nil {
		return aiservice.TwinContext{}, database.Classify(err, "preferences")
	}

	messages, err := s.conversations.FindRecent(userID, conversationContextLimit)
	if err != nil {
		return aiservice.TwinContext{}, database.Classify(err, "conversation")
	}

	interactions, err := s.interactions.FindByUser(userID, twinInteractionLimit)
	if err != nil {
		return aiservice.TwinContext{}, database.Classify(err, "interactions")
	}

	twinCtx := aiservice.TwinContext{
		UserPreferences:    preferenceProfile(prefs),
		RecentMessages:     []aiservice.ChatTurn{},
		RecentInteractions: []aiservice.RecentInteraction{},
	}
	for _, m := range messages {
		twinCtx.RecentMessages = append(twinCtx.RecentMessages, aiservice.ChatTurn{
			Role:      m.Role,
			Content:   m.Content,
			Timestamp: m.CreatedAt.Format(time.RFC3339),
		})
	}
	for _, i := range interactions {
		twinCtx.RecentInteractions = append(twinCtx.RecentInteractions, aiservice.RecentInteraction{
			ContentType:     i.ContentType,
			InteractionType: i.InteractionType,
		})
	}

	return twinCtx, nil
}
